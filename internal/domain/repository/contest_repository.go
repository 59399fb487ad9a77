package repository

import (
	"context"
	"database/sql"
	"fmt"

	"cpdash/internal/domain/model"
)

type ContestRepository interface {
	// UpsertContest inserts or renames a contest keyed by (platform, external_id) and sets c.ID.
	UpsertContest(ctx context.Context, tx *sql.Tx, c *model.Contest) error
	UpsertParticipation(ctx context.Context, tx *sql.Tx, p *model.ContestParticipation) error
	// ListParticipations returns a user's contest history, oldest first.
	ListParticipations(ctx context.Context, userID string) ([]model.ContestParticipation, error)
}

type pgContestRepository struct {
	db *sql.DB
}

func NewPgContestRepository(db *sql.DB) ContestRepository {
	return &pgContestRepository{db: db}
}

func (r *pgContestRepository) UpsertContest(ctx context.Context, tx *sql.Tx, c *model.Contest) error {
	query := `INSERT INTO contests (id, platform, external_id, name, start_time)
	          VALUES ($1, $2, $3, $4, $5)
	          ON CONFLICT (platform, external_id) DO UPDATE SET
	              name = EXCLUDED.name,
	              start_time = COALESCE(EXCLUDED.start_time, contests.start_time)
	          RETURNING id`
	err := pick(r.db, tx).QueryRowContext(ctx, query, c.ID, c.Platform, c.ExternalID, c.Name, c.StartTime).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("pgContestRepository.UpsertContest: %w", err)
	}
	return nil
}

func (r *pgContestRepository) UpsertParticipation(ctx context.Context, tx *sql.Tx, p *model.ContestParticipation) error {
	query := `INSERT INTO contest_participations (id, user_id, contest_id, platform, rank, old_rating, new_rating, participated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	          ON CONFLICT (user_id, contest_id) DO UPDATE SET
	              rank = EXCLUDED.rank,
	              old_rating = EXCLUDED.old_rating,
	              new_rating = EXCLUDED.new_rating,
	              participated_at = EXCLUDED.participated_at`
	_, err := pick(r.db, tx).ExecContext(ctx, query,
		p.ID, p.UserID, p.ContestID, p.Platform, p.Rank, p.OldRating, p.NewRating, p.ParticipatedAt.UTC())
	if err != nil {
		return fmt.Errorf("pgContestRepository.UpsertParticipation: %w", err)
	}
	return nil
}

func (r *pgContestRepository) ListParticipations(ctx context.Context, userID string) ([]model.ContestParticipation, error) {
	query := `SELECT cp.id, cp.user_id, cp.contest_id, cp.platform, cp.rank, cp.old_rating, cp.new_rating,
                     cp.participated_at, c.name
              FROM contest_participations cp JOIN contests c ON c.id = cp.contest_id
              WHERE cp.user_id = $1
              ORDER BY cp.participated_at ASC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("pgContestRepository.ListParticipations query: %w", err)
	}
	defer rows.Close()

	out := []model.ContestParticipation{}
	for rows.Next() {
		var p model.ContestParticipation
		var name string
		if err := rows.Scan(&p.ID, &p.UserID, &p.ContestID, &p.Platform, &p.Rank, &p.OldRating, &p.NewRating,
			&p.ParticipatedAt, &name); err != nil {
			return nil, fmt.Errorf("pgContestRepository.ListParticipations scan: %w", err)
		}
		p.ContestName = &name
		out = append(out, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgContestRepository.ListParticipations rows.Err: %w", err)
	}
	return out, nil
}
