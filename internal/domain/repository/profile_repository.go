package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"cpdash/internal/common"
	"cpdash/internal/domain/model"
)

type ProfileRepository interface {
	// Upsert links a handle for (user, platform). Changing the handle resets sync state.
	Upsert(ctx context.Context, profile *model.PlatformProfile) error
	UpdateStats(ctx context.Context, tx *sql.Tx, profile *model.PlatformProfile) error
	FindByUserAndPlatform(ctx context.Context, userID string, platform model.Platform) (*model.PlatformProfile, error)
	ListByUser(ctx context.Context, userID string) ([]model.PlatformProfile, error)
	// Delete unlinks the profile and drops the data synced from it.
	Delete(ctx context.Context, userID string, platform model.Platform) error
}

type pgProfileRepository struct {
	db *sql.DB
}

func NewPgProfileRepository(db *sql.DB) ProfileRepository {
	return &pgProfileRepository{db: db}
}

const profileColumns = `id, user_id, platform, handle, current_rating, max_rating, rank_label,
	solved_count, last_synced_at, created_at, updated_at`

func scanProfile(row interface{ Scan(...any) error }) (*model.PlatformProfile, error) {
	p := &model.PlatformProfile{}
	var lastSynced sql.NullTime
	err := row.Scan(&p.ID, &p.UserID, &p.Platform, &p.Handle, &p.CurrentRating, &p.MaxRating, &p.RankLabel,
		&p.SolvedCount, &lastSynced, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if lastSynced.Valid {
		t := lastSynced.Time
		p.LastSyncedAt = &t
	}
	return p, nil
}

func (r *pgProfileRepository) Upsert(ctx context.Context, p *model.PlatformProfile) error {
	query := `
        INSERT INTO platform_profiles (id, user_id, platform, handle)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (user_id, platform) DO UPDATE SET
            handle = EXCLUDED.handle,
            current_rating = CASE WHEN platform_profiles.handle = EXCLUDED.handle THEN platform_profiles.current_rating ELSE 0 END,
            max_rating = CASE WHEN platform_profiles.handle = EXCLUDED.handle THEN platform_profiles.max_rating ELSE 0 END,
            last_synced_at = CASE WHEN platform_profiles.handle = EXCLUDED.handle THEN platform_profiles.last_synced_at ELSE NULL END,
            updated_at = CURRENT_TIMESTAMP
        RETURNING ` + profileColumns

	saved, err := scanProfile(r.db.QueryRowContext(ctx, query, p.ID, p.UserID, p.Platform, p.Handle))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("handle %q is already linked on %s: %w", p.Handle, p.Platform, common.ErrConflict)
		}
		return fmt.Errorf("pgProfileRepository.Upsert: %w", err)
	}
	*p = *saved
	return nil
}

func (r *pgProfileRepository) UpdateStats(ctx context.Context, tx *sql.Tx, p *model.PlatformProfile) error {
	query := `UPDATE platform_profiles SET
                current_rating = $1, max_rating = $2, rank_label = $3, solved_count = $4,
                last_synced_at = $5, updated_at = CURRENT_TIMESTAMP
              WHERE id = $6`
	res, err := pick(r.db, tx).ExecContext(ctx, query,
		p.CurrentRating, p.MaxRating, p.RankLabel, p.SolvedCount, p.LastSyncedAt, p.ID)
	if err != nil {
		return fmt.Errorf("pgProfileRepository.UpdateStats: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgProfileRepository) FindByUserAndPlatform(ctx context.Context, userID string, platform model.Platform) (*model.PlatformProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM platform_profiles WHERE user_id = $1 AND platform = $2`
	p, err := scanProfile(r.db.QueryRowContext(ctx, query, userID, platform))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgProfileRepository.FindByUserAndPlatform: %w", err)
	}
	return p, nil
}

func (r *pgProfileRepository) ListByUser(ctx context.Context, userID string) ([]model.PlatformProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM platform_profiles WHERE user_id = $1 ORDER BY platform`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("pgProfileRepository.ListByUser query: %w", err)
	}
	defer rows.Close()

	profiles := []model.PlatformProfile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("pgProfileRepository.ListByUser scan: %w", err)
		}
		profiles = append(profiles, *p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgProfileRepository.ListByUser rows.Err: %w", err)
	}
	return profiles, nil
}

func (r *pgProfileRepository) Delete(ctx context.Context, userID string, platform model.Platform) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("pgProfileRepository.Delete begin: %w", err)
	}
	defer tx.Rollback() // no-op after commit

	res, err := tx.ExecContext(ctx, `DELETE FROM platform_profiles WHERE user_id = $1 AND platform = $2`, userID, platform)
	if err != nil {
		return fmt.Errorf("pgProfileRepository.Delete profile: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	for _, stmt := range []string{
		`DELETE FROM submissions WHERE user_id = $1 AND platform = $2`,
		`DELETE FROM contest_participations WHERE user_id = $1 AND platform = $2`,
		`DELETE FROM calendar_cache WHERE user_id = $1 AND platform = $2`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, userID, platform); err != nil {
			return fmt.Errorf("pgProfileRepository.Delete cascade: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("pgProfileRepository.Delete commit: %w", err)
	}
	return nil
}
