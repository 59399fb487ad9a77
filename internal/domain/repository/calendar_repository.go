package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"cpdash/internal/common"
	"cpdash/internal/domain/model"
)

type CalendarRepository interface {
	Get(ctx context.Context, userID string, platform model.Platform) (*model.CalendarCache, error)
	Upsert(ctx context.Context, tx *sql.Tx, c *model.CalendarCache) error
}

type pgCalendarRepository struct {
	db *sql.DB
}

func NewPgCalendarRepository(db *sql.DB) CalendarRepository {
	return &pgCalendarRepository{db: db}
}

func (r *pgCalendarRepository) Get(ctx context.Context, userID string, platform model.Platform) (*model.CalendarCache, error) {
	query := `SELECT user_id, platform, calendar, fetched_at FROM calendar_cache WHERE user_id = $1 AND platform = $2`
	c := &model.CalendarCache{}
	var raw []byte
	err := r.db.QueryRowContext(ctx, query, userID, platform).Scan(&c.UserID, &c.Platform, &raw, &c.FetchedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgCalendarRepository.Get: %w", err)
	}
	if err := json.Unmarshal(raw, &c.Calendar); err != nil {
		return nil, fmt.Errorf("pgCalendarRepository.Get decode: %w", err)
	}
	return c, nil
}

func (r *pgCalendarRepository) Upsert(ctx context.Context, tx *sql.Tx, c *model.CalendarCache) error {
	raw, err := json.Marshal(c.Calendar)
	if err != nil {
		return fmt.Errorf("pgCalendarRepository.Upsert encode: %w", err)
	}
	query := `INSERT INTO calendar_cache (user_id, platform, calendar, fetched_at)
	          VALUES ($1, $2, $3, $4)
	          ON CONFLICT (user_id, platform) DO UPDATE SET
	              calendar = EXCLUDED.calendar, fetched_at = EXCLUDED.fetched_at`
	if _, err := pick(r.db, tx).ExecContext(ctx, query, c.UserID, c.Platform, raw, c.FetchedAt.UTC()); err != nil {
		return fmt.Errorf("pgCalendarRepository.Upsert: %w", err)
	}
	return nil
}
