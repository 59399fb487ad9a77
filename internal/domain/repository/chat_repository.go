package repository

import (
	"context"
	"database/sql"
	"fmt"

	"cpdash/internal/domain/model"
)

type ChatRepository interface {
	Create(ctx context.Context, msg *model.ChatMessage) error
	// ListRecent returns up to limit of the user's latest messages in chronological order.
	ListRecent(ctx context.Context, userID string, limit int) ([]model.ChatMessage, error)
}

type pgChatRepository struct {
	db *sql.DB
}

func NewPgChatRepository(db *sql.DB) ChatRepository {
	return &pgChatRepository{db: db}
}

func (r *pgChatRepository) Create(ctx context.Context, msg *model.ChatMessage) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO chat_messages (id, user_id, role, content) VALUES ($1, $2, $3, $4) RETURNING created_at`,
		msg.ID, msg.UserID, msg.Role, msg.Content).Scan(&msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("pgChatRepository.Create: %w", err)
	}
	return nil
}

func (r *pgChatRepository) ListRecent(ctx context.Context, userID string, limit int) ([]model.ChatMessage, error) {
	query := `SELECT id, user_id, role, content, created_at FROM chat_messages
	          WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("pgChatRepository.ListRecent query: %w", err)
	}
	defer rows.Close()

	msgs := []model.ChatMessage{}
	for rows.Next() {
		var m model.ChatMessage
		if err := rows.Scan(&m.ID, &m.UserID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("pgChatRepository.ListRecent scan: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgChatRepository.ListRecent rows.Err: %w", err)
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}
