package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cpdash/internal/common"
	"cpdash/internal/domain/model"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	// FindByLogin matches either the username or the lowercased email.
	FindByLogin(ctx context.Context, login string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
}

type pgUserRepository struct {
	db *sql.DB
}

func NewPgUserRepository(db *sql.DB) UserRepository {
	return &pgUserRepository{db: db}
}

const userColumns = `id, username, email, hashed_password, role, last_login_at, created_at, updated_at`

func (r *pgUserRepository) Create(ctx context.Context, user *model.User) error {
	query := `INSERT INTO users (id, username, email, hashed_password, role)
	          VALUES ($1, $2, $3, $4, $5)
	          RETURNING created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, user.ID, user.Username, user.Email, user.HashedPassword, user.Role).
		Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("username or email already registered: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgUserRepository.Create: %w", err)
	}
	return nil
}

func (r *pgUserRepository) FindByLogin(ctx context.Context, login string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1 OR email = LOWER($1)`
	return r.scanOne("FindByLogin", r.db.QueryRowContext(ctx, query, login))
}

func (r *pgUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanOne("FindByID", r.db.QueryRowContext(ctx, query, id))
}

func (r *pgUserRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET last_login_at = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("pgUserRepository.TouchLastLogin: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgUserRepository) scanOne(op string, row *sql.Row) (*model.User, error) {
	user := &model.User{}
	var lastLogin sql.NullTime
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.HashedPassword, &user.Role,
		&lastLogin, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgUserRepository.%s: %w", op, err)
	}
	if lastLogin.Valid {
		user.LastLoginAt = &lastLogin.Time
	}
	return user, nil
}
