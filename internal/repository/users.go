package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dkravchuk/classroom-deadline-bot/internal/models"
)

func (r *Postgres) CreateUser(ctx context.Context, user *models.User) error {
	query := r.psql.Insert("users").
		Columns("telegram_id", "username", "google_token", "created_at").
		Values(user.TelegramID, user.Username, user.GoogleToken, user.CreatedAt).
		Suffix("RETURNING id")

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build SQL query (telegram_id: %d): %w", user.TelegramID, err)
	}

	if err := r.QueryRowxContext(ctx, sql, args...).Scan(&user.ID); err != nil {
		return fmt.Errorf("create user (telegram_id: %d, username: %s): %w", user.TelegramID, user.Username, err)
	}
	return nil
}

const userColumns = "id, telegram_id, username, google_token, created_at"

func (r *Postgres) GetUserByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE telegram_id = $1`

	var user models.User
	if err := r.GetContext(ctx, &user, query, telegramID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("get user (telegram_id: %d): %w", telegramID, models.ErrNotFound)
		}
		return nil, fmt.Errorf("get user (telegram_id: %d): %w", telegramID, err)
	}

	return &user, nil
}

func (r *Postgres) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	var user models.User
	if err := r.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("get user (id: %d): %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("get user (id: %d): %w", id, err)
	}

	return &user, nil
}

func (r *Postgres) UpdateGoogleToken(ctx context.Context, userID int64, token *string) error {
	query := r.psql.Update("users").
		Set("google_token", token).
		Where("id = ?", userID)

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build SQL query (user_id: %d): %w", userID, err)
	}

	_, err = r.ExecContext(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update google token (user_id: %d): %w", userID, err)
	}
	return nil
}

func (r *Postgres) GetConnectedUsers(ctx context.Context) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE google_token IS NOT NULL AND google_token <> ''`

	var users []*models.User
	if err := r.SelectContext(ctx, &users, query); err != nil {
		return nil, fmt.Errorf("query connected users: %w", err)
	}

	return users, nil
}
