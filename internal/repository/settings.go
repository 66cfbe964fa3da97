package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dkravchuk/classroom-deadline-bot/internal/models"
)

func (r *Postgres) GetSettings(ctx context.Context, userID int64) (*models.UserSettings, error) {
	query := `
		SELECT id, user_id, auto_sync_enabled, auto_sync_interval, remind_1day, remind_3hours, remind_1hour
		FROM user_settings
		WHERE user_id = $1
	`

	var settings models.UserSettings
	if err := r.GetContext(ctx, &settings, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("get settings (user_id: %d): %w", userID, models.ErrNotFound)
		}
		return nil, fmt.Errorf("get settings (user_id: %d): %w", userID, err)
	}

	return &settings, nil
}

func (r *Postgres) CreateSettings(ctx context.Context, s *models.UserSettings) error {
	query := r.psql.Insert("user_settings").
		Columns("user_id", "auto_sync_enabled", "auto_sync_interval", "remind_1day", "remind_3hours", "remind_1hour").
		Values(s.UserID, s.AutoSyncEnabled, s.AutoSyncInterval, s.Remind1Day, s.Remind3Hours, s.Remind1Hour).
		Suffix("RETURNING id")

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build SQL query (user_id: %d): %w", s.UserID, err)
	}

	if err := r.QueryRowxContext(ctx, sql, args...).Scan(&s.ID); err != nil {
		return fmt.Errorf("create settings (user_id: %d): %w", s.UserID, err)
	}
	return nil
}

func (r *Postgres) UpdateSettings(ctx context.Context, s *models.UserSettings) error {
	query := r.psql.Update("user_settings").
		Set("auto_sync_enabled", s.AutoSyncEnabled).
		Set("auto_sync_interval", s.AutoSyncInterval).
		Set("remind_1day", s.Remind1Day).
		Set("remind_3hours", s.Remind3Hours).
		Set("remind_1hour", s.Remind1Hour).
		Where("user_id = ?", s.UserID)

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build SQL query (user_id: %d): %w", s.UserID, err)
	}

	_, err = r.ExecContext(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update settings (user_id: %d): %w", s.UserID, err)
	}
	return nil
}
