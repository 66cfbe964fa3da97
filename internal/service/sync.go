package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/dkravchuk/classroom-deadline-bot/internal/models"
	"github.com/dkravchuk/classroom-deadline-bot/pkg/classroom"
)

// SyncUser runs one reconciliation pass for the user: fetch from Classroom,
// merge into the store. A revoked credential invalidates the stored token and
// surfaces as AuthRequiredError so the caller can prompt a reconnect.
func (s *Service) SyncUser(ctx context.Context, user *models.User) (created, updated int, courses []string, err error) {
	if !user.Connected() {
		return 0, 0, nil, &AuthRequiredError{TelegramID: user.TelegramID}
	}

	result, err := s.provider.Fetch(ctx, *user.GoogleToken)
	if err != nil {
		if errors.Is(err, classroom.ErrCredentialRevoked) {
			zap.L().Warn("credential revoked, invalidating token", zap.Int64("telegram_id", user.TelegramID))
			if invErr := s.repo.UpdateGoogleToken(ctx, user.ID, nil); invErr != nil {
				zap.L().Error("invalidate google token", zap.Error(invErr), zap.Int64("telegram_id", user.TelegramID))
			}
			return 0, 0, nil, &AuthRequiredError{TelegramID: user.TelegramID}
		}
		return 0, 0, nil, fmt.Errorf("fetch assignments (telegram_id: %d): %w", user.TelegramID, err)
	}

	created, updated, err = s.Reconcile(ctx, user.ID, result.Dated, result.Undated)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("reconcile (telegram_id: %d): %w", user.TelegramID, err)
	}

	return created, updated, result.CourseNames, nil
}

// Reconcile merges one fetch result into the store for one user, in a single
// transaction. Dated items are upserted by external_id; the undated set is
// replaced wholesale. A malformed record is skipped and logged, never aborts
// the batch.
func (s *Service) Reconcile(ctx context.Context, userID int64, dated []classroom.Assignment, undated []classroom.UndatedAssignment) (created, updated int, err error) {
	err = s.repo.RunInTx(ctx, func(repo models.Repository) error {
		for _, item := range dated {
			if item.ExternalID == "" || item.Title == "" || item.DueDate.IsZero() {
				zap.L().Warn("skip malformed dated item",
					zap.Int64("user_id", userID), zap.String("external_id", item.ExternalID))
				continue
			}

			deadline := &models.Deadline{
				UserID:     userID,
				CourseName: item.CourseName,
				Title:      item.Title,
				DueDate:    item.DueDate.UTC(),
				Link:       item.Link,
				ExternalID: item.ExternalID,
				Priority:   models.PriorityMedium,
			}

			isNew, err := repo.UpsertDeadlineByExternalID(ctx, deadline)
			if err != nil {
				return err
			}
			if isNew {
				created++
			} else {
				updated++
			}
		}

		// Dated upserts go first: an item that gained a due date upstream is
		// written as a deadline before its old undated row disappears in the
		// replace below.
		rows := make([]*models.Coursework, 0, len(undated))
		for _, item := range undated {
			if item.ExternalID == "" || item.Title == "" {
				zap.L().Warn("skip malformed undated item",
					zap.Int64("user_id", userID), zap.String("external_id", item.ExternalID))
				continue
			}
			rows = append(rows, &models.Coursework{
				UserID:     userID,
				CourseName: item.CourseName,
				Title:      item.Title,
				Link:       item.Link,
				ExternalID: item.ExternalID,
			})
		}

		return repo.ReplaceUserCoursework(ctx, userID, rows)
	})
	if err != nil {
		created, updated = 0, 0
	}

	return created, updated, err
}

// ListAutoSyncUsers returns connected users whose auto-sync toggle is on.
// Users without a settings row count as enabled.
func (s *Service) ListAutoSyncUsers(ctx context.Context) ([]*models.User, error) {
	users, err := s.repo.GetConnectedUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("get connected users: %w", err)
	}

	eligible := make([]*models.User, 0, len(users))
	for _, user := range users {
		settings, err := s.repo.GetSettings(ctx, user.ID)
		if err != nil {
			if !errors.Is(err, models.ErrNotFound) {
				zap.L().Error("get settings", zap.Error(err), zap.Int64("telegram_id", user.TelegramID))
				continue
			}
			settings = models.DefaultSettings(user.ID)
		}

		if settings.AutoSyncEnabled {
			eligible = append(eligible, user)
		}
	}

	return eligible, nil
}
