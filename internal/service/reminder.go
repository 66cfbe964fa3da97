package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dkravchuk/classroom-deadline-bot/internal/models"
)

// reminderWindow describes one threshold: the deadline qualifies while
// hours-until-due is inside [minHours, maxHours], both ends inclusive. Every
// window is wider than twice the 30-minute poll interval, so a deadline is
// observed inside each window at least once regardless of phase alignment.
type reminderWindow struct {
	threshold models.ReminderThreshold
	minHours  float64
	maxHours  float64
	enabled   func(*models.UserSettings) bool
	sent      func(*models.Deadline) bool
	markSent  func(*models.Deadline)
}

// Evaluation order is a contract: 1-day before 3-hour before 1-hour, and at
// most one threshold fires per deadline per pass.
var reminderWindows = []reminderWindow{
	{
		threshold: models.Reminder1Day,
		minHours:  20, maxHours: 28,
		enabled:  func(s *models.UserSettings) bool { return s.Remind1Day },
		sent:     func(d *models.Deadline) bool { return d.Reminder1Day },
		markSent: func(d *models.Deadline) { d.Reminder1Day = true },
	},
	{
		threshold: models.Reminder3Hours,
		minHours:  2.5, maxHours: 3.5,
		enabled:  func(s *models.UserSettings) bool { return s.Remind3Hours },
		sent:     func(d *models.Deadline) bool { return d.Reminder3Hours },
		markSent: func(d *models.Deadline) { d.Reminder3Hours = true },
	},
	{
		threshold: models.Reminder1Hour,
		minHours:  0.8, maxHours: 1.2,
		enabled:  func(s *models.UserSettings) bool { return s.Remind1Hour },
		sent:     func(d *models.Deadline) bool { return d.Reminder1Hour },
		markSent: func(d *models.Deadline) { d.Reminder1Hour = true },
	},
}

// CheckReminders scans all open deadlines and emits one notification intent
// per deadline whose first unsent, enabled threshold window contains now. The
// sent flag is persisted before the intent is returned, so a failed delivery
// is never retried: at-most-once-attempt per threshold.
func (s *Service) CheckReminders(ctx context.Context, now time.Time) ([]models.PendingReminder, error) {
	deadlines, err := s.repo.ListOpenDeadlines(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("list open deadlines: %w", err)
	}

	var pending []models.PendingReminder
	for _, deadline := range deadlines {
		user, err := s.repo.GetUserByID(ctx, deadline.UserID)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				// Orphaned row; nothing to notify.
				continue
			}
			return pending, fmt.Errorf("get deadline owner (deadline_id: %d): %w", deadline.ID, err)
		}

		settings, err := s.settingsFor(ctx, user.ID)
		if err != nil {
			return pending, fmt.Errorf("resolve settings (user_id: %d): %w", user.ID, err)
		}

		hoursUntil := deadline.DueDate.Sub(now).Hours()

		for _, window := range reminderWindows {
			if !window.enabled(settings) || window.sent(deadline) {
				continue
			}
			if hoursUntil < window.minHours || hoursUntil > window.maxHours {
				continue
			}

			if err := s.repo.SetReminderSent(ctx, deadline.ID, window.threshold); err != nil {
				return pending, fmt.Errorf("set reminder sent (deadline_id: %d, threshold: %s): %w",
					deadline.ID, window.threshold, err)
			}
			window.markSent(deadline)

			pending = append(pending, models.PendingReminder{
				ChatID:    user.TelegramID,
				Deadline:  deadline,
				Threshold: window.threshold,
			})

			zap.L().Info("reminder due",
				zap.Int64("telegram_id", user.TelegramID),
				zap.Int64("deadline_id", deadline.ID),
				zap.String("threshold", string(window.threshold)))

			// One threshold per deadline per pass.
			break
		}
	}

	return pending, nil
}
