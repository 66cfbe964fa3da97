package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/dkravchuk/classroom-deadline-bot/internal/models"
	"github.com/dkravchuk/classroom-deadline-bot/internal/service"
)

// Notifier delivers one message to one chat. Delivery failures are logged and
// never retried here; the next threshold is a separate notification.
type Notifier interface {
	SendMessage(chatID int64, text string) error
}

type Service interface {
	ListAutoSyncUsers(ctx context.Context) ([]*models.User, error)
	SyncUser(ctx context.Context, user *models.User) (created, updated int, courses []string, err error)
	CheckReminders(ctx context.Context, now time.Time) ([]models.PendingReminder, error)
}

// Scheduler drives the two periodic jobs: reconciliation for all users and
// reminder evaluation for all deadlines. The jobs are independent and run on
// their own intervals.
type Scheduler struct {
	svc          Service
	notifier     Notifier
	cron         *cron.Cron
	syncEvery    time.Duration
	remindEvery  time.Duration
	fetchTimeout time.Duration
}

func New(svc Service, notifier Notifier, syncEvery, remindEvery time.Duration) *Scheduler {
	return &Scheduler{
		svc:          svc,
		notifier:     notifier,
		cron:         cron.New(),
		syncEvery:    syncEvery,
		remindEvery:  remindEvery,
		fetchTimeout: 2 * time.Minute,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.syncEvery), s.runAutoSync); err != nil {
		return fmt.Errorf("schedule auto-sync job: %w", err)
	}

	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.remindEvery), s.runReminderCheck); err != nil {
		return fmt.Errorf("schedule reminder job: %w", err)
	}

	s.cron.Start()
	zap.L().Info("scheduler started",
		zap.Duration("auto_sync_interval", s.syncEvery),
		zap.Duration("reminder_interval", s.remindEvery))

	return nil
}

// Stop halts the timers and returns once running jobs have finished.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	zap.L().Info("scheduler stopped")
}

// runAutoSync reconciles every eligible user. Per-user work is isolated: a
// slow or failing fetch for one user is bounded by a timeout and cannot
// abort the batch.
func (s *Scheduler) runAutoSync() {
	ctx := context.Background()
	zap.L().Info("auto-sync started")

	users, err := s.svc.ListAutoSyncUsers(ctx)
	if err != nil {
		zap.L().Error("list auto-sync users", zap.Error(err))
		return
	}

	for _, user := range users {
		s.syncOne(ctx, user)
	}

	zap.L().Info("auto-sync completed", zap.Int("users", len(users)))
}

func (s *Scheduler) syncOne(ctx context.Context, user *models.User) {
	userCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	created, updated, _, err := s.svc.SyncUser(userCtx, user)
	if err != nil {
		var authErr *service.AuthRequiredError
		if errors.As(err, &authErr) {
			zap.L().Warn("auth required during auto-sync", zap.Int64("telegram_id", user.TelegramID))
			if sendErr := s.notifier.SendMessage(user.TelegramID, authExpiredText); sendErr != nil {
				zap.L().Error("send auth-expired notice", zap.Error(sendErr), zap.Int64("telegram_id", user.TelegramID))
			}
			return
		}
		// Transient failure: skip this user, the next cycle retries naturally.
		zap.L().Warn("auto-sync failed for user", zap.Error(err), zap.Int64("telegram_id", user.TelegramID))
		return
	}

	if created == 0 && updated == 0 {
		return
	}

	if err := s.notifier.SendMessage(user.TelegramID, autoSyncDoneText(created, updated)); err != nil {
		zap.L().Error("send auto-sync summary", zap.Error(err), zap.Int64("telegram_id", user.TelegramID))
	}
}

func (s *Scheduler) runReminderCheck() {
	ctx := context.Background()
	now := time.Now().UTC()

	pending, err := s.svc.CheckReminders(ctx, now)
	if err != nil {
		zap.L().Error("check reminders", zap.Error(err))
		return
	}

	for _, reminder := range pending {
		if err := s.notifier.SendMessage(reminder.ChatID, reminderText(reminder)); err != nil {
			zap.L().Error("send reminder",
				zap.Error(err),
				zap.Int64("telegram_id", reminder.ChatID),
				zap.Int64("deadline_id", reminder.Deadline.ID))
		}
	}
}
