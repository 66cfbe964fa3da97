package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/xid"

	"github.com/dkravchuk/classroom-deadline-bot/internal/models"
	"github.com/dkravchuk/classroom-deadline-bot/pkg/classroom"
)

// Provider fetches the current set of remote assignments for one credential.
type Provider interface {
	Fetch(ctx context.Context, refreshToken string) (*classroom.FetchResult, error)
}

type Authorizer interface {
	GetAuthURL(state string) string
	ExchangeCode(ctx context.Context, code string) (string, error)
}

type Service struct {
	repo     models.Repository
	auth     Authorizer
	provider Provider
}

func NewService(repo models.Repository, auth Authorizer, provider Provider) *Service {
	return &Service{
		repo:     repo,
		auth:     auth,
		provider: provider,
	}
}

// AuthRequiredError indicates the user's stored credential is gone or revoked
// and the user has to reconnect Google Classroom.
type AuthRequiredError struct {
	TelegramID int64
}

func (e *AuthRequiredError) Error() string {
	return fmt.Sprintf("authorization required (telegram_id: %d)", e.TelegramID)
}

// RegisterUser returns the existing user or creates a fresh one.
func (s *Service) RegisterUser(ctx context.Context, telegramID int64, username string) (*models.User, error) {
	user, err := s.repo.GetUserByTelegramID(ctx, telegramID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("get user (telegram_id: %d): %w", telegramID, err)
	}

	user = &models.User{
		TelegramID: telegramID,
		Username:   username,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("create user (telegram_id: %d, username: %s): %w", telegramID, username, err)
	}

	return user, nil
}

func (s *Service) GetUser(ctx context.Context, telegramID int64) (*models.User, error) {
	return s.repo.GetUserByTelegramID(ctx, telegramID)
}

func (s *Service) GetAuthURL(telegramID int64) string {
	return s.auth.GetAuthURL(strconv.FormatInt(telegramID, 10))
}

// CompleteAuth finishes the OAuth flow: it exchanges the callback code and
// stores the refresh token. Reconnecting purges the user's deadlines first,
// since they may belong to a different Google account.
func (s *Service) CompleteAuth(ctx context.Context, telegramID int64, code string) error {
	refreshToken, err := s.auth.ExchangeCode(ctx, code)
	if err != nil {
		return fmt.Errorf("exchange auth code (telegram_id: %d): %w", telegramID, err)
	}

	user, err := s.repo.GetUserByTelegramID(ctx, telegramID)
	if err != nil {
		return fmt.Errorf("get user (telegram_id: %d): %w", telegramID, err)
	}

	err = s.repo.RunInTx(ctx, func(repo models.Repository) error {
		if err := repo.DeleteUserDeadlines(ctx, user.ID); err != nil {
			return err
		}
		return repo.UpdateGoogleToken(ctx, user.ID, &refreshToken)
	})
	if err != nil {
		return fmt.Errorf("store credential (telegram_id: %d): %w", telegramID, err)
	}

	return nil
}

func (s *Service) ListActiveDeadlines(ctx context.Context, telegramID int64) ([]*models.Deadline, error) {
	user, err := s.repo.GetUserByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("get user (telegram_id: %d): %w", telegramID, err)
	}

	now := time.Now().UTC()
	return s.repo.ListUserDeadlines(ctx, user.ID, &now, nil)
}

func (s *Service) ListOverdueDeadlines(ctx context.Context, telegramID int64) ([]*models.Deadline, error) {
	user, err := s.repo.GetUserByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("get user (telegram_id: %d): %w", telegramID, err)
	}

	now := time.Now().UTC()
	return s.repo.ListUserDeadlines(ctx, user.ID, nil, &now)
}

func (s *Service) ListCourses(ctx context.Context, telegramID int64) ([]string, error) {
	user, err := s.repo.GetUserByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("get user (telegram_id: %d): %w", telegramID, err)
	}

	return s.repo.ListCourseNames(ctx, user.ID)
}

// ListCourseItems returns the course's deadlines plus its undated coursework.
func (s *Service) ListCourseItems(ctx context.Context, telegramID int64, courseName string) ([]*models.Deadline, []*models.Coursework, error) {
	user, err := s.repo.GetUserByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, nil, fmt.Errorf("get user (telegram_id: %d): %w", telegramID, err)
	}

	deadlines, err := s.repo.ListCourseDeadlines(ctx, user.ID, courseName)
	if err != nil {
		return nil, nil, err
	}

	coursework, err := s.repo.ListCourseCoursework(ctx, user.ID, courseName)
	if err != nil {
		return nil, nil, err
	}

	return deadlines, coursework, nil
}

// CreateManualDeadline is the manual entry point; it only ever creates. The
// synthesized external id is namespaced so it can never collide with an id
// coming from Classroom.
func (s *Service) CreateManualDeadline(ctx context.Context, telegramID int64, courseName, title string, dueDate time.Time, link string) (*models.Deadline, error) {
	user, err := s.repo.GetUserByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("get user (telegram_id: %d): %w", telegramID, err)
	}

	deadline := &models.Deadline{
		UserID:     user.ID,
		CourseName: courseName,
		Title:      title,
		DueDate:    dueDate.UTC(),
		Link:       link,
		ExternalID: fmt.Sprintf("manual_%d_%s", telegramID, xid.New().String()),
		Priority:   models.PriorityMedium,
	}

	if err := s.repo.CreateDeadline(ctx, deadline); err != nil {
		return nil, fmt.Errorf("create manual deadline (telegram_id: %d, title: %s): %w", telegramID, title, err)
	}

	return deadline, nil
}

// getOwnedDeadline loads a deadline and checks it belongs to the caller.
func (s *Service) getOwnedDeadline(ctx context.Context, telegramID, deadlineID int64) (*models.Deadline, error) {
	user, err := s.repo.GetUserByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("get user (telegram_id: %d): %w", telegramID, err)
	}

	deadline, err := s.repo.GetDeadline(ctx, deadlineID)
	if err != nil {
		return nil, err
	}

	if deadline.UserID != user.ID {
		return nil, fmt.Errorf("deadline not owned by user (deadline_id: %d, telegram_id: %d): %w",
			deadlineID, telegramID, models.ErrNotFound)
	}

	return deadline, nil
}

func (s *Service) SetDeadlineCompleted(ctx context.Context, telegramID, deadlineID int64, completed bool) (*models.Deadline, error) {
	deadline, err := s.getOwnedDeadline(ctx, telegramID, deadlineID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.SetDeadlineCompleted(ctx, deadline.ID, completed); err != nil {
		return nil, err
	}

	deadline.Completed = completed
	return deadline, nil
}

func (s *Service) SetDeadlinePriority(ctx context.Context, telegramID, deadlineID int64, priority models.Priority) (*models.Deadline, error) {
	deadline, err := s.getOwnedDeadline(ctx, telegramID, deadlineID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.SetDeadlinePriority(ctx, deadline.ID, priority); err != nil {
		return nil, err
	}

	deadline.Priority = priority
	return deadline, nil
}

// CycleDeadlinePriority advances priority low → medium → high → low.
func (s *Service) CycleDeadlinePriority(ctx context.Context, telegramID, deadlineID int64) (*models.Deadline, error) {
	deadline, err := s.getOwnedDeadline(ctx, telegramID, deadlineID)
	if err != nil {
		return nil, err
	}

	var next models.Priority
	switch deadline.Priority {
	case models.PriorityLow:
		next = models.PriorityMedium
	case models.PriorityMedium:
		next = models.PriorityHigh
	default:
		next = models.PriorityLow
	}

	if err := s.repo.SetDeadlinePriority(ctx, deadline.ID, next); err != nil {
		return nil, err
	}

	deadline.Priority = next
	return deadline, nil
}

// settingsFor resolves the user's settings, materializing the default
// "everything enabled" row on first access.
func (s *Service) settingsFor(ctx context.Context, userID int64) (*models.UserSettings, error) {
	settings, err := s.repo.GetSettings(ctx, userID)
	if err == nil {
		return settings, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	settings = models.DefaultSettings(userID)
	if err := s.repo.CreateSettings(ctx, settings); err != nil {
		return nil, fmt.Errorf("create default settings (user_id: %d): %w", userID, err)
	}

	return settings, nil
}

func (s *Service) GetSettings(ctx context.Context, telegramID int64) (*models.UserSettings, error) {
	user, err := s.repo.GetUserByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("get user (telegram_id: %d): %w", telegramID, err)
	}

	return s.settingsFor(ctx, user.ID)
}

func (s *Service) UpdateSettings(ctx context.Context, settings *models.UserSettings) error {
	return s.repo.UpdateSettings(ctx, settings)
}
