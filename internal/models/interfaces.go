package models

import (
	"context"
	"time"
)

type Repository interface {
	CreateUser(ctx context.Context, user *User) error
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*User, error)
	GetUserByID(ctx context.Context, id int64) (*User, error)
	UpdateGoogleToken(ctx context.Context, userID int64, token *string) error
	GetConnectedUsers(ctx context.Context) ([]*User, error)

	// UpsertDeadlineByExternalID inserts a deadline or, when external_id
	// already exists, overwrites due_date/title/link and clears all three
	// reminder-sent flags, leaving completed/priority untouched. Returns
	// true when a new row was created.
	UpsertDeadlineByExternalID(ctx context.Context, d *Deadline) (bool, error)
	CreateDeadline(ctx context.Context, d *Deadline) error
	GetDeadline(ctx context.Context, id int64) (*Deadline, error)
	ListOpenDeadlines(ctx context.Context, now time.Time) ([]*Deadline, error)
	ListUserDeadlines(ctx context.Context, userID int64, dueAfter *time.Time, dueBefore *time.Time) ([]*Deadline, error)
	ListCourseDeadlines(ctx context.Context, userID int64, courseName string) ([]*Deadline, error)
	ListCourseNames(ctx context.Context, userID int64) ([]string, error)
	SetReminderSent(ctx context.Context, deadlineID int64, threshold ReminderThreshold) error
	SetDeadlineCompleted(ctx context.Context, id int64, completed bool) error
	SetDeadlinePriority(ctx context.Context, id int64, priority Priority) error
	DeleteUserDeadlines(ctx context.Context, userID int64) error

	// ReplaceUserCoursework deletes every coursework row owned by the user
	// and inserts the given set.
	ReplaceUserCoursework(ctx context.Context, userID int64, items []*Coursework) error
	ListCourseCoursework(ctx context.Context, userID int64, courseName string) ([]*Coursework, error)

	GetSettings(ctx context.Context, userID int64) (*UserSettings, error)
	CreateSettings(ctx context.Context, s *UserSettings) error
	UpdateSettings(ctx context.Context, s *UserSettings) error

	RunInTx(ctx context.Context, fn func(Repository) error) error
}
