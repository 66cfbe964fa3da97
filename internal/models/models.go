package models

import (
	"errors"
	"time"
)

// ErrNotFound is returned by the repository when a requested row does not exist.
var ErrNotFound = errors.New("not found")

type User struct {
	ID         int64     `db:"id"`
	TelegramID int64     `db:"telegram_id"`
	Username   string    `db:"username"`
	CreatedAt  time.Time `db:"created_at"`

	// GoogleToken is the Classroom refresh token; nil means "not connected".
	GoogleToken *string `db:"google_token"`
}

func (u *User) Connected() bool {
	return u.GoogleToken != nil && *u.GoogleToken != ""
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func ParsePriority(s string) (Priority, bool) {
	switch Priority(s) {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return Priority(s), true
	}
	return "", false
}

// Deadline is one dated assignment, remote or manually created.
// ExternalID is globally unique and is the sole merge key during
// reconciliation; manual deadlines get a synthesized "manual_..." id.
type Deadline struct {
	ID         int64     `db:"id"`
	UserID     int64     `db:"user_id"`
	CourseName string    `db:"course_name"`
	Title      string    `db:"title"`
	DueDate    time.Time `db:"due_date"`
	Link       string    `db:"link"`
	ExternalID string    `db:"external_id"`
	Completed  bool      `db:"completed"`
	Priority   Priority  `db:"priority"`

	Reminder1Day   bool `db:"reminder_1day"`
	Reminder3Hours bool `db:"reminder_3hours"`
	Reminder1Hour  bool `db:"reminder_1hour"`
}

// Coursework is a remote assignment without a due date. It cannot be
// scheduled or reminded; the whole set is replaced on every sync.
type Coursework struct {
	ID         int64  `db:"id"`
	UserID     int64  `db:"user_id"`
	CourseName string `db:"course_name"`
	Title      string `db:"title"`
	Link       string `db:"link"`
	ExternalID string `db:"external_id"`
}

// UserSettings holds per-user toggles. A missing row means "all enabled";
// the row is materialized lazily on first reminder evaluation.
type UserSettings struct {
	ID               int64 `db:"id"`
	UserID           int64 `db:"user_id"`
	AutoSyncEnabled  bool  `db:"auto_sync_enabled"`
	AutoSyncInterval int   `db:"auto_sync_interval"`
	Remind1Day       bool  `db:"remind_1day"`
	Remind3Hours     bool  `db:"remind_3hours"`
	Remind1Hour      bool  `db:"remind_1hour"`
}

func DefaultSettings(userID int64) *UserSettings {
	return &UserSettings{
		UserID:           userID,
		AutoSyncEnabled:  true,
		AutoSyncInterval: 6,
		Remind1Day:       true,
		Remind3Hours:     true,
		Remind1Hour:      true,
	}
}

type ReminderThreshold string

const (
	Reminder1Day   ReminderThreshold = "1day"
	Reminder3Hours ReminderThreshold = "3hours"
	Reminder1Hour  ReminderThreshold = "1hour"
)

// PendingReminder is one notification intent produced by a reminder pass.
// The sent flag is already persisted by the time the intent is emitted.
type PendingReminder struct {
	ChatID    int64
	Deadline  *Deadline
	Threshold ReminderThreshold
}
