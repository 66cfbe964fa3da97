package service

import (
	"context"
	"sort"
	"time"

	"github.com/dkravchuk/classroom-deadline-bot/internal/models"
	"github.com/dkravchuk/classroom-deadline-bot/pkg/classroom"
)

// fakeRepo is an in-memory Repository for service tests.
type fakeRepo struct {
	users      map[int64]*models.User
	deadlines  map[int64]*models.Deadline
	coursework map[int64][]*models.Coursework
	settings   map[int64]*models.UserSettings

	nextID int64

	// Error injection.
	upsertErr      error
	setReminderErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:      make(map[int64]*models.User),
		deadlines:  make(map[int64]*models.Deadline),
		coursework: make(map[int64][]*models.Coursework),
		settings:   make(map[int64]*models.UserSettings),
	}
}

func (f *fakeRepo) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeRepo) addUser(telegramID int64, token *string) *models.User {
	user := &models.User{
		ID:          f.id(),
		TelegramID:  telegramID,
		Username:    "student",
		CreatedAt:   time.Now().UTC(),
		GoogleToken: token,
	}
	f.users[user.ID] = user
	return user
}

func (f *fakeRepo) CreateUser(_ context.Context, user *models.User) error {
	user.ID = f.id()
	f.users[user.ID] = user
	return nil
}

func (f *fakeRepo) GetUserByTelegramID(_ context.Context, telegramID int64) (*models.User, error) {
	for _, user := range f.users {
		if user.TelegramID == telegramID {
			return user, nil
		}
	}
	return nil, models.ErrNotFound
}

func (f *fakeRepo) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return user, nil
}

func (f *fakeRepo) UpdateGoogleToken(_ context.Context, userID int64, token *string) error {
	user, ok := f.users[userID]
	if !ok {
		return models.ErrNotFound
	}
	user.GoogleToken = token
	return nil
}

func (f *fakeRepo) GetConnectedUsers(_ context.Context) ([]*models.User, error) {
	var connected []*models.User
	for _, user := range f.users {
		if user.Connected() {
			connected = append(connected, user)
		}
	}
	sort.Slice(connected, func(i, j int) bool { return connected[i].ID < connected[j].ID })
	return connected, nil
}

func (f *fakeRepo) UpsertDeadlineByExternalID(_ context.Context, d *models.Deadline) (bool, error) {
	if f.upsertErr != nil {
		return false, f.upsertErr
	}

	for _, existing := range f.deadlines {
		if existing.ExternalID == d.ExternalID {
			existing.DueDate = d.DueDate
			existing.Title = d.Title
			existing.Link = d.Link
			existing.Reminder1Day = false
			existing.Reminder3Hours = false
			existing.Reminder1Hour = false
			return false, nil
		}
	}

	d.ID = f.id()
	f.deadlines[d.ID] = d
	return true, nil
}

func (f *fakeRepo) CreateDeadline(_ context.Context, d *models.Deadline) error {
	d.ID = f.id()
	f.deadlines[d.ID] = d
	return nil
}

func (f *fakeRepo) GetDeadline(_ context.Context, id int64) (*models.Deadline, error) {
	d, ok := f.deadlines[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return d, nil
}

func (f *fakeRepo) ListOpenDeadlines(_ context.Context, now time.Time) ([]*models.Deadline, error) {
	var open []*models.Deadline
	for _, d := range f.deadlines {
		if !d.Completed && d.DueDate.After(now) {
			open = append(open, d)
		}
	}
	sort.Slice(open, func(i, j int) bool { return open[i].DueDate.Before(open[j].DueDate) })
	return open, nil
}

func (f *fakeRepo) ListUserDeadlines(_ context.Context, userID int64, dueAfter, dueBefore *time.Time) ([]*models.Deadline, error) {
	var result []*models.Deadline
	for _, d := range f.deadlines {
		if d.UserID != userID || d.Completed {
			continue
		}
		if dueAfter != nil && !d.DueDate.After(*dueAfter) {
			continue
		}
		if dueBefore != nil && !d.DueDate.Before(*dueBefore) {
			continue
		}
		result = append(result, d)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].DueDate.Before(result[j].DueDate) })
	return result, nil
}

func (f *fakeRepo) ListCourseDeadlines(_ context.Context, userID int64, courseName string) ([]*models.Deadline, error) {
	var result []*models.Deadline
	for _, d := range f.deadlines {
		if d.UserID == userID && d.CourseName == courseName {
			result = append(result, d)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].DueDate.Before(result[j].DueDate) })
	return result, nil
}

func (f *fakeRepo) ListCourseNames(_ context.Context, userID int64) ([]string, error) {
	seen := make(map[string]struct{})
	for _, d := range f.deadlines {
		if d.UserID == userID {
			seen[d.CourseName] = struct{}{}
		}
	}
	for _, work := range f.coursework[userID] {
		seen[work.CourseName] = struct{}{}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (f *fakeRepo) SetReminderSent(_ context.Context, deadlineID int64, threshold models.ReminderThreshold) error {
	if f.setReminderErr != nil {
		return f.setReminderErr
	}

	d, ok := f.deadlines[deadlineID]
	if !ok {
		return models.ErrNotFound
	}
	switch threshold {
	case models.Reminder1Day:
		d.Reminder1Day = true
	case models.Reminder3Hours:
		d.Reminder3Hours = true
	case models.Reminder1Hour:
		d.Reminder1Hour = true
	}
	return nil
}

func (f *fakeRepo) SetDeadlineCompleted(_ context.Context, id int64, completed bool) error {
	d, ok := f.deadlines[id]
	if !ok {
		return models.ErrNotFound
	}
	d.Completed = completed
	return nil
}

func (f *fakeRepo) SetDeadlinePriority(_ context.Context, id int64, priority models.Priority) error {
	d, ok := f.deadlines[id]
	if !ok {
		return models.ErrNotFound
	}
	d.Priority = priority
	return nil
}

func (f *fakeRepo) DeleteUserDeadlines(_ context.Context, userID int64) error {
	for id, d := range f.deadlines {
		if d.UserID == userID {
			delete(f.deadlines, id)
		}
	}
	return nil
}

func (f *fakeRepo) ReplaceUserCoursework(_ context.Context, userID int64, items []*models.Coursework) error {
	for _, item := range items {
		item.ID = f.id()
	}
	f.coursework[userID] = items
	return nil
}

func (f *fakeRepo) ListCourseCoursework(_ context.Context, userID int64, courseName string) ([]*models.Coursework, error) {
	var result []*models.Coursework
	for _, work := range f.coursework[userID] {
		if work.CourseName == courseName {
			result = append(result, work)
		}
	}
	return result, nil
}

func (f *fakeRepo) GetSettings(_ context.Context, userID int64) (*models.UserSettings, error) {
	settings, ok := f.settings[userID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return settings, nil
}

func (f *fakeRepo) CreateSettings(_ context.Context, s *models.UserSettings) error {
	s.ID = f.id()
	f.settings[s.UserID] = s
	return nil
}

func (f *fakeRepo) UpdateSettings(_ context.Context, s *models.UserSettings) error {
	f.settings[s.UserID] = s
	return nil
}

func (f *fakeRepo) RunInTx(_ context.Context, fn func(models.Repository) error) error {
	return fn(f)
}

func (f *fakeRepo) userDeadlines(userID int64) []*models.Deadline {
	var result []*models.Deadline
	for _, d := range f.deadlines {
		if d.UserID == userID {
			result = append(result, d)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ExternalID < result[j].ExternalID })
	return result
}

func (f *fakeRepo) findByExternalID(externalID string) *models.Deadline {
	for _, d := range f.deadlines {
		if d.ExternalID == externalID {
			return d
		}
	}
	return nil
}

// fakeProvider returns a canned fetch result or error.
type fakeProvider struct {
	result *classroom.FetchResult
	err    error

	calls int
}

func (p *fakeProvider) Fetch(_ context.Context, _ string) (*classroom.FetchResult, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return p.result, nil
}

// fakeAuthorizer is only exercised by the auth flow tests.
type fakeAuthorizer struct {
	token       string
	exchangeErr error
}

func (a *fakeAuthorizer) GetAuthURL(state string) string {
	return "https://accounts.google.test/auth?state=" + state
}

func (a *fakeAuthorizer) ExchangeCode(_ context.Context, _ string) (string, error) {
	if a.exchangeErr != nil {
		return "", a.exchangeErr
	}
	return a.token, nil
}

func strPtr(s string) *string {
	return &s
}
