package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkravchuk/classroom-deadline-bot/internal/models"
	"github.com/dkravchuk/classroom-deadline-bot/pkg/classroom"
)

func reminderFixture(t *testing.T) (*Service, *fakeRepo, *models.User) {
	t.Helper()
	repo := newFakeRepo()
	svc := NewService(repo, &fakeAuthorizer{}, &fakeProvider{})
	user := repo.addUser(100, strPtr("refresh-token"))
	return svc, repo, user
}

func addDeadline(t *testing.T, repo *fakeRepo, userID int64, due time.Time) *models.Deadline {
	t.Helper()
	deadline := &models.Deadline{
		UserID:     userID,
		CourseName: "Math",
		Title:      "Homework",
		DueDate:    due,
		ExternalID: "course1_work1",
		Priority:   models.PriorityMedium,
	}
	require.NoError(t, repo.CreateDeadline(context.Background(), deadline))
	return deadline
}

func TestCheckReminders_FiresInsideEachWindow(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		hoursUntil float64
		threshold  models.ReminderThreshold
	}{
		{"one day window", 24, models.Reminder1Day},
		{"one day lower bound", 20, models.Reminder1Day},
		{"one day upper bound", 28, models.Reminder1Day},
		{"three hour window", 3, models.Reminder3Hours},
		{"three hour lower bound", 2.5, models.Reminder3Hours},
		{"three hour upper bound", 3.5, models.Reminder3Hours},
		{"one hour window", 1, models.Reminder1Hour},
		{"one hour lower bound", 0.8, models.Reminder1Hour},
		{"one hour upper bound", 1.2, models.Reminder1Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, user := reminderFixture(t)
			addDeadline(t, repo, user.ID, now.Add(time.Duration(tt.hoursUntil*float64(time.Hour))))

			pending, err := svc.CheckReminders(context.Background(), now)
			require.NoError(t, err)
			require.Len(t, pending, 1)
			assert.Equal(t, tt.threshold, pending[0].Threshold)
			assert.Equal(t, user.TelegramID, pending[0].ChatID)
		})
	}
}

func TestCheckReminders_SilentOutsideWindows(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	for _, hoursUntil := range []float64{50, 28.01, 19.99, 3.51, 2.49, 1.21, 0.79, 0.5} {
		svc, repo, user := reminderFixture(t)
		addDeadline(t, repo, user.ID, now.Add(time.Duration(hoursUntil*float64(time.Hour))))

		pending, err := svc.CheckReminders(context.Background(), now)
		require.NoError(t, err)
		assert.Empty(t, pending, "no reminder expected at %.2f hours", hoursUntil)
	}
}

func TestCheckReminders_AtMostOncePerThreshold(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc, repo, user := reminderFixture(t)
	addDeadline(t, repo, user.ID, now.Add(24*time.Hour))

	pending, err := svc.CheckReminders(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	// The next polls inside the same window stay silent.
	for _, offset := range []time.Duration{30 * time.Minute, time.Hour, 2 * time.Hour} {
		pending, err = svc.CheckReminders(context.Background(), now.Add(offset))
		require.NoError(t, err)
		assert.Empty(t, pending)
	}
}

func TestCheckReminders_SingleFirePerPass(t *testing.T) {
	// Fresh deadline first observed inside the 3-hour window: the missed
	// 1-day window never fires, and one pass emits exactly one intent.
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc, repo, user := reminderFixture(t)
	addDeadline(t, repo, user.ID, now.Add(3*time.Hour))

	pending, err := svc.CheckReminders(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, models.Reminder3Hours, pending[0].Threshold)

	// Same deadline, same pass window: nothing more fires.
	pending, err = svc.CheckReminders(context.Background(), now)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestCheckReminders_SentThresholdSkippedLaterOnesStillFire(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc, repo, user := reminderFixture(t)
	deadline := addDeadline(t, repo, user.ID, now.Add(24*time.Hour))

	pending, err := svc.CheckReminders(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, models.Reminder1Day, pending[0].Threshold)

	// 21 hours later the deadline is 3 hours away.
	pending, err = svc.CheckReminders(context.Background(), now.Add(21*time.Hour))
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, models.Reminder3Hours, pending[0].Threshold)

	// And finally the 1-hour threshold.
	pending, err = svc.CheckReminders(context.Background(), now.Add(23*time.Hour))
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, models.Reminder1Hour, pending[0].Threshold)

	assert.True(t, deadline.Reminder1Day)
	assert.True(t, deadline.Reminder3Hours)
	assert.True(t, deadline.Reminder1Hour)
}

func TestCheckReminders_CompletedAndPastDeadlinesIgnored(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc, repo, user := reminderFixture(t)

	completed := addDeadline(t, repo, user.ID, now.Add(24*time.Hour))
	completed.Completed = true

	past := &models.Deadline{
		UserID:     user.ID,
		CourseName: "Math",
		Title:      "Missed",
		DueDate:    now.Add(-time.Hour),
		ExternalID: "course1_work2",
	}
	require.NoError(t, repo.CreateDeadline(context.Background(), past))

	pending, err := svc.CheckReminders(context.Background(), now)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestCheckReminders_DisabledThresholdSkipped(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc, repo, user := reminderFixture(t)
	addDeadline(t, repo, user.ID, now.Add(24*time.Hour))

	settings := models.DefaultSettings(user.ID)
	settings.Remind1Day = false
	require.NoError(t, repo.CreateSettings(context.Background(), settings))

	pending, err := svc.CheckReminders(context.Background(), now)
	require.NoError(t, err)
	assert.Empty(t, pending)

	// A disabled threshold is skipped, not consumed: the 3-hour one fires.
	pending, err = svc.CheckReminders(context.Background(), now.Add(21*time.Hour))
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, models.Reminder3Hours, pending[0].Threshold)
}

func TestCheckReminders_MaterializesDefaultSettings(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc, repo, user := reminderFixture(t)
	addDeadline(t, repo, user.ID, now.Add(24*time.Hour))

	_, err := repo.GetSettings(context.Background(), user.ID)
	require.ErrorIs(t, err, models.ErrNotFound)

	_, err = svc.CheckReminders(context.Background(), now)
	require.NoError(t, err)

	settings, err := repo.GetSettings(context.Background(), user.ID)
	require.NoError(t, err)
	assert.True(t, settings.Remind1Day)
	assert.True(t, settings.Remind3Hours)
	assert.True(t, settings.Remind1Hour)
	assert.True(t, settings.AutoSyncEnabled)
}

func TestCheckReminders_OrphanedDeadlineSkipped(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc, repo, user := reminderFixture(t)
	addDeadline(t, repo, user.ID, now.Add(24*time.Hour))
	delete(repo.users, user.ID)

	pending, err := svc.CheckReminders(context.Background(), now)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestCheckReminders_PersistFailureAborts(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc, repo, user := reminderFixture(t)
	deadline := addDeadline(t, repo, user.ID, now.Add(24*time.Hour))
	repo.setReminderErr = errors.New("db gone")

	pending, err := svc.CheckReminders(context.Background(), now)
	require.Error(t, err)
	assert.Empty(t, pending, "intent must not be emitted when the flag was not persisted")
	assert.False(t, deadline.Reminder1Day)
}

func TestCheckReminders_FlagResetAfterDueDateChangeReArms(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc, _, user := reminderFixture(t)

	due := now.Add(24 * time.Hour)
	dated := []classroom.Assignment{
		{CourseName: "Math", Title: "Homework", DueDate: due, ExternalID: "course1_work1"},
	}
	_, _, err := svc.Reconcile(ctx, user.ID, dated, nil)
	require.NoError(t, err)

	pending, err := svc.CheckReminders(ctx, now)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	// The due date moved a week out; the update resets the sent flags.
	dated[0].DueDate = due.Add(7 * 24 * time.Hour)
	_, _, err = svc.Reconcile(ctx, user.ID, dated, nil)
	require.NoError(t, err)

	// Approaching the new due date fires the 1-day reminder again.
	pending, err = svc.CheckReminders(ctx, dated[0].DueDate.Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, models.Reminder1Day, pending[0].Threshold)
}

func TestSyncAndRemind_EndToEnd(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	repo := newFakeRepo()
	user := repo.addUser(100, strPtr("refresh-token"))

	provider := &fakeProvider{result: &classroom.FetchResult{
		Dated: []classroom.Assignment{
			{CourseName: "Math", Title: "Homework", DueDate: now.Add(21 * time.Hour), ExternalID: "ext_1"},
		},
		Undated: []classroom.UndatedAssignment{
			{CourseName: "Math", Title: "Reading", ExternalID: "ext_2"},
		},
		CourseNames: []string{"Math"},
	}}
	svc := NewService(repo, &fakeAuthorizer{}, provider)

	created, updated, courses, err := svc.SyncUser(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 1, created)
	assert.Equal(t, 0, updated)
	assert.Equal(t, []string{"Math"}, courses)

	// 21 hours out is inside the 1-day window.
	pending, err := svc.CheckReminders(ctx, now)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, models.Reminder1Day, pending[0].Threshold)

	// Later fetch: the item slipped to 2.9 hours away and the reading task
	// is gone upstream.
	provider.result = &classroom.FetchResult{
		Dated: []classroom.Assignment{
			{CourseName: "Math", Title: "Homework", DueDate: now.Add(21 * time.Hour), ExternalID: "ext_1"},
		},
		CourseNames: []string{"Math"},
	}
	created, updated, _, err = svc.SyncUser(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 0, created)
	assert.Equal(t, 1, updated)

	work, err := repo.ListCourseCoursework(ctx, user.ID, "Math")
	require.NoError(t, err)
	assert.Empty(t, work)

	// The update reset the flags; at 2.9 hours before due only the 3-hour
	// window matches and fires once.
	checkAt := now.Add(21*time.Hour - time.Duration(2.9*float64(time.Hour)))
	pending, err = svc.CheckReminders(ctx, checkAt)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, models.Reminder3Hours, pending[0].Threshold)

	pending, err = svc.CheckReminders(ctx, checkAt)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
