package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dkravchuk/classroom-deadline-bot/internal/models"
)

const deadlineColumns = `id, user_id, course_name, title, due_date, link, external_id,
	       completed, priority, reminder_1day, reminder_3hours, reminder_1hour`

// UpsertDeadlineByExternalID inserts the deadline or, when its external_id is
// already present, overwrites due_date/title/link and clears the three
// reminder-sent flags. completed, priority and course_name survive the update.
func (r *Postgres) UpsertDeadlineByExternalID(ctx context.Context, d *models.Deadline) (bool, error) {
	query := `
		INSERT INTO deadlines (user_id, course_name, title, due_date, link, external_id,
		                       completed, priority, reminder_1day, reminder_3hours, reminder_1hour)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7, FALSE, FALSE, FALSE)
		ON CONFLICT (external_id) DO UPDATE SET
			due_date = EXCLUDED.due_date,
			title = EXCLUDED.title,
			link = EXCLUDED.link,
			reminder_1day = FALSE,
			reminder_3hours = FALSE,
			reminder_1hour = FALSE
		RETURNING id, (xmax = 0)
	`

	var created bool
	err := r.QueryRowxContext(ctx, query,
		d.UserID, d.CourseName, d.Title, d.DueDate, d.Link, d.ExternalID, d.Priority,
	).Scan(&d.ID, &created)
	if err != nil {
		return false, fmt.Errorf("upsert deadline (external_id: %s): %w", d.ExternalID, err)
	}

	return created, nil
}

func (r *Postgres) CreateDeadline(ctx context.Context, d *models.Deadline) error {
	query := r.psql.Insert("deadlines").
		Columns("user_id", "course_name", "title", "due_date", "link", "external_id", "completed", "priority").
		Values(d.UserID, d.CourseName, d.Title, d.DueDate, d.Link, d.ExternalID, d.Completed, d.Priority).
		Suffix("RETURNING id")

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build SQL query (external_id: %s): %w", d.ExternalID, err)
	}

	if err := r.QueryRowxContext(ctx, sql, args...).Scan(&d.ID); err != nil {
		return fmt.Errorf("create deadline (user_id: %d, external_id: %s): %w", d.UserID, d.ExternalID, err)
	}
	return nil
}

func (r *Postgres) GetDeadline(ctx context.Context, id int64) (*models.Deadline, error) {
	query := `SELECT ` + deadlineColumns + ` FROM deadlines WHERE id = $1`

	var d models.Deadline
	if err := r.GetContext(ctx, &d, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("get deadline (id: %d): %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("get deadline (id: %d): %w", id, err)
	}

	return &d, nil
}

func (r *Postgres) ListOpenDeadlines(ctx context.Context, now time.Time) ([]*models.Deadline, error) {
	query := `
		SELECT ` + deadlineColumns + `
		FROM deadlines
		WHERE completed = FALSE AND due_date > $1
		ORDER BY due_date ASC
	`

	var deadlines []*models.Deadline
	if err := r.SelectContext(ctx, &deadlines, query, now); err != nil {
		return nil, fmt.Errorf("query open deadlines (now: %s): %w", now.Format(time.RFC3339), err)
	}

	return deadlines, nil
}

// ListUserDeadlines returns the user's deadlines, optionally bounded by due
// date. dueAfter selects active items ascending, dueBefore overdue descending.
func (r *Postgres) ListUserDeadlines(ctx context.Context, userID int64, dueAfter, dueBefore *time.Time) ([]*models.Deadline, error) {
	query := r.psql.Select(deadlineColumns).
		From("deadlines").
		Where("user_id = ?", userID)

	order := "due_date ASC"
	if dueAfter != nil {
		query = query.Where("due_date >= ?", *dueAfter)
	}
	if dueBefore != nil {
		query = query.Where("due_date < ?", *dueBefore)
		order = "due_date DESC"
	}
	query = query.OrderBy(order)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build SQL query (user_id: %d): %w", userID, err)
	}

	var deadlines []*models.Deadline
	if err := r.SelectContext(ctx, &deadlines, sql, args...); err != nil {
		return nil, fmt.Errorf("query user deadlines (user_id: %d): %w", userID, err)
	}

	return deadlines, nil
}

func (r *Postgres) ListCourseDeadlines(ctx context.Context, userID int64, courseName string) ([]*models.Deadline, error) {
	query := `
		SELECT ` + deadlineColumns + `
		FROM deadlines
		WHERE user_id = $1 AND course_name = $2
		ORDER BY due_date ASC
	`

	var deadlines []*models.Deadline
	if err := r.SelectContext(ctx, &deadlines, query, userID, courseName); err != nil {
		return nil, fmt.Errorf("query course deadlines (user_id: %d, course: %s): %w", userID, courseName, err)
	}

	return deadlines, nil
}

func (r *Postgres) ListCourseNames(ctx context.Context, userID int64) ([]string, error) {
	query := `
		SELECT DISTINCT course_name FROM (
			SELECT course_name FROM deadlines WHERE user_id = $1
			UNION
			SELECT course_name FROM coursework WHERE user_id = $1
		) AS names
		ORDER BY course_name ASC
	`

	var names []string
	if err := r.SelectContext(ctx, &names, query, userID); err != nil {
		return nil, fmt.Errorf("query course names (user_id: %d): %w", userID, err)
	}

	return names, nil
}

func (r *Postgres) SetReminderSent(ctx context.Context, deadlineID int64, threshold models.ReminderThreshold) error {
	var column string
	switch threshold {
	case models.Reminder1Day:
		column = "reminder_1day"
	case models.Reminder3Hours:
		column = "reminder_3hours"
	case models.Reminder1Hour:
		column = "reminder_1hour"
	default:
		return fmt.Errorf("unknown reminder threshold: %q", threshold)
	}

	query := r.psql.Update("deadlines").
		Set(column, true).
		Where("id = ?", deadlineID)

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build SQL query (deadline_id: %d): %w", deadlineID, err)
	}

	_, err = r.ExecContext(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("set reminder sent (deadline_id: %d, threshold: %s): %w", deadlineID, threshold, err)
	}
	return nil
}

func (r *Postgres) SetDeadlineCompleted(ctx context.Context, id int64, completed bool) error {
	query := r.psql.Update("deadlines").
		Set("completed", completed).
		Where("id = ?", id)

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build SQL query (deadline_id: %d): %w", id, err)
	}

	_, err = r.ExecContext(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("set deadline completed (deadline_id: %d, completed: %t): %w", id, completed, err)
	}
	return nil
}

func (r *Postgres) SetDeadlinePriority(ctx context.Context, id int64, priority models.Priority) error {
	query := r.psql.Update("deadlines").
		Set("priority", priority).
		Where("id = ?", id)

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build SQL query (deadline_id: %d): %w", id, err)
	}

	_, err = r.ExecContext(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("set deadline priority (deadline_id: %d, priority: %s): %w", id, priority, err)
	}
	return nil
}

func (r *Postgres) DeleteUserDeadlines(ctx context.Context, userID int64) error {
	query := r.psql.Delete("deadlines").
		Where("user_id = ?", userID)

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build SQL query (user_id: %d): %w", userID, err)
	}

	_, err = r.ExecContext(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete user deadlines (user_id: %d): %w", userID, err)
	}
	return nil
}
