package repository

import (
	"context"
	"fmt"

	"github.com/dkravchuk/classroom-deadline-bot/internal/models"
)

// ReplaceUserCoursework deletes the user's entire undated set and inserts the
// given items. Coursework carries no user-owned state, so full replacement is
// safe and avoids orphans when assignments disappear upstream or gain a due
// date and move to the dated set.
func (r *Postgres) ReplaceUserCoursework(ctx context.Context, userID int64, items []*models.Coursework) error {
	del := r.psql.Delete("coursework").
		Where("user_id = ?", userID)

	sql, args, err := del.ToSql()
	if err != nil {
		return fmt.Errorf("build SQL query (user_id: %d): %w", userID, err)
	}

	if _, err = r.ExecContext(ctx, sql, args...); err != nil {
		return fmt.Errorf("delete user coursework (user_id: %d): %w", userID, err)
	}

	if len(items) == 0 {
		return nil
	}

	ins := r.psql.Insert("coursework").
		Columns("user_id", "course_name", "title", "link", "external_id")
	for _, item := range items {
		ins = ins.Values(userID, item.CourseName, item.Title, item.Link, item.ExternalID)
	}

	sql, args, err = ins.ToSql()
	if err != nil {
		return fmt.Errorf("build SQL query (user_id: %d): %w", userID, err)
	}

	if _, err = r.ExecContext(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert user coursework (user_id: %d, items: %d): %w", userID, len(items), err)
	}
	return nil
}

func (r *Postgres) ListCourseCoursework(ctx context.Context, userID int64, courseName string) ([]*models.Coursework, error) {
	query := `
		SELECT id, user_id, course_name, title, link, external_id
		FROM coursework
		WHERE user_id = $1 AND course_name = $2
		ORDER BY title ASC
	`

	var items []*models.Coursework
	if err := r.SelectContext(ctx, &items, query, userID, courseName); err != nil {
		return nil, fmt.Errorf("query course coursework (user_id: %d, course: %s): %w", userID, courseName, err)
	}

	return items, nil
}
