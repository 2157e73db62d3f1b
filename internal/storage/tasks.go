package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"nozze/internal/core"
)

// TaskFilter selects tasks by completion. Nil Completed matches every task.
type TaskFilter struct {
	Completed *bool
}

const taskColumns = `id, wedding_id, title, description, due_date, priority, completed, completed_at`

func scanTask(s rowScanner) (core.Task, error) {
	var (
		t                core.Task
		due, completedAt sql.NullTime
	)
	err := s.Scan(&t.ID, &t.WeddingID, &t.Title, &t.Description, &due, &t.Priority, &t.Completed, &completedAt)
	t.DueDate = timePtr(due)
	t.CompletedAt = timePtr(completedAt)
	return t, err
}

func (q *Queries) CreateTask(ctx context.Context, t core.Task) (core.Task, error) {
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO tasks (wedding_id, title, description, due_date, priority, completed, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.WeddingID, t.Title, t.Description, nullTime(t.DueDate), string(t.Priority), t.Completed, nullTime(t.CompletedAt))
	if err != nil {
		return core.Task{}, fmt.Errorf("insert task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Task{}, fmt.Errorf("last insert id: %w", err)
	}
	return q.GetTask(ctx, id)
}

func (q *Queries) GetTask(ctx context.Context, id int64) (core.Task, error) {
	t, err := scanTask(q.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
	if err != nil {
		return core.Task{}, notFound(err, "task", id)
	}
	return t, nil
}

// ListTasks orders open tasks by due date, undated last.
func (q *Queries) ListTasks(ctx context.Context, weddingID int64, f TaskFilter) ([]core.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE wedding_id = ?`
	args := []any{weddingID}
	if f.Completed != nil {
		query += ` AND completed = ?`
		args = append(args, *f.Completed)
	}
	query += ` ORDER BY completed, due_date IS NULL, due_date, id`

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var out []core.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (q *Queries) UpdateTask(ctx context.Context, t core.Task) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE tasks SET title = ?, description = ?, due_date = ?, priority = ?
		WHERE id = ?`,
		t.Title, t.Description, nullTime(t.DueDate), string(t.Priority), t.ID)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return expectOne(res, "task", t.ID)
}

// ToggleTask flips the completion flag, stamping or clearing completed_at.
func (q *Queries) ToggleTask(ctx context.Context, id int64, now time.Time) (core.Task, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE tasks
		SET completed = NOT completed,
			completed_at = CASE WHEN completed THEN NULL ELSE ? END
		WHERE id = ?`, now.UTC(), id)
	if err != nil {
		return core.Task{}, fmt.Errorf("toggle task: %w", err)
	}
	if err := expectOne(res, "task", id); err != nil {
		return core.Task{}, err
	}
	return q.GetTask(ctx, id)
}

func (q *Queries) DeleteTask(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return expectOne(res, "task", id)
}
