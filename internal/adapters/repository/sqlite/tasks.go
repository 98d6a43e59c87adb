package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/morywal/CalendarApp/internal/adapters/repository"
	"github.com/morywal/CalendarApp/internal/domain/model"
)

const taskColumns = `id, user_id, title, description, deadline, estimated_minutes, actual_minutes, priority, status, category`

// CreateTask implements repository.TaskStore.
func (s *Store) CreateTask(ctx context.Context, t model.Task) error {
	if err := repository.ValidateTask(t); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO tasks(`+taskColumns+`) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.Title, t.Description, formatTimePtr(t.Deadline),
		t.EstimatedMinutes, t.ActualMinutes, t.Priority, string(t.Status), t.Category)
	return conflict(err, "task "+t.ID)
}

// ListTasks implements repository.TaskStore.
func (s *Store) ListTasks(ctx context.Context, userID string) ([]model.Task, error) {
	return s.queryTasks(ctx, `WHERE user_id = ?`, userID)
}

// ListPending implements repository.TaskStore.
func (s *Store) ListPending(ctx context.Context, userID string) ([]model.Task, error) {
	return s.queryTasks(ctx, `WHERE user_id = ? AND status = ?`, userID, string(model.TaskPending))
}

// ListCompletedWithActualDuration implements repository.TaskStore.
func (s *Store) ListCompletedWithActualDuration(ctx context.Context, userID string) ([]model.Task, error) {
	return s.queryTasks(ctx, `WHERE user_id = ? AND status = ? AND actual_minutes > 0`, userID, string(model.TaskCompleted))
}

func (s *Store) queryTasks(ctx context.Context, where string, args ...any) ([]model.Task, error) {
	defer observeQuery(time.Now())
	rows, err := s.db.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks `+where+` ORDER BY seq`, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []model.Task
	for rows.Next() {
		var (
			t        model.Task
			status   string
			deadline sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &deadline,
			&t.EstimatedMinutes, &t.ActualMinutes, &t.Priority, &status, &t.Category); err != nil {
			return nil, err
		}
		t.Status = model.TaskStatus(status)
		if t.Deadline, err = parseTimePtr(deadline); err != nil {
			return nil, fmt.Errorf("task %s deadline: %w", t.ID, err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// MarkScheduled implements repository.TaskStore.
func (s *Store) MarkScheduled(ctx context.Context, userID string, taskIDs []string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return markScheduled(ctx, tx, userID, taskIDs)
	})
}

func markScheduled(ctx context.Context, tx *sql.Tx, userID string, taskIDs []string) error {
	for _, id := range taskIDs {
		var one int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM tasks WHERE user_id = ? AND id = ?`, userID, id).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("task %s: %w", id, repository.ErrNotFound)
		}
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE tasks SET status = ? WHERE user_id = ? AND id = ? AND status = ?`,
			string(model.TaskScheduled), userID, id, string(model.TaskPending)); err != nil {
			return err
		}
	}
	return nil
}
