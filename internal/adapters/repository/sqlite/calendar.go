package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/morywal/CalendarApp/internal/adapters/repository"
	"github.com/morywal/CalendarApp/internal/domain/model"
	"github.com/morywal/CalendarApp/pkg/metrics"
)

// CreateCommitment implements repository.CommitmentStore.
func (s *Store) CreateCommitment(ctx context.Context, c model.FixedCommitment) error {
	if err := repository.ValidateCommitment(c); err != nil {
		return err
	}
	rec := c.Recurrence
	if rec == "" {
		rec = model.RecurrenceNone
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO commitments(id, user_id, title, description, start_at, end_at, recurrence, recurrence_end, priority, category, color)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.Title, c.Description, formatTime(c.Start), formatTime(c.End),
		string(rec), formatTimePtr(c.RecurrenceEnd), c.Priority, c.Category, c.Color)
	return conflict(err, "commitment "+c.ID)
}

// ListCommitments implements repository.CommitmentStore.
func (s *Store) ListCommitments(ctx context.Context, userID string) ([]model.FixedCommitment, error) {
	defer observeQuery(time.Now())
	rows, err := s.db.QueryContext(ctx, `SELECT id, user_id, title, description, start_at, end_at, recurrence, recurrence_end, priority, category, color
FROM commitments WHERE user_id = ? ORDER BY seq`, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []model.FixedCommitment
	for rows.Next() {
		var (
			c            model.FixedCommitment
			start, end   string
			rec          string
			recurrenceTo sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.UserID, &c.Title, &c.Description, &start, &end,
			&rec, &recurrenceTo, &c.Priority, &c.Category, &c.Color); err != nil {
			return nil, err
		}
		c.Recurrence = model.Recurrence(rec)
		if c.Start, err = parseTime(start); err != nil {
			return nil, fmt.Errorf("commitment %s start: %w", c.ID, err)
		}
		if c.End, err = parseTime(end); err != nil {
			return nil, fmt.Errorf("commitment %s end: %w", c.ID, err)
		}
		if c.RecurrenceEnd, err = parseTimePtr(recurrenceTo); err != nil {
			return nil, fmt.Errorf("commitment %s recurrence end: %w", c.ID, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteBlocks implements repository.BlockStore.
func (s *Store) DeleteBlocks(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM scheduled_blocks WHERE user_id = ?`, userID)
	return err
}

// InsertBlocks implements repository.BlockStore.
func (s *Store) InsertBlocks(ctx context.Context, blocks []model.ScheduledBlock) error {
	for _, b := range blocks {
		if err := repository.ValidateBlock(b); err != nil {
			return err
		}
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return insertBlocks(ctx, tx, blocks)
	})
}

func insertBlocks(ctx context.Context, tx *sql.Tx, blocks []model.ScheduledBlock) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO scheduled_blocks(id, user_id, task_id, start_at, end_at, status) VALUES(?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()
	for _, b := range blocks {
		if _, err := stmt.ExecContext(ctx, b.ID, b.UserID, b.TaskID, formatTime(b.Start), formatTime(b.End), string(b.Status)); err != nil {
			return conflict(err, "block "+b.ID)
		}
	}
	return nil
}

// ListBlocks implements repository.BlockStore. Blocks are ordered by start.
func (s *Store) ListBlocks(ctx context.Context, userID string) ([]model.ScheduledBlock, error) {
	defer observeQuery(time.Now())
	rows, err := s.db.QueryContext(ctx, `SELECT id, user_id, task_id, start_at, end_at, status FROM scheduled_blocks WHERE user_id = ?`, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []model.ScheduledBlock
	for rows.Next() {
		var (
			b          model.ScheduledBlock
			start, end string
			status     string
		)
		if err := rows.Scan(&b.ID, &b.UserID, &b.TaskID, &start, &end, &status); err != nil {
			return nil, err
		}
		b.Status = model.BlockStatus(status)
		if b.Start, err = parseTime(start); err != nil {
			return nil, err
		}
		if b.End, err = parseTime(end); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Text order is not time order across zone offsets.
	sortBlocks(out)
	return out, nil
}

// GetPreferences implements repository.PreferenceStore.
func (s *Store) GetPreferences(ctx context.Context, userID string) (model.Preferences, error) {
	var (
		p          model.Preferences
		start, end string
	)
	err := s.db.QueryRowContext(ctx, `SELECT active_start, active_end, min_block_minutes, preferred_task_minutes FROM preferences WHERE user_id = ?`, userID).
		Scan(&start, &end, &p.MinBlockMinutes, &p.PreferredTaskMinutes)
	if errors.Is(err, sql.ErrNoRows) {
		return s.defaults, nil
	}
	if err != nil {
		return model.Preferences{}, err
	}
	if p.ActiveStart, err = model.ParseClock(start); err != nil {
		return model.Preferences{}, err
	}
	if p.ActiveEnd, err = model.ParseClock(end); err != nil {
		return model.Preferences{}, err
	}
	return p, nil
}

// PutPreferences implements repository.PreferenceStore.
func (s *Store) PutPreferences(ctx context.Context, userID string, p model.Preferences) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%w: %w", repository.ErrInvalid, err)
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO preferences(user_id, active_start, active_end, min_block_minutes, preferred_task_minutes)
VALUES(?, ?, ?, ?, ?)
ON CONFLICT(user_id) DO UPDATE SET
  active_start = excluded.active_start,
  active_end = excluded.active_end,
  min_block_minutes = excluded.min_block_minutes,
  preferred_task_minutes = excluded.preferred_task_minutes`,
		userID, p.ActiveStart.String(), p.ActiveEnd.String(), p.MinBlockMinutes, p.PreferredTaskMinutes)
	return err
}

// CommitSchedule implements repository.Store in a single transaction.
func (s *Store) CommitSchedule(ctx context.Context, userID string, blocks []model.ScheduledBlock, scheduledTaskIDs []string) error {
	start := time.Now()
	for _, b := range blocks {
		if err := repository.ValidateBlock(b); err != nil {
			return err
		}
		if b.UserID != userID {
			return fmt.Errorf("block %s belongs to %s: %w", b.ID, b.UserID, repository.ErrInvalid)
		}
	}
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM scheduled_blocks WHERE user_id = ?`, userID); err != nil {
			return err
		}
		if err := insertBlocks(ctx, tx, blocks); err != nil {
			return err
		}
		return markScheduled(ctx, tx, userID, scheduledTaskIDs)
	})
	if err != nil {
		return err
	}
	metrics.RecordRepositoryCommitLatency(float64(time.Since(start).Microseconds()) / 1000)
	return nil
}

// ListUsers implements repository.Store.
func (s *Store) ListUsers(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id FROM tasks
UNION SELECT user_id FROM commitments
UNION SELECT user_id FROM preferences
ORDER BY 1`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var users []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
