package repository

import (
	"fmt"

	"github.com/morywal/CalendarApp/internal/domain/model"
)

// ValidateTask checks the fields every store requires.
func ValidateTask(t model.Task) error {
	switch {
	case t.ID == "" || t.UserID == "":
		return fmt.Errorf("task: id and user are required: %w", ErrInvalid)
	case t.Title == "":
		return fmt.Errorf("task %s: title is required: %w", t.ID, ErrInvalid)
	case t.Priority < model.MinPriority || t.Priority > model.MaxPriority:
		return fmt.Errorf("task %s: priority %d out of range: %w", t.ID, t.Priority, ErrInvalid)
	case t.EstimatedMinutes < 0 || t.ActualMinutes < 0:
		return fmt.Errorf("task %s: negative duration: %w", t.ID, ErrInvalid)
	}
	switch t.Status {
	case model.TaskPending, model.TaskScheduled, model.TaskInProgress, model.TaskCompleted:
		return nil
	}
	return fmt.Errorf("task %s: unknown status %q: %w", t.ID, t.Status, ErrInvalid)
}

// ValidateCommitment checks the fields every store requires.
func ValidateCommitment(c model.FixedCommitment) error {
	switch {
	case c.ID == "" || c.UserID == "":
		return fmt.Errorf("commitment: id and user are required: %w", ErrInvalid)
	case c.Title == "":
		return fmt.Errorf("commitment %s: title is required: %w", c.ID, ErrInvalid)
	case c.Start.IsZero() || c.End.IsZero() || model.ClockOf(c.Start) == model.ClockOf(c.End):
		return fmt.Errorf("commitment %s: start and end must differ: %w", c.ID, ErrInvalid)
	case !c.Recurrence.Valid():
		return fmt.Errorf("commitment %s: unknown recurrence %q: %w", c.ID, c.Recurrence, ErrInvalid)
	case c.Priority < model.MinPriority || c.Priority > model.MaxPriority:
		return fmt.Errorf("commitment %s: priority %d out of range: %w", c.ID, c.Priority, ErrInvalid)
	}
	return nil
}

// ValidateBlock checks a scheduled block before insertion.
func ValidateBlock(b model.ScheduledBlock) error {
	if b.ID == "" || b.UserID == "" || b.TaskID == "" {
		return fmt.Errorf("block: id, user and task are required: %w", ErrInvalid)
	}
	if !b.End.After(b.Start) {
		return fmt.Errorf("block %s: end must be after start: %w", b.ID, ErrInvalid)
	}
	return nil
}
