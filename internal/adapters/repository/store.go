// Package repository defines the planner's storage contracts and an
// in-memory implementation.
package repository

import (
	"context"

	"github.com/morywal/CalendarApp/internal/domain/model"
)

// TaskStore reads and writes tasks.
type TaskStore interface {
	CreateTask(ctx context.Context, t model.Task) error
	ListPending(ctx context.Context, userID string) ([]model.Task, error)
	ListTasks(ctx context.Context, userID string) ([]model.Task, error)
	// MarkScheduled flips pending tasks to scheduled. Unknown IDs are ErrNotFound.
	MarkScheduled(ctx context.Context, userID string, taskIDs []string) error
	// ListCompletedWithActualDuration feeds the duration estimator.
	ListCompletedWithActualDuration(ctx context.Context, userID string) ([]model.Task, error)
}

// CommitmentStore reads and writes fixed commitments.
type CommitmentStore interface {
	CreateCommitment(ctx context.Context, c model.FixedCommitment) error
	ListCommitments(ctx context.Context, userID string) ([]model.FixedCommitment, error)
}

// BlockStore reads and writes scheduled blocks.
type BlockStore interface {
	DeleteBlocks(ctx context.Context, userID string) error
	InsertBlocks(ctx context.Context, blocks []model.ScheduledBlock) error
	ListBlocks(ctx context.Context, userID string) ([]model.ScheduledBlock, error)
}

// PreferenceStore reads and writes per-user preferences.
type PreferenceStore interface {
	// GetPreferences returns the stored record, or the defaults when absent.
	GetPreferences(ctx context.Context, userID string) (model.Preferences, error)
	PutPreferences(ctx context.Context, userID string, p model.Preferences) error
}

// Store is the full storage surface used by the planner.
type Store interface {
	TaskStore
	CommitmentStore
	BlockStore
	PreferenceStore

	// CommitSchedule replaces the user's blocks and marks the given tasks
	// scheduled as one unit: either all of it is visible afterwards or none.
	CommitSchedule(ctx context.Context, userID string, blocks []model.ScheduledBlock, scheduledTaskIDs []string) error
	// ListUsers returns every user that owns a task, commitment or preference.
	ListUsers(ctx context.Context) ([]string, error)
	Close() error
}
