// Package model contains domain models passed between layers.
package model

import (
	"time"

	"github.com/morywal/CalendarApp/internal/domain/interval"
)

// Recurrence is the repeat pattern of a fixed commitment.
type Recurrence string

// Supported recurrence patterns.
const (
	RecurrenceNone    Recurrence = "none"
	RecurrenceDaily   Recurrence = "daily"
	RecurrenceWeekly  Recurrence = "weekly"
	RecurrenceMonthly Recurrence = "monthly"
)

// Valid reports whether r is a known pattern. The empty string is treated as none.
func (r Recurrence) Valid() bool {
	switch r {
	case "", RecurrenceNone, RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly:
		return true
	}
	return false
}

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

// Task statuses.
const (
	TaskPending    TaskStatus = "pending"
	TaskScheduled  TaskStatus = "scheduled"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
)

// BlockStatus is the lifecycle state of a scheduled block.
type BlockStatus string

// Scheduled block statuses.
const (
	BlockSuggested BlockStatus = "suggested"
	BlockConfirmed BlockStatus = "confirmed"
	BlockCompleted BlockStatus = "completed"
)

// Priority bounds shared by tasks and commitments.
const (
	MinPriority     = 1
	MaxPriority     = 5
	DefaultPriority = 3
)

// DefaultColor is the display color given to commitments without one.
const DefaultColor = "#3788d8"

// FixedCommitment is an immovable calendar obligation. Start and End are a
// same-day template: only their wall-clock parts are used for recurring
// instances, and Start's date anchors the recurrence.
type FixedCommitment struct {
	ID            string
	UserID        string
	Title         string
	Description   string
	Start         time.Time
	End           time.Time
	Recurrence    Recurrence
	RecurrenceEnd *time.Time // inclusive last date; nil repeats through the horizon
	Priority      int
	Category      string
	Color         string
}

// Task is a unit of pending work to be placed in free time.
type Task struct {
	ID               string
	UserID           string
	Title            string
	Description      string
	Deadline         *time.Time
	EstimatedMinutes int // zero means no estimate yet
	ActualMinutes    int // zero means not recorded
	Priority         int
	Status           TaskStatus
	Category         string
}

// HasEstimate reports whether the task can be scheduled.
func (t Task) HasEstimate() bool { return t.EstimatedMinutes > 0 }

// Estimate returns the estimated duration.
func (t Task) Estimate() time.Duration {
	return time.Duration(t.EstimatedMinutes) * time.Minute
}

// ScheduledBlock assigns a task to a concrete time span.
type ScheduledBlock struct {
	ID     string
	UserID string
	TaskID string
	Start  time.Time
	End    time.Time
	Status BlockStatus
}

// Interval returns the block's span.
func (b ScheduledBlock) Interval() interval.Interval {
	return interval.New(b.Start, b.End)
}

// FreeBlock is a span of free time inside the active window. It is a working
// value of one scheduling run and is never persisted.
type FreeBlock struct {
	interval.Interval
}

// NewFreeBlock returns the free block [start, end).
func NewFreeBlock(start, end time.Time) FreeBlock {
	return FreeBlock{Interval: interval.New(start, end)}
}

// DurationMinutes returns the remaining length of the block in minutes.
func (b FreeBlock) DurationMinutes() float64 { return b.Minutes() }
