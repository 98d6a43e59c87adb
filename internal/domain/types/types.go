// Package types contains the JSON shapes exchanged over HTTP, shared by the
// API and its clients.
package types

import (
	"fmt"
	"time"

	"github.com/morywal/CalendarApp/internal/domain/model"
)

// Task is the wire form of model.Task.
type Task struct {
	ID               string     `json:"id,omitempty"`
	Title            string     `json:"title"`
	Description      string     `json:"description,omitempty"`
	Deadline         *time.Time `json:"deadline,omitempty"`
	EstimatedMinutes int        `json:"estimated_minutes,omitempty"`
	ActualMinutes    int        `json:"actual_minutes,omitempty"`
	Priority         int        `json:"priority,omitempty"`
	Status           string     `json:"status,omitempty"`
	Category         string     `json:"category,omitempty"`
}

// Commitment is the wire form of model.FixedCommitment.
type Commitment struct {
	ID            string     `json:"id,omitempty"`
	Title         string     `json:"title"`
	Description   string     `json:"description,omitempty"`
	Start         time.Time  `json:"start"`
	End           time.Time  `json:"end"`
	Recurrence    string     `json:"recurrence,omitempty"`
	RecurrenceEnd *time.Time `json:"recurrence_end,omitempty"`
	Priority      int        `json:"priority,omitempty"`
	Category      string     `json:"category,omitempty"`
	Color         string     `json:"color,omitempty"`
}

// Block is the wire form of model.ScheduledBlock.
type Block struct {
	ID     string    `json:"id"`
	TaskID string    `json:"task_id"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Status string    `json:"status"`
}

// FreeBlock is a span of derived free time.
type FreeBlock struct {
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	DurationMinutes float64   `json:"duration_minutes"`
}

// Preferences is the wire form of model.Preferences. Clocks are "HH:MM".
type Preferences struct {
	ActiveStart          string `json:"active_window_start"`
	ActiveEnd            string `json:"active_window_end"`
	MinBlockMinutes      int    `json:"min_block_minutes"`
	PreferredTaskMinutes int    `json:"preferred_task_minutes,omitempty"`
}

// ScheduleResponse reports a committed run.
type ScheduleResponse struct {
	Blocks           []Block   `json:"blocks"`
	UnscheduledCount int       `json:"unscheduled_count"`
	Unscheduled      []string  `json:"unscheduled"`
	Skipped          []string  `json:"skipped"`
	FreeBlocks       int       `json:"free_blocks"`
	HorizonStart     time.Time `json:"horizon_start"`
	HorizonEnd       time.Time `json:"horizon_end"`
}

// FreeBlocksResponse lists the free time of a horizon.
type FreeBlocksResponse struct {
	HorizonStart time.Time   `json:"horizon_start"`
	HorizonEnd   time.Time   `json:"horizon_end"`
	FreeBlocks   []FreeBlock `json:"free_blocks"`
}

// EstimateRequest asks for a duration suggestion.
type EstimateRequest struct {
	UserID      string `json:"user_id,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
}

// EstimateResponse carries a duration suggestion.
type EstimateResponse struct {
	EstimatedMinutes int    `json:"estimated_duration"`
	Source           string `json:"source"`
	Samples          int    `json:"samples,omitempty"`
}

// Summary counts a user's calendar objects.
type Summary struct {
	Commitments int            `json:"commitments"`
	Tasks       int            `json:"tasks"`
	ByStatus    map[string]int `json:"tasks_by_status"`
	Blocks      int            `json:"blocks"`
}

// Accepted acknowledges an asynchronous request.
type Accepted struct {
	Status string `json:"status"`
	UserID string `json:"user_id"`
}

// FromTask converts a domain task.
func FromTask(t model.Task) Task {
	return Task{
		ID:               t.ID,
		Title:            t.Title,
		Description:      t.Description,
		Deadline:         t.Deadline,
		EstimatedMinutes: t.EstimatedMinutes,
		ActualMinutes:    t.ActualMinutes,
		Priority:         t.Priority,
		Status:           string(t.Status),
		Category:         t.Category,
	}
}

// ToModel converts to a domain task owned by userID.
func (t Task) ToModel(userID string) model.Task {
	return model.Task{
		ID:               t.ID,
		UserID:           userID,
		Title:            t.Title,
		Description:      t.Description,
		Deadline:         t.Deadline,
		EstimatedMinutes: t.EstimatedMinutes,
		ActualMinutes:    t.ActualMinutes,
		Priority:         t.Priority,
		Status:           model.TaskStatus(t.Status),
		Category:         t.Category,
	}
}

// FromCommitment converts a domain commitment.
func FromCommitment(c model.FixedCommitment) Commitment {
	return Commitment{
		ID:            c.ID,
		Title:         c.Title,
		Description:   c.Description,
		Start:         c.Start,
		End:           c.End,
		Recurrence:    string(c.Recurrence),
		RecurrenceEnd: c.RecurrenceEnd,
		Priority:      c.Priority,
		Category:      c.Category,
		Color:         c.Color,
	}
}

// ToModel converts to a domain commitment owned by userID.
func (c Commitment) ToModel(userID string) model.FixedCommitment {
	return model.FixedCommitment{
		ID:            c.ID,
		UserID:        userID,
		Title:         c.Title,
		Description:   c.Description,
		Start:         c.Start,
		End:           c.End,
		Recurrence:    model.Recurrence(c.Recurrence),
		RecurrenceEnd: c.RecurrenceEnd,
		Priority:      c.Priority,
		Category:      c.Category,
		Color:         c.Color,
	}
}

// FromBlock converts a scheduled block.
func FromBlock(b model.ScheduledBlock) Block {
	return Block{ID: b.ID, TaskID: b.TaskID, Start: b.Start, End: b.End, Status: string(b.Status)}
}

// FromBlocks converts a slice of scheduled blocks. The result is never nil.
func FromBlocks(bs []model.ScheduledBlock) []Block {
	out := make([]Block, 0, len(bs))
	for _, b := range bs {
		out = append(out, FromBlock(b))
	}
	return out
}

// FromFreeBlocks converts derived free blocks. The result is never nil.
func FromFreeBlocks(fs []model.FreeBlock) []FreeBlock {
	out := make([]FreeBlock, 0, len(fs))
	for _, f := range fs {
		out = append(out, FreeBlock{Start: f.Start, End: f.End, DurationMinutes: f.DurationMinutes()})
	}
	return out
}

// FromPreferences converts domain preferences.
func FromPreferences(p model.Preferences) Preferences {
	return Preferences{
		ActiveStart:          p.ActiveStart.String(),
		ActiveEnd:            p.ActiveEnd.String(),
		MinBlockMinutes:      p.MinBlockMinutes,
		PreferredTaskMinutes: p.PreferredTaskMinutes,
	}
}

// ToModel parses the clocks. Range checks are left to model.Preferences.Validate.
func (p Preferences) ToModel() (model.Preferences, error) {
	start, err := model.ParseClock(p.ActiveStart)
	if err != nil {
		return model.Preferences{}, fmt.Errorf("active_window_start: %w", err)
	}
	end, err := model.ParseClock(p.ActiveEnd)
	if err != nil {
		return model.Preferences{}, fmt.Errorf("active_window_end: %w", err)
	}
	return model.Preferences{
		ActiveStart:          start,
		ActiveEnd:            end,
		MinBlockMinutes:      p.MinBlockMinutes,
		PreferredTaskMinutes: p.PreferredTaskMinutes,
	}, nil
}
