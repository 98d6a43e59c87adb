// Package allocator places pending tasks into free calendar time, one task
// at a time, choosing the best-scoring block for each.
package allocator

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/morywal/CalendarApp/internal/domain/freeblocks"
	"github.com/morywal/CalendarApp/internal/domain/model"
	"github.com/morywal/CalendarApp/internal/domain/recurrence"
	"github.com/morywal/CalendarApp/internal/domain/scoring"
	"github.com/morywal/CalendarApp/pkg/logger"
)

// ErrMissingEstimate marks a task that reached the allocator without an
// estimated duration. Such tasks are skipped, not fatal to the run.
var ErrMissingEstimate = errors.New("task has no estimated duration")

// Phase is a step of one allocation run.
type Phase int

// Phases in run order.
const (
	PhaseInit Phase = iota
	PhaseBuildingFreeSet
	PhaseAssigning
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseInit:
		return "init"
	case PhaseBuildingFreeSet:
		return "building_free_set"
	case PhaseAssigning:
		return "assigning"
	case PhaseDone:
		return "done"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Request is everything a run needs for one user.
type Request struct {
	UserID      string
	Tasks       []model.Task
	Commitments []model.FixedCommitment
	Preferences model.Preferences
	Horizon     model.Horizon
	Now         time.Time
}

// Plan is the outcome of a run. Nothing in it has been persisted.
type Plan struct {
	Blocks      []model.ScheduledBlock
	Tasks       []model.Task // input tasks in allocation order, statuses updated
	Scheduled   []string     // task IDs now scheduled
	Unscheduled []string     // task IDs no block could fit
	Skipped     []string     // task IDs without an estimate
	FreeBlocks  int          // size of the free set before assignment
	Instances   int          // commitment instances expanded over the horizon
	Remaining   []model.FreeBlock
}

// Option applies a configuration option to the Allocator.
type Option func(*Allocator)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(a *Allocator) {
		if l != nil {
			a.log = l
		}
	}
}

// WithIDGenerator sets the function used to identify new blocks.
func WithIDGenerator(fn func() string) Option {
	return func(a *Allocator) {
		if fn != nil {
			a.newID = fn
		}
	}
}

// WithPhaseHook registers fn to be called on every phase transition.
func WithPhaseHook(fn func(userID string, p Phase)) Option {
	return func(a *Allocator) {
		a.onPhase = fn
	}
}

// Allocator runs the greedy assignment. It holds no per-run state and is
// safe for concurrent use across users.
type Allocator struct {
	scorer  scoring.Scorer
	log     logger.Logger
	newID   func() string
	onPhase func(userID string, p Phase)
}

// New creates an allocator scoring with s.
func New(s scoring.Scorer, opts ...Option) *Allocator {
	a := &Allocator{
		scorer: s,
		log:    logger.Nop(),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SortTasks orders tasks by priority descending, then deadline ascending
// with undated tasks last. Ties keep their input order.
func SortTasks(tasks []model.Task) {
	slices.SortStableFunc(tasks, func(a, b model.Task) int {
		if c := cmp.Compare(b.Priority, a.Priority); c != 0 {
			return c
		}
		switch {
		case a.Deadline == nil && b.Deadline == nil:
			return 0
		case a.Deadline == nil:
			return 1
		case b.Deadline == nil:
			return -1
		}
		return a.Deadline.Compare(*b.Deadline)
	})
}

// Run expands the user's commitments over the horizon, derives free time and
// assigns tasks into it.
func (a *Allocator) Run(ctx context.Context, req Request) (Plan, error) {
	if err := ctx.Err(); err != nil {
		return Plan{}, err
	}
	if err := req.Preferences.Validate(); err != nil {
		return Plan{}, fmt.Errorf("preferences: %w", err)
	}
	log := a.log.With(logger.String("user", req.UserID))

	a.enter(ctx, log, req.UserID, PhaseInit)
	tasks := slices.Clone(req.Tasks)
	SortTasks(tasks)

	a.enter(ctx, log, req.UserID, PhaseBuildingFreeSet)
	for _, c := range req.Commitments {
		if recurrence.Malformed(c) {
			log.Warn(ctx, "commitment recurrence ends before it starts", logger.String("commitment", c.ID))
		}
	}
	instances := recurrence.ExpandAll(req.Commitments, req.Horizon)
	free := freeblocks.Derive(req.Preferences, instances, req.Horizon)
	log.Debug(ctx, "free set built", logger.Int("instances", len(instances)), logger.Int("free_blocks", len(free)))

	plan := a.assign(ctx, log, req.UserID, tasks, free, req.Preferences.MinBlock(), req.Now)
	plan.Instances = len(instances)
	a.enter(ctx, log, req.UserID, PhaseDone)
	return plan, nil
}

// Assign places already ordered tasks into free. free is not modified.
func (a *Allocator) Assign(ctx context.Context, userID string, tasks []model.Task, free []model.FreeBlock, minBlock time.Duration, now time.Time) Plan {
	log := a.log.With(logger.String("user", userID))
	return a.assign(ctx, log, userID, slices.Clone(tasks), free, minBlock, now)
}

func (a *Allocator) assign(ctx context.Context, log logger.Logger, userID string, tasks []model.Task, free []model.FreeBlock, minBlock time.Duration, now time.Time) Plan {
	a.enter(ctx, log, userID, PhaseAssigning)
	work := slices.Clone(free)
	plan := Plan{Tasks: tasks, FreeBlocks: len(work)}

	for i := range tasks {
		t := &tasks[i]
		if !t.HasEstimate() {
			log.Warn(ctx, "skipping task", logger.String("task", t.ID), logger.Error(ErrMissingEstimate))
			plan.Skipped = append(plan.Skipped, t.ID)
			continue
		}

		best, bestScore := -1, 0.0
		for j, b := range work {
			r, err := a.scorer.Score(scoring.Input{Task: *t, Block: b, Now: now})
			if err != nil {
				continue
			}
			if best < 0 || r.Score > bestScore {
				best, bestScore = j, r.Score
			}
		}
		if best < 0 {
			log.Debug(ctx, "no block fits task", logger.String("task", t.ID), logger.Int("estimate_min", t.EstimatedMinutes))
			plan.Unscheduled = append(plan.Unscheduled, t.ID)
			continue
		}

		chosen := &work[best]
		start := chosen.Start
		end := start.Add(t.Estimate())
		plan.Blocks = append(plan.Blocks, model.ScheduledBlock{
			ID:     a.newID(),
			UserID: userID,
			TaskID: t.ID,
			Start:  start,
			End:    end,
			Status: model.BlockSuggested,
		})
		if chosen.Duration()-t.Estimate() >= minBlock {
			chosen.Start = end
		} else {
			work = slices.Delete(work, best, best+1)
		}
		t.Status = model.TaskScheduled
		plan.Scheduled = append(plan.Scheduled, t.ID)
		log.Debug(ctx, "task placed",
			logger.String("task", t.ID),
			logger.Time("start", start),
			logger.Float64("score", bestScore))
	}

	plan.Remaining = work
	return plan
}

func (a *Allocator) enter(ctx context.Context, log logger.Logger, userID string, p Phase) {
	log.Debug(ctx, "allocation phase", logger.String("phase", p.String()))
	if a.onPhase != nil {
		a.onPhase(userID, p)
	}
}
