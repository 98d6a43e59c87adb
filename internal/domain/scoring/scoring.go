// Package scoring computes how well a task fits a candidate free block.
package scoring

import (
	"errors"
	"time"

	"github.com/morywal/CalendarApp/internal/domain/model"
)

// ErrInfeasible is returned when the task does not fit in the block.
var ErrInfeasible = errors.New("task does not fit in block")

// Default scoring weights.
const (
	DefaultBase              = 100.0
	DefaultPriorityStep      = 10.0
	DefaultUtilizationWeight = 20.0
)

// Option applies a configuration option to the WeightedScorer.
type Option func(*WeightedScorer)

// WithBase sets the constant every feasible score starts from.
func WithBase(base float64) Option {
	return func(s *WeightedScorer) {
		s.base = base
	}
}

// WithPriorityStep sets the bonus per priority level above the minimum.
func WithPriorityStep(step float64) Option {
	return func(s *WeightedScorer) {
		if step >= 0 {
			s.priorityStep = step
		}
	}
}

// WithUtilizationWeight sets the bonus awarded for a block the task fills exactly.
func WithUtilizationWeight(w float64) Option {
	return func(s *WeightedScorer) {
		if w >= 0 {
			s.utilizationWeight = w
		}
	}
}

// Input holds what a score depends on.
type Input struct {
	Task  model.Task
	Block model.FreeBlock
	Now   time.Time
}

// Result is a feasible score and the terms it was built from.
type Result struct {
	Score       float64
	Priority    float64
	Urgency     float64
	Utilization float64
	TimeOfDay   float64
}

// Scorer computes a fitness score for placing a task in a block. It returns
// ErrInfeasible when the task cannot be placed there.
type Scorer interface {
	Score(in Input) (Result, error)
}

// WeightedScorer is the deterministic additive scorer.
type WeightedScorer struct {
	base              float64
	priorityStep      float64
	utilizationWeight float64
}

// NewWeightedScorer creates a scorer with the default weights.
func NewWeightedScorer(opts ...Option) *WeightedScorer {
	s := &WeightedScorer{
		base:              DefaultBase,
		priorityStep:      DefaultPriorityStep,
		utilizationWeight: DefaultUtilizationWeight,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score implements Scorer.
func (s *WeightedScorer) Score(in Input) (Result, error) {
	blockMin := in.Block.DurationMinutes()
	est := float64(in.Task.EstimatedMinutes)
	if blockMin <= 0 || est > blockMin {
		return Result{}, ErrInfeasible
	}

	r := Result{
		Priority:    float64(in.Task.Priority-model.MinPriority) * s.priorityStep,
		Urgency:     Urgency(in.Task.Deadline, in.Now),
		Utilization: est / blockMin * s.utilizationWeight,
		TimeOfDay:   TimeOfDay(in.Block.Start.Hour()),
	}
	r.Score = s.base + r.Priority + r.Urgency + r.Utilization + r.TimeOfDay
	return r, nil
}

// Urgency returns the deadline bonus. Overdue tasks get the largest bonus and
// tasks without a deadline get none.
func Urgency(deadline *time.Time, now time.Time) float64 {
	if deadline == nil {
		return 0
	}
	switch h := deadline.Sub(now).Hours(); {
	case h <= 0:
		return 30
	case h <= 24:
		return 25
	case h <= 72:
		return 20
	case h <= 168:
		return 15
	default:
		return 5
	}
}

// TimeOfDay returns the bonus for a block starting at the given hour.
func TimeOfDay(hour int) float64 {
	switch {
	case hour >= 9 && hour <= 12:
		return 10
	case hour >= 13 && hour <= 16:
		return 8
	case hour >= 17 && hour <= 19:
		return 6
	default:
		return 3
	}
}
