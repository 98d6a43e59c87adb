package service

import (
	"time"

	"github.com/morywal/CalendarApp/internal/domain/scoring"
	"github.com/morywal/CalendarApp/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of waiting run requests.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize bounds the number of users tracked as pending.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithHorizonDays sets how many days after today a run covers.
func WithHorizonDays(days int) Option {
	return func(s *Service) {
		if days >= 0 {
			s.horizonDays = days
		}
	}
}

// WithLocation sets the time zone calendar days are computed in.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithClock overrides the current time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRescheduleCron sets the cron expression of the periodic sweep that
// queues a run for every known user. Empty disables the sweep.
func WithRescheduleCron(spec string) Option {
	return func(s *Service) {
		s.cronSpec = spec
	}
}

// WithScoringOptions configures the block scorer.
func WithScoringOptions(opts ...scoring.Option) Option {
	return func(s *Service) {
		s.scoringOpts = append(s.scoringOpts, opts...)
	}
}

// WithEstimateDefaults sets the estimator's fallback duration and the number
// of completed tasks needed before history is trusted.
func WithEstimateDefaults(defaultMinutes, minSamples int) Option {
	return func(s *Service) {
		s.estimateDefault = defaultMinutes
		s.estimateSamples = minSamples
	}
}

// WithIDGenerator sets the function used for new task, commitment and block IDs.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}
