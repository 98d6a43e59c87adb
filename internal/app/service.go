// Package service wires the planner's domain packages to storage, the run
// queue and the periodic sweep. It is what the HTTP API and CLI call into.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/morywal/CalendarApp/internal/adapters/ics"
	"github.com/morywal/CalendarApp/internal/adapters/mq/queue"
	"github.com/morywal/CalendarApp/internal/adapters/mq/worker"
	"github.com/morywal/CalendarApp/internal/adapters/repository"
	"github.com/morywal/CalendarApp/internal/domain/allocator"
	"github.com/morywal/CalendarApp/internal/domain/dedupe"
	"github.com/morywal/CalendarApp/internal/domain/estimate"
	"github.com/morywal/CalendarApp/internal/domain/freeblocks"
	"github.com/morywal/CalendarApp/internal/domain/model"
	"github.com/morywal/CalendarApp/internal/domain/recurrence"
	"github.com/morywal/CalendarApp/internal/domain/scoring"
	"github.com/morywal/CalendarApp/pkg/logger"
	"github.com/morywal/CalendarApp/pkg/metrics"
)

const (
	defaultQueueSize   = 1024
	defaultDedupeSize  = 50000
	defaultHorizonDays = 7
	stopTimeout        = 30 * time.Second
)

// Result is the outcome of one committed scheduling run.
type Result struct {
	Blocks      []model.ScheduledBlock
	Unscheduled []string // tasks no free block could fit
	Skipped     []string // tasks without an estimate
	FreeBlocks  int
	Horizon     model.Horizon
}

// Summary counts a user's calendar objects.
type Summary struct {
	Commitments int
	Tasks       int
	ByStatus    map[model.TaskStatus]int
	Blocks      int
}

// Service implements the operations behind the HTTP API and CLI.
type Service struct {
	mu sync.RWMutex

	store     repository.Store
	alloc     *allocator.Allocator
	estimator *estimate.Estimator
	deduper   dedupe.Deduper
	queue     *queue.InMemoryQueue
	pool      *worker.Pool
	cron      *cron.Cron
	locks     *userLocks

	workerCount     int
	queueSize       int
	dedupeSize      int
	horizonDays     int
	loc             *time.Location
	now             func() time.Time
	cronSpec        string
	scoringOpts     []scoring.Option
	estimateDefault int
	estimateSamples int
	newID           func() string

	started bool
	logger  logger.Logger
}

// New constructs a Service on top of store.
func New(store repository.Store, opts ...Option) *Service {
	s := &Service{
		store:       store,
		workerCount: runtime.NumCPU(),
		queueSize:   defaultQueueSize,
		dedupeSize:  defaultDedupeSize,
		horizonDays: defaultHorizonDays,
		loc:         time.Local,
		now:         time.Now,
		newID:       uuid.NewString,
		locks:       newUserLocks(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.alloc = allocator.New(
		scoring.NewWeightedScorer(s.scoringOpts...),
		allocator.WithLogger(s.logger.Named("allocator")),
		allocator.WithIDGenerator(s.newID),
		allocator.WithPhaseHook(func(_ string, p allocator.Phase) {
			metrics.RecordPhase(p.String())
		}),
	)
	s.estimator = estimate.New(
		estimate.WithHistory(store),
		estimate.WithDefaultMinutes(s.estimateDefault),
		estimate.WithMinSamples(s.estimateSamples),
		estimate.WithLogger(s.logger.Named("estimate")),
	)
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	return s
}

// Start launches the worker pool and, when configured, the cron sweep.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}

	var sweeper *cron.Cron
	if s.cronSpec != "" {
		sweeper = cron.New(cron.WithLocation(s.loc))
		if _, err := sweeper.AddFunc(s.cronSpec, func() { s.Sweep(context.Background()) }); err != nil {
			return fmt.Errorf("reschedule cron %q: %w", s.cronSpec, err)
		}
	}

	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workerCount, s.queue, worker.ProcessorFunc(s.process),
		worker.WithLogger(s.logger))
	s.pool.Start(ctx)

	if sweeper != nil {
		sweeper.Start()
		s.cron = sweeper
	}

	s.started = true
	s.logger.Info(ctx, "planner service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queue_size", s.queueSize),
		logger.Int("horizon_days", s.horizonDays),
		logger.String("reschedule_cron", s.cronSpec),
	)
	return nil
}

// Stop halts the sweep, drains queued runs and waits for the workers.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	sweeper := s.cron
	s.cron = nil
	s.mu.Unlock()

	s.logger.Info(ctx, "stopping planner service")
	// A running sweep enqueues under the read lock, so wait for it unlocked.
	if sweeper != nil {
		select {
		case <-sweeper.Stop().Done():
		case <-ctx.Done():
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil
	}
	stopCtx, cancel := context.WithTimeout(ctx, stopTimeout)
	defer cancel()
	err := s.pool.Shutdown(stopCtx)

	s.started = false
	s.logger.Info(ctx, "planner service stopped")
	return err
}

// Schedule recomputes the user's schedule and commits it. Prior blocks are
// replaced. Runs for the same user are serialized.
func (s *Service) Schedule(ctx context.Context, userID string) (Result, error) {
	unlock := s.locks.lock(userID)
	defer unlock()

	start := time.Now()
	res, err := s.schedule(ctx, userID)
	ms := float64(time.Since(start).Microseconds()) / 1000
	if err != nil {
		outcome := "error"
		if errors.Is(err, ErrStorage) {
			outcome = "storage_error"
		}
		metrics.RecordRun(outcome, ms)
		metrics.RecordErrorByComponent("service", outcome)
		s.logger.Error(ctx, "scheduling run failed", logger.String("user", userID), logger.Error(err))
		return Result{}, err
	}
	metrics.RecordRun("ok", ms)
	s.logger.Info(ctx, "scheduling run done",
		logger.String("user", userID),
		logger.Int("scheduled", len(res.Blocks)),
		logger.Int("unscheduled", len(res.Unscheduled)),
		logger.Int("skipped", len(res.Skipped)),
		logger.Float64("duration_ms", ms),
	)
	return res, nil
}

func (s *Service) schedule(ctx context.Context, userID string) (Result, error) {
	now := s.now().In(s.loc)
	h := model.NewHorizon(now, s.horizonDays)
	s.logger.Info(ctx, "scheduling run started",
		logger.String("user", userID),
		logger.Time("from", h.From),
		logger.Time("to", h.To),
	)

	prefs, err := s.store.GetPreferences(ctx, userID)
	if err != nil {
		return Result{}, storageErr("load preferences", err)
	}
	tasks, err := s.store.ListPending(ctx, userID)
	if err != nil {
		return Result{}, storageErr("load tasks", err)
	}
	commitments, err := s.store.ListCommitments(ctx, userID)
	if err != nil {
		return Result{}, storageErr("load commitments", err)
	}

	plan, err := s.alloc.Run(ctx, allocator.Request{
		UserID:      userID,
		Tasks:       tasks,
		Commitments: commitments,
		Preferences: prefs,
		Horizon:     h,
		Now:         now,
	})
	if err != nil {
		return Result{}, err
	}

	if err := s.store.CommitSchedule(ctx, userID, plan.Blocks, plan.Scheduled); err != nil {
		return Result{}, storageErr("commit schedule", err)
	}

	metrics.RecordRecurrenceInstances(plan.Instances)
	metrics.RecordFreeBlocks(plan.FreeBlocks)
	metrics.RecordAllocation(len(plan.Scheduled), len(plan.Unscheduled), len(plan.Skipped))
	return Result{
		Blocks:      plan.Blocks,
		Unscheduled: plan.Unscheduled,
		Skipped:     plan.Skipped,
		FreeBlocks:  plan.FreeBlocks,
		Horizon:     h,
	}, nil
}

// Preview derives the user's free time over the horizon without assigning
// or writing anything.
func (s *Service) Preview(ctx context.Context, userID string) ([]model.FreeBlock, model.Horizon, error) {
	h := model.NewHorizon(s.now().In(s.loc), s.horizonDays)
	prefs, err := s.store.GetPreferences(ctx, userID)
	if err != nil {
		return nil, h, storageErr("load preferences", err)
	}
	commitments, err := s.store.ListCommitments(ctx, userID)
	if err != nil {
		return nil, h, storageErr("load commitments", err)
	}
	instances := recurrence.ExpandAll(commitments, h)
	return freeblocks.Derive(prefs, instances, h), h, nil
}

// Enqueue asks for an asynchronous run. A user that already has a run
// waiting is not queued twice.
func (s *Service) Enqueue(ctx context.Context, userID, reason string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}

	if s.deduper.SeenAndRecord(ctx, userID) {
		metrics.RecordRunCoalesced()
		s.logger.Debug(ctx, "run already pending", logger.String("user", userID))
		return nil
	}
	if !s.queue.Enqueue(ctx, queue.Request{UserID: userID, Reason: reason, RequestedAt: s.now()}) {
		s.deduper.Unrecord(ctx, userID)
		return ErrQueueFull
	}
	return nil
}

func (s *Service) process(ctx context.Context, req queue.Request) error {
	// A request arriving while this run executes must queue a new run.
	s.deduper.Unrecord(ctx, req.UserID)
	_, err := s.Schedule(ctx, req.UserID)
	return err
}

// Sweep queues a run for every known user and returns how many were queued.
func (s *Service) Sweep(ctx context.Context) int {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		s.logger.Error(ctx, "sweep: list users", logger.Error(err))
		metrics.RecordErrorByComponent("service", "sweep")
		return 0
	}
	metrics.UpdateKnownUsers(len(users))
	queued := 0
	for _, u := range users {
		if err := s.Enqueue(ctx, u, "cron"); err != nil {
			s.logger.Warn(ctx, "sweep: enqueue", logger.String("user", u), logger.Error(err))
			continue
		}
		queued++
	}
	s.logger.Info(ctx, "sweep queued runs", logger.Int("users", len(users)), logger.Int("queued", queued))
	return queued
}

// Estimate suggests a duration. The user's preferred task length seeds the
// rule-based fallback when the request does not set one.
func (s *Service) Estimate(ctx context.Context, req estimate.Request) (estimate.Result, error) {
	if req.DefaultMinutes == 0 && req.UserID != "" {
		prefs, err := s.store.GetPreferences(ctx, req.UserID)
		if err != nil {
			return estimate.Result{}, storageErr("load preferences", err)
		}
		req.DefaultMinutes = prefs.PreferredTaskMinutes
	}
	res, err := s.estimator.Estimate(ctx, req)
	if err != nil {
		return estimate.Result{}, storageErr("estimate", err)
	}
	metrics.RecordEstimate(string(res.Source))
	return res, nil
}

// CreateTask stores a new pending task, estimating its duration if absent.
func (s *Service) CreateTask(ctx context.Context, t model.Task) (model.Task, error) {
	if t.ID == "" {
		t.ID = s.newID()
	}
	if t.Status == "" {
		t.Status = model.TaskPending
	}
	if t.Priority == 0 {
		t.Priority = model.DefaultPriority
	}
	if !t.HasEstimate() {
		res, err := s.Estimate(ctx, estimate.Request{
			UserID:      t.UserID,
			Title:       t.Title,
			Description: t.Description,
			Category:    t.Category,
		})
		if err != nil {
			return model.Task{}, err
		}
		t.EstimatedMinutes = res.Minutes
	}
	if err := s.store.CreateTask(ctx, t); err != nil {
		return model.Task{}, storageErr("create task", err)
	}
	return t, nil
}

// CreateCommitment stores a new fixed commitment.
func (s *Service) CreateCommitment(ctx context.Context, c model.FixedCommitment) (model.FixedCommitment, error) {
	if c.ID == "" {
		c.ID = s.newID()
	}
	if c.Recurrence == "" {
		c.Recurrence = model.RecurrenceNone
	}
	if c.Priority == 0 {
		c.Priority = model.DefaultPriority
	}
	if c.Color == "" {
		c.Color = model.DefaultColor
	}
	if err := s.store.CreateCommitment(ctx, c); err != nil {
		return model.FixedCommitment{}, storageErr("create commitment", err)
	}
	return c, nil
}

// Preferences returns the user's preferences or the defaults.
func (s *Service) Preferences(ctx context.Context, userID string) (model.Preferences, error) {
	p, err := s.store.GetPreferences(ctx, userID)
	if err != nil {
		return model.Preferences{}, storageErr("load preferences", err)
	}
	return p, nil
}

// PutPreferences replaces the user's preferences.
func (s *Service) PutPreferences(ctx context.Context, userID string, p model.Preferences) error {
	if p.PreferredTaskMinutes == 0 {
		p.PreferredTaskMinutes = model.DefaultPreferredTaskMinutes
	}
	if err := s.store.PutPreferences(ctx, userID, p); err != nil {
		return storageErr("store preferences", err)
	}
	return nil
}

// Blocks returns the user's committed blocks ordered by start.
func (s *Service) Blocks(ctx context.Context, userID string) ([]model.ScheduledBlock, error) {
	bs, err := s.store.ListBlocks(ctx, userID)
	if err != nil {
		return nil, storageErr("list blocks", err)
	}
	return bs, nil
}

// Summary counts the user's commitments, tasks and blocks.
func (s *Service) Summary(ctx context.Context, userID string) (Summary, error) {
	commitments, err := s.store.ListCommitments(ctx, userID)
	if err != nil {
		return Summary{}, storageErr("list commitments", err)
	}
	tasks, err := s.store.ListTasks(ctx, userID)
	if err != nil {
		return Summary{}, storageErr("list tasks", err)
	}
	blocks, err := s.store.ListBlocks(ctx, userID)
	if err != nil {
		return Summary{}, storageErr("list blocks", err)
	}

	sum := Summary{
		Commitments: len(commitments),
		Tasks:       len(tasks),
		Blocks:      len(blocks),
		ByStatus: map[model.TaskStatus]int{
			model.TaskPending:    0,
			model.TaskScheduled:  0,
			model.TaskInProgress: 0,
			model.TaskCompleted:  0,
		},
	}
	for _, t := range tasks {
		sum.ByStatus[t.Status]++
	}
	return sum, nil
}

// Calendar writes the user's commitments and blocks as iCalendar to w.
func (s *Service) Calendar(ctx context.Context, userID string, w io.Writer) error {
	commitments, err := s.store.ListCommitments(ctx, userID)
	if err != nil {
		return storageErr("list commitments", err)
	}
	blocks, err := s.store.ListBlocks(ctx, userID)
	if err != nil {
		return storageErr("list blocks", err)
	}
	tasks, err := s.store.ListTasks(ctx, userID)
	if err != nil {
		return storageErr("list tasks", err)
	}
	byID := make(map[string]model.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}
	return ics.Write(w, ics.Calendar{
		Name:        userID,
		Commitments: commitments,
		Blocks:      blocks,
		Tasks:       byID,
		Stamp:       s.now(),
	})
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]any{
		"started":      s.started,
		"workerCount":  s.workerCount,
		"queueSize":    s.queueSize,
		"horizonDays":  s.horizonDays,
		"pendingUsers": s.deduper.Size(),
	}
	if s.started {
		stats["queueLength"] = s.queue.Len(ctx)
	}
	if users, err := s.store.ListUsers(ctx); err == nil {
		stats["users"] = len(users)
		metrics.UpdateKnownUsers(len(users))
	}
	return stats
}

// storageErr tags store failures with ErrStorage. Validation and lookup
// errors keep their own identity.
func storageErr(op string, err error) error {
	if errors.Is(err, repository.ErrInvalid) || errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}
