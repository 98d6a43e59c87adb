package repository

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/morywal/CalendarApp/internal/domain/model"
	"github.com/morywal/CalendarApp/pkg/metrics"
)

// MemoryStore is a Store kept entirely in process memory. Slices preserve
// insertion order so listings are deterministic.
type MemoryStore struct {
	mu          sync.RWMutex
	tasks       map[string][]model.Task
	commitments map[string][]model.FixedCommitment
	blocks      map[string][]model.ScheduledBlock
	prefs       map[string]model.Preferences
	defaults    model.Preferences
	closed      bool
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		tasks:       make(map[string][]model.Task),
		commitments: make(map[string][]model.FixedCommitment),
		blocks:      make(map[string][]model.ScheduledBlock),
		prefs:       make(map[string]model.Preferences),
		defaults:    model.DefaultPreferences(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func observeQuery(start time.Time) {
	metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Microseconds()) / 1000)
}

// CreateTask implements TaskStore.
func (s *MemoryStore) CreateTask(_ context.Context, t model.Task) error {
	if err := ValidateTask(t); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if slices.ContainsFunc(s.tasks[t.UserID], func(x model.Task) bool { return x.ID == t.ID }) {
		return fmt.Errorf("task %s already exists: %w", t.ID, ErrInvalid)
	}
	s.tasks[t.UserID] = append(s.tasks[t.UserID], t)
	metrics.UpdateRepositoryRecords("tasks", s.countLocked())
	return nil
}

// ListTasks implements TaskStore.
func (s *MemoryStore) ListTasks(_ context.Context, userID string) ([]model.Task, error) {
	defer observeQuery(time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	return slices.Clone(s.tasks[userID]), nil
}

// ListPending implements TaskStore.
func (s *MemoryStore) ListPending(_ context.Context, userID string) ([]model.Task, error) {
	return s.filterTasks(userID, func(t model.Task) bool { return t.Status == model.TaskPending })
}

// ListCompletedWithActualDuration implements TaskStore.
func (s *MemoryStore) ListCompletedWithActualDuration(_ context.Context, userID string) ([]model.Task, error) {
	return s.filterTasks(userID, func(t model.Task) bool {
		return t.Status == model.TaskCompleted && t.ActualMinutes > 0
	})
}

func (s *MemoryStore) filterTasks(userID string, keep func(model.Task) bool) ([]model.Task, error) {
	defer observeQuery(time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	var out []model.Task
	for _, t := range s.tasks[userID] {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out, nil
}

// MarkScheduled implements TaskStore.
func (s *MemoryStore) MarkScheduled(_ context.Context, userID string, taskIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return s.markScheduledLocked(userID, taskIDs)
}

func (s *MemoryStore) markScheduledLocked(userID string, taskIDs []string) error {
	tasks := s.tasks[userID]
	idx := make([]int, 0, len(taskIDs))
	for _, id := range taskIDs {
		i := slices.IndexFunc(tasks, func(t model.Task) bool { return t.ID == id })
		if i < 0 {
			return fmt.Errorf("task %s: %w", id, ErrNotFound)
		}
		idx = append(idx, i)
	}
	for _, i := range idx {
		if tasks[i].Status == model.TaskPending {
			tasks[i].Status = model.TaskScheduled
		}
	}
	return nil
}

// CreateCommitment implements CommitmentStore.
func (s *MemoryStore) CreateCommitment(_ context.Context, c model.FixedCommitment) error {
	if err := ValidateCommitment(c); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if slices.ContainsFunc(s.commitments[c.UserID], func(x model.FixedCommitment) bool { return x.ID == c.ID }) {
		return fmt.Errorf("commitment %s already exists: %w", c.ID, ErrInvalid)
	}
	s.commitments[c.UserID] = append(s.commitments[c.UserID], c)
	return nil
}

// ListCommitments implements CommitmentStore.
func (s *MemoryStore) ListCommitments(_ context.Context, userID string) ([]model.FixedCommitment, error) {
	defer observeQuery(time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	return slices.Clone(s.commitments[userID]), nil
}

// DeleteBlocks implements BlockStore.
func (s *MemoryStore) DeleteBlocks(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	delete(s.blocks, userID)
	return nil
}

// InsertBlocks implements BlockStore.
func (s *MemoryStore) InsertBlocks(_ context.Context, blocks []model.ScheduledBlock) error {
	for _, b := range blocks {
		if err := ValidateBlock(b); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	for _, b := range blocks {
		s.blocks[b.UserID] = append(s.blocks[b.UserID], b)
	}
	return nil
}

// ListBlocks implements BlockStore. Blocks are ordered by start.
func (s *MemoryStore) ListBlocks(_ context.Context, userID string) ([]model.ScheduledBlock, error) {
	defer observeQuery(time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	out := slices.Clone(s.blocks[userID])
	slices.SortStableFunc(out, func(a, b model.ScheduledBlock) int { return a.Start.Compare(b.Start) })
	return out, nil
}

// GetPreferences implements PreferenceStore.
func (s *MemoryStore) GetPreferences(_ context.Context, userID string) (model.Preferences, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return model.Preferences{}, ErrClosed
	}
	if p, ok := s.prefs[userID]; ok {
		return p, nil
	}
	return s.defaults, nil
}

// PutPreferences implements PreferenceStore.
func (s *MemoryStore) PutPreferences(_ context.Context, userID string, p model.Preferences) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.prefs[userID] = p
	return nil
}

// CommitSchedule implements Store. Everything is validated before the
// first mutation so a failure leaves the store untouched.
func (s *MemoryStore) CommitSchedule(_ context.Context, userID string, blocks []model.ScheduledBlock, scheduledTaskIDs []string) error {
	start := time.Now()
	for _, b := range blocks {
		if err := ValidateBlock(b); err != nil {
			return err
		}
		if b.UserID != userID {
			return fmt.Errorf("block %s belongs to %s: %w", b.ID, b.UserID, ErrInvalid)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	for _, id := range scheduledTaskIDs {
		if !slices.ContainsFunc(s.tasks[userID], func(t model.Task) bool { return t.ID == id }) {
			return fmt.Errorf("task %s: %w", id, ErrNotFound)
		}
	}
	s.blocks[userID] = slices.Clone(blocks)
	if err := s.markScheduledLocked(userID, scheduledTaskIDs); err != nil {
		return err
	}
	metrics.RecordRepositoryCommitLatency(float64(time.Since(start).Microseconds()) / 1000)
	return nil
}

// ListUsers implements Store.
func (s *MemoryStore) ListUsers(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	seen := make(map[string]struct{})
	for u := range s.tasks {
		seen[u] = struct{}{}
	}
	for u := range s.commitments {
		seen[u] = struct{}{}
	}
	for u := range s.prefs {
		seen[u] = struct{}{}
	}
	users := make([]string, 0, len(seen))
	for u := range seen {
		users = append(users, u)
	}
	slices.Sort(users)
	return users, nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *MemoryStore) countLocked() int {
	n := 0
	for _, ts := range s.tasks {
		n += len(ts)
	}
	return n
}
