package repository

import "github.com/morywal/CalendarApp/internal/domain/model"

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithDefaultPreferences sets what GetPreferences returns for users
// without a stored record.
func WithDefaultPreferences(p model.Preferences) Option {
	return func(s *MemoryStore) {
		s.defaults = p
	}
}
