package service

import "errors"

var (
	// ErrStorage wraps a store failure during a scheduling run. Nothing of
	// the run has been committed when it is returned.
	ErrStorage = errors.New("storage failure")
	// ErrNotStarted is returned by asynchronous operations before Start.
	ErrNotStarted = errors.New("service not started")
	// ErrQueueFull is returned when a run request cannot be queued.
	ErrQueueFull = errors.New("run queue full")
)
