// Package freeblocks derives the free time left in each day's active window
// once fixed commitments are taken out.
package freeblocks

import (
	"time"

	"github.com/morywal/CalendarApp/internal/domain/interval"
	"github.com/morywal/CalendarApp/internal/domain/model"
	"github.com/morywal/CalendarApp/internal/domain/recurrence"
)

// Derive returns the free blocks of every day in h, ordered by day and then
// by start. Each block lies inside that day's active window and is at least
// prefs.MinBlock long.
func Derive(prefs model.Preferences, instances []recurrence.Instance, h model.Horizon) []model.FreeBlock {
	var out []model.FreeBlock
	for day := range h.Days() {
		out = append(out, DeriveDay(prefs, instances, day)...)
	}
	return out
}

// DeriveDay returns the free blocks of a single day. Instances are matched by
// overlap with the day's window, so an overnight instance from the previous
// day still occupies the morning.
func DeriveDay(prefs model.Preferences, instances []recurrence.Instance, day time.Time) []model.FreeBlock {
	window := Window(prefs, day)
	var occupied []interval.Interval
	for _, in := range instances {
		if in.Overlaps(window) {
			occupied = append(occupied, in.Interval)
		}
	}
	gaps := interval.Subtract(window, occupied, prefs.MinBlock())
	out := make([]model.FreeBlock, 0, len(gaps))
	for _, g := range gaps {
		out = append(out, model.FreeBlock{Interval: g})
	}
	return out
}

// Window returns the active window of day.
func Window(prefs model.Preferences, day time.Time) interval.Interval {
	return interval.New(prefs.ActiveStart.On(day), prefs.ActiveEnd.On(day))
}
