// Package ics renders a user's calendar as an iCalendar document.
package ics

import (
	"fmt"
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"github.com/morywal/CalendarApp/internal/domain/model"
)

const prodID = "-//CalendarApp//Scheduler//EN"

// Custom properties not covered by the library constants.
const (
	propColor  ical.ComponentProperty = "COLOR"
	propTaskID ical.ComponentProperty = "X-CALENDARAPP-TASK-ID"
)

// Calendar is the content of one export.
type Calendar struct {
	Name        string
	Commitments []model.FixedCommitment
	Blocks      []model.ScheduledBlock
	// Tasks maps task ID to task, used to title blocks.
	Tasks map[string]model.Task
	// Stamp is written as DTSTAMP on every event. Zero means now.
	Stamp time.Time
}

// Build converts c into an iCalendar object.
func Build(c Calendar) (*ical.Calendar, error) {
	stamp := c.Stamp
	if stamp.IsZero() {
		stamp = time.Now()
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(prodID)
	if c.Name != "" {
		cal.SetXWRCalName(c.Name)
	}

	for _, fc := range c.Commitments {
		if err := addCommitment(cal, fc, stamp); err != nil {
			return nil, err
		}
	}
	for _, b := range c.Blocks {
		addBlock(cal, b, c.Tasks[b.TaskID], stamp)
	}
	return cal, nil
}

// Write serializes c to w.
func Write(w io.Writer, c Calendar) error {
	cal, err := Build(c)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, cal.Serialize()); err != nil {
		return fmt.Errorf("write calendar: %w", err)
	}
	return nil
}

func addCommitment(cal *ical.Calendar, fc model.FixedCommitment, stamp time.Time) error {
	end := fc.End
	if end.Before(fc.Start) {
		end = end.AddDate(0, 0, 1)
	}

	ev := cal.AddEvent("commitment-" + fc.ID)
	ev.SetDtStampTime(stamp)
	ev.SetStartAt(fc.Start)
	ev.SetEndAt(end)
	ev.SetSummary(fc.Title)
	if fc.Description != "" {
		ev.SetDescription(fc.Description)
	}
	if fc.Category != "" {
		ev.SetProperty(ical.ComponentPropertyCategories, fc.Category)
	}
	color := fc.Color
	if color == "" {
		color = model.DefaultColor
	}
	ev.SetProperty(propColor, color)

	rule, err := RRule(fc)
	if err != nil {
		return err
	}
	if rule != "" {
		ev.SetProperty(ical.ComponentPropertyRrule, rule)
	}
	return nil
}

func addBlock(cal *ical.Calendar, b model.ScheduledBlock, t model.Task, stamp time.Time) {
	ev := cal.AddEvent("block-" + b.ID)
	ev.SetDtStampTime(stamp)
	ev.SetStartAt(b.Start)
	ev.SetEndAt(b.End)
	title := t.Title
	if title == "" {
		title = "Task " + b.TaskID
	}
	ev.SetSummary(title)
	if t.Description != "" {
		ev.SetDescription(t.Description)
	}
	if t.Category != "" {
		ev.SetProperty(ical.ComponentPropertyCategories, t.Category)
	}
	ev.SetProperty(ical.ComponentPropertyStatus, blockStatus(b.Status))
	ev.SetProperty(propTaskID, b.TaskID)
}

func blockStatus(s model.BlockStatus) string {
	if s == model.BlockSuggested {
		return "TENTATIVE"
	}
	return "CONFIRMED"
}

// RRule returns the RRULE value for a recurring commitment, or "" for a
// one-off one. The last occurrence date becomes an inclusive UNTIL.
func RRule(fc model.FixedCommitment) (string, error) {
	var freq rrule.Frequency
	switch fc.Recurrence {
	case "", model.RecurrenceNone:
		return "", nil
	case model.RecurrenceDaily:
		freq = rrule.DAILY
	case model.RecurrenceWeekly:
		freq = rrule.WEEKLY
	case model.RecurrenceMonthly:
		freq = rrule.MONTHLY
	default:
		return "", fmt.Errorf("commitment %s: unknown recurrence %q", fc.ID, fc.Recurrence)
	}

	opt := rrule.ROption{Freq: freq, Dtstart: fc.Start}
	if fc.RecurrenceEnd != nil {
		end := fc.RecurrenceEnd.In(fc.Start.Location())
		opt.Until = model.ClockOf(fc.Start).On(end)
	}
	r, err := rrule.NewRRule(opt)
	if err != nil {
		return "", fmt.Errorf("commitment %s: %w", fc.ID, err)
	}
	return strings.TrimPrefix(r.OrigOptions.RRuleString(), "RRULE:"), nil
}
