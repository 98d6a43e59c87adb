package loadgen

import (
	"fmt"
	"slices"

	ical "github.com/arran4/golang-ical"

	"github.com/morywal/CalendarApp/internal/domain/freeblocks"
	"github.com/morywal/CalendarApp/internal/domain/interval"
	"github.com/morywal/CalendarApp/internal/domain/model"
	"github.com/morywal/CalendarApp/internal/domain/recurrence"
	"github.com/morywal/CalendarApp/internal/domain/types"
)

// Violation kinds.
const (
	ViolationOverlap    = "block_overlap"
	ViolationWindow     = "outside_active_window"
	ViolationCommitment = "commitment_conflict"
	ViolationDuration   = "duration_mismatch"
	ViolationUnknown    = "unknown_task"
	ViolationDuplicate  = "task_scheduled_twice"
	ViolationAccounting = "task_accounting"
	ViolationCalendar   = "calendar_export"
)

// Violation is one broken placement rule in a returned plan.
type Violation struct {
	UserID string `json:"user_id"`
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s: %s", v.UserID, v.Kind, v.Detail)
}

// Verify checks plan against the fixture it was computed from: blocks never
// overlap each other or a commitment instance, stay inside the day's active
// window, last exactly the task estimate, and every task is accounted for
// exactly once.
func Verify(f Fixture, prefs model.Preferences, plan types.ScheduleResponse) []Violation {
	var out []Violation
	add := func(kind, format string, args ...any) {
		out = append(out, Violation{UserID: f.UserID, Kind: kind, Detail: fmt.Sprintf(format, args...)})
	}

	loc := plan.HorizonStart.Location()
	h := model.Horizon{From: model.Date(plan.HorizonStart), To: model.Date(plan.HorizonEnd.In(loc))}

	commitments := make([]model.FixedCommitment, 0, len(f.Commitments))
	for _, c := range f.Commitments {
		commitments = append(commitments, c.ToModel(f.UserID))
	}
	instances := recurrence.ExpandAll(commitments, h)

	tasks := make(map[string]types.Task, len(f.Tasks))
	for _, t := range f.Tasks {
		tasks[t.ID] = t
	}

	blocks := slices.Clone(plan.Blocks)
	slices.SortStableFunc(blocks, func(a, b types.Block) int { return a.Start.Compare(b.Start) })

	seen := make(map[string]bool, len(blocks))
	for i, b := range blocks {
		span := interval.New(b.Start.In(loc), b.End.In(loc))

		if i > 0 {
			prev := interval.New(blocks[i-1].Start, blocks[i-1].End)
			if prev.Overlaps(span) {
				add(ViolationOverlap, "block %s overlaps block %s", b.ID, blocks[i-1].ID)
			}
		}
		if w := freeblocks.Window(prefs, model.Date(span.Start)); !w.Contains(span) {
			add(ViolationWindow, "block %s [%s, %s) outside %s-%s",
				b.ID, span.Start.Format("2006-01-02 15:04"), span.End.Format("15:04"), prefs.ActiveStart, prefs.ActiveEnd)
		}
		for _, in := range instances {
			if in.Overlaps(span) {
				add(ViolationCommitment, "block %s overlaps commitment %s at %s", b.ID, in.CommitmentID, in.Start.Format("2006-01-02 15:04"))
			}
		}

		t, ok := tasks[b.TaskID]
		switch {
		case !ok:
			add(ViolationUnknown, "block %s references task %q", b.ID, b.TaskID)
		case seen[b.TaskID]:
			add(ViolationDuplicate, "task %s has more than one block", b.TaskID)
		case int(span.Minutes()) != t.EstimatedMinutes:
			add(ViolationDuration, "block %s lasts %.0f min, task %s estimates %d", b.ID, span.Minutes(), t.ID, t.EstimatedMinutes)
		}
		seen[b.TaskID] = true
	}

	if got := len(blocks) + len(plan.Unscheduled) + len(plan.Skipped); got != len(f.Tasks) {
		add(ViolationAccounting, "%d blocks + %d unscheduled + %d skipped != %d tasks",
			len(blocks), len(plan.Unscheduled), len(plan.Skipped), len(f.Tasks))
	}
	if plan.UnscheduledCount != len(plan.Unscheduled) {
		add(ViolationAccounting, "unscheduled_count %d != %d listed", plan.UnscheduledCount, len(plan.Unscheduled))
	}
	return out
}

// VerifyCalendar checks that the export carries one event per commitment
// and per block.
func VerifyCalendar(f Fixture, plan types.ScheduleResponse, cal *ical.Calendar) []Violation {
	want := len(f.Commitments) + len(plan.Blocks)
	if got := len(cal.Events()); got != want {
		return []Violation{{
			UserID: f.UserID,
			Kind:   ViolationCalendar,
			Detail: fmt.Sprintf("%d events, want %d commitments + blocks", got, want),
		}}
	}
	return nil
}
