package loadgen

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/morywal/CalendarApp/internal/domain/model"
	"github.com/morywal/CalendarApp/internal/domain/types"
)

// Fixture shape constants.
const (
	commitmentEarliestHour = 8
	commitmentLatestHour   = 19
	commitmentStepMinutes  = 30
	commitmentMaxSteps     = 4
	taskStepMinutes        = 15
	taskMaxSteps           = 12
)

var (
	recurrences = []model.Recurrence{
		model.RecurrenceNone, model.RecurrenceNone,
		model.RecurrenceDaily,
		model.RecurrenceWeekly, model.RecurrenceWeekly,
		model.RecurrenceMonthly,
	}
	categories = []string{"work", "personal", "health", "study", "errands"}
	verbs      = []string{"Write", "Review", "Plan", "Fix", "Call", "Read", "Prepare", "Clean"}
	nouns      = []string{"report", "slides", "budget", "garden", "notes", "invoice", "proposal", "kitchen"}
)

// Generator builds random fixtures. It is not safe for concurrent use.
type Generator struct {
	rnd *rand.Rand
}

// NewGenerator returns a generator seeded with seed. Equal seeds produce
// equal fixtures apart from user IDs.
func NewGenerator(seed uint64) *Generator {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Generator{rnd: rand.New(rand.NewPCG(seed, seed>>1|1))}
}

// Fixture generates one user's calendar. Commitments are anchored on dates
// between from and from+days in from's location.
func (g *Generator) Fixture(from time.Time, days, commitments, tasks int) Fixture {
	f := Fixture{
		UserID:      "load-" + uuid.NewString(),
		Commitments: make([]types.Commitment, 0, commitments),
		Tasks:       make([]types.Task, 0, tasks),
	}
	for i := range commitments {
		f.Commitments = append(f.Commitments, g.commitment(i, model.Date(from), days))
	}
	for i := range tasks {
		f.Tasks = append(f.Tasks, g.task(i))
	}
	return f
}

func (g *Generator) commitment(i int, day time.Time, days int) types.Commitment {
	day = day.AddDate(0, 0, g.rnd.IntN(days+1))
	hour := commitmentEarliestHour + g.rnd.IntN(commitmentLatestHour-commitmentEarliestHour)
	start := time.Date(day.Year(), day.Month(), day.Day(), hour, commitmentStepMinutes*g.rnd.IntN(2), 0, 0, day.Location())
	end := start.Add(time.Duration(commitmentStepMinutes*(1+g.rnd.IntN(commitmentMaxSteps))) * time.Minute)
	rec := recurrences[g.rnd.IntN(len(recurrences))]

	c := types.Commitment{
		Title:      fmt.Sprintf("Commitment %d", i+1),
		Start:      start,
		End:        end,
		Recurrence: string(rec),
		Priority:   model.MinPriority + g.rnd.IntN(model.MaxPriority),
		Category:   categories[g.rnd.IntN(len(categories))],
	}
	if rec != model.RecurrenceNone && g.rnd.IntN(2) == 0 {
		until := model.Date(start).AddDate(0, 0, 1+g.rnd.IntN(days+1))
		c.RecurrenceEnd = &until
	}
	return c
}

func (g *Generator) task(i int) types.Task {
	title := fmt.Sprintf("%s %s #%d", verbs[g.rnd.IntN(len(verbs))], nouns[g.rnd.IntN(len(nouns))], i+1)
	return types.Task{
		Title:            title,
		EstimatedMinutes: taskStepMinutes * (1 + g.rnd.IntN(taskMaxSteps)),
		Priority:         model.MinPriority + g.rnd.IntN(model.MaxPriority),
		Category:         categories[g.rnd.IntN(len(categories))],
	}
}
