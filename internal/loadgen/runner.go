package loadgen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/morywal/CalendarApp/internal/domain/types"
	"github.com/morywal/CalendarApp/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
	reportPermission    = 0600
)

// Errors returned by Run.
var (
	ErrViolations     = errors.New("plan violations found")
	ErrRequestsFailed = errors.New("user runs failed")
)

// UserReport is the outcome of one synthetic user.
type UserReport struct {
	Fixture    Fixture                `json:"fixture"`
	Plan       types.ScheduleResponse `json:"plan"`
	Violations []Violation            `json:"violations,omitempty"`
	Err        string                 `json:"error,omitempty"`
}

// Run seeds cfg.Users synthetic users, schedules each one and verifies the
// plans. Statistics are returned even when the run fails.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	log := logger.Get().Named("loadgen")
	stats := &Stats{StartTime: time.Now()}

	log.Info(ctx, "starting planner load run",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("users", cfg.Users),
		logger.Int("tasksPerUser", cfg.TasksPerUser),
		logger.Int("commitmentsPerUser", cfg.CommitmentsPerUser),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout),
		logger.Float64("requestsPerSecond", cfg.RequestsPerSecond),
	)

	client := NewClient(cfg.BaseURL, cfg.Timeout, cfg.RequestsPerSecond)
	if err := client.Health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	// A preview of an unknown user reveals the server's horizon and zone.
	probe, err := client.FreeBlocks(ctx, "load-probe")
	if err != nil {
		return stats, fmt.Errorf("horizon probe failed: %w", err)
	}
	days := int(probe.HorizonEnd.Sub(probe.HorizonStart).Hours()/24 + 0.5)

	gen := NewGenerator(cfg.Seed)
	fixtures := make([]Fixture, cfg.Users)
	for i := range fixtures {
		fixtures[i] = gen.Fixture(probe.HorizonStart, days, cfg.CommitmentsPerUser, cfg.TasksPerUser)
	}
	log.Info(ctx, "generated fixtures", logger.Int("users", len(fixtures)), logger.Int("horizonDays", days+1))

	reports := runUsers(ctx, client, cfg, fixtures)

	for _, r := range reports {
		if r.Fixture.UserID == "" {
			continue // not dispatched before cancellation
		}
		stats.Users++
		stats.CommitmentsCreated += countIDs(r.Fixture.Commitments, func(c types.Commitment) string { return c.ID })
		stats.TasksCreated += countIDs(r.Fixture.Tasks, func(t types.Task) string { return t.ID })
		stats.BlocksScheduled += len(r.Plan.Blocks)
		stats.Unscheduled += len(r.Plan.Unscheduled)
		stats.Skipped += len(r.Plan.Skipped)
		stats.Violations += len(r.Violations)
		if r.Err != "" {
			stats.RequestsFailed++
			log.Warn(ctx, "user run failed", logger.String("user", r.Fixture.UserID), logger.String("error", r.Err))
		}
		if cfg.Verbose {
			for _, v := range r.Violations {
				log.Warn(ctx, "plan violation", logger.String("violation", v.String()))
			}
		}
	}

	if cfg.OutputFile != "" {
		if err := saveReports(cfg.OutputFile, reports); err != nil {
			log.Warn(ctx, "failed to save report", logger.Error(err))
		} else {
			log.Info(ctx, "report saved", logger.String("file", cfg.OutputFile))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, log, stats)

	if err := ctx.Err(); err != nil {
		return stats, err
	}
	if stats.RequestsFailed > 0 {
		return stats, fmt.Errorf("%w: %d", ErrRequestsFailed, stats.RequestsFailed)
	}
	if stats.Violations > 0 {
		return stats, fmt.Errorf("%w: %d", ErrViolations, stats.Violations)
	}
	return stats, nil
}

// runUsers processes fixtures with cfg.Workers concurrent users in flight.
func runUsers(ctx context.Context, client *Client, cfg *Config, fixtures []Fixture) []UserReport {
	workers := max(1, min(cfg.Workers, len(fixtures)))
	reports := make([]UserReport, len(fixtures))
	indices := make(chan int, workers*workerChannelMultiplier)

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indices {
				reports[i] = runUser(ctx, client, fixtures[i])
			}
		}()
	}

	go func() {
		defer close(indices)
		for i := range fixtures {
			select {
			case <-ctx.Done():
				return
			case indices <- i:
			}
		}
	}()

	wg.Wait()
	return reports
}

// runUser seeds, schedules and verifies a single user.
func runUser(ctx context.Context, client *Client, f Fixture) UserReport {
	r := UserReport{Fixture: f}
	fail := func(err error) UserReport {
		r.Err = err.Error()
		return r
	}

	for i, c := range r.Fixture.Commitments {
		created, err := client.CreateCommitment(ctx, f.UserID, c)
		if err != nil {
			return fail(err)
		}
		r.Fixture.Commitments[i] = created
	}
	for i, t := range r.Fixture.Tasks {
		created, err := client.CreateTask(ctx, f.UserID, t)
		if err != nil {
			return fail(err)
		}
		r.Fixture.Tasks[i] = created
	}

	plan, err := client.Schedule(ctx, f.UserID)
	if err != nil {
		return fail(err)
	}
	r.Plan = plan

	wire, err := client.Preferences(ctx, f.UserID)
	if err != nil {
		return fail(err)
	}
	prefs, err := wire.ToModel()
	if err != nil {
		return fail(err)
	}
	r.Violations = Verify(r.Fixture, prefs, plan)

	cal, err := client.Calendar(ctx, f.UserID)
	if err != nil {
		return fail(err)
	}
	r.Violations = append(r.Violations, VerifyCalendar(r.Fixture, plan, cal)...)
	return r
}

func countIDs[T any](xs []T, id func(T) string) int {
	n := 0
	for _, x := range xs {
		if id(x) != "" {
			n++
		}
	}
	return n
}

func saveReports(filename string, reports []UserReport) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(reports, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	return os.WriteFile(filename, data, reportPermission)
}

// displayFinalStats logs the run summary.
func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var placedRate, usersPerSecond float64
	if stats.TasksCreated > 0 {
		placedRate = float64(stats.BlocksScheduled) / float64(stats.TasksCreated) * percentageMultiplier
	}
	if stats.Duration > 0 {
		usersPerSecond = float64(stats.Users) / stats.Duration.Seconds()
	}

	log.Info(ctx, "final statistics",
		logger.Int("users", stats.Users),
		logger.Int("commitmentsCreated", stats.CommitmentsCreated),
		logger.Int("tasksCreated", stats.TasksCreated),
		logger.Int("blocksScheduled", stats.BlocksScheduled),
		logger.Int("unscheduled", stats.Unscheduled),
		logger.Int("skipped", stats.Skipped),
		logger.Int("requestsFailed", stats.RequestsFailed),
		logger.Int("violations", stats.Violations),
		logger.Duration("duration", stats.Duration),
		logger.Float64("placedRate", placedRate),
		logger.Float64("usersPerSecond", usersPerSecond))
}
