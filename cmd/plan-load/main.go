package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/morywal/CalendarApp/internal/loadgen"
)

const (
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := &loadgen.Config{}
	var (
		logFile string
		limit   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "plan-load",
		Short: "Seed a running planner with synthetic users and verify every plan",
		Example: `  plan-load --users 500 --workers 16 --url http://localhost:8080
  plan-load --seed 42 --output report.json --verbose`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			closeLog, err := loadgen.SetupLogging(cmd.OutOrStdout(), logFile, cfg.Verbose)
			if err != nil {
				return err
			}
			defer func() { _ = closeLog() }()

			ctx, cancel := context.WithTimeout(cmd.Context(), limit)
			defer cancel()
			if _, err := loadgen.Run(ctx, cfg); err != nil {
				return fmt.Errorf("load run failed: %w", err)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&cfg.BaseURL, "url", loadgen.DefaultBaseURL, "base URL of the service")
	f.IntVar(&cfg.Users, "users", loadgen.DefaultUsers, "number of synthetic users")
	f.IntVar(&cfg.TasksPerUser, "tasks", loadgen.DefaultTasksPerUser, "pending tasks per user")
	f.IntVar(&cfg.CommitmentsPerUser, "commitments", loadgen.DefaultCommitmentsPerUser, "fixed commitments per user")
	f.IntVar(&cfg.Workers, "workers", runtime.NumCPU()*defaultWorkers, "concurrent users in flight")
	f.DurationVar(&cfg.Timeout, "timeout", loadgen.DefaultTimeout, "HTTP request timeout")
	f.Float64Var(&cfg.RequestsPerSecond, "rate", 0, "cap on requests per second across workers (0 is unlimited)")
	f.Uint64Var(&cfg.Seed, "seed", 0, "fixture seed (0 picks one from the clock)")
	f.StringVar(&cfg.OutputFile, "output", "", "write a JSON report of every user to this file")
	f.StringVar(&logFile, "log", "", "also log to this file")
	f.BoolVar(&cfg.Verbose, "verbose", false, "log every violation")
	f.DurationVar(&limit, "limit", defaultTestTimeout, "overall run time limit")
	return cmd
}
