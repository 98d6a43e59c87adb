package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/morywal/CalendarApp/internal/adapters/repository"
	"github.com/morywal/CalendarApp/internal/adapters/repository/sqlite"
	service "github.com/morywal/CalendarApp/internal/app"
	"github.com/morywal/CalendarApp/internal/config"
	"github.com/morywal/CalendarApp/pkg/logger"
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintln(stderr, err.Error())
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:           "calendarapp",
		Short:         "Greedy calendar planner",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if configPath != "" {
				return os.Setenv(config.EnvConfigFile, configPath)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (overrides "+config.EnvConfigFile+")")
	root.AddCommand(newServeCmd(), newScheduleCmd())
	return root
}

// bootstrap loads configuration and initializes the global logger writing
// to logOut.
func bootstrap(ctx context.Context, logOut io.Writer) (*config.Config, logger.Logger, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := logger.Init(logger.WithWriter(logOut), logger.WithJSON(cfg.LogJSON)); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logging: %w", err)
	}
	log := logger.Get()
	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	return cfg, log, nil
}

func openStore(ctx context.Context, cfg *config.Config, log logger.Logger) (repository.Store, error) {
	prefs, err := cfg.Preferences()
	if err != nil {
		return nil, err
	}
	switch cfg.Store {
	case config.StoreSQLite:
		s, err := sqlite.Open(ctx, cfg.DBPath,
			sqlite.WithDefaultPreferences(prefs),
			sqlite.WithLogger(log.Named("sqlite")),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store %s: %w", cfg.DBPath, err)
		}
		return s, nil
	default:
		return repository.NewMemoryStore(repository.WithDefaultPreferences(prefs)), nil
	}
}

func newService(store repository.Store, cfg *config.Config, log logger.Logger) (*service.Service, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	return service.New(store,
		service.WithLogger(log.Named("service")),
		service.WithLocation(loc),
		service.WithHorizonDays(cfg.HorizonDays),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithQueueSize(cfg.QueueSize),
		service.WithRescheduleCron(cfg.RescheduleCron),
		service.WithScoringOptions(cfg.ScoringOptions()...),
		service.WithEstimateDefaults(cfg.EstimateDefaultMinutes, cfg.EstimateHistoryMinSamples),
	), nil
}
