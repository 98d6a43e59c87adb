package main

import (
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"

	"github.com/morywal/CalendarApp/internal/config"
	"github.com/morywal/CalendarApp/internal/domain/types"
	"github.com/morywal/CalendarApp/pkg/logger"
)

func newScheduleCmd() *cobra.Command {
	var (
		userID string
		dbPath string
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the planner once for a user and print the result as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if userID == "" {
				return errors.New("--user is required")
			}
			ctx := cmd.Context()
			// stdout carries the JSON result.
			cfg, log, err := bootstrap(ctx, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if dbPath != "" {
				cfg.Store = config.StoreSQLite
				cfg.DBPath = dbPath
			}

			store, err := openStore(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer func() {
				if err := store.Close(); err != nil {
					log.Error(ctx, "store close failed", logger.Error(err))
				}
			}()
			svc, err := newService(store, cfg, log)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if dryRun {
				free, h, err := svc.Preview(ctx, userID)
				if err != nil {
					return err
				}
				return enc.Encode(types.FreeBlocksResponse{
					HorizonStart: h.From,
					HorizonEnd:   h.To,
					FreeBlocks:   types.FromFreeBlocks(free),
				})
			}

			res, err := svc.Schedule(ctx, userID)
			if err != nil {
				return err
			}
			unscheduled := res.Unscheduled
			if unscheduled == nil {
				unscheduled = []string{}
			}
			skipped := res.Skipped
			if skipped == nil {
				skipped = []string{}
			}
			return enc.Encode(types.ScheduleResponse{
				Blocks:           types.FromBlocks(res.Blocks),
				UnscheduledCount: len(res.Unscheduled),
				Unscheduled:      unscheduled,
				Skipped:          skipped,
				FreeBlocks:       res.FreeBlocks,
				HorizonStart:     res.Horizon.From,
				HorizonEnd:       res.Horizon.To,
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user to schedule")
	cmd.Flags().StringVar(&dbPath, "db", "", "sqlite database (selects the sqlite store)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print free blocks without committing a schedule")
	return cmd
}
