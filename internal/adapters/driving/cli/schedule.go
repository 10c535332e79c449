package cli

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docpipe/internal/scheduler"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run periodic sync passes until interrupted",
	Long: `Starts the scheduler and keeps the index in sync at the configured
interval. Stops cleanly on SIGINT or SIGTERM; a pass already in flight
finishes first.`,
	RunE: runSchedule,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
}

func runSchedule(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.withSync(ctx); err != nil {
		return err
	}

	interval := time.Duration(a.cfg.Schedule.IntervalMinutes) * time.Minute
	sched := scheduler.New(a.orchestrator, scheduler.WithInterval(interval))

	cmd.Printf("Syncing every %s. Press Ctrl+C to stop.\n", interval)
	if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
