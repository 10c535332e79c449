package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docpipe/internal/core/domain"
)

var syncCmd = &cobra.Command{
	Use:   "sync [type]",
	Short: "Reconcile sources against the local index",
	Long: `Runs one incremental sync pass. With a type argument ("filestore" or
"mailbox") only that source is reconciled; without one, every configured
source is.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	if err := a.withSync(ctx); err != nil {
		return err
	}

	var stats domain.SyncStats
	if len(args) > 0 {
		stats, err = a.orchestrator.Sync(ctx, args[0])
	} else {
		stats, err = a.orchestrator.SyncAll(ctx)
	}
	printStats(cmd, stats)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}
	return nil
}

func printStats(cmd *cobra.Command, stats domain.SyncStats) {
	cmd.Printf("Indexed %d, deleted %d, skipped %d, errors %d\n",
		stats.Added, stats.Deleted, stats.Skipped, stats.Errors)
}
