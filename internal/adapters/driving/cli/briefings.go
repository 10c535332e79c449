package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var briefingsLimit int

var briefingsCmd = &cobra.Command{
	Use:   "briefings",
	Short: "Inspect the shared briefing log",
	RunE:  runBriefingsList,
}

var briefingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent briefings, newest first",
	RunE:  runBriefingsList,
}

var briefingsMarkSentCmd = &cobra.Command{
	Use:   "mark-sent [id]",
	Short: "Mark a briefing as delivered",
	Args:  cobra.ExactArgs(1),
	RunE:  runBriefingsMarkSent,
}

func init() {
	briefingsCmd.PersistentFlags().IntVarP(&briefingsLimit, "limit", "n", 20, "maximum briefings to list")
	briefingsCmd.AddCommand(briefingsListCmd)
	briefingsCmd.AddCommand(briefingsMarkSentCmd)
	rootCmd.AddCommand(briefingsCmd)
}

func runBriefingsList(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	briefings, err := a.store.BriefingStore().List(cmd.Context(), briefingsLimit)
	if err != nil {
		return fmt.Errorf("list briefings: %w", err)
	}

	if len(briefings) == 0 {
		cmd.Println("No briefings.")
		return nil
	}
	for _, b := range briefings {
		sent := " "
		if b.Sent {
			sent = "x"
		}
		cmd.Printf("[%s] %d  %s  %s\n", sent, b.ID, b.GeneratedAt.Format("2006-01-02 15:04"), b.Type)
		cmd.Printf("    %s\n", b.Content)
	}
	return nil
}

func runBriefingsMarkSent(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid briefing id %q", args[0])
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.store.BriefingStore().MarkSent(cmd.Context(), id); err != nil {
		return fmt.Errorf("mark briefing sent: %w", err)
	}
	cmd.Printf("Briefing %d marked sent.\n", id)
	return nil
}
