package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docpipe/internal/core/domain"
	"github.com/custodia-labs/docpipe/internal/core/services"
)

var (
	searchTopK       int
	searchSourceType string
	searchAfter      string
	searchJSON       bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the index by semantic similarity",
	Long: `Embeds the query and returns the most similar indexed passages with
their source attribution.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", services.DefaultTopK, "maximum number of passages")
	searchCmd.Flags().StringVar(&searchSourceType, "source-type", "", "restrict to one source type (file, mail_body, mail_attachment)")
	searchCmd.Flags().StringVar(&searchAfter, "after", "", "only passages created on or after this date (YYYY-MM-DD)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	filter := domain.SearchFilter{
		SourceType: domain.SourceType(searchSourceType),
	}
	if searchAfter != "" {
		after, err := time.Parse("2006-01-02", searchAfter)
		if err != nil {
			return fmt.Errorf("invalid --after date %q: %w", searchAfter, err)
		}
		filter.AfterDate = after
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	if err := a.withEmbedder(ctx); err != nil {
		return err
	}

	passages, err := a.retriever.Search(ctx, args[0], filter, searchTopK)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		data, err := json.MarshalIndent(passages, "", "  ")
		if err != nil {
			return err
		}
		cmd.Println(string(data))
		return nil
	}

	if len(passages) == 0 {
		cmd.Println("No results.")
		return nil
	}
	for i, p := range passages {
		cmd.Printf("[%d] %s (%s, %.3f)\n", i+1, p.Attribution, p.SourceType, p.Similarity)
		if !p.CreatedDate.IsZero() {
			cmd.Printf("    %s\n", p.CreatedDate.Format("2006-01-02"))
		}
		cmd.Printf("    %s\n\n", p.Content)
	}
	return nil
}
