package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/quill-cli/internal/core/domain"
	"github.com/custodia-labs/quill-cli/internal/core/ports/driving"
)

var (
	askChunks        int
	askJSON          bool
	askCitationsOnly bool
	askFeed          string
	askSource        string
	askDays          int
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question grounded in indexed digests",
	Long: `Retrieves the most relevant chunks for a question and generates an
answer citing them by number. If no generation provider is configured,
or generation fails, the matching sources are shown without an answer.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().IntVarP(&askChunks, "chunks", "c", 5, "maximum number of supporting chunks")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the result as JSON")
	askCmd.Flags().BoolVar(&askCitationsOnly, "citations-only", false, "skip generation, show sources only")
	askCmd.Flags().StringVar(&askFeed, "feed", "", "restrict to one feed")
	askCmd.Flags().StringVar(&askSource, "source", "", "restrict to one source")
	askCmd.Flags().IntVar(&askDays, "days", 0, "restrict to digests published in the last N days")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := args[0]

	if ragService == nil {
		return errors.New("RAG service not configured")
	}

	opts := driving.RAGOptions{
		MaxChunks:     askChunks,
		IncludeAnswer: !askCitationsOnly,
		Filters:       buildFilters(askFeed, askSource, askDays, 0),
	}

	result, err := ragService.Query(cmd.Context(), question, opts)
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if askJSON {
		return outputJSON(cmd, result)
	}

	return outputAskText(cmd, result)
}

func outputAskText(cmd *cobra.Command, result *domain.RAGResult) error {
	if result.Answer != "" {
		cmd.Println(result.Answer)
		cmd.Println()
	}

	if len(result.Citations) == 0 {
		return nil
	}

	if !askCitationsOnly && !result.Grounded {
		cmd.Println("(answer generation unavailable, showing sources only)")
		cmd.Println()
	}

	cmd.Println("Sources:")
	for _, c := range result.Citations {
		cmd.Printf("  [%d] %s (%.2f)\n", c.ID, c.DigestTitle, c.RelevanceScore)
		if c.URL != "" {
			cmd.Printf("      %s\n", c.URL)
		}
	}

	if result.Grounded {
		cmd.Printf("\nAnswered by %s in %dms (retrieval %dms)\n",
			result.ModelUsed, result.TotalTookMS, result.SearchTookMS)
	}
	return nil
}
