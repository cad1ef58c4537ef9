package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/quill-cli/internal/core/domain"
	"github.com/custodia-labs/quill-cli/internal/core/ports/driving"
)

var (
	searchLimit    int
	searchJSON     bool
	searchMode     string
	searchFeed     string
	searchSource   string
	searchDays     int
	searchMinScore float64
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed digests",
	Long: `Performs hybrid search across all indexed digests.
Combines keyword (BM25) and semantic (vector) search, fused with
reciprocal rank fusion. Use --mode to run a single method instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "maximum number of results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	searchCmd.Flags().StringVarP(&searchMode, "mode", "m", "hybrid", "search mode: hybrid, vector or fts")
	searchCmd.Flags().StringVar(&searchFeed, "feed", "", "restrict to one feed")
	searchCmd.Flags().StringVar(&searchSource, "source", "", "restrict to one source")
	searchCmd.Flags().IntVar(&searchDays, "days", 0, "restrict to digests published in the last N days")
	searchCmd.Flags().Float64Var(&searchMinScore, "min-score", 0, "drop results scoring below this threshold")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]

	if searchService == nil {
		return errors.New("search service not configured")
	}

	opts := driving.SearchOptions{
		Limit:   searchLimit,
		Mode:    domain.SearchMode(searchMode),
		Filters: buildFilters(searchFeed, searchSource, searchDays, searchMinScore),
	}

	resp, err := searchService.Search(cmd.Context(), query, opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputJSON(cmd, resp)
	}

	return outputSearchTable(cmd, resp)
}

func outputJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, resp *domain.SearchResponse) error {
	if len(resp.Results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	width := snippetWidth()

	cmd.Println("Results:")
	cmd.Println()
	for i := range resp.Results {
		r := &resp.Results[i]
		title := r.Title
		if title == "" {
			title = r.DigestID
		}

		cmd.Printf("  [%d] %s (%.2f)\n", i+1, title, r.Score)
		cmd.Printf("      Found by: %s\n", joinMethods(r.Sources))
		if r.URL != "" {
			cmd.Printf("      URL: %s\n", r.URL)
		}
		if len(r.MatchedChunks) > 0 {
			cmd.Printf("      %s\n", truncate(oneLine(r.MatchedChunks[0].Text), width))
		}
		cmd.Println()
	}

	cmd.Printf("%d results (%s, %dms)\n", resp.Total, resp.Mode, resp.TookMS)
	return nil
}

// buildFilters assembles the shared corpus filters from command flags.
func buildFilters(feed, source string, days int, minScore float64) domain.SearchFilters {
	filters := domain.SearchFilters{
		Days:     days,
		MinScore: minScore,
	}
	if feed != "" {
		filters.FeedID = &feed
	}
	if source != "" {
		filters.SourceID = &source
	}
	return filters
}

// snippetWidth returns the usable snippet width based on the terminal,
// with a sane fallback when stdout is not a terminal.
func snippetWidth() int {
	const fallback = 100
	const indent = 6

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fallback
	}
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= indent+20 {
		return fallback
	}
	return w - indent
}

func truncate(s string, width int) string {
	if width <= 1 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-1]) + "…"
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func joinMethods(methods []domain.SearchMethod) string {
	if len(methods) == 0 {
		return "-"
	}
	parts := make([]string, len(methods))
	for i, m := range methods {
		parts[i] = string(m)
	}
	return strings.Join(parts, ", ")
}
