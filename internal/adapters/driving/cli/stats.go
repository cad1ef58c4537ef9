package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index and fusion statistics",
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "output statistics as JSON")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	if searchService == nil {
		return errors.New("search service not configured")
	}

	stats, err := searchService.Stats(cmd.Context())
	if err != nil {
		return fmt.Errorf("stats failed: %w", err)
	}

	if statsJSON {
		return outputJSON(cmd, stats)
	}

	cmd.Println("Index")
	cmd.Printf("  Digests with chunks: %d\n", stats.TotalDigestsWithChunks)
	cmd.Printf("  Chunks:              %d\n", stats.TotalChunks)
	cmd.Println()
	cmd.Println("Fusion")
	cmd.Printf("  RRF k:          %d\n", stats.K)
	cmd.Printf("  Vector weight:  %.2f\n", stats.VectorWeight)
	cmd.Printf("  FTS weight:     %.2f\n", stats.FTSWeight)
	cmd.Println()
	cmd.Println("Embedding")
	if stats.EmbeddingProvider == "" {
		cmd.Println("  Provider: (not configured)")
	} else {
		cmd.Printf("  Provider:  %s\n", stats.EmbeddingProvider)
		cmd.Printf("  Dimension: %d\n", stats.EmbeddingDimension)
	}

	return nil
}
