package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/quill-cli/internal/core/domain"
	"github.com/custodia-labs/quill-cli/internal/core/ports/driving"
)

var (
	exportFormat string
	exportOutput string
	exportChunks int
	exportFeed   string
	exportSource string
	exportDays   int
)

var exportCmd = &cobra.Command{
	Use:   "export [question]",
	Short: "Export the sources for a question",
	Long: `Retrieves the supporting chunks for a question and renders them as a
citation list, without generating an answer. Markdown output is meant
for notes; JSON output for downstream tooling.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "markdown", "export format: markdown or json")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "write to file instead of stdout")
	exportCmd.Flags().IntVarP(&exportChunks, "chunks", "c", 5, "maximum number of chunks")
	exportCmd.Flags().StringVar(&exportFeed, "feed", "", "restrict to one feed")
	exportCmd.Flags().StringVar(&exportSource, "source", "", "restrict to one source")
	exportCmd.Flags().IntVar(&exportDays, "days", 0, "restrict to digests published in the last N days")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	question := args[0]

	if ragService == nil {
		return errors.New("RAG service not configured")
	}

	opts := driving.RAGOptions{
		MaxChunks: exportChunks,
		Filters:   buildFilters(exportFeed, exportSource, exportDays, 0),
	}

	result, err := ragService.Export(cmd.Context(), question, domain.ExportFormat(exportFormat), opts)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	if exportOutput != "" {
		if err := os.WriteFile(exportOutput, []byte(result.Content), 0644); err != nil {
			return fmt.Errorf("write %s: %w", exportOutput, err)
		}
		cmd.Printf("Exported %d chunks from %d sources to %s\n",
			result.ChunksCount, result.SourcesCount, exportOutput)
		return nil
	}

	cmd.Println(result.Content)
	return nil
}
