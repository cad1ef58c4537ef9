// Package cli implements the quill command-line interface on top of the
// driving ports. Commands hold no business logic; they parse flags, call
// a service and render the result.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/quill-cli/internal/adapters/driven/config/file"
	"github.com/custodia-labs/quill-cli/internal/core/ports/driving"
	"github.com/custodia-labs/quill-cli/internal/logger"
)

// version is overridden at build time via -ldflags.
var version = "dev"

// Services wired by the composition root before Execute.
var (
	searchService driving.SearchService
	ragService    driving.RAGService
	configStore   *file.ConfigStore
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "quill",
	Short: "Hybrid search and grounded answers over indexed digests",
	Long: `Quill searches an indexed digest corpus with fused semantic and
full-text retrieval, and answers questions grounded in the retrieved
chunks with numbered citations.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging to stderr")
}

// Services bundles the ports the commands depend on.
type Services struct {
	Search driving.SearchService
	RAG    driving.RAGService
	Config *file.ConfigStore
}

// SetServices wires the service dependencies. Must be called before
// Execute.
func SetServices(s Services) {
	searchService = s.Search
	ragService = s.RAG
	configStore = s.Config
}

// SetVersion sets the version string reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
