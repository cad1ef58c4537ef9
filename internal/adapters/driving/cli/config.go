package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/quill-cli/internal/adapters/driven/ai"
	"github.com/custodia-labs/quill-cli/internal/adapters/driven/config/file"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage quill configuration",
	Long: `View and edit provider and search-tuning configuration.

Settings live in a TOML file (see 'quill config path'). Hybrid tuning
changes are picked up by running servers without a restart.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a configuration value",
	Long:  "Set a configuration value by dotted key, e.g.\n\n  quill config set embedding.provider ollama\n  quill config set hybrid.k 30",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate provider configuration and connectivity",
	RunE:  runConfigCheck,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	RunE:  runConfigPath,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configCheckCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	embedding := configStore.EmbeddingSettings()
	generation := configStore.GenerationSettings()
	hybrid := configStore.HybridSettings().Normalised()

	cmd.Println("[embedding]")
	cmd.Printf("  provider: %s\n", orUnset(embedding.Provider.String()))
	cmd.Printf("  model:    %s\n", orUnset(embedding.Model))
	if embedding.BaseURL != "" {
		cmd.Printf("  base_url: %s\n", embedding.BaseURL)
	}
	if embedding.Provider.RequiresAPIKey() {
		cmd.Printf("  api_key:  %s\n", maskAPIKey(embedding.APIKey))
	}
	cmd.Printf("  status:   %s\n", configuredStatus(embedding.IsConfigured()))
	cmd.Println()

	cmd.Println("[generation]")
	cmd.Printf("  provider: %s\n", orUnset(generation.Provider.String()))
	cmd.Printf("  model:    %s\n", orUnset(generation.Model))
	if generation.BaseURL != "" {
		cmd.Printf("  base_url: %s\n", generation.BaseURL)
	}
	if generation.Provider.RequiresAPIKey() {
		cmd.Printf("  api_key:  %s\n", maskAPIKey(generation.APIKey))
	}
	cmd.Printf("  status:   %s\n", configuredStatus(generation.IsConfigured()))
	cmd.Println()

	cmd.Println("[hybrid]")
	cmd.Printf("  k:             %d\n", hybrid.K)
	cmd.Printf("  vector_weight: %.2f\n", hybrid.VectorWeight)
	cmd.Printf("  fts_weight:    %.2f\n", hybrid.FTSWeight)

	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	key, value := args[0], args[1]
	if err := configStore.Set(key, value); err != nil {
		return fmt.Errorf("set %s: %w (known keys: %v)", key, err, file.Keys())
	}

	cmd.Printf("Set %s\n", key)
	return nil
}

func runConfigCheck(cmd *cobra.Command, _ []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	failed := false

	embedding := configStore.EmbeddingSettings()
	cmd.Print("Embedding provider:  ")
	if !embedding.IsConfigured() {
		cmd.Println("not configured (vector search disabled)")
	} else if _, err := ai.CreateAndValidateEmbeddingProvider(&embedding); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		failed = true
	} else {
		cmd.Printf("OK (%s, %s)\n", embedding.Provider, embedding.Model)
	}

	generation := configStore.GenerationSettings()
	cmd.Print("Generation provider: ")
	if !generation.IsConfigured() {
		cmd.Println("not configured (answers disabled, citations still work)")
	} else if _, err := ai.CreateAndValidateGenerationProvider(&generation); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		failed = true
	} else {
		cmd.Printf("OK (%s, %s)\n", generation.Provider, generation.Model)
	}

	if failed {
		return errors.New("configuration check failed")
	}
	return nil
}

func runConfigPath(cmd *cobra.Command, _ []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}
	cmd.Println(configStore.Path())
	return nil
}

func orUnset(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}

func configuredStatus(configured bool) string {
	if configured {
		return "configured"
	}
	return "not configured"
}

func maskAPIKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
