package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/quill-cli/internal/core/domain"
)

// fileConfig is the on-disk TOML shape.
type fileConfig struct {
	Embedding  embeddingConfig  `toml:"embedding"`
	Generation generationConfig `toml:"generation"`
	Hybrid     hybridConfig     `toml:"hybrid"`
}

type embeddingConfig struct {
	Provider    string `toml:"provider"`
	Model       string `toml:"model"`
	BaseURL     string `toml:"base_url"`
	APIKey      string `toml:"api_key"`
	Concurrency int    `toml:"concurrency"`
}

type generationConfig struct {
	Provider string `toml:"provider"`
	Model    string `toml:"model"`
	BaseURL  string `toml:"base_url"`
	APIKey   string `toml:"api_key"`
}

type hybridConfig struct {
	K            int     `toml:"k"`
	VectorWeight float64 `toml:"vector_weight"`
	FTSWeight    float64 `toml:"fts_weight"`
}

// ConfigStore is a TOML-backed configuration store. Configuration lives
// in a single file within the quill config directory; Set persists
// immediately so edits survive the process.
type ConfigStore struct {
	mu       sync.RWMutex
	filePath string
	cfg      fileConfig
}

// NewConfigStore creates a TOML-based config store.
// If configDir is empty, defaults to ~/.quill/config.toml.
func NewConfigStore(configDir string) (*ConfigStore, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		configDir = filepath.Join(home, ".quill")
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, err
	}

	s := &ConfigStore{
		filePath: filepath.Join(configDir, "config.toml"),
	}

	if err := s.Load(); err != nil {
		return nil, err
	}

	return s, nil
}

// Load reads configuration from the TOML file. A missing file is not an
// error; the store starts empty.
func (s *ConfigStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			s.cfg = fileConfig{}
			return nil
		}
		return err
	}

	var loaded fileConfig
	if err := toml.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("parse %s: %w", s.filePath, err)
	}

	s.cfg = loaded
	return nil
}

// Save persists the current configuration to disk.
func (s *ConfigStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save()
}

// save writes configuration to the TOML file (caller must hold lock).
func (s *ConfigStore) save() error {
	data, err := toml.Marshal(s.cfg)
	if err != nil {
		return err
	}

	// API keys may be present; keep the file private.
	return os.WriteFile(s.filePath, data, 0600)
}

// EmbeddingSettings returns the embedding provider configuration.
// API keys fall back to the provider's conventional environment variable
// when the file leaves them empty.
func (s *ConfigStore) EmbeddingSettings() domain.EmbeddingSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c := s.cfg.Embedding
	return domain.EmbeddingSettings{
		Provider:         domain.AIProvider(c.Provider),
		Model:            c.Model,
		BaseURL:          c.BaseURL,
		APIKey:           keyOrEnv(c.APIKey, domain.AIProvider(c.Provider)),
		BatchConcurrency: c.Concurrency,
	}
}

// GenerationSettings returns the generation provider configuration.
func (s *ConfigStore) GenerationSettings() domain.GenerationSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c := s.cfg.Generation
	return domain.GenerationSettings{
		Provider: domain.AIProvider(c.Provider),
		Model:    c.Model,
		BaseURL:  c.BaseURL,
		APIKey:   keyOrEnv(c.APIKey, domain.AIProvider(c.Provider)),
	}
}

// HybridSettings returns the fusion tuning. Unset fields are zero here;
// callers normalise.
func (s *ConfigStore) HybridSettings() domain.HybridSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c := s.cfg.Hybrid
	return domain.HybridSettings{
		K:            c.K,
		VectorWeight: c.VectorWeight,
		FTSWeight:    c.FTSWeight,
	}
}

// Set updates a single dotted key ("embedding.model", "hybrid.k") and
// persists immediately. Unknown keys are an error so typos surface.
func (s *ConfigStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch key {
	case "embedding.provider":
		s.cfg.Embedding.Provider = value
	case "embedding.model":
		s.cfg.Embedding.Model = value
	case "embedding.base_url":
		s.cfg.Embedding.BaseURL = value
	case "embedding.api_key":
		s.cfg.Embedding.APIKey = value
	case "embedding.concurrency":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		s.cfg.Embedding.Concurrency = n
	case "generation.provider":
		s.cfg.Generation.Provider = value
	case "generation.model":
		s.cfg.Generation.Model = value
	case "generation.base_url":
		s.cfg.Generation.BaseURL = value
	case "generation.api_key":
		s.cfg.Generation.APIKey = value
	case "hybrid.k":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		s.cfg.Hybrid.K = n
	case "hybrid.vector_weight":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		s.cfg.Hybrid.VectorWeight = f
	case "hybrid.fts_weight":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		s.cfg.Hybrid.FTSWeight = f
	default:
		return fmt.Errorf("%w: unknown config key %q", domain.ErrInvalidArgument, key)
	}

	return s.save()
}

// Keys returns the settable config keys, for help output.
func Keys() []string {
	return []string{
		"embedding.provider",
		"embedding.model",
		"embedding.base_url",
		"embedding.api_key",
		"embedding.concurrency",
		"generation.provider",
		"generation.model",
		"generation.base_url",
		"generation.api_key",
		"hybrid.k",
		"hybrid.vector_weight",
		"hybrid.fts_weight",
	}
}

// Path returns the configuration file path.
func (s *ConfigStore) Path() string {
	return s.filePath
}

// keyOrEnv resolves an API key, preferring the config file and falling
// back to the provider's environment variable.
func keyOrEnv(key string, provider domain.AIProvider) string {
	if key != "" {
		return key
	}
	switch provider {
	case domain.AIProviderOpenAI:
		return os.Getenv("OPENAI_API_KEY")
	case domain.AIProviderAnthropic:
		return os.Getenv("ANTHROPIC_API_KEY")
	default:
		return ""
	}
}
