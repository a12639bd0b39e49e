// Package config loads server configuration from a TOML file with
// environment variables supplying secrets.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Default configuration values.
const (
	DefaultListenAddr     = ":8000"
	DefaultFragmentSize   = 1000
	DefaultOverlap        = 200
	DefaultSemanticWeight = 0.5
	DefaultLexicalWeight  = 0.5
	DefaultRRFK           = 60
	DefaultMemoryWindow   = 5
	DefaultMaxRounds      = 5
	DefaultRetrievalK     = 4
	DefaultWebResults     = 5
)

// Config is the full server configuration.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Storage   StorageConfig   `toml:"storage"`
	Ingest    IngestConfig    `toml:"ingest"`
	Retrieval RetrievalConfig `toml:"retrieval"`
	Agent     AgentConfig     `toml:"agent"`
	Embedding EmbeddingConfig `toml:"embedding"`
	LLM       LLMConfig       `toml:"llm"`
	WebSearch WebSearchConfig `toml:"web_search"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	// ListenAddr is the address the HTTP server binds to.
	ListenAddr string `toml:"listen_addr"`
}

// StorageConfig configures on-disk state.
type StorageConfig struct {
	// DataDir holds the SQLite database and vector index files.
	// Defaults to ~/.finsync/data.
	DataDir string `toml:"data_dir"`
}

// IngestConfig configures document splitting.
type IngestConfig struct {
	FragmentSize int `toml:"fragment_size"`
	Overlap      int `toml:"overlap"`
}

// RetrievalConfig configures hybrid search fusion.
type RetrievalConfig struct {
	SemanticWeight float64 `toml:"semantic_weight"`
	LexicalWeight  float64 `toml:"lexical_weight"`
	RRFK           int     `toml:"rrf_k"`
	TopK           int     `toml:"top_k"`
}

// AgentConfig configures the conversation loop.
type AgentConfig struct {
	MaxRounds    int `toml:"max_rounds"`
	MemoryWindow int `toml:"memory_window"`
	WebResults   int `toml:"web_results"`
}

// EmbeddingConfig selects and configures the embedding backend.
type EmbeddingConfig struct {
	// Provider is "openai" or "huggingface".
	Provider string `toml:"provider"`
	Model    string `toml:"model"`

	// APIKey is filled from OPENAI_API_KEY or HF_API_TOKEN depending
	// on the provider, never from the file.
	APIKey string `toml:"-"`
}

// LLMConfig configures the language model backend.
type LLMConfig struct {
	Model   string `toml:"model"`
	BaseURL string `toml:"base_url"`

	// APIKey is filled from OPENAI_API_KEY, never from the file.
	APIKey string `toml:"-"`
}

// WebSearchConfig configures the optional web search tool.
type WebSearchConfig struct {
	// APIKey is filled from TAVILY_API_KEY, never from the file.
	// Web search is disabled when empty.
	APIKey string `toml:"-"`
}

// Default returns a configuration with all defaults applied.
func Default() *Config {
	return &Config{
		Server: ServerConfig{ListenAddr: DefaultListenAddr},
		Ingest: IngestConfig{FragmentSize: DefaultFragmentSize, Overlap: DefaultOverlap},
		Retrieval: RetrievalConfig{
			SemanticWeight: DefaultSemanticWeight,
			LexicalWeight:  DefaultLexicalWeight,
			RRFK:           DefaultRRFK,
			TopK:           DefaultRetrievalK,
		},
		Agent: AgentConfig{
			MaxRounds:    DefaultMaxRounds,
			MemoryWindow: DefaultMemoryWindow,
			WebResults:   DefaultWebResults,
		},
		Embedding: EmbeddingConfig{Provider: "openai"},
	}
}

// Load reads configuration from the TOML file at path, layered over
// defaults, then pulls secrets from the environment. A missing file is
// not an error; defaults apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// defaults apply
		case err != nil:
			return nil, fmt.Errorf("reading config file: %w", err)
		default:
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv fills secrets from environment variables.
func (c *Config) applyEnv() {
	switch c.Embedding.Provider {
	case "huggingface":
		c.Embedding.APIKey = os.Getenv("HF_API_TOKEN")
	default:
		c.Embedding.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	c.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	c.WebSearch.APIKey = os.Getenv("TAVILY_API_KEY")
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.Ingest.FragmentSize <= 0 {
		return fmt.Errorf("ingest.fragment_size must be positive")
	}
	if c.Ingest.Overlap < 0 || c.Ingest.Overlap >= c.Ingest.FragmentSize {
		return fmt.Errorf("ingest.overlap must be in [0, fragment_size)")
	}
	sum := c.Retrieval.SemanticWeight + c.Retrieval.LexicalWeight
	if sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("retrieval weights must sum to 1.0, got %.3f", sum)
	}
	if c.Retrieval.RRFK <= 0 {
		return fmt.Errorf("retrieval.rrf_k must be positive")
	}
	if c.Agent.MaxRounds <= 0 {
		return fmt.Errorf("agent.max_rounds must be positive")
	}
	if c.Agent.MemoryWindow <= 0 {
		return fmt.Errorf("agent.memory_window must be positive")
	}
	switch c.Embedding.Provider {
	case "openai", "huggingface":
	default:
		return fmt.Errorf("embedding.provider must be openai or huggingface, got %q", c.Embedding.Provider)
	}
	return nil
}

// DataDir returns the configured data directory, defaulting to
// ~/.finsync/data.
func (c *Config) DataDir() (string, error) {
	if c.Storage.DataDir != "" {
		return c.Storage.DataDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".finsync", "data"), nil
}
