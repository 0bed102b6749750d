// Package config loads settings from file, environment, and defaults.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full runtime configuration.
type Config struct {
	Store      StoreConfig      `mapstructure:"store"`
	Embedder   EmbedderConfig   `mapstructure:"embedder"`
	Translator TranslatorConfig `mapstructure:"translator"`
	Index      IndexConfig      `mapstructure:"index"`
	Search     SearchConfig     `mapstructure:"search"`
	Query      QueryConfig      `mapstructure:"query"`
	Analyzer   AnalyzerConfig   `mapstructure:"analyzer"`
	Builder    BuilderConfig    `mapstructure:"builder"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// StoreConfig selects and configures the graph backend. Backend "memory"
// runs fully embedded; "neo4j" connects to a Cypher server.
type StoreConfig struct {
	Backend  string `mapstructure:"backend"`
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

type EmbedderConfig struct {
	Provider  string `mapstructure:"provider"`
	BaseURL   string `mapstructure:"base_url"`
	APIKey    string `mapstructure:"api_key"`
	Model     string `mapstructure:"model"`
	Dimension int    `mapstructure:"dimension"`
}

type TranslatorConfig struct {
	APIKey     string        `mapstructure:"api_key"`
	Model      string        `mapstructure:"model"`
	MaxTokens  int           `mapstructure:"max_tokens"`
	MaxRetries int           `mapstructure:"max_retries"`
	CacheSize  int           `mapstructure:"cache_size"`
	CacheTTL   time.Duration `mapstructure:"cache_ttl"`
}

type IndexConfig struct {
	Path        string `mapstructure:"path"`
	Parallelism int    `mapstructure:"parallelism"`
}

type SearchConfig struct {
	VectorWeight  float64 `mapstructure:"vector_weight"`
	KeywordWeight float64 `mapstructure:"keyword_weight"`
	Overfetch     int     `mapstructure:"overfetch"`
	ContextHops   int     `mapstructure:"context_hops"`
	ContextLimit  int     `mapstructure:"context_limit"`
}

type QueryConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type AnalyzerConfig struct {
	ProjectionTTL    time.Duration `mapstructure:"projection_ttl"`
	MaxDiameterNodes int           `mapstructure:"max_diameter_nodes"`
	PageRankDamping  float64       `mapstructure:"pagerank_damping"`
	PageRankMaxIter  int           `mapstructure:"pagerank_max_iterations"`
	CommunitySeed    uint64        `mapstructure:"community_seed"`
}

type BuilderConfig struct {
	BatchSize int `mapstructure:"batch_size"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from the given file (optional), the environment
// (GRAPHCORTEX_ prefix), and built-in defaults, in that order of
// precedence.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("store.backend", "memory")
	v.SetDefault("store.uri", "bolt://localhost:7687")
	v.SetDefault("store.username", "neo4j")
	v.SetDefault("store.database", "neo4j")

	v.SetDefault("embedder.provider", "ollama")
	v.SetDefault("embedder.base_url", "")
	v.SetDefault("embedder.model", "nomic-embed-text")
	v.SetDefault("embedder.dimension", 768)

	v.SetDefault("translator.model", "claude-sonnet-4-5")
	v.SetDefault("translator.max_tokens", 1024)
	v.SetDefault("translator.max_retries", 2)
	v.SetDefault("translator.cache_size", 256)
	v.SetDefault("translator.cache_ttl", 15*time.Minute)

	v.SetDefault("index.path", "graphcortex.index")
	v.SetDefault("index.parallelism", 4)

	v.SetDefault("search.vector_weight", 0.7)
	v.SetDefault("search.keyword_weight", 0.3)
	v.SetDefault("search.overfetch", 3)
	v.SetDefault("search.context_hops", 1)
	v.SetDefault("search.context_limit", 25)

	v.SetDefault("query.timeout", 30*time.Second)

	v.SetDefault("analyzer.projection_ttl", 5*time.Minute)
	v.SetDefault("analyzer.max_diameter_nodes", 1000)
	v.SetDefault("analyzer.pagerank_damping", 0.85)
	v.SetDefault("analyzer.pagerank_max_iterations", 100)
	v.SetDefault("analyzer.community_seed", 1)

	v.SetDefault("builder.batch_size", 500)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	v.SetEnvPrefix("GRAPHCORTEX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the loaded configuration for values that would fail at
// runtime.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "memory", "neo4j":
	default:
		return fmt.Errorf("store.backend must be memory or neo4j, got %q", c.Store.Backend)
	}
	if c.Store.Backend == "neo4j" && c.Store.URI == "" {
		return fmt.Errorf("store.uri is required for the neo4j backend")
	}
	switch c.Embedder.Provider {
	case "ollama", "openai":
	default:
		return fmt.Errorf("embedder.provider must be ollama or openai, got %q", c.Embedder.Provider)
	}
	if c.Embedder.Dimension <= 0 {
		return fmt.Errorf("embedder.dimension must be positive, got %d", c.Embedder.Dimension)
	}
	if c.Search.VectorWeight < 0 || c.Search.KeywordWeight < 0 {
		return fmt.Errorf("search weights must be non-negative")
	}
	if c.Search.VectorWeight+c.Search.KeywordWeight == 0 {
		return fmt.Errorf("at least one search weight must be positive")
	}
	if c.Search.Overfetch < 1 {
		return fmt.Errorf("search.overfetch must be at least 1, got %d", c.Search.Overfetch)
	}
	if c.Builder.BatchSize < 1 {
		return fmt.Errorf("builder.batch_size must be at least 1, got %d", c.Builder.BatchSize)
	}
	if c.Query.Timeout <= 0 {
		return fmt.Errorf("query.timeout must be positive")
	}
	if c.Analyzer.PageRankDamping <= 0 || c.Analyzer.PageRankDamping >= 1 {
		return fmt.Errorf("analyzer.pagerank_damping must be in (0, 1), got %v", c.Analyzer.PageRankDamping)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
