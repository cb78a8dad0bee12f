// Package config assembles the root Config from built-in defaults, an
// optional YAML file, and environment variables, in that precedence
// order (CLI flags, applied by callers, win last).
package config

import (
	"os"
	"runtime"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete ESS configuration, composed of one sub-struct
// per component so each can be defaulted, loaded, and tested in
// isolation.
type Config struct {
	Discovery    DiscoveryConfig    `yaml:"discovery"`
	Chunk        ChunkConfig        `yaml:"chunk"`
	Embed        EmbedConfig        `yaml:"embed"`
	Graph        GraphConfig        `yaml:"graph"`
	Vector       VectorConfig       `yaml:"vector"`
	Query        QueryConfig        `yaml:"query"`
	Veracity     VeracityConfig     `yaml:"veracity"`
	Watcher      WatcherConfig      `yaml:"watcher"`
	Circuit      CircuitConfig      `yaml:"circuit"`
	Conversation ConversationConfig `yaml:"conversation"`
	Server       ServerConfig       `yaml:"server"`
}

// DiscoveryConfig configures C1 file discovery.
type DiscoveryConfig struct {
	TargetDirs   []string `yaml:"target_dirs"`
	MaxFileBytes int64    `yaml:"max_file_bytes"`
	Workers      int      `yaml:"workers"`
}

// ChunkConfig configures C3 chunking.
type ChunkConfig struct {
	TargetSize int `yaml:"target_size"`
	Overlap    int `yaml:"overlap"`
	Tolerance  int `yaml:"tolerance"`
}

// EmbedConfig configures C4 the embedder.
type EmbedConfig struct {
	ModelVersion string        `yaml:"model_version"`
	Dimensions   int           `yaml:"dimensions"`
	Seed         int64         `yaml:"seed"`
	BatchSize    int           `yaml:"batch_size"`
	Timeout      time.Duration `yaml:"timeout"`
	CacheSize    int           `yaml:"cache_size"`
}

// GraphConfig configures C5 the graph store (Neo4j).
type GraphConfig struct {
	URI      string `yaml:"uri"`
	User     string `yaml:"user"`
	Password string `yaml:"-"` // never serialized
}

// VectorConfig configures C6 the vector store (Qdrant).
type VectorConfig struct {
	URL        string `yaml:"url"`
	Dimensions int    `yaml:"dimensions"`
}

// QueryConfig configures C7 the query engine.
type QueryConfig struct {
	SemanticTimeout   time.Duration `yaml:"semantic_timeout"`
	StructuralTimeout time.Duration `yaml:"structural_timeout"`
	TotalBudget       time.Duration `yaml:"total_budget"`
}

// VeracityConfig configures C8 veracity thresholds and penalties.
type VeracityConfig struct {
	StaleDocDays          int `yaml:"stale_doc_days"`
	StaleDocPenalty       int `yaml:"stale_doc_penalty"`
	OrphanMinNeighbors    int `yaml:"orphan_min_neighbors"`
	OrphanPenalty         int `yaml:"orphan_penalty"`
	ContradictionDays     int `yaml:"contradiction_days"`
	ContradictionPenalty  int `yaml:"contradiction_penalty"`
	LowCoverageMin        int `yaml:"low_coverage_min"`
	LowCoveragePenalty    int `yaml:"low_coverage_penalty"`
	EmbeddingMissingPenalty int `yaml:"embedding_missing_penalty"`
}

// WatcherConfig configures C9 the watcher daemon.
type WatcherConfig struct {
	WatchMode        string        `yaml:"watch_mode"` // realtime | polling | git_only
	DebounceSeconds  float64       `yaml:"debounce_seconds"`
	PollInterval     time.Duration `yaml:"poll_interval"`
	EnableCoChanges  bool          `yaml:"enable_co_changes"`
	CoChangeWindow   time.Duration `yaml:"co_change_window"`
}

// CircuitConfig configures C11 circuit breakers.
type CircuitConfig struct {
	FailureThreshold int           `yaml:"failure_threshold"`
	ResetTimeout     time.Duration `yaml:"reset_timeout"`
	SuccessThreshold int           `yaml:"success_threshold"`
}

// ConversationConfig configures C10, the optional conversation manager.
type ConversationConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxRounds   int           `yaml:"max_rounds"`
	MaxDuration time.Duration `yaml:"max_duration"`
	TTL         time.Duration `yaml:"ttl"`
}

// ServerConfig configures the HTTP/MCP adapters.
type ServerConfig struct {
	HTTPAddr           string  `yaml:"http_addr"`
	APIToken           string  `yaml:"-"`
	RateLimitPerSecond float64 `yaml:"rate_limit_per_second"`
	RateLimitBurst     int     `yaml:"rate_limit_burst"`
	StateDir           string  `yaml:"state_dir"`
	LogLevel           string  `yaml:"log_level"`
	ExtractorVersion   string  `yaml:"extractor_version"`
}

// Default returns the built-in defaults for the whole Config tree.
func Default() *Config {
	return &Config{
		Discovery: DiscoveryConfig{
			MaxFileBytes: 8 << 20, // 8 MiB
			Workers:      runtime.NumCPU(),
		},
		Chunk: ChunkConfig{
			TargetSize: 1500,
			Overlap:    200,
			Tolerance:  150,
		},
		Embed: EmbedConfig{
			ModelVersion: "ess-embed-v1",
			Dimensions:   768,
			Seed:         42,
			BatchSize:    32,
			Timeout:      30 * time.Second,
			CacheSize:    10000,
		},
		Graph: GraphConfig{
			URI:  "bolt://localhost:7687",
			User: "neo4j",
		},
		Vector: VectorConfig{
			URL:        "http://localhost:6334",
			Dimensions: 768,
		},
		Query: QueryConfig{
			SemanticTimeout:   800 * time.Millisecond,
			StructuralTimeout: 800 * time.Millisecond,
			TotalBudget:       1500 * time.Millisecond,
		},
		Veracity: VeracityConfig{
			StaleDocDays:            90,
			StaleDocPenalty:         15,
			OrphanMinNeighbors:      2,
			OrphanPenalty:           5,
			ContradictionDays:       30,
			ContradictionPenalty:    20,
			LowCoverageMin:          5,
			LowCoveragePenalty:      10,
			EmbeddingMissingPenalty: 10,
		},
		Watcher: WatcherConfig{
			WatchMode:       "realtime",
			DebounceSeconds: 2,
			PollInterval:    5 * time.Second,
			EnableCoChanges: true,
			CoChangeWindow:  2 * time.Second,
		},
		Circuit: CircuitConfig{
			FailureThreshold: 5,
			ResetTimeout:     30 * time.Second,
			SuccessThreshold: 3,
		},
		Conversation: ConversationConfig{
			Enabled:     true,
			MaxRounds:   3,
			MaxDuration: 30 * time.Second,
			TTL:         10 * time.Minute,
		},
		Server: ServerConfig{
			HTTPAddr:           ":8787",
			RateLimitPerSecond: 10,
			RateLimitBurst:     20,
			StateDir:           defaultStateDir(),
			LogLevel:           "info",
			ExtractorVersion:   "1",
		},
	}
}

func defaultStateDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home + "/.veracity"
	}
	return ".veracity"
}

// Load builds a Config following the fixed precedence: defaults, then
// an optional YAML file at path (ignored if empty or missing), then
// the VERACITY_* environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if raw, err := os.ReadFile(path); err == nil {
			if err := yaml.Unmarshal(raw, cfg); err != nil {
				return nil, err
			}
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

// applyEnv overlays the fixed VERACITY_* environment variable names
// from spec §6 onto cfg, environment variables winning over the file.
func applyEnv(cfg *Config) {
	if v := os.Getenv("VERACITY_GRAPH_URI"); v != "" {
		cfg.Graph.URI = v
	}
	if v := os.Getenv("VERACITY_GRAPH_USER"); v != "" {
		cfg.Graph.User = v
	}
	if v := os.Getenv("VERACITY_GRAPH_PASSWORD"); v != "" {
		cfg.Graph.Password = v
	}
	if v := os.Getenv("VERACITY_VECTOR_URL"); v != "" {
		cfg.Vector.URL = v
	}
	if v := os.Getenv("VERACITY_EMBED_MODEL"); v != "" {
		cfg.Embed.ModelVersion = v
	}
	if v := os.Getenv("VERACITY_EMBED_DIMS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Embed.Dimensions = n
			cfg.Vector.Dimensions = n
		}
	}
	if v := os.Getenv("VERACITY_EMBED_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Embed.Seed = n
		}
	}
	if v := os.Getenv("VERACITY_API_TOKEN"); v != "" {
		cfg.Server.APIToken = v
	}
	if v := os.Getenv("VERACITY_LOG_LEVEL"); v != "" {
		cfg.Server.LogLevel = v
	}
	if v := os.Getenv("VERACITY_EXTRACTOR_VERSION"); v != "" {
		cfg.Server.ExtractorVersion = v
	}
}
