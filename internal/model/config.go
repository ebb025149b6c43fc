package model

import "time"

// Config is the complete hazardscore configuration
type Config struct {
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	Store        StoreConfig        `yaml:"store" mapstructure:"store"`
	Classifier   ClassifierConfig   `yaml:"classifier" mapstructure:"classifier"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	Scoring      ScoringConfig      `yaml:"scoring" mapstructure:"scoring"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	Log          LogConfig          `yaml:"log" mapstructure:"log"`
}

// ServerConfig controls the HTTP surface
type ServerConfig struct {
	Addr              string        `yaml:"addr" mapstructure:"addr"`
	AllowOrigins      []string      `yaml:"allow_origins" mapstructure:"allow_origins"`
	StrictCoordinates bool          `yaml:"strict_coordinates" mapstructure:"strict_coordinates"` // Reject NaN/out-of-range lat/lon at the boundary
	RequestTimeout    time.Duration `yaml:"request_timeout" mapstructure:"request_timeout"`
}

// StoreConfig selects the report repository
type StoreConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"` // sqlite, memory
	DSN    string `yaml:"dsn" mapstructure:"dsn"`
}

// ClassifierConfig selects the text classifier
type ClassifierConfig struct {
	Provider   string `yaml:"provider" mapstructure:"provider"` // keyword, openai, anthropic, ollama
	Model      string `yaml:"model" mapstructure:"model"`
	APIKey     string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL    string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout    int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	HTTPProxy  string `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy string `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
}

// CacheConfig controls classifier prediction caching
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskDir   string        `yaml:"disk_dir" mapstructure:"disk_dir"` // Empty disables the disk layer
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// ScoringConfig holds the tunable scoring constants
type ScoringConfig struct {
	ConsensusRadiusKm  float64       `yaml:"consensus_radius_km" mapstructure:"consensus_radius_km"`
	ConsensusTarget    int           `yaml:"consensus_target" mapstructure:"consensus_target"`
	DashboardThreshold float64       `yaml:"dashboard_threshold" mapstructure:"dashboard_threshold"`
	Weights            WeightsConfig `yaml:"weights" mapstructure:"weights"`
}

// WeightsConfig mirrors score.Weights for file/env configuration
type WeightsConfig struct {
	MLConfidence   float64       `yaml:"ml_confidence" mapstructure:"ml_confidence"`
	Consensus      float64       `yaml:"consensus" mapstructure:"consensus"`
	SpamPenalty    float64       `yaml:"spam_penalty" mapstructure:"spam_penalty"`
	HazardKeyword  float64       `yaml:"hazard_keyword" mapstructure:"hazard_keyword"`
	TrivialKeyword float64       `yaml:"trivial_keyword" mapstructure:"trivial_keyword"`
	NoKeyword      float64       `yaml:"no_keyword" mapstructure:"no_keyword"`
	StalePenalty   float64       `yaml:"stale_penalty" mapstructure:"stale_penalty"`
	StaleAfter     time.Duration `yaml:"stale_after" mapstructure:"stale_after"`
	SpamAllowance  int           `yaml:"spam_allowance" mapstructure:"spam_allowance"`
	SpamRamp       float64       `yaml:"spam_ramp" mapstructure:"spam_ramp"`
}

// RateLimitingConfig bounds per-user submission rate
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// ConcurrencyConfig sizes the batch worker pool
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// LogConfig controls structured logging
type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level"` // debug, info, warn, error
	JSON  bool   `yaml:"json" mapstructure:"json"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           ":8000",
			AllowOrigins:   []string{"*"},
			RequestTimeout: 8 * time.Second,
		},
		Store: StoreConfig{
			Driver: "sqlite",
			DSN:    "./reports.db",
		},
		Classifier: ClassifierConfig{
			Provider: "keyword",
			Timeout:  30,
		},
		Cache: CacheConfig{
			Enabled:   true,
			MemoryTTL: time.Hour,
			DiskTTL:   24 * time.Hour,
		},
		Scoring: ScoringConfig{
			ConsensusRadiusKm:  5.0,
			ConsensusTarget:    5,
			DashboardThreshold: 0.0,
			Weights: WeightsConfig{
				MLConfidence:   0.5,
				Consensus:      0.3,
				SpamPenalty:    0.2,
				HazardKeyword:  0.2,
				TrivialKeyword: -0.4,
				NoKeyword:      -0.1,
				StalePenalty:   -0.2,
				StaleAfter:     24 * time.Hour,
				SpamAllowance:  3,
				SpamRamp:       10.0,
			},
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 1.0,
			BurstSize:         5,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
