package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for nfrminer.
type Config struct {
	Scrape   ScrapeConfig   `mapstructure:"scrape"   yaml:"scrape"`
	Fetcher  FetcherConfig  `mapstructure:"fetcher"  yaml:"fetcher"`
	Extract  ExtractConfig  `mapstructure:"extract"  yaml:"extract"`
	Filter   FilterConfig   `mapstructure:"filter"   yaml:"filter"`
	Topics   TopicsConfig   `mapstructure:"topics"   yaml:"topics"`
	Classify ClassifyConfig `mapstructure:"classify" yaml:"classify"`
	Logging  LoggingConfig  `mapstructure:"logging"  yaml:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"  yaml:"metrics"`
}

// ScrapeConfig controls the scrape orchestrator.
type ScrapeConfig struct {
	Workers            int           `mapstructure:"workers"             yaml:"workers"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout"     yaml:"request_timeout"`
	PolitenessDelay    time.Duration `mapstructure:"politeness_delay"    yaml:"politeness_delay"`
	RespectRobotsTxt   bool          `mapstructure:"respect_robots_txt"  yaml:"respect_robots_txt"`
	MaxRetries         int           `mapstructure:"max_retries"         yaml:"max_retries"`
	RetryDelay         time.Duration `mapstructure:"retry_delay"         yaml:"retry_delay"`
	CheckpointInterval time.Duration `mapstructure:"checkpoint_interval" yaml:"checkpoint_interval"`
	UserAgent          string        `mapstructure:"user_agent"          yaml:"user_agent"`
	OutputDir          string        `mapstructure:"output_dir"          yaml:"output_dir"`
}

// FetcherConfig controls the page fetcher.
type FetcherConfig struct {
	Type            string        `mapstructure:"type"              yaml:"type"`
	FollowRedirects bool          `mapstructure:"follow_redirects"  yaml:"follow_redirects"`
	MaxRedirects    int           `mapstructure:"max_redirects"     yaml:"max_redirects"`
	MaxBodySize     int64         `mapstructure:"max_body_size"     yaml:"max_body_size"`
	TLSInsecure     bool          `mapstructure:"tls_insecure"      yaml:"tls_insecure"`
	IdleConnTimeout time.Duration `mapstructure:"idle_conn_timeout" yaml:"idle_conn_timeout"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"    yaml:"max_idle_conns"`
	Stealth         bool          `mapstructure:"stealth"           yaml:"stealth"`
}

// ExtractConfig holds the activity thresholds applied during extraction.
type ExtractConfig struct {
	MinComments   int `mapstructure:"min_comments"   yaml:"min_comments"`
	MinCommenters int `mapstructure:"min_commenters" yaml:"min_commenters"`
}

// FilterConfig controls the above-average activity filter.
type FilterConfig struct {
	Enabled         bool    `mapstructure:"enabled"          yaml:"enabled"`
	CommentOffset   float64 `mapstructure:"comment_offset"   yaml:"comment_offset"`
	CommenterOffset float64 `mapstructure:"commenter_offset" yaml:"commenter_offset"`
}

// TopicsConfig controls vectorization and decomposition.
type TopicsConfig struct {
	Method        string  `mapstructure:"method"         yaml:"method"`
	NumTopics     int     `mapstructure:"num_topics"     yaml:"num_topics"`
	TopWords      int     `mapstructure:"top_words"      yaml:"top_words"`
	MaxFeatures   int     `mapstructure:"max_features"   yaml:"max_features"`
	MaxDF         float64 `mapstructure:"max_df"         yaml:"max_df"`
	MinDFLDA      float64 `mapstructure:"min_df_lda"     yaml:"min_df_lda"`
	MinDFNMF      float64 `mapstructure:"min_df_nmf"     yaml:"min_df_nmf"`
	LDAIterations int     `mapstructure:"lda_iterations" yaml:"lda_iterations"`
	NMFIterations int     `mapstructure:"nmf_iterations" yaml:"nmf_iterations"`
	Seed          uint64  `mapstructure:"seed"           yaml:"seed"`
}

// ClassifyConfig controls NFR classification.
type ClassifyConfig struct {
	// WordlistDir overrides the built-in word lists when set.
	WordlistDir string `mapstructure:"wordlist_dir" yaml:"wordlist_dir"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// MetricsConfig controls the metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Port    int    `mapstructure:"port"    yaml:"port"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Scrape: ScrapeConfig{
			Workers:            4,
			RequestTimeout:     30 * time.Second,
			PolitenessDelay:    0,
			RespectRobotsTxt:   true,
			MaxRetries:         2,
			RetryDelay:         2 * time.Second,
			CheckpointInterval: 60 * time.Second,
			UserAgent:          "nfrminer/" + Version,
			OutputDir:          "data",
		},
		Fetcher: FetcherConfig{
			Type:            "http",
			FollowRedirects: true,
			MaxRedirects:    10,
			MaxBodySize:     10 * 1024 * 1024, // 10MB
			IdleConnTimeout: 90 * time.Second,
			MaxIdleConns:    100,
		},
		Extract: ExtractConfig{
			MinComments:   1,
			MinCommenters: 1,
		},
		Filter: FilterConfig{
			Enabled: true,
		},
		Topics: TopicsConfig{
			Method:        "nmf",
			NumTopics:     10,
			TopWords:      10,
			MaxFeatures:   1000,
			MaxDF:         0.95,
			MinDFLDA:      0.2,
			MinDFNMF:      0.2,
			LDAIterations: 200,
			NMFIterations: 1000,
			Seed:          1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
			Path:    "/metrics",
		},
	}
}
