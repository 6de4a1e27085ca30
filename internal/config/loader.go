package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from file, environment, and defaults.
// Priority (highest to lowest): env vars > config file > defaults.
// CLI flags are applied afterwards by the caller.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, cfg)

	v.SetEnvPrefix("NFRMINER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("nfrminer")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".nfrminer"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// setDefaults registers default values in viper.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("scrape.workers", cfg.Scrape.Workers)
	v.SetDefault("scrape.request_timeout", cfg.Scrape.RequestTimeout)
	v.SetDefault("scrape.politeness_delay", cfg.Scrape.PolitenessDelay)
	v.SetDefault("scrape.max_retries", cfg.Scrape.MaxRetries)
	v.SetDefault("scrape.retry_delay", cfg.Scrape.RetryDelay)
	v.SetDefault("scrape.respect_robots_txt", cfg.Scrape.RespectRobotsTxt)
	v.SetDefault("scrape.checkpoint_interval", cfg.Scrape.CheckpointInterval)
	v.SetDefault("scrape.user_agent", cfg.Scrape.UserAgent)
	v.SetDefault("scrape.output_dir", cfg.Scrape.OutputDir)

	v.SetDefault("fetcher.type", cfg.Fetcher.Type)
	v.SetDefault("fetcher.follow_redirects", cfg.Fetcher.FollowRedirects)
	v.SetDefault("fetcher.max_redirects", cfg.Fetcher.MaxRedirects)
	v.SetDefault("fetcher.max_body_size", cfg.Fetcher.MaxBodySize)
	v.SetDefault("fetcher.tls_insecure", cfg.Fetcher.TLSInsecure)
	v.SetDefault("fetcher.idle_conn_timeout", cfg.Fetcher.IdleConnTimeout)
	v.SetDefault("fetcher.max_idle_conns", cfg.Fetcher.MaxIdleConns)
	v.SetDefault("fetcher.stealth", cfg.Fetcher.Stealth)

	v.SetDefault("extract.min_comments", cfg.Extract.MinComments)
	v.SetDefault("extract.min_commenters", cfg.Extract.MinCommenters)

	v.SetDefault("filter.enabled", cfg.Filter.Enabled)
	v.SetDefault("filter.comment_offset", cfg.Filter.CommentOffset)
	v.SetDefault("filter.commenter_offset", cfg.Filter.CommenterOffset)

	v.SetDefault("topics.method", cfg.Topics.Method)
	v.SetDefault("topics.num_topics", cfg.Topics.NumTopics)
	v.SetDefault("topics.top_words", cfg.Topics.TopWords)
	v.SetDefault("topics.max_features", cfg.Topics.MaxFeatures)
	v.SetDefault("topics.max_df", cfg.Topics.MaxDF)
	v.SetDefault("topics.min_df_lda", cfg.Topics.MinDFLDA)
	v.SetDefault("topics.min_df_nmf", cfg.Topics.MinDFNMF)
	v.SetDefault("topics.lda_iterations", cfg.Topics.LDAIterations)
	v.SetDefault("topics.nmf_iterations", cfg.Topics.NMFIterations)
	v.SetDefault("topics.seed", cfg.Topics.Seed)

	v.SetDefault("classify.wordlist_dir", cfg.Classify.WordlistDir)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.port", cfg.Metrics.Port)
	v.SetDefault("metrics.path", cfg.Metrics.Path)
}
