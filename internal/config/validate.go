package config

import (
	"fmt"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if cfg.Scrape.Workers < 1 {
		return fmt.Errorf("scrape.workers must be >= 1, got %d", cfg.Scrape.Workers)
	}
	if cfg.Scrape.Workers > 256 {
		return fmt.Errorf("scrape.workers must be <= 256, got %d", cfg.Scrape.Workers)
	}
	if cfg.Scrape.RequestTimeout <= 0 {
		return fmt.Errorf("scrape.request_timeout must be > 0")
	}
	if cfg.Scrape.PolitenessDelay < 0 {
		return fmt.Errorf("scrape.politeness_delay must be >= 0")
	}
	if cfg.Scrape.CheckpointInterval < 0 {
		return fmt.Errorf("scrape.checkpoint_interval must be >= 0")
	}
	if cfg.Scrape.UserAgent == "" {
		return fmt.Errorf("scrape.user_agent must not be empty")
	}
	if cfg.Scrape.MaxRetries < 0 {
		return fmt.Errorf("scrape.max_retries must be >= 0, got %d", cfg.Scrape.MaxRetries)
	}

	if cfg.Fetcher.MaxBodySize <= 0 {
		return fmt.Errorf("fetcher.max_body_size must be > 0")
	}
	if cfg.Fetcher.MaxRedirects < 0 {
		return fmt.Errorf("fetcher.max_redirects must be >= 0")
	}
	if cfg.Fetcher.Type != "http" && cfg.Fetcher.Type != "browser" {
		return fmt.Errorf("fetcher.type must be 'http' or 'browser', got %q", cfg.Fetcher.Type)
	}

	if cfg.Extract.MinComments < 0 {
		return fmt.Errorf("extract.min_comments must be >= 0, got %d", cfg.Extract.MinComments)
	}
	if cfg.Extract.MinCommenters < 0 {
		return fmt.Errorf("extract.min_commenters must be >= 0, got %d", cfg.Extract.MinCommenters)
	}

	if cfg.Topics.Method != "lda" && cfg.Topics.Method != "nmf" {
		return fmt.Errorf("topics.method must be 'lda' or 'nmf', got %q", cfg.Topics.Method)
	}
	if cfg.Topics.NumTopics < 1 {
		return fmt.Errorf("topics.num_topics must be >= 1, got %d", cfg.Topics.NumTopics)
	}
	if cfg.Topics.TopWords < 1 {
		return fmt.Errorf("topics.top_words must be >= 1, got %d", cfg.Topics.TopWords)
	}
	if cfg.Topics.MaxFeatures < 1 {
		return fmt.Errorf("topics.max_features must be >= 1, got %d", cfg.Topics.MaxFeatures)
	}
	if cfg.Topics.MaxDF <= 0 || cfg.Topics.MaxDF > 1 {
		return fmt.Errorf("topics.max_df must be in (0, 1], got %v", cfg.Topics.MaxDF)
	}
	for name, v := range map[string]float64{"min_df_lda": cfg.Topics.MinDFLDA, "min_df_nmf": cfg.Topics.MinDFNMF} {
		if v < 0 || v > 1 {
			return fmt.Errorf("topics.%s must be in [0, 1], got %v", name, v)
		}
	}
	if cfg.Topics.LDAIterations < 1 || cfg.Topics.NMFIterations < 1 {
		return fmt.Errorf("topics iteration counts must be >= 1")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port < 1 || cfg.Metrics.Port > 65535 {
			return fmt.Errorf("metrics.port must be 1-65535, got %d", cfg.Metrics.Port)
		}
	}

	return nil
}
