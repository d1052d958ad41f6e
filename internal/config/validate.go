package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateRepository(); err != nil {
		return err
	}
	if err := c.validateBatch(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateRepository() error {
	if c.Repository.BaseURL == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/bindery/config.toml"
		}
		return fmt.Errorf("repository.base_url is required; edit %s (create with 'bindery config init')", defaultPath)
	}
	parsed, err := url.Parse(c.Repository.BaseURL)
	if err != nil || parsed.Host == "" {
		return fmt.Errorf("repository.base_url %q is not a valid URL", c.Repository.BaseURL)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("repository.base_url must use http or https, got %q", parsed.Scheme)
	}
	if c.Repository.Token == "" {
		return errors.New("repository.token is required. Set BINDERY_API_TOKEN env var or add it to the config file")
	}
	if c.Repository.CollectionID < 0 {
		return errors.New("repository.collection_id must not be negative")
	}
	return nil
}

func (c *Config) validateBatch() error {
	if c.Batch.MinFreeSpaceGiB < 0 {
		return errors.New("batch.min_free_space_gib must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
}
