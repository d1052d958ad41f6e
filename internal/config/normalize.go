package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeRepository(); err != nil {
		return err
	}
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.PackageDir) == "" {
		c.Paths.PackageDir = defaultPackageDir
	}
	if c.Paths.PackageDir, err = expandPath(c.Paths.PackageDir); err != nil {
		return fmt.Errorf("paths.package_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeRepository() error {
	if c.Repository.Token == "" {
		if value, ok := os.LookupEnv("BINDERY_API_TOKEN"); ok {
			c.Repository.Token = strings.TrimSpace(value)
		}
	}
	c.Repository.BaseURL = strings.TrimRight(strings.TrimSpace(c.Repository.BaseURL), "/")
	c.Repository.Token = strings.TrimSpace(c.Repository.Token)
	if c.Repository.RequestTimeout <= 0 {
		c.Repository.RequestTimeout = defaultRepositoryRequestTimeout
	}
	return nil
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
