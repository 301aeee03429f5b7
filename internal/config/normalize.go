package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeIndex(); err != nil {
		return err
	}
	if err := c.normalizeQueue(); err != nil {
		return err
	}
	if err := c.normalizeBuilder(); err != nil {
		return err
	}
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.DataDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeIndex() error {
	var err error
	if strings.TrimSpace(c.Index.Path) == "" {
		c.Index.Path = filepath.Join(c.Paths.DataDir, defaultIndexDirName)
	}
	if c.Index.Path, err = expandPath(c.Index.Path); err != nil {
		return fmt.Errorf("index.path: %w", err)
	}
	c.Index.URL = strings.TrimSpace(c.Index.URL)
	c.Index.Remote = strings.TrimSpace(c.Index.Remote)
	if c.Index.Remote == "" {
		c.Index.Remote = defaultIndexRemote
	}
	c.Index.Branch = strings.TrimSpace(c.Index.Branch)
	if c.Index.Branch == "" {
		c.Index.Branch = defaultIndexBranch
	}
	c.Index.AuthToken = strings.TrimSpace(c.Index.AuthToken)
	if c.Index.AuthToken == "" {
		if value, ok := os.LookupEnv("CRATEWATCH_INDEX_TOKEN"); ok {
			c.Index.AuthToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeQueue() error {
	c.Queue.Driver = strings.ToLower(strings.TrimSpace(c.Queue.Driver))
	switch c.Queue.Driver {
	case "", DriverSQLite, "sqlite3":
		c.Queue.Driver = DriverSQLite
	case DriverPostgres, "postgresql", "pgx":
		c.Queue.Driver = DriverPostgres
	}
	if c.Queue.Driver == DriverSQLite {
		var err error
		if strings.TrimSpace(c.Queue.Path) == "" {
			c.Queue.Path = filepath.Join(c.Paths.DataDir, defaultQueueFileName)
		}
		if c.Queue.Path, err = expandPath(c.Queue.Path); err != nil {
			return fmt.Errorf("queue.path: %w", err)
		}
	}
	c.Queue.DSN = strings.TrimSpace(c.Queue.DSN)
	if c.Queue.DSN == "" {
		if value, ok := os.LookupEnv("CRATEWATCH_QUEUE_DSN"); ok {
			c.Queue.DSN = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeBuilder() error {
	c.Builder.Command = strings.TrimSpace(c.Builder.Command)
	if strings.TrimSpace(c.Builder.Workdir) != "" {
		var err error
		if c.Builder.Workdir, err = expandPath(c.Builder.Workdir); err != nil {
			return fmt.Errorf("builder.workdir: %w", err)
		}
	}
	if c.Builder.TimeoutSeconds < 0 {
		c.Builder.TimeoutSeconds = 0
	}
	return nil
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("CRATEWATCH_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
	if c.Logging.MaxSizeMB <= 0 {
		c.Logging.MaxSizeMB = defaultLogMaxSizeMB
	}
	if c.Logging.MaxBackups < 0 {
		c.Logging.MaxBackups = 0
	}
}
