package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateIndex(); err != nil {
		return err
	}
	if err := c.validateQueue(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateIndex() error {
	if strings.TrimSpace(c.Index.Path) == "" {
		return errors.New("index.path must be set")
	}
	if strings.ContainsAny(c.Index.Branch, " \t*?[") {
		return fmt.Errorf("index.branch %q is not a valid branch name", c.Index.Branch)
	}
	return nil
}

func (c *Config) validateQueue() error {
	switch c.Queue.Driver {
	case DriverSQLite:
		if strings.TrimSpace(c.Queue.Path) == "" {
			return errors.New("queue.path must be set when queue.driver is sqlite")
		}
	case DriverPostgres:
		if c.Queue.DSN == "" {
			return errors.New("queue.dsn must be set when queue.driver is postgres (or set CRATEWATCH_QUEUE_DSN)")
		}
	default:
		return fmt.Errorf("queue.driver: unsupported value %q (expected sqlite or postgres)", c.Queue.Driver)
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	return ensurePositiveMap(map[string]int{
		"workflow.sync_interval":        c.Workflow.SyncInterval,
		"workflow.drain_interval":       c.Workflow.DrainInterval,
		"workflow.error_retry_interval": c.Workflow.ErrorRetryInterval,
	})
}

func (c *Config) validateNotifications() error {
	topic := c.Notifications.NtfyTopic
	if topic == "" {
		return nil
	}
	if !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		return fmt.Errorf("notifications.ntfy_topic must be a full http(s) URL, got %q", topic)
	}
	return nil
}

// ValidateBuilder reports whether a build command is configured. Only commands
// that actually run builds call it, so sync-only deployments need no builder.
func (c *Config) ValidateBuilder() error {
	if c.Builder.Command == "" {
		return errors.New("builder.command must be set to drain the queue")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
