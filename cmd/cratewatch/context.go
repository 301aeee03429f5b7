package main

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"cratewatch/internal/builder"
	"cratewatch/internal/config"
	"cratewatch/internal/index"
	"cratewatch/internal/indexsync"
	"cratewatch/internal/logging"
	"cratewatch/internal/queue"
	"cratewatch/internal/worker"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
		if err != nil {
			c.configErr = err
			return
		}
		if c.logLevelFlag != nil {
			if level := strings.TrimSpace(*c.logLevelFlag); level != "" {
				cfg.Logging.Level = strings.ToLower(level)
			}
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

// withStore opens the configured queue for the duration of fn.
func (c *commandContext) withStore(ctx context.Context, fn func(*queue.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := queue.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func indexOptions(cfg *config.Config) index.Options {
	return index.Options{
		Path:      cfg.Index.Path,
		URL:       cfg.Index.URL,
		Remote:    cfg.Index.Remote,
		Branch:    cfg.Index.Branch,
		AuthToken: cfg.Index.AuthToken,
	}
}

func newSynchronizer(cfg *config.Config, store *queue.Store, logger *slog.Logger) *indexsync.Synchronizer {
	return indexsync.New(indexsync.GitOpener(indexOptions(cfg)), store, cfg.Index.Branch, logger)
}

func newWorker(cfg *config.Config, store *queue.Store, logger *slog.Logger) (*worker.Worker, error) {
	cmd, err := builder.NewFromConfig(cfg, logger)
	if err != nil {
		return nil, err
	}
	return worker.New(store, cmd, logger), nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
