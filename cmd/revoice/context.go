package main

import (
	"fmt"
	"strings"
	"sync"

	"revoice/internal/config"
	"revoice/internal/jobs"
)

// commandContext lazily loads configuration and the job store shared by all
// subcommands. The CLI talks to the same SQLite database as the daemon.
type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	storeOnce sync.Once
	store     *jobs.Store
	storeErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) openStore() (*jobs.Store, error) {
	c.storeOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.storeErr = err
			return
		}
		store, err := jobs.Open(cfg)
		if err != nil {
			c.storeErr = fmt.Errorf("open job store: %w", err)
			return
		}
		c.store = store
	})
	return c.store, c.storeErr
}
