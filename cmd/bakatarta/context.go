package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Clark-Hu/bakatarta/internal/config"
	"github.com/Clark-Hu/bakatarta/internal/logging"
	"github.com/Clark-Hu/bakatarta/internal/store"
)

// commandContext lazily resolves configuration and the database for
// subcommands that need them.
type commandContext struct {
	configFlag *string
	logLevel   *string
	cfg        *config.Config
}

func newCommandContext(configFlag, logLevel *string) *commandContext {
	return &commandContext{configFlag: configFlag, logLevel: logLevel}
}

func (c *commandContext) applyConfigFlag() {
	if c.configFlag != nil && strings.TrimSpace(*c.configFlag) != "" {
		_ = os.Setenv(config.ConfigPathEnvVar, strings.TrimSpace(*c.configFlag))
	}
}

// databaseConfig loads only what database commands need.
func (c *commandContext) databaseConfig() (config.Config, error) {
	if c.cfg != nil {
		return *c.cfg, nil
	}
	c.applyConfigFlag()
	cfg, err := config.LoadDatabase()
	if err != nil {
		return config.Config{}, err
	}
	c.cfg = &cfg
	return cfg, nil
}

// serviceConfig loads and validates the full service configuration.
func (c *commandContext) serviceConfig() (config.Config, error) {
	c.applyConfigFlag()
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	c.cfg = &cfg
	return cfg, nil
}

func (c *commandContext) logger() zerolog.Logger {
	level := "info"
	if c.logLevel != nil {
		level = *c.logLevel
	}
	return logging.New(logging.Config{Level: level, Format: "console"}).
		With().Str("component", "cli").Logger()
}

func (c *commandContext) openStore(ctx context.Context) (*store.Store, error) {
	cfg, err := c.databaseConfig()
	if err != nil {
		return nil, err
	}
	connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	st, err := store.New(connCtx, cfg.DBURL, store.Options{
		MaxConns:               int32(cfg.DBMaxConns),
		MinConns:               int32(cfg.DBMinConns),
		ConnTimeout:            time.Duration(cfg.DBConnTimeoutSecs) * time.Second,
		StatementCacheCapacity: cfg.DBStatementCache,
		Logger:                 c.logger(),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return st, nil
}
