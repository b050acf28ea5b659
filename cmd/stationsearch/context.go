package main

import (
	"context"
	"strings"
	"sync"

	"github.com/airwaves-fm/stationsearch/internal/app"
	"github.com/airwaves-fm/stationsearch/internal/config"
	"github.com/airwaves-fm/stationsearch/pkg/logger"
)

type commandContext struct {
	configFlag *string
	jsonFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	engine *app.Engine
}

func newCommandContext(configFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		jsonFlag:   jsonFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		c.config, c.configErr = config.Load(path)
	})
	return c.config, c.configErr
}

func (c *commandContext) json() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// searchEngine opens the engine once per invocation
func (c *commandContext) searchEngine(ctx context.Context) (*app.Engine, error) {
	if c.engine != nil {
		return c.engine, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.Logging.Level, "text")
	if err != nil {
		return nil, err
	}
	engine, err := app.New(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	c.engine = engine
	return engine, nil
}

func (c *commandContext) close() error {
	if c.engine == nil {
		return nil
	}
	err := c.engine.Close()
	c.engine = nil
	return err
}
