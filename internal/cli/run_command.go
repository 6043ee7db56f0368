package cli

import (
	"context"
	"fmt"

	"github.com/edgard/groupstats/internal/app"
	"github.com/edgard/groupstats/internal/config"
	"github.com/edgard/groupstats/internal/logger"
)

// RunCommand starts the message logger and statistics bot.
type RunCommand struct {
	ctx  context.Context
	opts *globalOptions
}

// Execute implements the go-flags Commander interface.
func (c *RunCommand) Execute(_ []string) error {
	cfg, err := config.Load(c.opts.Config)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.NewLogger(cfg.Log.Level, cfg.Log.Format)

	a, err := app.New(log, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	return a.Run(c.ctx)
}
