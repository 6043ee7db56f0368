package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/edgard/groupstats/internal/config"
	"github.com/edgard/groupstats/internal/database"
	"github.com/edgard/groupstats/internal/importer"
	"github.com/edgard/groupstats/internal/logger"
)

// ImportCommand loads a Telegram Desktop JSON chat export into the message
// log. Re-running the same import only updates existing rows.
type ImportCommand struct {
	ctx  context.Context
	opts *globalOptions

	Timezone string `long:"timezone" description:"IANA timezone the export was produced in" default:"UTC"`

	Args struct {
		File string `positional-arg-name:"FILE" description:"Path to the result.json export file"`
	} `positional-args:"yes" required:"yes"`
}

// Execute implements the go-flags Commander interface.
func (c *ImportCommand) Execute(_ []string) error {
	cfg, err := config.Load(c.opts.Config)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.NewLogger(cfg.Log.Level, cfg.Log.Format)

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}

	db, err := database.NewDB(cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.CloseDB(db)

	store := database.NewStore(db, log)

	imported, skipped, err := importer.New(store, loc, log).ImportFile(c.ctx, c.Args.File)
	if err != nil {
		return err
	}

	fmt.Printf("Imported %d messages (%d skipped).\n", imported, skipped)
	return nil
}
