// Package app wires the application components together and manages their
// lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"

	"github.com/edgard/groupstats/internal/config"
	"github.com/edgard/groupstats/internal/database"
	"github.com/edgard/groupstats/internal/metrics"
	"github.com/edgard/groupstats/internal/scheduler"
	"github.com/edgard/groupstats/internal/stats"
	"github.com/edgard/groupstats/internal/telegram"
)

// nameRefreshInterval is how often active senders get their display names
// re-resolved through the Telegram API.
const nameRefreshInterval = time.Hour

// App holds the bot's components and manages their lifecycle.
type App struct {
	logger    *slog.Logger
	cfg       *config.Config
	db        *sqlx.DB
	store     database.Store
	engine    *stats.Engine
	tgBot     *tgbot.Bot
	deps      telegram.HandlerDeps
	scheduler *scheduler.Scheduler
	metrics   *metrics.Metrics
}

// New builds the application from configuration: database, store, engine,
// Telegram bot, scheduler, and metrics.
func New(logger *slog.Logger, cfg *config.Config) (*App, error) {
	db, err := database.NewDB(cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	store := database.NewStore(db, logger)
	m := metrics.New()

	engine := stats.NewEngine(store, stats.Options{
		Timezone:     cfg.Location(),
		QueryTimeout: cfg.Stats.QueryTimeout,
		MinMessages:  cfg.Stats.MinMessages,
		TopSenders:   cfg.Stats.TopSenders,
		LexemeLimit:  cfg.Stats.LexemeLimit,
		Logger:       logger,
	})

	deps := telegram.HandlerDeps{
		Logger:  logger,
		Config:  cfg,
		Store:   store,
		Engine:  engine,
		Metrics: m,
	}

	bot, err := telegram.NewBot(deps)
	if err != nil {
		database.CloseDB(db)
		return nil, err
	}

	sched, err := scheduler.NewScheduler()
	if err != nil {
		database.CloseDB(db)
		return nil, err
	}

	return &App{
		logger:    logger.With("component", "app"),
		cfg:       cfg,
		db:        db,
		store:     store,
		engine:    engine,
		tgBot:     bot,
		deps:      deps,
		scheduler: sched,
		metrics:   m,
	}, nil
}

// Run starts all components and blocks until the context is cancelled or a
// component fails.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("Starting application...")

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("Starting Telegram bot listener...")

		a.tgBot.Start(gCtx)
		a.logger.Info("Telegram bot listener stopped.")

		if gCtx.Err() == nil {
			return fmt.Errorf("telegram listener stopped unexpectedly")
		}
		return nil
	})

	g.Go(func() error {
		err := a.scheduler.AddEvery("name_refresh", nameRefreshInterval, func() {
			telegram.RefreshDisplayNames(gCtx, a.tgBot, a.deps)
		})
		if err != nil {
			return fmt.Errorf("failed to schedule name refresh: %w", err)
		}

		<-gCtx.Done()
		a.logger.Info("Shutdown signal received, stopping scheduler...")

		if err := a.scheduler.Stop(); err != nil {
			a.logger.Error("Error stopping scheduler", "error", err)
		}
		return nil
	})

	if addr := a.cfg.Metrics.Addr; addr != "" {
		srv := a.metrics.NewServer(addr)

		g.Go(srv.Start)
		g.Go(func() error {
			<-gCtx.Done()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		a.logger.Error("Application stopped due to error", "error", err)
		return err
	}

	a.logger.Info("Application stopped gracefully.")
	return nil
}

// Close releases the application's resources.
func (a *App) Close() {
	database.CloseDB(a.db)
}
