// Package telegram implements the bot's Telegram surface: the passive group
// message logger and the /stats command handlers.
package telegram

import (
	"log/slog"

	"github.com/edgard/groupstats/internal/config"
	"github.com/edgard/groupstats/internal/database"
	"github.com/edgard/groupstats/internal/metrics"
	"github.com/edgard/groupstats/internal/stats"
)

// HandlerDeps provides dependencies for the Telegram handlers.
type HandlerDeps struct {
	Logger  *slog.Logger
	Config  *config.Config
	Store   database.Store
	Engine  *stats.Engine
	Metrics *metrics.Metrics
}
