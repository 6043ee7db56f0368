package telegram

import (
	"fmt"

	"github.com/go-telegram/bot"

	"github.com/edgard/groupstats/internal/logger"
)

// NewBot creates the Telegram bot client with all handlers registered. The
// default handler records group traffic; commands are matched explicitly.
func NewBot(deps HandlerDeps) (*bot.Bot, error) {
	opts := []bot.Option{
		bot.WithDefaultHandler(NewLoggerHandler(deps)),
		bot.WithMiddlewares(logger.Middleware(deps.Logger)),
	}

	b, err := bot.New(deps.Config.Telegram.Token, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	b.RegisterHandler(bot.HandlerTypeMessageText, "/stats", bot.MatchTypePrefix, NewStatsHandler(deps))
	b.RegisterHandler(bot.HandlerTypeMessageText, "/chatid", bot.MatchTypePrefix, NewChatIDHandler(deps))

	return b, nil
}
