package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/groupstats/internal/stats"
)

// NewStatsHandler returns the handler for the /stats command.
func NewStatsHandler(deps HandlerDeps) bot.HandlerFunc {
	return statsHandler{deps}.Handle
}

type statsHandler struct {
	deps HandlerDeps
}

func (h statsHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "stats")

	if update.Message == nil || update.Message.From == nil {
		log.WarnContext(ctx, "Stats handler received update with nil message or sender", "update_id", update.ID)
		return
	}
	if update.Message.Chat.ID != h.deps.Config.Telegram.ChatID {
		log.DebugContext(ctx, "Ignoring /stats from foreign chat", "chat_id", update.Message.Chat.ID)
		return
	}

	name, args := splitCommand(update.Message.Text)
	log.InfoContext(ctx, "Handling /stats command",
		"user_id", update.Message.From.ID, "stat", name, "args", args)

	// Only senders with a recorded name may query; results resolve user IDs
	// through the same history, so an unknown requester has nothing to see.
	known, err := h.deps.Store.DisplayNames(ctx, []int64{update.Message.From.ID})
	if err != nil {
		log.ErrorContext(ctx, "Failed to check requester name", "error", err)
		return
	}
	if len(known) == 0 {
		h.reply(ctx, b, update.Message.Chat.ID, "I don't know you yet. Send a message to the group first.")
		return
	}

	h.deps.Metrics.StatRequests.WithLabelValues(name).Inc()

	started := time.Now()
	res, err := h.deps.Engine.Run(ctx, name, args, update.Message.From.ID)
	h.deps.Metrics.StatDuration.WithLabelValues(name).Observe(time.Since(started).Seconds())

	var text string
	switch {
	case err == nil:
		text = renderResult(res)
	default:
		h.deps.Metrics.StatErrors.WithLabelValues(name).Inc()
		text = userFacingError(err, h.deps.Engine.Names())
	}

	h.reply(ctx, b, update.Message.Chat.ID, text)
}

func (h statsHandler) reply(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		h.deps.Logger.ErrorContext(ctx, "Failed to send stats reply", "error", err)
	}
}

// splitCommand extracts the statistic name and filter arguments from a
// "/stats <name> <args...>" message. A bare /stats runs counts.
func splitCommand(text string) (string, []string) {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return "counts", nil
	}
	return strings.ToLower(fields[1]), fields[2:]
}

// userFacingError maps engine errors onto replies safe to show in the chat.
func userFacingError(err error, names []string) string {
	if fe, ok := stats.IsFilterError(err); ok {
		return fe.Message
	}

	switch {
	case errors.Is(err, stats.ErrUnknownStat):
		return fmt.Sprintf("Unknown statistic. Available: %s.", strings.Join(names, ", "))
	case errors.Is(err, stats.ErrTimeout):
		return "That query took too long. Try narrowing the filter."
	default:
		return "Something went wrong. Please try again later."
	}
}

// NewChatIDHandler returns the handler for the /chatid command, used when
// configuring which group the bot serves.
func NewChatIDHandler(deps HandlerDeps) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		if update.Message == nil {
			return
		}

		_, err := b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   fmt.Sprintf("Chat ID: %d", update.Message.Chat.ID),
		})
		if err != nil {
			deps.Logger.ErrorContext(ctx, "Failed to send chat ID", "error", err)
		}
	}
}

// NewLoggerHandler returns the default handler that records every message in
// the configured group, including edits, along with sender name sightings.
func NewLoggerHandler(deps HandlerDeps) bot.HandlerFunc {
	return loggerHandler{deps}.Handle
}

type loggerHandler struct {
	deps HandlerDeps
}

func (h loggerHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "logger")

	msg := update.Message
	if msg == nil {
		msg = update.EditedMessage
	}
	if msg == nil {
		return
	}
	if msg.Chat.ID != h.deps.Config.Telegram.ChatID {
		return
	}

	row := messageFromUpdate(msg)
	if row == nil {
		return
	}

	if err := h.deps.Store.SaveMessage(ctx, row); err != nil {
		log.ErrorContext(ctx, "Failed to record message", "message_id", row.MessageID, "error", err)
		return
	}
	h.deps.Metrics.MessagesLogged.Inc()

	if msg.From != nil && !msg.From.IsBot {
		if name := displayName(msg.From); name != "" {
			err := h.deps.Store.RecordNameSighting(ctx, msg.From.ID, usernameOf(msg.From), name, row.Date)
			if err != nil {
				log.WarnContext(ctx, "Failed to record name sighting", "user_id", msg.From.ID, "error", err)
			}
		}
	}
}
