package telegram

import (
	"context"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// refreshWindow bounds which senders get their names re-checked: only users
// active within this window are queried against the Telegram API.
const refreshWindow = 30 * 24 * time.Hour

// RefreshDisplayNames re-resolves recently active senders through the
// Telegram API and records any name changes. Users who change their name
// without posting would otherwise keep their stale recorded name.
func RefreshDisplayNames(ctx context.Context, b *bot.Bot, deps HandlerDeps) {
	log := deps.Logger.With("task", "name_refresh")

	ids, err := deps.Store.ActiveSenders(ctx, time.Now().Add(-refreshWindow))
	if err != nil {
		log.ErrorContext(ctx, "Failed to list active senders", "error", err)
		return
	}

	var updated int
	for _, id := range ids {
		member, err := b.GetChatMember(ctx, &bot.GetChatMemberParams{
			ChatID: deps.Config.Telegram.ChatID,
			UserID: id,
		})
		if err != nil {
			log.DebugContext(ctx, "Failed to fetch chat member", "user_id", id, "error", err)
			continue
		}

		u := memberUser(member)
		if u == nil {
			continue
		}
		name := displayName(u)
		if name == "" {
			continue
		}

		if err := deps.Store.RecordNameSighting(ctx, id, usernameOf(u), name, time.Now().UTC()); err != nil {
			log.WarnContext(ctx, "Failed to record name sighting", "user_id", id, "error", err)
			continue
		}
		updated++
	}

	log.InfoContext(ctx, "Display name refresh finished", "checked", len(ids), "recorded", updated)
}

func memberUser(m *models.ChatMember) *models.User {
	if m == nil {
		return nil
	}

	switch {
	case m.Owner != nil:
		return m.Owner.User
	case m.Administrator != nil:
		return &m.Administrator.User
	case m.Member != nil:
		return m.Member.User
	case m.Restricted != nil:
		return m.Restricted.User
	default:
		return nil
	}
}
