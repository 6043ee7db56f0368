package telegram

import (
	"database/sql"
	"strings"
	"time"

	"github.com/go-telegram/bot/models"

	"github.com/edgard/groupstats/internal/database"
)

// messageFromUpdate classifies a Telegram message and maps it onto a message
// log row. It returns nil for messages carrying nothing worth recording.
func messageFromUpdate(m *models.Message) *database.Message {
	if m == nil {
		return nil
	}

	row := &database.Message{
		MessageID: int64(m.ID),
		Date:      time.Unix(int64(m.Date), 0).UTC(),
	}
	if m.From != nil {
		row.UserID = m.From.ID
	}
	if m.ReplyToMessage != nil {
		row.ReplyToMessage = sql.NullInt64{Int64: int64(m.ReplyToMessage.ID), Valid: true}
	}
	if m.Caption != "" {
		row.Caption = sql.NullString{String: m.Caption, Valid: true}
	}
	applyForwardOrigin(row, m.ForwardOrigin)

	switch {
	case m.NewChatTitle != "":
		row.Type = "new_chat_title"
		row.NewChatTitle = sql.NullString{String: m.NewChatTitle, Valid: true}
	case len(m.NewChatMembers) > 0:
		row.Type = "new_chat_members"
	case m.LeftChatMember != nil:
		row.Type = "left_chat_member"
	case len(m.NewChatPhoto) > 0:
		row.Type = "new_chat_photo"
	case m.PinnedMessage != nil:
		row.Type = "pinned_message"
	case m.Sticker != nil:
		row.Type = "sticker"
		row.FileID = sql.NullString{String: m.Sticker.FileID, Valid: true}
		if m.Sticker.SetName != "" {
			row.StickerSetName = sql.NullString{String: m.Sticker.SetName, Valid: true}
		}
	case m.Animation != nil:
		row.Type = "animation"
		row.FileID = sql.NullString{String: m.Animation.FileID, Valid: true}
	case m.Video != nil:
		row.Type = "video"
		row.FileID = sql.NullString{String: m.Video.FileID, Valid: true}
	case m.VideoNote != nil:
		row.Type = "video_note"
		row.FileID = sql.NullString{String: m.VideoNote.FileID, Valid: true}
	case m.Voice != nil:
		row.Type = "voice"
		row.FileID = sql.NullString{String: m.Voice.FileID, Valid: true}
	case m.Audio != nil:
		row.Type = "audio"
		row.FileID = sql.NullString{String: m.Audio.FileID, Valid: true}
	case m.Document != nil:
		row.Type = "document"
		row.FileID = sql.NullString{String: m.Document.FileID, Valid: true}
	case len(m.Photo) > 0:
		row.Type = "photo"
		row.FileID = sql.NullString{String: m.Photo[len(m.Photo)-1].FileID, Valid: true}
	case m.Location != nil:
		row.Type = "location"
	case m.Poll != nil:
		row.Type = "poll"
	case m.Text != "":
		row.Type = "text"
		row.Text = sql.NullString{String: m.Text, Valid: true}
	default:
		row.Type = "other"
	}

	return row
}

func applyForwardOrigin(row *database.Message, origin *models.MessageOrigin) {
	if origin == nil {
		return
	}

	switch {
	case origin.MessageOriginUser != nil:
		row.ForwardedFrom = sql.NullInt64{Int64: origin.MessageOriginUser.SenderUser.ID, Valid: true}
		row.ForwardDate = sql.NullTime{Time: time.Unix(int64(origin.MessageOriginUser.Date), 0).UTC(), Valid: true}
	case origin.MessageOriginChat != nil:
		row.ForwardedFromChat = sql.NullInt64{Int64: origin.MessageOriginChat.SenderChat.ID, Valid: true}
		row.ForwardDate = sql.NullTime{Time: time.Unix(int64(origin.MessageOriginChat.Date), 0).UTC(), Valid: true}
	case origin.MessageOriginChannel != nil:
		row.ForwardedFromChat = sql.NullInt64{Int64: origin.MessageOriginChannel.Chat.ID, Valid: true}
		row.ForwardDate = sql.NullTime{Time: time.Unix(int64(origin.MessageOriginChannel.Date), 0).UTC(), Valid: true}
	}
}

// displayName builds a user's presentable name from first/last name, falling
// back to the username.
func displayName(u *models.User) string {
	if u == nil {
		return ""
	}
	name := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	if name == "" {
		name = u.Username
	}
	return name
}

func usernameOf(u *models.User) sql.NullString {
	if u == nil || u.Username == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: u.Username, Valid: true}
}
