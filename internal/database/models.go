package database

import (
	"database/sql"
	"time"
)

// Message is one row of the message log. Timestamps are stored as UTC
// timestamptz; nullable columns use sql.Null types so absent Telegram fields
// round-trip as SQL NULL rather than zero values.
type Message struct {
	MessageID int64     `db:"message_id"`
	Date      time.Time `db:"date"`
	UserID    int64     `db:"from_user"`
	Type      string    `db:"type"`

	Text           sql.NullString `db:"text"`
	Caption        sql.NullString `db:"caption"`
	StickerSetName sql.NullString `db:"sticker_set_name"`
	NewChatTitle   sql.NullString `db:"new_chat_title"`
	ReplyToMessage sql.NullInt64  `db:"reply_to_message"`
	FileID         sql.NullString `db:"file_id"`

	ForwardedFrom     sql.NullInt64 `db:"forward_from"`
	ForwardedFromChat sql.NullInt64 `db:"forward_from_chat"`
	ForwardDate       sql.NullTime  `db:"forward_date"`
}

// UserName is one observed (user, name) sighting. A new row is recorded only
// when the name differs from the user's latest recorded one.
type UserName struct {
	UserID      int64          `db:"user_id"`
	Date        time.Time      `db:"date"`
	Username    sql.NullString `db:"username"`
	DisplayName string         `db:"display_name"`
}
