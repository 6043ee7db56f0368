// Package importer loads Telegram Desktop JSON chat exports into the
// message log, so statistics cover history from before the bot joined.
package importer

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/edgard/groupstats/internal/database"
)

// exportTimeLayout is the timestamp format Telegram Desktop writes. Export
// timestamps carry no zone and are interpreted in the importer's location.
const exportTimeLayout = "2006-01-02T15:04:05"

// mediaTypes maps the export's media_type values onto message log types.
var mediaTypes = map[string]string{
	"sticker":       "sticker",
	"animation":     "animation",
	"video_file":    "video",
	"video_message": "video_note",
	"voice_message": "voice",
	"audio_file":    "audio",
}

// serviceActions maps export service actions onto message log types.
var serviceActions = map[string]string{
	"edit_group_title":   "new_chat_title",
	"edit_group_photo":   "new_chat_photo",
	"invite_members":     "new_chat_members",
	"join_group_by_link": "new_chat_members",
	"remove_members":     "left_chat_member",
	"pin_message":        "pinned_message",
}

// Store is the subset of the data access layer the importer writes through.
type Store interface {
	SaveMessage(ctx context.Context, msg *database.Message) error
	RecordNameSighting(ctx context.Context, userID int64, username sql.NullString, displayName string, seenAt time.Time) error
}

// Importer replays a chat export into the store. Rows are keyed by message
// ID, so importing the same export twice is safe.
type Importer struct {
	store  Store
	loc    *time.Location
	logger *slog.Logger
}

// New creates an Importer. loc is the timezone the export was produced in.
func New(store Store, loc *time.Location, logger *slog.Logger) *Importer {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{
		store:  store,
		loc:    loc,
		logger: logger.With("component", "importer"),
	}
}

// ImportFile reads a Telegram Desktop export file and stores its messages.
// It returns the number of messages imported and skipped.
func (im *Importer) ImportFile(ctx context.Context, path string) (imported, skipped int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to open export file: %w", err)
	}
	defer f.Close()

	return im.Import(ctx, f)
}

// Import streams the export's messages array without decoding the whole
// file into memory.
func (im *Importer) Import(ctx context.Context, r io.Reader) (imported, skipped int, err error) {
	dec := json.NewDecoder(r)

	if err := seekMessagesArray(dec); err != nil {
		return 0, 0, err
	}

	for dec.More() {
		if err := ctx.Err(); err != nil {
			return imported, skipped, err
		}

		var raw exportMessage
		if err := dec.Decode(&raw); err != nil {
			return imported, skipped, fmt.Errorf("failed to decode export message: %w", err)
		}

		row, from, ok := im.convert(&raw)
		if !ok {
			skipped++
			continue
		}

		if err := im.store.SaveMessage(ctx, row); err != nil {
			return imported, skipped, fmt.Errorf("failed to store message %d: %w", row.MessageID, err)
		}
		if from != "" && row.UserID != 0 {
			if err := im.store.RecordNameSighting(ctx, row.UserID, sql.NullString{}, from, row.Date); err != nil {
				im.logger.Warn("Failed to record name from export", "user_id", row.UserID, "error", err)
			}
		}
		imported++
	}

	im.logger.Info("Chat export imported", "imported", imported, "skipped", skipped)
	return imported, skipped, nil
}

// seekMessagesArray advances the decoder to just inside the top-level
// "messages" array.
func seekMessagesArray(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("failed to read export: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("export is not a JSON object")
	}

	for {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("export has no messages array: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected token %v in export header", tok)
		}

		if key == "messages" {
			tok, err := dec.Token()
			if err != nil {
				return fmt.Errorf("failed to read messages array: %w", err)
			}
			if d, ok := tok.(json.Delim); !ok || d != '[' {
				return fmt.Errorf("messages is not an array")
			}
			return nil
		}

		// Skip the value of any other header field.
		var discard json.RawMessage
		if err := dec.Decode(&discard); err != nil {
			return fmt.Errorf("failed to skip export field %q: %w", key, err)
		}
	}
}

// exportMessage is one entry of the export's messages array.
type exportMessage struct {
	ID               int64           `json:"id"`
	Type             string          `json:"type"`
	Date             string          `json:"date"`
	From             string          `json:"from"`
	FromID           string          `json:"from_id"`
	Actor            string          `json:"actor"`
	ActorID          string          `json:"actor_id"`
	Action           string          `json:"action"`
	Title            string          `json:"title"`
	Text             json.RawMessage `json:"text"`
	Photo            string          `json:"photo"`
	File             string          `json:"file"`
	MediaType        string          `json:"media_type"`
	StickerEmoji     string          `json:"sticker_emoji"`
	ReplyToMessageID int64           `json:"reply_to_message_id"`
	ForwardedFrom    string          `json:"forwarded_from"`
	Location         json.RawMessage `json:"location_information"`
	Poll             json.RawMessage `json:"poll"`
}

// convert maps one export entry onto a message log row. The second return is
// the sender's display name for the name history.
func (im *Importer) convert(raw *exportMessage) (*database.Message, string, bool) {
	if raw.ID <= 0 {
		return nil, "", false
	}

	date, err := time.ParseInLocation(exportTimeLayout, raw.Date, im.loc)
	if err != nil {
		return nil, "", false
	}

	row := &database.Message{
		MessageID: raw.ID,
		Date:      date.UTC(),
	}
	if raw.ReplyToMessageID > 0 {
		row.ReplyToMessage = sql.NullInt64{Int64: raw.ReplyToMessageID, Valid: true}
	}

	switch raw.Type {
	case "service":
		kind, ok := serviceActions[raw.Action]
		if !ok {
			return nil, "", false
		}
		row.Type = kind
		row.UserID = parsePeerID(raw.ActorID)
		if kind == "new_chat_title" && raw.Title != "" {
			row.NewChatTitle = sql.NullString{String: raw.Title, Valid: true}
		}
		return row, strings.TrimSpace(raw.Actor), true

	case "message":
		row.UserID = parsePeerID(raw.FromID)
		if row.UserID == 0 {
			// Channel or anonymous posts carry no user to attribute.
			return nil, "", false
		}

		text := flattenText(raw.Text)

		switch {
		case raw.MediaType != "":
			kind, ok := mediaTypes[raw.MediaType]
			if !ok {
				kind = "other"
			}
			row.Type = kind
			if text != "" {
				row.Caption = sql.NullString{String: text, Valid: true}
			}
		case raw.Photo != "":
			row.Type = "photo"
			if text != "" {
				row.Caption = sql.NullString{String: text, Valid: true}
			}
		case raw.File != "":
			row.Type = "document"
			if text != "" {
				row.Caption = sql.NullString{String: text, Valid: true}
			}
		case len(raw.Location) > 0:
			row.Type = "location"
		case len(raw.Poll) > 0:
			row.Type = "poll"
		case text != "":
			row.Type = "text"
			row.Text = sql.NullString{String: text, Valid: true}
		default:
			row.Type = "other"
		}

		return row, strings.TrimSpace(raw.From), true

	default:
		return nil, "", false
	}
}

// parsePeerID strips the export's "user"/"channel" prefix from a peer ID.
// Only user peers produce a sender; everything else maps to zero.
func parsePeerID(s string) int64 {
	if !strings.HasPrefix(s, "user") {
		return 0
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(s, "user"), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// flattenText joins the export's text field, which is either a plain string
// or an array mixing strings and entity objects.
func flattenText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var parts []json.RawMessage
	if err := json.Unmarshal(raw, &parts); err != nil {
		return ""
	}

	var b strings.Builder
	for _, part := range parts {
		var piece string
		if err := json.Unmarshal(part, &piece); err == nil {
			b.WriteString(piece)
			continue
		}

		var entity struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(part, &entity); err == nil {
			b.WriteString(entity.Text)
		}
	}
	return b.String()
}
