package importer

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/groupstats/internal/database"
)

type fakeStore struct {
	messages map[int64]*database.Message
	names    []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{messages: map[int64]*database.Message{}}
}

func (s *fakeStore) SaveMessage(_ context.Context, msg *database.Message) error {
	s.messages[msg.MessageID] = msg
	return nil
}

func (s *fakeStore) RecordNameSighting(_ context.Context, userID int64, _ sql.NullString, displayName string, _ time.Time) error {
	s.names = append(s.names, displayName)
	return nil
}

const sampleExport = `{
  "name": "Test Group",
  "type": "private_supergroup",
  "id": 1234567890,
  "messages": [
    {
      "id": 1,
      "type": "message",
      "date": "2024-01-15T10:00:00",
      "from": "Alice Example",
      "from_id": "user100",
      "text": "hello world"
    },
    {
      "id": 2,
      "type": "message",
      "date": "2024-01-15T10:05:00",
      "from": "Bob Example",
      "from_id": "user200",
      "text": [
        "check ",
        {"type": "link", "text": "https://example.com"},
        " out"
      ]
    },
    {
      "id": 3,
      "type": "message",
      "date": "2024-01-15T10:10:00",
      "from": "Alice Example",
      "from_id": "user100",
      "photo": "photos/photo_1.jpg",
      "text": "look at this"
    },
    {
      "id": 4,
      "type": "message",
      "date": "2024-01-15T10:15:00",
      "from": "Bob Example",
      "from_id": "user200",
      "media_type": "voice_message",
      "file": "voice/msg.ogg",
      "text": ""
    },
    {
      "id": 5,
      "type": "service",
      "date": "2024-01-15T11:00:00",
      "actor": "Alice Example",
      "actor_id": "user100",
      "action": "edit_group_title",
      "title": "New Group Name",
      "text": ""
    },
    {
      "id": 6,
      "type": "service",
      "date": "2024-01-15T11:30:00",
      "actor": "Carol",
      "actor_id": "user300",
      "action": "score_in_game",
      "text": ""
    },
    {
      "id": 7,
      "type": "message",
      "date": "2024-01-15T12:00:00",
      "from": "Some Channel",
      "from_id": "channel900",
      "text": "broadcast"
    }
  ]
}`

func TestImport(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	im := New(store, time.UTC, nil)

	imported, skipped, err := im.Import(context.Background(), strings.NewReader(sampleExport))
	require.NoError(t, err)

	assert.Equal(t, 5, imported)
	assert.Equal(t, 2, skipped) // unknown service action + channel post

	text := store.messages[1]
	require.NotNil(t, text)
	assert.Equal(t, "text", text.Type)
	assert.Equal(t, int64(100), text.UserID)
	assert.Equal(t, "hello world", text.Text.String)
	assert.Equal(t, time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC), text.Date)

	// Entity arrays flatten to their visible text.
	flattened := store.messages[2]
	require.NotNil(t, flattened)
	assert.Equal(t, "check https://example.com out", flattened.Text.String)

	photo := store.messages[3]
	require.NotNil(t, photo)
	assert.Equal(t, "photo", photo.Type)
	assert.Equal(t, "look at this", photo.Caption.String)
	assert.False(t, photo.Text.Valid)

	voice := store.messages[4]
	require.NotNil(t, voice)
	assert.Equal(t, "voice", voice.Type)

	title := store.messages[5]
	require.NotNil(t, title)
	assert.Equal(t, "new_chat_title", title.Type)
	assert.Equal(t, "New Group Name", title.NewChatTitle.String)

	assert.Contains(t, store.names, "Alice Example")
	assert.Contains(t, store.names, "Bob Example")
}

func TestImportHonorsTimezone(t *testing.T) {
	t.Parallel()

	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	store := newFakeStore()
	im := New(store, loc, nil)

	export := `{"messages": [
      {"id": 1, "type": "message", "date": "2024-06-01T12:00:00", "from": "A", "from_id": "user1", "text": "hi"}
    ]}`

	_, _, err = im.Import(context.Background(), strings.NewReader(export))
	require.NoError(t, err)

	// Noon CEST is 10:00 UTC.
	assert.Equal(t, time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC), store.messages[1].Date)
}

func TestImportIsIdempotent(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	im := New(store, time.UTC, nil)

	export := `{"messages": [
      {"id": 1, "type": "message", "date": "2024-06-01T12:00:00", "from": "A", "from_id": "user1", "text": "hi"}
    ]}`

	for i := 0; i < 2; i++ {
		imported, _, err := im.Import(context.Background(), strings.NewReader(export))
		require.NoError(t, err)
		assert.Equal(t, 1, imported)
	}

	// Keyed by message ID, the second run overwrites rather than duplicates.
	assert.Len(t, store.messages, 1)
}

func TestFlattenText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "plain string", raw: `"hello"`, want: "hello"},
		{name: "empty", raw: `""`, want: ""},
		{name: "mixed array", raw: `["a ", {"type": "bold", "text": "b"}, " c"]`, want: "a b c"},
		{name: "entities only", raw: `[{"type": "mention", "text": "@user"}]`, want: "@user"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, flattenText([]byte(tt.raw)))
		})
	}
}

func TestParsePeerID(t *testing.T) {
	t.Parallel()

	assert.Equal(t, int64(123456), parsePeerID("user123456"))
	assert.Equal(t, int64(0), parsePeerID("channel900"))
	assert.Equal(t, int64(0), parsePeerID(""))
	assert.Equal(t, int64(0), parsePeerID("userabc"))
}
