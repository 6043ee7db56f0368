package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/edgard/groupstats/internal/query"
	"github.com/edgard/groupstats/internal/stats"
)

// serviceTypesSQL excludes service events from type breakdowns. The list is
// a fixed internal constant, never user input.
const serviceTypesSQL = `('new_chat_members', 'left_chat_member', 'new_chat_photo', 'new_chat_title', 'migrate_from_group', 'pinned_message')`

// Store is the full data access interface: the read side consumed by the
// statistics engine plus the write path used by the message logger and the
// chat export importer.
type Store interface {
	stats.Store

	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// SaveMessage inserts a message, updating the existing row when the
	// message ID was already recorded. Replaying the same message is safe.
	SaveMessage(ctx context.Context, msg *Message) error

	// RecordNameSighting appends a name history row unless the user's latest
	// recorded display name is already equal to displayName.
	RecordNameSighting(ctx context.Context, userID int64, username sql.NullString, displayName string, seenAt time.Time) error

	// ActiveSenders returns the IDs of users with at least one message since
	// the given time.
	ActiveSenders(ctx context.Context, since time.Time) ([]int64, error)
}

// pgStore implements Store over PostgreSQL using sqlx.
type pgStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a Store backed by the given connection pool.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &pgStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

func (s *pgStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// SaveMessage upserts one message row keyed by message_id.
func (s *pgStore) SaveMessage(ctx context.Context, msg *Message) error {
	if msg == nil {
		return fmt.Errorf("cannot save nil message")
	}
	if msg.MessageID == 0 {
		return fmt.Errorf("message must have a non-zero message_id")
	}
	if msg.Date.IsZero() {
		return fmt.Errorf("message must have a non-zero date")
	}

	const q = `
        INSERT INTO messages_utc (
            message_id, date, from_user, type, text, caption,
            sticker_set_name, new_chat_title, reply_to_message, file_id,
            forward_from, forward_from_chat, forward_date
        ) VALUES (
            :message_id, :date, :from_user, :type, :text, :caption,
            :sticker_set_name, :new_chat_title, :reply_to_message, :file_id,
            :forward_from, :forward_from_chat, :forward_date
        )
        ON CONFLICT (message_id) DO UPDATE SET
            date = excluded.date,
            from_user = excluded.from_user,
            type = excluded.type,
            text = excluded.text,
            caption = excluded.caption,
            sticker_set_name = excluded.sticker_set_name,
            new_chat_title = excluded.new_chat_title,
            reply_to_message = excluded.reply_to_message,
            file_id = excluded.file_id,
            forward_from = excluded.forward_from,
            forward_from_chat = excluded.forward_from_chat,
            forward_date = excluded.forward_date;
    `

	if _, err := s.db.NamedExecContext(ctx, q, msg); err != nil {
		s.logger.ErrorContext(ctx, "Error saving message", "message_id", msg.MessageID, "error", err)
		return fmt.Errorf("failed to save message %d: %w", msg.MessageID, err)
	}

	return nil
}

// RecordNameSighting appends a row to the name history when the name changed.
func (s *pgStore) RecordNameSighting(ctx context.Context, userID int64, username sql.NullString, displayName string, seenAt time.Time) error {
	if userID == 0 {
		return fmt.Errorf("user_id cannot be zero")
	}
	if displayName == "" {
		return fmt.Errorf("display name cannot be empty")
	}

	const q = `
        INSERT INTO user_names (user_id, date, username, display_name)
        SELECT $1, $2, $3, $4
        WHERE $4 IS DISTINCT FROM (
            SELECT display_name FROM user_names
            WHERE user_id = $1
            ORDER BY date DESC
            LIMIT 1
        );
    `

	if _, err := s.db.ExecContext(ctx, q, userID, seenAt.UTC(), username, displayName); err != nil {
		s.logger.ErrorContext(ctx, "Error recording name sighting", "user_id", userID, "error", err)
		return fmt.Errorf("failed to record name for user %d: %w", userID, err)
	}

	return nil
}

func (s *pgStore) ActiveSenders(ctx context.Context, since time.Time) ([]int64, error) {
	var ids []int64
	const q = `
        SELECT DISTINCT from_user FROM messages_utc
        WHERE from_user IS NOT NULL AND date >= $1
        ORDER BY from_user;
    `
	if err := s.db.SelectContext(ctx, &ids, q, since.UTC()); err != nil {
		return nil, fmt.Errorf("failed to list active senders: %w", err)
	}
	return ids, nil
}

func (s *pgStore) SenderCounts(ctx context.Context, f *stats.Filter) ([]stats.SenderCount, error) {
	where, args := query.Where(f.Predicates(), 0)
	q := fmt.Sprintf(`
        SELECT from_user, count(*) AS count
        FROM messages_utc
        WHERE from_user IS NOT NULL AND %s
        GROUP BY from_user
        ORDER BY count DESC, from_user;
    `, where)

	var rows []stats.SenderCount
	if err := s.db.SelectContext(ctx, &rows, q, args...); err != nil {
		s.logger.ErrorContext(ctx, "Error fetching sender counts", "error", err)
		return nil, fmt.Errorf("failed to fetch sender counts: %w", err)
	}
	return rows, nil
}

func (s *pgStore) HourCounts(ctx context.Context, f *stats.Filter, tz string) ([]stats.BucketCount, error) {
	where, args := query.Where(f.Predicates(), 1)
	q := fmt.Sprintf(`
        SELECT extract(hour FROM timezone($1, date))::int AS bucket, count(*) AS count
        FROM messages_utc
        WHERE %s
        GROUP BY bucket
        ORDER BY bucket;
    `, where)

	var rows []stats.BucketCount
	if err := s.db.SelectContext(ctx, &rows, q, append([]any{tz}, args...)...); err != nil {
		s.logger.ErrorContext(ctx, "Error fetching hour counts", "error", err)
		return nil, fmt.Errorf("failed to fetch hour counts: %w", err)
	}
	return rows, nil
}

// WeekdayCounts buckets by ISO weekday shifted to 0 = Monday.
func (s *pgStore) WeekdayCounts(ctx context.Context, f *stats.Filter, tz string) ([]stats.BucketCount, error) {
	where, args := query.Where(f.Predicates(), 1)
	q := fmt.Sprintf(`
        SELECT (extract(isodow FROM timezone($1, date))::int - 1) AS bucket, count(*) AS count
        FROM messages_utc
        WHERE %s
        GROUP BY bucket
        ORDER BY bucket;
    `, where)

	var rows []stats.BucketCount
	if err := s.db.SelectContext(ctx, &rows, q, append([]any{tz}, args...)...); err != nil {
		s.logger.ErrorContext(ctx, "Error fetching weekday counts", "error", err)
		return nil, fmt.Errorf("failed to fetch weekday counts: %w", err)
	}
	return rows, nil
}

func (s *pgStore) WeekdayHourCounts(ctx context.Context, f *stats.Filter, tz string) ([]stats.WeekdayHourCount, error) {
	where, args := query.Where(f.Predicates(), 1)
	q := fmt.Sprintf(`
        SELECT (extract(isodow FROM timezone($1, date))::int - 1) AS weekday,
               extract(hour FROM timezone($1, date))::int AS hour,
               count(*) AS count
        FROM messages_utc
        WHERE %s
        GROUP BY weekday, hour
        ORDER BY weekday, hour;
    `, where)

	var rows []stats.WeekdayHourCount
	if err := s.db.SelectContext(ctx, &rows, q, append([]any{tz}, args...)...); err != nil {
		s.logger.ErrorContext(ctx, "Error fetching weekday/hour counts", "error", err)
		return nil, fmt.Errorf("failed to fetch weekday/hour counts: %w", err)
	}
	return rows, nil
}

func (s *pgStore) DayCounts(ctx context.Context, f *stats.Filter, tz string) ([]stats.DayCount, error) {
	where, args := query.Where(f.Predicates(), 1)
	q := fmt.Sprintf(`
        SELECT date_trunc('day', timezone($1, date)) AS day, count(*) AS count
        FROM messages_utc
        WHERE %s
        GROUP BY day
        ORDER BY day;
    `, where)

	var rows []stats.DayCount
	if err := s.db.SelectContext(ctx, &rows, q, append([]any{tz}, args...)...); err != nil {
		s.logger.ErrorContext(ctx, "Error fetching day counts", "error", err)
		return nil, fmt.Errorf("failed to fetch day counts: %w", err)
	}
	return rows, nil
}

func (s *pgStore) TitleHistory(ctx context.Context, f *stats.Filter) ([]stats.TitleChange, error) {
	where, args := query.Where(f.Predicates(), 0)
	q := fmt.Sprintf(`
        SELECT date, new_chat_title
        FROM messages_utc
        WHERE type = 'new_chat_title' AND new_chat_title IS NOT NULL AND %s
        ORDER BY date;
    `, where)

	var rows []stats.TitleChange
	if err := s.db.SelectContext(ctx, &rows, q, args...); err != nil {
		s.logger.ErrorContext(ctx, "Error fetching title history", "error", err)
		return nil, fmt.Errorf("failed to fetch title history: %w", err)
	}
	return rows, nil
}

func (s *pgStore) TypeCounts(ctx context.Context, f *stats.Filter) ([]stats.TypeCount, error) {
	where, args := query.Where(f.Predicates(), 0)
	q := fmt.Sprintf(`
        SELECT type, count(*) AS count
        FROM messages_utc
        WHERE type NOT IN %s AND %s
        GROUP BY type
        ORDER BY count DESC, type;
    `, serviceTypesSQL, where)

	var rows []stats.TypeCount
	if err := s.db.SelectContext(ctx, &rows, q, args...); err != nil {
		s.logger.ErrorContext(ctx, "Error fetching type counts", "error", err)
		return nil, fmt.Errorf("failed to fetch type counts: %w", err)
	}
	return rows, nil
}

// LexemeCounts aggregates the indexed tsvector column with ts_stat. ts_stat
// takes its source query as literal text and cannot see outer bind
// parameters, so the filter is rendered inline with dollar-quoted values and
// the whole inner query is dollar-quoted again with an independent tag.
func (s *pgStore) LexemeCounts(ctx context.Context, f *stats.Filter, limit int) ([]stats.Lexeme, error) {
	where, err := query.WhereInline(f.Predicates())
	if err != nil {
		return nil, fmt.Errorf("failed to render lexeme filter: %w", err)
	}

	inner := fmt.Sprintf(`SELECT text_index_col FROM messages_utc WHERE text_index_col IS NOT NULL AND %s`, where)
	quoted, err := query.DollarQuote(inner)
	if err != nil {
		return nil, fmt.Errorf("failed to quote lexeme query: %w", err)
	}

	q := fmt.Sprintf(`
        SELECT word, ndoc, nentry
        FROM ts_stat(%s)
        ORDER BY ndoc DESC, word
        LIMIT $1;
    `, quoted)

	var rows []stats.Lexeme
	if err := s.db.SelectContext(ctx, &rows, q, limit); err != nil {
		s.logger.ErrorContext(ctx, "Error fetching lexeme counts", "error", err)
		return nil, fmt.Errorf("failed to fetch lexeme counts: %w", err)
	}
	return rows, nil
}

func (s *pgStore) MessageTimes(ctx context.Context, f *stats.Filter) ([]stats.SenderMessages, error) {
	where, args := query.Where(f.Predicates(), 0)
	q := fmt.Sprintf(`
        SELECT from_user, date
        FROM messages_utc
        WHERE from_user IS NOT NULL AND %s
        ORDER BY from_user, date;
    `, where)

	var rows []struct {
		UserID int64     `db:"from_user"`
		Date   time.Time `db:"date"`
	}
	if err := s.db.SelectContext(ctx, &rows, q, args...); err != nil {
		s.logger.ErrorContext(ctx, "Error fetching message times", "error", err)
		return nil, fmt.Errorf("failed to fetch message times: %w", err)
	}

	var senders []stats.SenderMessages
	for _, r := range rows {
		if n := len(senders); n == 0 || senders[n-1].UserID != r.UserID {
			senders = append(senders, stats.SenderMessages{UserID: r.UserID})
		}
		last := &senders[len(senders)-1]
		last.Times = append(last.Times, r.Date.UTC())
	}
	return senders, nil
}

func (s *pgStore) Activity(ctx context.Context, f *stats.Filter) (stats.UserActivity, error) {
	where, args := query.Where(f.Predicates(), 0)
	q := fmt.Sprintf(`
        SELECT count(*) AS count, min(date) AS first
        FROM messages_utc
        WHERE %s;
    `, where)

	var row struct {
		Count int64        `db:"count"`
		First sql.NullTime `db:"first"`
	}
	if err := s.db.GetContext(ctx, &row, q, args...); err != nil {
		s.logger.ErrorContext(ctx, "Error fetching activity", "error", err)
		return stats.UserActivity{}, fmt.Errorf("failed to fetch activity: %w", err)
	}

	activity := stats.UserActivity{Count: row.Count}
	if row.First.Valid {
		activity.First = row.First.Time.UTC()
	}
	return activity, nil
}

func (s *pgStore) NameHistory(ctx context.Context, userID int64) ([]stats.NameEvent, error) {
	const q = `
        SELECT date, display_name AS username
        FROM user_names
        WHERE user_id = $1
        ORDER BY date;
    `

	var rows []stats.NameEvent
	if err := s.db.SelectContext(ctx, &rows, q, userID); err != nil {
		s.logger.ErrorContext(ctx, "Error fetching name history", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to fetch name history for user %d: %w", userID, err)
	}
	return rows, nil
}

func (s *pgStore) RandomMessage(ctx context.Context, f *stats.Filter) (*stats.RandomMessage, error) {
	where, args := query.Where(f.Predicates(), 0)
	q := fmt.Sprintf(`
        SELECT date, from_user, text
        FROM messages_utc
        WHERE from_user IS NOT NULL AND text IS NOT NULL AND %s
        ORDER BY random()
        LIMIT 1;
    `, where)

	var row stats.RandomMessage
	err := s.db.GetContext(ctx, &row, q, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "Error fetching random message", "error", err)
		return nil, fmt.Errorf("failed to fetch random message: %w", err)
	}
	return &row, nil
}

func (s *pgStore) DisplayNames(ctx context.Context, userIDs []int64) (map[int64]string, error) {
	if len(userIDs) == 0 {
		return map[int64]string{}, nil
	}

	q, args, err := sqlx.In(`
        SELECT DISTINCT ON (user_id) user_id, display_name
        FROM user_names
        WHERE user_id IN (?)
        ORDER BY user_id, date DESC;
    `, userIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to build display name query: %w", err)
	}
	q = s.db.Rebind(q)

	var rows []struct {
		UserID      int64  `db:"user_id"`
		DisplayName string `db:"display_name"`
	}
	if err := s.db.SelectContext(ctx, &rows, q, args...); err != nil {
		s.logger.ErrorContext(ctx, "Error fetching display names", "error", err)
		return nil, fmt.Errorf("failed to fetch display names: %w", err)
	}

	names := make(map[int64]string, len(rows))
	for _, r := range rows {
		names[r.UserID] = strings.TrimSpace(r.DisplayName)
	}
	return names, nil
}
