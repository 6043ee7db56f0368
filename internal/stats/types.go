// Package stats implements the statistics query and aggregation engine: it
// parses user-supplied filter arguments into a validated Filter, fetches raw
// rows through a Store, and turns them into tables, series, and summaries.
package stats

import (
	"time"

	"github.com/edgard/groupstats/internal/query"
)

// Message types users may filter on. Service events (title changes, member
// events, pins) are tracked in the store but are not filterable and never
// appear in type breakdowns.
var userMessageTypes = []string{
	"text", "sticker", "photo", "animation", "video", "voice",
	"location", "video_note", "audio", "poll", "document", "other",
}

// Filter is a validated query descriptor. Zero bounds are open-ended; the
// effective upper bound defaults to "now" at query time, not at construction.
type Filter struct {
	Start        *time.Time
	End          *time.Time
	UserID       *int64
	LexicalQuery string
	Types        []string
}

// Predicates builds the tagged predicate tree for this filter over the
// message log columns. Every fetch operation shares this one routine.
func (f *Filter) Predicates() []query.Predicate {
	var preds []query.Predicate

	if f.Start != nil || f.End != nil {
		preds = append(preds, query.Range{Column: "date", Start: f.Start, End: f.End})
	}
	if f.UserID != nil {
		preds = append(preds, query.Eq{Column: "from_user", Value: *f.UserID})
	}
	if len(f.Types) > 0 {
		preds = append(preds, query.In{Column: "type", Values: f.Types})
	}
	if f.LexicalQuery != "" {
		preds = append(preds, query.FullText{Column: "text_index_col", Query: f.LexicalQuery})
	}

	return preds
}

// WithUser returns a copy of the filter scoped to one sender.
func (f *Filter) WithUser(userID int64) *Filter {
	c := *f
	c.UserID = &userID
	return &c
}

// ResultKind discriminates the shapes a statistic can produce.
type ResultKind int

const (
	// KindTable is an ordered list of named columns with bounded rows.
	KindTable ResultKind = iota
	// KindSeries is a list of (label, value) pairs for an external chart
	// renderer.
	KindSeries
	// KindSummary is a list of named key/value pairs.
	KindSummary
	// KindMessage is a plain text result (random message, "no data" notes).
	KindMessage
)

// StatResult is the typed output of one aggregation. It is produced fresh
// per request and never mutated after construction.
type StatResult struct {
	Kind    ResultKind
	Title   string
	Table   *Table
	Series  []Point
	Summary []KV
	Message string
}

// Table is an ordered list of named columns plus row data, already formatted
// as strings. Numeric columns are right-aligned by the renderer.
type Table struct {
	Columns []Column
	Rows    [][]string
}

// Column describes one table column.
type Column struct {
	Name    string
	Numeric bool
}

// Point is one x/y pair of a chart series.
type Point struct {
	Label string
	Value float64
}

// KV is one named value of a summary result.
type KV struct {
	Key   string
	Value string
}

// Row types returned by the Store, one per statistic family.

// SenderCount is one sender's message total.
type SenderCount struct {
	UserID int64 `db:"from_user"`
	Count  int64 `db:"count"`
}

// BucketCount is a count for one hour-of-day or weekday bucket.
type BucketCount struct {
	Bucket int   `db:"bucket"`
	Count  int64 `db:"count"`
}

// WeekdayHourCount is a count for one (weekday, hour) cell. Weekday 0 is
// Monday.
type WeekdayHourCount struct {
	Weekday int   `db:"weekday"`
	Hour    int   `db:"hour"`
	Count   int64 `db:"count"`
}

// DayCount is a message count for one calendar day in the display timezone.
type DayCount struct {
	Day   time.Time `db:"day"`
	Count int64     `db:"count"`
}

// TitleChange is one observed (timestamp, chat title) pair.
type TitleChange struct {
	Date  time.Time `db:"date"`
	Title string    `db:"new_chat_title"`
}

// TypeCount is a message count for one message type.
type TypeCount struct {
	Type  string `db:"type"`
	Count int64  `db:"count"`
}

// Lexeme is one normalized word form with its distinct-message and total
// occurrence counts.
type Lexeme struct {
	Word     string `db:"word"`
	Messages int64  `db:"ndoc"`
	Uses     int64  `db:"nentry"`
}

// UserActivity summarizes one sender's message log.
type UserActivity struct {
	Count int64
	First time.Time
}

// NameEvent is one recorded username change.
type NameEvent struct {
	Date time.Time `db:"date"`
	Name string    `db:"username"`
}

// SenderMessages is one sender's ordered UTC timestamp sequence, used only
// as input to the correlation/delta engine.
type SenderMessages struct {
	UserID int64
	Times  []time.Time
}

// RandomMessage is one uniformly selected text message.
type RandomMessage struct {
	Date   time.Time `db:"date"`
	UserID int64     `db:"from_user"`
	Text   string    `db:"text"`
}
