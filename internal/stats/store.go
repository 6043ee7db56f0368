package stats

import "context"

// Store is the read side of the message log that the engine aggregates over.
// Implementations must honor the filter's predicates on every method and
// must interpret the tz argument as an IANA timezone name for calendar
// bucketing.
type Store interface {
	// SenderCounts returns per-sender message totals, descending by count.
	SenderCounts(ctx context.Context, f *Filter) ([]SenderCount, error)

	// HourCounts returns message counts bucketed by hour of day (0-23) in tz.
	HourCounts(ctx context.Context, f *Filter, tz string) ([]BucketCount, error)

	// WeekdayCounts returns message counts bucketed by weekday in tz, with
	// 0 meaning Monday.
	WeekdayCounts(ctx context.Context, f *Filter, tz string) ([]BucketCount, error)

	// WeekdayHourCounts returns counts for every populated (weekday, hour)
	// cell in tz.
	WeekdayHourCounts(ctx context.Context, f *Filter, tz string) ([]WeekdayHourCount, error)

	// DayCounts returns per-calendar-day message counts in tz, ascending by
	// day, holding only days with at least one message.
	DayCounts(ctx context.Context, f *Filter, tz string) ([]DayCount, error)

	// TitleHistory returns title change events in chronological order.
	TitleHistory(ctx context.Context, f *Filter) ([]TitleChange, error)

	// TypeCounts returns per-type message totals, descending by count,
	// excluding service message types.
	TypeCounts(ctx context.Context, f *Filter) ([]TypeCount, error)

	// LexemeCounts returns the most frequent normalized word forms, up to
	// limit, descending by distinct-message count.
	LexemeCounts(ctx context.Context, f *Filter, limit int) ([]Lexeme, error)

	// MessageTimes returns every matching sender's UTC timestamps in
	// ascending order, grouped per sender.
	MessageTimes(ctx context.Context, f *Filter) ([]SenderMessages, error)

	// Activity returns the message count and first message timestamp for the
	// filter's scope.
	Activity(ctx context.Context, f *Filter) (UserActivity, error)

	// NameHistory returns a user's recorded username changes in
	// chronological order.
	NameHistory(ctx context.Context, userID int64) ([]NameEvent, error)

	// RandomMessage returns one uniformly selected text message, or nil when
	// nothing matches.
	RandomMessage(ctx context.Context, f *Filter) (*RandomMessage, error)

	// DisplayNames resolves user IDs to their most recent display names.
	// Unknown IDs are absent from the result.
	DisplayNames(ctx context.Context, userIDs []int64) (map[int64]string, error)
}
