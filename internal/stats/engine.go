package stats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"
)

const noMatches = "No matching messages."

var weekdayNames = []string{
	"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday",
}

// Options configures an Engine. Zero values fall back to defaults.
type Options struct {
	// Timezone is the display timezone for time literals and calendar
	// bucketing. Defaults to UTC.
	Timezone *time.Location

	// QueryTimeout bounds every statistic end to end. Defaults to 15s.
	QueryTimeout time.Duration

	// MinMessages is the activity floor below which senders are excluded
	// from correlation and delta results. Defaults to 5.
	MinMessages int

	// TopSenders caps the counts table. Defaults to 20.
	TopSenders int

	// LexemeLimit caps the word frequency table. Defaults to 20.
	LexemeLimit int

	// CorrelationBucket is the activity bucket width for correlations.
	// Defaults to one hour.
	CorrelationBucket time.Duration

	Logger *slog.Logger
}

// Engine dispatches statistic requests: it parses filter arguments, fetches
// rows through the Store, and aggregates them into a StatResult. An Engine
// is safe for concurrent use.
type Engine struct {
	store       Store
	loc         *time.Location
	log         *slog.Logger
	timeout     time.Duration
	minMessages int
	topSenders  int
	lexemeLimit int
	bucket      time.Duration

	// now is swapped in tests.
	now func() time.Time
}

// NewEngine builds an Engine over the given store.
func NewEngine(store Store, opts Options) *Engine {
	if opts.Timezone == nil {
		opts.Timezone = time.UTC
	}
	if opts.QueryTimeout <= 0 {
		opts.QueryTimeout = 15 * time.Second
	}
	if opts.MinMessages <= 0 {
		opts.MinMessages = 5
	}
	if opts.TopSenders <= 0 {
		opts.TopSenders = 20
	}
	if opts.LexemeLimit <= 0 {
		opts.LexemeLimit = 20
	}
	if opts.CorrelationBucket <= 0 {
		opts.CorrelationBucket = time.Hour
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Engine{
		store:       store,
		loc:         opts.Timezone,
		log:         opts.Logger.With("component", "stats"),
		timeout:     opts.QueryTimeout,
		minMessages: opts.MinMessages,
		topSenders:  opts.TopSenders,
		lexemeLimit: opts.LexemeLimit,
		bucket:      opts.CorrelationBucket,
		now:         time.Now,
	}
}

// Names lists the registered statistic names in presentation order.
func (e *Engine) Names() []string {
	return []string{
		"counts", "hours", "days", "week", "history", "titles",
		"corr", "delta", "types", "words", "summary", "random",
	}
}

// Run parses args into a filter and executes the named statistic for
// requesterID. Filter problems come back as *FilterError; infrastructure
// failures wrap ErrTimeout or ErrStoreUnavailable.
func (e *Engine) Run(ctx context.Context, name string, args []string, requesterID int64) (*StatResult, error) {
	f, err := ParseFilter(args, requesterID, e.loc)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	started := e.now()
	res, err := e.dispatch(ctx, name, f, requesterID)
	if err != nil {
		err = e.classify(err)
		e.log.Error("statistic failed", "stat", name, "error", err)
		return nil, err
	}

	e.log.Debug("statistic computed", "stat", name, "duration", e.now().Sub(started))
	return res, nil
}

func (e *Engine) dispatch(ctx context.Context, name string, f *Filter, requesterID int64) (*StatResult, error) {
	switch name {
	case "counts":
		return e.senderCounts(ctx, f)
	case "hours":
		return e.hourHistogram(ctx, f)
	case "days":
		return e.weekdayHistogram(ctx, f)
	case "week":
		return e.weekHeatmap(ctx, f)
	case "history":
		return e.history(ctx, f)
	case "titles":
		return e.titleHistory(ctx, f)
	case "corr":
		return e.correlations(ctx, f, requesterID)
	case "delta":
		return e.deltas(ctx, f, requesterID)
	case "types":
		return e.typeBreakdown(ctx, f, requesterID)
	case "words":
		return e.words(ctx, f)
	case "summary":
		return e.userSummary(ctx, f, requesterID)
	case "random":
		return e.random(ctx, f)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStat, name)
	}
}

// classify maps low-level failures onto the engine's sentinel errors. Filter
// errors pass through untouched.
func (e *Engine) classify(err error) error {
	if _, ok := IsFilterError(err); ok {
		return err
	}
	if errors.Is(err, ErrUnknownStat) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

func (e *Engine) senderCounts(ctx context.Context, f *Filter) (*StatResult, error) {
	rows, err := e.store.SenderCounts(ctx, f)
	if err != nil {
		return nil, err
	}

	var total int64
	for _, r := range rows {
		total += r.Count
	}
	if len(rows) > e.topSenders {
		rows = rows[:e.topSenders]
	}

	names, err := e.resolveNames(ctx, senderIDs(rows))
	if err != nil {
		return nil, err
	}

	t := &Table{Columns: []Column{
		{Name: "User"},
		{Name: "Messages", Numeric: true},
		{Name: "%", Numeric: true},
	}}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			names[r.UserID],
			strconv.FormatInt(r.Count, 10),
			FormatPercent(r.Count, total),
		})
	}

	return &StatResult{Kind: KindTable, Title: "Most active users", Table: t}, nil
}

func (e *Engine) hourHistogram(ctx context.Context, f *Filter) (*StatResult, error) {
	rows, err := e.store.HourCounts(ctx, f, e.loc.String())
	if err != nil {
		return nil, err
	}

	points := make([]Point, 24)
	for i := range points {
		points[i].Label = fmt.Sprintf("%02d", i)
	}
	for _, r := range rows {
		if r.Bucket >= 0 && r.Bucket < 24 {
			points[r.Bucket].Value = float64(r.Count)
		}
	}

	return &StatResult{Kind: KindSeries, Title: "Messages by hour of day", Series: points}, nil
}

func (e *Engine) weekdayHistogram(ctx context.Context, f *Filter) (*StatResult, error) {
	rows, err := e.store.WeekdayCounts(ctx, f, e.loc.String())
	if err != nil {
		return nil, err
	}

	points := make([]Point, 7)
	for i := range points {
		points[i].Label = weekdayNames[i]
	}
	for _, r := range rows {
		if r.Bucket >= 0 && r.Bucket < 7 {
			points[r.Bucket].Value = float64(r.Count)
		}
	}

	return &StatResult{Kind: KindSeries, Title: "Messages by day of week", Series: points}, nil
}

func (e *Engine) weekHeatmap(ctx context.Context, f *Filter) (*StatResult, error) {
	rows, err := e.store.WeekdayHourCounts(ctx, f, e.loc.String())
	if err != nil {
		return nil, err
	}

	points := make([]Point, 7*24)
	for d := 0; d < 7; d++ {
		for h := 0; h < 24; h++ {
			points[d*24+h].Label = fmt.Sprintf("%s %02d", weekdayNames[d][:3], h)
		}
	}
	for _, r := range rows {
		if r.Weekday >= 0 && r.Weekday < 7 && r.Hour >= 0 && r.Hour < 24 {
			points[r.Weekday*24+r.Hour].Value = float64(r.Count)
		}
	}

	return &StatResult{Kind: KindSeries, Title: "Weekly activity", Series: points}, nil
}

func (e *Engine) history(ctx context.Context, f *Filter) (*StatResult, error) {
	rows, err := e.store.DayCounts(ctx, f, e.loc.String())
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return &StatResult{Kind: KindSeries, Title: "Message history"}, nil
	}

	// One point per calendar day between the first and last active day,
	// inactive days included as zeros.
	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Day.Format(time.DateOnly)] = r.Count
	}

	first := rows[0].Day
	last := rows[len(rows)-1].Day

	var points []Point
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		label := day.Format(time.DateOnly)
		points = append(points, Point{Label: label, Value: float64(counts[label])})
	}

	return &StatResult{Kind: KindSeries, Title: "Message history", Series: points}, nil
}

func (e *Engine) titleHistory(ctx context.Context, f *Filter) (*StatResult, error) {
	// Title changes are service messages, so only the time bounds apply.
	scoped := &Filter{Start: f.Start, End: f.End}

	rows, err := e.store.TitleHistory(ctx, scoped)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return &StatResult{Kind: KindMessage, Message: noMatches}, nil
	}

	// The current title counts as held until the filter's end bound, or
	// until now for an open filter.
	until := e.now().UTC()
	if f.End != nil {
		until = *f.End
	}

	t := &Table{Columns: []Column{
		{Name: "Title"},
		{Name: "Set"},
		{Name: "Held", Numeric: true},
	}}
	for i, r := range rows {
		end := until
		if i+1 < len(rows) {
			end = rows[i+1].Date
		}
		t.Rows = append(t.Rows, []string{
			r.Title,
			r.Date.In(e.loc).Format(time.DateOnly),
			FormatDuration(end.Sub(r.Date)),
		})
	}

	return &StatResult{Kind: KindTable, Title: "Chat title history", Table: t}, nil
}

func (e *Engine) correlations(ctx context.Context, f *Filter, requesterID int64) (*StatResult, error) {
	senders, err := e.store.MessageTimes(ctx, f)
	if err != nil {
		return nil, err
	}

	results := correlate(senders, requesterID, e.bucket, e.minMessages)
	if len(results) == 0 {
		return &StatResult{Kind: KindMessage, Message: "Not enough data to compute correlations."}, nil
	}

	top, bottom := corrSelection(results)

	ids := make([]int64, 0, len(top)+len(bottom))
	for _, c := range append(append([]Correlation{}, top...), bottom...) {
		ids = append(ids, c.UserID)
	}
	names, err := e.resolveNames(ctx, ids)
	if err != nil {
		return nil, err
	}

	t := &Table{Columns: []Column{
		{Name: "User"},
		{Name: "Correlation", Numeric: true},
	}}
	for _, c := range top {
		t.Rows = append(t.Rows, []string{names[c.UserID], fmt.Sprintf("%.3f", c.Coefficient)})
	}
	if len(bottom) > 0 {
		t.Rows = append(t.Rows, []string{"", ""})
		for _, c := range bottom {
			t.Rows = append(t.Rows, []string{names[c.UserID], fmt.Sprintf("%.3f", c.Coefficient)})
		}
	}

	return &StatResult{Kind: KindTable, Title: "Most and least correlated users", Table: t}, nil
}

func (e *Engine) deltas(ctx context.Context, f *Filter, requesterID int64) (*StatResult, error) {
	senders, err := e.store.MessageTimes(ctx, f)
	if err != nil {
		return nil, err
	}

	results := responseDeltas(senders, requesterID, e.minMessages)
	if len(results) == 0 {
		return &StatResult{Kind: KindMessage, Message: "Not enough data to compute deltas."}, nil
	}

	ids := make([]int64, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.UserID)
	}
	names, err := e.resolveNames(ctx, ids)
	if err != nil {
		return nil, err
	}

	t := &Table{Columns: []Column{
		{Name: "User"},
		{Name: "Median delta", Numeric: true},
	}}
	for _, r := range results {
		t.Rows = append(t.Rows, []string{names[r.UserID], FormatDuration(r.Median)})
	}

	return &StatResult{Kind: KindTable, Title: "Closest conversation partners", Table: t}, nil
}

func (e *Engine) typeBreakdown(ctx context.Context, f *Filter, requesterID int64) (*StatResult, error) {
	group := *f
	group.UserID = nil

	groupRows, err := e.store.TypeCounts(ctx, &group)
	if err != nil {
		return nil, err
	}
	userRows, err := e.store.TypeCounts(ctx, f.WithUser(requesterID))
	if err != nil {
		return nil, err
	}

	if len(groupRows) == 0 {
		return &StatResult{Kind: KindMessage, Message: noMatches}, nil
	}

	userByType := make(map[string]int64, len(userRows))
	var userTotal int64
	for _, r := range userRows {
		userByType[r.Type] = r.Count
		userTotal += r.Count
	}
	var groupTotal int64
	for _, r := range groupRows {
		groupTotal += r.Count
	}

	t := &Table{Columns: []Column{
		{Name: "Type"},
		{Name: "You", Numeric: true},
		{Name: "You %", Numeric: true},
		{Name: "Group", Numeric: true},
		{Name: "Group %", Numeric: true},
	}}
	for _, r := range groupRows {
		t.Rows = append(t.Rows, []string{
			r.Type,
			strconv.FormatInt(userByType[r.Type], 10),
			FormatPercent(userByType[r.Type], userTotal),
			strconv.FormatInt(r.Count, 10),
			FormatPercent(r.Count, groupTotal),
		})
	}
	t.Rows = append(t.Rows, []string{
		"Total",
		strconv.FormatInt(userTotal, 10),
		FormatPercent(userTotal, userTotal),
		strconv.FormatInt(groupTotal, 10),
		FormatPercent(groupTotal, groupTotal),
	})

	return &StatResult{Kind: KindTable, Title: "Messages by type", Table: t}, nil
}

func (e *Engine) words(ctx context.Context, f *Filter) (*StatResult, error) {
	rows, err := e.store.LexemeCounts(ctx, f, e.lexemeLimit)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return &StatResult{Kind: KindMessage, Message: noMatches}, nil
	}

	t := &Table{Columns: []Column{
		{Name: "Word"},
		{Name: "Messages", Numeric: true},
		{Name: "Uses", Numeric: true},
	}}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			r.Word,
			strconv.FormatInt(r.Messages, 10),
			strconv.FormatInt(r.Uses, 10),
		})
	}

	return &StatResult{Kind: KindTable, Title: "Most common words", Table: t}, nil
}

func (e *Engine) userSummary(ctx context.Context, f *Filter, requesterID int64) (*StatResult, error) {
	scoped := f.WithUser(requesterID)

	activity, err := e.store.Activity(ctx, scoped)
	if err != nil {
		return nil, err
	}
	if activity.Count == 0 {
		return &StatResult{Kind: KindMessage, Message: noMatches}, nil
	}

	names, err := e.store.NameHistory(ctx, requesterID)
	if err != nil {
		return nil, err
	}

	now := e.now().UTC()
	age := now.Sub(activity.First)
	days := age.Hours() / 24
	perDay := float64(activity.Count)
	if days >= 1 {
		perDay = float64(activity.Count) / days
	}

	summary := []KV{
		{Key: "Messages", Value: strconv.FormatInt(activity.Count, 10)},
		{Key: "First message", Value: fmt.Sprintf("%s (%s ago)", activity.First.In(e.loc).Format(time.DateOnly), FormatDuration(age))},
		{Key: "Messages per day", Value: fmt.Sprintf("%.1f", perDay)},
	}

	if len(names) > 0 {
		distinct := make(map[string]bool, len(names))
		for _, n := range names {
			distinct[n.Name] = true
		}

		// Each name is held until the next change; the current one until now.
		var total time.Duration
		for i, n := range names {
			end := now
			if i+1 < len(names) {
				end = names[i+1].Date
			}
			if d := end.Sub(n.Date); d > 0 {
				total += d
			}
		}
		mean := total / time.Duration(len(names))

		summary = append(summary,
			KV{Key: "Usernames used", Value: strconv.Itoa(len(distinct))},
			KV{Key: "Mean username lifetime", Value: FormatDuration(mean)},
		)
	}

	return &StatResult{Kind: KindSummary, Title: "Your summary", Summary: summary}, nil
}

func (e *Engine) random(ctx context.Context, f *Filter) (*StatResult, error) {
	scoped := *f
	scoped.Types = []string{"text"}

	msg, err := e.store.RandomMessage(ctx, &scoped)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return &StatResult{Kind: KindMessage, Message: noMatches}, nil
	}

	names, err := e.resolveNames(ctx, []int64{msg.UserID})
	if err != nil {
		return nil, err
	}

	return &StatResult{
		Kind:    KindMessage,
		Title:   "Random message",
		Message: fmt.Sprintf("%s (%s):\n%s", names[msg.UserID], msg.Date.In(e.loc).Format(time.DateOnly), msg.Text),
	}, nil
}

// resolveNames maps user IDs to display names, falling back to "user <id>"
// for senders with no recorded name.
func (e *Engine) resolveNames(ctx context.Context, ids []int64) (map[int64]string, error) {
	if len(ids) == 0 {
		return map[int64]string{}, nil
	}

	uniq := make([]int64, 0, len(ids))
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			uniq = append(uniq, id)
		}
	}
	sort.Slice(uniq, func(i, j int) bool { return uniq[i] < uniq[j] })

	names, err := e.store.DisplayNames(ctx, uniq)
	if err != nil {
		return nil, err
	}

	out := make(map[int64]string, len(uniq))
	for _, id := range uniq {
		if name, ok := names[id]; ok && name != "" {
			out[id] = name
		} else {
			out[id] = "user " + strconv.FormatInt(id, 10)
		}
	}
	return out, nil
}

func senderIDs(rows []SenderCount) []int64 {
	ids := make([]int64, len(rows))
	for i, r := range rows {
		ids[i] = r.UserID
	}
	return ids
}
