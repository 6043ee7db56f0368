package stats

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore returns canned rows and lets tests inject failures.
type fakeStore struct {
	senderCounts []SenderCount
	hourCounts   []BucketCount
	dayCounts    []DayCount
	titles       []TitleChange
	groupTypes   []TypeCount
	userTypes    []TypeCount
	lexemes      []Lexeme
	times        []SenderMessages
	activity     UserActivity
	nameEvents   []NameEvent
	random       *RandomMessage
	names        map[int64]string

	err error
}

func (s *fakeStore) SenderCounts(context.Context, *Filter) ([]SenderCount, error) {
	return s.senderCounts, s.err
}

func (s *fakeStore) HourCounts(context.Context, *Filter, string) ([]BucketCount, error) {
	return s.hourCounts, s.err
}

func (s *fakeStore) WeekdayCounts(context.Context, *Filter, string) ([]BucketCount, error) {
	return nil, s.err
}

func (s *fakeStore) WeekdayHourCounts(context.Context, *Filter, string) ([]WeekdayHourCount, error) {
	return nil, s.err
}

func (s *fakeStore) DayCounts(context.Context, *Filter, string) ([]DayCount, error) {
	return s.dayCounts, s.err
}

func (s *fakeStore) TitleHistory(context.Context, *Filter) ([]TitleChange, error) {
	return s.titles, s.err
}

func (s *fakeStore) TypeCounts(_ context.Context, f *Filter) ([]TypeCount, error) {
	if f.UserID != nil {
		return s.userTypes, s.err
	}
	return s.groupTypes, s.err
}

func (s *fakeStore) LexemeCounts(context.Context, *Filter, int) ([]Lexeme, error) {
	return s.lexemes, s.err
}

func (s *fakeStore) MessageTimes(context.Context, *Filter) ([]SenderMessages, error) {
	return s.times, s.err
}

func (s *fakeStore) Activity(context.Context, *Filter) (UserActivity, error) {
	return s.activity, s.err
}

func (s *fakeStore) NameHistory(context.Context, int64) ([]NameEvent, error) {
	return s.nameEvents, s.err
}

func (s *fakeStore) RandomMessage(context.Context, *Filter) (*RandomMessage, error) {
	return s.random, s.err
}

func (s *fakeStore) DisplayNames(context.Context, []int64) (map[int64]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.names == nil {
		return map[int64]string{}, nil
	}
	return s.names, nil
}

func newTestEngine(store Store, now time.Time) *Engine {
	e := NewEngine(store, Options{})
	e.now = func() time.Time { return now }
	return e
}

func TestEngineCounts(t *testing.T) {
	t.Parallel()

	store := &fakeStore{
		senderCounts: []SenderCount{
			{UserID: 1, Count: 50},
			{UserID: 2, Count: 30},
			{UserID: 3, Count: 20},
		},
		names: map[int64]string{1: "alice", 2: "bob"},
	}
	e := newTestEngine(store, time.Now())

	res, err := e.Run(context.Background(), "counts", nil, 1)
	require.NoError(t, err)
	require.Equal(t, KindTable, res.Kind)

	require.Len(t, res.Table.Rows, 3)
	assert.Equal(t, []string{"alice", "50", "50.0"}, res.Table.Rows[0])
	assert.Equal(t, []string{"bob", "30", "30.0"}, res.Table.Rows[1])
	assert.Equal(t, []string{"user 3", "20", "20.0"}, res.Table.Rows[2])
}

func TestEngineCountsEmpty(t *testing.T) {
	t.Parallel()

	e := newTestEngine(&fakeStore{}, time.Now())

	res, err := e.Run(context.Background(), "counts", nil, 1)
	require.NoError(t, err)
	require.Equal(t, KindTable, res.Kind)
	assert.Empty(t, res.Table.Rows)
	assert.Len(t, res.Table.Columns, 3)
}

func TestEngineHoursZeroFilled(t *testing.T) {
	t.Parallel()

	store := &fakeStore{
		hourCounts: []BucketCount{{Bucket: 9, Count: 4}, {Bucket: 22, Count: 7}},
	}
	e := newTestEngine(store, time.Now())

	res, err := e.Run(context.Background(), "hours", nil, 1)
	require.NoError(t, err)
	require.Equal(t, KindSeries, res.Kind)
	require.Len(t, res.Series, 24)

	assert.Equal(t, "00", res.Series[0].Label)
	assert.Equal(t, float64(0), res.Series[0].Value)
	assert.Equal(t, float64(4), res.Series[9].Value)
	assert.Equal(t, float64(7), res.Series[22].Value)
}

func TestEngineHistoryZeroFillsGaps(t *testing.T) {
	t.Parallel()

	day := func(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }
	store := &fakeStore{
		dayCounts: []DayCount{
			{Day: day(1), Count: 5},
			{Day: day(3), Count: 2},
		},
	}
	e := newTestEngine(store, time.Now())

	res, err := e.Run(context.Background(), "history", nil, 1)
	require.NoError(t, err)
	require.Equal(t, KindSeries, res.Kind)
	require.Len(t, res.Series, 3)

	assert.Equal(t, Point{Label: "2024-01-01", Value: 5}, res.Series[0])
	assert.Equal(t, Point{Label: "2024-01-02", Value: 0}, res.Series[1])
	assert.Equal(t, Point{Label: "2024-01-03", Value: 2}, res.Series[2])
}

func TestEngineHistoryEmpty(t *testing.T) {
	t.Parallel()

	e := newTestEngine(&fakeStore{}, time.Now())

	res, err := e.Run(context.Background(), "history", nil, 1)
	require.NoError(t, err)
	assert.Equal(t, KindSeries, res.Kind)
	assert.Empty(t, res.Series)
}

func TestEngineTitles(t *testing.T) {
	t.Parallel()

	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC)
	now := time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC)

	store := &fakeStore{
		titles: []TitleChange{
			{Date: t1, Title: "First Title"},
			{Date: t2, Title: "Second Title"},
		},
	}
	e := newTestEngine(store, now)

	res, err := e.Run(context.Background(), "titles", nil, 1)
	require.NoError(t, err)
	require.Equal(t, KindTable, res.Kind)
	require.Len(t, res.Table.Rows, 2)

	assert.Equal(t, []string{"First Title", "2024-01-01", "10d 0h 0m"}, res.Table.Rows[0])
	// The current title is held until now.
	assert.Equal(t, []string{"Second Title", "2024-01-11", "5d 0h 0m"}, res.Table.Rows[1])
}

func TestEngineTitlesEmpty(t *testing.T) {
	t.Parallel()

	e := newTestEngine(&fakeStore{}, time.Now())

	res, err := e.Run(context.Background(), "titles", nil, 1)
	require.NoError(t, err)
	assert.Equal(t, KindMessage, res.Kind)
	assert.Equal(t, noMatches, res.Message)
}

func TestEngineTypes(t *testing.T) {
	t.Parallel()

	store := &fakeStore{
		groupTypes: []TypeCount{{Type: "text", Count: 400}, {Type: "photo", Count: 100}},
		userTypes:  []TypeCount{{Type: "text", Count: 40}, {Type: "photo", Count: 10}},
	}
	e := newTestEngine(store, time.Now())

	res, err := e.Run(context.Background(), "types", nil, 1)
	require.NoError(t, err)
	require.Equal(t, KindTable, res.Kind)
	require.Len(t, res.Table.Rows, 3)

	assert.Equal(t, []string{"text", "40", "80.0", "400", "80.0"}, res.Table.Rows[0])
	assert.Equal(t, []string{"photo", "10", "20.0", "100", "20.0"}, res.Table.Rows[1])
	assert.Equal(t, []string{"Total", "50", "100.0", "500", "100.0"}, res.Table.Rows[2])
}

func TestEngineSummary(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 30, 0, 0, 0, 0, time.UTC)
	first := now.Add(-150 * 24 * time.Hour)

	store := &fakeStore{
		activity: UserActivity{Count: 300, First: first},
		nameEvents: []NameEvent{
			{Date: first, Name: "old name"},
			{Date: first.Add(100 * 24 * time.Hour), Name: "new name"},
		},
	}
	e := newTestEngine(store, now)

	res, err := e.Run(context.Background(), "summary", nil, 1)
	require.NoError(t, err)
	require.Equal(t, KindSummary, res.Kind)

	kvs := map[string]string{}
	for _, kv := range res.Summary {
		kvs[kv.Key] = kv.Value
	}

	assert.Equal(t, "300", kvs["Messages"])
	assert.Equal(t, "2.0", kvs["Messages per day"])
	assert.Equal(t, "2", kvs["Usernames used"])
	// Lifetimes are 100d and 50d (last name runs until now), mean 75d.
	assert.Equal(t, "75d 0h 0m", kvs["Mean username lifetime"])
}

func TestEngineSummaryNoMessages(t *testing.T) {
	t.Parallel()

	e := newTestEngine(&fakeStore{}, time.Now())

	res, err := e.Run(context.Background(), "summary", nil, 1)
	require.NoError(t, err)
	assert.Equal(t, KindMessage, res.Kind)
	assert.Equal(t, noMatches, res.Message)
}

func TestEngineCorrInsufficientData(t *testing.T) {
	t.Parallel()

	e := newTestEngine(&fakeStore{}, time.Now())

	res, err := e.Run(context.Background(), "corr", nil, 1)
	require.NoError(t, err)
	assert.Equal(t, KindMessage, res.Kind)
	assert.Contains(t, res.Message, "Not enough data")
}

func TestEngineDeltaInsufficientData(t *testing.T) {
	t.Parallel()

	e := newTestEngine(&fakeStore{}, time.Now())

	res, err := e.Run(context.Background(), "delta", nil, 1)
	require.NoError(t, err)
	assert.Equal(t, KindMessage, res.Kind)
	assert.Contains(t, res.Message, "Not enough data")
}

func TestEngineRandom(t *testing.T) {
	t.Parallel()

	t.Run("no match", func(t *testing.T) {
		t.Parallel()

		e := newTestEngine(&fakeStore{}, time.Now())

		res, err := e.Run(context.Background(), "random", nil, 1)
		require.NoError(t, err)
		assert.Equal(t, KindMessage, res.Kind)
		assert.Equal(t, noMatches, res.Message)
	})

	t.Run("match", func(t *testing.T) {
		t.Parallel()

		store := &fakeStore{
			random: &RandomMessage{
				Date:   time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
				UserID: 2,
				Text:   "remember that one time",
			},
			names: map[int64]string{2: "bob"},
		}
		e := newTestEngine(store, time.Now())

		res, err := e.Run(context.Background(), "random", nil, 1)
		require.NoError(t, err)
		assert.Equal(t, KindMessage, res.Kind)
		assert.Contains(t, res.Message, "bob")
		assert.Contains(t, res.Message, "remember that one time")
	})
}

func TestEngineErrors(t *testing.T) {
	t.Parallel()

	t.Run("unknown statistic", func(t *testing.T) {
		t.Parallel()

		e := newTestEngine(&fakeStore{}, time.Now())
		_, err := e.Run(context.Background(), "nope", nil, 1)
		assert.ErrorIs(t, err, ErrUnknownStat)
	})

	t.Run("filter errors pass through", func(t *testing.T) {
		t.Parallel()

		e := newTestEngine(&fakeStore{}, time.Now())
		_, err := e.Run(context.Background(), "counts", []string{"-bogus"}, 1)
		_, ok := IsFilterError(err)
		assert.True(t, ok)
	})

	t.Run("store failures map to unavailable", func(t *testing.T) {
		t.Parallel()

		e := newTestEngine(&fakeStore{err: errors.New("connection refused")}, time.Now())
		_, err := e.Run(context.Background(), "counts", nil, 1)
		assert.ErrorIs(t, err, ErrStoreUnavailable)
	})

	t.Run("deadline maps to timeout", func(t *testing.T) {
		t.Parallel()

		e := newTestEngine(&fakeStore{err: context.DeadlineExceeded}, time.Now())
		_, err := e.Run(context.Background(), "counts", nil, 1)
		assert.ErrorIs(t, err, ErrTimeout)
	})
}
