// Package query models filter conditions as a small predicate tree and
// renders them into PostgreSQL WHERE clauses. User-supplied values are never
// concatenated into statement text: the bound renderer emits $n placeholders,
// and the inline renderer (needed where PostgreSQL cannot accept parameters,
// such as the query argument of ts_stat) dollar-quotes every string literal
// with a randomly generated tag.
package query

import "time"

// Predicate is one condition over a single column.
type Predicate interface {
	isPredicate()
}

// Range restricts a timestamp column to [Start, End). Either bound may be
// nil, leaving that side open.
type Range struct {
	Column string
	Start  *time.Time
	End    *time.Time
}

// Eq restricts a column to a single value.
type Eq struct {
	Column string
	Value  any
}

// In restricts a column to a set of values. An empty set renders as FALSE.
type In struct {
	Column string
	Values []string
}

// FullText matches a tsvector column against a user-supplied
// websearch_to_tsquery expression. The expression passes through to the
// store's query grammar unmodified.
type FullText struct {
	Column string
	Query  string
}

func (Range) isPredicate()    {}
func (Eq) isPredicate()       {}
func (In) isPredicate()       {}
func (FullText) isPredicate() {}
