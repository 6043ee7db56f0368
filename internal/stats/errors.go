package stats

import "errors"

// Sentinel errors for infrastructure failures. Filter problems use
// FilterError so the caller can relay the message to the requesting user.
var (
	// ErrTimeout indicates the statistic did not complete within the
	// configured query timeout.
	ErrTimeout = errors.New("query timed out")

	// ErrStoreUnavailable indicates the message store could not be reached.
	ErrStoreUnavailable = errors.New("message store unavailable")

	// ErrUnknownStat indicates the requested statistic name is not
	// registered.
	ErrUnknownStat = errors.New("unknown statistic")
)

// FilterKind classifies why a filter was rejected.
type FilterKind int

const (
	// InvalidRange means the parsed start bound is not before the end bound.
	InvalidRange FilterKind = iota
	// UnknownOption means an argument did not match any known flag.
	UnknownOption
	// UnparseableTimestamp means a time literal matched none of the accepted
	// layouts.
	UnparseableTimestamp
	// UnsafeQuery means no collision-free quote delimiter could be found for
	// the lexical query text.
	UnsafeQuery
)

// FilterError is a user-correctable problem with the supplied filter
// arguments. Its message is safe to echo back to the requester.
type FilterError struct {
	Kind    FilterKind
	Message string
}

func (e *FilterError) Error() string { return e.Message }

// IsFilterError reports whether err is a FilterError and returns it.
func IsFilterError(err error) (*FilterError, bool) {
	var fe *FilterError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
