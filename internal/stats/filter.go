package stats

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/edgard/groupstats/internal/query"
)

// Accepted time literal layouts, most specific first. Literals are
// interpreted in the display timezone and stored as UTC.
var timeLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02",
	"2006-01",
	"2006",
}

// knownFlags is the set of option names the filter grammar accepts. The
// lexical query consumes free text up to the next of these.
var knownFlags = map[string]bool{
	"-start":  true,
	"-end":    true,
	"-me":     true,
	"-lquery": true,
	"-type":   true,
}

// ParseFilter parses user-supplied arguments into a Filter. requesterID
// resolves the -me flag; loc is the display timezone for time literals.
// All failures are *FilterError with a message safe to show the requester.
func ParseFilter(args []string, requesterID int64, loc *time.Location) (*Filter, error) {
	f := &Filter{}

	for i := 0; i < len(args); i++ {
		arg := strings.ToLower(args[i])

		switch arg {
		case "-start", "-end":
			vals, n := takeValues(args[i+1:])
			if n == 0 {
				return nil, &FilterError{Kind: UnparseableTimestamp, Message: fmt.Sprintf("%s requires a time, like %s 2024-01-15", arg, arg)}
			}
			t, err := parseTime(strings.Join(vals, " "), loc)
			if err != nil {
				return nil, err
			}
			if arg == "-start" {
				f.Start = &t
			} else {
				f.End = &t
			}
			i += n

		case "-me":
			id := requesterID
			f.UserID = &id

		case "-lquery":
			vals, n := takeValues(args[i+1:])
			if n == 0 {
				return nil, &FilterError{Kind: UnknownOption, Message: "-lquery requires search text"}
			}
			f.LexicalQuery = strings.Join(vals, " ")
			i += n

		case "-type":
			vals, n := takeValues(args[i+1:])
			if n == 0 {
				return nil, &FilterError{Kind: UnknownOption, Message: "-type requires one or more message types"}
			}
			for _, v := range vals {
				v = strings.ToLower(v)
				if !slices.Contains(userMessageTypes, v) {
					return nil, &FilterError{Kind: UnknownOption, Message: fmt.Sprintf("unknown message type %q, expected one of: %s", v, strings.Join(userMessageTypes, ", "))}
				}
				if !slices.Contains(f.Types, v) {
					f.Types = append(f.Types, v)
				}
			}
			i += n

		default:
			return nil, &FilterError{Kind: UnknownOption, Message: fmt.Sprintf("unknown option %q", args[i])}
		}
	}

	if f.Start != nil && f.End != nil && f.Start.After(*f.End) {
		return nil, &FilterError{Kind: InvalidRange, Message: "start time must not be after end time"}
	}

	// Reject lexical queries for which no safe quote delimiter exists before
	// any statement is built.
	if f.LexicalQuery != "" {
		if _, err := query.DollarQuote(f.LexicalQuery); err != nil {
			return nil, &FilterError{Kind: UnsafeQuery, Message: "search text cannot be safely quoted"}
		}
	}

	return f, nil
}

// takeValues collects tokens up to (not including) the next known flag.
func takeValues(rest []string) ([]string, int) {
	for i, tok := range rest {
		if knownFlags[strings.ToLower(tok)] {
			return rest[:i], i
		}
	}
	return rest, len(rest)
}

// parseTime tries each accepted layout in loc and returns the UTC instant.
func parseTime(s string, loc *time.Location) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, &FilterError{
		Kind:    UnparseableTimestamp,
		Message: fmt.Sprintf("cannot parse time %q, expected formats: 2024, 2024-01, 2024-01-15 or \"2024-01-15 18:00\"", s),
	}
}
