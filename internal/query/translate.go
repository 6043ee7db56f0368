package query

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// tsQueryConfig is the text search configuration used for every full-text
// predicate. It matches the generated tsvector column in the schema.
const tsQueryConfig = "english"

// Where renders preds into a SQL boolean expression using $n placeholders,
// numbering from argOffset+1. It returns the expression and the bind
// arguments in placeholder order. An empty predicate list renders as TRUE so
// callers can splice the result into a fixed WHERE clause unconditionally.
func Where(preds []Predicate, argOffset int) (string, []any) {
	if len(preds) == 0 {
		return "TRUE", nil
	}

	var (
		parts []string
		args  []any
	)

	next := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(argOffset+len(args))
	}

	for _, p := range preds {
		switch p := p.(type) {
		case Range:
			if p.Start != nil {
				parts = append(parts, fmt.Sprintf("%s >= %s", p.Column, next(*p.Start)))
			}
			if p.End != nil {
				parts = append(parts, fmt.Sprintf("%s < %s", p.Column, next(*p.End)))
			}
		case Eq:
			parts = append(parts, fmt.Sprintf("%s = %s", p.Column, next(p.Value)))
		case In:
			if len(p.Values) == 0 {
				parts = append(parts, "FALSE")
				continue
			}
			holders := make([]string, len(p.Values))
			for i, v := range p.Values {
				holders[i] = next(v)
			}
			parts = append(parts, fmt.Sprintf("%s IN (%s)", p.Column, strings.Join(holders, ", ")))
		case FullText:
			parts = append(parts, fmt.Sprintf("%s @@ websearch_to_tsquery('%s', %s)", p.Column, tsQueryConfig, next(p.Query)))
		}
	}

	if len(parts) == 0 {
		return "TRUE", nil
	}

	return strings.Join(parts, " AND "), args
}

// WhereInline renders preds into a SQL boolean expression with every value
// inlined as a literal. This is only used where PostgreSQL cannot see outer
// bind parameters (the query-text argument of ts_stat). Timestamps and
// numbers are rendered from their typed Go values; strings, including the
// user-controlled full-text expression, are dollar-quoted.
func WhereInline(preds []Predicate) (string, error) {
	if len(preds) == 0 {
		return "TRUE", nil
	}

	var parts []string

	for _, p := range preds {
		switch p := p.(type) {
		case Range:
			if p.Start != nil {
				parts = append(parts, fmt.Sprintf("%s >= %s", p.Column, timestampLiteral(*p.Start)))
			}
			if p.End != nil {
				parts = append(parts, fmt.Sprintf("%s < %s", p.Column, timestampLiteral(*p.End)))
			}
		case Eq:
			lit, err := literal(p.Value)
			if err != nil {
				return "", err
			}
			parts = append(parts, fmt.Sprintf("%s = %s", p.Column, lit))
		case In:
			if len(p.Values) == 0 {
				parts = append(parts, "FALSE")
				continue
			}
			lits := make([]string, len(p.Values))
			for i, v := range p.Values {
				lit, err := DollarQuote(v)
				if err != nil {
					return "", err
				}
				lits[i] = lit
			}
			parts = append(parts, fmt.Sprintf("%s IN (%s)", p.Column, strings.Join(lits, ", ")))
		case FullText:
			lit, err := DollarQuote(p.Query)
			if err != nil {
				return "", err
			}
			parts = append(parts, fmt.Sprintf("%s @@ websearch_to_tsquery('%s', %s)", p.Column, tsQueryConfig, lit))
		}
	}

	if len(parts) == 0 {
		return "TRUE", nil
	}

	return strings.Join(parts, " AND "), nil
}

func literal(v any) (string, error) {
	switch v := v.(type) {
	case string:
		return DollarQuote(v)
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case time.Time:
		return timestampLiteral(v), nil
	default:
		return "", fmt.Errorf("cannot inline value of type %T", v)
	}
}

func timestampLiteral(t time.Time) string {
	return "'" + t.UTC().Format("2006-01-02 15:04:05.999999+00") + "'::timestamptz"
}
