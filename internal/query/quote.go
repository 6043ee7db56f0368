package query

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
)

// ErrNoSafeDelimiter is returned when no collision-free dollar-quote tag
// could be generated. With tag length growing on every attempt this is not
// reachable in practice; it exists as a last-resort guard.
var ErrNoSafeDelimiter = errors.New("no collision-free quote delimiter found")

const (
	quoteTagInitialLen = 6
	quoteTagAttempts   = 10
)

const tagAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// DollarQuote wraps s in PostgreSQL dollar-quoting ($tag$s$tag$) using a
// randomly generated tag guaranteed not to occur inside s. Individual
// characters are never escaped; instead the tag is regenerated, one letter
// longer each time, until the delimiter token does not collide with the
// payload.
func DollarQuote(s string) (string, error) {
	for attempt := 0; attempt < quoteTagAttempts; attempt++ {
		tag, err := randomTag(quoteTagInitialLen + attempt)
		if err != nil {
			return "", fmt.Errorf("failed to generate quote tag: %w", err)
		}

		delim := "$" + tag + "$"
		if strings.Contains(s, delim) {
			continue
		}

		return delim + s + delim, nil
	}

	return "", ErrNoSafeDelimiter
}

// randomTag returns a random tag of length n starting with a letter, so the
// result is always a valid dollar-quote tag.
func randomTag(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	for i, b := range buf {
		if i == 0 {
			// Tags must not start with a digit.
			buf[i] = tagAlphabet[int(b)%26]
			continue
		}
		buf[i] = tagAlphabet[int(b)%len(tagAlphabet)]
	}

	return string(buf), nil
}
