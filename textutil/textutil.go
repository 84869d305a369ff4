// Package textutil measures and limits user-supplied text (chat lines,
// donation messages, stream titles) in user-perceived characters.
package textutil

import (
	"errors"
	"strings"

	"github.com/scalecode-solutions/runeseg"
)

var (
	ErrEmpty    = errors.New("text is empty")
	ErrTooLong  = errors.New("text is too long")
	ErrTooShort = errors.New("text is too short")
)

// Length returns the number of grapheme clusters in s, so a flag emoji or
// an accented letter built from combining marks counts once.
func Length(s string) int {
	n := 0
	for state, rest := -1, s; len(rest) > 0; n++ {
		_, rest, _, state = runeseg.StepString(rest, state)
	}
	return n
}

// Truncate cuts s to at most max grapheme clusters, appending suffix when
// anything was removed.
func Truncate(s string, max int, suffix string) string {
	if max <= 0 {
		return ""
	}
	end, n := 0, 0
	for state, rest := -1, s; len(rest) > 0; n++ {
		if n == max {
			return s[:end] + suffix
		}
		var cluster string
		cluster, rest, _, state = runeseg.StepString(rest, state)
		end += len(cluster)
	}
	return s
}

// Clean trims surrounding whitespace and checks the grapheme length is within
// [min, max]. A zero max disables the upper bound.
func Clean(s string, min, max int) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" && min > 0 {
		return "", ErrEmpty
	}
	n := Length(s)
	if n < min {
		return "", ErrTooShort
	}
	if max > 0 && n > max {
		return "", ErrTooLong
	}
	return s, nil
}
