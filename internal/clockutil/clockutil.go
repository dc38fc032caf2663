// Package clockutil normalizes civil dates the way the teacher's proposal
// validation does (time.Parse("2006-01-02", ...)), generalized into small
// helpers shared by every component that compares posting dates: the
// period-close guard, the inventory backdating check, and reversal dating.
package clockutil

import (
	"time"

	"ledgercore/internal/apperr"
)

// CivilDateLayout is the wire/storage format for a date-only value, matching
// the teacher's PODate/PostingDate string convention.
const CivilDateLayout = "2006-01-02"

// ParseCivilDate parses s as a civil date (no time-of-day, no zone) and
// truncates it to midnight UTC, the representation used for all date
// comparisons in the posting path.
func ParseCivilDate(s string) (time.Time, error) {
	t, err := time.Parse(CivilDateLayout, s)
	if err != nil {
		return time.Time{}, apperr.New(apperr.InvalidInput, "invalid date %q: %v", s, err)
	}
	return t, nil
}

// FormatCivilDate renders t in CivilDateLayout.
func FormatCivilDate(t time.Time) string {
	return t.UTC().Format(CivilDateLayout)
}

// StartOfDay truncates t to midnight UTC, used whenever a date must be
// compared against a period boundary regardless of its original time
// component.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// OnOrBefore reports whether a is on or before b, comparing at day
// granularity (both truncated to StartOfDay first).
func OnOrBefore(a, b time.Time) bool {
	return !StartOfDay(a).After(StartOfDay(b))
}

// Before reports whether a is strictly before b at day granularity.
func Before(a, b time.Time) bool {
	return StartOfDay(a).Before(StartOfDay(b))
}
