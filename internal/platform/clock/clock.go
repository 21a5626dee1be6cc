package clock

import (
	"time"

	fbclock "github.com/facebookgo/clock"
)

// Clock is the injectable source of "now". Every grace period, undo window and
// scheduler cadence is evaluated against it.
type Clock = fbclock.Clock

// Mock is a manually driven clock for tests.
type Mock = fbclock.Mock

func New() Clock { return fbclock.New() }

// NewMock returns a mock clock set to start (UTC).
func NewMock(start time.Time) *Mock {
	m := fbclock.NewMock()
	m.Add(start.Sub(m.Now()))
	return m
}

// Advance moves a mock clock forward to t. Times in the past are ignored.
func Advance(m *Mock, t time.Time) {
	if d := t.Sub(m.Now()); d > 0 {
		m.Add(d)
	}
}

// Today returns the calendar date of now in UTC as YYYY-MM-DD.
func Today(c Clock) string {
	return DateString(c.Now())
}

const DateLayout = "2006-01-02"

func DateString(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// ParseDate parses a YYYY-MM-DD string into midnight UTC.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// AddDays shifts a YYYY-MM-DD date string by n days.
func AddDays(date string, n int) (string, error) {
	t, err := ParseDate(date)
	if err != nil {
		return "", err
	}
	return DateString(t.AddDate(0, 0, n)), nil
}

// DaysBetween returns the whole number of days from a to b (b - a).
func DaysBetween(a, b string) (int, error) {
	ta, err := ParseDate(a)
	if err != nil {
		return 0, err
	}
	tb, err := ParseDate(b)
	if err != nil {
		return 0, err
	}
	return int(tb.Sub(ta).Hours() / 24), nil
}

// Now reads c in UTC. Stored timestamps are compared as UTC everywhere.
func Now(c Clock) time.Time {
	return c.Now().UTC()
}
