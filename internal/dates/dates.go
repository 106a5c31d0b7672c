// Package dates converts between Mail.app's long-form date strings, ISO-8601
// and the YYYY-MM-DD form accepted on the command line.
package dates

import (
	"fmt"
	"strings"
	"time"
)

const (
	// ISOLayout is the ISO-8601 form emitted in JSON output.
	ISOLayout = "2006-01-02T15:04:05"
	// DayLayout is the YYYY-MM-DD form accepted from users.
	DayLayout = "2006-01-02"
	// LongDayLayout is the form AppleScript accepts in `date "..."` literals.
	LongDayLayout = "January 02, 2006"
)

// long-form layouts tried in order: weekday-qualified first.
var longLayouts = []string{
	"Monday, January 2, 2006 at 3:04:05 PM",
	"January 2, 2006 at 3:04:05 PM",
}

var spaceFolder = strings.NewReplacer("\u202f", " ", "\u00a0", " ")

// ParseLongTime parses a long-form date with or without the weekday.
func ParseLongTime(s string) (time.Time, bool) {
	candidate := strings.TrimSpace(spaceFolder.Replace(s))
	for _, layout := range longLayouts {
		if t, err := time.Parse(layout, candidate); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseLongDate converts "Tuesday, January 14, 2026 at 2:30:00 PM" (with or
// without the weekday) to "2026-01-14T14:30:00". Anything else is returned
// unchanged; it never fails.
func ParseLongDate(s string) string {
	if t, ok := ParseLongTime(s); ok {
		return t.Format(ISOLayout)
	}
	return s
}

// IsLongDate reports whether s parses as a long-form date.
func IsLongDate(s string) bool {
	return ParseLongDate(s) != s
}

// ToLongDate renders t as an AppleScript date literal body.
func ToLongDate(t time.Time) string {
	return t.Format(LongDayLayout)
}

// DaysAgo returns the YYYY-MM-DD date n days before now.
func DaysAgo(now time.Time, n int) string {
	return now.AddDate(0, 0, -n).Format(DayLayout)
}

// Today returns now as YYYY-MM-DD.
func Today(now time.Time) string {
	return now.Format(DayLayout)
}

// ParseDay parses a user-supplied YYYY-MM-DD date.
func ParseDay(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DayLayout, strings.TrimSpace(s), time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date format: '%s'. Use YYYY-MM-DD (e.g. 2026-02-14)", s)
	}
	return t, nil
}
