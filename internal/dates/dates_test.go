package dates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLongDate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"with weekday", "Tuesday, January 14, 2026 at 2:30:00 PM", "2026-01-14T14:30:00"},
		{"without weekday", "January 14, 2026 at 2:30:00 PM", "2026-01-14T14:30:00"},
		{"morning", "January 14, 2026 at 9:00:00 AM", "2026-01-14T09:00:00"},
		{"midnight", "Friday, March 6, 2026 at 12:05:09 AM", "2026-03-06T00:05:09"},
		{"narrow no-break space", "January 15, 2026 at 3:30:00\u202fPM", "2026-01-15T15:30:00"},
		{"plain text", "Test", "Test"},
		{"iso already", "2026-01-01", "2026-01-01"},
		{"weekday only", "Monday", "Monday"},
		{"empty", "", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseLongDate(tc.in))
		})
	}
}

func TestIsLongDate(t *testing.T) {
	assert.True(t, IsLongDate("January 14, 2026 at 2:30:00 PM"))
	assert.False(t, IsLongDate("sender@example.com"))
}

func TestCalendarHelpers(t *testing.T) {
	now := time.Date(2026, time.February, 14, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, "2026-02-14", Today(now))
	assert.Equal(t, "2026-02-07", DaysAgo(now, 7))
	assert.Equal(t, "February 14, 2026", ToLongDate(now))
}

func TestParseDay(t *testing.T) {
	got, err := ParseDay("2026-02-14")
	require.NoError(t, err)
	assert.Equal(t, 14, got.Day())

	_, err = ParseDay("14/02/2026")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "YYYY-MM-DD")
}

func TestParseLongTime(t *testing.T) {
	got, ok := ParseLongTime("January 14, 2026 at 2:30:00 PM")
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, time.January, 14, 14, 30, 0, 0, time.UTC), got)

	_, ok = ParseLongTime("yesterday-ish")
	assert.False(t, ok)
}
