package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(day, hour, min int) time.Time {
	return time.Date(2026, 10, day, hour, min, 0, 0, time.UTC)
}

func TestDailyAtNext(t *testing.T) {
	d, err := NewDailyAt(9 * time.Hour)
	require.NoError(t, err)

	assert.Equal(t, at(14, 9, 0), d.Next(at(14, 8, 0)))
	assert.Equal(t, at(15, 9, 0), d.Next(at(14, 9, 0)), "strictly after")
	assert.Equal(t, at(15, 9, 0), d.Next(at(14, 23, 59)))
	assert.Equal(t, "daily at 09:00", d.String())
}

func TestIntervalNext(t *testing.T) {
	iv, err := NewInterval(30*time.Minute, 8*time.Hour, 20*time.Hour)
	require.NoError(t, err)

	assert.Equal(t, at(14, 8, 0), iv.Next(at(14, 7, 10)))
	assert.Equal(t, at(14, 8, 30), iv.Next(at(14, 8, 0)))
	assert.Equal(t, at(14, 10, 30), iv.Next(at(14, 10, 17)))
	assert.Equal(t, at(14, 20, 0), iv.Next(at(14, 19, 45)))
	assert.Equal(t, at(15, 8, 0), iv.Next(at(14, 20, 0)), "outside business hours")
}

func TestIntervalNextAcrossDST(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata unavailable:", err)
	}
	iv, err := NewInterval(30*time.Minute, 8*time.Hour, 20*time.Hour)
	require.NoError(t, err)

	// clocks go forward on 2026-03-08 and back on 2026-11-01
	spring := iv.Next(time.Date(2026, 3, 8, 0, 30, 0, 0, ny))
	assert.True(t, time.Date(2026, 3, 8, 8, 0, 0, 0, ny).Equal(spring), "got %s", spring)
	autumn := iv.Next(time.Date(2026, 11, 1, 0, 30, 0, 0, ny))
	assert.True(t, time.Date(2026, 11, 1, 8, 0, 0, 0, ny).Equal(autumn), "got %s", autumn)
	last := iv.Next(time.Date(2026, 3, 8, 19, 45, 0, 0, ny))
	assert.True(t, time.Date(2026, 3, 8, 20, 0, 0, 0, ny).Equal(last), "got %s", last)

	d, err := NewDailyAt(9 * time.Hour)
	require.NoError(t, err)
	daily := d.Next(time.Date(2026, 3, 8, 1, 0, 0, 0, ny))
	assert.True(t, time.Date(2026, 3, 8, 9, 0, 0, 0, ny).Equal(daily), "got %s", daily)
}

func TestIntervalWeekdays(t *testing.T) {
	iv, err := NewInterval(time.Hour, 9*time.Hour, 17*time.Hour,
		time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday)
	require.NoError(t, err)

	// 2026-10-17 is a Saturday
	assert.Equal(t, at(19, 9, 0), iv.Next(at(17, 10, 0)))
	assert.Equal(t, at(19, 9, 0), iv.Next(at(16, 17, 0)))
	assert.Equal(t, at(16, 12, 0), iv.Next(at(16, 11, 0)))
}

func TestWeeklyAtNext(t *testing.T) {
	w, err := ParseWeekly("Sunday 03:00")
	require.NoError(t, err)

	// 2026-10-14 is a Wednesday
	assert.Equal(t, at(18, 3, 0), w.Next(at(14, 10, 0)))
	assert.Equal(t, at(25, 3, 0), w.Next(at(18, 3, 0)))
	assert.Equal(t, "weekly on Sunday at 03:00", w.String())
}

func TestRecurrenceValidation(t *testing.T) {
	_, err := NewDailyAt(25 * time.Hour)
	assert.ErrorIs(t, err, ErrInvalidRecurrence)

	_, err = NewDailyAt(9*time.Hour + 30*time.Second)
	assert.ErrorIs(t, err, ErrInvalidRecurrence)

	_, err = NewInterval(30*time.Second, 0, time.Hour)
	assert.ErrorIs(t, err, ErrInvalidRecurrence)

	_, err = NewInterval(time.Hour, 20*time.Hour, 8*time.Hour)
	assert.ErrorIs(t, err, ErrInvalidRecurrence)

	_, err = NewWeeklyAt(time.Weekday(9), time.Hour)
	assert.ErrorIs(t, err, ErrInvalidRecurrence)

	_, err = ParseWeekly("funday 03:00")
	assert.ErrorIs(t, err, ErrInvalidRecurrence)

	_, err = ParseDaily("9am")
	assert.ErrorIs(t, err, ErrInvalidRecurrence)
}

func TestParseHours(t *testing.T) {
	from, to, err := ParseHours("08:00 - 20:00")
	require.NoError(t, err)
	assert.Equal(t, 8*time.Hour, from)
	assert.Equal(t, 20*time.Hour, to)

	_, _, err = ParseHours("8-20")
	assert.ErrorIs(t, err, ErrInvalidRecurrence)
	_, _, err = ParseHours("08:00")
	assert.ErrorIs(t, err, ErrInvalidRecurrence)
}
