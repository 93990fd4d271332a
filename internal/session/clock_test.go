package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustClock(t *testing.T) *Clock {
	t.Helper()
	c, err := NewClock("Europe/Rome", "09:00", "17:30", 15)
	require.NoError(t, err)
	return c
}

func romeTime(t *testing.T, hour, min int) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Rome")
	require.NoError(t, err)
	return time.Date(2026, 3, 10, hour, min, 0, 0, loc)
}

func TestNewClockRejectsBadInput(t *testing.T) {
	_, err := NewClock("Not/AZone", "09:00", "17:30", 15)
	assert.Error(t, err)

	_, err = NewClock("Europe/Rome", "25:00", "17:30", 15)
	assert.Error(t, err)

	_, err = NewClock("Europe/Rome", "nonsense", "17:30", 15)
	assert.Error(t, err)
}

func TestInSessionBoundsInclusive(t *testing.T) {
	c := mustClock(t)

	assert.False(t, c.InSession(romeTime(t, 8, 59)))
	assert.True(t, c.InSession(romeTime(t, 9, 0)))
	assert.True(t, c.InSession(romeTime(t, 12, 30)))
	assert.True(t, c.InSession(romeTime(t, 17, 30)))
	assert.False(t, c.InSession(romeTime(t, 17, 31)))
}

func TestMinutesToClose(t *testing.T) {
	c := mustClock(t)

	assert.Equal(t, 510, c.MinutesToClose(romeTime(t, 9, 0)))
	assert.Equal(t, 30, c.MinutesToClose(romeTime(t, 17, 0)))
	// Exact session end: still in session, zero minutes left.
	end := romeTime(t, 17, 30)
	assert.True(t, c.InSession(end))
	assert.Equal(t, 0, c.MinutesToClose(end))
	// Out of session is always 0, never negative.
	assert.Equal(t, 0, c.MinutesToClose(romeTime(t, 18, 0)))
	assert.Equal(t, 0, c.MinutesToClose(romeTime(t, 3, 0)))
}

func TestMinutesToCloseNonNegativeWhileInSession(t *testing.T) {
	c := mustClock(t)
	for min := 0; min <= 510; min += 7 {
		ts := romeTime(t, 9, 0).Add(time.Duration(min) * time.Minute)
		if c.InSession(ts) {
			assert.GreaterOrEqual(t, c.MinutesToClose(ts), 0)
		}
	}
}

func TestIsEODWindow(t *testing.T) {
	c := mustClock(t)

	assert.False(t, c.IsEODWindow(romeTime(t, 17, 14)))
	assert.True(t, c.IsEODWindow(romeTime(t, 17, 15)))
	assert.True(t, c.IsEODWindow(romeTime(t, 17, 30)))
	// Past the close is not the flatten window.
	assert.False(t, c.IsEODWindow(romeTime(t, 17, 31)))
}

func TestBoundsFollowTimestampDate(t *testing.T) {
	c := mustClock(t)
	loc := c.Location()

	for _, day := range []int{3, 10, 24} {
		ts := time.Date(2026, 3, day, 11, 0, 0, 0, loc)
		start, end := c.Bounds(ts)
		assert.Equal(t, day, start.Day())
		assert.Equal(t, day, end.Day())
		assert.Equal(t, 9, start.Hour())
		assert.Equal(t, 17, end.Hour())
		assert.Equal(t, 30, end.Minute())
	}
}

func TestBoundsConvertForeignTimezones(t *testing.T) {
	c := mustClock(t)

	// 08:00 UTC on a CET winter day is 09:00 in Rome.
	utc := time.Date(2026, 1, 12, 8, 0, 0, 0, time.UTC)
	assert.True(t, c.InSession(utc))
	assert.False(t, c.InSession(utc.Add(-time.Minute)))
}

func TestTradingDay(t *testing.T) {
	c := mustClock(t)

	assert.Equal(t, "2026-03-10", c.TradingDay(romeTime(t, 12, 0)))
	// 23:30 UTC is already the next calendar day in Rome.
	late := time.Date(2026, 3, 10, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, "2026-03-11", c.TradingDay(late))
}
