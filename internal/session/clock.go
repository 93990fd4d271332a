// Package session answers session-window and end-of-day questions for the
// configured trading timezone. The clock is pure: bounds are computed for
// the calendar date of the timestamp being asked about, so it stays correct
// when replaying historical bars.
package session

import (
	"fmt"
	"time"
)

// Clock computes session windows for a fixed timezone and daily schedule.
type Clock struct {
	loc       *time.Location
	startHour int
	startMin  int
	endHour   int
	endMin    int
	eodMargin int
}

// NewClock builds a session clock. Start and end are "HH:MM" times of day
// in the given timezone; eodMarginMinutes is the flatten window before close.
func NewClock(timezone, start, end string, eodMarginMinutes int) (*Clock, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("loading session timezone %q: %w", timezone, err)
	}
	sh, sm, err := parseTimeOfDay(start)
	if err != nil {
		return nil, fmt.Errorf("parsing session start: %w", err)
	}
	eh, em, err := parseTimeOfDay(end)
	if err != nil {
		return nil, fmt.Errorf("parsing session end: %w", err)
	}
	return &Clock{
		loc:       loc,
		startHour: sh,
		startMin:  sm,
		endHour:   eh,
		endMin:    em,
		eodMargin: eodMarginMinutes,
	}, nil
}

func parseTimeOfDay(s string) (int, int, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, 0, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("time of day %q out of range", s)
	}
	return h, m, nil
}

// Location returns the session timezone.
func (c *Clock) Location() *time.Location {
	return c.loc
}

// Bounds returns the session start and end for the calendar date of ts.
func (c *Clock) Bounds(ts time.Time) (time.Time, time.Time) {
	local := ts.In(c.loc)
	y, mo, d := local.Date()
	start := time.Date(y, mo, d, c.startHour, c.startMin, 0, 0, c.loc)
	end := time.Date(y, mo, d, c.endHour, c.endMin, 0, 0, c.loc)
	return start, end
}

// InSession reports whether ts falls inside the session window of its own
// calendar date. Both bounds are inclusive.
func (c *Clock) InSession(ts time.Time) bool {
	start, end := c.Bounds(ts)
	return !ts.Before(start) && !ts.After(end)
}

// MinutesToClose returns whole minutes until session end, clamped to >= 0.
// Out of session it returns 0.
func (c *Clock) MinutesToClose(ts time.Time) int {
	if !c.InSession(ts) {
		return 0
	}
	_, end := c.Bounds(ts)
	mins := int(end.Sub(ts).Seconds()) / 60
	if mins < 0 {
		return 0
	}
	return mins
}

// IsEODWindow reports whether ts is in-session and within the end-of-day
// flatten margin.
func (c *Clock) IsEODWindow(ts time.Time) bool {
	return c.InSession(ts) && c.MinutesToClose(ts) <= c.eodMargin
}

// TradingDay returns the calendar date of ts in the session timezone,
// formatted as YYYY-MM-DD. Used as the daily-reset key.
func (c *Clock) TradingDay(ts time.Time) string {
	return ts.In(c.loc).Format("2006-01-02")
}
