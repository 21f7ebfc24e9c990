// Package marketclock classifies instants as inside or outside the KRX
// regular session using a fixed weekday/hour rule. There is no holiday
// calendar, and the close is hour-granular: the real 15:30 close is treated
// as 15:00.
package marketclock

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidWindow is returned for an hour window that is empty or out of range
var ErrInvalidWindow = errors.New("marketclock: invalid hour window")

// kst is used when Asia/Seoul cannot be loaded from the tz database
var kst = time.FixedZone("KST", 9*60*60)

// Config describes the session window
type Config struct {
	OpenHour       int            // inclusive
	CloseHour      int            // exclusive
	ClosedWeekdays []time.Weekday // 휴장 요일
	Location       *time.Location // nil => Asia/Seoul
}

// DefaultConfig is the KOSPI regular session, weekdays 09:00-15:00 KST
func DefaultConfig() Config {
	return Config{
		OpenHour:       9,
		CloseHour:      15,
		ClosedWeekdays: []time.Weekday{time.Saturday, time.Sunday},
		Location:       Seoul(),
	}
}

// Seoul returns the Asia/Seoul location, or a fixed +09:00 zone
func Seoul() *time.Location {
	loc, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		return kst
	}
	return loc
}

// Clock answers "is the market open". It holds no mutable state.
type Clock struct {
	openHour  int
	closeHour int
	closed    [7]bool
	loc       *time.Location
}

// New validates cfg and builds a Clock
func New(cfg Config) (*Clock, error) {
	if cfg.OpenHour < 0 || cfg.CloseHour > 24 || cfg.OpenHour >= cfg.CloseHour {
		return nil, fmt.Errorf("%w: [%d, %d)", ErrInvalidWindow, cfg.OpenHour, cfg.CloseHour)
	}

	c := &Clock{
		openHour:  cfg.OpenHour,
		closeHour: cfg.CloseHour,
		loc:       cfg.Location,
	}
	if c.loc == nil {
		c.loc = Seoul()
	}
	for _, d := range cfg.ClosedWeekdays {
		if d < time.Sunday || d > time.Saturday {
			return nil, fmt.Errorf("%w: weekday %d", ErrInvalidWindow, d)
		}
		c.closed[d] = true
	}

	return c, nil
}

// IsOpen reports whether now falls inside the session window
func (c *Clock) IsOpen(now time.Time) bool {
	local := now.In(c.loc)
	if c.closed[local.Weekday()] {
		return false
	}
	h := local.Hour()
	return h >= c.openHour && h < c.closeHour
}

// Location returns the timezone the window is evaluated in
func (c *Clock) Location() *time.Location { return c.loc }

// Status is a serialisable view of the session at an instant
type Status struct {
	Open      bool      `json:"open"`
	Now       time.Time `json:"now"`
	OpenHour  int       `json:"open_hour"`
	CloseHour int       `json:"close_hour"`
	Timezone  string    `json:"timezone"`
}

// StatusAt returns the session status at now
func (c *Clock) StatusAt(now time.Time) Status {
	return Status{
		Open:      c.IsOpen(now),
		Now:       now.In(c.loc),
		OpenHour:  c.openHour,
		CloseHour: c.closeHour,
		Timezone:  c.loc.String(),
	}
}
