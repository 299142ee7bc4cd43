// Package calendar converts absolute instants into the agency-local
// representations the schedule refinement engine works in: seconds into the
// service day, and day-of-year for grouping terminal departures.
package calendar

import (
	"fmt"
	"time"
)

// Calendar converts wall-clock instants to seconds-into-day and day-of-year
// values using a single fixed location. Agencies run their AVL clocks in
// local time, so every conversion in the engine goes through one of these.
type Calendar struct {
	Location *time.Location
}

// New returns a Calendar that interprets instants in loc. A nil loc is
// replaced with time.Local.
func New(loc *time.Location) *Calendar {
	if loc == nil {
		loc = time.Local
	}
	return &Calendar{Location: loc}
}

// SecondsIntoDay returns the number of seconds elapsed since local midnight
// of instant's own local calendar day, so an instant just after midnight
// counts from that new day's midnight, not from the previous service day's.
// The result is not clamped; on a day with a daylight-saving transition it
// can reach past 86400 or stop short of it.
func (c *Calendar) SecondsIntoDay(instant time.Time) int {
	local := instant.In(c.Location)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, c.Location)
	return int(local.Sub(midnight).Seconds())
}

// DayOfYear returns the 1-based day-of-year of instant in the calendar's
// location, used as part of TerminalKey so that runs on different service
// days are never conflated.
func (c *Calendar) DayOfYear(instant time.Time) int {
	return instant.In(c.Location).YearDay()
}

// TimeOfDayString renders seconds-into-day as HH:MM:SS for log messages,
// tolerating values outside [0, 86400) for after-midnight service and
// negative values that can appear transiently while debugging frequency-trip
// alignment.
func TimeOfDayString(secs int) string {
	sign := ""
	if secs < 0 {
		sign = "-"
		secs = -secs
	}

	return fmt.Sprintf("%s%02d:%02d:%02d", sign, secs/3600, (secs%3600)/60, secs%60)
}
