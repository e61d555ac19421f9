// Package calendar provides calendar-aligned interval arithmetic for
// trend bucketing.
//
// Alignment is wall-clock aware: AlignStart truncates in the location of
// the timestamp it is given. Stepping is not: Step advances the already
// aligned (UTC) instant with calendar arithmetic and does not re-enter
// local time, so boundaries that cross a daylight-saving transition
// drift by the DST offset. That asymmetry is intentional and must not
// be "fixed".
package calendar

import "time"

// Interval is a calendar bucket width.
type Interval int

const (
	Hour Interval = iota
	Day
	Week
	Month
	Year
)

// DefaultInterval is used when an interval name is not recognized.
const DefaultInterval = Day

func (iv Interval) String() string {
	switch iv {
	case Hour:
		return "Hour"
	case Day:
		return "Day"
	case Week:
		return "Week"
	case Month:
		return "Month"
	case Year:
		return "Year"
	default:
		return "Day"
	}
}

// ParseInterval maps an interval name to its variant. Unknown names
// fall back to Day rather than erroring.
func ParseInterval(name string) Interval {
	switch name {
	case "Hour":
		return Hour
	case "Day":
		return Day
	case "Week":
		return Week
	case "Month":
		return Month
	case "Year":
		return Year
	default:
		return DefaultInterval
	}
}

// AlignStart truncates t down to the start of its enclosing interval.
// The result is in t's location. weekStart is only consulted by the
// Week variant.
func (iv Interval) AlignStart(t time.Time, weekStart time.Weekday) time.Time {
	switch iv {
	case Hour:
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
	case Day:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	case Week:
		midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
		back := (int(midnight.Weekday()) - int(weekStart) + 7) % 7
		return midnight.AddDate(0, 0, -back)
	case Month:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	case Year:
		return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location())
	default:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	}
}

// Step advances an interval start to the next interval start. Month and
// Year use calendar arithmetic, so variable month lengths and leap
// years are handled.
func (iv Interval) Step(s time.Time) time.Time {
	switch iv {
	case Hour:
		return s.Add(time.Hour)
	case Day:
		return s.AddDate(0, 0, 1)
	case Week:
		return s.AddDate(0, 0, 7)
	case Month:
		return s.AddDate(0, 1, 0)
	case Year:
		return s.AddDate(1, 0, 0)
	default:
		return s.AddDate(0, 0, 1)
	}
}
