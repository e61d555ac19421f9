package calendar

import "time"

// Range is a half-open [Start, End) UTC time range.
type Range struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the range.
func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// Bounds of the "All time" range. The start predates any plausible
// sample; the end is far enough out to act as an open upper bound.
var (
	allTimeStart = time.Time{}
	allTimeEnd   = time.Date(9999, time.December, 31, 23, 59, 59, 0, time.UTC)
)

// AllTime returns the unbounded range.
func AllTime() Range {
	return Range{Start: allTimeStart, End: allTimeEnd}
}

// ResolveRange maps a named relative range and a reference instant to
// an absolute UTC range. The relative ranges are anchored on the local
// calendar: now is converted to loc, truncated to local midnight (the
// range end), and the unit is subtracted to get the range start. "Last
// day" therefore means the previous local calendar day, not a rolling
// 24h UTC window. Unknown names resolve to All time.
func ResolveRange(name string, now time.Time, loc *time.Location) Range {
	switch name {
	case "Last day":
		return lastUnits(now, loc, 0, 0, 1)
	case "Last week":
		return lastUnits(now, loc, 0, 0, 7)
	case "Last month":
		return lastUnits(now, loc, 0, 1, 0)
	case "Last year":
		return lastUnits(now, loc, 1, 0, 0)
	default:
		return AllTime()
	}
}

func lastUnits(now time.Time, loc *time.Location, years, months, days int) Range {
	local := now.In(loc)
	end := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	start := end.AddDate(-years, -months, -days)
	return Range{Start: start.UTC(), End: end.UTC()}
}
