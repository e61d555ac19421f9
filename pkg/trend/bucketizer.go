// Package trend turns an ordered stream of averaged samples into
// calendar-aligned interval summaries (start value, end value, delta).
package trend

import (
	"time"

	"github.com/vjranagit/trendline/pkg/calendar"
	"github.com/vjranagit/trendline/pkg/types"
)

// Bucketizer walks an ascending sample slice once, forward only, and
// produces one TrendRow per complete calendar interval. The value at
// each boundary is the last observation strictly before it (LOCF); a
// sample exactly on a boundary counts toward the next boundary, not
// this one.
//
// The interval containing the first sample is always skipped as
// partial. The trailing interval is discarded when the boundary probe
// returns the same sample that already served as the interval start,
// meaning the stream was exhausted with no new observation.
type Bucketizer struct {
	samples   []types.Sample
	interval  calendar.Interval
	loc       *time.Location
	weekStart time.Weekday

	pos           int
	startIdx      int
	intervalStart time.Time
	primed        bool
	done          bool
}

// NewBucketizer creates a single-use row producer over samples, which
// must be sorted ascending by timestamp. loc is the wall-clock zone
// used to align the first boundary.
func NewBucketizer(samples []types.Sample, interval calendar.Interval, loc *time.Location, weekStart time.Weekday) *Bucketizer {
	return &Bucketizer{
		samples:   samples,
		interval:  interval,
		loc:       loc,
		weekStart: weekStart,
	}
}

// Next returns the next complete interval row. It returns false once
// the sample stream can no longer complete an interval.
func (b *Bucketizer) Next() (types.TrendRow, bool) {
	if b.done {
		return types.TrendRow{}, false
	}
	if !b.primed {
		if len(b.samples) == 0 {
			b.done = true
			return types.TrendRow{}, false
		}
		b.prime()
	}

	intervalEnd := b.interval.Step(b.intervalStart)
	endIdx := b.probe(intervalEnd)
	if endIdx == b.startIdx {
		// Stream exhausted with no observation since the last
		// boundary: the interval is partial and never emitted.
		b.done = true
		return types.TrendRow{}, false
	}

	row := types.TrendRow{
		Start:      b.intervalStart,
		End:        intervalEnd,
		StartValue: b.samples[b.startIdx].Value,
		EndValue:   b.samples[endIdx].Value,
		Delta:      b.samples[endIdx].Value - b.samples[b.startIdx].Value,
	}
	b.intervalStart = intervalEnd
	b.startIdx = endIdx
	return row, true
}

// Rows drains the bucketizer eagerly.
func (b *Bucketizer) Rows() []types.TrendRow {
	var rows []types.TrendRow
	for {
		row, ok := b.Next()
		if !ok {
			return rows
		}
		rows = append(rows, row)
	}
}

// prime aligns the first sample to its enclosing interval start in
// local wall-clock time, converts back to UTC, then advances one step
// so the possibly partial first interval is skipped.
func (b *Bucketizer) prime() {
	first := b.samples[0].Timestamp.In(b.loc)
	aligned := b.interval.AlignStart(first, b.weekStart).UTC()
	b.intervalStart = b.interval.Step(aligned)
	b.startIdx = b.probe(b.intervalStart)
	b.primed = true
}

// probe advances the cursor to the first sample at or past target (or
// parks it on the final sample when the stream runs out) and returns
// the index of the last sample strictly before target. Samples exactly
// on target are left for the following probe.
func (b *Bucketizer) probe(target time.Time) int {
	for {
		point := b.pos
		if b.pos+1 >= len(b.samples) {
			return point
		}
		b.pos++
		if !b.samples[b.pos].Timestamp.Before(target) {
			return point
		}
	}
}
