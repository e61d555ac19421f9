package trend

import (
	"context"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/vjranagit/trendline/pkg/calendar"
	"github.com/vjranagit/trendline/pkg/types"
)

// SeriesProvider supplies averaged samples for one series, ascending by
// timestamp and already restricted to the requested range. Trailing
// samples past r.End are tolerated.
type SeriesProvider interface {
	FetchAverages(ctx context.Context, element, parameter string, r calendar.Range) ([]types.Sample, error)
}

// Engine resolves a trend request against a provider: named range to
// absolute range, named interval to variant, fetch, bucketize.
type Engine struct {
	provider  SeriesProvider
	loc       *time.Location
	weekStart time.Weekday

	// now is swappable for tests.
	now func() time.Time
}

// NewEngine creates a trend engine. loc anchors calendar alignment and
// relative range resolution; weekStart configures week alignment.
func NewEngine(provider SeriesProvider, loc *time.Location, weekStart time.Weekday) *Engine {
	return &Engine{
		provider:  provider,
		loc:       loc,
		weekStart: weekStart,
		now:       time.Now,
	}
}

// Run executes one trend query. A provider failure fails the whole
// query; an empty or too-sparse sample set yields zero rows and no
// error. Rows are contiguous and ascending.
func (e *Engine) Run(ctx context.Context, req types.TrendRequest) (*types.TrendResult, error) {
	r := calendar.ResolveRange(req.RangeName, e.now(), e.loc)
	interval := calendar.ParseInterval(req.IntervalName)

	samples, err := e.provider.FetchAverages(ctx, req.Element, req.Parameter, r)
	if err != nil {
		return nil, errors.Wrapf(err, "fetch averages for %s/%s", req.Element, req.Parameter)
	}

	rows := NewBucketizer(samples, interval, e.loc, e.weekStart).Rows()

	log.WithFields(log.Fields{
		"element":   req.Element,
		"parameter": req.Parameter,
		"interval":  interval.String(),
		"samples":   len(samples),
		"rows":      len(rows),
	}).Debug("trend query complete")

	return &types.TrendResult{Rows: rows}, nil
}
