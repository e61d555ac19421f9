package trend

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vjranagit/trendline/pkg/calendar"
	"github.com/vjranagit/trendline/pkg/types"
)

type fakeProvider struct {
	samples   []types.Sample
	err       error
	lastRange calendar.Range
}

func (f *fakeProvider) FetchAverages(ctx context.Context, element, parameter string, r calendar.Range) ([]types.Sample, error) {
	f.lastRange = r
	if f.err != nil {
		return nil, f.err
	}
	return f.samples, nil
}

func TestEngineRun(t *testing.T) {
	base := time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)
	provider := &fakeProvider{
		samples: []types.Sample{
			{Timestamp: base, Value: 10},
			{Timestamp: base.Add(30 * time.Minute), Value: 12},
			{Timestamp: base.Add(60 * time.Minute), Value: 15},
			{Timestamp: base.Add(90 * time.Minute), Value: 9},
		},
	}

	e := NewEngine(provider, time.UTC, time.Monday)
	result, err := e.Run(context.Background(), types.TrendRequest{
		Element:      "pump-1",
		Parameter:    "flow",
		RangeName:    "All time",
		IntervalName: "Hour",
	})

	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, -3.0, result.Rows[0].Delta)
}

func TestEngineProviderFailureIsFatal(t *testing.T) {
	provider := &fakeProvider{err: assert.AnError}
	e := NewEngine(provider, time.UTC, time.Monday)

	_, err := e.Run(context.Background(), types.TrendRequest{
		Element: "pump-1", Parameter: "flow",
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestEngineUnknownRangeNameResolvesToAllTime(t *testing.T) {
	provider := &fakeProvider{}
	e := NewEngine(provider, time.UTC, time.Monday)

	_, err := e.Run(context.Background(), types.TrendRequest{
		Element: "pump-1", Parameter: "flow", RangeName: "whenever",
	})
	require.NoError(t, err)

	all := calendar.AllTime()
	assert.True(t, provider.lastRange.Start.Equal(all.Start))
	assert.True(t, provider.lastRange.End.Equal(all.End))
}

func TestEngineRelativeRangeUsesEngineClock(t *testing.T) {
	provider := &fakeProvider{}
	e := NewEngine(provider, time.UTC, time.Monday)
	e.now = func() time.Time {
		return time.Date(2024, time.June, 15, 10, 30, 0, 0, time.UTC)
	}

	_, err := e.Run(context.Background(), types.TrendRequest{
		Element: "pump-1", Parameter: "flow", RangeName: "Last day",
	})
	require.NoError(t, err)

	assert.True(t, provider.lastRange.Start.Equal(time.Date(2024, time.June, 14, 0, 0, 0, 0, time.UTC)))
	assert.True(t, provider.lastRange.End.Equal(time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC)))
}

func TestEngineUnknownIntervalBucketsDaily(t *testing.T) {
	base := time.Date(2024, time.March, 1, 6, 0, 0, 0, time.UTC)
	var samples []types.Sample
	for i := 0; i < 10; i++ {
		samples = append(samples, types.Sample{
			Timestamp: base.AddDate(0, 0, i),
			Value:     float64(i),
		})
	}
	provider := &fakeProvider{samples: samples}
	e := NewEngine(provider, time.UTC, time.Monday)

	bogus, err := e.Run(context.Background(), types.TrendRequest{
		Element: "pump-1", Parameter: "flow", IntervalName: "Fortnight",
	})
	require.NoError(t, err)

	day, err := e.Run(context.Background(), types.TrendRequest{
		Element: "pump-1", Parameter: "flow", IntervalName: "Day",
	})
	require.NoError(t, err)

	assert.Equal(t, day.Rows, bogus.Rows)
}

func TestEngineEmptySeriesYieldsZeroRowsNoError(t *testing.T) {
	provider := &fakeProvider{}
	e := NewEngine(provider, time.UTC, time.Monday)

	result, err := e.Run(context.Background(), types.TrendRequest{
		Element: "pump-1", Parameter: "flow",
	})

	require.NoError(t, err)
	assert.Empty(t, result.Rows)
}
