package autoscaler

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRequestWindow_PruneKeepsOnlyFreshTimestamps(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	w := newRequestWindow(60 * time.Second)

	nowSec := float64(now.Unix())
	w.Record([]float64{nowSec - 120, nowSec - 90, nowSec - 61})
	w.Record([]float64{nowSec - 59, nowSec - 30, nowSec - 1})
	w.Prune(now)

	assert.Equal(t, 3, w.Len())
	cutoff := nowSec - 60
	for _, ts := range w.timestamps {
		assert.GreaterOrEqual(t, ts, cutoff)
	}
}

func TestRequestWindow_StaysSorted(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	w := newRequestWindow(30 * time.Second)

	nowSec := float64(now.Unix())
	w.Record([]float64{nowSec - 40, nowSec - 35})
	w.Prune(now.Add(-20 * time.Second))
	w.Record([]float64{nowSec - 25, nowSec - 10, nowSec - 5})
	w.Prune(now)

	assert.True(t, sort.Float64sAreSorted(w.timestamps))
	assert.Equal(t, 3, w.Len())
}

func TestRequestWindow_EmptyWindowRate(t *testing.T) {
	w := newRequestWindow(60 * time.Second)
	assert.Zero(t, w.RequestsPerSecond())

	w.Record([]float64{1, 2, 3})
	assert.InDelta(t, 0.05, w.RequestsPerSecond(), 1e-9)
}
