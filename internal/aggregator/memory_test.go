package aggregator

import (
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemoryAggregator_DrainReturnsSortedBatch(t *testing.T) {
	a := NewMemoryAggregator()

	a.Record("svc", []float64{105, 110})
	a.Record("svc", []float64{101, 120})

	batch := a.Drain("svc")
	assert.Equal(t, []float64{101, 105, 110, 120}, batch)
	assert.True(t, sort.Float64sAreSorted(batch))

	// Second drain with nothing recorded in between is empty.
	assert.Nil(t, a.Drain("svc"))
}

func TestMemoryAggregator_ServicesAreIsolated(t *testing.T) {
	a := NewMemoryAggregator()

	a.Record("svc-a", []float64{1, 2})
	a.Record("svc-b", []float64{3})

	assert.Len(t, a.Drain("svc-a"), 2)
	assert.Len(t, a.Drain("svc-b"), 1)
	assert.EqualValues(t, 2, a.TotalRecorded("svc-a"))
	assert.EqualValues(t, 1, a.TotalRecorded("svc-b"))
}

func TestMemoryAggregator_ConcurrentRecords(t *testing.T) {
	a := NewMemoryAggregator()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(base float64) {
			defer wg.Done()
			a.Record("svc", []float64{base, base + 0.5})
		}(float64(i))
	}
	wg.Wait()

	batch := a.Drain("svc")
	assert.Len(t, batch, 20)
	assert.True(t, sort.Float64sAreSorted(batch))
	assert.EqualValues(t, 20, a.TotalRecorded("svc"))
}
