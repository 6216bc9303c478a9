package aggregator

import (
	"sort"
	"sync"
)

// MemoryAggregator is the in-process Aggregator used by the API ingestion
// endpoint. Batches from concurrent reporters may interleave out of order, so
// Drain sorts before handing the batch to the strategy, which requires
// non-decreasing samples.
type MemoryAggregator struct {
	mu      sync.Mutex
	pending map[string][]float64
	totals  map[string]int64
}

func NewMemoryAggregator() *MemoryAggregator {
	return &MemoryAggregator{
		pending: make(map[string][]float64),
		totals:  make(map[string]int64),
	}
}

func (a *MemoryAggregator) Record(serviceName string, timestamps []float64) {
	if len(timestamps) == 0 {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.pending[serviceName] = append(a.pending[serviceName], timestamps...)
	a.totals[serviceName] += int64(len(timestamps))
}

func (a *MemoryAggregator) Drain(serviceName string) []float64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	batch := a.pending[serviceName]
	if len(batch) == 0 {
		return nil
	}
	delete(a.pending, serviceName)

	sort.Float64s(batch)
	return batch
}

func (a *MemoryAggregator) TotalRecorded(serviceName string) int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.totals[serviceName]
}
