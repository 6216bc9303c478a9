package autoscaler

import (
	"sort"
	"time"
)

// requestWindow holds request timestamps (seconds since epoch) inside a
// sliding time window. Samples arrive in non-decreasing order and stale
// entries are pruned from the front, so the slice stays sorted and pruning is
// a single binary-search cut.
type requestWindow struct {
	size       time.Duration
	timestamps []float64
}

func newRequestWindow(size time.Duration) *requestWindow {
	return &requestWindow{size: size}
}

func (w *requestWindow) Record(timestamps []float64) {
	w.timestamps = append(w.timestamps, timestamps...)
}

// Prune drops every timestamp older than now minus the window size.
func (w *requestWindow) Prune(now time.Time) {
	cutoff := float64(now.UnixNano())/float64(time.Second) - w.size.Seconds()
	idx := sort.SearchFloat64s(w.timestamps, cutoff)
	w.timestamps = w.timestamps[idx:]
}

func (w *requestWindow) Len() int {
	return len(w.timestamps)
}

// RequestsPerSecond is the observed rate over the full window size, not over
// the span of retained samples: an empty window means zero.
func (w *requestWindow) RequestsPerSecond() float64 {
	return float64(len(w.timestamps)) / w.size.Seconds()
}
