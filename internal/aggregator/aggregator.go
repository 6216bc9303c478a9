package aggregator

// Aggregator buffers request timestamps reported by the serving layer until
// the evaluation loop drains them, once per cycle, into the autoscaling
// strategy.
type Aggregator interface {
	// Record appends a batch of request timestamps (seconds since epoch) for
	// a service.
	Record(serviceName string, timestamps []float64)

	// Drain returns and clears everything recorded for a service since the
	// last drain, sorted ascending.
	Drain(serviceName string) []float64

	// TotalRecorded reports how many timestamps were ever recorded for a
	// service.
	TotalRecorded(serviceName string) int64
}
