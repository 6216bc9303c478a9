package autoscaler

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/brannt/skypilot/pkg/models"
)

// Hysteresis delays: a proposed target must hold for this long before it is
// committed. Scaling up reacts faster than scaling down because missing
// capacity hurts more than paying for spare capacity.
const (
	upscaleDelay   = 300 * time.Second
	downscaleDelay = 1200 * time.Second
)

// ErrMixedReplicaBilling reports a roster whose alive replicas mix spot and
// on-demand billing. The strategy does not support mixed fleets; the caller
// should treat this as an upstream bug, not a transient condition.
var ErrMixedReplicaBilling = errors.New("alive replicas must be either all spot or all on-demand")

// RequestInformation is the metric payload forwarded from the request
// aggregator: timestamps (seconds since epoch) of requests observed since the
// previous cycle, in non-decreasing order.
type RequestInformation struct {
	Timestamps []float64
}

// Autoscaler turns observed traffic and the current replica roster into
// scaling decisions. Implementations are not safe for concurrent use; the
// evaluation loop owns one instance per service.
type Autoscaler interface {
	// CollectRequestInformation ingests a metric sample. It never fails for
	// well-formed input.
	CollectRequestInformation(info RequestInformation)

	// EvaluateScaling inspects the roster and returns the decisions for this
	// cycle. An empty roster is valid and treated as zero alive replicas.
	EvaluateScaling(replicas []models.ReplicaInfo) ([]models.ScalingDecision, error)

	// TargetNumReplicas reports the currently committed replica target.
	TargetNumReplicas() int

	// ObservedQPS reports the request rate over the current window.
	ObservedQPS() float64
}

type Config struct {
	ServiceName string

	// MinReplicas is the floor of the fleet. MaxReplicas defaults to
	// MinReplicas when zero, which pins the fleet to a fixed size.
	MinReplicas int
	MaxReplicas int

	// Frequency is the evaluation cadence of the surrounding loop; the
	// hysteresis periods are derived from it.
	Frequency time.Duration

	// WindowSize bounds the request-timestamp window used for the rate
	// estimate.
	WindowSize time.Duration

	// TargetQPSPerReplica is the per-replica capacity target. When nil the
	// strategy never recomputes a target and holds the committed one.
	TargetQPSPerReplica *float64

	// UseSpot selects the override billing mode when the fleet is empty and
	// there is no alive replica to infer it from.
	UseSpot bool
}

func (c Config) Validate() error {
	if c.MinReplicas < 0 {
		return fmt.Errorf("min_replicas must be >= 0, got %d", c.MinReplicas)
	}
	if c.MaxReplicas != 0 && c.MaxReplicas < c.MinReplicas {
		return fmt.Errorf("max_replicas (%d) must be >= min_replicas (%d)", c.MaxReplicas, c.MinReplicas)
	}
	if c.Frequency <= 0 {
		return fmt.Errorf("frequency must be positive, got %s", c.Frequency)
	}
	if c.WindowSize <= 0 {
		return fmt.Errorf("window_size must be positive, got %s", c.WindowSize)
	}
	return nil
}

// consecutivePeriods converts a hysteresis delay into a number of evaluation
// cycles, rounding up so the delay is never undershot.
func consecutivePeriods(delay, frequency time.Duration) int {
	periods := int(math.Ceil(delay.Seconds() / frequency.Seconds()))
	if periods < 1 {
		periods = 1
	}
	return periods
}
