package autoscaler

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/brannt/skypilot/internal/logger"
	"github.com/brannt/skypilot/pkg/models"
)

// RequestRateAutoscaler scales on the request rate estimated over a sliding
// window. A raw target computed from the rate is committed only after it has
// held for enough consecutive cycles, which suppresses oscillation on noisy
// traffic.
type RequestRateAutoscaler struct {
	serviceName         string
	minReplicas         int
	maxReplicas         int
	targetQPSPerReplica *float64
	useSpotFallback     bool

	window            *requestWindow
	targetNumReplicas int
	upscaleCounter    int
	downscaleCounter  int
	upscalePeriods    int
	downscalePeriods  int

	now func() time.Time
}

var _ Autoscaler = (*RequestRateAutoscaler)(nil)

func NewRequestRateAutoscaler(cfg Config) (*RequestRateAutoscaler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid autoscaler config: %w", err)
	}

	maxReplicas := cfg.MaxReplicas
	if maxReplicas == 0 {
		maxReplicas = cfg.MinReplicas
	}

	return &RequestRateAutoscaler{
		serviceName:         cfg.ServiceName,
		minReplicas:         cfg.MinReplicas,
		maxReplicas:         maxReplicas,
		targetQPSPerReplica: cfg.TargetQPSPerReplica,
		useSpotFallback:     cfg.UseSpot,
		window:              newRequestWindow(cfg.WindowSize),
		targetNumReplicas:   cfg.MinReplicas,
		upscalePeriods:      consecutivePeriods(upscaleDelay, cfg.Frequency),
		downscalePeriods:    consecutivePeriods(downscaleDelay, cfg.Frequency),
		now:                 time.Now,
	}, nil
}

func (a *RequestRateAutoscaler) CollectRequestInformation(info RequestInformation) {
	a.window.Record(info.Timestamps)
	a.window.Prune(a.now())
}

// TargetNumReplicas returns the last committed target.
func (a *RequestRateAutoscaler) TargetNumReplicas() int {
	return a.targetNumReplicas
}

// ObservedQPS returns the request rate estimated from the current window.
func (a *RequestRateAutoscaler) ObservedQPS() float64 {
	return a.window.RequestsPerSecond()
}

// desiredNumReplicas runs one step of the hysteresis state machine and
// returns the target to act on this cycle.
func (a *RequestRateAutoscaler) desiredNumReplicas() int {
	// Without a capacity target there is nothing to recompute.
	if a.targetQPSPerReplica == nil {
		return a.targetNumReplicas
	}

	observedQPS := a.window.RequestsPerSecond()
	rawTarget := int(math.Ceil(observedQPS / *a.targetQPSPerReplica))
	if rawTarget < a.minReplicas {
		rawTarget = a.minReplicas
	}
	if rawTarget > a.maxReplicas {
		rawTarget = a.maxReplicas
	}

	logger.WithService(a.serviceName).Debugf(
		"Requests per second: %.3f, raw target replicas: %d", observedQPS, rawTarget)

	switch {
	case rawTarget > a.targetNumReplicas:
		a.upscaleCounter++
		a.downscaleCounter = 0
		if a.upscaleCounter >= a.upscalePeriods {
			a.upscaleCounter = 0
			return rawTarget
		}
	case rawTarget < a.targetNumReplicas:
		a.downscaleCounter++
		a.upscaleCounter = 0
		if a.downscaleCounter >= a.downscalePeriods {
			a.downscaleCounter = 0
			return rawTarget
		}
	default:
		a.upscaleCounter = 0
		a.downscaleCounter = 0
	}
	return a.targetNumReplicas
}

func (a *RequestRateAutoscaler) EvaluateScaling(replicas []models.ReplicaInfo) ([]models.ScalingDecision, error) {
	alive := make([]models.ReplicaInfo, 0, len(replicas))
	for _, info := range replicas {
		if info.IsAlive() {
			alive = append(alive, info)
		}
	}
	// Selection must be deterministic regardless of how the caller ordered
	// the roster.
	sort.Slice(alive, func(i, j int) bool {
		return alive[i].ReplicaID < alive[j].ReplicaID
	})

	numAlive := len(alive)
	numSpot := 0
	for _, info := range alive {
		if info.UseSpot {
			numSpot++
		}
	}
	if numSpot != 0 && numSpot != numAlive {
		return nil, fmt.Errorf("%w: %d of %d alive replicas are spot", ErrMixedReplicaBilling, numSpot, numAlive)
	}
	useSpot := a.useSpotFallback
	if numAlive > 0 {
		useSpot = numSpot == numAlive
	}

	a.targetNumReplicas = a.desiredNumReplicas()
	logger.WithService(a.serviceName).Infof(
		"Target replicas: %d (alive: %d, upscale counter: %d/%d, downscale counter: %d/%d)",
		a.targetNumReplicas, numAlive,
		a.upscaleCounter, a.upscalePeriods,
		a.downscaleCounter, a.downscalePeriods)

	var decisions []models.ScalingDecision
	switch {
	case numAlive < a.targetNumReplicas:
		for i := 0; i < a.targetNumReplicas-numAlive; i++ {
			decisions = append(decisions, models.NewScaleUpDecision(models.OverrideForBilling(useSpot)))
		}
	case numAlive > a.targetNumReplicas:
		ids := replicaIDsToScaleDown(alive, models.ScaleDownDecisionOrder(), numAlive-a.targetNumReplicas)
		for _, id := range ids {
			decisions = append(decisions, models.NewScaleDownDecision(id))
		}
	}

	if len(decisions) == 0 {
		logger.WithService(a.serviceName).Debug("No scaling needed")
	}
	return decisions, nil
}
