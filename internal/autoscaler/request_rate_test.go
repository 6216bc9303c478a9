package autoscaler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brannt/skypilot/pkg/models"
)

func floatPtr(v float64) *float64 {
	return &v
}

// newTestAutoscaler pins the clock so window pruning is deterministic.
func newTestAutoscaler(t *testing.T, cfg Config, now time.Time) *RequestRateAutoscaler {
	t.Helper()
	a, err := NewRequestRateAutoscaler(cfg)
	require.NoError(t, err)
	a.now = func() time.Time { return now }
	return a
}

// uniformTimestamps spreads count timestamps evenly over the span ending at now.
func uniformTimestamps(now time.Time, span time.Duration, count int) []float64 {
	nowSec := float64(now.Unix())
	step := span.Seconds() / float64(count)
	ts := make([]float64, count)
	for i := 0; i < count; i++ {
		ts[i] = nowSec - span.Seconds() + float64(i+1)*step
	}
	return ts
}

func TestNewRequestRateAutoscaler_ConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name:    "negative min replicas",
			cfg:     Config{MinReplicas: -1, Frequency: time.Minute, WindowSize: time.Minute},
			wantErr: "min_replicas",
		},
		{
			name:    "max below min",
			cfg:     Config{MinReplicas: 3, MaxReplicas: 2, Frequency: time.Minute, WindowSize: time.Minute},
			wantErr: "max_replicas",
		},
		{
			name:    "zero frequency",
			cfg:     Config{MinReplicas: 1, WindowSize: time.Minute},
			wantErr: "frequency",
		},
		{
			name:    "zero window",
			cfg:     Config{MinReplicas: 1, Frequency: time.Minute},
			wantErr: "window_size",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRequestRateAutoscaler(tt.cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRequestRateAutoscaler_MaxDefaultsToMin(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	a := newTestAutoscaler(t, Config{
		MinReplicas:         2,
		Frequency:           time.Minute,
		WindowSize:          time.Minute,
		TargetQPSPerReplica: floatPtr(1),
	}, now)

	// Flood the window; the fleet is still pinned to min == max == 2.
	a.CollectRequestInformation(RequestInformation{
		Timestamps: uniformTimestamps(now, time.Minute, 600),
	})
	for i := 0; i < 10; i++ {
		_, err := a.EvaluateScaling(nil)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, a.TargetNumReplicas())
}

func TestRequestRateAutoscaler_ScaleUpToMinOnEmptyRoster(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	a := newTestAutoscaler(t, Config{
		MinReplicas: 2,
		MaxReplicas: 5,
		Frequency:   time.Minute,
		WindowSize:  time.Minute,
	}, now)

	decisions, err := a.EvaluateScaling(nil)
	require.NoError(t, err)
	require.Len(t, decisions, 2)
	for _, d := range decisions {
		assert.Equal(t, models.OperatorScaleUp, d.Operator)
		assert.Equal(t, false, d.Override["use_spot"])
	}
}

func TestRequestRateAutoscaler_SpotFallbackOnEmptyRoster(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	a := newTestAutoscaler(t, Config{
		MinReplicas: 1,
		MaxReplicas: 3,
		Frequency:   time.Minute,
		WindowSize:  time.Minute,
		UseSpot:     true,
	}, now)

	decisions, err := a.EvaluateScaling(nil)
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	assert.Equal(t, true, decisions[0].Override["use_spot"])
	assert.Nil(t, decisions[0].Override["spot_recovery"])
}

func TestRequestRateAutoscaler_OverrideFollowsFleetBilling(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	roster := []models.ReplicaInfo{
		{ReplicaID: 1, Status: models.ReplicaStatusReady, UseSpot: true},
	}

	a := newTestAutoscaler(t, Config{
		MinReplicas: 3,
		MaxReplicas: 3,
		Frequency:   time.Minute,
		WindowSize:  time.Minute,
	}, now)

	decisions, err := a.EvaluateScaling(roster)
	require.NoError(t, err)
	require.Len(t, decisions, 2)
	for _, d := range decisions {
		assert.Equal(t, true, d.Override["use_spot"])
	}
}

func TestRequestRateAutoscaler_MixedBillingIsInvariantViolation(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	a := newTestAutoscaler(t, Config{
		MinReplicas: 1,
		MaxReplicas: 5,
		Frequency:   time.Minute,
		WindowSize:  time.Minute,
	}, now)

	roster := []models.ReplicaInfo{
		{ReplicaID: 1, Status: models.ReplicaStatusReady, UseSpot: true},
		{ReplicaID: 2, Status: models.ReplicaStatusReady, UseSpot: false},
	}

	decisions, err := a.EvaluateScaling(roster)
	assert.ErrorIs(t, err, ErrMixedReplicaBilling)
	assert.Nil(t, decisions)
}

func TestRequestRateAutoscaler_HysteresisCommitsOnKthCycle(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	a := newTestAutoscaler(t, Config{
		MinReplicas:         1,
		MaxReplicas:         10,
		Frequency:           time.Minute, // upscale commits after ceil(300/60) = 5 cycles
		WindowSize:          time.Minute,
		TargetQPSPerReplica: floatPtr(1),
	}, now)
	require.Equal(t, 5, a.upscalePeriods)

	roster := []models.ReplicaInfo{
		{ReplicaID: 1, Status: models.ReplicaStatusReady},
	}
	a.CollectRequestInformation(RequestInformation{
		Timestamps: uniformTimestamps(now, time.Minute, 240), // 4 rps -> raw target 4
	})

	for cycle := 1; cycle <= 4; cycle++ {
		decisions, err := a.EvaluateScaling(roster)
		require.NoError(t, err)
		assert.Empty(t, decisions, "cycle %d must not commit yet", cycle)
		assert.Equal(t, 1, a.TargetNumReplicas())
	}

	decisions, err := a.EvaluateScaling(roster)
	require.NoError(t, err)
	assert.Equal(t, 4, a.TargetNumReplicas())
	assert.Len(t, decisions, 3)
}

func TestRequestRateAutoscaler_RevertedProposalDoesNotCommit(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	a := newTestAutoscaler(t, Config{
		MinReplicas:         1,
		MaxReplicas:         10,
		Frequency:           time.Minute,
		WindowSize:          time.Minute,
		TargetQPSPerReplica: floatPtr(1),
	}, now)

	roster := []models.ReplicaInfo{
		{ReplicaID: 1, Status: models.ReplicaStatusReady},
	}

	// k-1 cycles proposing an increase.
	a.CollectRequestInformation(RequestInformation{
		Timestamps: uniformTimestamps(now, time.Minute, 240),
	})
	for cycle := 0; cycle < 4; cycle++ {
		_, err := a.EvaluateScaling(roster)
		require.NoError(t, err)
	}

	// Traffic dies down: the window empties and the proposal reverts.
	a.now = func() time.Time { return now.Add(2 * time.Minute) }
	a.CollectRequestInformation(RequestInformation{})
	_, err := a.EvaluateScaling(roster)
	require.NoError(t, err)
	assert.Zero(t, a.upscaleCounter)
	assert.Equal(t, 1, a.TargetNumReplicas())
}

func TestRequestRateAutoscaler_EvaluateIsIdempotent(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	a := newTestAutoscaler(t, Config{
		MinReplicas: 2,
		MaxReplicas: 5,
		Frequency:   time.Minute,
		WindowSize:  time.Minute,
	}, now)

	roster := []models.ReplicaInfo{
		{ReplicaID: 1, Status: models.ReplicaStatusReady},
	}

	first, err := a.EvaluateScaling(roster)
	require.NoError(t, err)
	second, err := a.EvaluateScaling(roster)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Zero(t, a.upscaleCounter)
	assert.Zero(t, a.downscaleCounter)
}

func TestRequestRateAutoscaler_TargetClampedToMax(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	a := newTestAutoscaler(t, Config{
		MinReplicas:         1,
		MaxReplicas:         3,
		Frequency:           5 * time.Minute, // commits on the first agreeing cycle
		WindowSize:          time.Minute,
		TargetQPSPerReplica: floatPtr(1),
	}, now)
	require.Equal(t, 1, a.upscalePeriods)

	a.CollectRequestInformation(RequestInformation{
		Timestamps: uniformTimestamps(now, time.Minute, 6000), // 100 rps
	})
	_, err := a.EvaluateScaling(nil)
	require.NoError(t, err)
	assert.Equal(t, 3, a.TargetNumReplicas())
}

func TestRequestRateAutoscaler_HoldsSteadyWithoutTargetQPS(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	a := newTestAutoscaler(t, Config{
		MinReplicas: 2,
		MaxReplicas: 10,
		Frequency:   time.Minute,
		WindowSize:  time.Minute,
	}, now)

	a.CollectRequestInformation(RequestInformation{
		Timestamps: uniformTimestamps(now, time.Minute, 6000),
	})

	roster := []models.ReplicaInfo{
		{ReplicaID: 1, Status: models.ReplicaStatusReady},
		{ReplicaID: 2, Status: models.ReplicaStatusReady},
	}
	decisions, err := a.EvaluateScaling(roster)
	require.NoError(t, err)
	assert.Empty(t, decisions)
	assert.Equal(t, 2, a.TargetNumReplicas())
}

// End-to-end scenario: 240 requests over a 60s window at 2 qps per replica
// proposes 2 replicas; the proposal commits after the upscale delay and one
// ScaleUp decision is emitted for the single-replica fleet.
func TestRequestRateAutoscaler_UpscaleScenario(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	a := newTestAutoscaler(t, Config{
		MinReplicas:         1,
		MaxReplicas:         5,
		Frequency:           time.Minute,
		WindowSize:          time.Minute,
		TargetQPSPerReplica: floatPtr(2),
	}, now)

	roster := []models.ReplicaInfo{
		{ReplicaID: 1, Status: models.ReplicaStatusReady},
	}

	var decisions []models.ScalingDecision
	for cycle := 0; cycle < a.upscalePeriods; cycle++ {
		a.CollectRequestInformation(RequestInformation{
			Timestamps: uniformTimestamps(now, time.Minute, 240),
		})
		var err error
		decisions, err = a.EvaluateScaling(roster)
		require.NoError(t, err)
	}

	assert.Equal(t, 2, a.TargetNumReplicas())
	require.Len(t, decisions, 1)
	assert.Equal(t, models.OperatorScaleUp, decisions[0].Operator)
}

// Scale-down scenario: 3 alive replicas against a committed target of 1
// terminates the starting replica first, then the lower-id ready replica.
func TestRequestRateAutoscaler_ScaleDownPrefersStartingReplicas(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	a := newTestAutoscaler(t, Config{
		MinReplicas: 1,
		MaxReplicas: 5,
		Frequency:   time.Minute,
		WindowSize:  time.Minute,
	}, now)

	roster := []models.ReplicaInfo{
		{ReplicaID: 10, Status: models.ReplicaStatusReady},
		{ReplicaID: 11, Status: models.ReplicaStatusStarting},
		{ReplicaID: 12, Status: models.ReplicaStatusReady},
	}

	decisions, err := a.EvaluateScaling(roster)
	require.NoError(t, err)
	require.Len(t, decisions, 2)
	assert.Equal(t, models.NewScaleDownDecision(11), decisions[0])
	assert.Equal(t, models.NewScaleDownDecision(10), decisions[1])
}
