package provisioner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brannt/skypilot/internal/replicas"
	"github.com/brannt/skypilot/pkg/models"
)

func newTestSim(t *testing.T) (*SimProvisioner, *replicas.Tracker) {
	t.Helper()
	tracker := replicas.NewTracker(replicas.Callbacks{})
	sim := NewSimProvisioner(SimConfig{
		ProvisionDelay: 20 * time.Millisecond,
		StartupDelay:   10 * time.Millisecond,
		Seed:           1,
	}, tracker)
	t.Cleanup(func() { sim.Close() })
	return sim, tracker
}

func TestSimProvisioner_LaunchReachesReady(t *testing.T) {
	sim, tracker := newTestSim(t)

	info, err := sim.Launch(context.Background(), "svc", models.OnDemandOverride())
	require.NoError(t, err)
	assert.Equal(t, models.ReplicaStatusPending, info.Status)
	assert.False(t, info.UseSpot)

	assert.Eventually(t, func() bool {
		current, ok := tracker.Get("svc", info.ReplicaID)
		return ok && current.Status == models.ReplicaStatusReady
	}, time.Second, 5*time.Millisecond)
}

func TestSimProvisioner_SpotOverrideSetsBilling(t *testing.T) {
	sim, _ := newTestSim(t)

	info, err := sim.Launch(context.Background(), "svc", models.SpotOverride())
	require.NoError(t, err)
	assert.True(t, info.UseSpot)
}

func TestSimProvisioner_TerminateRetiresReplica(t *testing.T) {
	sim, tracker := newTestSim(t)

	info, err := sim.Launch(context.Background(), "svc", models.OnDemandOverride())
	require.NoError(t, err)

	require.NoError(t, sim.Terminate(context.Background(), "svc", info.ReplicaID))

	current, ok := tracker.Get("svc", info.ReplicaID)
	require.True(t, ok)
	assert.Equal(t, models.ReplicaStatusShuttingDown, current.Status)

	// Pending lifecycle timers must not revive a retired replica.
	time.Sleep(50 * time.Millisecond)
	current, _ = tracker.Get("svc", info.ReplicaID)
	assert.True(t, current.Status.IsTerminal())
}

func TestSimProvisioner_TerminateUnknownReplica(t *testing.T) {
	sim, _ := newTestSim(t)
	err := sim.Terminate(context.Background(), "svc", 42)
	assert.ErrorIs(t, err, ErrReplicaNotFound)
}

func TestSimProvisioner_CancelledContext(t *testing.T) {
	sim, _ := newTestSim(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := sim.Launch(ctx, "svc", models.OnDemandOverride())
	assert.ErrorIs(t, err, ErrLaunchFailed)
	assert.ErrorIs(t, sim.Terminate(ctx, "svc", 1), ErrTerminateFailed)
}
