package replicas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brannt/skypilot/pkg/models"
)

func TestTracker_RegisterAssignsSequentialIDs(t *testing.T) {
	tr := NewTracker(Callbacks{})

	first := tr.Register("svc", false)
	second := tr.Register("svc", false)
	other := tr.Register("other", true)

	assert.Equal(t, 1, first.ReplicaID)
	assert.Equal(t, 2, second.ReplicaID)
	assert.Equal(t, 1, other.ReplicaID)
	assert.Equal(t, models.ReplicaStatusPending, first.Status)
	assert.True(t, other.UseSpot)
}

func TestTracker_UpdateStatus(t *testing.T) {
	tr := NewTracker(Callbacks{})
	info := tr.Register("svc", false)

	require.NoError(t, tr.UpdateStatus("svc", info.ReplicaID, models.ReplicaStatusReady))

	got, ok := tr.Get("svc", info.ReplicaID)
	require.True(t, ok)
	assert.Equal(t, models.ReplicaStatusReady, got.Status)
	assert.NotNil(t, got.ReadyAt)

	assert.ErrorIs(t, tr.UpdateStatus("svc", 99, models.ReplicaStatusReady), ErrReplicaNotFound)
}

func TestTracker_ListIsSortedByID(t *testing.T) {
	tr := NewTracker(Callbacks{})
	for i := 0; i < 5; i++ {
		tr.Register("svc", false)
	}

	infos := tr.List("svc")
	require.Len(t, infos, 5)
	for i, info := range infos {
		assert.Equal(t, i+1, info.ReplicaID)
	}
}

func TestTracker_AliveExcludesRetired(t *testing.T) {
	tr := NewTracker(Callbacks{})
	a := tr.Register("svc", false)
	b := tr.Register("svc", false)
	tr.Register("svc", false)

	require.NoError(t, tr.UpdateStatus("svc", a.ReplicaID, models.ReplicaStatusReady))
	require.NoError(t, tr.UpdateStatus("svc", b.ReplicaID, models.ReplicaStatusFailed))

	alive := tr.Alive("svc")
	assert.Len(t, alive, 2)
	for _, info := range alive {
		assert.NotEqual(t, b.ReplicaID, info.ReplicaID)
	}

	counts := tr.Counts("svc")
	assert.Equal(t, 3, counts.Total)
	assert.Equal(t, 2, counts.Alive)
	assert.Equal(t, 1, counts.Ready)
	assert.Equal(t, 1, counts.Retired)
}

func TestTracker_PruneRetired(t *testing.T) {
	tr := NewTracker(Callbacks{})
	a := tr.Register("svc", false)
	tr.Register("svc", false)

	require.NoError(t, tr.UpdateStatus("svc", a.ReplicaID, models.ReplicaStatusShuttingDown))

	assert.Equal(t, 1, tr.PruneRetired("svc"))
	assert.Len(t, tr.List("svc"), 1)
	assert.Zero(t, tr.PruneRetired("svc"))
}
