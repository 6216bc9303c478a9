package orchestrator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brannt/skypilot/pkg/config"
	"github.com/brannt/skypilot/pkg/models"
)

func testConfig() *config.Config {
	return &config.Config{
		Autoscaler: config.AutoscalerConfig{
			Frequency:          50 * time.Millisecond,
			WindowSize:         time.Minute,
			DefaultMinReplicas: 1,
		},
		Provisioner: config.ProvisionerConfig{
			Type:           "sim",
			ProvisionDelay: 10 * time.Millisecond,
			StartupDelay:   10 * time.Millisecond,
		},
		Events: config.EventsConfig{BufferSize: 100},
	}
}

func TestStartStopService(t *testing.T) {
	o := New(testConfig(), nil)
	require.NoError(t, o.Start())
	defer o.Stop()

	svc := models.NewService("web", models.ServicePolicy{MinReplicas: 1})
	require.NoError(t, o.StartService(svc))

	running, err := o.GetServiceStatus("web")
	require.NoError(t, err)
	assert.True(t, running)
	assert.Equal(t, []string{"web"}, o.ListRunningServices())

	// Starting the same service twice is an error.
	assert.Error(t, o.StartService(svc))

	require.NoError(t, o.StopService("web"))
	_, err = o.GetServiceStatus("web")
	assert.Error(t, err)
}

func TestStopUnknownService(t *testing.T) {
	o := New(testConfig(), nil)
	assert.Error(t, o.StopService("ghost"))
}

func TestRecordRequestsRequiresPipeline(t *testing.T) {
	o := New(testConfig(), nil)
	require.NoError(t, o.Start())
	defer o.Stop()

	now := float64(time.Now().UnixNano()) / float64(time.Second)
	assert.Error(t, o.RecordRequests("web", []float64{now}))

	svc := models.NewService("web", models.ServicePolicy{MinReplicas: 1})
	require.NoError(t, o.StartService(svc))
	assert.NoError(t, o.RecordRequests("web", []float64{now}))
}

func TestPipelineScalesUpToMin(t *testing.T) {
	o := New(testConfig(), nil)
	require.NoError(t, o.Start())
	defer o.Stop()

	svc := models.NewService("web", models.ServicePolicy{MinReplicas: 2})
	require.NoError(t, o.StartService(svc))

	// The first cycles launch replicas up to the floor and the simulated
	// provisioner walks them to READY.
	assert.Eventually(t, func() bool {
		return o.FleetCounts("web").Ready == 2
	}, 2*time.Second, 20*time.Millisecond)

	roster := o.ReplicaRoster("web")
	require.Len(t, roster, 2)
	for _, info := range roster {
		assert.Equal(t, models.ReplicaStatusReady, info.Status)
		assert.False(t, info.UseSpot)
	}
}

func TestPipelineRespectsSpotPolicy(t *testing.T) {
	o := New(testConfig(), nil)
	require.NoError(t, o.Start())
	defer o.Stop()

	svc := models.NewService("batch", models.ServicePolicy{MinReplicas: 1, UseSpot: true})
	require.NoError(t, o.StartService(svc))

	assert.Eventually(t, func() bool {
		roster := o.ReplicaRoster("batch")
		return len(roster) == 1 && roster[0].UseSpot
	}, 2*time.Second, 20*time.Millisecond)
}
