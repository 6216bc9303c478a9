package provisioner

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/brannt/skypilot/internal/logger"
	"github.com/brannt/skypilot/internal/replicas"
	"github.com/brannt/skypilot/pkg/models"
)

type SimConfig struct {
	// ProvisionDelay is how long a replica sits in PROVISIONING, StartupDelay
	// how long in STARTING before turning READY.
	ProvisionDelay time.Duration
	StartupDelay   time.Duration

	// FailureRate is the probability in [0, 1] that a launch fails during
	// provisioning.
	FailureRate float64

	// PreemptionRate is the per-launch probability that a spot replica is
	// preempted shortly after becoming ready.
	PreemptionRate float64

	Seed int64
}

// SimProvisioner fakes a cloud: launches walk the tracker through the replica
// lifecycle on timers instead of touching real compute.
type SimProvisioner struct {
	config  SimConfig
	tracker *replicas.Tracker

	mu     sync.Mutex
	rng    *rand.Rand
	timers []*time.Timer
	closed bool
}

func NewSimProvisioner(cfg SimConfig, tracker *replicas.Tracker) *SimProvisioner {
	if cfg.ProvisionDelay == 0 {
		cfg.ProvisionDelay = 10 * time.Second
	}
	if cfg.StartupDelay == 0 {
		cfg.StartupDelay = 5 * time.Second
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &SimProvisioner{
		config:  cfg,
		tracker: tracker,
		rng:     rand.New(rand.NewSource(seed)),
	}
}

func (p *SimProvisioner) Launch(ctx context.Context, serviceName string, override models.ResourceOverride) (models.ReplicaInfo, error) {
	if err := ctx.Err(); err != nil {
		return models.ReplicaInfo{}, fmt.Errorf("%w: %v", ErrLaunchFailed, err)
	}

	useSpot, _ := override["use_spot"].(bool)
	info := p.tracker.Register(serviceName, useSpot)

	fails := p.roll(p.config.FailureRate)
	preempted := useSpot && p.roll(p.config.PreemptionRate)

	p.transition(serviceName, info.ReplicaID, p.config.ProvisionDelay/2, models.ReplicaStatusProvisioning)
	if fails {
		p.transition(serviceName, info.ReplicaID, p.config.ProvisionDelay, models.ReplicaStatusFailed)
		return info, nil
	}
	p.transition(serviceName, info.ReplicaID, p.config.ProvisionDelay, models.ReplicaStatusStarting)
	p.transition(serviceName, info.ReplicaID, p.config.ProvisionDelay+p.config.StartupDelay, models.ReplicaStatusReady)
	if preempted {
		p.transition(serviceName, info.ReplicaID,
			p.config.ProvisionDelay+2*p.config.StartupDelay, models.ReplicaStatusPreempted)
	}

	return info, nil
}

func (p *SimProvisioner) Terminate(ctx context.Context, serviceName string, replicaID int) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrTerminateFailed, err)
	}

	if err := p.tracker.UpdateStatus(serviceName, replicaID, models.ReplicaStatusShuttingDown); err != nil {
		return fmt.Errorf("%w: replica %d", ErrReplicaNotFound, replicaID)
	}
	logger.WithReplica(serviceName, replicaID).Info("Replica terminated")
	return nil
}

func (p *SimProvisioner) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	for _, timer := range p.timers {
		timer.Stop()
	}
	p.timers = nil
	return nil
}

func (p *SimProvisioner) roll(probability float64) bool {
	if probability <= 0 {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.Float64() < probability
}

// transition schedules a status change, skipped if the replica has already
// been retired (e.g. terminated while still provisioning).
func (p *SimProvisioner) transition(serviceName string, replicaID int, after time.Duration, status models.ReplicaStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}

	timer := time.AfterFunc(after, func() {
		current, ok := p.tracker.Get(serviceName, replicaID)
		if !ok || current.Status.IsTerminal() {
			return
		}
		if err := p.tracker.UpdateStatus(serviceName, replicaID, status); err != nil {
			logger.WithReplica(serviceName, replicaID).Warnf("Simulated transition skipped: %v", err)
		}
	})
	p.timers = append(p.timers, timer)
}
