package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/brannt/skypilot/internal/aggregator"
	"github.com/brannt/skypilot/internal/autoscaler"
	"github.com/brannt/skypilot/internal/events"
	"github.com/brannt/skypilot/internal/logger"
	"github.com/brannt/skypilot/internal/metrics"
	"github.com/brannt/skypilot/internal/provisioner"
	"github.com/brannt/skypilot/internal/replicas"
	"github.com/brannt/skypilot/pkg/models"
)

type PipelineConfig struct {
	ServiceName    string
	Frequency      time.Duration
	Autoscaler     autoscaler.Autoscaler
	Aggregator     aggregator.Aggregator
	Tracker        *replicas.Tracker
	Provisioner    provisioner.Provisioner
	EventPublisher *events.Publisher
}

// Pipeline runs the evaluation loop for a single service: drain recorded
// request timestamps, feed them to the autoscaler, evaluate against the
// current fleet, and execute the resulting decisions.
type Pipeline struct {
	config  PipelineConfig
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	mu      sync.Mutex
}

func NewPipeline(cfg PipelineConfig) *Pipeline {
	if cfg.Frequency == 0 {
		cfg.Frequency = 20 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Pipeline{
		config: cfg,
		ctx:    ctx,
		cancel: cancel,
	}
}

func (p *Pipeline) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return nil
	}

	p.running = true
	p.wg.Add(1)
	go p.run()

	logger.WithService(p.config.ServiceName).Info("Pipeline started")
	return nil
}

func (p *Pipeline) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.mu.Unlock()

	p.cancel()
	p.wg.Wait()

	logger.WithService(p.config.ServiceName).Info("Pipeline stopped")
}

func (p *Pipeline) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *Pipeline) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.Frequency)
	defer ticker.Stop()

	// Run immediately on start
	p.runCycle()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.runCycle()
		}
	}
}

func (p *Pipeline) runCycle() {
	ctx, cancel := context.WithTimeout(p.ctx, p.config.Frequency)
	defer cancel()

	serviceName := p.config.ServiceName
	started := time.Now()

	// Step 1: Fold the freshly reported request timestamps into the
	// autoscaler's sliding window.
	batch := p.config.Aggregator.Drain(serviceName)
	p.config.Autoscaler.CollectRequestInformation(autoscaler.RequestInformation{
		Timestamps: batch,
	})
	if len(batch) > 0 {
		p.config.EventPublisher.RequestsRecorded(serviceName, len(batch))
		metrics.Get().AddRequests(serviceName, len(batch))
	}

	// Step 2: Evaluate against a snapshot of the fleet. An evaluation
	// error aborts the cycle before any decision executes.
	roster := p.config.Tracker.List(serviceName)
	decisions, err := p.config.Autoscaler.EvaluateScaling(roster)

	metrics.Get().IncEvaluations(serviceName)
	if err != nil {
		logger.WithService(serviceName).Errorf("Evaluation failed: %v", err)
		p.config.EventPublisher.EvaluationFailed(serviceName, err)
		metrics.Get().IncEvaluationErrors(serviceName)
		return
	}

	target := p.config.Autoscaler.TargetNumReplicas()
	observedQPS := p.config.Autoscaler.ObservedQPS()
	alive := len(p.config.Tracker.Alive(serviceName))

	metrics.Get().SetTargetReplicas(serviceName, target)
	metrics.Get().SetAliveReplicas(serviceName, alive)
	metrics.Get().SetObservedQPS(serviceName, observedQPS)

	p.config.EventPublisher.EvaluationDone(serviceName, events.EvaluationSummary{
		TargetReplicas: target,
		AliveReplicas:  alive,
		ObservedQPS:    observedQPS,
		NumDecisions:   len(decisions),
	})

	// Step 3: Execute decisions.
	for _, decision := range decisions {
		p.execute(ctx, decision, target, alive, observedQPS)
	}

	// Retired replicas have been accounted for; drop them from the roster.
	p.config.Tracker.PruneRetired(serviceName)

	metrics.Get().SetEvaluationLatency(serviceName, time.Since(started))
}

func (p *Pipeline) execute(ctx context.Context, decision models.ScalingDecision, target, alive int, observedQPS float64) {
	serviceName := p.config.ServiceName
	status := models.DecisionStatusExecuted

	switch decision.Operator {
	case models.OperatorScaleUp:
		info, err := p.config.Provisioner.Launch(ctx, serviceName, decision.Override)
		if err != nil {
			logger.WithService(serviceName).Errorf("Launch failed: %v", err)
			p.config.EventPublisher.Error(serviceName, "Replica launch failed", err)
			metrics.Get().IncLaunchFailures(serviceName)
			status = models.DecisionStatusFailed
		} else {
			decision.ReplicaID = info.ReplicaID
			p.config.EventPublisher.ReplicaLaunched(&info)
		}

	case models.OperatorScaleDown:
		if err := p.config.Provisioner.Terminate(ctx, serviceName, decision.ReplicaID); err != nil {
			logger.WithReplica(serviceName, decision.ReplicaID).Errorf("Terminate failed: %v", err)
			p.config.EventPublisher.Error(serviceName, "Replica termination failed", err)
			status = models.DecisionStatusFailed
		} else if info, ok := p.config.Tracker.Get(serviceName, decision.ReplicaID); ok {
			p.config.EventPublisher.ReplicaTerminated(&info)
		}
	}

	record := models.NewDecisionRecord(serviceName, decision, target, alive, observedQPS, status)
	p.config.EventPublisher.DecisionMade(serviceName, record)
	metrics.Get().IncDecision(serviceName, string(decision.Operator))
}
