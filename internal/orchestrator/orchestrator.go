package orchestrator

import (
	"fmt"
	"sync"
	"time"

	"github.com/brannt/skypilot/internal/aggregator"
	"github.com/brannt/skypilot/internal/autoscaler"
	"github.com/brannt/skypilot/internal/events"
	"github.com/brannt/skypilot/internal/logger"
	"github.com/brannt/skypilot/internal/provisioner"
	"github.com/brannt/skypilot/internal/replicas"
	"github.com/brannt/skypilot/pkg/config"
	"github.com/brannt/skypilot/pkg/database"
	"github.com/brannt/skypilot/pkg/models"
)

// Orchestrator owns one evaluation pipeline per managed service and the
// shared infrastructure behind them: the timestamp aggregator, the replica
// tracker, the provisioner and the event bus.
type Orchestrator struct {
	config      *config.Config
	db          *database.DB
	eventBus    *events.EventBus
	eventLogger *events.EventLogger
	aggregator  aggregator.Aggregator
	tracker     *replicas.Tracker
	provisioner provisioner.Provisioner
	pipelines   map[string]*Pipeline
	mu          sync.RWMutex
}

func New(cfg *config.Config, db *database.DB) *Orchestrator {
	eventBus := events.NewEventBus(cfg.Events.BufferSize)

	// Subscribe event logger to all events
	allEvents := eventBus.SubscribeAll()
	eventLogger := events.NewEventLogger(db, allEvents)

	publisher := events.NewPublisher(eventBus)
	tracker := replicas.NewTracker(replicas.Callbacks{
		OnStatusChanged: func(info *models.ReplicaInfo, oldStatus, newStatus models.ReplicaStatus) {
			publisher.ReplicaStatusChanged(info, oldStatus)
		},
	})

	prov := provisioner.NewSimProvisioner(provisioner.SimConfig{
		ProvisionDelay: cfg.Provisioner.ProvisionDelay,
		StartupDelay:   cfg.Provisioner.StartupDelay,
		FailureRate:    cfg.Provisioner.FailureRate,
		PreemptionRate: cfg.Provisioner.PreemptionRate,
	}, tracker)

	return &Orchestrator{
		config:      cfg,
		db:          db,
		eventBus:    eventBus,
		eventLogger: eventLogger,
		aggregator:  aggregator.NewMemoryAggregator(),
		tracker:     tracker,
		provisioner: prov,
		pipelines:   make(map[string]*Pipeline),
	}
}

func (o *Orchestrator) Start() error {
	logger.Info("Orchestrator starting")
	o.eventLogger.Start()
	return nil
}

func (o *Orchestrator) Stop() {
	logger.Info("Orchestrator stopping")

	// Stop all pipelines
	o.mu.Lock()
	for serviceName, pipeline := range o.pipelines {
		logger.Infof("Stopping pipeline for service %s", serviceName)
		pipeline.Stop()
	}
	o.mu.Unlock()

	// Stop provisioner timers
	if err := o.provisioner.Close(); err != nil {
		logger.Errorf("Provisioner close failed: %v", err)
	}

	// Stop event logger
	o.eventLogger.Stop()

	// Close event bus
	o.eventBus.Close()

	logger.Info("Orchestrator stopped")
}

// StartService builds an autoscaler for the service's policy and starts its
// pipeline. Policy fields left at their zero value fall back to the
// configured defaults.
func (o *Orchestrator) StartService(service *models.Service) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, exists := o.pipelines[service.Name]; exists {
		return fmt.Errorf("pipeline already exists for service %s", service.Name)
	}

	scaler, err := autoscaler.NewRequestRateAutoscaler(o.autoscalerConfig(service))
	if err != nil {
		return fmt.Errorf("building autoscaler for service %s: %w", service.Name, err)
	}

	pipeline := NewPipeline(PipelineConfig{
		ServiceName:    service.Name,
		Frequency:      o.config.Autoscaler.Frequency,
		Autoscaler:     scaler,
		Aggregator:     o.aggregator,
		Tracker:        o.tracker,
		Provisioner:    o.provisioner,
		EventPublisher: events.NewPublisher(o.eventBus),
	})

	if err := pipeline.Start(); err != nil {
		return fmt.Errorf("failed to start pipeline: %w", err)
	}

	o.pipelines[service.Name] = pipeline
	logger.WithService(service.Name).Info("Service pipeline started")

	return nil
}

func (o *Orchestrator) StopService(serviceName string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	pipeline, exists := o.pipelines[serviceName]
	if !exists {
		return fmt.Errorf("no pipeline found for service %s", serviceName)
	}

	pipeline.Stop()
	delete(o.pipelines, serviceName)
	logger.WithService(serviceName).Info("Service pipeline stopped")

	return nil
}

func (o *Orchestrator) GetServiceStatus(serviceName string) (bool, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	pipeline, exists := o.pipelines[serviceName]
	if !exists {
		return false, fmt.Errorf("no pipeline found for service %s", serviceName)
	}

	return pipeline.IsRunning(), nil
}

func (o *Orchestrator) ListRunningServices() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()

	services := make([]string, 0, len(o.pipelines))
	for serviceName, pipeline := range o.pipelines {
		if pipeline.IsRunning() {
			services = append(services, serviceName)
		}
	}
	return services
}

// RecordRequests feeds reported request timestamps into the service's next
// evaluation cycle.
func (o *Orchestrator) RecordRequests(serviceName string, timestamps []float64) error {
	o.mu.RLock()
	_, exists := o.pipelines[serviceName]
	o.mu.RUnlock()

	if !exists {
		return fmt.Errorf("no pipeline found for service %s", serviceName)
	}

	o.aggregator.Record(serviceName, timestamps)
	return nil
}

func (o *Orchestrator) ReplicaRoster(serviceName string) []models.ReplicaInfo {
	return o.tracker.List(serviceName)
}

func (o *Orchestrator) FleetCounts(serviceName string) replicas.FleetCounts {
	return o.tracker.Counts(serviceName)
}

func (o *Orchestrator) SubscribeEvents(eventType models.EventType) <-chan *models.Event {
	return o.eventBus.Subscribe(eventType)
}

func (o *Orchestrator) SubscribeAllEvents() <-chan *models.Event {
	return o.eventBus.SubscribeAll()
}

func (o *Orchestrator) autoscalerConfig(service *models.Service) autoscaler.Config {
	defaults := o.config.Autoscaler
	policy := service.Policy

	cfg := autoscaler.Config{
		ServiceName:         service.Name,
		MinReplicas:         policy.MinReplicas,
		MaxReplicas:         policy.MaxReplicas,
		Frequency:           defaults.Frequency,
		WindowSize:          defaults.WindowSize,
		TargetQPSPerReplica: policy.TargetQPSPerReplica,
		UseSpot:             policy.UseSpot,
	}
	if cfg.MinReplicas == 0 {
		cfg.MinReplicas = defaults.DefaultMinReplicas
	}
	if cfg.TargetQPSPerReplica == nil && defaults.DefaultTargetQPSPerReplica > 0 {
		qps := defaults.DefaultTargetQPSPerReplica
		cfg.TargetQPSPerReplica = &qps
	}
	return cfg
}

// FrequencyHint is exposed for handlers that report the evaluation cadence.
func (o *Orchestrator) FrequencyHint() time.Duration {
	return o.config.Autoscaler.Frequency
}
