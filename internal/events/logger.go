package events

import (
	"context"

	"github.com/brannt/skypilot/internal/logger"
	"github.com/brannt/skypilot/pkg/database"
	"github.com/brannt/skypilot/pkg/database/queries"
	"github.com/brannt/skypilot/pkg/models"
)

// EventLogger drains the bus, mirrors every event into the structured log and
// persists decision and replica records.
type EventLogger struct {
	db        *database.DB
	replicas  *queries.ReplicaRepository
	eventChan <-chan *models.Event
	ctx       context.Context
	cancel    context.CancelFunc
}

func NewEventLogger(db *database.DB, eventChan <-chan *models.Event) *EventLogger {
	ctx, cancel := context.WithCancel(context.Background())
	l := &EventLogger{
		db:        db,
		eventChan: eventChan,
		ctx:       ctx,
		cancel:    cancel,
	}
	if db != nil {
		l.replicas = queries.NewReplicaRepository(db.DB)
	}
	return l
}

func (l *EventLogger) Start() {
	go l.run()
}

func (l *EventLogger) Stop() {
	l.cancel()
}

func (l *EventLogger) run() {
	for {
		select {
		case <-l.ctx.Done():
			return
		case event, ok := <-l.eventChan:
			if !ok {
				return
			}
			l.processEvent(event)
		}
	}
}

func (l *EventLogger) processEvent(event *models.Event) {
	entry := logger.WithFields(map[string]interface{}{
		"event_type":   event.Type,
		"service_name": event.ServiceName,
		"severity":     event.Severity,
		"trace_id":     event.TraceID,
	})

	switch event.Severity {
	case models.SeverityCritical:
		entry.Error(event.Message)
	case models.SeverityWarning:
		entry.Warn(event.Message)
	default:
		entry.Info(event.Message)
	}

	switch event.Type {
	case models.EventTypeDecisionMade:
		l.persistDecision(event)
	case models.EventTypeEvaluationDone:
		l.persistRateSample(event)
	case models.EventTypeReplicaLaunched, models.EventTypeReplicaTerminated, models.EventTypeReplicaStatus:
		l.persistReplica(event)
	}
}

func (l *EventLogger) persistReplica(event *models.Event) {
	if l.replicas == nil {
		return
	}
	info, ok := event.Data.(*models.ReplicaInfo)
	if !ok {
		return
	}

	if err := l.replicas.Upsert(l.ctx, info); err != nil {
		logger.Errorf("Failed to persist replica %d: %v", info.ReplicaID, err)
	}
}

func (l *EventLogger) persistRateSample(event *models.Event) {
	if l.db == nil {
		return
	}
	summary, ok := event.Data.(EvaluationSummary)
	if !ok {
		return
	}

	query := `
		INSERT INTO rate_samples
			(service_name, timestamp, observed_qps, target_replicas, alive_replicas)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := l.db.ExecContext(l.ctx, query,
		event.ServiceName,
		event.Timestamp,
		summary.ObservedQPS,
		summary.TargetReplicas,
		summary.AliveReplicas,
	)

	if err != nil {
		logger.Errorf("Failed to persist rate sample: %v", err)
	}
}

func (l *EventLogger) persistDecision(event *models.Event) {
	if l.db == nil {
		return
	}
	record, ok := event.Data.(*models.DecisionRecord)
	if !ok {
		return
	}

	query := `
		INSERT INTO scaling_decisions
			(service_name, timestamp, operator, replica_id, target_replicas, alive_replicas, observed_qps, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := l.db.ExecContext(l.ctx, query,
		record.ServiceName,
		record.Timestamp,
		record.Operator,
		record.ReplicaID,
		record.TargetReplicas,
		record.AliveReplicas,
		record.ObservedQPS,
		record.Status,
	)

	if err != nil {
		logger.Errorf("Failed to persist scaling decision: %v", err)
	}
}
