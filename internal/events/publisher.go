package events

import (
	"fmt"

	"github.com/brannt/skypilot/pkg/models"
)

type Publisher struct {
	bus     *EventBus
	traceID string
}

func NewPublisher(bus *EventBus) *Publisher {
	return &Publisher{bus: bus}
}

func (p *Publisher) WithTraceID(traceID string) *Publisher {
	return &Publisher{
		bus:     p.bus,
		traceID: traceID,
	}
}

func (p *Publisher) publish(event *models.Event) {
	if p.traceID != "" {
		event.TraceID = p.traceID
	}
	p.bus.Publish(event)
}

func (p *Publisher) RequestsRecorded(serviceName string, count int) {
	msg := fmt.Sprintf("Recorded %d request timestamps", count)
	event := models.NewEvent(models.EventTypeRequestsRecorded, serviceName, msg).
		WithData(map[string]interface{}{"count": count})
	p.publish(event)
}

// EvaluationSummary describes one completed evaluation cycle.
type EvaluationSummary struct {
	TargetReplicas int     `json:"target_replicas"`
	AliveReplicas  int     `json:"alive_replicas"`
	ObservedQPS    float64 `json:"observed_qps"`
	NumDecisions   int     `json:"num_decisions"`
}

func (p *Publisher) EvaluationDone(serviceName string, summary EvaluationSummary) {
	msg := fmt.Sprintf("Evaluation produced %d decisions", summary.NumDecisions)
	event := models.NewEvent(models.EventTypeEvaluationDone, serviceName, msg).
		WithData(summary)
	p.publish(event)
}

func (p *Publisher) EvaluationFailed(serviceName string, err error) {
	event := models.NewEvent(models.EventTypeEvaluationFailed, serviceName, "Evaluation failed").
		WithSeverity(models.SeverityCritical).
		WithData(map[string]interface{}{"error": err.Error()})
	p.publish(event)
}

func (p *Publisher) DecisionMade(serviceName string, record *models.DecisionRecord) {
	msg := "Scaling decision: " + string(record.Operator)
	event := models.NewEvent(models.EventTypeDecisionMade, serviceName, msg).
		WithData(record)
	if record.Status == models.DecisionStatusFailed {
		event.WithSeverity(models.SeverityWarning)
	}
	p.publish(event)
}

func (p *Publisher) ReplicaLaunched(info *models.ReplicaInfo) {
	event := models.NewEvent(models.EventTypeReplicaLaunched, info.ServiceName, "Replica launched").
		WithData(info)
	p.publish(event)
}

func (p *Publisher) ReplicaTerminated(info *models.ReplicaInfo) {
	event := models.NewEvent(models.EventTypeReplicaTerminated, info.ServiceName, "Replica terminated").
		WithData(info)
	p.publish(event)
}

func (p *Publisher) ReplicaStatusChanged(info *models.ReplicaInfo, oldStatus models.ReplicaStatus) {
	msg := fmt.Sprintf("Replica %d: %s -> %s", info.ReplicaID, oldStatus, info.Status)
	event := models.NewEvent(models.EventTypeReplicaStatus, info.ServiceName, msg).
		WithData(info)
	if info.Status == models.ReplicaStatusFailed || info.Status == models.ReplicaStatusPreempted {
		event.WithSeverity(models.SeverityWarning)
	}
	p.publish(event)
}

func (p *Publisher) Alert(serviceName string, severity models.EventSeverity, message string, data interface{}) {
	event := models.NewEvent(models.EventTypeAlert, serviceName, message).
		WithSeverity(severity).
		WithData(data)
	p.publish(event)
}

func (p *Publisher) Error(serviceName string, message string, err error) {
	event := models.NewEvent(models.EventTypeError, serviceName, message).
		WithSeverity(models.SeverityCritical).
		WithData(map[string]interface{}{
			"error": err.Error(),
		})
	p.publish(event)
}
