package models

import "time"

type EventType string

const (
	EventTypeRequestsRecorded  EventType = "requests_recorded"
	EventTypeEvaluationDone    EventType = "evaluation_done"
	EventTypeEvaluationFailed  EventType = "evaluation_failed"
	EventTypeDecisionMade      EventType = "decision_made"
	EventTypeReplicaLaunched   EventType = "replica_launched"
	EventTypeReplicaTerminated EventType = "replica_terminated"
	EventTypeReplicaStatus     EventType = "replica_status_changed"
	EventTypeAlert             EventType = "alert"
	EventTypeError             EventType = "error"
)

type EventSeverity string

const (
	SeverityInfo     EventSeverity = "info"
	SeverityWarning  EventSeverity = "warning"
	SeverityCritical EventSeverity = "critical"
)

// Event represents an internal system event
type Event struct {
	ID          string        `json:"id"`
	Type        EventType     `json:"type"`
	Severity    EventSeverity `json:"severity"`
	ServiceName string        `json:"service_name,omitempty"`
	Timestamp   time.Time     `json:"timestamp"`
	Message     string        `json:"message"`
	Data        interface{}   `json:"data,omitempty"`
	TraceID     string        `json:"trace_id,omitempty"`
}

func NewEvent(eventType EventType, serviceName, message string) *Event {
	return &Event{
		ID:          NewUUID(),
		Type:        eventType,
		Severity:    SeverityInfo,
		ServiceName: serviceName,
		Timestamp:   time.Now(),
		Message:     message,
	}
}

func (e *Event) WithSeverity(severity EventSeverity) *Event {
	e.Severity = severity
	return e
}

func (e *Event) WithData(data interface{}) *Event {
	e.Data = data
	return e
}

func (e *Event) WithTraceID(traceID string) *Event {
	e.TraceID = traceID
	return e
}
