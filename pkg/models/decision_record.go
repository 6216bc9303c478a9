package models

import "time"

type DecisionStatus string

const (
	DecisionStatusExecuted DecisionStatus = "executed"
	DecisionStatusFailed   DecisionStatus = "failed"
)

// DecisionRecord is the persisted form of one executed (or attempted)
// scaling decision, together with the evaluation context that produced it.
type DecisionRecord struct {
	ID             int              `json:"id"`
	ServiceName    string           `json:"service_name"`
	Timestamp      time.Time        `json:"timestamp"`
	Operator       DecisionOperator `json:"operator"`
	ReplicaID      *int             `json:"replica_id,omitempty"`
	TargetReplicas int              `json:"target_replicas"`
	AliveReplicas  int              `json:"alive_replicas"`
	ObservedQPS    float64          `json:"observed_qps"`
	Status         DecisionStatus   `json:"status"`
}

func NewDecisionRecord(serviceName string, decision ScalingDecision, target, alive int, observedQPS float64, status DecisionStatus) *DecisionRecord {
	rec := &DecisionRecord{
		ServiceName:    serviceName,
		Timestamp:      time.Now(),
		Operator:       decision.Operator,
		TargetReplicas: target,
		AliveReplicas:  alive,
		ObservedQPS:    observedQPS,
		Status:         status,
	}
	// Scale-ups carry a replica id only once the launch has been assigned one.
	if decision.ReplicaID != 0 {
		id := decision.ReplicaID
		rec.ReplicaID = &id
	}
	return rec
}
