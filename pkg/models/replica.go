package models

import "time"

type ReplicaStatus string

const (
	ReplicaStatusPending      ReplicaStatus = "PENDING"
	ReplicaStatusProvisioning ReplicaStatus = "PROVISIONING"
	ReplicaStatusStarting     ReplicaStatus = "STARTING"
	ReplicaStatusNotReady     ReplicaStatus = "NOT_READY"
	ReplicaStatusReady        ReplicaStatus = "READY"
	ReplicaStatusShuttingDown ReplicaStatus = "SHUTTING_DOWN"
	ReplicaStatusFailed       ReplicaStatus = "FAILED"
	ReplicaStatusPreempted    ReplicaStatus = "PREEMPTED"
)

// IsAlive reports whether a replica in this status still counts toward the
// fleet: it either serves traffic already or is expected to soon.
func (s ReplicaStatus) IsAlive() bool {
	switch s {
	case ReplicaStatusPending, ReplicaStatusProvisioning,
		ReplicaStatusStarting, ReplicaStatusNotReady, ReplicaStatusReady:
		return true
	default:
		return false
	}
}

func (s ReplicaStatus) IsTerminal() bool {
	switch s {
	case ReplicaStatusShuttingDown, ReplicaStatusFailed, ReplicaStatusPreempted:
		return true
	default:
		return false
	}
}

// ScaleDownDecisionOrder is the preference order for terminating replicas:
// the further a replica is from serving traffic, the earlier it goes.
func ScaleDownDecisionOrder() []ReplicaStatus {
	return []ReplicaStatus{
		ReplicaStatusPending,
		ReplicaStatusProvisioning,
		ReplicaStatusStarting,
		ReplicaStatusNotReady,
		ReplicaStatusReady,
	}
}

// ReplicaInfo is a point-in-time record of one replica. The autoscaler treats
// it as read-only; ownership stays with the replica tracker.
type ReplicaInfo struct {
	ReplicaID   int           `json:"replica_id"`
	ServiceName string        `json:"service_name"`
	Status      ReplicaStatus `json:"status"`
	UseSpot     bool          `json:"use_spot"`
	CreatedAt   time.Time     `json:"created_at"`
	ReadyAt     *time.Time    `json:"ready_at,omitempty"`
	RetiredAt   *time.Time    `json:"retired_at,omitempty"`
}

func (r *ReplicaInfo) IsAlive() bool {
	return r.Status.IsAlive()
}
