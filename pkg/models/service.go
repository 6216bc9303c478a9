package models

import (
	"encoding/json"
	"time"
)

type ServiceStatus string

const (
	ServiceStatusActive ServiceStatus = "active"
	ServiceStatusPaused ServiceStatus = "paused"
	ServiceStatusError  ServiceStatus = "error"
)

// ServicePolicy holds the autoscaling knobs attached to a service.
// MaxReplicas == 0 pins the fleet to MinReplicas. TargetQPSPerReplica == nil
// disables target recomputation entirely.
type ServicePolicy struct {
	MinReplicas         int      `json:"min_replicas"`
	MaxReplicas         int      `json:"max_replicas,omitempty"`
	TargetQPSPerReplica *float64 `json:"target_qps_per_replica,omitempty"`
	UseSpot             bool     `json:"use_spot,omitempty"`
}

type Service struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Policy        ServicePolicy `json:"policy"`
	Status        ServiceStatus `json:"status"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
	LastScaleTime *time.Time    `json:"last_scale_time,omitempty"`
}

func NewService(name string, policy ServicePolicy) *Service {
	now := time.Now()
	return &Service{
		ID:        NewUUID(),
		Name:      name,
		Policy:    policy,
		Status:    ServiceStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *Service) IsActive() bool {
	return s.Status == ServiceStatusActive
}

func (s *Service) PolicyJSON() ([]byte, error) {
	return json.Marshal(s.Policy)
}

func (s *Service) ParsePolicy(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, &s.Policy)
}
