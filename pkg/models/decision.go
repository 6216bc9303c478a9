package models

type DecisionOperator string

const (
	OperatorScaleUp   DecisionOperator = "SCALE_UP"
	OperatorScaleDown DecisionOperator = "SCALE_DOWN"
)

// ResourceOverride is the key/value resource configuration a ScaleUp decision
// carries for the launch collaborator, e.g. the pricing mode of the new
// replica.
type ResourceOverride map[string]interface{}

func SpotOverride() ResourceOverride {
	return ResourceOverride{"use_spot": true, "spot_recovery": nil}
}

func OnDemandOverride() ResourceOverride {
	return ResourceOverride{"use_spot": false, "spot_recovery": nil}
}

func OverrideForBilling(useSpot bool) ResourceOverride {
	if useSpot {
		return SpotOverride()
	}
	return OnDemandOverride()
}

// ScalingDecision is one instruction for the replica manager.
//
//	Operator    | Target meaning
//	SCALE_UP    | Override to launch a replica with
//	SCALE_DOWN  | ReplicaID to terminate
//
// Decisions are produced fresh each evaluation cycle and never mutated after
// creation.
type ScalingDecision struct {
	Operator  DecisionOperator `json:"operator"`
	Override  ResourceOverride `json:"override,omitempty"`
	ReplicaID int              `json:"replica_id,omitempty"`
}

func NewScaleUpDecision(override ResourceOverride) ScalingDecision {
	return ScalingDecision{Operator: OperatorScaleUp, Override: override}
}

func NewScaleDownDecision(replicaID int) ScalingDecision {
	return ScalingDecision{Operator: OperatorScaleDown, ReplicaID: replicaID}
}
