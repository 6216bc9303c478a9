package provisioner

import (
	"context"
	"errors"

	"github.com/brannt/skypilot/pkg/models"
)

var (
	ErrLaunchFailed    = errors.New("replica launch failed")
	ErrTerminateFailed = errors.New("replica termination failed")
	ErrReplicaNotFound = errors.New("replica not found")
)

// Provisioner executes scaling decisions against actual compute. The
// autoscaler core never calls this directly; the evaluation loop does, and
// failures surface as events rather than retries since the next cycle
// recomputes from the then-current roster.
type Provisioner interface {
	// Launch provisions one replica with the given resource override and
	// returns its roster record.
	Launch(ctx context.Context, serviceName string, override models.ResourceOverride) (models.ReplicaInfo, error)

	// Terminate retires a specific replica.
	Terminate(ctx context.Context, serviceName string, replicaID int) error

	// Close releases resources
	Close() error
}
