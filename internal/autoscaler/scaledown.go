package autoscaler

import "github.com/brannt/skypilot/pkg/models"

// replicaIDsToScaleDown picks at most limit replicas to terminate. It walks
// the status preference order first, then falls back to any alive replica
// whose status the order does not name, in roster order. Callers pass an
// id-sorted roster so the result is deterministic.
func replicaIDsToScaleDown(alive []models.ReplicaInfo, order []models.ReplicaStatus, limit int) []int {
	if limit <= 0 {
		return nil
	}

	ids := make([]int, 0, limit)
	listed := make(map[models.ReplicaStatus]bool, len(order))

	for _, status := range order {
		listed[status] = true
		for _, info := range alive {
			if info.Status != status {
				continue
			}
			if len(ids) >= limit {
				return ids
			}
			ids = append(ids, info.ReplicaID)
		}
	}

	for _, info := range alive {
		if listed[info.Status] {
			continue
		}
		if len(ids) >= limit {
			return ids
		}
		ids = append(ids, info.ReplicaID)
	}

	return ids
}
