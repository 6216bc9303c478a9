package replicas

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/brannt/skypilot/internal/logger"
	"github.com/brannt/skypilot/pkg/models"
)

var ErrReplicaNotFound = errors.New("replica not found")

// Callbacks fire on replica lifecycle transitions. They run on their own
// goroutines so slow consumers cannot stall status updates.
type Callbacks struct {
	OnReplicaReady   func(info *models.ReplicaInfo)
	OnReplicaRetired func(info *models.ReplicaInfo)
	OnStatusChanged  func(info *models.ReplicaInfo, oldStatus, newStatus models.ReplicaStatus)
}

// Tracker is the authoritative in-memory roster of replicas per service.
// Replica ids are small integers assigned per service in launch order.
type Tracker struct {
	mu        sync.RWMutex
	fleets    map[string]map[int]*models.ReplicaInfo
	nextID    map[string]int
	callbacks Callbacks
}

func NewTracker(callbacks Callbacks) *Tracker {
	return &Tracker{
		fleets:    make(map[string]map[int]*models.ReplicaInfo),
		nextID:    make(map[string]int),
		callbacks: callbacks,
	}
}

// Register adds a new replica in PENDING state and returns a copy of its
// record.
func (t *Tracker) Register(serviceName string, useSpot bool) models.ReplicaInfo {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.fleets[serviceName] == nil {
		t.fleets[serviceName] = make(map[int]*models.ReplicaInfo)
		t.nextID[serviceName] = 1
	}

	id := t.nextID[serviceName]
	t.nextID[serviceName]++

	info := &models.ReplicaInfo{
		ReplicaID:   id,
		ServiceName: serviceName,
		Status:      models.ReplicaStatusPending,
		UseSpot:     useSpot,
		CreatedAt:   time.Now(),
	}
	t.fleets[serviceName][id] = info

	logger.WithReplica(serviceName, id).Infof("Replica registered (spot: %v)", useSpot)
	return *info
}

func (t *Tracker) UpdateStatus(serviceName string, replicaID int, newStatus models.ReplicaStatus) error {
	t.mu.Lock()

	info, ok := t.fleets[serviceName][replicaID]
	if !ok {
		t.mu.Unlock()
		return ErrReplicaNotFound
	}

	oldStatus := info.Status
	info.Status = newStatus

	now := time.Now()
	switch newStatus {
	case models.ReplicaStatusReady:
		info.ReadyAt = &now
	case models.ReplicaStatusShuttingDown, models.ReplicaStatusFailed, models.ReplicaStatusPreempted:
		info.RetiredAt = &now
	}

	snapshot := *info
	t.mu.Unlock()

	logger.WithReplica(serviceName, replicaID).Infof(
		"Replica status changed: %s -> %s", oldStatus, newStatus)

	if newStatus == models.ReplicaStatusReady && t.callbacks.OnReplicaReady != nil {
		go t.callbacks.OnReplicaReady(&snapshot)
	}
	if newStatus.IsTerminal() && t.callbacks.OnReplicaRetired != nil {
		go t.callbacks.OnReplicaRetired(&snapshot)
	}
	if t.callbacks.OnStatusChanged != nil {
		go t.callbacks.OnStatusChanged(&snapshot, oldStatus, newStatus)
	}
	return nil
}

func (t *Tracker) Get(serviceName string, replicaID int) (models.ReplicaInfo, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	info, ok := t.fleets[serviceName][replicaID]
	if !ok {
		return models.ReplicaInfo{}, false
	}
	return *info, true
}

// List returns copies of every tracked replica for a service, sorted by id so
// downstream consumers see a stable order.
func (t *Tracker) List(serviceName string) []models.ReplicaInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()

	fleet := t.fleets[serviceName]
	infos := make([]models.ReplicaInfo, 0, len(fleet))
	for _, info := range fleet {
		infos = append(infos, *info)
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].ReplicaID < infos[j].ReplicaID
	})
	return infos
}

func (t *Tracker) Alive(serviceName string) []models.ReplicaInfo {
	infos := t.List(serviceName)
	alive := infos[:0]
	for _, info := range infos {
		if info.IsAlive() {
			alive = append(alive, info)
		}
	}
	return alive
}

type FleetCounts struct {
	Total        int `json:"total"`
	Alive        int `json:"alive"`
	Ready        int `json:"ready"`
	Provisioning int `json:"provisioning"`
	Retired      int `json:"retired"`
}

func (t *Tracker) Counts(serviceName string) FleetCounts {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var counts FleetCounts
	for _, info := range t.fleets[serviceName] {
		counts.Total++
		switch {
		case info.Status == models.ReplicaStatusReady:
			counts.Ready++
			counts.Alive++
		case info.Status.IsTerminal():
			counts.Retired++
		default:
			counts.Provisioning++
			counts.Alive++
		}
	}
	return counts
}

// PruneRetired drops terminal replicas from the roster and returns how many
// were removed. Their history survives in the database, not here.
func (t *Tracker) PruneRetired(serviceName string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	var removed int
	for id, info := range t.fleets[serviceName] {
		if info.Status.IsTerminal() {
			delete(t.fleets[serviceName], id)
			removed++
		}
	}
	return removed
}
