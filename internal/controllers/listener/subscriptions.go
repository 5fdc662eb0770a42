package listener

import (
	"fmt"
	"sort"
	"sync"

	"github.com/gofrs/uuid"
	"go.uber.org/zap"

	"github.com/agenciaspace/clinione-sub001/pkg/config"
)

// Subscriptions decides which clinics get change events turned into webhooks.
type Subscriptions interface {
	Activate(clinicID uuid.UUID)
	Deactivate(clinicID uuid.UUID)
	Active(clinicID uuid.UUID) bool
	Snapshot() SubscriptionState
}

type SubscriptionState struct {
	All         bool        `json:"all"`
	Active      []uuid.UUID `json:"active"`
	Deactivated []uuid.UUID `json:"deactivated,omitempty"`
}

// SubscriptionManager holds the activated clinics. With all set, every clinic
// is active unless it was deactivated explicitly.
type SubscriptionManager struct {
	mu          sync.RWMutex
	all         bool
	active      map[uuid.UUID]struct{}
	deactivated map[uuid.UUID]struct{}
	logger      *zap.SugaredLogger
}

func NewSubscriptionManager(conf config.Subscriptions, logger *zap.SugaredLogger) (*SubscriptionManager, error) {
	sm := &SubscriptionManager{
		all:         conf.All,
		active:      make(map[uuid.UUID]struct{}, len(conf.Clinics)),
		deactivated: make(map[uuid.UUID]struct{}),
		logger:      logger,
	}
	for _, raw := range conf.Clinics {
		id, err := uuid.FromString(raw)
		if err != nil {
			return nil, fmt.Errorf("subscriptions.clinics: %q: %w", raw, err)
		}
		sm.active[id] = struct{}{}
	}

	logger.Infof("subscriptions: all=%t, %d clinics activated", sm.all, len(sm.active))
	return sm, nil
}

func (sm *SubscriptionManager) Activate(clinicID uuid.UUID) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	delete(sm.deactivated, clinicID)
	sm.active[clinicID] = struct{}{}
	sm.logger.Infof("[clinic: %s] subscription activated", clinicID)
}

func (sm *SubscriptionManager) Deactivate(clinicID uuid.UUID) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	delete(sm.active, clinicID)
	sm.deactivated[clinicID] = struct{}{}
	sm.logger.Infof("[clinic: %s] subscription deactivated", clinicID)
}

func (sm *SubscriptionManager) Active(clinicID uuid.UUID) bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	if _, ok := sm.deactivated[clinicID]; ok {
		return false
	}
	if sm.all {
		return true
	}
	_, ok := sm.active[clinicID]
	return ok
}

func (sm *SubscriptionManager) Snapshot() SubscriptionState {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return SubscriptionState{
		All:         sm.all,
		Active:      sortedIDs(sm.active),
		Deactivated: sortedIDs(sm.deactivated),
	}
}

func sortedIDs(set map[uuid.UUID]struct{}) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}
