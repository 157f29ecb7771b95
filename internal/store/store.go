// Package store holds the authoritative map of tracked flows. It is the
// only mutable shared state in the engine; every mutation goes through its
// atomic primitives
package store

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lumenlabs/chainflow/pkg/api"
)

// Store is an in-memory, mutex-guarded map of flows keyed by ID. All
// accessors traffic in deep copies so callers can never alias internal
// state; Update provides read-modify-write atomicity so two concurrent
// evaluations of the same flow cannot race
type Store struct {
	flows map[api.FlowID]*api.Flow
	now   func() time.Time
	mu    sync.RWMutex
}

// Mutator transforms a flow inside an atomic update. It receives a private
// copy and may mutate it freely; returning an error aborts the update
type Mutator func(*api.Flow) (*api.Flow, error)

var (
	ErrFlowNotFound  = errors.New("flow not found")
	ErrDuplicateFlow = errors.New("flow already exists")
)

// New creates an empty flow store
func New() *Store {
	return NewWithClock(time.Now)
}

// NewWithClock creates an empty flow store using the provided clock for
// update stamping
func NewWithClock(now func() time.Time) *Store {
	return &Store{
		flows: map[api.FlowID]*api.Flow{},
		now:   now,
	}
}

// Create inserts a new flow. A duplicate ID is a programming error given
// the ID generation scheme, surfaced as ErrDuplicateFlow
func (s *Store) Create(flow *api.Flow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.flows[flow.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateFlow, flow.ID)
	}
	s.flows[flow.ID] = flow.Clone()
	return nil
}

// Get returns a copy of the flow with the given ID
func (s *Store) Get(id api.FlowID) (*api.Flow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	flow, ok := s.flows[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFlowNotFound, id)
	}
	return flow.Clone(), nil
}

// Update atomically applies the mutator to the current flow value and
// writes back the result, bumping UpdatedAt. When the mutator returns a
// value structurally equal to its input, nothing is written and UpdatedAt
// is left untouched, so spurious update storms cannot occur. The returned
// flow is the value now held by the store
func (s *Store) Update(id api.FlowID, fn Mutator) (*api.Flow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.flows[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFlowNotFound, id)
	}

	next, err := fn(current.Clone())
	if err != nil {
		return nil, err
	}
	if next.Equal(current) {
		return current.Clone(), nil
	}

	now := s.now()
	if next.UpdatedAt.Before(now) {
		next.UpdatedAt = now
	}
	s.flows[id] = next
	return next.Clone(), nil
}

// ListRunning returns copies of all flows with status running, used by the
// supervisor to snapshot a tick's work
func (s *Store) ListRunning() []*api.Flow {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var res []*api.Flow
	for _, flow := range s.flows {
		if flow.Status == api.FlowRunning {
			res = append(res, flow.Clone())
		}
	}
	return res
}

// List returns copies of all flows regardless of status
func (s *Store) List() []*api.Flow {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res := make([]*api.Flow, 0, len(s.flows))
	for _, flow := range s.flows {
		res = append(res, flow.Clone())
	}
	return res
}

// Remove purges a flow from the store
func (s *Store) Remove(id api.FlowID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.flows[id]; !ok {
		return fmt.Errorf("%w: %s", ErrFlowNotFound, id)
	}
	delete(s.flows, id)
	return nil
}

// Len returns the number of flows currently held
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.flows)
}

// Restore replaces the store's contents with the given flows, used when
// reloading a persisted snapshot at startup
func (s *Store) Restore(flows []*api.Flow) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.flows = make(map[api.FlowID]*api.Flow, len(flows))
	for _, flow := range flows {
		s.flows[flow.ID] = flow.Clone()
	}
}
