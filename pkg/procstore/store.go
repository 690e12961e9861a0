// Package procstore implements the Process Store: the sole owner of
// every live types.ProcessRecord, indexed by ProcessID, plus the LRU
// sequence the Update Driver's cache-adj ladder walks. The Adjuster
// never reorders the LRU list; only a collaborator (via Touch) does.
package procstore

import (
	"container/list"
	"sync"

	"github.com/khryptorgraphics/procadj/pkg/types"
)

// Store owns all ProcessRecords, using the same map+sync.RWMutex
// bookkeeping pattern as the rest of this module, with an added
// container/list LRU sequence — unlike pkg/priorityindex, nothing here
// requires zero-allocation moves, so the stdlib list is the right tool.
type Store struct {
	mu sync.RWMutex

	procs   map[types.ProcessID]*types.ProcessRecord
	lru     *list.List // front = most recently used
	lruElem map[types.ProcessID]*list.Element
}

// New creates an empty Process Store.
func New() *Store {
	return &Store{
		procs:   make(map[types.ProcessID]*types.ProcessRecord),
		lru:     list.New(),
		lruElem: make(map[types.ProcessID]*list.Element),
	}
}

// Insert attaches a newly started process to the store, at the front of
// the LRU sequence. Returns false if pid is already present.
func (s *Store) Insert(p *types.ProcessRecord) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.procs[p.PID]; exists {
		return false
	}
	s.procs[p.PID] = p
	s.lruElem[p.PID] = s.lru.PushFront(p.PID)
	return true
}

// Remove detaches a process on death: unlinked from the LRU sequence,
// returned so the caller (Update Driver / State Controller) can sever
// its outgoing bindings and unlink it from both priority indices.
func (s *Store) Remove(pid types.ProcessID) (*types.ProcessRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.procs[pid]
	if !ok {
		return nil, false
	}
	delete(s.procs, pid)
	if elem, ok := s.lruElem[pid]; ok {
		s.lru.Remove(elem)
		delete(s.lruElem, pid)
	}
	return p, true
}

// Get resolves a ProcessID to its record. Callers must treat a stale
// ProcessID (already removed) as a skip-this-edge condition, never an
// error.
func (s *Store) Get(pid types.ProcessID) (*types.ProcessRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.procs[pid]
	return p, ok
}

// Len reports the number of live processes.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.procs)
}

// IterLRU returns every live ProcessID, most-recently-used first. The
// snapshot is copied out under the read lock so callers can walk it
// without holding the store lock (the Update Driver pass itself holds
// the higher-level service lock S for the duration anyway).
func (s *Store) IterLRU() []types.ProcessID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.ProcessID, 0, s.lru.Len())
	for e := s.lru.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.(types.ProcessID))
	}
	return out
}

// Touch moves pid to the front (most-recently-used) of the LRU
// sequence. Exposed for an external LRU-maintaining collaborator (e.g.
// one reacting to process activity) — the Adjuster itself never calls
// this.
func (s *Store) Touch(pid types.ProcessID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	elem, ok := s.lruElem[pid]
	if !ok {
		return
	}
	s.lru.MoveToFront(elem)
}

// All returns every live ProcessRecord in unspecified order, for the
// Update Driver's full-pass walk when LRU order isn't the relevant
// traversal order (e.g. uid-record aggregation in the apply step).
func (s *Store) All() []*types.ProcessRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*types.ProcessRecord, 0, len(s.procs))
	for _, p := range s.procs {
		out = append(out, p)
	}
	return out
}
