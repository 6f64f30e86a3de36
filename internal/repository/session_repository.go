package repository

import (
	"sync"
	"time"

	"go-image-grader/internal/session"

	"github.com/google/uuid"
)

type entry struct {
	holder   *session.Holder
	lastSeen time.Time
}

// MemorySessionRepository keeps sessions in process memory. Nothing
// survives a restart.
type MemorySessionRepository struct {
	mu       sync.Mutex
	sessions map[string]*entry
	factory  HolderFactory
	closed   bool
	now      func() time.Time
}

// NewMemorySessionRepository creates a new in-memory session repository
func NewMemorySessionRepository(factory HolderFactory) *MemorySessionRepository {
	return &MemorySessionRepository{
		sessions: make(map[string]*entry),
		factory:  factory,
		now:      time.Now,
	}
}

// Get returns the session with the given id
func (r *MemorySessionRepository) Get(id string) (*session.Holder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	e.lastSeen = r.now()
	return e.holder, nil
}

// GetOrCreate returns the session with the given id or creates one. Ids
// that are not UUIDs are never adopted; a fresh id is issued instead.
func (r *MemorySessionRepository) GetOrCreate(id string) (*session.Holder, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, false, ErrRepositoryClosed
	}

	if e, ok := r.sessions[id]; ok {
		e.lastSeen = r.now()
		return e.holder, false, nil
	}

	if _, err := uuid.Parse(id); err != nil {
		id = uuid.New().String()
	}

	holder, err := r.factory(id)
	if err != nil {
		return nil, false, err
	}
	r.sessions[id] = &entry{holder: holder, lastSeen: r.now()}
	return holder, true, nil
}

// Delete closes and removes a session
func (r *MemorySessionRepository) Delete(id string) error {
	r.mu.Lock()
	e, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	e.holder.Close()
	return nil
}

// Prune closes sessions idle for longer than ttl. Sessions with a request
// in flight are kept.
func (r *MemorySessionRepository) Prune(ttl time.Duration) int {
	cutoff := r.now().Add(-ttl)

	r.mu.Lock()
	var stale []*session.Holder
	for id, e := range r.sessions {
		if e.lastSeen.Before(cutoff) && e.holder.State().Status != session.StatusLoading {
			stale = append(stale, e.holder)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, h := range stale {
		h.Close()
	}
	return len(stale)
}

// Len returns the number of live sessions
func (r *MemorySessionRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Close closes every session and refuses new ones
func (r *MemorySessionRepository) Close() {
	r.mu.Lock()
	r.closed = true
	sessions := r.sessions
	r.sessions = make(map[string]*entry)
	r.mu.Unlock()

	for _, e := range sessions {
		e.holder.Close()
	}
}
