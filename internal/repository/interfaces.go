package repository

import (
	"time"

	"go-image-grader/internal/session"
)

// SessionRepository defines the interface for session lookup and lifetime
type SessionRepository interface {
	// Get returns the session with the given id
	Get(id string) (*session.Holder, error)

	// GetOrCreate returns the session with the given id, or a new session
	// when id is unknown or malformed. created reports which happened.
	GetOrCreate(id string) (holder *session.Holder, created bool, err error)

	// Delete closes and removes a session
	Delete(id string) error

	// Prune closes sessions idle for longer than ttl and returns how many were removed
	Prune(ttl time.Duration) int

	// Len returns the number of live sessions
	Len() int
}

// HolderFactory builds the holder for a new session id
type HolderFactory func(id string) (*session.Holder, error)
