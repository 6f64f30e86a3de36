package repository

import "errors"

var (
	// ErrSessionNotFound indicates no live session has the given id
	ErrSessionNotFound = errors.New("session not found")

	// ErrRepositoryClosed indicates the repository no longer accepts sessions
	ErrRepositoryClosed = errors.New("repository closed")
)
