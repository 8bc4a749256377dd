package store

import (
	"errors"
	"time"
)

// Subject is the person a schedule entry belongs to.
type Subject struct {
	ID   string
	Name string
}

// Config configures the SQLite store.
type Config struct {
	Path        string
	BusyTimeout time.Duration // 0 means default
}

var (
	// ErrRetrievalTimeout means a request/response round-trip exceeded the
	// wait ceiling. The current scheduler pass fails; nothing is retried
	// automatically.
	ErrRetrievalTimeout = errors.New("store retrieval timed out")

	// ErrNotFound is returned for lookups of unknown subjects or entries.
	ErrNotFound = errors.New("not found")
)
