// Package session keeps each visitor's browse.State for the lifetime of
// their session.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/Sternrassler/pokedex-browser/pkg/browse"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var storeErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "session_store_errors_total",
	Help: "Session store operation errors by backend and operation",
}, []string{"backend", "operation"})

var (
	// ErrNotFound indicates an unknown or expired session.
	ErrNotFound = errors.New("session not found")

	// ErrInvalidState indicates a stored state that cannot be decoded.
	ErrInvalidState = errors.New("invalid session state")
)

// DefaultTTL is how long an idle session is kept.
const DefaultTTL = 30 * time.Minute

// Store persists browse states by session ID. Implementations copy the
// state on Save and Load so callers never share one.
type Store interface {
	Load(ctx context.Context, id string) (*browse.State, error)
	Save(ctx context.Context, id string, st *browse.State) error
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}

// NewID returns a fresh random session ID.
func NewID() string {
	return uuid.NewString()
}

// ValidID reports whether id looks like an ID from NewID.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
