package port

import (
	"context"
	"time"

	discussion "go-parley/internal/pkg/discussion/domain"
)

// Record is one locally persisted discussion: the transcript as the client
// saw it when the session ended, kept for offline rereading. The server-side
// archive stays authoritative; this store is a convenience copy.
type Record struct {
	DiscussionID string
	Room         string
	EndedAt      time.Time
	Participants []string
	Messages     []discussion.Message
}

// Store is the minimal contract for the local discussion archive.
// Implementations must be safe for use from a single event loop plus a
// teardown goroutine; all methods are context-aware to allow caller-driven
// timeouts.
type Store interface {
	// Save persists the record, overwriting any previous copy for the same
	// discussion id.
	Save(ctx context.Context, rec Record) error

	// Get fetches one record by discussion id. Misses return ErrNotFound.
	Get(ctx context.Context, discussionID string) (Record, error)

	// List returns all records, most recently ended first.
	List(ctx context.Context) ([]Record, error)

	// Close releases the underlying database.
	Close() error
}

// ErrNotFound signals a missing record in a typed way, so callers can
// distinguish misses from storage failures.
var ErrNotFound = errNotFound{}

type errNotFound struct{}

func (errNotFound) Error() string { return "archive: record not found" }
