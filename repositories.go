package newsletter

import (
	"context"

	"github.com/coregx/newsletter/model"
)

// SubscriberRepository defines the persistence interface for subscriber rows.
// All lookups are keyed on the normalized email or the confirmation token
// hash; mutation is single-row save, so cross-row races do not occur.
//
// Implementations must be safe for concurrent use. No transaction or fencing
// is assumed: concurrent writers for the same email resolve last-write-wins,
// which is acceptable for this low-volume, human-triggered workload.
type SubscriberRepository interface {
	// GetByEmail retrieves a subscriber by normalized email.
	// Returns ErrNoData if not found.
	GetByEmail(ctx context.Context, email string) (model.Subscriber, error)

	// FindByConfirmTokenHash retrieves the subscriber holding the given
	// outstanding confirmation token hash.
	// Returns ErrNoData if no row matches (token unknown or already used).
	FindByConfirmTokenHash(ctx context.Context, tokenHash string) (model.Subscriber, error)

	// Save creates a new subscriber (if ID=0) or updates an existing one.
	// The full row is written in one statement so no transition is ever
	// partially applied.
	Save(ctx context.Context, m *model.Subscriber) error

	// ListByStatus retrieves all subscribers with the given status,
	// ordered by creation time descending.
	// Returns an empty slice if none found.
	ListByStatus(ctx context.Context, status model.Status) ([]model.Subscriber, error)

	// GetStats retrieves per-status subscriber counts.
	GetStats(ctx context.Context) (model.Stats, error)
}

// SchemaEnsurer lazily prepares the subscriber table before first use.
// EnsureSchema is memoized per process by implementations: repeat calls after
// one successful run are no-ops, while a failed run is retried on the next
// call. Every underlying statement is individually idempotent, so concurrent
// first calls across processes are safe without locks.
type SchemaEnsurer interface {
	EnsureSchema(ctx context.Context) error
}
