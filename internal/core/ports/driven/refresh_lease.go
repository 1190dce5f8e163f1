package driven

import "context"

// RefreshLease serialises writes to one authorization key.
// Holders must call release exactly once on every exit path.
type RefreshLease interface {
	// Acquire blocks until the lease for key is held or ctx is done.
	Acquire(ctx context.Context, key string) (release func(), err error)
}
