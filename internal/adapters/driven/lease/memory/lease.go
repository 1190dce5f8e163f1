// Package memory provides an in-process RefreshLease.
package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/delegate/internal/core/ports/driven"
)

// Ensure Lease implements the interface.
var _ driven.RefreshLease = (*Lease)(nil)

type slot struct {
	sem  chan struct{}
	refs int
}

// Lease serialises holders of the same key within one process.
// Slots are reference counted and dropped once no goroutine uses them.
type Lease struct {
	mu    sync.Mutex
	slots map[string]*slot
}

// NewLease creates an in-process lease.
func NewLease() *Lease {
	return &Lease{slots: make(map[string]*slot)}
}

// Acquire blocks until the lease for key is held or ctx is done.
func (l *Lease) Acquire(ctx context.Context, key string) (func(), error) {
	s := l.ref(key)

	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		l.unref(key)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.sem
			l.unref(key)
		})
	}, nil
}

func (l *Lease) ref(key string) *slot {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot{sem: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	return s
}

func (l *Lease) unref(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := l.slots[key]
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}

// Held returns the number of keys currently in use.
func (l *Lease) Held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}
