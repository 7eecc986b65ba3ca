// Package locker provides short-lived advisory locks scoped to a string key.
//
// Territory creation serializes per country code so two territories cannot
// pass the overlap check against a stale view of each other. The in-process
// implementation covers single-node deployments and tests; the Redis
// implementation covers multi-node deployments.
package locker

import (
	"context"
	"sync"
)

// Unlock releases a held lock. Always call it, typically via defer.
type Unlock func()

// Locker acquires an exclusive advisory lock for a key, blocking until the
// lock is available or ctx is done.
type Locker interface {
	Acquire(ctx context.Context, key string) (Unlock, error)
}

// InProcess implements Locker with per-key mutexes. Locks are scoped to this
// process only.
type InProcess struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

func NewInProcess() *InProcess {
	return &InProcess{locks: make(map[string]*entry)}
}

func (l *InProcess) Acquire(ctx context.Context, key string) (Unlock, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	e, ok := l.locks[key]
	if !ok {
		e = &entry{}
		l.locks[key] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}, nil
}
