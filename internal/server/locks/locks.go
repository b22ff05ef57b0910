// Package locks provides the cross-replica lock that keeps two server
// processes from reconciling the catalog at the same moment.
package locks

import (
	"context"
	"time"
)

// Locker acquires a named lock for at most ttl. The returned unlock function
// must be called to release it; TryLock returns common.ErrLocked when the
// lock is held elsewhere.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// Local is a Locker for single-replica deployments. Serialisation inside
// the process is left to the caller.
type Local struct{}

func (Local) TryLock(context.Context, string, time.Duration) (func(), error) {
	return func() {}, nil
}
