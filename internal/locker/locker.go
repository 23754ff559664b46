// Package locker serializes writers per key (artifact or record id) so read-modify-append
// sequences on one key never interleave, while different keys proceed independently.
package locker

import (
	"context"
	"hash/fnv"
	"time"

	"golang.org/x/sync/semaphore"

	apperrors "github.com/allisson/medledger/internal/errors"
)

// numShards bounds memory independent of the number of keys. Keys hashing to the same
// shard share a lock, which only adds serialization.
const numShards = 128

// DefaultTimeout is applied when the caller's context carries no deadline.
const DefaultTimeout = 5 * time.Second

// KeyedLocker grants exclusive access to a key.
type KeyedLocker interface {
	// Lock blocks until the key is held or ctx is done. A caller abandoning the wait
	// leaves no side effect. The returned unlock func must be called exactly once.
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

type shardedLocker struct {
	shards  [numShards]*semaphore.Weighted
	timeout time.Duration
}

// New creates a KeyedLocker. A zero timeout falls back to DefaultTimeout.
func New(timeout time.Duration) KeyedLocker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	l := &shardedLocker{timeout: timeout}
	for i := range l.shards {
		l.shards[i] = semaphore.NewWeighted(1)
	}
	return l
}

// Lock acquires the shard owning key.
func (l *shardedLocker) Lock(ctx context.Context, key string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(err, "lock aborted")
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	sem := l.shards[shardFor(key)]
	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, apperrors.Wrap(err, "failed to acquire lock")
	}

	return func() { sem.Release(1) }, nil
}

func shardFor(key string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return h.Sum32() % numShards
}
