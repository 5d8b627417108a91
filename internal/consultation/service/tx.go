package service

import (
	"context"
	"sync"
	"time"

	dErrors "intake/pkg/domain-errors"
)

// StoreTx serialises read-modify-write sequences on one consultation.
// Implementations may wrap a database transaction or, in memory, a lock.
type StoreTx interface {
	RunInTx(ctx context.Context, consultationID string, fn func(ctx context.Context, store Store) error) error
}

// numTxShards spreads consultations over independent locks so unrelated
// reviews do not contend.
const numTxShards = 64

// defaultTxTimeout is the maximum duration for a review transaction.
const defaultTxTimeout = 5 * time.Second

// shardedTx provides per-consultation locking for stores without native
// transactions.
type shardedTx struct {
	shards  [numTxShards]sync.Mutex
	store   Store
	timeout time.Duration
}

// NewShardedTx wraps store with in-process per-consultation locking.
func NewShardedTx(store Store) StoreTx {
	return &shardedTx{store: store, timeout: defaultTxTimeout}
}

func (t *shardedTx) RunInTx(ctx context.Context, consultationID string, fn func(ctx context.Context, store Store) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	shard := hashString(consultationID) % numTxShards
	t.shards[shard].Lock()
	defer t.shards[shard].Unlock()

	// Check again after acquiring lock
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	return fn(ctx, t.store)
}

// hashString is FNV-1a.
func hashString(s string) uint32 {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	h := uint32(fnvOffset)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime
	}
	return h
}
