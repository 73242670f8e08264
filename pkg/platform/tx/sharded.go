package tx

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	dErrors "trustbank/pkg/domain-errors"
)

// numShards spreads keys across independent mutexes so unrelated users and
// decisions do not contend.
const numShards = 128

const defaultTimeout = 5 * time.Second

type shardKey struct{}

// WithShardKey names the entity a transaction serializes on, e.g. a user ID
// or a decision ID. Without a key every transaction shares shard 0.
func WithShardKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, shardKey{}, key)
}

// ShardKey returns the key set by WithShardKey.
func ShardKey(ctx context.Context) (string, bool) {
	key, ok := ctx.Value(shardKey{}).(string)
	return key, ok && key != ""
}

// Sharded is the in-memory transaction boundary: functions for the same key
// run one at a time.
type Sharded struct {
	shards  [numShards]sync.Mutex
	timeout time.Duration
}

func NewSharded() *Sharded {
	return &Sharded{}
}

func (t *Sharded) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	shard := selectShard(ctx)
	t.shards[shard].Lock()
	defer t.shards[shard].Unlock()

	// Check again after acquiring lock
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	ctx, runHooks := WithCommitHooks(ctx)
	if err := fn(ctx); err != nil {
		return err
	}
	runHooks(context.WithoutCancel(ctx))
	return nil
}

func selectShard(ctx context.Context) uint32 {
	key, ok := ShardKey(ctx)
	if !ok {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return h.Sum32() % numShards
}
