package rstore

import (
	"context"
	"errors"
	"github.com/ValentinKolb/rDict/lib/store"
	"github.com/redis/go-redis/v9"
)

// batchImpl queues all commands on a redis pipeline.
// The embedded storeImpl issues its commands on the pipeline (queued=true),
// so only the methods that differ from the live store are implemented here.
type batchImpl struct {
	storeImpl
	pipe redis.Pipeliner
}

// Batch returns the batch itself, nested batches share one queue
func (b *batchImpl) Batch() store.IBatch {
	return b
}

func (b *batchImpl) Flush(ctx context.Context) (int, error) {
	n := b.pipe.Len()
	if n == 0 {
		return 0, nil
	}

	cmds, err := b.pipe.Exec(ctx)
	if err == nil {
		Logger.Debugf("flushed %d queued commands", n)
		return n, nil
	}

	// redis.Nil replies (e.g. a SET XX that was not applied) are not failures
	if errors.Is(err, redis.Nil) {
		for _, cmd := range cmds {
			if cmdErr := cmd.Err(); cmdErr != nil && !errors.Is(cmdErr, redis.Nil) {
				return n, cmdErr
			}
		}
		return n, nil
	}
	return n, err
}

func (b *batchImpl) Discard() {
	b.pipe.Discard()
}

func (b *batchImpl) Len() int {
	return b.pipe.Len()
}

// Close discards the queue, the connection is owned by the live store
func (b *batchImpl) Close() error {
	b.Discard()
	return nil
}
