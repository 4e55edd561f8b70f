package dict

import (
	"context"
	"github.com/ValentinKolb/rDict/lib/store"
	"time"
)

// --------------------------------------------------------------------------
// Pipeline Scopes
// --------------------------------------------------------------------------

// writer returns the handle writes are issued on: the batch of the open pipeline scope or the live store
func (d *dictImpl) writer() store.IStore {
	if d.batch != nil {
		return d.batch
	}
	return d.live
}

// Pipeline runs fn with all writes queued on one batch. Nested scopes share the batch of the
// outermost scope, only the outermost scope flushes it. The flush happens when fn returns an
// error or panics as well, so writes issued before the failure are applied.
// The error of fn is returned first, the flush error otherwise.
func (d *dictImpl) Pipeline(ctx context.Context, fn func() error) (err error) {
	defer d.observe("pipeline", time.Now(), &err)
	return d.pipeline(ctx, fn)
}

func (d *dictImpl) pipeline(ctx context.Context, fn func() error) (err error) {
	if d.batch != nil {
		return fn()
	}

	d.batch = d.live.Batch()
	Logger.Debugf("entering pipeline scope of %s", d.namespace)

	defer func() {
		b := d.batch
		d.batch = nil

		n, flushErr := b.Flush(ctx)
		observeFlush(n)
		if flushErr != nil {
			Logger.Warningf("flushing %d queued commands of %s failed: %v", n, d.namespace, flushErr)
			if err == nil {
				err = flushErr
			}
			return
		}
		Logger.Debugf("pipeline scope of %s flushed %d commands", d.namespace, n)
	}()

	return fn()
}

// mutate runs fn inside a pipeline scope if the data write must be paired with an index update,
// and directly otherwise.
func (d *dictImpl) mutate(ctx context.Context, fn func() error) error {
	if d.keys.ordered() {
		return d.pipeline(ctx, fn)
	}
	return fn()
}
