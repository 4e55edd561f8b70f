package dict

import (
	"context"
	"github.com/ValentinKolb/rDict/lib/common"
	"github.com/ValentinKolb/rDict/lib/store"
	"time"
)

// --------------------------------------------------------------------------
// Expiration Policy
// --------------------------------------------------------------------------

// normalizeExpire truncates an expiration to whole seconds, the resolution of the server (EX).
// Every positive duration lasts at least one second, zero and negative durations mean no expiration.
func normalizeExpire(expire time.Duration) time.Duration {
	if expire <= 0 {
		return 0
	}
	if expire < time.Second {
		return time.Second
	}
	return expire.Truncate(time.Second)
}

// forWrite returns the expiration of a plain write. exists reports whether the key is present.
func (d *dictImpl) forWrite(exists bool) store.Expiration {
	if d.preserve && exists {
		return store.KeepExpiration
	}
	if d.expire > 0 {
		return store.ExpireIn(d.expire)
	}
	return store.NoExpiration
}

// forSetDefault returns the expiration of a write that only creates missing keys,
// so there is never a TTL to preserve.
func (d *dictImpl) forSetDefault() store.Expiration {
	if d.expire > 0 {
		return store.ExpireIn(d.expire)
	}
	return store.NoExpiration
}

// ExpireAt runs fn with expire as the default expiration of all writes and restores the
// previous expiration afterwards, also if fn fails or panics.
func (d *dictImpl) ExpireAt(expire time.Duration, fn func() error) error {
	if expire < 0 {
		return common.Errorf(common.RetCInvalidConfig, "expire must not be negative, got %s", expire)
	}
	prev := d.expire
	d.expire = normalizeExpire(expire)
	defer func() {
		d.expire = prev
	}()
	return fn()
}

// --------------------------------------------------------------------------
// Writes
// --------------------------------------------------------------------------

// maxStoreAttempts bounds the retries of an overwrite racing with concurrent deletes and creates
const maxStoreAttempts = 8

// writeEnvelope writes an envelope to the physical key using the expiration policy.
// Without preservation the TTL never depends on the previous state of the key, so one SET suffices.
// With preservation and an expiration the write is split into SET XX KEEPTTL (overwrite) and
// SET NX EX (create), both atomic on their own. Inside a pipeline scope the results of queued
// commands are unknown, so a live existence probe selects the expiration instead.
func (d *dictImpl) writeEnvelope(ctx context.Context, storeKey, envelope string) error {
	w := d.writer()

	if !d.preserve || d.expire <= 0 {
		// with preserve but without expire, keeping the TTL is right for old and new keys alike
		exp := d.forWrite(d.preserve)
		_, err := w.Set(ctx, storeKey, envelope, store.SetArgs{Expiration: exp})
		return err
	}

	if d.batch != nil {
		exists, err := d.live.Exists(ctx, storeKey)
		if err != nil {
			return err
		}
		_, err = w.Set(ctx, storeKey, envelope, store.SetArgs{Expiration: d.forWrite(exists)})
		return err
	}

	for attempt := 0; attempt < maxStoreAttempts; attempt++ {
		applied, err := w.Set(ctx, storeKey, envelope, store.SetArgs{
			Condition:  store.CondIfExists,
			Expiration: d.forWrite(true),
		})
		if err != nil || applied {
			return err
		}
		applied, err = w.Set(ctx, storeKey, envelope, store.SetArgs{
			Condition:  store.CondIfAbsent,
			Expiration: d.forWrite(false),
		})
		if err != nil || applied {
			return err
		}
		Logger.Debugf("key %s changed between overwrite and create, retrying (attempt %d)", storeKey, attempt+1)
	}
	return common.Errorf(common.RetCInternalError, "writing %s: key kept changing during %d attempts", storeKey, maxStoreAttempts)
}

// swapEnvelope writes an envelope like writeEnvelope and returns the envelope it replaced.
// It always runs on the live store, the previous value is needed immediately.
func (d *dictImpl) swapEnvelope(ctx context.Context, storeKey, envelope string) (string, bool, error) {
	if !d.preserve || d.expire <= 0 {
		return d.live.SetGet(ctx, storeKey, envelope, store.SetArgs{Expiration: d.forWrite(d.preserve)})
	}

	for attempt := 0; attempt < maxStoreAttempts; attempt++ {
		prev, existed, err := d.live.SetGet(ctx, storeKey, envelope, store.SetArgs{
			Condition:  store.CondIfExists,
			Expiration: d.forWrite(true),
		})
		if err != nil || existed {
			return prev, existed, err
		}
		// NX GET writes nothing if the key exists, so existed means another client created it
		_, existed, err = d.live.SetGet(ctx, storeKey, envelope, store.SetArgs{
			Condition:  store.CondIfAbsent,
			Expiration: d.forWrite(false),
		})
		if err != nil || !existed {
			return "", false, err
		}
		Logger.Debugf("key %s changed between swap and create, retrying (attempt %d)", storeKey, attempt+1)
	}
	return "", false, common.Errorf(common.RetCInternalError, "swapping %s: key kept changing during %d attempts", storeKey, maxStoreAttempts)
}
