package store

import (
	"context"
	"fmt"
	"time"
)

// --------------------------------------------------------------------------
// Write Arguments
// --------------------------------------------------------------------------

// ExpirationMode selects how a write treats the TTL of the key.
type ExpirationMode uint8

const (
	ExpireNone  ExpirationMode = iota // Write without expiration (clears an existing TTL).
	ExpireFixed                       // Write with a fresh TTL (Expiration.TTL).
	ExpireKeep                        // Write and keep the current TTL of the key.
)

func (m ExpirationMode) String() string {
	switch m {
	case ExpireNone:
		return "None"
	case ExpireFixed:
		return "Fixed"
	case ExpireKeep:
		return "Keep"
	default:
		return fmt.Sprintf("Unknown(%d)", m)
	}
}

// Expiration is the TTL argument of a single write.
type Expiration struct {
	Mode ExpirationMode
	TTL  time.Duration // Only used with ExpireFixed
}

// NoExpiration writes without a TTL.
var NoExpiration = Expiration{Mode: ExpireNone}

// KeepExpiration writes while keeping the current TTL.
var KeepExpiration = Expiration{Mode: ExpireKeep}

// ExpireIn writes with a fresh TTL.
func ExpireIn(ttl time.Duration) Expiration {
	return Expiration{Mode: ExpireFixed, TTL: ttl}
}

// Condition restricts when a write is applied.
type Condition uint8

const (
	CondAlways   Condition = iota // Always write.
	CondIfExists                  // Only overwrite an existing key (XX).
	CondIfAbsent                  // Only create a missing key (NX).
)

// SetArgs holds the optional arguments of Set.
type SetArgs struct {
	Condition  Condition
	Expiration Expiration
}

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// IStore is the set of primitives of the remote key-value server used by the dictionary.
// Every method maps to exactly one command of the server and inherits its atomicity.
// Absence of a key is never reported as an error, the boolean return values indicate it.
type IStore interface {
	// Get returns the value of a key. The boolean return value indicates whether the key was found.
	Get(ctx context.Context, key string) (value string, found bool, err error)
	// Set writes a value. applied is false if the condition prevented the write.
	Set(ctx context.Context, key, value string, args SetArgs) (applied bool, err error)
	// SetGet writes a value and returns the value that was present before the command in the
	// same atomic step (SET ... GET). existed reports whether a value was present. Whether the
	// value was written follows from the condition: always, only if existed (XX) or only if not (NX).
	SetGet(ctx context.Context, key, value string, args SetArgs) (prev string, existed bool, err error)
	// SetIfAbsentGet writes the value only if the key is absent and returns the value that was
	// present before the command in the same atomic step (SET NX GET).
	// existed reports whether a value was present (and therefore nothing was written).
	SetIfAbsentGet(ctx context.Context, key, value string, exp Expiration) (prev string, existed bool, err error)
	// GetDel atomically returns and deletes the value of a key.
	GetDel(ctx context.Context, key string) (value string, found bool, err error)
	// Delete deletes keys and returns how many keys were removed.
	Delete(ctx context.Context, keys ...string) (removed int64, err error)
	// Exists returns whether the key exists.
	Exists(ctx context.Context, key string) (bool, error)
	// Scan returns one page of keys matching the glob pattern and the cursor of the next page.
	// A returned cursor of 0 means the iteration is complete.
	Scan(ctx context.Context, cursor uint64, match string, count int64) (keys []string, next uint64, err error)
	// MGet returns the values of multiple keys. Absent keys are returned as nil.
	MGet(ctx context.Context, keys ...string) ([]*string, error)
	// TTL returns the remaining time to live of a key. ok is false if the key has no TTL or does not exist.
	TTL(ctx context.Context, key string) (ttl time.Duration, ok bool, err error)
	// ZAdd adds or updates a member of a sorted set.
	ZAdd(ctx context.Context, set, member string, score float64) error
	// ZRem removes members from a sorted set.
	ZRem(ctx context.Context, set string, members ...string) error
	// ZCard returns the number of members of a sorted set.
	ZCard(ctx context.Context, set string) (int64, error)
	// ZRange returns the members between the ranks start and stop (inclusive, negative ranks count from the end)
	// in ascending score order.
	ZRange(ctx context.Context, set string, start, stop int64) ([]string, error)
	// Info returns information and statistics about the server.
	Info(ctx context.Context) (map[string]string, error)
	// Batch returns a buffering handle. Commands issued on it are queued until Flush.
	Batch() IBatch
	// Close releases the connection of the store.
	Close() error
}

// IBatch is a buffering IStore. All commands issued on it are queued and sent in one
// round trip by Flush. Until then their results are unknown: writes report success
// (applied=true) and reads report nothing found, so callers must read through the live store.
type IBatch interface {
	IStore
	// Flush sends all queued commands and returns how many were sent.
	// The first error of any command is returned. Commands are not rolled back on failure.
	Flush(ctx context.Context) (int, error)
	// Discard drops all queued commands.
	Discard()
	// Len returns the number of queued commands.
	Len() int
}
