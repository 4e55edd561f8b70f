// Package store defines the primitives of the remote key-value server that the
// dictionary is built on. The server is treated as a black box that exposes
// GET/SET/GETDEL/DEL/EXISTS/SCAN/MGET/TTL and a sorted set (ZADD/ZREM/ZCARD/ZRANGE),
// each command being atomic on its own.
//
// The package focuses on:
//   - A unified interface (IStore) so the dictionary never depends on a concrete client
//   - A buffering variant (IBatch) used for pipelined execution
//
// Key Components:
//
//   - IStore Interface: One method per server command. Write methods take explicit
//     arguments (SetArgs, Expiration) instead of variadic option strings, so the
//     dictionary decides the TTL of every write and the store merely encodes it.
//     SetGet maps to a single "SET key value [NX|XX] GET" command and is the
//     building block for race-free swaps. SetIfAbsentGet is its NX form used for
//     get-or-set operations.
//
//   - IBatch Interface: An IStore whose commands are queued instead of executed.
//     Flush sends the queue in one round trip. A batch is not a transaction: if
//     the connection fails during Flush, a prefix of the queue may have been applied.
//
// Implementations:
//
//	The package includes one implementation of the IStore interface:
//
//	- Redis Store (rstore): built on github.com/redis/go-redis/v9. It works with
//	  single nodes, sentinel and cluster deployments through redis.UniversalClient.
//	  Available in the "github.com/ValentinKolb/rDict/lib/store/rstore" package.
//
// Thread Safety:
//
//	IStore implementations are safe for concurrent use. IBatch implementations are
//	not, a batch is owned by the goroutine that created it.
package store
