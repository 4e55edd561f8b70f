// Package cmd implements the command-line interface of rDict. It provides a
// hierarchical command structure to inspect and modify dictionaries stored in redis.
//
// The package is organized into several subpackages:
//
//   - dict: Commands for dictionary operations (get, set, del, keys, pop, setdefault, etc.)
//     and a performance testing tool
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See rdict -help for a list of all commands.
package cmd
