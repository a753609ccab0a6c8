// Package cmap provides a sharded concurrent map keyed by strings.
//
// Keys are spread over a power-of-two number of shards with murmur3, each
// guarded by its own RWMutex. It backs the per-node connection table, where
// register and unregister traffic from many client goroutines would
// otherwise contend on one lock.
//
// Usage:
//
//	m := cmap.New[domain.Connection](0)
//	m.SetIfAbsent(conn.ID, conn)
//	conn, ok := m.Get(id)
//
// Range visits shards one at a time, so it never observes a single
// consistent snapshot of the whole map.
package cmap
