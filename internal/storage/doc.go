// Package storage provides the embedded key-value engine used to persist the
// local service registry across restarts.
//
// BadgerEngine wraps dgraph-io/badger/v3. With an empty directory it runs
// fully in memory, which is what tests and single-shot tools use.
package storage
