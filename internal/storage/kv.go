package storage

import (
	"context"
	"io"
)

// KVEngine is an embedded key-value store.
//
// Implementations must be safe for concurrent use.
type KVEngine interface {
	// Get returns ErrKeyNotFound if the key does not exist.
	Get(ctx context.Context, key []byte) ([]byte, error)

	Set(ctx context.Context, key, value []byte) error

	Delete(ctx context.Context, key []byte) error

	// Scan iterates over keys with prefix in key order. fn returns false to stop.
	Scan(ctx context.Context, prefix []byte, fn func(key, value []byte) bool) error

	// Backup writes a full dump of the store to w.
	Backup(ctx context.Context, w io.Writer) error

	// GC reclaims space of LSM based engines.
	GC(ctx context.Context) (uint64, error)

	Stats(ctx context.Context) (*KVStats, error)

	Close() error
}

// KVStats contains storage engine statistics.
type KVStats struct {
	// TotalSize is LSMSize + ValueLogSize.
	TotalSize uint64

	LSMSize      uint64
	ValueLogSize uint64

	// LastGCTime is the last GC run (Unix milliseconds).
	LastGCTime int64

	// GCRuns is the number of value log rewrites since start.
	GCRuns uint64
}

// KVConfig configures the embedded KV engine.
type KVConfig struct {
	// Dir is the storage directory. Empty means in-memory.
	Dir string

	Badger BadgerConfig
}

// BadgerConfig contains Badger tuning parameters.
type BadgerConfig struct {
	// GCInterval is the interval between automatic GC runs.
	GCInterval string

	// GCThreshold is the value log discard ratio that triggers a rewrite.
	GCThreshold float64

	// CacheSize is the block cache size in bytes.
	CacheSize int64

	// ValueLogFileSize is the max value log file size in bytes.
	ValueLogFileSize int64

	NumMemtables int

	// SyncWrites fsyncs after each write.
	SyncWrites bool
}

// DefaultKVConfig returns the default KV configuration.
func DefaultKVConfig(dir string) KVConfig {
	return KVConfig{
		Dir:    dir,
		Badger: DefaultBadgerConfig(),
	}
}

// DefaultBadgerConfig returns the default Badger configuration.
func DefaultBadgerConfig() BadgerConfig {
	return BadgerConfig{
		GCInterval:       "10m",
		GCThreshold:      0.5,
		CacheSize:        64 << 20, // 64MB
		ValueLogFileSize: 256 << 20,
		NumMemtables:     2,
		SyncWrites:       false,
	}
}
