// Package constants holds the service's default configuration values, per
// spec.md §6 ("Configuration (knobs)").
package constants

const (
	// DefaultTxSize is the default max bytes per FDB transaction.
	DefaultTxSize = 1_000_000

	// DefaultChunkSize is the default fragment size F.
	DefaultChunkSize = 10_000

	// DefaultTxBuffering is the default number of transaction-sized buckets
	// the read buffer holds (read_buffer_size = tx_size * tx_buffering).
	DefaultTxBuffering = 2

	// DefaultPort is the default TCP listen port.
	DefaultPort = 7000

	// DefaultClusterFile is the default FDB cluster-file path.
	DefaultClusterFile = "/etc/foundationdb/fdb.cluster"

	// DefaultMaxBatchOps is the default max FDB set-operations per
	// transaction during a write (spec.md §4.3's "B").
	DefaultMaxBatchOps = 1

	// DefaultClearBatchSize is the default max range-clear operations per
	// transaction.
	DefaultClearBatchSize = 75_000

	// MaxControlLineLen is the max length (including terminator) of a
	// control-protocol line, per spec.md §6.
	MaxControlLineLen = 127
)
