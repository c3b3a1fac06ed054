package seguro

import (
	"context"

	"github.com/seguro-db/seguro/internal/constants"
	"github.com/seguro-db/seguro/internal/interfaces"
	"github.com/seguro-db/seguro/internal/logging"
)

// Logger is the minimal logging surface the service depends on; satisfied
// by *internal/logging.Logger, so callers can swap in their own
// implementation for tests or alternate backends. Aliased to
// internal/interfaces.Logger (rather than redeclared) so a root Options.Logger
// value can be passed into internal/server and internal/client, which
// depend on the internal/interfaces type, without a conversion: With's
// return type carries a named interface, and two structurally-identical
// but distinct interfaces don't satisfy each other once a method returns
// the interface type itself.
type Logger = interfaces.Logger

// Options configures a running server, per spec.md §6's "Configuration
// (knobs)". Run fills zero-valued fields in from DefaultOptions.
type Options struct {
	// Port is the TCP listen port.
	Port int

	// ClusterFile is the FDB cluster-file path.
	ClusterFile string

	// TxSize is the max bytes per FDB transaction.
	TxSize int

	// ChunkSize is the fragment size F.
	ChunkSize int

	// TxBuffering is how many transaction-sized buckets the read buffer
	// holds; read_buffer_size = TxSize * TxBuffering.
	TxBuffering int

	// MaxBatchOps is the max FDB set-operations per transaction during a
	// write (spec.md §4.3's "B", default 1).
	MaxBatchOps int

	// ClearBatchSize is the max range-clear operations per transaction.
	ClearBatchSize int

	// Context governs server lifetime; cancelling it triggers shutdown.
	Context context.Context

	// Logger receives structured log output; nil uses the package default.
	Logger Logger

	// Observer receives metrics events; nil uses NoOpObserver.
	Observer Observer
}

// DefaultOptions returns the spec's documented defaults.
func DefaultOptions() Options {
	return Options{
		Port:           constants.DefaultPort,
		ClusterFile:    constants.DefaultClusterFile,
		TxSize:         constants.DefaultTxSize,
		ChunkSize:      constants.DefaultChunkSize,
		TxBuffering:    constants.DefaultTxBuffering,
		MaxBatchOps:    constants.DefaultMaxBatchOps,
		ClearBatchSize: constants.DefaultClearBatchSize,
	}
}

// ReadBufferSize returns TxSize * TxBuffering, per spec.md §6.
func (o Options) ReadBufferSize() int {
	return o.TxSize * o.TxBuffering
}

// withDefaults fills any zero-valued field from DefaultOptions and ensures
// Context/Observer are never nil.
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Port == 0 {
		o.Port = d.Port
	}
	if o.ClusterFile == "" {
		o.ClusterFile = d.ClusterFile
	}
	if o.TxSize == 0 {
		o.TxSize = d.TxSize
	}
	if o.ChunkSize == 0 {
		o.ChunkSize = d.ChunkSize
	}
	if o.TxBuffering == 0 {
		o.TxBuffering = d.TxBuffering
	}
	if o.MaxBatchOps == 0 {
		o.MaxBatchOps = d.MaxBatchOps
	}
	if o.ClearBatchSize == 0 {
		o.ClearBatchSize = d.ClearBatchSize
	}
	if o.Context == nil {
		o.Context = context.Background()
	}
	if o.Observer == nil {
		o.Observer = NoOpObserver{}
	}
	if o.Logger == nil {
		o.Logger = logging.Default()
	}
	return o
}
