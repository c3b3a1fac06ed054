package seguro

import "github.com/seguro-db/seguro/internal/constants"

// Re-export defaults for public API convenience.
const (
	DefaultTxSize          = constants.DefaultTxSize
	DefaultChunkSize       = constants.DefaultChunkSize
	DefaultTxBuffering     = constants.DefaultTxBuffering
	DefaultPort            = constants.DefaultPort
	DefaultClusterFile     = constants.DefaultClusterFile
	DefaultMaxBatchOps     = constants.DefaultMaxBatchOps
	DefaultClearBatchSize  = constants.DefaultClearBatchSize
	MaxControlLineLen      = constants.MaxControlLineLen
)
