package seguro

import (
	"fmt"

	"github.com/seguro-db/seguro/internal/server"
	"github.com/seguro-db/seguro/internal/store"
)

// Run brings up the FDB batcher and the TCP supervisor and serves until
// opt.Context is canceled. This is the entry point cmd/seguro-server wires
// up; it exists at the root so alternate entry points (tests, embedders)
// can start the service without going through the CLI.
func Run(opt Options) error {
	opt = opt.withDefaults()

	st, err := store.Open(opt.Context, store.Options{
		ClusterFile:    opt.ClusterFile,
		MaxBatchOps:    opt.MaxBatchOps,
		ChunkSize:      opt.ChunkSize,
		ClearBatchSize: opt.ClearBatchSize,
	})
	if err != nil {
		return fmt.Errorf("seguro: run: %w", err)
	}
	defer st.Close()

	srv := server.New(server.Options{
		Port:           opt.Port,
		ReadBufferSize: opt.ReadBufferSize(),
		FragmentSize:   opt.ChunkSize,
		Store:          st,
		Logger:         opt.Logger,
		Observer:       opt.Observer,
	})

	return srv.Serve(opt.Context)
}
