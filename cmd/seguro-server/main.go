package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/seguro-db/seguro"
	"github.com/seguro-db/seguro/internal/logging"
)

var flags struct {
	port        int
	txSize      int
	chunkSize   int
	txBuffering int
	clusterFile string
	verbose     bool
}

var rootCmd = &cobra.Command{
	Use:   "seguro-server",
	Short: "Ingestion and read-back server for an append-only Urbit event log",
	RunE:  runServer,
}

func init() {
	d := seguro.DefaultOptions()
	rootCmd.Flags().IntVarP(&flags.port, "port", "p", d.Port, "TCP listen port")
	rootCmd.Flags().IntVarP(&flags.txSize, "tx-size", "t", d.TxSize, "max bytes per FDB transaction")
	rootCmd.Flags().IntVarP(&flags.chunkSize, "chunk-size", "c", d.ChunkSize, "fragment size F")
	rootCmd.Flags().IntVarP(&flags.txBuffering, "buffered-txs", "b", d.TxBuffering, "transaction-sized buckets in the read buffer")
	rootCmd.Flags().StringVarP(&flags.clusterFile, "db-cluster", "d", d.ClusterFile, "FDB cluster file path")
	rootCmd.Flags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	logConfig := logging.DefaultConfig()
	logConfig.Development = flags.verbose
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)
	defer logger.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opt := seguro.DefaultOptions()
	opt.Port = flags.port
	opt.TxSize = flags.txSize
	opt.ChunkSize = flags.chunkSize
	opt.TxBuffering = flags.txBuffering
	opt.ClusterFile = flags.clusterFile
	opt.Context = ctx
	opt.Logger = logger
	opt.Observer = seguro.NewMetricsObserver(seguro.NewMetrics())

	logger.Infof("starting seguro-server on port %d (cluster file %s)", opt.Port, opt.ClusterFile)
	return seguro.Run(opt)
}
