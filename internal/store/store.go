// Package store is the FDB batcher (C3): it groups fragment writes into
// bounded transactions, range-reads events back out, and range-clears them.
// Grounded on original_source/src/fdb.c and src/db/fdb.c.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/apple/foundationdb/bindings/go/src/fdb"
	"github.com/cenkalti/backoff/v5"

	"github.com/seguro-db/seguro/internal/fragment"
)

// apiVersion is the FDB client API version this binding targets.
const apiVersion = 730

// Store is the FDB batcher's public surface, consumed by the client state
// machine's write path and the server's READ path.
type Store interface {
	// WriteEvent commits every fragment of src in transactions of at most
	// Options.MaxBatchOps set-operations each. It does not retry on
	// failure (spec.md §7): the caller decides.
	WriteEvent(ctx context.Context, src fragment.Source) error

	// WriteEventArray commits every fragment of every source in sources,
	// filling each transaction up to Options.MaxBatchOps set-operations
	// across event boundaries: the last batch of one event and the first
	// batch of the next may share a transaction, per spec.md §4.3. Used for
	// the WRITE BATCH command path, where cross-event transaction sharing
	// is the point of batching at all.
	WriteEventArray(ctx context.Context, sources []fragment.Source) error

	// ReadEvent reconstructs one event's payload by range-reading its
	// fragments in key order. Returns fragment.ErrShortRead if fewer
	// fragments are observed than the header on fragment 0 declares.
	ReadEvent(ctx context.Context, id uint64) ([]byte, error)

	// ClearEvent range-clears every fragment key of one event.
	ClearEvent(ctx context.Context, id uint64) error

	// ClearEventArray range-clears every fragment key of events in
	// [startID, endID).
	ClearEventArray(ctx context.Context, startID, endID uint64) error

	// ClearDatabase range-clears the entire fragment key-space.
	ClearDatabase(ctx context.Context) error

	// Close releases the underlying FDB database handle.
	Close()
}

// Options configures an FDBStore, per spec.md §6.
type Options struct {
	ClusterFile string

	// MaxBatchOps ("B") is the max FDB set-operations per write
	// transaction; default 1 per spec.md §4.3.
	MaxBatchOps int

	// ChunkSize ("F") is the configured fragment size, used by ReadEvent
	// to validate non-first fragment lengths.
	ChunkSize int

	// ClearBatchSize is the max range-clear operations per transaction.
	ClearBatchSize int
}

// FDBStore is the real FoundationDB-backed Store.
type FDBStore struct {
	db  fdb.Database
	opt Options
}

// Open brings up the FDB client (API version selection, network thread,
// database handle) and returns an FDBStore. This is the one place the
// batcher retries: the FDB C API requires its background network thread be
// started exactly once per process, and a freshly-started cluster may not
// be immediately reachable, so startup bring-up is wrapped in a bounded
// exponential backoff. Per-transaction commits are never retried this way
// (spec.md §7).
func Open(ctx context.Context, opt Options) (*FDBStore, error) {
	if opt.MaxBatchOps < 1 {
		opt.MaxBatchOps = 1
	}
	if opt.ClearBatchSize < 1 {
		opt.ClearBatchSize = 75_000
	}

	operation := func() (fdb.Database, error) {
		fdb.MustAPIVersion(apiVersion)
		db, err := fdb.OpenDatabase(opt.ClusterFile)
		if err != nil {
			return fdb.Database{}, fmt.Errorf("store: open cluster file %q: %w", opt.ClusterFile, err)
		}
		return db, nil
	}

	db, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(30*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("store: bring-up failed: %w", err)
	}

	return &FDBStore{db: db, opt: opt}, nil
}

// Close is a no-op on the Go FDB bindings (the network thread is
// process-global and stopped at process exit), kept to satisfy Store.
func (s *FDBStore) Close() {}

// WriteEvent implements Store.
func (s *FDBStore) WriteEvent(ctx context.Context, src fragment.Source) error {
	return s.WriteEventArray(ctx, []fragment.Source{src})
}

// keyedFragment pairs a fragment's fully-built key with its payload, so
// WriteEventArray can flatten every source's fragments into one ordered
// list before slicing it into MaxBatchOps-sized transactions.
type keyedFragment struct {
	key     []byte
	payload []byte
}

// WriteEventArray implements Store. It flattens every source's fragments,
// in source order, into a single list and batches transactions across that
// whole list rather than per-source, so the last batch of one event and
// the first batch of the next share a transaction whenever MaxBatchOps
// doesn't divide evenly — exactly what spec.md §4.3 calls for.
func (s *FDBStore) WriteEventArray(ctx context.Context, sources []fragment.Source) error {
	var all []keyedFragment
	for _, src := range sources {
		header := fragment.HeaderFor(src)
		for _, p := range fragment.Emit(src) {
			var key []byte
			if p.Index == 0 {
				key = FragmentZeroKey(src.ID(), header)
			} else {
				key = FragmentKey(src.ID(), uint32(p.Index))
			}
			all = append(all, keyedFragment{key: key, payload: p.Payload})
		}
	}

	for i := 0; i < len(all); i += s.opt.MaxBatchOps {
		end := i + s.opt.MaxBatchOps
		if end > len(all) {
			end = len(all)
		}
		batch := all[i:end]

		_, err := s.db.Transact(func(tr fdb.Transaction) (interface{}, error) {
			for _, p := range batch {
				tr.Set(fdb.Key(p.key), p.payload)
			}
			return nil, nil
		})
		if err != nil {
			return fmt.Errorf("store: write_event_array: %w", err)
		}
	}
	return nil
}

// ReadEvent implements Store. It issues range reads with a streaming limit
// that starts at 1 and doubles each page, per spec.md §4.3.
func (s *FDBStore) ReadEvent(ctx context.Context, id uint64) ([]byte, error) {
	begin, end := EventRange(id)

	var re *fragment.Reassembler
	limit := 1
	keyRangeBegin := begin

	for re == nil || !re.Done() {
		result, err := s.db.Transact(func(tr fdb.Transaction) (interface{}, error) {
			r := fdb.KeyRange{Begin: fdb.Key(keyRangeBegin), End: fdb.Key(end)}
			return tr.GetRange(r, fdb.RangeOptions{Limit: limit}).GetSliceWithError()
		})
		if err != nil {
			return nil, fmt.Errorf("store: read_event %d: %w", id, err)
		}
		kvs := result.([]fdb.KeyValue)
		if len(kvs) == 0 {
			break
		}

		for _, kv := range kvs {
			if re == nil {
				headerBytes := []byte(kv.Key)[FixedKeyLen:]
				re, err = fragment.NewReassembler(headerBytes, kv.Value, s.opt.ChunkSize)
				if err != nil {
					return nil, fmt.Errorf("store: read_event %d: %w", id, err)
				}
			} else if err := re.Append(kv.Value); err != nil {
				return nil, fmt.Errorf("store: read_event %d: %w", id, err)
			}
		}

		last := kvs[len(kvs)-1]
		keyRangeBegin = append(append([]byte{}, []byte(last.Key)...), 0x00)
		limit *= 2
	}

	if re == nil {
		return nil, fmt.Errorf("store: read_event %d: %w", id, fragment.ErrShortRead)
	}
	payload, err := re.Payload()
	if err != nil {
		return nil, fmt.Errorf("store: read_event %d: %w", id, err)
	}
	return payload, nil
}

// ClearEvent implements Store: one range clear for a single event fits in
// one transaction regardless of its fragment count.
func (s *FDBStore) ClearEvent(ctx context.Context, id uint64) error {
	begin, end := EventRange(id)
	_, err := s.db.Transact(func(tr fdb.Transaction) (interface{}, error) {
		tr.ClearRange(fdb.KeyRange{Begin: fdb.Key(begin), End: fdb.Key(end)})
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("store: clear_event %d: %w", id, err)
	}
	return nil
}

// ClearEventArray implements Store, batching at most ClearBatchSize
// per-event range-clear operations into each transaction per spec.md §4.3.
func (s *FDBStore) ClearEventArray(ctx context.Context, startID, endID uint64) error {
	for chunkStart := startID; chunkStart < endID; chunkStart += uint64(s.opt.ClearBatchSize) {
		chunkEnd := chunkStart + uint64(s.opt.ClearBatchSize)
		if chunkEnd > endID {
			chunkEnd = endID
		}

		_, err := s.db.Transact(func(tr fdb.Transaction) (interface{}, error) {
			for id := chunkStart; id < chunkEnd; id++ {
				begin, end := EventRange(id)
				tr.ClearRange(fdb.KeyRange{Begin: fdb.Key(begin), End: fdb.Key(end)})
			}
			return nil, nil
		})
		if err != nil {
			return fmt.Errorf("store: clear_event_array [%d,%d): %w", chunkStart, chunkEnd, err)
		}
	}
	return nil
}

// ClearDatabase implements Store: clears the entire [0x00, 0x01) key-space
// in a single range clear — unlike ClearEventArray this does not need to
// enumerate individual event ids.
func (s *FDBStore) ClearDatabase(ctx context.Context) error {
	_, err := s.db.Transact(func(tr fdb.Transaction) (interface{}, error) {
		tr.ClearRange(fdb.KeyRange{Begin: fdb.Key([]byte{KeyPrefix}), End: fdb.Key([]byte{KeyPrefix + 1})})
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("store: clear_database: %w", err)
	}
	return nil
}
