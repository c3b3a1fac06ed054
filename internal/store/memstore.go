package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/seguro-db/seguro/internal/fragment"
)

// MemStore is an in-memory Store, used in place of FDBStore for tests that
// exercise the client/server cores without a real FoundationDB cluster —
// the role the teacher's backend/mem.go MemBackend plays for the ublk
// Backend interface.
type MemStore struct {
	mu        sync.Mutex
	kv        map[string][]byte
	fragSize  int
	failWrite bool
}

// NewMemStore creates an empty MemStore. fragmentSize must match the
// configured chunk size so ReadEvent can validate non-first fragments.
func NewMemStore(fragmentSize int) *MemStore {
	return &MemStore{kv: make(map[string][]byte), fragSize: fragmentSize}
}

// FailNextWrites makes every subsequent WriteEvent call fail, simulating an
// FDB transaction error for tests of the caller's no-auto-retry behavior.
func (m *MemStore) FailNextWrites(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWrite = fail
}

func (m *MemStore) WriteEvent(ctx context.Context, src fragment.Source) error {
	return m.WriteEventArray(ctx, []fragment.Source{src})
}

// WriteEventArray implements Store. MemStore has no transaction-sized
// boundary to respect, so it simply writes every source's fragments in
// order; the transaction-batching behavior this method name promises is
// exercised against FDBStore, where commits really are grouped.
func (m *MemStore) WriteEventArray(ctx context.Context, sources []fragment.Source) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite {
		return fmt.Errorf("store: simulated transaction error")
	}

	for _, src := range sources {
		header := fragment.HeaderFor(src)
		for _, p := range fragment.Emit(src) {
			var key []byte
			if p.Index == 0 {
				key = FragmentZeroKey(src.ID(), header)
			} else {
				key = FragmentKey(src.ID(), uint32(p.Index))
			}
			m.kv[string(key)] = append([]byte{}, p.Payload...)
		}
	}
	return nil
}

func (m *MemStore) ReadEvent(ctx context.Context, id uint64) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	begin, end := EventRange(id)
	keys := m.sortedKeysInRange(begin, end)
	if len(keys) == 0 {
		return nil, fmt.Errorf("store: read_event %d: %w", id, fragment.ErrShortRead)
	}

	headerBytes := []byte(keys[0])[FixedKeyLen:]
	re, err := fragment.NewReassembler(headerBytes, m.kv[keys[0]], m.fragSize)
	if err != nil {
		return nil, fmt.Errorf("store: read_event %d: %w", id, err)
	}
	for _, k := range keys[1:] {
		if err := re.Append(m.kv[k]); err != nil {
			return nil, fmt.Errorf("store: read_event %d: %w", id, err)
		}
	}
	payload, err := re.Payload()
	if err != nil {
		return nil, fmt.Errorf("store: read_event %d: %w", id, err)
	}
	return payload, nil
}

func (m *MemStore) ClearEvent(ctx context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	begin, end := EventRange(id)
	for _, k := range m.sortedKeysInRange(begin, end) {
		delete(m.kv, k)
	}
	return nil
}

func (m *MemStore) ClearEventArray(ctx context.Context, startID, endID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	begin := FragmentKey(startID, 0)
	end := FragmentKey(endID, 0)
	for _, k := range m.sortedKeysInRange(begin, end) {
		delete(m.kv, k)
	}
	return nil
}

func (m *MemStore) ClearDatabase(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kv = make(map[string][]byte)
	return nil
}

func (m *MemStore) Close() {}

// sortedKeysInRange returns keys k with begin <= k < end, in ascending
// order. Callers must hold m.mu.
func (m *MemStore) sortedKeysInRange(begin, end []byte) []string {
	var keys []string
	for k := range m.kv {
		if k >= string(begin) && k < string(end) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

var _ Store = (*MemStore)(nil)
