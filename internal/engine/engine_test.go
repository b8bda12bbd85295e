package engine

import (
	"context"
	"errors"
	"math/big"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"evmlogindexer/internal/contracts"
	"evmlogindexer/internal/descriptor"
	"evmlogindexer/internal/model"
	"evmlogindexer/internal/storage"
)

var (
	factoryAddress = common.HexToAddress("0x1F98431c8aD98523631AE4a59f267346ea31F984")
	strayAddress   = common.HexToAddress("0x00000000219ab540356cBB839Cbe05303d7705Fa")
)

type memoryLogStore struct {
	mu        sync.Mutex
	rows      map[int64]model.LogRecord
	deletes   []int64
	countErrs int
	listErr   error
	listCalls int
}

func newMemoryLogStore(records ...model.LogRecord) *memoryLogStore {
	store := &memoryLogStore{rows: make(map[int64]model.LogRecord)}
	for _, record := range records {
		store.rows[record.ID] = record
	}
	return store
}

func (s *memoryLogStore) CreateLogs(_ context.Context, records []model.LogRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, record := range records {
		s.rows[record.ID] = record
	}
	return nil
}

func (s *memoryLogStore) ListLogs(_ context.Context, limit int) ([]model.LogRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	if s.listErr != nil {
		return nil, s.listErr
	}
	ids := make([]int64, 0, len(s.rows))
	for id := range s.rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if len(ids) > limit {
		ids = ids[:limit]
	}
	out := make([]model.LogRecord, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.rows[id])
	}
	return out, nil
}

func (s *memoryLogStore) DeleteLog(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.rows, id)
	s.deletes = append(s.deletes, id)
	return nil
}

func (s *memoryLogStore) CountLogs(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.countErrs > 0 {
		s.countErrs--
		return 0, storage.ErrDatabase
	}
	return int64(len(s.rows)), nil
}

func (s *memoryLogStore) remaining() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.rows))
	for id := range s.rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

type stubHandler struct {
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	delay    time.Duration
	fail     map[int64]error
}

func (h *stubHandler) Kind() string { return "stub" }

func (h *stubHandler) EventSignatureToName(common.Hash) (string, error) { return "Stub", nil }

func (h *stubHandler) HandleEvent(context.Context, string, types.Log) error { return nil }

func (h *stubHandler) Process(_ context.Context, record model.LogRecord) error {
	current := h.inFlight.Add(1)
	defer h.inFlight.Add(-1)
	for {
		seen := h.maxSeen.Load()
		if current <= seen || h.maxSeen.CompareAndSwap(seen, current) {
			break
		}
	}
	if h.delay > 0 {
		time.Sleep(h.delay)
	}
	return h.fail[record.ID]
}

type stubResolver struct {
	handler contracts.Handler
}

func (r stubResolver) GetProcessor(address common.Address) (contracts.Handler, error) {
	if address != factoryAddress {
		return nil, contracts.ErrUnsupportedAddress
	}
	return r.handler, nil
}

func stubRecords(n int) []model.LogRecord {
	records := make([]model.LogRecord, 0, n)
	for i := 1; i <= n; i++ {
		records = append(records, model.LogRecord{ID: int64(i), Address: factoryAddress, BlockNumber: big.NewInt(int64(i))})
	}
	return records
}

func factoryRegistry(t *testing.T) (*contracts.Registry, abi.ABI) {
	t.Helper()
	loader := descriptor.NewLoader(filepath.Join("..", "..", "artifacts"))
	parsed, err := loader.Load(contracts.UniswapV3FactoryKind)
	require.NoError(t, err)
	registry := contracts.NewRegistry(map[string]string{
		factoryAddress.Hex(): contracts.UniswapV3FactoryKind,
	}, loader, contracts.Dependencies{ChainID: 1})
	return registry, parsed
}

func poolCreatedRecord(t *testing.T, id int64, parsed abi.ABI, address common.Address) model.LogRecord {
	t.Helper()
	event := parsed.Events["PoolCreated"]
	data, err := event.Inputs.NonIndexed().Pack(big.NewInt(10), common.HexToAddress("0x0000000000000000000000000000000000000bee"))
	require.NoError(t, err)
	return model.LogRecord{
		ID:             id,
		BlockNumber:    big.NewInt(12369621),
		Address:        address,
		Data:           data,
		EventSignature: event.ID,
		Topics: [][]byte{
			event.ID.Bytes(),
			common.BytesToHash(common.HexToAddress("0x0a").Bytes()).Bytes(),
			common.BytesToHash(common.HexToAddress("0x0b").Bytes()).Bytes(),
			common.BigToHash(big.NewInt(500)).Bytes(),
		},
	}
}

func ownerChangedRecord(t *testing.T, id int64, parsed abi.ABI) model.LogRecord {
	t.Helper()
	event := parsed.Events["OwnerChanged"]
	return model.LogRecord{
		ID:             id,
		BlockNumber:    big.NewInt(12369622),
		Address:        factoryAddress,
		EventSignature: event.ID,
		Topics: [][]byte{
			event.ID.Bytes(),
			common.Hash{}.Bytes(),
			common.BytesToHash(common.HexToAddress("0x0c").Bytes()).Bytes(),
		},
	}
}

func TestProcessLogsMixedBatch(t *testing.T) {
	registry, parsed := factoryRegistry(t)
	rowA := poolCreatedRecord(t, 1, parsed, factoryAddress)
	rowB := poolCreatedRecord(t, 2, parsed, strayAddress)
	rowC := ownerChangedRecord(t, 3, parsed)
	store := newMemoryLogStore(rowA, rowB, rowC)

	result, err := New(Config{BatchSize: 100}, store, registry, nil).ProcessLogs(context.Background())
	require.NoError(t, err)

	require.Equal(t, BatchProcessed, result.Status)
	require.Equal(t, 3, result.Total)
	require.Equal(t, 1, result.Processed)
	require.Len(t, result.Errors, 2)
	require.Equal(t, int64(2), result.Errors[0].ID)
	require.ErrorIs(t, result.Errors[0].Err, contracts.ErrUnsupportedAddress)
	require.Equal(t, int64(3), result.Errors[1].ID)
	require.ErrorIs(t, result.Errors[1].Err, contracts.ErrMissingEventHandler)

	require.Equal(t, []int64{1}, store.deletes)
	require.Equal(t, []int64{2, 3}, store.remaining())
}

func TestProcessLogsEmpty(t *testing.T) {
	store := newMemoryLogStore()
	engine := New(Config{}, store, stubResolver{handler: &stubHandler{}}, nil)

	for i := 0; i < 2; i++ {
		result, err := engine.ProcessLogs(context.Background())
		require.NoError(t, err)
		require.Equal(t, NoLogsFound, result.Status)
	}
	require.Empty(t, store.deletes)
}

func TestProcessLogsDrainedIsIdempotent(t *testing.T) {
	store := newMemoryLogStore(stubRecords(5)...)
	engine := New(Config{BatchSize: 10}, store, stubResolver{handler: &stubHandler{}}, nil)

	result, err := engine.ProcessLogs(context.Background())
	require.NoError(t, err)
	require.Equal(t, 5, result.Processed)

	for i := 0; i < 2; i++ {
		result, err = engine.ProcessLogs(context.Background())
		require.NoError(t, err)
		require.Equal(t, NoLogsFound, result.Status)
	}
	require.Len(t, store.deletes, 5)
}

func TestProcessLogsRespectsBatchSize(t *testing.T) {
	store := newMemoryLogStore(stubRecords(25)...)
	engine := New(Config{BatchSize: 10}, store, stubResolver{handler: &stubHandler{}}, nil)

	result, err := engine.ProcessLogs(context.Background())
	require.NoError(t, err)
	require.Equal(t, 10, result.Total)
	require.Equal(t, 10, result.Processed)
	require.Len(t, store.remaining(), 15)
}

func TestProcessLogsFailedRowsStayPending(t *testing.T) {
	handlerErr := errors.New("decode failed")
	handler := &stubHandler{fail: map[int64]error{2: handlerErr, 4: handlerErr}}
	store := newMemoryLogStore(stubRecords(5)...)

	result, err := New(Config{}, store, stubResolver{handler: handler}, nil).ProcessLogs(context.Background())
	require.NoError(t, err)
	require.Equal(t, 5, result.Total)
	require.Equal(t, 3, result.Processed)
	require.Len(t, result.Errors, 2)
	require.Equal(t, []int64{2, 4}, store.remaining())

	// failed rows are retried on the next call
	result, err = New(Config{}, store, stubResolver{handler: handler}, nil).ProcessLogs(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, result.Total)
	require.Zero(t, result.Processed)
}

func TestProcessLogsConcurrencyCap(t *testing.T) {
	handler := &stubHandler{delay: 20 * time.Millisecond}
	store := newMemoryLogStore(stubRecords(40)...)

	result, err := New(Config{BatchSize: 40}, store, stubResolver{handler: handler}, nil).ProcessLogs(context.Background())
	require.NoError(t, err)
	require.Equal(t, 40, result.Processed)
	require.LessOrEqual(t, handler.maxSeen.Load(), int32(DefaultConcurrency))
	require.Greater(t, handler.maxSeen.Load(), int32(1))
}

func TestProcessLogsListFailure(t *testing.T) {
	store := newMemoryLogStore()
	store.listErr = storage.ErrDatabase

	_, err := New(Config{}, store, stubResolver{handler: &stubHandler{}}, nil).ProcessLogs(context.Background())
	require.ErrorIs(t, err, storage.ErrDatabase)
}

func TestRunDrainsBacklog(t *testing.T) {
	store := newMemoryLogStore(stubRecords(35)...)
	store.countErrs = 2
	engine := New(Config{BatchSize: 10, PollInterval: 10 * time.Millisecond}, store, stubResolver{handler: &stubHandler{}}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	err := engine.Run(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Empty(t, store.remaining())
	require.Len(t, store.deletes, 35)
}

func (s *memoryLogStore) lists() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listCalls
}

func TestRunRechecksFailedBatchWithoutSleeping(t *testing.T) {
	handler := &stubHandler{fail: map[int64]error{1: errors.New("unsupported contract")}}
	store := newMemoryLogStore(stubRecords(1)...)
	engine := New(Config{BatchSize: 10, PollInterval: time.Second}, store, stubResolver{handler: handler}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	err := engine.Run(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Greater(t, store.lists(), 1)
	require.Equal(t, []int64{1}, store.remaining())
}

func TestRunRetriesListFailureWithoutSleeping(t *testing.T) {
	store := newMemoryLogStore(stubRecords(1)...)
	store.listErr = storage.ErrDatabase
	engine := New(Config{PollInterval: time.Second}, store, stubResolver{handler: &stubHandler{}}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	require.ErrorIs(t, engine.Run(ctx), context.DeadlineExceeded)
	require.Greater(t, store.lists(), 1)
}
