package postgres

import (
	"context"
	"errors"
	"math/big"
	"os"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"evmlogindexer/internal/model"
	"evmlogindexer/internal/storage"
)

// setupTestStore connects to INDEXER_TEST_PG_DSN, migrates it and empties every table.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	dsn := os.Getenv("INDEXER_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("INDEXER_TEST_PG_DSN not set")
	}

	_, err := MigrateUp(dsn)
	require.NoError(t, err)

	ctx := context.Background()
	store, err := NewStore(ctx, dsn, 4)
	require.NoError(t, err)
	t.Cleanup(store.Close)

	_, err = store.pool.Exec(ctx, `TRUNCATE evm_logs, evm_sync_logs, pools, evm_chains`)
	require.NoError(t, err)
	_, err = store.pool.Exec(ctx, `INSERT INTO evm_chains (id, name, block_time) VALUES (1, 'mainnet', 12)`)
	require.NoError(t, err)

	return store
}

func TestStoreChains(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	chain, err := store.FetchChain(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "mainnet", chain.Name)
	require.Equal(t, uint32(12), chain.BlockTime)

	chain, err = store.UpdateChainLastSyncedBlock(ctx, 1, 42)
	require.NoError(t, err)
	require.Equal(t, uint64(42), chain.LastSyncedBlockNumber)

	_, err = store.FetchChain(ctx, 999)
	require.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestStoreCheckpoints(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	addr := common.HexToAddress("0x1f98431c8ad98523631ae4a59f267346ea31f984")

	cp, err := store.FindOrCreateCheckpoint(ctx, addr, 1)
	require.NoError(t, err)
	require.Equal(t, addr, cp.Address)
	require.Zero(t, cp.LastSyncedBlockNumber)

	cp, err = store.UpdateCheckpoint(ctx, addr, 500)
	require.NoError(t, err)
	require.Equal(t, uint64(500), cp.LastSyncedBlockNumber)

	// a second lookup must return the existing row, not reset it
	cp, err = store.FindOrCreateCheckpoint(ctx, addr, 1)
	require.NoError(t, err)
	require.Equal(t, uint64(500), cp.LastSyncedBlockNumber)

	_, err = store.UpdateCheckpoint(ctx, common.HexToAddress("0x02"), 1)
	require.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestStoreLogs(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	count, err := store.CountLogs(ctx)
	require.NoError(t, err)
	require.Zero(t, count)

	signature := common.HexToHash("0x783cca1c0412dd0d695e784568c96da2e9c22ff989357a2e8b1d9b2b4e6b7118")
	record := model.LogRecord{
		BlockNumber:      big.NewInt(1000),
		BlockHash:        common.HexToHash("0xabc"),
		Address:          common.HexToAddress("0x1f98431c8ad98523631ae4a59f267346ea31f984"),
		TransactionHash:  common.HexToHash("0xdef"),
		TransactionIndex: 3,
		LogIndex:         9,
		Data:             []byte{0x01, 0x02},
		EventSignature:   signature,
		Topics:           [][]byte{signature.Bytes(), common.HexToHash("0x01").Bytes()},
	}
	// duplicates are accepted
	require.NoError(t, store.CreateLogs(ctx, []model.LogRecord{record, record}))

	count, err = store.CountLogs(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), count)

	listed, err := store.ListLogs(ctx, 1)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Equal(t, record.Address, listed[0].Address)
	require.Equal(t, 0, listed[0].BlockNumber.Cmp(record.BlockNumber))
	require.Equal(t, record.Topics, listed[0].Topics)
	require.Equal(t, record.EventSignature, listed[0].EventSignature)

	require.NoError(t, store.DeleteLog(ctx, listed[0].ID))
	count, err = store.CountLogs(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

func TestStoreUpsertPools(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	pool := model.Pool{
		ChainID:        1,
		Address:        "0x8ad599c3a0ff1de082011efddc58f1908eb6e6d8",
		Factory:        "0x1f98431c8ad98523631ae4a59f267346ea31f984",
		Token0:         "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48",
		Token1:         "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2",
		Fee:            3000,
		TickSpacing:    60,
		FirstSeenBlock: 200,
	}
	require.NoError(t, store.UpsertPools(ctx, []model.Pool{pool}))

	pool.FirstSeenBlock = 100
	require.NoError(t, store.UpsertPools(ctx, []model.Pool{pool}))

	pool.FirstSeenBlock = 300
	require.NoError(t, store.UpsertPools(ctx, []model.Pool{pool}))

	var firstSeen int64
	err := store.pool.QueryRow(ctx, `SELECT first_seen_block FROM pools WHERE pool_address = $1`, pool.Address).Scan(&firstSeen)
	require.NoError(t, err)
	require.Equal(t, int64(100), firstSeen)
}
