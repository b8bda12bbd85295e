package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"evmlogindexer/internal/model"
	"evmlogindexer/internal/storage"
)

const chainColumns = `id, name, last_synced_block_number, block_time, created_at, updated_at`

// FetchChain returns chain metadata by id.
func (s *Store) FetchChain(ctx context.Context, id uint64) (chain model.Chain, err error) {
	defer observe("fetch_chain", time.Now(), &err)

	row := s.pool.QueryRow(ctx, `SELECT `+chainColumns+` FROM evm_chains WHERE id = $1`, int64(id))
	return scanChain(row, id)
}

// UpdateChainLastSyncedBlock sets the chain-level checkpoint.
func (s *Store) UpdateChainLastSyncedBlock(ctx context.Context, id uint64, blockNumber uint64) (chain model.Chain, err error) {
	defer observe("update_chain", time.Now(), &err)

	row := s.pool.QueryRow(ctx, `
		UPDATE evm_chains SET last_synced_block_number = $1, updated_at = now()
		WHERE id = $2
		RETURNING `+chainColumns,
		int64(blockNumber), int64(id),
	)
	return scanChain(row, id)
}

func scanChain(row pgx.Row, id uint64) (model.Chain, error) {
	var (
		chainID   int64
		lastBlock int64
		blockTime int32
		chain     model.Chain
	)
	if err := row.Scan(&chainID, &chain.Name, &lastBlock, &blockTime, &chain.CreatedAt, &chain.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Chain{}, fmt.Errorf("chain %d: %w", id, storage.ErrNotFound)
		}
		return model.Chain{}, dbError("scan chain", err)
	}
	chain.ID = uint64(chainID)
	chain.LastSyncedBlockNumber = uint64(lastBlock)
	chain.BlockTime = uint32(blockTime)
	return chain, nil
}
