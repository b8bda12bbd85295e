package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"

	"evmlogindexer/internal/model"
	"evmlogindexer/internal/storage"
)

const checkpointColumns = `address, chain_id, last_synced_block_number, created_at, updated_at`

// FindOrCreateCheckpoint returns the checkpoint for address, inserting a zero checkpoint when absent.
func (s *Store) FindOrCreateCheckpoint(ctx context.Context, address common.Address, chainID uint64) (cp model.SyncCheckpoint, err error) {
	defer observe("find_or_create_checkpoint", time.Now(), &err)

	// ON CONFLICT keeps concurrent first crawls of the same address from creating two rows.
	if _, err := s.pool.Exec(ctx, `
		INSERT INTO evm_sync_logs (address, chain_id, last_synced_block_number, created_at, updated_at)
		VALUES ($1, $2, 0, now(), now())
		ON CONFLICT (address) DO NOTHING
	`, address.Bytes(), int64(chainID)); err != nil {
		return model.SyncCheckpoint{}, dbError("create checkpoint", err)
	}

	row := s.pool.QueryRow(ctx, `SELECT `+checkpointColumns+` FROM evm_sync_logs WHERE address = $1`, address.Bytes())
	return scanCheckpoint(row, address)
}

// UpdateCheckpoint moves the checkpoint of address to blockNumber.
func (s *Store) UpdateCheckpoint(ctx context.Context, address common.Address, blockNumber uint64) (cp model.SyncCheckpoint, err error) {
	defer observe("update_checkpoint", time.Now(), &err)

	row := s.pool.QueryRow(ctx, `
		UPDATE evm_sync_logs SET last_synced_block_number = $1, updated_at = now()
		WHERE address = $2
		RETURNING `+checkpointColumns,
		int64(blockNumber), address.Bytes(),
	)
	return scanCheckpoint(row, address)
}

func scanCheckpoint(row pgx.Row, address common.Address) (model.SyncCheckpoint, error) {
	var (
		rawAddress []byte
		chainID    int64
		lastBlock  int64
		cp         model.SyncCheckpoint
	)
	if err := row.Scan(&rawAddress, &chainID, &lastBlock, &cp.CreatedAt, &cp.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.SyncCheckpoint{}, fmt.Errorf("checkpoint %s: %w", address.Hex(), storage.ErrNotFound)
		}
		return model.SyncCheckpoint{}, dbError("scan checkpoint", err)
	}
	if len(rawAddress) != common.AddressLength {
		return model.SyncCheckpoint{}, dbError("scan checkpoint", fmt.Errorf("address has %d bytes", len(rawAddress)))
	}
	cp.Address = common.BytesToAddress(rawAddress)
	cp.ChainID = uint64(chainID)
	cp.LastSyncedBlockNumber = uint64(lastBlock)
	return cp, nil
}
