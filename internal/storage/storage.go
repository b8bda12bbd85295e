package storage

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"

	"evmlogindexer/internal/model"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDatabase wraps connection, constraint and decode failures.
	ErrDatabase = errors.New("database error")
)

// ChainStore reads chain metadata.
type ChainStore interface {
	FetchChain(ctx context.Context, id uint64) (model.Chain, error)
	UpdateChainLastSyncedBlock(ctx context.Context, id uint64, blockNumber uint64) (model.Chain, error)
}

// CheckpointStore persists per-address sync checkpoints.
type CheckpointStore interface {
	// FindOrCreateCheckpoint returns the checkpoint for address, creating it at block 0 when absent.
	FindOrCreateCheckpoint(ctx context.Context, address common.Address, chainID uint64) (model.SyncCheckpoint, error)
	UpdateCheckpoint(ctx context.Context, address common.Address, blockNumber uint64) (model.SyncCheckpoint, error)
}

// LogStore holds pending log rows. Deleting a row acknowledges it.
type LogStore interface {
	CreateLogs(ctx context.Context, records []model.LogRecord) error
	ListLogs(ctx context.Context, limit int) ([]model.LogRecord, error)
	DeleteLog(ctx context.Context, id int64) error
	CountLogs(ctx context.Context) (int64, error)
}

// PoolStore records pools discovered from factory events.
type PoolStore interface {
	UpsertPools(ctx context.Context, pools []model.Pool) error
}
