package model

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// SyncCheckpoint is the persisted high-water mark for one monitored address.
type SyncCheckpoint struct {
	Address               common.Address
	ChainID               uint64
	LastSyncedBlockNumber uint64
	CreatedAt             time.Time
	UpdatedAt             time.Time
}
