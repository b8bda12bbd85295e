package model

import "time"

// Chain is the per-chain metadata row seeded by migrations.
type Chain struct {
	ID                    uint64
	Name                  string
	LastSyncedBlockNumber uint64
	// BlockTime is the minimum number of seconds between two polls of the same address.
	BlockTime uint32
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PollInterval returns BlockTime as a duration.
func (c Chain) PollInterval() time.Duration {
	return time.Duration(c.BlockTime) * time.Second
}
