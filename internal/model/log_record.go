package model

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var (
	// ErrInvalidLogData is returned when stored log fields cannot be reassembled into a log.
	ErrInvalidLogData = errors.New("invalid log data")
	// ErrInvalidBlockNumber is returned when a stored block number does not fit in uint64.
	ErrInvalidBlockNumber = errors.New("invalid block number")
)

// maxTopics is the EVM limit on topics per log (LOG0..LOG4).
const maxTopics = 4

// LogRecord is a pending event log row. Its existence means it has not been dispatched yet.
type LogRecord struct {
	ID               int64
	BlockNumber      *big.Int
	BlockHash        common.Hash
	Address          common.Address
	TransactionHash  common.Hash
	TransactionIndex uint64
	LogIndex         uint64
	Data             []byte
	EventSignature   common.Hash
	Topics           [][]byte
	Removed          bool
	CreatedAt        time.Time
}

// NewLogRecord derives a storable record from a fetched log.
func NewLogRecord(log types.Log) (LogRecord, error) {
	if len(log.Topics) == 0 {
		return LogRecord{}, fmt.Errorf("%w: log %s:%d has no topics", ErrInvalidLogData, log.TxHash.Hex(), log.Index)
	}

	topics := make([][]byte, 0, len(log.Topics))
	for _, topic := range log.Topics {
		topics = append(topics, topic.Bytes())
	}

	return LogRecord{
		BlockNumber:      new(big.Int).SetUint64(log.BlockNumber),
		BlockHash:        log.BlockHash,
		Address:          log.Address,
		TransactionHash:  log.TxHash,
		TransactionIndex: uint64(log.TxIndex),
		LogIndex:         uint64(log.Index),
		Data:             common.CopyBytes(log.Data),
		EventSignature:   log.Topics[0],
		Topics:           topics,
		// reorgs are not tracked, every ingested log is stored as canonical
		Removed: false,
	}, nil
}

// ToLog reassembles the typed chain log from the stored raw fields.
func (r LogRecord) ToLog() (types.Log, error) {
	if len(r.Topics) > maxTopics {
		return types.Log{}, fmt.Errorf("%w: %d topics", ErrInvalidLogData, len(r.Topics))
	}

	topics := make([]common.Hash, 0, len(r.Topics))
	for i, topic := range r.Topics {
		if len(topic) != common.HashLength {
			return types.Log{}, fmt.Errorf("%w: topic %d has %d bytes", ErrInvalidLogData, i, len(topic))
		}
		topics = append(topics, common.BytesToHash(topic))
	}

	if r.BlockNumber == nil || r.BlockNumber.Sign() < 0 || !r.BlockNumber.IsUint64() {
		return types.Log{}, fmt.Errorf("%w: `%s`", ErrInvalidBlockNumber, r.BlockNumber)
	}

	return types.Log{
		Address:     r.Address,
		Topics:      topics,
		Data:        common.CopyBytes(r.Data),
		BlockNumber: r.BlockNumber.Uint64(),
		TxHash:      r.TransactionHash,
		TxIndex:     uint(r.TransactionIndex),
		BlockHash:   r.BlockHash,
		Index:       uint(r.LogIndex),
		Removed:     r.Removed,
	}, nil
}
