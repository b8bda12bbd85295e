package postgres

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"

	"evmlogindexer/internal/model"
)

// CreateLogs inserts all records in one batch. A failing row aborts the whole batch.
func (s *Store) CreateLogs(ctx context.Context, records []model.LogRecord) (err error) {
	if len(records) == 0 {
		return nil
	}
	defer observe("create_logs", time.Now(), &err)

	batch := &pgx.Batch{}
	for _, record := range records {
		if record.BlockNumber == nil {
			return dbError("create log", fmt.Errorf("missing block number for tx %s", record.TransactionHash.Hex()))
		}
		batch.Queue(`
			INSERT INTO evm_logs (
				block_hash, block_number, address, transaction_hash,
				transaction_index, event_signature, topics, data,
				log_index, removed
			) VALUES ($1, CAST($2::text AS numeric), $3, $4, $5, $6, $7, $8, $9, $10)
		`,
			record.BlockHash.Bytes(),
			record.BlockNumber.String(),
			record.Address.Bytes(),
			record.TransactionHash.Bytes(),
			int64(record.TransactionIndex),
			record.EventSignature.Bytes(),
			record.Topics,
			record.Data,
			int64(record.LogIndex),
			record.Removed,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range records {
		if _, err := br.Exec(); err != nil {
			return dbError("create log", err)
		}
	}
	return nil
}

// ListLogs returns up to limit pending rows, oldest first.
func (s *Store) ListLogs(ctx context.Context, limit int) (records []model.LogRecord, err error) {
	defer observe("list_logs", time.Now(), &err)

	rows, err := s.pool.Query(ctx, `
		SELECT id, block_number::text, block_hash, address, transaction_hash,
			transaction_index, log_index, data, event_signature, topics, removed, created_at
		FROM evm_logs
		ORDER BY id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, dbError("list logs", err)
	}
	defer rows.Close()

	for rows.Next() {
		record, err := scanLogRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("list logs", err)
	}
	return records, nil
}

// DeleteLog removes a dispatched row.
func (s *Store) DeleteLog(ctx context.Context, id int64) (err error) {
	defer observe("delete_log", time.Now(), &err)

	if _, err := s.pool.Exec(ctx, `DELETE FROM evm_logs WHERE id = $1`, id); err != nil {
		return dbError("delete log", err)
	}
	return nil
}

// CountLogs returns the number of pending rows.
func (s *Store) CountLogs(ctx context.Context) (count int64, err error) {
	defer observe("count_logs", time.Now(), &err)

	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM evm_logs`).Scan(&count); err != nil {
		return 0, dbError("count logs", err)
	}
	return count, nil
}

func scanLogRecord(rows pgx.Rows) (model.LogRecord, error) {
	var (
		record         model.LogRecord
		blockNumber    string
		blockHash      []byte
		address        []byte
		txHash         []byte
		eventSignature []byte
		txIndex        int64
		logIndex       int64
	)
	if err := rows.Scan(
		&record.ID,
		&blockNumber,
		&blockHash,
		&address,
		&txHash,
		&txIndex,
		&logIndex,
		&record.Data,
		&eventSignature,
		&record.Topics,
		&record.Removed,
		&record.CreatedAt,
	); err != nil {
		return model.LogRecord{}, dbError("scan log", err)
	}

	if len(address) != common.AddressLength {
		return model.LogRecord{}, dbError("scan log", fmt.Errorf("row %d: address has %d bytes", record.ID, len(address)))
	}
	for name, value := range map[string][]byte{
		"block_hash":       blockHash,
		"transaction_hash": txHash,
		"event_signature":  eventSignature,
	} {
		if len(value) != common.HashLength {
			return model.LogRecord{}, dbError("scan log", fmt.Errorf("row %d: %s has %d bytes", record.ID, name, len(value)))
		}
	}

	record.Address = common.BytesToAddress(address)
	record.BlockHash = common.BytesToHash(blockHash)
	record.TransactionHash = common.BytesToHash(txHash)
	record.EventSignature = common.BytesToHash(eventSignature)
	record.TransactionIndex = uint64(txIndex)
	record.LogIndex = uint64(logIndex)

	// numeric values that do not parse are left nil and rejected at dispatch time
	if n, ok := new(big.Int).SetString(blockNumber, 10); ok {
		record.BlockNumber = n
	}
	return record, nil
}
