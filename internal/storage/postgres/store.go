package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"evmlogindexer/internal/metrics"
	"evmlogindexer/internal/model"
	"evmlogindexer/internal/storage"
)

var (
	_ storage.ChainStore      = (*Store)(nil)
	_ storage.CheckpointStore = (*Store)(nil)
	_ storage.LogStore        = (*Store)(nil)
	_ storage.PoolStore       = (*Store)(nil)
)

// Store provides Postgres persistence for chains, checkpoints, pending logs and pools.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore opens a connection pool and verifies the database is reachable.
func NewStore(ctx context.Context, dsn string, maxConns int32) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pg dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, dbError("connect", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, dbError("ping", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// UpsertPools inserts or updates pool metadata.
func (s *Store) UpsertPools(ctx context.Context, pools []model.Pool) (err error) {
	if len(pools) == 0 {
		return nil
	}
	defer observe("upsert_pools", time.Now(), &err)

	batch := &pgx.Batch{}
	for _, pool := range pools {
		batch.Queue(`
			INSERT INTO pools (
				chain_id, pool_address, factory, token0, token1, fee, tick_spacing, first_seen_block, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
			ON CONFLICT (chain_id, pool_address)
			DO UPDATE SET
				factory = EXCLUDED.factory,
				token0 = EXCLUDED.token0,
				token1 = EXCLUDED.token1,
				fee = EXCLUDED.fee,
				tick_spacing = EXCLUDED.tick_spacing,
				first_seen_block = LEAST(pools.first_seen_block, EXCLUDED.first_seen_block),
				updated_at = now()
		`,
			int64(pool.ChainID),
			pool.Address,
			pool.Factory,
			pool.Token0,
			pool.Token1,
			int64(pool.Fee),
			pool.TickSpacing,
			int64(pool.FirstSeenBlock),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range pools {
		if _, err := br.Exec(); err != nil {
			return dbError("upsert pool", err)
		}
	}
	return nil
}

func dbError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", storage.ErrDatabase, op, err)
}

func observe(operation string, start time.Time, err *error) {
	metrics.ObserveDBQuery(operation, start, *err)
}
