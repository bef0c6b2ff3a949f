package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"flashPool/internal/model"
)

// Store provides Postgres persistence for pools and their records.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// UpsertPools inserts or updates pool metadata.
func (s *Store) UpsertPools(ctx context.Context, pools []model.PoolInfo) error {
	if len(pools) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, p := range pools {
		batch.Queue(`
			INSERT INTO pools (
				pool_address, kind, token0, token1, shares_token, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, now(), now())
			ON CONFLICT (pool_address)
			DO UPDATE SET
				kind = EXCLUDED.kind,
				token0 = EXCLUDED.token0,
				token1 = EXCLUDED.token1,
				shares_token = EXCLUDED.shares_token,
				updated_at = now()
		`,
			p.Address,
			p.Kind,
			p.Token0,
			p.Token1,
			p.Shares,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range pools {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// PutRecordBatch inserts pool records with their payloads as JSONB.
func (s *Store) PutRecordBatch(ctx context.Context, records []model.Record) error {
	if len(records) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range records {
		payload, err := json.Marshal(r.Data)
		if err != nil {
			return fmt.Errorf("marshal record payload: %w", err)
		}
		batch.Queue(`
			INSERT INTO pool_events (
				pool_address, kind, ts, payload, created_at
			) VALUES ($1, $2, $3, $4, now())
		`,
			r.Pool,
			r.Kind,
			int64(r.Timestamp),
			payload,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range records {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}
