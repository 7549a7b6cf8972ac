package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("prospect not found")

// DefaultChunkSize bounds the statements sent in one pgx batch.
const DefaultChunkSize = 500

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type Repository struct {
	pool      *pgxpool.Pool
	chunkSize int
}

// New creates the Postgres store. chunkSize <= 0 falls back to DefaultChunkSize.
func New(pool *pgxpool.Pool, chunkSize int) *Repository {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Repository{pool: pool, chunkSize: chunkSize}
}
