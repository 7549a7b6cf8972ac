package repository

import (
	"context"
	"fmt"

	"prospect_backend/internal/prospects/assignment"

	"github.com/jackc/pgx/v5"
)

// Advance moves the scope's rotation cursor one step in its own transaction.
// The row is created on first use and locked with FOR UPDATE, so concurrent
// callers in the same scope serialize instead of reading the same index.
func (r *Repository) Advance(ctx context.Context, scope assignment.Scope, poolSize int) (int, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("begin cursor tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
		INSERT INTO rotation_cursors (scope_key, tenant_id, region, last_index, count, updated_at)
		VALUES ($1, $2, $3, 0, 0, now())
		ON CONFLICT (scope_key) DO NOTHING
	`, scope.Key(), scope.TenantID, scope.Region); err != nil {
		return 0, fmt.Errorf("seed cursor: %w", err)
	}

	var (
		lastIndex int
		count     int64
	)
	if err := tx.QueryRow(ctx, `
		SELECT last_index, count FROM rotation_cursors WHERE scope_key = $1 FOR UPDATE
	`, scope.Key()).Scan(&lastIndex, &count); err != nil {
		return 0, fmt.Errorf("lock cursor: %w", err)
	}

	// A freshly seeded row has never handed out an index.
	next := assignment.NextIndex(lastIndex, count > 0, poolSize)

	if _, err := tx.Exec(ctx, `
		UPDATE rotation_cursors
		SET last_index = $2, count = count + 1, updated_at = now()
		WHERE scope_key = $1
	`, scope.Key(), next); err != nil {
		return 0, fmt.Errorf("update cursor: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit cursor: %w", err)
	}
	return next, nil
}
