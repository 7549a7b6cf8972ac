package repository

import (
	"context"
	"fmt"

	"prospect_backend/internal/prospects/batch"
	"prospect_backend/internal/prospects/domain"

	"github.com/jackc/pgx/v5"
)

// ScoringTx is the view a recalculation run gets of its transaction.
type ScoringTx interface {
	// ListForScoring returns every prospect of every tenant, locked for update.
	ListForScoring(ctx context.Context) ([]domain.Prospect, error)
	// Apply sends writes inside the run's transaction.
	Apply(ctx context.Context, writes []batch.Write) error
}

type pgScoringTx struct {
	tx        pgx.Tx
	chunkSize int
}

func (t *pgScoringTx) ListForScoring(ctx context.Context) ([]domain.Prospect, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT tenant_id, id, score, stage, last_contacted_at
		FROM prospects
		ORDER BY tenant_id, id
		FOR UPDATE
	`)
	if err != nil {
		return nil, fmt.Errorf("list prospects for scoring: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Prospect, 0)
	for rows.Next() {
		var (
			p     domain.Prospect
			stage string
		)
		if err := rows.Scan(&p.TenantID, &p.ID, &p.Score, &stage, &p.LastContactedAt); err != nil {
			return nil, err
		}
		p.Stage = domain.Stage(stage)
		items = append(items, p)
	}
	return items, rows.Err()
}

func (t *pgScoringTx) Apply(ctx context.Context, writes []batch.Write) error {
	return applyWrites(ctx, t.tx, writes, t.chunkSize)
}

// RunScoring runs fn inside one transaction and commits when it returns nil.
// Reads and writes of a run are therefore a single atomic unit.
func (r *Repository) RunScoring(ctx context.Context, fn func(ctx context.Context, tx ScoringTx) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin scoring tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, &pgScoringTx{tx: tx, chunkSize: r.chunkSize}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit scoring tx: %w", err)
	}
	return nil
}
