package rolepool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSource reads the owner_pool table.
type PostgresSource struct {
	pool *pgxpool.Pool
}

// NewPostgresSource creates a source backed by pool.
func NewPostgresSource(pool *pgxpool.Pool) *PostgresSource {
	return &PostgresSource{pool: pool}
}

// ListEntries returns every row ordered by owner id.
func (s *PostgresSource) ListEntries(ctx context.Context) ([]Entry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT owner_id, display_name, email, tenants, regions
		FROM owner_pool
		ORDER BY owner_id`)
	if err != nil {
		return nil, fmt.Errorf("query owner pool: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		var (
			e           Entry
			tenantsJSON []byte
			regionsJSON []byte
		)
		if err := rows.Scan(&e.OwnerID, &e.DisplayName, &e.Email, &tenantsJSON, &regionsJSON); err != nil {
			return nil, fmt.Errorf("scan owner pool row: %w", err)
		}
		if err := json.Unmarshal(tenantsJSON, &e.Tenants); err != nil {
			return nil, fmt.Errorf("decode tenants of %s: %w", e.OwnerID, err)
		}
		if len(regionsJSON) > 0 {
			if err := json.Unmarshal(regionsJSON, &e.Regions); err != nil {
				return nil, fmt.Errorf("decode regions of %s: %w", e.OwnerID, err)
			}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate owner pool: %w", err)
	}
	return entries, nil
}
