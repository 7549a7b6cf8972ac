package assignment

import (
	"context"
	"fmt"

	"prospect_backend/internal/rolepool"
)

// AnyRegion stands in for a missing region in scope keys.
const AnyRegion = "ANY"

// Scope is the (tenant, region) pair a rotation cursor is kept for.
type Scope struct {
	TenantID string
	Region   string
}

// NewScope builds a scope, substituting AnyRegion for an empty region.
func NewScope(tenantID, region string) Scope {
	if region == "" {
		region = AnyRegion
	}
	return Scope{TenantID: tenantID, Region: region}
}

// Key is the storage key of the scope's cursor.
func (s Scope) Key() string {
	return s.TenantID + "__" + s.Region
}

// NextIndex is the rotation rule: start at 0, then step by one modulo the pool size.
func NextIndex(lastIndex int, exists bool, poolSize int) int {
	if !exists || poolSize <= 0 {
		return 0
	}
	next := (lastIndex + 1) % poolSize
	if next < 0 {
		next += poolSize
	}
	return next
}

// PoolResolver returns the eligible owners of a scope in stable order.
type PoolResolver interface {
	ResolvePool(ctx context.Context, tenantID, region string) ([]rolepool.Entry, error)
}

// CursorStore advances a scope's cursor in one atomic read-modify-write and
// returns the selected index. Implementations must apply NextIndex.
type CursorStore interface {
	Advance(ctx context.Context, scope Scope, poolSize int) (int, error)
}

// Assigner hands out owners in round-robin order per scope.
type Assigner struct {
	pools   PoolResolver
	cursors CursorStore
}

// NewAssigner creates an assigner.
func NewAssigner(pools PoolResolver, cursors CursorStore) *Assigner {
	return &Assigner{pools: pools, cursors: cursors}
}

// Assign returns the next owner for the scope, or nil when nobody is eligible.
// The cursor is only touched when the pool is non-empty.
func (a *Assigner) Assign(ctx context.Context, tenantID, region string) (*rolepool.Entry, error) {
	pool, err := a.pools.ResolvePool(ctx, tenantID, region)
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		return nil, nil
	}

	scope := NewScope(tenantID, region)
	idx, err := a.cursors.Advance(ctx, scope, len(pool))
	if err != nil {
		return nil, fmt.Errorf("advance rotation cursor %s: %w", scope.Key(), err)
	}
	if idx < 0 || idx >= len(pool) {
		return nil, fmt.Errorf("rotation cursor %s returned index %d for pool of %d", scope.Key(), idx, len(pool))
	}

	owner := pool[idx]
	return &owner, nil
}
