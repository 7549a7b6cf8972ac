// Package assignment picks owners for unassigned prospects using a durable
// round-robin cursor per tenant and region.
package assignment

import (
	"context"
	"fmt"
	"sort"

	"prospect_backend/internal/rolepool"

	"golang.org/x/sync/singleflight"
)

// Resolver filters the role pool down to the entries eligible for a scope.
type Resolver struct {
	source rolepool.Source
	group  singleflight.Group
}

// NewResolver creates a resolver over source.
func NewResolver(source rolepool.Source) *Resolver {
	return &Resolver{source: source}
}

// ResolvePool returns the eligible entries for tenantID and region, sorted by
// owner id. Concurrent callers share one fetch of the underlying pool.
// An empty result is not an error.
func (r *Resolver) ResolvePool(ctx context.Context, tenantID, region string) ([]rolepool.Entry, error) {
	v, err, _ := r.group.Do("pool", func() (any, error) {
		return r.source.ListEntries(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("list role pool: %w", err)
	}

	all := v.([]rolepool.Entry)
	eligible := make([]rolepool.Entry, 0, len(all))
	for _, e := range all {
		if e.CanOwn(tenantID) && e.CoversRegion(region) {
			eligible = append(eligible, e)
		}
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].OwnerID < eligible[j].OwnerID
	})
	return eligible, nil
}
