// Package rolepool reads the externally owned pool of people that can own
// prospects. The pool is read-only to this service.
package rolepool

import (
	"context"
	"slices"
)

// Roles that make an entry eligible to own prospects in a tenant.
const (
	RoleSDR   = "sdr"
	RoleAdmin = "admin"

	// RegionAll is the wildcard region granting every region.
	RegionAll = "ALL"
)

// Entry is one person in the role pool.
type Entry struct {
	OwnerID     string            `json:"ownerId" yaml:"ownerId"`
	DisplayName string            `json:"displayName" yaml:"displayName"`
	Email       string            `json:"email" yaml:"email"`
	Tenants     map[string]string `json:"tenants" yaml:"tenants"`
	Regions     []string          `json:"regions" yaml:"regions"`
}

// CanOwn reports whether the entry holds an owning role in tenantID.
func (e Entry) CanOwn(tenantID string) bool {
	role := e.Tenants[tenantID]
	return role == RoleSDR || role == RoleAdmin
}

// CoversRegion reports whether the entry may receive work in region.
// An entry without regions is unrestricted.
func (e Entry) CoversRegion(region string) bool {
	if len(e.Regions) == 0 {
		return true
	}
	if slices.Contains(e.Regions, RegionAll) {
		return true
	}
	return region != "" && slices.Contains(e.Regions, region)
}

// Source lists every entry of the role pool.
type Source interface {
	ListEntries(ctx context.Context) ([]Entry, error)
}
