package memory

import (
	"context"
	"sort"
	"sync"

	"roomly/internal/domain/catalog"
)

// CatalogRepository keeps properties and rate plans in memory. It backs tests
// and the dev store mode; production uses the mongo implementation.
type CatalogRepository struct {
	mu         sync.RWMutex
	properties map[catalog.TenantID]map[catalog.PropertyID]*catalog.Property
	plans      map[catalog.PropertyID][]*catalog.RatePlan
}

func NewCatalogRepository() *CatalogRepository {
	return &CatalogRepository{
		properties: make(map[catalog.TenantID]map[catalog.PropertyID]*catalog.Property),
		plans:      make(map[catalog.PropertyID][]*catalog.RatePlan),
	}
}

// SeedProperty registers a property; used by fixtures and tests.
func (r *CatalogRepository) SeedProperty(p *catalog.Property) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byID, ok := r.properties[p.TenantID]
	if !ok {
		byID = make(map[catalog.PropertyID]*catalog.Property)
		r.properties[p.TenantID] = byID
	}
	byID[p.ID] = p
}

// SeedRatePlan registers a rate plan for its property.
func (r *CatalogRepository) SeedRatePlan(plan *catalog.RatePlan) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plans[plan.PropertyID] = append(r.plans[plan.PropertyID], plan)
}

func (r *CatalogRepository) ByID(ctx context.Context, tenant catalog.TenantID, id catalog.PropertyID) (*catalog.Property, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.properties[tenant][id]; ok {
		return p, nil
	}
	return nil, catalog.ErrPropertyNotFound
}

func (r *CatalogRepository) BySlug(ctx context.Context, tenant catalog.TenantID, slug string) (*catalog.Property, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.properties[tenant] {
		if p.Slug == slug {
			return p, nil
		}
	}
	return nil, catalog.ErrPropertyNotFound
}

// ActiveByTenant lists the tenant's bookable properties in a stable slug order
// so repeated searches iterate identically. Maintenance and retired properties
// are filtered out here; lookups by id or slug still return them.
func (r *CatalogRepository) ActiveByTenant(ctx context.Context, tenant catalog.TenantID) ([]*catalog.Property, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	matches := make([]*catalog.Property, 0, len(r.properties[tenant]))
	for _, p := range r.properties[tenant] {
		if p.Status != catalog.PropertyAvailable {
			continue
		}
		matches = append(matches, p)
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Slug < matches[j].Slug })
	return matches, nil
}

func (r *CatalogRepository) ByProperty(ctx context.Context, tenant catalog.TenantID, id catalog.PropertyID) ([]*catalog.RatePlan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.properties[tenant][id]; !ok {
		return nil, catalog.ErrPropertyNotFound
	}
	return append([]*catalog.RatePlan(nil), r.plans[id]...), nil
}
