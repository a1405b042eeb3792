package memory

import (
	"context"
	"sync"

	"roomly/internal/domain/catalog"
	"roomly/internal/domain/reservation"
	"roomly/internal/domain/shared/dates"
)

// ReservationRepository stores reservations in memory. Create performs the
// overlap check and the insert under one write lock, so the reject-or-accept
// decision is atomic even without the engine's per-property lock.
type ReservationRepository struct {
	mu    sync.RWMutex
	items map[string]*reservation.Reservation
	byRef map[string]string
}

func NewReservationRepository() *ReservationRepository {
	return &ReservationRepository{
		items: make(map[string]*reservation.Reservation),
		byRef: make(map[string]string),
	}
}

func refKey(tenant catalog.TenantID, ref reservation.Ref) string {
	return string(tenant) + "/" + string(ref)
}

// ByRef hands out a copy so readers never share slices with a concurrent
// transition on the same reservation.
func (r *ReservationRepository) ByRef(ctx context.Context, tenant catalog.TenantID, ref reservation.Ref) (*reservation.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byRef[refKey(tenant, ref)]
	if !ok {
		return nil, reservation.ErrNotFound
	}
	return cloneReservation(r.items[id]), nil
}

func (r *ReservationRepository) Create(ctx context.Context, res *reservation.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.overlapLocked(res.TenantID, res.PropertyID, res.Stay, res.ID) {
		return reservation.ErrConflict
	}
	res.Version++
	r.items[string(res.ID)] = cloneReservation(res)
	r.byRef[refKey(res.TenantID, res.Ref)] = string(res.ID)
	return nil
}

func (r *ReservationRepository) Update(ctx context.Context, res *reservation.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[string(res.ID)]; !ok {
		return reservation.ErrNotFound
	}
	res.Version++
	r.items[string(res.ID)] = cloneReservation(res)
	return nil
}

func (r *ReservationRepository) ActiveOverlap(ctx context.Context, tenant catalog.TenantID, property catalog.PropertyID, stay dates.Range) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.overlapLocked(tenant, property, stay, ""), nil
}

func cloneReservation(res *reservation.Reservation) *reservation.Reservation {
	clone := *res
	clone.Pricing = res.Pricing.Copy()
	clone.History = append([]reservation.StatusChange(nil), res.History...)
	if res.Cancellation != nil {
		cancellation := *res.Cancellation
		clone.Cancellation = &cancellation
	}
	return &clone
}

func (r *ReservationRepository) overlapLocked(tenant catalog.TenantID, property catalog.PropertyID, stay dates.Range, exclude reservation.ID) bool {
	for _, existing := range r.items {
		if existing.TenantID != tenant || existing.PropertyID != property {
			continue
		}
		if exclude != "" && existing.ID == exclude {
			continue
		}
		if existing.Status.Active() && existing.Stay.Overlaps(stay) {
			return true
		}
	}
	return false
}
