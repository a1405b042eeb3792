package catalog

import (
	"context"
	"errors"
	"time"

	"roomly/internal/domain/shared/money"
)

var (
	ErrPropertyNotFound  = errors.New("catalog: property not found")
	ErrCapacityExceeded  = errors.New("catalog: guest count exceeds property capacity")
	ErrInvalidGuestCount = errors.New("catalog: invalid guest breakdown")
)

type PropertyID string
type TenantID string

type PropertyStatus string

const (
	PropertyAvailable   PropertyStatus = "available"
	PropertyMaintenance PropertyStatus = "maintenance"
	PropertyRetired     PropertyStatus = "retired"
)

type CancellationPolicy string

const (
	PolicyFlexible      CancellationPolicy = "flexible"
	PolicyModerate      CancellationPolicy = "moderate"
	PolicyStrict        CancellationPolicy = "strict"
	PolicyNonRefundable CancellationPolicy = "non_refundable"
)

type Capacity struct {
	MaxGuests int
	Beds      int
	Bathrooms int
}

type Policies struct {
	CheckInTime    string
	CheckOutTime   string
	Cancellation   CancellationPolicy
	MinStay        int
	MaxStay        int
	AllowsChildren bool
	AllowsInfants  bool
	AllowsPets     bool
}

// Property is a bookable unit. The engine only reads it; all writes go through
// the external catalog-management service.
type Property struct {
	ID        PropertyID
	TenantID  TenantID
	Slug      string
	Name      string
	Capacity  Capacity
	BasePrice money.Money
	Policies  Policies
	Status    PropertyStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Bookable reports whether the property accepts new reservations at all.
func (p *Property) Bookable() bool {
	return p.Status == PropertyAvailable
}

// GuestCount is the party breakdown of a stay. Infants do not count against
// the property capacity.
type GuestCount struct {
	Adults   int
	Children int
	Infants  int
}

// Occupants is the number of guests counted against capacity.
func (g GuestCount) Occupants() int {
	return g.Adults + g.Children
}

// Validate checks the breakdown shape independent of any property.
func (g GuestCount) Validate() error {
	if g.Adults <= 0 {
		return ErrInvalidGuestCount
	}
	if g.Children < 0 || g.Infants < 0 {
		return ErrInvalidGuestCount
	}
	return nil
}

// Fits checks the party against the property's capacity and allowances.
func (g GuestCount) Fits(p *Property) error {
	if g.Occupants() > p.Capacity.MaxGuests {
		return ErrCapacityExceeded
	}
	if g.Children > 0 && !p.Policies.AllowsChildren {
		return ErrCapacityExceeded
	}
	if g.Infants > 0 && !p.Policies.AllowsInfants {
		return ErrCapacityExceeded
	}
	return nil
}

// PropertyRepository reads tenant-scoped catalog reference data. Every lookup
// takes the tenant explicitly; data must never leak across tenants.
type PropertyRepository interface {
	ByID(ctx context.Context, tenant TenantID, id PropertyID) (*Property, error)
	BySlug(ctx context.Context, tenant TenantID, slug string) (*Property, error)
	ActiveByTenant(ctx context.Context, tenant TenantID) ([]*Property, error)
}
