package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"roomly/internal/domain/catalog"
	"roomly/internal/domain/rates"
	"roomly/internal/domain/shared/dates"
	"roomly/internal/domain/shared/money"
)

var (
	ErrInvalidDateRange     = errors.New("availability: invalid date range")
	ErrStayLengthNotOffered = errors.New("availability: stay length outside min/max stay")
	ErrPropertyUnavailable  = errors.New("availability: property not open for booking")
	ErrDatesUnavailable     = errors.New("availability: requested nights already reserved")
)

// OccupancyReader answers whether any active reservation holds a night of the
// range on the property.
type OccupancyReader interface {
	ActiveOverlap(ctx context.Context, tenant catalog.TenantID, property catalog.PropertyID, stay dates.Range) (bool, error)
}

// Query is a tenant-scoped availability search.
type Query struct {
	Tenant catalog.TenantID
	Stay   dates.Range
	Guests catalog.GuestCount
}

// Offer is one bookable property with its composed stay price.
type Offer struct {
	Property *catalog.Property
	Nights   int
	Nightly  []rates.NightQuote
	Subtotal money.Money
	Currency string
}

// Calculator determines which properties are bookable for a range and party,
// and composes their nightly pricing via the rate plan selection rules.
type Calculator struct {
	Properties catalog.PropertyRepository
	Plans      catalog.RatePlanRepository
	Occupancy  OccupancyReader
	Now        func() time.Time
}

func (c *Calculator) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now().UTC()
}

// ValidateStay enforces the hard date constraints: a real range lying entirely
// in the future. Soft per-property constraints (stay length, capacity) are
// checked per offer instead.
func (c *Calculator) ValidateStay(stay dates.Range) error {
	if !stay.CheckIn.Before(stay.CheckOut) {
		return fmt.Errorf("%w: check-out must be after check-in", ErrInvalidDateRange)
	}
	today := dates.FromTime(c.now())
	if stay.CheckIn.Before(today) {
		return fmt.Errorf("%w: check-in is in the past", ErrInvalidDateRange)
	}
	return nil
}

// Search returns every bookable property of the tenant with nightly pricing.
// An empty result is not an error; only the hard date constraints fail the
// whole query.
func (c *Calculator) Search(ctx context.Context, q Query) ([]Offer, error) {
	if err := c.ValidateStay(q.Stay); err != nil {
		return nil, err
	}
	if err := q.Guests.Validate(); err != nil {
		return nil, err
	}
	properties, err := c.Properties.ActiveByTenant(ctx, q.Tenant)
	if err != nil {
		return nil, err
	}
	offers := make([]Offer, 0, len(properties))
	for _, property := range properties {
		offer, err := c.Evaluate(ctx, property, q.Stay, q.Guests)
		if err != nil {
			if isPolicyRejection(err) {
				continue
			}
			return nil, err
		}
		offers = append(offers, *offer)
	}
	return offers, nil
}

// Evaluate checks one property against the stay and party and composes its
// offer. The same path backs both search results and the availability re-check
// when a reservation is created, so the two can never disagree on what counts
// as bookable.
func (c *Calculator) Evaluate(ctx context.Context, property *catalog.Property, stay dates.Range, guests catalog.GuestCount) (*Offer, error) {
	if !property.Bookable() {
		return nil, ErrPropertyUnavailable
	}
	if err := guests.Validate(); err != nil {
		return nil, err
	}
	if err := guests.Fits(property); err != nil {
		return nil, err
	}
	nights := stay.Nights()
	if err := stayWithin(nights, property.Policies.MinStay, property.Policies.MaxStay); err != nil {
		return nil, err
	}

	plans, err := c.Plans.ByProperty(ctx, property.TenantID, property.ID)
	if err != nil {
		return nil, err
	}

	nightly := make([]rates.NightQuote, 0, nights)
	usedPlans := make(map[catalog.RatePlanID]*catalog.RatePlan)
	subtotal := money.Zero(property.BasePrice.Currency)
	for _, night := range stay.Dates() {
		quote := rates.ResolveNight(property, plans, night)
		nightly = append(nightly, quote)
		if quote.RatePlanID != "" {
			for _, plan := range plans {
				if plan.ID == quote.RatePlanID {
					usedPlans[plan.ID] = plan
				}
			}
		}
		subtotal, err = subtotal.Add(quote.Price)
		if err != nil {
			return nil, err
		}
	}
	// Every rate plan touched by the stay must accept its length.
	for _, plan := range usedPlans {
		if err := stayWithin(nights, plan.MinStay, 0); err != nil {
			return nil, err
		}
	}

	taken, err := c.Occupancy.ActiveOverlap(ctx, property.TenantID, property.ID, stay)
	if err != nil {
		return nil, err
	}
	if taken {
		// Full-range atomicity: one blocked night excludes the property.
		return nil, ErrDatesUnavailable
	}

	return &Offer{
		Property: property,
		Nights:   nights,
		Nightly:  nightly,
		Subtotal: subtotal,
		Currency: subtotal.Currency,
	}, nil
}

func stayWithin(nights, minStay, maxStay int) error {
	if minStay > 0 && nights < minStay {
		return fmt.Errorf("%w: %d nights below minimum %d", ErrStayLengthNotOffered, nights, minStay)
	}
	if maxStay > 0 && nights > maxStay {
		return fmt.Errorf("%w: %d nights above maximum %d", ErrStayLengthNotOffered, nights, maxStay)
	}
	return nil
}

// isPolicyRejection separates "this property does not qualify" from
// infrastructure failures while iterating a search.
func isPolicyRejection(err error) bool {
	return errors.Is(err, ErrPropertyUnavailable) ||
		errors.Is(err, ErrStayLengthNotOffered) ||
		errors.Is(err, ErrDatesUnavailable) ||
		errors.Is(err, catalog.ErrCapacityExceeded) ||
		errors.Is(err, money.ErrCurrencyMismatch)
}
