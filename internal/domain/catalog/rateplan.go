package catalog

import (
	"context"
	"time"

	"roomly/internal/domain/shared/dates"
	"roomly/internal/domain/shared/money"
)

type RatePlanID string

// RatePlan is a time-bounded pricing override for one property. A zero
// StartDate/EndDate pair makes the plan open-ended: it matches every date and
// serves as the property's default plan. A zero PricePerNight amount means the
// plan prices off the property base price, which is how a default plan can
// carry day-of-week modifiers without overriding the base rate.
type RatePlan struct {
	ID            RatePlanID
	PropertyID    PropertyID
	Name          string
	StartDate     dates.Date
	EndDate       dates.Date
	PricePerNight money.Money
	DayModifiers  map[time.Weekday]float64
	MinStay       int
	Priority      int
	CreatedAt     time.Time
}

// Covers reports whether the plan's validity window contains the date.
// Both window bounds are inclusive.
func (rp *RatePlan) Covers(d dates.Date) bool {
	if !rp.StartDate.IsZero() && d.Before(rp.StartDate) {
		return false
	}
	if !rp.EndDate.IsZero() && d.After(rp.EndDate) {
		return false
	}
	return true
}

// ModifierFor returns the multiplicative day-of-week modifier, 1 when the
// weekday has no entry.
func (rp *RatePlan) ModifierFor(day time.Weekday) float64 {
	if rp.DayModifiers == nil {
		return 1
	}
	if mod, ok := rp.DayModifiers[day]; ok && mod > 0 {
		return mod
	}
	return 1
}

// RatePlanRepository reads the rate plans of one property.
type RatePlanRepository interface {
	ByProperty(ctx context.Context, tenant TenantID, id PropertyID) ([]*RatePlan, error)
}
