package rates

import (
	"context"

	"roomly/internal/domain/catalog"
	"roomly/internal/domain/shared/dates"
	"roomly/internal/domain/shared/money"
)

// NightQuote is the resolved price for a single calendar night.
type NightQuote struct {
	Date       dates.Date         `json:"date"`
	RatePlanID catalog.RatePlanID `json:"rate_plan_id,omitempty"`
	Price      money.Money        `json:"price"`
}

// ResolveNight selects the authoritative rate plan for one night and composes
// the nightly price.
//
// Selection: among plans whose window contains the date, the highest priority
// wins; ties go to the most recently created plan so pricing stays
// deterministic. Without a match the property base price applies unmodified.
// A matching plan with a zero nightly amount prices off the base price, so an
// open-ended "default" plan can attach weekday modifiers to the base rate.
func ResolveNight(property *catalog.Property, plans []*catalog.RatePlan, date dates.Date) NightQuote {
	var selected *catalog.RatePlan
	for _, plan := range plans {
		if plan.PropertyID != property.ID || !plan.Covers(date) {
			continue
		}
		if selected == nil ||
			plan.Priority > selected.Priority ||
			(plan.Priority == selected.Priority && plan.CreatedAt.After(selected.CreatedAt)) {
			selected = plan
		}
	}
	if selected == nil {
		return NightQuote{Date: date, Price: property.BasePrice}
	}
	base := selected.PricePerNight
	if base.IsZero() {
		base = property.BasePrice
	}
	return NightQuote{
		Date:       date,
		RatePlanID: selected.ID,
		Price:      base.MulRound(selected.ModifierFor(date.Weekday())),
	}
}

// Resolver answers single-night price queries against the catalog.
type Resolver struct {
	Properties catalog.PropertyRepository
	Plans      catalog.RatePlanRepository
}

// Resolve prices one night of one property. Pure read; fails only when the
// property is unknown or the catalog cannot be reached.
func (r *Resolver) Resolve(ctx context.Context, tenant catalog.TenantID, id catalog.PropertyID, date dates.Date) (NightQuote, error) {
	property, err := r.Properties.ByID(ctx, tenant, id)
	if err != nil {
		return NightQuote{}, err
	}
	plans, err := r.Plans.ByProperty(ctx, tenant, id)
	if err != nil {
		return NightQuote{}, err
	}
	return ResolveNight(property, plans, date), nil
}
