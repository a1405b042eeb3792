package dto

import (
	"roomly/internal/domain/availability"
	"roomly/internal/domain/rates"
	"roomly/internal/domain/shared/money"
)

type MoneyDTO struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

func MapMoney(value money.Money) MoneyDTO {
	return MoneyDTO{Amount: value.Amount, Currency: value.Currency}
}

type NightPriceDTO struct {
	Date       string   `json:"date"`
	RatePlanID string   `json:"rate_plan_id,omitempty"`
	Price      MoneyDTO `json:"modified_price"`
}

type PropertySummaryDTO struct {
	Slug      string `json:"slug"`
	Name      string `json:"name"`
	MaxGuests int    `json:"max_guests"`
	Beds      int    `json:"beds"`
	Bathrooms int    `json:"bathrooms"`
}

type OfferDTO struct {
	Property         PropertySummaryDTO `json:"property"`
	Nights           int                `json:"nights"`
	NightlyBreakdown []NightPriceDTO    `json:"nightly_breakdown"`
	Subtotal         MoneyDTO           `json:"subtotal"`
	Currency         string             `json:"currency"`
}

type OfferCollection struct {
	Items []OfferDTO `json:"items"`
}

func MapNightPrice(quote rates.NightQuote) NightPriceDTO {
	return NightPriceDTO{
		Date:       quote.Date.String(),
		RatePlanID: string(quote.RatePlanID),
		Price:      MapMoney(quote.Price),
	}
}

func MapOffer(offer availability.Offer) OfferDTO {
	nightly := make([]NightPriceDTO, 0, len(offer.Nightly))
	for _, quote := range offer.Nightly {
		nightly = append(nightly, MapNightPrice(quote))
	}
	return OfferDTO{
		Property: PropertySummaryDTO{
			Slug:      offer.Property.Slug,
			Name:      offer.Property.Name,
			MaxGuests: offer.Property.Capacity.MaxGuests,
			Beds:      offer.Property.Capacity.Beds,
			Bathrooms: offer.Property.Capacity.Bathrooms,
		},
		Nights:           offer.Nights,
		NightlyBreakdown: nightly,
		Subtotal:         MapMoney(offer.Subtotal),
		Currency:         offer.Currency,
	}
}

func MapOffers(offers []availability.Offer) OfferCollection {
	items := make([]OfferDTO, 0, len(offers))
	for _, offer := range offers {
		items = append(items, MapOffer(offer))
	}
	return OfferCollection{Items: items}
}
