package dto

import (
	"time"

	"roomly/internal/domain/reservation"
)

type GuestCountDTO struct {
	Adults   int `json:"adults"`
	Children int `json:"children"`
	Infants  int `json:"infants"`
}

type AddOnDTO struct {
	Name   string   `json:"name"`
	Amount MoneyDTO `json:"amount"`
}

type PricingDTO struct {
	NightlyBreakdown []NightPriceDTO `json:"nightly_breakdown"`
	Subtotal         MoneyDTO        `json:"subtotal"`
	Taxes            MoneyDTO        `json:"taxes"`
	Fees             MoneyDTO        `json:"fees"`
	AddOns           []AddOnDTO      `json:"add_ons,omitempty"`
	Discount         MoneyDTO        `json:"discount"`
	Total            MoneyDTO        `json:"total"`
	Currency         string          `json:"currency"`
}

type PaymentDTO struct {
	Deposit MoneyDTO `json:"deposit"`
	Balance MoneyDTO `json:"balance"`
	Status  string   `json:"status"`
}

type CancellationDTO struct {
	Reason       string    `json:"reason"`
	CancelledAt  time.Time `json:"cancelled_at"`
	RefundAmount MoneyDTO  `json:"refund_amount"`
}

type StatusChangeDTO struct {
	Status string    `json:"status"`
	At     time.Time `json:"at"`
	Note   string    `json:"note,omitempty"`
}

type ReservationDTO struct {
	Ref           string            `json:"reservation_ref"`
	PropertyID    string            `json:"property_id"`
	GuestID       string            `json:"guest_id"`
	CheckIn       string            `json:"check_in"`
	CheckOut      string            `json:"check_out"`
	Nights        int               `json:"nights"`
	Guests        GuestCountDTO     `json:"guests"`
	Status        string            `json:"status"`
	Pricing       PricingDTO        `json:"pricing"`
	Payment       PaymentDTO        `json:"payment"`
	Cancellation  *CancellationDTO  `json:"cancellation,omitempty"`
	StatusHistory []StatusChangeDTO `json:"status_history"`
	CreatedAt     time.Time         `json:"created_at"`
}

func MapReservation(res *reservation.Reservation) ReservationDTO {
	nightly := make([]NightPriceDTO, 0, len(res.Pricing.Nightly))
	for _, quote := range res.Pricing.Nightly {
		nightly = append(nightly, MapNightPrice(quote))
	}
	addOns := make([]AddOnDTO, 0, len(res.Pricing.AddOns))
	for _, addOn := range res.Pricing.AddOns {
		addOns = append(addOns, AddOnDTO{Name: addOn.Name, Amount: MapMoney(addOn.Amount)})
	}
	history := make([]StatusChangeDTO, 0, len(res.History))
	for _, change := range res.History {
		history = append(history, StatusChangeDTO{Status: string(change.Status), At: change.At, Note: change.Note})
	}
	out := ReservationDTO{
		Ref:        string(res.Ref),
		PropertyID: string(res.PropertyID),
		GuestID:    res.GuestID,
		CheckIn:    res.Stay.CheckIn.String(),
		CheckOut:   res.Stay.CheckOut.String(),
		Nights:     res.Nights,
		Guests: GuestCountDTO{
			Adults:   res.Guests.Adults,
			Children: res.Guests.Children,
			Infants:  res.Guests.Infants,
		},
		Status: string(res.Status),
		Pricing: PricingDTO{
			NightlyBreakdown: nightly,
			Subtotal:         MapMoney(res.Pricing.Subtotal),
			Taxes:            MapMoney(res.Pricing.Taxes),
			Fees:             MapMoney(res.Pricing.Fees),
			AddOns:           addOns,
			Discount:         MapMoney(res.Pricing.Discount),
			Total:            MapMoney(res.Pricing.Total),
			Currency:         res.Pricing.Total.Currency,
		},
		Payment: PaymentDTO{
			Deposit: MapMoney(res.Payment.Deposit),
			Balance: MapMoney(res.Payment.Balance),
			Status:  string(res.Payment.Status),
		},
		StatusHistory: history,
		CreatedAt:     res.CreatedAt,
	}
	if res.Cancellation != nil {
		out.Cancellation = &CancellationDTO{
			Reason:       res.Cancellation.Reason,
			CancelledAt:  res.Cancellation.CancelledAt,
			RefundAmount: MapMoney(res.Cancellation.Refund),
		}
	}
	return out
}
