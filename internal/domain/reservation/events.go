package reservation

import (
	"time"

	"roomly/internal/domain/catalog"
	"roomly/internal/domain/shared/dates"
	"roomly/internal/domain/shared/money"
)

type Created struct {
	ReservationID ID
	Ref           Ref
	TenantID      catalog.TenantID
	PropertyID    catalog.PropertyID
	GuestID       string
	Stay          dates.Range
	Total         money.Money
	At            time.Time
}

func (e Created) EventName() string     { return "reservation.created" }
func (e Created) AggregateID() string   { return string(e.ReservationID) }
func (e Created) OccurredAt() time.Time { return e.At }

type Confirmed struct {
	ReservationID ID
	Ref           Ref
	At            time.Time
}

func (e Confirmed) EventName() string     { return "reservation.confirmed" }
func (e Confirmed) AggregateID() string   { return string(e.ReservationID) }
func (e Confirmed) OccurredAt() time.Time { return e.At }

type CheckedIn struct {
	ReservationID ID
	Ref           Ref
	At            time.Time
}

func (e CheckedIn) EventName() string     { return "reservation.checked_in" }
func (e CheckedIn) AggregateID() string   { return string(e.ReservationID) }
func (e CheckedIn) OccurredAt() time.Time { return e.At }

type CheckedOut struct {
	ReservationID ID
	Ref           Ref
	At            time.Time
}

func (e CheckedOut) EventName() string     { return "reservation.checked_out" }
func (e CheckedOut) AggregateID() string   { return string(e.ReservationID) }
func (e CheckedOut) OccurredAt() time.Time { return e.At }

type Cancelled struct {
	ReservationID ID
	Ref           Ref
	Reason        string
	Refund        money.Money
	At            time.Time
}

func (e Cancelled) EventName() string     { return "reservation.cancelled" }
func (e Cancelled) AggregateID() string   { return string(e.ReservationID) }
func (e Cancelled) OccurredAt() time.Time { return e.At }

type NoShowRecorded struct {
	ReservationID ID
	Ref           Ref
	At            time.Time
}

func (e NoShowRecorded) EventName() string     { return "reservation.no_show" }
func (e NoShowRecorded) AggregateID() string   { return string(e.ReservationID) }
func (e NoShowRecorded) OccurredAt() time.Time { return e.At }
