package reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"roomly/internal/domain/catalog"
	"roomly/internal/domain/rates"
	"roomly/internal/domain/shared/dates"
	"roomly/internal/domain/shared/events"
	"roomly/internal/domain/shared/money"
)

var (
	ErrNotFound          = errors.New("reservation: not found")
	ErrConflict          = errors.New("reservation: requested nights already reserved")
	ErrInvalidTransition = errors.New("reservation: invalid status transition")
	ErrGuestRequired     = errors.New("reservation: guest id required")
	ErrInvalidAddOn      = errors.New("reservation: invalid add-on")
	ErrNoShowTooEarly    = errors.New("reservation: no-show only after the check-in date has passed")
)

type ID string

// Ref is the human-facing reservation reference, unique per tenant and
// immutable once issued.
type Ref string

type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusCheckedIn  Status = "checked_in"
	StatusCheckedOut Status = "checked_out"
	StatusCancelled  Status = "cancelled"
	StatusNoShow     Status = "no_show"
)

// Active reports whether the status still holds the property's nights.
func (s Status) Active() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCheckedIn:
		return true
	}
	return false
}

// Terminal statuses allow no further transition and no mutation.
func (s Status) Terminal() bool {
	switch s {
	case StatusCheckedOut, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentUnpaid      PaymentStatus = "unpaid"
	PaymentDepositPaid PaymentStatus = "deposit_paid"
	PaymentPaid        PaymentStatus = "paid"
	PaymentRefunded    PaymentStatus = "refunded"
)

type Payment struct {
	Deposit money.Money
	Balance money.Money
	Status  PaymentStatus
}

type AddOn struct {
	Name   string
	Amount money.Money
}

// Pricing is the financial snapshot taken at creation. It is never silently
// recomputed; cancellation records its refund separately so the audit trail
// stays reconstructable.
type Pricing struct {
	Nightly  []rates.NightQuote
	Subtotal money.Money
	Taxes    money.Money
	Fees     money.Money
	AddOns   []AddOn
	Discount money.Money
	Total    money.Money
}

// RecalculateTotal recomputes Total = Subtotal + Taxes + Fees + sum(AddOns) - Discount
// and cross-checks the subtotal against the nightly breakdown.
func (p *Pricing) RecalculateTotal() error {
	if p.Subtotal.Currency == "" {
		return money.ErrInvalidCurrency
	}
	sum := money.Zero(p.Subtotal.Currency)
	var err error
	for _, night := range p.Nightly {
		if sum, err = sum.Add(night.Price); err != nil {
			return err
		}
	}
	if sum.Amount != p.Subtotal.Amount {
		return fmt.Errorf("reservation: subtotal %d does not match nightly breakdown %d", p.Subtotal.Amount, sum.Amount)
	}
	total := p.Subtotal
	for _, component := range []money.Money{p.Taxes, p.Fees} {
		if component.Currency == "" {
			continue
		}
		if total, err = total.Add(component); err != nil {
			return err
		}
	}
	for _, addOn := range p.AddOns {
		if addOn.Amount.Amount < 0 {
			return errors.New("reservation: add-on amounts cannot be negative")
		}
		if total, err = total.Add(addOn.Amount); err != nil {
			return err
		}
	}
	if p.Discount.Currency != "" {
		if total, err = total.Sub(p.Discount); err != nil {
			return err
		}
	}
	if total.Amount < 0 {
		total = money.Zero(total.Currency)
	}
	p.Total = total
	return nil
}

// Copy clones the snapshot so shared slices cannot be mutated through it.
func (p Pricing) Copy() Pricing {
	clone := p
	clone.Nightly = append([]rates.NightQuote(nil), p.Nightly...)
	clone.AddOns = append([]AddOn(nil), p.AddOns...)
	return clone
}

type Cancellation struct {
	Reason      string
	CancelledAt time.Time
	Refund      money.Money
}

// StatusChange is one entry of the append-only history log.
type StatusChange struct {
	Status Status
	At     time.Time
	Note   string
}

// Reservation owns one booking's lifecycle from creation to a terminal state.
// It references the property and guest by identifier only.
type Reservation struct {
	ID           ID
	Ref          Ref
	TenantID     catalog.TenantID
	PropertyID   catalog.PropertyID
	GuestID      string
	Stay         dates.Range
	Nights       int
	Guests       catalog.GuestCount
	Status       Status
	Pricing      Pricing
	Payment      Payment
	Policy       catalog.CancellationPolicy
	Cancellation *Cancellation
	History      []StatusChange
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Version      int64
	events.EventRecorder
}

type CreateParams struct {
	ID         ID
	Ref        Ref
	TenantID   catalog.TenantID
	PropertyID catalog.PropertyID
	GuestID    string
	Stay       dates.Range
	Guests     catalog.GuestCount
	Pricing    Pricing
	Payment    Payment
	Policy     catalog.CancellationPolicy
	CreatedAt  time.Time
}

// New creates a pending reservation with its first history entry. Availability
// must already have been re-checked under the property's serialization
// discipline; New itself only guards local invariants.
func New(params CreateParams) (*Reservation, error) {
	if params.GuestID == "" {
		return nil, ErrGuestRequired
	}
	if err := params.Guests.Validate(); err != nil {
		return nil, err
	}
	if err := params.Pricing.RecalculateTotal(); err != nil {
		return nil, err
	}
	now := params.CreatedAt.UTC()
	r := &Reservation{
		ID:         params.ID,
		Ref:        params.Ref,
		TenantID:   params.TenantID,
		PropertyID: params.PropertyID,
		GuestID:    params.GuestID,
		Stay:       params.Stay,
		Nights:     params.Stay.Nights(),
		Guests:     params.Guests,
		Status:     StatusPending,
		Pricing:    params.Pricing.Copy(),
		Payment:    params.Payment,
		Policy:     params.Policy,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	r.appendHistory(StatusPending, now, "reservation created")
	r.Record(Created{
		ReservationID: r.ID,
		Ref:           r.Ref,
		TenantID:      r.TenantID,
		PropertyID:    r.PropertyID,
		GuestID:       r.GuestID,
		Stay:          r.Stay,
		Total:         r.Pricing.Total,
		At:            now,
	})
	return r, nil
}

// Confirm moves pending -> confirmed on the external payment signal.
func (r *Reservation) Confirm(now time.Time) error {
	if r.Status != StatusPending {
		return r.transitionError(StatusConfirmed)
	}
	r.Status = StatusConfirmed
	if r.Payment.Status == PaymentUnpaid {
		r.Payment.Status = PaymentDepositPaid
	}
	r.touch(now)
	r.appendHistory(StatusConfirmed, r.UpdatedAt, "payment confirmed")
	r.Record(Confirmed{ReservationID: r.ID, Ref: r.Ref, At: r.UpdatedAt})
	return nil
}

// CheckIn moves confirmed -> checked_in.
func (r *Reservation) CheckIn(now time.Time) error {
	if r.Status != StatusConfirmed {
		return r.transitionError(StatusCheckedIn)
	}
	r.Status = StatusCheckedIn
	r.touch(now)
	r.appendHistory(StatusCheckedIn, r.UpdatedAt, "guest checked in")
	r.Record(CheckedIn{ReservationID: r.ID, Ref: r.Ref, At: r.UpdatedAt})
	return nil
}

// CheckOut moves checked_in -> checked_out and settles the payment state.
func (r *Reservation) CheckOut(now time.Time) error {
	if r.Status != StatusCheckedIn {
		return r.transitionError(StatusCheckedOut)
	}
	r.Status = StatusCheckedOut
	r.Payment.Status = PaymentPaid
	r.touch(now)
	r.appendHistory(StatusCheckedOut, r.UpdatedAt, "guest checked out")
	r.Record(CheckedOut{ReservationID: r.ID, Ref: r.Ref, At: r.UpdatedAt})
	return nil
}

// Cancel moves pending/confirmed -> cancelled and records the refund computed
// from the cancellation policy snapshot. Pricing.Total is left untouched.
func (r *Reservation) Cancel(reason string, now time.Time) (money.Money, error) {
	if r.Status != StatusPending && r.Status != StatusConfirmed {
		return money.Money{}, r.transitionError(StatusCancelled)
	}
	at := now.UTC()
	refund := RefundAmount(r.Policy, r.Pricing.Total, at, r.Stay.CheckIn)
	r.Status = StatusCancelled
	r.Cancellation = &Cancellation{Reason: reason, CancelledAt: at, Refund: refund}
	if refund.Amount > 0 {
		r.Payment.Status = PaymentRefunded
	}
	r.touch(at)
	r.appendHistory(StatusCancelled, r.UpdatedAt, reason)
	r.Record(Cancelled{ReservationID: r.ID, Ref: r.Ref, Reason: reason, Refund: refund, At: r.UpdatedAt})
	return refund, nil
}

// MarkNoShow moves confirmed -> no_show, only once the check-in date has passed
// without a check-in. Triggered by an external scheduled sweep.
func (r *Reservation) MarkNoShow(now time.Time) error {
	if r.Status != StatusConfirmed {
		return r.transitionError(StatusNoShow)
	}
	if !dates.FromTime(now).After(r.Stay.CheckIn) {
		return ErrNoShowTooEarly
	}
	r.Status = StatusNoShow
	r.touch(now)
	r.appendHistory(StatusNoShow, r.UpdatedAt, "guest did not arrive")
	r.Record(NoShowRecorded{ReservationID: r.ID, Ref: r.Ref, At: r.UpdatedAt})
	return nil
}

func (r *Reservation) touch(now time.Time) {
	r.UpdatedAt = now.UTC()
}

func (r *Reservation) appendHistory(status Status, at time.Time, note string) {
	r.History = append(r.History, StatusChange{Status: status, At: at, Note: note})
}

func (r *Reservation) transitionError(target Status) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, target)
}

// Repository persists reservations and the occupancy they imply. Create must
// atomically reject a reservation whose nights overlap an active one on the
// same property.
type Repository interface {
	ByRef(ctx context.Context, tenant catalog.TenantID, ref Ref) (*Reservation, error)
	Create(ctx context.Context, r *Reservation) error
	Update(ctx context.Context, r *Reservation) error
	ActiveOverlap(ctx context.Context, tenant catalog.TenantID, property catalog.PropertyID, stay dates.Range) (bool, error)
}
