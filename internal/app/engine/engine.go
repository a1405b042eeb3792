package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"roomly/internal/domain/availability"
	"roomly/internal/domain/catalog"
	"roomly/internal/domain/rates"
	"roomly/internal/domain/reservation"
	"roomly/internal/domain/shared/dates"
	"roomly/internal/domain/shared/events"
	"roomly/internal/domain/shared/money"
)

var (
	ErrCapabilityDisabled = errors.New("engine: capability disabled for tenant")
	ErrTenantRequired     = errors.New("engine: tenant is required")
	// ErrUnavailable wraps storage failures so callers can tell "the system is
	// broken" apart from the domain error taxonomy.
	ErrUnavailable = errors.New("engine: storage unavailable")
)

// Publisher delivers domain events to external collaborators. Publication is
// best-effort and never blocks an operation's outcome.
type Publisher interface {
	Publish(ctx context.Context, event events.DomainEvent) error
}

// NopPublisher drops events; used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, events.DomainEvent) error { return nil }

// FeeSchedule derives taxes, service fees and the deposit from a stay's
// subtotal, in basis points.
type FeeSchedule struct {
	TaxBps        int
	ServiceFeeBps int
	DepositBps    int
}

func (f FeeSchedule) tax(subtotal money.Money) money.Money {
	return subtotal.MulRound(float64(f.TaxBps) / 10000)
}

func (f FeeSchedule) serviceFee(subtotal money.Money) money.Money {
	return subtotal.MulRound(float64(f.ServiceFeeBps) / 10000)
}

func (f FeeSchedule) deposit(total money.Money) money.Money {
	if f.DepositBps <= 0 {
		return money.Zero(total.Currency)
	}
	return total.MulRound(float64(f.DepositBps) / 10000)
}

// Deps wires the engine's collaborators.
type Deps struct {
	Properties   catalog.PropertyRepository
	Plans        catalog.RatePlanRepository
	Reservations reservation.Repository
	Publisher    Publisher
	Logger       *slog.Logger
	Fees         FeeSchedule
	Now          func() time.Time
}

// Engine is the booking orchestrator: the single place where tenant scoping
// is enforced, external identifiers are translated to internal keys, and
// mutations are serialized per property and per reservation.
type Engine struct {
	properties    catalog.PropertyRepository
	reservations  reservation.Repository
	calc          *availability.Calculator
	resolver      *rates.Resolver
	publisher     Publisher
	logger        *slog.Logger
	fees          FeeSchedule
	now           func() time.Time
	propertyLocks *keyedMutex
	resLocks      *keyedMutex
}

func New(deps Deps) *Engine {
	now := deps.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	publisher := deps.Publisher
	if publisher == nil {
		publisher = NopPublisher{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		properties:   deps.Properties,
		reservations: deps.Reservations,
		calc: &availability.Calculator{
			Properties: deps.Properties,
			Plans:      deps.Plans,
			Occupancy:  deps.Reservations,
			Now:        now,
		},
		resolver: &rates.Resolver{
			Properties: deps.Properties,
			Plans:      deps.Plans,
		},
		publisher:     publisher,
		logger:        logger,
		fees:          deps.Fees,
		now:           now,
		propertyLocks: newKeyedMutex(),
		resLocks:      newKeyedMutex(),
	}
}

// SearchRequest is an external availability query.
type SearchRequest struct {
	CheckIn  dates.Date
	CheckOut dates.Date
	Guests   catalog.GuestCount
}

// Search lists bookable properties with composed nightly pricing. Read-only;
// runs fully concurrently with bookings.
func (e *Engine) Search(ctx context.Context, tenant catalog.TenantID, req SearchRequest) ([]availability.Offer, error) {
	if tenant == "" {
		return nil, ErrTenantRequired
	}
	stay, err := dates.NewRange(req.CheckIn, req.CheckOut)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", availability.ErrInvalidDateRange, err)
	}
	offers, err := e.calc.Search(ctx, availability.Query{Tenant: tenant, Stay: stay, Guests: req.Guests})
	if err != nil {
		return nil, e.wrapInfra(err)
	}
	return offers, nil
}

// BookRequest creates a reservation for a property addressed by its external
// slug.
type BookRequest struct {
	PropertySlug string
	GuestID      string
	CheckIn      dates.Date
	CheckOut     dates.Date
	Guests       catalog.GuestCount
	AddOns       []reservation.AddOn
}

// Book re-validates availability for the property under its exclusive lock,
// snapshots pricing, and persists the pending reservation. Losing the race
// between search and booking surfaces as reservation.ErrConflict.
func (e *Engine) Book(ctx context.Context, tenant catalog.TenantID, caps Capabilities, req BookRequest) (*reservation.Reservation, error) {
	if tenant == "" {
		return nil, ErrTenantRequired
	}
	if !caps.InstantBook {
		return nil, fmt.Errorf("%w: instant booking", ErrCapabilityDisabled)
	}
	stay, err := dates.NewRange(req.CheckIn, req.CheckOut)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", availability.ErrInvalidDateRange, err)
	}
	if err := e.calc.ValidateStay(stay); err != nil {
		return nil, err
	}
	property, err := e.properties.BySlug(ctx, tenant, req.PropertySlug)
	if err != nil {
		return nil, e.wrapInfra(err)
	}

	unlock := e.propertyLocks.Lock(string(property.ID))
	defer unlock()

	offer, err := e.calc.Evaluate(ctx, property, stay, req.Guests)
	if err != nil {
		if errors.Is(err, availability.ErrDatesUnavailable) {
			return nil, fmt.Errorf("%w: %s", reservation.ErrConflict, req.PropertySlug)
		}
		return nil, e.wrapInfra(err)
	}
	for _, addOn := range req.AddOns {
		if addOn.Amount.Amount < 0 {
			return nil, fmt.Errorf("%w: %q has a negative amount", reservation.ErrInvalidAddOn, addOn.Name)
		}
		if addOn.Amount.Currency != offer.Currency {
			return nil, fmt.Errorf("%w: %q is priced in %s, the stay in %s",
				reservation.ErrInvalidAddOn, addOn.Name, addOn.Amount.Currency, offer.Currency)
		}
	}

	pricing := reservation.Pricing{
		Nightly:  offer.Nightly,
		Subtotal: offer.Subtotal,
		Taxes:    e.fees.tax(offer.Subtotal),
		Fees:     e.fees.serviceFee(offer.Subtotal),
		AddOns:   req.AddOns,
		Discount: money.Zero(offer.Currency),
	}
	if err := pricing.RecalculateTotal(); err != nil {
		return nil, err
	}
	deposit := e.fees.deposit(pricing.Total)
	balance, err := pricing.Total.Sub(deposit)
	if err != nil {
		return nil, err
	}

	res, err := reservation.New(reservation.CreateParams{
		ID:         reservation.ID(uuid.NewString()),
		Ref:        newRef(),
		TenantID:   tenant,
		PropertyID: property.ID,
		GuestID:    req.GuestID,
		Stay:       stay,
		Guests:     req.Guests,
		Pricing:    pricing,
		Payment:    reservation.Payment{Deposit: deposit, Balance: balance, Status: reservation.PaymentUnpaid},
		Policy:     property.Policies.Cancellation,
		CreatedAt:  e.now(),
	})
	if err != nil {
		return nil, err
	}
	if err := e.reservations.Create(ctx, res); err != nil {
		return nil, e.wrapInfra(err)
	}
	e.publish(ctx, res)
	return res, nil
}

// Quote prices a single night of one property addressed by its external slug,
// applying the same rate plan selection that composes stay offers.
func (e *Engine) Quote(ctx context.Context, tenant catalog.TenantID, slug string, date dates.Date) (rates.NightQuote, error) {
	if tenant == "" {
		return rates.NightQuote{}, ErrTenantRequired
	}
	property, err := e.properties.BySlug(ctx, tenant, slug)
	if err != nil {
		return rates.NightQuote{}, e.wrapInfra(err)
	}
	quote, err := e.resolver.Resolve(ctx, tenant, property.ID, date)
	if err != nil {
		return rates.NightQuote{}, e.wrapInfra(err)
	}
	return quote, nil
}

// Get loads a reservation by its reference.
func (e *Engine) Get(ctx context.Context, tenant catalog.TenantID, ref reservation.Ref) (*reservation.Reservation, error) {
	if tenant == "" {
		return nil, ErrTenantRequired
	}
	res, err := e.reservations.ByRef(ctx, tenant, ref)
	if err != nil {
		return nil, e.wrapInfra(err)
	}
	return res, nil
}

// Confirm applies the external payment confirmation signal.
func (e *Engine) Confirm(ctx context.Context, tenant catalog.TenantID, ref reservation.Ref) (*reservation.Reservation, error) {
	return e.transition(ctx, tenant, ref, func(res *reservation.Reservation) error {
		return res.Confirm(e.now())
	})
}

// CheckInGuest is driven by the front desk or an automated date-based sweep.
func (e *Engine) CheckInGuest(ctx context.Context, tenant catalog.TenantID, ref reservation.Ref) (*reservation.Reservation, error) {
	return e.transition(ctx, tenant, ref, func(res *reservation.Reservation) error {
		return res.CheckIn(e.now())
	})
}

// CheckOutGuest completes the happy path.
func (e *Engine) CheckOutGuest(ctx context.Context, tenant catalog.TenantID, ref reservation.Ref) (*reservation.Reservation, error) {
	return e.transition(ctx, tenant, ref, func(res *reservation.Reservation) error {
		return res.CheckOut(e.now())
	})
}

// Cancel cancels the reservation and records the policy refund.
func (e *Engine) Cancel(ctx context.Context, tenant catalog.TenantID, caps Capabilities, ref reservation.Ref, reason string) (*reservation.Reservation, error) {
	if !caps.OnlineCancellation {
		return nil, fmt.Errorf("%w: online cancellation", ErrCapabilityDisabled)
	}
	return e.transition(ctx, tenant, ref, func(res *reservation.Reservation) error {
		_, err := res.Cancel(reason, e.now())
		return err
	})
}

// MarkNoShow records a confirmed guest who never arrived. Expected caller is
// a scheduled sweep, not user input.
func (e *Engine) MarkNoShow(ctx context.Context, tenant catalog.TenantID, ref reservation.Ref) (*reservation.Reservation, error) {
	return e.transition(ctx, tenant, ref, func(res *reservation.Reservation) error {
		return res.MarkNoShow(e.now())
	})
}

// transition serializes state-machine calls per reservation so history entries
// keep strict append order.
func (e *Engine) transition(ctx context.Context, tenant catalog.TenantID, ref reservation.Ref, apply func(*reservation.Reservation) error) (*reservation.Reservation, error) {
	if tenant == "" {
		return nil, ErrTenantRequired
	}
	unlock := e.resLocks.Lock(string(tenant) + "/" + string(ref))
	defer unlock()

	res, err := e.reservations.ByRef(ctx, tenant, ref)
	if err != nil {
		return nil, e.wrapInfra(err)
	}
	if err := apply(res); err != nil {
		return nil, err
	}
	if err := e.reservations.Update(ctx, res); err != nil {
		return nil, e.wrapInfra(err)
	}
	e.publish(ctx, res)
	return res, nil
}

// publish drains pending aggregate events. Failures are logged, never
// surfaced: the reservation write already succeeded.
func (e *Engine) publish(ctx context.Context, res *reservation.Reservation) {
	pending := res.PendingEvents()
	res.ClearEvents()
	for _, event := range pending {
		if err := e.publisher.Publish(ctx, event); err != nil {
			e.logger.Error("event publish failed", "event", event.EventName(), "reservation", res.Ref, "error", err)
		}
	}
}

// wrapInfra passes the domain taxonomy through and hides anything else behind
// ErrUnavailable.
func (e *Engine) wrapInfra(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, catalog.ErrPropertyNotFound),
		errors.Is(err, catalog.ErrCapacityExceeded),
		errors.Is(err, catalog.ErrInvalidGuestCount),
		errors.Is(err, reservation.ErrNotFound),
		errors.Is(err, reservation.ErrConflict),
		errors.Is(err, reservation.ErrInvalidTransition),
		errors.Is(err, availability.ErrInvalidDateRange),
		errors.Is(err, availability.ErrStayLengthNotOffered),
		errors.Is(err, availability.ErrPropertyUnavailable),
		errors.Is(err, availability.ErrDatesUnavailable):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
}

// newRef issues a short human-facing reservation reference.
func newRef() reservation.Ref {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return reservation.Ref("RES-" + raw[:10])
}
