package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"roomly/internal/domain/availability"
	"roomly/internal/domain/catalog"
	"roomly/internal/domain/reservation"
	"roomly/internal/domain/shared/dates"
	"roomly/internal/domain/shared/events"
	"roomly/internal/domain/shared/money"
	"roomly/internal/infra/storage/memory"
)

const testTenant = catalog.TenantID("t1")

type fixture struct {
	engine  *Engine
	catalog *memory.CatalogRepository
	clock   *time.Time
	events  *capturePublisher
}

type capturePublisher struct {
	mu    sync.Mutex
	names []string
}

func (p *capturePublisher) Publish(_ context.Context, event events.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.names = append(p.names, event.EventName())
	return nil
}

func (p *capturePublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.names...)
}

func newFixture(fees FeeSchedule) *fixture {
	catalogRepo := memory.NewCatalogRepository()
	clock := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	publisher := &capturePublisher{}
	e := New(Deps{
		Properties:   catalogRepo,
		Plans:        catalogRepo,
		Reservations: memory.NewReservationRepository(),
		Publisher:    publisher,
		Fees:         fees,
		Now:          func() time.Time { return clock },
	})
	return &fixture{engine: e, catalog: catalogRepo, clock: &clock, events: publisher}
}

func (f *fixture) seedProperty(slug string, policy catalog.CancellationPolicy) *catalog.Property {
	p := &catalog.Property{
		ID:        catalog.PropertyID("prop-" + slug),
		TenantID:  testTenant,
		Slug:      slug,
		Name:      slug,
		Capacity:  catalog.Capacity{MaxGuests: 4, Beds: 2, Bathrooms: 1},
		BasePrice: money.Must(10000, "USD"),
		Policies: catalog.Policies{
			Cancellation:   policy,
			AllowsChildren: true,
			AllowsInfants:  true,
		},
		Status: catalog.PropertyAvailable,
	}
	f.catalog.SeedProperty(p)
	return p
}

func twoNightRequest(slug string) BookRequest {
	return BookRequest{
		PropertySlug: slug,
		GuestID:      "guest-1",
		CheckIn:      dates.New(2026, time.June, 10),
		CheckOut:     dates.New(2026, time.June, 12),
		Guests:       catalog.GuestCount{Adults: 2},
	}
}

func searchFor(t *testing.T, f *fixture) []availability.Offer {
	t.Helper()
	offers, err := f.engine.Search(context.Background(), testTenant, SearchRequest{
		CheckIn:  dates.New(2026, time.June, 10),
		CheckOut: dates.New(2026, time.June, 12),
		Guests:   catalog.GuestCount{Adults: 2},
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	return offers
}

func TestSearchBookCancelRoundTrip(t *testing.T) {
	f := newFixture(FeeSchedule{})
	f.seedProperty("loft", catalog.PolicyFlexible)
	ctx := context.Background()

	offers := searchFor(t, f)
	if len(offers) != 1 {
		t.Fatalf("offers = %d", len(offers))
	}
	offer := offers[0]
	if offer.Nights != 2 || offer.Subtotal.Amount != 20000 {
		t.Fatalf("offer = %d nights, subtotal %d", offer.Nights, offer.Subtotal.Amount)
	}
	for _, night := range offer.Nightly {
		if night.Price.Amount != 10000 {
			t.Fatalf("nightly price = %d", night.Price.Amount)
		}
	}

	res, err := f.engine.Book(ctx, testTenant, DefaultCapabilities(), twoNightRequest("loft"))
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if res.Status != reservation.StatusPending {
		t.Fatalf("status = %s", res.Status)
	}
	if !strings.HasPrefix(string(res.Ref), "RES-") {
		t.Fatalf("ref = %s", res.Ref)
	}
	if res.Pricing.Total.Amount != 20000 {
		t.Fatalf("total = %d", res.Pricing.Total.Amount)
	}

	// The booked range is no longer offered.
	if offers := searchFor(t, f); len(offers) != 0 {
		t.Fatalf("booked property still offered: %d", len(offers))
	}

	// Flexible policy, well over 24h before check-in: full refund.
	cancelled, err := f.engine.Cancel(ctx, testTenant, DefaultCapabilities(), res.Ref, "plans changed")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != reservation.StatusCancelled {
		t.Fatalf("status = %s", cancelled.Status)
	}
	if cancelled.Cancellation.Refund.Amount != cancelled.Pricing.Total.Amount {
		t.Fatalf("refund = %d, want full %d", cancelled.Cancellation.Refund.Amount, cancelled.Pricing.Total.Amount)
	}

	// Cancellation releases the nights.
	if offers := searchFor(t, f); len(offers) != 1 {
		t.Fatalf("cancelled nights not released: %d offers", len(offers))
	}

	names := f.events.published()
	if len(names) != 2 || names[0] != "reservation.created" || names[1] != "reservation.cancelled" {
		t.Fatalf("published events = %v", names)
	}
}

func TestBookAppliesFeeSchedule(t *testing.T) {
	f := newFixture(FeeSchedule{TaxBps: 1000, ServiceFeeBps: 300, DepositBps: 2000})
	f.seedProperty("loft", catalog.PolicyFlexible)

	res, err := f.engine.Book(context.Background(), testTenant, DefaultCapabilities(), twoNightRequest("loft"))
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if res.Pricing.Taxes.Amount != 2000 {
		t.Fatalf("taxes = %d", res.Pricing.Taxes.Amount)
	}
	if res.Pricing.Fees.Amount != 600 {
		t.Fatalf("fees = %d", res.Pricing.Fees.Amount)
	}
	if res.Pricing.Total.Amount != 22600 {
		t.Fatalf("total = %d", res.Pricing.Total.Amount)
	}
	if res.Payment.Deposit.Amount != 4520 {
		t.Fatalf("deposit = %d", res.Payment.Deposit.Amount)
	}
	if res.Payment.Deposit.Amount+res.Payment.Balance.Amount != res.Pricing.Total.Amount {
		t.Fatal("deposit and balance must split the total exactly")
	}
}

func TestBookConflictOnOverlap(t *testing.T) {
	f := newFixture(FeeSchedule{})
	f.seedProperty("loft", catalog.PolicyFlexible)
	ctx := context.Background()

	if _, err := f.engine.Book(ctx, testTenant, DefaultCapabilities(), twoNightRequest("loft")); err != nil {
		t.Fatalf("first booking: %v", err)
	}
	overlapping := twoNightRequest("loft")
	overlapping.CheckIn = dates.New(2026, time.June, 11)
	overlapping.CheckOut = dates.New(2026, time.June, 13)
	if _, err := f.engine.Book(ctx, testTenant, DefaultCapabilities(), overlapping); !errors.Is(err, reservation.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestConcurrentBookingsOneWinner(t *testing.T) {
	f := newFixture(FeeSchedule{})
	f.seedProperty("loft", catalog.PolicyFlexible)

	const attempts = 8
	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.Book(context.Background(), testTenant, DefaultCapabilities(), twoNightRequest("loft"))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var won, lost int
	for err := range errs {
		switch {
		case err == nil:
			won++
		case errors.Is(err, reservation.ErrConflict):
			lost++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if won != 1 || lost != attempts-1 {
		t.Fatalf("winners = %d, conflicts = %d", won, lost)
	}
}

func TestLifecycleTransitions(t *testing.T) {
	f := newFixture(FeeSchedule{})
	f.seedProperty("loft", catalog.PolicyFlexible)
	ctx := context.Background()

	res, err := f.engine.Book(ctx, testTenant, DefaultCapabilities(), twoNightRequest("loft"))
	if err != nil {
		t.Fatalf("book: %v", err)
	}

	// Check-in before confirmation is not a legal move.
	if _, err := f.engine.CheckInGuest(ctx, testTenant, res.Ref); !errors.Is(err, reservation.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	if _, err := f.engine.Confirm(ctx, testTenant, res.Ref); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if _, err := f.engine.CheckInGuest(ctx, testTenant, res.Ref); err != nil {
		t.Fatalf("check-in: %v", err)
	}
	final, err := f.engine.CheckOutGuest(ctx, testTenant, res.Ref)
	if err != nil {
		t.Fatalf("check-out: %v", err)
	}
	if final.Status != reservation.StatusCheckedOut {
		t.Fatalf("status = %s", final.Status)
	}
	if final.Payment.Status != reservation.PaymentPaid {
		t.Fatalf("payment = %s", final.Payment.Status)
	}
	if got := len(final.History); got != 4 {
		t.Fatalf("history entries = %d", got)
	}

	// Checked-out nights no longer block new bookings.
	if offers := searchFor(t, f); len(offers) != 1 {
		t.Fatalf("checked-out stay still blocks: %d offers", len(offers))
	}
}

func TestMarkNoShowWaitsForCheckInDate(t *testing.T) {
	f := newFixture(FeeSchedule{})
	f.seedProperty("loft", catalog.PolicyFlexible)
	ctx := context.Background()

	res, err := f.engine.Book(ctx, testTenant, DefaultCapabilities(), twoNightRequest("loft"))
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if _, err := f.engine.Confirm(ctx, testTenant, res.Ref); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	if _, err := f.engine.MarkNoShow(ctx, testTenant, res.Ref); !errors.Is(err, reservation.ErrNoShowTooEarly) {
		t.Fatalf("expected ErrNoShowTooEarly, got %v", err)
	}

	*f.clock = time.Date(2026, 6, 11, 9, 0, 0, 0, time.UTC)
	marked, err := f.engine.MarkNoShow(ctx, testTenant, res.Ref)
	if err != nil {
		t.Fatalf("no-show: %v", err)
	}
	if marked.Status != reservation.StatusNoShow {
		t.Fatalf("status = %s", marked.Status)
	}
}

func TestCapabilitiesGateOperations(t *testing.T) {
	f := newFixture(FeeSchedule{})
	f.seedProperty("loft", catalog.PolicyFlexible)
	ctx := context.Background()

	noBooking := Capabilities{InstantBook: false, OnlineCancellation: true}
	if _, err := f.engine.Book(ctx, testTenant, noBooking, twoNightRequest("loft")); !errors.Is(err, ErrCapabilityDisabled) {
		t.Fatalf("expected ErrCapabilityDisabled, got %v", err)
	}

	res, err := f.engine.Book(ctx, testTenant, DefaultCapabilities(), twoNightRequest("loft"))
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	noCancel := Capabilities{InstantBook: true, OnlineCancellation: false}
	if _, err := f.engine.Cancel(ctx, testTenant, noCancel, res.Ref, "never mind"); !errors.Is(err, ErrCapabilityDisabled) {
		t.Fatalf("expected ErrCapabilityDisabled, got %v", err)
	}
}

func TestTenantScoping(t *testing.T) {
	f := newFixture(FeeSchedule{})
	f.seedProperty("loft", catalog.PolicyFlexible)
	ctx := context.Background()

	if _, err := f.engine.Search(ctx, "", SearchRequest{
		CheckIn:  dates.New(2026, time.June, 10),
		CheckOut: dates.New(2026, time.June, 12),
		Guests:   catalog.GuestCount{Adults: 2},
	}); !errors.Is(err, ErrTenantRequired) {
		t.Fatalf("expected ErrTenantRequired, got %v", err)
	}

	res, err := f.engine.Book(ctx, testTenant, DefaultCapabilities(), twoNightRequest("loft"))
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	// Another tenant cannot see or drive the reservation.
	if _, err := f.engine.Get(ctx, "other", res.Ref); !errors.Is(err, reservation.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := f.engine.Confirm(ctx, "other", res.Ref); !errors.Is(err, reservation.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	// Another tenant booking the same slug fails on its own catalog.
	if _, err := f.engine.Book(ctx, "other", DefaultCapabilities(), twoNightRequest("loft")); !errors.Is(err, catalog.ErrPropertyNotFound) {
		t.Fatalf("expected ErrPropertyNotFound, got %v", err)
	}
}

func TestBookValidatesAddOns(t *testing.T) {
	f := newFixture(FeeSchedule{})
	f.seedProperty("loft", catalog.PolicyFlexible)
	ctx := context.Background()

	mismatched := twoNightRequest("loft")
	mismatched.AddOns = []reservation.AddOn{{Name: "cleaning", Amount: money.Must(500, "EUR")}}
	if _, err := f.engine.Book(ctx, testTenant, DefaultCapabilities(), mismatched); !errors.Is(err, reservation.ErrInvalidAddOn) {
		t.Fatalf("mismatched currency: expected ErrInvalidAddOn, got %v", err)
	}

	negative := twoNightRequest("loft")
	negative.AddOns = []reservation.AddOn{{Name: "discount trick", Amount: money.Must(-500, "USD")}}
	if _, err := f.engine.Book(ctx, testTenant, DefaultCapabilities(), negative); !errors.Is(err, reservation.ErrInvalidAddOn) {
		t.Fatalf("negative amount: expected ErrInvalidAddOn, got %v", err)
	}

	// Rejected add-ons must not hold the nights.
	if offers := searchFor(t, f); len(offers) != 1 {
		t.Fatalf("rejected booking left the nights blocked: %d offers", len(offers))
	}

	valid := twoNightRequest("loft")
	valid.AddOns = []reservation.AddOn{{Name: "cleaning", Amount: money.Must(1500, "USD")}}
	res, err := f.engine.Book(ctx, testTenant, DefaultCapabilities(), valid)
	if err != nil {
		t.Fatalf("book with valid add-on: %v", err)
	}
	if res.Pricing.Total.Amount != 21500 {
		t.Fatalf("total with add-on = %d", res.Pricing.Total.Amount)
	}
}

func TestQuoteSingleNight(t *testing.T) {
	f := newFixture(FeeSchedule{})
	p := f.seedProperty("loft", catalog.PolicyFlexible)
	f.catalog.SeedRatePlan(&catalog.RatePlan{
		ID:            "summer",
		PropertyID:    p.ID,
		StartDate:     dates.New(2026, time.June, 1),
		EndDate:       dates.New(2026, time.August, 31),
		PricePerNight: money.Must(15000, "USD"),
		Priority:      10,
	})
	ctx := context.Background()

	quote, err := f.engine.Quote(ctx, testTenant, "loft", dates.New(2026, time.June, 10))
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if quote.RatePlanID != "summer" || quote.Price.Amount != 15000 {
		t.Fatalf("quote = %+v", quote)
	}

	quote, err = f.engine.Quote(ctx, testTenant, "loft", dates.New(2026, time.September, 10))
	if err != nil {
		t.Fatalf("quote outside window: %v", err)
	}
	if quote.RatePlanID != "" || quote.Price.Amount != 10000 {
		t.Fatalf("base price quote = %+v", quote)
	}

	if _, err := f.engine.Quote(ctx, testTenant, "no-such-slug", dates.New(2026, time.June, 10)); !errors.Is(err, catalog.ErrPropertyNotFound) {
		t.Fatalf("expected ErrPropertyNotFound, got %v", err)
	}
	if _, err := f.engine.Quote(ctx, "", "loft", dates.New(2026, time.June, 10)); !errors.Is(err, ErrTenantRequired) {
		t.Fatalf("expected ErrTenantRequired, got %v", err)
	}
}

func TestBookUnknownPropertyAndBadDates(t *testing.T) {
	f := newFixture(FeeSchedule{})
	f.seedProperty("loft", catalog.PolicyFlexible)
	ctx := context.Background()

	req := twoNightRequest("no-such-slug")
	if _, err := f.engine.Book(ctx, testTenant, DefaultCapabilities(), req); !errors.Is(err, catalog.ErrPropertyNotFound) {
		t.Fatalf("expected ErrPropertyNotFound, got %v", err)
	}

	bad := twoNightRequest("loft")
	bad.CheckOut = bad.CheckIn
	if _, err := f.engine.Book(ctx, testTenant, DefaultCapabilities(), bad); !errors.Is(err, availability.ErrInvalidDateRange) {
		t.Fatalf("expected ErrInvalidDateRange, got %v", err)
	}
}
