package ginserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"roomly/internal/app/engine"
	"roomly/internal/domain/catalog"
	"roomly/internal/domain/shared/money"
	"roomly/internal/infra/config"
	"roomly/internal/infra/obs"
	"roomly/internal/infra/storage/memory"
)

func newTestServer(t *testing.T, caps func(catalog.TenantID) engine.Capabilities) http.Handler {
	t.Helper()
	catalogRepo := memory.NewCatalogRepository()
	catalogRepo.SeedProperty(&catalog.Property{
		ID:        "prop-1",
		TenantID:  "t1",
		Slug:      "loft",
		Name:      "Loft",
		Capacity:  catalog.Capacity{MaxGuests: 4, Beds: 2, Bathrooms: 1},
		BasePrice: money.Must(10000, "USD"),
		Policies: catalog.Policies{
			Cancellation:   catalog.PolicyFlexible,
			AllowsChildren: true,
			AllowsInfants:  true,
		},
		Status: catalog.PropertyAvailable,
	})
	bookingEngine := engine.New(engine.Deps{
		Properties:   catalogRepo,
		Plans:        catalogRepo,
		Reservations: memory.NewReservationRepository(),
		Now:          func() time.Time { return time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC) },
	})
	server := NewServer(config.Config{Env: "test", HTTPAddr: ":0"}, obs.Middleware{}, obs.HealthHandlers{}, Handlers{
		Availability: AvailabilityHandler{Engine: bookingEngine},
		Reservation:  ReservationHandler{Engine: bookingEngine, Capabilities: caps},
	})
	return server.Handler
}

func doJSON(t *testing.T, h http.Handler, method, path, tenant string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var payload *bytes.Buffer
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		payload = bytes.NewBuffer(raw)
	} else {
		payload = bytes.NewBuffer(nil)
	}
	req := httptest.NewRequest(method, path, payload)
	req.Header.Set("Content-Type", "application/json")
	if tenant != "" {
		req.Header.Set("X-Tenant-ID", tenant)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v (%s)", err, rec.Body.String())
	}
	return body.Error.Code
}

func bookingBody() map[string]any {
	return map[string]any{
		"property":  "loft",
		"guest_id":  "guest-1",
		"check_in":  "2026-06-10",
		"check_out": "2026-06-12",
		"guests":    map[string]int{"adults": 2},
	}
}

func TestMissingTenantHeader(t *testing.T) {
	h := newTestServer(t, nil)
	for _, probe := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/availability?check_in=2026-06-10&check_out=2026-06-12"},
		{http.MethodPost, "/api/v1/reservations"},
		{http.MethodGet, "/api/v1/reservations/RES-X"},
	} {
		rec := doJSON(t, h, probe.method, probe.path, "", nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s %s: status %d", probe.method, probe.path, rec.Code)
		}
		if code := errorCode(t, rec); code != "tenant_required" {
			t.Fatalf("%s %s: code %s", probe.method, probe.path, code)
		}
	}
}

func TestAvailabilityEndpoint(t *testing.T) {
	h := newTestServer(t, nil)

	rec := doJSON(t, h, http.MethodGet, "/api/v1/availability?check_in=2026-06-10&check_out=2026-06-12&adults=2", "t1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Items []struct {
			Property struct {
				Slug string `json:"slug"`
			} `json:"property"`
			Nights   int `json:"nights"`
			Subtotal struct {
				Amount int64 `json:"amount"`
			} `json:"subtotal"`
		} `json:"items"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Items) != 1 || body.Items[0].Property.Slug != "loft" {
		t.Fatalf("items = %+v", body.Items)
	}
	if body.Items[0].Nights != 2 || body.Items[0].Subtotal.Amount != 20000 {
		t.Fatalf("offer = %+v", body.Items[0])
	}

	rec = doJSON(t, h, http.MethodGet, "/api/v1/availability?check_in=2026-06-12&check_out=2026-06-10", "t1", nil)
	if rec.Code != http.StatusUnprocessableEntity || errorCode(t, rec) != "invalid_date_range" {
		t.Fatalf("inverted range: status %d code %s", rec.Code, errorCode(t, rec))
	}

	rec = doJSON(t, h, http.MethodGet, "/api/v1/availability?check_in=junk&check_out=2026-06-12", "t1", nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad date literal: status %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/v1/availability?check_in=2026-06-10&check_out=2026-06-12&adults=abc", "t1", nil)
	if rec.Code != http.StatusBadRequest || errorCode(t, rec) != "bad_request" {
		t.Fatalf("non-numeric adults: status %d code %s", rec.Code, errorCode(t, rec))
	}
}

func TestQuoteEndpoint(t *testing.T) {
	h := newTestServer(t, nil)

	rec := doJSON(t, h, http.MethodGet, "/api/v1/properties/loft/quote?date=2026-06-10", "t1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var quote struct {
		Date  string `json:"date"`
		Price struct {
			Amount   int64  `json:"amount"`
			Currency string `json:"currency"`
		} `json:"modified_price"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &quote); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if quote.Date != "2026-06-10" || quote.Price.Amount != 10000 || quote.Price.Currency != "USD" {
		t.Fatalf("quote = %+v", quote)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/v1/properties/missing/quote?date=2026-06-10", "t1", nil)
	if rec.Code != http.StatusNotFound || errorCode(t, rec) != "not_found" {
		t.Fatalf("unknown slug: status %d code %s", rec.Code, errorCode(t, rec))
	}

	rec = doJSON(t, h, http.MethodGet, "/api/v1/properties/loft/quote?date=junk", "t1", nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad date: status %d", rec.Code)
	}
}

func TestCreateRejectsMismatchedAddOnCurrency(t *testing.T) {
	h := newTestServer(t, nil)

	body := bookingBody()
	body["add_ons"] = []map[string]any{{"name": "cleaning", "amount": 500, "currency": "EUR"}}
	rec := doJSON(t, h, http.MethodPost, "/api/v1/reservations", "t1", body)
	if rec.Code != http.StatusUnprocessableEntity || errorCode(t, rec) != "invalid_add_on" {
		t.Fatalf("status %d code %s: %s", rec.Code, errorCode(t, rec), rec.Body.String())
	}

	// A matching add-on goes through and shows up in the pricing.
	body["add_ons"] = []map[string]any{{"name": "cleaning", "amount": 1500, "currency": "USD"}}
	rec = doJSON(t, h, http.MethodPost, "/api/v1/reservations", "t1", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("valid add-on: status %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Pricing struct {
			Total struct {
				Amount int64 `json:"amount"`
			} `json:"total"`
		} `json:"pricing"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Pricing.Total.Amount != 21500 {
		t.Fatalf("total with add-on = %d", created.Pricing.Total.Amount)
	}
}

func TestReservationLifecycleOverHTTP(t *testing.T) {
	h := newTestServer(t, nil)

	rec := doJSON(t, h, http.MethodPost, "/api/v1/reservations", "t1", bookingBody())
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Ref    string `json:"reservation_ref"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Status != "pending" || created.Ref == "" {
		t.Fatalf("created = %+v", created)
	}

	// Overlapping booking loses with a conflict.
	rec = doJSON(t, h, http.MethodPost, "/api/v1/reservations", "t1", bookingBody())
	if rec.Code != http.StatusConflict || errorCode(t, rec) != "conflict" {
		t.Fatalf("overlap: status %d code %s", rec.Code, errorCode(t, rec))
	}

	rec = doJSON(t, h, http.MethodPost, "/api/v1/reservations/"+created.Ref+"/confirm", "t1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("confirm: status %d: %s", rec.Code, rec.Body.String())
	}

	// Confirm twice is an invalid transition.
	rec = doJSON(t, h, http.MethodPost, "/api/v1/reservations/"+created.Ref+"/confirm", "t1", nil)
	if rec.Code != http.StatusConflict || errorCode(t, rec) != "invalid_transition" {
		t.Fatalf("double confirm: status %d code %s", rec.Code, errorCode(t, rec))
	}

	rec = doJSON(t, h, http.MethodGet, "/api/v1/reservations/"+created.Ref, "t1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: status %d", rec.Code)
	}

	// Other tenants cannot see the reservation.
	rec = doJSON(t, h, http.MethodGet, "/api/v1/reservations/"+created.Ref, "t2", nil)
	if rec.Code != http.StatusNotFound || errorCode(t, rec) != "not_found" {
		t.Fatalf("cross-tenant get: status %d code %s", rec.Code, errorCode(t, rec))
	}

	rec = doJSON(t, h, http.MethodPost, "/api/v1/reservations/"+created.Ref+"/cancel", "t1", map[string]string{"reason": "plans changed"})
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel: status %d: %s", rec.Code, rec.Body.String())
	}
	var cancelled struct {
		Status       string `json:"status"`
		Cancellation struct {
			Refund struct {
				Amount int64 `json:"amount"`
			} `json:"refund_amount"`
		} `json:"cancellation"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &cancelled); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cancelled.Status != "cancelled" || cancelled.Cancellation.Refund.Amount != 20000 {
		t.Fatalf("cancelled = %+v", cancelled)
	}
}

func TestCapabilityGatesOverHTTP(t *testing.T) {
	locked := func(catalog.TenantID) engine.Capabilities {
		return engine.Capabilities{InstantBook: false, OnlineCancellation: false}
	}
	h := newTestServer(t, locked)

	rec := doJSON(t, h, http.MethodPost, "/api/v1/reservations", "t1", bookingBody())
	if rec.Code != http.StatusForbidden || errorCode(t, rec) != "capability_disabled" {
		t.Fatalf("book: status %d code %s", rec.Code, errorCode(t, rec))
	}
}

func TestUnknownReservation(t *testing.T) {
	h := newTestServer(t, nil)
	rec := doJSON(t, h, http.MethodGet, "/api/v1/reservations/RES-NOPE", "t1", nil)
	if rec.Code != http.StatusNotFound || errorCode(t, rec) != "not_found" {
		t.Fatalf("status %d code %s", rec.Code, errorCode(t, rec))
	}
}

func TestHealthProbes(t *testing.T) {
	h := newTestServer(t, nil)
	for _, path := range []string{"/livez", "/readyz"} {
		rec := doJSON(t, h, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status %d", path, rec.Code)
		}
	}
}
