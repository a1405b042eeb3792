package ginserver

import (
	"errors"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"roomly/internal/app/engine"
	"roomly/internal/domain/availability"
	"roomly/internal/domain/catalog"
	"roomly/internal/domain/reservation"
	"roomly/internal/domain/shared/dates"
	"roomly/internal/domain/shared/money"
)

// writeError translates the engine's error taxonomy to HTTP. Conflict and
// capacity_exceeded stay distinguishable so clients know whether to re-run
// search or shrink the party.
func writeError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "internal"
	switch {
	case errors.Is(err, catalog.ErrPropertyNotFound), errors.Is(err, reservation.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, availability.ErrInvalidDateRange),
		errors.Is(err, availability.ErrStayLengthNotOffered),
		errors.Is(err, dates.ErrInvalidDate),
		errors.Is(err, dates.ErrInvalidRange),
		errors.Is(err, catalog.ErrInvalidGuestCount):
		status, code = http.StatusUnprocessableEntity, "invalid_date_range"
	case errors.Is(err, catalog.ErrCapacityExceeded):
		status, code = http.StatusUnprocessableEntity, "capacity_exceeded"
	case errors.Is(err, reservation.ErrInvalidAddOn), errors.Is(err, money.ErrInvalidCurrency):
		status, code = http.StatusUnprocessableEntity, "invalid_add_on"
	case errors.Is(err, reservation.ErrConflict), errors.Is(err, availability.ErrDatesUnavailable):
		status, code = http.StatusConflict, "conflict"
	case errors.Is(err, availability.ErrPropertyUnavailable):
		status, code = http.StatusConflict, "property_unavailable"
	case errors.Is(err, reservation.ErrInvalidTransition), errors.Is(err, reservation.ErrNoShowTooEarly):
		status, code = http.StatusConflict, "invalid_transition"
	case errors.Is(err, engine.ErrCapabilityDisabled):
		status, code = http.StatusForbidden, "capability_disabled"
	case errors.Is(err, engine.ErrUnavailable):
		status, code = http.StatusServiceUnavailable, "unavailable"
	}
	c.JSON(status, gin.H{"error": gin.H{"code": code, "message": err.Error()}})
}

func writeTenantMissing(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "tenant_required", "message": "X-Tenant-ID header is required"}})
}
