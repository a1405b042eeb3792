package ginserver

import (
	"fmt"
	"net/http"
	"strconv"

	gin "github.com/gin-gonic/gin"

	"roomly/internal/app/dto"
	"roomly/internal/app/engine"
	"roomly/internal/domain/catalog"
	"roomly/internal/domain/shared/dates"
)

const tenantHeader = "X-Tenant-ID"

func requireTenant(c *gin.Context) (catalog.TenantID, bool) {
	tenant := c.GetHeader(tenantHeader)
	if tenant == "" {
		writeTenantMissing(c)
		return "", false
	}
	return catalog.TenantID(tenant), true
}

type AvailabilityHandler struct {
	Engine *engine.Engine
}

func (h AvailabilityHandler) Search(c *gin.Context) {
	tenant, ok := requireTenant(c)
	if !ok {
		return
	}
	checkIn, err := dates.Parse(c.Query("check_in"))
	if err != nil {
		writeError(c, err)
		return
	}
	checkOut, err := dates.Parse(c.Query("check_out"))
	if err != nil {
		writeError(c, err)
		return
	}
	guests, err := queryGuests(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "bad_request", "message": err.Error()}})
		return
	}
	offers, err := h.Engine.Search(c.Request.Context(), tenant, engine.SearchRequest{
		CheckIn:  checkIn,
		CheckOut: checkOut,
		Guests:   guests,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MapOffers(offers))
}

// Quote prices one night of one property.
func (h AvailabilityHandler) Quote(c *gin.Context) {
	tenant, ok := requireTenant(c)
	if !ok {
		return
	}
	date, err := dates.Parse(c.Query("date"))
	if err != nil {
		writeError(c, err)
		return
	}
	quote, err := h.Engine.Quote(c.Request.Context(), tenant, c.Param("slug"), date)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MapNightPrice(quote))
}

func queryGuests(c *gin.Context) (catalog.GuestCount, error) {
	var guests catalog.GuestCount
	var err error
	if guests.Adults, err = queryInt(c, "adults", 1); err != nil {
		return catalog.GuestCount{}, err
	}
	if guests.Children, err = queryInt(c, "children", 0); err != nil {
		return catalog.GuestCount{}, err
	}
	if guests.Infants, err = queryInt(c, "infants", 0); err != nil {
		return catalog.GuestCount{}, err
	}
	return guests, nil
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("query parameter %s must be an integer", key)
	}
	return n, nil
}

var _ AvailabilityHTTP = AvailabilityHandler{}
