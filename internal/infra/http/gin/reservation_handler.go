package ginserver

import (
	"net/http"

	gin "github.com/gin-gonic/gin"

	"roomly/internal/app/dto"
	"roomly/internal/app/engine"
	"roomly/internal/domain/catalog"
	"roomly/internal/domain/reservation"
	"roomly/internal/domain/shared/dates"
	"roomly/internal/domain/shared/money"
)

type ReservationHandler struct {
	Engine *engine.Engine
	// Capabilities resolves the tenant's feature switchboard; defaults to
	// everything enabled.
	Capabilities func(tenant catalog.TenantID) engine.Capabilities
}

func (h ReservationHandler) caps(tenant catalog.TenantID) engine.Capabilities {
	if h.Capabilities != nil {
		return h.Capabilities(tenant)
	}
	return engine.DefaultCapabilities()
}

type addOnRequest struct {
	Name     string `json:"name"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type createReservationRequest struct {
	Property string `json:"property"`
	GuestID  string `json:"guest_id"`
	CheckIn  string `json:"check_in"`
	CheckOut string `json:"check_out"`
	Guests   struct {
		Adults   int `json:"adults"`
		Children int `json:"children"`
		Infants  int `json:"infants"`
	} `json:"guests"`
	AddOns []addOnRequest `json:"add_ons"`
}

func (h ReservationHandler) Create(c *gin.Context) {
	tenant, ok := requireTenant(c)
	if !ok {
		return
	}
	var req createReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "bad_request", "message": err.Error()}})
		return
	}
	checkIn, err := dates.Parse(req.CheckIn)
	if err != nil {
		writeError(c, err)
		return
	}
	checkOut, err := dates.Parse(req.CheckOut)
	if err != nil {
		writeError(c, err)
		return
	}
	addOns := make([]reservation.AddOn, 0, len(req.AddOns))
	for _, addOn := range req.AddOns {
		amount, err := money.New(addOn.Amount, addOn.Currency)
		if err != nil {
			writeError(c, err)
			return
		}
		addOns = append(addOns, reservation.AddOn{Name: addOn.Name, Amount: amount})
	}
	res, err := h.Engine.Book(c.Request.Context(), tenant, h.caps(tenant), engine.BookRequest{
		PropertySlug: req.Property,
		GuestID:      req.GuestID,
		CheckIn:      checkIn,
		CheckOut:     checkOut,
		Guests: catalog.GuestCount{
			Adults:   req.Guests.Adults,
			Children: req.Guests.Children,
			Infants:  req.Guests.Infants,
		},
		AddOns: addOns,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.MapReservation(res))
}

func (h ReservationHandler) Get(c *gin.Context) {
	tenant, ok := requireTenant(c)
	if !ok {
		return
	}
	res, err := h.Engine.Get(c.Request.Context(), tenant, reservation.Ref(c.Param("ref")))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MapReservation(res))
}

func (h ReservationHandler) Confirm(c *gin.Context) {
	h.applyTransition(c, func(tenant catalog.TenantID, ref reservation.Ref) (*reservation.Reservation, error) {
		return h.Engine.Confirm(c.Request.Context(), tenant, ref)
	})
}

func (h ReservationHandler) CheckIn(c *gin.Context) {
	h.applyTransition(c, func(tenant catalog.TenantID, ref reservation.Ref) (*reservation.Reservation, error) {
		return h.Engine.CheckInGuest(c.Request.Context(), tenant, ref)
	})
}

func (h ReservationHandler) CheckOut(c *gin.Context) {
	h.applyTransition(c, func(tenant catalog.TenantID, ref reservation.Ref) (*reservation.Reservation, error) {
		return h.Engine.CheckOutGuest(c.Request.Context(), tenant, ref)
	})
}

func (h ReservationHandler) NoShow(c *gin.Context) {
	h.applyTransition(c, func(tenant catalog.TenantID, ref reservation.Ref) (*reservation.Reservation, error) {
		return h.Engine.MarkNoShow(c.Request.Context(), tenant, ref)
	})
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (h ReservationHandler) Cancel(c *gin.Context) {
	tenant, ok := requireTenant(c)
	if !ok {
		return
	}
	var req cancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "bad_request", "message": err.Error()}})
		return
	}
	res, err := h.Engine.Cancel(c.Request.Context(), tenant, h.caps(tenant), reservation.Ref(c.Param("ref")), req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MapReservation(res))
}

func (h ReservationHandler) applyTransition(c *gin.Context, apply func(catalog.TenantID, reservation.Ref) (*reservation.Reservation, error)) {
	tenant, ok := requireTenant(c)
	if !ok {
		return
	}
	res, err := apply(tenant, reservation.Ref(c.Param("ref")))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MapReservation(res))
}

var _ ReservationHTTP = ReservationHandler{}
