package booking

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"spotshare/internal/api"
	"spotshare/internal/auth"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func bookingID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("bookingID"))
	if err != nil {
		api.BadRequest(c, "invalid booking id")
		return uuid.Nil, false
	}
	return id, true
}

func page(c *gin.Context) (int, int) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	return limit, offset
}

// Create godoc
// @Summary      Request a spot
// @Description  Creates a pending booking request after checking the spot's availability.
// @Tags         bookings
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        spotID  path      string                true  "Spot ID"
// @Param        request body      CreateBookingRequest  true  "Stay"
// @Success      201     {object}  BookingRequest
// @Failure      400     {object}  api.ErrorResponse
// @Failure      404     {object}  api.ErrorResponse
// @Failure      409     {object}  api.ErrorResponse
// @Router       /spots/{spotID}/bookings [post]
func (h *Handler) Create(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		api.Unauthorized(c)
		return
	}
	spotID, err := uuid.Parse(c.Param("spotID"))
	if err != nil {
		api.BadRequest(c, "invalid spot id")
		return
	}

	var req CreateBookingRequest
	if !api.BindJSON(c, &req) {
		return
	}

	b, err := h.service.Create(c.Request.Context(), userID, spotID, req)
	if err != nil {
		api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

// Accept godoc
// @Summary      Accept a booking request
// @Description  Owner-only. Settles the payment from the requester's wallet in the same transaction.
// @Tags         bookings
// @Security     BearerAuth
// @Produce      json
// @Param        bookingID  path      string  true  "Booking ID"
// @Success      200        {object}  AcceptResponse
// @Failure      402        {object}  api.ErrorResponse
// @Failure      403        {object}  api.ErrorResponse
// @Failure      409        {object}  api.ErrorResponse
// @Router       /bookings/{bookingID}/accept [post]
func (h *Handler) Accept(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		api.Unauthorized(c)
		return
	}
	id, ok := bookingID(c)
	if !ok {
		return
	}

	resp, err := h.service.Accept(c.Request.Context(), userID, id)
	if err != nil {
		api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Reject godoc
// @Summary      Reject a booking request
// @Tags         bookings
// @Security     BearerAuth
// @Produce      json
// @Param        bookingID  path      string  true  "Booking ID"
// @Success      200        {object}  BookingRequest
// @Failure      403        {object}  api.ErrorResponse
// @Failure      409        {object}  api.ErrorResponse
// @Router       /bookings/{bookingID}/reject [post]
func (h *Handler) Reject(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		api.Unauthorized(c)
		return
	}
	id, ok := bookingID(c)
	if !ok {
		return
	}

	b, err := h.service.Reject(c.Request.Context(), userID, id)
	if err != nil {
		api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// ListIncoming godoc
// @Summary      Requests for my spots
// @Tags         bookings
// @Security     BearerAuth
// @Produce      json
// @Param        limit   query     int  false  "page size"  default(50)
// @Param        offset  query     int  false  "offset"     default(0)
// @Success      200     {array}   View
// @Router       /bookings/incoming [get]
func (h *Handler) ListIncoming(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		api.Unauthorized(c)
		return
	}
	limit, offset := page(c)

	views, err := h.service.ListIncoming(c.Request.Context(), userID, limit, offset)
	if err != nil {
		api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

// ListOutgoing godoc
// @Summary      My requests
// @Tags         bookings
// @Security     BearerAuth
// @Produce      json
// @Param        limit   query     int  false  "page size"  default(50)
// @Param        offset  query     int  false  "offset"     default(0)
// @Success      200     {array}   View
// @Router       /bookings/outgoing [get]
func (h *Handler) ListOutgoing(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		api.Unauthorized(c)
		return
	}
	limit, offset := page(c)

	views, err := h.service.ListOutgoing(c.Request.Context(), userID, limit, offset)
	if err != nil {
		api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}
