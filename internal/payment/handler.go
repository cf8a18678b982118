package payment

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"spotshare/internal/api"
	"spotshare/internal/auth"
	"spotshare/internal/logger"
)

const maxWebhookBytes = 64 << 10

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type TopUpRequest struct {
	AmountCents int64 `json:"amount_cents" binding:"required,gt=0" example:"5000"`
}

type VerifyRequest struct {
	SessionID string `json:"session_id" binding:"required" example:"cs_test_a1b2c3"`
}

// TopUp godoc
// @Summary      Start a wallet top-up
// @Description  Creates a hosted checkout session. The wallet is credited once the payment is confirmed.
// @Tags         wallet
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      TopUpRequest  true  "Amount"
// @Success      201      {object}  Session
// @Failure      400      {object}  api.ErrorResponse
// @Router       /wallet/checkout [post]
func (h *Handler) TopUp(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		api.Unauthorized(c)
		return
	}

	var req TopUpRequest
	if !api.BindJSON(c, &req) {
		return
	}

	sess, err := h.service.CheckoutTopUp(c.Request.Context(), userID, req.AmountCents)
	if err != nil {
		api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sess)
}

// BookingCheckout godoc
// @Summary      Pay for a booking request
// @Description  Creates a checkout session for the booking total. On confirmation the booking is accepted automatically.
// @Tags         bookings
// @Security     BearerAuth
// @Produce      json
// @Param        bookingID  path      string  true  "Booking ID"
// @Success      201        {object}  Session
// @Failure      403        {object}  api.ErrorResponse
// @Failure      409        {object}  api.ErrorResponse
// @Router       /bookings/{bookingID}/checkout [post]
func (h *Handler) BookingCheckout(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		api.Unauthorized(c)
		return
	}
	id, err := uuid.Parse(c.Param("bookingID"))
	if err != nil {
		api.BadRequest(c, "invalid booking id")
		return
	}

	sess, err := h.service.CheckoutBooking(c.Request.Context(), userID, id)
	if err != nil {
		api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sess)
}

// Verify godoc
// @Summary      Confirm a checkout session
// @Tags         wallet
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      VerifyRequest  true  "Session"
// @Success      200      {object}  Result
// @Failure      403      {object}  api.ErrorResponse
// @Failure      409      {object}  api.ErrorResponse
// @Router       /payments/verify [post]
func (h *Handler) Verify(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		api.Unauthorized(c)
		return
	}

	var req VerifyRequest
	if !api.BindJSON(c, &req) {
		return
	}

	res, err := h.service.Verify(c.Request.Context(), userID, req.SessionID)
	if err != nil {
		api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Webhook godoc
// @Summary      Payment gateway callback
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        Stripe-Signature  header    string  true  "Signature"
// @Success      200               {object}  api.MessageResponse
// @Failure      400               {object}  api.ErrorResponse
// @Failure      413               {object}  api.ErrorResponse
// @Router       /payments/webhook [post]
func (h *Handler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBytes+1))
	if err != nil {
		api.BadRequest(c, "failed to read body")
		return
	}
	if len(payload) > maxWebhookBytes {
		c.JSON(http.StatusRequestEntityTooLarge, api.ErrorResponse{
			Error: "webhook payload too large",
			Code:  "payload_too_large",
		})
		return
	}

	res, err := h.service.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		logger.Warn("webhook rejected", "error", err)
		api.RespondError(c, err)
		return
	}
	if res == nil {
		c.JSON(http.StatusOK, api.MessageResponse{Message: "ignored"})
		return
	}
	if res.AlreadyProcessed {
		logger.Info("webhook for settled session", "session_id", res.SessionID)
	}
	c.JSON(http.StatusOK, res)
}
