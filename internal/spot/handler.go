package spot

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

func spotID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("spotID"))
	if err != nil {
		api.BadRequest(c, "invalid spot id")
		return uuid.Nil, false
	}
	return id, true
}

// @Summary      Create a spot
// @Tags         spots
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body spot.CreateSpotRequest true "Spot payload"
// @Success      201 {object} spot.Spot
// @Failure      400 {object} api.ErrorResponse
// @Failure      401 {object} api.ErrorResponse
// @Router       /spots [post]
func (h *Handler) Create(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		api.Unauthorized(c)
		return
	}

	var req CreateSpotRequest
	if !api.BindJSON(c, &req) {
		return
	}

	sp, err := h.service.Create(c.Request.Context(), userID, req)
	if err != nil {
		api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sp)
}

// @Summary      List spots
// @Tags         spots
// @Produce      json
// @Security     BearerAuth
// @Param        limit  query int false "page size" default(50)
// @Param        offset query int false "offset" default(0)
// @Success      200 {array} spot.View
// @Router       /spots [get]
func (h *Handler) List(c *gin.Context) {
	viewer, _ := auth.GetUserID(c)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	views, err := h.service.List(c.Request.Context(), viewer, limit, offset)
	if err != nil {
		api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

// @Summary      Get a spot
// @Description  Returns the spot with its schedule, blackout dates and the status viewers should see
// @Tags         spots
// @Produce      json
// @Security     BearerAuth
// @Param        spotID path string true "Spot ID"
// @Success      200 {object} spot.View
// @Failure      404 {object} api.ErrorResponse
// @Router       /spots/{spotID} [get]
func (h *Handler) Get(c *gin.Context) {
	id, ok := spotID(c)
	if !ok {
		return
	}
	viewer, _ := auth.GetUserID(c)

	v, err := h.service.Get(c.Request.Context(), viewer, id)
	if err != nil {
		api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// @Summary      Set spot status
// @Description  Owner-only manual override of the stored status
// @Tags         spots
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        spotID  path string true "Spot ID"
// @Param        request body spot.UpdateStatusRequest true "Status"
// @Success      200 {object} spot.Spot
// @Failure      400 {object} api.ErrorResponse
// @Failure      403 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Router       /spots/{spotID}/status [patch]
func (h *Handler) SetStatus(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		api.Unauthorized(c)
		return
	}
	id, ok := spotID(c)
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if !api.BindJSON(c, &req) {
		return
	}

	sp, err := h.service.SetStatus(c.Request.Context(), userID, id, req.Status)
	if err != nil {
		api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sp)
}

// @Summary      Replace weekly schedule
// @Description  An empty slot list removes the schedule and the spot falls back to default_available
// @Tags         spots
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        spotID  path string true "Spot ID"
// @Param        request body spot.ReplaceScheduleRequest true "Slots"
// @Success      200 {array} spot.ScheduleSlot
// @Failure      400 {object} api.ErrorResponse
// @Failure      403 {object} api.ErrorResponse
// @Router       /spots/{spotID}/schedule [put]
func (h *Handler) ReplaceSchedule(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		api.Unauthorized(c)
		return
	}
	id, ok := spotID(c)
	if !ok {
		return
	}

	var req ReplaceScheduleRequest
	if !api.BindJSON(c, &req) {
		return
	}

	slots, err := h.service.ReplaceSchedule(c.Request.Context(), userID, id, req)
	if err != nil {
		api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, slots)
}

// @Summary      Add a blackout date
// @Tags         spots
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        spotID  path string true "Spot ID"
// @Param        request body spot.BlackoutRequest true "Blackout"
// @Success      201 {object} spot.BlackoutDate
// @Failure      400 {object} api.ErrorResponse
// @Failure      403 {object} api.ErrorResponse
// @Router       /spots/{spotID}/blackouts [post]
func (h *Handler) AddBlackout(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		api.Unauthorized(c)
		return
	}
	id, ok := spotID(c)
	if !ok {
		return
	}

	var req BlackoutRequest
	if !api.BindJSON(c, &req) {
		return
	}

	b, err := h.service.AddBlackout(c.Request.Context(), userID, id, req)
	if err != nil {
		api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

// @Summary      Remove a blackout date
// @Tags         spots
// @Produce      json
// @Security     BearerAuth
// @Param        spotID path string true "Spot ID"
// @Param        date   path string true "Date (YYYY-MM-DD)"
// @Success      200 {object} api.MessageResponse
// @Failure      404 {object} api.ErrorResponse
// @Router       /spots/{spotID}/blackouts/{date} [delete]
func (h *Handler) RemoveBlackout(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		api.Unauthorized(c)
		return
	}
	id, ok := spotID(c)
	if !ok {
		return
	}

	if err := h.service.RemoveBlackout(c.Request.Context(), userID, id, c.Param("date")); err != nil {
		api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.MessageResponse{Message: "blackout removed"})
}

// @Summary      Check availability
// @Description  Dry run of the bookability check for a stay
// @Tags         spots
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        spotID  path string true "Spot ID"
// @Param        request body spot.CheckAvailabilityRequest true "Stay"
// @Success      200 {object} availability.Verdict
// @Failure      400 {object} api.ErrorResponse
// @Router       /spots/{spotID}/availability [post]
func (h *Handler) CheckAvailability(c *gin.Context) {
	id, ok := spotID(c)
	if !ok {
		return
	}

	var req CheckAvailabilityRequest
	if !api.BindJSON(c, &req) {
		return
	}
	stay, err := req.Stay()
	if err != nil {
		api.RespondError(c, err)
		return
	}

	verdict, err := h.service.CheckAvailability(c.Request.Context(), id, stay)
	if err != nil {
		api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, verdict)
}
