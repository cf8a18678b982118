package events

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type HistoryHandler struct {
	pub *RedisPublisher
}

func NewHistoryHandler(pub *RedisPublisher) *HistoryHandler {
	return &HistoryHandler{pub: pub}
}

// Recent godoc
// @Summary Latest change events
// @Tags events
// @Produce json
// @Param limit query int false "max events" default(50)
// @Success 200 {array} object
// @Security BearerAuth
// @Router /events/recent [get]
func (h *HistoryHandler) Recent(c *gin.Context) {
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "50"), 10, 64)

	items, err := h.pub.Recent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load events"})
		return
	}
	c.JSON(http.StatusOK, items)
}
