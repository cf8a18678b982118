package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"spotshare/internal/api"
	"spotshare/internal/logger"
	"spotshare/internal/scheduler"
)

// Health godoc
// @Summary      Health check
// @Description  Reports ok when the database answers a ping.
// @Tags         system
// @Produce      json
// @Success      200 {object} api.HealthResponse
// @Failure      503 {object} api.HealthResponse
// @Router       /health [get]
func Health(ping func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ping != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				logger.Warn("health check failed", "error", err)
				c.JSON(http.StatusServiceUnavailable, api.HealthResponse{Status: "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, api.HealthResponse{Status: "ok"})
	}
}

// Metrics godoc
// @Summary      Prometheus metrics
// @Description  Exposes Prometheus metrics in text format
// @Tags         system
// @Produce      text/plain
// @Success      200 {string} string
// @Router       /metrics [get]
func Metrics() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

// RunMaintenance godoc
// @Summary      Run a scheduler pass now
// @Description  Reserves spots whose bookings have started and completes bookings that have ended.
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Success      200 {object} scheduler.Report
// @Failure      500 {object} api.ErrorResponse
// @Router       /admin/maintenance/run [post]
func RunMaintenance(runner *scheduler.Runner) gin.HandlerFunc {
	return func(c *gin.Context) {
		if runner == nil {
			c.JSON(http.StatusServiceUnavailable, api.ErrorResponse{Error: "scheduler is not configured"})
			return
		}
		report, err := runner.RunOnce(c.Request.Context())
		if err != nil {
			api.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, report)
	}
}
