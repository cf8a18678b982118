package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spotshare/internal/api"
	"spotshare/internal/auth"
	"spotshare/internal/booking"
	"spotshare/internal/clock"
	"spotshare/internal/config"
	"spotshare/internal/db"
	"spotshare/internal/events"
	"spotshare/internal/logger"
	"spotshare/internal/scheduler"
	"spotshare/internal/spot"
	"spotshare/internal/wallet"
)

const testSecret = "test-secret-at-least-16"

func TestMain(m *testing.M) {
	logger.Init()
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func TestMetricsMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(MetricsMiddleware())

	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestLoggingMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(RequestLoggingMiddleware())

	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(RateLimitMiddleware(1, 3))

	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))
		assert.Equal(t, http.StatusOK, w.Code, "request %d", i)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))
	require.Equal(t, http.StatusTooManyRequests, w.Code)

	var resp api.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "rate_limited", resp.Code)
}

func TestRateLimitKeysByUser(t *testing.T) {
	router := gin.New()
	first, second := uuid.New(), uuid.New()
	router.Use(func(c *gin.Context) {
		id := first
		if c.GetHeader("X-Test-User") == "second" {
			id = second
		}
		auth.SetUser(c, id, auth.RoleUser)
		c.Next()
	})
	router.Use(RateLimitMiddleware(1, 1))
	router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("X-Test-User", "second")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimiterEvictsIdleVisitors(t *testing.T) {
	rl := &RateLimiter{visitors: map[string]*visitor{}, rate: 1, burst: 1, ttl: time.Minute}
	rl.Allow("ip:1.2.3.4")

	rl.evict(time.Now().Add(2 * time.Minute))
	assert.Empty(t, rl.visitors)
}

func TestCorsMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(corsMiddleware([]string{"http://localhost:3000"}))

	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCorsMiddleware_OPTIONS(t *testing.T) {
	router := gin.New()
	router.Use(corsMiddleware([]string{"http://localhost:3000"}))

	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	req := httptest.NewRequest("OPTIONS", "/test", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
}

type emptyCandidates struct{}

func (emptyCandidates) Candidates(context.Context) ([]scheduler.Candidate, error) {
	return []scheduler.Candidate{}, nil
}

func (emptyCandidates) SetSpotStatus(context.Context, uuid.UUID, []spot.Status, spot.Status) (bool, error) {
	return false, nil
}

func (emptyCandidates) CompleteBooking(context.Context, uuid.UUID, time.Time) (bool, error) {
	return false, nil
}

type noTx struct{}

func (noTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }

var _ db.Transactor = noTx{}

func testServer(ping func(context.Context) error) *Server {
	cfg := &config.Config{
		Server:    config.ServerConfig{Port: 8080, AllowOrigins: []string{"http://localhost:3000"}},
		Auth:      config.AuthConfig{JWTSecret: testSecret},
		RateLimit: config.RateLimitConfig{RequestsPerSecond: 100, Burst: 100},
	}
	return New(cfg, Handlers{
		Spots:    spot.NewHandler(nil),
		Bookings: booking.NewHandler(nil),
		Wallet:   wallet.NewHandler(nil),
		Runner:   scheduler.NewRunner(emptyCandidates{}, noTx{}, events.Noop{}, clock.System()),
		Ping:     ping,
	})
}

func token(t *testing.T, role string) string {
	tok, err := auth.GenerateAccessToken(uuid.New(), role, testSecret, time.Hour)
	require.NoError(t, err)
	return "Bearer " + tok
}

func TestServer_Health(t *testing.T) {
	w := httptest.NewRecorder()
	testServer(nil).Router().ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	down := testServer(func(context.Context) error { return errors.New("connection refused") })
	w = httptest.NewRecorder()
	down.Router().ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestServer_ProtectedRoutesRequireToken(t *testing.T) {
	router := testServer(nil).Router()

	for _, route := range []struct{ method, path string }{
		{"POST", "/spots"},
		{"GET", "/bookings/incoming"},
		{"POST", "/bookings/" + uuid.NewString() + "/accept"},
		{"GET", "/wallet"},
	} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(route.method, route.path, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, route.path)
	}
}

func TestServer_PaymentRoutesOnlyWhenConfigured(t *testing.T) {
	router := testServer(nil).Router()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/payments/webhook", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_MaintenanceRequiresAdmin(t *testing.T) {
	router := testServer(nil).Router()

	req := httptest.NewRequest("POST", "/admin/maintenance/run", nil)
	req.Header.Set("Authorization", token(t, auth.RoleUser))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req = httptest.NewRequest("POST", "/admin/maintenance/run", nil)
	req.Header.Set("Authorization", token(t, auth.RoleAdmin))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var report scheduler.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Zero(t, report.Candidates)
}
