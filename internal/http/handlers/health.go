package handlers

import (
	"math"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
)

// Readiness reports whether dependencies are usable; nil means ready.
type Readiness func() error

type HealthHandler struct {
	svc   AttentionService
	ready Readiness
}

func NewHealthHandler(svc AttentionService, ready Readiness) *HealthHandler {
	return &HealthHandler{svc: svc, ready: ready}
}

// GET /healthz
func (h *HealthHandler) Live(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// GET /readyz
func (h *HealthHandler) Ready(c *gin.Context) {
	if h.ready != nil {
		if err := h.ready(); err != nil {
			c.String(http.StatusServiceUnavailable, err.Error())
			return
		}
	}
	c.String(http.StatusOK, "ok")
}

// GET /api/test
func (h *HealthHandler) Test(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"message":    "Attention server is running",
		"timestamp":  time.Now().UnixMilli(),
		"user_count": h.svc.Stats().Users,
	})
}

// GET /api/health
func (h *HealthHandler) Health(c *gin.Context) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	st := h.svc.Stats()

	var lastCleanup int64
	if !st.LastEviction.IsZero() {
		lastCleanup = st.LastEviction.UnixMilli()
	}
	c.JSON(http.StatusOK, gin.H{
		"status":            "ok",
		"timestamp":         time.Now().UnixMilli(),
		"users_tracked":     st.Users,
		"calibration_users": st.Calibrated,
		"memory_usage_mb":   math.Round(float64(ms.Alloc)/(1<<20)*100) / 100,
		"goroutines":        runtime.NumGoroutine(),
		"last_cleanup":      lastCleanup,
	})
}
