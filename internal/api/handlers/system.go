package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger checks one dependency's liveness.
type Pinger func(ctx context.Context) error

type SystemHandler struct {
	db    Pinger
	deps  map[string]Pinger // readiness-only dependencies
	start time.Time
}

func NewSystemHandler(db Pinger, deps map[string]Pinger) *SystemHandler {
	return &SystemHandler{db: db, deps: deps, start: time.Now()}
}

// Health is the liveness probe used by the kiosk frontend: it reports the
// database state but stays 200-or-500 only.
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	dbStatus := "connected"
	status := http.StatusOK
	if err := h.db(ctx); err != nil {
		dbStatus = "disconnected"
		status = http.StatusInternalServerError
	}

	c.JSON(status, gin.H{
		"status":    statusWord(status),
		"database":  dbStatus,
		"uptime":    time.Since(h.start).Round(time.Second).String(),
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// Readyz checks every dependency and returns 503 until all are reachable.
func (h *SystemHandler) Readyz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	checks := gin.H{}
	ready := true

	if err := h.db(ctx); err != nil {
		checks["postgres"] = err.Error()
		ready = false
	} else {
		checks["postgres"] = "ok"
	}

	for name, ping := range h.deps {
		if err := ping(ctx); err != nil {
			checks[name] = err.Error()
			ready = false
		} else {
			checks[name] = "ok"
		}
	}

	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"ready": ready, "checks": checks})
}

func statusWord(code int) string {
	if code == http.StatusOK {
		return "healthy"
	}
	return "unhealthy"
}
