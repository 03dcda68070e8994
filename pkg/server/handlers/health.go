package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
)

// Build information - can be set at build time using ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// HealthHandler handles health check requests
type HealthHandler struct {
	svc     Service
	started time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(svc Service) *HealthHandler {
	return &HealthHandler{svc: svc, started: time.Now()}
}

// HealthCheck handles GET /health
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "skls",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   Version,
	})
}

// LivenessCheck handles GET /live for Kubernetes liveness checks
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"service":   "skls",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// ReadinessCheck handles GET /ready. The vector store must answer a
// collection listing within five seconds.
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	checks := gin.H{}
	ready := true

	if h.svc == nil {
		checks["vector_store"] = gin.H{"status": "unhealthy", "error": "client not initialized"}
		ready = false
	} else {
		start := time.Now()
		_, err := h.svc.Store().ListCollections(ctx)
		status := gin.H{"status": "healthy", "duration": time.Since(start).String()}
		if err != nil {
			status["status"] = "unhealthy"
			status["error"] = err.Error()
			ready = false
		}
		checks["vector_store"] = status
	}

	checks["system"] = gin.H{
		"status":     "healthy",
		"uptime":     time.Since(h.started).String(),
		"go_version": GoVersion,
		"git_commit": GitCommit,
		"build_time": BuildTime,
	}

	response := gin.H{
		"status":    "ready",
		"service":   "skls",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	}
	if !ready {
		response["status"] = "not_ready"
		c.JSON(http.StatusServiceUnavailable, response)
		return
	}
	c.JSON(http.StatusOK, response)
}
