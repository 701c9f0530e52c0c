package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Check is a named dependency probe. A failing critical check marks the
// service DOWN; any other failure only marks it DEGRADED.
type Check struct {
	Name     string
	Critical bool
	Probe    func(ctx context.Context) error
}

type Handler struct {
	checks  []Check
	timeout time.Duration
}

func NewHandler(checks ...Check) *Handler {
	return &Handler{
		checks:  checks,
		timeout: 2 * time.Second,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	health := r.Group("/health")
	{
		health.GET("/live", h.LivenessCheck)
		health.GET("/ready", h.ReadinessCheck)
	}
}

func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "UP"})
}

func (h *Handler) ReadinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	status, code := "UP", http.StatusOK
	components := make(gin.H, len(h.checks))
	for _, check := range h.checks {
		if err := check.Probe(ctx); err != nil {
			components[check.Name] = gin.H{"status": "DOWN", "reason": err.Error()}
			if check.Critical {
				status, code = "DOWN", http.StatusServiceUnavailable
			} else if status == "UP" {
				status = "DEGRADED"
			}
			continue
		}
		components[check.Name] = gin.H{"status": "UP"}
	}

	c.JSON(code, gin.H{
		"status":     status,
		"components": components,
	})
}
