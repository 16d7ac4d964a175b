package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger checks connectivity to a backing service
type Pinger interface {
	Ping() error
}

// HealthHandler handles health check endpoints
type HealthHandler struct {
	db        Pinger
	simulated bool
}

// NewHealthHandler creates a new HealthHandler. The simulated flag reports
// whether the tax authority gateway runs against the live API or the
// built-in simulator.
func NewHealthHandler(db Pinger, simulated bool) *HealthHandler {
	return &HealthHandler{db: db, simulated: simulated}
}

// RegisterRoutes registers health routes on the given group
func (h *HealthHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/health", h.Health)
}

// Health reports service, database and gateway status
func (h *HealthHandler) Health(c *gin.Context) {
	mode := "live"
	if h.simulated {
		mode = "simulated"
	}

	body := gin.H{
		"status":    "healthy",
		"time":      time.Now().Format(time.RFC3339),
		"database":  "ok",
		"verifactu": mode,
	}

	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			body["status"] = "unhealthy"
			body["database"] = "error"
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}
	}

	c.JSON(http.StatusOK, body)
}
