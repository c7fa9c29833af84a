package diagnostics

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kidpech/users_api/pkg/response"
)

// Handler exposes health, info and debug endpoints.
type Handler struct {
	buffer  *LogBuffer
	started time.Time
	name    string
	version string
	now     func() time.Time
}

// NewHandler returns handler. Uptime is measured from this call.
func NewHandler(buffer *LogBuffer, name, version string) *Handler {
	return &Handler{
		buffer:  buffer,
		started: time.Now(),
		name:    name,
		version: version,
		now:     time.Now,
	}
}

// RegisterRoot attaches the bare liveness probe.
func (h *Handler) RegisterRoot(r gin.IRoutes) {
	r.GET("/health", h.health)
}

// RegisterPublic attaches non-auth endpoints under the API group.
func (h *Handler) RegisterPublic(rg *gin.RouterGroup) {
	rg.GET("", h.info)
	rg.GET("/health", h.apiHealth)
}

// RegisterProtected attaches debug endpoints. The caller guards them.
func (h *Handler) RegisterProtected(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	rg.GET("/debug/logs", authMW, h.logs)
}

func (h *Handler) uptime() float64 {
	return h.now().Sub(h.started).Seconds()
}

func (h *Handler) timestamp() string {
	return h.now().UTC().Format(time.RFC3339Nano)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": h.timestamp(),
		"uptime":    h.uptime(),
	})
}

func (h *Handler) apiHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   "API is running",
		"timestamp": h.timestamp(),
		"uptime":    h.uptime(),
	})
}

func (h *Handler) info(c *gin.Context) {
	response.OK(c, gin.H{
		"name":    h.name,
		"version": h.version,
		"endpoints": gin.H{
			"health": "/api/health",
			"users": gin.H{
				"list":    "GET /api/users",
				"search":  "GET /api/users/search?q=",
				"stats":   "GET /api/users/stats",
				"me":      "GET /api/users/me",
				"getById": "GET /api/users/:id",
				"update":  "PUT /api/users/:id",
				"delete":  "DELETE /api/users/:id",
			},
		},
	})
}

func (h *Handler) logs(c *gin.Context) {
	response.OK(c, gin.H{"logs": h.buffer.Snapshot()})
}
