package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

// HealthHandler отвечает на проверки живости.
type HealthHandler struct {
	db           *sqlx.DB
	pingTimeout  time.Duration
	pendingCount func() int
}

// NewHealthHandler создаёт health handler. pending возвращает число ещё не доставленных
// уведомлений, может быть nil.
func NewHealthHandler(db *sqlx.DB, pending func() int) *HealthHandler {
	return &HealthHandler{db: db, pingTimeout: 3 * time.Second, pendingCount: pending}
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
	Pending   int               `json:"pending_notifications"`
}

// Health обрабатывает GET /health.
func (h *HealthHandler) Health(c *gin.Context) {
	checks := make(map[string]string)
	status := "healthy"

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.pingTimeout)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		checks["database"] = "unhealthy"
		status = "unhealthy"
	} else {
		checks["database"] = "healthy"
	}
	checks["driver"] = h.db.DriverName()

	pending := 0
	if h.pendingCount != nil {
		pending = h.pendingCount()
	}

	statusCode := http.StatusOK
	if status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Checks:    checks,
		Pending:   pending,
	})
}
