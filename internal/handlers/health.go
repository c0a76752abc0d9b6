package handlers

import (
	"net/http"
	"time"

	"karmafeed/internal/db"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type HealthHandler struct {
	db *gorm.DB
}

func NewHealthHandler(gdb *gorm.DB) *HealthHandler {
	return &HealthHandler{db: gdb}
}

// Check returns the health status
func (h *HealthHandler) Check(c *gin.Context) {
	status, code := "healthy", http.StatusOK
	if err := db.Ping(h.db); err != nil {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "karmafeed",
	})
}
