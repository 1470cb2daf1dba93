package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/suPer8Hu/n8n-chat/internal/common"
)

func (h *Handler) Ping(c *gin.Context) {
	common.OK(c, gin.H{"message": "pong"})
}

// Health reports dependency status. Only the database is required.
func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	out := gin.H{
		"webhook_configured": h.ChatRelay.Configured(),
	}

	dbState := "ok"
	if sqlDB, err := h.DB.DB(); err != nil {
		dbState = "error"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbState = "down"
	}
	if dbState != "ok" {
		status = http.StatusServiceUnavailable
	}
	out["database"] = dbState

	switch {
	case h.Redis == nil:
		out["redis"] = "disabled"
	case h.Redis.Ping(ctx) != nil:
		out["redis"] = "down"
	default:
		out["redis"] = "ok"
	}

	if status != http.StatusOK {
		c.JSON(status, gin.H{"code": 50302, "message": "unhealthy", "data": out})
		return
	}
	common.OK(c, out)
}
