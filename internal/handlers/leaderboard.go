package handlers

import (
	"net/http"

	"karmafeed/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type LeaderboardHandler struct {
	leaderboard *services.LeaderboardService
	log         zerolog.Logger
}

func NewLeaderboardHandler(svc *services.Services, log zerolog.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboard: svc.Leaderboard, log: log}
}

// Top serves the trailing-window leaderboard. It is recomputed per request.
func (h *LeaderboardHandler) Top(c *gin.Context) {
	entries, err := h.leaderboard.Top(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"leaderboard": entries})
}
