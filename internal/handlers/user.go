package handlers

import (
	"net/http"

	"karmafeed/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type UserHandler struct {
	users *services.UserService
	log   zerolog.Logger
}

func NewUserHandler(svc *services.Services, log zerolog.Logger) *UserHandler {
	return &UserHandler{users: svc.Users, log: log}
}

// Profile serves a user's karma totals and activity counts.
func (h *UserHandler) Profile(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	profile, err := h.users.Profile(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}
