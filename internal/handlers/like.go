package handlers

import (
	"errors"
	"net/http"

	"karmafeed/internal/middleware"
	"karmafeed/internal/models"
	"karmafeed/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type LikeHandler struct {
	likes *services.LikeService
	log   zerolog.Logger
}

func NewLikeHandler(svc *services.Services, log zerolog.Logger) *LikeHandler {
	return &LikeHandler{likes: svc.Likes, log: log}
}

// target reads the like target from the route; kind is fixed per route.
func target(c *gin.Context, kind string) (models.LikeTarget, error) {
	id, err := paramID(c, "id")
	if err != nil {
		return models.LikeTarget{}, services.ErrInvalidTarget
	}
	return models.ParseTarget(kind, id)
}

// Like returns the handler for POST .../:id/like.
func (h *LikeHandler) Like(kind string) gin.HandlerFunc {
	return func(c *gin.Context) {
		t, err := target(c, kind)
		if err != nil {
			respondError(c, h.log, err)
			return
		}

		result, err := h.likes.Like(c.Request.Context(), middleware.CurrentUserID(c), t)
		if errors.Is(err, services.ErrAlreadyLiked) {
			c.JSON(http.StatusConflict, gin.H{
				"error":      "already_liked",
				"status":     result.Status,
				"like_count": result.LikeCount,
			})
			return
		}
		if err != nil {
			respondError(c, h.log, err)
			return
		}
		c.JSON(http.StatusCreated, result)
	}
}

// Unlike returns the handler for DELETE .../:id/like.
func (h *LikeHandler) Unlike(kind string) gin.HandlerFunc {
	return func(c *gin.Context) {
		t, err := target(c, kind)
		if err != nil {
			respondError(c, h.log, err)
			return
		}

		result, err := h.likes.Unlike(c.Request.Context(), middleware.CurrentUserID(c), t)
		if err != nil {
			respondError(c, h.log, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}
