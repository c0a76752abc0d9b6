package handlers

import (
	"context"
	"net/http"

	"karmafeed/internal/middleware"
	"karmafeed/internal/models"
	"karmafeed/internal/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// TokenIssuer hands out and revokes API tokens.
type TokenIssuer interface {
	Issue(ctx context.Context, userID uint) (string, error)
	Revoke(ctx context.Context, token string) error
}

type AuthHandler struct {
	users  *services.UserService
	tokens TokenIssuer
	log    zerolog.Logger
}

// NewAuthHandler builds the handler. tokens may be nil, in which case only the
// cookie session is established.
func NewAuthHandler(users *services.UserService, tokens TokenIssuer, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens, log: log}
}

type credentials struct {
	Username string `json:"username" form:"username" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

type authResponse struct {
	Token string       `json:"token,omitempty"`
	User  *models.User `json:"user"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req credentials
	if err := c.ShouldBind(&req); err != nil {
		respondError(c, h.log, services.ErrInvalidInput)
		return
	}

	user, err := h.users.Register(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	h.login(c, user, http.StatusCreated)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req credentials
	if err := c.ShouldBind(&req); err != nil {
		respondError(c, h.log, services.ErrInvalidInput)
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	h.login(c, user, http.StatusOK)
}

// login opens a cookie session and, when enabled, issues an API token.
func (h *AuthHandler) login(c *gin.Context, user *models.User, status int) {
	var token string
	if h.tokens != nil {
		var err error
		token, err = h.tokens.Issue(c.Request.Context(), user.ID)
		if err != nil {
			respondError(c, h.log, err)
			return
		}
	}

	session := sessions.Default(c)
	session.Set(middleware.SessionKey, user.ID)
	if err := session.Save(); err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(status, authResponse{Token: token, User: user})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	if token := c.GetString(middleware.TokenKey); token != "" && h.tokens != nil {
		if err := h.tokens.Revoke(c.Request.Context(), token); err != nil {
			respondError(c, h.log, err)
			return
		}
	}

	session := sessions.Default(c)
	session.Clear()
	session.Save()

	c.JSON(http.StatusOK, gin.H{"status": "logged_out"})
}

// Me returns the caller.
func (h *AuthHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"user": middleware.CurrentUser(c)})
}
