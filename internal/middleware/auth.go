package middleware

import (
	"context"
	"net/http"
	"strings"

	"karmafeed/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	CheckUserKey = "user"
	TokenKey     = "api_token"
	SessionKey   = "user_id"
)

// UserLoader loads the account behind a resolved identity.
type UserLoader interface {
	Get(ctx context.Context, id uint) (*models.User, error)
}

// TokenResolver maps an API token to a user id.
type TokenResolver interface {
	Lookup(ctx context.Context, token string) (uint, error)
}

// AuthRequired rejects anonymous callers. LoadUser must run first.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthenticated",
				"message": "authentication required",
			})
			return
		}
		c.Next()
	}
}

// LoadUser resolves the caller from an Authorization token, falling back to the
// cookie session. tokens may be nil when token auth is disabled. Anonymous
// callers pass through.
func LoadUser(users UserLoader, tokens TokenResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var userID uint
		if token := bearerToken(c.GetHeader("Authorization")); token != "" && tokens != nil {
			if id, err := tokens.Lookup(ctx, token); err == nil {
				userID = id
				c.Set(TokenKey, token)
			}
		}
		if userID == 0 {
			userID = sessionUserID(sessions.Default(c).Get(SessionKey))
		}

		if userID != 0 {
			if user, err := users.Get(ctx, userID); err == nil {
				c.Set(CheckUserKey, user)
			}
		}
		c.Next()
	}
}

// bearerToken accepts "Token <t>" and "Bearer <t>".
func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok {
		return ""
	}
	if !strings.EqualFold(scheme, "Token") && !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func sessionUserID(v interface{}) uint {
	switch id := v.(type) {
	case uint:
		return id
	case int:
		if id > 0 {
			return uint(id)
		}
	case int64:
		if id > 0 {
			return uint(id)
		}
	case float64:
		if id > 0 {
			return uint(id)
		}
	}
	return 0
}

// CurrentUser returns the caller loaded by LoadUser, or nil.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(CheckUserKey)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}

// CurrentUserID returns the caller's id, or 0 for anonymous callers.
func CurrentUserID(c *gin.Context) uint {
	if user := CurrentUser(c); user != nil {
		return user.ID
	}
	return 0
}
