package handlers

import (
	"errors"
	"net/http"

	"karmafeed/internal/services"
	"karmafeed/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// statusFor maps a service error onto an HTTP status and a stable code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, services.ErrAlreadyLiked):
		return http.StatusConflict, "already_liked"
	case errors.Is(err, services.ErrUsernameTaken):
		return http.StatusConflict, "username_taken"
	case errors.Is(err, services.ErrInvalidTarget):
		return http.StatusBadRequest, "invalid_target"
	case errors.Is(err, services.ErrInvalidParent):
		return http.StatusBadRequest, "invalid_parent"
	case errors.Is(err, services.ErrEmptyContent):
		return http.StatusBadRequest, "empty_content"
	case errors.Is(err, services.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, services.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials"
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	}
	return http.StatusInternalServerError, "internal"
}

// respondError writes err as JSON. Unexpected errors are logged and masked.
func respondError(c *gin.Context, log zerolog.Logger, err error) {
	status, code := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		log.Error().
			Err(err).
			Str("request_id", c.GetString("request_id")).
			Str("path", c.Request.URL.Path).
			Msg("Request failed")
		message = "internal server error"
	}
	c.AbortWithStatusJSON(status, errorBody{Error: code, Message: message})
}

// paramID parses a positive id path parameter.
func paramID(c *gin.Context, name string) (uint, error) {
	id := utils.ParseID(c.Param(name))
	if id == 0 {
		return 0, services.ErrInvalidInput
	}
	return id, nil
}
