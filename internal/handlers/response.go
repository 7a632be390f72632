package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/librarium-backend/internal/services"
)

type APIError struct {
	Message   string `json:"message"`
	Code      string `json:"code,omitempty"`
	UnlocksAt string `json:"unlocks_at,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// RespondServiceError maps service sentinels onto HTTP statuses so handlers
// never switch on them individually. A locked habit is a 409 carrying the
// unlock boundary.
func RespondServiceError(c *gin.Context, err error) {
	if locked, ok := services.AsHabitLocked(err); ok {
		c.JSON(http.StatusConflict, ErrorEnvelope{
			Error: APIError{
				Message:   locked.Error(),
				Code:      "habit_locked",
				UnlocksAt: locked.UnlocksAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
			},
		})
		return
	}
	switch {
	case errors.Is(err, services.ErrNotFound):
		RespondError(c, http.StatusNotFound, "not_found", err)
	case errors.Is(err, services.ErrValidation):
		RespondError(c, http.StatusBadRequest, "validation", err)
	case errors.Is(err, services.ErrInvalidCredentials):
		RespondError(c, http.StatusUnauthorized, "unauthorized", err)
	case errors.Is(err, services.ErrForbidden):
		RespondError(c, http.StatusForbidden, "forbidden", err)
	case errors.Is(err, services.ErrConflict):
		RespondError(c, http.StatusConflict, "conflict", err)
	case errors.Is(err, services.ErrEmailTaken), errors.Is(err, services.ErrUsernameTaken):
		RespondError(c, http.StatusConflict, "taken", err)
	default:
		RespondError(c, http.StatusInternalServerError, "internal", err)
	}
}
