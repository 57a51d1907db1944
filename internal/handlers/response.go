package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	pkgerrors "github.com/AlkaloidWells/GraphWork/internal/pkg/errors"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
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

// respondQueryError maps the engine's error taxonomy onto HTTP statuses: an
// unknown target is a 404 distinct from an empty result, bad input is a
// 400, anything else means the graph store misbehaved.
func respondQueryError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pkgerrors.ErrNotFound):
		RespondError(c, http.StatusNotFound, "target_not_found", err)
	case errors.Is(err, pkgerrors.ErrValidation):
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
	case pkgerrors.IsTimeout(err):
		RespondError(c, http.StatusGatewayTimeout, "query_timeout", err)
	default:
		RespondError(c, http.StatusBadGateway, "query_failed", err)
	}
}
