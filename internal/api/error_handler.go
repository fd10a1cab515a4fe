package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/linkloot/affiliate-api/internal/api/handler"
	"github.com/linkloot/affiliate-api/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error string `json:"error"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their HTTP status codes and messages.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<message>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, errorResponse{Error: msg})
	}
}

// invalidInputMessage returns the validation message without the route's
// operation prefix.
func invalidInputMessage(err error) string {
	var oe *handler.OperationError
	if errors.As(err, &oe) && oe.Err != nil {
		return oe.Err.Error()
	}
	return err.Error()
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Echo's own errors (bind failures, 404 from router, middleware rejections).
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	var be *domain.BalanceError
	if errors.As(err, &be) {
		return http.StatusBadRequest, fmt.Sprintf("You need at least %d points to redeem.", be.Required)
	}

	// Specific domain errors first, then their kinds.
	switch {
	case errors.Is(err, domain.ErrEmailTaken):
		return http.StatusConflict, "An account with this email already exists."
	case errors.Is(err, domain.ErrUsernameTaken):
		return http.StatusConflict, "This username is already taken."
	case errors.Is(err, domain.ErrBalanceChanged):
		return http.StatusConflict, "Your balance changed while processing the request. Please try again."
	case errors.Is(err, domain.ErrNotPending):
		return http.StatusConflict, "Transaction is not pending approval."
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid email or password."
	case errors.Is(err, domain.ErrNotOwner):
		return http.StatusForbidden, "Unauthorized action."
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, "User not found."
	case errors.Is(err, domain.ErrProductNotFound):
		return http.StatusNotFound, "Product not found."
	case errors.Is(err, domain.ErrTransactionNotFound):
		return http.StatusNotFound, "Transaction not found."
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, invalidInputMessage(err)
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "Not found."
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, "Conflict."
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "Unauthorized."
	}

	msg := "internal server error"
	var oe *handler.OperationError
	if errors.As(err, &oe) {
		msg = oe.Message
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
		Msg("unhandled error")

	return http.StatusInternalServerError, msg
}
