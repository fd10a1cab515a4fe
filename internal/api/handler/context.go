package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/linkloot/affiliate-api/internal/api/middleware"
)

// ctxOperator returns the operator identity injected by the Auth middleware.
// Its presence proves the middleware ran; a token without a subject is
// structurally valid but cannot be audited, so it is rejected with 401.
func ctxOperator(c echo.Context) (string, error) {
	op, _ := c.Get(middleware.ContextKeyOperator).(string)
	if op == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "token missing operator identity")
	}
	return op, nil
}
