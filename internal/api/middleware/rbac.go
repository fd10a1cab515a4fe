package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireRole admits only operators whose token role, as set by Auth, is one
// of roles. The operator routes (/add_points, settlement and sale ingestion)
// are mounted behind RequireRole(domain.RoleAdmin). Influencer accounts carry
// no token role and are always refused.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if role, _ := c.Get(ContextKeyRole).(string); !allowed[role] {
				return echo.NewHTTPError(http.StatusForbidden, "operator role required")
			}
			return next(c)
		}
	}
}
