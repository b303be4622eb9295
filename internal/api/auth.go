package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/dyluth/warren/internal/users"
)

// contextKeyUserID is where the auth middleware stores the authenticated
// user's ID on the request context.
const contextKeyUserID = "user_id"

// requireAuth rejects requests without a valid session token. The token is
// taken from the Authorization header, or from a "token" query parameter for
// clients that cannot set headers (the EventSource API).
func requireAuth(auth *users.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if header == "" {
				if token := c.QueryParam("token"); token != "" {
					header = "Bearer " + token
				}
			}

			const prefix = "Bearer "
			if !strings.HasPrefix(header, prefix) {
				return c.JSON(http.StatusUnauthorized, errorResponse{Message: "missing or malformed authorization"})
			}

			userID, err := auth.Authenticate(strings.TrimPrefix(header, prefix))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, errorResponse{Message: "invalid or expired session"})
			}

			c.Set(contextKeyUserID, userID)
			return next(c)
		}
	}
}

// actorID returns the authenticated user's ID set by requireAuth.
func actorID(c echo.Context) string {
	id, _ := c.Get(contextKeyUserID).(string)
	return id
}
