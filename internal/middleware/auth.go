package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/grmaxv/users_api/internal/service"
)

type TokenAuth struct {
	Svc *service.AuthService
}

func NewTokenAuth(svc *service.AuthService) *TokenAuth {
	return &TokenAuth{Svc: svc}
}

// RequireAuth runs the full session-validity decision for every protected
// request. All authentication failures look the same to the client; storage
// failures come back as 500 so callers can tell an outage from a bad token.
func (m *TokenAuth) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := BearerToken(c)
		if token == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
		}

		user, err := m.Svc.Authenticate(c.Request().Context(), token)
		if err != nil {
			if service.IsAuthFailure(err) {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
			}
			return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
		}

		c.Set("user", user)
		c.Set("token", token)
		return next(c)
	}
}

// BearerToken pulls the token from the Authorization header, falling back to
// the accessToken cookie.
func BearerToken(c echo.Context) string {
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	if cookie, err := c.Cookie("accessToken"); err == nil {
		return cookie.Value
	}
	return ""
}
