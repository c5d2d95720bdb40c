package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/grmaxv/users_api/internal/models"
	"github.com/grmaxv/users_api/internal/service"
)

type UsersHTTP struct {
	Svc *service.AuthService
}

// Me reports the identity resolved by the auth middleware.
func (h *UsersHTTP) Me(c echo.Context) error {
	user, ok := c.Get("user").(*models.User)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"id":        user.ID,
		"username":  user.Username,
		"email":     user.Email,
		"is_active": user.IsActive,
	})
}

func (h *UsersHTTP) List(c echo.Context) error {
	users, err := h.Svc.ListUsers(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusOK, users)
}

func (h *UsersHTTP) RequestPasswordReset(c echo.Context) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	if err := h.Svc.RequestPasswordReset(c.Request().Context(), req.Email); err != nil {
		switch {
		case errors.Is(err, service.ErrEmailUnknown):
			return echo.NewHTTPError(http.StatusNotFound, "no account with that email")
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message": "password reset instructions sent",
	})
}

func (h *UsersHTTP) ConfirmPasswordReset(c echo.Context) error {
	var req struct {
		Token       string `json:"token"`
		NewPassword string `json:"new_password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	if err := h.Svc.ResetPassword(c.Request().Context(), req.Token, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, service.ErrTokenExpired):
			return echo.NewHTTPError(http.StatusBadRequest, "reset token expired")
		case errors.Is(err, service.ErrTokenMalformed):
			return echo.NewHTTPError(http.StatusBadRequest, "invalid reset token")
		case errors.Is(err, service.ErrTokenRevoked):
			return echo.NewHTTPError(http.StatusBadRequest, "reset token already used")
		case errors.Is(err, service.ErrWeakPassword):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrEmailUnknown):
			return echo.NewHTTPError(http.StatusNotFound, "user not found")
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message": "password updated",
	})
}
