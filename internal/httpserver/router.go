package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/grmaxv/users_api/internal/middleware"
)

type Deps struct {
	AuthHandler  *AuthHTTP
	UsersHandler *UsersHTTP
	Auth         *middleware.TokenAuth
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	e.POST("/register", d.AuthHandler.Register)
	e.POST("/login", d.AuthHandler.Login)

	e.GET("/users", d.UsersHandler.List)
	e.POST("/password-reset", d.UsersHandler.RequestPasswordReset)
	e.POST("/password-reset/confirm", d.UsersHandler.ConfirmPasswordReset)

	private := e.Group("")
	private.Use(d.Auth.RequireAuth)

	private.POST("/logout", d.AuthHandler.LogOut)
	private.GET("/users/me", d.UsersHandler.Me)
}
