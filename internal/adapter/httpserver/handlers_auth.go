package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/threadpulse/internal/domain"
	apperrors "github.com/pscheid92/threadpulse/internal/platform/errors"
)

func (s *Server) registerAuthRoutes(g *echo.Group) {
	g.POST("/register", s.handleRegister)
	g.POST("/login", s.handleLogin)
	g.POST("/logout", s.handleLogout, s.requireAuth)
	g.GET("/users/me", s.handleMe, s.requireAuth)
}

func (s *Server) handleRegister(c echo.Context) error {
	var req domain.Registration
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	user, err := s.app.Register(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "User created", user)
}

type loginResponse struct {
	Token string `json:"token"`
}

func (s *Server) handleLogin(c echo.Context) error {
	var req domain.Credentials
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.ValidationError("email and password are required")
	}

	token, err := s.app.Login(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Logged in", loginResponse{Token: token})
}

func (s *Server) handleLogout(c echo.Context) error {
	token, _ := c.Get(ctxKeyToken).(string)
	if err := s.app.Logout(c.Request().Context(), token); err != nil {
		return apperrors.InternalError("failed to revoke session", err)
	}
	return respond(c, http.StatusOK, "Logged out", nil)
}

func (s *Server) handleMe(c echo.Context) error {
	return respond(c, http.StatusOK, "", currentUser(c))
}
