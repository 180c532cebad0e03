package httpserver

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pscheid92/threadpulse/internal/domain"
)

const (
	apiRatePerSecond = 20
	apiRateBurst     = 40
	maxBodySize      = "1M"
)

func (s *Server) registerRoutes() {
	s.echo.Use(correlationMiddleware)
	s.echo.Use(s.setupRequestLoggerMiddleware())
	s.echo.Use(middleware.Recover())
	if s.httpMetrics != nil {
		s.echo.Use(s.httpMetrics.Middleware())
	}
	s.echo.Use(ErrorHandlingMiddleware())
	s.echo.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:      "",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		HSTSMaxAge:         63072000, // 2 years; only sent over HTTPS
		ReferrerPolicy:     "no-referrer",
	}))
	s.echo.Use(middleware.BodyLimit(maxBodySize))

	s.registerHealthRoutes()

	api := s.echo.Group("", newRateLimiter(apiRatePerSecond, apiRateBurst))
	s.registerAuthRoutes(api)
	s.registerThreadRoutes(api)
	s.registerVoteRoutes(api)
	api.GET("/leaderboards", s.handleLeaderboard)
}

func (s *Server) registerVoteRoutes(g *echo.Group) {
	votes := []struct {
		path   string
		target domain.Vote
	}{
		{"up-vote", domain.VoteUp},
		{"down-vote", domain.VoteDown},
		{"neutral-vote", domain.VoteNone},
	}
	for _, v := range votes {
		g.POST("/threads/:threadId/"+v.path, s.handleVote(domain.KindThread, v.target), s.requireAuth)
		g.POST("/threads/:threadId/comments/:commentId/"+v.path, s.handleVote(domain.KindComment, v.target), s.requireAuth)
	}
}

func (s *Server) setupRequestLoggerMiddleware() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
			}
			if v.Error != nil {
				attrs = append(attrs, "error", v.Error)
			}
			slog.InfoContext(c.Request().Context(), "Request", attrs...)
			return nil
		},
	})
}
