package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/threadpulse/internal/adapter/metrics"
	"github.com/pscheid92/threadpulse/internal/domain"
	"github.com/pscheid92/threadpulse/internal/platform/config"
	"github.com/prometheus/client_golang/prometheus"
)

type appService interface {
	Register(ctx context.Context, reg domain.Registration) (*domain.User, error)
	Login(ctx context.Context, creds domain.Credentials) (string, error)
	Logout(ctx context.Context, token string) error
	Authenticate(ctx context.Context, token string) (*domain.User, error)

	ListThreads(ctx context.Context, params domain.ListParams, viewer *domain.User) (*domain.Page[domain.Thread], error)
	CreateThread(ctx context.Context, author *domain.User, in domain.NewThread) (*domain.Thread, error)
	GetThread(ctx context.Context, threadID string, viewer *domain.User) (*domain.ThreadDetail, error)
	UpdateThread(ctx context.Context, actor *domain.User, threadID string, in domain.NewThread) (*domain.Thread, error)
	DeleteThread(ctx context.Context, actor *domain.User, threadID string) error
	ListComments(ctx context.Context, threadID string, params domain.ListParams, viewer *domain.User) (*domain.Page[domain.Comment], error)
	CreateComment(ctx context.Context, author *domain.User, threadID, content string) (*domain.Comment, error)
	UpdateComment(ctx context.Context, actor *domain.User, threadID, commentID, content string) (*domain.Comment, error)
	DeleteComment(ctx context.Context, actor *domain.User, threadID, commentID string) error

	CastVote(ctx context.Context, voter *domain.User, ref domain.EntityRef, target domain.Vote) (domain.VoteResult, error)
	Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error)
}

type Server struct {
	echo   *echo.Echo
	config *config.ServerConfig

	app          appService
	healthChecks []HealthCheck
	registry     *prometheus.Registry
	httpMetrics  *metrics.HTTPMetrics
	startTime    time.Time
}

// NewServer wires the forum API. registry may be nil, in which case /metrics
// is not served and requests are not measured.
func NewServer(cfg *config.ServerConfig, app appService, healthChecks []HealthCheck, registry *prometheus.Registry) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:         e,
		config:       cfg,
		app:          app,
		healthChecks: healthChecks,
		registry:     registry,
		startTime:    time.Now(),
	}
	if registry != nil {
		srv.httpMetrics = metrics.NewHTTPMetrics(registry)
	}
	e.HTTPErrorHandler = srv.handleHTTPError

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// ServeHTTP lets tests drive the full middleware chain.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// envelope is the success body of every non-list endpoint.
type envelope struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data"`
}

func respond(c echo.Context, code int, message string, data any) error {
	if err := c.JSON(code, envelope{Status: "success", Message: message, Data: data}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

// respondPage writes list results unwrapped, in the DataTables shape.
func respondPage[T any](c echo.Context, page *domain.Page[T]) error {
	if page.Data == nil {
		page.Data = []T{}
	}
	page.Success = true
	if err := c.JSON(http.StatusOK, page); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}
