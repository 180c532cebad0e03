package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/threadpulse/internal/adapter/metrics"
	"github.com/pscheid92/threadpulse/internal/platform/version"
	"golang.org/x/sync/errgroup"
)

const (
	startupCheckTimeout = 2 * time.Second
	readyCheckTimeout   = 5 * time.Second
)

// HealthCheck pings one backing store.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type healthReport struct {
	Status      string `json:"status"`
	FailedCheck string `json:"failed_check,omitempty"`
	Error       string `json:"error,omitempty"`
}

type failedCheck struct {
	name string
	err  error
}

func (f *failedCheck) Error() string { return f.name + ": " + f.err.Error() }

func (s *Server) registerHealthRoutes() {
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/startup", s.dependencyHealth(startupCheckTimeout))
	s.echo.GET("/health/ready", s.dependencyHealth(readyCheckTimeout))
	s.echo.GET("/version", func(c echo.Context) error {
		return c.JSON(http.StatusOK, version.Get())
	})
	if s.registry != nil {
		s.echo.GET("/metrics", echo.WrapHandler(metrics.Handler(s.registry)))
	}
}

// handleLiveness never touches the stores; a slow database must not get the
// process restarted.
func (s *Server) handleLiveness(c echo.Context) error {
	return c.JSON(http.StatusOK, struct {
		Status string  `json:"status"`
		Uptime float64 `json:"uptime"`
	}{"ok", time.Since(s.startTime).Seconds()})
}

// dependencyHealth runs every check in parallel under timeout and reports
// the first one to fail.
func (s *Server) dependencyHealth(timeout time.Duration) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
		defer cancel()

		var g errgroup.Group
		for _, hc := range s.healthChecks {
			g.Go(func() error {
				if err := hc.Check(ctx); err != nil {
					return &failedCheck{name: hc.Name, err: err}
				}
				return nil
			})
		}

		failed, ok := errors.AsType[*failedCheck](g.Wait())
		if !ok {
			return c.JSON(http.StatusOK, healthReport{Status: "ready"})
		}
		return c.JSON(http.StatusServiceUnavailable, healthReport{
			Status:      "unhealthy",
			FailedCheck: failed.name,
			Error:       failed.err.Error(),
		})
	}
}
