package httpserver

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/threadpulse/internal/domain"
	"github.com/pscheid92/threadpulse/internal/platform/correlation"
	apperrors "github.com/pscheid92/threadpulse/internal/platform/errors"
)

const (
	ctxKeyUser   = "user"
	ctxKeyUserID = "userID"
	ctxKeyToken  = "token"
)

func correlationMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := correlation.FromRequest(c.Request())
		ctx := correlation.WithID(c.Request().Context(), id)
		c.SetRequest(c.Request().WithContext(ctx))
		c.Response().Header().Set(correlation.Header, id)
		return next(c)
	}
}

// requireAuth rejects requests without a valid bearer token.
func (s *Server) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := bearerToken(c.Request())
		if token == "" {
			return apperrors.UnauthorizedError("authentication required")
		}
		user, err := s.app.Authenticate(c.Request().Context(), token)
		if err != nil {
			return err
		}
		setUser(c, user, token)
		return next(c)
	}
}

// optionalAuth attaches the user when a valid token is present. A stale
// token degrades to an anonymous request.
func (s *Server) optionalAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := bearerToken(c.Request())
		if token == "" {
			return next(c)
		}
		user, err := s.app.Authenticate(c.Request().Context(), token)
		switch {
		case err == nil:
			setUser(c, user, token)
		case errors.Is(err, domain.ErrUnauthenticated):
		default:
			return err
		}
		return next(c)
	}
}

func setUser(c echo.Context, user *domain.User, token string) {
	c.Set(ctxKeyUser, user)
	c.Set(ctxKeyUserID, user.ID)
	c.Set(ctxKeyToken, token)
}

// currentUser returns the authenticated user or nil.
func currentUser(c echo.Context) *domain.User {
	user, _ := c.Get(ctxKeyUser).(*domain.User)
	return user
}

func bearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get(echo.HeaderAuthorization), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func ErrorHandlingMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}

			if _, ok := errors.AsType[*echo.HTTPError](err); ok {
				return err
			}

			return HandleError(c, err)
		}
	}
}

// handleHTTPError renders errors echo raises itself (unknown route, bad
// method, body too large, rate limiter) in the same envelope.
func (s *Server) handleHTTPError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	if httpErr, ok := errors.AsType[*echo.HTTPError](err); ok {
		err = WrapHTTPError(httpErr)
	}
	if hErr := HandleError(c, err); hErr != nil {
		slog.Error("Failed to write error response", "error", hErr)
	}
}

// toStructured maps domain sentinels onto API error types.
func toStructured(err error) *apperrors.Error {
	if structuredErr, ok := errors.AsType[*apperrors.Error](err); ok {
		return structuredErr
	}

	var e *apperrors.Error
	switch {
	case errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrThreadNotFound),
		errors.Is(err, domain.ErrCommentNotFound):
		e = apperrors.NotFoundError(sentinelMessage(err))
	case errors.Is(err, domain.ErrEmailTaken):
		e = apperrors.ConflictError(domain.ErrEmailTaken.Error())
	case errors.Is(err, domain.ErrInvalidCredentials):
		e = apperrors.UnauthorizedError(domain.ErrInvalidCredentials.Error())
	case errors.Is(err, domain.ErrUnauthenticated):
		e = apperrors.UnauthorizedError(domain.ErrUnauthenticated.Error())
	case errors.Is(err, domain.ErrForbidden):
		e = apperrors.ForbiddenError(domain.ErrForbidden.Error())
	case errors.Is(err, domain.ErrInvalidVote):
		e = apperrors.ValidationError(err.Error())
	case errors.Is(err, domain.ErrVoteRateLimited):
		e = apperrors.RateLimitedError(domain.ErrVoteRateLimited.Error())
	default:
		return apperrors.AsStructuredError(err)
	}
	e.Cause = err
	return e
}

func sentinelMessage(err error) string {
	for _, sentinel := range []error{domain.ErrUserNotFound, domain.ErrThreadNotFound, domain.ErrCommentNotFound} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}

func logError(c echo.Context, err *apperrors.Error) {
	attrs := []any{
		"error_type", err.Type,
		"message", err.Message,
		"path", c.Request().URL.Path,
		"method", c.Request().Method,
		"status", err.HTTPStatus(),
	}

	for k, v := range err.Context {
		attrs = append(attrs, k, v)
	}

	if userID := c.Get(ctxKeyUserID); userID != nil {
		attrs = append(attrs, "user_id", userID)
	}

	ctx := c.Request().Context()
	switch err.Type {
	case apperrors.TypeValidation:
		slog.InfoContext(ctx, "Validation error", attrs...)
	case apperrors.TypeNotFound:
		slog.InfoContext(ctx, "Not found", attrs...)
	case apperrors.TypeUnauthorized, apperrors.TypeForbidden:
		slog.InfoContext(ctx, "Access denied", attrs...)
	case apperrors.TypeConflict, apperrors.TypeRateLimited:
		slog.WarnContext(ctx, "Request rejected", attrs...)
	case apperrors.TypeInternal:
		if err.Cause != nil {
			attrs = append(attrs, "cause", err.Cause)
		}
		slog.ErrorContext(ctx, "Internal error", attrs...)
	case apperrors.TypeExternal:
		if err.Cause != nil {
			attrs = append(attrs, "cause", err.Cause)
		}
		slog.ErrorContext(ctx, "External service error", attrs...)
	default:
		slog.ErrorContext(ctx, "Unknown error type", attrs...)
	}
}

func HandleError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}

	structuredErr := toStructured(err)
	logError(c, structuredErr)
	if err := c.JSON(structuredErr.HTTPStatus(), structuredErr.ToResponse()); err != nil {
		return fmt.Errorf("failed to write error response: %w", err)
	}
	return nil
}

func WrapHTTPError(httpErr *echo.HTTPError) *apperrors.Error {
	message := http.StatusText(httpErr.Code)
	if httpErr.Message != nil {
		if msg, ok := httpErr.Message.(string); ok {
			message = msg
		}
	}
	if message == "" {
		message = "internal server error"
	}

	var errType apperrors.ErrorType
	switch httpErr.Code {
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge, http.StatusUnsupportedMediaType:
		errType = apperrors.TypeValidation
	case http.StatusUnauthorized:
		errType = apperrors.TypeUnauthorized
	case http.StatusForbidden:
		errType = apperrors.TypeForbidden
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		errType = apperrors.TypeNotFound
	case http.StatusConflict:
		errType = apperrors.TypeConflict
	case http.StatusTooManyRequests:
		errType = apperrors.TypeRateLimited
	case http.StatusBadGateway, http.StatusServiceUnavailable:
		errType = apperrors.TypeExternal
	default:
		errType = apperrors.TypeInternal
	}

	err := &apperrors.Error{
		Type:    errType,
		Message: message,
		Context: make(map[string]any),
	}

	if httpErr.Internal != nil {
		err.Cause = httpErr.Internal
	}

	return err
}
