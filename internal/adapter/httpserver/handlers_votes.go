package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/threadpulse/internal/domain"
)

// handleVote serves one of the six vote endpoints. The response carries the
// recounted totals and the caller's resulting flags.
func (s *Server) handleVote(kind domain.EntityKind, target domain.Vote) echo.HandlerFunc {
	return func(c echo.Context) error {
		ref := domain.ThreadRef(c.Param("threadId"))
		if kind == domain.KindComment {
			ref = domain.CommentRef(c.Param("threadId"), c.Param("commentId"))
		}

		res, err := s.app.CastVote(c.Request().Context(), currentUser(c), ref, target)
		if err != nil {
			return err
		}
		return respond(c, http.StatusOK, "Vote saved", res)
	}
}
