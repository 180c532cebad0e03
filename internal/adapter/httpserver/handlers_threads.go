package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/threadpulse/internal/domain"
	apperrors "github.com/pscheid92/threadpulse/internal/platform/errors"
)

func (s *Server) registerThreadRoutes(g *echo.Group) {
	g.GET("/threads", s.handleListThreads, s.optionalAuth)
	g.POST("/threads", s.handleCreateThread, s.requireAuth)
	g.GET("/threads/:threadId", s.handleGetThread, s.optionalAuth)
	g.PUT("/threads/:threadId", s.handleUpdateThread, s.requireAuth)
	g.DELETE("/threads/:threadId", s.handleDeleteThread, s.requireAuth)
	g.GET("/threads/:threadId/comments", s.handleListComments, s.optionalAuth)
	g.POST("/threads/:threadId/comments", s.handleCreateComment, s.requireAuth)
	g.PUT("/threads/:threadId/comments/:commentId", s.handleUpdateComment, s.requireAuth)
	g.DELETE("/threads/:threadId/comments/:commentId", s.handleDeleteComment, s.requireAuth)
}

// bindListParams reads the DataTables-style paging query.
func bindListParams(c echo.Context) (domain.ListParams, error) {
	var p domain.ListParams
	err := echo.QueryParamsBinder(c).
		Int("draw", &p.Draw).
		Int("start", &p.Start).
		Int("length", &p.Length).
		String("sort", &p.Sort).
		String("search", &p.Search).
		BindError()
	if err != nil {
		return p, apperrors.ValidationError("invalid paging parameters")
	}
	return p, nil
}

func (s *Server) handleListThreads(c echo.Context) error {
	params, err := bindListParams(c)
	if err != nil {
		return err
	}
	page, err := s.app.ListThreads(c.Request().Context(), params, currentUser(c))
	if err != nil {
		return err
	}
	return respondPage(c, page)
}

func (s *Server) handleCreateThread(c echo.Context) error {
	var req domain.NewThread
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	thread, err := s.app.CreateThread(c.Request().Context(), currentUser(c), req)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "Thread created", thread)
}

func (s *Server) handleGetThread(c echo.Context) error {
	detail, err := s.app.GetThread(c.Request().Context(), c.Param("threadId"), currentUser(c))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "", detail)
}

func (s *Server) handleUpdateThread(c echo.Context) error {
	var req domain.NewThread
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	thread, err := s.app.UpdateThread(c.Request().Context(), currentUser(c), c.Param("threadId"), req)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Thread updated", thread)
}

func (s *Server) handleDeleteThread(c echo.Context) error {
	threadID := c.Param("threadId")
	if err := s.app.DeleteThread(c.Request().Context(), currentUser(c), threadID); err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Thread deleted", nil)
}

func (s *Server) handleListComments(c echo.Context) error {
	params, err := bindListParams(c)
	if err != nil {
		return err
	}
	page, err := s.app.ListComments(c.Request().Context(), c.Param("threadId"), params, currentUser(c))
	if err != nil {
		return err
	}
	return respondPage(c, page)
}

type newCommentRequest struct {
	Content string `json:"content"`
}

func (s *Server) handleCreateComment(c echo.Context) error {
	var req newCommentRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	comment, err := s.app.CreateComment(c.Request().Context(), currentUser(c), c.Param("threadId"), req.Content)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "Comment created", comment)
}

func (s *Server) handleUpdateComment(c echo.Context) error {
	var req newCommentRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	comment, err := s.app.UpdateComment(c.Request().Context(), currentUser(c), c.Param("threadId"), c.Param("commentId"), req.Content)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Comment updated", comment)
}

func (s *Server) handleDeleteComment(c echo.Context) error {
	err := s.app.DeleteComment(c.Request().Context(), currentUser(c), c.Param("threadId"), c.Param("commentId"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Comment deleted", nil)
}

func (s *Server) handleLeaderboard(c echo.Context) error {
	var limit int
	if err := echo.QueryParamsBinder(c).Int("limit", &limit).BindError(); err != nil {
		return apperrors.ValidationError("invalid limit")
	}
	entries, err := s.app.Leaderboard(c.Request().Context(), limit)
	if err != nil {
		return err
	}
	if entries == nil {
		entries = []domain.LeaderboardEntry{}
	}
	return respond(c, http.StatusOK, "", entries)
}
