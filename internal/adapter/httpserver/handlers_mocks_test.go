package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pscheid92/threadpulse/internal/domain"
	"github.com/pscheid92/threadpulse/internal/platform/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

// --- Mock implementations ---

type mockAppService struct {
	registerFn      func(ctx context.Context, reg domain.Registration) (*domain.User, error)
	loginFn         func(ctx context.Context, creds domain.Credentials) (string, error)
	logoutFn        func(ctx context.Context, token string) error
	authenticateFn  func(ctx context.Context, token string) (*domain.User, error)
	listThreadsFn   func(ctx context.Context, params domain.ListParams, viewer *domain.User) (*domain.Page[domain.Thread], error)
	createThreadFn  func(ctx context.Context, author *domain.User, in domain.NewThread) (*domain.Thread, error)
	getThreadFn     func(ctx context.Context, threadID string, viewer *domain.User) (*domain.ThreadDetail, error)
	updateThreadFn  func(ctx context.Context, actor *domain.User, threadID string, in domain.NewThread) (*domain.Thread, error)
	deleteThreadFn  func(ctx context.Context, actor *domain.User, threadID string) error
	listCommentsFn  func(ctx context.Context, threadID string, params domain.ListParams, viewer *domain.User) (*domain.Page[domain.Comment], error)
	createCommentFn func(ctx context.Context, author *domain.User, threadID, content string) (*domain.Comment, error)
	updateCommentFn func(ctx context.Context, actor *domain.User, threadID, commentID, content string) (*domain.Comment, error)
	deleteCommentFn func(ctx context.Context, actor *domain.User, threadID, commentID string) error
	castVoteFn      func(ctx context.Context, voter *domain.User, ref domain.EntityRef, target domain.Vote) (domain.VoteResult, error)
	leaderboardFn   func(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error)
}

func (m *mockAppService) Register(ctx context.Context, reg domain.Registration) (*domain.User, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, reg)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAppService) Login(ctx context.Context, creds domain.Credentials) (string, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, creds)
	}
	return "", errors.New("not implemented")
}

func (m *mockAppService) Logout(ctx context.Context, token string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, token)
	}
	return nil
}

// Authenticate accepts "valid-token" as user u1 by default.
func (m *mockAppService) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	if m.authenticateFn != nil {
		return m.authenticateFn(ctx, token)
	}
	if token == validToken {
		return &domain.User{ID: "u1", Name: "Ada"}, nil
	}
	return nil, domain.ErrUnauthenticated
}

func (m *mockAppService) ListThreads(ctx context.Context, params domain.ListParams, viewer *domain.User) (*domain.Page[domain.Thread], error) {
	if m.listThreadsFn != nil {
		return m.listThreadsFn(ctx, params, viewer)
	}
	return &domain.Page[domain.Thread]{}, nil
}

func (m *mockAppService) CreateThread(ctx context.Context, author *domain.User, in domain.NewThread) (*domain.Thread, error) {
	if m.createThreadFn != nil {
		return m.createThreadFn(ctx, author, in)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAppService) GetThread(ctx context.Context, threadID string, viewer *domain.User) (*domain.ThreadDetail, error) {
	if m.getThreadFn != nil {
		return m.getThreadFn(ctx, threadID, viewer)
	}
	return nil, domain.ErrThreadNotFound
}

func (m *mockAppService) UpdateThread(ctx context.Context, actor *domain.User, threadID string, in domain.NewThread) (*domain.Thread, error) {
	if m.updateThreadFn != nil {
		return m.updateThreadFn(ctx, actor, threadID, in)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAppService) DeleteThread(ctx context.Context, actor *domain.User, threadID string) error {
	if m.deleteThreadFn != nil {
		return m.deleteThreadFn(ctx, actor, threadID)
	}
	return nil
}

func (m *mockAppService) ListComments(ctx context.Context, threadID string, params domain.ListParams, viewer *domain.User) (*domain.Page[domain.Comment], error) {
	if m.listCommentsFn != nil {
		return m.listCommentsFn(ctx, threadID, params, viewer)
	}
	return &domain.Page[domain.Comment]{}, nil
}

func (m *mockAppService) CreateComment(ctx context.Context, author *domain.User, threadID, content string) (*domain.Comment, error) {
	if m.createCommentFn != nil {
		return m.createCommentFn(ctx, author, threadID, content)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAppService) UpdateComment(ctx context.Context, actor *domain.User, threadID, commentID, content string) (*domain.Comment, error) {
	if m.updateCommentFn != nil {
		return m.updateCommentFn(ctx, actor, threadID, commentID, content)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAppService) DeleteComment(ctx context.Context, actor *domain.User, threadID, commentID string) error {
	if m.deleteCommentFn != nil {
		return m.deleteCommentFn(ctx, actor, threadID, commentID)
	}
	return nil
}

func (m *mockAppService) CastVote(ctx context.Context, voter *domain.User, ref domain.EntityRef, target domain.Vote) (domain.VoteResult, error) {
	if m.castVoteFn != nil {
		return m.castVoteFn(ctx, voter, ref, target)
	}
	return domain.VoteResult{}, errors.New("not implemented")
}

func (m *mockAppService) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	if m.leaderboardFn != nil {
		return m.leaderboardFn(ctx, limit)
	}
	return nil, nil
}

// --- Helpers ---

const validToken = "valid-token"

func newTestServer(t *testing.T, app appService, opts ...func(*Server)) *Server {
	t.Helper()
	srv := NewServer(&config.ServerConfig{Port: "0", AppEnv: "test"}, app, nil, prometheus.NewRegistry())
	for _, opt := range opts {
		opt(srv)
	}
	return srv
}

func withHealthChecks(checks ...HealthCheck) func(*Server) {
	return func(s *Server) {
		s.healthChecks = checks
	}
}

// do sends a request through the full middleware chain. token may be empty.
func do(t *testing.T, srv *Server, method, target, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

type testEnvelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Type    string          `json:"type"`
	Data    json.RawMessage `json:"data"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) testEnvelope {
	t.Helper()
	var env testEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}
