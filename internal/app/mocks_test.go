package app

import (
	"context"
	"fmt"
	"time"

	"github.com/pscheid92/threadpulse/internal/domain"
)

// --- Mock implementations ---

type mockUserRepo struct {
	createFn      func(ctx context.Context, name, email, passwordHash string) (*domain.User, error)
	getByIDFn     func(ctx context.Context, userID string) (*domain.User, error)
	getByEmailFn  func(ctx context.Context, email string) (*domain.User, error)
	leaderboardFn func(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error)
}

func (m *mockUserRepo) Create(ctx context.Context, name, email, passwordHash string) (*domain.User, error) {
	if m.createFn != nil {
		return m.createFn(ctx, name, email, passwordHash)
	}
	return &domain.User{ID: "user-1", Name: name, Email: email, PasswordHash: passwordHash}, nil
}

func (m *mockUserRepo) GetByID(ctx context.Context, userID string) (*domain.User, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, userID)
	}
	return nil, domain.ErrUserNotFound
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if m.getByEmailFn != nil {
		return m.getByEmailFn(ctx, email)
	}
	return nil, domain.ErrUserNotFound
}

func (m *mockUserRepo) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	if m.leaderboardFn != nil {
		return m.leaderboardFn(ctx, limit)
	}
	return nil, nil
}

type mockThreadRepo struct {
	createFn func(ctx context.Context, userID string, t domain.NewThread) (*domain.Thread, error)
	getFn    func(ctx context.Context, threadID, viewerID string) (*domain.Thread, error)
	listFn   func(ctx context.Context, params domain.ListParams, viewerID string) (*domain.Page[domain.Thread], error)
	updateFn func(ctx context.Context, threadID string, t domain.NewThread) error
	deleteFn func(ctx context.Context, threadID string) error
}

func (m *mockThreadRepo) Create(ctx context.Context, userID string, t domain.NewThread) (*domain.Thread, error) {
	if m.createFn != nil {
		return m.createFn(ctx, userID, t)
	}
	return &domain.Thread{ID: "thread-1", UserID: userID, Title: t.Title, Body: t.Body, Category: t.Category}, nil
}

func (m *mockThreadRepo) Get(ctx context.Context, threadID, viewerID string) (*domain.Thread, error) {
	if m.getFn != nil {
		return m.getFn(ctx, threadID, viewerID)
	}
	return nil, domain.ErrThreadNotFound
}

func (m *mockThreadRepo) List(ctx context.Context, params domain.ListParams, viewerID string) (*domain.Page[domain.Thread], error) {
	if m.listFn != nil {
		return m.listFn(ctx, params, viewerID)
	}
	return &domain.Page[domain.Thread]{Success: true}, nil
}

func (m *mockThreadRepo) Update(ctx context.Context, threadID string, t domain.NewThread) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, threadID, t)
	}
	return nil
}

func (m *mockThreadRepo) Delete(ctx context.Context, threadID string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, threadID)
	}
	return nil
}

type mockCommentRepo struct {
	createFn func(ctx context.Context, threadID, userID, content string) (*domain.Comment, error)
	getFn    func(ctx context.Context, threadID, commentID, viewerID string) (*domain.Comment, error)
	listFn   func(ctx context.Context, threadID string, params domain.ListParams, viewerID string) (*domain.Page[domain.Comment], error)
	updateFn func(ctx context.Context, threadID, commentID, content string) error
	deleteFn func(ctx context.Context, threadID, commentID string) error
}

func (m *mockCommentRepo) Create(ctx context.Context, threadID, userID, content string) (*domain.Comment, error) {
	if m.createFn != nil {
		return m.createFn(ctx, threadID, userID, content)
	}
	return &domain.Comment{ID: "comment-1", ThreadID: threadID, UserID: userID, Content: content}, nil
}

func (m *mockCommentRepo) List(ctx context.Context, threadID string, params domain.ListParams, viewerID string) (*domain.Page[domain.Comment], error) {
	if m.listFn != nil {
		return m.listFn(ctx, threadID, params, viewerID)
	}
	return &domain.Page[domain.Comment]{Success: true}, nil
}

func (m *mockCommentRepo) Get(ctx context.Context, threadID, commentID, viewerID string) (*domain.Comment, error) {
	if m.getFn != nil {
		return m.getFn(ctx, threadID, commentID, viewerID)
	}
	return nil, domain.ErrCommentNotFound
}

func (m *mockCommentRepo) Update(ctx context.Context, threadID, commentID, content string) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, threadID, commentID, content)
	}
	return nil
}

func (m *mockCommentRepo) Delete(ctx context.Context, threadID, commentID string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, threadID, commentID)
	}
	return nil
}

type mockVoteRepo struct {
	castFn func(ctx context.Context, userID string, ref domain.EntityRef, target domain.Vote) (domain.VoteTotals, error)
}

func (m *mockVoteRepo) Cast(ctx context.Context, userID string, ref domain.EntityRef, target domain.Vote) (domain.VoteTotals, error) {
	if m.castFn != nil {
		return m.castFn(ctx, userID, ref, target)
	}
	return domain.VoteTotals{}, fmt.Errorf("not implemented")
}

type mockSessionStore struct {
	createFn  func(ctx context.Context, userID string, ttl time.Duration) (string, error)
	resolveFn func(ctx context.Context, token string) (string, error)
	revokeFn  func(ctx context.Context, token string) error
}

func (m *mockSessionStore) Create(ctx context.Context, userID string, ttl time.Duration) (string, error) {
	if m.createFn != nil {
		return m.createFn(ctx, userID, ttl)
	}
	return "token-" + userID, nil
}

func (m *mockSessionStore) Resolve(ctx context.Context, token string) (string, error) {
	if m.resolveFn != nil {
		return m.resolveFn(ctx, token)
	}
	return "", domain.ErrUnauthenticated
}

func (m *mockSessionStore) Revoke(ctx context.Context, token string) error {
	if m.revokeFn != nil {
		return m.revokeFn(ctx, token)
	}
	return nil
}

type mockLimiter struct {
	allowFn func(ctx context.Context, userID string) (bool, error)
}

func (m *mockLimiter) Allow(ctx context.Context, userID string) (bool, error) {
	if m.allowFn != nil {
		return m.allowFn(ctx, userID)
	}
	return true, nil
}

type testDeps struct {
	users    *mockUserRepo
	threads  *mockThreadRepo
	comments *mockCommentRepo
	votes    *mockVoteRepo
	sessions *mockSessionStore
	limiter  *mockLimiter
}

func newTestDeps() *testDeps {
	return &testDeps{
		users:    &mockUserRepo{},
		threads:  &mockThreadRepo{},
		comments: &mockCommentRepo{},
		votes:    &mockVoteRepo{},
		sessions: &mockSessionStore{},
		limiter:  &mockLimiter{},
	}
}

func (d *testDeps) service() *Service {
	return NewService(Deps{
		Users:    d.users,
		Threads:  d.threads,
		Comments: d.comments,
		Votes:    d.votes,
		Sessions: d.sessions,
		Limiter:  d.limiter,
	}, Config{SessionTTL: time.Hour, PasswordMinLength: 8})
}
