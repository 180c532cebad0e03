package feed

import (
	"context"
	"errors"
	"sync"

	"github.com/pscheid92/threadpulse/internal/domain"
)

type mockAPI struct {
	hasToken        bool
	meFn            func(ctx context.Context) (*domain.User, error)
	listThreadsFn   func(ctx context.Context, params domain.ListParams) (*domain.Page[domain.Thread], error)
	getThreadFn     func(ctx context.Context, threadID string) (*domain.ThreadDetail, error)
	listCommentsFn  func(ctx context.Context, threadID string, params domain.ListParams) (*domain.Page[domain.Comment], error)
	createThreadFn  func(ctx context.Context, in domain.NewThread) (*domain.Thread, error)
	updateThreadFn  func(ctx context.Context, threadID string, in domain.NewThread) (*domain.Thread, error)
	deleteThreadFn  func(ctx context.Context, threadID string) error
	createCommentFn func(ctx context.Context, threadID, content string) (*domain.Comment, error)
	updateCommentFn func(ctx context.Context, threadID, commentID, content string) (*domain.Comment, error)
	deleteCommentFn func(ctx context.Context, threadID, commentID string) error
	leaderboardFn   func(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error)
	voteFn          func(ctx context.Context, ref domain.EntityRef, target domain.Vote) (domain.VoteResult, error)
}

var errNotImplemented = errors.New("not implemented")

func (m *mockAPI) HasToken() bool { return m.hasToken }

func (m *mockAPI) Me(ctx context.Context) (*domain.User, error) {
	if m.meFn != nil {
		return m.meFn(ctx)
	}
	return nil, domain.ErrUnauthenticated
}

func (m *mockAPI) ListThreads(ctx context.Context, params domain.ListParams) (*domain.Page[domain.Thread], error) {
	if m.listThreadsFn != nil {
		return m.listThreadsFn(ctx, params)
	}
	return &domain.Page[domain.Thread]{}, nil
}

func (m *mockAPI) GetThread(ctx context.Context, threadID string) (*domain.ThreadDetail, error) {
	if m.getThreadFn != nil {
		return m.getThreadFn(ctx, threadID)
	}
	return nil, errNotImplemented
}

func (m *mockAPI) ListComments(ctx context.Context, threadID string, params domain.ListParams) (*domain.Page[domain.Comment], error) {
	if m.listCommentsFn != nil {
		return m.listCommentsFn(ctx, threadID, params)
	}
	return &domain.Page[domain.Comment]{}, nil
}

func (m *mockAPI) CreateThread(ctx context.Context, in domain.NewThread) (*domain.Thread, error) {
	if m.createThreadFn != nil {
		return m.createThreadFn(ctx, in)
	}
	return nil, errNotImplemented
}

func (m *mockAPI) UpdateThread(ctx context.Context, threadID string, in domain.NewThread) (*domain.Thread, error) {
	if m.updateThreadFn != nil {
		return m.updateThreadFn(ctx, threadID, in)
	}
	return nil, errNotImplemented
}

func (m *mockAPI) DeleteThread(ctx context.Context, threadID string) error {
	if m.deleteThreadFn != nil {
		return m.deleteThreadFn(ctx, threadID)
	}
	return errNotImplemented
}

func (m *mockAPI) CreateComment(ctx context.Context, threadID, content string) (*domain.Comment, error) {
	if m.createCommentFn != nil {
		return m.createCommentFn(ctx, threadID, content)
	}
	return nil, errNotImplemented
}

func (m *mockAPI) UpdateComment(ctx context.Context, threadID, commentID, content string) (*domain.Comment, error) {
	if m.updateCommentFn != nil {
		return m.updateCommentFn(ctx, threadID, commentID, content)
	}
	return nil, errNotImplemented
}

func (m *mockAPI) DeleteComment(ctx context.Context, threadID, commentID string) error {
	if m.deleteCommentFn != nil {
		return m.deleteCommentFn(ctx, threadID, commentID)
	}
	return errNotImplemented
}

func (m *mockAPI) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	if m.leaderboardFn != nil {
		return m.leaderboardFn(ctx, limit)
	}
	return nil, nil
}

func (m *mockAPI) UpVote(ctx context.Context, ref domain.EntityRef) (domain.VoteResult, error) {
	return m.vote(ctx, ref, domain.VoteUp)
}

func (m *mockAPI) DownVote(ctx context.Context, ref domain.EntityRef) (domain.VoteResult, error) {
	return m.vote(ctx, ref, domain.VoteDown)
}

func (m *mockAPI) NeutralVote(ctx context.Context, ref domain.EntityRef) (domain.VoteResult, error) {
	return m.vote(ctx, ref, domain.VoteNone)
}

func (m *mockAPI) vote(ctx context.Context, ref domain.EntityRef, target domain.Vote) (domain.VoteResult, error) {
	if m.voteFn != nil {
		return m.voteFn(ctx, ref, target)
	}
	return domain.VoteResult{}, nil
}

type recordingNotifier struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *recordingNotifier) Notify(n Notice) {
	r.mu.Lock()
	r.notices = append(r.notices, n)
	r.mu.Unlock()
}

func (r *recordingNotifier) all() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notice(nil), r.notices...)
}

func (r *recordingNotifier) errors() []Notice {
	var out []Notice
	for _, n := range r.all() {
		if n.Level == LevelError {
			out = append(out, n)
		}
	}
	return out
}

var alice = &domain.User{ID: "alice", Name: "Alice"}

// signedIn returns an API that knows alice and lists the given threads.
func signedIn(threads ...domain.Thread) *mockAPI {
	return &mockAPI{
		hasToken: true,
		meFn:     func(context.Context) (*domain.User, error) { return alice, nil },
		listThreadsFn: func(context.Context, domain.ListParams) (*domain.Page[domain.Thread], error) {
			return &domain.Page[domain.Thread]{Success: true, Data: threads}, nil
		},
	}
}
