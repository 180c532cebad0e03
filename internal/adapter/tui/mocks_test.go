package tui

import (
	"context"
	"errors"
	"sync"

	"github.com/pscheid92/threadpulse/internal/domain"
)

// fakeForum serves a fixed set of threads and comments and records votes.
type fakeForum struct {
	user     *domain.User
	threads  []domain.Thread
	comments map[string][]domain.Comment
	voteFn   func(ref domain.EntityRef, target domain.Vote) (domain.VoteResult, error)

	mu    sync.Mutex
	votes []domain.EntityRef
}

func (f *fakeForum) HasToken() bool { return f.user != nil }

func (f *fakeForum) Me(context.Context) (*domain.User, error) {
	if f.user == nil {
		return nil, domain.ErrUnauthenticated
	}
	return f.user, nil
}

func (f *fakeForum) ListThreads(context.Context, domain.ListParams) (*domain.Page[domain.Thread], error) {
	return &domain.Page[domain.Thread]{Success: true, Data: f.threads}, nil
}

func (f *fakeForum) GetThread(_ context.Context, threadID string) (*domain.ThreadDetail, error) {
	for _, t := range f.threads {
		if t.ID == threadID {
			return &domain.ThreadDetail{Thread: t}, nil
		}
	}
	return nil, domain.ErrThreadNotFound
}

func (f *fakeForum) ListComments(_ context.Context, threadID string, _ domain.ListParams) (*domain.Page[domain.Comment], error) {
	return &domain.Page[domain.Comment]{Success: true, Data: f.comments[threadID]}, nil
}

func (f *fakeForum) CreateThread(context.Context, domain.NewThread) (*domain.Thread, error) {
	return nil, errors.New("not supported")
}

func (f *fakeForum) UpdateThread(context.Context, string, domain.NewThread) (*domain.Thread, error) {
	return nil, errors.New("not supported")
}

func (f *fakeForum) DeleteThread(context.Context, string) error {
	return errors.New("not supported")
}

func (f *fakeForum) CreateComment(context.Context, string, string) (*domain.Comment, error) {
	return nil, errors.New("not supported")
}

func (f *fakeForum) UpdateComment(context.Context, string, string, string) (*domain.Comment, error) {
	return nil, errors.New("not supported")
}

func (f *fakeForum) DeleteComment(context.Context, string, string) error {
	return errors.New("not supported")
}

func (f *fakeForum) Leaderboard(context.Context, int) ([]domain.LeaderboardEntry, error) {
	return nil, nil
}

func (f *fakeForum) UpVote(_ context.Context, ref domain.EntityRef) (domain.VoteResult, error) {
	return f.vote(ref, domain.VoteUp)
}

func (f *fakeForum) DownVote(_ context.Context, ref domain.EntityRef) (domain.VoteResult, error) {
	return f.vote(ref, domain.VoteDown)
}

func (f *fakeForum) NeutralVote(_ context.Context, ref domain.EntityRef) (domain.VoteResult, error) {
	return f.vote(ref, domain.VoteNone)
}

func (f *fakeForum) vote(ref domain.EntityRef, target domain.Vote) (domain.VoteResult, error) {
	f.mu.Lock()
	f.votes = append(f.votes, ref)
	f.mu.Unlock()
	if f.voteFn != nil {
		return f.voteFn(ref, target)
	}
	return domain.VoteResult{}, nil
}

func (f *fakeForum) recorded() []domain.EntityRef {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.EntityRef(nil), f.votes...)
}

func newForum() *fakeForum {
	return &fakeForum{
		user: &domain.User{ID: "u1", Name: "Ada"},
		threads: []domain.Thread{
			{ID: "t1", Title: "First thread", Body: "hello", UserID: "u2", TotalUpVotes: 2, TotalComments: 1},
			{ID: "t2", Title: "Second thread", UserID: "u2", TotalDownVotes: 1},
		},
		comments: map[string][]domain.Comment{
			"t1": {{ID: "c1", ThreadID: "t1", Content: "nice one", User: domain.UserSummary{Name: "Bob"}}},
		},
	}
}
