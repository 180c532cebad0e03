package feed

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/pscheid92/threadpulse/internal/domain"
	"github.com/pscheid92/threadpulse/internal/vote"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// API is the part of the forum client the feed needs.
type API interface {
	vote.Endpoints

	HasToken() bool
	Me(ctx context.Context) (*domain.User, error)
	ListThreads(ctx context.Context, params domain.ListParams) (*domain.Page[domain.Thread], error)
	GetThread(ctx context.Context, threadID string) (*domain.ThreadDetail, error)
	ListComments(ctx context.Context, threadID string, params domain.ListParams) (*domain.Page[domain.Comment], error)
	CreateThread(ctx context.Context, in domain.NewThread) (*domain.Thread, error)
	UpdateThread(ctx context.Context, threadID string, in domain.NewThread) (*domain.Thread, error)
	DeleteThread(ctx context.Context, threadID string) error
	CreateComment(ctx context.Context, threadID, content string) (*domain.Comment, error)
	UpdateComment(ctx context.Context, threadID, commentID, content string) (*domain.Comment, error)
	DeleteComment(ctx context.Context, threadID, commentID string) error
	Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error)
}

// ThreadView is a thread as currently displayed, vote counts included.
type ThreadView struct {
	domain.Thread
	Tally   domain.Tally
	Pending bool
}

type CommentView struct {
	domain.Comment
	Tally   domain.Tally
	Pending bool
}

type Feed struct {
	api      API
	board    *vote.Board
	notifier Notifier
	loads    singleflight.Group

	mu      sync.RWMutex
	user    *domain.User
	threads []domain.Thread
	open    *domain.ThreadDetail
}

// New builds a feed. notifier may be nil. opts configure the vote
// reconcilers; rollbacks are always reported through notifier.
func New(api API, notifier Notifier, opts ...vote.Option) *Feed {
	if notifier == nil {
		notifier = discard{}
	}
	opts = append(slices.Clone(opts), vote.WithNotifier(voteNotices{out: notifier}))
	return &Feed{
		api:      api,
		board:    vote.NewBoard(api, opts...),
		notifier: notifier,
	}
}

func (f *Feed) User() *domain.User {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.user
}

// Identify resolves the signed-in user, or nil without a usable token.
func (f *Feed) Identify(ctx context.Context) *domain.User {
	var user *domain.User
	if f.api.HasToken() {
		me, err := f.api.Me(ctx)
		if err != nil {
			slog.DebugContext(ctx, "Continuing anonymously", "error", err)
		} else {
			user = me
		}
	}
	f.mu.Lock()
	f.user = user
	f.mu.Unlock()
	return user
}

// Load fetches the signed-in user, if any, and the first page of threads.
// A failing user lookup degrades to anonymous browsing.
func (f *Feed) Load(ctx context.Context, params domain.ListParams) error {
	user := f.Identify(ctx)

	page, err := f.api.ListThreads(ctx, params)
	if err != nil {
		f.notifier.Notify(failure(err))
		return err
	}

	f.mu.Lock()
	f.threads = page.Data
	f.mu.Unlock()

	for _, t := range page.Data {
		f.board.Track(t.Ref(), t.Tally(user))
	}
	return nil
}

// Threads returns the loaded threads with their displayed tallies.
func (f *Feed) Threads() []ThreadView {
	f.mu.RLock()
	threads := slices.Clone(f.threads)
	f.mu.RUnlock()

	views := make([]ThreadView, 0, len(threads))
	for _, t := range threads {
		views = append(views, f.threadView(t))
	}
	return views
}

// Trending orders the loaded threads by engagement: up votes plus comments.
func (f *Feed) Trending() []ThreadView {
	views := f.Threads()
	slices.SortStableFunc(views, func(a, b ThreadView) int {
		return cmp.Compare(b.Tally.Up+b.TotalComments, a.Tally.Up+a.TotalComments)
	})
	return views
}

func (f *Feed) threadView(t domain.Thread) ThreadView {
	v := ThreadView{Thread: t, Tally: t.Tally(f.User())}
	if rec, ok := f.board.Get(t.Ref()); ok {
		v.Tally = rec.State()
		v.Pending = rec.Pending()
	}
	return v
}

// Open loads a thread with its comments. Concurrent opens of the same thread
// share one round trip.
func (f *Feed) Open(ctx context.Context, threadID string) (*domain.ThreadDetail, error) {
	v, err, _ := f.loads.Do(threadID, func() (any, error) {
		return f.fetchThread(ctx, threadID)
	})
	if err != nil {
		f.notifier.Notify(failure(err))
		return nil, err
	}
	detail := v.(*domain.ThreadDetail)

	user := f.User()
	f.board.Track(detail.Ref(), detail.Tally(user))
	for _, c := range detail.Comments {
		f.board.Track(c.Ref(), c.Tally(user))
	}

	f.mu.Lock()
	f.open = detail
	f.mu.Unlock()
	return detail, nil
}

func (f *Feed) fetchThread(ctx context.Context, threadID string) (*domain.ThreadDetail, error) {
	var (
		detail   *domain.ThreadDetail
		comments *domain.Page[domain.Comment]
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		detail, err = f.api.GetThread(gctx, threadID)
		return err
	})
	g.Go(func() error {
		var err error
		comments, err = f.api.ListComments(gctx, threadID, domain.ListParams{Length: domain.MaxPageLength})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	detail.Comments = comments.Data
	return detail, nil
}

// Current returns the opened thread with displayed tallies, or false.
func (f *Feed) Current() (ThreadView, []CommentView, bool) {
	f.mu.RLock()
	open := f.open
	f.mu.RUnlock()
	if open == nil {
		return ThreadView{}, nil, false
	}

	user := f.User()
	comments := make([]CommentView, 0, len(open.Comments))
	for _, c := range open.Comments {
		v := CommentView{Comment: c, Tally: c.Tally(user)}
		if rec, ok := f.board.Get(c.Ref()); ok {
			v.Tally = rec.State()
			v.Pending = rec.Pending()
		}
		comments = append(comments, v)
	}
	return f.threadView(open.Thread), comments, true
}

// Close forgets the opened thread.
func (f *Feed) Close() {
	f.mu.Lock()
	f.open = nil
	f.mu.Unlock()
}

// VoteThread toggles the user's vote on a loaded thread. Anonymous votes are
// ignored.
func (f *Feed) VoteThread(ctx context.Context, threadID string, v domain.Vote) (domain.Tally, error) {
	return f.cast(ctx, domain.ThreadRef(threadID), v)
}

func (f *Feed) VoteComment(ctx context.Context, threadID, commentID string, v domain.Vote) (domain.Tally, error) {
	return f.cast(ctx, domain.CommentRef(threadID, commentID), v)
}

func (f *Feed) cast(ctx context.Context, ref domain.EntityRef, v domain.Vote) (domain.Tally, error) {
	t, err := f.board.Cast(ctx, f.User(), ref, v)
	if err != nil {
		f.notifier.Notify(failure(err))
		return t, err
	}
	return t, nil
}

// Tally returns the displayed tally of a tracked entity.
func (f *Feed) Tally(ref domain.EntityRef) (domain.Tally, bool) {
	return f.board.State(ref)
}

// Wait blocks until every vote request has settled.
func (f *Feed) Wait(ctx context.Context) error {
	return f.board.Wait(ctx)
}

func (f *Feed) requireUser(action string) (*domain.User, error) {
	user := f.User()
	if user == nil {
		err := fmt.Errorf("%s: %w", action, domain.ErrUnauthenticated)
		f.notifier.Notify(Notice{Level: LevelError, Message: "Sign in to " + action, Err: err})
		return nil, err
	}
	return user, nil
}

func (f *Feed) CreateThread(ctx context.Context, in domain.NewThread) (*domain.Thread, error) {
	if _, err := f.requireUser("post"); err != nil {
		return nil, err
	}
	thread, err := f.api.CreateThread(ctx, in)
	if err != nil {
		f.notifier.Notify(failure(err))
		return nil, err
	}

	f.mu.Lock()
	f.threads = append([]domain.Thread{*thread}, f.threads...)
	f.mu.Unlock()
	f.board.Track(thread.Ref(), thread.Tally(f.User()))

	f.notifier.Notify(info("Thread created successfully!"))
	return thread, nil
}

// UpdateThread edits a thread the user authored. Displayed vote counts are
// left alone.
func (f *Feed) UpdateThread(ctx context.Context, threadID string, in domain.NewThread) (*domain.Thread, error) {
	user, err := f.requireUser("edit threads")
	if err != nil {
		return nil, err
	}
	if owner, ok := f.ownerOf(threadID); ok && owner != user.ID {
		err := fmt.Errorf("edit thread %s: %w", threadID, domain.ErrForbidden)
		f.notifier.Notify(Notice{Level: LevelError, Message: "You can only edit your own threads", Err: err})
		return nil, err
	}

	updated, err := f.api.UpdateThread(ctx, threadID, in)
	if err != nil {
		f.notifier.Notify(failure(err))
		return nil, err
	}

	edit := func(t *domain.Thread) {
		t.Title, t.Body, t.Category, t.UpdatedAt = updated.Title, updated.Body, updated.Category, updated.UpdatedAt
	}
	f.mu.Lock()
	for i := range f.threads {
		if f.threads[i].ID == threadID {
			edit(&f.threads[i])
		}
	}
	if f.open != nil && f.open.ID == threadID {
		edit(&f.open.Thread)
	}
	f.mu.Unlock()

	f.notifier.Notify(info("Thread updated"))
	return updated, nil
}

// DeleteThread removes a thread the user authored.
func (f *Feed) DeleteThread(ctx context.Context, threadID string) error {
	user, err := f.requireUser("delete threads")
	if err != nil {
		return err
	}
	if owner, ok := f.ownerOf(threadID); ok && owner != user.ID {
		err := fmt.Errorf("delete thread %s: %w", threadID, domain.ErrForbidden)
		f.notifier.Notify(Notice{Level: LevelError, Message: "You can only delete your own threads", Err: err})
		return err
	}

	if err := f.api.DeleteThread(ctx, threadID); err != nil {
		f.notifier.Notify(failure(err))
		return err
	}

	f.mu.Lock()
	f.threads = slices.DeleteFunc(f.threads, func(t domain.Thread) bool { return t.ID == threadID })
	var comments []domain.Comment
	if f.open != nil && f.open.ID == threadID {
		comments = f.open.Comments
		f.open = nil
	}
	f.mu.Unlock()

	f.board.Forget(domain.ThreadRef(threadID))
	for _, c := range comments {
		f.board.Forget(c.Ref())
	}

	f.notifier.Notify(info("Thread deleted successfully!"))
	return nil
}

// ownerOf looks the thread up locally. Unknown threads are left for the
// server to authorise.
func (f *Feed) ownerOf(threadID string) (string, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.open != nil && f.open.ID == threadID {
		return f.open.UserID, true
	}
	for _, t := range f.threads {
		if t.ID == threadID {
			return t.UserID, true
		}
	}
	return "", false
}

func (f *Feed) CreateComment(ctx context.Context, threadID, content string) (*domain.Comment, error) {
	if _, err := f.requireUser("comment"); err != nil {
		return nil, err
	}
	comment, err := f.api.CreateComment(ctx, threadID, content)
	if err != nil {
		f.notifier.Notify(failure(err))
		return nil, err
	}

	f.mu.Lock()
	if f.open != nil && f.open.ID == threadID {
		f.open.Comments = append(f.open.Comments, *comment)
		f.open.TotalComments++
	}
	for i := range f.threads {
		if f.threads[i].ID == threadID {
			f.threads[i].TotalComments++
		}
	}
	f.mu.Unlock()
	f.board.Track(comment.Ref(), comment.Tally(f.User()))

	f.notifier.Notify(info("Comment posted"))
	return comment, nil
}

func (f *Feed) UpdateComment(ctx context.Context, threadID, commentID, content string) (*domain.Comment, error) {
	user, err := f.requireUser("edit comments")
	if err != nil {
		return nil, err
	}
	if owner, ok := f.commentOwner(threadID, commentID); ok && owner != user.ID {
		err := fmt.Errorf("edit comment %s: %w", commentID, domain.ErrForbidden)
		f.notifier.Notify(Notice{Level: LevelError, Message: "You can only edit your own comments", Err: err})
		return nil, err
	}

	updated, err := f.api.UpdateComment(ctx, threadID, commentID, content)
	if err != nil {
		f.notifier.Notify(failure(err))
		return nil, err
	}

	f.mu.Lock()
	if f.open != nil && f.open.ID == threadID {
		for i := range f.open.Comments {
			if c := &f.open.Comments[i]; c.ID == commentID {
				c.Content, c.UpdatedAt = updated.Content, updated.UpdatedAt
			}
		}
	}
	f.mu.Unlock()

	f.notifier.Notify(info("Comment updated"))
	return updated, nil
}

// DeleteComment removes a comment the user authored and lowers the thread's
// comment count.
func (f *Feed) DeleteComment(ctx context.Context, threadID, commentID string) error {
	user, err := f.requireUser("delete comments")
	if err != nil {
		return err
	}
	if owner, ok := f.commentOwner(threadID, commentID); ok && owner != user.ID {
		err := fmt.Errorf("delete comment %s: %w", commentID, domain.ErrForbidden)
		f.notifier.Notify(Notice{Level: LevelError, Message: "You can only delete your own comments", Err: err})
		return err
	}

	if err := f.api.DeleteComment(ctx, threadID, commentID); err != nil {
		f.notifier.Notify(failure(err))
		return err
	}

	f.mu.Lock()
	if f.open != nil && f.open.ID == threadID {
		before := len(f.open.Comments)
		f.open.Comments = slices.DeleteFunc(f.open.Comments, func(c domain.Comment) bool { return c.ID == commentID })
		if len(f.open.Comments) < before {
			f.open.TotalComments = max(f.open.TotalComments-1, 0)
		}
	}
	for i := range f.threads {
		if f.threads[i].ID == threadID {
			f.threads[i].TotalComments = max(f.threads[i].TotalComments-1, 0)
		}
	}
	f.mu.Unlock()
	f.board.Forget(domain.CommentRef(threadID, commentID))

	f.notifier.Notify(info("Comment deleted"))
	return nil
}

// commentOwner only knows the comments of the open thread.
func (f *Feed) commentOwner(threadID, commentID string) (string, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.open == nil || f.open.ID != threadID {
		return "", false
	}
	for _, c := range f.open.Comments {
		if c.ID == commentID {
			return c.UserID, true
		}
	}
	return "", false
}

func (f *Feed) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	entries, err := f.api.Leaderboard(ctx, limit)
	if err != nil {
		f.notifier.Notify(failure(err))
		return nil, err
	}
	return entries, nil
}

// IsAuthError reports whether err means the user must sign in first.
func IsAuthError(err error) bool {
	return errors.Is(err, domain.ErrUnauthenticated)
}
