package forumapi

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pscheid92/threadpulse/internal/domain"
	"github.com/pscheid92/threadpulse/internal/vote"
)

var _ vote.Endpoints = (*Client)(nil)

func (c *Client) Register(ctx context.Context, reg domain.Registration) (*domain.User, error) {
	var user domain.User
	if err := c.do(ctx, call{method: http.MethodPost, path: "/register", body: reg, out: &user}); err != nil {
		return nil, err
	}
	return &user, nil
}

// Login returns a bearer token. The client keeps using its current token;
// callers decide whether to adopt the new one.
func (c *Client) Login(ctx context.Context, creds domain.Credentials) (string, error) {
	var res struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, call{method: http.MethodPost, path: "/login", body: creds, out: &res}); err != nil {
		return "", err
	}
	return res.Token, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, call{method: http.MethodPost, path: "/logout"})
}

func (c *Client) Me(ctx context.Context) (*domain.User, error) {
	var user domain.User
	if err := c.do(ctx, call{method: http.MethodGet, path: "/users/me", out: &user}); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) ListThreads(ctx context.Context, p domain.ListParams) (*domain.Page[domain.Thread], error) {
	var page domain.Page[domain.Thread]
	err := c.do(ctx, call{
		method: http.MethodGet,
		path:   "/threads",
		query:  pageQuery(p.Draw, p.Start, p.Length, p.Sort, p.Search),
		out:    &page,
		raw:    true,
	})
	if err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) GetThread(ctx context.Context, threadID string) (*domain.ThreadDetail, error) {
	var detail domain.ThreadDetail
	if err := c.do(ctx, call{method: http.MethodGet, path: threadPath(threadID), out: &detail}); err != nil {
		return nil, err
	}
	return &detail, nil
}

func (c *Client) CreateThread(ctx context.Context, in domain.NewThread) (*domain.Thread, error) {
	var thread domain.Thread
	if err := c.do(ctx, call{method: http.MethodPost, path: "/threads", body: in, out: &thread}); err != nil {
		return nil, err
	}
	return &thread, nil
}

func (c *Client) UpdateThread(ctx context.Context, threadID string, in domain.NewThread) (*domain.Thread, error) {
	var thread domain.Thread
	if err := c.do(ctx, call{method: http.MethodPut, path: threadPath(threadID), body: in, out: &thread}); err != nil {
		return nil, err
	}
	return &thread, nil
}

func (c *Client) DeleteThread(ctx context.Context, threadID string) error {
	return c.do(ctx, call{method: http.MethodDelete, path: threadPath(threadID)})
}

func (c *Client) ListComments(ctx context.Context, threadID string, p domain.ListParams) (*domain.Page[domain.Comment], error) {
	var page domain.Page[domain.Comment]
	err := c.do(ctx, call{
		method: http.MethodGet,
		path:   threadPath(threadID) + "/comments",
		query:  pageQuery(p.Draw, p.Start, p.Length, p.Sort, p.Search),
		out:    &page,
		raw:    true,
	})
	if err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) CreateComment(ctx context.Context, threadID, content string) (*domain.Comment, error) {
	var comment domain.Comment
	body := map[string]string{"content": content}
	if err := c.do(ctx, call{method: http.MethodPost, path: threadPath(threadID) + "/comments", body: body, out: &comment}); err != nil {
		return nil, err
	}
	return &comment, nil
}

func (c *Client) UpdateComment(ctx context.Context, threadID, commentID, content string) (*domain.Comment, error) {
	var comment domain.Comment
	body := map[string]string{"content": content}
	if err := c.do(ctx, call{method: http.MethodPut, path: commentPath(threadID, commentID), body: body, out: &comment}); err != nil {
		return nil, err
	}
	return &comment, nil
}

func (c *Client) DeleteComment(ctx context.Context, threadID, commentID string) error {
	return c.do(ctx, call{method: http.MethodDelete, path: commentPath(threadID, commentID)})
}

func (c *Client) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	var q url.Values
	if limit > 0 {
		q = url.Values{"limit": {strconv.Itoa(limit)}}
	}
	var entries []domain.LeaderboardEntry
	if err := c.do(ctx, call{method: http.MethodGet, path: "/leaderboards", query: q, out: &entries}); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *Client) UpVote(ctx context.Context, ref domain.EntityRef) (domain.VoteResult, error) {
	return c.castVote(ctx, ref, "up-vote")
}

func (c *Client) DownVote(ctx context.Context, ref domain.EntityRef) (domain.VoteResult, error) {
	return c.castVote(ctx, ref, "down-vote")
}

func (c *Client) NeutralVote(ctx context.Context, ref domain.EntityRef) (domain.VoteResult, error) {
	return c.castVote(ctx, ref, "neutral-vote")
}

func (c *Client) castVote(ctx context.Context, ref domain.EntityRef, action string) (domain.VoteResult, error) {
	if err := ref.Validate(); err != nil {
		return domain.VoteResult{}, err
	}
	path := threadPath(ref.ThreadID)
	if ref.Kind == domain.KindComment {
		path = commentPath(ref.ThreadID, ref.CommentID)
	}

	var res domain.VoteResult
	if err := c.do(ctx, call{method: http.MethodPost, path: path + "/" + action, out: &res}); err != nil {
		return domain.VoteResult{}, err
	}
	return res, nil
}

func threadPath(threadID string) string {
	return "/threads/" + url.PathEscape(threadID)
}

func commentPath(threadID, commentID string) string {
	return threadPath(threadID) + "/comments/" + url.PathEscape(commentID)
}
