package domain

import (
	"context"
	"time"
)

type UserRepository interface {
	Create(ctx context.Context, name, email, passwordHash string) (*User, error)
	GetByID(ctx context.Context, userID string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error)
}

// ThreadRepository reads set the *_voted_by_me flags for viewerID when it is
// not empty.
type ThreadRepository interface {
	Create(ctx context.Context, userID string, t NewThread) (*Thread, error)
	Get(ctx context.Context, threadID, viewerID string) (*Thread, error)
	List(ctx context.Context, params ListParams, viewerID string) (*Page[Thread], error)
	Update(ctx context.Context, threadID string, t NewThread) error
	Delete(ctx context.Context, threadID string) error
}

// CommentRepository addresses comments by thread and comment id; a comment
// under another thread is reported as ErrCommentNotFound. Create and Delete
// keep the thread's comment count in step.
type CommentRepository interface {
	Create(ctx context.Context, threadID, userID, content string) (*Comment, error)
	Get(ctx context.Context, threadID, commentID, viewerID string) (*Comment, error)
	List(ctx context.Context, threadID string, params ListParams, viewerID string) (*Page[Comment], error)
	Update(ctx context.Context, threadID, commentID, content string) error
	Delete(ctx context.Context, threadID, commentID string) error
}

// VoteRepository stores one vote per user and entity; VoteNone removes it.
// Totals are recounted in the same transaction.
type VoteRepository interface {
	Cast(ctx context.Context, userID string, ref EntityRef, target Vote) (VoteTotals, error)
}

// SessionStore maps opaque bearer tokens to user ids.
type SessionStore interface {
	Create(ctx context.Context, userID string, ttl time.Duration) (string, error)
	Resolve(ctx context.Context, token string) (string, error)
	Revoke(ctx context.Context, token string) error
}

// VoteLimiter is a per-user token bucket for vote casting.
type VoteLimiter interface {
	Allow(ctx context.Context, userID string) (bool, error)
}
