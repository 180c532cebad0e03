package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Vote is the tri-state vote a user holds on an entity.
type Vote int

const (
	VoteNone Vote = iota
	VoteUp
	VoteDown
)

func (v Vote) String() string {
	switch v {
	case VoteUp:
		return "up"
	case VoteDown:
		return "down"
	default:
		return "neutral"
	}
}

// ParseVote accepts the wire names "up", "down" and "neutral" ("none" and the
// empty string are read as neutral).
func ParseVote(s string) (Vote, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up":
		return VoteUp, nil
	case "down":
		return VoteDown, nil
	case "neutral", "none", "":
		return VoteNone, nil
	default:
		return VoteNone, fmt.Errorf("%w: %q", ErrInvalidVote, s)
	}
}

func (v Vote) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

func (v *Vote) UnmarshalText(b []byte) error {
	parsed, err := ParseVote(string(b))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// EntityKind distinguishes the two votable entities.
type EntityKind string

const (
	KindThread  EntityKind = "thread"
	KindComment EntityKind = "comment"
)

// EntityRef addresses a votable entity. Comments are addressed through their
// thread because the vote endpoints are nested under it.
type EntityRef struct {
	Kind      EntityKind
	ThreadID  string
	CommentID string
}

func ThreadRef(threadID string) EntityRef {
	return EntityRef{Kind: KindThread, ThreadID: threadID}
}

func CommentRef(threadID, commentID string) EntityRef {
	return EntityRef{Kind: KindComment, ThreadID: threadID, CommentID: commentID}
}

// ID returns the identifier of the addressed entity itself.
func (r EntityRef) ID() string {
	if r.Kind == KindComment {
		return r.CommentID
	}
	return r.ThreadID
}

// Key is a stable map key for the entity.
func (r EntityRef) Key() string {
	if r.Kind == KindComment {
		return "comment:" + r.ThreadID + "/" + r.CommentID
	}
	return "thread:" + r.ThreadID
}

func (r EntityRef) String() string { return r.Key() }

func (r EntityRef) Validate() error {
	switch r.Kind {
	case KindThread:
		if r.ThreadID == "" {
			return errors.New("thread reference without thread id")
		}
	case KindComment:
		if r.ThreadID == "" || r.CommentID == "" {
			return errors.New("comment reference needs thread id and comment id")
		}
	default:
		return fmt.Errorf("unknown entity kind %q", r.Kind)
	}
	return nil
}

// Tally is the displayed vote state of one entity: counters plus the
// caller's own vote.
type Tally struct {
	Up   int
	Down int
	Mine Vote
}

// VoteResult is the vote endpoint payload. Every count and flag is optional;
// a missing field means the server did not say.
type VoteResult struct {
	ID             string `json:"id,omitempty"`
	ThreadID       string `json:"thread_id,omitempty"`
	CommentID      string `json:"comment_id,omitempty"`
	UserID         string `json:"user_id,omitempty"`
	VoteType       Vote   `json:"vote_type"`
	TotalUpVotes   *int   `json:"total_up_votes,omitempty"`
	TotalDownVotes *int   `json:"total_down_votes,omitempty"`
	TotalComments  *int   `json:"total_comments,omitempty"`
	UpVotedByMe    *bool  `json:"up_voted_by_me,omitempty"`
	DownVotedByMe  *bool  `json:"down_voted_by_me,omitempty"`
}

// Mine reports the caller's vote if the payload states it explicitly.
func (r VoteResult) Mine() (Vote, bool) {
	if r.UpVotedByMe == nil && r.DownVotedByMe == nil {
		return VoteNone, false
	}
	switch {
	case r.UpVotedByMe != nil && *r.UpVotedByMe:
		return VoteUp, true
	case r.DownVotedByMe != nil && *r.DownVotedByMe:
		return VoteDown, true
	default:
		return VoteNone, true
	}
}

// VoteTotals are the recounted totals after a vote was stored.
type VoteTotals struct {
	Up       int
	Down     int
	Comments int
}

// NewVoteResult builds the full payload the server returns after a vote.
func NewVoteResult(ref EntityRef, userID string, target Vote, totals VoteTotals) VoteResult {
	up, down := totals.Up, totals.Down
	upByMe, downByMe := target == VoteUp, target == VoteDown
	res := VoteResult{
		ThreadID:       ref.ThreadID,
		CommentID:      ref.CommentID,
		UserID:         userID,
		VoteType:       target,
		TotalUpVotes:   &up,
		TotalDownVotes: &down,
		UpVotedByMe:    &upByMe,
		DownVotedByMe:  &downByMe,
	}
	if ref.Kind == KindThread {
		comments := totals.Comments
		res.TotalComments = &comments
	}
	return res
}
