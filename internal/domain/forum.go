package domain

import (
	"strings"
	"time"
)

// UserSummary is the author block embedded in threads and comments.
type UserSummary struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

type Thread struct {
	ID             string      `json:"id"`
	Title          string      `json:"title"`
	Body           string      `json:"body"`
	Category       string      `json:"category"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
	UserID         string      `json:"user_id"`
	User           UserSummary `json:"user"`
	TotalComments  int         `json:"total_comments"`
	TotalUpVotes   int         `json:"total_up_votes"`
	TotalDownVotes int         `json:"total_down_votes"`
	UpVotedByMe    bool        `json:"up_voted_by_me"`
	DownVotedByMe  bool        `json:"down_voted_by_me"`
}

func (t Thread) Ref() EntityRef { return ThreadRef(t.ID) }

// Tally derives the displayed vote state. Without an actor there is no own
// vote to show, whatever the flags say.
func (t Thread) Tally(actor *User) Tally {
	return tallyFrom(t.TotalUpVotes, t.TotalDownVotes, t.UpVotedByMe, t.DownVotedByMe, actor)
}

type Comment struct {
	ID             string      `json:"id"`
	ThreadID       string      `json:"thread_id"`
	UserID         string      `json:"user_id"`
	User           UserSummary `json:"user"`
	Content        string      `json:"content"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
	TotalUpVotes   int         `json:"total_up_votes"`
	TotalDownVotes int         `json:"total_down_votes"`
	UpVotedByMe    bool        `json:"up_voted_by_me"`
	DownVotedByMe  bool        `json:"down_voted_by_me"`
}

func (c Comment) Ref() EntityRef { return CommentRef(c.ThreadID, c.ID) }

func (c Comment) Tally(actor *User) Tally {
	return tallyFrom(c.TotalUpVotes, c.TotalDownVotes, c.UpVotedByMe, c.DownVotedByMe, actor)
}

func tallyFrom(up, down int, upByMe, downByMe bool, actor *User) Tally {
	t := Tally{Up: max(up, 0), Down: max(down, 0)}
	if actor == nil {
		return t
	}
	switch {
	case upByMe:
		t.Mine = VoteUp
	case downByMe:
		t.Mine = VoteDown
	}
	return t
}

type ThreadDetail struct {
	Thread
	Comments []Comment `json:"comments"`
}

// NewThread is the payload for creating a thread.
type NewThread struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	Category string `json:"category"`
}

func (n NewThread) Normalize() NewThread {
	return NewThread{
		Title:    strings.TrimSpace(n.Title),
		Body:     strings.TrimSpace(n.Body),
		Category: strings.ToLower(strings.TrimSpace(n.Category)),
	}
}

// Page is a DataTables-style list response.
type Page[T any] struct {
	Success         bool  `json:"success"`
	Draw            int   `json:"draw,omitempty"`
	RecordsTotal    int64 `json:"recordsTotal"`
	RecordsFiltered int64 `json:"recordsFiltered"`
	Data            []T   `json:"data"`
}

const (
	DefaultPageLength = 20
	MaxPageLength     = 2000
)

// ListParams are the list query parameters shared by threads and comments.
type ListParams struct {
	Draw   int
	Start  int
	Length int
	Sort   string
	Search string
}

// Normalize clamps paging to sane bounds and fills in the default sort.
func (p ListParams) Normalize(defaultSort string) ListParams {
	if p.Start < 0 {
		p.Start = 0
	}
	if p.Length <= 0 {
		p.Length = DefaultPageLength
	}
	if p.Length > MaxPageLength {
		p.Length = MaxPageLength
	}
	p.Sort = strings.TrimSpace(p.Sort)
	if p.Sort == "" {
		p.Sort = defaultSort
	}
	p.Search = strings.TrimSpace(p.Search)
	return p
}

// LeaderboardEntry ranks a user by the votes their content received.
type LeaderboardEntry struct {
	User  UserSummary `json:"user"`
	Score int         `json:"score"`
}
