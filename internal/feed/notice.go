package feed

import (
	"github.com/pscheid92/threadpulse/internal/domain"
	"github.com/pscheid92/threadpulse/internal/vote"
)

type Level int

const (
	LevelInfo Level = iota
	LevelError
)

func (l Level) String() string {
	if l == LevelError {
		return "error"
	}
	return "info"
}

// Notice is a transient user-facing message.
type Notice struct {
	Level   Level
	Message string
	Err     error
}

type Notifier interface {
	Notify(Notice)
}

type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

type discard struct{}

func (discard) Notify(Notice) {}

func info(msg string) Notice { return Notice{Level: LevelInfo, Message: msg} }

func failure(err error) Notice {
	return Notice{Level: LevelError, Message: domain.ErrorMessage(err), Err: err}
}

// voteNotices turns reconciler rollbacks into feed notices.
type voteNotices struct {
	out Notifier
}

func (v voteNotices) Notify(n vote.Notice) {
	v.out.Notify(Notice{Level: LevelError, Message: n.Message, Err: n.Err})
}
