package tui

import (
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pscheid92/threadpulse/internal/domain"
	"github.com/pscheid92/threadpulse/internal/feed"
)

const eventBuffer = 64

type noticeMsg feed.Notice

type voteChangedMsg struct {
	ref domain.EntityRef
}

// Events carries feed callbacks, which run on reconciler goroutines, into
// the bubbletea update loop. Pass it as the feed's notifier and its
// VoteChanged method to vote.WithOnChange.
type Events struct {
	ch chan tea.Msg
}

func NewEvents() *Events {
	return &Events{ch: make(chan tea.Msg, eventBuffer)}
}

func (e *Events) Notify(n feed.Notice) {
	e.send(noticeMsg(n))
}

func (e *Events) VoteChanged(ref domain.EntityRef) {
	e.send(voteChangedMsg{ref: ref})
}

// send never blocks a reconciler. A full buffer means the UI is far behind
// and will redraw from current state anyway.
func (e *Events) send(msg tea.Msg) {
	select {
	case e.ch <- msg:
	default:
		slog.Debug("Dropping UI event, buffer full")
	}
}

// listen waits for the next event. Update re-arms it after each one.
func (e *Events) listen() tea.Cmd {
	if e == nil {
		return nil
	}
	return func() tea.Msg {
		return <-e.ch
	}
}
