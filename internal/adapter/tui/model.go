package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/pscheid92/threadpulse/internal/domain"
	"github.com/pscheid92/threadpulse/internal/feed"
)

type mode int

const (
	modeList mode = iota
	modeThread
)

// chromeLines is the space taken by header, status line and help.
const chromeLines = 6

type loadedMsg struct{ err error }

type openedMsg struct {
	threadID string
	err      error
}

type Model struct {
	ctx     context.Context
	feed    *feed.Feed
	events  *Events
	params  domain.ListParams
	keys    KeyMap
	help    help.Model
	spinner spinner.Model

	mode     mode
	loading  bool
	trending bool
	threadID string // selected thread in the list
	cursor   int    // its last known row, used once it disappears
	selected int    // selected comment in the thread view, -1 for the thread
	status   *feed.Notice
	width    int
	height   int
}

// New builds the model. events may be nil when f was built without them.
func New(ctx context.Context, f *feed.Feed, events *Events, params domain.ListParams) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = mutedStyle
	return Model{
		ctx:      ctx,
		feed:     f,
		events:   events,
		params:   params,
		keys:     DefaultKeyMap,
		help:     help.New(),
		spinner:  s,
		loading:  true,
		selected: -1,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.load(), m.events.listen())
}

func (m Model) load() tea.Cmd {
	f, ctx, params := m.feed, m.ctx, m.params
	return func() tea.Msg {
		return loadedMsg{err: f.Load(ctx, params)}
	}
}

func (m Model) open(threadID string) tea.Cmd {
	f, ctx := m.feed, m.ctx
	return func() tea.Msg {
		_, err := f.Open(ctx, threadID)
		return openedMsg{threadID: threadID, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case loadedMsg:
		m.loading = false
		threads := m.threads()
		m.selectRow(threads, m.row(threads))
		return m, nil

	case openedMsg:
		m.loading = false
		if msg.err == nil {
			if m.mode != modeThread {
				m.selected = -1
			}
			m.mode = modeThread
		}
		return m, nil

	case noticeMsg:
		n := feed.Notice(msg)
		m.status = &n
		return m, m.events.listen()

	case voteChangedMsg:
		// The next View reads the new tally from the feed.
		return m, m.events.listen()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}
	if m.loading {
		return m, nil
	}
	if m.mode == modeThread {
		return m.handleThreadKeys(msg)
	}
	return m.handleListKeys(msg)
}

// The trending order shifts as votes land, so list keys act on the selected
// thread by id rather than by row.
func (m Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	threads := m.threads()
	row := m.row(threads)
	switch {
	case key.Matches(msg, m.keys.Up):
		m.selectRow(threads, row-1)
	case key.Matches(msg, m.keys.Down):
		m.selectRow(threads, row+1)
	case key.Matches(msg, m.keys.Trending):
		m.trending = !m.trending
	case key.Matches(msg, m.keys.Reload):
		m.loading = true
		return m, tea.Batch(m.spinner.Tick, m.load())
	case len(threads) == 0:
		return m, nil
	case key.Matches(msg, m.keys.UpVote):
		return m.vote(threads[row].Ref(), domain.VoteUp), nil
	case key.Matches(msg, m.keys.DownVote):
		return m.vote(threads[row].Ref(), domain.VoteDown), nil
	case key.Matches(msg, m.keys.Open):
		m.loading = true
		m.selected = -1
		return m, tea.Batch(m.spinner.Tick, m.open(threads[row].ID))
	}
	return m, nil
}

// row finds the selected thread in threads, or the nearest row to where it
// was when it is gone.
func (m Model) row(threads []feed.ThreadView) int {
	for i, t := range threads {
		if t.ID == m.threadID {
			return i
		}
	}
	return clamp(m.cursor, 0, len(threads)-1)
}

func (m *Model) selectRow(threads []feed.ThreadView, i int) {
	m.cursor = clamp(i, 0, len(threads)-1)
	m.threadID = ""
	if len(threads) > 0 {
		m.threadID = threads[m.cursor].ID
	}
}

func (m Model) handleThreadKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	thread, comments, ok := m.feed.Current()
	if !ok {
		m.mode = modeList
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.Up):
		m.selected = clamp(m.selected-1, -1, len(comments)-1)
	case key.Matches(msg, m.keys.Down):
		m.selected = clamp(m.selected+1, -1, len(comments)-1)
	case key.Matches(msg, m.keys.Back):
		m.feed.Close()
		m.mode = modeList
		m.selected = -1
	case key.Matches(msg, m.keys.Reload):
		m.loading = true
		return m, tea.Batch(m.spinner.Tick, m.open(thread.ID))
	case key.Matches(msg, m.keys.UpVote):
		return m.vote(m.selectedRef(thread, comments), domain.VoteUp), nil
	case key.Matches(msg, m.keys.DownVote):
		return m.vote(m.selectedRef(thread, comments), domain.VoteDown), nil
	}
	return m, nil
}

func (m Model) selectedRef(thread feed.ThreadView, comments []feed.CommentView) domain.EntityRef {
	if m.selected < 0 || m.selected >= len(comments) {
		return thread.Ref()
	}
	return comments[m.selected].Ref()
}

// vote casts optimistically. The new tally shows on the next render; a
// failure comes back later as a notice.
func (m Model) vote(ref domain.EntityRef, v domain.Vote) Model {
	if m.feed.User() == nil {
		m.status = &feed.Notice{Level: feed.LevelError, Message: "Sign in to vote"}
		return m
	}
	var err error
	if ref.Kind == domain.KindComment {
		_, err = m.feed.VoteComment(m.ctx, ref.ThreadID, ref.CommentID, v)
	} else {
		_, err = m.feed.VoteThread(m.ctx, ref.ThreadID, v)
	}
	if err != nil {
		m.status = &feed.Notice{Level: feed.LevelError, Message: domain.ErrorMessage(err), Err: err}
		return m
	}
	m.status = nil
	return m
}

func (m Model) threads() []feed.ThreadView {
	if m.trending {
		return m.feed.Trending()
	}
	return m.feed.Threads()
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")

	switch {
	case m.loading:
		b.WriteString(m.spinner.View() + " Loading…\n")
	case m.mode == modeThread:
		b.WriteString(m.renderThread())
	default:
		b.WriteString(m.renderList())
	}

	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) renderHeader() string {
	who := mutedStyle.Render("browsing anonymously")
	if u := m.feed.User(); u != nil {
		who = "signed in as " + selectedStyle.Render(u.Name)
	}
	title := "threadpulse"
	if m.trending && m.mode == modeList {
		title += " · trending"
	}
	return titleStyle.Render(title) + "  " + who
}

func (m Model) renderList() string {
	threads := m.threads()
	if len(threads) == 0 {
		return mutedStyle.Render("No threads yet.") + "\n"
	}

	row := m.row(threads)
	start, end := window(row, len(threads), m.height-chromeLines)
	var b strings.Builder
	for i := start; i < end; i++ {
		t := threads[i]
		line := fmt.Sprintf("%s  %s %s",
			renderTally(t.Tally, t.Pending),
			t.Title,
			mutedStyle.Render(fmt.Sprintf("(%d comments)", t.TotalComments)))
		b.WriteString(cursorLine(line, i == row))
	}
	return b.String()
}

func (m Model) renderThread() string {
	thread, comments, ok := m.feed.Current()
	if !ok {
		return ""
	}

	var b strings.Builder
	head := fmt.Sprintf("%s  %s", renderTally(thread.Tally, thread.Pending), selectedStyle.Render(thread.Title))
	b.WriteString(cursorLine(head, m.selected < 0))
	b.WriteString(mutedStyle.Render(fmt.Sprintf("  by %s in %s", thread.User.Name, thread.Category)))
	b.WriteString("\n\n")

	body := thread.Body
	if m.width > 4 {
		body = lipgloss.NewStyle().Width(m.width - 4).Render(body)
	}
	b.WriteString(lipgloss.NewStyle().PaddingLeft(2).Render(body))
	b.WriteString("\n\n")

	if len(comments) == 0 {
		b.WriteString(mutedStyle.Render("  No comments yet.") + "\n")
		return b.String()
	}
	start, end := window(max(m.selected, 0), len(comments), m.height-chromeLines-6)
	for i := start; i < end; i++ {
		c := comments[i]
		line := fmt.Sprintf("%s  %s %s",
			renderTally(c.Tally, c.Pending),
			mutedStyle.Render(c.User.Name+":"),
			c.Content)
		b.WriteString(cursorLine(line, i == m.selected))
	}
	return b.String()
}

func (m Model) renderStatus() string {
	if m.status == nil {
		return ""
	}
	if m.status.Level == feed.LevelError {
		return errorStyle.Render("✗ " + m.status.Message)
	}
	return infoStyle.Render("✓ " + m.status.Message)
}

func renderTally(t domain.Tally, pending bool) string {
	up := fmt.Sprintf("▲ %d", t.Up)
	down := fmt.Sprintf("▼ %d", t.Down)
	switch t.Mine {
	case domain.VoteUp:
		up = upStyle.Render(up)
	case domain.VoteDown:
		down = downStyle.Render(down)
	}
	s := up + " " + down
	if pending {
		s += mutedStyle.Render(" …")
	}
	return s
}

func cursorLine(line string, selected bool) string {
	if selected {
		return selectedStyle.Render("> ") + line + "\n"
	}
	return "  " + line + "\n"
}

// window returns the slice bounds of at most rows items around cursor.
// A non-positive rows shows everything.
func window(cursor, n, rows int) (int, int) {
	if rows <= 0 || n <= rows {
		return 0, n
	}
	start := clamp(cursor-rows/2, 0, n-rows)
	return start, start + rows
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	return min(max(v, lo), hi)
}
