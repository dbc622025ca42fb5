package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"operaflow/internal/board"
	"operaflow/internal/events"
	"operaflow/internal/log"
	"operaflow/internal/model"
)

// LoadFunc fetches the task list shown on the board.
type LoadFunc func(ctx context.Context) ([]model.Task, error)

type Options struct {
	Session *board.Session
	// Notices carries the session's notices; see NewNotices.
	Notices <-chan board.Notice
	// Events triggers a reload when storage changes under the board.
	Events <-chan events.Event
	Load   LoadFunc
	Title  string
	Logger *log.Logger
}

// Notices buffers session notices until the UI loop reads them.
type Notices chan board.Notice

func NewNotices() Notices { return make(Notices, 64) }

// Push never blocks. Notices are dropped while the buffer is full.
func (n Notices) Push(notice board.Notice) {
	select {
	case n <- notice:
	default:
	}
}

const noticeTTL = 4 * time.Second

type (
	noticeMsg        struct{ notice board.Notice }
	noticeExpiredMsg struct{ seq int }
	busEventMsg      struct{ event events.Event }
	editDoneMsg      struct{ err error }
	saveDoneMsg      struct{ err error }
	reloadedMsg      struct {
		tasks  []model.Task
		err    error
		manual bool
	}
)

type dragState struct {
	active  bool
	taskID  int64
	kind    board.GestureKind
	originX int
	x       int
	bar     board.Bar
}

type boardModel struct {
	ctx    context.Context
	opts   Options
	sess   *board.Session
	logger *log.Logger

	keys keyMap
	help help.Model
	spin spinner.Model

	width  int
	height int

	selected int64
	top      int
	left     int

	pending   int
	notice    *board.Notice
	noticeSeq int

	drag       dragState
	showHelp   bool
	confirming bool
	focus      confirmModalFocus
	quitting   bool
}

func newBoardModel(ctx context.Context, opts Options) boardModel {
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	if opts.Title == "" {
		opts.Title = "Planning"
	}
	m := boardModel{
		ctx:    ctx,
		opts:   opts,
		sess:   opts.Session,
		logger: opts.Logger,
		keys:   defaultKeyMap(),
		help:   help.New(),
		spin:   spinner.New(spinner.WithSpinner(spinner.Dot)),
	}
	m.clampSelection()
	return m
}

func (m boardModel) Init() tea.Cmd {
	return tea.Batch(waitForNotice(m.opts.Notices), waitForEvent(m.opts.Events), m.spin.Tick)
}

func waitForNotice(ch <-chan board.Notice) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		n, ok := <-ch
		if !ok {
			return nil
		}
		return noticeMsg{notice: n}
	}
}

func waitForEvent(ch <-chan events.Event) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return busEventMsg{event: ev}
	}
}

func (m boardModel) busy() bool {
	return m.pending > 0 || m.sess.AutosaveState().Saving
}

func (m *boardModel) setNotice(n board.Notice) tea.Cmd {
	m.notice = &n
	m.noticeSeq++
	seq := m.noticeSeq
	return tea.Tick(noticeTTL, func(time.Time) tea.Msg { return noticeExpiredMsg{seq: seq} })
}

// selectedIndex is the selected task's row in l, or -1.
func (m boardModel) selectedIndex(l board.Layout) int {
	for i, b := range l.Bars {
		if b.Task.ID == m.selected {
			return i
		}
	}
	return -1
}

func (m *boardModel) clampSelection() {
	l := m.sess.Layout()
	if len(l.Bars) == 0 {
		m.selected = 0
		return
	}
	if m.selectedIndex(l) < 0 {
		m.selected = l.Bars[0].Task.ID
	}
	m.ensureVisible(l)
}

func (m *boardModel) moveSelection(delta int) {
	l := m.sess.Layout()
	if len(l.Bars) == 0 {
		return
	}
	i := m.selectedIndex(l) + delta
	if i < 0 {
		i = 0
	}
	if i >= len(l.Bars) {
		i = len(l.Bars) - 1
	}
	m.selected = l.Bars[i].Task.ID
	m.ensureVisible(l)
}

// ensureVisible scrolls so the selected bar's row and start are on screen.
func (m *boardModel) ensureVisible(l board.Layout) {
	i := m.selectedIndex(l)
	if i < 0 {
		return
	}
	rows := m.bodyRows()
	if i < m.top {
		m.top = i
	}
	if i >= m.top+rows {
		m.top = i - rows + 1
	}
	cols := m.boardWidth(l)
	b := l.Bars[i]
	if b.Offset < m.left {
		m.left = max(0, b.Offset)
	}
	if b.Offset >= m.left+cols {
		m.left = b.Offset - cols/4
	}
}
