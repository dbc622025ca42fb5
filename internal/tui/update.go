package tui

import (
	"errors"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"operaflow/internal/board"
)

func (m boardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.ensureVisible(m.sess.Layout())
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case noticeMsg:
		cmd := m.setNotice(msg.notice)
		return m, tea.Batch(cmd, waitForNotice(m.opts.Notices))

	case noticeExpiredMsg:
		if msg.seq == m.noticeSeq {
			m.notice = nil
		}
		return m, nil

	case busEventMsg:
		m.logger.Debug("storage changed", "topic", msg.event.Topic, "task_id", msg.event.TaskID)
		next, cmd := m.reload(false)
		if wait := waitForEvent(m.opts.Events); wait != nil {
			cmd = tea.Batch(cmd, wait)
		}
		return next, cmd

	case editDoneMsg:
		m.pending = max(0, m.pending-1)
		if msg.err != nil && !errors.Is(msg.err, board.ErrClosed) {
			m.logger.WithError(msg.err).Debug("edit rejected")
		}
		m.clampSelection()
		return m, nil

	case saveDoneMsg:
		m.pending = max(0, m.pending-1)
		if m.quitting {
			if msg.err == nil {
				m.sess.Close()
				return m, tea.Quit
			}
			m.quitting = false
		}
		return m, nil

	case reloadedMsg:
		m.pending = max(0, m.pending-1)
		if msg.err != nil {
			m.logger.WithError(msg.err).Warn("reload failed")
			return m, m.setNotice(board.Notice{Kind: board.NoticeError, Message: board.MsgReloadFailed, Err: msg.err})
		}
		if msg.manual {
			m.sess.Replace(msg.tasks)
		} else {
			m.sess.Sync(msg.tasks)
		}
		m.clampSelection()
		return m, nil

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m boardModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.confirming {
		return m.handleConfirmKey(msg)
	}
	if m.showHelp {
		if key.Matches(msg, m.keys.Help, m.keys.ModalCancel, m.keys.Quit) {
			m.showHelp = false
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit, m.keys.ForceQuit):
		return m.requestQuit()
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
	case key.Matches(msg, m.keys.Up):
		m.moveSelection(-1)
	case key.Matches(msg, m.keys.Down):
		m.moveSelection(1)
	case key.Matches(msg, m.keys.MoveLeft):
		return m.commit(board.GestureMove, m.selected, -1)
	case key.Matches(msg, m.keys.MoveRight):
		return m.commit(board.GestureMove, m.selected, 1)
	case key.Matches(msg, m.keys.EndEarlier):
		return m.commit(board.GestureResizeEnd, m.selected, -1)
	case key.Matches(msg, m.keys.EndLater):
		return m.commit(board.GestureResizeEnd, m.selected, 1)
	case key.Matches(msg, m.keys.StartEarly):
		return m.commit(board.GestureResizeStart, m.selected, -1)
	case key.Matches(msg, m.keys.StartLater):
		return m.commit(board.GestureResizeStart, m.selected, 1)
	case key.Matches(msg, m.keys.ProgressUp):
		return m.stepProgress(10)
	case key.Matches(msg, m.keys.ProgressDn):
		return m.stepProgress(-10)
	case key.Matches(msg, m.keys.ZoomIn):
		m.sess.SetZoom(board.ZoomIn(m.sess.Zoom()))
		m.ensureVisible(m.sess.Layout())
	case key.Matches(msg, m.keys.ZoomOut):
		m.sess.SetZoom(board.ZoomOut(m.sess.Zoom()))
		m.ensureVisible(m.sess.Layout())
	case key.Matches(msg, m.keys.Undo, m.keys.Redo):
		m.sess.HandleShortcut(m.ctx, msg.String())
		m.clampSelection()
	case key.Matches(msg, m.keys.Save):
		return m.save()
	case key.Matches(msg, m.keys.Reload):
		return m.reload(true)
	}
	return m, nil
}

func (m boardModel) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.ForceQuit):
		m.sess.Close()
		return m, tea.Quit
	case key.Matches(msg, m.keys.ModalCancel):
		m.confirming = false
	case key.Matches(msg, m.keys.ModalToggle):
		m.focus = m.focus.toggle()
	case key.Matches(msg, m.keys.ModalSave):
		m.confirming = false
		m.quitting = true
		return m.save()
	case key.Matches(msg, m.keys.ModalAccept):
		if m.focus == confirmFocusConfirm {
			m.sess.Close()
			return m, tea.Quit
		}
		m.confirming = false
	}
	return m, nil
}

// requestQuit leaves at once when nothing is pending, otherwise asks first.
func (m boardModel) requestQuit() (tea.Model, tea.Cmd) {
	if m.sess.ConfirmLeave() {
		m.sess.Close()
		return m, tea.Quit
	}
	m.confirming = true
	m.focus = confirmFocusCancel
	return m, nil
}

func (m boardModel) commit(kind board.GestureKind, id int64, delta int) (tea.Model, tea.Cmd) {
	if id == 0 || delta == 0 {
		return m, nil
	}
	sess, ctx := m.sess, m.ctx
	m.pending++
	return m, func() tea.Msg {
		var err error
		switch kind {
		case board.GestureResizeStart:
			_, err = sess.ResizeStart(ctx, id, delta)
		case board.GestureResizeEnd:
			_, err = sess.ResizeEnd(ctx, id, delta)
		default:
			_, err = sess.Move(ctx, id, delta)
		}
		return editDoneMsg{err: err}
	}
}

func (m boardModel) stepProgress(delta int) (tea.Model, tea.Cmd) {
	t, ok := m.sess.Task(m.selected)
	if !ok {
		return m, nil
	}
	return m.setProgress(t.ID, board.ClampProgress(t.Progress+delta))
}

func (m boardModel) setProgress(id int64, pct int) (tea.Model, tea.Cmd) {
	if t, ok := m.sess.Task(id); !ok || t.Progress == pct {
		return m, nil
	}
	sess, ctx := m.sess, m.ctx
	m.pending++
	return m, func() tea.Msg {
		_, err := sess.SetProgress(ctx, id, pct)
		return editDoneMsg{err: err}
	}
}

func (m boardModel) save() (tea.Model, tea.Cmd) {
	sess, ctx := m.sess, m.ctx
	m.pending++
	return m, func() tea.Msg {
		return saveDoneMsg{err: sess.Save(ctx)}
	}
}

func (m boardModel) reload(manual bool) (tea.Model, tea.Cmd) {
	if m.opts.Load == nil {
		return m, nil
	}
	load, ctx := m.opts.Load, m.ctx
	m.pending++
	return m, func() tea.Msg {
		tasks, err := load(ctx)
		return reloadedMsg{tasks: tasks, err: err, manual: manual}
	}
}
