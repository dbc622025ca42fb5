package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"operaflow/internal/board"
)

// Drags preview locally and send one request on release: the body moves
// the task, the edges resize it and shift-drag sets the progress.
func (m boardModel) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if m.confirming || m.showHelp {
		return m, nil
	}
	l := m.sess.Layout()
	gutter := m.gutterWidth(l)
	x := msg.X - gutter + m.left
	row := msg.Y - headerRows + m.top

	switch msg.Action {
	case tea.MouseActionPress:
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			m.moveSelection(-1)
		case tea.MouseButtonWheelDown:
			m.moveSelection(1)
		case tea.MouseButtonLeft:
			if row < 0 || row >= len(l.Bars) {
				return m, nil
			}
			if msg.X < gutter {
				m.selected = l.Bars[row].Task.ID
				return m, nil
			}
			bar, zone := l.HitTest(x, row)
			if zone == board.ZoneNone {
				return m, nil
			}
			m.selected = bar.Task.ID
			kind := board.GestureMove
			switch zone {
			case board.ZoneStartHandle:
				kind = board.GestureResizeStart
			case board.ZoneEndHandle:
				kind = board.GestureResizeEnd
			}
			if msg.Shift {
				kind = board.GestureProgress
			}
			m.drag = dragState{active: true, taskID: bar.Task.ID, kind: kind, originX: x, x: x, bar: bar}
		}
		return m, nil

	case tea.MouseActionMotion:
		if m.drag.active {
			m.drag.x = x
		}
		return m, nil

	case tea.MouseActionRelease:
		if !m.drag.active {
			return m, nil
		}
		d := m.drag
		d.x = x
		m.drag = dragState{}
		if d.kind == board.GestureProgress {
			return m.setProgress(d.taskID, d.bar.ProgressAt(d.x))
		}
		return m.commit(d.kind, d.taskID, l.DaysForColumns(d.x-d.originX))
	}
	return m, nil
}

// previewBar is the bar being dragged as it would look if dropped now.
func (m boardModel) previewBar(l board.Layout, b board.Bar) (board.Bar, bool) {
	if !m.drag.active || m.drag.taskID != b.Task.ID {
		return b, false
	}
	if m.drag.kind == board.GestureProgress {
		t := b.Task.Clone()
		t.Progress = b.ProgressAt(m.drag.x)
		b.Task = t
		return b, true
	}
	t, err := m.drag.kind.Apply(b.Task, l.DaysForColumns(m.drag.x-m.drag.originX))
	if err != nil {
		return b, false
	}
	pb, ok := l.Place(t, b.Row)
	if !ok {
		return b, false
	}
	return pb, true
}
