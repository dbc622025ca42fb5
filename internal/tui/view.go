package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"

	"operaflow/internal/board"
	"operaflow/internal/model"
)

const (
	headerRows = 2 // title, date axis
	footerRows = 2 // status, key help
)

func (m boardModel) bodyRows() int {
	return max(1, m.height-headerRows-footerRows)
}

func taskLabel(t model.Task) string {
	return fmt.Sprintf("#%d %s", t.ID, t.Label)
}

func (m boardModel) gutterWidth(l board.Layout) int {
	w := 12
	for _, b := range l.Bars {
		w = max(w, xansi.StringWidth(taskLabel(b.Task))+1)
	}
	limit := 30
	if m.width > 0 {
		limit = min(limit, m.width/3)
	}
	return max(4, min(w, limit))
}

func (m boardModel) boardWidth(l board.Layout) int {
	if m.width <= 0 {
		return 80
	}
	return max(1, m.width-m.gutterWidth(l))
}

func (m boardModel) View() string {
	if m.width <= 0 || m.height <= 0 {
		return "Chargement du planning…"
	}
	if m.showHelp {
		body := renderMarkdown(helpMarkdown(), modalBodyWidth(m.width))
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, renderModalBox(m.width, "Aide", body))
	}
	if m.confirming {
		modal := renderConfirmModal(m.width,
			"Quitter le planning ?",
			"Des modifications ne sont pas encore sauvegardées.",
			"Quitter sans sauvegarder", "Rester", m.focus)
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal)
	}

	l := m.sess.Layout()
	parts := []string{
		m.renderTitle(),
		m.renderAxis(l),
		normalizePane(m.renderBars(l), m.width, m.bodyRows()),
		fitWidth(m.renderStatus(l), m.width),
		fitWidth(m.help.View(m.keys), m.width),
	}
	return strings.Join(parts, "\n")
}

func (m boardModel) renderTitle() string {
	left := styleTitle().Render("OperaFlow") + " " + styleMuted().Render("· "+m.opts.Title)

	var state string
	st := m.sess.AutosaveState()
	switch {
	case m.busy():
		state = m.spin.View() + " enregistrement…"
	case st.LastError != nil:
		state = lipgloss.NewStyle().Foreground(colorFlashErrBg).Render("✗ " + board.MsgSaveFailed)
	case st.Dirty:
		state = lipgloss.NewStyle().Foreground(colorBarWarnFg).Render("● non sauvegardé")
	case !st.LastSaved.IsZero():
		state = lipgloss.NewStyle().Foreground(colorSuccessFg).Render("✓ sauvegardé " + st.LastSaved.Local().Format("15:04"))
	}
	right := styleMuted().Render(fmt.Sprintf("zoom ×%g", m.sess.Zoom()))
	if state != "" {
		right = state + "  " + right
	}
	gap := m.width - xansi.StringWidth(left) - xansi.StringWidth(right)
	if gap < 1 {
		return fitWidth(left, m.width)
	}
	return left + strings.Repeat(" ", gap) + right
}

// renderAxis labels the first visible day and every Monday.
func (m boardModel) renderAxis(l board.Layout) string {
	gutter := m.gutterWidth(l)
	cols := m.boardWidth(l)
	line := []rune(strings.Repeat(" ", cols))
	next := 0
	var prev time.Time
	for x := 0; x < cols; x++ {
		c := m.left + x
		if c >= l.Columns {
			break
		}
		d := l.DateAt(c)
		if d.Equal(prev) {
			continue
		}
		prev = d
		if x != 0 && d.Weekday() != time.Monday {
			continue
		}
		label := []rune(d.Format("02/01"))
		if x < next || x+len(label) > cols {
			continue
		}
		copy(line[x:], label)
		next = x + len(label) + 1
	}
	return strings.Repeat(" ", gutter) + styleMuted().Render(string(line))
}

func (m boardModel) renderBars(l board.Layout) string {
	if len(l.Bars) == 0 {
		return styleMuted().Render("Aucune tâche planifiée.")
	}
	gutter := m.gutterWidth(l)
	cols := m.boardWidth(l)
	end := min(len(l.Bars), m.top+m.bodyRows())

	lines := make([]string, 0, end-m.top)
	for _, b := range l.Bars[m.top:end] {
		label := fitWidth(taskLabel(b.Task), gutter-1) + " "
		if b.Task.ID == m.selected {
			label = styleSelected().Render(label)
		}
		pb, preview := m.previewBar(l, b)
		lines = append(lines, label+m.renderBar(pb, cols, preview))
	}
	return strings.Join(lines, "\n")
}

// renderBar draws one bar clipped to the visible columns. Filled cells
// show the progress.
func (m boardModel) renderBar(b board.Bar, cols int, preview bool) string {
	from := max(b.Offset, m.left)
	to := min(b.Last(), m.left+cols-1)
	if from > to {
		return ""
	}
	color := colorBarFg
	switch {
	case preview:
		color = colorPreviewFg
	case b.Reversed():
		color = colorBarWarnFg
	case b.Task.Status == model.StatusDone:
		color = colorBarDoneFg
	}
	st := lipgloss.NewStyle().Foreground(color)

	filled := b.Offset + b.ProgressCells() - 1
	var sb strings.Builder
	sb.WriteString(strings.Repeat(" ", from-m.left))
	if n := min(to, filled) - from + 1; n > 0 {
		sb.WriteString(st.Render(strings.Repeat("█", n)))
	}
	if n := to - max(from, filled+1) + 1; n > 0 {
		sb.WriteString(st.Render(strings.Repeat("▒", n)))
	}
	return sb.String()
}

func (m boardModel) renderStatus(l board.Layout) string {
	if m.notice != nil {
		switch m.notice.Kind {
		case board.NoticeError:
			return lipgloss.NewStyle().Foreground(colorFlashErrFg).Background(colorFlashErrBg).Render(" " + m.notice.String() + " ")
		case board.NoticeSuccess:
			return lipgloss.NewStyle().Foreground(colorSuccessFg).Render(m.notice.String())
		default:
			return styleMuted().Render(m.notice.String())
		}
	}

	var parts []string
	if t, ok := m.sess.Task(m.selected); ok {
		if b, ok := l.BarFor(t.ID); ok {
			t = b.Task
			parts = append(parts, fmt.Sprintf("%s  %s → %s (%d j)", taskLabel(t), t.Start, t.End, b.Days()+1))
		}
		parts = append(parts, fmt.Sprintf("%d %%", t.Progress))
		if t.Status != "" {
			parts = append(parts, t.Status.Label())
		}
	}
	if l.Dropped > 0 {
		parts = append(parts, styleMuted().Render(fmt.Sprintf("%d tâche(s) sans dates masquée(s)", l.Dropped)))
	}
	return strings.Join(parts, "  ·  ")
}
