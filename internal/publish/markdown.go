package publish

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"operaflow/internal/board"
	"operaflow/internal/model"
)

type RenderOptions struct {
	// Title follows "Planning" in the heading, e.g. an affaire code and name.
	Title string
	// Today decides which tasks are late; zero means now.
	Today time.Time
}

// Late reports whether t should have ended before today and is not done.
func Late(t model.Task, today time.Time) bool {
	if t.Status == model.StatusDone || t.Progress >= 100 {
		return false
	}
	end, err := model.ParseDate(t.End)
	if err != nil {
		return false
	}
	y, m, d := today.Date()
	return end.Before(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

// RenderPlanningMarkdown renders a planning report: a summary, the planned
// tasks in board order, the late ones and those still missing dates.
func RenderPlanningMarkdown(tasks []model.Task, opt RenderOptions) string {
	today := opt.Today
	if today.IsZero() {
		today = time.Now()
	}
	items, _ := board.Visible(tasks)
	planned := make(map[int64]bool, len(items))
	for _, it := range items {
		planned[it.Task.ID] = true
	}

	var buf bytes.Buffer
	writeLn := func(s string) {
		buf.WriteString(s)
		buf.WriteString("\n")
	}

	title := "Planning"
	if s := strings.TrimSpace(opt.Title); s != "" {
		title += " " + s
	}
	writeLn("# " + title)
	writeLn("")
	writeLn("_Édité le " + today.Format("2006-01-02") + "_")
	writeLn("")

	var late, undated []model.Task
	sum := 0
	for _, t := range tasks {
		sum += t.Progress
		if !planned[t.ID] {
			undated = append(undated, t)
			continue
		}
		if Late(t, today) {
			late = append(late, t)
		}
	}

	writeLn("## Synthèse")
	writeLn("")
	writeLn(fmt.Sprintf("- Tâches : %d (%d planifiées, %d sans dates)", len(tasks), len(items), len(undated)))
	if len(items) > 0 {
		l := board.Compute(tasks, board.DefaultZoom)
		writeLn(fmt.Sprintf("- Période : %s → %s", model.FormatDate(l.Origin), model.FormatDate(l.Last)))
	}
	if len(tasks) > 0 {
		writeLn(fmt.Sprintf("- Avancement moyen : %d %%", sum/len(tasks)))
	}
	writeLn(fmt.Sprintf("- En retard : %d", len(late)))

	if len(items) > 0 {
		writeLn("")
		writeLn("## Tâches")
		writeLn("")
		writeLn("| # | Libellé | Affaire | Début | Fin | Jours | Avancement | Statut |")
		writeLn("| ---: | --- | --- | --- | --- | ---: | ---: | --- |")
		for _, it := range items {
			t := it.Task
			writeLn(fmt.Sprintf("| %d | %s | %s | %s | %s | %d | %d %% | %s |",
				t.ID, cell(t.Label), cell(t.AffaireCode), t.Start, t.End, it.Days()+1, t.Progress, cell(t.Status.Label())))
		}
	}

	if len(late) > 0 {
		writeLn("")
		writeLn("## En retard")
		writeLn("")
		for _, t := range late {
			writeLn(fmt.Sprintf("- #%d %s : fin prévue le %s, %d %%", t.ID, strings.TrimSpace(t.Label), t.End, t.Progress))
		}
	}

	if len(undated) > 0 {
		writeLn("")
		writeLn("## Sans dates")
		writeLn("")
		for _, t := range undated {
			label := strings.TrimSpace(t.Label)
			if label == "" {
				label = "(sans libellé)"
			}
			writeLn("- #" + strconv.FormatInt(t.ID, 10) + " " + label)
		}
	}
	return buf.String()
}

func cell(s string) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
