// Package board holds the planning board logic shared by every front-end:
// which tasks are drawable, where their bars go, what a gesture changes,
// and the session state that ties edits to history and autosave.
package board

import (
	"strings"
	"time"

	"operaflow/internal/model"
)

// Item is a drawable task with its parsed dates.
type Item struct {
	Task  model.Task
	Start time.Time
	End   time.Time
}

// Days is end minus start in days. Legacy rows with reversed dates give a
// negative value.
func (it Item) Days() int {
	return model.DaysBetween(it.Start, it.End)
}

func (it Item) Reversed() bool {
	return it.End.Before(it.Start)
}

// Visible keeps the tasks that can be drawn: a label plus parsable start and
// end dates. The rest are counted in dropped.
func Visible(tasks []model.Task) (items []Item, dropped int) {
	items = make([]Item, 0, len(tasks))
	for _, t := range tasks {
		if strings.TrimSpace(t.Label) == "" {
			dropped++
			continue
		}
		start, err := model.ParseDate(t.Start)
		if err != nil {
			dropped++
			continue
		}
		end, err := model.ParseDate(t.End)
		if err != nil {
			dropped++
			continue
		}
		items = append(items, Item{Task: t, Start: start, End: end})
	}
	return items, dropped
}
