package board

import (
	"math"
	"time"

	"operaflow/internal/model"
)

const (
	MinZoom     = 0.25
	MaxZoom     = 4.0
	DefaultZoom = 1.0

	// colsPerDay is the bar width of one day at zoom 1.
	colsPerDay = 2.0
)

// ClampZoom bounds z to [MinZoom, MaxZoom]; zero means DefaultZoom.
func ClampZoom(z float64) float64 {
	switch {
	case z == 0 || math.IsNaN(z):
		return DefaultZoom
	case z < MinZoom:
		return MinZoom
	case z > MaxZoom:
		return MaxZoom
	}
	return z
}

// ZoomIn and ZoomOut step by a factor of two.
func ZoomIn(z float64) float64  { return ClampZoom(ClampZoom(z) * 2) }
func ZoomOut(z float64) float64 { return ClampZoom(ClampZoom(z) / 2) }

type Bar struct {
	Item
	Row    int
	Offset int
	Width  int
}

func (b Bar) Last() int { return b.Offset + b.Width - 1 }

type Zone int

const (
	ZoneNone Zone = iota
	ZoneBody
	ZoneStartHandle
	ZoneEndHandle
)

func (z Zone) String() string {
	switch z {
	case ZoneBody:
		return "body"
	case ZoneStartHandle:
		return "start"
	case ZoneEndHandle:
		return "end"
	default:
		return "none"
	}
}

// Layout places one bar per row on a day axis starting at Origin.
type Layout struct {
	Origin  time.Time
	Last    time.Time
	Zoom    float64
	Columns int
	Bars    []Bar
	Dropped int
}

// Compute lays out the visible tasks in list order.
func Compute(tasks []model.Task, zoom float64) Layout {
	items, dropped := Visible(tasks)
	l := Layout{Zoom: ClampZoom(zoom), Dropped: dropped}
	if len(items) == 0 {
		return l
	}

	l.Origin, l.Last = items[0].lo(), items[0].hi()
	for _, it := range items[1:] {
		if it.lo().Before(l.Origin) {
			l.Origin = it.lo()
		}
		if it.hi().After(l.Last) {
			l.Last = it.hi()
		}
	}

	l.Bars = make([]Bar, len(items))
	for i, it := range items {
		l.Bars[i] = l.place(it, i)
	}
	l.Columns = l.col(model.DaysBetween(l.Origin, l.Last) + 1)
	if l.Columns < 1 {
		l.Columns = 1
	}
	return l
}

func (it Item) lo() time.Time {
	if it.Reversed() {
		return it.End
	}
	return it.Start
}

func (it Item) hi() time.Time {
	if it.Reversed() {
		return it.Start
	}
	return it.End
}

func (l Layout) place(it Item, row int) Bar {
	offset := l.col(model.DaysBetween(l.Origin, it.lo()))
	last := l.col(model.DaysBetween(l.Origin, it.hi())+1) - 1
	if last < offset {
		last = offset
	}
	return Bar{Item: it, Row: row, Offset: offset, Width: last - offset + 1}
}

// Place lays out t on this layout's axis, for drag previews. The offset
// may be negative when t starts before Origin. ok is false when t has no
// usable dates.
func (l Layout) Place(t model.Task, row int) (Bar, bool) {
	items, _ := Visible([]model.Task{t})
	if len(items) == 0 {
		return Bar{}, false
	}
	return l.place(items[0], row), true
}

func (l Layout) scale() float64 { return colsPerDay * l.Zoom }

// col is the first column of the given day index.
func (l Layout) col(day int) int {
	return int(math.Floor(float64(day) * l.scale()))
}

// DaysForColumns converts a horizontal drag distance into whole days.
func (l Layout) DaysForColumns(dx int) int {
	return int(math.Round(float64(dx) / l.scale()))
}

// DateAt is the date under column x.
func (l Layout) DateAt(x int) time.Time {
	day := int(math.Floor(float64(x) / l.scale()))
	return l.Origin.AddDate(0, 0, day)
}

// BarFor returns the bar of a task id.
func (l Layout) BarFor(id int64) (Bar, bool) {
	for _, b := range l.Bars {
		if b.Task.ID == id {
			return b, true
		}
	}
	return Bar{}, false
}

// HitTest finds the bar under column x of row, and which part of it. Bars
// narrower than three columns have no handles.
func (l Layout) HitTest(x, row int) (Bar, Zone) {
	if row < 0 || row >= len(l.Bars) {
		return Bar{}, ZoneNone
	}
	b := l.Bars[row]
	if x < b.Offset || x > b.Last() {
		return b, ZoneNone
	}
	if b.Width >= 3 {
		switch x {
		case b.Offset:
			return b, ZoneStartHandle
		case b.Last():
			return b, ZoneEndHandle
		}
	}
	return b, ZoneBody
}

// ProgressCells is how many of the bar's columns are filled.
func (b Bar) ProgressCells() int {
	p := b.Task.Progress
	if p <= 0 {
		return 0
	}
	if p >= 100 {
		return b.Width
	}
	return b.Width * p / 100
}

// ProgressAt maps a column inside the bar to a percentage, for progress
// drags.
func (b Bar) ProgressAt(x int) int {
	if b.Width <= 0 {
		return 0
	}
	return ClampProgress((x - b.Offset + 1) * 100 / b.Width)
}
