package board

import (
	"operaflow/internal/model"
)

type GestureKind string

const (
	GestureMove        GestureKind = "move"
	GestureResizeStart GestureKind = "resize_start"
	GestureResizeEnd   GestureKind = "resize_end"
	GestureProgress    GestureKind = "progress"
)

// PlanMove shifts both dates by delta days.
func PlanMove(t model.Task, delta int) (model.DateUpdate, error) {
	start, err := model.AddDays(t.Start, delta)
	if err != nil {
		return model.DateUpdate{}, err
	}
	end, err := model.AddDays(t.End, delta)
	if err != nil {
		return model.DateUpdate{}, err
	}
	return model.DateUpdate{TaskID: t.ID, Start: start, End: end}, nil
}

// PlanResizeStart moves the start by delta days, never past the end.
func PlanResizeStart(t model.Task, delta int) (model.DateUpdate, error) {
	start, err := model.ParseDate(t.Start)
	if err != nil {
		return model.DateUpdate{}, err
	}
	end, err := model.ParseDate(t.End)
	if err != nil {
		return model.DateUpdate{}, err
	}
	start = start.AddDate(0, 0, delta)
	if start.After(end) {
		start = end
	}
	return model.DateUpdate{TaskID: t.ID, Start: model.FormatDate(start), End: t.End}, nil
}

// PlanResizeEnd moves the end by delta days, never before the start.
func PlanResizeEnd(t model.Task, delta int) (model.DateUpdate, error) {
	start, err := model.ParseDate(t.Start)
	if err != nil {
		return model.DateUpdate{}, err
	}
	end, err := model.ParseDate(t.End)
	if err != nil {
		return model.DateUpdate{}, err
	}
	end = end.AddDate(0, 0, delta)
	if end.Before(start) {
		end = start
	}
	return model.DateUpdate{TaskID: t.ID, Start: t.Start, End: model.FormatDate(end)}, nil
}

// PlanEndAt sets the end to an absolute date, never before the start.
func PlanEndAt(t model.Task, end string) (model.DateUpdate, error) {
	s, err := model.ParseDate(t.Start)
	if err != nil {
		return model.DateUpdate{}, err
	}
	e, err := model.ParseDate(end)
	if err != nil {
		return model.DateUpdate{}, err
	}
	if e.Before(s) {
		e = s
	}
	return model.DateUpdate{TaskID: t.ID, Start: t.Start, End: model.FormatDate(e)}, nil
}

func ClampProgress(p int) int {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}

func PlanProgress(t model.Task, pct int) model.ProgressUpdate {
	return model.ProgressUpdate{TaskID: t.ID, Progress: ClampProgress(pct)}
}

// Apply returns t with the planned change, for drag previews.
func (g GestureKind) Apply(t model.Task, delta int) (model.Task, error) {
	var (
		u   model.DateUpdate
		err error
	)
	switch g {
	case GestureMove:
		u, err = PlanMove(t, delta)
	case GestureResizeStart:
		u, err = PlanResizeStart(t, delta)
	case GestureResizeEnd:
		u, err = PlanResizeEnd(t, delta)
	case GestureProgress:
		out := t.Clone()
		out.Progress = ClampProgress(t.Progress + delta)
		return out, nil
	default:
		return t, nil
	}
	if err != nil {
		return t, err
	}
	out := t.Clone()
	out.Start, out.End = u.Start, u.End
	return out, nil
}
