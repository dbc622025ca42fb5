package model

import (
	"encoding/json"
	"time"
)

type Status string

const (
	StatusNotStarted Status = "non_demarre"
	StatusInProgress Status = "en_cours"
	StatusDone       Status = "termine"
	StatusBlocked    Status = "bloque"
	StatusPostponed  Status = "reporte"
)

// Statuses lists the lifecycle statuses in display order.
var Statuses = []Status{
	StatusNotStarted,
	StatusInProgress,
	StatusDone,
	StatusBlocked,
	StatusPostponed,
}

type Affaire struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code" validate:"required"`
	Name      string    `json:"nom"`
	Client    string    `json:"client,omitempty"`
	Site      string    `json:"site,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Lot is a work package of an affaire.
type Lot struct {
	ID        int64  `json:"id"`
	AffaireID int64  `json:"affaire_id" validate:"required"`
	Code      string `json:"code" validate:"required"`
	Name      string `json:"nom"`
}

type Resource struct {
	ID   int64  `json:"id"`
	Name string `json:"nom" validate:"required"`
	Kind string `json:"type,omitempty"`
}

// Task is the planning unit drawn as a bar on the board.
//
// Start and End are planned dates in YYYY-MM-DD form. They are kept as
// strings because rows imported from older data may carry empty or
// unparsable values; the board drops those instead of failing.
type Task struct {
	ID          int64   `json:"id"`
	Label       string  `json:"libelle" validate:"required"`
	AffaireID   *int64  `json:"affaire_id,omitempty"`
	AffaireCode string  `json:"code_affaire,omitempty"`
	LotID       *int64  `json:"lot_id,omitempty"`
	Site        string  `json:"site,omitempty"`
	Type        string  `json:"type,omitempty"`
	Start       string  `json:"date_debut_plan,omitempty" validate:"omitempty,ymd"`
	End         string  `json:"date_fin_plan,omitempty" validate:"omitempty,ymd"`
	Progress    int     `json:"avancement" validate:"min=0,max=100"`
	Status      Status  `json:"statut,omitempty" validate:"omitempty,status"`
	ResourceIDs []int64 `json:"ressource_ids,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy; history snapshots rely on it.
func (t Task) Clone() Task {
	out := t
	if t.AffaireID != nil {
		v := *t.AffaireID
		out.AffaireID = &v
	}
	if t.LotID != nil {
		v := *t.LotID
		out.LotID = &v
	}
	if t.ResourceIDs != nil {
		out.ResourceIDs = append([]int64(nil), t.ResourceIDs...)
	}
	return out
}

func CloneTasks(tasks []Task) []Task {
	if tasks == nil {
		return nil
	}
	out := make([]Task, len(tasks))
	for i := range tasks {
		out[i] = tasks[i].Clone()
	}
	return out
}

// FindTask returns the index of the task with the given id, or -1.
func FindTask(tasks []Task, id int64) int {
	for i := range tasks {
		if tasks[i].ID == id {
			return i
		}
	}
	return -1
}

// DateUpdate is the payload of the per-task date endpoint.
type DateUpdate struct {
	TaskID int64  `json:"task_id"`
	Start  string `json:"date_debut_plan"`
	End    string `json:"date_fin_plan"`
}

// ProgressUpdate is the payload of the per-task progress endpoint.
type ProgressUpdate struct {
	TaskID   int64 `json:"task_id"`
	Progress int   `json:"avancement"`
}

// ItemResult reports the outcome of one entry of a batched update.
type ItemResult struct {
	TaskID int64  `json:"task_id"`
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
	Task   *Task  `json:"task,omitempty"`
}

type TaskEvent struct {
	ID        string          `json:"id"`
	TaskID    int64           `json:"task_id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}
