package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"operaflow/internal/events"
	"operaflow/internal/model"
)

// Filter narrows ListTasks. Zero values match everything. From/To select
// tasks whose planned range overlaps the window.
type Filter struct {
	AffaireID *int64
	Status    model.Status
	From      string
	To        string
	Query     string
}

const taskColumns = `
	t.id, t.libelle, t.affaire_id, COALESCE(a.code, ''), t.lot_id, t.site, t.type,
	COALESCE(t.date_debut_plan, ''), COALESCE(t.date_fin_plan, ''),
	t.avancement, t.statut,
	COALESCE((SELECT group_concat(tr.ressource_id) FROM tache_ressources tr WHERE tr.tache_id = t.id), ''),
	t.created_at, t.updated_at
FROM taches t
LEFT JOIN affaires a ON a.id = t.affaire_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(r rowScanner) (model.Task, error) {
	var (
		t                    model.Task
		affaireID, lotID     sql.NullInt64
		status, resources    string
		createdAt, updatedAt string
	)
	if err := r.Scan(
		&t.ID, &t.Label, &affaireID, &t.AffaireCode, &lotID, &t.Site, &t.Type,
		&t.Start, &t.End, &t.Progress, &status, &resources, &createdAt, &updatedAt,
	); err != nil {
		return model.Task{}, err
	}
	if affaireID.Valid {
		v := affaireID.Int64
		t.AffaireID = &v
	}
	if lotID.Valid {
		v := lotID.Int64
		t.LotID = &v
	}
	t.Status = model.Status(status)
	t.ResourceIDs = parseIDList(resources)
	t.CreatedAt = parseTime(createdAt)
	t.UpdatedAt = parseTime(updatedAt)
	return t, nil
}

func parseIDList(v string) []int64 {
	if v == "" {
		return nil
	}
	var out []int64
	for _, part := range strings.Split(v, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err == nil {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ListTasks returns tasks ordered by planned start (undated last), then id.
func (s *Store) ListTasks(ctx context.Context, f Filter) ([]model.Task, error) {
	var (
		where []string
		args  []any
	)
	if f.AffaireID != nil {
		where = append(where, "t.affaire_id = ?")
		args = append(args, *f.AffaireID)
	}
	if f.Status != "" {
		where = append(where, "t.statut = ?")
		args = append(args, string(f.Status))
	}
	if f.From != "" {
		where = append(where, "t.date_fin_plan >= ?")
		args = append(args, f.From)
	}
	if f.To != "" {
		where = append(where, "t.date_debut_plan <= ?")
		args = append(args, f.To)
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		where = append(where, "(t.libelle LIKE ? OR a.code LIKE ? OR t.site LIKE ?)")
		like := "%" + q + "%"
		args = append(args, like, like, like)
	}

	query := "SELECT " + taskColumns
	if len(where) > 0 {
		query += "\nWHERE " + strings.Join(where, " AND ")
	}
	query += "\nORDER BY t.date_debut_plan IS NULL, t.date_debut_plan, t.id"

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []model.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *Store) GetTask(ctx context.Context, id int64) (model.Task, error) {
	return getTask(ctx, s.DB, id)
}

func getTask(ctx context.Context, q querier, id int64) (model.Task, error) {
	t, err := scanTask(q.QueryRowContext(ctx, "SELECT "+taskColumns+"\nWHERE t.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Task{}, fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Task{}, fmt.Errorf("get task %d: %w", id, err)
	}
	return t, nil
}

// CreateTask inserts t. When AffaireID is unset but AffaireCode is given the
// affaire is resolved by code.
func (s *Store) CreateTask(ctx context.Context, t model.Task) (model.Task, error) {
	t.Label = strings.TrimSpace(t.Label)
	if t.Status == "" {
		t.Status = model.StatusNotStarted
	}
	if err := t.Validate(); err != nil {
		return model.Task{}, err
	}

	var created model.Task
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if t.AffaireID == nil && strings.TrimSpace(t.AffaireCode) != "" {
			a, err := findAffaireByCode(ctx, tx, t.AffaireCode)
			if err != nil {
				return err
			}
			t.AffaireID = &a.ID
		}
		now := s.timestamp()
		res, err := tx.ExecContext(ctx, `
			INSERT INTO taches (libelle, affaire_id, lot_id, site, type, date_debut_plan, date_fin_plan, avancement, statut, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.Label, nullInt(t.AffaireID), nullInt(t.LotID), t.Site, t.Type,
			nullString(t.Start), nullString(t.End), t.Progress, string(t.Status), now, now,
		)
		if isForeignKeyViolation(err) {
			return fmt.Errorf("insert task: affaire, lot or resource: %w", ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("insert task: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		if err := assignResources(ctx, tx, id, t.ResourceIDs); err != nil {
			return err
		}
		if err := s.appendEvent(ctx, tx, id, "created", map[string]any{
			"libelle":         t.Label,
			"date_debut_plan": t.Start,
			"date_fin_plan":   t.End,
		}); err != nil {
			return err
		}
		created, err = getTask(ctx, tx, id)
		return err
	})
	if err != nil {
		return model.Task{}, err
	}
	s.publish(events.Event{Topic: events.TaskCreated, TaskID: created.ID, AffaireID: deref(created.AffaireID)})
	return created, nil
}

func (s *Store) DeleteTask(ctx context.Context, id int64) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM taches WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("delete task %d: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("task %d: %w", id, ErrNotFound)
		}
		return s.appendEvent(ctx, tx, id, "deleted", nil)
	})
	if err != nil {
		return err
	}
	s.publish(events.Event{Topic: events.TaskDeleted, TaskID: id})
	return nil
}

// UpdateDates sets the planned range of one task. Both dates must parse and
// start must not be after end.
func (s *Store) UpdateDates(ctx context.Context, u model.DateUpdate) (model.Task, error) {
	var updated model.Task
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		updated, err = s.updateDates(ctx, tx, u)
		return err
	})
	if err != nil {
		return model.Task{}, err
	}
	s.publish(events.Event{Topic: events.TaskUpdated, TaskID: updated.ID, AffaireID: deref(updated.AffaireID)})
	return updated, nil
}

func (s *Store) updateDates(ctx context.Context, tx *sql.Tx, u model.DateUpdate) (model.Task, error) {
	if err := model.CheckRange(u.Start, u.End); err != nil {
		return model.Task{}, err
	}
	before, err := getTask(ctx, tx, u.TaskID)
	if err != nil {
		return model.Task{}, err
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE taches SET date_debut_plan = ?, date_fin_plan = ?, updated_at = ? WHERE id = ?",
		u.Start, u.End, s.timestamp(), u.TaskID,
	); err != nil {
		return model.Task{}, fmt.Errorf("update dates of task %d: %w", u.TaskID, err)
	}
	if err := s.appendEvent(ctx, tx, u.TaskID, "dates_updated", map[string]any{
		"from": map[string]string{"date_debut_plan": before.Start, "date_fin_plan": before.End},
		"to":   map[string]string{"date_debut_plan": u.Start, "date_fin_plan": u.End},
	}); err != nil {
		return model.Task{}, err
	}
	return getTask(ctx, tx, u.TaskID)
}

func (s *Store) UpdateProgress(ctx context.Context, u model.ProgressUpdate) (model.Task, error) {
	if err := model.ValidateProgress(u.Progress); err != nil {
		return model.Task{}, err
	}
	var updated model.Task
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		before, err := getTask(ctx, tx, u.TaskID)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE taches SET avancement = ?, updated_at = ? WHERE id = ?",
			u.Progress, s.timestamp(), u.TaskID,
		); err != nil {
			return fmt.Errorf("update progress of task %d: %w", u.TaskID, err)
		}
		if err := s.appendEvent(ctx, tx, u.TaskID, "progress_updated", map[string]int{
			"from": before.Progress,
			"to":   u.Progress,
		}); err != nil {
			return err
		}
		updated, err = getTask(ctx, tx, u.TaskID)
		return err
	})
	if err != nil {
		return model.Task{}, err
	}
	s.publish(events.Event{Topic: events.TaskUpdated, TaskID: updated.ID, AffaireID: deref(updated.AffaireID)})
	return updated, nil
}

func (s *Store) UpdateTaskStatus(ctx context.Context, id int64, status model.Status) (model.Task, error) {
	if !status.Valid() {
		return model.Task{}, fmt.Errorf("%q: %w", status, model.ErrInvalidStatus)
	}
	var updated model.Task
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		before, err := getTask(ctx, tx, id)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE taches SET statut = ?, updated_at = ? WHERE id = ?",
			string(status), s.timestamp(), id,
		); err != nil {
			return fmt.Errorf("update status of task %d: %w", id, err)
		}
		if err := s.appendEvent(ctx, tx, id, "status_changed", map[string]string{
			"from": string(before.Status),
			"to":   string(status),
		}); err != nil {
			return err
		}
		updated, err = getTask(ctx, tx, id)
		return err
	})
	if err != nil {
		return model.Task{}, err
	}
	s.publish(events.Event{Topic: events.TaskUpdated, TaskID: updated.ID, AffaireID: deref(updated.AffaireID)})
	return updated, nil
}

// BatchUpdateDates applies every update in one transaction. An item that
// fails validation or names an unknown task is reported in its result and
// does not stop the others; any other error aborts the whole batch.
func (s *Store) BatchUpdateDates(ctx context.Context, items []model.DateUpdate) ([]model.ItemResult, error) {
	results := make([]model.ItemResult, 0, len(items))
	saved := 0
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, u := range items {
			res := model.ItemResult{TaskID: u.TaskID}
			t, err := s.updateDates(ctx, tx, u)
			switch {
			case err == nil:
				res.OK = true
				res.Task = &t
				saved++
			case isItemError(err):
				res.Error = err.Error()
			default:
				return err
			}
			results = append(results, res)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("batch update dates: %w", err)
	}
	s.publish(events.Event{Topic: events.TasksSaved, Count: saved})
	return results, nil
}

func isItemError(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, model.ErrInvalidDate) ||
		errors.Is(err, model.ErrInvalidRange)
}

// AssignResources replaces the resources assigned to a task.
func (s *Store) AssignResources(ctx context.Context, taskID int64, resourceIDs []int64) (model.Task, error) {
	var updated model.Task
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getTask(ctx, tx, taskID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM tache_ressources WHERE tache_id = ?", taskID); err != nil {
			return err
		}
		if err := assignResources(ctx, tx, taskID, resourceIDs); err != nil {
			return err
		}
		if err := s.appendEvent(ctx, tx, taskID, "resources_assigned", map[string][]int64{"ressource_ids": resourceIDs}); err != nil {
			return err
		}
		var err error
		updated, err = getTask(ctx, tx, taskID)
		return err
	})
	if err != nil {
		return model.Task{}, err
	}
	s.publish(events.Event{Topic: events.TaskUpdated, TaskID: taskID})
	return updated, nil
}

func assignResources(ctx context.Context, tx *sql.Tx, taskID int64, ids []int64) error {
	for _, rid := range ids {
		var exists int
		err := tx.QueryRowContext(ctx, "SELECT 1 FROM ressources WHERE id = ?", rid).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("resource %d: %w", rid, ErrNotFound)
		}
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO tache_ressources (tache_id, ressource_id) VALUES (?, ?)", taskID, rid,
		); err != nil {
			return fmt.Errorf("assign resource %d: %w", rid, err)
		}
	}
	return nil
}

func deref(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}
