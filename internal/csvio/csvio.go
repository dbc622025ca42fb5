// Package csvio exports planning tasks to CSV and imports them back.
package csvio

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"operaflow/internal/model"
)

// Columns is the fixed header, in output order.
var Columns = []string{
	"libelle",
	"code_affaire",
	"site",
	"type",
	"date_debut",
	"date_fin",
	"avancement",
	"statut",
}

// Export writes the header then one record per task. Fields containing
// commas, quotes or newlines are quoted.
func Export(w io.Writer, tasks []model.Task) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, t := range tasks {
		if err := cw.Write(Record(t)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Record returns the CSV values of a task in column order.
func Record(t model.Task) []string {
	return []string{
		t.Label,
		t.AffaireCode,
		t.Site,
		t.Type,
		t.Start,
		t.End,
		strconv.Itoa(t.Progress),
		string(t.Status),
	}
}

// Importer is what Import needs from the store.
type Importer interface {
	FindAffaireByCode(ctx context.Context, code string) (model.Affaire, error)
	CreateTask(ctx context.Context, t model.Task) (model.Task, error)
}

type LineError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

type Result struct {
	Imported int         `json:"imported"`
	Failed   int         `json:"failed"`
	Errors   []LineError `json:"errors,omitempty"`
}

// Import reads tasks from r. The first non-empty row is the header and is
// skipped. A malformed row is counted as failed and the import continues;
// only a read error or cancellation stops it.
func Import(ctx context.Context, r io.Reader, dst Importer) (Result, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	res := Result{}
	header := true
	affaires := map[string]int64{}
	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				res.fail(perr.Line, perr.Err.Error())
				continue
			}
			return res, fmt.Errorf("read csv: %w", err)
		}
		if blank(rec) {
			continue
		}
		if header {
			header = false
			continue
		}
		line, _ := cr.FieldPos(0)

		task, err := parseRecord(rec)
		if err != nil {
			res.fail(line, err.Error())
			continue
		}
		if code := task.AffaireCode; code != "" {
			id, ok := affaires[code]
			if !ok {
				a, err := dst.FindAffaireByCode(ctx, code)
				if err != nil {
					res.fail(line, fmt.Sprintf("affaire %q inconnue", code))
					continue
				}
				id = a.ID
				affaires[code] = id
			}
			task.AffaireID = &id
		}
		if _, err := dst.CreateTask(ctx, task); err != nil {
			res.fail(line, err.Error())
			continue
		}
		res.Imported++
	}
	return res, nil
}

func (r *Result) fail(line int, msg string) {
	r.Failed++
	r.Errors = append(r.Errors, LineError{Line: line, Message: msg})
}

func parseRecord(rec []string) (model.Task, error) {
	get := func(i int) string {
		if i >= len(rec) {
			return ""
		}
		return clean(rec[i])
	}
	t := model.Task{
		Label:       get(0),
		AffaireCode: get(1),
		Site:        get(2),
		Type:        get(3),
	}
	if t.Label == "" {
		return model.Task{}, errors.New("libelle manquant")
	}
	for i, dst := range []*string{&t.Start, &t.End} {
		v := get(4 + i)
		if v == "" {
			continue
		}
		d, err := model.ParseDateLoose(v)
		if err != nil {
			return model.Task{}, fmt.Errorf("%s: %w", Columns[4+i], err)
		}
		*dst = model.FormatDate(d)
	}
	if v := get(6); v != "" {
		p, err := strconv.Atoi(strings.TrimSuffix(v, "%"))
		if err != nil {
			return model.Task{}, fmt.Errorf("avancement %q: %w", v, model.ErrInvalidProgress)
		}
		if err := model.ValidateProgress(p); err != nil {
			return model.Task{}, err
		}
		t.Progress = p
	}
	status, err := model.ParseStatus(get(7))
	if err != nil {
		return model.Task{}, err
	}
	t.Status = status
	if t.Start != "" && t.End != "" {
		if err := model.CheckRange(t.Start, t.End); err != nil {
			return model.Task{}, err
		}
	}
	return t, nil
}

// clean trims whitespace and one pair of surrounding quotes left by lazy
// quoting.
func clean(v string) string {
	v = strings.TrimSpace(v)
	if len(v) >= 2 && v[0] == '"' && v[len(v)-1] == '"' {
		v = strings.TrimSpace(v[1 : len(v)-1])
	}
	return v
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
