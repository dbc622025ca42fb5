package format

import (
	"strconv"
	"strings"

	"operaflow/internal/model"
)

// Tasks prints as one row per task.
type Tasks []model.Task

func (Tasks) Header() []string {
	return []string{"ID", "LIBELLÉ", "AFFAIRE", "DÉBUT", "FIN", "AV.", "STATUT"}
}

func (ts Tasks) Rows() [][]string {
	rows := make([][]string, 0, len(ts))
	for _, t := range ts {
		rows = append(rows, []string{
			strconv.FormatInt(t.ID, 10),
			t.Label,
			t.AffaireCode,
			t.Start,
			t.End,
			strconv.Itoa(t.Progress) + "%",
			t.Status.Label(),
		})
	}
	return rows
}

type Affaires []model.Affaire

func (Affaires) Header() []string { return []string{"ID", "CODE", "NOM", "CLIENT", "SITE"} }

func (as Affaires) Rows() [][]string {
	rows := make([][]string, 0, len(as))
	for _, a := range as {
		rows = append(rows, []string{strconv.FormatInt(a.ID, 10), a.Code, a.Name, a.Client, a.Site})
	}
	return rows
}

type Lots []model.Lot

func (Lots) Header() []string { return []string{"ID", "AFFAIRE", "CODE", "NOM"} }

func (ls Lots) Rows() [][]string {
	rows := make([][]string, 0, len(ls))
	for _, l := range ls {
		rows = append(rows, []string{strconv.FormatInt(l.ID, 10), strconv.FormatInt(l.AffaireID, 10), l.Code, l.Name})
	}
	return rows
}

type Resources []model.Resource

func (Resources) Header() []string { return []string{"ID", "NOM", "TYPE"} }

func (rs Resources) Rows() [][]string {
	rows := make([][]string, 0, len(rs))
	for _, r := range rs {
		rows = append(rows, []string{strconv.FormatInt(r.ID, 10), r.Name, r.Kind})
	}
	return rows
}

type TaskEvents []model.TaskEvent

func (TaskEvents) Header() []string { return []string{"DATE", "TYPE", "DÉTAIL"} }

func (es TaskEvents) Rows() [][]string {
	rows := make([][]string, 0, len(es))
	for _, e := range es {
		rows = append(rows, []string{
			e.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			e.Type,
			strings.TrimSpace(string(e.Payload)),
		})
	}
	return rows
}

type ItemResults []model.ItemResult

func (ItemResults) Header() []string { return []string{"TÂCHE", "OK", "ERREUR"} }

func (rs ItemResults) Rows() [][]string {
	rows := make([][]string, 0, len(rs))
	for _, r := range rs {
		rows = append(rows, []string{strconv.FormatInt(r.TaskID, 10), strconv.FormatBool(r.OK), r.Error})
	}
	return rows
}
