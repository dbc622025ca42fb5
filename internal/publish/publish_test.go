package publish

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"operaflow/internal/model"
)

func sampleTasks() []model.Task {
	return []model.Task{
		{ID: 1, Label: "Terrassement", AffaireCode: "AFF-1", Start: "2024-01-01", End: "2024-01-03", Progress: 100, Status: model.StatusDone},
		{ID: 2, Label: "Fondations | semelles", AffaireCode: "AFF-1", Start: "2024-01-04", End: "2024-01-09", Progress: 20, Status: model.StatusInProgress},
		{ID: 3, Label: "Charpente", AffaireCode: "AFF-1", Start: "2024-02-01", End: "2024-02-10"},
		{ID: 4, Label: "Réception"},
	}
}

func TestRenderPlanningMarkdown(t *testing.T) {
	t.Parallel()

	today := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	md := RenderPlanningMarkdown(sampleTasks(), RenderOptions{Title: "AFF-1 Gymnase", Today: today})

	for _, want := range []string{
		"# Planning AFF-1 Gymnase",
		"- Tâches : 4 (3 planifiées, 1 sans dates)",
		"- Période : 2024-01-01 → 2024-02-10",
		"- Avancement moyen : 30 %",
		"- En retard : 1",
		`| 2 | Fondations \| semelles | AFF-1 | 2024-01-04 | 2024-01-09 | 6 | 20 % | En cours |`,
		"- #2 Fondations | semelles : fin prévue le 2024-01-09, 20 %",
		"## Sans dates",
		"- #4 Réception",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("expected markdown to contain %q\n%s", want, md)
		}
	}
	if strings.Contains(md, "- #1 Terrassement") {
		t.Fatalf("done task must not be listed as late:\n%s", md)
	}
}

func TestLate(t *testing.T) {
	t.Parallel()

	today := time.Date(2024, 1, 10, 18, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		task model.Task
		want bool
	}{
		{"ended yesterday", model.Task{End: "2024-01-09"}, true},
		{"ends today", model.Task{End: "2024-01-10"}, false},
		{"done", model.Task{End: "2024-01-01", Status: model.StatusDone}, false},
		{"complete", model.Task{End: "2024-01-01", Progress: 100}, false},
		{"no end", model.Task{}, false},
	}
	for _, tt := range tests {
		if got := Late(tt.task, today); got != tt.want {
			t.Errorf("%s: Late = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestWritePlanningRefusesOverwrite(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	res, err := WritePlanning(sampleTasks(), dir, "AFF-1 Gymnase", WriteOptions{})
	if err != nil {
		t.Fatalf("WritePlanning: %v", err)
	}
	want := filepath.Join(dir, "planning-aff-1-gymnase.md")
	if len(res.Written) != 1 || res.Written[0] != want {
		t.Fatalf("unexpected written files: %#v", res.Written)
	}
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("stat: %v", err)
	}

	if _, err := WritePlanning(sampleTasks(), dir, "AFF-1 Gymnase", WriteOptions{}); err == nil {
		t.Fatalf("expected second write without overwrite to fail")
	}
	if _, err := WritePlanning(sampleTasks(), dir, "AFF-1 Gymnase", WriteOptions{Overwrite: true}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
}

func TestSlug(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]string{
		"":             "toutes",
		"AFF-2024/01":  "aff-2024-01",
		"  Été  Gym  ": "t-gym",
		"Lot 3 — Gros": "lot-3-gros",
		"ok":           "ok",
	} {
		if got := slug(in); got != want {
			t.Errorf("slug(%q) = %q, want %q", in, got, want)
		}
	}
}
