// Package publish writes planning reports as markdown files.
package publish

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"operaflow/internal/model"
)

type WriteOptions struct {
	Title     string
	Today     time.Time
	Overwrite bool
}

type WriteResult struct {
	Written []string `json:"written"`
	Tasks   int      `json:"tasks"`
}

// WritePlanning renders tasks into <toDir>/planning-<name>.md.
func WritePlanning(tasks []model.Task, toDir, name string, opt WriteOptions) (WriteResult, error) {
	toDir = strings.TrimSpace(toDir)
	if toDir == "" {
		return WriteResult{}, errors.New("missing --to")
	}
	toDir = filepath.Clean(toDir)
	if err := os.MkdirAll(toDir, 0o755); err != nil {
		return WriteResult{}, err
	}

	md := RenderPlanningMarkdown(tasks, RenderOptions{Title: opt.Title, Today: opt.Today})
	outPath := filepath.Join(toDir, "planning-"+slug(name)+".md")
	if err := writeFile(outPath, []byte(md), opt.Overwrite); err != nil {
		return WriteResult{}, err
	}
	return WriteResult{Written: []string{outPath}, Tasks: len(tasks)}, nil
}

func slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "toutes"
	}
	var b strings.Builder
	dash := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func writeFile(path string, b []byte, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return errors.New("file exists (use --overwrite): " + path)
		}
	}
	return os.WriteFile(path, b, 0o644)
}
