package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"operaflow/internal/events"
	"operaflow/internal/model"
)

func (s *Store) ListAffaires(ctx context.Context) ([]model.Affaire, error) {
	rows, err := s.DB.QueryContext(ctx, "SELECT id, code, nom, client, site, created_at FROM affaires ORDER BY code")
	if err != nil {
		return nil, fmt.Errorf("list affaires: %w", err)
	}
	defer rows.Close()

	out := []model.Affaire{}
	for rows.Next() {
		a, err := scanAffaire(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanAffaire(r rowScanner) (model.Affaire, error) {
	var (
		a         model.Affaire
		createdAt string
	)
	if err := r.Scan(&a.ID, &a.Code, &a.Name, &a.Client, &a.Site, &createdAt); err != nil {
		return model.Affaire{}, err
	}
	a.CreatedAt = parseTime(createdAt)
	return a, nil
}

func (s *Store) CreateAffaire(ctx context.Context, a model.Affaire) (model.Affaire, error) {
	a.Code = strings.TrimSpace(a.Code)
	a.Name = strings.TrimSpace(a.Name)
	if err := a.Validate(); err != nil {
		return model.Affaire{}, err
	}
	now := s.timestamp()
	res, err := s.DB.ExecContext(ctx,
		"INSERT INTO affaires (code, nom, client, site, created_at) VALUES (?, ?, ?, ?, ?)",
		a.Code, a.Name, a.Client, a.Site, now,
	)
	if isUniqueViolation(err) {
		return model.Affaire{}, fmt.Errorf("affaire %q: %w", a.Code, ErrDuplicateCode)
	}
	if err != nil {
		return model.Affaire{}, fmt.Errorf("insert affaire: %w", err)
	}
	a.ID, err = res.LastInsertId()
	if err != nil {
		return model.Affaire{}, err
	}
	a.CreatedAt = parseTime(now)
	s.publish(events.Event{Topic: events.AffaireCreated, AffaireID: a.ID})
	return a, nil
}

// FindAffaireByCode matches the code exactly after trimming.
func (s *Store) FindAffaireByCode(ctx context.Context, code string) (model.Affaire, error) {
	return findAffaireByCode(ctx, s.DB, code)
}

func findAffaireByCode(ctx context.Context, q querier, code string) (model.Affaire, error) {
	code = strings.TrimSpace(code)
	a, err := scanAffaire(q.QueryRowContext(ctx,
		"SELECT id, code, nom, client, site, created_at FROM affaires WHERE code = ?", code))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Affaire{}, fmt.Errorf("affaire %q: %w", code, ErrNotFound)
	}
	if err != nil {
		return model.Affaire{}, fmt.Errorf("find affaire %q: %w", code, err)
	}
	return a, nil
}

func (s *Store) GetAffaire(ctx context.Context, id int64) (model.Affaire, error) {
	a, err := scanAffaire(s.DB.QueryRowContext(ctx,
		"SELECT id, code, nom, client, site, created_at FROM affaires WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Affaire{}, fmt.Errorf("affaire %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Affaire{}, fmt.Errorf("get affaire %d: %w", id, err)
	}
	return a, nil
}
