package store

import (
	"context"
	"fmt"
	"strings"

	"operaflow/internal/model"
)

// ListLots returns the lots of one affaire, or all lots when affaireID is 0.
func (s *Store) ListLots(ctx context.Context, affaireID int64) ([]model.Lot, error) {
	query := "SELECT id, affaire_id, code, nom FROM lots"
	var args []any
	if affaireID != 0 {
		query += " WHERE affaire_id = ?"
		args = append(args, affaireID)
	}
	query += " ORDER BY affaire_id, code"

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list lots: %w", err)
	}
	defer rows.Close()

	out := []model.Lot{}
	for rows.Next() {
		var l model.Lot
		if err := rows.Scan(&l.ID, &l.AffaireID, &l.Code, &l.Name); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *Store) CreateLot(ctx context.Context, l model.Lot) (model.Lot, error) {
	l.Code = strings.TrimSpace(l.Code)
	if err := l.Validate(); err != nil {
		return model.Lot{}, err
	}
	if _, err := s.GetAffaire(ctx, l.AffaireID); err != nil {
		return model.Lot{}, err
	}
	res, err := s.DB.ExecContext(ctx,
		"INSERT INTO lots (affaire_id, code, nom) VALUES (?, ?, ?)", l.AffaireID, l.Code, l.Name)
	if isUniqueViolation(err) {
		return model.Lot{}, fmt.Errorf("lot %q: %w", l.Code, ErrDuplicateCode)
	}
	if err != nil {
		return model.Lot{}, fmt.Errorf("insert lot: %w", err)
	}
	l.ID, err = res.LastInsertId()
	return l, err
}

func (s *Store) ListResources(ctx context.Context) ([]model.Resource, error) {
	rows, err := s.DB.QueryContext(ctx, "SELECT id, nom, type FROM ressources ORDER BY nom, id")
	if err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}
	defer rows.Close()

	out := []model.Resource{}
	for rows.Next() {
		var r model.Resource
		if err := rows.Scan(&r.ID, &r.Name, &r.Kind); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) CreateResource(ctx context.Context, r model.Resource) (model.Resource, error) {
	r.Name = strings.TrimSpace(r.Name)
	if err := r.Validate(); err != nil {
		return model.Resource{}, err
	}
	res, err := s.DB.ExecContext(ctx, "INSERT INTO ressources (nom, type) VALUES (?, ?)", r.Name, r.Kind)
	if err != nil {
		return model.Resource{}, fmt.Errorf("insert resource: %w", err)
	}
	r.ID, err = res.LastInsertId()
	return r, err
}
