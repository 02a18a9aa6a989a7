// Package db stores generated layouts in SQLite so sweep results can be
// browsed and exported after the run that produced them.
package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ctessum/geom"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/layowt/layowt/internal/grid"
)

type DB struct {
	*sql.DB
}

// NewDB opens the database at path and creates the schema if needed.
func NewDB(path string) (*DB, error) {
	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS layouts (
			layout_id         TEXT PRIMARY KEY,
			name              TEXT,
			n_wtg             BIGINT,
			grid_params       TEXT,
			points            TEXT,
			aep               DOUBLE,
			aep_units         TEXT,
			created_at        TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return nil, err
	}

	return db, nil
}

// OpenDB opens the database at path without touching the schema. Used by
// the migrate subcommand, which manages the schema itself.
func OpenDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	return &DB{db}, nil
}

// StoredLayout is a persisted layout record. GridParams is nil for
// layouts that were loaded from files rather than generated.
type StoredLayout struct {
	ID          string       `json:"layout_id"`
	Name        string       `json:"name"`
	NumTurbines int          `json:"n_wtg"`
	GridParams  *grid.Grid   `json:"grid_params,omitempty"`
	Points      []geom.Point `json:"points"`
	AEP         float64      `json:"aep"`
	AEPUnits    string       `json:"aep_units"`
	CreatedAt   time.Time    `json:"created_at"`
}

// SaveLayout inserts a layout record, assigning a fresh ID when none is
// set, and returns the stored ID.
func (db *DB) SaveLayout(rec StoredLayout) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	} else if _, err := uuid.Parse(rec.ID); err != nil {
		return "", fmt.Errorf("invalid layout id %q: %w", rec.ID, err)
	}

	points, err := json.Marshal(rec.Points)
	if err != nil {
		return "", fmt.Errorf("failed to encode points: %w", err)
	}

	var gridParams any
	if rec.GridParams != nil {
		b, err := json.Marshal(rec.GridParams)
		if err != nil {
			return "", fmt.Errorf("failed to encode grid params: %w", err)
		}
		gridParams = string(b)
	}

	_, err = db.Exec(`
		INSERT INTO layouts (layout_id, name, n_wtg, grid_params, points, aep, aep_units)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Name, rec.NumTurbines, gridParams, string(points), rec.AEP, rec.AEPUnits,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert layout: %w", err)
	}
	return rec.ID, nil
}

// Layouts returns all stored layouts, newest first.
func (db *DB) Layouts() ([]StoredLayout, error) {
	rows, err := db.Query(`
		SELECT layout_id, name, n_wtg, grid_params, points, aep, aep_units, created_at
		FROM layouts
		ORDER BY created_at DESC, layout_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query layouts: %w", err)
	}
	defer rows.Close()

	var recs []StoredLayout
	for rows.Next() {
		rec, err := scanLayout(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// Layout returns the stored layout with the given ID. Returns
// sql.ErrNoRows if it does not exist.
func (db *DB) Layout(id string) (StoredLayout, error) {
	if _, err := uuid.Parse(id); err != nil {
		return StoredLayout{}, fmt.Errorf("invalid layout id %q: %w", id, err)
	}
	row := db.QueryRow(`
		SELECT layout_id, name, n_wtg, grid_params, points, aep, aep_units, created_at
		FROM layouts WHERE layout_id = ?`, id)
	return scanLayout(row)
}

// DeleteLayout removes the stored layout with the given ID. Returns
// sql.ErrNoRows if it does not exist.
func (db *DB) DeleteLayout(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("invalid layout id %q: %w", id, err)
	}
	res, err := db.Exec(`DELETE FROM layouts WHERE layout_id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete layout: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLayout(s scanner) (StoredLayout, error) {
	var rec StoredLayout
	var gridParams sql.NullString
	var points string
	if err := s.Scan(&rec.ID, &rec.Name, &rec.NumTurbines, &gridParams,
		&points, &rec.AEP, &rec.AEPUnits, &rec.CreatedAt); err != nil {
		return StoredLayout{}, err
	}
	if err := json.Unmarshal([]byte(points), &rec.Points); err != nil {
		return StoredLayout{}, fmt.Errorf("failed to decode points: %w", err)
	}
	if gridParams.Valid {
		rec.GridParams = new(grid.Grid)
		if err := json.Unmarshal([]byte(gridParams.String), rec.GridParams); err != nil {
			return StoredLayout{}, fmt.Errorf("failed to decode grid params: %w", err)
		}
	}
	return rec, nil
}
