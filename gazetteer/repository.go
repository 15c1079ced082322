// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package gazetteer

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/chiangyiyang/line-chat-llm-tutorial/spatial"
)

// PlaceRepository mirrors the cache into a SQL database for ad-hoc
// analysis. The cache file stays the source of truth.
type PlaceRepository interface {
	// CreateSchema creates the places table
	CreateSchema() error

	// ReplaceAll replaces the table contents with records, in order
	ReplaceAll(records []*Record) error

	// List returns the stored records in cache order
	List(limit, offset int) ([]*Record, error)

	// Count returns the number of stored records
	Count() (int, error)

	// CountByCell returns how many records fall in each H3 cell of the
	// given resolution (1..8)
	CountByCell(res int) (map[int64]int, error)

	// DB returns the underlying database connection
	DB() *sql.DB
}

type sqlPlaceRepository struct {
	db *sql.DB
}

// NewPlaceRepository creates a new repository over db.
func NewPlaceRepository(db *sql.DB) PlaceRepository {
	return &sqlPlaceRepository{db: db}
}

func (r *sqlPlaceRepository) DB() *sql.DB {
	return r.db
}

func (r *sqlPlaceRepository) CreateSchema() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS places (
			position INTEGER NOT NULL,
			raw_name VARCHAR PRIMARY KEY,
			query_key VARCHAR NOT NULL,
			suggested_name VARCHAR NOT NULL,
			latitude DOUBLE,
			longitude DOUBLE,
			geom VARCHAR,
			h3_res1 UBIGINT,
			h3_res2 UBIGINT,
			h3_res3 UBIGINT,
			h3_res4 UBIGINT,
			h3_res5 UBIGINT,
			h3_res6 UBIGINT,
			h3_res7 UBIGINT,
			h3_res8 UBIGINT,
			exported_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`)

	return err
}

func (r *sqlPlaceRepository) ReplaceAll(records []*Record) (err error) {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			if rErr := tx.Rollback(); rErr != nil {
				err = errors.Join(err, rErr)
			}
		}
	}()

	if _, err = tx.Exec(`DELETE FROM places`); err != nil {
		return fmt.Errorf("clearing places: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO places(
			position,
			raw_name,
			query_key,
			suggested_name,
			latitude,
			longitude,
			geom,
			h3_res1,
			h3_res2,
			h3_res3,
			h3_res4,
			h3_res5,
			h3_res6,
			h3_res7,
			h3_res8
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, rec := range records {
		args := []any{i, rec.RawName, rec.QueryKey, rec.SuggestedName}

		if rec.Point == nil {
			args = append(args, nil, nil, nil)
			for range spatial.MaxH3Resolution {
				args = append(args, nil)
			}
		} else {
			cells, cErr := rec.Point.H3Cells()
			if cErr != nil {
				err = fmt.Errorf("record %q: %w", rec.RawName, cErr)

				return err
			}

			args = append(args, rec.Point.Lat, rec.Point.Lng, *rec.Point)
			for _, c := range cells {
				args = append(args, c)
			}
		}

		if _, err = stmt.Exec(args...); err != nil {
			return fmt.Errorf("inserting %q: %w", rec.RawName, err)
		}
	}

	return tx.Commit()
}

func (r *sqlPlaceRepository) List(limit, offset int) ([]*Record, error) {
	query := `
		SELECT raw_name, query_key, suggested_name, latitude, longitude
		FROM places
		ORDER BY position
	`

	var args []any
	if limit > 0 {
		query += " LIMIT ? OFFSET ?"

		args = append(args, limit, offset)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*Record

	for rows.Next() {
		var (
			rec      Record
			lat, lng sql.NullFloat64
		)

		if err := rows.Scan(&rec.RawName, &rec.QueryKey, &rec.SuggestedName, &lat, &lng); err != nil {
			return nil, err
		}

		if lat.Valid && lng.Valid {
			rec.Point = &spatial.Point{Lat: lat.Float64, Lng: lng.Float64}
		}

		records = append(records, &rec)
	}

	return records, rows.Err()
}

func (r *sqlPlaceRepository) Count() (int, error) {
	var n int

	err := r.db.QueryRow(`SELECT count(*) FROM places`).Scan(&n)

	return n, err
}

func (r *sqlPlaceRepository) CountByCell(res int) (map[int64]int, error) {
	if res < 1 || res > spatial.MaxH3Resolution {
		return nil, fmt.Errorf("h3 resolution must be between 1 and %d", spatial.MaxH3Resolution)
	}

	// the column name is derived from a validated integer
	rows, err := r.db.Query(fmt.Sprintf(`
		SELECT CAST(h3_res%[1]d AS BIGINT), count(*)
		FROM places
		WHERE h3_res%[1]d IS NOT NULL
		GROUP BY h3_res%[1]d
	`, res))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[int64]int)

	for rows.Next() {
		var (
			cell int64
			n    int
		)

		if err := rows.Scan(&cell, &n); err != nil {
			return nil, err
		}

		counts[cell] = n
	}

	return counts, rows.Err()
}
