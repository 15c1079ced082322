// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

// Package dataset reads the place name lists fed to the resolution
// pipeline and writes its enriched output.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/chiangyiyang/line-chat-llm-tutorial/gazetteer"
	"github.com/chiangyiyang/line-chat-llm-tutorial/utils/textutils"
)

// DefaultColumn holds the place name in input datasets.
const DefaultColumn = gazetteer.ColumnRawName

// ReadOptions describes an input dataset.
type ReadOptions struct {
	// Comma is the field delimiter, ',' when zero.
	Comma rune
	// Column is the header of the place name column, DefaultColumn when
	// empty.
	Column string
}

func (o ReadOptions) withDefaults() ReadOptions {
	if o.Comma == 0 {
		o.Comma = ','
	}

	if o.Column == "" {
		o.Column = DefaultColumn
	}

	return o
}

// columnReader opens a delimited reader and locates the named column.
func columnReader(r io.Reader, opts ReadOptions) (*csv.Reader, int, error) {
	cr := csv.NewReader(r)
	cr.Comma = opts.Comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("read header: %w", err)
	}

	for i, col := range header {
		col = strings.TrimSpace(col)
		if i == 0 {
			col = strings.TrimPrefix(col, "\ufeff")
		}

		if col == opts.Column {
			return cr, i, nil
		}
	}

	return nil, 0, fmt.Errorf("missing required column %q", opts.Column)
}

// ReadPlaces returns the place name column of every data row, in order.
// Rows too short to hold the column yield an empty name so the row count is
// preserved; the pipeline skips them. Other columns are ignored.
func ReadPlaces(r io.Reader, opts ReadOptions) ([]string, error) {
	opts = opts.withDefaults()

	cr, idx, err := columnReader(r, opts)
	if err != nil {
		return nil, err
	}

	var names []string

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return names, nil
		}

		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		if idx < len(rec) {
			names = append(names, rec[idx])
		} else {
			names = append(names, "")
		}
	}
}

// ReadPlacesFile opens path and calls ReadPlaces.
func ReadPlacesFile(path string, opts ReadOptions) ([]string, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("opening input: %w", err)
	}
	defer f.Close()

	names, err := ReadPlaces(f, opts)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	return names, nil
}

// WriteEnriched writes the enriched rows with the cache column layout.
func WriteEnriched(w io.Writer, records []*gazetteer.Record) error {
	return gazetteer.EncodeRecords(w, records)
}

// WriteEnrichedFile atomically replaces path with the enriched rows.
// Failures match gazetteer.ErrPersistFailure.
func WriteEnrichedFile(path string, records []*gazetteer.Record) error {
	return gazetteer.WriteFileAtomic(path, func(w io.Writer) error {
		return WriteEnriched(w, records)
	})
}

// ExtractOptions describes where the places live in an event dataset.
type ExtractOptions struct {
	ReadOptions
	// Separator splits a field holding several places, ";" when empty.
	Separator string
}

// DefaultPlacesColumn is the column listing the places of an event.
const DefaultPlacesColumn = "地點"

// ExtractPlaces collects the distinct place names mentioned in a column
// holding separator-delimited lists. Names are normalized and returned
// sorted.
func ExtractPlaces(r io.Reader, opts ExtractOptions) ([]string, error) {
	if opts.Column == "" {
		opts.Column = DefaultPlacesColumn
	}

	if opts.Separator == "" {
		opts.Separator = ";"
	}

	fields, err := ReadPlaces(r, opts.ReadOptions)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})

	for _, field := range fields {
		for _, place := range textutils.SplitPlaces(field, opts.Separator) {
			if place = textutils.NormalizePlace(place); place != "" {
				seen[place] = struct{}{}
			}
		}
	}

	places := make([]string, 0, len(seen))
	for p := range seen {
		places = append(places, p)
	}

	slices.Sort(places)

	return places, nil
}

// WritePlaces writes a one-column dataset usable as pipeline input.
func WritePlaces(w io.Writer, places []string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{DefaultColumn}); err != nil {
		return err
	}

	for _, p := range places {
		if err := cw.Write([]string{p}); err != nil {
			return err
		}
	}

	cw.Flush()

	return cw.Error()
}
