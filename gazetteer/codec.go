// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package gazetteer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chiangyiyang/line-chat-llm-tutorial/spatial"
)

// Delimiter separates the fields of the cache file and the output.
const Delimiter = '|'

const utf8BOM = "\ufeff"

// RowError is a decoding failure tied to a line of the input.
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// EncodeRecords writes a header and one line per record.
func EncodeRecords(w io.Writer, records []*Record) error {
	return encodeRows(w, records, (*Record).Fields)
}

func encodeRows(w io.Writer, records []*Record, fields func(*Record) []string) error {
	cw := csv.NewWriter(w)
	cw.Comma = Delimiter

	if err := cw.Write(Columns); err != nil {
		return err
	}

	for _, r := range records {
		if err := cw.Write(fields(r)); err != nil {
			return err
		}
	}

	cw.Flush()

	return cw.Error()
}

// decodedRow is a record together with the coordinate text it was read
// from.
type decodedRow struct {
	record   *Record
	lat, lng string
}

// DecodeRecords reads records written by EncodeRecords. Columns are matched
// by name so extra columns and a different order are accepted; any missing
// column is an error. Empty input yields no records. Rows with an empty raw
// name are dropped.
func DecodeRecords(r io.Reader) ([]*Record, error) {
	rows, err := decodeRows(r)
	if err != nil {
		return nil, err
	}

	var records []*Record
	for _, row := range rows {
		records = append(records, row.record)
	}

	return records, nil
}

func decodeRows(r io.Reader) ([]decodedRow, error) {
	cr := csv.NewReader(r)
	cr.Comma = Delimiter
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}

	if err != nil {
		return nil, &RowError{Line: 1, Err: err}
	}

	index := make(map[string]int, len(header))

	for i, name := range header {
		name = strings.TrimSpace(name)
		if i == 0 {
			name = strings.TrimPrefix(name, utf8BOM)
		}

		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}

	width := 0

	for _, col := range Columns {
		i, ok := index[col]
		if !ok {
			return nil, &RowError{Line: 1, Err: fmt.Errorf("missing required column %q", col)}
		}

		width = max(width, i+1)
	}

	var rows []decodedRow

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}

		if err != nil {
			var (
				parseErr *csv.ParseError
				line     int
			)

			if errors.As(err, &parseErr) {
				line = parseErr.Line
			}

			return nil, &RowError{Line: line, Err: err}
		}

		line, _ := cr.FieldPos(0)

		if len(rec) < width {
			return nil, &RowError{Line: line, Err: fmt.Errorf("row has %d columns, want at least %d", len(rec), width)}
		}

		record := &Record{
			RawName:       rec[index[ColumnRawName]],
			QueryKey:      rec[index[ColumnQueryKey]],
			SuggestedName: rec[index[ColumnSuggestedName]],
		}

		if record.RawName == "" {
			continue
		}

		lat, lng := rec[index[ColumnLatitude]], rec[index[ColumnLongitude]]

		point, err := parsePoint(lat, lng)
		if err != nil {
			return nil, &RowError{Line: line, Err: err}
		}

		record.Point = point
		rows = append(rows, decodedRow{record: record, lat: lat, lng: lng})
	}
}

// parsePoint returns nil when both coordinates are absent. A single
// coordinate is treated as corrupt data.
func parsePoint(lat, lng string) (*spatial.Point, error) {
	lat, lng = strings.TrimSpace(lat), strings.TrimSpace(lng)
	if lat == "" && lng == "" {
		return nil, nil
	}

	if lat == "" || lng == "" {
		return nil, fmt.Errorf("incomplete coordinates %q, %q", lat, lng)
	}

	var (
		p   spatial.Point
		err error
	)

	if p.Lat, err = spatial.ParseCoordinate(lat); err != nil {
		return nil, err
	}

	if p.Lng, err = spatial.ParseCoordinate(lng); err != nil {
		return nil, err
	}

	return &p, nil
}
