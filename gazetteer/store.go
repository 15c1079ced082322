// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package gazetteer

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
)

// Store is the place name cache: an in-memory map from raw name to Record
// backed by a pipe-delimited file. Records are only ever appended; the file
// is rewritten as a whole on Persist.
//
// A Store is owned by a single goroutine for the duration of a run.
type Store struct {
	path    string
	records map[string]*Record
	order   []*Record
	dirty   bool

	// coordinate text of loaded rows, written back verbatim
	coords map[*Record][2]string
}

// NewStore creates an empty store bound to path. Nothing is read until Load.
func NewStore(path string) *Store {
	return &Store{
		path:    path,
		records: make(map[string]*Record),
		coords:  make(map[*Record][2]string),
	}
}

// OpenStore creates a store bound to path and loads it.
func OpenStore(path string) (*Store, error) {
	s := NewStore(path)
	if err := s.Load(); err != nil {
		return nil, err
	}

	return s, nil
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load replaces the in-memory contents with the backing file. A missing or
// empty file yields an empty store. Unparsable content is reported as a
// *CorruptError.
func (s *Store) Load() error {
	s.records = make(map[string]*Record)
	s.coords = make(map[*Record][2]string)
	s.order = nil
	s.dirty = false

	data, err := os.ReadFile(filepath.Clean(s.path))
	if err != nil {
		// If the file does not exist, that's OK; we will create it.
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}

		return fmt.Errorf("reading cache file: %w", err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	return s.load(bytes.NewReader(data))
}

func (s *Store) load(r io.Reader) error {
	rows, err := decodeRows(r)
	if err != nil {
		corrupt := &CorruptError{Path: s.path, Err: err}

		var rowErr *RowError
		if errors.As(err, &rowErr) {
			corrupt.Line = rowErr.Line
			corrupt.Err = rowErr.Err
		}

		return corrupt
	}

	duplicates := 0

	for _, row := range rows {
		rec := row.record
		if _, ok := s.records[rec.RawName]; ok {
			duplicates++

			continue
		}

		s.records[rec.RawName] = rec
		s.coords[rec] = [2]string{row.lat, row.lng}
		s.order = append(s.order, rec)
	}

	if duplicates > 0 {
		log.Printf("⚠️  Cache %s has %d duplicated place names, keeping the first occurrence", s.path, duplicates)
		// the duplicates disappear on the next persist
		s.dirty = true
	}

	return nil
}

// Lookup returns the record cached for the exact raw name.
func (s *Store) Lookup(rawName string) (*Record, bool) {
	rec, ok := s.records[rawName]

	return rec, ok
}

// Append adds a new record. Records are never replaced: appending a raw
// name already present fails with ErrRecordExists, and records without a
// suggested name are refused with ErrUnresolvedRecord.
func (s *Store) Append(rec *Record) error {
	if rec == nil || rec.RawName == "" {
		return ErrEmptyQuery
	}

	if !rec.Resolved() {
		return fmt.Errorf("%w: %q", ErrUnresolvedRecord, rec.RawName)
	}

	if _, ok := s.records[rec.RawName]; ok {
		return fmt.Errorf("%w: %q", ErrRecordExists, rec.RawName)
	}

	s.records[rec.RawName] = rec
	s.order = append(s.order, rec)
	s.dirty = true

	return nil
}

// Len returns the number of cached records.
func (s *Store) Len() int {
	return len(s.order)
}

// Records returns the cached records in append order. The slice is a copy;
// the records are shared and must not be modified.
func (s *Store) Records() []*Record {
	return append([]*Record(nil), s.order...)
}

// Dirty reports whether the store changed since it was loaded or persisted.
func (s *Store) Dirty() bool {
	return s.dirty
}

// Persist rewrites the backing file with the full store. The content is
// written to a temporary file in the same directory and renamed over the
// previous file, so a failure leaves the prior cache untouched.
func (s *Store) Persist() error {
	err := WriteFileAtomic(s.path, func(w io.Writer) error {
		return encodeRows(w, s.order, s.fields)
	})
	if err != nil {
		return err
	}

	s.dirty = false

	return nil
}

// fields returns the line for rec. Rows read from the file keep their
// coordinate text so a rewrite leaves them byte-identical.
func (s *Store) fields(rec *Record) []string {
	f := rec.Fields()
	if c, ok := s.coords[rec]; ok {
		f[3], f[4] = c[0], c[1]
	}

	return f
}

// WriteFileAtomic writes path through a temporary sibling file and a
// rename. Errors match ErrPersistFailure.
func WriteFileAtomic(path string, write func(io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("%w: creating directory %s: %w", ErrPersistFailure, dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: creating temporary file: %w", ErrPersistFailure, err)
	}

	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	bw := bufio.NewWriter(tmp)
	if err = write(bw); err != nil {
		return fmt.Errorf("%w: writing %s: %w", ErrPersistFailure, path, err)
	}

	if err = bw.Flush(); err != nil {
		return fmt.Errorf("%w: writing %s: %w", ErrPersistFailure, path, err)
	}

	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("%w: syncing %s: %w", ErrPersistFailure, path, err)
	}

	if err = tmp.Chmod(0o644); err != nil {
		return fmt.Errorf("%w: chmod %s: %w", ErrPersistFailure, path, err)
	}

	if err = tmp.Close(); err != nil {
		return fmt.Errorf("%w: closing %s: %w", ErrPersistFailure, path, err)
	}

	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%w: renaming into %s: %w", ErrPersistFailure, path, err)
	}

	return nil
}
