// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package gazetteer

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Snapshot is the JSON export format of the cache.
type Snapshot struct {
	Version     string    `json:"version"`
	LastUpdated time.Time `json:"last_updated"`
	Records     []*Record `json:"records"`
}

// ExportToJSON writes every cached record to a JSON file.
func ExportToJSON(store *Store, path string) error {
	seed := &Snapshot{
		Version:     "1.0",
		LastUpdated: time.Now().UTC(),
		Records:     store.Records(),
	}

	data, err := json.MarshalIndent(seed, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}

	return WriteFileAtomic(path, func(w io.Writer) error {
		_, err := w.Write(data)

		return err
	})
}

// ImportFromJSON appends the records of a JSON snapshot to the store.
// Raw names already cached are left untouched and unresolved records are
// ignored. It returns the number of records appended.
func ImportFromJSON(store *Store, path string) (int, error) {
	data, err := os.ReadFile(filepath.Clean(path)) // #nosec G304 - path is provided by the operator
	if err != nil {
		return 0, fmt.Errorf("reading file: %w", err)
	}

	var seed Snapshot
	if err := json.Unmarshal(data, &seed); err != nil {
		return 0, fmt.Errorf("parsing JSON: %w", err)
	}

	imported := 0

	for _, rec := range seed.Records {
		if rec == nil || rec.RawName == "" || !rec.Resolved() {
			continue
		}

		if _, ok := store.Lookup(rec.RawName); ok {
			continue
		}

		if rec.Point != nil {
			if err := rec.Point.Validate(); err != nil {
				return imported, fmt.Errorf("record %q: %w", rec.RawName, err)
			}
		}

		if err := store.Append(rec); err != nil {
			return imported, fmt.Errorf("appending %q: %w", rec.RawName, err)
		}

		imported++
	}

	return imported, nil
}
