// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package gazetteer

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chiangyiyang/line-chat-llm-tutorial/spatial"
)

const cacheHeader = "地名|搜尋關鍵地名|建議地名|緯度|經度\n"

func writeCache(t *testing.T, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "places_db.csv")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	return path
}

func sampleRecords() []*Record {
	return []*Record{
		{
			RawName:       "北門",
			QueryKey:      "台南市北門",
			SuggestedName: "台灣台南市北區北門路",
			Point:         &spatial.Point{Lat: 23.0006, Lng: 120.2046},
		},
		{
			RawName:       "安平古堡",
			QueryKey:      "台南市安平古堡",
			SuggestedName: "台灣台南市安平區國勝路82號安平古堡",
		},
		{
			RawName:       "a|b \"quoted\"",
			QueryKey:      "台南市a|b \"quoted\"",
			SuggestedName: "台灣",
			Point:         &spatial.Point{Lat: -1.5, Lng: 0},
		},
	}
}

func TestEncodeRecords(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeRecords(&buf, sampleRecords()[:2]))

	want := cacheHeader +
		"北門|台南市北門|台灣台南市北區北門路|23.0006|120.2046\n" +
		"安平古堡|台南市安平古堡|台灣台南市安平區國勝路82號安平古堡||\n"
	assert.Equal(t, want, buf.String())
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeRecords(&buf, sampleRecords()))

	got, err := DecodeRecords(&buf)
	require.NoError(t, err)

	if diff := cmp.Diff(sampleRecords(), got); diff != "" {
		t.Errorf("DecodeRecords() mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeRecords(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		want     []*Record
		wantLine int
		wantErr  bool
	}{
		{
			name:  "empty input",
			input: "",
			want:  nil,
		},
		{
			name:  "header only",
			input: cacheHeader,
			want:  nil,
		},
		{
			name:  "byte order mark and reordered columns",
			input: "\ufeff經度|緯度|地名|建議地名|搜尋關鍵地名|備註\n120.5|23.5|北門|台灣北門|北門|x\n",
			want: []*Record{
				{RawName: "北門", QueryKey: "北門", SuggestedName: "台灣北門", Point: &spatial.Point{Lat: 23.5, Lng: 120.5}},
			},
		},
		{
			name:  "empty suggested name is kept",
			input: cacheHeader + "不存在|不存在|||\n",
			want: []*Record{
				{RawName: "不存在", QueryKey: "不存在"},
			},
		},
		{
			name:  "empty raw name is dropped",
			input: cacheHeader + "|x|y|1|2\n北門|北門|台灣北門||\n",
			want: []*Record{
				{RawName: "北門", QueryKey: "北門", SuggestedName: "台灣北門"},
			},
		},
		{
			name:     "missing column",
			input:    "地名|搜尋關鍵地名|建議地名|緯度\n",
			wantLine: 1,
			wantErr:  true,
		},
		{
			name:     "short row",
			input:    cacheHeader + "北門|北門|台灣北門|23\n",
			wantLine: 2,
			wantErr:  true,
		},
		{
			name:     "single coordinate",
			input:    cacheHeader + "北門|北門|台灣北門|23.1|\n",
			wantLine: 2,
			wantErr:  true,
		},
		{
			name:     "unparsable coordinate",
			input:    cacheHeader + "北門|北門|台灣北門|23.1|120.2\n南門|南門|台灣南門|north|120.2\n",
			wantLine: 3,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeRecords(strings.NewReader(tt.input))
			if tt.wantErr {
				var rowErr *RowError
				require.ErrorAs(t, err, &rowErr)
				assert.Equal(t, tt.wantLine, rowErr.Line)

				return
			}

			require.NoError(t, err)

			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("DecodeRecords() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStoreLoadMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.csv")

	store, err := OpenStore(path)
	require.NoError(t, err)
	assert.Equal(t, 0, store.Len())
	assert.False(t, store.Dirty())

	_, statErr := os.Stat(path)
	assert.True(t, errors.Is(statErr, os.ErrNotExist), "loading must not create the file")
}

func TestStoreLoadBlankFile(t *testing.T) {
	store, err := OpenStore(writeCache(t, "\n  \n"))
	require.NoError(t, err)
	assert.Equal(t, 0, store.Len())
}

func TestStoreLoadCorrupt(t *testing.T) {
	path := writeCache(t, cacheHeader+"北門|北門|台灣北門|23.1|east\n")

	_, err := OpenStore(path)
	require.ErrorIs(t, err, ErrCacheCorrupt)

	var corrupt *CorruptError
	require.ErrorAs(t, err, &corrupt)
	assert.Equal(t, path, corrupt.Path)
	assert.Equal(t, 2, corrupt.Line)
}

func TestStoreLoadDuplicates(t *testing.T) {
	store, err := OpenStore(writeCache(t, cacheHeader+
		"北門|台南市北門|first|1|2\n"+
		"南門|台南市南門|south|3|4\n"+
		"北門|台南市北門|second|5|6\n"))
	require.NoError(t, err)

	assert.Equal(t, 2, store.Len())
	assert.True(t, store.Dirty())

	rec, ok := store.Lookup("北門")
	require.True(t, ok)
	assert.Equal(t, "first", rec.SuggestedName)
}

func TestStoreLookupIsExact(t *testing.T) {
	store, err := OpenStore(writeCache(t, cacheHeader+"北門|台南市北門|台灣北門|1|2\n"))
	require.NoError(t, err)

	_, ok := store.Lookup("北門")
	assert.True(t, ok)

	for _, miss := range []string{" 北門", "北門 ", "台南市北門", ""} {
		_, ok := store.Lookup(miss)
		assert.False(t, ok, "Lookup(%q)", miss)
	}
}

func TestStoreAppend(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "db.csv"))

	require.NoError(t, store.Append(&Record{RawName: "北門", QueryKey: "北門", SuggestedName: "台灣北門"}))
	assert.True(t, store.Dirty())
	assert.Equal(t, 1, store.Len())

	err := store.Append(&Record{RawName: "北門", QueryKey: "北門", SuggestedName: "other"})
	require.ErrorIs(t, err, ErrRecordExists)

	rec, _ := store.Lookup("北門")
	assert.Equal(t, "台灣北門", rec.SuggestedName, "records are never replaced")

	require.ErrorIs(t, store.Append(&Record{RawName: "南門", QueryKey: "南門"}), ErrUnresolvedRecord)
	require.ErrorIs(t, store.Append(&Record{SuggestedName: "x"}), ErrEmptyQuery)
	require.ErrorIs(t, store.Append(nil), ErrEmptyQuery)
	assert.Equal(t, 1, store.Len())
}

func TestStorePersistAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "db.csv")
	store := NewStore(path)

	for _, rec := range sampleRecords() {
		require.NoError(t, store.Append(rec))
	}

	require.NoError(t, store.Persist())
	assert.False(t, store.Dirty())

	reloaded, err := OpenStore(path)
	require.NoError(t, err)

	if diff := cmp.Diff(sampleRecords(), reloaded.Records()); diff != "" {
		t.Errorf("reloaded records mismatch (-want +got):\n%s", diff)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files are left behind")
}

func TestStorePersistKeepsLoadedOrder(t *testing.T) {
	contents := cacheHeader +
		"乙|乙|台灣乙|1|2\n" +
		"甲|甲|台灣甲||\n"
	path := writeCache(t, contents)

	store, err := OpenStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Append(&Record{RawName: "丙", QueryKey: "丙", SuggestedName: "台灣丙"}))
	require.NoError(t, store.Persist())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, contents+"丙|丙|台灣丙||\n", string(data))
}

func TestStorePersistKeepsCoordinateText(t *testing.T) {
	contents := cacheHeader +
		"安平|台南市安平|台南市安平區|23.0000|120.10\n" +
		"鹽水|台南市鹽水|台南市鹽水區|2.3e1|120.0\n"
	path := writeCache(t, contents)

	store, err := OpenStore(path)
	require.NoError(t, err)

	rec, ok := store.Lookup("鹽水")
	require.True(t, ok)
	assert.Equal(t, spatial.Point{Lat: 23, Lng: 120}, *rec.Point)

	require.NoError(t, store.Append(&Record{
		RawName:       "北門",
		QueryKey:      "台南市北門",
		SuggestedName: "台灣台南市北區北門路",
		Point:         &spatial.Point{Lat: 23.0006, Lng: 120.2046},
	}))
	require.NoError(t, store.Persist())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, contents+"北門|台南市北門|台灣台南市北區北門路|23.0006|120.2046\n", string(data))

	// a reload keeps the text of the rows it read
	reloaded, err := OpenStore(path)
	require.NoError(t, err)
	require.NoError(t, reloaded.Persist())

	again, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, string(data), string(again))
}

func TestStorePersistFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	store := NewStore(filepath.Join(blocker, "db.csv"))
	require.NoError(t, store.Append(&Record{RawName: "北門", QueryKey: "北門", SuggestedName: "台灣北門"}))

	err := store.Persist()
	require.ErrorIs(t, err, ErrPersistFailure)
	assert.True(t, store.Dirty())
}

func TestRecordsIsACopy(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "db.csv"))
	require.NoError(t, store.Append(&Record{RawName: "北門", QueryKey: "北門", SuggestedName: "台灣北門"}))

	records := store.Records()
	records[0] = nil

	assert.NotNil(t, store.Records()[0])
}
