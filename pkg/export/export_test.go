package export

import (
	"context"
	"encoding/base64"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/bluelx/janus-console/pkg/apperr"
	"github.com/bluelx/janus-console/pkg/engine"
)

// fakeFetcher serves a fixed dataset in pages, recording the offsets it is
// asked for.
type fakeFetcher struct {
	columns  []string
	rows     []map[string]any
	offsets  []int
	// corruptOffset, when >= 0, makes that page's payload invalid base64.
	corruptOffset int
	// failOffset, when >= 0, makes that page a remote failure.
	failOffset int
}

func newFakeFetcher(columns []string, rows []map[string]any) *fakeFetcher {
	return &fakeFetcher{columns: columns, rows: rows, corruptOffset: -1, failOffset: -1}
}

func (f *fakeFetcher) FetchPage(_ context.Context, metano string, limit, offset int) (*engine.Response, error) {
	f.offsets = append(f.offsets, offset)

	if offset == f.failOffset {
		return &engine.Response{Code: "E0000000001", Message: "not logged in"}, nil
	}

	lo := offset * limit
	if lo > len(f.rows) {
		lo = len(f.rows)
	}
	hi := lo + limit
	if hi > len(f.rows) {
		hi = len(f.rows)
	}

	payload := "!!! not base64 !!!"
	if offset != f.corruptOffset {
		data, err := json.Marshal(f.rows[lo:hi])
		if err != nil {
			return nil, err
		}
		payload = base64.StdEncoding.EncodeToString(data)
	}

	cols := make([]map[string]string, len(f.columns))
	for i, c := range f.columns {
		cols[i] = map[string]string{"name": c}
	}
	content, err := json.Marshal(map[string]any{
		"total":   len(f.rows),
		"columns": cols,
		"content": payload,
	})
	if err != nil {
		return nil, err
	}
	return &engine.Response{Code: engine.CodeSuccess, Message: "ok", Content: content}, nil
}

func makeRows(n int) []map[string]any {
	rows := make([]map[string]any, n)
	for i := range rows {
		rows[i] = map[string]any{
			"id":   fmt.Sprintf("%d", i),
			"name": fmt.Sprintf("row-%d", i),
		}
	}
	return rows
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestExportMultiplePages(t *testing.T) {
	fetcher := newFakeFetcher([]string{"id", "name"}, makeRows(2500))
	exporter := New(fetcher, t.TempDir(), FormatCSV)

	result, err := exporter.Run(context.Background(), "225819277", Options{})
	require.NoError(t, err)
	require.True(t, result.OK())

	// Exactly three page requests, in order.
	assert.Equal(t, []int{0, 1, 2}, fetcher.offsets)
	assert.Equal(t, 2500, result.Rows)
	assert.Equal(t, 3, result.Pages)
	assert.NotEmpty(t, result.JobID)

	records := readCSV(t, result.Path)
	require.Len(t, records, 2501, "header plus 2500 rows")
	assert.Equal(t, []string{"id", "name"}, records[0])
	assert.Equal(t, []string{"0", "row-0"}, records[1])
	assert.Equal(t, []string{"2499", "row-2499"}, records[2500])
}

func TestExportPartialFinalPage(t *testing.T) {
	fetcher := newFakeFetcher([]string{"id", "name"}, makeRows(1500))
	exporter := New(fetcher, t.TempDir(), FormatCSV)

	result, err := exporter.Run(context.Background(), "m1", Options{})
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1}, fetcher.offsets)
	assert.Equal(t, 1500, result.Rows)
}

func TestExportEmptyDataset(t *testing.T) {
	fetcher := newFakeFetcher([]string{"id", "name"}, nil)
	exporter := New(fetcher, t.TempDir(), FormatCSV)

	result, err := exporter.Run(context.Background(), "empty", Options{})
	require.NoError(t, err)
	require.True(t, result.OK())

	assert.Equal(t, []int{0}, fetcher.offsets, "single request for an empty dataset")
	assert.Equal(t, 0, result.Rows)

	records := readCSV(t, result.Path)
	require.Len(t, records, 1, "header only")
	assert.Equal(t, []string{"id", "name"}, records[0])
}

func TestExportDefaultFileName(t *testing.T) {
	dir := t.TempDir()
	fetcher := newFakeFetcher([]string{"id", "name"}, makeRows(5))
	exporter := New(fetcher, dir, FormatCSV)

	result, err := exporter.Run(context.Background(), "225819277", Options{})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "225819277.csv"), result.Path)
}

func TestExportCorruptPayloadAborts(t *testing.T) {
	dir := t.TempDir()
	fetcher := newFakeFetcher([]string{"id", "name"}, makeRows(2500))
	fetcher.corruptOffset = 1
	exporter := New(fetcher, dir, FormatCSV)

	result, err := exporter.Run(context.Background(), "bad", Options{})
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeExportDecode))
	assert.Equal(t, engine.CodeRequestFailed, result.Code)
	assert.False(t, result.OK())

	// All-or-nothing: neither the destination nor a temp file survives.
	entries, readErr := os.ReadDir(dir)
	require.NoError(t, readErr)
	assert.Empty(t, entries)
}

func TestExportRemoteFailureOnFirstPage(t *testing.T) {
	fetcher := newFakeFetcher([]string{"id"}, makeRows(10))
	fetcher.failOffset = 0
	exporter := New(fetcher, t.TempDir(), FormatCSV)

	result, err := exporter.Run(context.Background(), "denied", Options{})
	require.Error(t, err)
	// Remote code passes through unchanged.
	assert.Equal(t, "E0000000001", result.Code)
	assert.Equal(t, "not logged in", result.Message)
}

func TestExportRemoteFailureMidRun(t *testing.T) {
	dir := t.TempDir()
	fetcher := newFakeFetcher([]string{"id", "name"}, makeRows(2500))
	fetcher.failOffset = 2
	exporter := New(fetcher, dir, FormatCSV)

	result, err := exporter.Run(context.Background(), "flaky", Options{})
	require.Error(t, err)
	assert.Equal(t, "E0000000001", result.Code)

	entries, readErr := os.ReadDir(dir)
	require.NoError(t, readErr)
	assert.Empty(t, entries, "failed export leaves no output behind")
}

func TestExportMissingMetano(t *testing.T) {
	exporter := New(newFakeFetcher(nil, nil), t.TempDir(), FormatCSV)

	result, err := exporter.Run(context.Background(), "", Options{})
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, apperr.CodeInvalidInput))
	assert.Equal(t, engine.CodeBadRequest, result.Code)
}

func TestExportXLSX(t *testing.T) {
	fetcher := newFakeFetcher([]string{"id", "name"}, makeRows(3))
	exporter := New(fetcher, t.TempDir(), FormatXLSX)

	result, err := exporter.Run(context.Background(), "sheet", Options{})
	require.NoError(t, err)
	require.True(t, result.OK())
	assert.Equal(t, ".xlsx", filepath.Ext(result.Path))

	f, err := excelize.OpenFile(result.Path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Sheet1")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"id", "name"}, rows[0])
	assert.Equal(t, []string{"2", "row-2"}, rows[3])
}

func TestPageRoundTrip(t *testing.T) {
	// Encoding a row set the way the gateway does and decoding it through
	// the exporter yields the original ordered rows.
	rows := makeRows(7)
	fetcher := newFakeFetcher([]string{"id", "name"}, rows)
	exporter := New(fetcher, t.TempDir(), FormatCSV)

	result, err := exporter.Run(context.Background(), "roundtrip", Options{})
	require.NoError(t, err)

	records := readCSV(t, result.Path)
	require.Len(t, records, len(rows)+1)
	for i, row := range rows {
		assert.Equal(t, []string{row["id"].(string), row["name"].(string)}, records[i+1])
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatCSV, false},
		{"csv", FormatCSV, false},
		{"CSV", FormatCSV, false},
		{"xlsx", FormatXLSX, false},
		{"parquet", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.in)
			continue
		}
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got)
	}
}
