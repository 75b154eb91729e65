// Package export implements the paginated bulk-export routine: it pages
// through a remote dataset via the gateway client and materializes the rows
// into a local table file.
package export

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/bluelx/janus-console/pkg/apperr"
	"github.com/bluelx/janus-console/pkg/engine"
	"github.com/bluelx/janus-console/pkg/logging"
)

// DefaultPageSize is the per-request record count used when paging.
const DefaultPageSize = 1000

// PageFetcher is the slice of the gateway client the exporter needs.
type PageFetcher interface {
	FetchPage(ctx context.Context, metano string, limit, offset int) (*engine.Response, error)
}

// Result summarizes an export run. Code follows the gateway convention:
// remote failures pass their code through, local failures use the sentinel
// codes.
type Result struct {
	JobID    string        `json:"jobId"`
	Code     string        `json:"code"`
	Message  string        `json:"message"`
	Path     string        `json:"path,omitempty"`
	Format   Format        `json:"format"`
	Rows     int           `json:"rows"`
	Pages    int           `json:"pages"`
	Duration time.Duration `json:"duration"`
}

// OK reports whether the export completed.
func (r Result) OK() bool {
	return r.Code == engine.CodeSuccess
}

// Options customizes a single export run.
type Options struct {
	// Path overrides the output location. Empty means <dir>/<metano>.<ext>.
	Path string
	// Format overrides the exporter's default format.
	Format Format
}

// Exporter pages through remote datasets and writes them to table files.
// Runs are synchronous and single-writer; the output becomes visible only
// on full success (temp file plus rename).
type Exporter struct {
	fetcher  PageFetcher
	dir      string
	format   Format
	pageSize int
	logger   *logging.Logger
}

// ExporterOption customizes exporter construction.
type ExporterOption func(*Exporter)

// WithPageSize overrides the page size. Used by tests.
func WithPageSize(n int) ExporterOption {
	return func(e *Exporter) {
		if n > 0 {
			e.pageSize = n
		}
	}
}

// WithLogger attaches a structured logger.
func WithLogger(l *logging.Logger) ExporterOption {
	return func(e *Exporter) {
		e.logger = l
	}
}

// New builds an exporter writing into dir with the given default format.
func New(fetcher PageFetcher, dir string, format Format, opts ...ExporterOption) *Exporter {
	e := &Exporter{
		fetcher:  fetcher,
		dir:      dir,
		format:   format,
		pageSize: DefaultPageSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// pageContent is the content payload of a range.delivery page.
type pageContent struct {
	Total   int `json:"total"`
	Columns []struct {
		Name string `json:"name"`
	} `json:"columns"`
	// Content is base64-encoded UTF-8 JSON holding an ordered array of
	// row objects keyed by column name.
	Content string `json:"content"`
}

// Run exports the dataset identified by metano. The first page doubles as
// the page descriptor: total row count and column order are read once and
// assumed stable for the lifetime of the run. Every failure is reported as
// a Result with a non-success code plus a coded error; nothing panics
// through this boundary.
func (e *Exporter) Run(ctx context.Context, metano string, opt Options) (Result, error) {
	start := time.Now()
	result := Result{
		JobID:  ulid.Make().String(),
		Format: e.format,
	}
	if opt.Format != "" {
		result.Format = opt.Format
	}

	if metano == "" {
		result.Code = engine.CodeBadRequest
		result.Message = "metano is required"
		return result, apperr.New(apperr.CodeInvalidInput, "metano is required")
	}

	// Page 0 carries the descriptor and the first batch of rows.
	resp, err := e.fetcher.FetchPage(ctx, metano, e.pageSize, 0)
	if resp == nil {
		resp = engine.FailedRequest()
	}
	if err != nil || !resp.OK() {
		result.Code = resp.Code
		result.Message = resp.Message
		result.Duration = time.Since(start)
		e.logError(result.JobID, metano, "first page fetch failed", resp)
		if err == nil {
			err = apperr.New(apperr.CodeRemote, resp.Message).WithContext("code", resp.Code)
		}
		return result, err
	}

	var page pageContent
	if err := resp.DecodeContent(&page); err != nil {
		return e.fail(result, start, metano, apperr.Wrap(err, apperr.CodeExportDecode, "decode page descriptor"))
	}
	if len(page.Columns) == 0 && page.Total > 0 {
		return e.fail(result, start, metano, apperr.New(apperr.CodeExportDecode, "page descriptor missing columns"))
	}

	columns := make([]string, len(page.Columns))
	for i, col := range page.Columns {
		columns[i] = col.Name
	}

	destPath := opt.Path
	if destPath == "" {
		destPath = filepath.Join(e.dir, metano+result.Format.Ext())
	}
	if dir := filepath.Dir(destPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return e.fail(result, start, metano, apperr.Wrap(err, apperr.CodeExportWrite, "create export directory"))
		}
	}

	// Write to a temp file next to the destination and rename on success,
	// so readers never observe a partially written table.
	tmpPath := destPath + ".tmp-" + result.JobID
	writer, err := newTableWriter(result.Format, tmpPath)
	if err != nil {
		return e.fail(result, start, metano, apperr.Wrap(err, apperr.CodeExportWrite, "create output file"))
	}
	cleanup := func() {
		writer.Close()
		os.Remove(tmpPath)
	}

	if err := writer.WriteHeader(columns); err != nil {
		cleanup()
		return e.fail(result, start, metano, apperr.Wrap(err, apperr.CodeExportWrite, "write header"))
	}

	rows, err := e.appendPage(writer, columns, page.Content)
	if err != nil {
		cleanup()
		return e.fail(result, start, metano, err)
	}
	result.Rows += rows
	result.Pages++
	e.logPage(result.JobID, metano, 0, rows)

	// Loop over the remaining pages. The comparison runs against the page
	// index times page size, so the final partial page is still fetched
	// when total is not a multiple of the page size.
	for offset := 1; offset*e.pageSize < page.Total; offset++ {
		resp, err := e.fetcher.FetchPage(ctx, metano, e.pageSize, offset)
		if resp == nil {
			resp = engine.FailedRequest()
		}
		if err != nil || !resp.OK() {
			cleanup()
			result.Code = resp.Code
			result.Message = resp.Message
			result.Duration = time.Since(start)
			e.logError(result.JobID, metano, fmt.Sprintf("page %d fetch failed", offset), resp)
			if err == nil {
				err = apperr.New(apperr.CodeRemote, resp.Message).WithContext("code", resp.Code)
			}
			return result, err
		}

		var next pageContent
		if err := resp.DecodeContent(&next); err != nil {
			cleanup()
			return e.fail(result, start, metano, apperr.Wrap(err, apperr.CodeExportDecode, "decode page content").
				WithContext("offset", offset))
		}

		rows, err := e.appendPage(writer, columns, next.Content)
		if err != nil {
			cleanup()
			return e.fail(result, start, metano, err)
		}
		result.Rows += rows
		result.Pages++
		e.logPage(result.JobID, metano, offset, rows)
	}

	if err := writer.Close(); err != nil {
		os.Remove(tmpPath)
		return e.fail(result, start, metano, apperr.Wrap(err, apperr.CodeExportWrite, "finalize output file"))
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return e.fail(result, start, metano, apperr.Wrap(err, apperr.CodeExportWrite, "move output into place"))
	}

	result.Code = engine.CodeSuccess
	result.Message = fmt.Sprintf("exported %d rows", result.Rows)
	result.Path = destPath
	result.Duration = time.Since(start)
	if e.logger != nil {
		e.logger.Log(logging.Event{
			Level:     logging.LevelInfo,
			Category:  logging.CategoryExport,
			EventType: "export_complete",
			JobID:     result.JobID,
			Message:   result.Message,
			Details:   map[string]any{"metano": metano, "path": destPath, "rows": result.Rows},
		})
	}
	return result, nil
}

// appendPage decodes one page payload and appends its rows.
func (e *Exporter) appendPage(writer tableWriter, columns []string, encoded string) (int, error) {
	if encoded == "" {
		return 0, nil
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return 0, apperr.Wrap(err, apperr.CodeExportDecode, "base64-decode page payload")
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var rows []map[string]any
	if err := dec.Decode(&rows); err != nil {
		return 0, apperr.Wrap(err, apperr.CodeExportDecode, "unmarshal page rows")
	}

	for _, row := range rows {
		if err := writer.WriteRow(columns, row); err != nil {
			return 0, apperr.Wrap(err, apperr.CodeExportWrite, "append row")
		}
	}
	return len(rows), nil
}

func (e *Exporter) fail(result Result, start time.Time, metano string, err error) (Result, error) {
	result.Code = engine.CodeRequestFailed
	result.Message = err.Error()
	if ae, ok := err.(*apperr.Error); ok {
		result.Message = ae.Message
	}
	result.Duration = time.Since(start)
	if e.logger != nil {
		e.logger.Log(logging.Event{
			Level:     logging.LevelError,
			Category:  logging.CategoryExport,
			EventType: "export_failed",
			JobID:     result.JobID,
			Message:   err.Error(),
			Details:   map[string]any{"metano": metano},
		})
	}
	return result, err
}

func (e *Exporter) logPage(jobID, metano string, offset, rows int) {
	if e.logger == nil {
		return
	}
	e.logger.Log(logging.Event{
		Level:     logging.LevelDebug,
		Category:  logging.CategoryExport,
		EventType: "page_appended",
		JobID:     jobID,
		Details:   map[string]any{"metano": metano, "offset": offset, "rows": rows},
	})
}

func (e *Exporter) logError(jobID, metano, msg string, resp *engine.Response) {
	if e.logger == nil {
		return
	}
	details := map[string]any{"metano": metano}
	if resp != nil {
		details["code"] = resp.Code
	}
	e.logger.Log(logging.Event{
		Level:     logging.LevelError,
		Category:  logging.CategoryExport,
		EventType: "export_failed",
		JobID:     jobID,
		Message:   msg,
		Details:   details,
	})
}
