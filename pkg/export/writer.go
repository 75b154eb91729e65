package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Format selects the output table format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat normalizes a format string, defaulting to CSV.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "csv":
		return FormatCSV, nil
	case "xlsx":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// Ext returns the file extension for the format.
func (f Format) Ext() string {
	return "." + string(f)
}

// tableWriter appends rows to a growing output table. Rows arrive
// page-by-page; implementations must not require the whole dataset in
// memory at once.
type tableWriter interface {
	WriteHeader(columns []string) error
	WriteRow(columns []string, row map[string]any) error
	// Close finalizes the output file. The file is complete only after
	// Close returns nil.
	Close() error
}

func newTableWriter(format Format, path string) (tableWriter, error) {
	switch format {
	case FormatXLSX:
		return newXLSXWriter(path)
	default:
		return newCSVWriter(path)
	}
}

// csvWriter streams rows into a CSV file.
type csvWriter struct {
	file *os.File
	w    *csv.Writer
}

func newCSVWriter(path string) (*csvWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	return &csvWriter{file: f, w: csv.NewWriter(f)}, nil
}

func (c *csvWriter) WriteHeader(columns []string) error {
	return c.w.Write(columns)
}

func (c *csvWriter) WriteRow(columns []string, row map[string]any) error {
	record := make([]string, len(columns))
	for i, col := range columns {
		record[i] = formatCell(row[col])
	}
	return c.w.Write(record)
}

func (c *csvWriter) Close() error {
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		c.file.Close()
		return err
	}
	return c.file.Close()
}

// xlsxWriter streams rows into a worksheet using the excelize stream
// writer, which spills to temp files instead of holding every row.
type xlsxWriter struct {
	path    string
	file    *excelize.File
	stream  *excelize.StreamWriter
	nextRow int
}

func newXLSXWriter(path string) (*xlsxWriter, error) {
	f := excelize.NewFile()
	stream, err := f.NewStreamWriter("Sheet1")
	if err != nil {
		f.Close()
		return nil, err
	}
	return &xlsxWriter{path: path, file: f, stream: stream, nextRow: 1}, nil
}

func (x *xlsxWriter) WriteHeader(columns []string) error {
	cells := make([]any, len(columns))
	for i, col := range columns {
		cells[i] = col
	}
	return x.writeCells(cells)
}

func (x *xlsxWriter) WriteRow(columns []string, row map[string]any) error {
	cells := make([]any, len(columns))
	for i, col := range columns {
		cells[i] = formatCell(row[col])
	}
	return x.writeCells(cells)
}

func (x *xlsxWriter) writeCells(cells []any) error {
	cell, err := excelize.CoordinatesToCellName(1, x.nextRow)
	if err != nil {
		return err
	}
	if err := x.stream.SetRow(cell, cells); err != nil {
		return err
	}
	x.nextRow++
	return nil
}

func (x *xlsxWriter) Close() error {
	defer x.file.Close()
	if err := x.stream.Flush(); err != nil {
		return err
	}
	return x.file.SaveAs(x.path)
}

// formatCell renders a decoded JSON value as a cell string. Numbers keep
// their wire representation (the decoder uses json.Number) so identifiers
// never collapse into scientific notation.
func formatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		if val {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprintf("%v", val)
	}
}
