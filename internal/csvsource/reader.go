// Package csvsource reads the bulk job export and yields one raw record per row.
package csvsource

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jonathan/jobgeo/internal/types"
)

// ErrNoHeader is returned for a file without a header row.
var ErrNoHeader = errors.New("csvsource: empty file, no header row found")

// MissingColumnError is a header row that lacks a required column.
type MissingColumnError struct {
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("csvsource: missing required column %q", e.Column)
}

// Options controls a read. Sample > 0 stops after that many data rows.
type Options struct {
	Sample   int
	Comma    rune
	Required []string
}

// Row is one data row. Err is set when the row could not be parsed; Record is
// then empty but Ref still identifies the row.
type Row struct {
	Line   int
	Record types.RawRecord
	Err    error
}

// ReadStats describes a finished read.
type ReadStats struct {
	Encoding string
	Rows     int
	Padded   int
	Trimmed  int
	Sampled  bool
}

// Read streams path row by row into handle. A missing or unreadable file, a
// missing header or a missing required column is returned as an error before
// any row is handled. Short rows are padded with empty values and long rows are
// truncated to the header width.
func Read(ctx context.Context, path string, opts Options, handle func(Row) error) (ReadStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return ReadStats{}, fmt.Errorf("csvsource: open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	return ReadFrom(ctx, f, opts, handle)
}

// ReadFrom is Read over an already open stream.
func ReadFrom(ctx context.Context, r io.Reader, opts Options, handle func(Row) error) (ReadStats, error) {
	var stats ReadStats

	decoded, enc, err := decodeReader(r)
	if err != nil {
		return stats, fmt.Errorf("csvsource: detect encoding: %w", err)
	}
	stats.Encoding = enc

	cr := csv.NewReader(decoded)
	if opts.Comma != 0 {
		cr.Comma = opts.Comma
	}
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	headers, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return stats, ErrNoHeader
		}
		return stats, fmt.Errorf("csvsource: read header: %w", err)
	}
	for i, h := range headers {
		headers[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	if err := checkRequired(headers, opts.Required); err != nil {
		return stats, err
	}

	for {
		if opts.Sample > 0 && stats.Rows >= opts.Sample {
			stats.Sampled = true
			return stats, nil
		}
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return stats, nil
		}
		stats.Rows++
		ref := "row " + strconv.Itoa(stats.Rows)

		row := Row{Record: types.RawRecord{Kind: types.SourceFile, Ref: ref}}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				row.Line = parseErr.StartLine
			}
			row.Err = err
		} else {
			row.Line, _ = cr.FieldPos(0)
			switch {
			case len(fields) < len(headers):
				stats.Padded++
			case len(fields) > len(headers):
				stats.Trimmed++
			}
			row.Record = types.FileRecord(ref, toMap(headers, fields))
		}

		if err := handle(row); err != nil {
			return stats, err
		}
	}
}

func checkRequired(headers, required []string) error {
	present := make(map[string]struct{}, len(headers))
	for _, h := range headers {
		present[h] = struct{}{}
	}
	for _, col := range required {
		if _, ok := present[col]; !ok {
			return &MissingColumnError{Column: col}
		}
	}
	return nil
}

func toMap(headers, fields []string) map[string]string {
	out := make(map[string]string, len(headers))
	for i, h := range headers {
		if h == "" {
			continue
		}
		if i < len(fields) {
			out[h] = fields[i]
		} else {
			out[h] = ""
		}
	}
	return out
}
