// Package catalogfeed decodes the semicolon-delimited product catalog feed
// into typed rows. The decoder streams the input record by record, so feed
// size is bounded only by the caller's patience, not by memory.
package catalogfeed

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Delimiter used by the catalog feed.
const Delimiter = ';'

// DecodeError reports a malformed feed stream. It is fatal to the import
// pass: nothing should be written once decoding has failed.
type DecodeError struct {
	Line int
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("catalog feed: decode failed at line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("catalog feed: decode failed: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Decoder reads catalog rows from a feed stream. The header row defines the
// column layout; columns with a blank header cell are excluded from every row.
type Decoder struct {
	reader  *csv.Reader
	columns []string // header name per index, "" for dropped columns
	line    int
}

// NewDecoder wraps r and eagerly consumes the header row.
func NewDecoder(r io.Reader) (*Decoder, error) {
	cr := csv.NewReader(r)
	cr.Comma = Delimiter
	// Feeds in the wild pad or truncate trailing cells; length mismatches are
	// handled per row instead of rejecting the whole file.
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, &DecodeError{Err: errors.New("empty feed: missing header row")}
		}
		return nil, &DecodeError{Line: 1, Err: err}
	}

	columns := make([]string, len(header))
	for i, name := range header {
		columns[i] = strings.TrimSpace(name)
	}

	return &Decoder{reader: cr, columns: columns, line: 1}, nil
}

// Open opens the feed file at path and returns a decoder over it. The
// returned closer owns the underlying file handle.
func Open(path string) (*Decoder, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("catalog feed: open %s: %w", path, err)
	}
	dec, err := NewDecoder(f)
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	return dec, f, nil
}

// Next returns the next decoded row. It returns io.EOF at the end of the
// feed and *DecodeError on a malformed stream.
func (d *Decoder) Next() (Row, error) {
	record, err := d.reader.Read()
	if err != nil {
		if err == io.EOF {
			return Row{}, io.EOF
		}
		return Row{}, &DecodeError{Line: d.line + 1, Err: err}
	}
	d.line++

	var row Row
	for i, cell := range record {
		if i >= len(d.columns) || d.columns[i] == "" {
			continue
		}
		row.set(d.columns[i], cell)
	}
	return row, nil
}

// Line reports the feed line of the most recently decoded row.
func (d *Decoder) Line() int { return d.line }
