package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/campaign-vault/backend/internal/apperrors"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Table is a parsed CSV file. Rows are padded to the header width.
type Table struct {
	Headers []string
	Rows    [][]string
	// Lines holds the 1-based source line each row started on.
	Lines []int
}

func malformed(line int, reason string, err error) error {
	return &apperrors.MalformedCSVError{Line: line, Reason: reason, Err: err}
}

// ParseCSV reads data as a header line followed by data rows. A UTF-8 or
// UTF-16 byte order mark selects the encoding; without one the bytes are
// taken as UTF-8. Fully blank rows are skipped. maxRows <= 0 disables the
// row limit.
func ParseCSV(data []byte, maxRows int) (*Table, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, malformed(0, "file is empty", nil)
	}

	r := csv.NewReader(transform.NewReader(bytes.NewReader(data), unicode.BOMOverride(transform.Nop)))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, malformed(0, "file has no header row", nil)
		}
		return nil, readError(err)
	}

	// trailing empty header cells come from exports with a trailing comma
	for len(header) > 0 && strings.TrimSpace(header[len(header)-1]) == "" {
		header = header[:len(header)-1]
	}
	if len(header) == 0 {
		return nil, malformed(1, "header row is blank", nil)
	}

	t := &Table{Headers: make([]string, len(header))}
	seen := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			return nil, malformed(1, fmt.Sprintf("header in column %d is blank", i+1), nil)
		}
		if prev, ok := seen[h]; ok {
			return nil, malformed(1, fmt.Sprintf("header %q appears in columns %d and %d", h, prev+1, i+1), nil)
		}
		seen[h] = i
		t.Headers[i] = h
	}

	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, readError(err)
		}
		line, _ := r.FieldPos(0)

		if blank(record) {
			continue
		}
		if len(record) > len(t.Headers) {
			if !blank(record[len(t.Headers):]) {
				return nil, malformed(line, fmt.Sprintf("row has %d columns, header has %d", len(record), len(t.Headers)), nil)
			}
			record = record[:len(t.Headers)]
		}
		for len(record) < len(t.Headers) {
			record = append(record, "")
		}

		if maxRows > 0 && len(t.Rows) >= maxRows {
			return nil, malformed(line, fmt.Sprintf("file has more than %d data rows", maxRows), nil)
		}
		t.Rows = append(t.Rows, record)
		t.Lines = append(t.Lines, line)
	}
	return t, nil
}

func readError(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		reason := pe.Err.Error()
		switch {
		case errors.Is(pe.Err, csv.ErrQuote):
			reason = "unbalanced quotes"
		case errors.Is(pe.Err, csv.ErrBareQuote):
			reason = "bare quote in unquoted field"
		}
		return malformed(pe.Line, reason, err)
	}
	return malformed(0, "file could not be decoded", err)
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
