package ingest

import (
	"errors"
	"testing"

	"github.com/campaign-vault/backend/internal/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCSV(t *testing.T) {
	data := "Email, First ,Last\n" +
		"a@x.com,Ann,Lee\n" +
		"\n" +
		",,\n" +
		"b@x.com,Bob\n" +
		"\"c@x.com\",\"Cy, Jr.\",Ng,\n"

	tbl, err := ParseCSV([]byte(data), 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Email", "First", "Last"}, tbl.Headers)
	assert.Equal(t, [][]string{
		{"a@x.com", "Ann", "Lee"},
		{"b@x.com", "Bob", ""},
		{"c@x.com", "Cy, Jr.", "Ng"},
	}, tbl.Rows)
	assert.Equal(t, []int{2, 5, 6}, tbl.Lines)
}

func TestParseCSVHeaderOnly(t *testing.T) {
	tbl, err := ParseCSV([]byte("Email,First,Last,\n"), 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Email", "First", "Last"}, tbl.Headers)
	assert.Empty(t, tbl.Rows)
}

func TestParseCSVByteOrderMarks(t *testing.T) {
	utf8BOM := append([]byte{0xEF, 0xBB, 0xBF}, []byte("Email,Name\nz@x.com,Zoë\n")...)

	tbl, err := ParseCSV(utf8BOM, 0)
	require.NoError(t, err)
	assert.Equal(t, "Email", tbl.Headers[0])

	// UTF-16LE with BOM, as written by spreadsheet exports
	var utf16 []byte
	utf16 = append(utf16, 0xFF, 0xFE)
	for _, r := range "Email,Name\nz@x.com,Zoë\n" {
		utf16 = append(utf16, byte(r), byte(r>>8))
	}
	tbl, err = ParseCSV(utf16, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Email", "Name"}, tbl.Headers)
	assert.Equal(t, [][]string{{"z@x.com", "Zoë"}}, tbl.Rows)
}

func TestParseCSVMalformed(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		maxRows int
		line    int
	}{
		{"empty", "", 0, 0},
		{"whitespace only", " \n\n ", 0, 0},
		{"blank header in the middle", "Email,,Last\n", 0, 1},
		{"duplicate header", "Email,Name,Email\n", 0, 1},
		{"too many columns", "Email,Name\na@x.com,Ann,extra\n", 0, 2},
		{"unbalanced quotes", "Email,Name\n\"a@x.com,Ann\n", 0, 0},
		{"too many rows", "Email\na@x.com\nb@x.com\nc@x.com\n", 2, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCSV([]byte(tt.data), tt.maxRows)
			var me *apperrors.MalformedCSVError
			require.True(t, errors.As(err, &me), "want MalformedCSVError, got %v", err)
			if tt.line > 0 {
				assert.Equal(t, tt.line, me.Line)
			}
		})
	}
}
