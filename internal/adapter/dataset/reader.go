// Package dataset decodes station files into gota DataFrames. CSV is the
// usual format; SQLite databases are read from a single table.
package dataset

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gota/gota/dataframe"

	"github.com/couchcryptid/station-ridership/internal/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Reader reads a dataset file, picking the decoder from the file extension.
type Reader struct {
	delimiter rune
	table     string
}

// NewReader creates a Reader. delimiter applies to CSV files, table to
// SQLite files.
func NewReader(delimiter rune, table string) *Reader {
	if delimiter == 0 {
		delimiter = ','
	}
	return &Reader{delimiter: delimiter, table: table}
}

// IsSQLite reports whether path is read as a SQLite database.
func IsSQLite(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return true
	}
	return false
}

// Read decodes the file at path. Known columns get their domain type
// regardless of what type detection would pick.
func (r *Reader) Read(ctx context.Context, path string) (dataframe.DataFrame, error) {
	if IsSQLite(path) {
		return r.readSQLite(ctx, path)
	}
	return r.readCSV(path)
}

func (r *Reader) readCSV(path string) (dataframe.DataFrame, error) {
	f, err := os.Open(path)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	return DecodeCSV(f, r.delimiter)
}

// DecodeCSV parses CSV text with a header row.
func DecodeCSV(src io.Reader, delimiter rune) (dataframe.DataFrame, error) {
	frame := dataframe.ReadCSV(skipBOM(src),
		dataframe.WithDelimiter(delimiter),
		dataframe.WithTypes(domain.ColumnTypes()),
	)
	if frame.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("decode csv: %w", frame.Err)
	}
	return frame, nil
}

// skipBOM drops a leading UTF-8 byte order mark, which spreadsheet exports
// put in front of the first header name.
func skipBOM(src io.Reader) io.Reader {
	br := bufio.NewReader(src)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}
