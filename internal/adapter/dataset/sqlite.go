package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"regexp"
	"strconv"

	"github.com/go-gota/gota/dataframe"

	"github.com/couchcryptid/station-ridership/internal/domain"

	_ "modernc.org/sqlite"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// naValue is the cell text gota reads as missing.
const naValue = "NA"

func (r *Reader) readSQLite(ctx context.Context, path string) (dataframe.DataFrame, error) {
	if !identRe.MatchString(r.table) {
		return dataframe.DataFrame{}, fmt.Errorf("invalid sqlite table name %q", r.table)
	}
	// The driver creates missing files; a missing dataset must stay missing.
	if _, err := os.Stat(path); err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("open %s: %w", path, err)
	}

	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `SELECT * FROM "`+r.table+`"`)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("query %s: %w", r.table, err)
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("scan %s: %w", r.table, err)
	}

	frame := dataframe.LoadRecords(records, dataframe.WithTypes(domain.ColumnTypes()))
	if frame.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("decode %s: %w", r.table, frame.Err)
	}
	return frame, nil
}

// scanRecords turns a result set into header + string rows, the shape gota
// loads. NULL becomes naValue.
func scanRecords(rows *sql.Rows) ([][]string, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	records := [][]string{cols}

	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make([]string, len(cols))
		for i, v := range values {
			row[i] = cellText(v)
		}
		records = append(records, row)
	}
	return records, rows.Err()
}

func cellText(v any) string {
	switch x := v.(type) {
	case nil:
		return naValue
	case []byte:
		return string(x)
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
