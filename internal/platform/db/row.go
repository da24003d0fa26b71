package db

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Row is a single result row keyed by column name. Values are the driver
// values with []byte converted to string.
type Row map[string]any

// Int64 returns the integer value of col, or 0.
func (r Row) Int64(col string) int64 {
	switch v := r[col].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	case bool:
		if v {
			return 1
		}
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	}
	return 0
}

// Int returns the integer value of col as an int.
func (r Row) Int(col string) int { return int(r.Int64(col)) }

// Float64 returns the numeric value of col, or 0.
func (r Row) Float64(col string) float64 {
	switch v := r[col].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	}
	return 0
}

// Bool treats any non-zero integer as true.
func (r Row) Bool(col string) bool {
	switch v := r[col].(type) {
	case bool:
		return v
	default:
		return r.Int64(col) != 0
	}
}

// String returns col formatted as text; NULL becomes "".
func (r Row) String(col string) string {
	switch v := r[col].(type) {
	case nil:
		return ""
	case string:
		return v
	case time.Time:
		return v.Format(time.DateTime)
	default:
		return fmt.Sprint(v)
	}
}

// NullString returns nil for NULL and a pointer to the text otherwise.
func (r Row) NullString(col string) *string {
	if r[col] == nil {
		return nil
	}
	s := r.String(col)
	return &s
}

// Decimal returns the numeric value of col as a decimal.
func (r Row) Decimal(col string) decimal.Decimal {
	switch v := r[col].(type) {
	case float64:
		return decimal.NewFromFloat(v)
	case int64:
		return decimal.NewFromInt(v)
	case string:
		d, err := decimal.NewFromString(v)
		if err == nil {
			return d
		}
	}
	return decimal.Zero
}

// NullDecimal returns nil for NULL.
func (r Row) NullDecimal(col string) *decimal.Decimal {
	if r[col] == nil {
		return nil
	}
	d := r.Decimal(col)
	return &d
}

var timeLayouts = []string{
	time.DateTime,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02T15:04:05Z",
	time.RFC3339Nano,
	time.DateOnly,
}

// Time parses col as a timestamp. SQLite hands back either time.Time (for
// DATETIME columns) or text (for expressions).
func (r Row) Time(col string) time.Time {
	switch v := r[col].(type) {
	case time.Time:
		return v
	case string:
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}

// scanRows materializes every remaining row of rows.
func scanRows(rows *sql.Rows) ([]Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(Row, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
