package stmt

import (
	"database/sql/driver"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
)

// RowReader receives the rows of a query.
//
// ReadRow is called once per row with a zero-based index. Returning
// ErrStop ends the query early without error; any other error aborts it.
type RowReader interface {
	ReadRow(index int, row *Row) error
}

// RowFunc adapts a function to the RowReader interface.
type RowFunc func(index int, row *Row) error

// ReadRow calls f(index, row).
func (f RowFunc) ReadRow(index int, row *Row) error {
	return f(index, row)
}

// Row is the current result row of a query. Column indexes are 0-based.
// Accessors coerce between storage classes the way SQLite's column
// functions do; an out-of-range index reads as NULL.
type Row struct {
	columns []string
	values  []driver.Value
}

// ColumnCount returns the number of result columns.
func (r *Row) ColumnCount() int {
	return len(r.columns)
}

// ColumnName returns the name of column i, or "" if out of range.
func (r *Row) ColumnName(i int) string {
	if i < 0 || i >= len(r.columns) {
		return ""
	}
	return r.columns[i]
}

// Columns returns a copy of the result column names.
func (r *Row) Columns() []string {
	return append([]string(nil), r.columns...)
}

// Value returns the raw driver value of column i: nil, int64, float64,
// bool, string, []byte or time.Time.
func (r *Row) Value(i int) any {
	if i < 0 || i >= len(r.values) {
		return nil
	}
	return r.values[i]
}

// IsNull reports whether column i is NULL.
func (r *Row) IsNull(i int) bool {
	return r.Value(i) == nil
}

// Int64 returns column i as an integer.
func (r *Row) Int64(i int) int64 {
	switch v := r.Value(i).(type) {
	case int64:
		return v
	case float64:
		return clampInt64(v)
	case bool:
		if v {
			return 1
		}
		return 0
	case string:
		return parseInt(v)
	case []byte:
		return parseInt(string(v))
	case time.Time:
		return v.Unix()
	default:
		return 0
	}
}

// Int returns column i as an int.
func (r *Row) Int(i int) int {
	return int(r.Int64(i))
}

// Float64 returns column i as a floating point number.
func (r *Row) Float64(i int) float64 {
	switch v := r.Value(i).(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case bool:
		if v {
			return 1
		}
		return 0
	case string:
		return parseFloat(v)
	case []byte:
		return parseFloat(string(v))
	case time.Time:
		return float64(v.Unix())
	default:
		return 0
	}
}

// Bool returns column i as a boolean (non-zero integer value).
func (r *Row) Bool(i int) bool {
	if v, ok := r.Value(i).(bool); ok {
		return v
	}
	return r.Int64(i) != 0
}

// Text returns column i as a string. NULL reads as "".
func (r *Row) Text(i int) string {
	switch v := r.Value(i).(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case bool:
		if v {
			return "1"
		}
		return "0"
	case time.Time:
		return v.Format(sqlite3.SQLiteTimestampFormats[0])
	default:
		return ""
	}
}

// Blob returns column i as bytes. NULL reads as nil.
func (r *Row) Blob(i int) []byte {
	switch v := r.Value(i).(type) {
	case []byte:
		return v
	case nil:
		return nil
	default:
		return []byte(r.Text(i))
	}
}

// Time returns column i as a time. Text is parsed with the driver's
// timestamp layouts and integers are read as Unix seconds. Anything else
// reads as the zero time.
func (r *Row) Time(i int) time.Time {
	switch v := r.Value(i).(type) {
	case time.Time:
		return v
	case int64:
		return time.Unix(v, 0).UTC()
	case string:
		return parseTime(v)
	case []byte:
		return parseTime(string(v))
	default:
		return time.Time{}
	}
}

// parseInt reads the longest numeric prefix of s, as SQLite does when
// casting text to an integer. Values outside the int64 range saturate.
func parseInt(s string) int64 {
	prefix, isInt := numericPrefix(strings.TrimSpace(s))
	if prefix == "" {
		return 0
	}
	if isInt {
		if n, err := strconv.ParseInt(prefix, 10, 64); err == nil {
			return n
		}
	}
	f, _ := strconv.ParseFloat(prefix, 64) //nolint:errcheck // Out of range yields ±Inf, which clamps
	return clampInt64(f)
}

func parseFloat(s string) float64 {
	prefix, _ := numericPrefix(strings.TrimSpace(s))
	if prefix == "" {
		return 0
	}
	f, _ := strconv.ParseFloat(prefix, 64) //nolint:errcheck // Out of range yields ±Inf
	return f
}

// numericPrefix returns the longest prefix of s that reads as a decimal
// number: an optional sign, digits with an optional fraction, and an
// optional exponent. isInt is true when the prefix has neither fraction
// nor exponent.
func numericPrefix(s string) (prefix string, isInt bool) {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	start := i
	i = skipDigits(s, i)
	mantissa := i - start
	isInt = true

	if i < len(s) && s[i] == '.' {
		j := skipDigits(s, i+1)
		if frac := j - i - 1; mantissa > 0 || frac > 0 {
			mantissa += frac
			i = j
			isInt = false
		}
	}
	if mantissa == 0 {
		return "", false
	}

	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		if k := skipDigits(s, j); k > j {
			i = k
			isInt = false
		}
	}
	return s[:i], isInt
}

func skipDigits(s string, i int) int {
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return i
}

// clampInt64 converts f the way SQLite does: saturating at the int64
// bounds, with NaN reading as 0.
func clampInt64(f float64) int64 {
	switch {
	case math.IsNaN(f):
		return 0
	case f >= math.MaxInt64:
		return math.MaxInt64
	case f <= math.MinInt64:
		return math.MinInt64
	default:
		return int64(f)
	}
}

func parseTime(s string) time.Time {
	s = strings.TrimSuffix(s, "Z")
	for _, layout := range sqlite3.SQLiteTimestampFormats {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t
		}
	}
	return time.Time{}
}
