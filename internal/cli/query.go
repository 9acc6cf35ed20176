package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"

	"github.com/roach88/litedb/internal/stmt"
)

// QueryResult is the output of the query command.
type QueryResult struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
	Count   int      `json:"count"`
}

// String renders the result as tab-separated lines with a header and a
// row count footer.
func (r QueryResult) String() string {
	var b strings.Builder
	if len(r.Columns) > 0 {
		b.WriteString(strings.Join(r.Columns, "\t"))
		b.WriteByte('\n')
	}
	for _, row := range r.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = formatValue(v)
		}
		b.WriteString(strings.Join(cells, "\t"))
		b.WriteByte('\n')
	}
	if r.Count == 1 {
		b.WriteString("(1 row)")
	} else {
		fmt.Fprintf(&b, "(%d rows)", r.Count)
	}
	return b.String()
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return fmt.Sprintf("x'%X'", x)
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(sqlite3.SQLiteTimestampFormats[0])
	default:
		return fmt.Sprint(x)
	}
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <sql>",
		Short: "Run a query and print its rows",
		Long: `Run a query and print its rows.

Only the first statement of the text is run.

Example:
  litedb query --db app.db "SELECT id, name FROM t ORDER BY id"
  litedb query --db app.db --format json "PRAGMA database_list"`,
		Args:          checkArgs(cobra.ExactArgs(1)),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runQuery(opts *RootOptions, query string, cmd *cobra.Command) error {
	s, err := openSession(cmd, opts)
	if err != nil {
		return err
	}
	defer s.close()

	result := QueryResult{Columns: []string{}, Rows: [][]any{}}
	n, err := s.db.Select(cmd.Context(), query, stmt.RowFunc(func(_ int, r *stmt.Row) error {
		if len(result.Rows) == 0 {
			result.Columns = r.Columns()
		}
		values := make([]any, r.ColumnCount())
		for i := range values {
			v := r.Value(i)
			if b, ok := v.([]byte); ok {
				v = append([]byte(nil), b...)
			}
			values[i] = v
		}
		result.Rows = append(result.Rows, values)
		return nil
	}))
	if err != nil {
		return WrapExitError(ExitFailure, "query failed", err)
	}
	result.Count = n

	return s.out.Success(result)
}
