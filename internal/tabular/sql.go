package tabular

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/haasonsaas/nqbench/pkg/models"
	_ "github.com/lib/pq"  // Postgres driver
	_ "modernc.org/sqlite" // Pure-Go SQLite driver
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// SQLReader streams every row of a database table.
type SQLReader struct {
	db      *sql.DB
	ownsDB  bool
	rows    *sql.Rows
	columns []string
	offset  int
}

// OpenSQL opens a database with the named driver ("sqlite" or "postgres")
// and starts a scan of table.
func OpenSQL(ctx context.Context, driver, dsn, table string) (*SQLReader, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	r, err := NewSQLReader(ctx, db, table)
	if err != nil {
		db.Close()
		return nil, err
	}
	r.ownsDB = true
	return r, nil
}

// NewSQLReader scans table on an existing connection. The caller keeps
// ownership of db.
func NewSQLReader(ctx context.Context, db *sql.DB, table string) (*SQLReader, error) {
	table = strings.TrimSpace(table)
	if table == "" {
		return nil, fmt.Errorf("table name is required for database sources")
	}
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}

	rows, err := db.QueryContext(ctx, "SELECT * FROM "+quoteIdent(table))
	if err != nil {
		return nil, fmt.Errorf("failed to query table %s: %w", table, err)
	}
	columns, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to read columns of %s: %w", table, err)
	}
	return &SQLReader{db: db, rows: rows, columns: columns}, nil
}

func quoteIdent(table string) string {
	parts := strings.Split(table, ".")
	for i, p := range parts {
		parts[i] = `"` + p + `"`
	}
	return strings.Join(parts, ".")
}

func (r *SQLReader) Columns() []string { return r.columns }

func (r *SQLReader) Next(ctx context.Context) (models.Row, error) {
	if err := ctx.Err(); err != nil {
		return models.Row{}, err
	}
	if !r.rows.Next() {
		if err := r.rows.Err(); err != nil {
			return models.Row{}, fmt.Errorf("failed to read row %d: %w", r.offset, err)
		}
		return models.Row{}, io.EOF
	}

	cells := make([]sql.NullString, len(r.columns))
	dest := make([]any, len(cells))
	for i := range cells {
		dest[i] = &cells[i]
	}
	if err := r.rows.Scan(dest...); err != nil {
		return models.Row{}, fmt.Errorf("failed to scan row %d: %w", r.offset, err)
	}

	values := make([]string, len(cells))
	for i, c := range cells {
		values[i] = c.String
	}
	row := rowFromValues(r.offset, r.columns, values)
	r.offset++
	return row, nil
}

func (r *SQLReader) Close() error {
	var firstErr error
	if r.rows != nil {
		firstErr = r.rows.Close()
	}
	if r.ownsDB && r.db != nil {
		if err := r.db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
