package search

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	_ "modernc.org/sqlite"

	"github.com/haasonsaas/nqbench/pkg/models"
)

// DefaultFTSTable is the FTS5 table name used when none is configured.
const DefaultFTSTable = "collection"

var ftsTablePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLiteSearcher ranks rows of an FTS5 table with bm25(). The table is
// expected to carry an id column and the indexed text, for example:
//
//	CREATE VIRTUAL TABLE collection USING fts5(id UNINDEXED, contents);
type SQLiteSearcher struct {
	db    *sql.DB
	query string
}

// OpenSQLite opens the database at path and prepares queries against table.
func OpenSQLite(ctx context.Context, path, table string) (*SQLiteSearcher, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite index: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite index: %w", err)
	}
	s, err := NewSQLiteSearcher(db, table)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLiteSearcher wraps an open database handle. The searcher owns db
// and closes it on Close.
func NewSQLiteSearcher(db *sql.DB, table string) (*SQLiteSearcher, error) {
	if table == "" {
		table = DefaultFTSTable
	}
	if !ftsTablePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid fts table name %q", table)
	}
	quoted := `"` + table + `"`
	return &SQLiteSearcher{
		db: db,
		query: fmt.Sprintf(
			"SELECT id, bm25(%[1]s) AS score FROM %[1]s WHERE %[1]s MATCH ? ORDER BY score LIMIT ?",
			quoted,
		),
	}, nil
}

// Search returns the k best rows. bm25() is lower-is-better, so scores
// are negated to keep higher-is-better across backends.
func (s *SQLiteSearcher) Search(ctx context.Context, query string, k int) ([]models.SearchHit, error) {
	if err := validK(k); err != nil {
		return nil, err
	}
	match := ftsQuery(query)
	if match == "" {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, s.query, match, k)
	if err != nil {
		return nil, fmt.Errorf("fts search: %w", err)
	}
	defer rows.Close()

	hits := make([]models.SearchHit, 0, k)
	for rows.Next() {
		var id string
		var score float64
		if err := rows.Scan(&id, &score); err != nil {
			return nil, fmt.Errorf("scan fts row: %w", err)
		}
		hits = append(hits, models.SearchHit{DocID: id, Score: -score, Rank: len(hits) + 1})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fts rows: %w", err)
	}
	return hits, nil
}

// Close closes the database.
func (s *SQLiteSearcher) Close() error {
	return s.db.Close()
}

// ftsQuery turns free text into an FTS5 disjunction of quoted terms so
// punctuation in natural-language questions never reaches the FTS parser.
func ftsQuery(text string) string {
	terms := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(terms) == 0 {
		return ""
	}
	quoted := make([]string, len(terms))
	for i, term := range terms {
		quoted[i] = `"` + term + `"`
	}
	return strings.Join(quoted, " OR ")
}
