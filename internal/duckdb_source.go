package internal

import (
	"database/sql"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/luminahr/formpipe"
)

// DuckDBSource reads a spreadsheet file through an in-memory DuckDB
// instance. DuckDB handles the heavy lifting of sniffing delimiters and
// parsing large csv/parquet files, while every cell is surfaced as a raw
// varchar so downstream validation stays the single source of typing.
type DuckDBSource struct {
	db     *sql.DB
	rows   *sql.Rows
	header []string
}

// NewDuckDBSource opens path (csv or parquet, by extension) as a tabular
// source backed by an in-memory DuckDB instance.
func NewDuckDBSource(path string) (*DuckDBSource, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	escaped := strings.ReplaceAll(path, "'", "''")
	var query string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet":
		query = fmt.Sprintf("SELECT * FROM read_parquet('%s')", escaped)
	default:
		query = fmt.Sprintf("SELECT * FROM read_csv_auto('%s', header=true, all_varchar=true)", escaped)
	}

	rows, err := db.Query(query)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("read spreadsheet via duckdb: %w", err)
	}

	columns, err := rows.Columns()
	if err != nil {
		rows.Close()
		db.Close()
		return nil, fmt.Errorf("read spreadsheet columns: %w", err)
	}
	header := make([]string, len(columns))
	for i, col := range columns {
		header[i] = formpipe.NormalizeLabel(col)
	}

	return &DuckDBSource{db: db, rows: rows, header: header}, nil
}

// Next returns the next data row keyed by normalized column label, or
// io.EOF after the last row.
func (s *DuckDBSource) Next() (formpipe.RowRecord, error) {
	if !s.rows.Next() {
		if err := s.rows.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}

	cells := make([]sql.NullString, len(s.header))
	dest := make([]any, len(s.header))
	for i := range cells {
		dest[i] = &cells[i]
	}
	if err := s.rows.Scan(dest...); err != nil {
		return nil, fmt.Errorf("scan spreadsheet row: %w", err)
	}

	row := make(formpipe.RowRecord, len(s.header))
	for i, key := range s.header {
		if cells[i].Valid {
			row[key] = cells[i].String
		} else {
			row[key] = ""
		}
	}
	return row, nil
}

// Close releases the result set and the DuckDB instance.
func (s *DuckDBSource) Close() error {
	s.rows.Close()
	return s.db.Close()
}
