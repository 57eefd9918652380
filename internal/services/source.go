package services

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"

	_ "modernc.org/sqlite"

	"sales-dashboard/internal/config"
)

// RawTable is an untyped tabular read: a header and string cells. Lines holds
// the 1-based source line (or row number) of each row, used in RowIssues.
type RawTable struct {
	Columns []string
	Rows    [][]string
	Lines   []int
}

// Source is a tabular input. ID identifies the source for caching; two
// sources with the same ID are assumed to hold the same data.
type Source interface {
	ID() string
	ReadTable(ctx context.Context) (*RawTable, error)
}

// NewSource builds the configured source.
func NewSource(cfg config.DataConfig) (Source, error) {
	switch cfg.Source {
	case config.SourceCSV:
		return CSVSource{Path: cfg.File}, nil
	case config.SourceSQLite:
		return SQLiteSource{Path: cfg.File, Table: cfg.Table}, nil
	default:
		return nil, fmt.Errorf("unsupported data source %q", cfg.Source)
	}
}

type CSVSource struct {
	Path string
}

func (s CSVSource) ID() string {
	return "csv:" + s.Path
}

func (s CSVSource) ReadTable(ctx context.Context) (*RawTable, error) {
	file, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty file")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	table := &RawTable{Columns: header}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		line, _ := reader.FieldPos(0)
		table.Rows = append(table.Rows, record)
		table.Lines = append(table.Lines, line)
	}

	return table, nil
}

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLiteSource reads every row of one table. Cells are scanned as nullable
// strings so numeric coercion follows the same rules as CSV input.
type SQLiteSource struct {
	Path  string
	Table string
}

func (s SQLiteSource) ID() string {
	return "sqlite:" + s.Path + "#" + s.Table
}

func (s SQLiteSource) ReadTable(ctx context.Context) (*RawTable, error) {
	if !tableNamePattern.MatchString(s.Table) {
		return nil, fmt.Errorf("invalid table name %q", s.Table)
	}
	if _, err := os.Stat(s.Path); err != nil {
		return nil, fmt.Errorf("stat database: %w", err)
	}

	db, err := sql.Open("sqlite", s.Path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s", s.Table))
	if err != nil {
		return nil, fmt.Errorf("query table: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	table := &RawTable{Columns: columns}
	cells := make([]sql.NullString, len(columns))
	dest := make([]any, len(columns))
	for i := range cells {
		dest[i] = &cells[i]
	}

	n := 0
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		n++
		row := make([]string, len(cells))
		for i, c := range cells {
			if c.Valid {
				row[i] = c.String
			}
		}
		table.Rows = append(table.Rows, row)
		table.Lines = append(table.Lines, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return table, nil
}
