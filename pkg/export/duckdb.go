package export

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/marcboeker/go-duckdb"
)

// WriteDuckDB creates a DuckDB database file at path holding one table per
// dataset. The database is built under a temporary name and replaces any
// existing file, and its WAL, only once complete.
func WriteDuckDB(ctx context.Context, path string, datasets ...*Dataset) error {
	return replaceFile(path, func(tmp string) error {
		return buildDuckDB(ctx, tmp, datasets)
	}, ".wal")
}

func buildDuckDB(ctx context.Context, path string, datasets []*Dataset) error {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return fmt.Errorf("failed to open duckdb: %w", err)
	}

	for _, d := range datasets {
		if err := insertDataset(ctx, db, d); err != nil {
			db.Close()
			return fmt.Errorf("table %s: %w", d.Name, err)
		}
	}
	if err := db.Close(); err != nil {
		return fmt.Errorf("failed to close duckdb: %w", err)
	}
	return nil
}

func insertDataset(ctx context.Context, db *sql.DB, d *Dataset) error {
	cols := make([]string, len(d.Columns))
	marks := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		cols[i] = quoteIdent(c.Name) + " " + sqlType(c.Kind)
		marks[i] = "?"
	}

	if _, err := db.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s (%s)",
		quoteIdent(d.Name), strings.Join(cols, ", "))); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s VALUES (%s)",
		quoteIdent(d.Name), strings.Join(marks, ", ")))
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	args := make([]interface{}, len(d.Columns))
	for i := range d.Rows {
		for j, c := range d.Columns {
			cell := d.Rows[i][j]
			switch {
			case c.Kind == KindString:
				args[j] = cell.S
			case cell.Null:
				args[j] = nil
			case c.Kind == KindInt:
				args[j] = cell.I
			default:
				args[j] = roundMillis(cell.F)
			}
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func sqlType(k Kind) string {
	switch k {
	case KindFloat:
		return "DOUBLE"
	case KindInt:
		return "BIGINT"
	default:
		return "VARCHAR"
	}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
