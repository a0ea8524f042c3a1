package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"salesdash/internal/core"
	ports "salesdash/internal/sources"

	_ "modernc.org/sqlite"
)

// ImportInfo describes the most recent import into the store.
type ImportInfo struct {
	Source     string
	Rows       int
	ImportedAt time.Time
}

// SQLiteRepository persists an imported order table so the dashboard can
// start without the original file.
type SQLiteRepository struct {
	db *sql.DB
	// idColumn and categoryColumn are denormalized for ad-hoc queries.
	idColumn       string
	categoryColumn string
}

var _ ports.OrderSource = (*SQLiteRepository)(nil)

// NewSQLiteRepository opens (creating if needed) the database and migrates it.
func NewSQLiteRepository(dbPath string, cols ports.Columns) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, idColumn: cols.OrderID, categoryColumn: cols.Category}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// ImportTable replaces the stored table with t in a single transaction.
func (r *SQLiteRepository) ImportTable(ctx context.Context, source string, t core.Table) error {
	if len(t.Header) == 0 {
		return errors.New("import: table has no header")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM orders`); err != nil {
		return fmt.Errorf("clear orders: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM dataset_columns`); err != nil {
		return fmt.Errorf("clear columns: %w", err)
	}

	for i, name := range t.Header {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO dataset_columns (position, name) VALUES (?, ?)`, i, name); err != nil {
			return fmt.Errorf("insert column %q: %w", name, err)
		}
	}

	header := ports.NormalizeHeader(t.Header)
	idIdx, _ := ports.ColumnIndex(header, r.idColumn)
	catIdx, _ := ports.ColumnIndex(header, r.categoryColumn)
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO orders (row_num, order_id, category, values_json) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, row := range t.Rows {
		raw, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("encode row %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, i, strings.TrimSpace(cell(row, idIdx)), strings.TrimSpace(cell(row, catIdx)), string(raw)); err != nil {
			return fmt.Errorf("insert row %d: %w", i, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO imports (source, row_count, imported_at) VALUES (?, ?, ?)`,
		source, len(t.Rows), time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("record import: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}

	slog.InfoContext(ctx, "Orders imported to SQLite", "source", source, "rows", len(t.Rows), "columns", len(t.Header))
	return nil
}

// LoadOrders implements sources.OrderSource.
func (r *SQLiteRepository) LoadOrders(ctx context.Context) (core.Table, error) {
	header, err := r.columns(ctx)
	if err != nil {
		return core.Table{}, err
	}
	if len(header) == 0 {
		return core.Table{}, fmt.Errorf("%w: database has no imported dataset", ports.ErrSourceUnavailable)
	}

	rows, err := r.db.QueryContext(ctx, `SELECT values_json FROM orders ORDER BY row_num`)
	if err != nil {
		return core.Table{}, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	t := core.Table{Header: header}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return core.Table{}, fmt.Errorf("scan order: %w", err)
		}
		var values []string
		if err := json.Unmarshal([]byte(raw), &values); err != nil {
			return core.Table{}, fmt.Errorf("decode order: %w", err)
		}
		t.Rows = append(t.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return core.Table{}, fmt.Errorf("iterate orders: %w", err)
	}
	return t, nil
}

// LastImport returns the most recent import, or sql.ErrNoRows.
func (r *SQLiteRepository) LastImport(ctx context.Context) (ImportInfo, error) {
	var (
		info ImportInfo
		at   string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT source, row_count, CAST(imported_at AS TEXT) FROM imports ORDER BY id DESC LIMIT 1`).
		Scan(&info.Source, &info.Rows, &at)
	if err != nil {
		return ImportInfo{}, err
	}
	info.ImportedAt, _ = time.Parse(time.RFC3339, at)
	return info, nil
}

// CategoryCounts counts stored orders per category, including rows that the
// dataset loader would skip.
func (r *SQLiteRepository) CategoryCounts(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT category, COUNT(*) FROM orders GROUP BY category`)
	if err != nil {
		return nil, fmt.Errorf("count categories: %w", err)
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var cat string
		var n int
		if err := rows.Scan(&cat, &n); err != nil {
			return nil, fmt.Errorf("scan category count: %w", err)
		}
		out[cat] = n
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) columns(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name FROM dataset_columns ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	defer rows.Close()

	var header []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		header = append(header, name)
	}
	return header, rows.Err()
}

func cell(row []string, idx int) string {
	if idx >= 0 && idx < len(row) {
		return row[idx]
	}
	return ""
}
