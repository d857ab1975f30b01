// internal/output/sql.go

package output

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pricescout/pricescout/internal/extract"
)

// sqlWriter inserts records into one relational table using the shared
// schema. The dialect differences are confined to placeholder style and the
// column type names in the bootstrap DDL.
type sqlWriter struct {
	db     *sql.DB
	insert string
}

func (w *sqlWriter) Write(ctx context.Context, records []*extract.Record) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning insert transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, w.insert)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, rec := range records {
		if _, err := stmt.ExecContext(ctx, rowValues(rec, now)...); err != nil {
			return fmt.Errorf("inserting record for %s: %w", rec.URL, err)
		}
	}
	return tx.Commit()
}

func (w *sqlWriter) Close() error {
	return w.db.Close()
}

// recordsDDL renders CREATE TABLE for the shared schema. realType and
// boolType vary per engine; everything else is TEXT.
func recordsDDL(table, realType, boolType string) string {
	types := map[string]string{
		"price": realType, "sale_price": realType, "rating": realType, "unit_price": realType,
		"review_count": "INTEGER",
		"in_stock":     boolType,
	}
	defs := make([]string, 0, len(columns))
	for _, c := range columns {
		t := types[c]
		if t == "" {
			t = "TEXT"
		}
		defs = append(defs, c+" "+t)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", table, strings.Join(defs, ", "))
}

func insertSQL(table string, numbered bool) string {
	ph := make([]string, len(columns))
	for i := range columns {
		if numbered {
			ph[i] = fmt.Sprintf("$%d", i+1)
		} else {
			ph[i] = "?"
		}
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(columns, ", "), strings.Join(ph, ", "),
	)
}

func newSQLWriter(driver, dsn, table, realType, boolType string, numbered bool) (*sqlWriter, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s output: %w", driver, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to %s output: %w", driver, err)
	}
	if _, err := db.Exec(recordsDDL(table, realType, boolType)); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating %s table %s: %w", driver, table, err)
	}
	return &sqlWriter{db: db, insert: insertSQL(table, numbered)}, nil
}

func newSQLiteWriter(path, table string) (*sqlWriter, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite output requires a file path")
	}
	return newSQLWriter("sqlite3", path+"?_busy_timeout=5000", table, "REAL", "INTEGER", false)
}

func newPostgresWriter(dsn, table string) (*sqlWriter, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres output requires a dsn")
	}
	return newSQLWriter("postgres", dsn, table, "DOUBLE PRECISION", "BOOLEAN", true)
}

func newMySQLWriter(dsn, table string) (*sqlWriter, error) {
	if dsn == "" {
		return nil, fmt.Errorf("mysql output requires a dsn")
	}
	return newSQLWriter("mysql", dsn, table, "DOUBLE", "BOOLEAN", false)
}
