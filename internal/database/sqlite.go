package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"zimp-go/internal/database/migrations"
	"zimp-go/internal/zimp"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteDatabase implements zimp.Database using SQLite.
type SQLiteDatabase struct {
	db   *sql.DB
	path string
}

// NewSQLiteDatabase opens a SQLite database.
// path can be a file path or ":memory:" for an in-memory database.
func NewSQLiteDatabase(path string) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	return &SQLiteDatabase{db: db, path: path}, nil
}

// NewSQLiteDatabaseFromDB wraps an existing connection.
// The caller is responsible for ensuring the connection is properly configured.
func NewSQLiteDatabaseFromDB(db *sql.DB) *SQLiteDatabase {
	return &SQLiteDatabase{db: db}
}

// OpenConnection opens and configures a SQLite connection.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every connection to ":memory:" is a separate database.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

// Document operations

// ImportRecords inserts all records in one transaction.
func (s *SQLiteDatabase) ImportRecords(ctx context.Context, collection string, records []*zimp.Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(documentColumns)), ", ")
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO documents (%s) VALUES (%s)",
		strings.Join(documentColumns, ", "), placeholders))
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		values, err := recordValues(collection, r)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, sqliteValues(values)...); err != nil {
			return fmt.Errorf("inserting record %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing records: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) FindRecord(ctx context.Context, id string) (*zimp.Record, error) {
	r, err := scanRecord(s.db.QueryRowContext(ctx, selectDocument+" WHERE id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding record: %w", err)
	}
	return r, nil
}

func (s *SQLiteDatabase) ListRecords(ctx context.Context, ownerID string) ([]*zimp.Record, error) {
	rows, err := s.db.QueryContext(ctx, selectDocument+" WHERE owner_id = ?"+orderFoldersFirst, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	defer rows.Close()

	var records []*zimp.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	return records, nil
}

// Import operation tracking

func (s *SQLiteDatabase) CreateImportOperation(ctx context.Context, operation string, parameters string) (*zimp.ImportOperation, error) {
	op := &zimp.ImportOperation{
		Operation:  operation,
		Parameters: parameters,
		Status:     "running",
		StartedAt:  time.Now().UTC(),
	}
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO imports (operation, parameters, status, started_at) VALUES (?, ?, ?, ?)",
		op.Operation, op.Parameters, op.Status, op.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("creating import operation: %w", err)
	}
	if op.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("creating import operation: %w", err)
	}
	return op, nil
}

func (s *SQLiteDatabase) FinishImportOperation(ctx context.Context, id int64, status string, saved int, failed int) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE imports SET status = ?, saved = ?, failed = ?, finished_at = ? WHERE id = ?",
		status, saved, failed, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("finishing import operation: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) ListImportOperations(ctx context.Context, limit int) ([]*zimp.ImportOperation, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, operation, parameters, status, saved, failed, started_at, finished_at FROM imports ORDER BY id DESC LIMIT ?",
		limit)
	if err != nil {
		return nil, fmt.Errorf("listing import operations: %w", err)
	}
	defer rows.Close()

	var ops []*zimp.ImportOperation
	for rows.Next() {
		op, err := scanImportOperation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning import operation: %w", err)
		}
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing import operations: %w", err)
	}
	return ops, nil
}

// Path returns the database file path (or ":memory:" for in-memory databases).
func (s *SQLiteDatabase) Path() string {
	return s.path
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db, migrations.SQLite)
}

// Migrate applies pending migrations.
func (s *SQLiteDatabase) Migrate() error {
	return migrations.MigrateUp(s.db, migrations.SQLite)
}

// Close closes the database connection.
func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func scanImportOperation(row rowScanner) (*zimp.ImportOperation, error) {
	var op zimp.ImportOperation
	err := row.Scan(&op.ID, &op.Operation, &op.Parameters, &op.Status, &op.Saved, &op.Failed, &op.StartedAt, &op.FinishedAt)
	if err != nil {
		return nil, err
	}
	return &op, nil
}

// sqliteValues stores JSON as TEXT rather than BLOB.
func sqliteValues(values []any) []any {
	for i, v := range values {
		if b, ok := v.([]byte); ok {
			values[i] = string(b)
		}
	}
	return values
}

var _ zimp.Database = (*SQLiteDatabase)(nil)
