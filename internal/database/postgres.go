package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"zimp-go/internal/database/migrations"
	"zimp-go/internal/zimp"
)

// PostgresDatabase implements zimp.Database on a pgx connection pool.
type PostgresDatabase struct {
	pool *pgxpool.Pool
}

// NewPostgresDatabase connects to the database at dsn and verifies the
// connection.
func NewPostgresDatabase(ctx context.Context, dsn string) (*PostgresDatabase, error) {
	pool, err := CreateConnectionPool(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &PostgresDatabase{pool: pool}, nil
}

// CreateConnectionPool parses dsn, opens a pool and pings it.
func CreateConnectionPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}
	cfg.MaxConns = 8

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// ImportRecords copies all records into the documents table inside one
// transaction.
func (p *PostgresDatabase) ImportRecords(ctx context.Context, collection string, records []*zimp.Record) error {
	if len(records) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(records))
	for _, r := range records {
		values, err := recordValues(collection, r)
		if err != nil {
			return err
		}
		rows = append(rows, values)
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	n, err := tx.CopyFrom(ctx, pgx.Identifier{"documents"}, documentColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("copying records: %w", err)
	}
	if int(n) != len(rows) {
		return fmt.Errorf("copied %d of %d records", n, len(rows))
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (p *PostgresDatabase) FindRecord(ctx context.Context, id string) (*zimp.Record, error) {
	r, err := scanRecord(p.pool.QueryRow(ctx, selectDocument+" WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find record: %w", err)
	}
	return r, nil
}

func (p *PostgresDatabase) ListRecords(ctx context.Context, ownerID string) ([]*zimp.Record, error) {
	rows, err := p.pool.Query(ctx, selectDocument+" WHERE owner_id = $1"+orderFoldersFirst, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var records []*zimp.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return records, nil
}

func (p *PostgresDatabase) CreateImportOperation(ctx context.Context, operation string, parameters string) (*zimp.ImportOperation, error) {
	op, err := scanImportOperation(p.pool.QueryRow(ctx,
		`INSERT INTO imports (operation, parameters, status, started_at)
		VALUES ($1, $2, 'running', now())
		RETURNING id, operation, parameters, status, saved, failed, started_at, finished_at`,
		operation, parameters))
	if err != nil {
		return nil, fmt.Errorf("create import operation: %w", err)
	}
	return op, nil
}

func (p *PostgresDatabase) FinishImportOperation(ctx context.Context, id int64, status string, saved int, failed int) error {
	_, err := p.pool.Exec(ctx,
		"UPDATE imports SET status = $1, saved = $2, failed = $3, finished_at = now() WHERE id = $4",
		status, saved, failed, id)
	if err != nil {
		return fmt.Errorf("finish import operation: %w", err)
	}
	return nil
}

func (p *PostgresDatabase) ListImportOperations(ctx context.Context, limit int) ([]*zimp.ImportOperation, error) {
	rows, err := p.pool.Query(ctx,
		"SELECT id, operation, parameters, status, saved, failed, started_at, finished_at FROM imports ORDER BY id DESC LIMIT $1",
		limit)
	if err != nil {
		return nil, fmt.Errorf("list import operations: %w", err)
	}
	defer rows.Close()

	var ops []*zimp.ImportOperation
	for rows.Next() {
		op, err := scanImportOperation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan import operation: %w", err)
		}
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list import operations: %w", err)
	}
	return ops, nil
}

// CheckMigrations verifies the database schema is up-to-date.
func (p *PostgresDatabase) CheckMigrations() error {
	db := stdlib.OpenDBFromPool(p.pool)
	defer db.Close()
	return migrations.CheckDBMigrationStatus(db, migrations.Postgres)
}

// Migrate applies pending migrations.
func (p *PostgresDatabase) Migrate() error {
	db := stdlib.OpenDBFromPool(p.pool)
	defer db.Close()
	return migrations.MigrateUp(db, migrations.Postgres)
}

func (p *PostgresDatabase) Close() error {
	p.pool.Close()
	return nil
}

var _ zimp.Database = (*PostgresDatabase)(nil)
