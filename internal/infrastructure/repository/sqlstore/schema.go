package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
)

const (
	schemaLockID   = int64(2024122001)
	schemaLockName = "medscan_schema"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS medicalType (
	id BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL,
	code TEXT NOT NULL UNIQUE,
	coordonance TEXT
)`,
	`CREATE TABLE IF NOT EXISTS coordonance (
	id BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL,
	typeID BIGINT NOT NULL REFERENCES medicalType(id) ON DELETE CASCADE
)`,
	`CREATE INDEX IF NOT EXISTS idx_coordonance_lower_name ON coordonance (LOWER(name))`,
	`CREATE TABLE IF NOT EXISTS documentCategory (
	id BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	prompt TEXT NOT NULL DEFAULT ''
)`,
}

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS medicalType (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	code VARCHAR(64) NOT NULL,
	coordonance VARCHAR(255) NULL,
	UNIQUE KEY uq_medicalType_code (code)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS coordonance (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	typeID BIGINT NOT NULL,
	KEY idx_coordonance_name (name),
	CONSTRAINT fk_coordonance_type FOREIGN KEY (typeID) REFERENCES medicalType(id) ON DELETE CASCADE
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS documentCategory (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	name VARCHAR(191) NOT NULL,
	prompt TEXT NOT NULL,
	UNIQUE KEY uq_documentCategory_name (name)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// EnsureSchema creates the reference tables. Concurrent callers are
// serialized with a database-side lock.
func EnsureSchema(ctx context.Context, db *sql.DB, dialect Dialect) error {
	switch dialect {
	case DialectPostgres:
		return ensurePostgresSchema(ctx, db)
	case DialectMySQL:
		return ensureMySQLSchema(ctx, db)
	default:
		return fmt.Errorf("ensure schema: unsupported dialect %q", dialect)
	}
}

func ensurePostgresSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, schemaLockID); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}
	for _, stmt := range postgresSchema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("execute schema ddl: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// MySQL commits DDL implicitly, so the named lock is held on one connection instead.
func ensureMySQLSchema(ctx context.Context, db *sql.DB) error {
	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire schema connection: %w", err)
	}
	defer conn.Close()

	var acquired sql.NullInt64
	if err := conn.QueryRowContext(ctx, `SELECT GET_LOCK(?, 30)`, schemaLockName).Scan(&acquired); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}
	if !acquired.Valid || acquired.Int64 != 1 {
		return fmt.Errorf("acquire schema lock: timed out")
	}
	defer func() {
		_, _ = conn.ExecContext(context.WithoutCancel(ctx), `SELECT RELEASE_LOCK(?)`, schemaLockName)
	}()

	for _, stmt := range mysqlSchema {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("execute schema ddl: %w", err)
		}
	}
	return nil
}
