// Package store is the sqlx/SQLite persistence layer. All SQL lives here;
// callers work with the entity structs in internal/models.
package store

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/jmoiron/sqlx"
	sqlite3 "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaFS embed.FS

// Store wraps a database handle. Methods run on ext, which is either the
// root connection or an open transaction (see InTx).
type Store struct {
	db  *sqlx.DB
	ext sqlx.Ext
	tx  *sqlx.Tx
}

// Open creates a database connection and runs the embedded schema.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	db, err := sqlx.Connect("sqlite3", dbPath+sep+"_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{db: db, ext: db}, nil
}

var memSeq atomic.Int64

// OpenMemory opens a throwaway in-memory database, used by tests. Each call
// gets its own database; shared cache only ties together the connections of
// one pool.
func OpenMemory() (*Store, error) {
	name := fmt.Sprintf("file:memdb%d?mode=memory&cache=shared", memSeq.Add(1))
	return Open(name)
}

func migrate(db *sqlx.DB) error {
	schema, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema: %w", err)
	}
	if _, err := db.Exec(string(schema)); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}

// Close closes the underlying connection. No-op on a transaction-scoped view.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// InTx runs fn with a Store view bound to one transaction. The transaction
// commits when fn returns nil and rolls back otherwise.
func (s *Store) InTx(fn func(*Store) error) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(&Store{db: s.db, ext: tx}); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Begin returns a Store view bound to a new transaction. The orchestrator
// uses this to batch listing saves and commit every few listings. Callers
// must finish with Commit or Rollback.
func (s *Store) Begin() (*Store, error) {
	tx, err := s.db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &Store{db: s.db, ext: tx, tx: tx}, nil
}

// Commit commits the transaction this view is bound to.
func (s *Store) Commit() error {
	if s.tx == nil {
		return fmt.Errorf("commit on a non-transaction store")
	}
	return s.tx.Commit()
}

// Rollback rolls back the transaction this view is bound to.
func (s *Store) Rollback() error {
	if s.tx == nil {
		return fmt.Errorf("rollback on a non-transaction store")
	}
	return s.tx.Rollback()
}

func (s *Store) get(dest interface{}, query string, args ...interface{}) error {
	return sqlx.Get(s.ext, dest, query, args...)
}

func (s *Store) selectAll(dest interface{}, query string, args ...interface{}) error {
	return sqlx.Select(s.ext, dest, query, args...)
}

func (s *Store) exec(query string, args ...interface{}) (sql.Result, error) {
	return s.ext.Exec(query, args...)
}

// IsNotFound reports whether err is a no-rows lookup miss.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// IsUniqueViolation reports whether err is a unique-constraint failure, the
// expected outcome when two tasks race to insert the same building, unit or
// listing. Callers roll back and re-read.
func IsUniqueViolation(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.ExtendedCode == sqlite3.ErrConstraintUnique ||
		se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}
