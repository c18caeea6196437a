// Package storage persists the ballot journal and transaction receipts in
// SQLite. The journal holds every successful operation in sequence order, so
// any ballot can be rebuilt by replaying it.
package storage

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Receipt statuses
const (
	StatusSuccess  = "success"
	StatusReverted = "reverted"
)

// Store manages the SQLite database
type Store struct {
	db *sql.DB
}

// NewStore creates a new storage instance
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// a single writer; also keeps ":memory:" databases on one connection
	db.SetMaxOpenConns(1)

	store := &Store{db: db}

	// Run migrations
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS ballots (
		address TEXT PRIMARY KEY,
		chairperson TEXT NOT NULL,
		proposal_count INTEGER NOT NULL,
		strict_delegation BOOLEAN NOT NULL DEFAULT 0,
		created_at_sequence INTEGER NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS operations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ballot TEXT NOT NULL,
		sequence INTEGER NOT NULL,
		tx_hash TEXT NOT NULL,
		caller TEXT NOT NULL,
		operation_type TEXT NOT NULL CHECK(operation_type IN ('deploy', 'grantRight', 'vote', 'delegate')),
		payload TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (ballot) REFERENCES ballots(address),
		UNIQUE(sequence),
		UNIQUE(tx_hash)
	);

	CREATE INDEX IF NOT EXISTS idx_operations_ballot ON operations(ballot, sequence);

	CREATE TABLE IF NOT EXISTS receipts (
		tx_hash TEXT PRIMARY KEY,
		ballot TEXT NOT NULL,
		caller TEXT NOT NULL,
		operation_type TEXT NOT NULL,
		status TEXT NOT NULL CHECK(status IN ('success', 'reverted')),
		error_tag TEXT NOT NULL DEFAULT '',
		reason TEXT NOT NULL DEFAULT '',
		changes TEXT NOT NULL DEFAULT '[]',
		sequence INTEGER NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(sequence)
	);

	CREATE INDEX IF NOT EXISTS idx_receipts_ballot ON receipts(ballot, sequence);
	`

	_, err := s.db.Exec(schema)
	return err
}

// execer is satisfied by both *sql.DB and *sql.Tx
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// ApplyOperation writes everything one processed transaction produced in a
// single sql transaction. ballot is set only for deploys and op only when the
// operation succeeded; receipt is always required.
func (s *Store) ApplyOperation(ballot *BallotRecord, op *OperationRecord, receipt *ReceiptRecord) error {
	if receipt == nil {
		return fmt.Errorf("receipt is required")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if ballot != nil {
		if err := saveBallot(tx, ballot); err != nil {
			return fmt.Errorf("failed to save ballot: %w", err)
		}
	}
	if op != nil {
		if err := saveOperation(tx, op); err != nil {
			return fmt.Errorf("failed to save operation: %w", err)
		}
	}
	if err := saveReceipt(tx, receipt); err != nil {
		return fmt.Errorf("failed to save receipt: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
