package storage

import (
	"database/sql"
	"time"
)

// BallotRecord represents a deployed ballot in the database. StrictDelegation
// is the delegation rule the ballot was deployed with and must be used
// whenever it is rebuilt.
type BallotRecord struct {
	Address           string
	Chairperson       string
	ProposalCount     int
	StrictDelegation  bool
	CreatedAtSequence uint64
	CreatedAt         time.Time
}

// OperationRecord represents a journaled operation. Payload is the hex
// encoded signed payload the operation was decoded from.
type OperationRecord struct {
	ID            int
	Ballot        string
	Sequence      uint64
	TxHash        string
	Caller        string
	OperationType string
	Payload       string
	CreatedAt     time.Time
}

// ReceiptRecord represents the outcome of a processed transaction. Changes
// holds the JSON encoded list of weight and tally changes.
type ReceiptRecord struct {
	TxHash        string
	Ballot        string
	Caller        string
	OperationType string
	Status        string
	ErrorTag      string
	Reason        string
	Changes       string
	Sequence      uint64
	CreatedAt     time.Time
}

// SaveBallot saves a ballot record
func (s *Store) SaveBallot(record *BallotRecord) error {
	return saveBallot(s.db, record)
}

func saveBallot(db execer, record *BallotRecord) error {
	_, err := db.Exec(`
		INSERT INTO ballots (address, chairperson, proposal_count, strict_delegation, created_at_sequence)
		VALUES (?, ?, ?, ?, ?)
	`, record.Address, record.Chairperson, record.ProposalCount, record.StrictDelegation, record.CreatedAtSequence)
	return err
}

// GetBallot retrieves a ballot record by address
func (s *Store) GetBallot(address string) (*BallotRecord, error) {
	record := &BallotRecord{}
	err := s.db.QueryRow(`
		SELECT address, chairperson, proposal_count, strict_delegation, created_at_sequence, created_at
		FROM ballots WHERE address = ?
	`, address).Scan(
		&record.Address, &record.Chairperson, &record.ProposalCount,
		&record.StrictDelegation, &record.CreatedAtSequence, &record.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return record, err
}

// BallotExists checks if a ballot exists
func (s *Store) BallotExists(address string) (bool, error) {
	var exists bool
	err := s.db.QueryRow("SELECT EXISTS(SELECT 1 FROM ballots WHERE address = ?)", address).Scan(&exists)
	return exists, err
}

// GetAllBallots retrieves all ballots, newest first
func (s *Store) GetAllBallots() ([]*BallotRecord, error) {
	rows, err := s.db.Query(`
		SELECT address, chairperson, proposal_count, strict_delegation, created_at_sequence, created_at
		FROM ballots
		ORDER BY created_at_sequence DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ballots []*BallotRecord
	for rows.Next() {
		record := &BallotRecord{}
		if err := rows.Scan(
			&record.Address, &record.Chairperson, &record.ProposalCount,
			&record.StrictDelegation, &record.CreatedAtSequence, &record.CreatedAt,
		); err != nil {
			return nil, err
		}
		ballots = append(ballots, record)
	}
	return ballots, rows.Err()
}

// GetBallotCount returns the number of deployed ballots
func (s *Store) GetBallotCount() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM ballots").Scan(&count)
	return count, err
}

// SaveOperation saves an operation record
func (s *Store) SaveOperation(record *OperationRecord) error {
	return saveOperation(s.db, record)
}

func saveOperation(db execer, record *OperationRecord) error {
	_, err := db.Exec(`
		INSERT INTO operations (ballot, sequence, tx_hash, caller, operation_type, payload)
		VALUES (?, ?, ?, ?, ?, ?)
	`, record.Ballot, record.Sequence, record.TxHash, record.Caller, record.OperationType, record.Payload)
	return err
}

// GetOperations retrieves the journal of a ballot in sequence order
func (s *Store) GetOperations(ballot string) ([]*OperationRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, ballot, sequence, tx_hash, caller, operation_type, payload, created_at
		FROM operations WHERE ballot = ?
		ORDER BY sequence ASC
	`, ballot)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ops []*OperationRecord
	for rows.Next() {
		op := &OperationRecord{}
		if err := rows.Scan(&op.ID, &op.Ballot, &op.Sequence, &op.TxHash, &op.Caller, &op.OperationType, &op.Payload, &op.CreatedAt); err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

// GetOperationCount returns the total number of journaled operations
func (s *Store) GetOperationCount() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM operations").Scan(&count)
	return count, err
}

// GetLastSequence gets the highest sequence number processed, or 0 if none
func (s *Store) GetLastSequence() (uint64, error) {
	var seq uint64
	err := s.db.QueryRow("SELECT COALESCE(MAX(sequence), 0) FROM receipts").Scan(&seq)
	return seq, err
}

// SaveReceipt saves a receipt record
func (s *Store) SaveReceipt(record *ReceiptRecord) error {
	return saveReceipt(s.db, record)
}

func saveReceipt(db execer, record *ReceiptRecord) error {
	changes := record.Changes
	if changes == "" {
		changes = "[]"
	}
	_, err := db.Exec(`
		INSERT INTO receipts (tx_hash, ballot, caller, operation_type, status, error_tag, reason, changes, sequence)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, record.TxHash, record.Ballot, record.Caller, record.OperationType, record.Status,
		record.ErrorTag, record.Reason, changes, record.Sequence)
	return err
}

// GetReceipt retrieves a receipt by transaction hash
func (s *Store) GetReceipt(txHash string) (*ReceiptRecord, error) {
	record := &ReceiptRecord{}
	err := s.db.QueryRow(`
		SELECT tx_hash, ballot, caller, operation_type, status, error_tag, reason, changes, sequence, created_at
		FROM receipts WHERE tx_hash = ?
	`, txHash).Scan(
		&record.TxHash, &record.Ballot, &record.Caller, &record.OperationType, &record.Status,
		&record.ErrorTag, &record.Reason, &record.Changes, &record.Sequence, &record.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return record, err
}

// GetRecentReceipts gets the N most recent receipts of a ballot
func (s *Store) GetRecentReceipts(ballot string, limit int) ([]*ReceiptRecord, error) {
	rows, err := s.db.Query(`
		SELECT tx_hash, ballot, caller, operation_type, status, error_tag, reason, changes, sequence, created_at
		FROM receipts WHERE ballot = ?
		ORDER BY sequence DESC
		LIMIT ?
	`, ballot, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var receipts []*ReceiptRecord
	for rows.Next() {
		r := &ReceiptRecord{}
		if err := rows.Scan(
			&r.TxHash, &r.Ballot, &r.Caller, &r.OperationType, &r.Status,
			&r.ErrorTag, &r.Reason, &r.Changes, &r.Sequence, &r.CreatedAt,
		); err != nil {
			return nil, err
		}
		receipts = append(receipts, r)
	}
	return receipts, rows.Err()
}
