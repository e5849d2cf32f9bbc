package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/russross/meddler"
)

// GetEscrow returns an escrow by its lock id, or nil when unknown.
func (s *Store) GetEscrow(lockID string) (*Escrow, error) {
	escrow := new(Escrow)

	err := meddler.QueryRow(s.db, escrow,
		`SELECT * FROM escrows WHERE lock_id = ?`, lockID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to load escrow %s: %w", lockID, err)
	}

	return escrow, nil
}

// EscrowsByOrder returns all escrows tied to an order, oldest lock first.
func (s *Store) EscrowsByOrder(orderID string) ([]*Escrow, error) {
	var escrows []*Escrow

	err := meddler.QueryAll(s.db, &escrows,
		`SELECT * FROM escrows WHERE order_id = ? ORDER BY block_number ASC, log_index ASC`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load escrows for order %s: %w", orderID, err)
	}

	return escrows, nil
}

// InsertEscrow stores a newly observed lock.
func (s *Store) InsertEscrow(escrow *Escrow) error {
	escrow.UpdatedAt = time.Now().Unix()

	if err := meddler.Insert(s.db, "escrows", escrow); err != nil {
		return fmt.Errorf("failed to insert escrow %s: %w", escrow.LockID, err)
	}

	return nil
}

// SaveEscrow persists changes to an existing escrow.
func (s *Store) SaveEscrow(escrow *Escrow) error {
	escrow.UpdatedAt = time.Now().Unix()

	if err := meddler.Update(s.db, "escrows", escrow); err != nil {
		return fmt.Errorf("failed to update escrow %s: %w", escrow.LockID, err)
	}

	return nil
}
