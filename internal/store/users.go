package store

import (
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/russross/meddler"
)

// GetUser returns the aggregate counters for an address, or nil when the
// address has never been seen.
func (s *Store) GetUser(address string) (*User, error) {
	user := new(User)

	err := meddler.QueryRow(s.db, user,
		`SELECT * FROM users WHERE address = ?`, strings.ToLower(address))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to load user %s: %w", address, err)
	}

	return user, nil
}

// IncOrdersCreated bumps the created-orders counter for an address.
func (s *Store) IncOrdersCreated(address string) error {
	_, err := s.db.Exec(`
		INSERT INTO users (address, orders_created, orders_completed, total_volume)
		VALUES (?, 1, 0, '0')
		ON CONFLICT (address) DO UPDATE SET orders_created = orders_created + 1`,
		strings.ToLower(address),
	)
	if err != nil {
		return fmt.Errorf("failed to increment created orders for %s: %w", address, err)
	}

	return nil
}

// IncOrdersCompleted bumps the completed-orders counter for an address.
func (s *Store) IncOrdersCompleted(address string) error {
	_, err := s.db.Exec(`
		INSERT INTO users (address, orders_created, orders_completed, total_volume)
		VALUES (?, 0, 1, '0')
		ON CONFLICT (address) DO UPDATE SET orders_completed = orders_completed + 1`,
		strings.ToLower(address),
	)
	if err != nil {
		return fmt.Errorf("failed to increment completed orders for %s: %w", address, err)
	}

	return nil
}

// AddVolume adds a settled amount to an address's lifetime volume.
// SQLite integers cannot hold uint256 sums, so the total is kept as a
// decimal string and the addition happens here.
func (s *Store) AddVolume(address string, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}

	addr := strings.ToLower(address)

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin volume update: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.Exec(`
		INSERT INTO users (address, orders_created, orders_completed, total_volume)
		VALUES (?, 0, 0, '0')
		ON CONFLICT (address) DO NOTHING`,
		addr,
	)
	if err != nil {
		return fmt.Errorf("failed to ensure user %s: %w", address, err)
	}

	var current string
	if err := tx.QueryRow(
		`SELECT total_volume FROM users WHERE address = ?`, addr,
	).Scan(&current); err != nil {
		return fmt.Errorf("failed to read volume for %s: %w", address, err)
	}

	total, ok := new(big.Int).SetString(current, 10)
	if !ok {
		return fmt.Errorf("invalid stored volume %q for %s", current, address)
	}

	total.Add(total, amount)

	if _, err := tx.Exec(
		`UPDATE users SET total_volume = ? WHERE address = ?`, total.String(), addr,
	); err != nil {
		return fmt.Errorf("failed to update volume for %s: %w", address, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit volume update: %w", err)
	}

	return nil
}
