package store

import (
	"database/sql"

	"github.com/openswap-labs/swapsync/internal/logger"
)

// Store persists indexed events, sync cursors and the derived swap entities.
// All writes happen from the per-chain sync loops; SQLite serializes them.
type Store struct {
	db  *sql.DB
	log *logger.Logger
}

// New creates a Store on top of an open database.
func New(database *sql.DB, log *logger.Logger) *Store {
	return &Store{
		db:  database,
		log: log,
	}
}

// DB exposes the underlying handle for migrations and tests.
func (s *Store) DB() *sql.DB {
	return s.db
}
