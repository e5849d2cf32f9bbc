package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/russross/meddler"
)

// GetCursor returns the sync cursor for a chain, or nil when the chain has
// never been synced.
func (s *Store) GetCursor(chainID uint64) (*ChainCursor, error) {
	cursor := new(ChainCursor)

	err := meddler.QueryRow(s.db, cursor,
		`SELECT * FROM chain_cursors WHERE chain_id = ?`, chainID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to load cursor for chain %d: %w", chainID, err)
	}

	return cursor, nil
}

// SaveCursor records the last fully processed block for a chain.
func (s *Store) SaveCursor(chainID, blockNumber uint64, blockHash ethcommon.Hash) error {
	_, err := s.db.Exec(`
		INSERT INTO chain_cursors (chain_id, last_block_number, last_block_hash, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (chain_id) DO UPDATE SET
			last_block_number = excluded.last_block_number,
			last_block_hash   = excluded.last_block_hash,
			updated_at        = excluded.updated_at`,
		chainID, blockNumber, hashHex(blockHash), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save cursor for chain %d: %w", chainID, err)
	}

	return nil
}
