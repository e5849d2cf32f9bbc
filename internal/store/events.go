package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/russross/meddler"
)

// RecordEvent stores one observed log, keyed by (chain, tx, log index).
// Re-recording an existing event refreshes its block provenance and clears
// the removed flag, but never resets processed: entity mutations are
// idempotent, so a replayed event must not look new.
func (s *Store) RecordEvent(rec *EventRecord) (*EventRecord, error) {
	_, err := s.db.Exec(`
		INSERT INTO indexed_events (
			chain_id, tx_hash, log_index, contract_address, event_name,
			block_number, block_hash, args, order_id, processed, processed_at, removed
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, '', 0, 0, 0)
		ON CONFLICT (chain_id, tx_hash, log_index) DO UPDATE SET
			block_number = excluded.block_number,
			block_hash   = excluded.block_hash,
			args         = excluded.args,
			removed      = 0`,
		rec.ChainID,
		hashHex(rec.TxHash),
		rec.LogIndex,
		strings.ToLower(rec.ContractAddress.Hex()),
		rec.EventName,
		rec.BlockNumber,
		hashHex(rec.BlockHash),
		rec.Args,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to record event: %w", err)
	}

	return s.GetEvent(rec.ChainID, rec.TxHash, rec.LogIndex)
}

// GetEvent loads one event by its natural key.
func (s *Store) GetEvent(chainID uint64, txHash ethcommon.Hash, logIndex uint64) (*EventRecord, error) {
	rec := new(EventRecord)

	err := meddler.QueryRow(s.db, rec, `
		SELECT * FROM indexed_events
		WHERE chain_id = ? AND tx_hash = ? AND log_index = ?`,
		chainID, hashHex(txHash), logIndex,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to load event: %w", err)
	}

	return rec, nil
}

// MarkProcessed flags an event as fully applied to the derived entities.
func (s *Store) MarkProcessed(id int64) error {
	_, err := s.db.Exec(
		`UPDATE indexed_events SET processed = 1, processed_at = ? WHERE id = ?`,
		time.Now().Unix(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to mark event %d processed: %w", id, err)
	}

	return nil
}

// SetEventOrder links an event row to the order it affected.
func (s *Store) SetEventOrder(id int64, orderID string) error {
	_, err := s.db.Exec(
		`UPDATE indexed_events SET order_id = ? WHERE id = ?`,
		orderID, id,
	)
	if err != nil {
		return fmt.Errorf("failed to link event %d to order %s: %w", id, orderID, err)
	}

	return nil
}

// MarkRemovedAbove soft-deletes every event above the safe block after a
// reorg. Rows survive so a re-observed event on the canonical chain reuses
// its natural key instead of duplicating.
func (s *Store) MarkRemovedAbove(chainID, safeBlock uint64) (int64, error) {
	res, err := s.db.Exec(
		`UPDATE indexed_events SET removed = 1 WHERE chain_id = ? AND block_number > ? AND removed = 0`,
		chainID, safeBlock,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark events removed above block %d: %w", safeBlock, err)
	}

	count, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count removed events: %w", err)
	}

	return count, nil
}

// UnprocessedEvents returns events still awaiting entity mutations, oldest
// first, in on-chain order.
func (s *Store) UnprocessedEvents(chainID uint64) ([]*EventRecord, error) {
	var recs []*EventRecord

	err := meddler.QueryAll(s.db, &recs, `
		SELECT * FROM indexed_events
		WHERE chain_id = ? AND processed = 0 AND removed = 0
		ORDER BY block_number ASC, log_index ASC`,
		chainID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load unprocessed events: %w", err)
	}

	return recs, nil
}

// EventsByOrder returns all events linked to an order, in on-chain order.
func (s *Store) EventsByOrder(orderID string) ([]*EventRecord, error) {
	var recs []*EventRecord

	err := meddler.QueryAll(s.db, &recs, `
		SELECT * FROM indexed_events
		WHERE order_id = ?
		ORDER BY block_number ASC, log_index ASC`,
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load events for order %s: %w", orderID, err)
	}

	return recs, nil
}

func hashHex(h ethcommon.Hash) string {
	return strings.ToLower(h.Hex())
}
