package syncer

import (
	"fmt"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

// ReorgDetectedError signals that the block the cursor points at is no
// longer on the canonical chain. It carries the rewind target so recovery
// does not need another header fetch.
type ReorgDetectedError struct {
	ChainID         uint64
	BlockNumber     uint64
	StoredHash      ethcommon.Hash
	CanonicalHash   ethcommon.Hash
	SafeBlockNumber uint64
	SafeBlockHash   ethcommon.Hash
}

func (e *ReorgDetectedError) Error() string {
	return fmt.Sprintf("reorg detected on chain %d at block %d: stored hash %s, canonical hash %s",
		e.ChainID, e.BlockNumber, e.StoredHash, e.CanonicalHash)
}
