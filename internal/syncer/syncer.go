package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/openswap-labs/swapsync/internal/events"
	"github.com/openswap-labs/swapsync/internal/fetcher"
	"github.com/openswap-labs/swapsync/internal/logger"
	"github.com/openswap-labs/swapsync/internal/metrics"
	"github.com/openswap-labs/swapsync/internal/rpc"
	"github.com/openswap-labs/swapsync/internal/store"
	"github.com/openswap-labs/swapsync/pkg/config"
)

// Syncer drives one chain: it replays pending events, verifies the cursor is
// still canonical, rewinds after reorgs and catches up to the confirmed head
// in bounded sub-ranges, checkpointing the cursor after each one.
type Syncer struct {
	chain      config.ChainConfig
	syncCfg    config.SyncConfig
	client     rpc.EthClient
	fetcher    *fetcher.LogFetcher
	decoder    *events.Decoder
	dispatcher *events.Dispatcher
	store      *store.Store
	log        *logger.Logger

	addresses []ethcommon.Address
	kinds     map[ethcommon.Address]events.ContractKind

	mu      sync.Mutex
	syncing bool
}

// NewSyncer creates the sync driver for one configured chain.
func NewSyncer(
	chain config.ChainConfig,
	syncCfg config.SyncConfig,
	client rpc.EthClient,
	logFetcher *fetcher.LogFetcher,
	decoder *events.Decoder,
	dispatcher *events.Dispatcher,
	st *store.Store,
	log *logger.Logger,
) *Syncer {
	kinds := make(map[ethcommon.Address]events.ContractKind)

	register := func(raw string, kind events.ContractKind) {
		if raw != "" {
			kinds[ethcommon.HexToAddress(raw)] = kind
		}
	}

	register(chain.Contracts.Orderbook, events.ContractOrderbook)
	register(chain.Contracts.Escrow, events.ContractEscrow)
	register(chain.Contracts.BuyVault, events.ContractBuyVault)
	register(chain.Contracts.SellVault, events.ContractSellVault)

	addresses := make([]ethcommon.Address, 0, len(kinds))
	for addr := range kinds {
		addresses = append(addresses, addr)
	}

	return &Syncer{
		chain:      chain,
		syncCfg:    syncCfg,
		client:     client,
		fetcher:    logFetcher,
		decoder:    decoder,
		dispatcher: dispatcher,
		store:      st,
		log:        log.WithChain(chain.ChainID),
		addresses:  addresses,
		kinds:      kinds,
	}
}

// ChainID returns the chain this syncer drives.
func (s *Syncer) ChainID() uint64 {
	return s.chain.ChainID
}

// SyncCycle runs one full pass for the chain. Overlapping cycles are
// coalesced: if one is already running the call is a no-op.
func (s *Syncer) SyncCycle(ctx context.Context) error {
	s.mu.Lock()
	if s.syncing {
		s.mu.Unlock()
		s.log.Debugf("sync already in progress, skipping cycle")

		return nil
	}

	s.syncing = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.syncing = false
		s.mu.Unlock()
	}()

	start := time.Now()

	if err := s.replayUnprocessed(ctx); err != nil {
		return err
	}

	if err := s.checkCursor(ctx); err != nil {
		var reorg *ReorgDetectedError
		if !errors.As(err, &reorg) {
			return err
		}

		if err := s.handleReorg(reorg); err != nil {
			return err
		}
	}

	if err := s.catchUp(ctx); err != nil {
		return err
	}

	metrics.SyncCycleObserve(s.chain.ChainID, time.Since(start).Seconds())

	return nil
}

// checkCursor re-fetches the cursor block and returns a ReorgDetectedError
// when its hash no longer matches the one recorded at sync time. The rewind
// target is batched into the same call so recovery costs no extra round trip.
func (s *Syncer) checkCursor(ctx context.Context) error {
	cursor, err := s.store.GetCursor(s.chain.ChainID)
	if err != nil {
		return err
	}

	if cursor == nil {
		return nil
	}

	safeBlock := s.chain.StartBlock
	if cursor.LastBlockNumber > s.syncCfg.ReorgToleranceBlocks {
		if rewound := cursor.LastBlockNumber - s.syncCfg.ReorgToleranceBlocks; rewound > safeBlock {
			safeBlock = rewound
		}
	}

	blockNums := []uint64{cursor.LastBlockNumber}
	if safeBlock != cursor.LastBlockNumber {
		blockNums = append(blockNums, safeBlock)
	}

	headers, err := s.client.BatchGetBlockHeaders(ctx, blockNums)
	if err != nil {
		return fmt.Errorf("failed to fetch cursor block %d: %w", cursor.LastBlockNumber, err)
	}

	if len(headers) != len(blockNums) || headers[0] == nil {
		return fmt.Errorf("cursor block %d not found on chain %d", cursor.LastBlockNumber, s.chain.ChainID)
	}

	if headers[0].Hash() == cursor.LastBlockHash {
		return nil
	}

	safeHeader := headers[0]
	if len(headers) > 1 {
		if headers[1] == nil {
			return fmt.Errorf("safe block %d not found on chain %d", safeBlock, s.chain.ChainID)
		}

		safeHeader = headers[1]
	}

	return &ReorgDetectedError{
		ChainID:         s.chain.ChainID,
		BlockNumber:     cursor.LastBlockNumber,
		StoredHash:      cursor.LastBlockHash,
		CanonicalHash:   headers[0].Hash(),
		SafeBlockNumber: safeBlock,
		SafeBlockHash:   safeHeader.Hash(),
	}
}

// handleReorg rewinds the cursor to the safe block and soft-removes all
// events above it. The affected range is re-fetched by the following
// catch-up; derived entity states are not rolled back, re-observed events
// reconverge them.
func (s *Syncer) handleReorg(reorg *ReorgDetectedError) error {
	metrics.ReorgDetectedInc(s.chain.ChainID)

	removed, err := s.store.MarkRemovedAbove(s.chain.ChainID, reorg.SafeBlockNumber)
	if err != nil {
		return err
	}

	if err := s.store.SaveCursor(s.chain.ChainID, reorg.SafeBlockNumber, reorg.SafeBlockHash); err != nil {
		return err
	}

	s.log.Warnw("reorg detected, cursor rewound",
		"mismatch_block", reorg.BlockNumber,
		"safe_block", reorg.SafeBlockNumber,
		"events_removed", removed,
	)

	return nil
}

// catchUp processes every confirmed block past the cursor in bounded
// sub-ranges, saving the cursor after each so a crash loses at most one
// sub-range of work.
func (s *Syncer) catchUp(ctx context.Context) error {
	head, err := s.client.GetLatestBlockHeader(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch latest block: %w", err)
	}

	headNum := head.Number.Uint64()
	if headNum < s.chain.Confirmations {
		return nil
	}

	safeHead := headNum - s.chain.Confirmations

	cursor, err := s.store.GetCursor(s.chain.ChainID)
	if err != nil {
		return err
	}

	from := s.chain.StartBlock
	if cursor != nil {
		from = cursor.LastBlockNumber + 1
	}

	if from > safeHead {
		return nil
	}

	for from <= safeHead {
		if err := ctx.Err(); err != nil {
			return err
		}

		to := min(from+s.syncCfg.MaxBlocksPerQuery-1, safeHead)

		if err := s.processRange(ctx, from, to); err != nil {
			return err
		}

		from = to + 1
	}

	return nil
}

// processRange fetches, decodes and dispatches all logs in one inclusive
// sub-range, then checkpoints the cursor at its end.
func (s *Syncer) processRange(ctx context.Context, fromBlock, toBlock uint64) error {
	logs, err := s.fetcher.FetchLogs(ctx, s.client, s.addresses, fromBlock, toBlock)
	if err != nil {
		return fmt.Errorf("failed to fetch logs for range %d-%d: %w", fromBlock, toBlock, err)
	}

	for _, lg := range logs {
		if lg.Removed {
			continue
		}

		kind, ok := s.kinds[lg.Address]
		if !ok {
			continue
		}

		evt, err := s.decoder.Decode(s.chain.ChainID, kind, lg)
		if err != nil {
			if errors.Is(err, events.ErrUnknownEvent) {
				s.log.Warnf("unknown event signature in tx %s, log %d, skipping", lg.TxHash, lg.Index)
			} else {
				s.log.Warnf("undecodable log in tx %s, log %d: %v, skipping", lg.TxHash, lg.Index, err)
			}

			metrics.EventSkippedInc(s.chain.ChainID)

			continue
		}

		if err := s.dispatcher.Dispatch(ctx, evt); err != nil {
			return err
		}

		metrics.EventIndexedInc(s.chain.ChainID, evt.Payload.Name())
	}

	endHeader, err := s.client.GetBlockHeader(ctx, toBlock)
	if err != nil {
		return fmt.Errorf("failed to fetch block %d for checkpoint: %w", toBlock, err)
	}

	if err := s.store.SaveCursor(s.chain.ChainID, toBlock, endHeader.Hash()); err != nil {
		return err
	}

	metrics.CursorHeightSet(s.chain.ChainID, toBlock)
	metrics.BlocksSyncedAdd(s.chain.ChainID, toBlock-fromBlock+1)

	s.log.Debugw("range processed", "from", fromBlock, "to", toBlock, "logs", len(logs))

	return nil
}

// replayUnprocessed re-dispatches stored events whose entity mutations have
// not landed yet: interrupted handlers after a crash and events that arrived
// before the entity they reference.
func (s *Syncer) replayUnprocessed(ctx context.Context) error {
	recs, err := s.store.UnprocessedEvents(s.chain.ChainID)
	if err != nil {
		return err
	}

	for _, rec := range recs {
		if err := ctx.Err(); err != nil {
			return err
		}

		kind, ok := s.kinds[rec.ContractAddress]
		if !ok {
			continue
		}

		payload, ok := s.decoder.NewPayload(rec.EventName)
		if !ok {
			s.log.Warnf("stored event %d has unknown name %s, skipping replay", rec.ID, rec.EventName)

			continue
		}

		if err := json.Unmarshal([]byte(rec.Args), payload); err != nil {
			s.log.Warnf("stored event %d has undecodable args: %v, skipping replay", rec.ID, err)

			continue
		}

		evt := &events.DecodedEvent{
			ChainID:   rec.ChainID,
			Contract:  kind,
			Address:   rec.ContractAddress,
			TxHash:    rec.TxHash,
			LogIndex:  uint(rec.LogIndex),
			Block:     rec.BlockNumber,
			BlockHash: rec.BlockHash,
			Payload:   payload,
		}

		if err := s.dispatcher.Dispatch(ctx, evt); err != nil {
			s.log.Warnf("replay of event %d failed: %v", rec.ID, err)
		}
	}

	return nil
}
