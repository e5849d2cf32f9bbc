package handlers

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/openswap-labs/swapsync/internal/events"
	"github.com/openswap-labs/swapsync/internal/logger"
	"github.com/openswap-labs/swapsync/internal/rpc"
	"github.com/openswap-labs/swapsync/internal/store"
)

// Handlers applies decoded contract events to the derived swap entities.
// Every handler records the raw event before mutating anything, so a crash
// between the two steps is repaired by the unprocessed-event replay on the
// next cycle.
type Handlers struct {
	store   *store.Store
	clients *rpc.Registry
	log     *logger.Logger
}

// New creates the handler set.
func New(st *store.Store, clients *rpc.Registry, log *logger.Logger) *Handlers {
	return &Handlers{
		store:   st,
		clients: clients,
		log:     log,
	}
}

// RegisterAll binds every handler to its event name on the dispatcher.
func (h *Handlers) RegisterAll(d *events.Dispatcher) {
	d.Register(events.EventOrderCreated, h.handleOrderCreated)
	d.Register(events.EventOrderCancelled, h.handleOrderCancelled)
	d.Register(events.EventLocked, h.handleLocked)
	d.Register(events.EventClaimed, h.handleClaimed)
	d.Register(events.EventRefunded, h.handleRefunded)
	d.Register(events.EventVaultOrderCreated, h.handleVaultOrderCreated)
	d.Register(events.EventVaultOrderCancelled, h.handleVaultOrderCancelled)
	d.Register(events.EventVaultOrderMatched, h.handleVaultOrderMatched)
	d.Register(events.EventVaultOrderFilled, h.handleVaultOrderFilled)
	d.Register(events.EventVaultOrderCompleted, h.handleVaultOrderCompleted)
}

// recordEvent persists the raw event and returns its row. A row that is
// already processed means the mutations below have been applied; callers
// must treat that as a no-op redelivery.
func (h *Handlers) recordEvent(evt *events.DecodedEvent) (*store.EventRecord, error) {
	args, err := json.Marshal(evt.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s args: %w", evt.Payload.Name(), err)
	}

	return h.store.RecordEvent(&store.EventRecord{
		ChainID:         evt.ChainID,
		TxHash:          evt.TxHash,
		LogIndex:        uint64(evt.LogIndex),
		ContractAddress: evt.Address,
		EventName:       evt.Payload.Name(),
		BlockNumber:     evt.Block,
		BlockHash:       evt.BlockHash,
		Args:            string(args),
	})
}

// finish links the event to its order and flags it processed.
func (h *Handlers) finish(rec *store.EventRecord, orderID string) error {
	if orderID != "" && rec.OrderID != orderID {
		if err := h.store.SetEventOrder(rec.ID, orderID); err != nil {
			return err
		}
	}

	return h.store.MarkProcessed(rec.ID)
}

// orderIDFor maps an on-chain order id to its storage key. Each vault gets
// its own numeric range so the three contract id spaces never collide.
func orderIDFor(kind events.ContractKind, raw *big.Int) string {
	var offset uint64

	switch kind {
	case events.ContractBuyVault:
		offset = store.BuyVaultIDOffset
	case events.ContractSellVault:
		offset = store.SellVaultIDOffset
	default:
		return raw.String()
	}

	return new(big.Int).Add(raw, new(big.Int).SetUint64(offset)).String()
}

// counterOrderIDFor maps a matched counter-order id, which always lives in
// the opposite vault's id space.
func counterOrderIDFor(kind events.ContractKind, raw *big.Int) string {
	switch kind {
	case events.ContractBuyVault:
		return orderIDFor(events.ContractSellVault, raw)
	case events.ContractSellVault:
		return orderIDFor(events.ContractBuyVault, raw)
	default:
		return raw.String()
	}
}

func addrHex(addr ethcommon.Address) string {
	return strings.ToLower(addr.Hex())
}

func hashHex(b [32]byte) string {
	return strings.ToLower(ethcommon.BytesToHash(b[:]).Hex())
}
