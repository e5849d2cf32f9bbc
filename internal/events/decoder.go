package events

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/openswap-labs/swapsync/internal/logger"
)

// ErrUnknownEvent is returned when a log's first topic does not match any
// event signature the indexer knows about.
var ErrUnknownEvent = errors.New("unknown event signature")

type eventSpec struct {
	name       string
	abi        *abi.ABI
	newPayload func() Event
}

// Decoder turns raw logs into typed event payloads by matching the first
// topic against the embedded contract ABIs.
type Decoder struct {
	log   *logger.Logger
	specs map[ethcommon.Hash]eventSpec
}

// NewDecoder creates a Decoder covering all orderbook, escrow and vault events.
func NewDecoder(log *logger.Logger) *Decoder {
	d := &Decoder{
		log:   log,
		specs: make(map[ethcommon.Hash]eventSpec),
	}

	d.register(orderbookABI, EventOrderCreated, func() Event { return new(OrderCreated) })
	d.register(orderbookABI, EventOrderCancelled, func() Event { return new(OrderCancelled) })
	d.register(escrowABI, EventLocked, func() Event { return new(Locked) })
	d.register(escrowABI, EventClaimed, func() Event { return new(Claimed) })
	d.register(escrowABI, EventRefunded, func() Event { return new(Refunded) })
	d.register(vaultABI, EventVaultOrderCreated, func() Event { return new(VaultOrderCreated) })
	d.register(vaultABI, EventVaultOrderCancelled, func() Event { return new(VaultOrderCancelled) })
	d.register(vaultABI, EventVaultOrderMatched, func() Event { return new(VaultOrderMatched) })
	d.register(vaultABI, EventVaultOrderFilled, func() Event { return new(VaultOrderFilled) })
	d.register(vaultABI, EventVaultOrderCompleted, func() Event { return new(VaultOrderCompleted) })

	return d
}

func (d *Decoder) register(contractABI *abi.ABI, name string, newPayload func() Event) {
	event, ok := contractABI.Events[name]
	if !ok {
		panic(fmt.Sprintf("event %s not in embedded ABI", name))
	}

	d.specs[event.ID] = eventSpec{
		name:       name,
		abi:        contractABI,
		newPayload: newPayload,
	}
}

// Decode turns a raw log from a known contract into a DecodedEvent.
// Logs whose signature is not recognized return ErrUnknownEvent.
func (d *Decoder) Decode(chainID uint64, kind ContractKind, lg types.Log) (*DecodedEvent, error) {
	if len(lg.Topics) == 0 {
		return nil, ErrUnknownEvent
	}

	spec, ok := d.specs[lg.Topics[0]]
	if !ok {
		return nil, ErrUnknownEvent
	}

	payload := spec.newPayload()

	if err := unpackLog(spec.abi, payload, spec.name, lg); err != nil {
		return nil, fmt.Errorf("failed to decode %s log in tx %s: %w", spec.name, lg.TxHash, err)
	}

	return NewDecodedEvent(chainID, kind, lg, payload), nil
}

// NewPayload returns a fresh zero payload for the given event name, used when
// replaying stored events.
func (d *Decoder) NewPayload(name string) (Event, bool) {
	for _, spec := range d.specs {
		if spec.name == name {
			return spec.newPayload(), true
		}
	}

	return nil, false
}
