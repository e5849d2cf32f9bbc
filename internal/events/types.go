package events

import (
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ContractKind identifies which indexed contract emitted a log. The buy and
// sell vaults share one ABI, so the kind is the only way to tell their order
// id spaces apart.
type ContractKind string

const (
	ContractOrderbook ContractKind = "orderbook"
	ContractEscrow    ContractKind = "escrow"
	ContractBuyVault  ContractKind = "buy_vault"
	ContractSellVault ContractKind = "sell_vault"
)

// Event names as emitted on chain.
const (
	EventOrderCreated        = "OrderCreated"
	EventOrderCancelled      = "OrderCancelled"
	EventLocked              = "Locked"
	EventClaimed             = "Claimed"
	EventRefunded            = "Refunded"
	EventVaultOrderCreated   = "VaultOrderCreated"
	EventVaultOrderCancelled = "VaultOrderCancelled"
	EventVaultOrderMatched   = "VaultOrderMatched"
	EventVaultOrderFilled    = "VaultOrderFilled"
	EventVaultOrderCompleted = "VaultOrderCompleted"
)

// Event is implemented by all decoded contract event payloads.
type Event interface {
	Name() string
}

// DecodedEvent couples a decoded payload with its on-chain provenance.
type DecodedEvent struct {
	ChainID   uint64
	Contract  ContractKind
	Address   ethcommon.Address
	TxHash    ethcommon.Hash
	LogIndex  uint
	Block     uint64
	BlockHash ethcommon.Hash
	Payload   Event
}

// NewDecodedEvent builds a DecodedEvent from a raw log and its payload.
func NewDecodedEvent(chainID uint64, kind ContractKind, lg types.Log, payload Event) *DecodedEvent {
	return &DecodedEvent{
		ChainID:   chainID,
		Contract:  kind,
		Address:   lg.Address,
		TxHash:    lg.TxHash,
		LogIndex:  lg.Index,
		Block:     lg.BlockNumber,
		BlockHash: lg.BlockHash,
		Payload:   payload,
	}
}

// OrderCreated is emitted by the orderbook when a maker opens a swap order.
type OrderCreated struct {
	OrderId       *big.Int          `json:"orderId"`
	Maker         ethcommon.Address `json:"maker"`
	SellToken     ethcommon.Address `json:"sellToken"`
	SellAmount    *big.Int          `json:"sellAmount"`
	BuyToken      ethcommon.Address `json:"buyToken"`
	BuyAmount     *big.Int          `json:"buyAmount"`
	DstChainId    *big.Int          `json:"dstChainId"`
	HashLock      [32]byte          `json:"hashLock"`
	MakerTimelock *big.Int          `json:"makerTimelock"`
	TakerTimelock *big.Int          `json:"takerTimelock"`
}

func (e *OrderCreated) Name() string { return EventOrderCreated }

// OrderCancelled is emitted by the orderbook when a maker cancels an order.
type OrderCancelled struct {
	OrderId *big.Int `json:"orderId"`
}

func (e *OrderCancelled) Name() string { return EventOrderCancelled }

// Locked is emitted by the escrow when funds are locked behind a hashlock.
type Locked struct {
	LockId    [32]byte          `json:"lockId"`
	OrderId   *big.Int          `json:"orderId"`
	Depositor ethcommon.Address `json:"depositor"`
	Recipient ethcommon.Address `json:"recipient"`
	Token     ethcommon.Address `json:"token"`
	Amount    *big.Int          `json:"amount"`
	HashLock  [32]byte          `json:"hashLock"`
	Timelock  *big.Int          `json:"timelock"`
}

func (e *Locked) Name() string { return EventLocked }

// Claimed is emitted by the escrow when a lock is redeemed with its secret.
// The secret itself is not in the event; it is recovered from the claim
// transaction calldata.
type Claimed struct {
	LockId   [32]byte          `json:"lockId"`
	Claimant ethcommon.Address `json:"claimant"`
}

func (e *Claimed) Name() string { return EventClaimed }

// Refunded is emitted by the escrow when a lock is refunded after its
// timelock expires.
type Refunded struct {
	LockId [32]byte `json:"lockId"`
}

func (e *Refunded) Name() string { return EventRefunded }

// VaultOrderCreated is emitted by a vault when a pooled order is opened.
type VaultOrderCreated struct {
	OrderId    *big.Int          `json:"orderId"`
	Maker      ethcommon.Address `json:"maker"`
	SellToken  ethcommon.Address `json:"sellToken"`
	SellAmount *big.Int          `json:"sellAmount"`
	BuyToken   ethcommon.Address `json:"buyToken"`
	BuyAmount  *big.Int          `json:"buyAmount"`
	DstChainId *big.Int          `json:"dstChainId"`
}

func (e *VaultOrderCreated) Name() string { return EventVaultOrderCreated }

// VaultOrderCancelled is emitted by a vault when a pooled order is withdrawn.
type VaultOrderCancelled struct {
	OrderId *big.Int `json:"orderId"`
}

func (e *VaultOrderCancelled) Name() string { return EventVaultOrderCancelled }

// VaultOrderMatched is emitted when two opposing vault orders are paired.
type VaultOrderMatched struct {
	OrderId        *big.Int          `json:"orderId"`
	CounterOrderId *big.Int          `json:"counterOrderId"`
	Taker          ethcommon.Address `json:"taker"`
	Amount         *big.Int          `json:"amount"`
}

func (e *VaultOrderMatched) Name() string { return EventVaultOrderMatched }

// VaultOrderFilled is emitted when a taker fills a vault order directly.
type VaultOrderFilled struct {
	OrderId *big.Int          `json:"orderId"`
	Taker   ethcommon.Address `json:"taker"`
	Amount  *big.Int          `json:"amount"`
}

func (e *VaultOrderFilled) Name() string { return EventVaultOrderFilled }

// VaultOrderCompleted is emitted when a vault order settles.
type VaultOrderCompleted struct {
	OrderId *big.Int `json:"orderId"`
}

func (e *VaultOrderCompleted) Name() string { return EventVaultOrderCompleted }
