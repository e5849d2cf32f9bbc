package store

import (
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

// Flow identifies which contract family an order belongs to.
type Flow string

const (
	FlowEscrow    Flow = "escrow"
	FlowBuyVault  Flow = "buy_vault"
	FlowSellVault Flow = "sell_vault"
)

// Vault order ids live in their own numeric ranges so orderbook ids and the
// two vault id spaces never collide in the orders table.
const (
	BuyVaultIDOffset  uint64 = 1_000_000_000
	SellVaultIDOffset uint64 = 2_000_000_000
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusOpen        OrderStatus = "OPEN"
	OrderStatusMakerLocked OrderStatus = "MAKER_LOCKED"
	OrderStatusTakerLocked OrderStatus = "TAKER_LOCKED"
	OrderStatusMatched     OrderStatus = "MATCHED"
	OrderStatusFilled      OrderStatus = "FILLED"
	OrderStatusCompleted   OrderStatus = "COMPLETED"
	OrderStatusCancelled   OrderStatus = "CANCELLED"
	OrderStatusRefunded    OrderStatus = "REFUNDED"
)

// statusRank orders the forward path of each flow. Higher rank never moves
// back to a lower one; CANCELLED and REFUNDED are terminal branches applied
// outside the rank ordering.
var statusRank = map[OrderStatus]int{
	OrderStatusOpen:        0,
	OrderStatusMakerLocked: 1,
	OrderStatusMatched:     1,
	OrderStatusTakerLocked: 2,
	OrderStatusFilled:      2,
	OrderStatusCompleted:   3,
}

// StatusAdvances reports whether moving from current to next is a forward
// transition. Terminal states never advance.
func StatusAdvances(current, next OrderStatus) bool {
	if current == OrderStatusCancelled || current == OrderStatusRefunded || current == OrderStatusCompleted {
		return false
	}

	currentRank, ok := statusRank[current]
	if !ok {
		return false
	}

	nextRank, ok := statusRank[next]
	if !ok {
		return false
	}

	return nextRank > currentRank
}

// EscrowStatus is the lifecycle state of a single HTLC lock.
type EscrowStatus string

const (
	EscrowStatusLocked   EscrowStatus = "LOCKED"
	EscrowStatusClaimed  EscrowStatus = "CLAIMED"
	EscrowStatusRefunded EscrowStatus = "REFUNDED"
)

// EventRecord is one observed contract log.
type EventRecord struct {
	ID              int64             `meddler:"id,pk"`
	ChainID         uint64            `meddler:"chain_id"`
	TxHash          ethcommon.Hash    `meddler:"tx_hash,hash"`
	LogIndex        uint64            `meddler:"log_index"`
	ContractAddress ethcommon.Address `meddler:"contract_address,address"`
	EventName       string            `meddler:"event_name"`
	BlockNumber     uint64            `meddler:"block_number"`
	BlockHash       ethcommon.Hash    `meddler:"block_hash,hash"`
	Args            string            `meddler:"args"`
	OrderID         string            `meddler:"order_id"`
	Processed       bool              `meddler:"processed"`
	ProcessedAt     int64             `meddler:"processed_at"`
	Removed         bool              `meddler:"removed"`
}

// ChainCursor is the per-chain sync position.
type ChainCursor struct {
	ChainID         uint64         `meddler:"chain_id"`
	LastBlockNumber uint64         `meddler:"last_block_number"`
	LastBlockHash   ethcommon.Hash `meddler:"last_block_hash,hash"`
	UpdatedAt       int64          `meddler:"updated_at"`
}

// Order is one cross-chain swap order, from any of the three flows.
type Order struct {
	ID             int64             `meddler:"id,pk"`
	OrderID        string            `meddler:"order_id"`
	Flow           Flow              `meddler:"flow"`
	Maker          ethcommon.Address `meddler:"maker,address"`
	Taker          string            `meddler:"taker"`
	SellToken      string            `meddler:"sell_token"`
	BuyToken       string            `meddler:"buy_token"`
	SellAmount     *big.Int          `meddler:"sell_amount,bigint"`
	BuyAmount      *big.Int          `meddler:"buy_amount,bigint"`
	FilledAmount   *big.Int          `meddler:"filled_amount,bigint"`
	CounterOrderID string            `meddler:"counter_order_id"`
	SrcChainID     uint64            `meddler:"src_chain_id"`
	DstChainID     uint64            `meddler:"dst_chain_id"`
	HashLock       string            `meddler:"hash_lock"`
	Secret         string            `meddler:"secret"`
	MakerTimelock  int64             `meddler:"maker_timelock"`
	TakerTimelock  int64             `meddler:"taker_timelock"`
	Status         OrderStatus       `meddler:"status"`
	Cancelled      bool              `meddler:"cancelled"`
	TxHash         ethcommon.Hash    `meddler:"tx_hash,hash"`
	BlockNumber    uint64            `meddler:"block_number"`
	LogIndex       uint64            `meddler:"log_index"`
	CreatedAt      int64             `meddler:"created_at"`
	UpdatedAt      int64             `meddler:"updated_at"`
}

// Escrow is one HTLC lock tied to an order.
type Escrow struct {
	ID          int64             `meddler:"id,pk"`
	LockID      string            `meddler:"lock_id"`
	OrderID     string            `meddler:"order_id"`
	ChainID     uint64            `meddler:"chain_id"`
	Depositor   ethcommon.Address `meddler:"depositor,address"`
	Recipient   string            `meddler:"recipient"`
	Token       string            `meddler:"token"`
	Amount      *big.Int          `meddler:"amount,bigint"`
	HashLock    string            `meddler:"hash_lock"`
	Timelock    int64             `meddler:"timelock"`
	Status      EscrowStatus      `meddler:"status"`
	Secret      string            `meddler:"secret"`
	TxHash      ethcommon.Hash    `meddler:"tx_hash,hash"`
	BlockNumber uint64            `meddler:"block_number"`
	LogIndex    uint64            `meddler:"log_index"`
	UpdatedAt   int64             `meddler:"updated_at"`
}

// User holds aggregate counters per address.
type User struct {
	ID              int64    `meddler:"id,pk"`
	Address         string   `meddler:"address"`
	OrdersCreated   uint64   `meddler:"orders_created"`
	OrdersCompleted uint64   `meddler:"orders_completed"`
	TotalVolume     *big.Int `meddler:"total_volume,bigint"`
}
