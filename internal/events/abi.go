package events

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

const orderbookABIJSON = `[
	{"type":"event","name":"OrderCreated","inputs":[
		{"name":"orderId","type":"uint256","indexed":true},
		{"name":"maker","type":"address","indexed":true},
		{"name":"sellToken","type":"address","indexed":false},
		{"name":"sellAmount","type":"uint256","indexed":false},
		{"name":"buyToken","type":"address","indexed":false},
		{"name":"buyAmount","type":"uint256","indexed":false},
		{"name":"dstChainId","type":"uint256","indexed":false},
		{"name":"hashLock","type":"bytes32","indexed":false},
		{"name":"makerTimelock","type":"uint256","indexed":false},
		{"name":"takerTimelock","type":"uint256","indexed":false}]},
	{"type":"event","name":"OrderCancelled","inputs":[
		{"name":"orderId","type":"uint256","indexed":true}]}
]`

const escrowABIJSON = `[
	{"type":"event","name":"Locked","inputs":[
		{"name":"lockId","type":"bytes32","indexed":true},
		{"name":"orderId","type":"uint256","indexed":true},
		{"name":"depositor","type":"address","indexed":true},
		{"name":"recipient","type":"address","indexed":false},
		{"name":"token","type":"address","indexed":false},
		{"name":"amount","type":"uint256","indexed":false},
		{"name":"hashLock","type":"bytes32","indexed":false},
		{"name":"timelock","type":"uint256","indexed":false}]},
	{"type":"event","name":"Claimed","inputs":[
		{"name":"lockId","type":"bytes32","indexed":true},
		{"name":"claimant","type":"address","indexed":true}]},
	{"type":"event","name":"Refunded","inputs":[
		{"name":"lockId","type":"bytes32","indexed":true}]},
	{"type":"function","name":"claim","stateMutability":"nonpayable","inputs":[
		{"name":"lockId","type":"bytes32"},
		{"name":"secret","type":"bytes32"}],"outputs":[]}
]`

const vaultABIJSON = `[
	{"type":"event","name":"VaultOrderCreated","inputs":[
		{"name":"orderId","type":"uint256","indexed":true},
		{"name":"maker","type":"address","indexed":true},
		{"name":"sellToken","type":"address","indexed":false},
		{"name":"sellAmount","type":"uint256","indexed":false},
		{"name":"buyToken","type":"address","indexed":false},
		{"name":"buyAmount","type":"uint256","indexed":false},
		{"name":"dstChainId","type":"uint256","indexed":false}]},
	{"type":"event","name":"VaultOrderCancelled","inputs":[
		{"name":"orderId","type":"uint256","indexed":true}]},
	{"type":"event","name":"VaultOrderMatched","inputs":[
		{"name":"orderId","type":"uint256","indexed":true},
		{"name":"counterOrderId","type":"uint256","indexed":true},
		{"name":"taker","type":"address","indexed":true},
		{"name":"amount","type":"uint256","indexed":false}]},
	{"type":"event","name":"VaultOrderFilled","inputs":[
		{"name":"orderId","type":"uint256","indexed":true},
		{"name":"taker","type":"address","indexed":true},
		{"name":"amount","type":"uint256","indexed":false}]},
	{"type":"event","name":"VaultOrderCompleted","inputs":[
		{"name":"orderId","type":"uint256","indexed":true}]}
]`

var (
	orderbookABI = mustParseABI(orderbookABIJSON)
	escrowABI    = mustParseABI(escrowABIJSON)
	vaultABI     = mustParseABI(vaultABIJSON)
)

func mustParseABI(raw string) *abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("invalid embedded ABI: %v", err))
	}

	return &parsed
}

// unpackLog decodes both the data section and the indexed topics of a log
// into out, the way abigen-generated bindings do.
func unpackLog(contractABI *abi.ABI, out any, eventName string, lg types.Log) error {
	event, ok := contractABI.Events[eventName]
	if !ok {
		return fmt.Errorf("event %s not in ABI", eventName)
	}

	if len(lg.Topics) == 0 || lg.Topics[0] != event.ID {
		return fmt.Errorf("log signature does not match event %s", eventName)
	}

	if len(lg.Data) > 0 {
		if err := contractABI.UnpackIntoInterface(out, eventName, lg.Data); err != nil {
			return fmt.Errorf("failed to unpack %s data: %w", eventName, err)
		}
	}

	var indexed abi.Arguments

	for _, arg := range event.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}

	if err := abi.ParseTopics(out, indexed, lg.Topics[1:]); err != nil {
		return fmt.Errorf("failed to parse %s topics: %w", eventName, err)
	}

	return nil
}

// ExtractClaimSecret recovers the preimage from the calldata of a
// claim(bytes32 lockId, bytes32 secret) transaction.
func ExtractClaimSecret(calldata []byte) (ethcommon.Hash, error) {
	method := escrowABI.Methods["claim"]

	if len(calldata) < 4 {
		return ethcommon.Hash{}, fmt.Errorf("calldata too short: %d bytes", len(calldata))
	}

	if !strings.EqualFold(ethcommon.Bytes2Hex(calldata[:4]), ethcommon.Bytes2Hex(method.ID)) {
		return ethcommon.Hash{}, fmt.Errorf("calldata selector %x is not claim", calldata[:4])
	}

	values, err := method.Inputs.Unpack(calldata[4:])
	if err != nil {
		return ethcommon.Hash{}, fmt.Errorf("failed to unpack claim calldata: %w", err)
	}

	if len(values) != 2 {
		return ethcommon.Hash{}, fmt.Errorf("unexpected claim argument count: %d", len(values))
	}

	secret, ok := values[1].([32]byte)
	if !ok {
		return ethcommon.Hash{}, fmt.Errorf("unexpected claim secret type %T", values[1])
	}

	return ethcommon.BytesToHash(secret[:]), nil
}

// ComputeLockID derives the deterministic lock id the escrow contract
// assigns to a deposit.
func ComputeLockID(orderID string, depositor ethcommon.Address, hashLock ethcommon.Hash, chainID uint64) ethcommon.Hash {
	var buf []byte

	buf = append(buf, []byte(orderID)...)
	buf = append(buf, depositor.Bytes()...)
	buf = append(buf, hashLock.Bytes()...)
	buf = append(buf, ethcommon.LeftPadBytes(new(big.Int).SetUint64(chainID).Bytes(), 32)...)

	return crypto.Keccak256Hash(buf)
}
