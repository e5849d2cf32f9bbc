package events

import (
	"encoding/json"
	"math/big"
	"testing"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/openswap-labs/swapsync/internal/logger"
	"github.com/stretchr/testify/require"
)

func orderCreatedLog(t *testing.T, orderID int64, maker ethcommon.Address) types.Log {
	t.Helper()

	event := orderbookABI.Events[EventOrderCreated]

	data, err := event.Inputs.NonIndexed().Pack(
		ethcommon.HexToAddress("0x1000000000000000000000000000000000000001"), // sellToken
		big.NewInt(1000),               // sellAmount
		ethcommon.HexToAddress("0x1000000000000000000000000000000000000002"), // buyToken
		big.NewInt(2000),               // buyAmount
		big.NewInt(137),                // dstChainId
		[32]byte(ethcommon.HexToHash("0xbeef")), // hashLock
		big.NewInt(3600),               // makerTimelock
		big.NewInt(7200),               // takerTimelock
	)
	require.NoError(t, err)

	return types.Log{
		Address: ethcommon.HexToAddress("0x2000000000000000000000000000000000000001"),
		Topics: []ethcommon.Hash{
			event.ID,
			ethcommon.BigToHash(big.NewInt(orderID)),
			ethcommon.BytesToHash(ethcommon.LeftPadBytes(maker.Bytes(), 32)),
		},
		Data:        data,
		BlockNumber: 100,
		TxHash:      ethcommon.HexToHash("0x01"),
		Index:       3,
	}
}

func TestDecoder_OrderCreated(t *testing.T) {
	t.Parallel()

	d := NewDecoder(logger.NewNopLogger())

	maker := ethcommon.HexToAddress("0xabc0000000000000000000000000000000000001")
	lg := orderCreatedLog(t, 42, maker)

	evt, err := d.Decode(1, ContractOrderbook, lg)
	require.NoError(t, err)
	require.EqualValues(t, 1, evt.ChainID)
	require.Equal(t, ContractOrderbook, evt.Contract)
	require.EqualValues(t, 100, evt.Block)
	require.EqualValues(t, 3, evt.LogIndex)

	payload, ok := evt.Payload.(*OrderCreated)
	require.True(t, ok)
	require.EqualValues(t, 42, payload.OrderId.Int64())
	require.Equal(t, maker, payload.Maker)
	require.EqualValues(t, 1000, payload.SellAmount.Int64())
	require.EqualValues(t, 137, payload.DstChainId.Int64())
	require.Equal(t, ethcommon.HexToHash("0xbeef"), ethcommon.BytesToHash(payload.HashLock[:]))
	require.EqualValues(t, 3600, payload.MakerTimelock.Int64())
}

func TestDecoder_UnknownSignature(t *testing.T) {
	t.Parallel()

	d := NewDecoder(logger.NewNopLogger())

	lg := types.Log{
		Topics: []ethcommon.Hash{ethcommon.HexToHash("0xdeadbeef")},
	}

	_, err := d.Decode(1, ContractOrderbook, lg)
	require.ErrorIs(t, err, ErrUnknownEvent)

	_, err = d.Decode(1, ContractOrderbook, types.Log{})
	require.ErrorIs(t, err, ErrUnknownEvent)
}

func TestDecoder_EscrowEvents(t *testing.T) {
	t.Parallel()

	d := NewDecoder(logger.NewNopLogger())

	lockID := ethcommon.HexToHash("0x11ff")
	claimant := ethcommon.HexToAddress("0xabc0000000000000000000000000000000000002")
	event := escrowABI.Events[EventClaimed]

	lg := types.Log{
		Topics: []ethcommon.Hash{
			event.ID,
			lockID,
			ethcommon.BytesToHash(ethcommon.LeftPadBytes(claimant.Bytes(), 32)),
		},
	}

	evt, err := d.Decode(1, ContractEscrow, lg)
	require.NoError(t, err)

	payload, ok := evt.Payload.(*Claimed)
	require.True(t, ok)
	require.Equal(t, lockID, ethcommon.BytesToHash(payload.LockId[:]))
	require.Equal(t, claimant, payload.Claimant)
}

func TestDecoder_PayloadJSONRoundTrip(t *testing.T) {
	t.Parallel()

	d := NewDecoder(logger.NewNopLogger())

	maker := ethcommon.HexToAddress("0xabc0000000000000000000000000000000000001")
	lg := orderCreatedLog(t, 7, maker)

	evt, err := d.Decode(1, ContractOrderbook, lg)
	require.NoError(t, err)

	args, err := json.Marshal(evt.Payload)
	require.NoError(t, err)

	fresh, ok := d.NewPayload(EventOrderCreated)
	require.True(t, ok)
	require.NoError(t, json.Unmarshal(args, fresh))
	require.Equal(t, evt.Payload, fresh)

	_, ok = d.NewPayload("NoSuchEvent")
	require.False(t, ok)
}

func TestExtractClaimSecret(t *testing.T) {
	t.Parallel()

	lockID := [32]byte(ethcommon.HexToHash("0x11ff"))
	secret := [32]byte(ethcommon.HexToHash("0x5ec7e7"))

	method := escrowABI.Methods["claim"]
	packed, err := method.Inputs.Pack(lockID, secret)
	require.NoError(t, err)

	calldata := append(method.ID, packed...)

	got, err := ExtractClaimSecret(calldata)
	require.NoError(t, err)
	require.Equal(t, ethcommon.HexToHash("0x5ec7e7"), got)

	_, err = ExtractClaimSecret([]byte{0x01, 0x02})
	require.Error(t, err)

	// Wrong selector.
	bad := append([]byte{0xde, 0xad, 0xbe, 0xef}, packed...)
	_, err = ExtractClaimSecret(bad)
	require.Error(t, err)
}

func TestComputeLockID(t *testing.T) {
	t.Parallel()

	depositor := ethcommon.HexToAddress("0xaaa0000000000000000000000000000000000001")
	hashLock := ethcommon.HexToHash("0x6a51")

	id := ComputeLockID("42", depositor, hashLock, 1)
	require.Equal(t, id, ComputeLockID("42", depositor, hashLock, 1))

	// Every input participates in the derivation.
	require.NotEqual(t, id, ComputeLockID("43", depositor, hashLock, 1))
	require.NotEqual(t, id, ComputeLockID("42", ethcommon.HexToAddress("0xbbb0000000000000000000000000000000000002"), hashLock, 1))
	require.NotEqual(t, id, ComputeLockID("42", depositor, ethcommon.HexToHash("0x6a52"), 1))
	require.NotEqual(t, id, ComputeLockID("42", depositor, hashLock, 137))
}
