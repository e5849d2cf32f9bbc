package store

import (
	"math/big"
	"path/filepath"
	"testing"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/openswap-labs/swapsync/internal/db"
	"github.com/openswap-labs/swapsync/internal/logger"
	"github.com/openswap-labs/swapsync/internal/migrations"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	database, err := db.NewSQLiteDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	t.Cleanup(func() { database.Close() })

	require.NoError(t, migrations.RunMigrationsDB(logger.NewNopLogger(), database))

	return New(database, logger.NewNopLogger())
}

func testEvent(chainID uint64, txHash string, logIndex, block uint64) *EventRecord {
	return &EventRecord{
		ChainID:         chainID,
		TxHash:          ethcommon.HexToHash(txHash),
		LogIndex:        logIndex,
		ContractAddress: ethcommon.HexToAddress("0x1111111111111111111111111111111111111111"),
		EventName:       "OrderCreated",
		BlockNumber:     block,
		BlockHash:       ethcommon.HexToHash("0xaa"),
		Args:            `{"orderId":1}`,
	}
}

func TestRecordEvent_Idempotent(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)

	first, err := s.RecordEvent(testEvent(1, "0x01", 0, 100))
	require.NoError(t, err)
	require.NotZero(t, first.ID)
	require.False(t, first.Processed)

	// Same natural key again: same row, no duplicate.
	second, err := s.RecordEvent(testEvent(1, "0x01", 0, 100))
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	// A different log index is a different event.
	third, err := s.RecordEvent(testEvent(1, "0x01", 1, 100))
	require.NoError(t, err)
	require.NotEqual(t, first.ID, third.ID)
}

func TestRecordEvent_KeepsProcessedFlag(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)

	rec, err := s.RecordEvent(testEvent(1, "0x02", 0, 100))
	require.NoError(t, err)
	require.NoError(t, s.MarkProcessed(rec.ID))

	again, err := s.RecordEvent(testEvent(1, "0x02", 0, 100))
	require.NoError(t, err)
	require.Equal(t, rec.ID, again.ID)
	require.True(t, again.Processed)
}

func TestRecordEvent_ClearsRemovedFlag(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)

	rec, err := s.RecordEvent(testEvent(1, "0x03", 0, 950))
	require.NoError(t, err)

	removed, err := s.MarkRemovedAbove(1, 936)
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	gone, err := s.GetEvent(1, rec.TxHash, rec.LogIndex)
	require.NoError(t, err)
	require.True(t, gone.Removed)

	// Re-observed on the canonical chain, possibly in a different block.
	back, err := s.RecordEvent(testEvent(1, "0x03", 0, 948))
	require.NoError(t, err)
	require.Equal(t, rec.ID, back.ID)
	require.False(t, back.Removed)
	require.EqualValues(t, 948, back.BlockNumber)
}

func TestMarkRemovedAbove_Boundary(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)

	blocks := []uint64{900, 936, 937, 1000}
	for i, block := range blocks {
		_, err := s.RecordEvent(testEvent(1, "0x10", uint64(i), block))
		require.NoError(t, err)
	}

	// An event on another chain must not be touched.
	other, err := s.RecordEvent(testEvent(2, "0x11", 0, 999))
	require.NoError(t, err)

	removed, err := s.MarkRemovedAbove(1, 936)
	require.NoError(t, err)
	require.EqualValues(t, 2, removed)

	for i, block := range blocks {
		rec, err := s.GetEvent(1, ethcommon.HexToHash("0x10"), uint64(i))
		require.NoError(t, err)
		require.Equal(t, block > 936, rec.Removed, "block %d", block)
	}

	otherRec, err := s.GetEvent(2, other.TxHash, other.LogIndex)
	require.NoError(t, err)
	require.False(t, otherRec.Removed)
}

func TestUnprocessedEvents_Order(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)

	_, err := s.RecordEvent(testEvent(1, "0x21", 2, 200))
	require.NoError(t, err)
	_, err = s.RecordEvent(testEvent(1, "0x20", 0, 100))
	require.NoError(t, err)
	_, err = s.RecordEvent(testEvent(1, "0x21", 1, 200))
	require.NoError(t, err)

	done, err := s.RecordEvent(testEvent(1, "0x22", 0, 150))
	require.NoError(t, err)
	require.NoError(t, s.MarkProcessed(done.ID))

	recs, err := s.UnprocessedEvents(1)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	require.EqualValues(t, 100, recs[0].BlockNumber)
	require.EqualValues(t, 1, recs[1].LogIndex)
	require.EqualValues(t, 2, recs[2].LogIndex)
}

func TestCursors(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)

	cursor, err := s.GetCursor(1)
	require.NoError(t, err)
	require.Nil(t, cursor)

	hashA := ethcommon.HexToHash("0xaa")
	require.NoError(t, s.SaveCursor(1, 100, hashA))

	cursor, err = s.GetCursor(1)
	require.NoError(t, err)
	require.EqualValues(t, 100, cursor.LastBlockNumber)
	require.Equal(t, hashA, cursor.LastBlockHash)

	hashB := ethcommon.HexToHash("0xbb")
	require.NoError(t, s.SaveCursor(1, 200, hashB))

	cursor, err = s.GetCursor(1)
	require.NoError(t, err)
	require.EqualValues(t, 200, cursor.LastBlockNumber)
	require.Equal(t, hashB, cursor.LastBlockHash)
}

func TestOrders_RoundTrip(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)

	amount, ok := new(big.Int).SetString("1000000000000000000000000000000", 10)
	require.True(t, ok)

	order := &Order{
		OrderID:      "42",
		Flow:         FlowEscrow,
		Maker:        ethcommon.HexToAddress("0xabc0000000000000000000000000000000000001"),
		SellAmount:   amount,
		BuyAmount:    big.NewInt(500),
		FilledAmount: new(big.Int),
		SrcChainID:   1,
		DstChainID:   137,
		Status:       OrderStatusOpen,
		TxHash:       ethcommon.HexToHash("0x01"),
	}

	require.NoError(t, s.InsertOrder(order))

	loaded, err := s.GetOrder("42")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Equal(t, order.Maker, loaded.Maker)
	require.Zero(t, amount.Cmp(loaded.SellAmount))
	require.Equal(t, OrderStatusOpen, loaded.Status)

	loaded.Status = OrderStatusMakerLocked
	require.NoError(t, s.SaveOrder(loaded))

	reloaded, err := s.GetOrder("42")
	require.NoError(t, err)
	require.Equal(t, OrderStatusMakerLocked, reloaded.Status)

	missing, err := s.GetOrder("999")
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestEscrows_RoundTrip(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)

	escrow := &Escrow{
		LockID:    "0xlock1",
		OrderID:   "42",
		ChainID:   1,
		Depositor: ethcommon.HexToAddress("0xabc0000000000000000000000000000000000001"),
		Amount:    big.NewInt(1000),
		HashLock:  "0xhash",
		Status:    EscrowStatusLocked,
		TxHash:    ethcommon.HexToHash("0x01"),
	}

	require.NoError(t, s.InsertEscrow(escrow))

	second := &Escrow{
		LockID:      "0xlock2",
		OrderID:     "42",
		ChainID:     137,
		Depositor:   ethcommon.HexToAddress("0xabc0000000000000000000000000000000000002"),
		Amount:      big.NewInt(500),
		HashLock:    "0xhash",
		Status:      EscrowStatusLocked,
		TxHash:      ethcommon.HexToHash("0x02"),
		BlockNumber: 10,
	}

	require.NoError(t, s.InsertEscrow(second))

	escrows, err := s.EscrowsByOrder("42")
	require.NoError(t, err)
	require.Len(t, escrows, 2)

	escrows[0].Status = EscrowStatusClaimed
	require.NoError(t, s.SaveEscrow(escrows[0]))

	loaded, err := s.GetEscrow("0xlock1")
	require.NoError(t, err)
	require.Equal(t, EscrowStatusClaimed, loaded.Status)
}

func TestUsers_Aggregates(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)

	const addr = "0xabc0000000000000000000000000000000000001"

	require.NoError(t, s.IncOrdersCreated(addr))
	require.NoError(t, s.IncOrdersCreated(addr))
	require.NoError(t, s.IncOrdersCompleted(addr))

	huge, ok := new(big.Int).SetString("100000000000000000000000000000000000000", 10)
	require.True(t, ok)

	require.NoError(t, s.AddVolume(addr, huge))
	require.NoError(t, s.AddVolume(addr, big.NewInt(1)))

	user, err := s.GetUser(addr)
	require.NoError(t, err)
	require.EqualValues(t, 2, user.OrdersCreated)
	require.EqualValues(t, 1, user.OrdersCompleted)

	expected := new(big.Int).Add(huge, big.NewInt(1))
	require.Zero(t, expected.Cmp(user.TotalVolume))
}

func TestStatusAdvances(t *testing.T) {
	t.Parallel()

	cases := []struct {
		current, next OrderStatus
		want          bool
	}{
		{OrderStatusOpen, OrderStatusMakerLocked, true},
		{OrderStatusOpen, OrderStatusTakerLocked, true},
		{OrderStatusMakerLocked, OrderStatusTakerLocked, true},
		{OrderStatusTakerLocked, OrderStatusCompleted, true},
		{OrderStatusTakerLocked, OrderStatusMakerLocked, false},
		{OrderStatusMakerLocked, OrderStatusMakerLocked, false},
		{OrderStatusCompleted, OrderStatusMakerLocked, false},
		{OrderStatusCancelled, OrderStatusMakerLocked, false},
		{OrderStatusRefunded, OrderStatusCompleted, false},
		{OrderStatusOpen, OrderStatusMatched, true},
		{OrderStatusMatched, OrderStatusFilled, true},
		{OrderStatusFilled, OrderStatusCompleted, true},
		{OrderStatusFilled, OrderStatusMatched, false},
	}

	for _, tc := range cases {
		require.Equal(t, tc.want, StatusAdvances(tc.current, tc.next),
			"%s -> %s", tc.current, tc.next)
	}
}
