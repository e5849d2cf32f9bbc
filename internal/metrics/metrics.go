package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Sync metrics
	cursorHeight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "swapsync_cursor_block_number",
			Help: "The last block number successfully synced per chain",
		},
		[]string{"chain_id"},
	)

	blocksSynced = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swapsync_blocks_synced_total",
			Help: "Total number of blocks synced",
		},
		[]string{"chain_id"},
	)

	eventsIndexed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swapsync_events_indexed_total",
			Help: "Total number of contract events indexed",
		},
		[]string{"chain_id", "event"},
	)

	eventsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swapsync_events_skipped_total",
			Help: "Total number of logs skipped (unknown signature or decode failure)",
		},
		[]string{"chain_id"},
	)

	reorgsDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swapsync_reorgs_detected_total",
			Help: "Total number of chain reorganizations detected",
		},
		[]string{"chain_id"},
	)

	syncCycleDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "swapsync_sync_cycle_duration_seconds",
			Help:    "Duration of one per-chain sync cycle",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"chain_id"},
	)

	// RPC metrics
	rpcRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swapsync_rpc_retries_total",
			Help: "Total number of RPC retries",
		},
		[]string{"operation"},
	)
)

// CursorHeightSet records the current cursor position for a chain.
func CursorHeightSet(chainID, blockNum uint64) {
	cursorHeight.WithLabelValues(chainLabel(chainID)).Set(float64(blockNum))
}

// BlocksSyncedAdd records blocks processed for a chain.
func BlocksSyncedAdd(chainID, count uint64) {
	blocksSynced.WithLabelValues(chainLabel(chainID)).Add(float64(count))
}

// EventIndexedInc records one indexed event.
func EventIndexedInc(chainID uint64, event string) {
	eventsIndexed.WithLabelValues(chainLabel(chainID), event).Inc()
}

// EventSkippedInc records one skipped log.
func EventSkippedInc(chainID uint64) {
	eventsSkipped.WithLabelValues(chainLabel(chainID)).Inc()
}

// ReorgDetectedInc records a detected reorg.
func ReorgDetectedInc(chainID uint64) {
	reorgsDetected.WithLabelValues(chainLabel(chainID)).Inc()
}

// SyncCycleObserve records the duration of one sync cycle in seconds.
func SyncCycleObserve(chainID uint64, seconds float64) {
	syncCycleDuration.WithLabelValues(chainLabel(chainID)).Observe(seconds)
}

// RPCRetryInc records one RPC retry for the given operation.
func RPCRetryInc(operation string) {
	rpcRetries.WithLabelValues(operation).Inc()
}

func chainLabel(chainID uint64) string {
	return strconv.FormatUint(chainID, 10)
}
