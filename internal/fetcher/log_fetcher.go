package fetcher

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/openswap-labs/swapsync/internal/logger"
	"github.com/openswap-labs/swapsync/internal/rpc"
)

// LogFetcher retrieves contract event logs for bounded block ranges.
// Callers are responsible for keeping ranges within the configured maximum
// span; the fetcher only splits further when the provider rejects a range as
// too large. Transient provider failures are returned to the caller so the
// scheduler can retry the whole range on the next cycle.
type LogFetcher struct {
	log *logger.Logger
}

// NewLogFetcher creates a new LogFetcher.
func NewLogFetcher(log *logger.Logger) *LogFetcher {
	return &LogFetcher{
		log: log,
	}
}

// FetchLogs retrieves all logs emitted by the given addresses in the inclusive
// block range. Results are in ascending (block, log index) order as returned
// by the provider.
func (lf *LogFetcher) FetchLogs(
	ctx context.Context,
	client rpc.EthClient,
	addresses []ethcommon.Address,
	fromBlock, toBlock uint64,
) ([]types.Log, error) {
	if fromBlock > toBlock {
		return nil, fmt.Errorf("invalid block range: from %d > to %d", fromBlock, toBlock)
	}
	if len(addresses) == 0 {
		return nil, nil
	}

	return lf.fetchWithSplit(ctx, client, addresses, fromBlock, toBlock)
}

// fetchWithSplit fetches logs and automatically retries with a smaller range
// if the provider reports too many results. The range is split recursively
// until every sub-query succeeds.
func (lf *LogFetcher) fetchWithSplit(
	ctx context.Context,
	client rpc.EthClient,
	addresses []ethcommon.Address,
	fromBlock, toBlock uint64,
) ([]types.Log, error) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: addresses,
	}

	logs, err := client.GetLogs(ctx, query)
	if err == nil {
		return logs, nil
	}

	ok, errData := rpc.IsTooManyResultsError(err)
	if !ok {
		return nil, err
	}

	// Prefer the provider's suggested block range when it gives one.
	if suggestedFrom, suggestedTo, parsed := rpc.ParseSuggestedBlockRange(errData); parsed &&
		suggestedFrom >= fromBlock && suggestedTo < toBlock {
		lf.log.Infof("too many logs in range %d-%d, retrying with suggested range %d-%d",
			fromBlock, toBlock, suggestedFrom, suggestedTo)

		head, err := lf.fetchWithSplit(ctx, client, addresses, fromBlock, suggestedTo)
		if err != nil {
			return nil, err
		}
		tail, err := lf.fetchWithSplit(ctx, client, addresses, suggestedTo+1, toBlock)
		if err != nil {
			return nil, err
		}
		return append(head, tail...), nil
	}

	// No suggested range, split in half.
	if fromBlock == toBlock {
		return nil, fmt.Errorf("cannot split range further, single block %d has too many logs", fromBlock)
	}

	mid := fromBlock + (toBlock-fromBlock)/2 //nolint:mnd

	lf.log.Infof("too many logs in range %d-%d, splitting at %d", fromBlock, toBlock, mid)

	head, err := lf.fetchWithSplit(ctx, client, addresses, fromBlock, mid)
	if err != nil {
		return nil, err
	}
	tail, err := lf.fetchWithSplit(ctx, client, addresses, mid+1, toBlock)
	if err != nil {
		return nil, err
	}

	return append(head, tail...), nil
}
