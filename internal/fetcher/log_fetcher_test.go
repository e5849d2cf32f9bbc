package fetcher

import (
	"context"
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/openswap-labs/swapsync/internal/logger"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	getLogs func(query ethereum.FilterQuery) ([]types.Log, error)
	calls   [][2]uint64
}

func (f *fakeClient) GetLogs(_ context.Context, query ethereum.FilterQuery) ([]types.Log, error) {
	f.calls = append(f.calls, [2]uint64{query.FromBlock.Uint64(), query.ToBlock.Uint64()})

	return f.getLogs(query)
}

func (f *fakeClient) GetBlockHeader(context.Context, uint64) (*types.Header, error) {
	return nil, nil
}

func (f *fakeClient) GetLatestBlockHeader(context.Context) (*types.Header, error) {
	return nil, nil
}

func (f *fakeClient) BatchGetBlockHeaders(context.Context, []uint64) ([]*types.Header, error) {
	return nil, nil
}

func (f *fakeClient) GetTransaction(context.Context, ethcommon.Hash) (*types.Transaction, error) {
	return nil, nil
}

func (f *fakeClient) Close() {}

func logsForRange(query ethereum.FilterQuery) []types.Log {
	var logs []types.Log

	for b := query.FromBlock.Uint64(); b <= query.ToBlock.Uint64(); b++ {
		logs = append(logs, types.Log{BlockNumber: b})
	}

	return logs
}

var testAddresses = []ethcommon.Address{
	ethcommon.HexToAddress("0x1000000000000000000000000000000000000001"),
}

func TestFetchLogs_SingleRange(t *testing.T) {
	t.Parallel()

	client := &fakeClient{
		getLogs: func(query ethereum.FilterQuery) ([]types.Log, error) {
			return logsForRange(query), nil
		},
	}

	lf := NewLogFetcher(logger.NewNopLogger())

	logs, err := lf.FetchLogs(context.Background(), client, testAddresses, 100, 109)
	require.NoError(t, err)
	require.Len(t, logs, 10)
	require.Equal(t, [][2]uint64{{100, 109}}, client.calls)
}

func TestFetchLogs_SplitsInHalfOnTooManyResults(t *testing.T) {
	t.Parallel()

	client := &fakeClient{
		getLogs: func(query ethereum.FilterQuery) ([]types.Log, error) {
			if query.ToBlock.Uint64()-query.FromBlock.Uint64() >= 4 {
				return nil, fmt.Errorf("query returned more than 10000 results")
			}

			return logsForRange(query), nil
		},
	}

	lf := NewLogFetcher(logger.NewNopLogger())

	logs, err := lf.FetchLogs(context.Background(), client, testAddresses, 0, 15)
	require.NoError(t, err)
	require.Len(t, logs, 16)

	// Results stay in block order after reassembly.
	for i, lg := range logs {
		require.EqualValues(t, i, lg.BlockNumber)
	}
}

func TestFetchLogs_UsesSuggestedRange(t *testing.T) {
	t.Parallel()

	client := &fakeClient{
		getLogs: func(query ethereum.FilterQuery) ([]types.Log, error) {
			if query.FromBlock.Uint64() == 100 && query.ToBlock.Uint64() == 199 {
				return nil, fmt.Errorf(
					"Query returned more than 20000 results. Try with this block range [0x64, 0x96].")
			}

			return logsForRange(query), nil
		},
	}

	lf := NewLogFetcher(logger.NewNopLogger())

	logs, err := lf.FetchLogs(context.Background(), client, testAddresses, 100, 199)
	require.NoError(t, err)
	require.Len(t, logs, 100)

	// 0x96 = 150: the provider's cut point bounds the first retry.
	require.Equal(t, [][2]uint64{{100, 199}, {100, 150}, {151, 199}}, client.calls)
}

func TestFetchLogs_SingleBlockOverflowFails(t *testing.T) {
	t.Parallel()

	client := &fakeClient{
		getLogs: func(ethereum.FilterQuery) ([]types.Log, error) {
			return nil, fmt.Errorf("query returned more than 10000 results")
		},
	}

	lf := NewLogFetcher(logger.NewNopLogger())

	_, err := lf.FetchLogs(context.Background(), client, testAddresses, 50, 50)
	require.ErrorContains(t, err, "single block")
}

func TestFetchLogs_InvalidRange(t *testing.T) {
	t.Parallel()

	lf := NewLogFetcher(logger.NewNopLogger())

	_, err := lf.FetchLogs(context.Background(), &fakeClient{}, testAddresses, 10, 5)
	require.Error(t, err)
}

func TestFetchLogs_NoAddresses(t *testing.T) {
	t.Parallel()

	lf := NewLogFetcher(logger.NewNopLogger())

	logs, err := lf.FetchLogs(context.Background(), &fakeClient{}, nil, 0, 10)
	require.NoError(t, err)
	require.Empty(t, logs)
}

func TestFetchLogs_PropagatesOtherErrors(t *testing.T) {
	t.Parallel()

	client := &fakeClient{
		getLogs: func(ethereum.FilterQuery) ([]types.Log, error) {
			return nil, fmt.Errorf("connection refused")
		},
	}

	lf := NewLogFetcher(logger.NewNopLogger())

	_, err := lf.FetchLogs(context.Background(), client, testAddresses, 0, 10)
	require.ErrorContains(t, err, "connection refused")
	require.Len(t, client.calls, 1)
}
