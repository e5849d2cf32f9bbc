package rpc

import (
	"context"
	"fmt"

	"github.com/openswap-labs/swapsync/internal/logger"
	"github.com/openswap-labs/swapsync/pkg/config"
)

// Registry resolves a chain id to its RPC client. It is constructed once at
// startup and passed by handle into the scheduler and handlers; there is no
// ambient global client state.
type Registry struct {
	clients map[uint64]EthClient
}

// NewRegistry creates an empty client registry.
func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[uint64]EthClient),
	}
}

// NewRegistryFromConfig dials every configured chain and registers its client.
// A single unreachable chain fails startup; partially connected clients are
// closed before returning.
func NewRegistryFromConfig(ctx context.Context, chains []config.ChainConfig, retry *config.RetryConfig, log *logger.Logger) (*Registry, error) {
	registry := NewRegistry()

	for _, chain := range chains {
		client, err := NewClient(ctx, chain.RPCURL, retry, log.WithChain(chain.ChainID))
		if err != nil {
			registry.Close()
			return nil, fmt.Errorf("failed to connect to chain %d: %w", chain.ChainID, err)
		}
		registry.Register(chain.ChainID, client)
	}

	return registry, nil
}

// Register adds a client for the given chain id, replacing any existing one.
func (r *Registry) Register(chainID uint64, client EthClient) {
	r.clients[chainID] = client
}

// Client returns the client for the given chain id.
func (r *Registry) Client(chainID uint64) (EthClient, error) {
	client, ok := r.clients[chainID]
	if !ok {
		return nil, fmt.Errorf("no RPC client registered for chain %d", chainID)
	}
	return client, nil
}

// ChainIDs returns the registered chain ids.
func (r *Registry) ChainIDs() []uint64 {
	ids := make([]uint64, 0, len(r.clients))
	for id := range r.clients {
		ids = append(ids, id)
	}
	return ids
}

// Close closes all registered clients.
func (r *Registry) Close() {
	for _, client := range r.clients {
		client.Close()
	}
}
