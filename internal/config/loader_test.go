package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const validYAML = `
sync:
  reorg_tolerance_blocks: 32
  default_poll_interval: 5s
chains:
  - chain_id: 1
    name: mainnet
    rpc_url: https://eth.example.com/${TEST_API_KEY}
    start_block: 1000
    contracts:
      orderbook: "0x2000000000000000000000000000000000000001"
      escrow: "0x2000000000000000000000000000000000000002"
  - chain_id: 137
    name: polygon
    rpc_url: https://polygon.example.com
    confirmations: 64
    poll_interval: 2s
    contracts:
      buy_vault: "0x2000000000000000000000000000000000000003"
      sell_vault: "0x2000000000000000000000000000000000000004"
db:
  path: /tmp/swapsync.db
`

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadFromYAML(t *testing.T) {
	t.Setenv("TEST_API_KEY", "secret-key")

	cfg, err := LoadFromFile(writeConfig(t, "config.yaml", validYAML))
	require.NoError(t, err)

	require.EqualValues(t, 32, cfg.Sync.ReorgToleranceBlocks)
	require.Equal(t, 5*time.Second, cfg.Sync.DefaultPollInterval.Duration)

	// Unset fields fall back to defaults.
	require.EqualValues(t, 2000, cfg.Sync.MaxBlocksPerQuery)

	require.Len(t, cfg.Chains, 2)
	require.Equal(t, "https://eth.example.com/secret-key", cfg.Chains[0].RPCURL)
	require.EqualValues(t, 12, cfg.Chains[0].Confirmations)
	require.EqualValues(t, 64, cfg.Chains[1].Confirmations)

	require.Equal(t, 5*time.Second, cfg.PollInterval(&cfg.Chains[0]))
	require.Equal(t, 2*time.Second, cfg.PollInterval(&cfg.Chains[1]))

	require.Len(t, cfg.Chains[0].Contracts.Addresses(), 2)

	// Optional sections are defaulted, never nil.
	require.NotNil(t, cfg.Logging)
	require.NotNil(t, cfg.Metrics)
}

func TestLoadFromJSON(t *testing.T) {
	t.Parallel()

	const jsonConfig = `{
		"chains": [{
			"chain_id": 1,
			"rpc_url": "https://eth.example.com",
			"contracts": {"escrow": "0x2000000000000000000000000000000000000002"}
		}],
		"db": {"path": "/tmp/swapsync.db"}
	}`

	cfg, err := LoadFromFile(writeConfig(t, "config.json", jsonConfig))
	require.NoError(t, err)
	require.Len(t, cfg.Chains, 1)
	require.EqualValues(t, 64, cfg.Sync.ReorgToleranceBlocks)
}

func TestLoadFromTOML(t *testing.T) {
	t.Parallel()

	const tomlConfig = `
[[chains]]
chain_id = 1
rpc_url = "https://eth.example.com"

[chains.contracts]
orderbook = "0x2000000000000000000000000000000000000001"
escrow = "0x2000000000000000000000000000000000000002"

[db]
path = "/tmp/swapsync.db"
`

	cfg, err := LoadFromFile(writeConfig(t, "config.toml", tomlConfig))
	require.NoError(t, err)
	require.Len(t, cfg.Chains, 1)
	require.Equal(t, "WAL", cfg.DB.JournalMode)
}

func TestLoadFromFile_UnsupportedExtension(t *testing.T) {
	t.Parallel()

	_, err := LoadFromFile(writeConfig(t, "config.ini", "whatever"))
	require.ErrorContains(t, err, "unsupported config file format")
}

func TestLoad_DuplicateChainIDs(t *testing.T) {
	t.Parallel()

	const dup = `
chains:
  - chain_id: 1
    rpc_url: https://a.example.com
    contracts:
      escrow: "0x2000000000000000000000000000000000000002"
  - chain_id: 1
    rpc_url: https://b.example.com
    contracts:
      escrow: "0x2000000000000000000000000000000000000002"
db:
  path: /tmp/swapsync.db
`

	_, err := LoadFromFile(writeConfig(t, "config.yaml", dup))
	require.ErrorContains(t, err, "duplicate chain_id")
}

func TestLoad_InvalidContractAddress(t *testing.T) {
	t.Parallel()

	const bad = `
chains:
  - chain_id: 1
    rpc_url: https://a.example.com
    contracts:
      escrow: "not-an-address"
db:
  path: /tmp/swapsync.db
`

	_, err := LoadFromFile(writeConfig(t, "config.yaml", bad))
	require.ErrorContains(t, err, "invalid contract address")
}

func TestLoad_MissingDBPath(t *testing.T) {
	t.Parallel()

	const noDB = `
chains:
  - chain_id: 1
    rpc_url: https://a.example.com
    contracts:
      escrow: "0x2000000000000000000000000000000000000002"
`

	_, err := LoadFromFile(writeConfig(t, "config.yaml", noDB))
	require.ErrorContains(t, err, "db.path is required")
}

func TestLoad_NoChains(t *testing.T) {
	t.Parallel()

	_, err := LoadFromFile(writeConfig(t, "config.yaml", "db:\n  path: /tmp/x.db\n"))
	require.ErrorContains(t, err, "at least one chain")
}
