package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadSubstitutesEnv(t *testing.T) {
	t.Setenv("TEST_DB_URL", "postgres://bridge:pw@localhost/bridge")

	path := writeConfig(t, `
database:
  url: ${TEST_DB_URL}
server:
  addr: ${TEST_BIND_ADDR:-:9000}
chain:
  min_confirmations: 3
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://bridge:pw@localhost/bridge", cfg.Database.URL)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, uint64(3), cfg.Chain.MinConfirmations)
}

func TestDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.ApplyDefaults()

	assert.Equal(t, ":8000", cfg.Server.Addr)
	assert.Equal(t, ":7000", cfg.Signer.Addr)
	assert.Equal(t, uint64(2), cfg.Chain.MinConfirmations)
	assert.Equal(t, 10*time.Second, cfg.Chain.RPCTimeout)
	assert.Equal(t, 60*time.Second, cfg.Chain.ReceiptPollBudget)
	assert.Equal(t, 5*time.Second, cfg.Chain.ReceiptPollDelay)
	assert.Equal(t, "retain", cfg.Bridge.FeeDisposition)
}

func TestValidateFeeDisposition(t *testing.T) {
	cfg := &Config{}
	cfg.ApplyDefaults()
	require.NoError(t, cfg.Validate())

	cfg.Bridge.FeeDisposition = "forward_to:0x90F8bf6A479f320ead074411a4B0e7944Ea8c9C1"
	require.NoError(t, cfg.Validate())

	cfg.Bridge.FeeDisposition = "burn"
	require.Error(t, cfg.Validate())

	cfg.Bridge.FeeDisposition = "forward_to:nope"
	require.Error(t, cfg.Validate())
}

func TestPerNetworkOverrides(t *testing.T) {
	cfg := &Config{}
	cfg.ApplyDefaults()
	cfg.Chain.Networks = map[string]NetworkOverride{
		"net-1": {MinConfirmations: 12, RPCTimeout: 3 * time.Second},
	}

	assert.Equal(t, uint64(12), cfg.Chain.MinConfirmationsFor("net-1"))
	assert.Equal(t, uint64(2), cfg.Chain.MinConfirmationsFor("net-2"))
	assert.Equal(t, 3*time.Second, cfg.Chain.RPCTimeoutFor("net-1"))
	assert.Equal(t, 10*time.Second, cfg.Chain.RPCTimeoutFor("net-2"))
}
