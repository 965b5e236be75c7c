package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRejectsEmptyServerList(t *testing.T) {
	cfg := Config{}
	err := Validate(&cfg)
	assert.Error(t, err)
}

func TestValidateRejectsUnknownPriority(t *testing.T) {
	cfg := Default()
	cfg.Priorities = append(cfg.Priorities, "ghost-server")
	err := Validate(&cfg)
	assert.ErrorContains(t, err, "ghost-server")
}

func TestValidateRejectsUnknownForcedHost(t *testing.T) {
	cfg := Default()
	cfg.ForcedHosts = map[string][]string{"example.com": {"ghost-server"}}
	err := Validate(&cfg)
	assert.ErrorContains(t, err, "ghost-server")
}

func TestValidateRejectsNegativeMaxPlayers(t *testing.T) {
	cfg := Default()
	cfg.MaxPlayers = -1
	err := Validate(&cfg)
	assert.Error(t, err)
}

func TestValidateAcceptsDefaultConfig(t *testing.T) {
	cfg := Default()
	assert.NoError(t, Validate(&cfg))
}

func TestValidateRejectsServerMissingAddress(t *testing.T) {
	cfg := Default()
	cfg.Servers = append(cfg.Servers, ServerInfo{Name: "broken"})
	assert.Error(t, Validate(&cfg))
}

func TestLoadWritesAndReadsDefaultConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default().Bind, cfg.Bind)
	assert.Equal(t, Default().Servers, cfg.Servers)

	// A second load should read back the same file rather than rewriting it.
	cfg2, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Bind, cfg2.Bind)
}

func TestDefaultConfigHasConnectionThrottleAndOfflineEncryptionFields(t *testing.T) {
	cfg := Default()
	assert.False(t, cfg.OfflineModeEncryption)
	assert.Equal(t, 4000, cfg.ConnectionThrottleTimeMillis)
	assert.Equal(t, 3, cfg.ConnectionThrottleLimit)
}

func TestLoadRoundTripsConnectionThrottleAndOfflineEncryptionFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	_, err := Load(path)
	require.NoError(t, err)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default().OfflineModeEncryption, cfg.OfflineModeEncryption)
	assert.Equal(t, Default().ConnectionThrottleTimeMillis, cfg.ConnectionThrottleTimeMillis)
	assert.Equal(t, Default().ConnectionThrottleLimit, cfg.ConnectionThrottleLimit)
}
