package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("BALLOT_DATA_DIR", dir)

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	require.Equal(t, filepath.Join(dir, "ballot.db"), cfg.Database.Path)
	require.Equal(t, 128, cfg.Server.CacheSize)
	require.Equal(t, 100*time.Millisecond, cfg.Polling.Interval())
	require.Equal(t, 30*time.Second, cfg.RPC.Timeout())

	info, err := os.Stat(cfg.DataDir.KeysDir)
	require.NoError(t, err)
	require.True(t, info.IsDir())
	require.Equal(t, os.FileMode(0700), info.Mode().Perm())
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "ballot.yaml")
	content := `
rpc:
  url: http://10.0.0.2:9000
server:
  listen_addr: 0.0.0.0:9000
  cache_size: 16
data_dir:
  path: ` + dir + `
  keys_dir: ` + filepath.Join(dir, "k") + `
database:
  path: ` + filepath.Join(dir, "custom.db") + `
log:
  level: debug
  console: false
`
	require.NoError(t, os.WriteFile(cfgFile, []byte(content), 0600))

	cfg, err := LoadConfig(cfgFile)
	require.NoError(t, err)

	require.Equal(t, "http://10.0.0.2:9000", cfg.RPC.URL)
	require.Equal(t, "0.0.0.0:9000", cfg.Server.ListenAddr)
	require.Equal(t, 16, cfg.Server.CacheSize)
	// untouched sections keep their defaults
	require.Equal(t, 256, cfg.Server.QueueSize)
	require.Equal(t, filepath.Join(dir, "custom.db"), cfg.Database.Path)
	require.Equal(t, "debug", cfg.Log.Level)
	require.False(t, cfg.Log.Console)
}

func TestLoadConfigFileDataDir(t *testing.T) {
	t.Setenv("BALLOT_DATA_DIR", "")
	t.Setenv("DB_PATH", "")
	dir := t.TempDir()
	base := filepath.Join(dir, "data")

	write := func(content string) string {
		cfgFile := filepath.Join(dir, "ballot.yaml")
		require.NoError(t, os.WriteFile(cfgFile, []byte(content), 0600))
		return cfgFile
	}

	cfg, err := LoadConfig(write("data_dir:\n  path: " + base + "\n"))
	require.NoError(t, err)
	require.Equal(t, base, cfg.DataDir.Path)
	require.Equal(t, filepath.Join(base, "keys"), cfg.DataDir.KeysDir)
	require.Equal(t, filepath.Join(base, "ballot.db"), cfg.Database.Path)

	// explicit paths win over the derived ones
	custom := filepath.Join(dir, "elsewhere.db")
	cfg, err = LoadConfig(write("data_dir:\n  path: " + base + "\ndatabase:\n  path: " + custom + "\n"))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(base, "keys"), cfg.DataDir.KeysDir)
	require.Equal(t, custom, cfg.Database.Path)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("BALLOT_DATA_DIR", dir)
	t.Setenv("BALLOT_RPC_URL", "http://node:8545")
	t.Setenv("BALLOT_LISTEN_ADDR", ":9999")
	t.Setenv("BALLOT_CACHE_SIZE", "4")
	t.Setenv("DB_PATH", filepath.Join(dir, "env.db"))
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("PRIVATE_KEY", "0xabc")
	t.Setenv("ALT_KEY", "0xdef")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	require.Equal(t, "http://node:8545", cfg.RPC.URL)
	require.Equal(t, ":9999", cfg.Server.ListenAddr)
	require.Equal(t, 4, cfg.Server.CacheSize)
	require.Equal(t, filepath.Join(dir, "env.db"), cfg.Database.Path)
	require.Equal(t, "warn", cfg.Log.Level)
	require.Equal(t, "0xabc", cfg.Keys.PrivateKey)
	require.Equal(t, "0xdef", cfg.Keys.AltKey)
}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("BALLOT_DATA_DIR", dir)

	_, err := LoadConfig(filepath.Join(dir, "missing.yaml"))
	require.ErrorContains(t, err, "config file not found")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("server: [not, a, map"), 0600))
	_, err = LoadConfig(bad)
	require.ErrorContains(t, err, "failed to parse config file")

	t.Setenv("BALLOT_CACHE_SIZE", "zero")
	_, err = LoadConfig("")
	require.ErrorContains(t, err, "invalid BALLOT_CACHE_SIZE")

	t.Setenv("BALLOT_CACHE_SIZE", "0")
	_, err = LoadConfig("")
	require.ErrorContains(t, err, "cache_size must be positive")
}

func TestKeysNeverFromFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("BALLOT_DATA_DIR", dir)
	t.Setenv("PRIVATE_KEY", "")

	cfgFile := filepath.Join(dir, "ballot.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("keys:\n  privatekey: 0x01\n"), 0600))

	cfg, err := LoadConfig(cfgFile)
	require.NoError(t, err)
	require.Empty(t, cfg.Keys.PrivateKey)
}
