package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the ballot node and CLI
type Config struct {
	RPC      RPCConfig      `yaml:"rpc"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	DataDir  DataDirConfig  `yaml:"data_dir"`
	Polling  PollingConfig  `yaml:"polling"`
	Log      LogConfig      `yaml:"log"`
	Keys     KeysConfig     `yaml:"-"`
}

// RPCConfig contains node connection settings used by the CLI
type RPCConfig struct {
	URL            string `yaml:"url"`
	User           string `yaml:"user"`
	Password       string `yaml:"password"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// ServerConfig contains settings for the node's JSON-RPC server
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	CacheSize  int    `yaml:"cache_size"` // Ballots kept in memory
	QueueSize  int    `yaml:"queue_size"` // Pending transactions before Submit blocks
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// DataDirConfig contains data directory settings
type DataDirConfig struct {
	Path    string `yaml:"path"`     // Base data directory
	KeysDir string `yaml:"keys_dir"` // Where key files are stored
}

// PollingConfig contains polling behavior settings
type PollingConfig struct {
	MaxAttempts int `yaml:"max_attempts"`
	IntervalMS  int `yaml:"interval_ms"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level   string `yaml:"level"`
	Console bool   `yaml:"console"` // Human readable output instead of JSON
}

// KeysConfig holds signing keys. They are only ever read from the
// environment, never from a config file.
type KeysConfig struct {
	PrivateKey string
	AltKey     string
}

// Interval returns the polling interval as a duration
func (p PollingConfig) Interval() time.Duration {
	return time.Duration(p.IntervalMS) * time.Millisecond
}

// Timeout returns the RPC timeout as a duration
func (r RPCConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutSeconds) * time.Second
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".ballot")

	cfg := &Config{
		RPC: RPCConfig{
			URL:            "http://127.0.0.1:8545",
			TimeoutSeconds: 30,
		},
		Server: ServerConfig{
			ListenAddr: "127.0.0.1:8545",
			CacheSize:  128,
			QueueSize:  256,
		},
		Polling: PollingConfig{
			MaxAttempts: 300, // Poll for up to 30 seconds
			IntervalMS:  100, // Check every 100ms
		},
		Log: LogConfig{
			Level:   "info",
			Console: true,
		},
	}
	cfg.setDataDir(dataDir)
	return cfg
}

// setDataDir moves the data directory and the paths derived from it
func (c *Config) setDataDir(path string) {
	c.DataDir.Path = path
	c.DataDir.KeysDir = filepath.Join(path, "keys")
	c.Database.Path = filepath.Join(path, "ballot.db")
}

// LoadConfig loads configuration from file or environment variables
func LoadConfig(cfgFile string) (*Config, error) {
	cfg := DefaultConfig()

	// If config file specified, layer it over the defaults
	if cfgFile != "" {
		data, err := os.ReadFile(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("config file not found: %w", err)
		}
		defaults := *cfg
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		// a new base directory moves the paths the file left unset
		if cfg.DataDir.Path != defaults.DataDir.Path {
			keysDir, dbPath := cfg.DataDir.KeysDir, cfg.Database.Path
			cfg.setDataDir(cfg.DataDir.Path)
			if keysDir != defaults.DataDir.KeysDir {
				cfg.DataDir.KeysDir = keysDir
			}
			if dbPath != defaults.Database.Path {
				cfg.Database.Path = dbPath
			}
		}
	}

	// Override with environment variables
	if val := os.Getenv("BALLOT_RPC_URL"); val != "" {
		cfg.RPC.URL = val
	}
	if val := os.Getenv("BALLOT_RPC_USER"); val != "" {
		cfg.RPC.User = val
	}
	if val := os.Getenv("BALLOT_RPC_PASSWORD"); val != "" {
		cfg.RPC.Password = val
	}
	if val := os.Getenv("BALLOT_LISTEN_ADDR"); val != "" {
		cfg.Server.ListenAddr = val
	}
	if val := os.Getenv("BALLOT_CACHE_SIZE"); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil {
			return nil, fmt.Errorf("invalid BALLOT_CACHE_SIZE: %w", err)
		}
		cfg.Server.CacheSize = n
	}
	if val := os.Getenv("BALLOT_DATA_DIR"); val != "" {
		cfg.setDataDir(val)
	}
	if val := os.Getenv("DB_PATH"); val != "" {
		cfg.Database.Path = val
	}
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		cfg.Log.Level = val
	}
	cfg.Keys.PrivateKey = os.Getenv("PRIVATE_KEY")
	cfg.Keys.AltKey = os.Getenv("ALT_KEY")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Ensure data directories exist
	if err := os.MkdirAll(cfg.DataDir.Path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := os.MkdirAll(cfg.DataDir.KeysDir, 0700); err != nil { // Keys dir should be more restrictive
		return nil, fmt.Errorf("failed to create keys directory: %w", err)
	}

	return cfg, nil
}

// Validate checks values that would otherwise fail later and less clearly
func (c *Config) Validate() error {
	if c.Server.CacheSize <= 0 {
		return fmt.Errorf("server.cache_size must be positive, got %d", c.Server.CacheSize)
	}
	if c.Server.QueueSize <= 0 {
		return fmt.Errorf("server.queue_size must be positive, got %d", c.Server.QueueSize)
	}
	if c.Polling.MaxAttempts <= 0 {
		return fmt.Errorf("polling.max_attempts must be positive, got %d", c.Polling.MaxAttempts)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	return nil
}
