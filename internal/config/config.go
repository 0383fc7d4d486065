// Package config holds the walletlink daemon configuration.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/klingon-exchange/walletlink/internal/chain"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the daemon.
type Config struct {
	// DataDir is the directory for the config and seed files.
	DataDir string `yaml:"data_dir"`

	RPC       RPCConfig       `yaml:"rpc"`
	Keyring   KeyringConfig   `yaml:"keyring"`
	Logging   LoggingConfig   `yaml:"logging"`
	Poller    PollerConfig    `yaml:"poller"`
	Chains    ChainsConfig    `yaml:"chains"`
	Endpoints EndpointsConfig `yaml:"endpoints"`
}

// RPCConfig holds the JSON-RPC server settings.
type RPCConfig struct {
	// ListenAddr is the host:port the server binds to.
	ListenAddr string `yaml:"listen_addr"`
}

// KeyringConfig holds the local wallet provider settings.
type KeyringConfig struct {
	// SeedFile is the sealed mnemonic, relative to the data dir.
	SeedFile string `yaml:"seed_file"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the log level (debug, info, warn, error).
	Level string `yaml:"level"`

	// File is the log file path (empty for stderr).
	File string `yaml:"file"`
}

// PollerConfig holds the primary wallet switch poller settings.
type PollerConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	Interval    time.Duration `yaml:"interval"`
}

// ChainsConfig holds the chain IDs the linking layer binds to.
type ChainsConfig struct {
	// SolanaChainID is the chain Solana signers are bound to.
	SolanaChainID uint64 `yaml:"solana_chain_id"`
}

// EndpointsConfig holds node URLs used by locally held wallets.
type EndpointsConfig struct {
	// EVM maps chain IDs to node URLs.
	EVM map[uint64]string `yaml:"evm,omitempty"`

	Solana string `yaml:"solana,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DataDir: "~/.walletlink",
		RPC: RPCConfig{
			ListenAddr: "127.0.0.1:8645",
		},
		Keyring: KeyringConfig{
			SeedFile: "seed.json",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Poller: PollerConfig{
			MaxAttempts: 20,
			Interval:    200 * time.Millisecond,
		},
		Chains: ChainsConfig{
			SolanaChainID: chain.SolanaChainID,
		},
		Endpoints: EndpointsConfig{
			EVM: map[uint64]string{},
		},
	}
}

// Validate checks the configuration for values the daemon cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.RPC.ListenAddr == "" {
		errs = append(errs, errors.New("rpc.listen_addr is required"))
	}
	if c.Poller.MaxAttempts <= 0 {
		errs = append(errs, fmt.Errorf("poller.max_attempts must be positive, got %d", c.Poller.MaxAttempts))
	}
	if c.Poller.Interval <= 0 {
		errs = append(errs, fmt.Errorf("poller.interval must be positive, got %s", c.Poller.Interval))
	}

	if known, ok := chain.Get(c.Chains.SolanaChainID); !ok || known.VMType != chain.VMTypeSVM {
		errs = append(errs, fmt.Errorf("chains.solana_chain_id: %d is not a known Solana chain", c.Chains.SolanaChainID))
	}

	for id, raw := range c.Endpoints.EVM {
		if known, ok := chain.Get(id); !ok || known.VMType != chain.VMTypeEVM {
			errs = append(errs, fmt.Errorf("endpoints.evm: %d is not a known EVM chain", id))
		}
		if err := validateURL(raw); err != nil {
			errs = append(errs, fmt.Errorf("endpoints.evm.%d: %w", id, err))
		}
	}
	if c.Endpoints.Solana != "" {
		if err := validateURL(c.Endpoints.Solana); err != nil {
			errs = append(errs, fmt.Errorf("endpoints.solana: %w", err))
		}
	}

	return errors.Join(errs...)
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" && u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	return nil
}

// DataPath returns the data directory with ~ expanded.
func (c *Config) DataPath() string {
	return expandPath(c.DataDir)
}

// SeedFilePath returns the absolute path of the sealed seed file.
func (c *Config) SeedFilePath() string {
	if filepath.IsAbs(c.Keyring.SeedFile) {
		return c.Keyring.SeedFile
	}
	return filepath.Join(c.DataPath(), c.Keyring.SeedFile)
}

// EnvFilePath returns the path of the optional .env file in the data dir.
func (c *Config) EnvFilePath() string {
	return filepath.Join(c.DataPath(), ".env")
}

// ConfigFileName is the default config file name.
const ConfigFileName = "config.yaml"

// LoadConfig loads configuration from <dataDir>/config.yaml.
// If the file doesn't exist, it creates one with default values.
func LoadConfig(dataDir string) (*Config, error) {
	configPath := ConfigPath(dataDir)

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		cfg.DataDir = dataDir

		if err := cfg.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}

		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.DataDir = dataDir

	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte("# walletlink daemon configuration\n# Generated automatically on first run\n\n")
	data = append(header, data...)

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ConfigPath returns the full path to the config file for the given data directory.
func ConfigPath(dataDir string) string {
	return filepath.Join(expandPath(dataDir), ConfigFileName)
}

// expandPath expands ~ to home directory.
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[1:])
	}
	return path
}
