// Package config loads the daemon's TOML configuration file and applies
// field-level defaults the way the teacher's env-based config applies
// getEnv(..., default) per field, adapted here to a decode-then-backfill
// pass since TOML omits rather than empty-strings missing keys.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the daemon's full runtime configuration, decoded from TOML.
type Config struct {
	NodeType       string   `toml:"node_type"`
	DataDir        string   `toml:"data_dir"`
	RPCHost        string   `toml:"rpc_host"`
	RPCPort        int      `toml:"rpc_port"`
	P2PPort        int      `toml:"p2p_port"`
	IPFSAPIURL     string   `toml:"ipfs_api_url"`
	Peers          []string `toml:"peers"`
	SelfURL        string   `toml:"self_url"`
	BlocksPerEpoch uint64   `toml:"blocks_per_epoch"`
	LogLevel       string   `toml:"log_level"`
	HotkeyPath     string   `toml:"hotkey_path"`
	ColdkeyPubPath string   `toml:"coldkey_pub_path"`
	AuditDSN       string   `toml:"audit_dsn"`
	MetricsAddr    string   `toml:"metrics_addr"`
}

// defaults mirrors the shape documented for the config file; any field
// left unset in the TOML source is backfilled from here after decode.
var defaults = Config{
	NodeType:       "hybrid",
	DataDir:        "~/.chitin/data",
	RPCHost:        "127.0.0.1",
	RPCPort:        50051,
	P2PPort:        4001,
	IPFSAPIURL:     "http://127.0.0.1:5001",
	BlocksPerEpoch: 100,
	LogLevel:       "info",
	HotkeyPath:     "keys/hotkey.secret",
	ColdkeyPubPath: "keys/coldkey.pub",
	MetricsAddr:    "127.0.0.1:9090",
}

// Load decodes the TOML file at path and applies defaults for any field
// left at its zero value.
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config file %s: %w", path, err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.NodeType == "" {
		cfg.NodeType = defaults.NodeType
	}
	if cfg.DataDir == "" {
		cfg.DataDir = defaults.DataDir
	}
	if cfg.RPCHost == "" {
		cfg.RPCHost = defaults.RPCHost
	}
	if cfg.RPCPort == 0 {
		cfg.RPCPort = defaults.RPCPort
	}
	if cfg.P2PPort == 0 {
		cfg.P2PPort = defaults.P2PPort
	}
	if cfg.IPFSAPIURL == "" {
		cfg.IPFSAPIURL = defaults.IPFSAPIURL
	}
	if cfg.BlocksPerEpoch == 0 {
		cfg.BlocksPerEpoch = defaults.BlocksPerEpoch
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaults.LogLevel
	}
	if cfg.HotkeyPath == "" {
		cfg.HotkeyPath = defaults.HotkeyPath
	}
	if cfg.ColdkeyPubPath == "" {
		cfg.ColdkeyPubPath = defaults.ColdkeyPubPath
	}
	if cfg.MetricsAddr == "" {
		cfg.MetricsAddr = defaults.MetricsAddr
	}
}

// Validate checks the fields that must be sane before the daemon starts
// touching the filesystem or network.
func (c *Config) Validate() error {
	var problems []string

	switch c.NodeType {
	case "coral", "tide", "hybrid":
	default:
		problems = append(problems, fmt.Sprintf("node_type %q must be one of coral, tide, hybrid", c.NodeType))
	}
	if c.DataDir == "" {
		problems = append(problems, "data_dir must not be empty")
	}
	if c.RPCPort <= 0 || c.RPCPort > 65535 {
		problems = append(problems, fmt.Sprintf("rpc_port %d out of range", c.RPCPort))
	}
	if c.BlocksPerEpoch == 0 {
		problems = append(problems, "blocks_per_epoch must be greater than zero")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %v", problems)
	}
	return nil
}

// ExpandDataDir resolves a leading "~" in DataDir against the current
// user's home directory, since TOML has no shell to do it for us.
func (c *Config) ExpandDataDir() (string, error) {
	if len(c.DataDir) < 1 || c.DataDir[0] != '~' {
		return c.DataDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return home + c.DataDir[1:], nil
}
