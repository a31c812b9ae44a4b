// Package config handles daemon configuration.
//
// Settings are resolved in order: per-network defaults, the config file
// (<datadir>/segwallet.conf) and finally command-line flags.
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// NetworkType names the Bitcoin network the wallet works on.
type NetworkType string

const (
	Mainnet NetworkType = "mainnet"
	Testnet NetworkType = "testnet"
	Regtest NetworkType = "regtest"
	Signet  NetworkType = "signet"
)

// Ledger backends.
const (
	LedgerMemory = "memory"
	LedgerBadger = "badger"
)

// Config holds the daemon's runtime configuration.
type Config struct {
	// Core
	Network NetworkType `conf:"network"`
	DataDir string      `conf:"datadir"`

	Wallet WalletConfig
	Ledger LedgerConfig
	RPC    RPCConfig
	QR     QRConfig
	Log    LogConfig
}

// WalletConfig selects the wallet the daemon unlocks and how it hands out
// addresses.
type WalletConfig struct {
	Name         string `conf:"wallet.name"`
	Account      uint32 `conf:"wallet.account"`
	Rotate       bool   `conf:"wallet.rotate"` // Hand out a fresh receive address per request.
	Gap          uint32 `conf:"wallet.gap"`
	XPubFormat   string `conf:"wallet.xpubformat"` // zpub or xpub
	PasswordFile string `conf:"wallet.passwordfile"`
}

// LedgerConfig selects where UTXOs are kept.
type LedgerConfig struct {
	Backend string `conf:"ledger.backend"` // memory or badger
}

// RPCConfig holds RPC server settings.
type RPCConfig struct {
	Enabled     bool     `conf:"rpc.enabled"`
	Addr        string   `conf:"rpc.addr"`
	Port        int      `conf:"rpc.port"`
	AllowedIPs  []string `conf:"rpc.allowed"`
	CORSOrigins []string `conf:"rpc.cors"` // Allowed CORS origins ("*" = all).
}

// QRConfig holds image rendering settings.
type QRConfig struct {
	Size   int    `conf:"qr.size"` // Pixels; negative means pixels per module.
	Format string `conf:"qr.format"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.segwallet
//	macOS:   ~/Library/Application Support/Segwallet
//	Windows: %APPDATA%\Segwallet
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".segwallet"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Segwallet")
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "Segwallet")
		}
		return filepath.Join(home, "AppData", "Roaming", "Segwallet")
	default:
		return filepath.Join(home, ".segwallet")
	}
}

// NetworkDataDir returns the network-specific data directory.
func (c *Config) NetworkDataDir() string {
	return filepath.Join(c.DataDir, string(c.Network))
}

// KeystoreDir returns the directory holding encrypted wallet files.
func (c *Config) KeystoreDir() string {
	return filepath.Join(c.NetworkDataDir(), "keystore")
}

// LedgerDir returns the badger ledger directory.
func (c *Config) LedgerDir() string {
	return filepath.Join(c.NetworkDataDir(), "ledger")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "segwallet.conf")
}

// RPCEndpoint returns the listen address of the RPC server.
func (c *Config) RPCEndpoint() string {
	return joinHostPort(c.RPC.Addr, c.RPC.Port)
}
