package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// LoadFile reads a .conf file of "key = value" lines; # starts a comment.
// A missing file yields no values.
func LoadFile(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("line %d: invalid format (expected key = value)", lineNum)
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') ||
				(value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}
		values[key] = value
	}
	return values, scanner.Err()
}

// ApplyFileConfig applies file values to cfg.
func ApplyFileConfig(cfg *Config, values map[string]string) error {
	for key, value := range values {
		if err := setConfigValue(cfg, key, value); err != nil {
			return fmt.Errorf("config key %q: %w", key, err)
		}
	}
	return nil
}

// setConfigValue sets one config value by key. Unknown keys are ignored.
func setConfigValue(cfg *Config, key, value string) error {
	switch key {
	// Core
	case "network":
		cfg.Network = NetworkType(strings.ToLower(value))
	case "datadir":
		cfg.DataDir = value

	// Wallet
	case "wallet.name", "wallet":
		cfg.Wallet.Name = value
	case "wallet.account":
		n, err := parseUint32(value)
		if err != nil {
			return err
		}
		cfg.Wallet.Account = n
	case "wallet.rotate":
		cfg.Wallet.Rotate = parseBool(value)
	case "wallet.gap":
		n, err := parseUint32(value)
		if err != nil {
			return err
		}
		cfg.Wallet.Gap = n
	case "wallet.xpubformat":
		cfg.Wallet.XPubFormat = value
	case "wallet.passwordfile":
		cfg.Wallet.PasswordFile = value

	// Ledger
	case "ledger.backend":
		cfg.Ledger.Backend = strings.ToLower(value)

	// RPC
	case "rpc.enabled", "rpc":
		cfg.RPC.Enabled = parseBool(value)
	case "rpc.addr":
		cfg.RPC.Addr = value
	case "rpc.port":
		port, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.RPC.Port = port
	case "rpc.allowed":
		cfg.RPC.AllowedIPs = parseStringList(value)
	case "rpc.cors":
		cfg.RPC.CORSOrigins = parseStringList(value)

	// QR
	case "qr.size":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.QR.Size = n
	case "qr.format":
		cfg.QR.Format = strings.ToLower(value)

	// Logging
	case "log.level":
		cfg.Log.Level = value
	case "log.file":
		cfg.Log.File = value
	case "log.json":
		cfg.Log.JSON = parseBool(value)
	}
	return nil
}

func parseBool(s string) bool {
	s = strings.ToLower(s)
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

func parseUint32(s string) (uint32, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(n), nil
}

// parseStringList parses a comma-separated list.
func parseStringList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			result = append(result, p)
		}
	}
	return result
}

// WriteDefaultConfig writes a commented default configuration file.
func WriteDefaultConfig(path string, network NetworkType) error {
	content := `# segwallet daemon configuration
#
# Values here override the built-in defaults; command-line flags override
# this file.

# Network: mainnet, testnet, regtest or signet
network = ` + string(network) + `

# Data directory (default: ~/.segwallet)
# datadir = ~/.segwallet

# ============================================================================
# Wallet
# ============================================================================

# Keystore wallet unlocked at startup
wallet.name = default

# BIP84 account index (m/84'/coin'/account')
wallet.account = 0

# Hand out a fresh receive address on every request instead of index 0
wallet.rotate = false

# Unused addresses derived ahead on each chain
wallet.gap = 20

# Extended public key encoding: zpub (SLIP-132) or xpub
wallet.xpubformat = zpub

# File holding the wallet password (prompted on the terminal when unset)
# wallet.passwordfile =

# ============================================================================
# Ledger
# ============================================================================

# UTXO ledger backend: badger (persistent) or memory
ledger.backend = ` + Default(network).Ledger.Backend + `

# ============================================================================
# RPC Server
# ============================================================================

rpc.enabled = true
rpc.addr = 127.0.0.1
rpc.port = ` + strconv.Itoa(DefaultRPCPort(network)) + `
rpc.allowed = 127.0.0.1
# CORS allowed origins ("*" for all)
# rpc.cors = http://localhost:3000

# ============================================================================
# QR codes
# ============================================================================

# Image size in pixels; a negative value sets pixels per module
qr.size = -10
# Image format: jpeg or png
qr.format = jpeg

# ============================================================================
# Logging
# ============================================================================

log.level = info
# log.file =
log.json = false
`
	return os.WriteFile(path, []byte(content), 0644)
}
