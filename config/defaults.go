package config

import (
	"net"
	"strconv"
)

// Default wallet settings.
const (
	DefaultWalletName = "default"
	DefaultGap        = 20
	DefaultQRSize     = -10
)

// defaultRPCPorts keeps the networks on distinct ports so daemons for
// several networks can run side by side.
var defaultRPCPorts = map[NetworkType]int{
	Mainnet: 8335,
	Testnet: 18335,
	Regtest: 18445,
	Signet:  38335,
}

// DefaultMainnet returns the default configuration for mainnet.
func DefaultMainnet() *Config {
	return &Config{
		Network: Mainnet,
		DataDir: DefaultDataDir(),
		Wallet: WalletConfig{
			Name:       DefaultWalletName,
			Gap:        DefaultGap,
			XPubFormat: "zpub",
		},
		Ledger: LedgerConfig{
			Backend: LedgerBadger,
		},
		RPC: RPCConfig{
			Enabled:    true,
			Addr:       "127.0.0.1",
			Port:       defaultRPCPorts[Mainnet],
			AllowedIPs: []string{"127.0.0.1"},
		},
		QR: QRConfig{
			Size:   DefaultQRSize,
			Format: "jpeg",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Default returns the default configuration for the given network. Unknown
// networks get mainnet defaults and are rejected later by Validate.
func Default(network NetworkType) *Config {
	cfg := DefaultMainnet()
	if port, ok := defaultRPCPorts[network]; ok {
		cfg.Network = network
		cfg.RPC.Port = port
	}
	if network == Regtest {
		cfg.Ledger.Backend = LedgerMemory
	}
	return cfg
}

// DefaultRPCPort returns the default RPC port of a network.
func DefaultRPCPort(network NetworkType) int {
	if port, ok := defaultRPCPorts[network]; ok {
		return port
	}
	return defaultRPCPorts[Mainnet]
}

func joinHostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
