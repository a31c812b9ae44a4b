package config

import (
	"fmt"
	"net"
	"strings"

	klog "github.com/Klingon-tech/segwallet/internal/log"
	"github.com/Klingon-tech/segwallet/internal/qr"
	"github.com/Klingon-tech/segwallet/internal/wallet"
	"github.com/Klingon-tech/segwallet/pkg/types"
)

// Validate checks the config for operator mistakes and normalizes a few
// values in place.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	network, err := types.NetworkByName(string(cfg.Network))
	if err != nil {
		return fmt.Errorf("network: %w", err)
	}
	cfg.Network = NetworkType(network.Name)

	if cfg.DataDir == "" {
		return fmt.Errorf("datadir must not be empty")
	}
	if cfg.Wallet.Name == "" || strings.ContainsAny(cfg.Wallet.Name, `/\`) {
		return fmt.Errorf("wallet.name %q is not a valid wallet name", cfg.Wallet.Name)
	}
	if cfg.Wallet.Account >= wallet.HardenedKeyStart {
		return fmt.Errorf("wallet.account must be below %d", wallet.HardenedKeyStart)
	}
	if cfg.Wallet.Gap == 0 || cfg.Wallet.Gap > 1000 {
		return fmt.Errorf("wallet.gap must be in range [1, 1000]")
	}
	if _, err := wallet.ParseKeyFormat(cfg.Wallet.XPubFormat); err != nil {
		return fmt.Errorf("wallet.xpubformat: %w", err)
	}

	switch cfg.Ledger.Backend {
	case LedgerMemory, LedgerBadger:
	default:
		return fmt.Errorf("ledger.backend must be %q or %q", LedgerMemory, LedgerBadger)
	}

	if cfg.RPC.Port < 0 || cfg.RPC.Port > 65535 {
		return fmt.Errorf("rpc.port must be in range [0, 65535]")
	}
	for _, entry := range cfg.RPC.AllowedIPs {
		if net.ParseIP(entry) == nil {
			if _, _, err := net.ParseCIDR(entry); err != nil {
				return fmt.Errorf("rpc.allowed entry %q is not an IP or CIDR", entry)
			}
		}
	}

	if cfg.QR.Size == 0 {
		return fmt.Errorf("qr.size must not be 0")
	}
	if _, err := qr.ParseFormat(cfg.QR.Format); err != nil {
		return fmt.Errorf("qr.format: %w", err)
	}
	if !klog.ValidLevel(cfg.Log.Level) {
		return fmt.Errorf("log.level %q is not a known level", cfg.Log.Level)
	}
	return nil
}
