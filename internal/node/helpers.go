package node

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Klingon-tech/segwallet/config"
	"github.com/Klingon-tech/segwallet/internal/qr"
	"github.com/Klingon-tech/segwallet/internal/wallet"
)

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

// ReadPasswordFile reads a wallet password from a file. One trailing
// newline is stripped; other whitespace is part of the password.
func ReadPasswordFile(path string) ([]byte, error) {
	data, err := os.ReadFile(expandHome(path))
	if err != nil {
		return nil, fmt.Errorf("read password file: %w", err)
	}
	pw := strings.TrimSuffix(strings.TrimSuffix(string(data), "\n"), "\r")
	if pw == "" {
		return nil, fmt.Errorf("password file %s is empty", path)
	}
	return []byte(pw), nil
}

// ledgerPrefix scopes one wallet account inside a shared ledger database.
func ledgerPrefix(name string, account uint32) []byte {
	return []byte(fmt.Sprintf("wallet/%s/%d/", name, account))
}

// newRenderer builds the QR renderer from config.
func newRenderer(cfg config.QRConfig) (*qr.Renderer, error) {
	format, err := qr.ParseFormat(cfg.Format)
	if err != nil {
		return nil, err
	}
	return qr.New(qr.Options{Size: cfg.Size, Format: format})
}

// checkFingerprint guards against a keystore whose metadata does not match
// its sealed seed.
func checkFingerprint(w *wallet.Wallet, meta wallet.WalletMeta) error {
	if meta.Fingerprint == "" {
		return nil
	}
	fp := w.Fingerprint()
	if got := hex.EncodeToString(fp[:]); got != meta.Fingerprint {
		return fmt.Errorf("wallet fingerprint %s does not match keystore metadata %s", got, meta.Fingerprint)
	}
	return nil
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
