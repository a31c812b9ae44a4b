package wallet

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	klog "github.com/Klingon-tech/segwallet/internal/log"
)

const (
	keystoreVersion = 1
	walletExt       = ".wallet"
)

// Keystore errors.
var (
	ErrWalletExists   = errors.New("wallet already exists")
	ErrWalletNotFound = errors.New("wallet not found")
	ErrInvalidName    = errors.New("invalid wallet name")
)

// WalletMeta is the non-secret metadata stored next to the sealed seed.
type WalletMeta struct {
	Network     string    `json:"network"`
	Account     uint32    `json:"account"`
	Fingerprint string    `json:"fingerprint"`
	XPub        string    `json:"xpub"`
	NextIndex   uint32    `json:"next_index"`
	CreatedAt   time.Time `json:"created_at"`
}

// keystoreFile is the on-disk JSON format of one wallet.
type keystoreFile struct {
	Version       int        `json:"version"`
	Meta          WalletMeta `json:"meta"`
	EncryptedSeed []byte     `json:"encrypted_seed"`
}

// Keystore keeps password-sealed wallet seeds in a directory, one file per
// wallet.
type Keystore struct {
	path string
}

// NewKeystore opens the keystore directory, creating it if needed.
func NewKeystore(path string) (*Keystore, error) {
	if err := os.MkdirAll(path, 0700); err != nil {
		return nil, fmt.Errorf("create keystore dir: %w", err)
	}
	return &Keystore{path: path}, nil
}

// Dir returns the keystore directory.
func (ks *Keystore) Dir() string {
	return ks.path
}

func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) || strings.TrimSpace(name) != name {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

func (ks *Keystore) walletPath(name string) string {
	return filepath.Join(ks.path, name+walletExt)
}

// Create seals seed under password and writes a new wallet file.
func (ks *Keystore) Create(name string, seed, password []byte, meta WalletMeta, params EncryptionParams) error {
	if err := validName(name); err != nil {
		return err
	}
	path := ks.walletPath(name)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %q", ErrWalletExists, name)
	}

	sealed, err := Encrypt(seed, password, params)
	if err != nil {
		return fmt.Errorf("encrypt seed: %w", err)
	}
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now().UTC()
	}
	kf := keystoreFile{
		Version:       keystoreVersion,
		Meta:          meta,
		EncryptedSeed: sealed,
	}
	if err := ks.writeFile(path, &kf); err != nil {
		return err
	}
	klog.Wallet.Info().Str("wallet", name).Str("network", meta.Network).Msg("Wallet created")
	return nil
}

// Load unseals a wallet and returns its seed and metadata. The caller owns
// the seed and should wipe it when done.
func (ks *Keystore) Load(name string, password []byte) ([]byte, WalletMeta, error) {
	kf, err := ks.read(name)
	if err != nil {
		return nil, WalletMeta{}, err
	}
	seed, err := Decrypt(kf.EncryptedSeed, password)
	if err != nil {
		return nil, WalletMeta{}, fmt.Errorf("unlock wallet %q: %w", name, err)
	}
	return seed, kf.Meta, nil
}

// Meta returns a wallet's metadata without unsealing it.
func (ks *Keystore) Meta(name string) (WalletMeta, error) {
	kf, err := ks.read(name)
	if err != nil {
		return WalletMeta{}, err
	}
	return kf.Meta, nil
}

// SetNextIndex stores the next receive index of a rotating wallet.
func (ks *Keystore) SetNextIndex(name string, idx uint32) error {
	kf, err := ks.read(name)
	if err != nil {
		return err
	}
	if kf.Meta.NextIndex == idx {
		return nil
	}
	kf.Meta.NextIndex = idx
	return ks.writeFile(ks.walletPath(name), kf)
}

// Exists reports whether a wallet file is present.
func (ks *Keystore) Exists(name string) bool {
	if validName(name) != nil {
		return false
	}
	_, err := os.Stat(ks.walletPath(name))
	return err == nil
}

// List returns the sorted names of all wallets in the keystore.
func (ks *Keystore) List() ([]string, error) {
	entries, err := os.ReadDir(ks.path)
	if err != nil {
		return nil, fmt.Errorf("read keystore dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if name, ok := strings.CutSuffix(e.Name(), walletExt); ok && name != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes a wallet file.
func (ks *Keystore) Delete(name string) error {
	if err := validName(name); err != nil {
		return err
	}
	if err := os.Remove(ks.walletPath(name)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %q", ErrWalletNotFound, name)
		}
		return fmt.Errorf("delete wallet: %w", err)
	}
	return nil
}

func (ks *Keystore) read(name string) (*keystoreFile, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(ks.walletPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %q", ErrWalletNotFound, name)
		}
		return nil, fmt.Errorf("read wallet: %w", err)
	}
	var kf keystoreFile
	if err := json.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("parse wallet: %w", err)
	}
	if kf.Version != keystoreVersion {
		return nil, fmt.Errorf("unsupported wallet version: %d", kf.Version)
	}
	return &kf, nil
}

// writeFile replaces path atomically through a temporary file.
func (ks *Keystore) writeFile(path string, kf *keystoreFile) error {
	data, err := json.MarshalIndent(kf, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal wallet: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("write wallet: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write wallet: %w", err)
	}
	return nil
}
