package wallet

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/Klingon-tech/segwallet/pkg/types"
)

// AddressInfo describes one derived address of the account.
type AddressInfo struct {
	Address types.Address `json:"address"`
	Path    string        `json:"path"`
	Change  uint32        `json:"change"`
	Index   uint32        `json:"index"`
	Used    bool          `json:"used"`
}

// Info summarizes a wallet for display and RPC.
type Info struct {
	Network     string    `json:"network"`
	Fingerprint string    `json:"fingerprint"`
	AccountPath string    `json:"account_path"`
	XPub        string    `json:"xpub"`
	Rotate      bool      `json:"rotate"`
	Gap         uint32    `json:"gap"`
	Derived     [2]uint32 `json:"derived"`
	NextIndex   uint32    `json:"next_index"`
}

// NewWalletMeta derives the keystore metadata for one account of seed.
func NewWalletMeta(seed []byte, net *types.Network, account uint32, format KeyFormat) (WalletMeta, error) {
	master, err := NewMasterKey(seed, net)
	if err != nil {
		return WalletMeta{}, err
	}
	defer master.Zero()

	path, err := AccountPath(net, account)
	if err != nil {
		return WalletMeta{}, err
	}
	acct, err := master.DerivePath(path)
	if err != nil {
		return WalletMeta{}, fmt.Errorf("derive account: %w", err)
	}
	defer acct.Zero()

	fp := master.Fingerprint()
	return WalletMeta{
		Network:     net.Name,
		Account:     account,
		Fingerprint: hex.EncodeToString(fp[:]),
		XPub:        acct.Neuter().Serialize(format),
		CreatedAt:   time.Now().UTC(),
	}, nil
}
