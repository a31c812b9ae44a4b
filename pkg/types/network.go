package types

import (
	"fmt"
	"sort"
	"strings"

	"github.com/btcsuite/btcd/chaincfg"
)

// Network describes the constants a wallet needs for one Bitcoin network:
// the chain parameters (bech32 HRP, coin type, legacy HD versions) and the
// SLIP-132 version bytes for native segwit extended keys.
type Network struct {
	Name   string
	Params *chaincfg.Params

	// SegwitPrivateKeyID and SegwitPublicKeyID are the zprv/zpub (mainnet)
	// or vprv/vpub (test networks) versions.
	SegwitPrivateKeyID [4]byte
	SegwitPublicKeyID  [4]byte
}

// Registered networks.
var (
	Mainnet = &Network{
		Name:               "mainnet",
		Params:             &chaincfg.MainNetParams,
		SegwitPrivateKeyID: [4]byte{0x04, 0xb2, 0x43, 0x0c}, // zprv
		SegwitPublicKeyID:  [4]byte{0x04, 0xb2, 0x47, 0x46}, // zpub
	}
	Testnet = &Network{
		Name:               "testnet",
		Params:             &chaincfg.TestNet3Params,
		SegwitPrivateKeyID: [4]byte{0x04, 0x5f, 0x18, 0xbc}, // vprv
		SegwitPublicKeyID:  [4]byte{0x04, 0x5f, 0x1c, 0xf6}, // vpub
	}
	Regtest = &Network{
		Name:               "regtest",
		Params:             &chaincfg.RegressionNetParams,
		SegwitPrivateKeyID: [4]byte{0x04, 0x5f, 0x18, 0xbc},
		SegwitPublicKeyID:  [4]byte{0x04, 0x5f, 0x1c, 0xf6},
	}
	Signet = &Network{
		Name:               "signet",
		Params:             &chaincfg.SigNetParams,
		SegwitPrivateKeyID: [4]byte{0x04, 0x5f, 0x18, 0xbc},
		SegwitPublicKeyID:  [4]byte{0x04, 0x5f, 0x1c, 0xf6},
	}
)

var networks = map[string]*Network{
	Mainnet.Name: Mainnet,
	Testnet.Name: Testnet,
	Regtest.Name: Regtest,
	Signet.Name:  Signet,
}

// NetworkByName looks up a registered network. "main" and "test" are
// accepted as aliases.
func NetworkByName(name string) (*Network, error) {
	switch n := strings.ToLower(strings.TrimSpace(name)); n {
	case "main":
		return Mainnet, nil
	case "test", "testnet3":
		return Testnet, nil
	default:
		if net, ok := networks[n]; ok {
			return net, nil
		}
	}
	return nil, fmt.Errorf("unknown network %q", name)
}

// NetworkNames returns the registered network names, sorted.
func NetworkNames() []string {
	names := make([]string, 0, len(networks))
	for name := range networks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HRP returns the bech32 human-readable part for segwit addresses.
func (n *Network) HRP() string {
	return n.Params.Bech32HRPSegwit
}

// CoinType returns the BIP44 coin type used at the second path level.
func (n *Network) CoinType() uint32 {
	return n.Params.HDCoinType
}

// IsMainnet reports whether this is the production network.
func (n *Network) IsMainnet() bool {
	return n.Params.Net == chaincfg.MainNetParams.Net
}

func (n *Network) String() string {
	return n.Name
}
