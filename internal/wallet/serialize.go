package wallet

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/Klingon-tech/segwallet/pkg/crypto"
	"github.com/Klingon-tech/segwallet/pkg/types"
	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// serializedKeyLen is version(4) depth(1) parent(4) child(4) chain(32) key(33).
const serializedKeyLen = 78

// KeyFormat selects the version bytes used when serializing a key.
type KeyFormat int

const (
	// FormatSegwit uses SLIP-132 versions (zprv/zpub, vprv/vpub).
	FormatSegwit KeyFormat = iota
	// FormatLegacy uses BIP-32 versions (xprv/xpub, tprv/tpub).
	FormatLegacy
)

// ParseKeyFormat maps a config value to a KeyFormat.
func ParseKeyFormat(s string) (KeyFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "zpub", "segwit", "slip132":
		return FormatSegwit, nil
	case "xpub", "legacy", "bip32":
		return FormatLegacy, nil
	default:
		return 0, fmt.Errorf("unknown extended key format %q (want zpub or xpub)", s)
	}
}

func (f KeyFormat) String() string {
	if f == FormatLegacy {
		return "xpub"
	}
	return "zpub"
}

func (f KeyFormat) versions(net *types.Network) (priv, pub [4]byte) {
	if f == FormatLegacy {
		return net.Params.HDPrivateKeyID, net.Params.HDPublicKeyID
	}
	return net.SegwitPrivateKeyID, net.SegwitPublicKeyID
}

// String serializes the key in the segwit (SLIP-132) format.
func (k *ExtendedKey) String() string {
	return k.Serialize(FormatSegwit)
}

// Serialize returns the base58check encoding of the key. A public-only key
// never carries private material.
func (k *ExtendedKey) Serialize(format KeyFormat) string {
	privVer, pubVer := format.versions(k.net)

	buf := make([]byte, 0, serializedKeyLen+4)
	if k.IsPrivate() {
		buf = append(buf, privVer[:]...)
	} else {
		buf = append(buf, pubVer[:]...)
	}
	buf = append(buf, k.depth)
	buf = append(buf, k.parentFP[:]...)
	buf = binary.BigEndian.AppendUint32(buf, k.childNum)
	buf = append(buf, k.chainCode...)
	if k.IsPrivate() {
		buf = append(buf, 0x00)
		buf = append(buf, k.privKey...)
	} else {
		buf = append(buf, k.pubKey...)
	}

	checksum := chainhash.DoubleHashB(buf)[:4]
	buf = append(buf, checksum...)
	s := base58.Encode(buf)
	zero(buf)
	return s
}

// ParseExtendedKey decodes a base58check extended key in either format.
// When net is nil the network is inferred from the version bytes.
func ParseExtendedKey(s string, net *types.Network) (*ExtendedKey, error) {
	raw := base58.Decode(s)
	defer zero(raw)
	if len(raw) != serializedKeyLen+4 {
		return nil, fmt.Errorf("%w: decoded length %d, want %d", ErrInvalidExtendedKey, len(raw), serializedKeyLen+4)
	}
	payload, checksum := raw[:serializedKeyLen], raw[serializedKeyLen:]
	if !bytes.Equal(chainhash.DoubleHashB(payload)[:4], checksum) {
		return nil, fmt.Errorf("%w: bad checksum", ErrInvalidExtendedKey)
	}

	var version [4]byte
	copy(version[:], payload[:4])
	keyNet, isPrivate, ok := lookupVersion(version, net)
	if !ok {
		return nil, fmt.Errorf("%w: unknown version %x", ErrInvalidExtendedKey, version)
	}

	depth := payload[4]
	var parentFP [4]byte
	copy(parentFP[:], payload[5:9])
	childNum := binary.BigEndian.Uint32(payload[9:13])
	chainCode := payload[13:45]
	keyData := payload[45:78]

	if depth == 0 && (parentFP != [4]byte{} || childNum != 0) {
		return nil, fmt.Errorf("%w: master key with parent fingerprint or index", ErrInvalidExtendedKey)
	}

	if isPrivate {
		if keyData[0] != 0x00 {
			return nil, fmt.Errorf("%w: private key data must start with 0x00", ErrInvalidExtendedKey)
		}
		var sc secp256k1.ModNScalar
		overflow := sc.SetByteSlice(keyData[1:])
		invalid := overflow || sc.IsZero()
		sc.Zero()
		if invalid {
			return nil, fmt.Errorf("%w: private key out of range", ErrInvalidExtendedKey)
		}
		return newPrivateKey(keyNet, keyData[1:], chainCode, depth, parentFP, childNum), nil
	}

	if err := crypto.ValidatePubKey(keyData); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExtendedKey, err)
	}
	return &ExtendedKey{
		net:       keyNet,
		pubKey:    copyBytes(keyData),
		chainCode: copyBytes(chainCode),
		depth:     depth,
		parentFP:  parentFP,
		childNum:  childNum,
	}, nil
}

// lookupVersion finds the network and key kind for version bytes. Test
// networks share versions, so a nil net resolves to the first match in
// mainnet, testnet, signet, regtest order.
func lookupVersion(version [4]byte, net *types.Network) (*types.Network, bool, bool) {
	candidates := []*types.Network{types.Mainnet, types.Testnet, types.Signet, types.Regtest}
	if net != nil {
		candidates = []*types.Network{net}
	}
	for _, n := range candidates {
		for _, f := range []KeyFormat{FormatSegwit, FormatLegacy} {
			priv, pub := f.versions(n)
			switch version {
			case priv:
				return n, true, true
			case pub:
				return n, false, true
			}
		}
	}
	return nil, false, false
}
