package wallet

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"
	"errors"
	"fmt"

	klog "github.com/Klingon-tech/segwallet/internal/log"
	"github.com/Klingon-tech/segwallet/pkg/crypto"
	"github.com/Klingon-tech/segwallet/pkg/types"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// BIP-84 derivation path constants.
// Full path: m/84'/coin'/account'/change/index
const (
	// HardenedKeyStart is the first hardened child index (2^31).
	HardenedKeyStart uint32 = 0x80000000

	// PurposeBIP84 is the BIP-84 purpose field (hardened).
	PurposeBIP84 = HardenedKeyStart + 84

	// ChangeExternal is for receiving addresses.
	ChangeExternal = 0

	// ChangeInternal is for change addresses.
	ChangeInternal = 1
)

// Seed length bounds accepted by NewMasterKey.
const (
	MinSeedBytes = 16
	MaxSeedBytes = 64
)

var masterKeyHMAC = []byte("Bitcoin seed")

// errInvalidChild marks the rare IL >= n / zero key / infinity case that
// makes derivation move on to the next index.
var errInvalidChild = errors.New("derived key is invalid")

// ExtendedKey is a BIP-32 node: an optional private key, the compressed
// public key, chain code and position metadata. It is immutable and keeps no
// reference to its parent.
type ExtendedKey struct {
	net       *types.Network
	privKey   []byte // 32 bytes, nil for public-only keys
	pubKey    []byte // 33 bytes compressed
	chainCode []byte
	depth     uint8
	parentFP  [4]byte
	childNum  uint32
}

// NewMasterKey creates the root key from a seed with HMAC-SHA512 keyed
// "Bitcoin seed". The seed must be 16 to 64 bytes.
func NewMasterKey(seed []byte, net *types.Network) (*ExtendedKey, error) {
	if len(seed) < MinSeedBytes || len(seed) > MaxSeedBytes {
		return nil, fmt.Errorf("%w: length %d, want %d..%d bytes", ErrInvalidSeed, len(seed), MinSeedBytes, MaxSeedBytes)
	}
	if net == nil {
		net = types.Mainnet
	}

	mac := hmac.New(sha512.New, masterKeyHMAC)
	mac.Write(seed)
	sum := mac.Sum(nil)
	defer zero(sum)

	var k secp256k1.ModNScalar
	if overflow := k.SetByteSlice(sum[:32]); overflow || k.IsZero() {
		return nil, fmt.Errorf("%w: master scalar out of range", ErrInvalidSeed)
	}
	priv := k.Bytes()
	k.Zero()

	return newPrivateKey(net, priv[:], sum[32:], 0, [4]byte{}, 0), nil
}

// newPrivateKey builds a private node, computing its public key.
func newPrivateKey(net *types.Network, priv, chainCode []byte, depth uint8, parentFP [4]byte, childNum uint32) *ExtendedKey {
	p := make([]byte, 32)
	copy(p, priv)
	key := secp256k1.PrivKeyFromBytes(p)
	pub := key.PubKey().SerializeCompressed()
	key.Zero()

	return &ExtendedKey{
		net:       net,
		privKey:   p,
		pubKey:    pub,
		chainCode: copyBytes(chainCode),
		depth:     depth,
		parentFP:  parentFP,
		childNum:  childNum,
	}
}

// DeriveChild derives the child at index. Indices at or above
// HardenedKeyStart are hardened and need the private key.
//
// If the derived key is invalid (IL >= n, a zero scalar or the point at
// infinity), derivation moves to index+1 as BIP-32 requires; ChildIndex on
// the result reports the index actually used.
func (k *ExtendedKey) DeriveChild(index uint32) (*ExtendedKey, error) {
	hardened := index >= HardenedKeyStart
	if hardened && !k.IsPrivate() {
		return nil, fmt.Errorf("%w: hardened child %s of public key", ErrPrivateKeyRequired, formatIndex(index))
	}

	for {
		child, err := k.deriveChildAt(index, hardened)
		if err == nil {
			return child, nil
		}
		if !errors.Is(err, errInvalidChild) {
			return nil, err
		}

		next := index + 1
		if next == 0 || (next >= HardenedKeyStart) != hardened {
			return nil, fmt.Errorf("%w: no valid child after %s", ErrInvalidPath, formatIndex(index))
		}
		klog.Keys.Debug().
			Uint8("depth", k.depth+1).
			Str("skipped", formatIndex(index)).
			Msg("Invalid child key, using next index")
		index = next
	}
}

func (k *ExtendedKey) deriveChildAt(index uint32, hardened bool) (*ExtendedKey, error) {
	data := make([]byte, 0, 37)
	if hardened {
		data = append(data, 0x00)
		data = append(data, k.privKey...)
	} else {
		data = append(data, k.pubKey...)
	}
	data = binary.BigEndian.AppendUint32(data, index)

	mac := hmac.New(sha512.New, k.chainCode)
	mac.Write(data)
	sum := mac.Sum(nil)
	zero(data)
	defer zero(sum)

	var il secp256k1.ModNScalar
	if overflow := il.SetByteSlice(sum[:32]); overflow {
		return nil, errInvalidChild
	}
	defer il.Zero()

	fp := k.Fingerprint()
	chainCode := sum[32:]

	if k.IsPrivate() {
		var parent secp256k1.ModNScalar
		parent.SetByteSlice(k.privKey)
		il.Add(&parent)
		parent.Zero()
		if il.IsZero() {
			return nil, errInvalidChild
		}
		childPriv := il.Bytes()
		child := newPrivateKey(k.net, childPriv[:], chainCode, k.depth+1, fp, index)
		zero(childPriv[:])
		return child, nil
	}

	// Public parent: child point = IL*G + Kpar.
	parentPub, err := secp256k1.ParsePubKey(k.pubKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExtendedKey, err)
	}
	var ilG, parentPoint, result secp256k1.JacobianPoint
	secp256k1.ScalarBaseMultNonConst(&il, &ilG)
	parentPub.AsJacobian(&parentPoint)
	secp256k1.AddNonConst(&ilG, &parentPoint, &result)
	if (result.X.IsZero() && result.Y.IsZero()) || result.Z.IsZero() {
		return nil, errInvalidChild
	}
	result.ToAffine()
	childPub := secp256k1.NewPublicKey(&result.X, &result.Y).SerializeCompressed()

	return &ExtendedKey{
		net:       k.net,
		pubKey:    childPub,
		chainCode: copyBytes(chainCode),
		depth:     k.depth + 1,
		parentFP:  fp,
		childNum:  index,
	}, nil
}

// DerivePath derives a key along path starting at k. A hardened step below a
// public-only node fails with an error matching both ErrInvalidPath and
// ErrPrivateKeyRequired.
func (k *ExtendedKey) DerivePath(path DerivationPath) (*ExtendedKey, error) {
	current := k
	for i, idx := range path {
		if idx >= HardenedKeyStart && !current.IsPrivate() {
			return nil, fmt.Errorf("%w: step %d (%s) is hardened below a public key: %w",
				ErrInvalidPath, i+1, formatIndex(idx), ErrPrivateKeyRequired)
		}
		child, err := current.DeriveChild(idx)
		if err != nil {
			return nil, fmt.Errorf("derive step %d of %s: %w", i+1, path, err)
		}
		current = child
	}
	return current, nil
}

// PublicMasterKey returns the neutered account node m/84'/coin'/account'.
// This is the key exported as the wallet's extended public key.
func PublicMasterKey(root *ExtendedKey, account uint32) (*ExtendedKey, error) {
	if root.depth != 0 {
		return nil, fmt.Errorf("%w: account key must be derived from the master key, got depth %d", ErrInvalidPath, root.depth)
	}
	path, err := AccountPath(root.net, account)
	if err != nil {
		return nil, err
	}
	acct, err := root.DerivePath(path)
	if err != nil {
		return nil, err
	}
	return acct.Neuter(), nil
}

// Neuter returns a public-key-only copy (for watch-only wallets).
func (k *ExtendedKey) Neuter() *ExtendedKey {
	return &ExtendedKey{
		net:       k.net,
		pubKey:    copyBytes(k.pubKey),
		chainCode: copyBytes(k.chainCode),
		depth:     k.depth,
		parentFP:  k.parentFP,
		childNum:  k.childNum,
	}
}

// PrivateKeyBytes returns a copy of the raw 32-byte private key.
// Returns nil if this is a public-only key.
func (k *ExtendedKey) PrivateKeyBytes() []byte {
	if !k.IsPrivate() {
		return nil
	}
	return copyBytes(k.privKey)
}

// PublicKeyBytes returns the compressed 33-byte public key.
func (k *ExtendedKey) PublicKeyBytes() []byte {
	return copyBytes(k.pubKey)
}

// Address returns the P2WPKH address of this key's public key.
func (k *ExtendedKey) Address() (types.Address, error) {
	return crypto.AddressFromPubKey(k.pubKey, k.net)
}

// Fingerprint returns the first four bytes of HASH160(pubkey).
func (k *ExtendedKey) Fingerprint() [4]byte {
	var fp [4]byte
	copy(fp[:], crypto.Hash160(k.pubKey)[:4])
	return fp
}

// ParentFingerprint returns the fingerprint of the parent key (zero for master).
func (k *ExtendedKey) ParentFingerprint() [4]byte {
	return k.parentFP
}

// ChainCode returns a copy of the 32-byte chain code.
func (k *ExtendedKey) ChainCode() []byte {
	return copyBytes(k.chainCode)
}

// IsPrivate returns true if this key contains a private key.
func (k *ExtendedKey) IsPrivate() bool {
	return k.privKey != nil
}

// Depth returns the derivation depth (0 for master).
func (k *ExtendedKey) Depth() uint8 {
	return k.depth
}

// ChildIndex returns the index this key was derived at.
func (k *ExtendedKey) ChildIndex() uint32 {
	return k.childNum
}

// Network returns the network the key was created for.
func (k *ExtendedKey) Network() *types.Network {
	return k.net
}

// Zero wipes the private key. The key is public-only afterwards.
func (k *ExtendedKey) Zero() {
	zero(k.privKey)
	k.privKey = nil
}

func copyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
