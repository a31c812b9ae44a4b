package crypto

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/Klingon-tech/segwallet/pkg/types"
	"github.com/btcsuite/btcd/wire"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// messageMagic prefixes every signed message so a signature can never be
// replayed as a transaction signature.
const messageMagic = "Bitcoin Signed Message:\n"

// Compact signature header ranges. Legacy compressed-key signatures use
// 31..34; BIP137 native segwit signatures use 39..42.
const (
	headerCompressed = 31
	headerSegwit     = 39
	segwitOffset     = headerSegwit - headerCompressed
)

// ErrInvalidSignature is returned when a message signature cannot be parsed
// or does not match the expected address.
var ErrInvalidSignature = errors.New("invalid signature")

// MessageHash returns the double-SHA256 of the magic-prefixed message.
func MessageHash(message string) types.Hash {
	var buf bytes.Buffer
	_ = wire.WriteVarString(&buf, 0, messageMagic)
	_ = wire.WriteVarString(&buf, 0, message)
	return DoubleSHA256(buf.Bytes())
}

// SignMessage produces a 65-byte compact signature over message with a
// BIP137 P2WPKH header.
func SignMessage(privKey []byte, message string) ([]byte, error) {
	if len(privKey) != 32 {
		return nil, fmt.Errorf("private key must be 32 bytes, got %d", len(privKey))
	}
	key := secp256k1.PrivKeyFromBytes(privKey)
	defer key.Zero()

	hash := MessageHash(message)
	sig := ecdsa.SignCompact(key, hash[:], true)
	sig[0] += segwitOffset
	return sig, nil
}

// RecoverMessageKey recovers the compressed public key that signed message.
// Both legacy compressed and segwit headers are accepted.
func RecoverMessageKey(signature []byte, message string) ([]byte, error) {
	if len(signature) != 65 {
		return nil, fmt.Errorf("%w: length %d, want 65", ErrInvalidSignature, len(signature))
	}
	sig := make([]byte, len(signature))
	copy(sig, signature)
	switch {
	case sig[0] >= headerSegwit && sig[0] < headerSegwit+4:
		sig[0] -= segwitOffset
	case sig[0] >= headerCompressed && sig[0] < headerCompressed+4:
	default:
		return nil, fmt.Errorf("%w: unsupported header %d", ErrInvalidSignature, sig[0])
	}

	hash := MessageHash(message)
	pub, _, err := ecdsa.RecoverCompact(sig, hash[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return pub.SerializeCompressed(), nil
}

// VerifyMessage checks that signature over message was made by the key
// behind addr.
func VerifyMessage(addr types.Address, signature []byte, message string, net *types.Network) error {
	pub, err := RecoverMessageKey(signature, message)
	if err != nil {
		return err
	}
	got, err := AddressFromPubKey(pub, net)
	if err != nil {
		return err
	}
	if got != addr {
		return fmt.Errorf("%w: signed by %s, not %s", ErrInvalidSignature, got, addr)
	}
	return nil
}
