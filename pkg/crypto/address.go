package crypto

import (
	"errors"
	"fmt"

	"github.com/Klingon-tech/segwallet/pkg/types"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// ErrInvalidPublicKey is returned for anything that is not a 33-byte
// compressed secp256k1 point.
var ErrInvalidPublicKey = errors.New("invalid public key")

// AddressFromPubKey derives the P2WPKH address for a compressed public key.
// Program = HASH160(compressed_pubkey).
func AddressFromPubKey(pubKey []byte, net *types.Network) (types.Address, error) {
	if err := ValidatePubKey(pubKey); err != nil {
		return types.Address{}, err
	}
	return types.NewAddress(Hash160(pubKey), net)
}

// ValidatePubKey checks that pubKey is a compressed point on secp256k1.
func ValidatePubKey(pubKey []byte) error {
	if len(pubKey) != secp256k1.PubKeyBytesLenCompressed {
		return fmt.Errorf("%w: length %d, want %d", ErrInvalidPublicKey, len(pubKey), secp256k1.PubKeyBytesLenCompressed)
	}
	if pubKey[0] != secp256k1.PubKeyFormatCompressedEven && pubKey[0] != secp256k1.PubKeyFormatCompressedOdd {
		return fmt.Errorf("%w: prefix 0x%02x is not compressed", ErrInvalidPublicKey, pubKey[0])
	}
	if _, err := secp256k1.ParsePubKey(pubKey); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	return nil
}
