package wallet

import (
	"fmt"

	"github.com/tyler-smith/go-bip39"
	"golang.org/x/text/unicode/norm"
)

// SeedSize is the length of a derived seed in bytes (512 bits).
const SeedSize = 64

// SeedFromMnemonic derives a 512-bit seed from a mnemonic and optional passphrase
// using PBKDF2-HMAC-SHA512 (2048 rounds) as specified in BIP-39. The mnemonic
// is validated first; nothing is derived from a malformed phrase.
func SeedFromMnemonic(mnemonic, passphrase string) ([]byte, error) {
	ok, err := ValidateMnemonic(mnemonic)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: bad word count or checksum", ErrInvalidMnemonic)
	}
	return bip39.NewSeed(NormalizeMnemonic(mnemonic), norm.NFKD.String(passphrase)), nil
}
