// Package wallet implements a deterministic BIP84 wallet: BIP-39 mnemonics,
// BIP-32 key derivation, native segwit receive addresses and a UTXO-backed
// balance.
package wallet

import (
	"fmt"
	"strings"

	"github.com/tyler-smith/go-bip39"
	"golang.org/x/text/unicode/norm"
)

// Entropy sizes accepted by GenerateMnemonic.
const (
	MinEntropyBits     = 128
	MaxEntropyBits     = 256
	DefaultEntropyBits = 256
)

// GenerateMnemonic creates a new BIP-39 mnemonic from entropyBits of fresh
// randomness (12 words for 128 bits, 24 for 256). A failing random source is
// returned as an error; no weaker source is substituted.
func GenerateMnemonic(entropyBits int) (string, error) {
	if !validEntropyBits(entropyBits) {
		return "", fmt.Errorf("%w: %d bits", ErrInvalidEntropy, entropyBits)
	}
	entropy, err := bip39.NewEntropy(entropyBits)
	if err != nil {
		return "", fmt.Errorf("generate entropy: %w", err)
	}
	defer zero(entropy)
	return MnemonicFromEntropy(entropy)
}

// MnemonicFromEntropy encodes raw entropy as a mnemonic sentence.
func MnemonicFromEntropy(entropy []byte) (string, error) {
	if !validEntropyBits(len(entropy) * 8) {
		return "", fmt.Errorf("%w: %d bytes", ErrInvalidEntropy, len(entropy))
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("encode mnemonic: %w", err)
	}
	return mnemonic, nil
}

// ValidateMnemonic checks the word count and checksum of a mnemonic.
// A bad count or checksum returns (false, nil). A word missing from the
// list returns ErrInvalidWord naming the word.
func ValidateMnemonic(mnemonic string) (bool, error) {
	words := strings.Fields(NormalizeMnemonic(mnemonic))
	for i, w := range words {
		if _, ok := bip39.GetWordIndex(w); !ok {
			return false, fmt.Errorf("%w: %q at position %d", ErrInvalidWord, w, i+1)
		}
	}
	if !validWordCount(len(words)) {
		return false, nil
	}
	if _, err := bip39.EntropyFromMnemonic(strings.Join(words, " ")); err != nil {
		return false, nil
	}
	return true, nil
}

// NormalizeMnemonic applies NFKD, lower-cases and collapses whitespace.
func NormalizeMnemonic(mnemonic string) string {
	s := norm.NFKD.String(mnemonic)
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// WordCount returns the number of words in a mnemonic for an entropy size.
func WordCount(entropyBits int) int {
	return (entropyBits + entropyBits/32) / 11
}

// EntropyBits returns the entropy size behind a mnemonic of the given
// word count.
// Counts other than 12, 15, 18, 21 and 24 fail with ErrInvalidEntropy.
func EntropyBits(words int) (int, error) {
	if !validWordCount(words) {
		return 0, fmt.Errorf("%w: %d words", ErrInvalidEntropy, words)
	}
	return words / 3 * 32, nil
}

func validEntropyBits(bits int) bool {
	return bits >= MinEntropyBits && bits <= MaxEntropyBits && bits%32 == 0
}

func validWordCount(n int) bool {
	return n >= 12 && n <= 24 && n%3 == 0
}

// zero overwrites b with zeros.
func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
