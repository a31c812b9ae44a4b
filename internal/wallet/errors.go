package wallet

import "errors"

// Sentinel errors returned by the wallet engine. Callers match them with
// errors.Is; most are wrapped with context.
var (
	// ErrInvalidWord is returned when a mnemonic contains a word outside the
	// BIP-39 English list.
	ErrInvalidWord = errors.New("invalid mnemonic word")

	// ErrInvalidMnemonic is returned for a bad word count or checksum.
	ErrInvalidMnemonic = errors.New("invalid mnemonic")

	// ErrInvalidEntropy is returned for an entropy size other than
	// 128..256 bits in steps of 32.
	ErrInvalidEntropy = errors.New("invalid entropy size")

	ErrInvalidSeed        = errors.New("invalid seed")
	ErrPrivateKeyRequired = errors.New("private key required")
	ErrInvalidPath        = errors.New("invalid derivation path")
	ErrInvalidExtendedKey = errors.New("invalid extended key")

	// ErrUnknownAddress is returned when an output pays to an address this
	// wallet has not derived.
	ErrUnknownAddress = errors.New("address not owned by wallet")

	// ErrNoRenderer is returned when an image is requested but the wallet
	// has no renderer configured.
	ErrNoRenderer = errors.New("no image renderer configured")
)
