// Package types defines the primitive value types shared by the wallet engine.
package types

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// HashSize is the length of a hash in bytes.
const HashSize = chainhash.HashSize

// Hash represents a 256-bit hash value in internal byte order.
//
// String and JSON use the byte-reversed display order that block explorers
// and bitcoind use for transaction ids. Hex returns the internal order.
type Hash [HashSize]byte

// IsZero returns true if the hash is all zeros.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// String returns the hash in display (byte-reversed) hex.
func (h Hash) String() string {
	return chainhash.Hash(h).String()
}

// Hex returns the hash in internal byte order.
func (h Hash) Hex() string {
	return hex.EncodeToString(h[:])
}

// Bytes returns a copy of the hash as a byte slice.
func (h Hash) Bytes() []byte {
	b := make([]byte, HashSize)
	copy(b, h[:])
	return b
}

// MarshalJSON encodes the hash as a display-order hex string.
func (h Hash) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

// UnmarshalJSON decodes a display-order hex string into a hash.
func (h *Hash) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*h = Hash{}
		return nil
	}
	parsed, err := HexToHash(s)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// HexToHash parses a display-order hex string (as printed by explorers).
// Returns an error if the string is not exactly 64 hex characters.
func HexToHash(s string) (Hash, error) {
	if len(s) != HashSize*2 {
		return Hash{}, fmt.Errorf("hash must be %d hex characters, got %d", HashSize*2, len(s))
	}
	ch, err := chainhash.NewHashFromStr(s)
	if err != nil {
		return Hash{}, fmt.Errorf("invalid hex: %w", err)
	}
	return Hash(*ch), nil
}
