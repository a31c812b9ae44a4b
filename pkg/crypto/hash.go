// Package crypto provides the hash primitives and address derivation used by
// the wallet engine.
package crypto

import (
	"github.com/Klingon-tech/segwallet/pkg/types"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/zeebo/blake3"
)

// Hash computes a BLAKE3-256 hash of the input data.
func Hash(data []byte) types.Hash {
	return blake3.Sum256(data)
}

// HashConcat hashes the concatenation of two hashes.
// Used for building merkle trees.
func HashConcat(a, b types.Hash) types.Hash {
	var buf [64]byte
	copy(buf[:32], a[:])
	copy(buf[32:], b[:])
	return Hash(buf[:])
}

// DoubleSHA256 computes SHA256(SHA256(data)), the Bitcoin checksum and
// transaction id hash.
func DoubleSHA256(data []byte) types.Hash {
	return types.Hash(chainhash.DoubleHashH(data))
}

// Hash160 computes RIPEMD160(SHA256(data)).
func Hash160(data []byte) []byte {
	return btcutil.Hash160(data)
}
