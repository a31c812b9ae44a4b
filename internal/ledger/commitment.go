package ledger

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/Klingon-tech/segwallet/pkg/crypto"
	"github.com/Klingon-tech/segwallet/pkg/types"
)

// Commitment computes a merkle root over the unspent outputs. Each output is
// hashed deterministically, the hashes are sorted, and a merkle tree is built
// from them. Two ledgers holding the same unspent set produce the same
// commitment regardless of insertion order. Returns a zero hash for an empty
// set.
func (l *Ledger) Commitment() (types.Hash, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var hashes []types.Hash
	err := l.forEachLocked(func(u *UTXO) error {
		if !u.Spent {
			hashes = append(hashes, hashUTXO(u))
		}
		return nil
	})
	if err != nil {
		return types.Hash{}, fmt.Errorf("ledger commitment: %w", err)
	}

	sort.Slice(hashes, func(i, j int) bool {
		return hashLess(hashes[i], hashes[j])
	})
	return crypto.MerkleRoot(hashes), nil
}

// hashUTXO produces a deterministic BLAKE3 hash of an output.
// Format: txid(32) | index(4) | value(8) | height(4) | scriptPubKey
func hashUTXO(u *UTXO) types.Hash {
	buf := make([]byte, 0, types.HashSize+16+2+types.ProgramSize)
	buf = append(buf, u.Outpoint.TxID[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, u.Outpoint.Index)
	buf = binary.LittleEndian.AppendUint64(buf, u.Value)
	buf = binary.LittleEndian.AppendUint32(buf, u.Height)
	buf = append(buf, u.Address.ScriptPubKey()...)
	return crypto.Hash(buf)
}

func hashLess(a, b types.Hash) bool {
	for i := 0; i < types.HashSize; i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
