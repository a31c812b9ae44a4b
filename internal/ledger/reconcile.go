package ledger

import (
	"errors"
	"fmt"

	klog "github.com/Klingon-tech/segwallet/internal/log"
	"github.com/Klingon-tech/segwallet/internal/storage"
	"github.com/Klingon-tech/segwallet/pkg/types"
)

// ReconcileResult reports what a Reconcile call changed.
type ReconcileResult struct {
	Added   int `json:"added"`   // outputs not previously known
	Updated int `json:"updated"` // known outputs whose height changed
	Spent   int `json:"spent"`   // known outputs missing from the snapshot
}

// Reconcile brings the ledger in line with an external snapshot of the
// unspent outputs paying to addrs. Every snapshot output is recorded, and
// every unspent ledger output owned by addrs that the snapshot no longer
// contains is marked spent. Outputs of other addresses are left alone, and
// an output the ledger already saw spent stays spent.
//
// The snapshot is checked for conflicts before anything is written, and all
// changes are committed in one batch.
func (l *Ledger) Reconcile(addrs []types.Address, unspent []UTXO) (ReconcileResult, error) {
	var res ReconcileResult

	owned := make(map[types.Address]struct{}, len(addrs))
	for _, a := range addrs {
		owned[a] = struct{}{}
	}
	seen := make(map[types.Outpoint]UTXO, len(unspent))
	snapshot := make([]UTXO, 0, len(unspent))
	for _, u := range unspent {
		if err := u.Validate(); err != nil {
			return res, err
		}
		if _, ok := owned[u.Address]; !ok {
			return res, fmt.Errorf("snapshot output %s pays to %s, which is not being reconciled", u.Outpoint, u.Address)
		}
		if prev, ok := seen[u.Outpoint]; ok {
			if prev.Address != u.Address || prev.Value != u.Value {
				return res, fmt.Errorf("%w: %s appears twice in snapshot", ErrConflictingUTXO, u.Outpoint)
			}
			continue
		}
		seen[u.Outpoint] = u
		snapshot = append(snapshot, u)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	batch := storage.NewBatch(l.db)
	for _, u := range snapshot {
		u.Spent = false
		_, err := l.getLocked(u.Outpoint)
		isNew := errors.Is(err, ErrUnknownUTXO)
		changed, err := l.recordLocked(batch, u)
		if err != nil {
			return ReconcileResult{}, err
		}
		switch {
		case changed && isNew:
			res.Added++
		case changed:
			res.Updated++
		}
	}

	for addr := range owned {
		err := l.db.ForEach(addrPrefix(addr), func(key, _ []byte) error {
			op, ok := outpointFromAddrKey(key)
			if !ok {
				return nil
			}
			if _, ok := seen[op]; ok {
				return nil
			}
			u, err := l.getLocked(op)
			if err != nil || u.Spent {
				return nil
			}
			u.Spent = true
			res.Spent++
			return putUTXO(batch, u)
		})
		if err != nil {
			return ReconcileResult{}, fmt.Errorf("reconcile %s: %w", addr, err)
		}
	}

	if res.Added+res.Updated+res.Spent == 0 {
		return res, nil
	}
	if err := batch.Commit(); err != nil {
		return ReconcileResult{}, fmt.Errorf("reconcile commit: %w", err)
	}
	klog.Ledger.Info().
		Int("added", res.Added).
		Int("updated", res.Updated).
		Int("spent", res.Spent).
		Msg("Ledger reconciled")
	return res, nil
}
