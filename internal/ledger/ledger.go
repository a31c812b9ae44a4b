// Package ledger tracks the unspent outputs paying to wallet addresses and
// computes balances from them.
package ledger

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"

	klog "github.com/Klingon-tech/segwallet/internal/log"
	"github.com/Klingon-tech/segwallet/internal/storage"
	"github.com/Klingon-tech/segwallet/pkg/types"
	"github.com/btcsuite/btcd/btcutil"
)

var (
	// ErrConflictingUTXO is returned when an outpoint is recorded again with
	// a different address or value.
	ErrConflictingUTXO = errors.New("conflicting utxo")

	// ErrUnknownUTXO is returned when an outpoint was never recorded.
	ErrUnknownUTXO = errors.New("unknown utxo")

	// ErrInvalidUTXO is returned for a record without an owning address or
	// with a value above the coin supply.
	ErrInvalidUTXO = errors.New("invalid utxo")

	// ErrBalanceOverflow is returned when stored values no longer sum in a
	// uint64.
	ErrBalanceOverflow = errors.New("balance overflow")
)

// maxValue is the largest output value a record may carry.
const maxValue = uint64(btcutil.MaxSatoshi)

// Validate checks the fields a record must carry before it is stored.
func (u *UTXO) Validate() error {
	if u.Address.IsZero() {
		return fmt.Errorf("%w: %s has no address", ErrInvalidUTXO, u.Outpoint)
	}
	if u.Value > maxValue {
		return fmt.Errorf("%w: %s value %d exceeds %d", ErrInvalidUTXO, u.Outpoint, u.Value, maxValue)
	}
	return nil
}

// addValue returns total+v, failing instead of wrapping.
func addValue(total, v uint64) (uint64, error) {
	if total > math.MaxUint64-v {
		return 0, ErrBalanceOverflow
	}
	return total + v, nil
}

// Key prefixes for the ledger store.
var (
	prefixUTXO = []byte("u/") // u/<txid><index> -> UTXO JSON
	prefixAddr = []byte("a/") // a/<program><txid><index> -> empty (index)
)

// UTXO is a transaction output paying to a wallet address.
type UTXO struct {
	Outpoint types.Outpoint `json:"outpoint"`
	Address  types.Address  `json:"address"`
	Value    uint64         `json:"value"`            // satoshis
	Height   uint32         `json:"height,omitempty"` // 0 = unconfirmed
	Spent    bool           `json:"spent"`
}

// Confirmed reports whether the output has been seen in a block.
func (u *UTXO) Confirmed() bool {
	return u.Height > 0
}

// Balance splits the unspent total by confirmation state.
type Balance struct {
	Confirmed   uint64 `json:"confirmed"`
	Unconfirmed uint64 `json:"unconfirmed"`
}

// Total returns confirmed plus unconfirmed. BalanceDetail only returns
// balances whose total fits in a uint64.
func (b Balance) Total() uint64 {
	return b.Confirmed + b.Unconfirmed
}

// Filter selects UTXOs for List. A zero Filter returns every unspent output.
type Filter struct {
	Address      types.Address
	IncludeSpent bool
}

// Ledger is a UTXO set backed by a storage.DB. All writers are serialized by
// an internal lock, so recording and spending are safe from many goroutines.
type Ledger struct {
	mu sync.RWMutex
	db storage.DB
}

// New creates a ledger backed by the given database.
func New(db storage.DB) *Ledger {
	return &Ledger{db: db}
}

// NewMemory creates a ledger backed by an in-memory database.
func NewMemory() *Ledger {
	return New(storage.NewMemory())
}

// utxoKey builds a storage key for an outpoint: "u/" + txid(32) + index(4).
func utxoKey(op types.Outpoint) []byte {
	key := make([]byte, len(prefixUTXO)+types.HashSize+4)
	copy(key, prefixUTXO)
	copy(key[len(prefixUTXO):], op.TxID[:])
	binary.BigEndian.PutUint32(key[len(prefixUTXO)+types.HashSize:], op.Index)
	return key
}

// addrPrefix builds "a/" + program(20).
func addrPrefix(addr types.Address) []byte {
	key := make([]byte, len(prefixAddr)+types.ProgramSize)
	copy(key, prefixAddr)
	copy(key[len(prefixAddr):], addr.Program[:])
	return key
}

// addrKey builds an address index key: "a/" + program(20) + txid(32) + index(4).
func addrKey(addr types.Address, op types.Outpoint) []byte {
	key := make([]byte, len(prefixAddr)+types.ProgramSize+types.HashSize+4)
	copy(key, addrPrefix(addr))
	off := len(prefixAddr) + types.ProgramSize
	copy(key[off:], op.TxID[:])
	binary.BigEndian.PutUint32(key[off+types.HashSize:], op.Index)
	return key
}

// outpointFromAddrKey extracts the outpoint from an address index key.
// Key layout: "a/" + program(20) + txid(32) + index(4).
func outpointFromAddrKey(key []byte) (types.Outpoint, bool) {
	off := len(prefixAddr) + types.ProgramSize
	if len(key) != off+types.HashSize+4 {
		return types.Outpoint{}, false
	}
	var op types.Outpoint
	copy(op.TxID[:], key[off:off+types.HashSize])
	op.Index = binary.BigEndian.Uint32(key[off+types.HashSize:])
	return op, true
}

// RecordUTXO inserts an output. Recording the same output again is a no-op;
// a record with the same outpoint but a different address or value fails
// with ErrConflictingUTXO. A new non-zero height updates the confirmation
// height of a known output.
func (l *Ledger) RecordUTXO(u UTXO) error {
	if err := u.Validate(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	batch := storage.NewBatch(l.db)
	changed, err := l.recordLocked(batch, u)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	if err := batch.Commit(); err != nil {
		return fmt.Errorf("record utxo %s: %w", u.Outpoint, err)
	}
	klog.Ledger.Debug().
		Str("outpoint", u.Outpoint.String()).
		Str("address", u.Address.String()).
		Uint64("value", u.Value).
		Uint32("height", u.Height).
		Msg("UTXO recorded")
	return nil
}

// recordLocked stages u into batch and reports whether anything changed.
func (l *Ledger) recordLocked(batch storage.Batch, u UTXO) (bool, error) {
	existing, err := l.getLocked(u.Outpoint)
	switch {
	case errors.Is(err, ErrUnknownUTXO):
		if err := putUTXO(batch, &u); err != nil {
			return false, err
		}
		return true, batch.Put(addrKey(u.Address, u.Outpoint), []byte{})
	case err != nil:
		return false, err
	}

	if existing.Address != u.Address || existing.Value != u.Value {
		return false, fmt.Errorf("%w: %s recorded as %d to %s, got %d to %s",
			ErrConflictingUTXO, u.Outpoint, existing.Value, existing.Address, u.Value, u.Address)
	}
	if u.Height != 0 && u.Height != existing.Height {
		existing.Height = u.Height
		return true, putUTXO(batch, existing)
	}
	return false, nil
}

// MarkSpent flags an output as spent. Spending an already spent output is a
// no-op; an outpoint that was never recorded fails with ErrUnknownUTXO.
func (l *Ledger) MarkSpent(op types.Outpoint) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	u, err := l.getLocked(op)
	if err != nil {
		return err
	}
	if u.Spent {
		return nil
	}
	u.Spent = true

	batch := storage.NewBatch(l.db)
	if err := putUTXO(batch, u); err != nil {
		return err
	}
	if err := batch.Commit(); err != nil {
		return fmt.Errorf("mark spent %s: %w", op, err)
	}
	klog.Ledger.Debug().Str("outpoint", op.String()).Msg("UTXO spent")
	return nil
}

// Get returns the record for an outpoint.
func (l *Ledger) Get(op types.Outpoint) (*UTXO, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.getLocked(op)
}

func (l *Ledger) getLocked(op types.Outpoint) (*UTXO, error) {
	data, err := l.db.Get(utxoKey(op))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownUTXO, op)
	}
	if err != nil {
		return nil, fmt.Errorf("utxo get: %w", err)
	}
	var u UTXO
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("utxo unmarshal: %w", err)
	}
	return &u, nil
}

func putUTXO(batch storage.Batch, u *UTXO) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("utxo marshal: %w", err)
	}
	return batch.Put(utxoKey(u.Outpoint), data)
}

// forEachLocked iterates over every stored record in key order.
func (l *Ledger) forEachLocked(fn func(*UTXO) error) error {
	return l.db.ForEach(prefixUTXO, func(_, value []byte) error {
		var u UTXO
		if err := json.Unmarshal(value, &u); err != nil {
			return fmt.Errorf("utxo unmarshal: %w", err)
		}
		return fn(&u)
	})
}

// Balance returns the sum of all unspent values. An empty ledger has
// balance 0.
func (l *Ledger) Balance() (uint64, error) {
	b, err := l.BalanceDetail()
	if err != nil {
		return 0, err
	}
	return b.Total(), nil
}

// BalanceDetail returns the unspent total split by confirmation state.
func (l *Ledger) BalanceDetail() (Balance, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var b Balance
	var total uint64
	err := l.forEachLocked(func(u *UTXO) error {
		if u.Spent {
			return nil
		}
		var err error
		if total, err = addValue(total, u.Value); err != nil {
			return err
		}
		if u.Confirmed() {
			b.Confirmed += u.Value
		} else {
			b.Unconfirmed += u.Value
		}
		return nil
	})
	if err != nil {
		return Balance{}, fmt.Errorf("compute balance: %w", err)
	}
	return b, nil
}

// BalanceOf returns the unspent total paying to one address.
func (l *Ledger) BalanceOf(addr types.Address) (uint64, error) {
	utxos, err := l.List(Filter{Address: addr})
	if err != nil {
		return 0, err
	}
	var total uint64
	for _, u := range utxos {
		if total, err = addValue(total, u.Value); err != nil {
			return 0, fmt.Errorf("balance of %s: %w", addr, err)
		}
	}
	return total, nil
}

// List returns the records selected by f, ordered by outpoint.
func (l *Ledger) List(f Filter) ([]UTXO, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []UTXO
	keep := func(u *UTXO) {
		if u.Spent && !f.IncludeSpent {
			return
		}
		out = append(out, *u)
	}

	if f.Address.IsZero() {
		err := l.forEachLocked(func(u *UTXO) error {
			keep(u)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("list utxos: %w", err)
		}
		return out, nil
	}

	err := l.db.ForEach(addrPrefix(f.Address), func(key, _ []byte) error {
		op, ok := outpointFromAddrKey(key)
		if !ok {
			return nil // Malformed key, skip.
		}
		u, err := l.getLocked(op)
		if errors.Is(err, ErrUnknownUTXO) {
			return nil // Pruned, skip.
		}
		if err != nil {
			return err
		}
		keep(u)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan address index: %w", err)
	}
	return out, nil
}

// Count returns the number of stored records, spent and unspent.
func (l *Ledger) Count() (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	n := 0
	err := l.db.ForEach(prefixUTXO, func(_, _ []byte) error {
		n++
		return nil
	})
	return n, err
}

// Prune removes spent records and their index entries. Returns the number
// of records removed.
func (l *Ledger) Prune() (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	batch := storage.NewBatch(l.db)
	n := 0
	err := l.forEachLocked(func(u *UTXO) error {
		if !u.Spent {
			return nil
		}
		n++
		if err := batch.Delete(utxoKey(u.Outpoint)); err != nil {
			return err
		}
		return batch.Delete(addrKey(u.Address, u.Outpoint))
	})
	if err != nil {
		return 0, fmt.Errorf("prune: %w", err)
	}
	if n == 0 {
		return 0, nil
	}
	if err := batch.Commit(); err != nil {
		return 0, fmt.Errorf("prune commit: %w", err)
	}
	klog.Ledger.Info().Int("removed", n).Msg("Pruned spent outputs")
	return n, nil
}
