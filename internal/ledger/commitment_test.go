package ledger

import (
	"testing"
)

func TestCommitment_Empty(t *testing.T) {
	l := NewMemory()
	root, err := l.Commitment()
	if err != nil {
		t.Fatalf("Commitment: %v", err)
	}
	if !root.IsZero() {
		t.Errorf("empty ledger commitment = %s, want zero", root)
	}
}

func TestCommitment_OrderIndependent(t *testing.T) {
	addr := testAddr(t, 0x01)
	utxos := []UTXO{
		{Outpoint: op(1, 0), Address: addr, Value: 10},
		{Outpoint: op(2, 1), Address: addr, Value: 20, Height: 4},
		{Outpoint: op(3, 2), Address: addr, Value: 30},
	}

	l1 := NewMemory()
	for _, u := range utxos {
		l1.RecordUTXO(u)
	}
	l2 := NewMemory()
	for i := len(utxos) - 1; i >= 0; i-- {
		l2.RecordUTXO(utxos[i])
	}

	r1, _ := l1.Commitment()
	r2, _ := l2.Commitment()
	if r1 != r2 {
		t.Errorf("commitment depends on insertion order: %s != %s", r1, r2)
	}
}

func TestCommitment_TracksUnspentSet(t *testing.T) {
	addr := testAddr(t, 0x01)
	l := NewMemory()
	l.RecordUTXO(UTXO{Outpoint: op(1, 0), Address: addr, Value: 10})
	before, _ := l.Commitment()

	l.RecordUTXO(UTXO{Outpoint: op(2, 0), Address: addr, Value: 20})
	withTwo, _ := l.Commitment()
	if withTwo == before {
		t.Error("commitment should change when an output is added")
	}

	l.MarkSpent(op(2, 0))
	afterSpend, _ := l.Commitment()
	if afterSpend != before {
		t.Error("spending the new output should restore the previous commitment")
	}

	// Pruning spent records does not change the unspent set.
	l.Prune()
	afterPrune, _ := l.Commitment()
	if afterPrune != before {
		t.Error("prune changed the commitment")
	}
}

func TestHashUTXO_CoversFields(t *testing.T) {
	base := UTXO{Outpoint: op(1, 0), Address: testAddr(t, 0x01), Value: 10}
	h := hashUTXO(&base)

	variants := []UTXO{
		{Outpoint: op(1, 1), Address: base.Address, Value: 10},
		{Outpoint: op(1, 0), Address: testAddr(t, 0x02), Value: 10},
		{Outpoint: op(1, 0), Address: base.Address, Value: 11},
		{Outpoint: op(1, 0), Address: base.Address, Value: 10, Height: 1},
	}
	for i, v := range variants {
		if hashUTXO(&v) == h {
			t.Errorf("variant %d hashes equal to base", i)
		}
	}
}
