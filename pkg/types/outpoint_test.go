package types

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestOutpoint_IsZero(t *testing.T) {
	var zero Outpoint
	if !zero.IsZero() {
		t.Error("zero-value Outpoint should be zero")
	}

	// Non-zero TxID
	nonZero := Outpoint{TxID: Hash{0x01}, Index: 0}
	if nonZero.IsZero() {
		t.Error("Outpoint with non-zero TxID should not be zero")
	}

	// Non-zero index
	nonZero2 := Outpoint{TxID: Hash{}, Index: 1}
	if nonZero2.IsZero() {
		t.Error("Outpoint with non-zero Index should not be zero")
	}
}

func TestOutpoint_String(t *testing.T) {
	o := Outpoint{
		TxID:  Hash{31: 0xab},
		Index: 3,
	}
	s := o.String()

	if !strings.HasPrefix(s, "ab") {
		t.Errorf("String() should start with display txid, got %s", s)
	}
	if !strings.HasSuffix(s, ":3") {
		t.Errorf("String() should end with ':3', got %s", s)
	}
}

func TestParseOutpoint(t *testing.T) {
	txid := "4a5e1e4baab89f3a32518a88c31bc87f618f76673e2cc77ab2127b7afdeda33b"

	tests := []struct {
		name    string
		input   string
		index   uint32
		wantErr bool
	}{
		{name: "index zero", input: txid + ":0", index: 0},
		{name: "large index", input: txid + ":4294967295", index: 4294967295},
		{name: "missing separator", input: txid, wantErr: true},
		{name: "bad txid", input: "abcd:1", wantErr: true},
		{name: "negative index", input: txid + ":-1", wantErr: true},
		{name: "index overflow", input: txid + ":4294967296", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op, err := ParseOutpoint(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseOutpoint(%q) should fail", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseOutpoint(%q): %v", tt.input, err)
			}
			if op.Index != tt.index {
				t.Errorf("index = %d, want %d", op.Index, tt.index)
			}
			if op.String() != tt.input {
				t.Errorf("roundtrip = %s, want %s", op.String(), tt.input)
			}
		})
	}
}

func TestOutpoint_JSON(t *testing.T) {
	o := Outpoint{TxID: Hash{0xaa, 0xbb}, Index: 7}
	data, err := json.Marshal(o)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got Outpoint
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got != o {
		t.Errorf("JSON roundtrip mismatch: %v != %v", got, o)
	}
}
