package types

import (
	"encoding/hex"
	"encoding/json"
	"strings"
	"testing"
)

// BIP173 reference: P2WPKH for 0279be667e...16f81798.
const (
	bip173Address = "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4"
	bip173Program = "751e76e8199196d454941c45d1b3a323f1433bd6"
)

func mustProgram(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("bad hex: %v", err)
	}
	return b
}

func TestAddress_IsZero(t *testing.T) {
	var zero Address
	if !zero.IsZero() {
		t.Error("zero-value Address should be zero")
	}

	nonZero := Address{Program: [ProgramSize]byte{0x01}, HRP: "bc"}
	if nonZero.IsZero() {
		t.Error("non-zero Address should not be zero")
	}
}

func TestAddress_String(t *testing.T) {
	a, err := NewAddress(mustProgram(t, bip173Program), Mainnet)
	if err != nil {
		t.Fatalf("NewAddress: %v", err)
	}
	if a.String() != bip173Address {
		t.Errorf("String() = %s, want %s", a.String(), bip173Address)
	}
	if a.Hex() != bip173Program {
		t.Errorf("Hex() = %s, want %s", a.Hex(), bip173Program)
	}
}

func TestAddress_String_Networks(t *testing.T) {
	program := mustProgram(t, bip173Program)
	tests := []struct {
		net    *Network
		prefix string
	}{
		{Mainnet, "bc1q"},
		{Testnet, "tb1q"},
		{Signet, "tb1q"},
		{Regtest, "bcrt1q"},
	}
	for _, tt := range tests {
		t.Run(tt.net.Name, func(t *testing.T) {
			a, err := NewAddress(program, tt.net)
			if err != nil {
				t.Fatalf("NewAddress: %v", err)
			}
			if !strings.HasPrefix(a.String(), tt.prefix) {
				t.Errorf("String() = %s, want prefix %s", a.String(), tt.prefix)
			}
		})
	}
}

func TestParseAddress(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		net     *Network
		wantErr bool
	}{
		{name: "valid mainnet", input: bip173Address, net: Mainnet},
		{name: "uppercase", input: strings.ToUpper(bip173Address), net: Mainnet},
		{name: "any network", input: bip173Address, net: nil},
		{name: "wrong network", input: bip173Address, net: Testnet, wantErr: true},
		{name: "empty", input: "", net: Mainnet, wantErr: true},
		{name: "bad checksum", input: "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t5", net: Mainnet, wantErr: true},
		{
			// BIP173 P2WSH example: 32-byte program.
			name:    "p2wsh program",
			input:   "bc1qrp33g0q5c5txsp9arysrx4k6zdkfs4nce4xj0gdcccefvpysxf3qccfmv3",
			net:     Mainnet,
			wantErr: true,
		},
		{
			// Witness version 1 uses bech32m and is rejected.
			name:    "taproot",
			input:   "bc1p0xlxvlhemja6c4dqv22uapctqupfhlxm9h8z3k2e72q4k9hcz7vqzk5jj0",
			net:     Mainnet,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := ParseAddress(tt.input, tt.net)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseAddress(%q) should fail", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAddress(%q): %v", tt.input, err)
			}
			if a.Hex() != bip173Program {
				t.Errorf("program = %s, want %s", a.Hex(), bip173Program)
			}
			if a.String() != bip173Address {
				t.Errorf("String() = %s, want %s", a.String(), bip173Address)
			}
		})
	}
}

func TestNewAddress_BadLength(t *testing.T) {
	if _, err := NewAddress(make([]byte, 19), Mainnet); err == nil {
		t.Error("expected error for 19-byte program")
	}
}

func TestAddress_ScriptPubKey(t *testing.T) {
	a, _ := NewAddress(mustProgram(t, bip173Program), Mainnet)
	got := hex.EncodeToString(a.ScriptPubKey())
	want := "0014" + bip173Program
	if got != want {
		t.Errorf("ScriptPubKey() = %s, want %s", got, want)
	}
}

func TestAddress_MapKey(t *testing.T) {
	a1, _ := ParseAddress(bip173Address, Mainnet)
	a2, _ := ParseAddress(strings.ToUpper(bip173Address), Mainnet)
	m := map[Address]int{a1: 1}
	if m[a2] != 1 {
		t.Error("equal addresses should map to the same key")
	}
}

func TestAddress_JSON(t *testing.T) {
	a, _ := NewAddress(mustProgram(t, bip173Program), Mainnet)
	data, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"`+bip173Address+`"` {
		t.Errorf("JSON = %s", data)
	}
	var got Address
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got != a {
		t.Errorf("JSON roundtrip mismatch: %v != %v", got, a)
	}

	var empty Address
	if err := json.Unmarshal([]byte(`""`), &empty); err != nil {
		t.Fatalf("unmarshal empty: %v", err)
	}
	if !empty.IsZero() {
		t.Error("empty JSON string should decode to zero address")
	}
}
