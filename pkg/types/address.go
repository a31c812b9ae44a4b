package types

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/bech32"
)

// ProgramSize is the length of a P2WPKH witness program in bytes.
const ProgramSize = 20

// witnessVersion is the only witness version this wallet produces.
const witnessVersion = 0

// Address is a version-0 pay-to-witness-public-key-hash address: the
// HASH160 of a compressed public key bound to a network's bech32 HRP.
//
// Address is a comparable value and can be used as a map key.
type Address struct {
	Program [ProgramSize]byte
	HRP     string
}

// IsZero returns true if the address has no program and no HRP.
func (a Address) IsZero() bool {
	return a == Address{}
}

// String returns the bech32-encoded address (e.g. "bc1q...").
func (a Address) String() string {
	s, err := encodeSegwit(a.HRP, a.Program[:])
	if err != nil {
		// Only an empty or oversized HRP can fail here.
		return a.HRP + ":" + hex.EncodeToString(a.Program[:])
	}
	return s
}

// Hex returns the raw hex-encoded witness program.
func (a Address) Hex() string {
	return hex.EncodeToString(a.Program[:])
}

// ScriptPubKey returns the output script OP_0 <20-byte program>.
func (a Address) ScriptPubKey() []byte {
	script := make([]byte, 0, 2+ProgramSize)
	script = append(script, 0x00, ProgramSize)
	return append(script, a.Program[:]...)
}

// MarshalJSON encodes the address as a bech32 string.
func (a Address) MarshalJSON() ([]byte, error) {
	if a.IsZero() {
		return json.Marshal("")
	}
	return json.Marshal(a.String())
}

// UnmarshalJSON decodes a bech32 string of any HRP into an address.
func (a *Address) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*a = Address{}
		return nil
	}
	parsed, err := decodeSegwit(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAddress decodes a bech32 P2WPKH address and checks that it belongs
// to net. Only witness version 0 with a 20-byte program is accepted.
func ParseAddress(s string, net *Network) (Address, error) {
	if s == "" {
		return Address{}, fmt.Errorf("empty address")
	}
	a, err := decodeSegwit(s)
	if err != nil {
		return Address{}, err
	}
	if net != nil && a.HRP != net.HRP() {
		return Address{}, fmt.Errorf("address %s is not for network %s", s, net.Name)
	}
	return a, nil
}

// NewAddress binds a 20-byte program to the network's HRP.
func NewAddress(program []byte, net *Network) (Address, error) {
	if len(program) != ProgramSize {
		return Address{}, fmt.Errorf("program must be %d bytes, got %d", ProgramSize, len(program))
	}
	a := Address{HRP: net.HRP()}
	copy(a.Program[:], program)
	return a, nil
}

func encodeSegwit(hrp string, program []byte) (string, error) {
	conv, err := bech32.ConvertBits(program, 8, 5, true)
	if err != nil {
		return "", err
	}
	data := make([]byte, 0, len(conv)+1)
	data = append(data, witnessVersion)
	data = append(data, conv...)
	return bech32.Encode(hrp, data)
}

func decodeSegwit(s string) (Address, error) {
	hrp, data, err := bech32.Decode(s)
	if err != nil {
		return Address{}, fmt.Errorf("invalid bech32 address: %w", err)
	}
	if len(data) < 1 {
		return Address{}, fmt.Errorf("invalid bech32 address: empty data")
	}
	if data[0] != witnessVersion {
		return Address{}, fmt.Errorf("unsupported witness version %d", data[0])
	}
	program, err := bech32.ConvertBits(data[1:], 5, 8, false)
	if err != nil {
		return Address{}, fmt.Errorf("invalid witness program: %w", err)
	}
	if len(program) != ProgramSize {
		return Address{}, fmt.Errorf("program must be %d bytes, got %d", ProgramSize, len(program))
	}
	a := Address{HRP: hrp}
	copy(a.Program[:], program)
	return a, nil
}
