package wallet

import (
	"errors"
	"testing"

	"github.com/Klingon-tech/segwallet/pkg/types"
)

func TestParseDerivationPath(t *testing.T) {
	h := HardenedKeyStart
	tests := []struct {
		in   string
		want DerivationPath
		str  string
	}{
		{"m", DerivationPath{}, "m"},
		{"m/84'/0'/0'/0/5", DerivationPath{h + 84, h, h, 0, 5}, "m/84'/0'/0'/0/5"},
		{"84h/1H/2'", DerivationPath{h + 84, h + 1, h + 2}, "m/84'/1'/2'"},
		{" m / 0 / 2147483647' ", DerivationPath{0, h + 2147483647}, "m/0/2147483647'"},
	}
	for _, tt := range tests {
		got, err := ParseDerivationPath(tt.in)
		if err != nil {
			t.Fatalf("ParseDerivationPath(%q) error: %v", tt.in, err)
		}
		if len(got) != len(tt.want) {
			t.Fatalf("ParseDerivationPath(%q) = %v, want %v", tt.in, got, tt.want)
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("ParseDerivationPath(%q)[%d] = %d, want %d", tt.in, i, got[i], tt.want[i])
			}
		}
		if got.String() != tt.str {
			t.Errorf("String() = %q, want %q", got.String(), tt.str)
		}
	}
}

func TestParseDerivationPath_Invalid(t *testing.T) {
	for _, in := range []string{"", "m/", "m//1", "m/x", "m/-1", "m/2147483648", "m/1''", "m/4294967296"} {
		if _, err := ParseDerivationPath(in); !errors.Is(err, ErrInvalidPath) {
			t.Errorf("ParseDerivationPath(%q) error = %v, want ErrInvalidPath", in, err)
		}
	}
}

func TestDerivationPath_Child(t *testing.T) {
	base := DerivationPath{1, 2}
	a := base.Child(3)
	b := base.Child(4)
	if a.String() != "m/1/2/3" || b.String() != "m/1/2/4" {
		t.Errorf("Child() = %s, %s", a, b)
	}
	if base.String() != "m/1/2" {
		t.Error("Child() modified the receiver")
	}
}

func TestAccountAndReceivePath(t *testing.T) {
	tests := []struct {
		net     *types.Network
		account uint32
		change  uint32
		index   uint32
		want    string
	}{
		{types.Mainnet, 0, 0, 0, "m/84'/0'/0'/0/0"},
		{types.Mainnet, 3, 1, 17, "m/84'/0'/3'/1/17"},
		{types.Testnet, 0, 0, 2, "m/84'/1'/0'/0/2"},
		{types.Regtest, 1, 0, 0, "m/84'/1'/1'/0/0"},
	}
	for _, tt := range tests {
		p, err := ReceivePath(tt.net, tt.account, tt.change, tt.index)
		if err != nil {
			t.Fatalf("ReceivePath() error: %v", err)
		}
		if p.String() != tt.want {
			t.Errorf("ReceivePath(%s, %d, %d, %d) = %s, want %s", tt.net, tt.account, tt.change, tt.index, p, tt.want)
		}
	}

	if _, err := ReceivePath(types.Mainnet, 0, 2, 0); !errors.Is(err, ErrInvalidPath) {
		t.Errorf("change 2 error = %v, want ErrInvalidPath", err)
	}
	if _, err := ReceivePath(types.Mainnet, 0, 0, HardenedKeyStart); !errors.Is(err, ErrInvalidPath) {
		t.Errorf("hardened index error = %v, want ErrInvalidPath", err)
	}
	if _, err := AccountPath(types.Mainnet, HardenedKeyStart); !errors.Is(err, ErrInvalidPath) {
		t.Errorf("hardened account error = %v, want ErrInvalidPath", err)
	}
}
