package wallet

import (
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/tyler-smith/go-bip39"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func TestMnemonicFromEntropy_Vectors(t *testing.T) {
	tests := []struct {
		entropy  string
		mnemonic string
	}{
		{"00000000000000000000000000000000", testMnemonic},
		{"7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f", "legal winner thank year wave sausage worth useful legal winner thank yellow"},
		{"ffffffffffffffffffffffffffffffff", "zoo zoo zoo zoo zoo zoo zoo zoo zoo zoo zoo wrong"},
	}
	for _, tt := range tests {
		entropy, _ := hex.DecodeString(tt.entropy)
		got, err := MnemonicFromEntropy(entropy)
		if err != nil {
			t.Fatalf("MnemonicFromEntropy(%s) error: %v", tt.entropy, err)
		}
		if got != tt.mnemonic {
			t.Errorf("MnemonicFromEntropy(%s) = %q, want %q", tt.entropy, got, tt.mnemonic)
		}
	}
}

func TestGenerateMnemonic(t *testing.T) {
	for bits := MinEntropyBits; bits <= MaxEntropyBits; bits += 32 {
		m, err := GenerateMnemonic(bits)
		if err != nil {
			t.Fatalf("GenerateMnemonic(%d) error: %v", bits, err)
		}
		if n := len(strings.Fields(m)); n != WordCount(bits) {
			t.Errorf("GenerateMnemonic(%d) has %d words, want %d", bits, n, WordCount(bits))
		}
		ok, err := ValidateMnemonic(m)
		if err != nil || !ok {
			t.Errorf("ValidateMnemonic(GenerateMnemonic(%d)) = %v, %v", bits, ok, err)
		}
	}
}

func TestGenerateMnemonic_Unique(t *testing.T) {
	a, _ := GenerateMnemonic(DefaultEntropyBits)
	b, _ := GenerateMnemonic(DefaultEntropyBits)
	if a == b {
		t.Error("two generated mnemonics are identical")
	}
}

func TestGenerateMnemonic_InvalidEntropy(t *testing.T) {
	for _, bits := range []int{0, 96, 127, 129, 288} {
		if _, err := GenerateMnemonic(bits); !errors.Is(err, ErrInvalidEntropy) {
			t.Errorf("GenerateMnemonic(%d) error = %v, want ErrInvalidEntropy", bits, err)
		}
	}
	if _, err := MnemonicFromEntropy(make([]byte, 15)); !errors.Is(err, ErrInvalidEntropy) {
		t.Errorf("MnemonicFromEntropy(15 bytes) error = %v, want ErrInvalidEntropy", err)
	}
}

func TestWordCount(t *testing.T) {
	want := map[int]int{128: 12, 160: 15, 192: 18, 224: 21, 256: 24}
	for bits, n := range want {
		if got := WordCount(bits); got != n {
			t.Errorf("WordCount(%d) = %d, want %d", bits, got, n)
		}
	}
}

func TestEntropyBits(t *testing.T) {
	for bits, n := range map[int]int{128: 12, 160: 15, 192: 18, 224: 21, 256: 24} {
		got, err := EntropyBits(n)
		if err != nil {
			t.Fatalf("EntropyBits(%d) error: %v", n, err)
		}
		if got != bits {
			t.Errorf("EntropyBits(%d) = %d, want %d", n, got, bits)
		}
	}
	for _, n := range []int{0, 9, 11, 13, 14, 23, 25, 27} {
		if _, err := EntropyBits(n); !errors.Is(err, ErrInvalidEntropy) {
			t.Errorf("EntropyBits(%d) error = %v, want ErrInvalidEntropy", n, err)
		}
	}
}

// flipChecksum changes the lowest bit of the last word, which is always a
// checksum bit.
func flipChecksum(t *testing.T, m string) string {
	t.Helper()
	words := strings.Fields(m)
	idx, ok := bip39.GetWordIndex(words[len(words)-1])
	if !ok {
		t.Fatalf("last word %q not in list", words[len(words)-1])
	}
	words[len(words)-1] = bip39.GetWordList()[idx^1]
	return strings.Join(words, " ")
}

func TestValidateMnemonic(t *testing.T) {
	tests := []struct {
		name     string
		mnemonic string
		valid    bool
	}{
		{"vector", testMnemonic, true},
		{"upper case and spacing", "  ABANDON abandon\tabandon abandon abandon abandon abandon abandon abandon abandon abandon ABOUT ", true},
		{"bad checksum", strings.Repeat("abandon ", 11) + "abandon", false},
		{"flipped checksum bit", flipChecksum(t, testMnemonic), false},
		{"eleven words", strings.Repeat("abandon ", 10) + "about", false},
		{"thirteen words", testMnemonic + " abandon", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := ValidateMnemonic(tt.mnemonic)
			if err != nil {
				t.Fatalf("ValidateMnemonic() error: %v", err)
			}
			if ok != tt.valid {
				t.Errorf("ValidateMnemonic() = %v, want %v", ok, tt.valid)
			}
		})
	}
}

func TestValidateMnemonic_FlippedGenerated(t *testing.T) {
	for bits := MinEntropyBits; bits <= MaxEntropyBits; bits += 32 {
		m, err := GenerateMnemonic(bits)
		if err != nil {
			t.Fatalf("GenerateMnemonic(%d) error: %v", bits, err)
		}
		if ok, _ := ValidateMnemonic(flipChecksum(t, m)); ok {
			t.Errorf("%d-bit mnemonic with a flipped checksum bit still validates", bits)
		}
	}
}

func TestValidateMnemonic_InvalidWord(t *testing.T) {
	m := strings.Replace(testMnemonic, "about", "bitcoin", 1)
	ok, err := ValidateMnemonic(m)
	if ok {
		t.Error("ValidateMnemonic() = true for unknown word")
	}
	if !errors.Is(err, ErrInvalidWord) {
		t.Fatalf("ValidateMnemonic() error = %v, want ErrInvalidWord", err)
	}
	if !strings.Contains(err.Error(), "bitcoin") || !strings.Contains(err.Error(), "12") {
		t.Errorf("error %q should name the word and position", err)
	}
}

func TestNormalizeMnemonic(t *testing.T) {
	got := NormalizeMnemonic("  Abandon\n\tABOUT  ")
	if got != "abandon about" {
		t.Errorf("NormalizeMnemonic() = %q", got)
	}
}
