package wallet

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Klingon-tech/segwallet/pkg/types"
)

// DerivationPath is a sequence of child indices from the master key.
// Hardened steps carry the HardenedKeyStart offset.
type DerivationPath []uint32

// ParseDerivationPath converts a path such as "m/84'/0'/0'/0/5" to its
// binary form. Hardened steps may be marked with ', h or H. A leading "m"
// is optional; "m" alone is the empty path.
func ParseDerivationPath(s string) (DerivationPath, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidPath)
	}

	elems := strings.Split(s, "/")
	if strings.TrimSpace(elems[0]) == "m" {
		elems = elems[1:]
	}

	path := make(DerivationPath, 0, len(elems))
	for i, elem := range elems {
		elem = strings.TrimSpace(elem)
		if elem == "" {
			return nil, fmt.Errorf("%w: empty element at position %d in %q", ErrInvalidPath, i+1, s)
		}

		var offset uint32
		if last := elem[len(elem)-1]; last == '\'' || last == 'h' || last == 'H' {
			offset = HardenedKeyStart
			elem = elem[:len(elem)-1]
		}

		v, err := strconv.ParseUint(elem, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid element %q in %q", ErrInvalidPath, elem, s)
		}
		if v >= uint64(HardenedKeyStart) {
			return nil, fmt.Errorf("%w: element %d must be below %d", ErrInvalidPath, v, HardenedKeyStart)
		}
		path = append(path, offset+uint32(v))
	}
	return path, nil
}

// String converts a path to its canonical "m/84'/0'/0'/0/0" form.
func (p DerivationPath) String() string {
	var b strings.Builder
	b.WriteString("m")
	for _, idx := range p {
		b.WriteByte('/')
		b.WriteString(formatIndex(idx))
	}
	return b.String()
}

// Child returns a new path with idx appended.
func (p DerivationPath) Child(idx uint32) DerivationPath {
	out := make(DerivationPath, len(p), len(p)+1)
	copy(out, p)
	return append(out, idx)
}

// AccountPath returns m/84'/coin'/account' for the network.
func AccountPath(net *types.Network, account uint32) (DerivationPath, error) {
	if account >= HardenedKeyStart {
		return nil, fmt.Errorf("%w: account %d out of range", ErrInvalidPath, account)
	}
	return DerivationPath{
		PurposeBIP84,
		HardenedKeyStart + net.CoinType(),
		HardenedKeyStart + account,
	}, nil
}

// ReceivePath returns m/84'/coin'/account'/change/index.
func ReceivePath(net *types.Network, account, change, index uint32) (DerivationPath, error) {
	if change != ChangeExternal && change != ChangeInternal {
		return nil, fmt.Errorf("%w: change must be 0 or 1, got %d", ErrInvalidPath, change)
	}
	if index >= HardenedKeyStart {
		return nil, fmt.Errorf("%w: address index %d out of range", ErrInvalidPath, index)
	}
	acct, err := AccountPath(net, account)
	if err != nil {
		return nil, err
	}
	return acct.Child(change).Child(index), nil
}

func formatIndex(idx uint32) string {
	if idx >= HardenedKeyStart {
		return strconv.FormatUint(uint64(idx-HardenedKeyStart), 10) + "'"
	}
	return strconv.FormatUint(uint64(idx), 10)
}
