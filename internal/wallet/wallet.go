package wallet

import (
	"encoding/hex"
	"fmt"
	"sort"
	"sync"

	"github.com/Klingon-tech/segwallet/internal/ledger"
	klog "github.com/Klingon-tech/segwallet/internal/log"
	"github.com/Klingon-tech/segwallet/pkg/crypto"
	"github.com/Klingon-tech/segwallet/pkg/types"
	"golang.org/x/sync/errgroup"
)

// DefaultGap is the number of unused addresses derived ahead on each chain.
const DefaultGap = 20

// Renderer turns text into an encoded image, such as a QR code JPEG.
type Renderer interface {
	Render(text string) ([]byte, error)
}

// Options configures a Wallet.
type Options struct {
	Network *types.Network
	Account uint32

	// Rotate makes Address hand out a fresh receive index on every call.
	// When false Address always returns index 0.
	Rotate bool

	// Gap is the lookahead window per chain. Zero selects DefaultGap.
	Gap uint32

	// KeyFormat selects zpub (default) or xpub serialization.
	KeyFormat KeyFormat

	// Renderer is used when an operation is asked for an image.
	Renderer Renderer

	// Ledger holds the wallet's outputs. Nil selects an in-memory ledger.
	Ledger *ledger.Ledger

	// StartIndex restores the rotation cursor of a previous session.
	StartIndex uint32
}

// addrRef locates a derived address in the key tree.
type addrRef struct {
	change uint32
	index  uint32
}

// Wallet is the aggregate root of one BIP84 account: it owns the master key,
// the derived addresses of both chains and the ledger of their outputs.
// Nothing is persisted implicitly.
type Wallet struct {
	net    *types.Network
	opts   Options
	ledger *ledger.Ledger

	master     *ExtendedKey
	account    *ExtendedKey // private account node
	accountPub *ExtendedKey
	chains     [2]*ExtendedKey // public external/internal chain nodes

	mu        sync.RWMutex
	addrs     [2]map[uint32]types.Address
	owned     map[types.Address]addrRef
	seen      map[types.Address]bool // addresses that received an output
	derived   [2]uint32              // addresses derived so far per chain
	used      [2]uint32              // one past the highest index seen in an output
	nextIndex uint32                 // next receive index when rotating
}

// FromMnemonic validates a mnemonic and builds a wallet from its seed.
func FromMnemonic(mnemonic, passphrase string, opts Options) (*Wallet, error) {
	seed, err := SeedFromMnemonic(mnemonic, passphrase)
	if err != nil {
		return nil, err
	}
	defer zero(seed)
	return New(seed, opts)
}

// New builds a wallet from a BIP-39 seed. The seed itself is not retained
// and nothing secret is logged.
func New(seed []byte, opts Options) (*Wallet, error) {
	if opts.Network == nil {
		opts.Network = types.Mainnet
	}
	if opts.Gap == 0 {
		opts.Gap = DefaultGap
	}
	if opts.Ledger == nil {
		opts.Ledger = ledger.NewMemory()
	}

	master, err := NewMasterKey(seed, opts.Network)
	if err != nil {
		return nil, err
	}
	path, err := AccountPath(opts.Network, opts.Account)
	if err != nil {
		return nil, err
	}
	account, err := master.DerivePath(path)
	if err != nil {
		return nil, fmt.Errorf("derive account: %w", err)
	}

	w := &Wallet{
		net:        opts.Network,
		opts:       opts,
		ledger:     opts.Ledger,
		master:     master,
		account:    account,
		accountPub: account.Neuter(),
		owned:      make(map[types.Address]addrRef),
		seen:       make(map[types.Address]bool),
	}
	if opts.Rotate {
		w.nextIndex = opts.StartIndex
	}
	for change := uint32(0); change < 2; change++ {
		chain, err := w.accountPub.DeriveChild(change)
		if err != nil {
			return nil, fmt.Errorf("derive chain %d: %w", change, err)
		}
		w.chains[change] = chain
		w.addrs[change] = make(map[uint32]types.Address)
	}

	for change := uint32(0); change < 2; change++ {
		if err := w.ensureDerived(change, opts.Gap); err != nil {
			return nil, err
		}
	}
	if err := w.ensureDerived(ChangeExternal, w.nextIndex+opts.Gap); err != nil {
		return nil, err
	}

	// Outputs recorded in an earlier session mark their addresses used.
	known, err := opts.Ledger.List(ledger.Filter{IncludeSpent: true})
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	if err := w.discover(known); err != nil {
		return nil, err
	}

	fp := w.Fingerprint()
	klog.Wallet.Info().
		Str("network", w.net.Name).
		Str("fingerprint", hex.EncodeToString(fp[:])).
		Uint32("account", opts.Account).
		Uint32("gap", opts.Gap).
		Msg("Wallet opened")
	return w, nil
}

// ExtendedPublicKey returns the account-level extended public key as text,
// or as an image when asImage is set.
func (w *Wallet) ExtendedPublicKey(asImage bool) ([]byte, error) {
	return w.output(w.AccountXPub(), asImage)
}

// AccountXPub returns the serialized account extended public key.
func (w *Wallet) AccountXPub() string {
	return w.accountPub.Serialize(w.opts.KeyFormat)
}

// Address returns a receive address as text, or as an image when asImage is
// set. Without rotation this is always index 0; with rotation every call
// hands out the next unused index.
func (w *Wallet) Address(asImage bool) ([]byte, error) {
	addr, _, err := w.NextAddress()
	if err != nil {
		return nil, err
	}
	return w.output(addr.String(), asImage)
}

// NextAddress hands out a receive address and its index under the same
// rotation rules as Address.
func (w *Wallet) NextAddress() (types.Address, uint32, error) {
	var index uint32
	if w.opts.Rotate {
		w.mu.Lock()
		index = w.nextIndex
		w.nextIndex++
		w.mu.Unlock()
	}
	addr, err := w.ReceiveAddress(index)
	if err != nil {
		return types.Address{}, 0, err
	}
	if err := w.ensureDerived(ChangeExternal, index+1+w.opts.Gap); err != nil {
		return types.Address{}, 0, err
	}
	return addr, index, nil
}

// RenderImage renders text with the wallet's image renderer.
func (w *Wallet) RenderImage(text string) ([]byte, error) {
	return w.output(text, true)
}

// Balance returns the sum of unspent outputs in the ledger.
func (w *Wallet) Balance() (uint64, error) {
	return w.ledger.Balance()
}

// BalanceDetail returns the balance split by confirmation state.
func (w *Wallet) BalanceDetail() (ledger.Balance, error) {
	return w.ledger.BalanceDetail()
}

func (w *Wallet) output(text string, asImage bool) ([]byte, error) {
	if !asImage {
		return []byte(text), nil
	}
	if w.opts.Renderer == nil {
		return nil, ErrNoRenderer
	}
	img, err := w.opts.Renderer.Render(text)
	if err != nil {
		return nil, fmt.Errorf("render image: %w", err)
	}
	return img, nil
}

// ReceiveAddress returns the external-chain address at index.
func (w *Wallet) ReceiveAddress(index uint32) (types.Address, error) {
	return w.addressAt(ChangeExternal, index)
}

// ChangeAddress returns the internal-chain address at index.
func (w *Wallet) ChangeAddress(index uint32) (types.Address, error) {
	return w.addressAt(ChangeInternal, index)
}

func (w *Wallet) addressAt(change, index uint32) (types.Address, error) {
	if index >= HardenedKeyStart {
		return types.Address{}, fmt.Errorf("%w: address index %d out of range", ErrInvalidPath, index)
	}
	w.mu.RLock()
	addr, ok := w.addrs[change][index]
	w.mu.RUnlock()
	if ok {
		return addr, nil
	}

	addr, err := w.deriveAddress(change, index)
	if err != nil {
		return types.Address{}, err
	}
	w.mu.Lock()
	w.addrs[change][index] = addr
	w.owned[addr] = addrRef{change: change, index: index}
	w.mu.Unlock()
	return addr, nil
}

func (w *Wallet) deriveAddress(change, index uint32) (types.Address, error) {
	key, err := w.chains[change].DeriveChild(index)
	if err != nil {
		return types.Address{}, fmt.Errorf("derive %d/%d: %w", change, index, err)
	}
	return key.Address()
}

// ensureDerived derives every address of a chain below upTo. Missing
// addresses are derived in parallel.
func (w *Wallet) ensureDerived(change, upTo uint32) error {
	w.mu.RLock()
	from := w.derived[change]
	w.mu.RUnlock()
	if from >= upTo {
		return nil
	}

	results := make([]types.Address, upTo-from)
	var g errgroup.Group
	g.SetLimit(8)
	for i := from; i < upTo; i++ {
		g.Go(func() error {
			addr, err := w.deriveAddress(change, i)
			if err != nil {
				return err
			}
			results[i-from] = addr
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	for i, addr := range results {
		idx := from + uint32(i)
		w.addrs[change][idx] = addr
		w.owned[addr] = addrRef{change: change, index: idx}
	}
	if upTo > w.derived[change] {
		w.derived[change] = upTo
	}
	klog.Keys.Debug().
		Uint32("change", change).
		Uint32("from", from).
		Uint32("to", upTo).
		Msg("Derived lookahead addresses")
	return nil
}

// IsMine reports whether addr is one of the wallet's derived addresses.
func (w *Wallet) IsMine(addr types.Address) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.owned[addr]
	return ok
}

// AddressPath returns the full derivation path of an owned address.
func (w *Wallet) AddressPath(addr types.Address) (DerivationPath, error) {
	w.mu.RLock()
	ref, ok := w.owned[addr]
	w.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAddress, addr)
	}
	return ReceivePath(w.net, w.opts.Account, ref.change, ref.index)
}

// markUsed slides the lookahead window past an address seen in an output.
func (w *Wallet) markUsed(addr types.Address) error {
	w.mu.Lock()
	ref := w.owned[addr]
	w.seen[addr] = true
	if ref.index+1 > w.used[ref.change] {
		w.used[ref.change] = ref.index + 1
	}
	if ref.change == ChangeExternal && w.nextIndex < ref.index+1 && w.opts.Rotate {
		w.nextIndex = ref.index + 1
	}
	upTo := w.used[ref.change] + w.opts.Gap
	w.mu.Unlock()
	return w.ensureDerived(ref.change, upTo)
}

// RecordUTXO records an output paying to one of the wallet's addresses.
// Outputs to other addresses fail with ErrUnknownAddress.
func (w *Wallet) RecordUTXO(u ledger.UTXO) error {
	if !w.IsMine(u.Address) {
		return fmt.Errorf("%w: %s", ErrUnknownAddress, u.Address)
	}
	if err := w.ledger.RecordUTXO(u); err != nil {
		return err
	}
	return w.markUsed(u.Address)
}

// MarkSpent flags an output as spent.
func (w *Wallet) MarkSpent(op types.Outpoint) error {
	return w.ledger.MarkSpent(op)
}

// Reconcile replaces the wallet's view of its unspent outputs with an
// external snapshot. Addresses in the snapshot that lie beyond the current
// lookahead are discovered by sliding the window; any output that still
// pays elsewhere fails with ErrUnknownAddress.
func (w *Wallet) Reconcile(unspent []ledger.UTXO) (ledger.ReconcileResult, error) {
	for i := range unspent {
		if err := unspent[i].Validate(); err != nil {
			return ledger.ReconcileResult{}, err
		}
	}
	if err := w.discover(unspent); err != nil {
		return ledger.ReconcileResult{}, err
	}
	return w.ledger.Reconcile(w.Addresses(), unspent)
}

// discover marks the addresses of utxos used, sliding the lookahead until
// every address is found or no further progress is made.
func (w *Wallet) discover(utxos []ledger.UTXO) error {
	pending := make([]ledger.UTXO, len(utxos))
	copy(pending, utxos)
	for len(pending) > 0 {
		var rest []ledger.UTXO
		for _, u := range pending {
			if !w.IsMine(u.Address) {
				rest = append(rest, u)
				continue
			}
			if err := w.markUsed(u.Address); err != nil {
				return err
			}
		}
		if len(rest) == len(pending) {
			return fmt.Errorf("%w: %s", ErrUnknownAddress, rest[0].Address)
		}
		pending = rest
	}
	return nil
}

// Addresses returns every derived address of both chains.
func (w *Wallet) Addresses() []types.Address {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]types.Address, 0, len(w.owned))
	for addr := range w.owned {
		out = append(out, addr)
	}
	return out
}

// AddressInfos lists the derived addresses of one chain in index order.
func (w *Wallet) AddressInfos(change uint32) []AddressInfo {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]AddressInfo, 0, len(w.addrs[change]))
	for idx, addr := range w.addrs[change] {
		path, _ := ReceivePath(w.net, w.opts.Account, change, idx)
		out = append(out, AddressInfo{
			Address: addr,
			Change:  change,
			Index:   idx,
			Path:    path.String(),
			Used:    w.seen[addr],
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// SignMessage signs message with the key behind an owned address.
func (w *Wallet) SignMessage(addr types.Address, message string) ([]byte, error) {
	w.mu.RLock()
	ref, ok := w.owned[addr]
	w.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAddress, addr)
	}
	if !w.account.IsPrivate() {
		return nil, fmt.Errorf("sign message: %w", ErrPrivateKeyRequired)
	}
	key, err := w.account.DerivePath(DerivationPath{ref.change, ref.index})
	if err != nil {
		return nil, err
	}
	defer key.Zero()
	return crypto.SignMessage(key.privKey, message)
}

// Fingerprint returns the master key fingerprint.
func (w *Wallet) Fingerprint() [4]byte {
	return w.master.Fingerprint()
}

// NextIndex returns the receive index the next rotating Address call hands out.
func (w *Wallet) NextIndex() uint32 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.nextIndex
}

// Network returns the wallet's network.
func (w *Wallet) Network() *types.Network {
	return w.net
}

// AccountKey returns the neutered account key.
func (w *Wallet) AccountKey() *ExtendedKey {
	return w.accountPub
}

// Ledger returns the wallet's UTXO ledger.
func (w *Wallet) Ledger() *ledger.Ledger {
	return w.ledger
}

// Info summarizes the wallet for display.
func (w *Wallet) Info() Info {
	fp := w.Fingerprint()
	path, _ := AccountPath(w.net, w.opts.Account)
	w.mu.RLock()
	defer w.mu.RUnlock()
	return Info{
		Network:     w.net.Name,
		Fingerprint: hex.EncodeToString(fp[:]),
		AccountPath: path.String(),
		XPub:        w.accountPub.Serialize(w.opts.KeyFormat),
		Rotate:      w.opts.Rotate,
		Gap:         w.opts.Gap,
		Derived:     [2]uint32{w.derived[0], w.derived[1]},
		NextIndex:   w.nextIndex,
	}
}

// Close wipes the private key material. The wallet must not be used after.
func (w *Wallet) Close() {
	w.master.Zero()
	w.account.Zero()
}
