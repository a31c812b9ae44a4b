// Package node assembles a running wallet daemon from a config: keystore,
// ledger storage, the unlocked wallet and its RPC server. It can be embedded
// in any binary.
package node

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Klingon-tech/segwallet/config"
	"github.com/Klingon-tech/segwallet/internal/ledger"
	klog "github.com/Klingon-tech/segwallet/internal/log"
	"github.com/Klingon-tech/segwallet/internal/rpc"
	"github.com/Klingon-tech/segwallet/internal/storage"
	"github.com/Klingon-tech/segwallet/internal/wallet"
	"github.com/Klingon-tech/segwallet/pkg/types"
	"github.com/rs/zerolog"
)

// ErrNetworkMismatch is returned when the keystore wallet was created for a
// different network than the daemon runs on.
var ErrNetworkMismatch = errors.New("wallet network mismatch")

// Node is a fully-initialized wallet daemon.
type Node struct {
	cfg    *config.Config
	net    *types.Network
	logger zerolog.Logger

	// Storage
	db       storage.DB
	keystore *wallet.Keystore

	// Wallet
	wallet *wallet.Wallet

	// RPC
	rpcServer *rpc.Server

	stopOnce sync.Once
}

// New creates and initializes a Node. It unlocks the configured wallet with
// password, opens the ledger and prepares the RPC server, but does not start
// listening. Call Start for that.
func New(cfg *config.Config, password []byte) (*Node, error) {
	// ── 1. Network ──────────────────────────────────────────────────
	net, err := types.NetworkByName(string(cfg.Network))
	if err != nil {
		return nil, err
	}

	// ── 2. Init logger ──────────────────────────────────────────────
	logFile := cfg.Log.File
	if logFile == "" {
		logsDir := cfg.LogsDir()
		if err := os.MkdirAll(logsDir, 0700); err != nil {
			return nil, fmt.Errorf("creating logs dir: %w", err)
		}
		logFile = filepath.Join(logsDir, "segwallet.log")
	}
	if err := klog.Init(cfg.Log.Level, cfg.Log.JSON, expandHome(logFile)); err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	logger := klog.Node

	logger.Info().
		Str("network", net.Name).
		Str("wallet", cfg.Wallet.Name).
		Str("ledger", cfg.Ledger.Backend).
		Msg("Starting segwallet daemon")

	// ── 3. Keystore ─────────────────────────────────────────────────
	ks, err := wallet.NewKeystore(cfg.KeystoreDir())
	if err != nil {
		return nil, err
	}
	seed, meta, err := ks.Load(cfg.Wallet.Name, password)
	if err != nil {
		return nil, err
	}
	defer zeroBytes(seed)
	// Keystores are per network, so this only trips on wallet files copied
	// between network directories.
	if meta.Network != "" && meta.Network != net.Name {
		return nil, fmt.Errorf("%w: wallet %q is for %s, daemon runs %s",
			ErrNetworkMismatch, cfg.Wallet.Name, meta.Network, net.Name)
	}

	// ── 4. Ledger storage ───────────────────────────────────────────
	db, err := openStorage(cfg)
	if err != nil {
		return nil, err
	}
	scope := storage.NewPrefixDB(db, ledgerPrefix(cfg.Wallet.Name, cfg.Wallet.Account))

	// ── 5. Wallet ───────────────────────────────────────────────────
	format, err := wallet.ParseKeyFormat(cfg.Wallet.XPubFormat)
	if err != nil {
		db.Close()
		return nil, err
	}
	renderer, err := newRenderer(cfg.QR)
	if err != nil {
		db.Close()
		return nil, err
	}
	opts := wallet.Options{
		Network:   net,
		Account:   cfg.Wallet.Account,
		Rotate:    cfg.Wallet.Rotate,
		Gap:       cfg.Wallet.Gap,
		KeyFormat: format,
		Renderer:  renderer,
		Ledger:    ledger.New(scope),
	}
	if meta.Account == cfg.Wallet.Account {
		opts.StartIndex = meta.NextIndex
	} else {
		logger.Warn().
			Uint32("created_with", meta.Account).
			Uint32("configured", cfg.Wallet.Account).
			Msg("Account differs from keystore metadata, address cursor starts at 0")
	}

	w, err := wallet.New(seed, opts)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open wallet: %w", err)
	}
	if err := checkFingerprint(w, meta); err != nil {
		w.Close()
		db.Close()
		return nil, err
	}

	n := &Node{
		cfg:      cfg,
		net:      net,
		logger:   logger,
		db:       db,
		keystore: ks,
		wallet:   w,
	}

	// ── 6. RPC ──────────────────────────────────────────────────────
	if cfg.RPC.Enabled {
		n.rpcServer = rpc.New(cfg.RPCEndpoint(), w, cfg.RPC)
		n.rpcServer.SetKeystore(ks, cfg.Wallet.Name)
		n.rpcServer.SetImageFormat(string(renderer.Format()))
	}

	return n, nil
}

// openStorage opens the configured ledger backend.
func openStorage(cfg *config.Config) (storage.DB, error) {
	switch cfg.Ledger.Backend {
	case config.LedgerMemory:
		return storage.NewMemory(), nil
	case config.LedgerBadger:
		db, err := storage.NewBadger(cfg.LedgerDir())
		if err != nil {
			return nil, fmt.Errorf("open ledger at %s: %w", cfg.LedgerDir(), err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", cfg.Ledger.Backend)
	}
}

// Start begins serving RPC.
func (n *Node) Start() error {
	if n.rpcServer != nil {
		if err := n.rpcServer.Start(); err != nil {
			return err
		}
		n.logger.Info().Str("addr", n.rpcServer.Addr()).Msg("RPC server listening")
	}

	info := n.wallet.Info()
	n.logger.Info().
		Str("fingerprint", info.Fingerprint).
		Str("xpub", info.XPub).
		Bool("rotate", info.Rotate).
		Uint32("next_index", info.NextIndex).
		Msg("Wallet ready")
	return nil
}

// Stop performs graceful shutdown in reverse order. It is safe to call
// more than once.
func (n *Node) Stop() {
	n.stopOnce.Do(func() {
		if n.rpcServer != nil {
			if err := n.rpcServer.Stop(); err != nil {
				n.logger.Warn().Err(err).Msg("RPC shutdown")
			}
		}
		if n.cfg.Wallet.Rotate {
			if err := n.keystore.SetNextIndex(n.cfg.Wallet.Name, n.wallet.NextIndex()); err != nil {
				n.logger.Warn().Err(err).Msg("Failed to persist address cursor")
			}
		}
		n.wallet.Close()
		if n.db != nil {
			n.db.Close()
		}
		n.logger.Info().Msg("Goodbye!")
		klog.Close()
	})
}

// RPCAddr returns the address the RPC server is listening on.
func (n *Node) RPCAddr() string {
	if n.rpcServer == nil {
		return ""
	}
	return n.rpcServer.Addr()
}

// Wallet returns the unlocked wallet.
func (n *Node) Wallet() *wallet.Wallet {
	return n.wallet
}

// Network returns the network the node runs on.
func (n *Node) Network() *types.Network {
	return n.net
}
