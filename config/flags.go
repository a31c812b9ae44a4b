package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
)

// Version is reported by --version.
const Version = "0.1.0"

// ErrHelp is returned by Load when --help or --version was handled.
var ErrHelp = errors.New("help requested")

// Flags holds parsed command-line flags.
type Flags struct {
	// Commands
	Help    bool
	Version bool

	// Core
	Network string
	DataDir string
	Config  string

	// Wallet
	Wallet       string
	Account      uint
	Rotate       bool
	Gap          uint
	XPubFormat   string
	PasswordFile string

	// Ledger
	Ledger string

	// RPC
	RPC        bool
	RPCAddr    string
	RPCPort    int
	RPCAllowed string
	RPCCORS    string

	// QR
	QRSize   int
	QRFormat string

	// Logging
	LogLevel string
	LogFile  string
	LogJSON  bool

	// Remaining args
	Args []string

	// Explicitly-set flags whose zero value is meaningful.
	SetAccount bool
	SetRotate  bool
	SetRPC     bool
	SetLogJSON bool
}

// ParseFlags parses daemon command-line flags from args (without the
// program name).
func ParseFlags(args []string) (*Flags, error) {
	f := &Flags{}
	fs := flag.NewFlagSet("segwalletd", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	// Commands
	fs.BoolVar(&f.Help, "help", false, "Show help message")
	fs.BoolVar(&f.Help, "h", false, "Show help message (shorthand)")
	fs.BoolVar(&f.Version, "version", false, "Show version information")
	fs.BoolVar(&f.Version, "v", false, "Show version (shorthand)")

	// Core
	fs.StringVar(&f.Network, "network", "", "Network: mainnet, testnet, regtest or signet")
	testnet := fs.Bool("testnet", false, "Use testnet (shorthand for --network=testnet)")
	regtest := fs.Bool("regtest", false, "Use regtest (shorthand for --network=regtest)")
	fs.StringVar(&f.DataDir, "datadir", "", "Data directory path")
	fs.StringVar(&f.Config, "config", "", "Config file path")
	fs.StringVar(&f.Config, "c", "", "Config file path (shorthand)")

	// Wallet
	fs.StringVar(&f.Wallet, "wallet", "", "Keystore wallet name")
	fs.UintVar(&f.Account, "account", 0, "BIP84 account index")
	fs.BoolVar(&f.Rotate, "rotate", false, "Rotate receive addresses")
	fs.UintVar(&f.Gap, "gap", 0, "Address lookahead per chain")
	fs.StringVar(&f.XPubFormat, "xpub-format", "", "Extended key format: zpub or xpub")
	fs.StringVar(&f.PasswordFile, "password-file", "", "File holding the wallet password")

	// Ledger
	fs.StringVar(&f.Ledger, "ledger", "", "Ledger backend: badger or memory")

	// RPC
	fs.BoolVar(&f.RPC, "rpc", true, "Enable RPC server")
	fs.StringVar(&f.RPCAddr, "rpc-addr", "", "RPC listen address")
	fs.IntVar(&f.RPCPort, "rpc-port", 0, "RPC listen port")
	fs.StringVar(&f.RPCAllowed, "rpc-allowed", "", "Allowed IPs for RPC")
	fs.StringVar(&f.RPCCORS, "rpc-cors", "", "Allowed CORS origins for RPC (comma-separated)")

	// QR
	fs.IntVar(&f.QRSize, "qr-size", 0, "QR image size (negative: pixels per module)")
	fs.StringVar(&f.QRFormat, "qr-format", "", "QR image format: png or jpeg")

	// Logging
	fs.StringVar(&f.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&f.LogFile, "log-file", "", "Log file path")
	fs.BoolVar(&f.LogJSON, "log-json", false, "Output logs as JSON")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			f.Help = true
			return f, nil
		}
		return nil, err
	}

	switch {
	case *testnet && *regtest:
		return nil, fmt.Errorf("--testnet and --regtest are mutually exclusive")
	case *testnet:
		f.Network = string(Testnet)
	case *regtest:
		f.Network = string(Regtest)
	}
	f.SetAccount = isFlagSet(fs, "account")
	f.SetRotate = isFlagSet(fs, "rotate")
	f.SetRPC = isFlagSet(fs, "rpc")
	f.SetLogJSON = isFlagSet(fs, "log-json")

	f.Args = fs.Args()

	// A positional argument stops the parser; flags after it would be lost.
	for _, arg := range f.Args {
		if strings.HasPrefix(arg, "-") {
			return nil, fmt.Errorf("flag %q was not parsed (positional argument stopped parsing)", arg)
		}
	}
	return f, nil
}

// ApplyFlags applies command-line flags to a Config struct.
func ApplyFlags(cfg *Config, f *Flags) {
	// Core
	if f.Network != "" {
		cfg.Network = NetworkType(strings.ToLower(f.Network))
	}
	if f.DataDir != "" {
		cfg.DataDir = f.DataDir
	}

	// Wallet
	if f.Wallet != "" {
		cfg.Wallet.Name = f.Wallet
	}
	if f.SetAccount {
		cfg.Wallet.Account = uint32(f.Account)
	}
	if f.SetRotate {
		cfg.Wallet.Rotate = f.Rotate
	}
	if f.Gap != 0 {
		cfg.Wallet.Gap = uint32(f.Gap)
	}
	if f.XPubFormat != "" {
		cfg.Wallet.XPubFormat = f.XPubFormat
	}
	if f.PasswordFile != "" {
		cfg.Wallet.PasswordFile = f.PasswordFile
	}

	// Ledger
	if f.Ledger != "" {
		cfg.Ledger.Backend = strings.ToLower(f.Ledger)
	}

	// RPC
	if f.SetRPC {
		cfg.RPC.Enabled = f.RPC
	}
	if f.RPCAddr != "" {
		cfg.RPC.Addr = f.RPCAddr
	}
	if f.RPCPort != 0 {
		cfg.RPC.Port = f.RPCPort
	}
	if f.RPCAllowed != "" {
		cfg.RPC.AllowedIPs = parseStringList(f.RPCAllowed)
	}
	if f.RPCCORS != "" {
		cfg.RPC.CORSOrigins = parseStringList(f.RPCCORS)
	}

	// QR
	if f.QRSize != 0 {
		cfg.QR.Size = f.QRSize
	}
	if f.QRFormat != "" {
		cfg.QR.Format = strings.ToLower(f.QRFormat)
	}

	// Logging
	if f.LogLevel != "" {
		cfg.Log.Level = f.LogLevel
	}
	if f.LogFile != "" {
		cfg.Log.File = f.LogFile
	}
	if f.SetLogJSON {
		cfg.Log.JSON = f.LogJSON
	}
}

// isFlagSet checks if a flag was explicitly set.
func isFlagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// PrintUsage writes the daemon help text.
func PrintUsage(w io.Writer) {
	usage := `segwalletd - deterministic BIP84 wallet daemon

Usage:
  segwalletd [options]
  segwalletd --help

Commands:
  --help, -h        Show this help message
  --version, -v     Show version information

Core Options:
  --network         Network: mainnet (default), testnet, regtest or signet
  --testnet         Shorthand for --network=testnet
  --regtest         Shorthand for --network=regtest
  --datadir         Data directory (default: ~/.segwallet)
  --config, -c      Config file path (default: <datadir>/segwallet.conf)

Wallet Options:
  --wallet          Keystore wallet to unlock (default: default)
  --account         BIP84 account index (default: 0)
  --rotate          Hand out a fresh receive address per request
  --gap             Unused addresses derived ahead per chain (default: 20)
  --xpub-format     zpub (default) or xpub
  --password-file   Read the wallet password from a file

Ledger Options:
  --ledger          badger (default) or memory

RPC Options:
  --rpc             Enable RPC server (default: true)
  --rpc-addr        RPC listen address (default: 127.0.0.1)
  --rpc-port        RPC port (mainnet: 8335, testnet: 18335, regtest: 18445)
  --rpc-allowed     Allowed IPs for RPC (comma-separated)
  --rpc-cors        Allowed CORS origins for RPC (comma-separated)

QR Options:
  --qr-size         Image width in pixels, or -N for N pixels per module
  --qr-format       jpeg (default) or png

Logging Options:
  --log-level       Log level: debug, info, warn, error (default: info)
  --log-file        Log file path (default: stdout)
  --log-json        Output logs as JSON

Examples:
  # Create a wallet first
  segwallet-cli wallet create

  # Serve the default wallet on mainnet
  segwalletd

  # Serve a rotating testnet wallet, password from a file
  segwalletd --testnet --rotate --password-file=/run/secrets/wallet
`
	fmt.Fprint(w, usage)
}

// Load builds the daemon configuration with the following precedence:
// 1. Default values
// 2. Auto-create data dirs + default config (idempotent)
// 3. Config file
// 4. Command-line flags
//
// Load returns ErrHelp after printing usage or version.
func Load(args []string) (*Config, *Flags, error) {
	flags, err := ParseFlags(args)
	if err != nil {
		return nil, nil, err
	}
	if flags.Help {
		PrintUsage(os.Stdout)
		return nil, flags, ErrHelp
	}
	if flags.Version {
		fmt.Printf("segwalletd version %s\n", Version)
		return nil, flags, ErrHelp
	}

	// The network picks the defaults, so it is resolved before the file.
	network := Mainnet
	if flags.Network != "" {
		network = NetworkType(strings.ToLower(flags.Network))
	}
	cfg := Default(network)
	if flags.DataDir != "" {
		cfg.DataDir = flags.DataDir
	}

	if err := EnsureDataDirs(cfg); err != nil {
		return nil, nil, fmt.Errorf("ensuring data dirs: %w", err)
	}

	configPath := flags.Config
	if configPath == "" {
		configPath = cfg.ConfigFile()
	}
	fileValues, err := LoadFile(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config file: %w", err)
	}
	if err := ApplyFileConfig(cfg, fileValues); err != nil {
		return nil, nil, fmt.Errorf("applying config file: %w", err)
	}

	ApplyFlags(cfg, flags)
	if err := Validate(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	// The file may have switched networks; make sure its dirs exist too.
	if err := EnsureDataDirs(cfg); err != nil {
		return nil, nil, fmt.Errorf("ensuring data dirs: %w", err)
	}
	return cfg, flags, nil
}

// LoadFromFile loads config from defaults + conf file only (no CLI flags).
// The CLI uses it to find the keystore and RPC endpoint.
func LoadFromFile(dataDir string, network NetworkType) (*Config, error) {
	cfg := Default(network)
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	fileValues, err := LoadFile(cfg.ConfigFile())
	if err != nil {
		return nil, fmt.Errorf("loading config file: %w", err)
	}
	if err := ApplyFileConfig(cfg, fileValues); err != nil {
		return nil, fmt.Errorf("applying config: %w", err)
	}
	// An explicit network wins over the file.
	cfg.Network = network
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// EnsureDataDirs creates the data directory structure and a default config
// file if they don't already exist. It is idempotent.
func EnsureDataDirs(cfg *Config) error {
	dirs := []string{
		cfg.DataDir,
		cfg.NetworkDataDir(),
		cfg.KeystoreDir(),
		cfg.LogsDir(),
	}
	if cfg.Ledger.Backend == LedgerBadger {
		dirs = append(dirs, cfg.LedgerDir())
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	configPath := cfg.ConfigFile()
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := WriteDefaultConfig(configPath, cfg.Network); err != nil {
			return fmt.Errorf("writing config file: %w", err)
		}
	}
	return nil
}
