// segwallet-cli manages keystores and talks to a running segwalletd.
package main

import (
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/Klingon-tech/segwallet/config"
	"github.com/Klingon-tech/segwallet/internal/qr"
	"github.com/Klingon-tech/segwallet/internal/rpc"
	"github.com/Klingon-tech/segwallet/internal/rpcclient"
	"github.com/Klingon-tech/segwallet/internal/wallet"
	"github.com/Klingon-tech/segwallet/pkg/types"
	"github.com/btcsuite/btcd/btcutil"
	"golang.org/x/term"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	rpcURL := ""
	dataDir := config.DefaultDataDir()
	network := "mainnet"

	// Scan for --rpc, --datadir and --network before the subcommand.
	args := os.Args[1:]
	for len(args) > 0 {
		switch {
		case args[0] == "--rpc" && len(args) > 1:
			rpcURL = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--rpc="):
			rpcURL = args[0][len("--rpc="):]
			args = args[1:]
		case args[0] == "--datadir" && len(args) > 1:
			dataDir = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--datadir="):
			dataDir = args[0][len("--datadir="):]
			args = args[1:]
		case args[0] == "--network" && len(args) > 1:
			network = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--network="):
			network = args[0][len("--network="):]
			args = args[1:]
		default:
			goto dispatch
		}
	}

dispatch:
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	net, err := types.NetworkByName(network)
	if err != nil {
		fatal("%v", err)
	}
	cfg := loadConfig(dataDir, config.NetworkType(net.Name))
	if rpcURL == "" {
		rpcURL = "http://" + cfg.RPCEndpoint()
	}

	client := rpcclient.New(rpcURL)
	cmd := args[0]
	cmdArgs := args[1:]

	switch cmd {
	case "wallet":
		cmdWallet(cmdArgs, cfg, net, client)
	case "info":
		cmdInfo(client)
	case "xpub":
		cmdXPub(client, cmdArgs)
	case "address":
		cmdAddress(client, cmdArgs)
	case "addresses":
		cmdAddresses(client, cmdArgs)
	case "balance":
		cmdBalance(client)
	case "utxo":
		cmdUTXO(client, cmdArgs)
	case "reconcile":
		cmdReconcile(client, cmdArgs)
	case "commitment":
		cmdCommitment(client)
	case "sign":
		cmdSign(client, cmdArgs)
	case "verify":
		cmdVerify(client, cmdArgs)
	case "help", "--help", "-h":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: segwallet-cli [global flags] <command> [flags]

Global flags:
  --rpc <url>         RPC endpoint (default: from segwallet.conf)
  --datadir <path>    Data directory (default: ~/.segwallet)
  --network <net>     mainnet (default), testnet, regtest or signet

Keystore commands (offline):
  wallet create --name <n> [--words 12|24] [--account <n>] [--passphrase]
                                  Create a wallet from a fresh mnemonic
  wallet import --name <n> --mnemonic "..." [--account <n>] [--passphrase]
                                  Import a wallet from a mnemonic
  wallet list                     List wallets in the keystore
  wallet show --name <n>          Show stored wallet metadata
  wallet delete --name <n>        Delete a wallet file

Daemon commands:
  info                            Show the loaded wallet
  xpub [--qr <file>] [--terminal] Show the account extended public key
  address [--qr <file>] [--terminal]
                                  Get a receive address
  addresses [--change]            List derived addresses
  balance                         Show the wallet balance
  utxo add --txid <id> --index <n> --address <a> --value <sats> [--height <h>]
  utxo spend --txid <id> --index <n>
  utxo get --txid <id> --index <n>
  utxo list [--address <a>] [--all]
  utxo prune                      Drop spent outputs
  reconcile <file.json>           Replace the UTXO view with a snapshot
  commitment                      Show the BLAKE3 UTXO set commitment
  sign --address <a> --message <m>
  verify --address <a> --message <m> --signature <base64>
`)
}

// loadConfig reads segwallet.conf when present and falls back to the
// network defaults otherwise.
func loadConfig(dataDir string, network config.NetworkType) *config.Config {
	cfg, err := config.LoadFromFile(dataDir, network)
	if err != nil {
		cfg = config.Default(network)
		cfg.DataDir = dataDir
	}
	return cfg
}

// ── wallet ──────────────────────────────────────────────────────────────

func cmdWallet(args []string, cfg *config.Config, net *types.Network, client *rpcclient.Client) {
	if len(args) < 1 {
		fatal("Usage: segwallet-cli wallet <create|import|list|show|delete> [flags]")
	}

	ks, err := wallet.NewKeystore(cfg.KeystoreDir())
	if err != nil {
		fatal("open keystore: %v", err)
	}

	switch args[0] {
	case "create":
		cmdWalletCreate(args[1:], ks, net)
	case "import":
		cmdWalletImport(args[1:], ks, net)
	case "list":
		cmdWalletList(ks, client)
	case "show":
		cmdWalletShow(args[1:], ks)
	case "delete":
		cmdWalletDelete(args[1:], ks)
	default:
		fatal("Unknown wallet command: %s\nUsage: segwallet-cli wallet <create|import|list|show|delete> [flags]", args[0])
	}
}

func cmdWalletCreate(args []string, ks *wallet.Keystore, net *types.Network) {
	fs := flag.NewFlagSet("wallet create", flag.ExitOnError)
	name := fs.String("name", "", "Wallet name")
	words := fs.Int("words", 24, "Mnemonic length (12, 15, 18, 21 or 24)")
	account := fs.Uint("account", 0, "BIP84 account index")
	withPassphrase := fs.Bool("passphrase", false, "Prompt for a BIP39 passphrase")
	fs.Parse(args)

	if *name == "" {
		fatal("Usage: segwallet-cli wallet create --name <name>")
	}
	if ks.Exists(*name) {
		fatal("wallet %q already exists", *name)
	}

	bits, err := wallet.EntropyBits(*words)
	if err != nil {
		fatal("--words must be 12, 15, 18, 21 or 24")
	}
	mnemonic, err := wallet.GenerateMnemonic(bits)
	if err != nil {
		fatal("generate mnemonic: %v", err)
	}

	fmt.Println("Mnemonic (write this down!):")
	fmt.Printf("  %s\n\n", mnemonic)

	storeWallet(ks, *name, mnemonic, net, uint32(*account), *withPassphrase)
}

func cmdWalletImport(args []string, ks *wallet.Keystore, net *types.Network) {
	fs := flag.NewFlagSet("wallet import", flag.ExitOnError)
	name := fs.String("name", "", "Wallet name")
	mnemonic := fs.String("mnemonic", "", "BIP39 mnemonic")
	account := fs.Uint("account", 0, "BIP84 account index")
	withPassphrase := fs.Bool("passphrase", false, "Prompt for a BIP39 passphrase")
	fs.Parse(args)

	if *name == "" || *mnemonic == "" {
		fatal("Usage: segwallet-cli wallet import --name <name> --mnemonic \"word1 word2 ...\"")
	}
	ok, err := wallet.ValidateMnemonic(*mnemonic)
	if err != nil {
		fatal("invalid mnemonic: %v", err)
	}
	if !ok {
		fatal("invalid mnemonic")
	}

	storeWallet(ks, *name, *mnemonic, net, uint32(*account), *withPassphrase)
}

// storeWallet derives the seed, prompts for the keystore password and
// writes the encrypted wallet file.
func storeWallet(ks *wallet.Keystore, name, mnemonic string, net *types.Network, account uint32, withPassphrase bool) {
	passphrase := ""
	if withPassphrase {
		p, err := readPassword("BIP39 passphrase: ")
		if err != nil {
			fatal("read passphrase: %v", err)
		}
		passphrase = string(p)
	}

	password, err := readPassword("Enter password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	confirm, err := readPassword("Confirm password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	if string(password) != string(confirm) {
		fatal("passwords do not match")
	}
	if len(password) == 0 {
		fatal("password must not be empty")
	}

	seed, err := wallet.SeedFromMnemonic(mnemonic, passphrase)
	if err != nil {
		fatal("derive seed: %v", err)
	}
	defer func() {
		for i := range seed {
			seed[i] = 0
		}
	}()

	meta, err := wallet.NewWalletMeta(seed, net, account, wallet.FormatSegwit)
	if err != nil {
		fatal("derive account: %v", err)
	}
	if err := ks.Create(name, seed, password, meta, wallet.DefaultParams()); err != nil {
		fatal("create wallet: %v", err)
	}

	fmt.Printf("Wallet stored: %s\n", name)
	fmt.Printf("Fingerprint: %s\n", meta.Fingerprint)
	fmt.Printf("XPub:        %s\n", meta.XPub)
}

func cmdWalletList(ks *wallet.Keystore, client *rpcclient.Client) {
	names, err := ks.List()
	if err != nil {
		fatal("list wallets: %v", err)
	}
	if len(names) == 0 {
		fmt.Println("No wallets found.")
		return
	}

	// Mark the wallet the daemon has loaded, if one is reachable.
	var active rpc.WalletListResult
	_ = client.Call("wallet_list", nil, &active)

	for _, name := range names {
		marker := " "
		if name == active.Active {
			marker = "*"
		}
		fmt.Printf("%s %s\n", marker, name)
	}
}

func cmdWalletShow(args []string, ks *wallet.Keystore) {
	fs := flag.NewFlagSet("wallet show", flag.ExitOnError)
	name := fs.String("name", "", "Wallet name")
	fs.Parse(args)

	if *name == "" {
		fatal("Usage: segwallet-cli wallet show --name <name>")
	}
	meta, err := ks.Meta(*name)
	if err != nil {
		fatal("%v", err)
	}
	fmt.Printf("Network:     %s\n", meta.Network)
	fmt.Printf("Account:     %d\n", meta.Account)
	fmt.Printf("Fingerprint: %s\n", meta.Fingerprint)
	fmt.Printf("XPub:        %s\n", meta.XPub)
	fmt.Printf("Next index:  %d\n", meta.NextIndex)
	fmt.Printf("Created:     %s\n", meta.CreatedAt.Format("2006-01-02 15:04:05 MST"))
}

func cmdWalletDelete(args []string, ks *wallet.Keystore) {
	fs := flag.NewFlagSet("wallet delete", flag.ExitOnError)
	name := fs.String("name", "", "Wallet name")
	fs.Parse(args)

	if *name == "" {
		fatal("Usage: segwallet-cli wallet delete --name <name>")
	}
	if err := ks.Delete(*name); err != nil {
		fatal("%v", err)
	}
	fmt.Printf("Wallet deleted: %s\n", *name)
}

// ── info / xpub / address ───────────────────────────────────────────────

func cmdInfo(client *rpcclient.Client) {
	var info wallet.Info
	if err := client.Call("wallet_getInfo", nil, &info); err != nil {
		fatal("wallet_getInfo: %v", err)
	}
	fmt.Printf("Network:     %s\n", info.Network)
	fmt.Printf("Fingerprint: %s\n", info.Fingerprint)
	fmt.Printf("Account:     %s\n", info.AccountPath)
	fmt.Printf("XPub:        %s\n", info.XPub)
	fmt.Printf("Rotate:      %t\n", info.Rotate)
	fmt.Printf("Gap:         %d\n", info.Gap)
	fmt.Printf("Derived:     %d receive, %d change\n", info.Derived[0], info.Derived[1])
	fmt.Printf("Next index:  %d\n", info.NextIndex)
}

func cmdXPub(client *rpcclient.Client, args []string) {
	fs := flag.NewFlagSet("xpub", flag.ExitOnError)
	qrFile := fs.String("qr", "", "Write a QR code image to this file")
	terminal := fs.Bool("terminal", false, "Print a QR code to the terminal")
	fs.Parse(args)

	var result rpc.XPubResult
	if err := client.Call("wallet_getXPub", rpc.ImageParam{Image: *qrFile != ""}, &result); err != nil {
		fatal("wallet_getXPub: %v", err)
	}
	fmt.Printf("%s\n", result.XPub)
	fmt.Printf("Path: %s\n", result.Path)
	showQR(result.XPub, result.Image, *qrFile, *terminal)
}

func cmdAddress(client *rpcclient.Client, args []string) {
	fs := flag.NewFlagSet("address", flag.ExitOnError)
	qrFile := fs.String("qr", "", "Write a QR code image to this file")
	terminal := fs.Bool("terminal", false, "Print a QR code to the terminal")
	fs.Parse(args)

	var result rpc.AddressResult
	if err := client.Call("wallet_getAddress", rpc.ImageParam{Image: *qrFile != ""}, &result); err != nil {
		fatal("wallet_getAddress: %v", err)
	}
	fmt.Printf("%s\n", result.Address)
	fmt.Printf("Path: %s\n", result.Path)
	showQR(result.Address, result.Image, *qrFile, *terminal)
}

// showQR writes a daemon-rendered image to file and optionally prints a
// terminal rendering of text.
func showQR(text string, image []byte, file string, terminal bool) {
	if file != "" {
		if err := os.WriteFile(file, image, 0644); err != nil {
			fatal("write %s: %v", file, err)
		}
		fmt.Printf("QR code written to %s\n", file)
	}
	if terminal {
		art, err := qr.Terminal(text)
		if err != nil {
			fatal("render QR: %v", err)
		}
		fmt.Print(art)
	}
}

func cmdAddresses(client *rpcclient.Client, args []string) {
	fs := flag.NewFlagSet("addresses", flag.ExitOnError)
	change := fs.Bool("change", false, "List the change chain")
	fs.Parse(args)

	param := rpc.ChainParam{}
	if *change {
		param.Change = wallet.ChangeInternal
	}
	var result rpc.AddressListResult
	if err := client.Call("wallet_listAddresses", param, &result); err != nil {
		fatal("wallet_listAddresses: %v", err)
	}
	for _, a := range result.Addresses {
		used := ""
		if a.Used {
			used = " (used)"
		}
		fmt.Printf("%-20s %s%s\n", a.Path, a.Address, used)
	}
}

// ── balance / utxo ──────────────────────────────────────────────────────

func cmdBalance(client *rpcclient.Client) {
	var bal rpc.BalanceResult
	if err := client.Call("wallet_getBalance", nil, &bal); err != nil {
		fatal("wallet_getBalance: %v", err)
	}
	fmt.Printf("Confirmed:   %s\n", btcutil.Amount(bal.Confirmed))
	fmt.Printf("Unconfirmed: %s\n", btcutil.Amount(bal.Unconfirmed))
	fmt.Printf("Total:       %s\n", bal.Display)
}

func cmdUTXO(client *rpcclient.Client, args []string) {
	if len(args) < 1 {
		fatal("Usage: segwallet-cli utxo <add|spend|get|list|prune> [flags]")
	}

	switch args[0] {
	case "add":
		fs := flag.NewFlagSet("utxo add", flag.ExitOnError)
		txid := fs.String("txid", "", "Transaction ID")
		index := fs.Uint("index", 0, "Output index")
		address := fs.String("address", "", "Receiving address")
		value := fs.Uint64("value", 0, "Value in satoshis")
		height := fs.Uint("height", 0, "Block height (0 = unconfirmed)")
		fs.Parse(args[1:])
		if *txid == "" || *address == "" {
			fatal("Usage: segwallet-cli utxo add --txid <id> --index <n> --address <a> --value <sats>")
		}
		param := rpc.UTXOParam{TxID: *txid, Index: uint32(*index), Address: *address, Value: *value, Height: uint32(*height)}
		var ok rpc.OKResult
		if err := client.Call("ledger_recordUTXO", param, &ok); err != nil {
			fatal("ledger_recordUTXO: %v", err)
		}
		fmt.Printf("Recorded %s:%d (%s)\n", *txid, *index, btcutil.Amount(*value))

	case "spend":
		param := outpointFlags("utxo spend", args[1:])
		var ok rpc.OKResult
		if err := client.Call("ledger_markSpent", param, &ok); err != nil {
			fatal("ledger_markSpent: %v", err)
		}
		fmt.Printf("Spent %s:%d\n", param.TxID, param.Index)

	case "get":
		param := outpointFlags("utxo get", args[1:])
		var u json.RawMessage
		if err := client.Call("ledger_getUTXO", param, &u); err != nil {
			if rpcclient.ErrorCode(err) == rpc.CodeNotFound {
				fatal("output %s:%d is not in the ledger", param.TxID, param.Index)
			}
			fatal("ledger_getUTXO: %v", err)
		}
		printJSON(u)

	case "list":
		fs := flag.NewFlagSet("utxo list", flag.ExitOnError)
		address := fs.String("address", "", "Only outputs paying this address")
		all := fs.Bool("all", false, "Include spent outputs")
		fs.Parse(args[1:])
		var result rpc.UTXOListResult
		if err := client.Call("ledger_listUTXOs", rpc.ListUTXOsParam{Address: *address, IncludeSpent: *all}, &result); err != nil {
			fatal("ledger_listUTXOs: %v", err)
		}
		if len(result.UTXOs) == 0 {
			fmt.Println("No outputs.")
			return
		}
		for _, u := range result.UTXOs {
			state := ""
			if u.Spent {
				state = " spent"
			} else if !u.Confirmed() {
				state = " unconfirmed"
			}
			fmt.Printf("%s  %s  %s%s\n", u.Outpoint, u.Address, btcutil.Amount(u.Value), state)
		}

	case "prune":
		var result rpc.PruneResult
		if err := client.Call("ledger_prune", nil, &result); err != nil {
			fatal("ledger_prune: %v", err)
		}
		fmt.Printf("Removed %d spent outputs\n", result.Removed)

	default:
		fatal("Unknown utxo command: %s", args[0])
	}
}

func outpointFlags(name string, args []string) rpc.OutpointParam {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	txid := fs.String("txid", "", "Transaction ID")
	index := fs.Uint("index", 0, "Output index")
	fs.Parse(args)
	if *txid == "" {
		fatal("Usage: segwallet-cli %s --txid <id> --index <n>", name)
	}
	return rpc.OutpointParam{TxID: *txid, Index: uint32(*index)}
}

func cmdReconcile(client *rpcclient.Client, args []string) {
	if len(args) < 1 {
		fatal("Usage: segwallet-cli reconcile <file.json>")
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		fatal("read snapshot: %v", err)
	}

	// Accept either a bare array or {"utxos": [...]}.
	var param rpc.ReconcileParam
	if err := json.Unmarshal(data, &param.UTXOs); err != nil {
		if err := json.Unmarshal(data, &param); err != nil {
			fatal("parse snapshot: %v", err)
		}
	}

	var result struct {
		Added   int `json:"added"`
		Updated int `json:"updated"`
		Spent   int `json:"spent"`
	}
	if err := client.Call("ledger_reconcile", param, &result); err != nil {
		fatal("ledger_reconcile: %v", err)
	}
	fmt.Printf("Added: %d  Updated: %d  Spent: %d\n", result.Added, result.Updated, result.Spent)
}

func cmdCommitment(client *rpcclient.Client) {
	var result rpc.CommitmentResult
	if err := client.Call("ledger_commitment", nil, &result); err != nil {
		fatal("ledger_commitment: %v", err)
	}
	fmt.Printf("%s (%d outputs)\n", result.Commitment, result.Count)
}

// ── sign / verify ───────────────────────────────────────────────────────

func cmdSign(client *rpcclient.Client, args []string) {
	fs := flag.NewFlagSet("sign", flag.ExitOnError)
	address := fs.String("address", "", "Wallet address to sign with")
	message := fs.String("message", "", "Message text")
	fs.Parse(args)

	if *address == "" {
		fatal("Usage: segwallet-cli sign --address <a> --message <m>")
	}
	var result rpc.SignatureResult
	if err := client.Call("wallet_signMessage", rpc.SignMessageParam{Address: *address, Message: *message}, &result); err != nil {
		fatal("wallet_signMessage: %v", err)
	}
	fmt.Println(result.Signature)
}

func cmdVerify(client *rpcclient.Client, args []string) {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	address := fs.String("address", "", "Signing address")
	message := fs.String("message", "", "Message text")
	signature := fs.String("signature", "", "Base64 signature")
	fs.Parse(args)

	if *address == "" || *signature == "" {
		fatal("Usage: segwallet-cli verify --address <a> --message <m> --signature <base64>")
	}
	if _, err := base64.StdEncoding.DecodeString(*signature); err != nil {
		fatal("signature is not base64: %v", err)
	}
	var result rpc.VerifyResult
	param := rpc.VerifyMessageParam{Address: *address, Message: *message, Signature: *signature}
	if err := client.Call("wallet_verifyMessage", param, &result); err != nil {
		fatal("wallet_verifyMessage: %v", err)
	}
	if !result.Valid {
		fmt.Println("Signature is NOT valid")
		os.Exit(1)
	}
	fmt.Println("Signature is valid")
}

// ── helpers ─────────────────────────────────────────────────────────────

func printJSON(raw json.RawMessage) {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		fmt.Println(string(raw))
		return
	}
	out, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(out))
}

func readPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr) // newline after hidden input
	if err != nil {
		return nil, err
	}
	return password, nil
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
