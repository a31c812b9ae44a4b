// segwalletd serves one BIP84 wallet over JSON-RPC.
//
// Usage:
//
//	segwalletd [--wallet=<name>] [--rotate]  Run daemon
//	segwalletd --help                        Show help
package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Klingon-tech/segwallet/config"
	"github.com/Klingon-tech/segwallet/internal/node"
	"golang.org/x/term"
)

func main() {
	cfg, _, err := config.Load(os.Args[1:])
	if errors.Is(err, config.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	password, err := walletPassword(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	n, err := node.New(cfg, password)
	for i := range password {
		password[i] = 0
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := n.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		n.Stop()
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	n.Stop()
}

// walletPassword reads the password file when configured and prompts on
// the terminal otherwise.
func walletPassword(cfg *config.Config) ([]byte, error) {
	if cfg.Wallet.PasswordFile != "" {
		return node.ReadPasswordFile(cfg.Wallet.PasswordFile)
	}
	if !term.IsTerminal(int(syscall.Stdin)) {
		return nil, fmt.Errorf("no terminal for the password prompt; set wallet.passwordfile")
	}
	fmt.Fprintf(os.Stderr, "Password for wallet %q: ", cfg.Wallet.Name)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr) // newline after hidden input
	if err != nil {
		return nil, fmt.Errorf("read password: %w", err)
	}
	return password, nil
}
