// derive_address.go prints the first BIP84 receive and change addresses of a
// mnemonic read from a file.
// Usage: go run scripts/derive_address.go <mnemonicfile> [network] [count]
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Klingon-tech/segwallet/internal/wallet"
	"github.com/Klingon-tech/segwallet/pkg/types"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: derive_address <mnemonicfile> [network] [count]")
		os.Exit(1)
	}
	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	net := types.Mainnet
	if len(os.Args) > 2 {
		if net, err = types.NetworkByName(os.Args[2]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	count := uint64(5)
	if len(os.Args) > 3 {
		if count, err = strconv.ParseUint(os.Args[3], 10, 32); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	w, err := wallet.FromMnemonic(strings.TrimSpace(string(data)), "", wallet.Options{Network: net})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer w.Close()

	info := w.Info()
	fmt.Printf("fingerprint=%s\n", info.Fingerprint)
	fmt.Printf("xpub=%s\n", info.XPub)
	for i := uint32(0); i < uint32(count); i++ {
		recv, err := w.ReceiveAddress(i)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		change, err := w.ChangeAddress(i)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Printf("%s/0/%d %s\n", info.AccountPath, i, recv)
		fmt.Printf("%s/1/%d %s\n", info.AccountPath, i, change)
	}
}
