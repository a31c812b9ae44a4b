package rpc

import (
	"github.com/Klingon-tech/segwallet/internal/ledger"
	"github.com/Klingon-tech/segwallet/internal/wallet"
)

// JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeNotFound       = -32000
	CodeWalletError    = -32001
)

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
	ID      interface{} `json:"id"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   *Error      `json:"error,omitempty"`
	ID      interface{} `json:"id"`
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ── Param types ─────────────────────────────────────────────────────────

// ImageParam is used by endpoints that can return a QR image.
type ImageParam struct {
	Image bool `json:"image,omitempty"`
}

// ChainParam selects the external (0) or change (1) chain.
type ChainParam struct {
	Change uint32 `json:"change"`
}

// SignMessageParam is used by wallet_signMessage.
type SignMessageParam struct {
	Address string `json:"address"`
	Message string `json:"message"`
}

// VerifyMessageParam is used by wallet_verifyMessage.
type VerifyMessageParam struct {
	Address   string `json:"address"`
	Message   string `json:"message"`
	Signature string `json:"signature"` // base64
}

// OutpointParam identifies one output.
type OutpointParam struct {
	TxID  string `json:"txid"`
	Index uint32 `json:"index"`
}

// UTXOParam describes an output paying to the wallet.
type UTXOParam struct {
	TxID    string `json:"txid"`
	Index   uint32 `json:"index"`
	Address string `json:"address"`
	Value   uint64 `json:"value"`
	Height  uint32 `json:"height,omitempty"`
}

// ListUTXOsParam is used by ledger_listUTXOs.
type ListUTXOsParam struct {
	Address      string `json:"address,omitempty"`
	IncludeSpent bool   `json:"include_spent,omitempty"`
}

// ReconcileParam carries the full unspent snapshot of the wallet.
type ReconcileParam struct {
	UTXOs []UTXOParam `json:"utxos"`
}

// ── Result types ────────────────────────────────────────────────────────

// XPubResult is returned by wallet_getXPub.
type XPubResult struct {
	XPub   string `json:"xpub"`
	Path   string `json:"path"`
	Image  []byte `json:"image,omitempty"` // base64 in JSON
	Format string `json:"format,omitempty"`
}

// AddressResult is returned by wallet_getAddress.
type AddressResult struct {
	Address string `json:"address"`
	Path    string `json:"path"`
	Index   uint32 `json:"index"`
	Image   []byte `json:"image,omitempty"`
	Format  string `json:"format,omitempty"`
}

// BalanceResult is returned by wallet_getBalance.
type BalanceResult struct {
	Confirmed   uint64 `json:"confirmed"`
	Unconfirmed uint64 `json:"unconfirmed"`
	Total       uint64 `json:"total"`
	Display     string `json:"display"` // e.g. "0.0015 BTC"
}

// AddressListResult is returned by wallet_listAddresses.
type AddressListResult struct {
	Change    uint32               `json:"change"`
	Addresses []wallet.AddressInfo `json:"addresses"`
}

// SignatureResult is returned by wallet_signMessage.
type SignatureResult struct {
	Address   string `json:"address"`
	Signature string `json:"signature"` // base64
}

// VerifyResult is returned by wallet_verifyMessage.
type VerifyResult struct {
	Valid bool `json:"valid"`
}

// WalletListResult is returned by wallet_list.
type WalletListResult struct {
	Wallets []string `json:"wallets"`
	Active  string   `json:"active"`
}

// UTXOListResult is returned by ledger_listUTXOs.
type UTXOListResult struct {
	UTXOs []ledger.UTXO `json:"utxos"`
}

// PruneResult is returned by ledger_prune.
type PruneResult struct {
	Removed int `json:"removed"`
}

// CommitmentResult is returned by ledger_commitment.
type CommitmentResult struct {
	Commitment string `json:"commitment"`
	Count      int    `json:"count"`
}

// OKResult acknowledges a write.
type OKResult struct {
	OK bool `json:"ok"`
}
