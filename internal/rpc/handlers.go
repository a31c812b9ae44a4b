package rpc

import (
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/Klingon-tech/segwallet/internal/ledger"
	"github.com/Klingon-tech/segwallet/internal/wallet"
	"github.com/Klingon-tech/segwallet/pkg/crypto"
	"github.com/Klingon-tech/segwallet/pkg/types"
	"github.com/btcsuite/btcd/btcutil"
)

// walletError maps an engine error to a JSON-RPC error.
func walletError(err error) *Error {
	switch {
	case errors.Is(err, wallet.ErrUnknownAddress),
		errors.Is(err, wallet.ErrInvalidPath),
		errors.Is(err, ledger.ErrConflictingUTXO),
		errors.Is(err, ledger.ErrInvalidUTXO):
		return &Error{Code: CodeInvalidParams, Message: err.Error()}
	case errors.Is(err, ledger.ErrUnknownUTXO), errors.Is(err, wallet.ErrWalletNotFound):
		return &Error{Code: CodeNotFound, Message: err.Error()}
	case errors.Is(err, wallet.ErrNoRenderer), errors.Is(err, wallet.ErrPrivateKeyRequired):
		return &Error{Code: CodeWalletError, Message: err.Error()}
	default:
		return &Error{Code: CodeInternalError, Message: err.Error()}
	}
}

// parseAddress decodes an address and checks it against the wallet network.
func (s *Server) parseAddress(str string) (types.Address, *Error) {
	addr, err := types.ParseAddress(str, s.wallet.Network())
	if err != nil {
		return types.Address{}, &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("invalid address: %v", err)}
	}
	return addr, nil
}

// persistCursor saves the rotation cursor so a restart does not hand out
// an address twice.
func (s *Server) persistCursor() {
	if s.keystore == nil || s.walletName == "" {
		return
	}
	if err := s.keystore.SetNextIndex(s.walletName, s.wallet.NextIndex()); err != nil {
		s.logger.Warn().Err(err).Str("wallet", s.walletName).Msg("Failed to persist address cursor")
	}
}

func (s *Server) handleWalletGetInfo(_ *Request) (interface{}, *Error) {
	return s.wallet.Info(), nil
}

func (s *Server) handleWalletGetXPub(req *Request) (interface{}, *Error) {
	var params ImageParam
	if err := parseOptionalParams(req, &params); err != nil {
		return nil, err
	}

	info := s.wallet.Info()
	result := &XPubResult{XPub: info.XPub, Path: info.AccountPath}
	if params.Image {
		img, err := s.wallet.ExtendedPublicKey(true)
		if err != nil {
			return nil, walletError(err)
		}
		result.Image = img
		result.Format = s.imageFormat
	}
	return result, nil
}

func (s *Server) handleWalletGetAddress(req *Request) (interface{}, *Error) {
	var params ImageParam
	if err := parseOptionalParams(req, &params); err != nil {
		return nil, err
	}

	addr, index, err := s.wallet.NextAddress()
	if err != nil {
		return nil, walletError(err)
	}
	s.persistCursor()

	path, err := s.wallet.AddressPath(addr)
	if err != nil {
		return nil, walletError(err)
	}
	result := &AddressResult{
		Address: addr.String(),
		Path:    path.String(),
		Index:   index,
	}
	if params.Image {
		img, err := s.wallet.RenderImage(result.Address)
		if err != nil {
			return nil, walletError(err)
		}
		result.Image = img
		result.Format = s.imageFormat
	}
	return result, nil
}

func (s *Server) handleWalletGetBalance(_ *Request) (interface{}, *Error) {
	bal, err := s.wallet.BalanceDetail()
	if err != nil {
		return nil, walletError(err)
	}
	return &BalanceResult{
		Confirmed:   bal.Confirmed,
		Unconfirmed: bal.Unconfirmed,
		Total:       bal.Total(),
		Display:     btcutil.Amount(bal.Total()).String(),
	}, nil
}

func (s *Server) handleWalletListAddresses(req *Request) (interface{}, *Error) {
	var params ChainParam
	if err := parseOptionalParams(req, &params); err != nil {
		return nil, err
	}
	if params.Change > wallet.ChangeInternal {
		return nil, &Error{Code: CodeInvalidParams, Message: "change must be 0 (receive) or 1 (change)"}
	}
	return &AddressListResult{
		Change:    params.Change,
		Addresses: s.wallet.AddressInfos(params.Change),
	}, nil
}

func (s *Server) handleWalletSignMessage(req *Request) (interface{}, *Error) {
	var params SignMessageParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	addr, rpcErr := s.parseAddress(params.Address)
	if rpcErr != nil {
		return nil, rpcErr
	}

	sig, err := s.wallet.SignMessage(addr, params.Message)
	if err != nil {
		return nil, walletError(err)
	}
	return &SignatureResult{
		Address:   addr.String(),
		Signature: base64.StdEncoding.EncodeToString(sig),
	}, nil
}

func (s *Server) handleWalletVerifyMessage(req *Request) (interface{}, *Error) {
	var params VerifyMessageParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	addr, rpcErr := s.parseAddress(params.Address)
	if rpcErr != nil {
		return nil, rpcErr
	}
	sig, err := base64.StdEncoding.DecodeString(params.Signature)
	if err != nil {
		return nil, &Error{Code: CodeInvalidParams, Message: "signature must be base64"}
	}

	err = crypto.VerifyMessage(addr, sig, params.Message, s.wallet.Network())
	return &VerifyResult{Valid: err == nil}, nil
}

func (s *Server) handleWalletList(_ *Request) (interface{}, *Error) {
	if s.keystore == nil {
		return nil, &Error{Code: CodeWalletError, Message: "keystore not available"}
	}
	names, err := s.keystore.List()
	if err != nil {
		return nil, walletError(err)
	}
	if names == nil {
		names = []string{}
	}
	return &WalletListResult{Wallets: names, Active: s.walletName}, nil
}
