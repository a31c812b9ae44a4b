package rpc

import (
	"fmt"

	"github.com/Klingon-tech/segwallet/internal/ledger"
	"github.com/Klingon-tech/segwallet/pkg/types"
)

func parseOutpoint(txid string, index uint32) (types.Outpoint, *Error) {
	hash, err := types.HexToHash(txid)
	if err != nil {
		return types.Outpoint{}, &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("invalid txid: %v", err)}
	}
	return types.Outpoint{TxID: hash, Index: index}, nil
}

// toUTXO validates a wire UTXO against the wallet network.
func (s *Server) toUTXO(p UTXOParam) (ledger.UTXO, *Error) {
	op, rpcErr := parseOutpoint(p.TxID, p.Index)
	if rpcErr != nil {
		return ledger.UTXO{}, rpcErr
	}
	addr, rpcErr := s.parseAddress(p.Address)
	if rpcErr != nil {
		return ledger.UTXO{}, rpcErr
	}
	return ledger.UTXO{
		Outpoint: op,
		Address:  addr,
		Value:    p.Value,
		Height:   p.Height,
	}, nil
}

func (s *Server) handleLedgerRecordUTXO(req *Request) (interface{}, *Error) {
	var params UTXOParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	u, rpcErr := s.toUTXO(params)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.wallet.RecordUTXO(u); err != nil {
		return nil, walletError(err)
	}
	s.persistCursor()
	return &OKResult{OK: true}, nil
}

func (s *Server) handleLedgerMarkSpent(req *Request) (interface{}, *Error) {
	var params OutpointParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	op, rpcErr := parseOutpoint(params.TxID, params.Index)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.wallet.MarkSpent(op); err != nil {
		return nil, walletError(err)
	}
	return &OKResult{OK: true}, nil
}

func (s *Server) handleLedgerGetUTXO(req *Request) (interface{}, *Error) {
	var params OutpointParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	op, rpcErr := parseOutpoint(params.TxID, params.Index)
	if rpcErr != nil {
		return nil, rpcErr
	}
	u, err := s.wallet.Ledger().Get(op)
	if err != nil {
		return nil, walletError(err)
	}
	return u, nil
}

func (s *Server) handleLedgerListUTXOs(req *Request) (interface{}, *Error) {
	var params ListUTXOsParam
	if err := parseOptionalParams(req, &params); err != nil {
		return nil, err
	}
	filter := ledger.Filter{IncludeSpent: params.IncludeSpent}
	if params.Address != "" {
		addr, rpcErr := s.parseAddress(params.Address)
		if rpcErr != nil {
			return nil, rpcErr
		}
		filter.Address = addr
	}

	utxos, err := s.wallet.Ledger().List(filter)
	if err != nil {
		return nil, walletError(err)
	}
	if utxos == nil {
		utxos = []ledger.UTXO{}
	}
	return &UTXOListResult{UTXOs: utxos}, nil
}

func (s *Server) handleLedgerReconcile(req *Request) (interface{}, *Error) {
	var params ReconcileParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	unspent := make([]ledger.UTXO, 0, len(params.UTXOs))
	for _, p := range params.UTXOs {
		u, rpcErr := s.toUTXO(p)
		if rpcErr != nil {
			return nil, rpcErr
		}
		unspent = append(unspent, u)
	}

	res, err := s.wallet.Reconcile(unspent)
	if err != nil {
		return nil, walletError(err)
	}
	s.persistCursor()
	return res, nil
}

func (s *Server) handleLedgerPrune(_ *Request) (interface{}, *Error) {
	n, err := s.wallet.Ledger().Prune()
	if err != nil {
		return nil, walletError(err)
	}
	return &PruneResult{Removed: n}, nil
}

func (s *Server) handleLedgerCommitment(_ *Request) (interface{}, *Error) {
	root, err := s.wallet.Ledger().Commitment()
	if err != nil {
		return nil, walletError(err)
	}
	unspent, err := s.wallet.Ledger().List(ledger.Filter{})
	if err != nil {
		return nil, walletError(err)
	}
	return &CommitmentResult{Commitment: root.String(), Count: len(unspent)}, nil
}
