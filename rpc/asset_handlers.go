package rpc

import (
	"net/http"

	"nftescrow/core/types"
)

type mintParams struct {
	Collection string `json:"collection"`
	To         string `json:"to"`
	Metadata   string `json:"metadata,omitempty"`
	Caller     string `json:"caller"`
}

type operatorParams struct {
	Collection string `json:"collection"`
	TokenID    string `json:"tokenId"`
	Operator   string `json:"operator"`
	Caller     string `json:"caller"`
}

type balanceParams struct {
	Address     string `json:"address"`
	PaymentType string `json:"paymentType"`
}

type mintResult struct {
	TokenID string `json:"tokenId"`
}

type balanceResult struct {
	Address     string `json:"address"`
	PaymentType string `json:"paymentType"`
	Balance     string `json:"balance"`
}

func (s *Server) handleAssetMint(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params mintParams
	if err := decodeParams(req, &params); err != nil {
		writeInvalidParams(w, req.ID, err.Error())
		return
	}
	collection, err := parseAddressParam("collection", params.Collection)
	if err != nil {
		writeInvalidParams(w, req.ID, err.Error())
		return
	}
	to, err := parseAddressParam("to", params.To)
	if err != nil {
		writeInvalidParams(w, req.ID, err.Error())
		return
	}
	caller, rpcErr := authorizeCaller(r, params.Caller)
	if rpcErr != nil {
		writeRPCError(w, statusFor(rpcErr), req.ID, rpcErr)
		return
	}
	id, err := s.node.AssetMint(r.Context(), collection, caller, to, params.Metadata)
	if err != nil {
		writeMarketError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, mintResult{TokenID: id.Hex()})
}

func (s *Server) handleAssetAuthorizeOperator(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.handleOperatorChange(w, r, req, true)
}

func (s *Server) handleAssetRevokeOperator(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.handleOperatorChange(w, r, req, false)
}

func (s *Server) handleOperatorChange(w http.ResponseWriter, r *http.Request, req *RPCRequest, grant bool) {
	var params operatorParams
	if err := decodeParams(req, &params); err != nil {
		writeInvalidParams(w, req.ID, err.Error())
		return
	}
	collection, id, err := parseAssetRef(params.Collection, params.TokenID)
	if err != nil {
		writeInvalidParams(w, req.ID, err.Error())
		return
	}
	operator, err := parseAddressParam("operator", params.Operator)
	if err != nil {
		writeInvalidParams(w, req.ID, err.Error())
		return
	}
	caller, rpcErr := authorizeCaller(r, params.Caller)
	if rpcErr != nil {
		writeRPCError(w, statusFor(rpcErr), req.ID, rpcErr)
		return
	}
	if grant {
		err = s.node.AssetAuthorizeOperator(r.Context(), collection, caller, operator, id)
	} else {
		err = s.node.AssetRevokeOperator(r.Context(), collection, caller, operator, id)
	}
	if err != nil {
		writeMarketError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, okResult{OK: true})
}

func (s *Server) handleAssetOwnerOf(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params assetRefParams
	if err := decodeParams(req, &params); err != nil {
		writeInvalidParams(w, req.ID, err.Error())
		return
	}
	collection, id, err := parseAssetRef(params.Collection, params.TokenID)
	if err != nil {
		writeInvalidParams(w, req.ID, err.Error())
		return
	}
	owner, err := s.node.AssetOwnerOf(collection, id)
	if err != nil {
		writeMarketError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, formatAddress(owner))
}

func (s *Server) handleBankBalance(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params balanceParams
	if err := decodeParams(req, &params); err != nil {
		writeInvalidParams(w, req.ID, err.Error())
		return
	}
	addr, err := parseAddressParam("address", params.Address)
	if err != nil {
		writeInvalidParams(w, req.ID, err.Error())
		return
	}
	pt, err := types.ParsePaymentType(params.PaymentType)
	if err != nil {
		writeInvalidParams(w, req.ID, err.Error())
		return
	}
	balance, err := s.node.BankBalance(addr, pt)
	if err != nil {
		writeMarketError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, balanceResult{Address: formatAddress(addr), PaymentType: pt.String(), Balance: balance.Dec()})
}
