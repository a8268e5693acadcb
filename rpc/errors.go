package rpc

import (
	"errors"
	"net/http"

	nodeerrors "nftescrow/core/errors"
	"nftescrow/native/asset"
	"nftescrow/native/bank"
	"nftescrow/native/market"
)

const (
	codeInvalidParams   = -32021
	codeNotFound        = -32022
	codeForbidden       = -32023
	codeConflict        = -32024
	codeInternal        = -32025
	codePaymentRequired = -32026
)

func writeInvalidParams(w http.ResponseWriter, id interface{}, detail string) {
	writeError(w, http.StatusBadRequest, id, codeInvalidParams, "invalid_params", detail)
}

func writeRPCError(w http.ResponseWriter, status int, id interface{}, rpcErr *RPCError) {
	writeError(w, status, id, rpcErr.Code, rpcErr.Message, rpcErr.Data)
}

// writeMarketError maps engine, asset and bank failures onto HTTP statuses and
// JSON-RPC codes.
func writeMarketError(w http.ResponseWriter, id interface{}, err error) {
	if err == nil {
		return
	}
	status, code, message := classify(err)
	writeError(w, status, id, code, message, err.Error())
}

func classify(err error) (int, int, string) {
	switch market.KindOf(err) {
	case market.ErrNotFound:
		return http.StatusNotFound, codeNotFound, "not_found"
	case market.ErrAuthorization:
		return http.StatusForbidden, codeForbidden, "forbidden"
	case market.ErrState:
		return http.StatusConflict, codeConflict, "conflict"
	case market.ErrPayment:
		return http.StatusPaymentRequired, codePaymentRequired, "payment_required"
	}
	switch {
	case errors.Is(err, asset.ErrTokenNotFound), errors.Is(err, asset.ErrCollectionNotFound):
		return http.StatusNotFound, codeNotFound, "not_found"
	case errors.Is(err, asset.ErrNotCollectionOwner), errors.Is(err, asset.ErrNotTokenOwner), errors.Is(err, asset.ErrNotOperator):
		return http.StatusForbidden, codeForbidden, "forbidden"
	case errors.Is(err, asset.ErrCollectionExists), errors.Is(err, nodeerrors.ErrGenesisApplied):
		return http.StatusConflict, codeConflict, "conflict"
	case errors.Is(err, bank.ErrInsufficientBalance):
		return http.StatusPaymentRequired, codePaymentRequired, "payment_required"
	case errors.Is(err, asset.ErrZeroAddress), errors.Is(err, bank.ErrUnsupportedPayment):
		return http.StatusBadRequest, codeInvalidParams, "invalid_params"
	case errors.Is(err, nodeerrors.ErrNodeClosed):
		return http.StatusServiceUnavailable, codeInternal, "unavailable"
	}
	return http.StatusInternalServerError, codeInternal, "internal_error"
}
