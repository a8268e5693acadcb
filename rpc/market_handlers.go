package rpc

import (
	"context"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"nftescrow/core/types"
	"nftescrow/indexer"
)

type listParams struct {
	Collection   string   `json:"collection"`
	TokenID      string   `json:"tokenId"`
	Price        string   `json:"price"`
	PaymentTypes []string `json:"paymentTypes"`
	Caller       string   `json:"caller"`
}

type repriceParams struct {
	Collection string `json:"collection"`
	TokenID    string `json:"tokenId"`
	Price      string `json:"price"`
	Caller     string `json:"caller"`
}

type assetRefParams struct {
	Collection string `json:"collection"`
	TokenID    string `json:"tokenId"`
	Caller     string `json:"caller,omitempty"`
}

type purchaseParams struct {
	Collection  string `json:"collection"`
	TokenID     string `json:"tokenId"`
	PaymentType string `json:"paymentType"`
	Amount      string `json:"amount"`
	Buyer       string `json:"buyer"`
}

type escrowActionParams struct {
	ID     escrowID `json:"id"`
	Caller string   `json:"caller"`
}

type escrowQueryParams struct {
	ID escrowID `json:"id"`
}

type treasuryParams struct {
	Treasury string `json:"treasury"`
	Caller   string `json:"caller"`
}

type listEventsParams struct {
	Type       string    `json:"type,omitempty"`
	EscrowID   *escrowID `json:"escrowId,omitempty"`
	Collection string    `json:"collection,omitempty"`
	AfterSeq   int64     `json:"afterSeq,omitempty"`
	Limit      int       `json:"limit,omitempty"`
}

type purchaseResult struct {
	EscrowID uint64 `json:"escrowId"`
}

type okResult struct {
	OK bool `json:"ok"`
}

func parseAssetRef(collectionRaw, tokenRaw string) (common.Address, common.Hash, error) {
	collection, err := parseAddressParam("collection", collectionRaw)
	if err != nil {
		return common.Address{}, common.Hash{}, err
	}
	id, err := parseTokenID(tokenRaw)
	if err != nil {
		return common.Address{}, common.Hash{}, err
	}
	return collection, id, nil
}

func (s *Server) handleMarketList(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params listParams
	if err := decodeParams(req, &params); err != nil {
		writeInvalidParams(w, req.ID, err.Error())
		return
	}
	collection, id, err := parseAssetRef(params.Collection, params.TokenID)
	if err != nil {
		writeInvalidParams(w, req.ID, err.Error())
		return
	}
	price, err := parseAmount("price", params.Price)
	if err != nil {
		writeInvalidParams(w, req.ID, err.Error())
		return
	}
	accepted, err := parsePaymentTypes(params.PaymentTypes)
	if err != nil {
		writeInvalidParams(w, req.ID, err.Error())
		return
	}
	caller, rpcErr := authorizeCaller(r, params.Caller)
	if rpcErr != nil {
		writeRPCError(w, statusFor(rpcErr), req.ID, rpcErr)
		return
	}
	if err := s.node.MarketList(r.Context(), collection, id, price, accepted, caller); err != nil {
		writeMarketError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, okResult{OK: true})
}

func (s *Server) handleMarketReprice(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params repriceParams
	if err := decodeParams(req, &params); err != nil {
		writeInvalidParams(w, req.ID, err.Error())
		return
	}
	collection, id, err := parseAssetRef(params.Collection, params.TokenID)
	if err != nil {
		writeInvalidParams(w, req.ID, err.Error())
		return
	}
	price, err := parseAmount("price", params.Price)
	if err != nil {
		writeInvalidParams(w, req.ID, err.Error())
		return
	}
	caller, rpcErr := authorizeCaller(r, params.Caller)
	if rpcErr != nil {
		writeRPCError(w, statusFor(rpcErr), req.ID, rpcErr)
		return
	}
	if err := s.node.MarketReprice(r.Context(), collection, id, price, caller); err != nil {
		writeMarketError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, okResult{OK: true})
}

func (s *Server) handleMarketDelist(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
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
	caller, rpcErr := authorizeCaller(r, params.Caller)
	if rpcErr != nil {
		writeRPCError(w, statusFor(rpcErr), req.ID, rpcErr)
		return
	}
	if err := s.node.MarketDelist(r.Context(), collection, id, caller); err != nil {
		writeMarketError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, okResult{OK: true})
}

func (s *Server) handleMarketPurchase(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params purchaseParams
	if err := decodeParams(req, &params); err != nil {
		writeInvalidParams(w, req.ID, err.Error())
		return
	}
	collection, id, err := parseAssetRef(params.Collection, params.TokenID)
	if err != nil {
		writeInvalidParams(w, req.ID, err.Error())
		return
	}
	pt, err := types.ParsePaymentType(params.PaymentType)
	if err != nil {
		writeInvalidParams(w, req.ID, err.Error())
		return
	}
	amount, err := parseAmount("amount", params.Amount)
	if err != nil {
		writeInvalidParams(w, req.ID, err.Error())
		return
	}
	buyer, rpcErr := authorizeCaller(r, params.Buyer)
	if rpcErr != nil {
		writeRPCError(w, statusFor(rpcErr), req.ID, rpcErr)
		return
	}
	escrowID, err := s.node.MarketPurchase(r.Context(), collection, id, pt, amount, buyer)
	if err != nil {
		writeMarketError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, purchaseResult{EscrowID: escrowID})
}

// escrowAction builds the handler shared by every escrow settlement method.
func (s *Server) escrowAction(name string, action func(context.Context, uint64, common.Address) error) handlerFunc {
	return func(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
		var params escrowActionParams
		if err := decodeParams(req, &params); err != nil {
			writeInvalidParams(w, req.ID, err.Error())
			return
		}
		caller, rpcErr := authorizeCaller(r, params.Caller)
		if rpcErr != nil {
			writeRPCError(w, statusFor(rpcErr), req.ID, rpcErr)
			return
		}
		if err := action(r.Context(), uint64(params.ID), caller); err != nil {
			s.logger.Debug("escrow action rejected", "method", name, "id", uint64(params.ID), "error", err.Error())
			writeMarketError(w, req.ID, err)
			return
		}
		writeResult(w, req.ID, okResult{OK: true})
	}
}

func (s *Server) handleMarketSetTreasury(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params treasuryParams
	if err := decodeParams(req, &params); err != nil {
		writeInvalidParams(w, req.ID, err.Error())
		return
	}
	treasury, err := parseAddressParam("treasury", params.Treasury)
	if err != nil {
		writeInvalidParams(w, req.ID, err.Error())
		return
	}
	caller, rpcErr := authorizeCaller(r, params.Caller)
	if rpcErr != nil {
		writeRPCError(w, statusFor(rpcErr), req.ID, rpcErr)
		return
	}
	if err := s.node.MarketSetTreasury(r.Context(), treasury, caller); err != nil {
		writeMarketError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, okResult{OK: true})
}

func (s *Server) handleMarketIsOnSale(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
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
	onSale, err := s.node.MarketIsOnSale(collection, id)
	if err != nil {
		writeMarketError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, onSale)
}

func (s *Server) handleMarketGetListing(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
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
	listing, err := s.node.MarketGetListing(collection, id)
	if err != nil {
		writeMarketError(w, req.ID, err)
		return
	}
	onSale, err := s.node.MarketIsOnSale(collection, id)
	if err != nil {
		writeMarketError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, formatListingJSON(listing, onSale))
}

func (s *Server) handleMarketTotalEscrowItems(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	total, err := s.node.MarketTotalEscrowItems()
	if err != nil {
		writeMarketError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, total)
}

func (s *Server) handleMarketEscrowIDFor(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
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
	escrowID, err := s.node.MarketEscrowIDFor(collection, id)
	if err != nil {
		writeMarketError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, purchaseResult{EscrowID: escrowID})
}

func (s *Server) handleMarketBuyerSellerOf(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params escrowQueryParams
	if err := decodeParams(req, &params); err != nil {
		writeInvalidParams(w, req.ID, err.Error())
		return
	}
	buyer, seller, err := s.node.MarketBuyerSellerOf(uint64(params.ID))
	if err != nil {
		writeMarketError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, partiesJSON{Buyer: formatAddress(buyer), Seller: formatAddress(seller)})
}

func (s *Server) handleMarketStatusOf(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params escrowQueryParams
	if err := decodeParams(req, &params); err != nil {
		writeInvalidParams(w, req.ID, err.Error())
		return
	}
	status, err := s.node.MarketStatusOf(uint64(params.ID))
	if err != nil {
		writeMarketError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, status.String())
}

func (s *Server) handleMarketGetEscrow(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params escrowQueryParams
	if err := decodeParams(req, &params); err != nil {
		writeInvalidParams(w, req.ID, err.Error())
		return
	}
	item, err := s.node.MarketEscrowItem(uint64(params.ID))
	if err != nil {
		writeMarketError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, formatEscrowJSON(item))
}

func (s *Server) handleMarketHeldBalance(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	total, err := s.node.MarketHeldBalance()
	if err != nil {
		writeMarketError(w, req.ID, err)
		return
	}
	result := heldBalanceJSON{Total: total.Dec(), ByCurrency: make(map[string]string, types.NumPaymentTypes)}
	for pt := types.PaymentType(0); pt < types.NumPaymentTypes; pt++ {
		held, err := s.node.MarketHeldBalanceOf(pt)
		if err != nil {
			writeMarketError(w, req.ID, err)
			return
		}
		result.ByCurrency[pt.String()] = held.Dec()
	}
	solvent, err := s.node.MarketSolvent()
	if err != nil {
		writeMarketError(w, req.ID, err)
		return
	}
	result.Solvent = solvent
	writeResult(w, req.ID, result)
}

func (s *Server) handleMarketTreasury(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	treasury, err := s.node.MarketTreasury()
	if err != nil {
		writeMarketError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, formatAddress(treasury))
}

func (s *Server) handleMarketListEvents(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, req.ID, codeInternal, "unavailable", "event history is not enabled")
		return
	}
	var params listEventsParams
	if len(req.Params) > 0 {
		if err := decodeParams(req, &params); err != nil {
			writeInvalidParams(w, req.ID, err.Error())
			return
		}
	}
	filter := indexer.Filter{Type: params.Type, AfterSeq: params.AfterSeq, Limit: params.Limit}
	if params.EscrowID != nil {
		id := uint64(*params.EscrowID)
		filter.EscrowID = &id
	}
	if params.Collection != "" {
		collection, err := parseAddressParam("collection", params.Collection)
		if err != nil {
			writeInvalidParams(w, req.ID, err.Error())
			return
		}
		filter.Collection = collection.Hex()
	}
	records, err := s.history.List(r.Context(), filter)
	if err != nil {
		writeMarketError(w, req.ID, err)
		return
	}
	out := make([]eventJSON, 0, len(records))
	for _, rec := range records {
		out = append(out, formatEventJSON(rec))
	}
	writeResult(w, req.ID, out)
}

func statusFor(rpcErr *RPCError) int {
	switch rpcErr.Code {
	case codeForbidden:
		return http.StatusForbidden
	case codeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusBadRequest
	}
}
