package rpc

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"nftescrow/core/types"
	"nftescrow/indexer"
	"nftescrow/native/market"
)

type listingJSON struct {
	Collection   string   `json:"collection"`
	TokenID      string   `json:"tokenId"`
	Seller       string   `json:"seller"`
	Price        string   `json:"price"`
	PaymentTypes []string `json:"paymentTypes"`
	Active       bool     `json:"active"`
	OnSale       bool     `json:"onSale"`
}

type escrowJSON struct {
	ID              uint64 `json:"id"`
	Collection      string `json:"collection"`
	TokenID         string `json:"tokenId"`
	Seller          string `json:"seller"`
	Buyer           string `json:"buyer"`
	Amount          string `json:"amount"`
	PaymentType     string `json:"paymentType"`
	Status          string `json:"status"`
	SellerConfirmed bool   `json:"sellerConfirmed"`
	BuyerConfirmed  bool   `json:"buyerConfirmed"`
	DisputeRaised   bool   `json:"disputeRaised"`
}

type partiesJSON struct {
	Buyer  string `json:"buyer"`
	Seller string `json:"seller"`
}

type heldBalanceJSON struct {
	Total      string            `json:"total"`
	ByCurrency map[string]string `json:"byCurrency"`
	Solvent    bool              `json:"solvent"`
}

type eventJSON struct {
	Seq        int64             `json:"seq"`
	Type       string            `json:"type"`
	EscrowID   *uint64           `json:"escrowId,omitempty"`
	Attributes map[string]string `json:"attributes"`
	CreatedAt  int64             `json:"createdAt"`
}

func formatAddress(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}

func formatListingJSON(l *market.Listing, onSale bool) listingJSON {
	accepted := make([]string, 0, types.NumPaymentTypes)
	for pt := types.PaymentType(0); pt < types.NumPaymentTypes; pt++ {
		if l.PaymentTypes.Accepts(pt) {
			accepted = append(accepted, pt.String())
		}
	}
	price := "0"
	if l.Price != nil {
		price = l.Price.Dec()
	}
	return listingJSON{
		Collection:   formatAddress(l.Collection),
		TokenID:      l.TokenID.Hex(),
		Seller:       formatAddress(l.Seller),
		Price:        price,
		PaymentTypes: accepted,
		Active:       l.Active,
		OnSale:       onSale,
	}
}

func formatEscrowJSON(e *market.EscrowItem) escrowJSON {
	amount := "0"
	if e.Amount != nil {
		amount = e.Amount.Dec()
	}
	return escrowJSON{
		ID:              e.ID,
		Collection:      formatAddress(e.Collection),
		TokenID:         e.TokenID.Hex(),
		Seller:          formatAddress(e.Seller),
		Buyer:           formatAddress(e.Buyer),
		Amount:          amount,
		PaymentType:     e.PaymentType.String(),
		Status:          e.Status.String(),
		SellerConfirmed: e.SellerConfirmed,
		BuyerConfirmed:  e.BuyerConfirmed,
		DisputeRaised:   e.DisputeRaised,
	}
}

func formatEventJSON(rec indexer.EventRecord) eventJSON {
	return eventJSON{
		Seq:        rec.Seq,
		Type:       rec.Type,
		EscrowID:   rec.EscrowID,
		Attributes: rec.Attributes,
		CreatedAt:  rec.CreatedAt.Unix(),
	}
}
