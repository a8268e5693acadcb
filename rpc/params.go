package rpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"

	"nftescrow/core/genesis"
	"nftescrow/core/types"
	"nftescrow/native/asset"
	"nftescrow/native/market"
)

// decodeParams unmarshals the single parameter object of req into dst.
func decodeParams(req *RPCRequest, dst interface{}) error {
	if len(req.Params) != 1 {
		return fmt.Errorf("exactly one parameter object expected")
	}
	dec := json.NewDecoder(bytes.NewReader(req.Params[0]))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func parseAddressParam(name, raw string) (common.Address, error) {
	addr, err := genesis.ParseAddress(raw)
	if err != nil {
		return common.Address{}, fmt.Errorf("%s: %w", name, err)
	}
	return addr, nil
}

// parseTokenID accepts a 32-byte hex identifier or a decimal mint index.
func parseTokenID(raw string) (common.Hash, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return common.Hash{}, fmt.Errorf("tokenId required")
	}
	if strings.HasPrefix(strings.ToLower(trimmed), "0x") {
		decoded, err := hexBytes(trimmed)
		if err != nil || len(decoded) > common.HashLength {
			return common.Hash{}, fmt.Errorf("tokenId must be a 32-byte hex value")
		}
		return common.BytesToHash(decoded), nil
	}
	index, err := strconv.ParseUint(trimmed, 10, 64)
	if err != nil {
		return common.Hash{}, fmt.Errorf("tokenId must be hex or a decimal index")
	}
	return asset.TokenIDFromIndex(index), nil
}

func hexBytes(raw string) ([]byte, error) {
	body := strings.TrimPrefix(strings.TrimPrefix(raw, "0x"), "0X")
	if len(body)%2 == 1 {
		body = "0" + body
	}
	return hexutil.Decode("0x" + body)
}

// parseAmount accepts decimal or 0x-prefixed hex amounts.
func parseAmount(name, raw string) (*uint256.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("%s required", name)
	}
	if strings.HasPrefix(strings.ToLower(trimmed), "0x") {
		v, err := uint256.FromHex(trimmed)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		return v, nil
	}
	v, err := uint256.FromDecimal(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return v, nil
}

func parsePaymentTypes(raw []string) (market.PaymentTypes, error) {
	var accepted market.PaymentTypes
	for _, entry := range raw {
		pt, err := types.ParsePaymentType(entry)
		if err != nil {
			return market.PaymentTypes{}, err
		}
		accepted[pt] = true
	}
	return accepted, nil
}

// escrowID accepts a JSON number or a decimal string.
type escrowID uint64

func (e *escrowID) UnmarshalJSON(data []byte) error {
	trimmed := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if trimmed == "" || trimmed == "null" {
		return fmt.Errorf("id required")
	}
	v, err := strconv.ParseUint(trimmed, 10, 64)
	if err != nil {
		return fmt.Errorf("id must be an unsigned integer")
	}
	*e = escrowID(v)
	return nil
}
