package genesis

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/bech32"
	"github.com/ethereum/go-ethereum/common"
)

// AddressHRP is the human readable prefix of bech32 encoded market addresses.
const AddressHRP = "mkt"

// ParseAddress accepts either a 0x-prefixed hex address or a bech32 address
// with the market prefix.
func ParseAddress(raw string) (common.Address, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return common.Address{}, fmt.Errorf("address must not be empty")
	}
	if strings.HasPrefix(strings.ToLower(trimmed), "0x") {
		if !common.IsHexAddress(trimmed) {
			return common.Address{}, fmt.Errorf("invalid hex address %q", trimmed)
		}
		return common.HexToAddress(trimmed), nil
	}
	return ParseBech32Account(trimmed)
}

// ParseBech32Account decodes a bech32 market address.
func ParseBech32Account(addr string) (common.Address, error) {
	var out common.Address
	hrp, data, err := bech32.Decode(addr)
	if err != nil {
		return out, fmt.Errorf("decode bech32 account: %w", err)
	}
	if hrp != AddressHRP {
		return out, fmt.Errorf("decode bech32 account: unsupported hrp %q", hrp)
	}
	decoded, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return out, fmt.Errorf("decode bech32 account: %w", err)
	}
	if len(decoded) != common.AddressLength {
		return out, fmt.Errorf("decode bech32 account: invalid address length %d", len(decoded))
	}
	copy(out[:], decoded)
	return out, nil
}

// EncodeBech32Account renders addr with the market prefix.
func EncodeBech32Account(addr common.Address) (string, error) {
	data, err := bech32.ConvertBits(addr.Bytes(), 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("encode bech32 account: %w", err)
	}
	return bech32.Encode(AddressHRP, data)
}
