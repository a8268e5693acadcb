package genesis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"nftescrow/core/types"
)

// Spec describes the state a fresh marketplace ledger is seeded with.
type Spec struct {
	Treasury    string                       `json:"treasury,omitempty"`
	Collections []CollectionSpec             `json:"collections"`
	Alloc       map[string]map[string]string `json:"alloc"` // addr -> payment type -> amount

	treasury    common.Address
	collections []Collection
	allocations []Allocation
}

type CollectionSpec struct {
	Name    string `json:"name" toml:"Name" yaml:"name"`
	Address string `json:"address" toml:"Address" yaml:"address"`
	Owner   string `json:"owner" toml:"Owner" yaml:"owner"`
}

// Collection is a validated CollectionSpec.
type Collection struct {
	Name    string
	Address common.Address
	Owner   common.Address
}

// Allocation credits an address with an initial balance.
type Allocation struct {
	Address     common.Address
	PaymentType types.PaymentType
	Amount      *uint256.Int
}

// LoadSpec reads and validates a JSON genesis file.
func LoadSpec(path string) (*Spec, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("genesis spec path must be provided")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genesis spec %q: %w", path, err)
	}
	var spec Spec
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("decode genesis spec %q: %w", path, err)
	}
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("invalid genesis spec %q: %w", path, err)
	}
	return &spec, nil
}

// Validate parses every address and amount. It must succeed before the spec
// is applied.
func (s *Spec) Validate() error {
	s.treasury = common.Address{}
	if strings.TrimSpace(s.Treasury) != "" {
		addr, err := ParseAddress(s.Treasury)
		if err != nil {
			return fmt.Errorf("treasury: %w", err)
		}
		s.treasury = addr
	}

	seen := make(map[common.Address]struct{}, len(s.Collections))
	s.collections = s.collections[:0]
	for i, c := range s.Collections {
		addr, err := ParseAddress(c.Address)
		if err != nil {
			return fmt.Errorf("collections[%d].address: %w", i, err)
		}
		owner, err := ParseAddress(c.Owner)
		if err != nil {
			return fmt.Errorf("collections[%d].owner: %w", i, err)
		}
		if _, dup := seen[addr]; dup {
			return fmt.Errorf("collections[%d]: duplicate address %s", i, addr.Hex())
		}
		seen[addr] = struct{}{}
		s.collections = append(s.collections, Collection{Name: strings.TrimSpace(c.Name), Address: addr, Owner: owner})
	}

	s.allocations = s.allocations[:0]
	for rawAddr, balances := range s.Alloc {
		addr, err := ParseAddress(rawAddr)
		if err != nil {
			return fmt.Errorf("alloc %q: %w", rawAddr, err)
		}
		for rawType, rawAmount := range balances {
			pt, err := types.ParsePaymentType(rawType)
			if err != nil {
				return fmt.Errorf("alloc %q: %w", rawAddr, err)
			}
			amount, err := parseAmountString(rawAmount)
			if err != nil {
				return fmt.Errorf("alloc %q %s: %w", rawAddr, rawType, err)
			}
			s.allocations = append(s.allocations, Allocation{Address: addr, PaymentType: pt, Amount: amount})
		}
	}
	sort.Slice(s.allocations, func(i, j int) bool {
		a, b := s.allocations[i], s.allocations[j]
		if cmp := bytes.Compare(a.Address.Bytes(), b.Address.Bytes()); cmp != 0 {
			return cmp < 0
		}
		return a.PaymentType < b.PaymentType
	})
	return nil
}

func (s *Spec) TreasuryAddress() common.Address { return s.treasury }

func (s *Spec) CollectionList() []Collection {
	return append([]Collection(nil), s.collections...)
}

func (s *Spec) AllocationList() []Allocation {
	out := make([]Allocation, len(s.allocations))
	for i, a := range s.allocations {
		out[i] = Allocation{Address: a.Address, PaymentType: a.PaymentType, Amount: new(uint256.Int).Set(a.Amount)}
	}
	return out
}

func parseAmountString(raw string) (*uint256.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("amount must not be empty")
	}
	amount, err := uint256.FromDecimal(trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", raw, err)
	}
	return amount, nil
}
