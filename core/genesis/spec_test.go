package genesis

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"nftescrow/core/types"
)

type recordingTarget struct {
	collections []common.Address
	credits     map[common.Address]map[types.PaymentType]uint64
	treasury    common.Address
}

func (r *recordingTarget) CreateCollection(addr, _ common.Address, _ string) error {
	r.collections = append(r.collections, addr)
	return nil
}

func (r *recordingTarget) Credit(addr common.Address, pt types.PaymentType, amount *uint256.Int) error {
	if r.credits == nil {
		r.credits = make(map[common.Address]map[types.PaymentType]uint64)
	}
	if r.credits[addr] == nil {
		r.credits[addr] = make(map[types.PaymentType]uint64)
	}
	r.credits[addr][pt] += amount.Uint64()
	return nil
}

func (r *recordingTarget) SetTreasury(addr common.Address) error {
	r.treasury = addr
	return nil
}

func writeSpec(t *testing.T, spec any) string {
	t.Helper()
	raw, err := json.Marshal(spec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	path := filepath.Join(t.TempDir(), "genesis.json")
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestLoadSpecAndApply(t *testing.T) {
	buyer := common.HexToAddress("0x00000000000000000000000000000000000000b0")
	bechBuyer, err := EncodeBech32Account(buyer)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	spec := Spec{
		Treasury: "0x00000000000000000000000000000000000007ea",
		Collections: []CollectionSpec{{
			Name:    "Family",
			Address: "0x000000000000000000000000000000000c011ec7",
			Owner:   "0x00000000000000000000000000000000000c4ea7",
		}},
		Alloc: map[string]map[string]string{
			bechBuyer: {"native": "1000", "tokenA": "25"},
		},
	}
	loaded, err := LoadSpec(writeSpec(t, spec))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	target := &recordingTarget{}
	if err := Apply(loaded, target); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(target.collections) != 1 || target.collections[0] != common.HexToAddress("0xc011ec7") {
		t.Fatalf("unexpected collections %v", target.collections)
	}
	if target.credits[buyer][types.PaymentNative] != 1000 || target.credits[buyer][types.PaymentTokenA] != 25 {
		t.Fatalf("unexpected credits %v", target.credits[buyer])
	}
	if target.treasury != common.HexToAddress("0x7ea") {
		t.Fatalf("unexpected treasury %s", target.treasury.Hex())
	}
	if allocs := loaded.AllocationList(); len(allocs) != 2 || allocs[0].PaymentType != types.PaymentNative {
		t.Fatalf("allocations should be ordered by address then payment type: %+v", allocs)
	}
}

func TestLoadSpecRejectsUnknownFields(t *testing.T) {
	path := writeSpec(t, map[string]any{"validators": []string{}})
	if _, err := LoadSpec(path); err == nil {
		t.Fatalf("expected unknown field to be rejected")
	}
}

func TestValidateRejectsBadInput(t *testing.T) {
	cases := map[string]Spec{
		"bad treasury": {Treasury: "0x123"},
		"duplicate collection": {Collections: []CollectionSpec{
			{Address: "0x000000000000000000000000000000000c011ec7", Owner: "0x00000000000000000000000000000000000c4ea7"},
			{Address: "0x000000000000000000000000000000000c011ec7", Owner: "0x00000000000000000000000000000000000c4ea7"},
		}},
		"bad payment type": {Alloc: map[string]map[string]string{
			"0x00000000000000000000000000000000000000b0": {"gold": "1"},
		}},
		"bad amount": {Alloc: map[string]map[string]string{
			"0x00000000000000000000000000000000000000b0": {"native": "-5"},
		}},
	}
	for name, spec := range cases {
		spec := spec
		if err := spec.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestBech32RoundTrip(t *testing.T) {
	addr := common.HexToAddress("0x5e11e4")
	encoded, err := EncodeBech32Account(addr)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := ParseAddress(encoded)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if decoded != addr {
		t.Fatalf("expected %s, got %s", addr.Hex(), decoded.Hex())
	}
	if _, err := ParseAddress(""); err == nil {
		t.Fatalf("empty address must be rejected")
	}
}
