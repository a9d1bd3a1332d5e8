package blockdag

import (
	"reflect"
	"testing"

	"github.com/davecgh/go-spew/spew"

	"github.com/xdagger/xdagd/util/daghash"
	"github.com/xdagger/xdagd/util/uint256"
)

// TestBlockInfoSerialization round-trips BlockInfo through its store
// form, with and without the optional reference fields.
func TestBlockInfoSerialization(t *testing.T) {
	ref, _ := daghash.NewHashFromStr("0102030405")
	maxDiffLink, _ := daghash.NewHashFromStr("a1b2c3")

	tests := []struct {
		name string
		info *BlockInfo
	}{
		{
			name: "minimal",
			info: &BlockInfo{
				Type:       1,
				Flags:      FlagApplied | FlagSaved,
				Timestamp:  1577836801000,
				Difficulty: uint256.FromUint64(7),
			},
		},
		{
			name: "full",
			info: &BlockInfo{
				Type:        0x9821,
				Flags:       FlagApplied | FlagMain | FlagMainChain | FlagSaved | FlagRemark,
				Height:      42,
				Timestamp:   1577836801000,
				Difficulty:  uint256.FromUint64(1 << 40),
				Ref:         ref,
				MaxDiffLink: maxDiffLink,
				Fee:         17,
				Amount:      1024 << 32,
				Hash:        daghash.Hash{1, 2, 3},
				HashLow:     daghash.Hash{0, 0, 0, 0, 0, 0, 0, 0, 9},
				Remark:      [BlockFieldSize]byte{'x', 'd', 'a', 'g'},
			},
		},
	}

	for _, test := range tests {
		serialized, err := SerializeBlockInfo(test.info)
		if err != nil {
			t.Errorf("%s: SerializeBlockInfo unexpectedly failed: %s", test.name, err)
			continue
		}
		deserialized, err := DeserializeBlockInfo(serialized)
		if err != nil {
			t.Errorf("%s: DeserializeBlockInfo unexpectedly failed: %s", test.name, err)
			continue
		}
		if !reflect.DeepEqual(deserialized, test.info) {
			t.Errorf("%s: BlockInfo changed across serialization - got %s, want %s",
				test.name, spew.Sdump(deserialized), spew.Sdump(test.info))
		}
	}
}

// TestFlagsHas spot-checks the bitset helper.
func TestFlagsHas(t *testing.T) {
	flags := FlagApplied | FlagMain | FlagMainChain
	if !flags.Has(FlagMain | FlagMainChain) {
		t.Fatal("Has(MAIN|MAIN_CHAIN) is false on a main block")
	}
	if flags.Has(FlagUnwind) {
		t.Fatal("Has(UNWIND) is true on a non-reverted block")
	}
}
