package dagconfig

import (
	"testing"

	"github.com/xdagger/xdagd/util"
)

func TestBlockSubsidy(t *testing.T) {
	base := util.Amount(1024 << 32)
	tests := []struct {
		name   string
		height uint64
		want   util.Amount
	}{
		{name: "genesis pays nothing", height: 0, want: 0},
		{name: "first main block", height: 1, want: base},
		{name: "last plateau block", height: 1017323, want: base},
		{name: "first halved block", height: 1017324, want: base / 2},
		{name: "last once-halved block", height: 1017323 + 2097152, want: base / 2},
		{name: "first twice-halved block", height: 1017324 + 2097152, want: base / 4},
		{name: "far future rounds to zero", height: 1017323 + 2097152*70, want: 0},
	}

	params := &MainnetParams
	for _, test := range tests {
		if got := params.BlockSubsidy(test.height); got != test.want {
			t.Errorf("%s: BlockSubsidy(%d) = %d, want %d", test.name,
				test.height, got, test.want)
		}
	}
}

func TestEpochOf(t *testing.T) {
	if EpochOf(0) != 0 || EpochOf(999) != 0 || EpochOf(1000) != 1 {
		t.Fatal("EpochOf does not bucket by second")
	}
}

func TestParamsForNetwork(t *testing.T) {
	tests := []struct {
		name string
		want *Params
	}{
		{name: "main", want: &MainnetParams},
		{name: "mainnet", want: &MainnetParams},
		{name: "test", want: &TestnetParams},
		{name: "dev", want: &DevnetParams},
	}
	for _, test := range tests {
		if got := ParamsForNetwork(test.name); got != test.want {
			t.Errorf("ParamsForNetwork(%q) = %v, want %v", test.name, got, test.want)
		}
	}
	if got := ParamsForNetwork("nonsense"); got != nil {
		t.Errorf("ParamsForNetwork(nonsense) = %v, want nil", got)
	}
}

// TestGenesisBlocksDiffer ensures the three networks cannot share a
// store or a DAG.
func TestGenesisBlocksDiffer(t *testing.T) {
	if MainnetParams.GenesisHash.IsEqual(TestnetParams.GenesisHash) ||
		MainnetParams.GenesisHash.IsEqual(DevnetParams.GenesisHash) ||
		TestnetParams.GenesisHash.IsEqual(DevnetParams.GenesisHash) {
		t.Fatal("two networks share a genesis hash")
	}
	if MainnetParams.NetworkID == TestnetParams.NetworkID ||
		TestnetParams.NetworkID == DevnetParams.NetworkID {
		t.Fatal("two networks share a network id")
	}
}
