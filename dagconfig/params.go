// Package dagconfig defines DAG configuration parameters for the three
// xdag networks and provides the ability for callers to define their own
// parameters for testing purposes.
package dagconfig

import (
	"time"

	"github.com/xdagger/xdagd/util"
	"github.com/xdagger/xdagd/util/daghash"
)

// Constants used to indicate the network. The base value spells "XDAG".
const (
	// MainnetID is the protocol network id of the main xdag network.
	MainnetID uint32 = 0x58444147

	// TestnetID is the protocol network id of the test xdag network.
	TestnetID uint32 = 0x58444148

	// DevnetID is the protocol network id of the development xdag network.
	DevnetID uint32 = 0x58444149
)

const (
	// EpochDuration is the duration of a main-block election epoch.
	EpochDuration = time.Second

	// baseSubsidy is the coinbase reward of a main block before the first
	// halving, in base units (1024 XDAG).
	baseSubsidy = util.Amount(1024 << 32)

	// subsidyPlateauHeight is the last main-block height paid the full
	// base subsidy.
	subsidyPlateauHeight = 1017323

	// subsidyHalvingInterval is the number of main blocks between subsidy
	// halvings past the plateau.
	subsidyHalvingInterval = 2097152
)

// Params defines an xdag network by its parameters. These parameters may be
// used by xdag applications to differentiate networks as well as addresses
// and keys for one network from those intended for use on another network.
type Params struct {
	// Name defines a human-readable identifier for the network.
	Name string

	// NetworkID defines the network id used in the peer handshake. Peers
	// on different networks refuse each other with BAD_NETWORK.
	NetworkID uint32

	// DefaultPort defines the default peer-to-peer port for the network.
	DefaultPort uint16

	// AddressVersion is the version byte prepended to base58check
	// addresses on this network.
	AddressVersion byte

	// GenesisBlock holds the serialized first block of the DAG.
	GenesisBlock []byte

	// GenesisHash is the starting block hash.
	GenesisHash *daghash.Hash

	// GenesisTimestamp is the timestamp embedded in the genesis block, in
	// milliseconds since the epoch. It anchors epoch numbering.
	GenesisTimestamp int64

	// BootNodes lists peers to dial when no peers are known.
	BootNodes []string
}

// BlockSubsidy returns the coinbase reward of the main block at the given
// height: the full base subsidy up to the plateau height, halving every
// subsidyHalvingInterval main blocks thereafter, rounded down in fixed
// point.
func (p *Params) BlockSubsidy(height uint64) util.Amount {
	if height == 0 {
		return 0
	}
	if height <= subsidyPlateauHeight {
		return baseSubsidy
	}
	halvings := (height-subsidyPlateauHeight-1)/subsidyHalvingInterval + 1
	if halvings >= 64 {
		return 0
	}
	return baseSubsidy >> halvings
}

// EpochOf returns the election epoch the given millisecond timestamp falls
// in.
func EpochOf(timestampMilli int64) int64 {
	return timestampMilli / EpochDuration.Milliseconds()
}

// MainnetParams defines the network parameters for the main xdag network.
var MainnetParams = Params{
	Name:             "mainnet",
	NetworkID:        MainnetID,
	DefaultPort:      13656,
	AddressVersion:   0x16,
	GenesisBlock:     genesisBlockMainnet,
	GenesisHash:      &genesisHashMainnet,
	GenesisTimestamp: genesisTimestampMainnet,
	BootNodes: []string{
		"seed1.xdag.org:13656",
		"seed2.xdag.org:13656",
	},
}

// TestnetParams defines the network parameters for the test xdag network.
var TestnetParams = Params{
	Name:             "testnet",
	NetworkID:        TestnetID,
	DefaultPort:      14656,
	AddressVersion:   0x58,
	GenesisBlock:     genesisBlockTestnet,
	GenesisHash:      &genesisHashTestnet,
	GenesisTimestamp: genesisTimestampTestnet,
	BootNodes: []string{
		"testseed1.xdag.org:14656",
	},
}

// DevnetParams defines the network parameters for the development xdag
// network.
var DevnetParams = Params{
	Name:             "devnet",
	NetworkID:        DevnetID,
	DefaultPort:      15656,
	AddressVersion:   0x6f,
	GenesisBlock:     genesisBlockDevnet,
	GenesisHash:      &genesisHashDevnet,
	GenesisTimestamp: genesisTimestampDevnet,
	BootNodes:        nil,
}

// ParamsForNetwork returns the Params of the named network, or nil when the
// name is unknown. Recognized names are "main", "test" and "dev".
func ParamsForNetwork(name string) *Params {
	switch name {
	case "main", "mainnet":
		return &MainnetParams
	case "test", "testnet":
		return &TestnetParams
	case "dev", "devnet":
		return &DevnetParams
	default:
		return nil
	}
}
