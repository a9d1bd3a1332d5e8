package dagconfig

import (
	"encoding/binary"

	"github.com/xdagger/xdagd/crypto"
)

// Genesis timestamps, in milliseconds since the epoch.
const (
	genesisTimestampMainnet int64 = 1515187200000
	genesisTimestampTestnet int64 = 1546300800000
	genesisTimestampDevnet  int64 = 1577836800000
)

// Field type nibbles as they appear in the block's packed type word. These
// mirror the blockdag field types; they are restated here because the
// genesis block is built below without importing the blockdag package.
const (
	genesisNibbleHeader = 0x1
	genesisNibbleRemark = 0x9
)

// makeGenesisBlock builds the serialized 512-byte genesis block of a
// network: a header field carrying the timestamp and a remark field naming
// the network. Genesis blocks have no links, no signatures and pay no
// subsidy.
func makeGenesisBlock(timestamp int64, remark string) []byte {
	blockBytes := make([]byte, 512)

	// The type word tags field 0 as header and field 1 as remark.
	typeWord := uint64(genesisNibbleHeader) | uint64(genesisNibbleRemark)<<4

	// Header field: transport tag, type word, timestamp, fee.
	binary.LittleEndian.PutUint64(blockBytes[0:8], 0)
	binary.LittleEndian.PutUint64(blockBytes[8:16], typeWord)
	binary.LittleEndian.PutUint64(blockBytes[16:24], uint64(timestamp))
	binary.LittleEndian.PutUint64(blockBytes[24:32], 0)

	// Remark field.
	copy(blockBytes[32:64], remark)

	return blockBytes
}

var (
	genesisBlockMainnet = makeGenesisBlock(genesisTimestampMainnet, "xdag mainnet genesis")
	genesisBlockTestnet = makeGenesisBlock(genesisTimestampTestnet, "xdag testnet genesis")
	genesisBlockDevnet  = makeGenesisBlock(genesisTimestampDevnet, "xdag devnet genesis")

	genesisHashMainnet = *crypto.DoubleSha256(genesisBlockMainnet)
	genesisHashTestnet = *crypto.DoubleSha256(genesisBlockTestnet)
	genesisHashDevnet  = *crypto.DoubleSha256(genesisBlockDevnet)
)
