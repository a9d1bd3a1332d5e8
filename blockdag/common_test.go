package blockdag

import (
	"io/ioutil"
	"os"
	"testing"
	"time"

	"github.com/xdagger/xdagd/crypto"
	"github.com/xdagger/xdagd/dagconfig"
	"github.com/xdagger/xdagd/infrastructure/db/dbaccess"
	"github.com/xdagger/xdagd/util"
	"github.com/xdagger/xdagd/util/daghash"
	"github.com/xdagger/xdagd/util/mstime"
	"github.com/xdagger/xdagd/util/uint256"
)

// fakeTimeSource lets tests drive the admission clock and the epoch
// ticker deterministically.
type fakeTimeSource struct {
	nowMilli int64
}

func (f *fakeTimeSource) Now() time.Time {
	return mstime.UnixMilliToTime(f.nowMilli)
}

func (f *fakeTimeSource) set(milli int64) {
	f.nowMilli = milli
}

// testDAG is a DAG over a throwaway store plus the knobs tests poke.
type testDAG struct {
	dag        *BlockDAG
	timeSource *fakeTimeSource
	params     *dagconfig.Params
}

// newTestDAG creates a DAG backed by a temp-dir leveldb. The returned
// teardown function closes and removes the store.
func newTestDAG(t *testing.T, testName string) (*testDAG, func()) {
	path, err := ioutil.TempDir("", testName)
	if err != nil {
		t.Fatalf("%s: TempDir unexpectedly failed: %s", testName, err)
	}
	databaseContext, err := dbaccess.New(path)
	if err != nil {
		t.Fatalf("%s: opening the store unexpectedly failed: %s", testName, err)
	}

	params := dagconfig.DevnetParams
	timeSource := &fakeTimeSource{nowMilli: params.GenesisTimestamp + 1}
	dag, err := New(&Config{
		DatabaseContext: databaseContext,
		Params:          &params,
		TimeSource:      timeSource,
	})
	if err != nil {
		t.Fatalf("%s: creating the DAG unexpectedly failed: %s", testName, err)
	}

	teardown := func() {
		if err := databaseContext.Close(); err != nil {
			t.Fatalf("%s: closing the store unexpectedly failed: %s", testName, err)
		}
		os.RemoveAll(path)
	}
	return &testDAG{dag: dag, timeSource: timeSource, params: &params}, teardown
}

// epochMilli returns a timestamp inside epoch number epoch relative to
// the genesis timestamp.
func (td *testDAG) epochMilli(epoch int64) int64 {
	return td.params.GenesisTimestamp + epoch*dagconfig.EpochDuration.Milliseconds() + 500
}

// processBlock admits a block and fails the test on unexpected errors.
func (td *testDAG) processBlock(t *testing.T, block *Block) (isOrphan bool) {
	td.timeSource.set(block.Timestamp() + 1)
	isOrphan, err := td.dag.ProcessBlock(block)
	if err != nil {
		t.Fatalf("ProcessBlock(%s) unexpectedly failed: %s", block.LowHash(), err)
	}
	return isOrphan
}

// tickAtEpoch runs one election round with the clock set inside the
// given epoch.
func (td *testDAG) tickAtEpoch(t *testing.T, epoch int64) {
	td.timeSource.set(td.epochMilli(epoch))
	if err := td.dag.HandleEpochTick(); err != nil {
		t.Fatalf("HandleEpochTick unexpectedly failed: %s", err)
	}
}

// buildLinkBlock builds a block in the given epoch with a zero-amount
// output link to each of the given blocks: the shape of a plain
// main-chain candidate.
func (td *testDAG) buildLinkBlock(t *testing.T, epoch int64, links ...*daghash.Hash) *Block {
	builder := NewBlockBuilder(td.epochMilli(epoch))
	for _, link := range links {
		builder.AddOutputLink(link, 0)
	}
	builder.AddRandomNonce()
	block, err := builder.Build()
	if err != nil {
		t.Fatalf("Build unexpectedly failed: %s", err)
	}
	return block
}

// buildAddressBlock builds a block declaring the given key, bound by an
// out-signature, linking the given blocks with zero amounts.
func (td *testDAG) buildAddressBlock(t *testing.T, epoch int64, key *crypto.PrivateKey,
	links ...*daghash.Hash) *Block {

	pubKey, err := key.PublicKey()
	if err != nil {
		t.Fatalf("PublicKey unexpectedly failed: %s", err)
	}
	builder := NewBlockBuilder(td.epochMilli(epoch))
	for _, link := range links {
		builder.AddOutputLink(link, 0)
	}
	builder.AddPublicKey(pubKey).AddRandomNonce().SignOutput(key)
	block, err := builder.Build()
	if err != nil {
		t.Fatalf("Build unexpectedly failed: %s", err)
	}
	return block
}

// buildSpendBlock builds a transaction block in the given epoch spending
// amount from `from` to `to`, authorized by key.
func (td *testDAG) buildSpendBlock(t *testing.T, epoch int64, key *crypto.PrivateKey,
	from, to *daghash.Hash, amount util.Amount) *Block {

	builder := NewBlockBuilder(td.epochMilli(epoch)).
		AddInputLink(from, amount).
		AddOutputLink(to, amount).
		AddRandomNonce().
		SignInput(key)
	block, err := builder.Build()
	if err != nil {
		t.Fatalf("Build unexpectedly failed: %s", err)
	}
	return block
}

// mustInfo fetches a block's metadata and fails the test when it is
// missing.
func (td *testDAG) mustInfo(t *testing.T, lowHash *daghash.Hash) *BlockInfo {
	info, err := td.dag.BlockInfoByLowHash(lowHash)
	if err != nil {
		t.Fatalf("BlockInfoByLowHash(%s) unexpectedly failed: %s", lowHash, err)
	}
	if info == nil {
		t.Fatalf("BlockInfoByLowHash(%s) returned no info", lowHash)
	}
	return info
}

// cumulativeOver sums the intrinsic difficulties of the given blocks.
// Used to pre-compute chain weights without inserting anything.
func cumulativeOver(blocks ...*Block) *uint256.Uint256 {
	total := uint256.Zero()
	for _, block := range blocks {
		total.Add(total, blockDifficulty(block.BlockHash()))
	}
	return total
}
