package blockdag

import (
	"testing"

	"github.com/xdagger/xdagd/crypto"
	"github.com/xdagger/xdagd/util"
	"github.com/xdagger/xdagd/util/daghash"
)

// TestLinearGrowth inserts genesis plus ten candidate blocks in height
// order and expects a clean main chain: tip height 10, one subsidy per
// main block, no unwound blocks.
func TestLinearGrowth(t *testing.T) {
	td, teardown := newTestDAG(t, "TestLinearGrowth")
	defer teardown()

	genesisLow := td.dag.genesis.HashLow
	prev := &genesisLow
	blocks := make([]*Block, 0, 10)
	for i := int64(1); i <= 10; i++ {
		block := td.buildLinkBlock(t, i, prev)
		if isOrphan := td.processBlock(t, block); isOrphan {
			t.Fatalf("block %d unexpectedly became an orphan", i)
		}
		blocks = append(blocks, block)
		prev = block.LowHash()
	}

	td.tickAtEpoch(t, 12)

	if tipHeight := td.dag.TipHeight(); tipHeight != 10 {
		t.Fatalf("tip height is %d, want 10", tipHeight)
	}
	if tipHash := td.dag.TipHash(); !tipHash.IsEqual(blocks[9].LowHash()) {
		t.Fatalf("tip is %s, want %s", tipHash, blocks[9].LowHash())
	}

	expectedSubsidy := td.params.BlockSubsidy(1)
	var coinbaseTotal util.Amount
	for i, block := range blocks {
		info := td.mustInfo(t, block.LowHash())
		if !info.Flags.Has(FlagMain | FlagMainChain) {
			t.Fatalf("block %d is not MAIN|MAIN_CHAIN (flags %x)", i+1, info.Flags)
		}
		if info.Flags.Has(FlagUnwind) {
			t.Fatalf("block %d unexpectedly carries UNWIND", i+1)
		}
		if info.Height != uint64(i+1) {
			t.Fatalf("block %d has height %d, want %d", i+1, info.Height, i+1)
		}
		if info.Amount != expectedSubsidy {
			t.Fatalf("block %d holds %s, want %s", i+1, info.Amount, expectedSubsidy)
		}
		coinbaseTotal = coinbaseTotal.Add(info.Amount)
	}
	wantTotal := util.Amount(10) * expectedSubsidy
	if coinbaseTotal != wantTotal {
		t.Fatalf("coinbase total is %s, want %s", coinbaseTotal, wantTotal)
	}

	// Main-chain invariant: every main block's maxDiffLink is the main
	// block one height below.
	for i := 1; i < len(blocks); i++ {
		info := td.mustInfo(t, blocks[i].LowHash())
		linked := td.mustInfo(t, info.MaxDiffLink)
		if linked.Height != info.Height-1 {
			t.Fatalf("main block at height %d links height %d, want %d",
				info.Height, linked.Height, info.Height-1)
		}
	}
}

// TestReorgDepth3 builds chain A of length 5, then presents chain B that
// shares A's first two blocks and out-weighs it. Blocks 3-5 of A must be
// unwound and B's blocks elected in their place.
func TestReorgDepth3(t *testing.T) {
	td, teardown := newTestDAG(t, "TestReorgDepth3")
	defer teardown()

	genesisLow := td.dag.genesis.HashLow
	prev := &genesisLow
	chainA := make([]*Block, 0, 5)
	for i := int64(1); i <= 5; i++ {
		block := td.buildLinkBlock(t, i, prev)
		td.processBlock(t, block)
		chainA = append(chainA, block)
		prev = block.LowHash()
	}
	td.tickAtEpoch(t, 6)
	if tipHeight := td.dag.TipHeight(); tipHeight != 5 {
		t.Fatalf("tip height after chain A is %d, want 5", tipHeight)
	}

	// Chain B forks after A2. Its first block is reground until it alone
	// out-weighs all of chain A, which makes B's cumulative difficulty
	// strictly greater regardless of the other blocks' hashes.
	genesisBlock, err := DecodeBlock(td.params.GenesisBlock)
	if err != nil {
		t.Fatalf("cannot decode genesis: %s", err)
	}
	chainAWeight := cumulativeOver(append([]*Block{genesisBlock}, chainA...)...)
	var b3 *Block
	for {
		b3 = td.buildLinkBlock(t, 6, chainA[1].LowHash())
		if blockDifficulty(b3.BlockHash()).Cmp(chainAWeight) > 0 {
			break
		}
	}
	b4 := td.buildLinkBlock(t, 7, b3.LowHash())
	b5 := td.buildLinkBlock(t, 8, b4.LowHash())
	chainB := []*Block{b3, b4, b5}
	for _, block := range chainB {
		td.processBlock(t, block)
	}

	td.tickAtEpoch(t, 10)

	if tipHash := td.dag.TipHash(); !tipHash.IsEqual(b5.LowHash()) {
		t.Fatalf("tip is %s, want B5 %s", tipHash, b5.LowHash())
	}
	if tipHeight := td.dag.TipHeight(); tipHeight != 5 {
		t.Fatalf("tip height after reorg is %d, want 5", tipHeight)
	}

	for i := 2; i < 5; i++ {
		info := td.mustInfo(t, chainA[i].LowHash())
		if info.Flags.Has(FlagMain) {
			t.Fatalf("A%d still carries MAIN after the reorg", i+1)
		}
		if !info.Flags.Has(FlagUnwind) {
			t.Fatalf("A%d does not carry UNWIND after the reorg", i+1)
		}
		if info.Amount != 0 {
			t.Fatalf("A%d still holds %s after the reorg", i+1, info.Amount)
		}
	}
	for i, block := range chainB {
		info := td.mustInfo(t, block.LowHash())
		wantHeight := uint64(i + 3)
		if !info.Flags.Has(FlagMain|FlagMainChain) || info.Height != wantHeight {
			t.Fatalf("B%d has flags %x height %d, want MAIN at height %d",
				i+3, info.Flags, info.Height, wantHeight)
		}
		if info.Amount != td.params.BlockSubsidy(wantHeight) {
			t.Fatalf("B%d holds %s, want %s", i+3, info.Amount,
				td.params.BlockSubsidy(wantHeight))
		}
	}

	// A1 and A2 survive as main blocks below the fork.
	for i := 0; i < 2; i++ {
		info := td.mustInfo(t, chainA[i].LowHash())
		if !info.Flags.Has(FlagMain) || info.Height != uint64(i+1) {
			t.Fatalf("A%d lost its election across the reorg", i+1)
		}
	}
}

// TestOrphanArrival feeds a block before its link target exists and then
// the target. The orphan must transition to applied, matching the state
// dependency-order insertion would have produced.
func TestOrphanArrival(t *testing.T) {
	td, teardown := newTestDAG(t, "TestOrphanArrival")
	defer teardown()

	genesisLow := td.dag.genesis.HashLow
	target := td.buildLinkBlock(t, 1, &genesisLow)
	dependent := td.buildLinkBlock(t, 2, target.LowHash())

	td.timeSource.set(dependent.Timestamp() + 1)
	isOrphan, err := td.dag.ProcessBlock(dependent)
	if err != nil {
		t.Fatalf("ProcessBlock(dependent) unexpectedly failed: %s", err)
	}
	if !isOrphan {
		t.Fatal("dependent block was not parked as an orphan")
	}
	if !td.dag.IsKnownOrphan(dependent.LowHash()) {
		t.Fatal("dependent block is not in the orphan pool")
	}
	roots := td.dag.OrphanRoots(dependent.LowHash())
	if len(roots) != 1 || !roots[0].IsEqual(target.LowHash()) {
		t.Fatalf("orphan roots are %v, want [%s]", roots, target.LowHash())
	}

	if isOrphan := td.processBlock(t, target); isOrphan {
		t.Fatal("target block unexpectedly became an orphan")
	}

	if td.dag.IsKnownOrphan(dependent.LowHash()) {
		t.Fatal("dependent block is still in the orphan pool")
	}
	info := td.mustInfo(t, dependent.LowHash())
	if !info.Flags.Has(FlagApplied) {
		t.Fatalf("dependent block is not applied (flags %x)", info.Flags)
	}
}

// TestDoubleSpendRejection funds a key-controlled main block and spends
// from it twice. The second spend must fail with insufficient funds.
func TestDoubleSpendRejection(t *testing.T) {
	td, teardown := newTestDAG(t, "TestDoubleSpendRejection")
	defer teardown()

	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("GeneratePrivateKey unexpectedly failed: %s", err)
	}

	genesisLow := td.dag.genesis.HashLow
	funded := td.buildAddressBlock(t, 1, key, &genesisLow)
	td.processBlock(t, funded)
	td.tickAtEpoch(t, 3)

	fundedInfo := td.mustInfo(t, funded.LowHash())
	if !fundedInfo.Flags.Has(FlagMain) {
		t.Fatalf("funding block was not elected (flags %x)", fundedInfo.Flags)
	}
	subsidy := td.params.BlockSubsidy(1)
	if fundedInfo.Amount != subsidy {
		t.Fatalf("funding block holds %s, want %s", fundedInfo.Amount, subsidy)
	}

	recipient := td.buildAddressBlock(t, 4, key)
	td.processBlock(t, recipient)

	spendAmount := subsidy - subsidy/4 // more than half, so two cannot both apply
	spend1 := td.buildSpendBlock(t, 5, key, funded.LowHash(), recipient.LowHash(), spendAmount)
	td.processBlock(t, spend1)

	if balance, _ := td.dag.BlockBalance(funded.LowHash()); balance != subsidy-spendAmount {
		t.Fatalf("funding block holds %s after the spend, want %s", balance,
			subsidy-spendAmount)
	}
	if balance, _ := td.dag.BlockBalance(recipient.LowHash()); balance != spendAmount {
		t.Fatalf("recipient holds %s after the spend, want %s", balance, spendAmount)
	}

	spend2 := td.buildSpendBlock(t, 6, key, funded.LowHash(), recipient.LowHash(), spendAmount)
	td.timeSource.set(spend2.Timestamp() + 1)
	_, err = td.dag.ProcessBlock(spend2)
	if !IsRuleError(err, ErrInsufficientFunds) {
		t.Fatalf("second spend returned %v, want ErrInsufficientFunds", err)
	}
}

// TestOrderIndependence inserts the same block set into two DAGs in
// dependency order and in reverse (through the orphan pool) and expects
// identical applied state.
func TestOrderIndependence(t *testing.T) {
	td1, teardown1 := newTestDAG(t, "TestOrderIndependence1")
	defer teardown1()
	td2, teardown2 := newTestDAG(t, "TestOrderIndependence2")
	defer teardown2()

	genesisLow := td1.dag.genesis.HashLow
	prev := &genesisLow
	blocks := make([]*Block, 0, 6)
	for i := int64(1); i <= 6; i++ {
		block := td1.buildLinkBlock(t, i, prev)
		blocks = append(blocks, block)
		prev = block.LowHash()
	}

	for _, block := range blocks {
		td1.processBlock(t, block)
	}
	for i := len(blocks) - 1; i >= 0; i-- {
		block := blocks[i]
		td2.timeSource.set(blocks[len(blocks)-1].Timestamp() + 1)
		if _, err := td2.dag.ProcessBlock(block); err != nil {
			t.Fatalf("reverse insertion of block %d failed: %s", i, err)
		}
	}

	for i, block := range blocks {
		info1 := td1.mustInfo(t, block.LowHash())
		info2 := td2.mustInfo(t, block.LowHash())
		if info1.Flags != info2.Flags || info1.Amount != info2.Amount ||
			info1.Difficulty.Cmp(info2.Difficulty) != 0 {
			t.Fatalf("block %d state diverges between insertion orders: "+
				"flags %x/%x amount %s/%s", i+1, info1.Flags, info2.Flags,
				info1.Amount, info2.Amount)
		}
		if !hashesEqual(info1.MaxDiffLink, info2.MaxDiffLink) {
			t.Fatalf("block %d maxDiffLink diverges between insertion orders", i+1)
		}
	}
}

func hashesEqual(a, b *daghash.Hash) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.IsEqual(b)
}

// TestBlockDepth covers the main-block case of the depth semantics: a
// main block's depth is its height.
func TestBlockDepth(t *testing.T) {
	td, teardown := newTestDAG(t, "TestBlockDepth")
	defer teardown()

	genesisLow := td.dag.genesis.HashLow
	b1 := td.buildLinkBlock(t, 1, &genesisLow)
	td.processBlock(t, b1)
	b2 := td.buildLinkBlock(t, 2, b1.LowHash())
	td.processBlock(t, b2)
	td.tickAtEpoch(t, 4)

	depth, err := td.dag.BlockDepth(b2.LowHash())
	if err != nil {
		t.Fatalf("BlockDepth unexpectedly failed: %s", err)
	}
	if depth != 2 {
		t.Fatalf("main block depth is %d, want 2", depth)
	}
}
