package blockdag

import (
	"time"

	"github.com/xdagger/xdagd/infrastructure/db/dbaccess"
	"github.com/xdagger/xdagd/util"
	"github.com/xdagger/xdagd/util/daghash"
)

const (
	// maxFutureBlockTime is how far ahead of the local clock a block
	// timestamp may lie before the block is rejected.
	maxFutureBlockTime = 2 * time.Second
)

// ProcessBlock is the main workhorse for handling insertion of new blocks
// into the block DAG. It runs the whole admission pipeline: sanity checks,
// link resolution, signature and arithmetic validation, difficulty
// accumulation and balance application, and then re-enters any orphans
// that were waiting for this block.
//
// It returns whether the block was parked as an orphan.
//
// This function is safe for concurrent access, but is intended to be
// called from a single consensus goroutine.
func (dag *BlockDAG) ProcessBlock(block *Block) (isOrphan bool, err error) {
	dag.dagLock.Lock()
	accepted, isOrphan, err := dag.processBlockNoLock(block)
	dag.dagLock.Unlock()

	if dag.blockAddedListener != nil {
		for _, acceptedBlock := range accepted {
			dag.blockAddedListener(acceptedBlock)
		}
	}
	return isOrphan, err
}

// processBlockNoLock admits a block and then drains the orphan pool of
// everything the admission unblocked. It returns every block accepted
// into the DAG by this call.
func (dag *BlockDAG) processBlockNoLock(block *Block) (accepted []*Block, isOrphan bool, err error) {
	lowHash := block.LowHash()
	log.Tracef("Processing block %s", lowHash)

	exists, err := dag.isKnownBlock(lowHash)
	if err != nil {
		return nil, false, err
	}
	if exists {
		return nil, false, ruleError(ErrDuplicateBlock, "already have block %s", lowHash)
	}
	if _, exists := dag.orphans[*lowHash]; exists {
		return nil, false, ruleError(ErrDuplicateBlock, "already have block (orphan) %s", lowHash)
	}

	if err := dag.checkBlockSanity(block); err != nil {
		return nil, false, err
	}

	// Link resolution. A block with any unresolvable link parks in the
	// orphan pool, keyed by each missing dependency.
	missing, err := dag.missingLinks(block)
	if err != nil {
		return nil, false, err
	}
	if len(missing) > 0 {
		log.Debugf("Adding orphan block %s with %d missing links", lowHash, len(missing))
		if err := dag.addOrphanBlock(block, missing); err != nil {
			return nil, false, err
		}
		return nil, true, nil
	}

	if err := dag.maybeAcceptBlock(block); err != nil {
		return nil, false, err
	}
	accepted = append(accepted, block)

	// Accepting the block may render orphans processable.
	unblocked, err := dag.processOrphans(lowHash)
	if err != nil {
		return nil, false, err
	}
	accepted = append(accepted, unblocked...)

	log.Debugf("Accepted block %s", lowHash)
	return accepted, false, nil
}

// missingLinks returns the low hashes of the block's link targets that are
// not yet in the DAG.
func (dag *BlockDAG) missingLinks(block *Block) ([]*daghash.Hash, error) {
	var missing []*daghash.Hash
	seen := make(map[daghash.Hash]struct{})
	for _, link := range block.Links() {
		if _, ok := seen[link.LowHash]; ok {
			continue
		}
		seen[link.LowHash] = struct{}{}
		linkHash := link.LowHash
		exists, err := dag.isKnownBlock(&linkHash)
		if err != nil {
			return nil, err
		}
		if !exists {
			missing = append(missing, &linkHash)
		}
	}
	return missing, nil
}

// maybeAcceptBlock runs the validation steps that need resolved links and,
// when they pass, applies the block's balance effects in one atomic store
// transaction.
func (dag *BlockDAG) maybeAcceptBlock(block *Block) error {
	linkedInfos, linkedBlocks, err := dag.fetchLinked(block)
	if err != nil {
		return err
	}

	if err := dag.checkLinkedTimestamps(block, linkedInfos); err != nil {
		return err
	}
	if err := dag.checkSignatures(block, linkedBlocks); err != nil {
		return err
	}
	fee, err := checkAmounts(block)
	if err != nil {
		return err
	}

	return dag.applyBlock(block, linkedInfos, fee)
}

// fetchLinked loads the metadata and bodies of every link target of the
// block. Callers must have resolved all links first.
func (dag *BlockDAG) fetchLinked(block *Block) (map[daghash.Hash]*BlockInfo, map[daghash.Hash]*Block, error) {
	linkedInfos := make(map[daghash.Hash]*BlockInfo)
	linkedBlocks := make(map[daghash.Hash]*Block)
	for _, link := range block.Links() {
		if _, ok := linkedInfos[link.LowHash]; ok {
			continue
		}
		linkHash := link.LowHash
		info, err := dag.blockInfoByLowHash(&linkHash)
		if err != nil {
			return nil, nil, err
		}
		linkedInfos[link.LowHash] = info

		linkedBlock, err := fetchBlock(dag.databaseContext, &linkHash)
		if err != nil {
			return nil, nil, err
		}
		linkedBlocks[link.LowHash] = linkedBlock
	}
	return linkedInfos, linkedBlocks, nil
}

// applyBlock sets the block's derived metadata, debits and credits the
// linked balances and persists everything in one atomic transaction.
func (dag *BlockDAG) applyBlock(block *Block, linkedInfos map[daghash.Hash]*BlockInfo, fee uint64) error {
	lowHash := block.LowHash()

	// Difficulty accumulation: the block's own difficulty plus the best
	// cumulative difficulty among its links. The best link becomes the
	// block's maxDiffLink; ties break to the lexicographically smaller
	// low hash.
	difficulty := blockDifficulty(block.BlockHash())
	var maxDiffLink *daghash.Hash
	var bestLinked *BlockInfo
	for _, link := range block.Links() {
		linked := linkedInfos[link.LowHash]
		if bestLinked == nil ||
			linked.Difficulty.Cmp(bestLinked.Difficulty) > 0 ||
			(linked.Difficulty.Cmp(bestLinked.Difficulty) == 0 &&
				linked.HashLow.Less(&bestLinked.HashLow)) {
			bestLinked = linked
		}
	}
	if bestLinked != nil {
		difficulty.Add(difficulty, bestLinked.Difficulty)
		linkHash := bestLinked.HashLow
		maxDiffLink = &linkHash
	}

	info := &BlockInfo{
		Type:        block.TypeWord(),
		Flags:       FlagApplied | FlagSaved | FlagExtra,
		Timestamp:   block.Timestamp(),
		Difficulty:  difficulty,
		MaxDiffLink: maxDiffLink,
		Ref:         maxDiffLink,
		Fee:         util.Amount(fee),
		Hash:        *block.BlockHash(),
		HashLow:     *lowHash,
	}
	if remark, ok := block.Remark(); ok {
		info.Flags |= FlagRemark
		info.Remark = remark
	}

	// Compute the balance mutations before touching anything so that a
	// failed input leaves no trace.
	type mutation struct {
		info      *BlockInfo
		newAmount uint64
	}
	newAmounts := make(map[daghash.Hash]uint64)
	for linkHash, linked := range linkedInfos {
		newAmounts[linkHash] = uint64(linked.Amount)
	}
	for _, link := range block.Links() {
		current := newAmounts[link.LowHash]
		if link.IsInput() {
			if uint64(link.Amount) > current {
				return ruleError(ErrInsufficientFunds,
					"input %s spends %s but holds only %s", link.LowHash,
					link.Amount, linkedInfos[link.LowHash].Amount)
			}
			newAmounts[link.LowHash] = current - uint64(link.Amount)
		} else {
			newAmounts[link.LowHash] = current + uint64(link.Amount)
		}
	}

	dbTx, err := dag.databaseContext.NewTx()
	if err != nil {
		return err
	}
	defer dbTx.RollbackUnlessClosed()

	if err := dbaccess.StoreBlock(dbTx, lowHash, block.Encode()); err != nil {
		return err
	}
	mutations := make([]mutation, 0, len(linkedInfos))
	for linkHash, linked := range linkedInfos {
		updated := *linked
		updated.Amount = util.Amount(newAmounts[linkHash])
		if err := storeBlockInfo(dbTx, &updated); err != nil {
			return err
		}
		mutations = append(mutations, mutation{info: linked, newAmount: newAmounts[linkHash]})
	}
	if err := storeBlockInfo(dbTx, info); err != nil {
		return err
	}
	if err := dbTx.Commit(); err != nil {
		return err
	}

	// The batch is committed; expose the new state in memory.
	for _, m := range mutations {
		m.info.Amount = util.Amount(m.newAmount)
	}
	dag.index[*lowHash] = info
	dag.extras[*lowHash] = info
	return nil
}
