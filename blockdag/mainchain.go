package blockdag

import (
	"github.com/xdagger/xdagd/dagconfig"
	"github.com/xdagger/xdagd/infrastructure/db/dbaccess"
	"github.com/xdagger/xdagd/util"
	"github.com/xdagger/xdagd/util/mstime"
)

// HandleEpochTick runs one round of main-chain election: it selects the
// pretop among the applied blocks of the closed epochs and, when the
// pretop accumulates more difficulty than the current tip, reorganizes
// the main chain onto it.
//
// The node invokes this every epoch; tests invoke it directly with a
// controlled time source.
func (dag *BlockDAG) HandleEpochTick() error {
	dag.dagLock.Lock()
	defer dag.dagLock.Unlock()
	return dag.handleEpochTickNoLock(mstime.TimeToUnixMilli(dag.timeSource.Now()))
}

func (dag *BlockDAG) handleEpochTickNoLock(nowMilli int64) error {
	candidate := dag.selectPretop(dagconfig.EpochOf(nowMilli))
	if candidate == nil {
		return nil
	}
	return dag.maybeReorganize(candidate)
}

// selectPretop chooses, among all applied not-yet-main blocks of epochs
// before currentEpoch, the one with maximum cumulative difficulty; ties
// break to the lexicographically smaller low hash. The chosen block is
// flagged PRETOP. Callers must hold dagLock.
func (dag *BlockDAG) selectPretop(currentEpoch int64) *BlockInfo {
	var best *BlockInfo
	for _, info := range dag.extras {
		if dagconfig.EpochOf(info.Timestamp) >= currentEpoch {
			continue
		}
		if best == nil ||
			info.Difficulty.Cmp(best.Difficulty) > 0 ||
			(info.Difficulty.Cmp(best.Difficulty) == 0 && info.HashLow.Less(&best.HashLow)) {
			best = info
		}
	}
	if best == nil {
		return nil
	}

	if dag.pretop != nil && dag.pretop != best {
		dag.pretop.Flags &^= FlagPretop
	}
	best.Flags |= FlagPretop
	dag.pretop = best
	return best
}

// maybeReorganize adopts the candidate as the new main-chain tip when its
// cumulative difficulty exceeds the current tip's. It walks the
// candidate's maxDiffLink chain back to the fork point, reverts the
// now-off-chain main segment strictly before applying the new segment in
// ascending height order. All store writes ride one atomic transaction.
// Callers must hold dagLock.
func (dag *BlockDAG) maybeReorganize(candidate *BlockInfo) error {
	if candidate.Difficulty.Cmp(dag.tip.Difficulty) <= 0 {
		return nil
	}

	// Collect the new segment: candidate down to (exclusive) the first
	// block already on the main chain.
	var segment []*BlockInfo
	walk := candidate
	for !walk.Flags.Has(FlagMainChain) {
		segment = append(segment, walk)
		if walk.MaxDiffLink == nil {
			// A linkless block can accumulate difficulty without ever
			// reaching the main chain; it is not electable.
			log.Debugf("Pretop %s does not connect to the main chain, skipping",
				candidate.HashLow)
			return nil
		}
		linked, err := dag.blockInfoByLowHash(walk.MaxDiffLink)
		if err != nil {
			return err
		}
		walk = linked
	}
	fork := walk
	if len(segment) == 0 {
		return nil
	}
	// Reverse into ascending height order.
	for i, j := 0, len(segment)-1; i < j; i, j = i+1, j-1 {
		segment[i], segment[j] = segment[j], segment[i]
	}

	dbTx, err := dag.databaseContext.NewTx()
	if err != nil {
		return err
	}
	defer dbTx.RollbackUnlessClosed()

	// Revert the abandoned main segment, strictly before any apply and in
	// height order.
	if dag.tip.Height > fork.Height {
		log.Infof("Reorganizing: reverting main chain above fork height %d "+
			"(old tip %d)", fork.Height, dag.tip.Height)
	}
	for height := fork.Height + 1; height <= dag.tip.Height; height++ {
		if err := dag.revertMainBlock(dbTx, height); err != nil {
			return err
		}
	}

	// Apply the new segment in ascending height order.
	height := fork.Height
	for _, info := range segment {
		height++
		if err := dag.applyMainBlock(dbTx, info, height); err != nil {
			return err
		}
	}

	meta := &storeMeta{
		SchemaVersion:  schemaVersion,
		NetworkID:      dag.params.NetworkID,
		GenesisLowHash: dag.genesisLowHash(),
		TipLowHash:     candidate.HashLow,
		TipHeight:      height,
	}
	if err := storeMetaRecord(dbTx, meta); err != nil {
		return err
	}
	if err := dbTx.Commit(); err != nil {
		return err
	}

	dag.tip = candidate
	if dag.pretop == candidate {
		candidate.Flags &^= FlagPretop
		dag.pretop = nil
	}
	log.Infof("New main-chain tip %s at height %d", candidate.HashLow, height)
	return nil
}

// mainBlockReward returns the coinbase reward of a main block at the
// given height plus the fees it collects, and the set of fee contributors:
// the blocks the main block directly links that have not been collected
// by the main chain yet.
func (dag *BlockDAG) mainBlockReward(info *BlockInfo, height uint64) (util.Amount, []*BlockInfo, error) {
	reward := dag.params.BlockSubsidy(height).Add(info.Fee)

	mainBlock, err := fetchBlock(dag.databaseContext, &info.HashLow)
	if err != nil {
		return 0, nil, err
	}
	var contributors []*BlockInfo
	for _, link := range mainBlock.Links() {
		linkHash := link.LowHash
		linked, err := dag.blockInfoByLowHash(&linkHash)
		if err != nil {
			return 0, nil, err
		}
		if linked.Flags.Has(FlagMainRef) || linked.Flags.Has(FlagMainChain) || linked.Fee == 0 {
			continue
		}
		reward = reward.Add(linked.Fee)
		contributors = append(contributors, linked)
	}
	return reward, contributors, nil
}

// applyMainBlock elects the given block as the main block at the given
// height: assigns the height, credits the coinbase reward plus collected
// fees, and marks the fee contributors. Callers must hold dagLock.
func (dag *BlockDAG) applyMainBlock(dbTx *dbaccess.TxContext, info *BlockInfo, height uint64) error {
	reward, contributors, err := dag.mainBlockReward(info, height)
	if err != nil {
		return err
	}

	for _, contributor := range contributors {
		contributor.Flags |= FlagMainRef
		contributor.Ref = &info.HashLow
		if err := storeBlockInfo(dbTx, contributor); err != nil {
			return err
		}
	}

	info.Flags |= FlagMain | FlagMainChain
	info.Flags &^= FlagExtra | FlagUnwind
	info.Height = height
	info.Amount = info.Amount.Add(reward)
	if err := storeBlockInfo(dbTx, info); err != nil {
		return err
	}
	if err := dbaccess.StoreMainChainBlock(dbTx, height, &info.HashLow); err != nil {
		return err
	}
	delete(dag.extras, info.HashLow)
	return nil
}

// revertMainBlock unwinds the main block at the given height: clears its
// election, debits the coinbase reward and collected fees, and releases
// its fee contributors. Callers must hold dagLock.
func (dag *BlockDAG) revertMainBlock(dbTx *dbaccess.TxContext, height uint64) error {
	lowHash, err := dbaccess.FetchMainChainBlockByHeight(dag.databaseContext, height)
	if err != nil {
		if dbaccess.IsNotFoundError(err) {
			return reorgError("no main block recorded at height %d", height)
		}
		return err
	}
	info, err := dag.blockInfoByLowHash(lowHash)
	if err != nil {
		return err
	}
	if !info.Flags.Has(FlagMain) || info.Height != height {
		return reorgError("main block %s at height %d has inconsistent "+
			"metadata (flags %x, height %d)", info.HashLow, height, info.Flags,
			info.Height)
	}

	reward, contributors, err := dag.mainBlockRevertReward(info, height)
	if err != nil {
		return err
	}

	for _, contributor := range contributors {
		contributor.Flags &^= FlagMainRef
		contributor.Ref = contributor.MaxDiffLink
		if err := storeBlockInfo(dbTx, contributor); err != nil {
			return err
		}
	}

	newAmount, err := info.Amount.Sub(reward)
	if err != nil {
		return reorgError("cannot revert reward of main block %s: %s",
			info.HashLow, err)
	}
	info.Amount = newAmount
	info.Height = 0
	info.Flags &^= FlagMain | FlagMainChain | FlagPretop
	info.Flags |= FlagUnwind | FlagExtra
	if err := storeBlockInfo(dbTx, info); err != nil {
		return err
	}
	if err := dbaccess.RemoveMainChainBlock(dbTx, height); err != nil {
		return err
	}

	// A reverted main block is an election candidate again.
	dag.extras[info.HashLow] = info
	return nil
}

// mainBlockRevertReward mirrors mainBlockReward for the revert direction:
// the contributors are the linked blocks this main block collected.
func (dag *BlockDAG) mainBlockRevertReward(info *BlockInfo, height uint64) (util.Amount, []*BlockInfo, error) {
	reward := dag.params.BlockSubsidy(height).Add(info.Fee)

	mainBlock, err := fetchBlock(dag.databaseContext, &info.HashLow)
	if err != nil {
		return 0, nil, err
	}
	var contributors []*BlockInfo
	for _, link := range mainBlock.Links() {
		linkHash := link.LowHash
		linked, err := dag.blockInfoByLowHash(&linkHash)
		if err != nil {
			return 0, nil, err
		}
		if !linked.Flags.Has(FlagMainRef) || linked.Ref == nil ||
			!linked.Ref.IsEqual(&info.HashLow) {
			continue
		}
		reward = reward.Add(linked.Fee)
		contributors = append(contributors, linked)
	}
	return reward, contributors, nil
}
