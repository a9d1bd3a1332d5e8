package blockdag

import (
	"time"

	"github.com/xdagger/xdagd/util/daghash"
	"github.com/xdagger/xdagd/util/mstime"
)

const (
	// maxOrphanBlocks is the maximum number of orphan blocks that can be
	// queued.
	maxOrphanBlocks = 100

	// orphanExpiration bounds how long an orphan waits for its links
	// before it is dropped.
	orphanExpiration = 10 * time.Minute
)

// orphanBlock represents a block whose links are not all resolvable yet:
// a normal block plus an expiration time to prevent caching the orphan
// forever.
type orphanBlock struct {
	block      *Block
	missing    []*daghash.Hash
	expiration time.Time
}

// IsKnownOrphan returns whether the passed low hash is currently a known
// orphan. Only a limited number of orphans are held for a limited amount
// of time, so this function must not be used as an absolute way to test
// whether a block is missing from the DAG.
//
// This function is safe for concurrent access.
func (dag *BlockDAG) IsKnownOrphan(lowHash *daghash.Hash) bool {
	dag.dagLock.RLock()
	defer dag.dagLock.RUnlock()
	_, exists := dag.orphans[*lowHash]
	return exists
}

// addOrphanBlock parks the given block in the orphan pool, keyed by each
// of its missing dependencies. Callers must hold dagLock.
func (dag *BlockDAG) addOrphanBlock(block *Block, missing []*daghash.Hash) error {
	// Evict expired orphans first, then enforce the pool bound.
	now := mstime.Now()
	for _, orphan := range dag.orphans {
		if now.After(orphan.expiration) {
			dag.removeOrphanBlock(orphan)
		}
	}
	if len(dag.orphans) >= maxOrphanBlocks {
		return ruleError(ErrOrphanPoolFull, "orphan pool is full, dropping "+
			"block %s", block.LowHash())
	}

	orphan := &orphanBlock{
		block:      block,
		missing:    missing,
		expiration: now.Add(orphanExpiration),
	}
	dag.orphans[*block.LowHash()] = orphan
	for _, dependency := range missing {
		dag.prevOrphans[*dependency] = append(dag.prevOrphans[*dependency], orphan)
	}
	return nil
}

// removeOrphanBlock removes the passed orphan block from the orphan pool
// and its dependency index. Callers must hold dagLock.
func (dag *BlockDAG) removeOrphanBlock(orphan *orphanBlock) {
	orphanHash := orphan.block.LowHash()
	delete(dag.orphans, *orphanHash)

	for _, dependency := range orphan.missing {
		orphans := dag.prevOrphans[*dependency]
		for i := 0; i < len(orphans); i++ {
			if orphans[i].block.LowHash().IsEqual(orphanHash) {
				orphans = append(orphans[:i], orphans[i+1:]...)
				i--
			}
		}
		if len(orphans) == 0 {
			delete(dag.prevOrphans, *dependency)
			continue
		}
		dag.prevOrphans[*dependency] = orphans
	}
}

// processOrphans re-enters into the admission pipeline every orphan that
// was waiting on the newly accepted block, cascading through orphans
// unblocked by those in turn. It returns every orphan accepted into the
// DAG. Callers must hold dagLock.
func (dag *BlockDAG) processOrphans(acceptedHash *daghash.Hash) ([]*Block, error) {
	var accepted []*Block

	processHashes := []*daghash.Hash{acceptedHash}
	for len(processHashes) > 0 {
		processHash := processHashes[0]
		processHashes = processHashes[1:]

		// Snapshot the waiters: re-parking mutates the dependency index.
		waiting := make([]*orphanBlock, len(dag.prevOrphans[*processHash]))
		copy(waiting, dag.prevOrphans[*processHash])
		for _, orphan := range waiting {
			// The orphan may still miss other dependencies; removing it
			// first lets the pipeline re-park it cleanly.
			dag.removeOrphanBlock(orphan)

			missing, err := dag.missingLinks(orphan.block)
			if err != nil {
				return nil, err
			}
			if len(missing) > 0 {
				if err := dag.addOrphanBlock(orphan.block, missing); err != nil {
					return nil, err
				}
				continue
			}

			err = dag.maybeAcceptBlock(orphan.block)
			if err != nil {
				if IsRuleError(err) {
					log.Debugf("Dropping invalid orphan %s: %s",
						orphan.block.LowHash(), err)
					continue
				}
				return nil, err
			}
			accepted = append(accepted, orphan.block)
			processHashes = append(processHashes, orphan.block.LowHash())
		}
	}
	return accepted, nil
}

// OrphanRoots returns, for the given orphan, the low hashes that are
// missing from the DAG: the blocks that should be requested from peers to
// unblock it.
//
// This function is safe for concurrent access.
func (dag *BlockDAG) OrphanRoots(lowHash *daghash.Hash) []*daghash.Hash {
	dag.dagLock.RLock()
	defer dag.dagLock.RUnlock()

	orphan, exists := dag.orphans[*lowHash]
	if !exists {
		return nil
	}
	roots := make([]*daghash.Hash, len(orphan.missing))
	copy(roots, orphan.missing)
	return roots
}
