package blockdag

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/xdagger/xdagd/dagconfig"
	"github.com/xdagger/xdagd/infrastructure/db/dbaccess"
	"github.com/xdagger/xdagd/util"
	"github.com/xdagger/xdagd/util/daghash"
)

// Config is a descriptor which specifies the BlockDAG instance
// configuration.
type Config struct {
	// DatabaseContext is the store the DAG persists blocks to. This field
	// is required.
	DatabaseContext *dbaccess.DatabaseContext

	// Params identifies the network the DAG is associated with. This
	// field is required.
	Params *dagconfig.Params

	// TimeSource defines the time source to use for admission policy
	// checks. Defaults to the local clock when nil.
	TimeSource TimeSource
}

// BlockDAG provides functions for working with the xdag block DAG: block
// admission, main-chain election and ledger queries.
//
// All mutations run under dagLock, held exclusively: ProcessBlock and
// HandleEpochTick each take it, so admission and election never overlap.
// The tip queries take the lock shared, BlockInfoByLowHash takes it
// exclusively, and BlockByLowHash and MainBlockHashAtHeight read the store
// without taking it.
type BlockDAG struct {
	params          *dagconfig.Params
	databaseContext *dbaccess.DatabaseContext
	timeSource      TimeSource

	dagLock sync.RWMutex

	// index caches the metadata of every block touched since startup,
	// keyed by low hash. It is a write-through cache over the info store.
	index map[daghash.Hash]*BlockInfo

	// extras tracks applied blocks that have not been elected onto the
	// main chain: the election candidates.
	extras map[daghash.Hash]*BlockInfo

	genesis *BlockInfo
	tip     *BlockInfo
	pretop  *BlockInfo

	// Orphan pool state. See orphans.go.
	orphans     map[daghash.Hash]*orphanBlock
	prevOrphans map[daghash.Hash][]*orphanBlock

	blockAddedListener func(*Block)
}

// New returns a BlockDAG instance using the provided configuration
// details. On a fresh store the genesis block is inserted; otherwise the
// store meta record is validated against the configured network.
func New(config *Config) (*BlockDAG, error) {
	if config.DatabaseContext == nil {
		return nil, errors.New("BlockDAG.New database context is nil")
	}
	if config.Params == nil {
		return nil, errors.New("BlockDAG.New params are nil")
	}
	timeSource := config.TimeSource
	if timeSource == nil {
		timeSource = NewTimeSource()
	}

	dag := &BlockDAG{
		params:          config.Params,
		databaseContext: config.DatabaseContext,
		timeSource:      timeSource,
		index:           make(map[daghash.Hash]*BlockInfo),
		extras:          make(map[daghash.Hash]*BlockInfo),
		orphans:         make(map[daghash.Hash]*orphanBlock),
		prevOrphans:     make(map[daghash.Hash][]*orphanBlock),
	}

	meta, err := fetchMetaRecord(dag.databaseContext)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		if err := dag.initializeStore(); err != nil {
			return nil, err
		}
		return dag, nil
	}

	if meta.SchemaVersion != schemaVersion {
		return nil, errors.Errorf("store schema version is %d, this build "+
			"reads %d", meta.SchemaVersion, schemaVersion)
	}
	if meta.NetworkID != dag.params.NetworkID {
		return nil, errors.Errorf("store belongs to network %08x, not %08x",
			meta.NetworkID, dag.params.NetworkID)
	}

	genesisLow := dag.params.GenesisHash.LowHash()
	if meta.GenesisLowHash != *genesisLow {
		return nil, errors.Errorf("store genesis %s does not match network "+
			"genesis %s", meta.GenesisLowHash, genesisLow)
	}

	dag.genesis, err = dag.blockInfoByLowHash(genesisLow)
	if err != nil {
		return nil, err
	}
	dag.tip, err = dag.blockInfoByLowHash(&meta.TipLowHash)
	if err != nil {
		return nil, err
	}
	log.Infof("Loaded DAG state: tip %s at height %d", dag.tip.HashLow,
		dag.tip.Height)
	return dag, nil
}

// initializeStore inserts the genesis block into a freshly created store.
func (dag *BlockDAG) initializeStore() error {
	genesisBlock, err := DecodeBlock(dag.params.GenesisBlock)
	if err != nil {
		return errors.Wrap(err, "cannot decode genesis block")
	}

	genesisInfo := &BlockInfo{
		Type:       genesisBlock.TypeWord(),
		Flags:      FlagApplied | FlagMainChain | FlagSaved,
		Height:     0,
		Timestamp:  genesisBlock.Timestamp(),
		Difficulty: blockDifficulty(genesisBlock.BlockHash()),
		Hash:       *genesisBlock.BlockHash(),
		HashLow:    *genesisBlock.LowHash(),
	}
	if remark, ok := genesisBlock.Remark(); ok {
		genesisInfo.Flags |= FlagRemark
		genesisInfo.Remark = remark
	}

	dbTx, err := dag.databaseContext.NewTx()
	if err != nil {
		return err
	}
	defer dbTx.RollbackUnlessClosed()

	if err := dbaccess.StoreBlock(dbTx, &genesisInfo.HashLow, genesisBlock.Encode()); err != nil {
		return err
	}
	if err := storeBlockInfo(dbTx, genesisInfo); err != nil {
		return err
	}
	meta := &storeMeta{
		SchemaVersion:  schemaVersion,
		NetworkID:      dag.params.NetworkID,
		GenesisLowHash: genesisInfo.HashLow,
		TipLowHash:     genesisInfo.HashLow,
		TipHeight:      0,
	}
	if err := storeMetaRecord(dbTx, meta); err != nil {
		return err
	}
	if err := dbTx.Commit(); err != nil {
		return err
	}

	dag.index[genesisInfo.HashLow] = genesisInfo
	dag.genesis = genesisInfo
	dag.tip = genesisInfo
	log.Infof("Initialized fresh DAG store with genesis %s", genesisInfo.HashLow)
	return nil
}

// blockInfoByLowHash returns the metadata of the block with the given low
// hash, consulting the in-memory index first and the store second.
// Callers must hold dagLock.
func (dag *BlockDAG) blockInfoByLowHash(lowHash *daghash.Hash) (*BlockInfo, error) {
	if info, ok := dag.index[*lowHash]; ok {
		return info, nil
	}
	info, err := fetchBlockInfo(dag.databaseContext, lowHash)
	if err != nil {
		return nil, err
	}
	dag.index[*lowHash] = info
	genesisLow := dag.genesisLowHash()
	if info.Flags.Has(FlagApplied) && !info.Flags.Has(FlagMain) && info.Height == 0 &&
		!info.HashLow.IsEqual(&genesisLow) {
		dag.extras[info.HashLow] = info
	}
	return info, nil
}

func (dag *BlockDAG) genesisLowHash() daghash.Hash {
	if dag.genesis != nil {
		return dag.genesis.HashLow
	}
	return *dag.params.GenesisHash.LowHash()
}

// isKnownBlock returns whether the block with the given low hash exists in
// the index or the store. Callers must hold dagLock.
func (dag *BlockDAG) isKnownBlock(lowHash *daghash.Hash) (bool, error) {
	if _, ok := dag.index[*lowHash]; ok {
		return true, nil
	}
	return dbaccess.HasBlockInfo(dag.databaseContext, lowHash)
}

// SetBlockAddedListener registers a callback invoked, outside dagLock,
// whenever a block is accepted into the DAG. Used by the server to relay
// new blocks. Must be called before any block is processed.
func (dag *BlockDAG) SetBlockAddedListener(listener func(*Block)) {
	dag.blockAddedListener = listener
}

// Params returns the network parameters of the DAG.
func (dag *BlockDAG) Params() *dagconfig.Params {
	return dag.params
}

// TipHeight returns the height of the current main-chain tip.
//
// This function is safe for concurrent access.
func (dag *BlockDAG) TipHeight() uint64 {
	dag.dagLock.RLock()
	defer dag.dagLock.RUnlock()
	return dag.tip.Height
}

// TipHash returns the low hash of the current main-chain tip.
//
// This function is safe for concurrent access.
func (dag *BlockDAG) TipHash() *daghash.Hash {
	dag.dagLock.RLock()
	defer dag.dagLock.RUnlock()
	tipHash := dag.tip.HashLow
	return &tipHash
}

// BlockInfoByLowHash returns a copy of the metadata of the block with the
// given low hash, or nil when the block is unknown.
//
// This function is safe for concurrent access.
func (dag *BlockDAG) BlockInfoByLowHash(lowHash *daghash.Hash) (*BlockInfo, error) {
	dag.dagLock.Lock()
	defer dag.dagLock.Unlock()
	info, err := dag.blockInfoByLowHash(lowHash)
	if err != nil {
		if dbaccess.IsNotFoundError(err) {
			return nil, nil
		}
		return nil, err
	}
	infoCopy := *info
	return &infoCopy, nil
}

// BlockByLowHash returns the block with the given low hash, or nil when
// the block is unknown.
//
// This function is safe for concurrent access.
func (dag *BlockDAG) BlockByLowHash(lowHash *daghash.Hash) (*Block, error) {
	block, err := fetchBlock(dag.databaseContext, lowHash)
	if err != nil {
		if dbaccess.IsNotFoundError(err) {
			return nil, nil
		}
		return nil, err
	}
	return block, nil
}

// BlockBalance returns the balance of the block with the given low hash.
// Only applied blocks hold balances.
//
// This function is safe for concurrent access.
func (dag *BlockDAG) BlockBalance(lowHash *daghash.Hash) (util.Amount, error) {
	info, err := dag.BlockInfoByLowHash(lowHash)
	if err != nil {
		return 0, err
	}
	if info == nil || !info.Flags.Has(FlagApplied) {
		return 0, nil
	}
	return info.Amount, nil
}

// MainBlockHashAtHeight returns the low hash of the main block elected at
// the given height, or nil when the height is above the tip.
//
// This function is safe for concurrent access.
func (dag *BlockDAG) MainBlockHashAtHeight(height uint64) (*daghash.Hash, error) {
	lowHash, err := dbaccess.FetchMainChainBlockByHeight(dag.databaseContext, height)
	if err != nil {
		if dbaccess.IsNotFoundError(err) {
			return nil, nil
		}
		return nil, err
	}
	return lowHash, nil
}

// BlockDepth returns the depth of the block with the given low hash: for
// a main block its height; for a block whose fee a main block has
// collected (FlagMainRef), the height of that collecting main block minus
// one. It returns 0 for unknown blocks and for non-main blocks no main
// block has collected; main blocks that reach a block only through other
// blocks are not searched.
//
// This function is safe for concurrent access.
func (dag *BlockDAG) BlockDepth(lowHash *daghash.Hash) (uint64, error) {
	info, err := dag.BlockInfoByLowHash(lowHash)
	if err != nil || info == nil {
		return 0, err
	}
	if info.Flags.Has(FlagMain) || info.Height > 0 {
		return info.Height, nil
	}
	if info.Ref == nil || !info.Flags.Has(FlagMainRef) {
		return 0, nil
	}
	refInfo, err := dag.BlockInfoByLowHash(info.Ref)
	if err != nil || refInfo == nil {
		return 0, err
	}
	if refInfo.Height == 0 {
		return 0, nil
	}
	return refInfo.Height - 1, nil
}
