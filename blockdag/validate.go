package blockdag

import (
	"math"

	"github.com/xdagger/xdagd/crypto"
	"github.com/xdagger/xdagd/util/daghash"
	"github.com/xdagger/xdagd/util/mstime"
)

// checkBlockSanity performs the context-free admission checks: the field
// composition was already validated at decode time, so what remains is
// the timestamp policy.
func (dag *BlockDAG) checkBlockSanity(block *Block) error {
	maxTimestamp := dag.timeSource.Now().Add(maxFutureBlockTime)
	if block.Timestamp() > mstime.TimeToUnixMilli(maxTimestamp) {
		return ruleError(ErrTimestampTooNew, "block timestamp of %d is too "+
			"far in the future", block.Timestamp())
	}
	return nil
}

// checkLinkedTimestamps enforces the structural acyclicity rule: every
// link must reference a block whose timestamp strictly precedes the
// referrer's.
func (dag *BlockDAG) checkLinkedTimestamps(block *Block, linkedInfos map[daghash.Hash]*BlockInfo) error {
	for linkHash, linked := range linkedInfos {
		if linked.Timestamp >= block.Timestamp() {
			return ruleError(ErrTimestampOrder, "link %s has timestamp %d, "+
				"not before referrer's %d", linkHash, linked.Timestamp,
				block.Timestamp())
		}
	}
	return nil
}

// checkSignatures verifies the block's signatures:
//
// Every input link moving a non-zero amount must be authorized: some
// in-signature of the block must verify under a public key declared by
// the linked block, pinning the signer to the spent output. Zero-amount
// links are pure topology references and need no authorization.
//
// A block carrying out-signatures must verify under one of its own
// declared public keys: the self-binding signature of an address block.
func (dag *BlockDAG) checkSignatures(block *Block, linkedBlocks map[daghash.Hash]*Block) error {
	signableHash := block.SignableHash()
	inSignatures := block.InSignatures()

	for _, link := range block.InputLinks() {
		if link.Amount == 0 {
			continue
		}
		linkedBlock := linkedBlocks[link.LowHash]
		if !anySignatureVerifies(signableHash, inSignatures, linkedBlock.PublicKeys()) {
			return ruleError(ErrBadSignature, "input %s is not authorized by "+
				"any key of the linked block", link.LowHash)
		}
	}

	outSignatures := block.OutSignatures()
	if len(outSignatures) > 0 {
		if !anySignatureVerifies(signableHash, outSignatures, block.PublicKeys()) {
			return ruleError(ErrBadSignature, "out-signature does not verify "+
				"under any key the block declares")
		}
	}
	return nil
}

// anySignatureVerifies returns true when any of the signatures verifies
// under any of the keys.
func anySignatureVerifies(hash *daghash.Hash, signatures []*crypto.Signature, keys []*crypto.PublicKey) bool {
	for _, sig := range signatures {
		for _, key := range keys {
			if key.Verify(hash, sig) {
				return true
			}
		}
	}
	return false
}

// checkAmounts validates the block's value flow: inputs and outputs must
// each sum without overflow, and outputs must not exceed inputs. The
// difference is the block's fee.
func checkAmounts(block *Block) (fee uint64, err error) {
	var sumIn, sumOut uint64
	for _, link := range block.Links() {
		amount := uint64(link.Amount)
		if link.IsInput() {
			if sumIn > math.MaxUint64-amount {
				return 0, ruleError(ErrAmountOverflow, "input amounts overflow")
			}
			sumIn += amount
		} else {
			if sumOut > math.MaxUint64-amount {
				return 0, ruleError(ErrAmountOverflow, "output amounts overflow")
			}
			sumOut += amount
		}
	}
	if sumOut > sumIn {
		return 0, ruleError(ErrOutputsExceedInputs, "outputs total %d exceeds "+
			"inputs total %d", sumOut, sumIn)
	}
	return sumIn - sumOut, nil
}
