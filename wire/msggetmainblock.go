package wire

import (
	"io"

	"github.com/xdagger/xdagd/util/daghash"
)

// MsgGetMainBlock implements the Message interface and represents an xdag
// GET_MAIN_BLOCK message. It requests the block with the given low hash;
// the expected reply is MAIN_BLOCK.
type MsgGetMainBlock struct {
	LowHash daghash.Hash
}

// XdagDecode decodes r into the receiver. This is part of the Message
// interface implementation.
func (msg *MsgGetMainBlock) XdagDecode(r io.Reader) error {
	return readHash(r, &msg.LowHash)
}

// XdagEncode encodes the receiver to w. This is part of the Message
// interface implementation.
func (msg *MsgGetMainBlock) XdagEncode(w io.Writer) error {
	return writeHash(w, &msg.LowHash)
}

// Opcode returns the protocol opcode for the message. This is part of
// the Message interface implementation.
func (msg *MsgGetMainBlock) Opcode() MessageOpcode {
	return OpcodeGetMainBlock
}

// MaxPayloadLength returns the maximum length the payload can be for the
// receiver. This is part of the Message interface implementation.
func (msg *MsgGetMainBlock) MaxPayloadLength() uint32 {
	return daghash.HashSize
}

// NewMsgGetMainBlock returns a new xdag GET_MAIN_BLOCK message that
// conforms to the Message interface.
func NewMsgGetMainBlock(lowHash *daghash.Hash) *MsgGetMainBlock {
	return &MsgGetMainBlock{LowHash: *lowHash}
}
