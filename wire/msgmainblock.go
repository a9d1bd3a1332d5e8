package wire

import (
	"io"

	"github.com/pkg/errors"
)

// BlockSize is the exact size of a serialized block on the wire.
const BlockSize = 512

// MsgMainBlock implements the Message interface and represents an xdag
// MAIN_BLOCK message. It answers a GET_MAIN_BLOCK request with the raw
// 512 bytes of the requested block.
type MsgMainBlock struct {
	BlockBytes [BlockSize]byte
}

// XdagDecode decodes r into the receiver. This is part of the Message
// interface implementation.
func (msg *MsgMainBlock) XdagDecode(r io.Reader) error {
	_, err := io.ReadFull(r, msg.BlockBytes[:])
	return errors.WithStack(err)
}

// XdagEncode encodes the receiver to w. This is part of the Message
// interface implementation.
func (msg *MsgMainBlock) XdagEncode(w io.Writer) error {
	_, err := w.Write(msg.BlockBytes[:])
	return errors.WithStack(err)
}

// Opcode returns the protocol opcode for the message. This is part of
// the Message interface implementation.
func (msg *MsgMainBlock) Opcode() MessageOpcode {
	return OpcodeMainBlock
}

// MaxPayloadLength returns the maximum length the payload can be for the
// receiver. This is part of the Message interface implementation.
func (msg *MsgMainBlock) MaxPayloadLength() uint32 {
	return BlockSize
}

// NewMsgMainBlock returns a new xdag MAIN_BLOCK message that conforms to
// the Message interface.
func NewMsgMainBlock(blockBytes []byte) (*MsgMainBlock, error) {
	if len(blockBytes) != BlockSize {
		return nil, messageError("NewMsgMainBlock", "block is not 512 bytes")
	}
	msg := &MsgMainBlock{}
	copy(msg.BlockBytes[:], blockBytes)
	return msg, nil
}
