package wire

import (
	"io"

	"github.com/xdagger/xdagd/util/binaryserializer"
)

// MsgGetMainBlockHeader implements the Message interface and represents
// an xdag GET_MAIN_BLOCK_HEADER message. It requests the header of the
// main block at the given height; the expected reply is
// MAIN_BLOCK_HEADER.
type MsgGetMainBlockHeader struct {
	Height uint64
}

// XdagDecode decodes r into the receiver. This is part of the Message
// interface implementation.
func (msg *MsgGetMainBlockHeader) XdagDecode(r io.Reader) error {
	var err error
	msg.Height, err = binaryserializer.Uint64(r)
	return err
}

// XdagEncode encodes the receiver to w. This is part of the Message
// interface implementation.
func (msg *MsgGetMainBlockHeader) XdagEncode(w io.Writer) error {
	return binaryserializer.PutUint64(w, msg.Height)
}

// Opcode returns the protocol opcode for the message. This is part of
// the Message interface implementation.
func (msg *MsgGetMainBlockHeader) Opcode() MessageOpcode {
	return OpcodeGetMainBlockHeader
}

// MaxPayloadLength returns the maximum length the payload can be for the
// receiver. This is part of the Message interface implementation.
func (msg *MsgGetMainBlockHeader) MaxPayloadLength() uint32 {
	return 8
}

// NewMsgGetMainBlockHeader returns a new xdag GET_MAIN_BLOCK_HEADER
// message that conforms to the Message interface.
func NewMsgGetMainBlockHeader(height uint64) *MsgGetMainBlockHeader {
	return &MsgGetMainBlockHeader{Height: height}
}
