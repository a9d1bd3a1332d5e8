package wire

import (
	"io"

	"github.com/pkg/errors"
)

// MsgNewBlock implements the Message interface and represents an xdag
// NEW_BLOCK message: the unsolicited relay of a freshly seen block.
type MsgNewBlock struct {
	BlockBytes [BlockSize]byte
}

// XdagDecode decodes r into the receiver. This is part of the Message
// interface implementation.
func (msg *MsgNewBlock) XdagDecode(r io.Reader) error {
	_, err := io.ReadFull(r, msg.BlockBytes[:])
	return errors.WithStack(err)
}

// XdagEncode encodes the receiver to w. This is part of the Message
// interface implementation.
func (msg *MsgNewBlock) XdagEncode(w io.Writer) error {
	_, err := w.Write(msg.BlockBytes[:])
	return errors.WithStack(err)
}

// Opcode returns the protocol opcode for the message. This is part of
// the Message interface implementation.
func (msg *MsgNewBlock) Opcode() MessageOpcode {
	return OpcodeNewBlock
}

// MaxPayloadLength returns the maximum length the payload can be for the
// receiver. This is part of the Message interface implementation.
func (msg *MsgNewBlock) MaxPayloadLength() uint32 {
	return BlockSize
}

// NewMsgNewBlock returns a new xdag NEW_BLOCK message that conforms to
// the Message interface.
func NewMsgNewBlock(blockBytes []byte) (*MsgNewBlock, error) {
	if len(blockBytes) != BlockSize {
		return nil, messageError("NewMsgNewBlock", "block is not 512 bytes")
	}
	msg := &MsgNewBlock{}
	copy(msg.BlockBytes[:], blockBytes)
	return msg, nil
}
