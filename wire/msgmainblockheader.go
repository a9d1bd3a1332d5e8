package wire

import (
	"io"

	"github.com/pkg/errors"

	"github.com/xdagger/xdagd/util/binaryserializer"
	"github.com/xdagger/xdagd/util/daghash"
)

// HeaderFieldSize is the size of the header field carried in a
// MAIN_BLOCK_HEADER message.
const HeaderFieldSize = 32

// MsgMainBlockHeader implements the Message interface and represents an
// xdag MAIN_BLOCK_HEADER message. It answers GET_MAIN_BLOCK_HEADER with
// enough of the main block at the requested height for the requester to
// decide whether it needs the body: the height, the block's low hash and
// its raw header field.
type MsgMainBlockHeader struct {
	Height      uint64
	LowHash     daghash.Hash
	HeaderField [HeaderFieldSize]byte
}

// XdagDecode decodes r into the receiver. This is part of the Message
// interface implementation.
func (msg *MsgMainBlockHeader) XdagDecode(r io.Reader) error {
	var err error
	if msg.Height, err = binaryserializer.Uint64(r); err != nil {
		return err
	}
	if err := readHash(r, &msg.LowHash); err != nil {
		return err
	}
	_, err = io.ReadFull(r, msg.HeaderField[:])
	return errors.WithStack(err)
}

// XdagEncode encodes the receiver to w. This is part of the Message
// interface implementation.
func (msg *MsgMainBlockHeader) XdagEncode(w io.Writer) error {
	if err := binaryserializer.PutUint64(w, msg.Height); err != nil {
		return err
	}
	if err := writeHash(w, &msg.LowHash); err != nil {
		return err
	}
	_, err := w.Write(msg.HeaderField[:])
	return errors.WithStack(err)
}

// Opcode returns the protocol opcode for the message. This is part of
// the Message interface implementation.
func (msg *MsgMainBlockHeader) Opcode() MessageOpcode {
	return OpcodeMainBlockHeader
}

// MaxPayloadLength returns the maximum length the payload can be for the
// receiver. This is part of the Message interface implementation.
func (msg *MsgMainBlockHeader) MaxPayloadLength() uint32 {
	return 8 + daghash.HashSize + HeaderFieldSize
}

// NewMsgMainBlockHeader returns a new xdag MAIN_BLOCK_HEADER message that
// conforms to the Message interface.
func NewMsgMainBlockHeader(height uint64, lowHash *daghash.Hash, headerField []byte) *MsgMainBlockHeader {
	msg := &MsgMainBlockHeader{
		Height:  height,
		LowHash: *lowHash,
	}
	copy(msg.HeaderField[:], headerField)
	return msg
}
