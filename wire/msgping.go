package wire

import (
	"io"

	"github.com/xdagger/xdagd/util/binaryserializer"
)

// MsgPing implements the Message interface and represents an xdag PING
// message. The same opcode carries the PONG reply: a peer answering a
// ping echoes the nonce back, and the sender matches it against its
// outstanding pings.
type MsgPing struct {
	// Nonce is unique per ping so that the reply can be identified.
	Nonce uint64
}

// XdagDecode decodes r into the receiver. This is part of the Message
// interface implementation.
func (msg *MsgPing) XdagDecode(r io.Reader) error {
	var err error
	msg.Nonce, err = binaryserializer.Uint64(r)
	return err
}

// XdagEncode encodes the receiver to w. This is part of the Message
// interface implementation.
func (msg *MsgPing) XdagEncode(w io.Writer) error {
	return binaryserializer.PutUint64(w, msg.Nonce)
}

// Opcode returns the protocol opcode for the message. This is part of
// the Message interface implementation.
func (msg *MsgPing) Opcode() MessageOpcode {
	return OpcodePing
}

// MaxPayloadLength returns the maximum length the payload can be for the
// receiver. This is part of the Message interface implementation.
func (msg *MsgPing) MaxPayloadLength() uint32 {
	return 8
}

// NewMsgPing returns a new xdag PING message that conforms to the Message
// interface.
func NewMsgPing(nonce uint64) *MsgPing {
	return &MsgPing{Nonce: nonce}
}
