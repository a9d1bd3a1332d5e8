package wire

import (
	"io"

	"github.com/pkg/errors"

	"github.com/xdagger/xdagd/util/binaryserializer"
	"github.com/xdagger/xdagd/util/daghash"
)

// NodeIDSize is the size of the random node identifier exchanged in the
// handshake.
const NodeIDSize = 20

// NodeID identifies a node across its connections. Two connections
// carrying the same id are duplicates.
type NodeID [NodeIDSize]byte

// MsgHello implements the Message interface and represents an xdag HELLO
// message, the first message of the handshake. The same opcode carries
// the WORLD reply: the responder answers a HELLO with its own MsgHello,
// which the session interprets as WORLD.
type MsgHello struct {
	NetworkID       uint32
	ProtocolVersion uint16
	TipLowHash      daghash.Hash
	TipHeight       uint64
	ListenPort      uint16
	NodeID          NodeID
}

// XdagDecode decodes r into the receiver. This is part of the Message
// interface implementation.
func (msg *MsgHello) XdagDecode(r io.Reader) error {
	var err error
	if msg.NetworkID, err = binaryserializer.Uint32(r); err != nil {
		return err
	}
	if msg.ProtocolVersion, err = binaryserializer.Uint16(r); err != nil {
		return err
	}
	if err := readHash(r, &msg.TipLowHash); err != nil {
		return err
	}
	if msg.TipHeight, err = binaryserializer.Uint64(r); err != nil {
		return err
	}
	if msg.ListenPort, err = binaryserializer.Uint16(r); err != nil {
		return err
	}
	_, err = io.ReadFull(r, msg.NodeID[:])
	return errors.WithStack(err)
}

// XdagEncode encodes the receiver to w. This is part of the Message
// interface implementation.
func (msg *MsgHello) XdagEncode(w io.Writer) error {
	if err := binaryserializer.PutUint32(w, msg.NetworkID); err != nil {
		return err
	}
	if err := binaryserializer.PutUint16(w, msg.ProtocolVersion); err != nil {
		return err
	}
	if err := writeHash(w, &msg.TipLowHash); err != nil {
		return err
	}
	if err := binaryserializer.PutUint64(w, msg.TipHeight); err != nil {
		return err
	}
	if err := binaryserializer.PutUint16(w, msg.ListenPort); err != nil {
		return err
	}
	_, err := w.Write(msg.NodeID[:])
	return errors.WithStack(err)
}

// Opcode returns the protocol opcode for the message. This is part of
// the Message interface implementation.
func (msg *MsgHello) Opcode() MessageOpcode {
	return OpcodeHello
}

// MaxPayloadLength returns the maximum length the payload can be for the
// receiver. This is part of the Message interface implementation.
func (msg *MsgHello) MaxPayloadLength() uint32 {
	// networkID 4 + version 2 + tip hash 32 + tip height 8 + port 2 +
	// node id 20.
	return 4 + 2 + daghash.HashSize + 8 + 2 + NodeIDSize
}

// NewMsgHello returns a new xdag HELLO message that conforms to the
// Message interface.
func NewMsgHello(networkID uint32, tipLowHash *daghash.Hash, tipHeight uint64,
	listenPort uint16, nodeID NodeID) *MsgHello {

	return &MsgHello{
		NetworkID:       networkID,
		ProtocolVersion: ProtocolVersion,
		TipLowHash:      *tipLowHash,
		TipHeight:       tipHeight,
		ListenPort:      listenPort,
		NodeID:          nodeID,
	}
}
