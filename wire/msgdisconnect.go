package wire

import (
	"fmt"
	"io"

	"github.com/xdagger/xdagd/util/binaryserializer"
)

// DisconnectReason explains why a peer is being dropped. The values are
// stable protocol identifiers.
type DisconnectReason uint8

// Disconnect reasons.
const (
	DisconnectTimeout          DisconnectReason = 0
	DisconnectBadProtocol      DisconnectReason = 1
	DisconnectBadNetwork       DisconnectReason = 2
	DisconnectDuplicatedPeerID DisconnectReason = 3
	DisconnectMessageQueueFull DisconnectReason = 4
	DisconnectAlreadyConnected DisconnectReason = 5
	DisconnectInvalidHandshake DisconnectReason = 6
	DisconnectUnexpectedMsg    DisconnectReason = 7
)

var disconnectReasonStrings = map[DisconnectReason]string{
	DisconnectTimeout:          "TIMEOUT",
	DisconnectBadProtocol:      "BAD_PROTOCOL",
	DisconnectBadNetwork:       "BAD_NETWORK",
	DisconnectDuplicatedPeerID: "DUPLICATED_PEER_ID",
	DisconnectMessageQueueFull: "MESSAGE_QUEUE_FULL",
	DisconnectAlreadyConnected: "ALREADY_CONNECTED",
	DisconnectInvalidHandshake: "INVALID_HANDSHAKE",
	DisconnectUnexpectedMsg:    "UNEXPECTED_MESSAGE",
}

// String returns the reason's protocol name.
func (reason DisconnectReason) String() string {
	if s, ok := disconnectReasonStrings[reason]; ok {
		return s
	}
	return fmt.Sprintf("Unknown reason (%d)", uint8(reason))
}

// MsgDisconnect implements the Message interface and represents an xdag
// DISCONNECT message. It tells the remote peer why the connection is
// being closed; no reply is expected.
type MsgDisconnect struct {
	Reason DisconnectReason
}

// XdagDecode decodes r into the receiver. This is part of the Message
// interface implementation.
func (msg *MsgDisconnect) XdagDecode(r io.Reader) error {
	reason, err := binaryserializer.Uint8(r)
	if err != nil {
		return err
	}
	msg.Reason = DisconnectReason(reason)
	return nil
}

// XdagEncode encodes the receiver to w. This is part of the Message
// interface implementation.
func (msg *MsgDisconnect) XdagEncode(w io.Writer) error {
	return binaryserializer.PutUint8(w, uint8(msg.Reason))
}

// Opcode returns the protocol opcode for the message. This is part of
// the Message interface implementation.
func (msg *MsgDisconnect) Opcode() MessageOpcode {
	return OpcodeDisconnect
}

// MaxPayloadLength returns the maximum length the payload can be for the
// receiver. This is part of the Message interface implementation.
func (msg *MsgDisconnect) MaxPayloadLength() uint32 {
	return 1
}

// NewMsgDisconnect returns a new xdag DISCONNECT message that conforms to
// the Message interface.
func NewMsgDisconnect(reason DisconnectReason) *MsgDisconnect {
	return &MsgDisconnect{Reason: reason}
}
