// Package wire implements the xdag wire protocol: a length-prefixed
// binary framing and one message variant per opcode.
package wire

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pkg/errors"

	"github.com/xdagger/xdagd/util/binaryserializer"
)

// MessageOpcode is the single-byte opcode identifying a wire message.
type MessageOpcode uint8

// Wire opcodes. The values are stable protocol identifiers.
const (
	OpcodeDisconnect         MessageOpcode = 0x00
	OpcodeHello              MessageOpcode = 0x01
	OpcodePing               MessageOpcode = 0x02
	OpcodeMainBlock          MessageOpcode = 0x10
	OpcodeGetMainBlock       MessageOpcode = 0x11
	OpcodeMainBlockHeader    MessageOpcode = 0x12
	OpcodeGetMainBlockHeader MessageOpcode = 0x13
	OpcodeNewBlock           MessageOpcode = 0x20
)

var opcodeStrings = map[MessageOpcode]string{
	OpcodeDisconnect:         "DISCONNECT",
	OpcodeHello:              "HELLO",
	OpcodePing:               "PING",
	OpcodeMainBlock:          "MAIN_BLOCK",
	OpcodeGetMainBlock:       "GET_MAIN_BLOCK",
	OpcodeMainBlockHeader:    "MAIN_BLOCK_HEADER",
	OpcodeGetMainBlockHeader: "GET_MAIN_BLOCK_HEADER",
	OpcodeNewBlock:           "NEW_BLOCK",
}

// String returns the opcode's protocol name.
func (op MessageOpcode) String() string {
	if s, ok := opcodeStrings[op]; ok {
		return s
	}
	return fmt.Sprintf("Unknown opcode (%#02x)", uint8(op))
}

const (
	// ProtocolVersion is the latest protocol version this package
	// supports.
	ProtocolVersion uint16 = 1

	// MaxMessagePayload is the maximum bytes a message body can be
	// regardless of opcode.
	MaxMessagePayload = 1024 * 1024

	// frameHeaderSize is the size of the frame prefix: a big-endian
	// length followed by the opcode.
	frameHeaderSize = 4 + 1
)

// Message is the interface every wire message implements. Dispatch is a
// switch on Opcode; there is no message class hierarchy.
type Message interface {
	XdagDecode(r io.Reader) error
	XdagEncode(w io.Writer) error
	Opcode() MessageOpcode
	MaxPayloadLength() uint32
}

// makeEmptyMessage creates a message of the appropriate concrete type
// based on the opcode.
func makeEmptyMessage(opcode MessageOpcode) (Message, error) {
	switch opcode {
	case OpcodeDisconnect:
		return &MsgDisconnect{}, nil
	case OpcodeHello:
		return &MsgHello{}, nil
	case OpcodePing:
		return &MsgPing{}, nil
	case OpcodeMainBlock:
		return &MsgMainBlock{}, nil
	case OpcodeGetMainBlock:
		return &MsgGetMainBlock{}, nil
	case OpcodeMainBlockHeader:
		return &MsgMainBlockHeader{}, nil
	case OpcodeGetMainBlockHeader:
		return &MsgGetMainBlockHeader{}, nil
	case OpcodeNewBlock:
		return &MsgNewBlock{}, nil
	default:
		return nil, messageError("makeEmptyMessage", fmt.Sprintf(
			"unhandled opcode %#02x", uint8(opcode)))
	}
}

// WriteMessage writes a Message to w as one frame:
// [4-byte length BE | 1-byte opcode | body]. The length covers the opcode
// and the body.
func WriteMessage(w io.Writer, msg Message) error {
	body, err := encodeMessageBody(msg)
	if err != nil {
		return err
	}
	if uint32(len(body)) > msg.MaxPayloadLength() {
		return messageError("WriteMessage", fmt.Sprintf(
			"message %s payload is %d bytes, max %d", msg.Opcode(),
			len(body), msg.MaxPayloadLength()))
	}

	var header [frameHeaderSize]byte
	frameLength := uint32(len(body) + 1)
	header[0] = byte(frameLength >> 24)
	header[1] = byte(frameLength >> 16)
	header[2] = byte(frameLength >> 8)
	header[3] = byte(frameLength)
	header[4] = byte(msg.Opcode())

	if _, err := w.Write(header[:]); err != nil {
		return errors.WithStack(err)
	}
	if len(body) > 0 {
		if _, err := w.Write(body); err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}

func encodeMessageBody(msg Message) ([]byte, error) {
	var buffer bytes.Buffer
	if err := msg.XdagEncode(&buffer); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

// ReadMessage reads, validates and parses the next Message from r.
func ReadMessage(r io.Reader) (Message, error) {
	var header [frameHeaderSize]byte
	if _, err := io.ReadFull(r, header[:4]); err != nil {
		return nil, errors.WithStack(err)
	}
	frameLength := uint32(header[0])<<24 | uint32(header[1])<<16 |
		uint32(header[2])<<8 | uint32(header[3])
	if frameLength == 0 {
		return nil, messageError("ReadMessage", "frame with no opcode")
	}
	if frameLength-1 > MaxMessagePayload {
		return nil, messageError("ReadMessage", fmt.Sprintf(
			"frame payload of %d bytes exceeds max %d", frameLength-1,
			MaxMessagePayload))
	}

	opcodeByte, err := binaryserializer.Uint8(r)
	if err != nil {
		return nil, err
	}
	opcode := MessageOpcode(opcodeByte)

	msg, err := makeEmptyMessage(opcode)
	if err != nil {
		return nil, err
	}
	bodyLength := frameLength - 1
	if bodyLength > msg.MaxPayloadLength() {
		return nil, messageError("ReadMessage", fmt.Sprintf(
			"message %s payload is %d bytes, max %d", opcode, bodyLength,
			msg.MaxPayloadLength()))
	}

	body := make([]byte, bodyLength)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, errors.WithStack(err)
	}
	if err := msg.XdagDecode(bytes.NewReader(body)); err != nil {
		return nil, err
	}
	return msg, nil
}
