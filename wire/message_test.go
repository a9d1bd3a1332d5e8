package wire

import (
	"bytes"
	"io"
	"reflect"
	"testing"

	"github.com/davecgh/go-spew/spew"

	"github.com/xdagger/xdagd/util/daghash"
)

func testHash() *daghash.Hash {
	hash := &daghash.Hash{}
	for i := daghash.TagSize; i < daghash.HashSize; i++ {
		hash[i] = byte(i * 3)
	}
	return hash
}

func testNodeID() NodeID {
	var id NodeID
	for i := range id {
		id[i] = byte(i + 1)
	}
	return id
}

func testBlockBytes() []byte {
	blockBytes := make([]byte, BlockSize)
	for i := range blockBytes {
		blockBytes[i] = byte(i)
	}
	return blockBytes
}

// TestMessageRoundTrip wire-encodes and re-decodes one message of every
// opcode and expects structural identity.
func TestMessageRoundTrip(t *testing.T) {
	mainBlock, err := NewMsgMainBlock(testBlockBytes())
	if err != nil {
		t.Fatalf("NewMsgMainBlock unexpectedly failed: %s", err)
	}
	newBlock, err := NewMsgNewBlock(testBlockBytes())
	if err != nil {
		t.Fatalf("NewMsgNewBlock unexpectedly failed: %s", err)
	}

	tests := []Message{
		NewMsgDisconnect(DisconnectMessageQueueFull),
		NewMsgHello(0x58444147, testHash(), 12345, 13656, testNodeID()),
		NewMsgPing(0xdeadbeefcafe),
		mainBlock,
		NewMsgGetMainBlock(testHash()),
		NewMsgMainBlockHeader(77, testHash(), testBlockBytes()[:HeaderFieldSize]),
		NewMsgGetMainBlockHeader(78),
		newBlock,
	}

	for _, msg := range tests {
		var buffer bytes.Buffer
		if err := WriteMessage(&buffer, msg); err != nil {
			t.Errorf("%s: WriteMessage unexpectedly failed: %s", msg.Opcode(), err)
			continue
		}

		decoded, err := ReadMessage(&buffer)
		if err != nil {
			t.Errorf("%s: ReadMessage unexpectedly failed: %s", msg.Opcode(), err)
			continue
		}
		if !reflect.DeepEqual(decoded, msg) {
			t.Errorf("%s: message changed across the wire - got %s, want %s",
				msg.Opcode(), spew.Sdump(decoded), spew.Sdump(msg))
		}
	}
}

// TestFrameLayout pins the frame format: 4-byte big-endian length that
// covers the opcode plus body, then the opcode, then the body.
func TestFrameLayout(t *testing.T) {
	var buffer bytes.Buffer
	if err := WriteMessage(&buffer, NewMsgPing(1)); err != nil {
		t.Fatalf("WriteMessage unexpectedly failed: %s", err)
	}
	frame := buffer.Bytes()
	if len(frame) != 4+1+8 {
		t.Fatalf("ping frame is %d bytes, want 13", len(frame))
	}
	if !bytes.Equal(frame[:4], []byte{0x00, 0x00, 0x00, 0x09}) {
		t.Fatalf("frame length prefix is % x, want 00 00 00 09", frame[:4])
	}
	if frame[4] != byte(OpcodePing) {
		t.Fatalf("frame opcode is %#02x, want %#02x", frame[4], byte(OpcodePing))
	}
	// The nonce is little-endian in the body.
	if !bytes.Equal(frame[5:], []byte{1, 0, 0, 0, 0, 0, 0, 0}) {
		t.Fatalf("frame body is % x, want nonce 1 little-endian", frame[5:])
	}
}

// TestReadMessageRejects exercises the framing error paths.
func TestReadMessageRejects(t *testing.T) {
	tests := []struct {
		name  string
		frame []byte
	}{
		{name: "empty frame", frame: []byte{0x00, 0x00, 0x00, 0x00}},
		{name: "unknown opcode", frame: []byte{0x00, 0x00, 0x00, 0x01, 0xee}},
		{
			name: "oversized payload for opcode",
			// A DISCONNECT with a 100-byte body.
			frame: append([]byte{0x00, 0x00, 0x00, 0x65, 0x00}, make([]byte, 100)...),
		},
		{
			name:  "huge declared length",
			frame: []byte{0xff, 0xff, 0xff, 0xff, 0x02},
		},
	}
	for _, test := range tests {
		_, err := ReadMessage(bytes.NewReader(test.frame))
		if err == nil {
			t.Errorf("%s: ReadMessage unexpectedly succeeded", test.name)
		}
	}

	// A truncated body surfaces as an io error, not a panic.
	truncated := []byte{0x00, 0x00, 0x00, 0x09, byte(OpcodePing), 0x01}
	if _, err := ReadMessage(bytes.NewReader(truncated)); err == nil {
		t.Error("truncated frame unexpectedly decoded")
	}

	// EOF at the frame boundary is a clean io.EOF condition.
	_, err := ReadMessage(bytes.NewReader(nil))
	if err == nil {
		t.Error("empty stream unexpectedly decoded")
	} else if !errorsIsEOF(err) {
		t.Errorf("empty stream returned %v, want io.EOF", err)
	}
}

func errorsIsEOF(err error) bool {
	for err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = unwrapper.Unwrap()
	}
	return false
}
