package util_test

import (
	"bytes"
	"testing"

	"github.com/xdagger/xdagd/util"
)

func TestAddressRoundTrip(t *testing.T) {
	pubKeyHash := make([]byte, 20)
	for i := range pubKeyHash {
		pubKeyHash[i] = byte(i * 7)
	}
	const version = 0x16

	address, err := util.EncodeAddress(pubKeyHash, version)
	if err != nil {
		t.Fatalf("EncodeAddress unexpectedly failed: %s", err)
	}
	decoded, err := util.DecodeAddress(address, version)
	if err != nil {
		t.Fatalf("DecodeAddress unexpectedly failed: %s", err)
	}
	if !bytes.Equal(decoded, pubKeyHash) {
		t.Fatalf("address round trip changed the hash: %x != %x", decoded, pubKeyHash)
	}

	// A different network version is refused.
	if _, err := util.DecodeAddress(address, version+1); err == nil {
		t.Fatal("DecodeAddress accepted an address from another network")
	}

	// A corrupted checksum is refused.
	corrupted := []byte(address)
	corrupted[len(corrupted)-1] ^= 0x01
	if _, err := util.DecodeAddress(string(corrupted), version); err == nil {
		t.Fatal("DecodeAddress accepted a corrupted address")
	}

	// Wrong hash sizes are refused at encode time.
	if _, err := util.EncodeAddress(pubKeyHash[:19], version); err == nil {
		t.Fatal("EncodeAddress accepted a 19-byte hash")
	}
}
