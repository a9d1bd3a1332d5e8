package util

import (
	"github.com/btcsuite/btcutil/base58"
	"github.com/pkg/errors"
)

// hash160Size is the size of the RIPEMD-160-over-SHA-256 digest an address
// commits to.
const hash160Size = 20

// EncodeAddress returns the base58check address for the given public key
// hash and network address version byte.
func EncodeAddress(pubKeyHash []byte, version byte) (string, error) {
	if len(pubKeyHash) != hash160Size {
		return "", errors.Errorf("invalid public key hash length of %d, want %d",
			len(pubKeyHash), hash160Size)
	}
	return base58.CheckEncode(pubKeyHash, version), nil
}

// DecodeAddress parses a base58check address and returns the public key
// hash it commits to. An error is returned when the checksum does not match
// or the version byte differs from the active network's.
func DecodeAddress(address string, version byte) ([]byte, error) {
	decoded, decodedVersion, err := base58.CheckDecode(address)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot decode address %s", address)
	}
	if decodedVersion != version {
		return nil, errors.Errorf("address %s is for a different network: "+
			"version %d, want %d", address, decodedVersion, version)
	}
	if len(decoded) != hash160Size {
		return nil, errors.Errorf("decoded address %s has invalid length %d",
			address, len(decoded))
	}
	return decoded, nil
}
