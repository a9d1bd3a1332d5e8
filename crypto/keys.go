package crypto

import (
	"github.com/kaspanet/go-secp256k1"
	"github.com/pkg/errors"

	"github.com/xdagger/xdagd/util/daghash"
)

const (
	// SerializedPublicKeySize is the size of a compressed secp256k1 public
	// key: a parity byte followed by the 32-byte X coordinate.
	SerializedPublicKeySize = 33

	// PublicKeyXSize is the size of the X coordinate alone, the form public
	// keys take inside block fields (the parity rides in the field type).
	PublicKeyXSize = 32

	// SignatureSize is the size of a serialized (r, s) signature.
	SignatureSize = 64
)

// PrivateKey wraps a secp256k1 private key used to sign blocks.
type PrivateKey struct {
	key *secp256k1.ECDSAPrivateKey
}

// PublicKey wraps a secp256k1 public key used to verify block signatures.
type PublicKey struct {
	key        *secp256k1.ECDSAPublicKey
	serialized [SerializedPublicKeySize]byte
}

// Signature is a 64-byte (r, s) ECDSA signature. Xdag signatures carry no
// recovery id; verification pins the signer via the public key fields of
// the signed block instead.
type Signature [SignatureSize]byte

// GeneratePrivateKey generates a new random private key.
func GeneratePrivateKey() (*PrivateKey, error) {
	key, err := secp256k1.GenerateECDSAPrivateKey()
	if err != nil {
		return nil, errors.Wrap(err, "cannot generate private key")
	}
	return &PrivateKey{key: key}, nil
}

// DeserializePrivateKey builds a private key from its 32-byte serialized
// form.
func DeserializePrivateKey(serialized []byte) (*PrivateKey, error) {
	key, err := secp256k1.DeserializeECDSAPrivateKeyFromSlice(serialized)
	if err != nil {
		return nil, errors.Wrap(err, "cannot deserialize private key")
	}
	return &PrivateKey{key: key}, nil
}

// PublicKey returns the public key of this private key.
func (k *PrivateKey) PublicKey() (*PublicKey, error) {
	pubKey, err := k.key.ECDSAPublicKey()
	if err != nil {
		return nil, errors.Wrap(err, "cannot derive public key")
	}
	serialized, err := pubKey.Serialize()
	if err != nil {
		return nil, errors.Wrap(err, "cannot serialize public key")
	}
	result := &PublicKey{key: pubKey}
	copy(result.serialized[:], serialized[:])
	return result, nil
}

// Sign signs the given hash and returns the (r, s) signature.
func (k *PrivateKey) Sign(hash *daghash.Hash) (*Signature, error) {
	secpHash := secp256k1.Hash(*hash)
	sig, err := k.key.ECDSASign(&secpHash)
	if err != nil {
		return nil, errors.Wrap(err, "cannot sign hash")
	}
	serialized := sig.Serialize()
	result := Signature(*serialized)
	return &result, nil
}

// DeserializePublicKey builds a public key from its 33-byte compressed
// serialized form.
func DeserializePublicKey(serialized []byte) (*PublicKey, error) {
	if len(serialized) != SerializedPublicKeySize {
		return nil, errors.Errorf("invalid public key length of %d, want %d",
			len(serialized), SerializedPublicKeySize)
	}
	key, err := secp256k1.DeserializeECDSAPubKey(serialized)
	if err != nil {
		return nil, errors.Wrap(err, "cannot deserialize public key")
	}
	result := &PublicKey{key: key}
	copy(result.serialized[:], serialized)
	return result, nil
}

// DeserializePublicKeyX builds a public key from its 32-byte X coordinate
// and the parity of its Y coordinate.
func DeserializePublicKeyX(x []byte, oddY bool) (*PublicKey, error) {
	if len(x) != PublicKeyXSize {
		return nil, errors.Errorf("invalid public key X length of %d, want %d",
			len(x), PublicKeyXSize)
	}
	var serialized [SerializedPublicKeySize]byte
	if oddY {
		serialized[0] = 0x03
	} else {
		serialized[0] = 0x02
	}
	copy(serialized[1:], x)
	return DeserializePublicKey(serialized[:])
}

// Verify reports whether sig is a valid signature of hash by this public
// key.
func (k *PublicKey) Verify(hash *daghash.Hash, sig *Signature) bool {
	secpHash := secp256k1.Hash(*hash)
	serialized := secp256k1.SerializedECDSASignature(*sig)
	signature, err := secp256k1.DeserializeECDSASignature(&serialized)
	if err != nil {
		return false
	}
	return k.key.ECDSAVerify(&secpHash, signature)
}

// Serialize returns the compressed 33-byte form of the public key.
func (k *PublicKey) Serialize() []byte {
	serialized := k.serialized
	return serialized[:]
}

// X returns the 32-byte X coordinate of the public key.
func (k *PublicKey) X() []byte {
	return k.serialized[1:]
}

// OddY reports whether the public key's Y coordinate is odd.
func (k *PublicKey) OddY() bool {
	return k.serialized[0] == 0x03
}

// Hash160 returns the ripemd160-over-sha256 commitment of the compressed
// public key.
func (k *PublicKey) Hash160() []byte {
	return Hash160(k.Serialize())
}

// Serialize returns the raw 64 signature bytes.
func (s *Signature) Serialize() []byte {
	return s[:]
}

// DeserializeSignature builds a Signature from the r and s halves as they
// appear in consecutive block fields.
func DeserializeSignature(r, s []byte) (*Signature, error) {
	if len(r) != SignatureSize/2 || len(s) != SignatureSize/2 {
		return nil, errors.Errorf("invalid signature half lengths %d/%d, want %d",
			len(r), len(s), SignatureSize/2)
	}
	var sig Signature
	copy(sig[:SignatureSize/2], r)
	copy(sig[SignatureSize/2:], s)
	return &sig, nil
}
