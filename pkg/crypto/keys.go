// keys.go implements X25519 Elliptic Curve Diffie-Hellman operations.
//
// X25519 (RFC 7748) is an elliptic curve Diffie-Hellman function using
// Curve25519. Every device holds a long-lived keypair; pairing exchanges
// public keys and each side derives the same 32-byte shared secret, which
// keys the per-peer secure channel.
//
// Security Properties:
//   - Constant-time Montgomery ladder (no timing side-channels)
//   - Low-order peer points are rejected: the all-zero shared secret check
//     is performed by the underlying implementation
//
// The shared secret is used directly as the ChaCha20 channel key. Both peers
// of a link derive byte-identical secrets, so no KDF round-trip is applied.
package crypto

import (
	"github.com/cloudflare/circl/dh/x25519"

	"github.com/pierrejay/radiolink-go/internal/constants"
	rlerrors "github.com/pierrejay/radiolink-go/internal/errors"
)

// KeySize is the byte length of public, private and shared keys.
const KeySize = constants.KeySize

// GenerateKeyPair generates a new X25519 keypair from the system CSPRNG.
//
// The private scalar is clamped per RFC 7748 by the underlying
// implementation. Returns an error only if the CSPRNG fails.
func GenerateKeyPair() (publicKey, privateKey [KeySize]byte, err error) {
	var pub, priv x25519.Key
	if err = SecureRandom(priv[:]); err != nil {
		return publicKey, privateKey, rlerrors.NewCryptoError("GenerateKeyPair", err)
	}
	x25519.KeyGen(&pub, &priv)
	copy(publicKey[:], pub[:])
	copy(privateKey[:], priv[:])
	return publicKey, privateKey, nil
}

// PublicKeyFromPrivate recomputes the public key for a 32-byte private key.
// This is deterministic: the same private key always yields the same public key.
func PublicKeyFromPrivate(privateKey []byte) ([KeySize]byte, error) {
	var pub, priv x25519.Key
	if len(privateKey) != KeySize {
		return [KeySize]byte{}, rlerrors.ErrInvalidKeySize
	}
	copy(priv[:], privateKey)
	x25519.KeyGen(&pub, &priv)
	var out [KeySize]byte
	copy(out[:], pub[:])
	return out, nil
}

// SharedSecret performs the X25519 Diffie-Hellman computation.
//
// Parameters:
//   - privateKey: the local 32-byte private key
//   - peerPublic: the peer's 32-byte public key
//
// Returns ErrKeyDerivationFailed when the peer public key is a low-order
// point, in which case the result would be the all-zero string and must not
// be used as key material.
func SharedSecret(privateKey, peerPublic []byte) ([KeySize]byte, error) {
	var shared, priv, pub x25519.Key
	if len(privateKey) != KeySize || len(peerPublic) != KeySize {
		return [KeySize]byte{}, rlerrors.ErrInvalidKeySize
	}
	copy(priv[:], privateKey)
	copy(pub[:], peerPublic)

	if ok := x25519.Shared(&shared, &priv, &pub); !ok {
		return [KeySize]byte{}, rlerrors.ErrKeyDerivationFailed
	}

	var out [KeySize]byte
	copy(out[:], shared[:])
	return out, nil
}
