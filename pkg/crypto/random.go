// Package crypto provides the cryptographic primitives for the radiolink
// secure link layer: X25519 key agreement and CSPRNG helpers.
//
// Security Note: All random number generation uses crypto/rand which provides
// cryptographically secure random bytes from the operating system's CSPRNG.
// No package-level key state is kept; callers own all key material.
package crypto

import (
	"crypto/rand"
	"io"

	rlerrors "github.com/pierrejay/radiolink-go/internal/errors"
)

// Reader is the entropy source for key generation and nonce IVs. It defaults
// to the OS CSPRNG and is a variable only so tests can substitute a
// deterministic stream.
var Reader io.Reader = rand.Reader

// SecureRandom reads cryptographically secure random bytes into the provided
// slice. It returns an error only if the entropy source fails, which should
// be treated as a critical system failure.
func SecureRandom(b []byte) error {
	_, err := io.ReadFull(Reader, b)
	if err != nil {
		return rlerrors.NewCryptoError("SecureRandom", err)
	}
	return nil
}

// SecureRandomBytes returns n cryptographically secure random bytes.
func SecureRandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if err := SecureRandom(b); err != nil {
		return nil, err
	}
	return b, nil
}

// MustSecureRandomBytes returns n cryptographically secure random bytes and
// panics if the entropy source fails.
//
// Use only in contexts where CSPRNG failure should be unrecoverable.
func MustSecureRandomBytes(n int) []byte {
	b := make([]byte, n)
	if err := SecureRandom(b); err != nil {
		panic("crypto: failed to read from CSPRNG: " + err.Error())
	}
	return b
}
