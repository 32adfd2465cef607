package crypto_test

import (
	"bytes"
	"testing"

	rlerrors "github.com/pierrejay/radiolink-go/internal/errors"
	"github.com/pierrejay/radiolink-go/pkg/crypto"
)

func TestGenerateKeyPair(t *testing.T) {
	pub, priv, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair failed: %v", err)
	}

	var zero [crypto.KeySize]byte
	if pub == zero {
		t.Error("public key is all zeros")
	}
	if priv == zero {
		t.Error("private key is all zeros")
	}

	pub2, priv2, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair failed: %v", err)
	}
	if pub == pub2 || priv == priv2 {
		t.Error("two generated keypairs are identical")
	}
}

func TestPublicKeyFromPrivate(t *testing.T) {
	pub, priv, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair failed: %v", err)
	}

	recomputed, err := crypto.PublicKeyFromPrivate(priv[:])
	if err != nil {
		t.Fatalf("PublicKeyFromPrivate failed: %v", err)
	}
	if recomputed != pub {
		t.Error("recomputed public key differs from generated one")
	}

	if _, err := crypto.PublicKeyFromPrivate(priv[:16]); err == nil {
		t.Error("expected error for short private key")
	}
}

func TestSharedSecretSymmetry(t *testing.T) {
	alicePub, alicePriv, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair failed: %v", err)
	}
	bobPub, bobPriv, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair failed: %v", err)
	}

	aliceShared, err := crypto.SharedSecret(alicePriv[:], bobPub[:])
	if err != nil {
		t.Fatalf("SharedSecret failed: %v", err)
	}
	bobShared, err := crypto.SharedSecret(bobPriv[:], alicePub[:])
	if err != nil {
		t.Fatalf("SharedSecret failed: %v", err)
	}

	if !bytes.Equal(aliceShared[:], bobShared[:]) {
		t.Error("shared secrets differ between the two sides")
	}
}

func TestSharedSecretRejectsLowOrderPoint(t *testing.T) {
	_, priv, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair failed: %v", err)
	}

	// The all-zero public key is a low-order point; the shared secret
	// would be all zeros and must be rejected.
	lowOrder := make([]byte, crypto.KeySize)
	if _, err := crypto.SharedSecret(priv[:], lowOrder); err == nil {
		t.Fatal("expected derivation failure for low-order point")
	} else if !rlerrors.Is(err, rlerrors.ErrKeyDerivationFailed) {
		t.Errorf("got %v, want ErrKeyDerivationFailed", err)
	}
}

func TestSharedSecretKeySizes(t *testing.T) {
	_, priv, _ := crypto.GenerateKeyPair()
	pub, _, _ := crypto.GenerateKeyPair()

	cases := []struct {
		name string
		priv []byte
		pub  []byte
	}{
		{"short private", priv[:31], pub[:]},
		{"short public", priv[:], pub[:31]},
		{"nil private", nil, pub[:]},
		{"nil public", priv[:], nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := crypto.SharedSecret(tc.priv, tc.pub); !rlerrors.Is(err, rlerrors.ErrInvalidKeySize) {
				t.Errorf("got %v, want ErrInvalidKeySize", err)
			}
		})
	}
}

func TestSecureRandomBytes(t *testing.T) {
	a, err := crypto.SecureRandomBytes(32)
	if err != nil {
		t.Fatalf("SecureRandomBytes failed: %v", err)
	}
	b, err := crypto.SecureRandomBytes(32)
	if err != nil {
		t.Fatalf("SecureRandomBytes failed: %v", err)
	}
	if len(a) != 32 || len(b) != 32 {
		t.Fatalf("wrong lengths: %d, %d", len(a), len(b))
	}
	if bytes.Equal(a, b) {
		t.Error("two random reads are identical")
	}
}
