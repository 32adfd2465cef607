// securechannel.go implements the per-peer encrypted channel.
//
// Nonce Construction:
//
//	+----------------+---------------------+
//	| Random IV      | Send counter        |
//	| 8 bytes        | 4 bytes LE          |
//	+----------------+---------------------+
//
// The counter increments for every encrypted message and travels in clear
// inside the nonce. The receiver keeps the highest counter seen and rejects
// anything at or below it, so a captured ciphertext decrypts at most once.
// The stream cipher provides confidentiality and replay resistance only;
// there is no authentication tag on this link.
//
// Counters reset whenever the key changes and are not persisted, so a reboot
// reopens a replay window bounded by the peer's previous send counter.
// Deployments that care should re-pair on boot.
package link

import (
	"encoding/binary"
	"io"
	"math"

	"golang.org/x/crypto/chacha20"

	"github.com/pierrejay/radiolink-go/internal/constants"
	rlerrors "github.com/pierrejay/radiolink-go/internal/errors"
	"github.com/pierrejay/radiolink-go/pkg/crypto"
)

// SecureChannel encrypts and decrypts traffic for one paired peer.
//
// The zero value is usable with an all-zero key; SetKey installs real key
// material once pairing derives it.
type SecureChannel struct {
	key         [constants.KeySize]byte
	sendCounter uint32
	recvHighest uint32
	rand        io.Reader
}

// NewSecureChannel creates a channel keyed with the given 32-byte key.
func NewSecureChannel(key []byte) (*SecureChannel, error) {
	c := &SecureChannel{}
	if err := c.SetKey(key); err != nil {
		return nil, err
	}
	return c, nil
}

// SetKey installs a new 32-byte key and resets both counters.
func (c *SecureChannel) SetKey(key []byte) error {
	if len(key) != constants.KeySize {
		return rlerrors.ErrInvalidKeySize
	}
	copy(c.key[:], key)
	c.sendCounter = 0
	c.recvHighest = 0
	return nil
}

// Clear zeroes the key and resets both counters.
func (c *SecureChannel) Clear() {
	c.key = [constants.KeySize]byte{}
	c.sendCounter = 0
	c.recvHighest = 0
}

// SendCounter returns the counter of the last encrypted message.
func (c *SecureChannel) SendCounter() uint32 { return c.sendCounter }

// ReceiveCounter returns the highest counter accepted so far.
func (c *SecureChannel) ReceiveCounter() uint32 { return c.recvHighest }

// Encrypt seals plaintext into nonce-prefixed ciphertext.
//
// The counter does not wrap: once the 32-bit space is spent the channel
// refuses to encrypt and the link must be re-paired for a fresh key.
func (c *SecureChannel) Encrypt(plaintext []byte) ([]byte, error) {
	if c.sendCounter == math.MaxUint32 {
		return nil, rlerrors.ErrCounterExhausted
	}
	c.sendCounter++

	nonce := make([]byte, constants.NonceSize)
	if err := c.readRandom(nonce[:constants.IVSize]); err != nil {
		return nil, err
	}
	binary.LittleEndian.PutUint32(nonce[constants.IVSize:], c.sendCounter)

	out := make([]byte, constants.NonceSize+len(plaintext))
	copy(out, nonce)

	cipher, err := chacha20.NewUnauthenticatedCipher(c.key[:], nonce)
	if err != nil {
		return nil, rlerrors.NewCryptoError("SecureChannel.Encrypt", err)
	}
	cipher.XORKeyStream(out[constants.NonceSize:], plaintext)

	return out, nil
}

// Decrypt opens nonce-prefixed ciphertext.
//
// It returns ErrCiphertextTooShort for inputs shorter than a nonce and
// ErrReplayDetected when the embedded counter does not advance the replay
// watermark. The watermark moves before decryption, matching the send side's
// strictly monotonic counters.
func (c *SecureChannel) Decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < constants.NonceSize {
		return nil, rlerrors.ErrCiphertextTooShort
	}

	nonce := ciphertext[:constants.NonceSize]
	counter := binary.LittleEndian.Uint32(nonce[constants.IVSize:])
	if counter <= c.recvHighest {
		return nil, rlerrors.ErrReplayDetected
	}
	c.recvHighest = counter

	out := make([]byte, len(ciphertext)-constants.NonceSize)
	cipher, err := chacha20.NewUnauthenticatedCipher(c.key[:], nonce)
	if err != nil {
		return nil, rlerrors.NewCryptoError("SecureChannel.Decrypt", err)
	}
	cipher.XORKeyStream(out, ciphertext[constants.NonceSize:])

	return out, nil
}

func (c *SecureChannel) readRandom(b []byte) error {
	r := c.rand
	if r == nil {
		return crypto.SecureRandom(b)
	}
	if _, err := io.ReadFull(r, b); err != nil {
		return rlerrors.NewCryptoError("SecureChannel.readRandom", err)
	}
	return nil
}
