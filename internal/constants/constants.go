// Package constants defines protocol parameters and security constants for the
// radiolink secure radio link layer.
//
// The link runs over a narrowband 2.4 GHz transceiver that delivers fixed-size
// 32-byte datagrams with hardware auto-acknowledgement. All sizing below
// derives from that MTU.
package constants

import "time"

// Link dimensions.
const (
	// MaxChannels is the number of concurrently paired peers.
	MaxChannels = 5

	// MaxPacketSize is the wire frame size on the radio in bytes.
	MaxPacketSize = 32

	// HeaderSize is the in-frame fragment header: 1-byte code + 2-byte index.
	HeaderSize = 3

	// MaxPayloadSize is the fragment payload capacity per packet.
	MaxPayloadSize = MaxPacketSize - HeaderSize

	// MaxMsgSize is the largest plaintext message accepted for transmission.
	// Ciphertext grows by NonceSize, so an encrypted maximum-size message
	// fragments into 72 packets.
	MaxMsgSize = 2048

	// MaxPacketsRcv caps the number of fragments accepted into a single
	// reassembly buffer.
	MaxPacketsRcv = 100

	// MaxMailboxMsg is the per-peer mailbox depth. Pushing into a full
	// mailbox evicts the oldest message.
	MaxMailboxMsg = 3
)

// Radio channels and reserved pairing addresses.
const (
	// DataChannel carries both paired traffic and the pairing exchange,
	// separated only by address.
	DataChannel uint8 = 108

	// ConfigChannel is reserved for a dedicated pairing channel. It is not
	// currently selected; pairing coexists with data on DataChannel.
	ConfigChannel uint8 = 109

	// ConfigTXAddr is written by the Transmit role and read by the Listen
	// role during pairing.
	ConfigTXAddr = "CFGTX"

	// ConfigRXAddr is written by the Listen role and read by the Transmit
	// role during pairing.
	ConfigRXAddr = "CFGRX"
)

// Fragment header codes.
const (
	// StartCode marks the first fragment of a message.
	StartCode byte = 'M'

	// ContinueCode marks every subsequent fragment.
	ContinueCode byte = 'C'

	// PayloadDelimiter terminates every message on the wire, before the
	// zero padding. Stripping bare trailing zeros would eat real 0x00
	// payload bytes; the delimiter makes the message boundary exact.
	PayloadDelimiter byte = 0x01
)

// Addressing.
const (
	// RadioIDSize is the length of a device identifier.
	RadioIDSize = 4

	// AddressSize is the length of a logical peer address: one pipe digit
	// followed by the remote RadioID.
	AddressSize = 1 + RadioIDSize

	// UnpairedChannel is the sentinel returned when no slot matches.
	UnpairedChannel uint8 = 255
)

// Key material and nonce construction.
const (
	// KeySize is the length of X25519 public, private and shared keys.
	KeySize = 32

	// IVSize is the random prefix of the per-message nonce.
	IVSize = 8

	// CounterSize is the little-endian message counter suffix of the nonce.
	CounterSize = 4

	// NonceSize is the full ChaCha20 nonce: IV followed by counter.
	NonceSize = IVSize + CounterSize
)

// Timing.
const (
	// ReceiveTimeout discards a partial reassembly buffer that has seen no
	// fragment for this long.
	ReceiveTimeout = 1 * time.Second

	// PairingTimeout aborts a pairing attempt measured from start.
	PairingTimeout = 10 * time.Second

	// PairingListenTime is the listen-phase budget before the role flips
	// to Transmit.
	PairingListenTime = 5 * time.Second

	// PairingInterval is the minimum delay between pairing write attempts.
	PairingInterval = 250 * time.Millisecond
)
