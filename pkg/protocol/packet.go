// Package protocol implements the wire framing of the radiolink layer:
// addressing, the fragment header codec, and the fragmentation and
// reassembly engines.
//
// Wire Format:
//
// Every data packet is exactly 32 bytes:
//
//	+------+----------+-----------------+------------------+
//	| Code | Index    | Payload         | Zero padding     |
//	| 1B   | 2B LE    | up to 29 bytes  | to 32 bytes      |
//	+------+----------+-----------------+------------------+
//
// Code is 'M' for the first fragment of a message and 'C' for every
// continuation. Index counts down so the final fragment always carries 0.
// The message body ends with the PayloadDelimiter byte ahead of the zero
// padding, so real trailing 0x00 bytes survive the padding strip.
package protocol

import (
	"encoding/binary"

	"github.com/pierrejay/radiolink-go/internal/constants"
	rlerrors "github.com/pierrejay/radiolink-go/internal/errors"
)

// Header is the 3-byte fragment header.
type Header struct {
	// Code is StartCode for the first fragment, ContinueCode otherwise.
	Code byte

	// Index is the countdown fragment index; 0 marks the final fragment.
	Index uint16
}

// IsStart reports whether the header opens a new message.
func (h Header) IsStart() bool { return h.Code == constants.StartCode }

// IsFinal reports whether the header closes the current message.
func (h Header) IsFinal() bool { return h.Index == 0 }

// EncodeHeader writes the header into the first HeaderSize bytes of dst.
func EncodeHeader(dst []byte, h Header) {
	dst[0] = h.Code
	binary.LittleEndian.PutUint16(dst[1:constants.HeaderSize], h.Index)
}

// DecodeHeader parses the fragment header from a received packet.
func DecodeHeader(packet []byte) (Header, error) {
	if len(packet) < constants.HeaderSize {
		return Header{}, rlerrors.ErrInvalidPacket
	}
	return Header{
		Code:  packet[0],
		Index: binary.LittleEndian.Uint16(packet[1:constants.HeaderSize]),
	}, nil
}

// Pad returns payload extended with zero bytes to size, or truncated to size
// when longer.
func Pad(payload []byte, size int) []byte {
	out := make([]byte, size)
	copy(out, payload)
	return out
}

// Unpad strips trailing zero bytes.
//
// Zero-byte padding as an end-of-payload delimiter cannot distinguish real
// trailing 0x00 payload bytes from fill; callers apply it only where the
// true payload length is otherwise unrecoverable (the final fragment of a
// message).
func Unpad(payload []byte) []byte {
	end := len(payload)
	for end > 0 && payload[end-1] == 0 {
		end--
	}
	return payload[:end]
}
