// fragment.go implements the outbound half of the fragmentation engine.
//
// A message of M bytes travels as M+1 wire bytes (the payload delimiter is
// appended first) split into F = ceil((M+1)/29) fragments. The k-th fragment
// (0-indexed) carries index F-1-k, so the receiver learns the total from the
// first fragment and recognizes the last by index 0. One fragment is emitted
// per orchestrator tick.
package protocol

import (
	"github.com/pierrejay/radiolink-go/internal/constants"
	rlerrors "github.com/pierrejay/radiolink-go/internal/errors"
)

// Fragmenter slices one outgoing message into wire packets.
type Fragmenter struct {
	payload []byte
	offset  int
	total   int
}

// NewFragmenter prepares a message for emission, appending the payload
// delimiter. The message must be non-empty; size limits are enforced by the
// caller before encryption.
func NewFragmenter(msg []byte) (*Fragmenter, error) {
	if len(msg) == 0 {
		return nil, rlerrors.ErrEmptyMessage
	}
	payload := make([]byte, len(msg)+1)
	copy(payload, msg)
	payload[len(msg)] = constants.PayloadDelimiter
	total := (len(payload) + constants.MaxPayloadSize - 1) / constants.MaxPayloadSize
	return &Fragmenter{payload: payload, total: total}, nil
}

// Total returns the number of fragments the message occupies.
func (f *Fragmenter) Total() int { return f.total }

// Remaining returns the number of fragments not yet produced.
func (f *Fragmenter) Remaining() int {
	if f.Done() {
		return 0
	}
	return f.total - f.offset/constants.MaxPayloadSize
}

// Done reports whether every fragment has been produced.
func (f *Fragmenter) Done() bool { return f.offset >= len(f.payload) }

// Next produces the next zero-padded 32-byte packet. It returns false once
// the message is exhausted.
func (f *Fragmenter) Next() ([]byte, bool) {
	if f.Done() {
		return nil, false
	}

	k := f.offset / constants.MaxPayloadSize
	h := Header{
		Code:  constants.ContinueCode,
		Index: uint16(f.total - 1 - k),
	}
	if k == 0 {
		h.Code = constants.StartCode
	}

	n := len(f.payload) - f.offset
	if n > constants.MaxPayloadSize {
		n = constants.MaxPayloadSize
	}

	packet := make([]byte, constants.MaxPacketSize)
	EncodeHeader(packet, h)
	copy(packet[constants.HeaderSize:], f.payload[f.offset:f.offset+n])
	f.offset += n

	return packet, true
}
