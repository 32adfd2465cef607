// reassembly.go implements the inbound half of the fragmentation engine.
//
// A StartCode fragment resets the buffer and announces the expected count
// (index+1). Continuation payloads are fixed 29-byte slices; only the final
// fragment has its zero padding stripped, and the message must end with the
// payload delimiter, which protects real trailing 0x00 bytes from the
// padding strip. A partial buffer idle for longer than ReceiveTimeout is
// discarded on the next tick.
package protocol

import (
	"time"

	"github.com/pierrejay/radiolink-go/internal/constants"
	rlerrors "github.com/pierrejay/radiolink-go/internal/errors"
)

// Reassembler rebuilds messages from wire packets. A single reassembler is
// shared across pipes: each fragment's pipe identifies the sender and the
// buffer is reset on every StartCode.
type Reassembler struct {
	buf      []byte
	expected uint16
	received uint16
	lastAt   time.Time
}

// Pending reports whether a partial message is buffered.
func (r *Reassembler) Pending() bool { return len(r.buf) > 0 }

// Reset discards any partial message.
func (r *Reassembler) Reset() {
	r.buf = nil
	r.expected = 0
	r.received = 0
}

// DiscardStale drops a partial buffer that has not seen a fragment within
// ReceiveTimeout. It returns ErrReassemblyTimeout when something was
// discarded so the caller can log and count it.
func (r *Reassembler) DiscardStale(now time.Time) error {
	if !r.Pending() || now.Sub(r.lastAt) <= constants.ReceiveTimeout {
		return nil
	}
	r.Reset()
	return rlerrors.ErrReassemblyTimeout
}

// Feed consumes one received packet.
//
// The returned message is non-nil exactly when the packet completed a
// message whose fragment count matches the announced total and whose body
// ends with the payload delimiter. A final fragment closing an incomplete
// or undelimited message resets the buffer and returns the reason; the data
// is lost.
func (r *Reassembler) Feed(packet []byte, now time.Time) ([]byte, error) {
	h, err := DecodeHeader(packet)
	if err != nil {
		return nil, err
	}

	if h.IsStart() {
		// New message displaces whatever came before.
		r.buf = r.buf[:0]
		r.expected = h.Index + 1
		r.received = 0
	}

	if r.received < constants.MaxPacketsRcv {
		payload := packet[constants.HeaderSize:]
		if h.IsFinal() {
			payload = Unpad(payload)
		}
		r.buf = append(r.buf, payload...)
		r.received++
		r.lastAt = now
	}

	if !h.IsFinal() {
		return nil, nil
	}

	complete := r.received == r.expected
	delimited := len(r.buf) > 0 && r.buf[len(r.buf)-1] == constants.PayloadDelimiter
	var msg []byte
	if complete && delimited {
		msg = make([]byte, len(r.buf)-1)
		copy(msg, r.buf[:len(r.buf)-1])
	}
	r.Reset()
	switch {
	case !complete:
		return nil, rlerrors.ErrFragmentCountMismatch
	case !delimited:
		return nil, rlerrors.ErrMissingDelimiter
	}
	return msg, nil
}
