package protocol_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/pierrejay/radiolink-go/internal/constants"
	rlerrors "github.com/pierrejay/radiolink-go/internal/errors"
	"github.com/pierrejay/radiolink-go/pkg/protocol"
)

func testMessage(n int) []byte {
	msg := make([]byte, n)
	for i := range msg {
		msg[i] = byte(i%255) + 1
	}
	return msg
}

func TestFragmenterCounts(t *testing.T) {
	// Wire length is the message plus its delimiter byte.
	cases := []struct {
		size  int
		total int
	}{
		{1, 1},
		{28, 1},
		{29, 2},
		{30, 2},
		{57, 2},
		{58, 3},
		{100, 4},
		{112, 4}, // 100-byte plaintext + 12-byte nonce
		{2048, 71},
		{2060, 72}, // max plaintext + nonce
	}
	for _, tc := range cases {
		frag, err := protocol.NewFragmenter(testMessage(tc.size))
		if err != nil {
			t.Fatalf("NewFragmenter(%d) failed: %v", tc.size, err)
		}
		if frag.Total() != tc.total {
			t.Errorf("Total() for %dB = %d, want %d", tc.size, frag.Total(), tc.total)
		}
	}
}

func TestFragmenterRejectsEmpty(t *testing.T) {
	if _, err := protocol.NewFragmenter(nil); !rlerrors.Is(err, rlerrors.ErrEmptyMessage) {
		t.Errorf("got %v, want ErrEmptyMessage", err)
	}
}

func TestFragmentHeaders(t *testing.T) {
	frag, err := protocol.NewFragmenter(testMessage(100))
	if err != nil {
		t.Fatalf("NewFragmenter failed: %v", err)
	}

	var headers []protocol.Header
	for {
		packet, ok := frag.Next()
		if !ok {
			break
		}
		if len(packet) != constants.MaxPacketSize {
			t.Fatalf("packet size = %d", len(packet))
		}
		h, err := protocol.DecodeHeader(packet)
		if err != nil {
			t.Fatalf("DecodeHeader failed: %v", err)
		}
		headers = append(headers, h)
	}

	if len(headers) != 4 {
		t.Fatalf("got %d fragments, want 4", len(headers))
	}
	if headers[0].Code != constants.StartCode {
		t.Error("first fragment is not a start")
	}
	for i, h := range headers {
		if i > 0 && h.Code != constants.ContinueCode {
			t.Errorf("fragment %d code = %c", i, h.Code)
		}
		// Countdown index: the final fragment always carries 0.
		if want := uint16(len(headers) - 1 - i); h.Index != want {
			t.Errorf("fragment %d index = %d, want %d", i, h.Index, want)
		}
	}
}

func roundTrip(t *testing.T, msg []byte) []byte {
	t.Helper()
	frag, err := protocol.NewFragmenter(msg)
	if err != nil {
		t.Fatalf("NewFragmenter failed: %v", err)
	}
	var r protocol.Reassembler
	now := time.Now()
	for {
		packet, ok := frag.Next()
		if !ok {
			break
		}
		out, err := r.Feed(packet, now)
		if err != nil {
			t.Fatalf("Feed failed: %v", err)
		}
		if out != nil {
			return out
		}
	}
	t.Fatal("message never completed")
	return nil
}

func TestFragmentationRoundTrip(t *testing.T) {
	for _, size := range []int{1, 28, 29, 30, 57, 58, 100, 1000, 2048} {
		msg := testMessage(size)
		got := roundTrip(t, msg)
		if !bytes.Equal(got, msg) {
			t.Errorf("round trip of %dB: got %dB, mismatch", size, len(got))
		}
	}
}

func TestRoundTripPreservesTrailingZeros(t *testing.T) {
	// The padding delimiter protects messages that genuinely end in 0x00
	// from the zero-padding strip.
	for _, msg := range [][]byte{
		{0},
		{1, 2, 3, 0, 0},
		append(testMessage(28), 0),
		append(testMessage(57), 0, 0),
	} {
		got := roundTrip(t, msg)
		if !bytes.Equal(got, msg) {
			t.Errorf("trailing zeros lost: sent % x, got % x", msg, got)
		}
	}
}

func TestReassemblerDroppedFragment(t *testing.T) {
	frag, _ := protocol.NewFragmenter(testMessage(100))
	var packets [][]byte
	for {
		p, ok := frag.Next()
		if !ok {
			break
		}
		packets = append(packets, p)
	}

	var r protocol.Reassembler
	now := time.Now()
	// Drop the second fragment: the final one must be rejected.
	for i, p := range packets {
		if i == 1 {
			continue
		}
		out, err := r.Feed(p, now)
		if out != nil {
			t.Fatal("incomplete message delivered")
		}
		if i == len(packets)-1 {
			if !rlerrors.Is(err, rlerrors.ErrFragmentCountMismatch) {
				t.Errorf("final fragment: got %v, want ErrFragmentCountMismatch", err)
			}
		} else if err != nil {
			t.Fatalf("Feed failed: %v", err)
		}
	}
	if r.Pending() {
		t.Error("buffer not reset after mismatch")
	}
}

func TestReassemblerStartResetsPartial(t *testing.T) {
	first, _ := protocol.NewFragmenter(testMessage(100))
	second, _ := protocol.NewFragmenter(testMessage(40))

	var r protocol.Reassembler
	now := time.Now()

	// Deliver only the start of the first message.
	p, _ := first.Next()
	if _, err := r.Feed(p, now); err != nil {
		t.Fatalf("Feed failed: %v", err)
	}

	// A fresh start displaces the partial buffer entirely.
	want := testMessage(40)
	var got []byte
	for {
		p, ok := second.Next()
		if !ok {
			break
		}
		out, err := r.Feed(p, now)
		if err != nil {
			t.Fatalf("Feed failed: %v", err)
		}
		if out != nil {
			got = out
		}
	}
	if !bytes.Equal(got, want) {
		t.Error("second message corrupted by the abandoned partial")
	}
}

func TestReassemblerTimeout(t *testing.T) {
	frag, _ := protocol.NewFragmenter(testMessage(100))
	var r protocol.Reassembler
	start := time.Now()

	p, _ := frag.Next()
	if _, err := r.Feed(p, start); err != nil {
		t.Fatalf("Feed failed: %v", err)
	}
	if !r.Pending() {
		t.Fatal("no partial buffered")
	}

	// Within the window nothing is discarded.
	if err := r.DiscardStale(start.Add(constants.ReceiveTimeout / 2)); err != nil {
		t.Fatalf("DiscardStale within window: %v", err)
	}
	if !r.Pending() {
		t.Fatal("partial discarded too early")
	}

	if err := r.DiscardStale(start.Add(constants.ReceiveTimeout + time.Millisecond)); !rlerrors.Is(err, rlerrors.ErrReassemblyTimeout) {
		t.Errorf("got %v, want ErrReassemblyTimeout", err)
	}
	if r.Pending() {
		t.Error("partial survived the timeout")
	}
}

func TestReassemblerMidFragmentsKeepZeros(t *testing.T) {
	// A message with interior zero bytes that land at the end of a
	// non-final fragment must survive intact: only the final fragment is
	// zero-stripped.
	msg := make([]byte, 60)
	for i := range msg {
		msg[i] = byte(i + 1)
	}
	msg[27] = 0
	msg[28] = 0 // fragment 0 payload ends 0x00 0x00

	got := roundTrip(t, msg)
	if !bytes.Equal(got, msg) {
		t.Error("interior zeros at a fragment boundary were lost")
	}
}
