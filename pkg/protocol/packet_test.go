package protocol_test

import (
	"bytes"
	"testing"

	"github.com/pierrejay/radiolink-go/internal/constants"
	"github.com/pierrejay/radiolink-go/pkg/protocol"
)

func TestHeaderRoundTrip(t *testing.T) {
	cases := []protocol.Header{
		{Code: constants.StartCode, Index: 0},
		{Code: constants.StartCode, Index: 71},
		{Code: constants.ContinueCode, Index: 1},
		{Code: constants.ContinueCode, Index: 0xFFFF},
	}
	for _, h := range cases {
		buf := make([]byte, constants.MaxPacketSize)
		protocol.EncodeHeader(buf, h)

		got, err := protocol.DecodeHeader(buf)
		if err != nil {
			t.Fatalf("DecodeHeader failed: %v", err)
		}
		if got != h {
			t.Errorf("round trip: got %+v, want %+v", got, h)
		}
	}
}

func TestHeaderLittleEndian(t *testing.T) {
	buf := make([]byte, constants.HeaderSize)
	protocol.EncodeHeader(buf, protocol.Header{Code: constants.StartCode, Index: 0x0102})
	if buf[1] != 0x02 || buf[2] != 0x01 {
		t.Errorf("index not little-endian: % x", buf)
	}
}

func TestDecodeHeaderShortPacket(t *testing.T) {
	if _, err := protocol.DecodeHeader([]byte{constants.StartCode, 0x01}); err == nil {
		t.Error("expected error for short packet")
	}
}

func TestPad(t *testing.T) {
	padded := protocol.Pad([]byte{1, 2, 3}, constants.MaxPacketSize)
	if len(padded) != constants.MaxPacketSize {
		t.Fatalf("padded length = %d", len(padded))
	}
	if !bytes.Equal(padded[:3], []byte{1, 2, 3}) {
		t.Error("payload prefix altered")
	}
	for i := 3; i < len(padded); i++ {
		if padded[i] != 0 {
			t.Fatalf("padding byte %d is %#x", i, padded[i])
		}
	}

	truncated := protocol.Pad(make([]byte, 40), constants.MaxPacketSize)
	if len(truncated) != constants.MaxPacketSize {
		t.Errorf("oversize input not truncated: %d", len(truncated))
	}
}

func TestUnpad(t *testing.T) {
	cases := []struct {
		name string
		in   []byte
		want []byte
	}{
		{"trailing zeros", []byte{1, 2, 0, 0}, []byte{1, 2}},
		{"no padding", []byte{1, 2, 3}, []byte{1, 2, 3}},
		{"all zeros", []byte{0, 0, 0}, []byte{}},
		{"interior zero kept", []byte{1, 0, 2, 0}, []byte{1, 0, 2}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := protocol.Unpad(tc.in); !bytes.Equal(got, tc.want) {
				t.Errorf("Unpad(% x) = % x, want % x", tc.in, got, tc.want)
			}
		})
	}
}
