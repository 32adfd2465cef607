package link

import (
	"bytes"
	"testing"

	"github.com/pierrejay/radiolink-go/internal/constants"
	rlerrors "github.com/pierrejay/radiolink-go/internal/errors"
	"github.com/pierrejay/radiolink-go/pkg/crypto"
	"github.com/pierrejay/radiolink-go/pkg/protocol"
)

func TestDirectoryAvailableChannel(t *testing.T) {
	var d Directory
	if ch := d.AvailableChannel(); ch != 0 {
		t.Fatalf("empty directory: AvailableChannel = %d", ch)
	}

	d.Set(0, "1AAAA", nil, nil)
	d.Set(1, "1BBBB", nil, nil)
	if ch := d.AvailableChannel(); ch != 2 {
		t.Errorf("AvailableChannel = %d, want 2", ch)
	}

	d.Clear(0)
	if ch := d.AvailableChannel(); ch != 0 {
		t.Errorf("after clear: AvailableChannel = %d, want 0", ch)
	}

	for i := uint8(0); i < constants.MaxChannels; i++ {
		d.Set(i, protocol.MakeAddress(i+1, protocol.NewRadioID(string(rune('A'+i)))), nil, nil)
	}
	if ch := d.AvailableChannel(); ch != constants.UnpairedChannel {
		t.Errorf("full directory: AvailableChannel = %d, want sentinel", ch)
	}
}

func TestDirectoryLookups(t *testing.T) {
	var d Directory
	d.Set(2, "3AB12", nil, nil)

	if got := d.PairedAddr(2); got != "3AB12" {
		t.Errorf("PairedAddr = %q", got)
	}
	if got := d.PairedUID(2); got != "AB12" {
		t.Errorf("PairedUID = %q", got)
	}
	if got := d.PairedChannel("AB12"); got != 2 {
		t.Errorf("PairedChannel = %d", got)
	}
	if got := d.PairedChannel("ZZZZ"); got != constants.UnpairedChannel {
		t.Errorf("unknown UID: PairedChannel = %d", got)
	}
	if got := d.ChannelForAddr("3AB12"); got != 2 {
		t.Errorf("ChannelForAddr = %d", got)
	}
	if got := d.PairedAddr(constants.MaxChannels); got != "" {
		t.Errorf("out-of-range PairedAddr = %q", got)
	}
}

func TestDirectoryOneSlotPerUID(t *testing.T) {
	var d Directory
	d.Set(0, "1AB12", nil, nil)

	// Re-installing the same UID elsewhere moves it; it never occupies
	// two slots.
	d.Set(3, "4AB12", nil, nil)
	if d.Slot(0).Occupied() {
		t.Error("old slot still occupied")
	}
	if got := d.PairedChannel("AB12"); got != 3 {
		t.Errorf("PairedChannel = %d, want 3", got)
	}
}

func TestDirectorySetValidation(t *testing.T) {
	var d Directory
	if err := d.Set(constants.MaxChannels, "1AAAA", nil, nil); !rlerrors.Is(err, rlerrors.ErrInvalidChannel) {
		t.Errorf("out-of-range channel: got %v", err)
	}
	if err := d.Set(0, "9AAAA", nil, nil); !rlerrors.Is(err, rlerrors.ErrInvalidAddress) {
		t.Errorf("invalid address: got %v", err)
	}
	if err := d.Set(0, "1AAAA", make([]byte, 16), make([]byte, 16)); !rlerrors.Is(err, rlerrors.ErrInvalidKeySize) {
		t.Errorf("short keys: got %v", err)
	}
}

func TestDirectoryClearZeroesKeys(t *testing.T) {
	var d Directory
	pub := crypto.MustSecureRandomBytes(constants.KeySize)
	shared := crypto.MustSecureRandomBytes(constants.KeySize)
	if err := d.Set(1, "2AB12", pub, shared); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	slot := d.Slot(1)
	if got := slot.PublicKey(); !bytes.Equal(got[:], pub) {
		t.Error("public key not stored")
	}
	if got := slot.SharedKey(); !bytes.Equal(got[:], shared) {
		t.Error("shared key not stored")
	}

	slot.mailbox.push([]byte("msg"))
	d.Clear(1)

	var zero [constants.KeySize]byte
	if slot.PublicKey() != zero || slot.SharedKey() != zero {
		t.Error("keys not zeroed on clear")
	}
	if slot.Occupied() {
		t.Error("slot still occupied")
	}
	if d.MessageCount(1) != 0 {
		t.Error("mailbox not emptied")
	}
}

func TestDirectoryClearUID(t *testing.T) {
	var d Directory
	d.Set(0, "1AB12", nil, nil)

	if !d.ClearUID("AB12") {
		t.Error("ClearUID returned false for known UID")
	}
	if d.ClearUID("AB12") {
		t.Error("ClearUID returned true for absent UID")
	}
}

func TestMailboxFIFOAndEviction(t *testing.T) {
	var d Directory
	d.Set(0, "1AB12", nil, nil)
	slot := d.Slot(0)

	slot.mailbox.push([]byte("one"))
	slot.mailbox.push([]byte("two"))
	slot.mailbox.push([]byte("three"))
	if d.MessageCount(0) != constants.MaxMailboxMsg {
		t.Fatalf("count = %d", d.MessageCount(0))
	}

	// A push into a full mailbox evicts the oldest entry.
	slot.mailbox.push([]byte("four"))
	if d.MessageCount(0) != constants.MaxMailboxMsg {
		t.Fatalf("count after eviction = %d", d.MessageCount(0))
	}

	want := []string{"two", "three", "four"}
	for _, w := range want {
		if got := d.ReadMessage(0); string(got) != w {
			t.Errorf("ReadMessage = %q, want %q", got, w)
		}
	}
	if got := d.ReadMessage(0); got != nil {
		t.Errorf("empty mailbox returned %q", got)
	}
}

func TestDirectoryMessageOpsOnFreeSlot(t *testing.T) {
	var d Directory
	if d.MessageCount(0) != 0 {
		t.Error("free slot reports messages")
	}
	if d.ReadMessage(0) != nil {
		t.Error("free slot returned a message")
	}
	d.ClearMessages(0) // no-op, must not panic
}
