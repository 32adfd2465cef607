// directory.go implements the fixed-size table of paired peers.
//
// The directory is pure bookkeeping: it stores addresses, key material and
// mailboxes, and maintains the one-slot-per-UID invariant. Radio pipe
// management and shared-key derivation live in the Manager, which owns the
// transceiver and the personal private key.
package link

import (
	"encoding/base64"
	"encoding/json"

	"github.com/pierrejay/radiolink-go/internal/constants"
	rlerrors "github.com/pierrejay/radiolink-go/internal/errors"
	"github.com/pierrejay/radiolink-go/pkg/protocol"
)

// Directory holds up to MaxChannels paired-device records, composed by value.
type Directory struct {
	slots [constants.MaxChannels]PairedDevice
}

// AvailableChannel returns the lowest free slot index, or UnpairedChannel
// when every slot is occupied.
func (d *Directory) AvailableChannel() uint8 {
	for i := range d.slots {
		if !d.slots[i].Occupied() {
			return uint8(i)
		}
	}
	return constants.UnpairedChannel
}

// Slot returns the record at the given channel, or nil when out of range.
func (d *Directory) Slot(channel uint8) *PairedDevice {
	if int(channel) >= len(d.slots) {
		return nil
	}
	return &d.slots[channel]
}

// PairedAddr returns the address paired on the channel, empty when free or
// out of range.
func (d *Directory) PairedAddr(channel uint8) protocol.Address {
	if s := d.Slot(channel); s != nil {
		return s.addr
	}
	return ""
}

// PairedUID returns the remote identity paired on the channel.
func (d *Directory) PairedUID(channel uint8) protocol.RadioID {
	return d.PairedAddr(channel).UID()
}

// PairedChannel returns the slot holding the given UID, or UnpairedChannel.
func (d *Directory) PairedChannel(uid protocol.RadioID) uint8 {
	for i := range d.slots {
		if d.slots[i].Occupied() && d.slots[i].addr.UID() == uid {
			return uint8(i)
		}
	}
	return constants.UnpairedChannel
}

// ChannelForAddr returns the slot paired with the exact address, or
// UnpairedChannel.
func (d *Directory) ChannelForAddr(addr protocol.Address) uint8 {
	for i := range d.slots {
		if d.slots[i].Occupied() && d.slots[i].addr == addr {
			return uint8(i)
		}
	}
	return constants.UnpairedChannel
}

// Set installs a peer on the channel. Any other slot already holding the
// same UID is cleared first, so a UID never occupies two slots. With a nil
// publicKey the slot keeps zeroed key material, and its secure channel runs
// on the all-zero key.
func (d *Directory) Set(channel uint8, addr protocol.Address, publicKey, sharedKey []byte) error {
	s := d.Slot(channel)
	if s == nil {
		return rlerrors.ErrInvalidChannel
	}
	if !addr.Valid() {
		return rlerrors.ErrInvalidAddress
	}
	if publicKey != nil && (len(publicKey) != constants.KeySize || len(sharedKey) != constants.KeySize) {
		return rlerrors.ErrInvalidKeySize
	}
	if prev := d.PairedChannel(addr.UID()); prev != constants.UnpairedChannel && prev != channel {
		d.slots[prev].clear()
	}

	s.clear()
	s.addr = addr
	if publicKey != nil {
		copy(s.publicKey[:], publicKey)
		copy(s.sharedKey[:], sharedKey)
		if err := s.channel.SetKey(sharedKey); err != nil {
			return err
		}
	}
	return nil
}

// Clear frees the slot, zeroing keys and dropping queued messages.
func (d *Directory) Clear(channel uint8) {
	if s := d.Slot(channel); s != nil {
		s.clear()
	}
}

// ClearUID frees the slot holding the given UID. It reports whether a slot
// was cleared.
func (d *Directory) ClearUID(uid protocol.RadioID) bool {
	ch := d.PairedChannel(uid)
	if ch == constants.UnpairedChannel {
		return false
	}
	d.Clear(ch)
	return true
}

// MessageCount returns the number of queued messages on the channel. A free
// or out-of-range channel reports zero.
func (d *Directory) MessageCount(channel uint8) int {
	if s := d.Slot(channel); s != nil && s.Occupied() {
		return s.mailbox.count()
	}
	return 0
}

// ReadMessage dequeues the oldest message on the channel, nil when none.
func (d *Directory) ReadMessage(channel uint8) []byte {
	if s := d.Slot(channel); s != nil && s.Occupied() {
		if msg, ok := s.mailbox.pop(); ok {
			return msg
		}
	}
	return nil
}

// ClearMessages drops every queued message on the channel.
func (d *Directory) ClearMessages(channel uint8) {
	if s := d.Slot(channel); s != nil {
		s.mailbox.clear()
	}
}

// ClearAllMessages drops every queued message on every channel.
func (d *Directory) ClearAllMessages() {
	for i := range d.slots {
		d.slots[i].mailbox.clear()
	}
}

// pairedDevicesJSON is the serialized directory: "0" marks a free slot, and
// pubKey entries are base64 keys aligned with addr (empty when keys are not
// requested or the slot is free).
type pairedDevicesJSON struct {
	Addr   []string `json:"addr"`
	PubKey []string `json:"pubKey,omitempty"`
}

// MarshalJSON serializes the directory with public keys included.
func (d *Directory) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.export(true))
}

func (d *Directory) export(keys bool) pairedDevicesJSON {
	out := pairedDevicesJSON{Addr: make([]string, constants.MaxChannels)}
	if keys {
		out.PubKey = make([]string, constants.MaxChannels)
	}
	var zero [constants.KeySize]byte
	for i := range d.slots {
		if !d.slots[i].Occupied() {
			out.Addr[i] = "0"
			continue
		}
		out.Addr[i] = d.slots[i].addr.String()
		// Slots paired without key material keep an empty entry so the
		// import side does not try to derive from a zero key.
		if keys && d.slots[i].publicKey != zero {
			out.PubKey[i] = base64.StdEncoding.EncodeToString(d.slots[i].publicKey[:])
		}
	}
	return out
}
