// device.go defines the per-slot pairing record and its mailbox.
package link

import (
	"github.com/pierrejay/radiolink-go/internal/constants"
	"github.com/pierrejay/radiolink-go/pkg/protocol"
)

// PairedDevice is one channel slot of the directory. An empty address marks
// the slot free; key material is zeroed whenever the slot is cleared.
type PairedDevice struct {
	addr      protocol.Address
	publicKey [constants.KeySize]byte
	sharedKey [constants.KeySize]byte
	channel   SecureChannel
	mailbox   mailbox
}

// Addr returns the slot's address, empty when free.
func (d *PairedDevice) Addr() protocol.Address { return d.addr }

// Occupied reports whether a peer is paired on this slot.
func (d *PairedDevice) Occupied() bool { return d.addr != "" }

// PublicKey returns the peer's public key.
func (d *PairedDevice) PublicKey() [constants.KeySize]byte { return d.publicKey }

// SharedKey returns the derived channel key.
func (d *PairedDevice) SharedKey() [constants.KeySize]byte { return d.sharedKey }

// Channel returns the slot's secure channel.
func (d *PairedDevice) Channel() *SecureChannel { return &d.channel }

func (d *PairedDevice) clear() {
	d.addr = ""
	d.publicKey = [constants.KeySize]byte{}
	d.sharedKey = [constants.KeySize]byte{}
	d.channel.Clear()
	d.mailbox.clear()
}

// mailbox is a bounded FIFO of completed plaintext messages. Pushing into a
// full mailbox evicts the oldest entry.
type mailbox struct {
	msgs [][]byte
}

func (m *mailbox) push(msg []byte) {
	if len(m.msgs) >= constants.MaxMailboxMsg {
		m.msgs = m.msgs[1:]
	}
	m.msgs = append(m.msgs, msg)
}

func (m *mailbox) pop() ([]byte, bool) {
	if len(m.msgs) == 0 {
		return nil, false
	}
	msg := m.msgs[0]
	m.msgs = m.msgs[1:]
	return msg, true
}

func (m *mailbox) count() int { return len(m.msgs) }

func (m *mailbox) clear() { m.msgs = nil }
