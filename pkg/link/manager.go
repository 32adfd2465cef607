// Package link implements the radiolink secure link layer: a per-peer
// encrypted, fragmented, at-most-once message transport with a mutual
// pairing handshake, multiplexed over a 32-byte-MTU transceiver.
//
// The Manager is the orchestrator. It owns the radio exclusively and is
// driven by a cooperative tick:
//
//	mgr, _ := link.New(transport, "AB12")
//	mgr.Begin()
//	for {
//	    mgr.Loop()
//	    // ... other cooperative work ...
//	}
//
// Exactly one of pairing, transmitting or receiving holds the radio during
// a tick. Outbound messages are emitted one fragment per tick, so a
// transfer takes O(fragments) ticks to complete; all waiting is expressed
// as clock comparisons and the tick never blocks on radio I/O.
package link

import (
	"context"
	"io"
	"time"

	"github.com/pierrejay/radiolink-go/internal/constants"
	rlerrors "github.com/pierrejay/radiolink-go/internal/errors"
	"github.com/pierrejay/radiolink-go/pkg/crypto"
	"github.com/pierrejay/radiolink-go/pkg/metrics"
	"github.com/pierrejay/radiolink-go/pkg/protocol"
	"github.com/pierrejay/radiolink-go/pkg/radio"
)

// State is the orchestrator state.
type State int

const (
	// StateIdle means the radio is listening for paired traffic.
	StateIdle State = iota

	// StateTransmitting means an outbound transfer is emitting fragments.
	StateTransmitting

	// StateReceiving means an inbound packet is being consumed this tick.
	StateReceiving

	// StatePairingListen means the pairing Listen role is active.
	StatePairingListen

	// StatePairingTransmit means the pairing Transmit role is active.
	StatePairingTransmit
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateTransmitting:
		return "Transmitting"
	case StateReceiving:
		return "Receiving"
	case StatePairingListen:
		return "PairingListen"
	case StatePairingTransmit:
		return "PairingTransmit"
	default:
		return "Unknown"
	}
}

// outgoingTransfer tracks the single in-flight outbound message.
type outgoingTransfer struct {
	frag   *protocol.Fragmenter
	target protocol.Address
	status *SendStatus
	end    metrics.SpanEnder
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *metrics.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// WithTracer sets the tracer used for pairing and transfer spans.
func WithTracer(t metrics.Tracer) Option {
	return func(m *Manager) { m.tracer = t }
}

// WithCollector sets the metrics collector.
func WithCollector(c *metrics.Collector) Option {
	return func(m *Manager) { m.collector = c }
}

// WithClock sets the monotonic clock, for tests that drive timeouts.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithRandom sets the entropy source for nonce IVs, for deterministic tests.
func WithRandom(r io.Reader) Option {
	return func(m *Manager) { m.rand = r }
}

// WithKeyPair installs a persisted X25519 identity instead of generating a
// fresh one.
func WithKeyPair(publicKey, privateKey [constants.KeySize]byte) Option {
	return func(m *Manager) {
		m.publicKey = publicKey
		m.privateKey = privateKey
		m.haveKeys = true
	}
}

// Manager multiplexes pairing, transmission and reception over one radio.
// It is not safe for concurrent use; drive it from a single loop.
type Manager struct {
	radio     radio.Transport
	id        protocol.RadioID
	log       *metrics.Logger
	tracer    metrics.Tracer
	collector *metrics.Collector
	now       func() time.Time
	rand      io.Reader

	enabled bool
	state   State

	publicKey  [constants.KeySize]byte
	privateKey [constants.KeySize]byte
	haveKeys   bool

	dir      Directory
	reasm    protocol.Reassembler
	pairing  *pairingContext
	outgoing *outgoingTransfer
}

// New creates a Manager over the given transport. The id is normalized to a
// 4-character RadioID; a fresh X25519 identity is generated unless
// WithKeyPair supplies one.
func New(transport radio.Transport, id string, opts ...Option) (*Manager, error) {
	m := &Manager{
		radio:  transport,
		id:     protocol.NewRadioID(id),
		log:    metrics.NopLogger(),
		tracer: metrics.NoOpTracer{},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.collector == nil {
		m.collector = metrics.NewCollector(metrics.Labels{"radio_id": m.id.String()})
	}
	m.log = m.log.Named("link").With(metrics.Fields{"id": m.id.String()})

	if !m.haveKeys {
		pub, priv, err := crypto.GenerateKeyPair()
		if err != nil {
			return nil, err
		}
		m.publicKey = pub
		m.privateKey = priv
		m.haveKeys = true
	}
	return m, nil
}

// ID returns the device identity.
func (m *Manager) ID() protocol.RadioID { return m.id }

// State returns the current orchestrator state.
func (m *Manager) State() State { return m.state }

// Busy reports whether the link is pairing, transmitting or receiving.
func (m *Manager) Busy() bool { return m.state != StateIdle }

// Available reports whether the link can accept a new operation.
func (m *Manager) Available() bool { return !m.Busy() }

// Enabled reports whether the link is active.
func (m *Manager) Enabled() bool { return m.enabled }

// Collector returns the manager's metrics collector.
func (m *Manager) Collector() *metrics.Collector { return m.collector }

// Begin activates the link: tunes the data channel, opens a reading pipe
// for every occupied slot and starts listening. Hardware bring-up (power
// level, data rate) is the transport driver's concern.
func (m *Manager) Begin() {
	m.enabled = true
	m.initRadio()
	m.log.Info("link started")
}

// Enable toggles the link. Disabling clears every mailbox and stops
// listening; enabling re-runs Begin.
func (m *Manager) Enable(en bool) {
	if en {
		m.Begin()
		return
	}
	m.enabled = false
	m.dir.ClearAllMessages()
	m.radio.StopListening()
	m.log.Info("link disabled")
}

// initRadio retunes the data channel and restores the reading pipes for the
// paired directory, displacing any pairing-time pipe assignment.
func (m *Manager) initRadio() {
	m.radio.SetChannel(constants.DataChannel)
	for i := uint8(0); i < constants.MaxChannels; i++ {
		if m.dir.Slot(i).Occupied() {
			m.radio.OpenReadingPipe(i+1, protocol.ListenAddress(i, m.id).String())
		}
	}
	m.radio.StartListening()
}

// Loop is the orchestrator tick. Invoke it frequently; each tick advances
// at most one unit of radio work.
func (m *Manager) Loop() {
	if !m.enabled {
		return
	}
	now := m.now()

	switch m.state {
	case StatePairingListen, StatePairingTransmit:
		m.handlePairing(now)

	case StateIdle:
		// Pairing leftovers do not outlive the procedure.
		m.pairing = nil

		if err := m.reasm.DiscardStale(now); err != nil {
			m.log.Warn("partial message expired, clearing buffer")
			m.collector.RecordReassemblyTimeout()
		}

		if pipe, ok := m.radio.Available(); ok {
			m.state = StateReceiving
			m.receiveData(pipe, now)
		}

	case StateTransmitting:
		m.sendData()

	case StateReceiving:
		// receiveData completes within the tick that entered it.
	}
}

// receiveData consumes one waiting packet and feeds the reassembly engine.
func (m *Manager) receiveData(pipe uint8, now time.Time) {
	defer func() { m.state = StateIdle }()

	size := int(m.radio.PayloadSize())
	if size < constants.HeaderSize || size > constants.MaxPacketSize {
		return
	}
	buf := make([]byte, size)
	n := m.radio.Read(buf)
	if n < constants.HeaderSize {
		return
	}
	m.collector.RecordPacketReceived(n)
	m.log.Debug("packet received", metrics.Fields{"pipe": pipe})

	msg, err := m.reasm.Feed(buf[:n], now)
	if err != nil {
		m.log.Warn("incomplete message discarded", metrics.Fields{"pipe": pipe, "err": err.Error()})
		m.collector.RecordReassemblyDrop()
		return
	}
	if msg == nil {
		return
	}
	m.deliver(pipe, msg)
}

// deliver routes a complete message to the mailbox of the pipe's slot. The
// payload is decrypted when the slot's channel accepts it; otherwise the raw
// bytes are stored so cleartext senders still get through.
func (m *Manager) deliver(pipe uint8, msg []byte) {
	if pipe < 1 || pipe > constants.MaxChannels {
		return
	}
	channel := pipe - 1
	slot := m.dir.Slot(channel)
	if !slot.Occupied() {
		m.log.Debug("message for unpaired channel dropped", metrics.Fields{"channel": channel})
		return
	}

	stored := msg
	plaintext, err := slot.Channel().Decrypt(msg)
	if err == nil {
		stored = plaintext
	} else {
		if rlerrors.Is(err, rlerrors.ErrReplayDetected) {
			m.collector.RecordReplayBlocked()
		} else {
			m.collector.RecordDecryptFailure()
		}
		m.log.Debug("message not decrypted, storing raw bytes",
			metrics.Fields{"channel": channel, "err": err.Error()})
	}

	slot.mailbox.push(stored)
	m.collector.RecordMessageReceived()
	m.log.Info("message delivered", metrics.Fields{"channel": channel, "len": len(stored)})
}

// sendData emits the next fragment of the in-flight transfer.
func (m *Manager) sendData() {
	tx := m.outgoing
	if tx == nil {
		m.state = StateIdle
		return
	}

	packet, ok := tx.frag.Next()
	if !ok {
		m.finishTransfer(tx, nil)
		return
	}

	if !m.radio.Write(packet) {
		m.collector.RecordWriteFailure()
		m.finishTransfer(tx, rlerrors.ErrRadioWriteFailed)
		return
	}
	m.collector.RecordPacketSent(len(packet))

	if tx.frag.Done() {
		m.finishTransfer(tx, nil)
	}
}

func (m *Manager) finishTransfer(tx *outgoingTransfer, err error) {
	m.outgoing = nil
	m.state = StateIdle
	m.radio.StartListening()

	if err != nil {
		tx.status.set(SendError)
		m.log.Warn("transfer aborted", metrics.Fields{"addr": tx.target.String(), "err": err.Error()})
	} else {
		tx.status.set(SendSuccess)
		m.collector.RecordMessageSent()
		m.log.Info("message sent", metrics.Fields{"addr": tx.target.String()})
	}
	if tx.end != nil {
		tx.end(err)
	}
}

// SendMessage queues a message for the peer paired on the channel.
func (m *Manager) SendMessage(msg []byte, channel uint8, status *SendStatus, encrypt bool) error {
	if !m.enabled {
		status.set(SendError)
		return rlerrors.ErrLinkDisabled
	}
	addr := m.dir.PairedAddr(channel)
	if addr == "" {
		status.set(SendError)
		return rlerrors.ErrInvalidChannel
	}
	return m.SendMessageToAddr(msg, addr, status, encrypt)
}

// SendMessageToAddr queues a message for an explicit target address.
//
// The call validates and starts the transfer, emitting the first fragment
// immediately; subsequent fragments go out one per tick. Validation failures
// are returned synchronously with status set to SendError; radio-layer
// failures during the transfer surface through the status only.
func (m *Manager) SendMessageToAddr(msg []byte, target protocol.Address, status *SendStatus, encrypt bool) error {
	if !m.enabled {
		status.set(SendError)
		return rlerrors.ErrLinkDisabled
	}
	if m.state != StateIdle {
		status.set(SendError)
		return rlerrors.ErrLinkBusy
	}
	if len(msg) == 0 {
		status.set(SendError)
		return rlerrors.ErrEmptyMessage
	}
	if len(msg) > constants.MaxMsgSize {
		status.set(SendError)
		return rlerrors.ErrMessageTooLarge
	}
	if !target.Valid() {
		status.set(SendError)
		return rlerrors.ErrInvalidAddress
	}

	payload := msg
	if encrypt {
		if ch := m.dir.ChannelForAddr(target); ch != constants.UnpairedChannel {
			var err error
			payload, err = m.dir.Slot(ch).Channel().Encrypt(msg)
			if err != nil {
				status.set(SendError)
				return err
			}
		} else {
			m.log.Warn("target address not paired, sending unencrypted",
				metrics.Fields{"addr": target.String()})
		}
	}

	frag, err := protocol.NewFragmenter(payload)
	if err != nil {
		status.set(SendError)
		return err
	}

	_, end := m.tracer.StartSpan(context.Background(), "link.send", metrics.WithAttributes(
		map[string]interface{}{"addr": target.String(), "fragments": frag.Total(), "encrypted": encrypt},
	))

	status.set(SendPending)
	m.outgoing = &outgoingTransfer{frag: frag, target: target, status: status, end: end}
	m.state = StateTransmitting

	m.radio.StopListening()
	m.radio.OpenWritingPipe(target.String())
	m.log.Info("transfer started", metrics.Fields{"addr": target.String(), "fragments": frag.Total()})

	m.sendData()
	return nil
}

// MessageCount returns the number of queued messages on the channel.
func (m *Manager) MessageCount(channel uint8) int {
	return m.dir.MessageCount(channel)
}

// ReadMessage dequeues the oldest message on the channel, nil when none.
func (m *Manager) ReadMessage(channel uint8) []byte {
	return m.dir.ReadMessage(channel)
}

// ClearMessages drops every queued message on the channel.
func (m *Manager) ClearMessages(channel uint8) {
	m.dir.ClearMessages(channel)
}

// AvailableChannel returns the lowest free slot, or UnpairedChannel.
func (m *Manager) AvailableChannel() uint8 { return m.dir.AvailableChannel() }

// PairedAddr returns the address paired on the channel.
func (m *Manager) PairedAddr(channel uint8) protocol.Address { return m.dir.PairedAddr(channel) }

// PairedUID returns the remote identity paired on the channel.
func (m *Manager) PairedUID(channel uint8) protocol.RadioID { return m.dir.PairedUID(channel) }

// PairedChannel returns the slot holding the given UID, or UnpairedChannel.
func (m *Manager) PairedChannel(uid protocol.RadioID) uint8 { return m.dir.PairedChannel(uid) }

// SetPairedAddr installs a peer on the channel and opens its reading pipe.
// With a public key, the shared channel key is derived first; a derivation
// failure rejects the whole operation.
func (m *Manager) SetPairedAddr(addr protocol.Address, channel uint8, publicKey []byte) error {
	var shared []byte
	if publicKey != nil {
		sk, err := crypto.SharedSecret(m.privateKey[:], publicKey)
		if err != nil {
			return err
		}
		shared = sk[:]
	}
	if err := m.dir.Set(channel, addr, publicKey, shared); err != nil {
		return err
	}
	m.dir.Slot(channel).channel.rand = m.rand
	m.radio.OpenReadingPipe(channel+1, protocol.ListenAddress(channel, m.id).String())
	m.log.Info("peer installed", metrics.Fields{"channel": channel, "addr": addr.String()})
	return nil
}

// ClearPairedAddr frees the channel slot, zeroing keys and messages.
func (m *Manager) ClearPairedAddr(channel uint8) {
	m.dir.Clear(channel)
}

// ClearPairedUID frees the slot holding the given UID. It reports whether a
// peer was removed.
func (m *Manager) ClearPairedUID(uid protocol.RadioID) bool {
	if m.dir.ClearUID(uid) {
		m.collector.RecordUnpair()
		m.log.Info("peer removed", metrics.Fields{"uid": uid.String()})
		return true
	}
	return false
}

// SetPairedDeviceKeys re-derives and installs key material for an occupied
// slot from the peer's public key.
func (m *Manager) SetPairedDeviceKeys(channel uint8, publicKey []byte) error {
	slot := m.dir.Slot(channel)
	if slot == nil || !slot.Occupied() {
		return rlerrors.ErrInvalidChannel
	}
	if len(publicKey) != constants.KeySize {
		return rlerrors.ErrInvalidKeySize
	}
	shared, err := crypto.SharedSecret(m.privateKey[:], publicKey)
	if err != nil {
		return err
	}
	copy(slot.publicKey[:], publicKey)
	copy(slot.sharedKey[:], shared[:])
	return slot.channel.SetKey(shared[:])
}

// PersonalKeys returns the device's X25519 identity.
func (m *Manager) PersonalKeys() (publicKey, privateKey [constants.KeySize]byte) {
	return m.publicKey, m.privateKey
}

// SetPersonalKeys installs a persisted X25519 identity. Shared keys of
// already-paired slots are not re-derived; import order matters.
func (m *Manager) SetPersonalKeys(publicKey, privateKey []byte) error {
	if len(publicKey) != constants.KeySize || len(privateKey) != constants.KeySize {
		return rlerrors.ErrInvalidKeySize
	}
	copy(m.publicKey[:], publicKey)
	copy(m.privateKey[:], privateKey)
	return nil
}
