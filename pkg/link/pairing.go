// pairing.go implements the mutual pairing state machine.
//
// Pairing Protocol:
//
//	Listen role                            Transmit role
//	    |                                      |
//	    | <------- public key (CFGTX) -------- |  T1
//	    |   [both derive the shared key]       |
//	    | -------- public key (CFGRX) -------> |  L2
//	    |                                      |
//	    | <---- encrypted address (CFGTX) ---- |  T3
//	    | ----- encrypted address (CFGRX) ---> |  L4
//	    |                                      |
//	    |        === Peers installed ===       |
//
// Both devices enter the Listen role. A device that hears no public key
// within the listen budget flips to Transmit and starts broadcasting its
// own, so two devices started within a few seconds of each other settle
// into complementary roles.
//
// The address assignment names the pipe the peer must write to: digit
// slot+1 for a fresh pairing, or the '0' sentinel to request unpairing of
// the embedded UID when no slot is free. Re-pairing a UID that is already
// in the directory clears the old slot and completes as an unpair, so
// repeated attempts by the same peer are idempotent.
//
// Radio write failures during pairing are transient (the step retries until
// the overall timeout); an address that fails to decrypt or validate is
// ignored until a valid frame or the timeout arrives.
package link

import (
	"context"
	"time"

	"github.com/pierrejay/radiolink-go/internal/constants"
	rlerrors "github.com/pierrejay/radiolink-go/internal/errors"
	"github.com/pierrejay/radiolink-go/pkg/crypto"
	"github.com/pierrejay/radiolink-go/pkg/metrics"
	"github.com/pierrejay/radiolink-go/pkg/protocol"
)

// pairingContext carries the transient state of one pairing procedure. It
// is created by StartPairing and destroyed on success, abort or timeout.
type pairingContext struct {
	startedAt   time.Time
	lastAttempt time.Time

	// slot is the lowest free channel at pairing start; UnpairedChannel
	// means the directory is full and only an unpair request can go out.
	slot uint8

	peerPublicKey [constants.KeySize]byte
	channel       *SecureChannel

	// pending is the encrypted address assignment the Transmit role
	// builds in step 2 and retries in step 3.
	pending []byte

	gotPubKey   bool
	sentPubKey  bool
	gotAck      bool
	sentAck     bool
	isUnpairReq bool

	end metrics.SpanEnder
}

// StartPairing enters the pairing procedure in the Listen role. It fails
// when the link is disabled or not idle.
func (m *Manager) StartPairing() error {
	if !m.enabled {
		return rlerrors.ErrLinkDisabled
	}
	if m.state != StateIdle {
		return rlerrors.ErrLinkBusy
	}

	ch, err := NewSecureChannel(make([]byte, constants.KeySize))
	if err != nil {
		return err
	}
	ch.rand = m.rand

	_, end := m.tracer.StartSpan(context.Background(), "link.pairing", metrics.WithAttributes(
		map[string]interface{}{"id": m.id.String()},
	))

	m.pairing = &pairingContext{
		startedAt: m.now(),
		slot:      m.dir.AvailableChannel(),
		channel:   ch,
		end:       end,
	}
	m.state = StatePairingListen

	m.radio.SetChannel(constants.DataChannel)
	m.radio.OpenReadingPipe(1, constants.ConfigTXAddr)
	m.radio.StartListening()

	m.collector.RecordPairingStarted()
	m.log.Info("pairing started", metrics.Fields{"slot": m.pairing.slot})
	return nil
}

// handlePairing advances the active pairing procedure by one tick.
func (m *Manager) handlePairing(now time.Time) {
	p := m.pairing

	switch m.state {
	case StatePairingListen:
		m.pairingListenStep(p, now)
	case StatePairingTransmit:
		m.pairingTransmitStep(p, now)
	}

	// The overall budget runs from StartPairing and survives the role flip.
	if m.pairing != nil && now.Sub(p.startedAt) > constants.PairingTimeout {
		m.log.Warn("pairing timed out")
		m.finishPairing(rlerrors.ErrPairingTimeout)
	}
}

// pairingListenStep runs the Listen role. Steps overlap intentionally: a
// single tick can both consume a waiting frame and perform the next write.
func (m *Manager) pairingListenStep(p *pairingContext, now time.Time) {
	// L1: wait for the peer public key on CFGTX and derive the shared key.
	if !p.gotPubKey {
		if _, ok := m.radio.Available(); ok {
			if m.readPeerKey(p, "L1") {
				p.gotPubKey = true
			}
		}
	}

	// L2: answer with our own public key on CFGRX.
	if p.gotPubKey && !p.sentPubKey && now.Sub(p.lastAttempt) > constants.PairingInterval {
		p.lastAttempt = now
		m.radio.StopListening()
		m.radio.OpenWritingPipe(constants.ConfigRXAddr)
		if m.radio.Write(m.publicKey[:]) {
			p.sentPubKey = true
			m.log.Debug("pairing: public key sent", metrics.Fields{"step": "L2"})
		} else {
			m.collector.RecordWriteFailure()
			m.log.Debug("pairing: public key unreceived", metrics.Fields{"step": "L2"})
		}
		m.radio.OpenReadingPipe(1, constants.ConfigTXAddr)
		m.radio.StartListening()
	}

	// L3: decrypt the peer's address assignment and act on it.
	if p.sentPubKey && !p.gotAck {
		if _, ok := m.radio.Available(); ok {
			addr, ok := m.readAddrAssignment(p, "L3")
			if ok {
				p.gotAck = true
				switch {
				case m.ClearPairedUID(addr.UID()):
					// Known UID: the handshake completes as an unpair,
					// whatever the pipe digit says.
					p.isUnpairReq = true
					m.log.Info("pairing: peer unpaired", metrics.Fields{"addr": addr.String()})

				case addr.IsUnpair():
					m.log.Warn("pairing: unpair request for unknown peer",
						metrics.Fields{"addr": addr.String()})
					m.finishPairing(rlerrors.ErrPairingAborted)
					return

				case p.slot < constants.MaxChannels:
					if err := m.SetPairedAddr(addr, p.slot, p.peerPublicKey[:]); err != nil {
						m.log.Warn("pairing: peer install failed", metrics.Fields{"err": err.Error()})
						m.finishPairing(rlerrors.ErrPairingAborted)
						return
					}
					m.log.Info("pairing: peer installed",
						metrics.Fields{"addr": addr.String(), "channel": p.slot})

				default:
					m.log.Warn("pairing: all channels occupied")
					m.finishPairing(rlerrors.ErrPairingAborted)
					return
				}
			}
		}
	}

	// L4: answer with our own encrypted address assignment; done on ACK.
	if p.gotAck && !p.sentAck {
		p.lastAttempt = now
		m.radio.StopListening()
		m.radio.OpenWritingPipe(constants.ConfigRXAddr)
		payload, err := m.sealAddrAssignment(p)
		if err != nil {
			m.finishPairing(err)
			return
		}
		if m.radio.Write(payload) {
			p.sentAck = true
			m.log.Info("pairing successful", metrics.Fields{"role": "listen"})
			m.finishPairing(nil)
			return
		}
		m.collector.RecordWriteFailure()
		m.radio.OpenReadingPipe(1, constants.ConfigTXAddr)
		m.radio.StartListening()
	}

	// Listen budget spent with no peer: flip to the Transmit role.
	if !p.gotPubKey && now.Sub(p.startedAt) > constants.PairingListenTime {
		m.log.Info("pairing: switching to transmit role")
		m.state = StatePairingTransmit
		m.radio.StopListening()
		m.radio.OpenWritingPipe(constants.ConfigTXAddr)
	}
}

// pairingTransmitStep runs the Transmit role.
func (m *Manager) pairingTransmitStep(p *pairingContext, now time.Time) {
	// T1: broadcast our public key on CFGTX until a listener ACKs it.
	if !p.sentPubKey && now.Sub(p.lastAttempt) > constants.PairingInterval {
		p.lastAttempt = now
		m.radio.StopListening()
		m.radio.OpenWritingPipe(constants.ConfigTXAddr)
		if m.radio.Write(m.publicKey[:]) {
			p.sentPubKey = true
			m.log.Debug("pairing: public key sent", metrics.Fields{"step": "T1"})
		} else {
			m.collector.RecordWriteFailure()
		}
		m.radio.OpenReadingPipe(1, constants.ConfigRXAddr)
		m.radio.StartListening()
	}

	// T2: receive the peer key, derive, and build our address assignment.
	if p.sentPubKey && !p.gotPubKey {
		if _, ok := m.radio.Available(); ok {
			if m.readPeerKey(p, "T2") {
				p.gotPubKey = true

				pipe := uint8(0)
				if p.slot >= constants.MaxChannels {
					p.isUnpairReq = true
					m.log.Info("pairing: directory full, sending unpair request")
				} else {
					pipe = p.slot + 1
				}
				assignment := protocol.MakeAddress(pipe, m.id)
				ct, err := p.channel.Encrypt([]byte(assignment))
				if err != nil {
					m.finishPairing(err)
					return
				}
				p.pending = protocol.Pad(ct, constants.MaxPacketSize)
			}
		}
	}

	// T3: send the encrypted assignment, gated by the retry interval.
	if p.gotPubKey && !p.sentAck && now.Sub(p.lastAttempt) > constants.PairingInterval {
		p.lastAttempt = now
		m.radio.StopListening()
		m.radio.OpenWritingPipe(constants.ConfigTXAddr)
		if m.radio.Write(p.pending) {
			p.sentAck = true
			m.log.Debug("pairing: address assignment sent", metrics.Fields{"step": "T3"})
		} else {
			m.collector.RecordWriteFailure()
		}
		m.radio.OpenReadingPipe(1, constants.ConfigRXAddr)
		m.radio.StartListening()
	}

	// T4: validate the peer's answer and complete.
	if p.sentAck && !p.gotAck {
		if _, ok := m.radio.Available(); ok {
			addr, ok := m.readAddrAssignment(p, "T4")
			if ok {
				p.gotAck = true
				switch {
				case addr.IsUnpair():
					if m.ClearPairedUID(addr.UID()) {
						m.log.Info("pairing: unpair acknowledged",
							metrics.Fields{"addr": addr.String()})
						m.finishPairing(nil)
					} else {
						m.log.Warn("pairing: unpair ACK for unknown peer",
							metrics.Fields{"addr": addr.String()})
						m.finishPairing(rlerrors.ErrPairingAborted)
					}

				case p.isUnpairReq:
					// We asked for an unpair and got a pairing answer.
					m.log.Warn("pairing: unexpected answer to unpair request",
						metrics.Fields{"addr": addr.String()})
					m.finishPairing(rlerrors.ErrPairingAborted)

				default:
					if err := m.SetPairedAddr(addr, p.slot, p.peerPublicKey[:]); err != nil {
						m.log.Warn("pairing: peer install failed", metrics.Fields{"err": err.Error()})
						m.finishPairing(rlerrors.ErrPairingAborted)
						return
					}
					m.log.Info("pairing successful",
						metrics.Fields{"role": "transmit", "addr": addr.String(), "channel": p.slot})
					m.finishPairing(nil)
				}
				return
			}
		}
	}
}

// readPeerKey consumes a waiting frame as the peer's public key and derives
// the shared key. A key that fails derivation is dropped and the step keeps
// waiting.
func (m *Manager) readPeerKey(p *pairingContext, step string) bool {
	buf := make([]byte, m.radio.PayloadSize())
	n := m.radio.Read(buf)
	if n < constants.KeySize {
		return false
	}

	var peerKey [constants.KeySize]byte
	copy(peerKey[:], buf[:constants.KeySize])

	shared, err := crypto.SharedSecret(m.privateKey[:], peerKey[:])
	if err != nil {
		m.log.Warn("pairing: shared key derivation failed",
			metrics.Fields{"step": step, "err": err.Error()})
		return false
	}

	p.peerPublicKey = peerKey
	if err := p.channel.SetKey(shared[:]); err != nil {
		return false
	}
	m.log.Debug("pairing: peer key received", metrics.Fields{"step": step})
	return true
}

// readAddrAssignment consumes a waiting frame as an encrypted address
// assignment. The ciphertext length is fixed (nonce plus 5-byte address),
// so the frame is sliced rather than zero-stripped.
func (m *Manager) readAddrAssignment(p *pairingContext, step string) (protocol.Address, bool) {
	buf := make([]byte, m.radio.PayloadSize())
	n := m.radio.Read(buf)

	const want = constants.NonceSize + constants.AddressSize
	if n < want {
		return "", false
	}

	plain, err := p.channel.Decrypt(buf[:want])
	if err != nil {
		m.log.Debug("pairing: invalid assignment ignored",
			metrics.Fields{"step": step, "err": err.Error()})
		return "", false
	}
	addr, err := protocol.ParseAddress(plain)
	if err != nil {
		m.log.Debug("pairing: malformed address ignored", metrics.Fields{"step": step})
		return "", false
	}
	m.log.Debug("pairing: address assignment received",
		metrics.Fields{"step": step, "addr": addr.String()})
	return addr, true
}

// sealAddrAssignment encrypts this device's address assignment: the '0'
// sentinel when the handshake is an unpair, the pairing slot's pipe digit
// otherwise.
func (m *Manager) sealAddrAssignment(p *pairingContext) ([]byte, error) {
	pipe := uint8(0)
	if !p.isUnpairReq {
		pipe = p.slot + 1
	}
	assignment := protocol.MakeAddress(pipe, m.id)
	ct, err := p.channel.Encrypt([]byte(assignment))
	if err != nil {
		return nil, err
	}
	return protocol.Pad(ct, constants.MaxPacketSize), nil
}

// finishPairing tears down the procedure, restores the data pipes and
// returns to Idle. A nil error marks a pairing or unpair that took effect.
func (m *Manager) finishPairing(err error) {
	p := m.pairing
	m.pairing = nil
	m.state = StateIdle
	m.initRadio()

	if err == nil {
		m.collector.RecordPairingCompleted()
	} else {
		m.collector.RecordPairingAborted()
		m.log.Info("pairing ended", metrics.Fields{"err": err.Error()})
	}
	if p != nil && p.end != nil {
		p.end(err)
	}
}
