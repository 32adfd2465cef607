// Package stub provides an in-memory radio implementation for host-side
// testing and demos.
//
// An Air is a shared medium; every Radio created from it can reach every
// other. Delivery follows the hardware model: a written packet reaches the
// radios that are listening on the same RF channel with a reading pipe whose
// address matches the writing address, and Write reports an auto-ACK exactly
// when at least one such receiver exists.
package stub

import (
	"sync"

	"github.com/pierrejay/radiolink-go/internal/constants"
)

// Frame is one packet observed on the air, as delivered.
type Frame struct {
	Channel uint8
	Addr    string
	Payload []byte
}

// Air is the shared medium connecting stub radios. It records every
// acknowledged frame so tests can capture and replay traffic.
type Air struct {
	mu     sync.Mutex
	radios []*Radio
	frames []Frame
}

// NewAir creates an empty medium.
func NewAir() *Air {
	return &Air{}
}

// NewRadio attaches a new radio to the medium.
func (a *Air) NewRadio() *Radio {
	a.mu.Lock()
	defer a.mu.Unlock()
	r := &Radio{air: a}
	a.radios = append(a.radios, r)
	return r
}

// Frames returns a copy of every acknowledged frame since the last clear.
func (a *Air) Frames() []Frame {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Frame, len(a.frames))
	for i, f := range a.frames {
		p := make([]byte, len(f.Payload))
		copy(p, f.Payload)
		out[i] = Frame{Channel: f.Channel, Addr: f.Addr, Payload: p}
	}
	return out
}

// ClearFrames empties the capture log.
func (a *Air) ClearFrames() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.frames = nil
}

// transmit delivers a packet from sender to every matching listener and
// reports whether anyone acknowledged it.
func (a *Air) transmit(sender *Radio, channel uint8, addr string, payload []byte) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	acked := false
	for _, r := range a.radios {
		if r == sender {
			continue
		}
		if r.deliver(channel, addr, payload) {
			acked = true
		}
	}
	if acked {
		p := make([]byte, len(payload))
		copy(p, payload)
		a.frames = append(a.frames, Frame{Channel: channel, Addr: addr, Payload: p})
	}
	return acked
}

type queuedPacket struct {
	pipe    uint8
	payload [constants.MaxPacketSize]byte
}

// Radio is one endpoint on a stub Air. It satisfies radio.Transport.
type Radio struct {
	air *Air

	mu        sync.Mutex
	channel   uint8
	readPipes [6]string // indexed by pipe 1..5
	writeAddr string
	listening bool
	rx        []queuedPacket
}

// rxQueueDepth bounds the receive queue; the hardware FIFO holds three
// packets, the stub is more forgiving for test pacing.
const rxQueueDepth = 64

// SetChannel tunes the radio.
func (r *Radio) SetChannel(channel uint8) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channel = channel
}

// OpenReadingPipe attaches addr to the given pipe. Pipes outside 1..5 are
// ignored, matching the hardware's address-matched receive slots.
func (r *Radio) OpenReadingPipe(pipe uint8, addr string) {
	if pipe < 1 || pipe > 5 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.readPipes[pipe] = addr
}

// OpenWritingPipe selects the destination address.
func (r *Radio) OpenWritingPipe(addr string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writeAddr = addr
}

// StartListening enters receive mode.
func (r *Radio) StartListening() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listening = true
}

// StopListening leaves receive mode.
func (r *Radio) StopListening() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listening = false
}

// Available reports the pipe of the oldest waiting packet.
func (r *Radio) Available() (uint8, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.rx) == 0 {
		return 0, false
	}
	return r.rx[0].pipe, true
}

// PayloadSize returns the fixed 32-byte packet size.
func (r *Radio) PayloadSize() uint8 {
	return constants.MaxPacketSize
}

// Read pops the oldest waiting packet into buf.
func (r *Radio) Read(buf []byte) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.rx) == 0 {
		return 0
	}
	pkt := r.rx[0]
	r.rx = r.rx[1:]
	return copy(buf, pkt.payload[:])
}

// Write transmits one packet to the writing address. The payload is padded
// or truncated to the 32-byte frame like the hardware FIFO.
func (r *Radio) Write(buf []byte) bool {
	r.mu.Lock()
	channel := r.channel
	addr := r.writeAddr
	r.mu.Unlock()
	if addr == "" {
		return false
	}
	return r.air.transmit(r, channel, addr, buf)
}

// Inject queues a packet directly on the given pipe, bypassing address
// matching. Tests use it to model traffic the air cannot produce.
func (r *Radio) Inject(pipe uint8, payload []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enqueue(pipe, payload)
}

// deliver enqueues the packet if this radio is a matching listener.
func (r *Radio) deliver(channel uint8, addr string, payload []byte) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.listening || r.channel != channel {
		return false
	}
	for pipe := uint8(1); pipe <= 5; pipe++ {
		if r.readPipes[pipe] == addr {
			r.enqueue(pipe, payload)
			return true
		}
	}
	return false
}

func (r *Radio) enqueue(pipe uint8, payload []byte) {
	if len(r.rx) == rxQueueDepth {
		// Overwrite the oldest to keep memory bounded.
		r.rx = r.rx[1:]
	}
	var pkt queuedPacket
	pkt.pipe = pipe
	copy(pkt.payload[:], payload)
	r.rx = append(r.rx, pkt)
}
