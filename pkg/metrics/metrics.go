// Package metrics provides observability primitives for the radiolink
// library.
//
// The package includes:
//   - a Collector of link counters with Prometheus-compatible export
//   - tracing support with an OpenTelemetry adapter (build tag "otel")
//   - structured logging with levels
package metrics

import (
	"sync/atomic"
	"time"
)

// Labels represents key-value pairs for metric labeling.
type Labels map[string]string

// Collector aggregates counters from one link manager.
type Collector struct {
	// Traffic
	packetsSent      atomic.Uint64
	packetsReceived  atomic.Uint64
	bytesSent        atomic.Uint64
	bytesReceived    atomic.Uint64
	messagesSent     atomic.Uint64
	messagesReceived atomic.Uint64
	writeFailures    atomic.Uint64

	// Security
	replaysBlocked  atomic.Uint64
	decryptFailures atomic.Uint64

	// Reassembly
	reassemblyDrops    atomic.Uint64
	reassemblyTimeouts atomic.Uint64

	// Pairing
	pairingsStarted   atomic.Uint64
	pairingsCompleted atomic.Uint64
	pairingsAborted   atomic.Uint64
	unpairs           atomic.Uint64

	createdAt time.Time
	labels    Labels
}

// NewCollector creates a new metrics collector.
func NewCollector(labels Labels) *Collector {
	if labels == nil {
		labels = make(Labels)
	}
	return &Collector{
		createdAt: time.Now(),
		labels:    labels,
	}
}

// RecordPacketSent counts one acknowledged outbound packet of n bytes.
func (c *Collector) RecordPacketSent(n int) {
	c.packetsSent.Add(1)
	c.bytesSent.Add(uint64(n))
}

// RecordPacketReceived counts one inbound packet of n bytes.
func (c *Collector) RecordPacketReceived(n int) {
	c.packetsReceived.Add(1)
	c.bytesReceived.Add(uint64(n))
}

// RecordMessageSent counts one completed outbound message.
func (c *Collector) RecordMessageSent() { c.messagesSent.Add(1) }

// RecordMessageReceived counts one delivered inbound message.
func (c *Collector) RecordMessageReceived() { c.messagesReceived.Add(1) }

// RecordWriteFailure counts a radio write with no auto-ACK.
func (c *Collector) RecordWriteFailure() { c.writeFailures.Add(1) }

// RecordReplayBlocked counts a ciphertext rejected by the replay watermark.
func (c *Collector) RecordReplayBlocked() { c.replaysBlocked.Add(1) }

// RecordDecryptFailure counts a message that failed to decrypt.
func (c *Collector) RecordDecryptFailure() { c.decryptFailures.Add(1) }

// RecordReassemblyDrop counts a message discarded for a fragment mismatch.
func (c *Collector) RecordReassemblyDrop() { c.reassemblyDrops.Add(1) }

// RecordReassemblyTimeout counts a partial message expired by inactivity.
func (c *Collector) RecordReassemblyTimeout() { c.reassemblyTimeouts.Add(1) }

// RecordPairingStarted counts one entered pairing procedure.
func (c *Collector) RecordPairingStarted() { c.pairingsStarted.Add(1) }

// RecordPairingCompleted counts a pairing that installed or removed a peer.
func (c *Collector) RecordPairingCompleted() { c.pairingsCompleted.Add(1) }

// RecordPairingAborted counts a pairing that ended without effect.
func (c *Collector) RecordPairingAborted() { c.pairingsAborted.Add(1) }

// RecordUnpair counts a peer removed from the directory.
func (c *Collector) RecordUnpair() { c.unpairs.Add(1) }

// Snapshot is a point-in-time copy of every counter.
type Snapshot struct {
	PacketsSent        uint64
	PacketsReceived    uint64
	BytesSent          uint64
	BytesReceived      uint64
	MessagesSent       uint64
	MessagesReceived   uint64
	WriteFailures      uint64
	ReplaysBlocked     uint64
	DecryptFailures    uint64
	ReassemblyDrops    uint64
	ReassemblyTimeouts uint64
	PairingsStarted    uint64
	PairingsCompleted  uint64
	PairingsAborted    uint64
	Unpairs            uint64
	Uptime             time.Duration
}

// Snapshot returns a copy of the current counter values.
func (c *Collector) Snapshot() Snapshot {
	return Snapshot{
		PacketsSent:        c.packetsSent.Load(),
		PacketsReceived:    c.packetsReceived.Load(),
		BytesSent:          c.bytesSent.Load(),
		BytesReceived:      c.bytesReceived.Load(),
		MessagesSent:       c.messagesSent.Load(),
		MessagesReceived:   c.messagesReceived.Load(),
		WriteFailures:      c.writeFailures.Load(),
		ReplaysBlocked:     c.replaysBlocked.Load(),
		DecryptFailures:    c.decryptFailures.Load(),
		ReassemblyDrops:    c.reassemblyDrops.Load(),
		ReassemblyTimeouts: c.reassemblyTimeouts.Load(),
		PairingsStarted:    c.pairingsStarted.Load(),
		PairingsCompleted:  c.pairingsCompleted.Load(),
		PairingsAborted:    c.pairingsAborted.Load(),
		Unpairs:            c.unpairs.Load(),
		Uptime:             time.Since(c.createdAt),
	}
}
