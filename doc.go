// Package radiolink provides a peer-to-peer secure link layer for
// narrowband 2.4 GHz transceivers that deliver fixed 32-byte packets.
//
// The library pairs devices with a mutual X25519 handshake, derives a
// per-peer shared key, and moves arbitrary byte strings across the link as
// encrypted, fragmented, at-most-once messages. Up to five peers are held
// concurrently, each with its own secure channel and message mailbox.
//
// # Quick Start
//
//	import (
//	    "github.com/pierrejay/radiolink-go/pkg/link"
//	    "github.com/pierrejay/radiolink-go/pkg/radio/stub"
//	)
//
//	air := stub.NewAir()
//	mgr, _ := link.New(air.NewRadio(), "AB12")
//	mgr.Begin()
//	mgr.StartPairing()
//	for !mgr.Available() {
//	    mgr.Loop()
//	}
//
//	var st link.SendStatus
//	mgr.SendMessage([]byte("hello"), 0, &st, true)
//	for !st.Done() {
//	    mgr.Loop()
//	}
//
// # Package Structure
//
//   - pkg/link: secure channels, pairing state machine, device directory
//     and the tick-driven orchestrator
//   - pkg/protocol: addressing, fragment framing, reassembly
//   - pkg/crypto: X25519 key agreement and CSPRNG helpers
//   - pkg/radio: the transport contract, with an in-memory stub for tests
//   - pkg/metrics: structured logging, tracing and link counters
//   - internal/constants: protocol parameters
//   - internal/errors: error types shared across packages
//
// # Security Properties
//
// The link provides confidentiality (ChaCha20 keyed by an X25519 shared
// secret) and replay resistance (strictly monotonic counters embedded in
// each nonce). It does NOT authenticate ciphertexts: there is no tag, and a
// tampered message decrypts to garbage rather than an error. Counters reset
// on reboot, which reopens a bounded replay window until the link is
// re-paired.
//
// # Concurrency Model
//
// Everything is single-threaded and tick-driven: call Manager.Loop from a
// cooperative event loop. No operation blocks on radio I/O; waiting is
// expressed as clock comparisons between ticks.
package radiolink
