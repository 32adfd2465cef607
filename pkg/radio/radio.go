// Package radio defines the transport contract the link layer drives.
//
// The physical transceiver (an nRF24-class 2.4 GHz radio) is out of scope;
// hardware drivers, simulators and test stubs all satisfy Transport. The
// contract mirrors the pipe model of the hardware: up to five address-matched
// reading pipes, one writing pipe, and synchronous per-packet writes that
// report the radio-layer auto-acknowledgement.
package radio

// Transport is the minimal radio surface the link layer needs.
//
// Implementations are not expected to be safe for concurrent use; the link
// orchestrator owns the radio exclusively and drives it from a single
// cooperative loop.
type Transport interface {
	// SetChannel tunes the transceiver to the given RF channel.
	SetChannel(channel uint8)

	// OpenReadingPipe attaches a 5-byte address to reading pipe 1..5.
	// Reopening a pipe replaces its address.
	OpenReadingPipe(pipe uint8, addr string)

	// OpenWritingPipe selects the 5-byte destination address for Write.
	OpenWritingPipe(addr string)

	// StartListening puts the radio in receive mode.
	StartListening()

	// StopListening leaves receive mode so the radio can transmit.
	StopListening()

	// Available reports whether a packet is waiting, and on which pipe.
	Available() (pipe uint8, ok bool)

	// PayloadSize returns the fixed packet size, at most 32 bytes.
	PayloadSize() uint8

	// Read copies the oldest waiting packet into buf and consumes it.
	// It returns the number of bytes copied.
	Read(buf []byte) int

	// Write transmits one packet to the writing-pipe address. It returns
	// true only when the radio layer observed an auto-ACK from a receiver.
	Write(buf []byte) bool
}
