// address.go implements device identity and link addressing.
//
// Address Format:
//
//	+------------+---------------------+
//	| Pipe digit | Remote RadioID      |
//	| '0'..'5'   | 4 alphanumeric chars|
//	+------------+---------------------+
//
// The pipe digit names the logical slot on the remote device ('1'..'5' map
// to channel slots 0..4); '0' is the unpair sentinel. The full 5-character
// string doubles as the 5-byte radio-level address the transceiver matches on.
package protocol

import (
	"github.com/pierrejay/radiolink-go/internal/constants"
	rlerrors "github.com/pierrejay/radiolink-go/internal/errors"
)

// RadioID is the opaque 4-character alphanumeric identity of a device.
type RadioID string

// NewRadioID normalizes an arbitrary identifier to exactly 4 characters:
// shorter inputs are left-padded with '0', longer inputs are truncated to
// the first 4 characters.
func NewRadioID(id string) RadioID {
	for len(id) < constants.RadioIDSize {
		id = "0" + id
	}
	if len(id) > constants.RadioIDSize {
		id = id[:constants.RadioIDSize]
	}
	return RadioID(id)
}

// String returns the identifier as a plain string.
func (id RadioID) String() string { return string(id) }

// Address is a 5-character logical peer identifier: pipe digit plus remote
// RadioID. The zero value ("") marks a free directory slot.
type Address string

// MakeAddress builds the address a peer must write to in order to reach the
// given pipe of the device identified by id.
func MakeAddress(pipe uint8, id RadioID) Address {
	return Address(string('0'+pipe) + string(id))
}

// ListenAddress returns the radio-level address a device listens on for
// channel slot: the pipe digit slot+1 followed by the local RadioID. It is
// the same string a paired peer holds as the slot's Address.
func ListenAddress(slot uint8, id RadioID) Address {
	return MakeAddress(slot+1, id)
}

// Valid reports whether the address is well-formed: 5 characters, a leading
// pipe digit in '0'..'5', and an alphanumeric UID.
func (a Address) Valid() bool {
	if len(a) != constants.AddressSize {
		return false
	}
	if a[0] < '0' || a[0] > '5' {
		return false
	}
	for i := 1; i < constants.AddressSize; i++ {
		if !isAlphanumeric(a[i]) {
			return false
		}
	}
	return true
}

// ParseAddress validates raw bytes as an Address.
func ParseAddress(raw []byte) (Address, error) {
	a := Address(raw)
	if !a.Valid() {
		return "", rlerrors.ErrInvalidAddress
	}
	return a, nil
}

// Pipe returns the pipe digit as a number. Valid addresses yield 0..5.
func (a Address) Pipe() uint8 {
	if len(a) == 0 {
		return 0
	}
	return a[0] - '0'
}

// UID returns the 4-character remote identity embedded in the address.
func (a Address) UID() RadioID {
	if len(a) != constants.AddressSize {
		return ""
	}
	return RadioID(a[1:])
}

// IsUnpair reports whether the address carries the unpair sentinel digit.
func (a Address) IsUnpair() bool {
	return len(a) == constants.AddressSize && a[0] == '0'
}

// String returns the address as a plain string.
func (a Address) String() string { return string(a) }

func isAlphanumeric(c byte) bool {
	switch {
	case c >= '0' && c <= '9':
		return true
	case c >= 'a' && c <= 'z':
		return true
	case c >= 'A' && c <= 'Z':
		return true
	}
	return false
}
