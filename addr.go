package ble

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Addr represents a device address in its colon-separated form.
type Addr interface {
	String() string
	Bytes() []byte
}

// NewAddr creates an Addr from string
func NewAddr(s string) Addr {
	return addr(strings.ToLower(s))
}

type addr string

func (a addr) String() string {
	return string(a)
}

// Bytes returns the octets in display order, nil if the address is malformed.
func (a addr) Bytes() []byte {
	b, err := ParseMAC(a.String())
	if err != nil {
		return nil
	}
	return b[:]
}

// AddrType is the LE address type reported by the controller.
type AddrType uint8

const (
	AddrTypePublic AddrType = 0x00
	AddrTypeRandom AddrType = 0x01
)

func (t AddrType) String() string {
	if t == AddrTypeRandom {
		return "random"
	}
	return "public"
}

// ParseAddrType accepts "public" or "random".
func ParseAddrType(s string) (AddrType, error) {
	switch strings.ToLower(s) {
	case "public":
		return AddrTypePublic, nil
	case "random":
		return AddrTypeRandom, nil
	default:
		return 0, errors.Errorf("invalid address type %q", s)
	}
}

// ParseMAC parses a colon-separated MAC string into its octets in display order.
func ParseMAC(s string) ([6]byte, error) {
	var out [6]byte

	parts := strings.Split(s, ":")
	if len(parts) != 6 {
		return out, errors.Wrapf(ErrInvalidAddress, "%q: expected 6 octets separated by ':'", s)
	}

	for i, p := range parts {
		if len(p) != 2 {
			return out, errors.Wrapf(ErrInvalidAddress, "%q: octet %d", s, i)
		}
		b, err := hex.DecodeString(p)
		if err != nil {
			return out, errors.Wrapf(ErrInvalidAddress, "%q: octet %d", s, i)
		}
		out[i] = b[0]
	}

	return out, nil
}

// MACToWire returns the octets of a MAC string least-significant first.
func MACToWire(s string) ([]byte, error) {
	b, err := ParseMAC(s)
	if err != nil {
		return nil, err
	}
	return []byte{b[5], b[4], b[3], b[2], b[1], b[0]}, nil
}

// MACFromWire formats wire-order octets as a lower-case colon-separated string.
func MACFromWire(b []byte) string {
	if len(b) != 6 {
		return ""
	}
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", b[5], b[4], b[3], b[2], b[1], b[0])
}

// Identifier derives the stable peripheral identifier for an address:
// lower-case hex with the colons stripped.
func Identifier(address string) string {
	return strings.ToLower(strings.Replace(address, ":", "", -1))
}

// AddressFromIdentifier reinterprets an identifier as a colon-joined MAC.
func AddressFromIdentifier(id string) (string, error) {
	if len(id) != 12 {
		return "", errors.Wrapf(ErrInvalidAddress, "identifier %q", id)
	}
	if _, err := hex.DecodeString(id); err != nil {
		return "", errors.Wrapf(ErrInvalidAddress, "identifier %q", id)
	}

	id = strings.ToLower(id)
	parts := make([]string, 0, 6)
	for i := 0; i < 12; i += 2 {
		parts = append(parts, id[i:i+2])
	}
	return strings.Join(parts, ":"), nil
}
