package ble

import "time"

// ConnParams are the LE create-connection parameters in controller units.
// Zero fields take the stack defaults.
type ConnParams struct {
	// Connection interval bounds, 1.25 ms units.
	MinInterval uint16
	MaxInterval uint16
	Latency     uint16
	// Supervision timeout, 10 ms units.
	Timeout uint16

	// AddressType is used only when the peripheral was never discovered.
	AddressType *AddrType
}

// IntervalDuration converts a 1.25 ms unit interval.
func IntervalDuration(units uint16) time.Duration {
	return time.Duration(units) * 1250 * time.Microsecond
}

// TimeoutDuration converts a 10 ms unit supervision timeout.
func TimeoutDuration(units uint16) time.Duration {
	return time.Duration(units) * 10 * time.Millisecond
}

// DisconnectReason values used by the stack itself.
const (
	ReasonHardwareFailure    uint8 = 0x03
	ReasonRemoteUser         uint8 = 0x13
	ReasonLocalHostTerminate uint8 = 0x16
)
