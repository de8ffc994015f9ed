package ble

import "time"

// Event is delivered to the EventHandler. Name returns the event name of the
// public contract ("stateChange", "discover", ...).
type Event interface {
	Name() string
}

// EventHandler receives every upward event in processing order.
type EventHandler func(Event)

type StateChangeEvent struct {
	State State
}

type AddressChangeEvent struct {
	Address     string
	AddressType AddrType
}

type ScanStartEvent struct {
	FilterDuplicates bool
}

type ScanStopEvent struct{}

type DiscoverEvent struct {
	ID            string
	Address       string
	AddressType   AddrType
	Connectable   bool
	Advertisement *Advertisement
	RSSI          int8
	Scannable     bool
}

type ConnectEvent struct {
	ID  string
	Err error
}

type DisconnectEvent struct {
	ID     string
	Reason uint8
}

type RSSIUpdateEvent struct {
	ID   string
	RSSI int8
}

type MTUEvent struct {
	ID  string
	MTU int
}

type EncryptChangeEvent struct {
	ID        string
	Encrypted bool
}

type EncryptFailEvent struct {
	ID  string
	Err error
}

// NotifyEvent carries a handle value notification or indication.
type NotifyEvent struct {
	ID         string
	Handle     uint16
	Data       []byte
	Indication bool
}

// ConnParamsUpdateEvent reports a peripheral's connection parameter update
// request, already forwarded to the controller.
type ConnParamsUpdateEvent struct {
	ID                 string
	MinInterval        time.Duration
	MaxInterval        time.Duration
	Latency            uint16
	SupervisionTimeout time.Duration
}

// LTKEvent and MasterIdentEvent report keys distributed by the peripheral.
// Nothing in the stack stores them.
type LTKEvent struct {
	ID  string
	LTK []byte
}

type MasterIdentEvent struct {
	ID   string
	EDiv uint16
	Rand uint64
}

func (StateChangeEvent) Name() string      { return "stateChange" }
func (AddressChangeEvent) Name() string    { return "addressChange" }
func (ScanStartEvent) Name() string        { return "scanStart" }
func (ScanStopEvent) Name() string         { return "scanStop" }
func (DiscoverEvent) Name() string         { return "discover" }
func (ConnectEvent) Name() string          { return "connect" }
func (DisconnectEvent) Name() string       { return "disconnect" }
func (RSSIUpdateEvent) Name() string       { return "rssiUpdate" }
func (MTUEvent) Name() string              { return "mtu" }
func (EncryptChangeEvent) Name() string    { return "encryptChange" }
func (EncryptFailEvent) Name() string      { return "encryptFail" }
func (NotifyEvent) Name() string           { return "notify" }
func (ConnParamsUpdateEvent) Name() string { return "connectionParameterUpdate" }
func (LTKEvent) Name() string              { return "ltk" }
func (MasterIdentEvent) Name() string      { return "masterIdent" }
