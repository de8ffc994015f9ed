package evt

// Event codes [Vol 2, Part E, 7.7]
const (
	DisconnectionCompleteCode    = 0x05
	EncryptionChangeCode         = 0x08
	CommandCompleteCode          = 0x0E
	CommandStatusCode            = 0x0F
	HardwareErrorCode            = 0x10
	NumberOfCompletedPacketsCode = 0x13
	LEMetaCode                   = 0x3E
	VendorCode                   = 0xFF
)

// LE meta subevent codes [Vol 2, Part E, 7.7.65]
const (
	LEConnectionCompleteSubCode         = 0x01
	LEAdvertisingReportSubCode          = 0x02
	LEConnectionUpdateCompleteSubCode   = 0x03
	LELongTermKeyRequestSubCode         = 0x05
	LEEnhancedConnectionCompleteSubCode = 0x0A
	LEExtendedAdvertisingReportSubCode  = 0x0D
)

// Each event type wraps the event parameters (the bytes after code and
// length). LE meta events keep the subevent code at offset 0.
type (
	DisconnectionComplete        []byte
	EncryptionChange             []byte
	CommandComplete              []byte
	CommandStatus                []byte
	NumberOfCompletedPackets     []byte
	LEConnectionComplete         []byte
	LEEnhancedConnectionComplete []byte
	LEConnectionUpdateComplete   []byte
	LELongTermKeyRequest         []byte
	LEAdvertisingReport          []byte
	LEExtendedAdvertisingReport  []byte
)

// AdvReport is one entry of a (legacy or extended) advertising report event.
type AdvReport struct {
	EventType   uint8
	AddressType uint8
	Address     [6]byte
	Data        []byte
	RSSI        int8
}

func (e DisconnectionComplete) Status() uint8 {
	v, _ := e.StatusWErr()
	return v
}

func (e DisconnectionComplete) ConnectionHandle() uint16 {
	v, _ := e.ConnectionHandleWErr()
	return v
}

func (e DisconnectionComplete) Reason() uint8 {
	v, _ := e.ReasonWErr()
	return v
}

func (e EncryptionChange) Status() uint8 {
	v, _ := e.StatusWErr()
	return v
}

func (e EncryptionChange) ConnectionHandle() uint16 {
	v, _ := e.ConnectionHandleWErr()
	return v
}

func (e EncryptionChange) EncryptionEnabled() uint8 {
	v, _ := e.EncryptionEnabledWErr()
	return v
}

func (e CommandComplete) NumHCICommandPackets() uint8 {
	v, _ := e.NumHCICommandPacketsWErr()
	return v
}

func (e CommandComplete) CommandOpcode() uint16 {
	v, _ := e.CommandOpcodeWErr()
	return v
}

func (e CommandComplete) ReturnParameters() []byte {
	v, _ := e.ReturnParametersWErr()
	return v
}

func (e CommandStatus) Status() uint8 {
	v, _ := e.StatusWErr()
	return v
}

func (e CommandStatus) NumHCICommandPackets() uint8 {
	v, _ := e.NumHCICommandPacketsWErr()
	return v
}

func (e CommandStatus) CommandOpcode() uint16 {
	v, _ := e.CommandOpcodeWErr()
	return v
}

// Per-spec [Vol 2, Part E, 7.7.19], the packet structure should be:
//
//     NumOfHandle, HandleA, HandleB, CompPktNumA, CompPktNumB
//
// But we got the actual packet from BCM20702A1 with the following structure instead.
//
//     NumOfHandle, HandleA, CompPktNumA, HandleB, CompPktNumB
//              02,   40 00,       01 00,   41 00,       01 00

func (e NumberOfCompletedPackets) NumberOfHandles() uint8 {
	v, _ := e.NumberOfHandlesWErr()
	return v
}

func (e NumberOfCompletedPackets) ConnectionHandle(i int) uint16 {
	v, _ := e.ConnectionHandleWErr(i)
	return v
}

func (e NumberOfCompletedPackets) HCNumOfCompletedPackets(i int) uint16 {
	v, _ := e.HCNumOfCompletedPacketsWErr(i)
	return v
}

func (e LEConnectionComplete) Status() uint8 {
	v, _ := e.StatusWErr()
	return v
}

func (e LEConnectionComplete) ConnectionHandle() uint16 {
	v, _ := e.ConnectionHandleWErr()
	return v
}

func (e LEConnectionComplete) Role() uint8 {
	v, _ := e.RoleWErr()
	return v
}

func (e LEConnectionComplete) PeerAddressType() uint8 {
	v, _ := e.PeerAddressTypeWErr()
	return v
}

func (e LEConnectionComplete) PeerAddress() [6]byte {
	v, _ := e.PeerAddressWErr()
	return v
}

func (e LEConnectionComplete) ConnInterval() uint16 {
	v, _ := e.ConnIntervalWErr()
	return v
}

func (e LEConnectionComplete) ConnLatency() uint16 {
	v, _ := e.ConnLatencyWErr()
	return v
}

func (e LEConnectionComplete) SupervisionTimeout() uint16 {
	v, _ := e.SupervisionTimeoutWErr()
	return v
}

func (e LEConnectionUpdateComplete) Status() uint8 {
	v, _ := e.StatusWErr()
	return v
}

func (e LEConnectionUpdateComplete) ConnectionHandle() uint16 {
	v, _ := e.ConnectionHandleWErr()
	return v
}

func (e LELongTermKeyRequest) ConnectionHandle() uint16 {
	v, _ := e.ConnectionHandleWErr()
	return v
}
