package cmd

// Opcodes of the commands this stack issues.
const (
	DisconnectOpCode                        = 0x01<<10 | 0x0006
	SetEventMaskOpCode                      = 0x03<<10 | 0x0001
	ResetOpCode                             = 0x03<<10 | 0x0003
	ReadLEHostSupportOpCode                 = 0x03<<10 | 0x006C
	WriteLEHostSupportOpCode                = 0x03<<10 | 0x006D
	ReadLocalVersionInformationOpCode       = 0x04<<10 | 0x0001
	ReadBufferSizeOpCode                    = 0x04<<10 | 0x0005
	ReadBDADDROpCode                        = 0x04<<10 | 0x0009
	ReadRSSIOpCode                          = 0x05<<10 | 0x0005
	LESetEventMaskOpCode                    = 0x08<<10 | 0x0001
	LEReadBufferSizeOpCode                  = 0x08<<10 | 0x0002
	LEReadLocalSupportedFeaturesOpCode      = 0x08<<10 | 0x0003
	LESetScanParametersOpCode               = 0x08<<10 | 0x000B
	LESetScanEnableOpCode                   = 0x08<<10 | 0x000C
	LECreateConnectionOpCode                = 0x08<<10 | 0x000D
	LECreateConnectionCancelOpCode          = 0x08<<10 | 0x000E
	LEConnectionUpdateOpCode                = 0x08<<10 | 0x0013
	LEStartEncryptionOpCode                 = 0x08<<10 | 0x0019
	LELongTermKeyRequestNegativeReplyOpCode = 0x08<<10 | 0x001B
	LESetExtendedScanParametersOpCode       = 0x08<<10 | 0x0041
	LESetExtendedScanEnableOpCode           = 0x08<<10 | 0x0042
	LEExtendedCreateConnectionOpCode        = 0x08<<10 | 0x0043
)

// Disconnect implements Disconnect (0x01|0x0006) [Vol 2, Part E, 7.1.6]
type Disconnect struct {
	ConnectionHandle uint16
	Reason           uint8
}

func (c *Disconnect) String() string         { return "Disconnect (0x01|0x0006)" }
func (c *Disconnect) OpCode() int            { return DisconnectOpCode }
func (c *Disconnect) Len() int               { return 3 }
func (c *Disconnect) Marshal(b []byte) error { return marshal(c, b) }

// SetEventMask implements Set Event Mask (0x03|0x0001) [Vol 2, Part E, 7.3.1]
type SetEventMask struct {
	EventMask uint64
}

func (c *SetEventMask) String() string         { return "Set Event Mask (0x03|0x0001)" }
func (c *SetEventMask) OpCode() int            { return SetEventMaskOpCode }
func (c *SetEventMask) Len() int               { return 8 }
func (c *SetEventMask) Marshal(b []byte) error { return marshal(c, b) }

// Reset implements Reset (0x03|0x0003) [Vol 2, Part E, 7.3.2]
type Reset struct{}

func (c *Reset) String() string         { return "Reset (0x03|0x0003)" }
func (c *Reset) OpCode() int            { return ResetOpCode }
func (c *Reset) Len() int               { return 0 }
func (c *Reset) Marshal(b []byte) error { return nil }

// ReadLEHostSupport implements Read LE Host Support (0x03|0x006C) [Vol 2, Part E, 7.3.78]
type ReadLEHostSupport struct{}

func (c *ReadLEHostSupport) String() string         { return "Read LE Host Support (0x03|0x006C)" }
func (c *ReadLEHostSupport) OpCode() int            { return ReadLEHostSupportOpCode }
func (c *ReadLEHostSupport) Len() int               { return 0 }
func (c *ReadLEHostSupport) Marshal(b []byte) error { return nil }

// ReadLEHostSupportRP returns the return parameter of Read LE Host Support
type ReadLEHostSupportRP struct {
	Status             uint8
	LESupportedHost    uint8
	SimultaneousLEHost uint8
}

func (c *ReadLEHostSupportRP) Unmarshal(b []byte) error { return unmarshal(c, b) }

// WriteLEHostSupport implements Write LE Host Support (0x03|0x006D) [Vol 2, Part E, 7.3.79]
type WriteLEHostSupport struct {
	LESupportedHost    uint8
	SimultaneousLEHost uint8
}

func (c *WriteLEHostSupport) String() string         { return "Write LE Host Support (0x03|0x006D)" }
func (c *WriteLEHostSupport) OpCode() int            { return WriteLEHostSupportOpCode }
func (c *WriteLEHostSupport) Len() int               { return 2 }
func (c *WriteLEHostSupport) Marshal(b []byte) error { return marshal(c, b) }

// ReadLocalVersionInformation implements Read Local Version Information (0x04|0x0001) [Vol 2, Part E, 7.4.1]
type ReadLocalVersionInformation struct{}

func (c *ReadLocalVersionInformation) String() string {
	return "Read Local Version Information (0x04|0x0001)"
}
func (c *ReadLocalVersionInformation) OpCode() int            { return ReadLocalVersionInformationOpCode }
func (c *ReadLocalVersionInformation) Len() int               { return 0 }
func (c *ReadLocalVersionInformation) Marshal(b []byte) error { return nil }

// ReadLocalVersionInformationRP returns the return parameter of Read Local Version Information
type ReadLocalVersionInformationRP struct {
	Status           uint8
	HCIVersion       uint8
	HCIRevision      uint16
	LMPPALVersion    uint8
	ManufacturerName uint16
	LMPPALSubversion uint16
}

func (c *ReadLocalVersionInformationRP) Unmarshal(b []byte) error { return unmarshal(c, b) }

// ReadBufferSize implements Read Buffer Size (0x04|0x0005) [Vol 2, Part E, 7.4.5]
type ReadBufferSize struct{}

func (c *ReadBufferSize) String() string         { return "Read Buffer Size (0x04|0x0005)" }
func (c *ReadBufferSize) OpCode() int            { return ReadBufferSizeOpCode }
func (c *ReadBufferSize) Len() int               { return 0 }
func (c *ReadBufferSize) Marshal(b []byte) error { return nil }

// ReadBufferSizeRP returns the return parameter of Read Buffer Size
type ReadBufferSizeRP struct {
	Status                           uint8
	HCACLDataPacketLength            uint16
	HCSynchronousDataPacketLength    uint8
	HCTotalNumACLDataPackets         uint16
	HCTotalNumSynchronousDataPackets uint16
}

func (c *ReadBufferSizeRP) Unmarshal(b []byte) error { return unmarshal(c, b) }

// ReadBDADDR implements Read BD_ADDR (0x04|0x0009) [Vol 2, Part E, 7.4.6]
type ReadBDADDR struct{}

func (c *ReadBDADDR) String() string         { return "Read BD_ADDR (0x04|0x0009)" }
func (c *ReadBDADDR) OpCode() int            { return ReadBDADDROpCode }
func (c *ReadBDADDR) Len() int               { return 0 }
func (c *ReadBDADDR) Marshal(b []byte) error { return nil }

// ReadBDADDRRP returns the return parameter of Read BD_ADDR
type ReadBDADDRRP struct {
	Status uint8
	BDADDR [6]byte
}

func (c *ReadBDADDRRP) Unmarshal(b []byte) error { return unmarshal(c, b) }

// ReadRSSI implements Read RSSI (0x05|0x0005) [Vol 2, Part E, 7.5.4]
type ReadRSSI struct {
	Handle uint16
}

func (c *ReadRSSI) String() string         { return "Read RSSI (0x05|0x0005)" }
func (c *ReadRSSI) OpCode() int            { return ReadRSSIOpCode }
func (c *ReadRSSI) Len() int               { return 2 }
func (c *ReadRSSI) Marshal(b []byte) error { return marshal(c, b) }

// ReadRSSIRP returns the return parameter of Read RSSI
type ReadRSSIRP struct {
	Status           uint8
	ConnectionHandle uint16
	RSSI             int8
}

func (c *ReadRSSIRP) Unmarshal(b []byte) error { return unmarshal(c, b) }

// LESetEventMask implements LE Set Event Mask (0x08|0x0001) [Vol 2, Part E, 7.8.1]
type LESetEventMask struct {
	LEEventMask uint64
}

func (c *LESetEventMask) String() string         { return "LE Set Event Mask (0x08|0x0001)" }
func (c *LESetEventMask) OpCode() int            { return LESetEventMaskOpCode }
func (c *LESetEventMask) Len() int               { return 8 }
func (c *LESetEventMask) Marshal(b []byte) error { return marshal(c, b) }

// LEReadBufferSize implements LE Read Buffer Size (0x08|0x0002) [Vol 2, Part E, 7.8.2]
type LEReadBufferSize struct{}

func (c *LEReadBufferSize) String() string         { return "LE Read Buffer Size (0x08|0x0002)" }
func (c *LEReadBufferSize) OpCode() int            { return LEReadBufferSizeOpCode }
func (c *LEReadBufferSize) Len() int               { return 0 }
func (c *LEReadBufferSize) Marshal(b []byte) error { return nil }

// LEReadBufferSizeRP returns the return parameter of LE Read Buffer Size
type LEReadBufferSizeRP struct {
	Status                  uint8
	HCLEDataPacketLength    uint16
	HCTotalNumLEDataPackets uint8
}

func (c *LEReadBufferSizeRP) Unmarshal(b []byte) error { return unmarshal(c, b) }

// LEReadLocalSupportedFeatures implements LE Read Local Supported Features (0x08|0x0003) [Vol 2, Part E, 7.8.3]
type LEReadLocalSupportedFeatures struct{}

func (c *LEReadLocalSupportedFeatures) String() string {
	return "LE Read Local Supported Features (0x08|0x0003)"
}
func (c *LEReadLocalSupportedFeatures) OpCode() int            { return LEReadLocalSupportedFeaturesOpCode }
func (c *LEReadLocalSupportedFeatures) Len() int               { return 0 }
func (c *LEReadLocalSupportedFeatures) Marshal(b []byte) error { return nil }

// LEReadLocalSupportedFeaturesRP returns the return parameter of LE Read Local Supported Features
type LEReadLocalSupportedFeaturesRP struct {
	Status     uint8
	LEFeatures uint64
}

func (c *LEReadLocalSupportedFeaturesRP) Unmarshal(b []byte) error { return unmarshal(c, b) }

// LESetScanParameters implements LE Set Scan Parameters (0x08|0x000B) [Vol 2, Part E, 7.8.10]
type LESetScanParameters struct {
	LEScanType           uint8
	LEScanInterval       uint16
	LEScanWindow         uint16
	OwnAddressType       uint8
	ScanningFilterPolicy uint8
}

func (c *LESetScanParameters) String() string         { return "LE Set Scan Parameters (0x08|0x000B)" }
func (c *LESetScanParameters) OpCode() int            { return LESetScanParametersOpCode }
func (c *LESetScanParameters) Len() int               { return 7 }
func (c *LESetScanParameters) Marshal(b []byte) error { return marshal(c, b) }

// LESetScanEnable implements LE Set Scan Enable (0x08|0x000C) [Vol 2, Part E, 7.8.11]
type LESetScanEnable struct {
	LEScanEnable     uint8
	FilterDuplicates uint8
}

func (c *LESetScanEnable) String() string         { return "LE Set Scan Enable (0x08|0x000C)" }
func (c *LESetScanEnable) OpCode() int            { return LESetScanEnableOpCode }
func (c *LESetScanEnable) Len() int               { return 2 }
func (c *LESetScanEnable) Marshal(b []byte) error { return marshal(c, b) }
func (c *LESetScanEnable) Unmarshal(b []byte) error {
	return unmarshal(c, b)
}

// LECreateConnection implements LE Create Connection (0x08|0x000D) [Vol 2, Part E, 7.8.12]
type LECreateConnection struct {
	LEScanInterval        uint16
	LEScanWindow          uint16
	InitiatorFilterPolicy uint8
	PeerAddressType       uint8
	PeerAddress           [6]byte
	OwnAddressType        uint8
	ConnIntervalMin       uint16
	ConnIntervalMax       uint16
	ConnLatency           uint16
	SupervisionTimeout    uint16
	MinimumCELength       uint16
	MaximumCELength       uint16
}

func (c *LECreateConnection) String() string         { return "LE Create Connection (0x08|0x000D)" }
func (c *LECreateConnection) OpCode() int            { return LECreateConnectionOpCode }
func (c *LECreateConnection) Len() int               { return 25 }
func (c *LECreateConnection) Marshal(b []byte) error { return marshal(c, b) }

// LECreateConnectionCancel implements LE Create Connection Cancel (0x08|0x000E) [Vol 2, Part E, 7.8.13]
type LECreateConnectionCancel struct{}

func (c *LECreateConnectionCancel) String() string {
	return "LE Create Connection Cancel (0x08|0x000E)"
}
func (c *LECreateConnectionCancel) OpCode() int            { return LECreateConnectionCancelOpCode }
func (c *LECreateConnectionCancel) Len() int               { return 0 }
func (c *LECreateConnectionCancel) Marshal(b []byte) error { return nil }

// LEConnectionUpdate implements LE Connection Update (0x08|0x0013) [Vol 2, Part E, 7.8.18]
type LEConnectionUpdate struct {
	ConnectionHandle   uint16
	ConnIntervalMin    uint16
	ConnIntervalMax    uint16
	ConnLatency        uint16
	SupervisionTimeout uint16
	MinimumCELength    uint16
	MaximumCELength    uint16
}

func (c *LEConnectionUpdate) String() string         { return "LE Connection Update (0x08|0x0013)" }
func (c *LEConnectionUpdate) OpCode() int            { return LEConnectionUpdateOpCode }
func (c *LEConnectionUpdate) Len() int               { return 14 }
func (c *LEConnectionUpdate) Marshal(b []byte) error { return marshal(c, b) }

// LEStartEncryption implements LE Start Encryption (0x08|0x0019) [Vol 2, Part E, 7.8.24]
type LEStartEncryption struct {
	ConnectionHandle     uint16
	RandomNumber         uint64
	EncryptedDiversifier uint16
	LongTermKey          [16]byte
}

func (c *LEStartEncryption) String() string         { return "LE Start Encryption (0x08|0x0019)" }
func (c *LEStartEncryption) OpCode() int            { return LEStartEncryptionOpCode }
func (c *LEStartEncryption) Len() int               { return 28 }
func (c *LEStartEncryption) Marshal(b []byte) error { return marshal(c, b) }

// LELongTermKeyRequestNegativeReply implements LE Long Term Key Request Negative Reply (0x08|0x001B) [Vol 2, Part E, 7.8.26]
type LELongTermKeyRequestNegativeReply struct {
	ConnectionHandle uint16
}

func (c *LELongTermKeyRequestNegativeReply) String() string {
	return "LE Long Term Key Request Negative Reply (0x08|0x001B)"
}
func (c *LELongTermKeyRequestNegativeReply) OpCode() int {
	return LELongTermKeyRequestNegativeReplyOpCode
}
func (c *LELongTermKeyRequestNegativeReply) Len() int               { return 2 }
func (c *LELongTermKeyRequestNegativeReply) Marshal(b []byte) error { return marshal(c, b) }

// LELongTermKeyRequestNegativeReplyRP returns the return parameter of LE Long Term Key Request Negative Reply
type LELongTermKeyRequestNegativeReplyRP struct {
	Status           uint8
	ConnectionHandle uint16
}

func (c *LELongTermKeyRequestNegativeReplyRP) Unmarshal(b []byte) error { return unmarshal(c, b) }

// LESetExtendedScanParameters implements LE Set Extended Scan Parameters (0x08|0x0041) [Vol 2, Part E, 7.8.64]
// for a single (1M) scanning PHY.
type LESetExtendedScanParameters struct {
	OwnAddressType       uint8
	ScanningFilterPolicy uint8
	ScanningPHYs         uint8
	ScanType             uint8
	ScanInterval         uint16
	ScanWindow           uint16
}

func (c *LESetExtendedScanParameters) String() string {
	return "LE Set Extended Scan Parameters (0x08|0x0041)"
}
func (c *LESetExtendedScanParameters) OpCode() int            { return LESetExtendedScanParametersOpCode }
func (c *LESetExtendedScanParameters) Len() int               { return 8 }
func (c *LESetExtendedScanParameters) Marshal(b []byte) error { return marshal(c, b) }

// LESetExtendedScanEnable implements LE Set Extended Scan Enable (0x08|0x0042) [Vol 2, Part E, 7.8.65]
type LESetExtendedScanEnable struct {
	Enable           uint8
	FilterDuplicates uint8
	Duration         uint16
	Period           uint16
}

func (c *LESetExtendedScanEnable) String() string {
	return "LE Set Extended Scan Enable (0x08|0x0042)"
}
func (c *LESetExtendedScanEnable) OpCode() int            { return LESetExtendedScanEnableOpCode }
func (c *LESetExtendedScanEnable) Len() int               { return 6 }
func (c *LESetExtendedScanEnable) Marshal(b []byte) error { return marshal(c, b) }
func (c *LESetExtendedScanEnable) Unmarshal(b []byte) error {
	return unmarshal(c, b)
}

// LEExtendedCreateConnection implements LE Extended Create Connection (0x08|0x0043) [Vol 2, Part E, 7.8.66]
// for a single (1M) initiating PHY.
type LEExtendedCreateConnection struct {
	InitiatorFilterPolicy uint8
	OwnAddressType        uint8
	PeerAddressType       uint8
	PeerAddress           [6]byte
	InitiatingPHYs        uint8
	ScanInterval          uint16
	ScanWindow            uint16
	ConnIntervalMin       uint16
	ConnIntervalMax       uint16
	ConnLatency           uint16
	SupervisionTimeout    uint16
	MinimumCELength       uint16
	MaximumCELength       uint16
}

func (c *LEExtendedCreateConnection) String() string {
	return "LE Extended Create Connection (0x08|0x0043)"
}
func (c *LEExtendedCreateConnection) OpCode() int            { return LEExtendedCreateConnectionOpCode }
func (c *LEExtendedCreateConnection) Len() int               { return 26 }
func (c *LEExtendedCreateConnection) Marshal(b []byte) error { return marshal(c, b) }
