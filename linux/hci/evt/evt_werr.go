package evt

import (
	"encoding/binary"
	"fmt"
)

func (e DisconnectionComplete) StatusWErr() (uint8, error) {
	return getByte(e, 0, 0xff)
}
func (e DisconnectionComplete) ConnectionHandleWErr() (uint16, error) {
	return getUint16LE(e, 1, 0xffff)
}
func (e DisconnectionComplete) ReasonWErr() (uint8, error) {
	return getByte(e, 3, 0)
}

func (e EncryptionChange) StatusWErr() (uint8, error) {
	return getByte(e, 0, 0xff)
}
func (e EncryptionChange) ConnectionHandleWErr() (uint16, error) {
	return getUint16LE(e, 1, 0xffff)
}
func (e EncryptionChange) EncryptionEnabledWErr() (uint8, error) {
	return getByte(e, 3, 0)
}

func (e CommandComplete) NumHCICommandPacketsWErr() (uint8, error) {
	return getByte(e, 0, 0)
}
func (e CommandComplete) CommandOpcodeWErr() (uint16, error) {
	return getUint16LE(e, 1, 0xffff)
}

// ReturnParametersWErr returns the return parameters; empty for a NOP.
func (e CommandComplete) ReturnParametersWErr() ([]byte, error) {
	if len(e) == 3 {
		return []byte{}, nil
	}
	return getBytes(e, 3, -1)
}

func (e CommandStatus) StatusWErr() (uint8, error) {
	return getByte(e, 0, 0xff)
}
func (e CommandStatus) NumHCICommandPacketsWErr() (uint8, error) {
	return getByte(e, 1, 0)
}
func (e CommandStatus) CommandOpcodeWErr() (uint16, error) {
	return getUint16LE(e, 2, 0xffff)
}

func (e NumberOfCompletedPackets) NumberOfHandlesWErr() (uint8, error) {
	return getByte(e, 0, 0)
}
func (e NumberOfCompletedPackets) ConnectionHandleWErr(i int) (uint16, error) {
	si := 1 + (i * 4)
	return getUint16LE(e, si, 0xffff)
}
func (e NumberOfCompletedPackets) HCNumOfCompletedPacketsWErr(i int) (uint16, error) {
	si := 1 + (i * 4) + 2
	return getUint16LE(e, si, 0)
}

func (e LEConnectionComplete) StatusWErr() (uint8, error) {
	return getByte(e, 1, 0xff)
}
func (e LEConnectionComplete) ConnectionHandleWErr() (uint16, error) {
	return getUint16LE(e, 2, 0xffff)
}
func (e LEConnectionComplete) RoleWErr() (uint8, error) {
	return getByte(e, 4, 0xff)
}
func (e LEConnectionComplete) PeerAddressTypeWErr() (uint8, error) {
	return getByte(e, 5, 0xff)
}
func (e LEConnectionComplete) PeerAddressWErr() ([6]byte, error) {
	return getAddr(e, 6)
}
func (e LEConnectionComplete) ConnIntervalWErr() (uint16, error) {
	return getUint16LE(e, 12, 0)
}
func (e LEConnectionComplete) ConnLatencyWErr() (uint16, error) {
	return getUint16LE(e, 14, 0)
}
func (e LEConnectionComplete) SupervisionTimeoutWErr() (uint16, error) {
	return getUint16LE(e, 16, 0)
}

// Validate checks the event is long enough for every field.
func (e LEConnectionComplete) Validate() error {
	if len(e) < 19 {
		return fmt.Errorf("le connection complete: short event (%d)", len(e))
	}
	return nil
}

// Legacy rewrites the enhanced event into the LE Connection Complete layout,
// dropping the resolvable private addresses.
func (e LEEnhancedConnectionComplete) Legacy() (LEConnectionComplete, error) {
	if len(e) < 31 {
		return nil, fmt.Errorf("le enhanced connection complete: short event (%d)", len(e))
	}

	out := make([]byte, 0, 19)
	out = append(out, LEConnectionCompleteSubCode)
	out = append(out, e[1:12]...)
	out = append(out, e[24:31]...)
	return LEConnectionComplete(out), nil
}

func (e LEConnectionUpdateComplete) StatusWErr() (uint8, error) {
	return getByte(e, 1, 0xff)
}
func (e LEConnectionUpdateComplete) ConnectionHandleWErr() (uint16, error) {
	return getUint16LE(e, 2, 0xffff)
}

func (e LELongTermKeyRequest) ConnectionHandleWErr() (uint16, error) {
	return getUint16LE(e, 1, 0xffff)
}

func (e LEAdvertisingReport) NumReportsWErr() (uint8, error) {
	return getByte(e, 1, 0)
}

// ReportsWErr walks the reports. Each report is laid out contiguously:
// type, address type, address, data length, data, rssi.
func (e LEAdvertisingReport) ReportsWErr() ([]AdvReport, error) {
	nr, err := e.NumReportsWErr()
	if err != nil {
		return nil, err
	}

	out := make([]AdvReport, 0, nr)
	si := 2
	for i := 0; i < int(nr); i++ {
		hdr, err := getBytes(e, si, 9)
		if err != nil {
			return out, fmt.Errorf("report %d: header: %v", i, err)
		}
		r := AdvReport{EventType: hdr[0], AddressType: hdr[1]}
		copy(r.Address[:], hdr[2:8])
		dl := int(hdr[8])
		si += 9

		if dl > 0 {
			if r.Data, err = getBytes(e, si, dl); err != nil {
				return out, fmt.Errorf("report %d: data: %v", i, err)
			}
		} else {
			r.Data = []byte{}
		}
		si += dl

		rssi, err := getByte(e, si, 0)
		if err != nil {
			return out, fmt.Errorf("report %d: rssi: %v", i, err)
		}
		r.RSSI = int8(rssi)
		si++

		out = append(out, r)
	}
	return out, nil
}

func (e LEExtendedAdvertisingReport) NumReportsWErr() (uint8, error) {
	return getByte(e, 1, 0)
}

// Extended advertising event type bits [Vol 2, Part E, 7.7.65.13]
const (
	extConnectable  = 1 << 0
	extScannable    = 1 << 1
	extDirected     = 1 << 2
	extScanResponse = 1 << 3
	extLegacy       = 1 << 4
)

// LegacyEventType maps an extended advertising event type onto the legacy
// report types: 0x00 ADV_IND, 0x01 ADV_DIRECT_IND, 0x02 ADV_SCAN_IND,
// 0x03 ADV_NONCONN_IND, 0x04 SCAN_RSP. Extended scannable undirected
// advertising maps to 0x06.
func LegacyEventType(et uint16) uint8 {
	switch {
	case et&extScanResponse != 0:
		return 0x04
	case et&extConnectable != 0 && et&extDirected != 0:
		return 0x01
	case et&extConnectable != 0:
		return 0x00
	case et&extScannable != 0 && et&extLegacy != 0:
		return 0x02
	case et&extScannable != 0:
		return 0x06
	default:
		return 0x03
	}
}

// ReportsWErr walks the extended reports and converts them to legacy form.
func (e LEExtendedAdvertisingReport) ReportsWErr() ([]AdvReport, error) {
	nr, err := e.NumReportsWErr()
	if err != nil {
		return nil, err
	}

	out := make([]AdvReport, 0, nr)
	si := 2
	for i := 0; i < int(nr); i++ {
		hdr, err := getBytes(e, si, 24)
		if err != nil {
			return out, fmt.Errorf("ext report %d: header: %v", i, err)
		}
		r := AdvReport{
			EventType:   LegacyEventType(binary.LittleEndian.Uint16(hdr[0:2])),
			AddressType: hdr[2],
			RSSI:        int8(hdr[13]),
		}
		copy(r.Address[:], hdr[3:9])
		dl := int(hdr[23])
		si += 24

		if dl > 0 {
			if r.Data, err = getBytes(e, si, dl); err != nil {
				return out, fmt.Errorf("ext report %d: data: %v", i, err)
			}
		} else {
			r.Data = []byte{}
		}
		si += dl

		out = append(out, r)
	}
	return out, nil
}

func getAddr(b []byte, i int) ([6]byte, error) {
	out := [6]byte{}
	bb, err := getBytes(b, i, 6)
	if err != nil {
		return out, err
	}
	copy(out[:], bb)
	return out, nil
}

//get or default
func getByte(b []byte, i int, def byte) (byte, error) {
	bb, err := getBytes(b, i, 1)
	if err != nil {
		return def, err
	}
	return bb[0], nil
}

//get or default
func getUint16LE(b []byte, i int, def uint16) (uint16, error) {
	bb, err := getBytes(b, i, 2)
	if err != nil {
		return def, err
	}
	return binary.LittleEndian.Uint16(bb), nil
}

func getBytes(bytes []byte, start int, count int) ([]byte, error) {
	if bytes == nil || start >= len(bytes) {
		return nil, fmt.Errorf("index error")
	}

	if count < 0 {
		return bytes[start:], nil
	}

	end := start + count
	//end is non-inclusive
	if end > len(bytes) {
		return nil, fmt.Errorf("index error")
	}

	return bytes[start:end], nil
}
