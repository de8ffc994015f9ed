// Package adv decodes and builds EIR / advertising data.
package adv

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/pkg/errors"
	ble "github.com/rigado/blecentral"
	"github.com/rigado/blecentral/sliceops"
)

// https://www.bluetooth.org/en-us/specification/assigned-numbers/generic-access-profile
var types = struct {
	flags       byte
	uuid16inc   byte
	uuid16comp  byte
	uuid32inc   byte
	uuid32comp  byte
	uuid128inc  byte
	uuid128comp byte
	sol16       byte
	sol32       byte
	sol128      byte
	svc16       byte
	svc32       byte
	svc128      byte
	nameshort   byte
	namecomp    byte
	txpwr       byte
	mfgdata     byte
}{
	flags:       0x01,
	uuid16inc:   0x02,
	uuid16comp:  0x03,
	uuid32inc:   0x04,
	uuid32comp:  0x05,
	uuid128inc:  0x06,
	uuid128comp: 0x07,
	sol16:       0x14,
	sol32:       0x1f,
	sol128:      0x15,
	svc16:       0x16,
	svc32:       0x20,
	svc128:      0x21,
	nameshort:   0x08,
	namecomp:    0x09,
	txpwr:       0x0a,
	mfgdata:     0xff,
}

// ErrMalformed wraps every structural EIR error.
var ErrMalformed = errors.New("malformed eir")

// merge state for a single EIR buffer
type mergeCtx struct {
	a       *ble.Advertisement
	mfgSeen bool
}

type pduRecord struct {
	arrayElementSz int
	minSz          int
	apply          func(m *mergeCtx, b []byte)
}

var pduDecodeMap = map[byte]pduRecord{
	types.uuid16inc:   {2, 2, addServices},
	types.uuid16comp:  {2, 2, addServices},
	types.uuid32inc:   {4, 4, addServices},
	types.uuid32comp:  {4, 4, addServices},
	types.uuid128inc:  {16, 16, addServices},
	types.uuid128comp: {16, 16, addServices},
	types.sol16:       {2, 2, addSolicited},
	types.sol32:       {4, 4, addSolicited},
	types.sol128:      {16, 16, addSolicited},
	types.svc16:       {0, 2, serviceData(2)},
	types.svc32:       {0, 4, serviceData(4)},
	types.svc128:      {0, 16, serviceData(16)},
	types.nameshort:   {0, 0, setName},
	types.namecomp:    {0, 0, setName},
	types.txpwr:       {0, 1, setTxPower},
	types.mfgdata:     {0, 0, setManufacturerData},
}

// UUIDString renders a UUID from its wire (little-endian) bytes: 16 and
// 32-bit values as fixed-width hex, 128-bit values byte-reversed.
func UUIDString(b []byte) string {
	switch len(b) {
	case 2:
		return fmt.Sprintf("%04x", binary.LittleEndian.Uint16(b))
	case 4:
		return fmt.Sprintf("%08x", binary.LittleEndian.Uint32(b))
	default:
		return hex.EncodeToString(sliceops.SwapBuf(b))
	}
}

func getArray(size int, bytes []byte) ([][]byte, error) {
	//valid size?
	if size <= 0 {
		return nil, fmt.Errorf("invalid size")
	}

	//any remainder?
	count := len(bytes) / size
	rem := len(bytes) % size
	if rem != 0 {
		return nil, fmt.Errorf("incorrect size")
	}

	arr := make([][]byte, 0, count)
	for j := 0; j < len(bytes); j += size {
		arr = append(arr, bytes[j:(j+size)])
	}

	return arr, nil
}

func addServices(m *mergeCtx, b []byte) {
	m.a.AddServiceUUID(UUIDString(b))
}

func addSolicited(m *mergeCtx, b []byte) {
	m.a.AddSolicitationUUID(UUIDString(b))
}

func serviceData(w int) func(m *mergeCtx, b []byte) {
	return func(m *mergeCtx, b []byte) {
		data := make([]byte, len(b)-w)
		copy(data, b[w:])
		m.a.SetServiceData(UUIDString(b[:w]), data)
	}
}

func setName(m *mergeCtx, b []byte) {
	m.a.LocalName = string(b)
}

func setTxPower(m *mergeCtx, b []byte) {
	v := int8(b[0])
	m.a.TxPowerLevel = &v
}

// Only the first manufacturer data record of a buffer is kept; later ones
// are ignored.
func setManufacturerData(m *mergeCtx, b []byte) {
	if m.mfgSeen {
		return
	}
	m.mfgSeen = true
	m.a.ManufacturerData = append([]byte{}, b...)
}

// Merge applies the EIR records in pdu onto a. A record whose length is 0,
// or whose payload runs past the buffer, stops the walk: records before it
// stay applied, the rest are discarded and ErrMalformed is returned.
// Records of unknown type, payloads shorter than the type's minimum and
// UUID lists with a partial element are skipped.
func Merge(a *ble.Advertisement, pdu []byte) error {
	m := &mergeCtx{a: a}

	for i := 0; (i + 1) < len(pdu); {
		//length @ offset 0
		//type @ offset 1
		//data @ 2 - (length-1)
		length := int(pdu[i])
		typ := pdu[i+1]

		//length should be at least 1 since there is a type byte
		if length < 1 {
			return errors.Wrapf(ErrMalformed, "invalid record length %d at %d", length, i)
		}

		//do we have all the bytes for the payload?
		if (i + length) >= len(pdu) {
			return errors.Wrapf(ErrMalformed, "buffer overflow: want %v, have %v", (i + length + 1), len(pdu))
		}

		start := i + 2
		end := start + length - 1
		bytes := pdu[start:end]
		i += (length + 1)

		dec, ok := pduDecodeMap[typ]
		if !ok || dec.minSz > len(bytes) {
			continue
		}

		if dec.arrayElementSz == 0 {
			dec.apply(m, bytes)
			continue
		}

		arr, err := getArray(dec.arrayElementSz, bytes)
		if err != nil {
			continue
		}
		for _, e := range arr {
			dec.apply(m, e)
		}
	}

	return nil
}
