package adv

import (
	"encoding/binary"

	"github.com/pkg/errors"
	"github.com/rigado/blecentral/sliceops"
)

// MaxEIRPacketLength is the payload size of a legacy advertising report.
const MaxEIRPacketLength = 31

var (
	// ErrNotFit is returned when a record would overflow the packet.
	ErrNotFit = errors.New("record exceeds the advertising payload")
	// ErrInvalid is returned for a record built from an unusable argument.
	ErrInvalid = errors.New("invalid record")
)

// Packet is EIR data assembled record by record, in the layout Merge
// decodes.
type Packet struct {
	b []byte
}

// Field appends one EIR record to a packet.
type Field func(p *Packet) error

// NewPacket assembles the records of fields.
func NewPacket(fields ...Field) (*Packet, error) {
	p := &Packet{b: make([]byte, 0, MaxEIRPacketLength)}
	for _, f := range fields {
		if err := f(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Bytes returns the EIR data.
func (p *Packet) Bytes() []byte {
	return p.b
}

func record(typ byte, data []byte) Field {
	return func(p *Packet) error {
		if len(p.b)+2+len(data) > MaxEIRPacketLength {
			return errors.Wrapf(ErrNotFit, "record 0x%02x of %d bytes", typ, len(data))
		}
		p.b = append(append(p.b, byte(len(data)+1), typ), data...)
		return nil
	}
}

// Flags is the discoverability flags record.
func Flags(f byte) Field {
	return record(types.flags, []byte{f})
}

// CompleteName is the complete local name record.
func CompleteName(n string) Field {
	return record(types.namecomp, []byte(n))
}

// TxPower is the transmit power level record.
func TxPower(dbm int8) Field {
	return record(types.txpwr, []byte{byte(dbm)})
}

// ManufacturerData is manufacturer specific data after the company id.
func ManufacturerData(company uint16, b []byte) Field {
	d := make([]byte, 2, 2+len(b))
	binary.LittleEndian.PutUint16(d, company)
	return record(types.mfgdata, append(d, b...))
}

// AllUUID16 is the complete list of 16-bit service UUIDs.
func AllUUID16(ids ...uint16) Field {
	d := make([]byte, 2*len(ids))
	for i, id := range ids {
		binary.LittleEndian.PutUint16(d[2*i:], id)
	}
	return record(types.uuid16comp, d)
}

// AllUUID128 is the complete 128-bit service UUID record of u, given in
// display order.
func AllUUID128(u []byte) Field {
	if len(u) != 16 {
		return func(*Packet) error { return ErrInvalid }
	}
	return record(types.uuid128comp, sliceops.SwapBuf(u))
}

// ServiceData16 is service data of a 16-bit service UUID.
func ServiceData16(id uint16, b []byte) Field {
	d := make([]byte, 2, 2+len(b))
	binary.LittleEndian.PutUint16(d, id)
	return record(types.svc16, append(d, b...))
}
