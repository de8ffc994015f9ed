package cmd

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// Command is an HCI command with a fixed opcode and parameter length.
type Command interface {
	OpCode() int
	Len() int
	Marshal([]byte) error
}

// CommandRP is the return parameter block of a command complete event.
type CommandRP interface {
	Unmarshal(b []byte) error
}

// OpCode builds an opcode from its group and command fields.
func OpCode(ogf, ocf int) int {
	return ogf<<10 | ocf
}

// OGF and OCF split an opcode.
func OGF(op int) int { return op >> 10 }
func OCF(op int) int { return op & 0x03ff }

// Packet serializes c with the HCI command header:
// [0x01, opcode_lo, opcode_hi, param_len, params...].
func Packet(c Command) ([]byte, error) {
	if c.Len() > 0xff {
		return nil, errors.Errorf("command 0x%04x: parameters too long (%d)", c.OpCode(), c.Len())
	}

	b := make([]byte, 4+c.Len())
	b[0] = 0x01
	b[1] = byte(c.OpCode())
	b[2] = byte(c.OpCode() >> 8)
	b[3] = byte(c.Len())
	if err := c.Marshal(b[4:]); err != nil {
		return nil, errors.Wrapf(err, "marshal command 0x%04x", c.OpCode())
	}
	return b, nil
}

func marshal(c Command, b []byte) error {
	buf := bytes.NewBuffer(b)
	buf.Reset()
	if buf.Cap() < c.Len() {
		return io.ErrShortBuffer
	}
	return binary.Write(buf, binary.LittleEndian, c)
}

func unmarshal(c CommandRP, b []byte) error {
	return binary.Read(bytes.NewBuffer(b), binary.LittleEndian, c)
}

// Vendor is a vendor-specific command (OGF 0x3F) with free-form parameters.
type Vendor struct {
	Op     uint16
	Params []byte
}

func (c *Vendor) OpCode() int { return int(c.Op) }
func (c *Vendor) Len() int    { return len(c.Params) }

func (c *Vendor) Marshal(b []byte) error {
	if len(b) < len(c.Params) {
		return io.ErrShortBuffer
	}
	copy(b, c.Params)
	return nil
}
