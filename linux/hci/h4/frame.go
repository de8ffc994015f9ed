package h4

import (
	"fmt"
	"time"
)

const (
	aclPacket   = 0x02
	eventPacket = 0x04

	eventHeaderLength = 3 // type, code, length
	aclHeaderLength   = 5 // type, handle, length

	frameTimeout = 500 * time.Millisecond
)

// frame reassembles H4 packets from a byte stream and delivers complete
// packets, type byte included, on out.
type frame struct {
	b       []byte
	timeout time.Time
	out     chan []byte
	evtType byte
}

func newFrame(c chan []byte) *frame {
	return &frame{
		b:   make([]byte, 0, 256),
		out: c,
	}
}

// Assemble consumes b. Partial packets older than frameTimeout are dropped.
func (f *frame) Assemble(b []byte) {
	for len(b) > 0 {
		if len(f.b) != 0 && time.Now().After(f.timeout) {
			//timed out
			f.reset()
		}

		if len(f.b) == 0 {
			i, err := f.waitStart(b)
			if err != nil {
				return
			}
			b = b[i:]
		}

		f.b = append(f.b, b...)
		b = nil

		rf, err := f.frame()
		if err != nil {
			return
		}
		out := make([]byte, len(rf))
		copy(out, rf)
		f.out <- out

		// shift
		rem := append([]byte{}, f.b[len(rf):]...)
		f.reset()
		b = rem
	}
}

func (f *frame) reset() {
	f.b = make([]byte, 0, 256)
	f.timeout = time.Time{}
}

// waitStart finds the first packet type byte in b.
func (f *frame) waitStart(b []byte) (int, error) {
	for i, v := range b {
		switch v {
		case eventPacket, aclPacket:
			f.evtType = v
			f.timeout = time.Now().Add(frameTimeout)
			return i, nil
		}
	}
	return 0, fmt.Errorf("couldnt find start byte")
}

func (f *frame) dataLength() (int, error) {
	switch f.evtType {
	case aclPacket:
		return f.aclLength()
	case eventPacket:
		return f.eventLength()
	default:
		return 0, fmt.Errorf("invalid event type %v", f.evtType)
	}
}

func (f *frame) eventLength() (int, error) {
	if len(f.b) < eventHeaderLength {
		return 0, fmt.Errorf("not enough bytes")
	}

	return int(f.b[2]) + eventHeaderLength, nil
}

func (f *frame) aclLength() (int, error) {
	if len(f.b) < aclHeaderLength {
		return 0, fmt.Errorf("not enough bytes")
	}

	l := int(f.b[3]) | (int(f.b[4]) << 8)
	return l + aclHeaderLength, nil
}

func (f *frame) frame() ([]byte, error) {
	tl, err := f.dataLength()
	if err != nil {
		return nil, err
	}

	if len(f.b) < tl {
		return nil, fmt.Errorf("not enough bytes")
	}
	return f.b[:tl], nil
}
