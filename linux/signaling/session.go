// Package signaling answers the LE signaling channel of a connection. Only
// connection parameter update requests are acted on.
package signaling

import (
	"encoding/binary"
	"runtime"
	"time"

	ble "github.com/rigado/blecentral"
)

// Writer sends an L2CAP payload on a channel of the connection.
type Writer interface {
	Write(cid uint16, data []byte) error
}

// Listener receives the peripheral's connection parameter update requests.
type Listener interface {
	OnConnParamUpdateRequest(minInterval, maxInterval time.Duration, latency uint16, timeout time.Duration)
}

// Session is the signaling state of one connection. It keeps none between
// packets.
type Session struct {
	log      ble.Logger
	w        Writer
	listener Listener

	// the Linux kernel accepts parameter updates itself
	respond bool
}

// New returns the signaling session of the connection handle.
func New(handle uint16, w Writer, l Listener) *Session {
	return &Session{
		log:      ble.PkgLogger("signaling").ChildLogger(map[string]interface{}{"handle": handle}),
		w:        w,
		listener: l,
		respond:  runtime.GOOS != "linux",
	}
}

// Handle processes one packet received on the signaling channel.
func (s *Session) Handle(b []byte) {
	if len(b) < 4 {
		s.log.Debugf("short signaling packet [% X]", b)
		return
	}

	code, id := b[0], b[1]
	n := int(binary.LittleEndian.Uint16(b[2:4]))
	if len(b)-4 < n {
		s.log.Debugf("signaling packet length %d exceeds payload [% X]", n, b)
		return
	}
	data := b[4 : 4+n]

	switch code {
	case SignalConnectionParameterUpdateRequest:
		s.onConnectionParameterUpdateRequest(id, data)
	case SignalCommandReject:
		var r CommandReject
		if err := r.Unmarshal(data); err != nil {
			s.log.Debugf("malformed command reject [% X]", data)
			return
		}
		s.log.Warnf("command reject, id %d reason 0x%04x", id, r.Reason)
	default:
		s.log.Debugf("signaling code 0x%02x not understood", code)
		s.send(&CommandReject{Reason: RejectNotUnderstood}, id)
	}
}

func (s *Session) onConnectionParameterUpdateRequest(id uint8, data []byte) {
	var r ConnectionParameterUpdateRequest
	if err := r.Unmarshal(data); err != nil {
		s.log.Debugf("malformed connection parameter update request [% X]", data)
		s.send(&CommandReject{Reason: RejectNotUnderstood}, id)
		return
	}

	s.log.Debugf("connection parameter update request %+v", r)
	s.listener.OnConnParamUpdateRequest(
		ble.IntervalDuration(r.IntervalMin),
		ble.IntervalDuration(r.IntervalMax),
		r.SlaveLatency,
		ble.TimeoutDuration(r.TimeoutMultiplier),
	)

	if s.respond {
		s.send(&ConnectionParameterUpdateResponse{Result: ParametersAccepted}, id)
	}
}

func (s *Session) send(c signal, id uint8) {
	if err := s.w.Write(CID, marshal(c, id)); err != nil {
		s.log.Warnf("can't send signaling code 0x%02x: %v", c.Code(), err)
	}
}
