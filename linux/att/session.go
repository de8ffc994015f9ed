package att

import (
	"encoding/binary"

	ble "github.com/rigado/blecentral"
)

// Writer sends an L2CAP payload on a channel of the connection.
type Writer interface {
	Write(cid uint16, data []byte) error
}

// Listener receives what the peer's attribute server reports.
type Listener interface {
	// OnMTU reports the ATT_MTU agreed by an exchange.
	OnMTU(mtu int)
	OnNotify(handle uint16, data []byte, indication bool)
}

// Session is the attribute client of one connection. It is not safe for
// concurrent use; the owner serializes calls.
type Session struct {
	log      ble.Logger
	w        Writer
	listener Listener

	rxMTU      int
	mtu        int
	mtuPending bool
}

// New returns the session of the connection handle with the default MTU.
func New(handle uint16, w Writer, l Listener) *Session {
	return &Session{
		log:      ble.PkgLogger("att").ChildLogger(map[string]interface{}{"handle": handle}),
		w:        w,
		listener: l,
		rxMTU:    DefaultMTU,
		mtu:      DefaultMTU,
	}
}

// MTU returns the current ATT_MTU.
func (s *Session) MTU() int {
	return s.mtu
}

// ExchangeMTU informs the server of the client's maximum receive MTU size
// [Vol 3, Part F, 3.4.2.1]. The result is reported through Listener.OnMTU.
func (s *Session) ExchangeMTU(rxMTU int) error {
	if rxMTU < DefaultMTU || rxMTU > MaxMTU {
		return ErrInvalidArgument
	}

	s.rxMTU = rxMTU
	s.mtuPending = true
	b := []byte{ExchangeMTURequestCode, 0, 0}
	binary.LittleEndian.PutUint16(b[1:], uint16(rxMTU))
	return s.w.Write(CID, b)
}

// Handle processes one PDU received on the attribute channel.
func (s *Session) Handle(b []byte) {
	if len(b) == 0 {
		s.log.Debug("empty pdu")
		return
	}

	switch op := b[0]; op {
	case ExchangeMTUResponseCode:
		s.onExchangeMTUResponse(b)
	case ErrorResponseCode:
		s.onErrorResponse(b)
	case HandleValueNotificationCode, HandleValueIndicationCode:
		s.onHandleValue(b)
	case ExchangeMTURequestCode:
		s.onExchangeMTURequest(b)
	default:
		if op&commandFlag != 0 || op%2 != 0 {
			s.log.Debugf("ignored opcode 0x%02x", op)
			return
		}
		// no attribute server here
		s.sendError(op, 0, ErrReqNotSupp)
	}
}

func (s *Session) onExchangeMTUResponse(b []byte) {
	if !s.mtuPending {
		s.log.Debugf("unsolicited mtu response [% X]", b)
		return
	}
	if len(b) != 3 {
		s.log.Warnf("exchange mtu: %v [% X]", ErrInvalidResponse, b)
		return
	}
	s.mtuPending = false
	s.setMTU(int(binary.LittleEndian.Uint16(b[1:])))
}

func (s *Session) onExchangeMTURequest(b []byte) {
	if len(b) != 3 {
		s.sendError(ExchangeMTURequestCode, 0, ErrInvalidPDU)
		return
	}

	rsp := []byte{ExchangeMTUResponseCode, 0, 0}
	binary.LittleEndian.PutUint16(rsp[1:], uint16(s.rxMTU))
	if err := s.w.Write(CID, rsp); err != nil {
		s.log.Warnf("can't send mtu response: %v", err)
		return
	}
	s.setMTU(int(binary.LittleEndian.Uint16(b[1:])))
}

// setMTU applies the smaller of the two receive MTUs.
func (s *Session) setMTU(remote int) {
	mtu := s.rxMTU
	if remote < mtu {
		mtu = remote
	}
	if mtu < DefaultMTU {
		mtu = DefaultMTU
	}
	s.mtu = mtu
	s.log.Debugf("mtu %d", mtu)
	s.listener.OnMTU(mtu)
}

func (s *Session) onErrorResponse(b []byte) {
	if len(b) != 5 {
		s.log.Debugf("malformed error response [% X]", b)
		return
	}

	req := b[1]
	handle := binary.LittleEndian.Uint16(b[2:4])
	e := Error(b[4])
	s.log.Warnf("error response to opcode 0x%02x, handle 0x%04x: %v", req, handle, e)

	// a server without MTU exchange keeps the default
	if req == ExchangeMTURequestCode && s.mtuPending {
		s.mtuPending = false
		s.rxMTU = DefaultMTU
		s.setMTU(DefaultMTU)
	}
}

func (s *Session) onHandleValue(b []byte) {
	indication := b[0] == HandleValueIndicationCode

	// an indication is always confirmed, even a malformed one
	if indication {
		if err := s.w.Write(CID, []byte{HandleValueConfirmationCode}); err != nil {
			s.log.Warnf("can't confirm indication: %v", err)
		}
	}

	if len(b) < 3 {
		s.log.Debugf("malformed handle value [% X]", b)
		return
	}
	handle := binary.LittleEndian.Uint16(b[1:3])
	s.listener.OnNotify(handle, append([]byte{}, b[3:]...), indication)
}

func (s *Session) sendError(req byte, handle uint16, e Error) {
	b := []byte{ErrorResponseCode, req, 0, 0, byte(e)}
	binary.LittleEndian.PutUint16(b[2:4], handle)
	if err := s.w.Write(CID, b); err != nil {
		s.log.Warnf("can't send error response: %v", err)
	}
}
