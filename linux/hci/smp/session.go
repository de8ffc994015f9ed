// Package smp implements the initiator side of the LE Security Manager:
// legacy Just Works pairing and, when enabled, LE Secure Connections Just
// Works. Keys are never stored.
package smp

import (
	"crypto/rand"
	"io"

	"github.com/pkg/errors"
	ble "github.com/rigado/blecentral"
)

// State of a pairing session.
type State int

const (
	Idle State = iota
	PairingRequested
	PublicKeyExchanged
	ConfirmExchanged
	RandomExchanged
	KeyDerived
	Failed
)

var stateNames = map[State]string{
	Idle:               "idle",
	PairingRequested:   "pairingRequested",
	PublicKeyExchanged: "publicKeyExchanged",
	ConfirmExchanged:   "confirmExchanged",
	RandomExchanged:    "randomExchanged",
	KeyDerived:         "keyDerived",
	Failed:             "failed",
}

func (s State) String() string { return stateNames[s] }

// ErrPairingInProgress is returned when pairing is requested twice.
var ErrPairingInProgress = errors.New("pairing already in progress")

// Writer sends an L2CAP payload on a channel of the connection.
type Writer interface {
	Write(cid uint16, data []byte) error
}

// Listener receives the results of a session. Calls are made from Handle
// and SendPairingRequest.
type Listener interface {
	// OnStk delivers the legacy short term key.
	OnStk(stk []byte)
	// OnLtk delivers a long term key: derived by LE Secure Connections
	// (distributed false) or sent by the peer in key distribution.
	OnLtk(ltk []byte, distributed bool)
	OnMasterIdent(ediv uint16, rand uint64)
	OnFail(err error)
}

// Config identifies the two ends of the link.
type Config struct {
	LocalAddress      string
	LocalAddressType  ble.AddrType
	RemoteAddress     string
	RemoteAddressType ble.AddrType

	// SecureConnections requests LE Secure Connections pairing.
	SecureConnections bool
}

// Session is the pairing state of one connection. It is not safe for
// concurrent use; the owner serializes calls.
type Session struct {
	log      ble.Logger
	w        Writer
	listener Listener
	rand     io.Reader

	// wire order addresses, least significant octet first
	ia, ra   []byte
	iat, rat byte
	secure   bool

	state  State
	legacy bool
	preq   []byte
	pres   []byte

	localRandom   []byte
	remoteRandom  []byte
	remoteConfirm []byte

	sc *scContext
}

// scContext holds the LE Secure Connections material.
type scContext struct {
	keys         *keys
	remotePubKey []byte
	dhKey        []byte
	macKey       []byte
	ltk          []byte
}

// New returns an idle session writing through w.
func New(c Config, w Writer, l Listener) (*Session, error) {
	ia, err := ble.MACToWire(c.LocalAddress)
	if err != nil {
		return nil, errors.Wrap(err, "local address")
	}
	ra, err := ble.MACToWire(c.RemoteAddress)
	if err != nil {
		return nil, errors.Wrap(err, "remote address")
	}

	return &Session{
		log:      ble.PkgLogger("smp").ChildLogger(map[string]interface{}{"peer": c.RemoteAddress}),
		w:        w,
		listener: l,
		rand:     rand.Reader,
		ia:       ia,
		ra:       ra,
		iat:      byte(c.LocalAddressType),
		rat:      byte(c.RemoteAddressType),
		secure:   c.SecureConnections,
	}, nil
}

// State returns the current pairing state.
func (s *Session) State() State {
	return s.state
}

// SendPairingRequest starts pairing.
func (s *Session) SendPairingRequest() error {
	if s.state != Idle && s.state != KeyDerived && s.state != Failed {
		return ErrPairingInProgress
	}

	authReq := authReqBond
	if s.secure {
		authReq |= authReqSC
	}

	s.reset()
	s.preq = []byte{pairingRequest, ioCapNoInputNoOutput, oobNotPresent, authReq, maxKeySize, initKeyDist, respKeyDist}
	s.state = PairingRequested
	s.log.Debugf("pairing request % X", s.preq)

	if err := s.send(s.preq...); err != nil {
		s.state = Failed
		return err
	}
	return nil
}

func (s *Session) reset() {
	s.legacy = true
	s.preq = nil
	s.pres = nil
	s.localRandom = nil
	s.remoteRandom = nil
	s.remoteConfirm = nil
	s.sc = nil
}

// Handle processes one PDU received on the SMP channel.
func (s *Session) Handle(b []byte) {
	if len(b) == 0 {
		s.log.Debug("empty pdu")
		return
	}

	code, data := b[0], b[1:]
	d, ok := dispatcher[code]
	if !ok || d.handler == nil {
		s.log.Debugf("unhandled smp code 0x%02x", code)
		// C.5.1 Pairing Not Supported
		s.send(pairingFailed, byte(FailPairingNotSupported))
		return
	}

	if err := d.handler(s, data); err != nil {
		s.fail(errors.Wrap(err, d.desc))
	}
}

// fail ends the session. Local failures are reported to the peer.
func (s *Session) fail(err error) {
	s.log.Warnf("pairing failed: %v", err)
	if f, ok := errors.Cause(err).(Failure); ok {
		s.send(pairingFailed, byte(f))
	}
	s.state = Failed
	s.listener.OnFail(err)
}

func (s *Session) send(pdu ...byte) error {
	return s.w.Write(CID, pdu)
}

func (s *Session) random() ([]byte, error) {
	r := make([]byte, 16)
	if _, err := io.ReadFull(s.rand, r); err != nil {
		return nil, err
	}
	return r, nil
}

// ioCap returns IOcap (AuthReq || OOB || IO capability) of a pairing
// command in wire order.
func ioCap(cmd []byte) []byte {
	return []byte{cmd[1], cmd[2], cmd[3]}
}

func (s *Session) initiator() []byte {
	return append(append([]byte{}, s.ia...), s.iat)
}

func (s *Session) responder() []byte {
	return append(append([]byte{}, s.ra...), s.rat)
}
