// Package acl presents one LE connection as a set of fixed L2CAP channels
// and owns its pairing session.
package acl

import (
	"github.com/pkg/errors"
	ble "github.com/rigado/blecentral"
	"github.com/rigado/blecentral/linux/hci/smp"
)

// Transport is the part of the HCI a stream writes through.
type Transport interface {
	WriteAclDataPkt(handle, cid uint16, data []byte) error
	StartLeEncryption(handle uint16, rand uint64, ediv uint16, ltk []byte) error
}

// Channel consumes the PDUs of one fixed channel.
type Channel interface {
	Handle(b []byte)
}

// Listener receives the connection level events of a stream.
type Listener interface {
	// OnEnd is called once, when the connection is gone.
	OnEnd()
	OnEncryptChange(encrypted bool)
	OnEncryptFail(err error)
	// OnLtk and OnMasterIdent report keys distributed by the peer.
	OnLtk(ltk []byte)
	OnMasterIdent(ediv uint16, rand uint64)
}

// Stream multiplexes the channels of one connection handle. It is not safe
// for concurrent use; the owner serializes calls.
type Stream struct {
	log      ble.Logger
	handle   uint16
	t        Transport
	listener Listener

	channels map[uint16]Channel
	smp      *smp.Session
	ended    bool
}

// New returns the stream of handle. Pairing uses the addresses in c.
func New(handle uint16, t Transport, l Listener, c smp.Config) (*Stream, error) {
	s := &Stream{
		log:      ble.PkgLogger("acl").ChildLogger(map[string]interface{}{"handle": handle}),
		handle:   handle,
		t:        t,
		listener: l,
		channels: map[uint16]Channel{},
	}

	sm, err := smp.New(c, s, (*smpListener)(s))
	if err != nil {
		return nil, errors.Wrap(err, "can't create smp session")
	}
	s.smp = sm
	s.channels[smp.CID] = sm
	return s, nil
}

// Handle returns the connection handle.
func (s *Stream) Handle() uint16 {
	return s.handle
}

// Attach routes the PDUs of cid to c.
func (s *Stream) Attach(cid uint16, c Channel) {
	if s.ended {
		return
	}
	s.channels[cid] = c
}

// Write sends data on cid.
func (s *Stream) Write(cid uint16, data []byte) error {
	if s.ended {
		return ble.ErrNotConnected
	}
	return s.t.WriteAclDataPkt(s.handle, cid, data)
}

// Push delivers a reassembled PDU received on cid. A nil data ends the
// stream and detaches every channel.
func (s *Stream) Push(cid uint16, data []byte) {
	if s.ended {
		return
	}
	if data == nil {
		s.ended = true
		s.channels = map[uint16]Channel{}
		s.smp = nil
		s.listener.OnEnd()
		return
	}

	c, ok := s.channels[cid]
	if !ok {
		s.log.Debugf("no channel for cid 0x%04x [% X]", cid, data)
		return
	}
	c.Handle(data)
}

// Encrypt starts pairing. The outcome is reported through
// Listener.OnEncryptChange or Listener.OnEncryptFail.
func (s *Stream) Encrypt() error {
	if s.ended {
		return ble.ErrNotConnected
	}
	return s.smp.SendPairingRequest()
}

// PushEncrypt reports an encryption change from the controller.
func (s *Stream) PushEncrypt(encrypted bool) {
	if s.ended {
		return
	}
	s.listener.OnEncryptChange(encrypted)
}

func (s *Stream) startEncryption(key []byte) {
	// no stored keys: rand and ediv are zero
	if err := s.t.StartLeEncryption(s.handle, 0, 0, key); err != nil {
		s.listener.OnEncryptFail(errors.Wrap(err, "can't start encryption"))
	}
}

// smpListener receives the pairing results of the stream's session.
type smpListener Stream

func (l *smpListener) OnStk(stk []byte) {
	(*Stream)(l).startEncryption(stk)
}

func (l *smpListener) OnLtk(ltk []byte, distributed bool) {
	if distributed {
		l.listener.OnLtk(ltk)
		return
	}
	(*Stream)(l).startEncryption(ltk)
}

func (l *smpListener) OnMasterIdent(ediv uint16, rand uint64) {
	l.listener.OnMasterIdent(ediv, rand)
}

func (l *smpListener) OnFail(err error) {
	l.listener.OnEncryptFail(err)
}
