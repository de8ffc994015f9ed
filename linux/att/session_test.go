package att

import (
	"bytes"
	"testing"
)

type fakeWriter struct {
	pdus [][]byte
}

func (w *fakeWriter) Write(cid uint16, data []byte) error {
	if cid != CID {
		panic("write on wrong channel")
	}
	w.pdus = append(w.pdus, append([]byte{}, data...))
	return nil
}

type notification struct {
	handle     uint16
	data       []byte
	indication bool
}

type fakeListener struct {
	mtus    []int
	notifys []notification
}

func (l *fakeListener) OnMTU(mtu int) { l.mtus = append(l.mtus, mtu) }
func (l *fakeListener) OnNotify(handle uint16, data []byte, indication bool) {
	l.notifys = append(l.notifys, notification{handle, data, indication})
}

func newTestSession() (*Session, *fakeWriter, *fakeListener) {
	w := &fakeWriter{}
	l := &fakeListener{}
	return New(0x0040, w, l), w, l
}

func TestExchangeMTU(t *testing.T) {
	tests := []struct {
		name   string
		remote []byte
		exp    int
	}{
		{"smaller server", []byte{0x03, 0xb9, 0x00}, 185},
		{"larger server", []byte{0x03, 0x00, 0x02}, LocalMTU},
		{"below default", []byte{0x03, 0x10, 0x00}, DefaultMTU},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s, w, l := newTestSession()
			if err := s.ExchangeMTU(LocalMTU); err != nil {
				t.Fatal(err)
			}
			if exp := []byte{0x02, 0x00, 0x01}; !bytes.Equal(w.pdus[0], exp) {
				t.Fatalf("request % X, want % X", w.pdus[0], exp)
			}

			s.Handle(tc.remote)
			if len(l.mtus) != 1 || l.mtus[0] != tc.exp || s.MTU() != tc.exp {
				t.Fatalf("mtu events %v, MTU %d, want %d", l.mtus, s.MTU(), tc.exp)
			}

			// a second response is unsolicited
			s.Handle(tc.remote)
			if len(l.mtus) != 1 {
				t.Fatalf("mtu events %v", l.mtus)
			}
		})
	}
}

func TestExchangeMTUInvalid(t *testing.T) {
	s, w, _ := newTestSession()
	for _, mtu := range []int{0, DefaultMTU - 1, MaxMTU + 1} {
		if err := s.ExchangeMTU(mtu); err != ErrInvalidArgument {
			t.Fatalf("mtu %d: %v", mtu, err)
		}
	}
	if len(w.pdus) != 0 {
		t.Fatalf("sent % X", w.pdus)
	}
}

func TestExchangeMTUError(t *testing.T) {
	s, _, l := newTestSession()
	s.ExchangeMTU(LocalMTU)
	s.Handle([]byte{0x01, 0x02, 0x00, 0x00, byte(ErrReqNotSupp)})

	if len(l.mtus) != 1 || l.mtus[0] != DefaultMTU {
		t.Fatalf("mtu events %v", l.mtus)
	}
}

func TestExchangeMTURequestFromServer(t *testing.T) {
	s, w, l := newTestSession()
	s.ExchangeMTU(LocalMTU)
	s.Handle([]byte{0x02, 0x00, 0x02})

	if exp := []byte{0x03, 0x00, 0x01}; !bytes.Equal(w.pdus[1], exp) {
		t.Fatalf("response % X, want % X", w.pdus[1], exp)
	}
	if len(l.mtus) != 1 || l.mtus[0] != LocalMTU {
		t.Fatalf("mtu events %v", l.mtus)
	}
}

func TestNotification(t *testing.T) {
	s, w, l := newTestSession()
	s.Handle([]byte{0x1b, 0x2a, 0x00, 0x01, 0x02})

	if len(l.notifys) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(l.notifys))
	}
	n := l.notifys[0]
	if n.handle != 0x002a || !bytes.Equal(n.data, []byte{0x01, 0x02}) || n.indication {
		t.Fatalf("got %+v", n)
	}
	if len(w.pdus) != 0 {
		t.Fatalf("notification answered: % X", w.pdus)
	}
}

func TestIndication(t *testing.T) {
	s, w, l := newTestSession()
	s.Handle([]byte{0x1d, 0x2b, 0x00, 0xff})

	if len(l.notifys) != 1 || !l.notifys[0].indication || l.notifys[0].handle != 0x002b {
		t.Fatalf("got %+v", l.notifys)
	}
	if len(w.pdus) != 1 || !bytes.Equal(w.pdus[0], []byte{0x1e}) {
		t.Fatalf("confirmation % X", w.pdus)
	}

	// malformed, still confirmed
	s.Handle([]byte{0x1d, 0x2b})
	if len(w.pdus) != 2 || len(l.notifys) != 1 {
		t.Fatalf("pdus % X, notifications %+v", w.pdus, l.notifys)
	}
}

func TestUnsupportedRequest(t *testing.T) {
	s, w, _ := newTestSession()

	// read request
	s.Handle([]byte{0x0a, 0x03, 0x00})
	if exp := []byte{0x01, 0x0a, 0x00, 0x00, 0x06}; len(w.pdus) != 1 || !bytes.Equal(w.pdus[0], exp) {
		t.Fatalf("got % X, want % X", w.pdus, exp)
	}

	// write command and a stray response are ignored
	s.Handle([]byte{0x52, 0x03, 0x00, 0x01})
	s.Handle([]byte{0x0b, 0x01})
	if len(w.pdus) != 1 {
		t.Fatalf("got % X", w.pdus)
	}
}

func TestErrorStrings(t *testing.T) {
	if s := ErrInsuffEnc.Error(); s != "insufficient encryption" {
		t.Fatalf("got %q", s)
	}
	if s := Error(0x85).Error(); s != "application error code (0x85)" {
		t.Fatalf("got %q", s)
	}
	if s := Error(0x20).Error(); s != "reserved error code (0x20)" {
		t.Fatalf("got %q", s)
	}
}
