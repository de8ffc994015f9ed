// Package h4 carries HCI packets over a UART or a TCP stream using the H4
// framing: a packet type byte followed by the packet.
package h4

import (
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/jacobsa/go-serial/serial"
	"github.com/pkg/errors"
	ble "github.com/rigado/blecentral"
)

const (
	rxQueueSize = 64
	readTimeout = time.Second
)

var log = ble.PkgLogger("h4")

type h4 struct {
	rwc io.ReadWriteCloser
	rmu sync.Mutex
	wmu sync.Mutex

	frame *frame

	rxQueue chan []byte

	// serial reads report an idle line as EOF
	eofIsIdle bool

	done chan int
	cmu  sync.Mutex
}

// DefaultSerialOptions are the UART settings of common H4 controllers.
func DefaultSerialOptions() serial.OpenOptions {
	return serial.OpenOptions{
		BaudRate:              1000000,
		DataBits:              8,
		StopBits:              1,
		ParityMode:            serial.PARITY_NONE,
		RTSCTSFlowControl:     true,
		MinimumReadSize:       0,
		InterCharacterTimeout: 100,
	}
}

// NewSerial opens an H4 UART.
func NewSerial(opts serial.OpenOptions) (io.ReadWriteCloser, error) {
	// force these, the reader relies on timing out
	opts.MinimumReadSize = 0
	if opts.InterCharacterTimeout == 0 {
		opts.InterCharacterTimeout = 100
	}

	log.Infof("opening %s at %d baud", opts.PortName, opts.BaudRate)
	sp, err := serial.Open(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "can't open %s", opts.PortName)
	}
	return newH4(sp, true), nil
}

// NewSocket connects to an H4 stream served over TCP.
func NewSocket(addr string, timeout time.Duration) (io.ReadWriteCloser, error) {
	c, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, errors.Wrapf(err, "can't dial %s", addr)
	}
	return newH4(&connWithTimeout{c, timeout}, false), nil
}

func newH4(rwc io.ReadWriteCloser, eofIsIdle bool) *h4 {
	h := &h4{
		rwc:       rwc,
		rxQueue:   make(chan []byte, rxQueueSize),
		eofIsIdle: eofIsIdle,
		done:      make(chan int),
	}
	h.frame = newFrame(h.rxQueue)

	go h.rxLoop()
	return h
}

// Read returns one HCI packet, or 0 bytes and no error when none arrived
// within the read timeout.
func (h *h4) Read(p []byte) (int, error) {
	if !h.isOpen() {
		return 0, io.EOF
	}

	h.rmu.Lock()
	defer h.rmu.Unlock()

	var n int
	select {
	case t, ok := <-h.rxQueue:
		if !ok {
			return 0, io.EOF
		}
		if len(p) < len(t) {
			return 0, io.ErrShortBuffer
		}
		n = copy(p, t)

	case <-h.done:
		return 0, io.EOF

	case <-time.After(readTimeout):
		return 0, nil
	}

	return n, nil
}

func (h *h4) Write(p []byte) (int, error) {
	if !h.isOpen() {
		return 0, io.EOF
	}

	h.wmu.Lock()
	defer h.wmu.Unlock()
	n, err := h.rwc.Write(p)
	return n, errors.Wrap(err, "can't write h4")
}

func (h *h4) Close() error {
	h.cmu.Lock()
	defer h.cmu.Unlock()

	select {
	case <-h.done:
		return nil

	default:
		close(h.done)
		log.Debug("closing h4")
		return errors.Wrap(h.rwc.Close(), "can't close h4")
	}
}

func (h *h4) isOpen() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

func (h *h4) rxLoop() {
	defer close(h.rxQueue)

	tmp := make([]byte, 512)
	for h.isOpen() {
		n, err := h.rwc.Read(tmp)
		if n > 0 {
			h.frame.Assemble(tmp[:n])
		}

		switch {
		case err == nil:
		case isTimeout(err), err == io.EOF && h.eofIsIdle:
			// idle line
		default:
			if h.isOpen() {
				log.Errorf("read: %v", err)
			}
			return
		}
	}
}

func isTimeout(err error) bool {
	if os.IsTimeout(err) {
		return true
	}
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}
