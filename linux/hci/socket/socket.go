// +build linux

package socket

import (
	"io"
	"sync"
	"unsafe"

	"github.com/pkg/errors"
	ble "github.com/rigado/blecentral"
	"golang.org/x/sys/unix"
)

func ioR(t, nr, size uintptr) uintptr {
	return (2 << 30) | (t << 8) | nr | (size << 16)
}

func ioW(t, nr, size uintptr) uintptr {
	return (1 << 30) | (t << 8) | nr | (size << 16)
}

func ioctl(fd, op, arg uintptr) error {
	if _, _, ep := unix.Syscall(unix.SYS_IOCTL, fd, op, arg); ep != 0 {
		return ep
	}
	return nil
}

const (
	ioctlSize      = 4
	hciMaxDevices  = 16
	typHCI         = 72 // 'H'
	readTimeout    = 1000
	unixPollErrors = int16(unix.POLLHUP | unix.POLLNVAL | unix.POLLERR)
	unixPollDataIn = int16(unix.POLLIN)

	solHCI    = 0
	hciFilter = 2

	// struct hci_dev_info: dev_id, name[8], bdaddr, flags, ...
	devInfoSize    = 92
	devInfoFlagsAt = 16
	hciUp          = 1 << 0
)

var (
	hciDownDevice    = ioW(typHCI, 202, ioctlSize) // HCIDEVDOWN
	hciGetDeviceList = ioR(typHCI, 210, ioctlSize) // HCIGETDEVLIST
	hciGetDeviceInfo = ioR(typHCI, 211, ioctlSize) // HCIGETDEVINFO
)

type devListRequest struct {
	devNum     uint16
	devRequest [hciMaxDevices]struct {
		id  uint16
		opt uint32
	}
}

var log = ble.PkgLogger("socket")

// Socket implements a HCI User or Raw Channel as ReadWriteCloser.
type Socket struct {
	fd   int
	id   int
	user bool
	rmu  sync.Mutex
	wmu  sync.Mutex
	done chan int
	cmu  sync.Mutex
}

// Open binds the HCI socket of device id; -1 picks the first device. With
// tryUser the exclusive user channel is tried first, falling back to the
// raw channel when it can't be bound.
func Open(id int, tryUser bool) (*Socket, error) {
	if id == -1 {
		var err error
		if id, err = firstDevice(); err != nil {
			return nil, err
		}
	}

	if tryUser {
		s, err := NewUserChannel(id)
		if err == nil {
			return s, nil
		}
		log.Infof("hci%d: user channel unavailable (%v), using raw channel", id, err)
	}
	return NewRawChannel(id)
}

func firstDevice() (int, error) {
	fd, err := unix.Socket(unix.AF_BLUETOOTH, unix.SOCK_RAW|unix.SOCK_CLOEXEC, unix.BTPROTO_HCI)
	if err != nil {
		return 0, errors.Wrap(err, "can't create socket")
	}
	defer unix.Close(fd)

	req := devListRequest{devNum: hciMaxDevices}
	if err = ioctl(uintptr(fd), hciGetDeviceList, uintptr(unsafe.Pointer(&req))); err != nil {
		return 0, errors.Wrap(err, "can't get device list")
	}
	if req.devNum == 0 {
		return 0, errors.New("no devices available")
	}
	return int(req.devRequest[0].id), nil
}

// NewUserChannel returns the HCI User Channel of device id.
func NewUserChannel(id int) (*Socket, error) {
	fd, err := unix.Socket(unix.AF_BLUETOOTH, unix.SOCK_RAW|unix.SOCK_CLOEXEC, unix.BTPROTO_HCI)
	if err != nil {
		return nil, errors.Wrap(err, "can't create socket")
	}

	// HCI User Channel requires exclusive access to the device.
	// The device has to be down at the time of binding.
	if err := ioctl(uintptr(fd), hciDownDevice, uintptr(id)); err != nil {
		unix.Close(fd)
		return nil, errors.Wrap(err, "can't down device")
	}

	sa := unix.SockaddrHCI{Dev: uint16(id), Channel: unix.HCI_CHANNEL_USER}
	if err := unix.Bind(fd, &sa); err != nil {
		unix.Close(fd)
		return nil, errors.Wrap(err, "can't bind socket to hci user channel")
	}

	// poll for 20ms to see if any data becomes available, then clear it
	pfds := []unix.PollFd{{Fd: int32(fd), Events: unixPollDataIn}}
	unix.Poll(pfds, 20)
	evts := pfds[0].Revents

	switch {
	case evts&unixPollErrors != 0:
		unix.Close(fd)
		return nil, io.EOF

	case evts&unixPollDataIn != 0:
		b := make([]byte, 2048)
		unix.Read(fd, b)
	}

	return &Socket{fd: fd, id: id, user: true, done: make(chan int)}, nil
}

// NewRawChannel returns the HCI Raw Channel of device id, filtered to
// commands, events and ACL data.
func NewRawChannel(id int) (*Socket, error) {
	fd, err := unix.Socket(unix.AF_BLUETOOTH, unix.SOCK_RAW|unix.SOCK_CLOEXEC, unix.BTPROTO_HCI)
	if err != nil {
		return nil, errors.Wrap(err, "can't create socket")
	}

	sa := unix.SockaddrHCI{Dev: uint16(id), Channel: unix.HCI_CHANNEL_RAW}
	if err := unix.Bind(fd, &sa); err != nil {
		unix.Close(fd)
		return nil, errors.Wrap(err, "can't bind socket to hci raw channel")
	}

	if err := unix.SetsockoptString(fd, solHCI, hciFilter, string(rawFilter())); err != nil {
		unix.Close(fd)
		return nil, errors.Wrap(err, "can't set hci filter")
	}

	return &Socket{fd: fd, id: id, done: make(chan int)}, nil
}

// rawFilter builds struct hci_filter: the packet type mask, the event
// mask and the opcode.
func rawFilter() []byte {
	const (
		typeMask = 1<<1 | 1<<2 | 1<<4 // command, acl, event
		evtMask1 = 1<<0x05 | 1<<0x08 | 1<<0x0e | 1<<0x0f | 1<<0x13
		evtMask2 = 1 << (0x3e - 32)
	)
	b := make([]byte, 14)
	putUint32(b[0:], typeMask)
	putUint32(b[4:], evtMask1)
	putUint32(b[8:], evtMask2)
	return b
}

func putUint32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

// UserChannel reports whether the socket holds the device exclusively.
func (s *Socket) UserChannel() bool {
	return s.user
}

// IsDevUp reports the HCI_UP flag of the device. The user channel owns the
// device, so it is always up.
func (s *Socket) IsDevUp() (bool, error) {
	if s.user {
		return true, nil
	}
	if !s.isOpen() {
		return false, io.EOF
	}

	var di [devInfoSize]byte
	di[0] = byte(s.id)
	di[1] = byte(s.id >> 8)
	if err := ioctl(uintptr(s.fd), hciGetDeviceInfo, uintptr(unsafe.Pointer(&di[0]))); err != nil {
		return false, errors.Wrap(err, "can't get device info")
	}

	flags := uint32(di[devInfoFlagsAt]) | uint32(di[devInfoFlagsAt+1])<<8 |
		uint32(di[devInfoFlagsAt+2])<<16 | uint32(di[devInfoFlagsAt+3])<<24
	return flags&hciUp != 0, nil
}

func (s *Socket) Read(p []byte) (int, error) {
	if !s.isOpen() {
		return 0, io.EOF
	}

	var err error
	n := 0
	s.rmu.Lock()
	defer s.rmu.Unlock()
	// dont need to add unixPollErrors, they are always returned
	pfds := []unix.PollFd{{Fd: int32(s.fd), Events: unixPollDataIn}}
	unix.Poll(pfds, readTimeout)
	evts := pfds[0].Revents

	switch {
	case evts&unixPollErrors != 0:
		log.Warnf("hci socket error: poll events 0x%04x", evts)
		return 0, io.EOF

	case evts&unixPollDataIn != 0:
		// there is data!
		n, err = unix.Read(s.fd, p)

	default:
		// no data, read timeout
		return 0, nil
	}

	// check if we are still open since the read takes a while
	if !s.isOpen() {
		return 0, io.EOF
	}
	return n, errors.Wrap(err, "can't read hci socket")
}

func (s *Socket) Write(p []byte) (int, error) {
	if !s.isOpen() {
		return 0, io.EOF
	}

	s.wmu.Lock()
	defer s.wmu.Unlock()
	n, err := unix.Write(s.fd, p)
	return n, errors.Wrap(err, "can't write hci socket")
}

func (s *Socket) Close() error {
	s.cmu.Lock()
	defer s.cmu.Unlock()

	select {
	case <-s.done:
		return nil

	default:
		close(s.done)
		log.Debug("closing hci socket")
		s.rmu.Lock()
		err := unix.Close(s.fd)
		s.rmu.Unlock()

		return errors.Wrap(err, "can't close hci socket")
	}
}

func (s *Socket) isOpen() bool {
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}
