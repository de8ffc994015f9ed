package hci

import (
	"fmt"
	"io"
	"time"

	"github.com/rigado/blecentral/linux/hci/h4"
	"github.com/rigado/blecentral/linux/hci/socket"
)

type transportHci struct {
	id          int
	userChannel bool
}

type transportH4Socket struct {
	addr    string
	timeout time.Duration
}

type transportH4Uart struct {
	path string
	baud uint
}

type transport struct {
	hci      *transportHci
	h4uart   *transportH4Uart
	h4socket *transportH4Socket
}

// devicePoller is implemented by transports whose adapter can be powered
// down underneath us (the kernel raw channel).
type devicePoller interface {
	IsDevUp() (bool, error)
}

func getTransport(t transport) (io.ReadWriteCloser, error) {
	switch {
	case t.hci != nil:
		return socket.Open(t.hci.id, t.hci.userChannel)

	case t.h4socket != nil:
		return h4.NewSocket(t.h4socket.addr, t.h4socket.timeout)

	case t.h4uart != nil:
		so := h4.DefaultSerialOptions()
		so.PortName = t.h4uart.path
		if t.h4uart.baud != 0 {
			so.BaudRate = t.h4uart.baud
		}
		return h4.NewSerial(so)

	default:
		return nil, fmt.Errorf("no valid transport found")
	}
}
