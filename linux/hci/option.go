package hci

import (
	"time"

	ble "github.com/rigado/blecentral"
)

// Option sets the options specified.
func (h *HCI) Option(opts ...ble.Option) error {
	for _, opt := range opts {
		if err := opt(h); err != nil {
			return err
		}
	}
	return nil
}

// SetTransportHCISocket sets HCI device for hci socket
func (h *HCI) SetTransportHCISocket(id int) error {
	uc := true
	if h.transport.hci != nil {
		uc = h.transport.hci.userChannel
	}
	h.transport = transport{
		hci: &transportHci{id: id, userChannel: uc},
	}
	return nil
}

// SetTransportUserChannel toggles the user channel attempt of the hci socket.
func (h *HCI) SetTransportUserChannel(enable bool) error {
	if h.transport.hci == nil {
		h.transport = transport{hci: &transportHci{id: -1}}
	}
	h.transport.hci.userChannel = enable
	return nil
}

// SetTransportH4Socket sets h4 socket server
func (h *HCI) SetTransportH4Socket(addr string, timeout time.Duration) error {
	h.transport = transport{
		h4socket: &transportH4Socket{addr, timeout},
	}
	return nil
}

// SetTransportH4Uart sets h4 uart path
func (h *HCI) SetTransportH4Uart(path string, baud uint) error {
	h.transport = transport{
		h4uart: &transportH4Uart{path, baud},
	}
	return nil
}

// SetScanParams overrides default scanning parameters.
func (h *HCI) SetScanParams(p ble.ScanParams) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.params.setScan(p)
}

// SetConnParams overrides default connection parameters.
func (h *HCI) SetConnParams(p ble.ConnParams) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.params.setConn(p)
}

// SetErrorHandler ...
func (h *HCI) SetErrorHandler(handler func(error)) error {
	h.errorHandler = handler
	return nil
}

// SetDevicePollInterval sets the liveness poll period of the raw channel.
func (h *HCI) SetDevicePollInterval(d time.Duration) error {
	h.pollInterval = d
	return nil
}

// The remaining options are consumed by the layers above the HCI.

func (h *HCI) SetEventHandler(ble.EventHandler) error { return nil }
func (h *HCI) SetEventHandlerSync(bool) error         { return nil }
func (h *HCI) SetReportAllDiscoveries(bool) error     { return nil }
func (h *HCI) SetMaxDiscoveries(int) error            { return nil }
func (h *HCI) SetSecureConnections(bool) error        { return nil }
