package linux

import (
	"time"

	"github.com/pkg/errors"
	ble "github.com/rigado/blecentral"
)

// Option sets the options specified. Transport, connection and error
// handling options belong to the HCI and are ignored here.
func (b *Bindings) Option(opts ...ble.Option) error {
	for _, opt := range opts {
		if err := opt(b); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bindings) SetTransportHCISocket(int) error                  { return nil }
func (b *Bindings) SetTransportUserChannel(bool) error               { return nil }
func (b *Bindings) SetTransportH4Socket(string, time.Duration) error { return nil }
func (b *Bindings) SetTransportH4Uart(string, uint) error            { return nil }
func (b *Bindings) SetConnParams(ble.ConnParams) error               { return nil }
func (b *Bindings) SetErrorHandler(func(error)) error                { return nil }
func (b *Bindings) SetDevicePollInterval(time.Duration) error        { return nil }

// SetScanParams sets the interval and window of the scans started.
func (b *Bindings) SetScanParams(p ble.ScanParams) error {
	b.scanInterval, b.scanWindow = p.Interval, p.Window
	return nil
}

// SetEventHandler sets the receiver of every event.
func (b *Bindings) SetEventHandler(h ble.EventHandler) error {
	b.handler = h
	return nil
}

// SetEventHandlerSync delivers events on the goroutine that produced them
// instead of a dedicated one.
func (b *Bindings) SetEventHandlerSync(sync bool) error {
	b.sync = sync
	return nil
}

// SetReportAllDiscoveries emits discover for every advertising report.
func (b *Bindings) SetReportAllDiscoveries(all bool) error {
	b.reportAll = all
	return nil
}

// SetMaxDiscoveries bounds the discovery tables.
func (b *Bindings) SetMaxDiscoveries(n int) error {
	if n < 0 {
		return errors.Errorf("invalid max discoveries %d", n)
	}
	b.maxDiscoveries = n
	return nil
}

// SetSecureConnections requests LE Secure Connections when pairing.
func (b *Bindings) SetSecureConnections(enable bool) error {
	b.secure = enable
	return nil
}
