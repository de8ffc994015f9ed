package ble

import (
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// Environment variables consulted by OptTransportFromEnv.
const (
	EnvDeviceID    = "BLE_HCI_DEVICE_ID"
	EnvUserChannel = "BLE_HCI_USER_CHANNEL"
	EnvUartPort    = "BLE_HCI_UART_PORT"
)

// ScanParams are the LE scan parameters in 0.625 ms units.
type ScanParams struct {
	Interval uint16
	Window   uint16
	Active   bool
}

// DeviceOption is an interface which the device should implement to allow using configuration options
type DeviceOption interface {
	SetTransportHCISocket(id int) error
	SetTransportUserChannel(enable bool) error
	SetTransportH4Socket(addr string, timeout time.Duration) error
	SetTransportH4Uart(path string, baud uint) error

	SetScanParams(ScanParams) error
	SetConnParams(ConnParams) error

	SetEventHandler(EventHandler) error
	SetEventHandlerSync(bool) error
	SetErrorHandler(handler func(error)) error

	SetReportAllDiscoveries(bool) error
	SetMaxDiscoveries(n int) error
	SetSecureConnections(bool) error
	SetDevicePollInterval(time.Duration) error
}

// An Option is a configuration function, which configures the device.
type Option func(DeviceOption) error

// OptTransportHCISocket selects the kernel HCI socket of adapter hci<id>.
func OptTransportHCISocket(id int) Option {
	return func(opt DeviceOption) error {
		return opt.SetTransportHCISocket(id)
	}
}

// OptTransportUserChannel toggles the exclusive user channel. When the bind
// fails the raw channel is used instead.
func OptTransportUserChannel(enable bool) Option {
	return func(opt DeviceOption) error {
		return opt.SetTransportUserChannel(enable)
	}
}

// OptTransportH4Socket set h4 socket transport
func OptTransportH4Socket(addr string, timeout time.Duration) Option {
	return func(opt DeviceOption) error {
		return opt.SetTransportH4Socket(addr, timeout)
	}
}

// OptTransportH4Uart set h4 uart transport
func OptTransportH4Uart(path string, baud uint) Option {
	return func(opt DeviceOption) error {
		return opt.SetTransportH4Uart(path, baud)
	}
}

// OptTransportFromEnv selects the adapter from BLE_HCI_UART_PORT, or
// BLE_HCI_DEVICE_ID and BLE_HCI_USER_CHANNEL. Unset variables leave the
// current selection alone.
func OptTransportFromEnv() Option {
	return func(opt DeviceOption) error {
		if port := os.Getenv(EnvUartPort); port != "" {
			return opt.SetTransportH4Uart(port, 0)
		}

		if v := os.Getenv(EnvDeviceID); v != "" {
			id, err := strconv.Atoi(v)
			if err != nil {
				return errors.Wrapf(err, "%s", EnvDeviceID)
			}
			if err := opt.SetTransportHCISocket(id); err != nil {
				return err
			}
		}

		if v := os.Getenv(EnvUserChannel); v != "" {
			uc, err := strconv.ParseBool(v)
			if err != nil {
				return errors.Wrapf(err, "%s", EnvUserChannel)
			}
			return opt.SetTransportUserChannel(uc)
		}
		return nil
	}
}

// OptScanParams overrides default scanning parameters.
func OptScanParams(p ScanParams) Option {
	return func(opt DeviceOption) error {
		return opt.SetScanParams(p)
	}
}

// OptConnParams overrides default connection parameters.
func OptConnParams(p ConnParams) Option {
	return func(opt DeviceOption) error {
		return opt.SetConnParams(p)
	}
}

// OptEventHandler sets the receiver of upward events.
func OptEventHandler(h EventHandler) Option {
	return func(opt DeviceOption) error {
		return opt.SetEventHandler(h)
	}
}

// OptEventHandlerSync delivers events on the goroutine that produced them,
// after the stack's tables are unlocked.
func OptEventHandlerSync(sync bool) Option {
	return func(opt DeviceOption) error {
		return opt.SetEventHandlerSync(sync)
	}
}

// OptErrorHandler sets error handler
func OptErrorHandler(handler func(error)) Option {
	return func(opt DeviceOption) error {
		return opt.SetErrorHandler(handler)
	}
}

// OptReportAllDiscoveries emits discover for every advertising report.
func OptReportAllDiscoveries(all bool) Option {
	return func(opt DeviceOption) error {
		return opt.SetReportAllDiscoveries(all)
	}
}

// OptMaxDiscoveries bounds the number of addresses tracked while scanning.
func OptMaxDiscoveries(n int) Option {
	return func(opt DeviceOption) error {
		return opt.SetMaxDiscoveries(n)
	}
}

// OptSecureConnections requests LE Secure Connections pairing.
func OptSecureConnections(enable bool) Option {
	return func(opt DeviceOption) error {
		return opt.SetSecureConnections(enable)
	}
}

// OptDevicePollInterval sets the adapter liveness poll period on the raw channel.
func OptDevicePollInterval(d time.Duration) Option {
	return func(opt DeviceOption) error {
		return opt.SetDevicePollInterval(d)
	}
}
