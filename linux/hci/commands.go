package hci

import (
	"time"

	"github.com/pkg/errors"
	ble "github.com/rigado/blecentral"
	"github.com/rigado/blecentral/linux/hci/cmd"
	"github.com/rigado/blecentral/linux/hci/vendor"
)

// exec runs f under the lock and makes the handler calls it collected.
func (h *HCI) exec(f func() error) error {
	if !h.isOpen() {
		return ErrClosed
	}
	h.mu.Lock()
	err := f()
	calls := h.takeCalls()
	h.mu.Unlock()
	run(calls)
	return err
}

// SetScanParameters sets the scan interval and window (0.625 ms units).
func (h *HCI) SetScanParameters(interval, window uint16) error {
	return h.exec(func() error {
		return h.setScanParameters(interval, window)
	})
}

func (h *HCI) setScanParameters(interval, window uint16) error {
	p := h.params.scanParams
	p.LEScanInterval = interval
	p.LEScanWindow = window
	if err := ValidateScanParams(p); err != nil {
		return err
	}

	if h.extended {
		return h.queue(&cmd.LESetExtendedScanParameters{
			OwnAddressType:       p.OwnAddressType,
			ScanningFilterPolicy: p.ScanningFilterPolicy,
			ScanningPHYs:         0x01, // LE 1M
			ScanType:             p.LEScanType,
			ScanInterval:         p.LEScanInterval,
			ScanWindow:           p.LEScanWindow,
		})
	}
	return h.queue(&p)
}

// SetScanEnabled starts or stops scanning. The outcome is reported through
// Handler.OnScanEnableSet.
func (h *HCI) SetScanEnabled(enable, filterDuplicates bool) error {
	return h.exec(func() error {
		return h.setScanEnabled(enable, filterDuplicates)
	})
}

func (h *HCI) setScanEnabled(enable, filterDuplicates bool) error {
	c := cmd.LESetScanEnable{
		LEScanEnable:     boolByte(enable),
		FilterDuplicates: boolByte(filterDuplicates),
	}

	var err error
	if h.extended {
		err = h.queue(&cmd.LESetExtendedScanEnable{
			Enable:           c.LEScanEnable,
			FilterDuplicates: c.FilterDuplicates,
		})
	} else {
		err = h.queue(&c)
	}
	if err == nil {
		h.scanEnableSent = append(h.scanEnableSent, c)
	}
	return err
}

// CreateLeConn starts connecting to addr. Zero fields of p take the
// configured defaults.
func (h *HCI) CreateLeConn(addr string, addrType ble.AddrType, p ble.ConnParams) error {
	peer, err := ble.MACToWire(addr)
	if err != nil {
		return err
	}

	return h.exec(func() error {
		c := h.params.connFor(p)
		c.PeerAddressType = uint8(addrType)
		copy(c.PeerAddress[:], peer)
		if err := ValidateConnParams(c); err != nil {
			return err
		}

		if h.extended {
			return h.queue(&cmd.LEExtendedCreateConnection{
				InitiatorFilterPolicy: c.InitiatorFilterPolicy,
				OwnAddressType:        c.OwnAddressType,
				PeerAddressType:       c.PeerAddressType,
				PeerAddress:           c.PeerAddress,
				InitiatingPHYs:        0x01, // LE 1M
				ScanInterval:          c.LEScanInterval,
				ScanWindow:            c.LEScanWindow,
				ConnIntervalMin:       c.ConnIntervalMin,
				ConnIntervalMax:       c.ConnIntervalMax,
				ConnLatency:           c.ConnLatency,
				SupervisionTimeout:    c.SupervisionTimeout,
				MinimumCELength:       c.MinimumCELength,
				MaximumCELength:       c.MaximumCELength,
			})
		}
		return h.queue(&c)
	})
}

// CancelLeConn cancels the outstanding create connection.
func (h *HCI) CancelLeConn() error {
	return h.exec(func() error {
		return h.queue(&cmd.LECreateConnectionCancel{})
	})
}

// ConnUpdateLe asks the controller to apply new connection parameters.
func (h *HCI) ConnUpdateLe(handle uint16, minInterval, maxInterval time.Duration, latency uint16, timeout time.Duration) error {
	return h.exec(func() error {
		c := h.params.connParams
		return h.queue(&cmd.LEConnectionUpdate{
			ConnectionHandle:   handle,
			ConnIntervalMin:    uint16(minInterval / (1250 * time.Microsecond)),
			ConnIntervalMax:    uint16(maxInterval / (1250 * time.Microsecond)),
			ConnLatency:        latency,
			SupervisionTimeout: uint16(timeout / (10 * time.Millisecond)),
			MinimumCELength:    c.MinimumCELength,
			MaximumCELength:    c.MaximumCELength,
		})
	})
}

// StartLeEncryption encrypts the link with ltk.
func (h *HCI) StartLeEncryption(handle uint16, rand uint64, ediv uint16, ltk []byte) error {
	if len(ltk) != 16 {
		return errors.Errorf("invalid ltk length %d", len(ltk))
	}
	c := &cmd.LEStartEncryption{
		ConnectionHandle:     handle,
		RandomNumber:         rand,
		EncryptedDiversifier: ediv,
	}
	copy(c.LongTermKey[:], ltk)

	return h.exec(func() error {
		return h.queue(c)
	})
}

// Disconnect terminates the link.
func (h *HCI) Disconnect(handle uint16, reason uint8) error {
	return h.exec(func() error {
		return h.queue(&cmd.Disconnect{ConnectionHandle: handle, Reason: reason})
	})
}

// ReadRssi reads the link RSSI, reported through Handler.OnRssiRead.
func (h *HCI) ReadRssi(handle uint16) error {
	return h.exec(func() error {
		return h.queue(&cmd.ReadRSSI{Handle: handle})
	})
}

// SetAddress programs a new public address with the controller's vendor
// command, followed by a reset.
func (h *HCI) SetAddress(mac string) error {
	return h.exec(func() error {
		c, ok, err := vendor.SetAddressCommand(h.manufacturer, mac)
		if err != nil {
			return err
		}
		name, _ := vendor.Name(h.manufacturer)
		if !ok {
			return errors.Wrapf(ErrUnsupportedManufacturer, "%q (%d)", name, h.manufacturer)
		}

		h.log.Infof("set address %s via %s command 0x%04x", mac, name, c.OpCode())
		h.vendorOp = c.OpCode()
		return h.queue(c)
	})
}

// Reset resets the controller and re-runs bring-up.
func (h *HCI) Reset() error {
	return h.exec(func() error {
		return h.queue(&cmd.Reset{})
	})
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
