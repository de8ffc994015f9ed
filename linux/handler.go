package linux

import (
	ble "github.com/rigado/blecentral"
	"github.com/rigado/blecentral/linux/acl"
	"github.com/rigado/blecentral/linux/att"
	"github.com/rigado/blecentral/linux/gap"
	"github.com/rigado/blecentral/linux/hci"
	"github.com/rigado/blecentral/linux/hci/evt"
	"github.com/rigado/blecentral/linux/hci/smp"
	"github.com/rigado/blecentral/linux/signaling"
)

// OnStateChange implements hci.Handler.
func (b *Bindings) OnStateChange(s ble.State) {
	b.mu.Lock()
	defer b.unlock()

	prev := b.state
	if prev == s {
		return
	}
	b.state = s
	b.log.Infof("state %v -> %v", prev, s)

	if prev == ble.StatePoweredOn && s == ble.StatePoweredOff {
		b.powerLost()
	}
	b.emit(ble.StateChangeEvent{State: s})
}

// OnAddressChange implements hci.Handler.
func (b *Bindings) OnAddressChange(addr string, typ ble.AddrType) {
	b.mu.Lock()
	defer b.unlock()

	b.address, b.addressType = addr, typ
	b.emit(ble.AddressChangeEvent{Address: addr, AddressType: typ})
}

// OnScanEnableSet implements hci.Handler.
func (b *Bindings) OnScanEnableSet(status uint8, enable, filterDuplicates bool) {
	b.mu.Lock()
	defer b.unlock()
	b.gap.OnScanEnableSet(status, enable, filterDuplicates)
}

// OnScanEnableSetCmd implements hci.Handler.
func (b *Bindings) OnScanEnableSetCmd(enable, filterDuplicates bool) {
	b.mu.Lock()
	defer b.unlock()
	b.gap.OnScanEnableSetCmd(enable, filterDuplicates)
}

// OnAdvertisingReport implements hci.Handler.
func (b *Bindings) OnAdvertisingReport(r evt.AdvReport) {
	b.mu.Lock()
	defer b.unlock()
	b.gap.OnAdvertisingReport(r.EventType, ble.MACFromWire(r.Address[:]), ble.AddrType(r.AddressType), r.Data, r.RSSI)
}

// OnLeConnComplete implements hci.Handler. Only connections this stack
// initiated are followed.
func (b *Bindings) OnLeConnComplete(c hci.ConnComplete) {
	if c.Role != hci.RoleMaster {
		b.log.Debugf("ignoring connection 0x%04x with role %d", c.Handle, c.Role)
		return
	}

	b.mu.Lock()
	defer b.unlock()

	if len(b.queue) == 0 {
		if c.Status == 0 {
			b.log.Warnf("unrequested connection 0x%04x to %s", c.Handle, c.Address)
			b.send("disconnect", func() error { return b.hci.Disconnect(c.Handle, ble.ReasonRemoteUser) })
		}
		return
	}

	r := b.queue[0]
	b.queue = b.queue[1:]
	defer b.serviceQueue()

	switch {
	case c.Status != 0:
		var err error = hci.ErrCommand(c.Status)
		if r.cancelled {
			err = ble.ErrConnectCancelled
		}
		b.connectDone(r.id, err)

	case r.cancelled:
		b.send("disconnect", func() error { return b.hci.Disconnect(c.Handle, ble.ReasonRemoteUser) })
		b.connectDone(r.id, ble.ErrConnectCancelled)

	default:
		if err := b.connected(r.id, c); err != nil {
			b.log.Errorf("%s: %v", r.id, err)
			b.send("disconnect", func() error { return b.hci.Disconnect(c.Handle, ble.ReasonRemoteUser) })
			b.connectDone(r.id, err)
		}
	}
}

// connected creates the sessions of a new connection.
func (b *Bindings) connected(id string, c hci.ConnComplete) error {
	if !b.peers.Contains(id) {
		b.peers.Add(id, peer{address: c.Address, addressType: c.AddressType})
	}
	b.gap.AddConnected(c.Address, c.AddressType)

	p := &peripheral{b: b, id: id, handle: c.Handle}
	s, err := acl.New(c.Handle, (*aclTransport)(b), p, smp.Config{
		LocalAddress:      b.address,
		LocalAddressType:  b.addressType,
		RemoteAddress:     c.Address,
		RemoteAddressType: c.AddressType,
		SecureConnections: b.secure,
	})
	if err != nil {
		return err
	}
	p.stream = s
	p.att = att.New(c.Handle, s, p)
	p.sig = signaling.New(c.Handle, s, p)
	s.Attach(att.CID, p.att)
	s.Attach(signaling.CID, p.sig)

	b.conns[c.Handle] = p
	b.handles[id] = c.Handle
	b.log.Infof("%s: connected, handle 0x%04x interval %v", id, c.Handle, ble.IntervalDuration(c.Interval))
	b.connectDone(id, nil)

	if err := p.att.ExchangeMTU(att.LocalMTU); err != nil {
		b.log.Warnf("%s: mtu exchange: %v", id, err)
	}
	return nil
}

// OnLeConnUpdateComplete implements hci.Handler.
func (b *Bindings) OnLeConnUpdateComplete(status uint8, handle, interval, latency, timeout uint16) {
	if status != 0 {
		b.log.Warnf("connection update 0x%04x: %v", handle, hci.ErrCommand(status))
		return
	}
	b.log.Debugf("connection update 0x%04x: interval %v latency %d timeout %v",
		handle, ble.IntervalDuration(interval), latency, ble.TimeoutDuration(timeout))
}

// OnDisconnComplete implements hci.Handler.
func (b *Bindings) OnDisconnComplete(handle uint16, reason uint8) {
	b.mu.Lock()
	defer b.unlock()
	b.disconnected(handle, reason)
}

// disconnected ends the sessions of handle and forgets it.
func (b *Bindings) disconnected(handle uint16, reason uint8) {
	p, ok := b.conns[handle]
	if !ok {
		b.log.Warnf("disconnection of unknown handle 0x%04x", handle)
		return
	}

	p.stream.Push(0, nil)
	delete(b.conns, handle)
	delete(b.handles, p.id)
	b.emit(ble.DisconnectEvent{ID: p.id, Reason: reason})
}

// OnEncryptChange implements hci.Handler.
func (b *Bindings) OnEncryptChange(handle uint16, encrypted bool) {
	b.mu.Lock()
	defer b.unlock()

	if p, ok := b.conns[handle]; ok {
		p.stream.PushEncrypt(encrypted)
	}
}

// OnAclDataPkt implements hci.Handler.
func (b *Bindings) OnAclDataPkt(handle, cid uint16, data []byte) {
	b.mu.Lock()
	defer b.unlock()

	p, ok := b.conns[handle]
	if !ok {
		b.log.Debugf("acl data for unknown handle 0x%04x", handle)
		return
	}
	p.stream.Push(cid, data)
}

// OnRssiRead implements hci.Handler.
func (b *Bindings) OnRssiRead(handle uint16, rssi int8) {
	b.mu.Lock()
	defer b.unlock()

	if p, ok := b.conns[handle]; ok {
		b.emit(ble.RSSIUpdateEvent{ID: p.id, RSSI: rssi})
	}
}

// OnLeLtkNegReply implements hci.Handler.
func (b *Bindings) OnLeLtkNegReply(handle uint16) {
	b.log.Debugf("ltk negative reply 0x%04x", handle)
}

func (b *Bindings) encryptFailed(handle uint16, err error) {
	b.mu.Lock()
	defer b.unlock()

	if p, ok := b.conns[handle]; ok {
		b.emit(ble.EncryptFailEvent{ID: p.id, Err: err})
	}
}

// gapListener receives the events of the scan engine.
type gapListener Bindings

func (l *gapListener) OnScanStart(filterDuplicates bool) {
	(*Bindings)(l).emit(ble.ScanStartEvent{FilterDuplicates: filterDuplicates})
}

func (l *gapListener) OnScanStop() {
	b := (*Bindings)(l)
	b.emit(ble.ScanStopEvent{})
	b.serviceQueue()
}

func (l *gapListener) OnDiscover(r gap.Record) {
	b := (*Bindings)(l)
	id := ble.Identifier(r.Address)
	b.peers.Add(id, peer{address: r.Address, addressType: r.AddressType})

	if !b.matchesServices(r.Advertisement) {
		return
	}
	b.emit(ble.DiscoverEvent{
		ID:            id,
		Address:       r.Address,
		AddressType:   r.AddressType,
		Connectable:   r.Connectable,
		Advertisement: r.Advertisement,
		RSSI:          r.RSSI,
		Scannable:     r.Scannable,
	})
}

// gapController issues the scan engine's commands once mu is released.
type gapController Bindings

func (c *gapController) SetScanEnabled(enable, filterDuplicates bool) error {
	b := (*Bindings)(c)
	b.send("scan enable", func() error { return b.hci.SetScanEnabled(enable, filterDuplicates) })
	return nil
}

func (c *gapController) SetScanParameters(interval, window uint16) error {
	b := (*Bindings)(c)
	b.send("scan parameters", func() error { return b.hci.SetScanParameters(interval, window) })
	return nil
}

// aclTransport issues the streams' commands once mu is released.
type aclTransport Bindings

func (t *aclTransport) WriteAclDataPkt(handle, cid uint16, data []byte) error {
	b := (*Bindings)(t)
	b.send("acl write", func() error { return b.hci.WriteAclDataPkt(handle, cid, data) })
	return nil
}

func (t *aclTransport) StartLeEncryption(handle uint16, rand uint64, ediv uint16, ltk []byte) error {
	b := (*Bindings)(t)
	b.call(func() {
		if err := b.hci.StartLeEncryption(handle, rand, ediv, ltk); err != nil {
			b.encryptFailed(handle, err)
		}
	})
	return nil
}

var (
	_ hci.Handler      = (*Bindings)(nil)
	_ ble.DeviceOption = (*Bindings)(nil)
	_ gap.Controller   = (*gapController)(nil)
	_ gap.Listener     = (*gapListener)(nil)
	_ acl.Transport    = (*aclTransport)(nil)
)
