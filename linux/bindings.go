// Package linux is the central role stack over a raw HCI controller. It
// owns the scan engine and the per-connection sessions, serializes
// connection attempts and turns everything the controller reports into
// ble events.
package linux

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
	ble "github.com/rigado/blecentral"
	"github.com/rigado/blecentral/linux/gap"
	"github.com/rigado/blecentral/linux/hci"
	"github.com/rigado/blecentral/linux/hci/cmd"
)

// ErrPoweredOff fails the connects outstanding when the controller lost power.
var ErrPoweredOff = errors.New("controller powered off")

// controller is the part of the HCI the bindings drive.
type controller interface {
	Init() error
	Close() error

	SetScanParameters(interval, window uint16) error
	SetScanEnabled(enable, filterDuplicates bool) error
	CreateLeConn(addr string, addrType ble.AddrType, p ble.ConnParams) error
	CancelLeConn() error
	ConnUpdateLe(handle uint16, minInterval, maxInterval time.Duration, latency uint16, timeout time.Duration) error
	StartLeEncryption(handle uint16, rand uint64, ediv uint16, ltk []byte) error
	Disconnect(handle uint16, reason uint8) error
	ReadRssi(handle uint16) error
	SetAddress(mac string) error
	WriteAclDataPkt(handle, cid uint16, data []byte) error
}

type peer struct {
	address     string
	addressType ble.AddrType
}

type connectRequest struct {
	id          string
	address     string
	addressType ble.AddrType
	params      ble.ConnParams

	issued    bool
	cancelled bool
}

// Bindings is the central stack of one controller.
type Bindings struct {
	mu  sync.Mutex
	log ble.Logger
	hci controller
	gap *gap.GAP

	state       ble.State
	address     string
	addressType ble.AddrType

	handler   ble.EventHandler
	sync      bool
	pending   *eventQueue
	done      chan struct{}
	closeOnce sync.Once

	reportAll      bool
	maxDiscoveries int
	secure         bool
	scanInterval   uint16
	scanWindow     uint16

	// identifier to the last address seen for it
	peers        *lru.Cache
	serviceUUIDs []string

	queue   []*connectRequest
	waiters map[string]chan error

	handles map[string]uint16
	conns   map[uint16]*peripheral

	// run in order once mu is released
	calls []func()
}

// NewBindings returns the stack of the controller selected by opts.
func NewBindings(opts ...ble.Option) (*Bindings, error) {
	b := &Bindings{}
	h, err := hci.New(b, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "can't create hci")
	}
	if err := b.init(h, opts...); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Bindings) init(c controller, opts ...ble.Option) error {
	b.log = ble.PkgLogger("bindings")
	b.hci = c
	b.state = ble.StateUnknown
	b.waiters = map[string]chan error{}
	b.handles = map[string]uint16{}
	b.conns = map[uint16]*peripheral{}
	b.done = make(chan struct{})

	if err := b.Option(opts...); err != nil {
		return err
	}

	size := b.maxDiscoveries
	if size == 0 {
		size = gap.DefaultMaxDiscoveries
	}
	peers, err := lru.New(size)
	if err != nil {
		return errors.Wrap(err, "can't create peer table")
	}
	b.peers = peers

	g, err := gap.New((*gapController)(b), (*gapListener)(b), gap.Config{
		MaxDiscoveries: b.maxDiscoveries,
		ReportAll:      b.reportAll,
		Interval:       b.scanInterval,
		Window:         b.scanWindow,
	})
	if err != nil {
		return err
	}
	b.gap = g

	if b.handler != nil && !b.sync {
		b.pending = newEventQueue()
		go b.deliver()
	}
	return nil
}

// Init opens the controller and starts bring-up. The state is reported
// with a stateChange event.
func (b *Bindings) Init() error {
	return b.hci.Init()
}

// Close stops event delivery and closes the controller.
func (b *Bindings) Close() error {
	b.closeOnce.Do(func() { close(b.done) })
	return b.hci.Close()
}

// State returns the last controller state reported.
func (b *Bindings) State() ble.State {
	b.mu.Lock()
	defer b.unlock()
	return b.state
}

// Address returns the controller address.
func (b *Bindings) Address() (string, ble.AddrType) {
	b.mu.Lock()
	defer b.unlock()
	return b.address, b.addressType
}

// SetScanParameters sets the interval and window of the scans started from
// now on, in 0.625 ms units.
func (b *Bindings) SetScanParameters(interval, window uint16) error {
	err := hci.ValidateScanParams(cmd.LESetScanParameters{
		LEScanType:     hci.LEScanTypeActive,
		LEScanInterval: interval,
		LEScanWindow:   window,
	})
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.unlock()
	return b.gap.SetScanParameters(interval, window)
}

// StartScanning starts discovering. With serviceUUIDs only advertisers of
// one of those services, in the service list or the service data, are
// reported.
func (b *Bindings) StartScanning(serviceUUIDs []string, allowDuplicates bool) error {
	b.mu.Lock()
	defer b.unlock()

	b.serviceUUIDs = b.serviceUUIDs[:0]
	for _, u := range serviceUUIDs {
		b.serviceUUIDs = append(b.serviceUUIDs, normalizeUUID(u))
	}
	return b.gap.StartScanning(allowDuplicates)
}

// StopScanning stops discovering.
func (b *Bindings) StopScanning() error {
	b.mu.Lock()
	defer b.unlock()
	return b.gap.StopScanning()
}

// SetAddress programs a new public address with the vendor command of the
// controller.
func (b *Bindings) SetAddress(mac string) error {
	if _, err := ble.ParseMAC(mac); err != nil {
		return err
	}
	return b.hci.SetAddress(strings.ToLower(mac))
}

// Connect queues a connection to the peripheral id. The outcome is reported
// with a connect event.
func (b *Bindings) Connect(id string, params ble.ConnParams) error {
	b.mu.Lock()
	defer b.unlock()
	return b.connect(strings.ToLower(id), params)
}

// ConnectContext connects to the peripheral id and waits for the outcome.
// Only one caller may wait per peripheral. When ctx is done first the
// connect is cancelled.
func (b *Bindings) ConnectContext(ctx context.Context, id string, params ble.ConnParams) error {
	id = strings.ToLower(id)
	ch := make(chan error, 1)

	b.mu.Lock()
	if _, ok := b.waiters[id]; ok {
		b.unlock()
		return errors.Wrap(ble.ErrConnectPending, id)
	}
	b.waiters[id] = ch
	// joining a connect queued without a waiter is fine
	if err := b.connect(id, params); err != nil && errors.Cause(err) != ble.ErrConnectPending {
		delete(b.waiters, id)
		b.unlock()
		return err
	}
	b.unlock()

	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
	}

	b.mu.Lock()
	select {
	case err := <-ch:
		b.unlock()
		return err
	default:
	}
	delete(b.waiters, id)
	b.unlock()

	if err := b.CancelConnect(id); err != nil {
		b.log.Debugf("%s: cancel: %v", id, err)
	}
	return ctx.Err()
}

// CancelConnect withdraws a queued connect. The connect in flight is
// cancelled with the controller.
func (b *Bindings) CancelConnect(id string) error {
	id = strings.ToLower(id)
	b.mu.Lock()
	defer b.unlock()

	for i, r := range b.queue {
		if r.id != id {
			continue
		}
		if i == 0 && r.issued {
			r.cancelled = true
			b.send("cancel connection", b.hci.CancelLeConn)
			return nil
		}
		b.queue = append(b.queue[:i:i], b.queue[i+1:]...)
		b.connectDone(id, ble.ErrConnectCancelled)
		return nil
	}

	if _, ok := b.handles[id]; ok {
		b.send("cancel connection", b.hci.CancelLeConn)
		return nil
	}
	return errors.Wrap(ble.ErrUnknownPeripheral, id)
}

// Disconnect terminates the connection of id. The outcome is reported with
// a disconnect event.
func (b *Bindings) Disconnect(id string) error {
	b.mu.Lock()
	defer b.unlock()

	h, ok := b.handles[strings.ToLower(id)]
	if !ok {
		return errors.Wrap(ble.ErrNotConnected, id)
	}
	b.send("disconnect", func() error { return b.hci.Disconnect(h, ble.ReasonRemoteUser) })
	return nil
}

// UpdateRssi reads the link RSSI of id, reported with an rssiUpdate event.
func (b *Bindings) UpdateRssi(id string) error {
	b.mu.Lock()
	defer b.unlock()

	h, ok := b.handles[strings.ToLower(id)]
	if !ok {
		return errors.Wrap(ble.ErrNotConnected, id)
	}
	b.send("read rssi", func() error { return b.hci.ReadRssi(h) })
	return nil
}

// Encrypt pairs with id and encrypts the link. The outcome is reported with
// an encryptChange or encryptFail event.
func (b *Bindings) Encrypt(id string) error {
	b.mu.Lock()
	defer b.unlock()

	h, ok := b.handles[strings.ToLower(id)]
	if !ok {
		return errors.Wrap(ble.ErrNotConnected, id)
	}
	return b.conns[h].stream.Encrypt()
}

func (b *Bindings) connect(id string, params ble.ConnParams) error {
	if _, ok := b.handles[id]; ok {
		b.connectDone(id, nil)
		return nil
	}
	for _, r := range b.queue {
		if r.id == id {
			return errors.Wrap(ble.ErrConnectPending, id)
		}
	}

	var p peer
	if v, ok := b.peers.Get(id); ok {
		p = v.(peer)
	} else {
		address, err := ble.AddressFromIdentifier(id)
		if err != nil {
			return err
		}
		p = peer{address: address, addressType: ble.AddrTypeRandom}
		if params.AddressType != nil {
			p.addressType = *params.AddressType
		}
	}

	b.queue = append(b.queue, &connectRequest{
		id:          id,
		address:     p.address,
		addressType: p.addressType,
		params:      params,
	})
	b.serviceQueue()
	return nil
}

// serviceQueue issues the head of the queue once no scan is running.
func (b *Bindings) serviceQueue() {
	if len(b.queue) == 0 || b.queue[0].issued {
		return
	}

	switch b.gap.State() {
	case gap.ScanStarting, gap.ScanStarted:
		b.gap.StopScanning()
		return
	case gap.ScanStopping:
		return
	}

	r := b.queue[0]
	r.issued = true
	b.log.Debugf("%s: connecting to %s (%v)", r.id, r.address, r.addressType)
	b.call(func() {
		if err := b.hci.CreateLeConn(r.address, r.addressType, r.params); err != nil {
			b.connectFailed(r, errors.Wrap(err, "can't create connection"))
		}
	})
}

func (b *Bindings) connectFailed(r *connectRequest, err error) {
	b.mu.Lock()
	defer b.unlock()

	if len(b.queue) == 0 || b.queue[0] != r {
		return
	}
	b.queue = b.queue[1:]
	b.connectDone(r.id, err)
	b.serviceQueue()
}

// connectDone resolves the waiter of id and emits connect.
func (b *Bindings) connectDone(id string, err error) {
	if ch, ok := b.waiters[id]; ok {
		delete(b.waiters, id)
		ch <- err
	}
	b.emit(ble.ConnectEvent{ID: id, Err: err})
}

// powerLost fails every connect and ends every connection.
func (b *Bindings) powerLost() {
	queue := b.queue
	b.queue = nil
	for _, r := range queue {
		b.connectDone(r.id, ErrPoweredOff)
	}

	handles := make([]int, 0, len(b.conns))
	for h := range b.conns {
		handles = append(handles, int(h))
	}
	sort.Ints(handles)
	for _, h := range handles {
		b.disconnected(uint16(h), ble.ReasonHardwareFailure)
	}

	b.gap.Reset()
}

func (b *Bindings) matchesServices(a *ble.Advertisement) bool {
	if len(b.serviceUUIDs) == 0 {
		return true
	}
	for _, want := range b.serviceUUIDs {
		for _, u := range a.ServiceUUIDs {
			if normalizeUUID(u) == want {
				return true
			}
		}
		for _, sd := range a.ServiceData {
			if normalizeUUID(sd.UUID) == want {
				return true
			}
		}
	}
	return false
}

func normalizeUUID(u string) string {
	return strings.ToLower(strings.Replace(u, "-", "", -1))
}

func (b *Bindings) call(f func()) {
	b.calls = append(b.calls, f)
}

// send issues an HCI command once mu is released.
func (b *Bindings) send(name string, f func() error) {
	b.call(func() {
		if err := f(); err != nil {
			b.log.Warnf("%s: %v", name, err)
		}
	})
}

// unlock releases mu and runs the calls collected while it was held.
func (b *Bindings) unlock() {
	calls := b.calls
	b.calls = nil
	b.mu.Unlock()
	for _, f := range calls {
		f()
	}
}

// emit never blocks: async events wait in pending until deliver runs
// the handler.
func (b *Bindings) emit(e ble.Event) {
	h := b.handler
	if h == nil {
		return
	}
	if b.sync {
		b.call(func() { h(e) })
		return
	}
	b.pending.push(e)
}

func (b *Bindings) deliver() {
	for {
		select {
		case <-b.pending.wake:
			for _, e := range b.pending.take() {
				select {
				case <-b.done:
					return
				default:
				}
				b.handler(e)
			}
		case <-b.done:
			return
		}
	}
}

// eventQueue is an unbounded FIFO of events.
type eventQueue struct {
	mu     sync.Mutex
	events []ble.Event
	wake   chan struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{wake: make(chan struct{}, 1)}
}

func (q *eventQueue) push(e ble.Event) {
	q.mu.Lock()
	q.events = append(q.events, e)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// take returns the events pushed since the last call.
func (q *eventQueue) take() []ble.Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	e := q.events
	q.events = nil
	return e
}
