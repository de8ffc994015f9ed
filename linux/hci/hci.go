package hci

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/pkg/errors"
	ble "github.com/rigado/blecentral"
	"github.com/rigado/blecentral/linux/hci/cmd"
	"github.com/rigado/blecentral/linux/hci/evt"
)

type handlerFn func(b []byte) error

type completeFn func(rp []byte)

// HCI drives a controller over a raw HCI transport. Every HCI round trip is
// correlated from the event stream; no call blocks on the controller.
type HCI struct {
	mu sync.Mutex

	log     ble.Logger
	handler Handler
	params  params

	transport transport
	open      func() (io.ReadWriteCloser, error)
	skt       io.ReadWriteCloser

	// Host to Controller command flow control [Vol 2, Part E, 4.4]
	cmdCredits int
	cmdQueue   [][]byte
	complete   map[int]completeFn
	status     map[int]func(status uint8)
	// parameters of the scan enable commands awaiting completion, in order
	scanEnableSent []cmd.LESetScanEnable
	vendorOp       int

	// evtHub
	evth map[int]handlerFn
	subh map[int]handlerFn

	// Host to Controller Data Flow Control Packet-based Data flow control for LE-U [Vol 2, Part E, 4.1.1]
	aclMtu           int
	aclMaxInProgress int
	aclPending       map[uint16]int
	aclQueue         []aclFragment
	aclBuffers       map[uint16]*handleBuffer

	// Device information or status.
	state        ble.State
	addr         string
	manufacturer uint16
	lmpOK        bool
	leHost       bool
	extended     bool

	pollInterval time.Duration
	errorHandler func(error)

	// handler calls collected under mu, made after it is released
	calls []func()

	sktRxChan chan []byte
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// New returns a hci device reporting to handler.
func New(handler Handler, opts ...ble.Option) (*HCI, error) {
	ctx, cancel := context.WithCancel(context.Background())
	h := &HCI{
		log:     ble.PkgLogger("hci"),
		handler: handler,

		transport: transport{hci: &transportHci{id: -1, userChannel: true}},

		cmdCredits: 1,
		evth:       map[int]handlerFn{},
		subh:       map[int]handlerFn{},

		aclMtu:           defaultACLMtu,
		aclMaxInProgress: defaultACLBuffers,
		aclPending:       map[uint16]int{},
		aclBuffers:       map[uint16]*handleBuffer{},

		pollInterval: defaultPollInterval,

		sktRxChan: make(chan []byte, 16),
		ctx:       ctx,
		cancel:    cancel,
	}
	h.params.init()
	h.open = func() (io.ReadWriteCloser, error) { return getTransport(h.transport) }
	h.initHandlers()

	if err := h.Option(opts...); err != nil {
		return nil, errors.Wrap(err, "can't set options")
	}
	if err := h.params.validate(); err != nil {
		return nil, errors.Wrap(err, "invalid parameters")
	}
	return h, nil
}

func (h *HCI) initHandlers() {
	h.evth[evt.LEMetaCode] = h.handleLEMeta
	h.evth[evt.CommandCompleteCode] = h.handleCommandComplete
	h.evth[evt.CommandStatusCode] = h.handleCommandStatus
	h.evth[evt.DisconnectionCompleteCode] = h.handleDisconnectionComplete
	h.evth[evt.NumberOfCompletedPacketsCode] = h.handleNumberOfCompletedPackets
	h.evth[evt.EncryptionChangeCode] = h.handleEncryptionChange
	h.evth[evt.HardwareErrorCode] = h.handleHardwareError

	h.subh[evt.LEAdvertisingReportSubCode] = h.handleLEAdvertisingReport
	h.subh[evt.LEExtendedAdvertisingReportSubCode] = h.handleLEExtendedAdvertisingReport
	h.subh[evt.LEConnectionCompleteSubCode] = h.handleLEConnectionComplete
	h.subh[evt.LEEnhancedConnectionCompleteSubCode] = h.handleLEEnhancedConnectionComplete
	h.subh[evt.LEConnectionUpdateCompleteSubCode] = h.handleLEConnectionUpdateComplete
	h.subh[evt.LELongTermKeyRequestSubCode] = h.handleLELongTermKeyRequest

	h.complete = map[int]completeFn{
		cmd.ResetOpCode:                        h.onReset,
		cmd.ReadLocalVersionInformationOpCode:  h.onReadLocalVersion,
		cmd.SetEventMaskOpCode:                 h.onStep(cmd.SetEventMaskOpCode),
		cmd.LESetEventMaskOpCode:               h.onStep(cmd.LESetEventMaskOpCode),
		cmd.WriteLEHostSupportOpCode:           h.onStep(cmd.WriteLEHostSupportOpCode),
		cmd.ReadLEHostSupportOpCode:            h.onReadLEHostSupport,
		cmd.LEReadBufferSizeOpCode:             h.onLEReadBufferSize,
		cmd.ReadBufferSizeOpCode:               h.onReadBufferSize,
		cmd.ReadBDADDROpCode:                   h.onReadBDADDR,
		cmd.LEReadLocalSupportedFeaturesOpCode: h.onLEReadLocalSupportedFeatures,

		cmd.LESetScanParametersOpCode:               h.onSetScanParameters,
		cmd.LESetExtendedScanParametersOpCode:       h.onSetScanParameters,
		cmd.LESetScanEnableOpCode:                   h.onSetScanEnable,
		cmd.LESetExtendedScanEnableOpCode:           h.onSetScanEnable,
		cmd.ReadRSSIOpCode:                          h.onReadRSSI,
		cmd.LELongTermKeyRequestNegativeReplyOpCode: h.onLtkNegReply,
		cmd.LECreateConnectionCancelOpCode:          h.onCreateConnCancel,
	}

	h.status = map[int]func(uint8){
		cmd.LECreateConnectionOpCode:         h.onCreateConnStatus,
		cmd.LEExtendedCreateConnectionOpCode: h.onCreateConnStatus,
		cmd.LEConnectionUpdateOpCode:         h.logStatus("connection update"),
		cmd.LEStartEncryptionOpCode:          h.logStatus("start encryption"),
		cmd.DisconnectOpCode:                 h.logStatus("disconnect"),
	}
}

// Init opens the transport and starts bring-up. Open failures are also
// published as a state change (unauthorized or unsupported).
func (h *HCI) Init() error {
	skt, err := h.open()
	if err != nil {
		s := ble.StateUnsupported
		if os.IsPermission(errors.Cause(err)) {
			s = ble.StateUnauthorized
		}
		h.mu.Lock()
		h.setState(s)
		calls := h.takeCalls()
		h.mu.Unlock()
		run(calls)
		return errors.Wrap(err, "can't open transport")
	}

	h.skt = skt
	go h.sktReadLoop()
	go h.sktProcessLoop()

	if p, ok := skt.(devicePoller); ok {
		go h.pollLoop(p)
	} else {
		h.bringUp()
	}
	return nil
}

// Close stops the reader and closes the transport.
func (h *HCI) Close() error {
	var err error
	h.closeOnce.Do(func() {
		h.cancel()
		if h.skt != nil {
			err = h.skt.Close()
		}
	})
	return err
}

// State returns the last published controller state.
func (h *HCI) State() ble.State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Address returns the controller address, once read.
func (h *HCI) Address() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.addr
}

// Manufacturer returns the company id from read local version.
func (h *HCI) Manufacturer() uint16 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.manufacturer
}

// ExtendedAdvertising reports whether the extended command variants are used.
func (h *HCI) ExtendedAdvertising() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.extended
}

func (h *HCI) isOpen() bool {
	select {
	case <-h.ctx.Done():
		return false
	default:
		return true
	}
}

func (h *HCI) call(f func()) {
	h.calls = append(h.calls, f)
}

func (h *HCI) takeCalls() []func() {
	c := h.calls
	h.calls = nil
	return c
}

func run(calls []func()) {
	for _, c := range calls {
		c()
	}
}

func (h *HCI) setState(s ble.State) {
	if h.state == s {
		return
	}
	h.log.Infof("state %v -> %v", h.state, s)
	h.state = s
	h.call(func() { h.handler.OnStateChange(s) })
}

func (h *HCI) dispatchError(e error) {
	switch {
	case e == nil:
	case h.errorHandler == nil || !h.isOpen():
		h.log.Error(e)
	default:
		h.errorHandler(e)
	}
}

// pollLoop waits for the adapter to come up, runs bring-up, then watches it
// for power loss and return.
func (h *HCI) pollLoop(p devicePoller) {
	errDown := errors.New("device down")

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 100 * time.Millisecond
	bo.MaxInterval = 5 * time.Second
	bo.MaxElapsedTime = 0

	err := backoff.Retry(func() error {
		up, err := p.IsDevUp()
		switch {
		case err != nil:
			return backoff.Permanent(err)
		case !up:
			h.powerOff()
			return errDown
		}
		return nil
	}, backoff.WithContext(bo, h.ctx))

	if err != nil {
		if h.isOpen() {
			h.log.Errorf("device poll: %v", err)
			h.mu.Lock()
			h.setState(ble.StateUnsupported)
			calls := h.takeCalls()
			h.mu.Unlock()
			run(calls)
		}
		return
	}
	h.bringUp()

	t := time.NewTicker(h.pollInterval)
	defer t.Stop()

	up := true
	for {
		select {
		case <-h.ctx.Done():
			return
		case <-t.C:
		}

		now, err := p.IsDevUp()
		if err != nil {
			h.log.Warnf("device poll: %v", err)
			continue
		}
		if now == up {
			continue
		}
		up = now
		if up {
			h.bringUp()
		} else {
			h.powerOff()
		}
	}
}

// powerOff drops every per-connection table and publishes poweredOff.
func (h *HCI) powerOff() {
	h.mu.Lock()
	for handle := range h.aclPending {
		h.cleanupHandle(handle)
	}
	h.cmdQueue = nil
	h.cmdCredits = 1
	h.scanEnableSent = nil
	h.setState(ble.StatePoweredOff)
	calls := h.takeCalls()
	h.mu.Unlock()
	run(calls)
}

var bringUpSequence = []int{
	cmd.ResetOpCode,
	cmd.ReadLocalVersionInformationOpCode,
	cmd.SetEventMaskOpCode,
	cmd.LESetEventMaskOpCode,
	cmd.WriteLEHostSupportOpCode,
	cmd.ReadLEHostSupportOpCode,
	cmd.LEReadBufferSizeOpCode,
	cmd.ReadBDADDROpCode,
	cmd.LEReadLocalSupportedFeaturesOpCode,
}

func bringUpCommand(op int) cmd.Command {
	switch op {
	case cmd.ResetOpCode:
		return &cmd.Reset{}
	case cmd.ReadLocalVersionInformationOpCode:
		return &cmd.ReadLocalVersionInformation{}
	case cmd.SetEventMaskOpCode:
		return &cmd.SetEventMask{EventMask: eventMask}
	case cmd.LESetEventMaskOpCode:
		return &cmd.LESetEventMask{LEEventMask: leEventMask}
	case cmd.WriteLEHostSupportOpCode:
		return &cmd.WriteLEHostSupport{LESupportedHost: 1, SimultaneousLEHost: 0}
	case cmd.ReadLEHostSupportOpCode:
		return &cmd.ReadLEHostSupport{}
	case cmd.LEReadBufferSizeOpCode:
		return &cmd.LEReadBufferSize{}
	case cmd.ReadBDADDROpCode:
		return &cmd.ReadBDADDR{}
	case cmd.LEReadLocalSupportedFeaturesOpCode:
		return &cmd.LEReadLocalSupportedFeatures{}
	}
	return nil
}

func (h *HCI) bringUp() {
	h.mu.Lock()
	h.log.Info("hci reset")
	h.cmdQueue = nil
	h.cmdCredits = 1
	h.queue(&cmd.Reset{})
	calls := h.takeCalls()
	h.mu.Unlock()
	run(calls)
}

// advance queues the bring-up step after op.
func (h *HCI) advance(op int) {
	for i, o := range bringUpSequence {
		if o != op {
			continue
		}
		if i+1 < len(bringUpSequence) {
			h.queue(bringUpCommand(bringUpSequence[i+1]))
			return
		}
		h.bringUpDone()
		return
	}
}

// bringUpDone sends the default scan configuration once the command
// variants are known. Its completion promotes the state to poweredOn.
func (h *HCI) bringUpDone() {
	if !h.lmpOK || h.state == ble.StatePoweredOn {
		return
	}
	h.setScanEnabled(false, true)
	h.setScanParameters(h.params.scanParams.LEScanInterval, h.params.scanParams.LEScanWindow)
}

func statusOf(rp []byte) uint8 {
	if len(rp) == 0 {
		return 0xff
	}
	return rp[0]
}

func (h *HCI) stepOK(op int, rp []byte) bool {
	if s := statusOf(rp); s != 0 {
		h.log.Warnf("bring-up: command 0x%04x failed: %v", op, ErrCommand(s))
		return false
	}
	return true
}

func (h *HCI) onStep(op int) completeFn {
	return func(rp []byte) {
		if h.stepOK(op, rp) {
			h.advance(op)
		}
	}
}

func (h *HCI) onReset(rp []byte) {
	if !h.stepOK(cmd.ResetOpCode, rp) {
		return
	}
	h.advance(cmd.ResetOpCode)
}

func (h *HCI) onReadLocalVersion(rp []byte) {
	op := cmd.ReadLocalVersionInformationOpCode
	if !h.stepOK(op, rp) {
		return
	}
	r := cmd.ReadLocalVersionInformationRP{}
	if err := r.Unmarshal(rp); err != nil {
		h.log.Warnf("read local version: %v", err)
		return
	}

	h.manufacturer = r.ManufacturerName
	h.log.Infof("controller: hci %d, lmp %d, manufacturer %d", r.HCIVersion, r.LMPPALVersion, r.ManufacturerName)

	h.lmpOK = r.LMPPALVersion >= minLMPVersion
	if !h.lmpOK {
		h.setState(ble.StateUnsupported)
	}
	h.advance(op)
}

func (h *HCI) onReadLEHostSupport(rp []byte) {
	op := cmd.ReadLEHostSupportOpCode
	if !h.stepOK(op, rp) {
		return
	}
	r := cmd.ReadLEHostSupportRP{}
	if err := r.Unmarshal(rp); err != nil {
		h.log.Warnf("read le host support: %v", err)
	} else {
		h.leHost = r.LESupportedHost == 1
		h.log.Debugf("le host supported %d, simultaneous %d", r.LESupportedHost, r.SimultaneousLEHost)
		if !h.leHost {
			h.log.Warn("le host support not enabled by the controller")
		}
	}
	h.advance(op)
}

func (h *HCI) onLEReadBufferSize(rp []byte) {
	op := cmd.LEReadBufferSizeOpCode
	if !h.stepOK(op, rp) {
		return
	}
	r := cmd.LEReadBufferSizeRP{}
	if err := r.Unmarshal(rp); err != nil {
		h.log.Warnf("le read buffer size: %v", err)
		return
	}

	if r.HCTotalNumLEDataPackets == 0 || r.HCLEDataPacketLength == 0 {
		// LE-U shares the ACL-U buffers.
		h.queue(&cmd.ReadBufferSize{})
		return
	}
	h.setBuffers(int(r.HCLEDataPacketLength), int(r.HCTotalNumLEDataPackets))
	h.advance(op)
}

func (h *HCI) onReadBufferSize(rp []byte) {
	if !h.stepOK(cmd.ReadBufferSizeOpCode, rp) {
		return
	}
	r := cmd.ReadBufferSizeRP{}
	if err := r.Unmarshal(rp); err != nil {
		h.log.Warnf("read buffer size: %v", err)
		return
	}
	h.setBuffers(int(r.HCACLDataPacketLength), int(r.HCTotalNumACLDataPackets))
	h.advance(cmd.LEReadBufferSizeOpCode)
}

func (h *HCI) setBuffers(mtu, count int) {
	if mtu <= 0 {
		mtu = defaultACLMtu
	}
	if count <= 0 {
		count = defaultACLBuffers
	}
	h.log.Debugf("acl mtu %d, buffers %d", mtu, count)
	h.aclMtu = mtu
	h.aclMaxInProgress = count
}

func (h *HCI) onReadBDADDR(rp []byte) {
	op := cmd.ReadBDADDROpCode
	if !h.stepOK(op, rp) {
		return
	}
	r := cmd.ReadBDADDRRP{}
	if err := r.Unmarshal(rp); err != nil {
		h.log.Warnf("read bdaddr: %v", err)
		return
	}

	a := ble.MACFromWire(r.BDADDR[:])
	h.addr = a
	h.call(func() { h.handler.OnAddressChange(a, ble.AddrTypePublic) })
	h.advance(op)
}

func (h *HCI) onLEReadLocalSupportedFeatures(rp []byte) {
	op := cmd.LEReadLocalSupportedFeaturesOpCode
	if !h.stepOK(op, rp) {
		return
	}
	r := cmd.LEReadLocalSupportedFeaturesRP{}
	if err := r.Unmarshal(rp); err != nil {
		h.log.Warnf("le read features: %v", err)
		return
	}
	h.extended = r.LEFeatures&leFeatureExtendedAdvertising != 0
	h.log.Debugf("le features 0x%016x, extended advertising %v", r.LEFeatures, h.extended)
	h.advance(op)
}

func (h *HCI) onSetScanParameters(rp []byte) {
	if s := statusOf(rp); s != 0 {
		h.log.Warnf("set scan parameters: %v", ErrCommand(s))
		return
	}
	if h.state != ble.StatePoweredOn && h.lmpOK {
		h.setState(ble.StatePoweredOn)
	}
}

func (h *HCI) onSetScanEnable(rp []byte) {
	// completions of commands other processes issued on the raw channel
	if len(h.scanEnableSent) == 0 {
		h.log.Debug("scan enable completion without a pending command")
		return
	}
	sent := h.scanEnableSent[0]
	h.scanEnableSent = h.scanEnableSent[1:]

	status := statusOf(rp)
	enable := sent.LEScanEnable == 1
	filter := sent.FilterDuplicates == 1
	h.call(func() { h.handler.OnScanEnableSet(status, enable, filter) })
}

func (h *HCI) onReadRSSI(rp []byte) {
	r := cmd.ReadRSSIRP{}
	if err := r.Unmarshal(rp); err != nil {
		h.log.Warnf("read rssi: %v", err)
		return
	}
	if r.Status != 0 {
		h.log.Warnf("read rssi 0x%04x: %v", r.ConnectionHandle, ErrCommand(r.Status))
		return
	}
	h.call(func() { h.handler.OnRssiRead(r.ConnectionHandle, r.RSSI) })
}

func (h *HCI) onLtkNegReply(rp []byte) {
	r := cmd.LELongTermKeyRequestNegativeReplyRP{}
	if err := r.Unmarshal(rp); err != nil {
		h.log.Warnf("ltk negative reply: %v", err)
		return
	}
	h.call(func() { h.handler.OnLeLtkNegReply(r.ConnectionHandle) })
}

func (h *HCI) onCreateConnCancel(rp []byte) {
	if s := statusOf(rp); s != 0 {
		h.log.Debugf("create connection cancel: %v", ErrCommand(s))
	}
}

// A create connection rejected outright never produces a connection
// complete, so report the failure as one.
func (h *HCI) onCreateConnStatus(status uint8) {
	if status == 0 {
		return
	}
	h.log.Warnf("create connection: %v", ErrCommand(status))
	h.call(func() {
		h.handler.OnLeConnComplete(ConnComplete{Status: status, Role: RoleMaster})
	})
}

func (h *HCI) logStatus(name string) func(uint8) {
	return func(status uint8) {
		if status != 0 {
			h.log.Warnf("%s: %v", name, ErrCommand(status))
		}
	}
}

// queue adds c to the command queue and sends what the credits allow.
func (h *HCI) queue(c cmd.Command) error {
	b, err := cmd.Packet(c)
	if err != nil {
		return err
	}
	h.log.Debugf("queue cmd % X", b)
	h.cmdQueue = append(h.cmdQueue, b)
	h.flushCommands()
	return nil
}

func (h *HCI) flushCommands() {
	for h.cmdCredits > 0 && len(h.cmdQueue) > 0 {
		b := h.cmdQueue[0]
		h.cmdQueue = h.cmdQueue[1:]
		h.cmdCredits--
		h.write(b)
	}
}

func (h *HCI) setAllowedCommands(n int) {
	if n > maxCmdCredits {
		h.log.Debugf("setAllowedCommands: defaulting %d -> %d", n, maxCmdCredits)
		n = maxCmdCredits
	}
	h.cmdCredits = n
}

func (h *HCI) write(b []byte) {
	if h.skt == nil {
		return
	}
	n, err := h.skt.Write(b)
	switch {
	case err != nil:
		h.dispatchError(errors.Wrap(err, "hci write"))
	case n != len(b):
		h.dispatchError(fmt.Errorf("hci write: short write %d/%d", n, len(b)))
	}
}

func (h *HCI) sktReadLoop() {
	defer close(h.sktRxChan)

	b := make([]byte, readBufferSize)
	for {
		n, err := h.skt.Read(b)

		switch {
		case n == 0 && err == nil:
			// read timeout
			if !h.isOpen() {
				return
			}
			continue

		case err != nil:
			if h.isOpen() {
				h.dispatchError(errors.Wrap(err, "skt read"))
			}
			return

		default:
			p := make([]byte, n)
			copy(p, b)
			select {
			case h.sktRxChan <- p:
			case <-h.ctx.Done():
				return
			}
		}
	}
}

func (h *HCI) sktProcessLoop() {
	for p := range h.sktRxChan {
		h.handlePkt(p)
	}
	h.log.Debug("skt process loop done")
}

// handlePkt processes one packet from the transport.
func (h *HCI) handlePkt(b []byte) {
	if len(b) == 0 {
		return
	}

	h.mu.Lock()
	err := h.dispatchPkt(b)
	calls := h.takeCalls()
	h.mu.Unlock()

	if err != nil {
		h.log.Debugf("dropped packet: %v", err)
	}
	run(calls)
}

func (h *HCI) dispatchPkt(b []byte) error {
	// Strip the 1-byte HCI header and pass down the rest of the packet.
	t, b := b[0], b[1:]
	switch t {
	case PktTypeACLData:
		return h.handleACL(b)
	case PktTypeEvent:
		return h.handleEvt(b)
	case PktTypeCommand:
		return h.handleCmd(b)
	case PktTypeSCOData:
		return fmt.Errorf("unsupported sco packet: % X", b)
	case PktTypeVendor:
		return fmt.Errorf("unsupported vendor packet: % X", b)
	default:
		return fmt.Errorf("invalid packet: 0x%02X % X", t, b)
	}
}

// handleCmd follows scan enable commands issued by other hosts on the raw
// channel.
func (h *HCI) handleCmd(b []byte) error {
	if len(b) < 3 || int(b[2]) != len(b[3:]) {
		return fmt.Errorf("invalid cmd packet: % X", b)
	}

	op := int(binary.LittleEndian.Uint16(b))
	switch op {
	case cmd.LESetScanEnableOpCode:
		c := cmd.LESetScanEnable{}
		if err := c.Unmarshal(b[3:]); err != nil {
			return errors.Wrap(err, "scan enable cmd")
		}
		h.call(func() { h.handler.OnScanEnableSetCmd(c.LEScanEnable == 1, c.FilterDuplicates == 1) })

	case cmd.LESetExtendedScanEnableOpCode:
		c := cmd.LESetExtendedScanEnable{}
		if err := c.Unmarshal(b[3:]); err != nil {
			return errors.Wrap(err, "extended scan enable cmd")
		}
		h.call(func() { h.handler.OnScanEnableSetCmd(c.Enable == 1, c.FilterDuplicates == 1) })
	}
	return nil
}

func (h *HCI) handleEvt(b []byte) error {
	if len(b) < 2 {
		return fmt.Errorf("short event packet: % X", b)
	}
	code, plen := int(b[0]), int(b[1])
	if plen != len(b[2:]) {
		return fmt.Errorf("invalid event packet: % X", b)
	}

	if f := h.evth[code]; f != nil {
		return f(b[2:])
	}
	if code == evt.VendorCode {
		return nil
	}
	return fmt.Errorf("unsupported event packet: % X", b)
}

func (h *HCI) handleLEMeta(b []byte) error {
	if len(b) == 0 {
		return fmt.Errorf("empty LE meta event")
	}
	subcode := int(b[0])
	if f := h.subh[subcode]; f != nil {
		return f(b)
	}
	return fmt.Errorf("unsupported LE event: % X", b)
}

func (h *HCI) handleCommandComplete(b []byte) error {
	e := evt.CommandComplete(b)
	n, err := e.NumHCICommandPacketsWErr()
	if err != nil {
		return errors.Wrap(err, "command complete")
	}
	op, err := e.CommandOpcodeWErr()
	if err != nil {
		return errors.Wrap(err, "command complete")
	}
	h.setAllowedCommands(int(n))
	defer h.flushCommands()

	// NOP command, used for flow control purpose [Vol 2, Part E, 4.4]
	if op == 0x0000 {
		return nil
	}

	rp := e.ReturnParameters()
	if h.vendorOp != 0 && int(op) == h.vendorOp {
		h.vendorOp = 0
		if s := statusOf(rp); s != 0 {
			h.log.Warnf("set address: %v", ErrCommand(s))
			return nil
		}
		// the new address is only used after a reset
		h.queue(&cmd.Reset{})
		return nil
	}

	if f := h.complete[int(op)]; f != nil {
		f(rp)
		return nil
	}
	h.log.Debugf("command complete for unhandled opcode 0x%04x", op)
	return nil
}

func (h *HCI) handleCommandStatus(b []byte) error {
	e := evt.CommandStatus(b)
	status, err := e.StatusWErr()
	if err != nil {
		return errors.Wrap(err, "command status")
	}
	n, _ := e.NumHCICommandPacketsWErr()
	op, err := e.CommandOpcodeWErr()
	if err != nil {
		return errors.Wrap(err, "command status")
	}
	h.setAllowedCommands(int(n))
	defer h.flushCommands()

	if op == 0x0000 {
		return nil
	}
	if f := h.status[int(op)]; f != nil {
		f(status)
		return nil
	}
	if status != 0 {
		h.log.Warnf("command 0x%04x: %v", op, ErrCommand(status))
	}
	return nil
}

func (h *HCI) handleHardwareError(b []byte) error {
	h.log.Errorf("hardware error: % X", b)
	return nil
}

func (h *HCI) handleLEAdvertisingReport(b []byte) error {
	reports, err := evt.LEAdvertisingReport(b).ReportsWErr()
	for _, r := range reports {
		r := r
		h.call(func() { h.handler.OnAdvertisingReport(r) })
	}
	return errors.Wrap(err, "advertising report")
}

func (h *HCI) handleLEExtendedAdvertisingReport(b []byte) error {
	reports, err := evt.LEExtendedAdvertisingReport(b).ReportsWErr()
	for _, r := range reports {
		r := r
		h.call(func() { h.handler.OnAdvertisingReport(r) })
	}
	return errors.Wrap(err, "extended advertising report")
}

func (h *HCI) handleLEConnectionComplete(b []byte) error {
	e := evt.LEConnectionComplete(b)
	if err := e.Validate(); err != nil {
		return err
	}
	h.connComplete(e)
	return nil
}

func (h *HCI) handleLEEnhancedConnectionComplete(b []byte) error {
	e, err := evt.LEEnhancedConnectionComplete(b).Legacy()
	if err != nil {
		return err
	}
	h.connComplete(e)
	return nil
}

func (h *HCI) connComplete(e evt.LEConnectionComplete) {
	pa := e.PeerAddress()
	c := ConnComplete{
		Status:      e.Status(),
		Handle:      e.ConnectionHandle(),
		Role:        e.Role(),
		AddressType: ble.AddrType(e.PeerAddressType()),
		Address:     ble.MACFromWire(pa[:]),
		Interval:    e.ConnInterval(),
		Latency:     e.ConnLatency(),
		Timeout:     e.SupervisionTimeout(),
	}

	if c.Status == 0 {
		h.log.Debugf("connection complete 0x%04x: %s (%v)", c.Handle, c.Address, c.AddressType)
		h.aclPending[c.Handle] = 0
	} else {
		h.log.Warnf("connection failed: %v", ErrCommand(c.Status))
	}
	h.call(func() { h.handler.OnLeConnComplete(c) })
}

func (h *HCI) handleLEConnectionUpdateComplete(b []byte) error {
	if len(b) < 10 {
		return fmt.Errorf("short connection update complete: % X", b)
	}
	e := evt.LEConnectionUpdateComplete(b)
	status, handle := e.Status(), e.ConnectionHandle()
	interval := binary.LittleEndian.Uint16(b[4:])
	latency := binary.LittleEndian.Uint16(b[6:])
	timeout := binary.LittleEndian.Uint16(b[8:])
	h.log.Debugf("connection update 0x%04x: status %d interval %d latency %d timeout %d", handle, status, interval, latency, timeout)
	h.call(func() { h.handler.OnLeConnUpdateComplete(status, handle, interval, latency, timeout) })
	return nil
}

// The stack keeps no keys, so peripheral initiated re-encryption is
// refused.
func (h *HCI) handleLELongTermKeyRequest(b []byte) error {
	handle, err := evt.LELongTermKeyRequest(b).ConnectionHandleWErr()
	if err != nil {
		return errors.Wrap(err, "ltk request")
	}
	return h.queue(&cmd.LELongTermKeyRequestNegativeReply{ConnectionHandle: handle})
}

func (h *HCI) handleDisconnectionComplete(b []byte) error {
	e := evt.DisconnectionComplete(b)
	status, err := e.StatusWErr()
	if err != nil {
		return errors.Wrap(err, "disconnection complete")
	}
	if status != 0 {
		h.log.Warnf("disconnection failed: %v", ErrCommand(status))
		return nil
	}
	handle := e.ConnectionHandle()
	reason := e.Reason()
	h.log.Debugf("disconnection complete 0x%04x: %v", handle, ErrCommand(reason))

	h.cleanupHandle(handle)
	h.flushAcl()
	h.call(func() { h.handler.OnDisconnComplete(handle, reason) })
	return nil
}

func (h *HCI) handleEncryptionChange(b []byte) error {
	e := evt.EncryptionChange(b)
	enabled, err := e.EncryptionEnabledWErr()
	if err != nil {
		return errors.Wrap(err, "encryption change")
	}
	status, handle := e.Status(), e.ConnectionHandle()
	if status != 0 {
		h.log.Warnf("encryption change 0x%04x: %v", handle, ErrCommand(status))
	}
	encrypted := status == 0 && enabled != 0
	h.call(func() { h.handler.OnEncryptChange(handle, encrypted) })
	return nil
}

func (h *HCI) handleNumberOfCompletedPackets(b []byte) error {
	e := evt.NumberOfCompletedPackets(b)
	nh, err := e.NumberOfHandlesWErr()
	if err != nil {
		return errors.Wrap(err, "completed packets")
	}
	for i := 0; i < int(nh); i++ {
		handle, err := e.ConnectionHandleWErr(i)
		if err != nil {
			return errors.Wrap(err, "completed packets")
		}
		n, err := e.HCNumOfCompletedPacketsWErr(i)
		if err != nil {
			return errors.Wrap(err, "completed packets")
		}

		p, ok := h.aclPending[handle]
		if !ok {
			continue
		}
		p -= int(n)
		if p < 0 {
			p = 0
		}
		h.aclPending[handle] = p
	}
	h.flushAcl()
	return nil
}
