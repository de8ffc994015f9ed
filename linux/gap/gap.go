// Package gap follows the scan lifecycle of the controller and merges
// advertising reports into per-address discovery records.
package gap

import (
	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
	ble "github.com/rigado/blecentral"
	"github.com/rigado/blecentral/linux/adv"
)

// DefaultMaxDiscoveries bounds the discovery table.
const DefaultMaxDiscoveries = 4096

// Default scan interval and window, 0.625 ms units.
const (
	DefaultScanInterval = 0x0010
	DefaultScanWindow   = 0x0010
)

// Legacy advertising report event types [Vol 2, Part E, 7.7.65.2]
const (
	EvtTypAdvInd        = 0x00
	EvtTypAdvDirectInd  = 0x01
	EvtTypAdvScanInd    = 0x02
	EvtTypAdvNonconnInd = 0x03
	EvtTypScanRsp       = 0x04
	// scan response to an ADV_SCAN_IND, only from extended reports
	EvtTypScanRspScannable = 0x06
)

// ScanState is the state of the scan lifecycle.
type ScanState int

const (
	ScanNull ScanState = iota
	ScanStarting
	ScanStarted
	ScanStopping
	ScanStopped
)

var scanStateNames = map[ScanState]string{
	ScanNull:     "null",
	ScanStarting: "starting",
	ScanStarted:  "started",
	ScanStopping: "stopping",
	ScanStopped:  "stopped",
}

func (s ScanState) String() string { return scanStateNames[s] }

// Controller is the part of the HCI the engine drives.
type Controller interface {
	SetScanEnabled(enable, filterDuplicates bool) error
	SetScanParameters(interval, window uint16) error
}

// Listener receives the engine's events.
type Listener interface {
	OnScanStart(filterDuplicates bool)
	OnScanStop()
	OnDiscover(r Record)
}

// Record is what is known about one advertiser.
type Record struct {
	Address         string
	AddressType     ble.AddrType
	Advertisement   *ble.Advertisement
	RSSI            int8
	Connectable     bool
	Scannable       bool
	Count           int
	HasScanResponse bool
}

// Config of an engine.
type Config struct {
	// MaxDiscoveries bounds the discovery table, DefaultMaxDiscoveries when zero.
	MaxDiscoveries int
	// ReportAll emits every report instead of waiting for scan responses.
	ReportAll bool
	// Interval and Window of the scans started, the defaults when zero.
	Interval uint16
	Window   uint16
}

// GAP is the scan engine. It is not safe for concurrent use; the owner
// serializes calls.
type GAP struct {
	log      ble.Logger
	ctrl     Controller
	listener Listener

	state            ScanState
	filterDuplicates bool
	interval         uint16
	window           uint16

	reportAll   bool
	discoveries *lru.Cache
}

// New returns an idle engine.
func New(ctrl Controller, l Listener, c Config) (*GAP, error) {
	size := c.MaxDiscoveries
	if size == 0 {
		size = DefaultMaxDiscoveries
	}
	d, err := lru.New(size)
	if err != nil {
		return nil, errors.Wrap(err, "can't create discovery table")
	}
	if c.Interval == 0 {
		c.Interval = DefaultScanInterval
	}
	if c.Window == 0 {
		c.Window = DefaultScanWindow
	}

	return &GAP{
		log:         ble.PkgLogger("gap"),
		ctrl:        ctrl,
		listener:    l,
		interval:    c.Interval,
		window:      c.Window,
		reportAll:   c.ReportAll,
		discoveries: d,
	}, nil
}

// State returns the scan state.
func (g *GAP) State() ScanState {
	return g.state
}

// Scanning reports whether a scan is starting or running.
func (g *GAP) Scanning() bool {
	return g.state == ScanStarting || g.state == ScanStarted
}

// SetScanParameters sets the interval and window used from now on.
func (g *GAP) SetScanParameters(interval, window uint16) error {
	g.interval, g.window = interval, window
	return g.ctrl.SetScanParameters(interval, window)
}

// StartScanning (re)starts scanning. Starting with the filter already in
// effect only re-emits scan start.
func (g *GAP) StartScanning(allowDuplicates bool) error {
	filter := !allowDuplicates
	if g.state == ScanStarted && filter == g.filterDuplicates {
		g.listener.OnScanStart(filter)
		return nil
	}

	g.discoveries.Purge()
	g.state = ScanStarting
	g.filterDuplicates = filter

	if err := g.ctrl.SetScanEnabled(false, true); err != nil {
		return err
	}
	if err := g.ctrl.SetScanParameters(g.interval, g.window); err != nil {
		return err
	}
	return g.ctrl.SetScanEnabled(true, filter)
}

// StopScanning stops scanning.
func (g *GAP) StopScanning() error {
	g.state = ScanStopping
	return g.ctrl.SetScanEnabled(false, true)
}

// OnScanEnableSet follows the completion of a scan enable command.
func (g *GAP) OnScanEnableSet(status uint8, enable, filterDuplicates bool) {
	if status != 0 {
		return
	}

	switch {
	case enable && g.state == ScanStarting:
		g.state = ScanStarted
		g.filterDuplicates = filterDuplicates
		g.listener.OnScanStart(filterDuplicates)
	case !enable && g.state == ScanStopping:
		g.state = ScanStopped
		g.listener.OnScanStop()
	default:
		// includes the disable half of a start
		g.log.Debugf("scan enable %v ignored in state %v", enable, g.state)
	}
}

// OnScanEnableSetCmd follows a scan enable command issued by another
// process on the raw channel.
func (g *GAP) OnScanEnableSetCmd(enable, filterDuplicates bool) {
	switch g.state {
	case ScanStarting, ScanStarted:
		if !enable {
			g.state = ScanStopped
			g.listener.OnScanStop()
		} else if filterDuplicates != g.filterDuplicates {
			g.filterDuplicates = filterDuplicates
			g.listener.OnScanStart(filterDuplicates)
		}
	case ScanStopping, ScanStopped:
		if enable {
			g.state = ScanStarted
			g.filterDuplicates = filterDuplicates
			g.listener.OnScanStart(filterDuplicates)
		}
	}
}

// Reset forgets the scan after the controller lost power. A running scan
// is reported stopped.
func (g *GAP) Reset() {
	if g.Scanning() {
		g.listener.OnScanStop()
	}
	g.state = ScanNull
}

// AddConnected records a peripheral connected without being scanned. A
// known record is left as is.
func (g *GAP) AddConnected(address string, addressType ble.AddrType) {
	if g.discoveries.Contains(address) {
		return
	}
	g.discoveries.Add(address, &Record{
		Address:       address,
		AddressType:   addressType,
		Advertisement: ble.NewAdvertisement(),
		Connectable:   true,
	})
}

// Discovery returns a copy of the record of address.
func (g *GAP) Discovery(address string) (Record, bool) {
	v, ok := g.discoveries.Peek(address)
	if !ok {
		return Record{}, false
	}
	r := *v.(*Record)
	r.Advertisement = r.Advertisement.Clone()
	return r, true
}

// OnAdvertisingReport merges one report into the discovery record of
// address and emits discover when the record is ready.
func (g *GAP) OnAdvertisingReport(typ uint8, address string, addressType ble.AddrType, eir []byte, rssi int8) {
	var r *Record
	if v, ok := g.discoveries.Get(address); ok {
		r = v.(*Record)
	}
	prior := r != nil
	if !prior {
		r = &Record{Address: address, Advertisement: ble.NewAdvertisement()}
	}
	r.Count++

	scanResponse := typ == EvtTypScanRsp || typ == EvtTypScanRspScannable
	if scanResponse {
		r.HasScanResponse = true
	} else {
		r.Advertisement.ServiceData = []ble.ServiceData{}
	}

	if err := adv.Merge(r.Advertisement, eir); err != nil {
		g.log.Debugf("%s: %v", address, err)
	}

	switch {
	case !scanResponse:
		r.Connectable = typ == EvtTypAdvInd || typ == EvtTypAdvDirectInd
		r.Scannable = typ == EvtTypAdvInd || typ == EvtTypAdvScanInd
	case !prior:
		r.Connectable = typ == EvtTypScanRsp
		r.Scannable = true
	}
	r.AddressType = addressType
	r.RSSI = rssi

	g.discoveries.Add(address, r)

	if scanResponse || !r.Connectable || (r.Count > 1 && !r.HasScanResponse) || g.reportAll {
		out := *r
		out.Advertisement = r.Advertisement.Clone()
		g.listener.OnDiscover(out)
	}
}
