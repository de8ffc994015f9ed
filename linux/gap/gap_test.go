package gap

import (
	"bytes"
	"fmt"
	"testing"

	ble "github.com/rigado/blecentral"
	"github.com/rigado/blecentral/linux/adv"
)

type scanCmd struct {
	enable, filter bool
}

type fakeController struct {
	cmds   []scanCmd
	params [][2]uint16
}

func (c *fakeController) SetScanEnabled(enable, filterDuplicates bool) error {
	c.cmds = append(c.cmds, scanCmd{enable, filterDuplicates})
	return nil
}

func (c *fakeController) SetScanParameters(interval, window uint16) error {
	c.params = append(c.params, [2]uint16{interval, window})
	return nil
}

type fakeListener struct {
	starts    []bool
	stops     int
	discovers []Record
}

func (l *fakeListener) OnScanStart(filterDuplicates bool) { l.starts = append(l.starts, filterDuplicates) }
func (l *fakeListener) OnScanStop()                       { l.stops++ }
func (l *fakeListener) OnDiscover(r Record)               { l.discovers = append(l.discovers, r) }

func newTestGAP(t *testing.T, c Config) (*GAP, *fakeController, *fakeListener) {
	ctrl := &fakeController{}
	l := &fakeListener{}
	g, err := New(ctrl, l, c)
	if err != nil {
		t.Fatal(err)
	}
	return g, ctrl, l
}

func TestStartScanning(t *testing.T) {
	g, ctrl, l := newTestGAP(t, Config{})

	if err := g.StartScanning(true); err != nil {
		t.Fatal(err)
	}
	if g.State() != ScanStarting {
		t.Fatalf("state %v", g.State())
	}
	exp := []scanCmd{{false, true}, {true, false}}
	if fmt.Sprint(ctrl.cmds) != fmt.Sprint(exp) {
		t.Fatalf("commands %v, want %v", ctrl.cmds, exp)
	}
	if len(ctrl.params) != 1 || ctrl.params[0] != [2]uint16{DefaultScanInterval, DefaultScanWindow} {
		t.Fatalf("params %v", ctrl.params)
	}

	// the disable half changes nothing
	g.OnScanEnableSet(0, false, true)
	if g.State() != ScanStarting || len(l.starts) != 0 {
		t.Fatalf("state %v, starts %v", g.State(), l.starts)
	}

	g.OnScanEnableSet(0, true, false)
	if g.State() != ScanStarted || len(l.starts) != 1 || l.starts[0] {
		t.Fatalf("state %v, starts %v", g.State(), l.starts)
	}

	// same filter: re-emitted without controller traffic
	g.StartScanning(true)
	if len(ctrl.cmds) != 2 || len(l.starts) != 2 {
		t.Fatalf("commands %v, starts %v", ctrl.cmds, l.starts)
	}

	// changed filter restarts
	g.StartScanning(false)
	if len(ctrl.cmds) != 4 || g.State() != ScanStarting {
		t.Fatalf("commands %v, state %v", ctrl.cmds, g.State())
	}
}

func TestStopScanning(t *testing.T) {
	g, ctrl, l := newTestGAP(t, Config{})
	g.StartScanning(false)
	g.OnScanEnableSet(0, true, true)

	g.StopScanning()
	if g.State() != ScanStopping || ctrl.cmds[len(ctrl.cmds)-1] != (scanCmd{false, true}) {
		t.Fatalf("state %v, commands %v", g.State(), ctrl.cmds)
	}

	// failed completion ignored
	g.OnScanEnableSet(0x0c, false, true)
	if l.stops != 0 {
		t.Fatalf("stops %d", l.stops)
	}

	g.OnScanEnableSet(0, false, true)
	if g.State() != ScanStopped || l.stops != 1 {
		t.Fatalf("state %v, stops %d", g.State(), l.stops)
	}

	// spurious
	g.OnScanEnableSet(0, true, true)
	if g.State() != ScanStopped || len(l.starts) != 1 {
		t.Fatalf("state %v, starts %v", g.State(), l.starts)
	}
}

func TestScanParameters(t *testing.T) {
	g, ctrl, _ := newTestGAP(t, Config{})
	g.SetScanParameters(0x0060, 0x0030)
	g.StartScanning(false)
	if len(ctrl.params) != 2 || ctrl.params[1] != [2]uint16{0x0060, 0x0030} {
		t.Fatalf("params %v", ctrl.params)
	}
}

func TestConfiguredScanParameters(t *testing.T) {
	g, ctrl, _ := newTestGAP(t, Config{Interval: 0x0100, Window: 0x0050})
	g.StartScanning(false)
	if len(ctrl.params) != 1 || ctrl.params[0] != [2]uint16{0x0100, 0x0050} {
		t.Fatalf("params %v", ctrl.params)
	}
}

func TestAddConnected(t *testing.T) {
	g, _, l := newTestGAP(t, Config{ReportAll: true})

	g.AddConnected(testAddr, ble.AddrTypeRandom)
	r, ok := g.Discovery(testAddr)
	if !ok || !r.Connectable || r.Count != 0 || r.AddressType != ble.AddrTypeRandom || !r.Advertisement.IsEmpty() {
		t.Fatalf("record %+v %v", r, ok)
	}
	if len(l.discovers) != 0 {
		t.Fatalf("discovers %d", len(l.discovers))
	}

	// a scanned record is kept
	g.OnAdvertisingReport(EvtTypAdvInd, "01:02:03:04:05:06", ble.AddrTypePublic, eir(t, adv.CompleteName("x")), -50)
	g.AddConnected("01:02:03:04:05:06", ble.AddrTypeRandom)
	if r, _ := g.Discovery("01:02:03:04:05:06"); r.Count != 1 || r.AddressType != ble.AddrTypePublic || r.Advertisement.LocalName != "x" {
		t.Fatalf("record %+v", r)
	}
}

func TestReset(t *testing.T) {
	g, _, l := newTestGAP(t, Config{})
	g.Reset()
	if l.stops != 0 || g.State() != ScanNull {
		t.Fatalf("idle reset: stops %d, state %v", l.stops, g.State())
	}

	g.StartScanning(false)
	g.OnScanEnableSet(0, true, true)
	g.Reset()
	if l.stops != 1 || g.State() != ScanNull {
		t.Fatalf("stops %d, state %v", l.stops, g.State())
	}
}

func TestExternalScanCommands(t *testing.T) {
	g, _, l := newTestGAP(t, Config{})
	g.StartScanning(false)
	g.OnScanEnableSet(0, true, true)

	g.OnScanEnableSetCmd(true, false)
	if len(l.starts) != 2 || l.starts[1] {
		t.Fatalf("starts %v", l.starts)
	}
	g.OnScanEnableSetCmd(true, false)
	if len(l.starts) != 2 {
		t.Fatalf("starts %v", l.starts)
	}

	g.OnScanEnableSetCmd(false, false)
	if l.stops != 1 || g.State() != ScanStopped {
		t.Fatalf("stops %d, state %v", l.stops, g.State())
	}

	g.OnScanEnableSetCmd(true, true)
	if len(l.starts) != 3 || !l.starts[2] || g.State() != ScanStarted {
		t.Fatalf("starts %v, state %v", l.starts, g.State())
	}

	// nothing to follow before any scan
	g, _, l = newTestGAP(t, Config{})
	g.OnScanEnableSetCmd(true, true)
	if len(l.starts) != 0 || g.State() != ScanNull {
		t.Fatalf("starts %v, state %v", l.starts, g.State())
	}
}

const testAddr = "aa:bb:cc:dd:ee:ff"

func eir(t *testing.T, fields ...adv.Field) []byte {
	t.Helper()
	p, err := adv.NewPacket(fields...)
	if err != nil {
		t.Fatal(err)
	}
	return p.Bytes()
}

func TestLocalName(t *testing.T) {
	g, _, l := newTestGAP(t, Config{})
	g.OnAdvertisingReport(EvtTypScanRsp, testAddr, ble.AddrTypeRandom, eir(t, adv.CompleteName("my-name")), -60)

	if len(l.discovers) != 1 {
		t.Fatalf("discovers %d", len(l.discovers))
	}
	r := l.discovers[0]
	if r.Advertisement.LocalName != "my-name" || r.Address != testAddr || r.AddressType != ble.AddrTypeRandom || r.RSSI != -60 {
		t.Fatalf("got %+v", r)
	}
}

func TestEmission(t *testing.T) {
	tests := []struct {
		name      string
		types     []uint8
		reportAll bool
		emitted   []bool
	}{
		{"connectable waits for a second report", []uint8{EvtTypAdvInd, EvtTypAdvInd}, false, []bool{false, true}},
		{"scan response emits", []uint8{EvtTypAdvInd, EvtTypScanRsp}, false, []bool{false, true}},
		{"after a scan response only responses emit", []uint8{EvtTypAdvInd, EvtTypScanRsp, EvtTypAdvInd}, false, []bool{false, true, false}},
		{"non connectable emits", []uint8{EvtTypAdvNonconnInd}, false, []bool{true}},
		{"scannable emits", []uint8{EvtTypAdvScanInd}, false, []bool{true}},
		{"extended scan response emits", []uint8{EvtTypAdvScanInd, EvtTypScanRspScannable}, false, []bool{true, true}},
		{"report all", []uint8{EvtTypAdvInd}, true, []bool{true}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			g, _, l := newTestGAP(t, Config{ReportAll: tc.reportAll})
			for i, typ := range tc.types {
				n := len(l.discovers)
				g.OnAdvertisingReport(typ, testAddr, ble.AddrTypePublic, nil, -50)
				if got := len(l.discovers) > n; got != tc.emitted[i] {
					t.Fatalf("report %d (type 0x%02x): emitted %v, want %v", i, typ, got, tc.emitted[i])
				}
			}
		})
	}
}

func TestCountAndFlags(t *testing.T) {
	g, _, l := newTestGAP(t, Config{ReportAll: true})

	g.OnAdvertisingReport(EvtTypAdvInd, testAddr, ble.AddrTypePublic, nil, -50)
	g.OnAdvertisingReport(EvtTypScanRsp, testAddr, ble.AddrTypePublic, nil, -51)
	g.OnAdvertisingReport(EvtTypAdvNonconnInd, testAddr, ble.AddrTypePublic, nil, -52)

	for i, r := range l.discovers {
		if r.Count != i+1 {
			t.Fatalf("report %d: count %d", i, r.Count)
		}
	}
	if r := l.discovers[1]; !r.Connectable || !r.Scannable || !r.HasScanResponse {
		t.Fatalf("scan response changed flags: %+v", r)
	}
	if r := l.discovers[2]; r.Connectable || r.Scannable || !r.HasScanResponse {
		t.Fatalf("non connectable report: %+v", r)
	}
}

func TestServiceDataReset(t *testing.T) {
	g, _, l := newTestGAP(t, Config{ReportAll: true})
	sd := eir(t, adv.ServiceData16(0x180f, []byte{0x01, 0x02}))
	uuids := eir(t, adv.AllUUID16(0x180d))

	g.OnAdvertisingReport(EvtTypAdvInd, testAddr, ble.AddrTypePublic, sd, -50)
	g.OnAdvertisingReport(EvtTypScanRsp, testAddr, ble.AddrTypePublic, uuids, -50)
	if a := l.discovers[1].Advertisement; len(a.ServiceData) != 1 || len(a.ServiceUUIDs) != 1 {
		t.Fatalf("scan response cleared data: %+v", a)
	}

	g.OnAdvertisingReport(EvtTypAdvInd, testAddr, ble.AddrTypePublic, uuids, -50)
	a := l.discovers[2].Advertisement
	if len(a.ServiceData) != 0 {
		t.Fatalf("advertisement kept service data: %+v", a.ServiceData)
	}
	if len(a.ServiceUUIDs) != 1 || a.ServiceUUIDs[0] != "180d" {
		t.Fatalf("service uuids %v", a.ServiceUUIDs)
	}

	g.OnAdvertisingReport(EvtTypAdvInd, testAddr, ble.AddrTypePublic, sd, -50)
	a = l.discovers[3].Advertisement
	if len(a.ServiceData) != 1 || a.ServiceData[0].UUID != "180f" || !bytes.Equal(a.ServiceData[0].Data, []byte{0x01, 0x02}) {
		t.Fatalf("service data %+v", a.ServiceData)
	}
}

func TestEmittedRecordIsACopy(t *testing.T) {
	g, _, l := newTestGAP(t, Config{ReportAll: true})
	g.OnAdvertisingReport(EvtTypAdvInd, testAddr, ble.AddrTypePublic, eir(t, adv.CompleteName("my-name")), -50)
	l.discovers[0].Advertisement.LocalName = "changed"

	r, ok := g.Discovery(testAddr)
	if !ok || r.Advertisement.LocalName != "my-name" {
		t.Fatalf("record %+v", r)
	}
}

func TestMalformedEIR(t *testing.T) {
	g, _, l := newTestGAP(t, Config{ReportAll: true})
	g.OnAdvertisingReport(EvtTypAdvInd, testAddr, ble.AddrTypePublic, []byte{0x00, 0x09, 'x'}, -50)
	g.OnAdvertisingReport(EvtTypAdvInd, testAddr, ble.AddrTypePublic, []byte{0x09, 0x09, 'x'}, -50)

	if len(l.discovers) != 2 {
		t.Fatalf("discovers %d", len(l.discovers))
	}
	for _, r := range l.discovers {
		if !r.Advertisement.IsEmpty() {
			t.Fatalf("advertisement %+v", r.Advertisement)
		}
	}
}

func TestRestartClearsDiscoveries(t *testing.T) {
	g, _, _ := newTestGAP(t, Config{})
	g.OnAdvertisingReport(EvtTypAdvInd, testAddr, ble.AddrTypePublic, nil, -50)
	if _, ok := g.Discovery(testAddr); !ok {
		t.Fatal("record missing")
	}
	g.StartScanning(false)
	if _, ok := g.Discovery(testAddr); ok {
		t.Fatal("record survived a restart")
	}
}

func TestDiscoveryTableBounded(t *testing.T) {
	g, _, _ := newTestGAP(t, Config{MaxDiscoveries: 2})
	for i := 0; i < 3; i++ {
		g.OnAdvertisingReport(EvtTypAdvInd, fmt.Sprintf("aa:bb:cc:dd:ee:%02x", i), ble.AddrTypePublic, nil, -50)
	}
	if _, ok := g.Discovery("aa:bb:cc:dd:ee:00"); ok {
		t.Fatal("oldest record not evicted")
	}
	if _, ok := g.Discovery("aa:bb:cc:dd:ee:02"); !ok {
		t.Fatal("newest record missing")
	}
}
