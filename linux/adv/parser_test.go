package adv

import (
	"bytes"
	"fmt"
	"reflect"
	"testing"

	"github.com/pkg/errors"
	ble "github.com/rigado/blecentral"
)

type testPdu struct {
	b []byte
}

func (t *testPdu) add(recTyp byte, recBytes []byte) {
	lb := byte(len(recBytes) + 1)
	t.b = append(t.b, lb, recTyp)
	t.b = append(t.b, recBytes...)
}

func (t *testPdu) bytes() []byte {
	return t.b
}

func parse(pdu []byte) (*ble.Advertisement, error) {
	a := ble.NewAdvertisement()
	return a, Merge(a, pdu)
}

func uuidsFor(typ byte, a *ble.Advertisement) []string {
	switch typ {
	case types.sol16, types.sol32, types.sol128:
		return a.SolicitationUUIDs
	}
	return a.ServiceUUIDs
}

func testArrayBad(typ byte, t *testing.T) error {
	dec, ok := pduDecodeMap[typ]
	if !ok || dec.arrayElementSz == 0 {
		t.Fatalf("unsupported type")
	}

	//len == 0
	p := testPdu{}
	p.add(typ, []byte{})

	a, err := parse(p.bytes())
	if err != nil {
		return fmt.Errorf("len==0, unexpected error %v", err)
	}
	if len(uuidsFor(typ, a)) != 0 {
		return fmt.Errorf("len==0, uuids decoded")
	}

	//len % arraySz != 0
	p = testPdu{}
	b := []byte{}
	for i := 0; i < 2*dec.arrayElementSz; i++ {
		b = append(b, byte(i))
	}
	b = append(b, 0xbb) //appending extra byte here!
	p.add(typ, b)

	a, err = parse(p.bytes())
	if err != nil {
		return fmt.Errorf("len%%size != 0, unexpected error %v", err)
	}
	if len(uuidsFor(typ, a)) != 0 {
		return fmt.Errorf("len%%size != 0, uuids decoded")
	}

	// len < elementSz
	p = testPdu{}
	b = []byte{}
	for i := 0; i < (dec.arrayElementSz - 1); i++ { //-1 for error
		b = append(b, byte(i))
	}
	p.add(typ, b)
	p.add(types.namecomp, []byte("after"))

	a, err = parse(p.bytes())
	if err != nil {
		return fmt.Errorf("len<arrayElementSize, unexpected error %v", err)
	}
	if len(uuidsFor(typ, a)) != 0 {
		return fmt.Errorf("len<arrayElementSize, uuids decoded")
	}
	if a.LocalName != "after" {
		return fmt.Errorf("len<arrayElementSize, following record lost")
	}

	return nil
}

func testArrayGood(typ byte, t *testing.T) error {
	dec, ok := pduDecodeMap[typ]
	if !ok || dec.arrayElementSz == 0 {
		t.Fatalf("unsupported type")
	}

	for n := 1; n <= 3; n++ {
		p := testPdu{}
		b := []byte{}
		exp := []string{}
		for j := 0; j < n; j++ {
			e := make([]byte, dec.arrayElementSz)
			for i := range e {
				e[i] = byte(j*16 + i)
			}
			b = append(b, e...)
			exp = append(exp, UUIDString(e))
		}
		p.add(typ, b)

		a, err := parse(p.bytes())
		if err != nil {
			return fmt.Errorf("n %v: %v", n, err)
		}
		if !reflect.DeepEqual(uuidsFor(typ, a), exp) {
			return fmt.Errorf("n %v: got %v, want %v", n, uuidsFor(typ, a), exp)
		}
	}
	return nil
}

func TestArrays(t *testing.T) {
	for _, typ := range []byte{
		types.uuid16inc, types.uuid16comp,
		types.uuid32inc, types.uuid32comp,
		types.uuid128inc, types.uuid128comp,
		types.sol16, types.sol32, types.sol128,
	} {
		if err := testArrayGood(typ, t); err != nil {
			t.Fatalf("type 0x%02x good: %v", typ, err)
		}
		if err := testArrayBad(typ, t); err != nil {
			t.Fatalf("type 0x%02x bad: %v", typ, err)
		}
	}
}

func TestUUIDString(t *testing.T) {
	cases := []struct {
		in  []byte
		exp string
	}{
		{[]byte{0x0d, 0x18}, "180d"},
		{[]byte{0x01, 0x00}, "0001"},
		{[]byte{0x78, 0x56, 0x34, 0x12}, "12345678"},
		{[]byte{0x01, 0x00, 0x00, 0x00}, "00000001"},
		{
			[]byte{0xfb, 0x34, 0x9b, 0x5f, 0x80, 0x00, 0x00, 0x80, 0x00, 0x10, 0x00, 0x00, 0x0d, 0x18, 0x00, 0x00},
			"0000180d00001000800000805f9b34fb",
		},
	}
	for _, c := range cases {
		if got := UUIDString(c.in); got != c.exp {
			t.Fatalf("UUIDString(%x) = %v, want %v", c.in, got, c.exp)
		}
	}
}

func TestParseFields(t *testing.T) {
	p := testPdu{}
	p.add(types.flags, []byte{0x06})
	p.add(types.namecomp, []byte("my-name"))
	p.add(types.txpwr, []byte{0xf4})
	p.add(types.mfgdata, []byte{0x4c, 0x00, 0x01})
	p.add(types.svc16, []byte{0xaa, 0xfe, 0x10, 0x20})

	a, err := parse(p.bytes())
	if err != nil {
		t.Fatal(err)
	}
	if a.LocalName != "my-name" {
		t.Fatalf("name %q", a.LocalName)
	}
	if a.TxPowerLevel == nil || *a.TxPowerLevel != -12 {
		t.Fatalf("txpower %v", a.TxPowerLevel)
	}
	if !bytes.Equal(a.ManufacturerData, []byte{0x4c, 0x00, 0x01}) {
		t.Fatalf("mfg %x", a.ManufacturerData)
	}
	exp := []ble.ServiceData{{UUID: "feaa", Data: []byte{0x10, 0x20}}}
	if !reflect.DeepEqual(a.ServiceData, exp) {
		t.Fatalf("service data %+v", a.ServiceData)
	}
}

func TestParseEmpty(t *testing.T) {
	a, err := parse(nil)
	if err != nil {
		t.Fatal(err)
	}
	if !a.IsEmpty() {
		t.Fatalf("expected empty advertisement, got %+v", a)
	}
}

func TestMalformedKeepsEarlierRecords(t *testing.T) {
	p := testPdu{}
	p.add(types.namecomp, []byte("ok"))
	b := append(p.bytes(), 0x05, types.mfgdata, 0x01) //claims 4 payload bytes, has 1

	a, err := parse(b)
	if errors.Cause(err) != ErrMalformed {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
	if a.LocalName != "ok" {
		t.Fatalf("name %q", a.LocalName)
	}
	if a.ManufacturerData != nil {
		t.Fatalf("mfg %x", a.ManufacturerData)
	}
}

func TestZeroLengthStops(t *testing.T) {
	p := testPdu{}
	p.add(types.namecomp, []byte("first"))
	b := append(p.bytes(), 0x00, 0x00)
	b = append(b, 0x03, types.namecomp, 'x', 'y')

	a, err := parse(b)
	if errors.Cause(err) != ErrMalformed {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
	if a.LocalName != "first" {
		t.Fatalf("name %q", a.LocalName)
	}
}

func TestTrailingByteIgnored(t *testing.T) {
	p := testPdu{}
	p.add(types.namecomp, []byte("n"))
	b := append(p.bytes(), 0x02)

	a, err := parse(b)
	if err != nil {
		t.Fatal(err)
	}
	if a.LocalName != "n" {
		t.Fatalf("name %q", a.LocalName)
	}
}

func TestManufacturerDataFirstWins(t *testing.T) {
	p := testPdu{}
	p.add(types.mfgdata, []byte{0x01})
	p.add(types.mfgdata, []byte{0x02})

	a, err := parse(p.bytes())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a.ManufacturerData, []byte{0x01}) {
		t.Fatalf("mfg %x", a.ManufacturerData)
	}

	//a later buffer replaces it
	p = testPdu{}
	p.add(types.mfgdata, []byte{0x03})
	if err := Merge(a, p.bytes()); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a.ManufacturerData, []byte{0x03}) {
		t.Fatalf("mfg %x", a.ManufacturerData)
	}
}

func TestMergeUpsertsAndDedups(t *testing.T) {
	a := ble.NewAdvertisement()

	p := testPdu{}
	p.add(types.uuid16comp, []byte{0x0d, 0x18, 0x0f, 0x18})
	p.add(types.svc16, []byte{0x0d, 0x18, 0x01})
	if err := Merge(a, p.bytes()); err != nil {
		t.Fatal(err)
	}

	p = testPdu{}
	p.add(types.uuid16inc, []byte{0x0d, 0x18})
	p.add(types.svc16, []byte{0x0d, 0x18, 0x02})
	p.add(types.svc16, []byte{0x0f, 0x18})
	if err := Merge(a, p.bytes()); err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(a.ServiceUUIDs, []string{"180d", "180f"}) {
		t.Fatalf("uuids %v", a.ServiceUUIDs)
	}
	exp := []ble.ServiceData{
		{UUID: "180d", Data: []byte{0x02}},
		{UUID: "180f", Data: []byte{}},
	}
	if !reflect.DeepEqual(a.ServiceData, exp) {
		t.Fatalf("service data %+v", a.ServiceData)
	}
}

func TestUndersizedRecordsSkipped(t *testing.T) {
	p := testPdu{}
	p.add(types.txpwr, []byte{})
	p.add(types.svc128, []byte{0x01, 0x02})
	p.add(types.namecomp, []byte("z"))

	a, err := parse(p.bytes())
	if err != nil {
		t.Fatal(err)
	}
	if a.TxPowerLevel != nil || len(a.ServiceData) != 0 {
		t.Fatalf("undersized records decoded: %+v", a)
	}
	if a.LocalName != "z" {
		t.Fatalf("name %q", a.LocalName)
	}
}

func TestPacketRoundTrip(t *testing.T) {
	p, err := NewPacket(
		Flags(0x06),
		CompleteName("dev"),
		AllUUID16(0x180d),
		ServiceData16(0xfeaa, []byte{0x00}),
		TxPower(-4),
		ManufacturerData(0x0059, []byte{0x01, 0x02}),
	)
	if err != nil {
		t.Fatal(err)
	}

	a, err := parse(p.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if a.LocalName != "dev" || !reflect.DeepEqual(a.ServiceUUIDs, []string{"180d"}) {
		t.Fatalf("unexpected %+v", a)
	}
	if len(a.ServiceData) != 1 || a.ServiceData[0].UUID != "feaa" {
		t.Fatalf("service data %+v", a.ServiceData)
	}
	if a.TxPowerLevel == nil || *a.TxPowerLevel != -4 {
		t.Fatalf("tx power %v", a.TxPowerLevel)
	}
	if !bytes.Equal(a.ManufacturerData, []byte{0x59, 0x00, 0x01, 0x02}) {
		t.Fatalf("manufacturer data % x", a.ManufacturerData)
	}
}

func TestPacketUUID128(t *testing.T) {
	u := []byte{0x6e, 0x40, 0x00, 0x01, 0xb5, 0xa3, 0xf3, 0x93, 0xe0, 0xa9, 0xe5, 0x0e, 0x24, 0xdc, 0xca, 0x9e}
	p, err := NewPacket(AllUUID128(u))
	if err != nil {
		t.Fatal(err)
	}
	a, err := parse(p.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if exp := []string{"6e400001b5a3f393e0a9e50e24dcca9e"}; !reflect.DeepEqual(a.ServiceUUIDs, exp) {
		t.Fatalf("uuids %v, want %v", a.ServiceUUIDs, exp)
	}
}

func TestPacketNotFit(t *testing.T) {
	_, err := NewPacket(CompleteName("0123456789012345678901234567890"))
	if errors.Cause(err) != ErrNotFit {
		t.Fatalf("expected ErrNotFit, got %v", err)
	}

	_, err = NewPacket(AllUUID128([]byte{0x01}))
	if err != ErrInvalid {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}
