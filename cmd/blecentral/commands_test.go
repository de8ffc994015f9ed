package main

import (
	"bytes"
	"testing"

	ble "github.com/rigado/blecentral"
)

func testDiscovery() ble.DiscoverEvent {
	a := ble.NewAdvertisement()
	a.LocalName = "thermo"
	a.AddServiceUUID("180d")
	a.ManufacturerData = []byte{0x59, 0x00, 0x01}
	return ble.DiscoverEvent{
		ID:            "c0ffee000001",
		Address:       "c0:ff:ee:00:00:01",
		AddressType:   ble.AddrTypeRandom,
		Connectable:   true,
		Advertisement: a,
		RSSI:          -70,
	}
}

func TestPrintDiscovery(t *testing.T) {
	var buf bytes.Buffer
	printDiscovery(&buf, testDiscovery())

	exp := "c0:ff:ee:00:00:01 (random) rssi -70 [connectable] name \"thermo\" services 180d mfg 590001\n"
	if buf.String() != exp {
		t.Fatalf("got %q, want %q", buf.String(), exp)
	}
}

func TestPrintDiscoveryJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := printDiscoveryJSON(&buf, testDiscovery()); err != nil {
		t.Fatal(err)
	}

	var got discovery
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.ID != "c0ffee000001" || got.AddressType != "random" || !got.Connectable || got.RSSI != -70 {
		t.Fatalf("got %+v", got)
	}
	if got.Advertisement.LocalName != "thermo" || !bytes.Equal(got.Advertisement.ManufacturerData, []byte{0x59, 0x00, 0x01}) {
		t.Fatalf("advertisement %+v", got.Advertisement)
	}
	if bytes.Count(buf.Bytes(), []byte("\n")) != 1 {
		t.Fatalf("not one line: %q", buf.String())
	}
}

func TestReasonString(t *testing.T) {
	if s := reasonString(0x13); s != "Remote User Terminated Connection (0x13)" {
		t.Fatalf("got %q", s)
	}
}
