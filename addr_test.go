package ble

import (
	"bytes"
	"testing"

	"github.com/pkg/errors"
)

func TestParseMAC(t *testing.T) {
	tests := []struct {
		in  string
		exp [6]byte
		ok  bool
	}{
		{"11:22:33:44:55:66", [6]byte{0x11, 0x22, 0x33, 0x44, 0x55, 0x66}, true},
		{"AA:bb:CC:dd:EE:ff", [6]byte{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}, true},
		{"11:22:33:44:55", [6]byte{}, false},
		{"11-22-33-44-55-66", [6]byte{}, false},
		{"11:22:33:44:55:6", [6]byte{}, false},
		{"11:22:33:44:55:gg", [6]byte{}, false},
		{"", [6]byte{}, false},
	}

	for _, tc := range tests {
		got, err := ParseMAC(tc.in)
		if !tc.ok {
			if errors.Cause(err) != ErrInvalidAddress {
				t.Errorf("%q: expected invalid address, got %v", tc.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("%q: %v", tc.in, err)
			continue
		}
		if got != tc.exp {
			t.Errorf("%q: got % X, want % X", tc.in, got, tc.exp)
		}
	}
}

func TestWireOrder(t *testing.T) {
	w, err := MACToWire("11:22:33:44:55:66")
	if err != nil {
		t.Fatal(err)
	}
	if exp := []byte{0x66, 0x55, 0x44, 0x33, 0x22, 0x11}; !bytes.Equal(w, exp) {
		t.Fatalf("got % X, want % X", w, exp)
	}
	if s := MACFromWire(w); s != "11:22:33:44:55:66" {
		t.Fatalf("got %s", s)
	}
	if s := MACFromWire(w[:5]); s != "" {
		t.Fatalf("short input gave %q", s)
	}
}

func TestIdentifier(t *testing.T) {
	if id := Identifier("C0:FF:EE:00:00:01"); id != "c0ffee000001" {
		t.Fatalf("got %s", id)
	}

	a, err := AddressFromIdentifier("C0FFEE000001")
	if err != nil {
		t.Fatal(err)
	}
	if a != "c0:ff:ee:00:00:01" {
		t.Fatalf("got %s", a)
	}

	for _, id := range []string{"c0ffee", "c0ffee00000z", "c0:ff:ee:00:00:01"} {
		if _, err := AddressFromIdentifier(id); errors.Cause(err) != ErrInvalidAddress {
			t.Errorf("%q: got %v", id, err)
		}
	}
}

func TestAddrType(t *testing.T) {
	for _, tc := range []struct {
		in  string
		exp AddrType
	}{
		{"public", AddrTypePublic},
		{"Random", AddrTypeRandom},
	} {
		got, err := ParseAddrType(tc.in)
		if err != nil || got != tc.exp {
			t.Errorf("%q: got %v, %v", tc.in, got, err)
		}
	}
	if _, err := ParseAddrType("static"); err == nil {
		t.Error("static accepted")
	}
	if AddrTypeRandom.String() != "random" || AddrTypePublic.String() != "public" {
		t.Error("names")
	}
}

func TestNewAddr(t *testing.T) {
	a := NewAddr("AA:BB:CC:DD:EE:FF")
	if a.String() != "aa:bb:cc:dd:ee:ff" {
		t.Fatalf("got %s", a)
	}
	if !bytes.Equal(a.Bytes(), []byte{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}) {
		t.Fatalf("got % X", a.Bytes())
	}
	if NewAddr("bogus").Bytes() != nil {
		t.Fatal("malformed address has bytes")
	}
}
