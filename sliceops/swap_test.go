package sliceops

import (
	"bytes"
	"testing"
)

func TestSwapBuf(t *testing.T) {
	in := []byte{1, 2, 3, 4, 5}
	out := SwapBuf(in)
	if !bytes.Equal(out, []byte{5, 4, 3, 2, 1}) {
		t.Fatalf("unexpected %v", out)
	}
	if !bytes.Equal(in, []byte{1, 2, 3, 4, 5}) {
		t.Fatal("input modified")
	}
	if !bytes.Equal(SwapBuf(out), in) {
		t.Fatal("double swap is not identity")
	}
}

func TestXorConcat(t *testing.T) {
	x := Xor([]byte{0xff, 0x0f}, []byte{0x0f, 0x0f})
	if !bytes.Equal(x, []byte{0xf0, 0x00}) {
		t.Fatalf("xor %x", x)
	}
	c := Concat([]byte{1}, nil, []byte{2, 3})
	if !bytes.Equal(c, []byte{1, 2, 3}) {
		t.Fatalf("concat %v", c)
	}
}
