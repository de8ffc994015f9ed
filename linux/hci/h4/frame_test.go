package h4

import (
	"bytes"
	"testing"
)

func collect(c chan []byte) [][]byte {
	var out [][]byte
	for {
		select {
		case b := <-c:
			out = append(out, b)
		default:
			return out
		}
	}
}

func TestFrameSplitEvent(t *testing.T) {
	c := make(chan []byte, 8)
	f := newFrame(c)

	f.Assemble([]byte{0x04, 0x0e})
	f.Assemble([]byte{0x04, 0x01, 0x03})
	f.Assemble([]byte{0x0c, 0x00})

	got := collect(c)
	if len(got) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(got))
	}
	exp := []byte{0x04, 0x0e, 0x04, 0x01, 0x03, 0x0c, 0x00}
	if !bytes.Equal(got[0], exp) {
		t.Fatalf("got % X, want % X", got[0], exp)
	}
}

func TestFrameTwoPacketsOneRead(t *testing.T) {
	c := make(chan []byte, 8)
	f := newFrame(c)

	evt := []byte{0x04, 0x13, 0x05, 0x01, 0x40, 0x00, 0x01, 0x00}
	acl := []byte{0x02, 0x40, 0x20, 0x05, 0x00, 0x01, 0x00, 0x04, 0x00, 0x1b}
	f.Assemble(append(append([]byte{}, evt...), acl...))

	got := collect(c)
	if len(got) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(got))
	}
	if !bytes.Equal(got[0], evt) || !bytes.Equal(got[1], acl) {
		t.Fatalf("unexpected frames % X / % X", got[0], got[1])
	}
}

func TestFrameSkipsGarbage(t *testing.T) {
	c := make(chan []byte, 8)
	f := newFrame(c)

	f.Assemble([]byte{0x00, 0xff, 0x04, 0x05, 0x04, 0x00, 0x40, 0x00, 0x13})

	got := collect(c)
	if len(got) != 1 || got[0][0] != 0x04 || len(got[0]) != 7 {
		t.Fatalf("unexpected frames %v", got)
	}
}
