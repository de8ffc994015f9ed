package smp

import (
	"bytes"
	"crypto/aes"
	"crypto/rand"
	"encoding/hex"
	"testing"

	"github.com/aead/cmac"
	"github.com/rigado/blecentral/sliceops"
)

// le decodes a most significant octet first hex string into wire order.
func le(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("bad hex %q: %v", s, err)
	}
	return sliceops.SwapBuf(b)
}

func TestAesCMAC(t *testing.T) {
	// RFC 4493, example 2
	key, _ := hex.DecodeString("2b7e151628aed2a6abf7158809cf4f3c")
	msg, _ := hex.DecodeString("6bc1bee22e409f96e93d7e117393172a")
	exp := "070a16b46b4d4144f79bdd9dd04a287c"

	c, err := aes.NewCipher(key)
	if err != nil {
		t.Fatal(err)
	}
	mac, err := cmac.New(c)
	if err != nil {
		t.Fatal(err)
	}
	mac.Write(msg)
	if got := hex.EncodeToString(mac.Sum(nil)); got != exp {
		t.Fatalf("cmac %s, want %s", got, exp)
	}

	// the same through the wire order wrapper
	got, err := aesCMAC(sliceops.SwapBuf(key), sliceops.SwapBuf(msg))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, le(t, exp)) {
		t.Fatalf("aesCMAC %x", got)
	}
}

func TestC1(t *testing.T) {
	// Core spec Vol 3, Part H, 2.2.3 sample data
	k := make([]byte, 16)
	r := le(t, "5783d52156ad6f0e6388274ec6702ee0")
	preq := le(t, "07071000000101")
	pres := le(t, "05000800000302")
	ia := le(t, "a1a2a3a4a5a6")
	ra := le(t, "b1b2b3b4b5b6")

	got, err := c1(k, r, preq, pres, 0x01, 0x00, ia, ra)
	if err != nil {
		t.Fatal(err)
	}
	if exp := le(t, "1e1e3fef878988ead2a74dc5bef13b86"); !bytes.Equal(got, exp) {
		t.Fatalf("c1 % X, want % X", got, exp)
	}

	if _, err := c1(k, r, preq[:6], pres, 0x01, 0x00, ia, ra); err == nil {
		t.Fatal("expected a length error")
	}
}

func TestS1(t *testing.T) {
	// Core spec Vol 3, Part H, 2.2.4 sample data
	k := make([]byte, 16)
	r1 := le(t, "000f0e0d0c0b0a091122334455667788")
	r2 := le(t, "010203040506070899aabbccddeeff00")

	got, err := s1(k, r1, r2)
	if err != nil {
		t.Fatal(err)
	}
	if exp := le(t, "9a1fe1f0e8b0f49b5b4216ae796da062"); !bytes.Equal(got, exp) {
		t.Fatalf("s1 % X, want % X", got, exp)
	}
}

func TestF4(t *testing.T) {
	u := le(t, "20b003d2f297be2c5e2c83a7e9f9a5b9eff49111acf4fddbcc0301480e359de6")
	v := le(t, "55188b3d32f6bb9a900afcfbeed4e72a59cb9ac2f19d7cfb6b4fdd49f47fc5fd")
	x := le(t, "d5cb8454d177733effffb2ec712baeab")

	got, err := f4(u, v, x, 0)
	if err != nil {
		t.Fatal(err)
	}
	if exp := le(t, "f2c916f107a9bd1cf1eda1bea974872d"); !bytes.Equal(got, exp) {
		t.Fatalf("f4 % X, want % X", got, exp)
	}
}

func TestF5(t *testing.T) {
	w := []byte{
		0x98, 0xa6, 0xbf, 0x73, 0xf3, 0x34, 0x8d, 0x86,
		0xf1, 0x66, 0xf8, 0xb4, 0x13, 0x6b, 0x79, 0x99,
		0x9b, 0x7d, 0x39, 0x0a, 0xa6, 0x10, 0x10, 0x34,
		0x05, 0xad, 0xc8, 0x57, 0xa3, 0x34, 0x02, 0xec}
	n1 := []byte{
		0xab, 0xae, 0x2b, 0x71, 0xec, 0xb2, 0xff, 0xff,
		0x3e, 0x73, 0x77, 0xd1, 0x54, 0x84, 0xcb, 0xd5}
	n2 := []byte{
		0xcf, 0xc4, 0x3d, 0xff, 0xf7, 0x83, 0x65, 0x21,
		0x6e, 0x5f, 0xa7, 0x25, 0xcc, 0xe7, 0xe8, 0xa6}
	a1 := []byte{0xce, 0xbf, 0x37, 0x37, 0x12, 0x56, 0x00}
	a2 := []byte{0xc1, 0xcf, 0x2d, 0x70, 0x13, 0xa7, 0x00}
	expLTK := []byte{
		0x38, 0x0a, 0x75, 0x94, 0xb5, 0x22, 0x05, 0x98,
		0x23, 0xcd, 0xd7, 0x69, 0x11, 0x79, 0x86, 0x69}
	expMacKey := []byte{
		0x20, 0x6e, 0x63, 0xce, 0x20, 0x6a, 0x3f, 0xfd,
		0x02, 0x4a, 0x08, 0xa1, 0x76, 0xf1, 0x65, 0x29}

	macKey, ltk, err := f5(w, n1, n2, a1, a2)
	if err != nil {
		t.Fatal("f5 calc failed:", err)
	}
	if !bytes.Equal(macKey, expMacKey) {
		t.Fatal("incorrect f5 macKey:", hex.EncodeToString(macKey))
	}
	if !bytes.Equal(ltk, expLTK) {
		t.Fatal("incorrect f5 ltk:", hex.EncodeToString(ltk))
	}

	if _, _, err := f5(w[:31], n1, n2, a1, a2); err == nil {
		t.Fatal("expected a length error")
	}
}

func TestF6(t *testing.T) {
	w := []byte{
		0x20, 0x6e, 0x63, 0xce, 0x20, 0x6a, 0x3f, 0xfd,
		0x02, 0x4a, 0x08, 0xa1, 0x76, 0xf1, 0x65, 0x29}
	n1 := []byte{
		0xab, 0xae, 0x2b, 0x71, 0xec, 0xb2, 0xff, 0xff,
		0x3e, 0x73, 0x77, 0xd1, 0x54, 0x84, 0xcb, 0xd5}
	n2 := []byte{
		0xcf, 0xc4, 0x3d, 0xff, 0xf7, 0x83, 0x65, 0x21,
		0x6e, 0x5f, 0xa7, 0x25, 0xcc, 0xe7, 0xe8, 0xa6}
	r := []byte{
		0xc8, 0x0f, 0x2d, 0x0c, 0xd2, 0x42, 0xda, 0x08,
		0x54, 0xbb, 0x53, 0xb4, 0x3b, 0x34, 0xa3, 0x12}
	ioCap := []byte{0x02, 0x01, 0x01}
	a1 := []byte{0xce, 0xbf, 0x37, 0x37, 0x12, 0x56, 0x00}
	a2 := []byte{0xc1, 0xcf, 0x2d, 0x70, 0x13, 0xa7, 0x00}
	exp := []byte{
		0x61, 0x8f, 0x95, 0xda, 0x09, 0x0b, 0x6c, 0xd2,
		0xc5, 0xe8, 0xd0, 0x9c, 0x98, 0x73, 0xc4, 0xe3}

	res, err := f6(w, n1, n2, r, ioCap, a1, a2)
	if err != nil {
		t.Fatal("f6 calc failed:", err)
	}
	if !bytes.Equal(res, exp) {
		t.Fatal("incorrect f6 output:", hex.EncodeToString(res))
	}
}

func TestKeys(t *testing.T) {
	k1, err := generateKeys(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	k2, err := generateKeys(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}

	dh1, err := generateSecret(k1.private, k2.public)
	if err != nil {
		t.Fatal(err)
	}
	dh2, err := generateSecret(k2.private, k1.public)
	if err != nil {
		t.Fatal(err)
	}
	if len(dh1) != 32 || !bytes.Equal(dh1, dh2) {
		t.Fatalf("shared secrets differ:\n% X\n% X", dh1, dh2)
	}

	xy := marshalPublicKeyXY(k1.public)
	pub, ok := unmarshalPublicKey(xy)
	if !ok {
		t.Fatal("can't unmarshal own public key")
	}
	if !bytes.Equal(marshalPublicKeyXY(pub), xy) {
		t.Fatal("public key round trip mismatch")
	}

	// a point off the curve
	bad := append([]byte{}, xy...)
	bad[0] ^= 0xff
	if _, ok := unmarshalPublicKey(bad); ok {
		t.Fatal("accepted a point off the curve")
	}
}
