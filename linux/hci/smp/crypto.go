package smp

import (
	"crypto/aes"
	"fmt"

	"github.com/aead/cmac"
	"github.com/rigado/blecentral/sliceops"
)

// All values are in wire order: least significant octet first. The AES
// primitives work most significant octet first, so inputs and outputs are
// reversed around them.

// aesCMAC is AES-CMAC with key over msg [Vol 3, Part H, 2.2.5].
func aesCMAC(key, msg []byte) ([]byte, error) {
	c, err := aes.NewCipher(sliceops.SwapBuf(key))
	if err != nil {
		return nil, err
	}

	mac, err := cmac.New(c)
	if err != nil {
		return nil, err
	}
	mac.Write(sliceops.SwapBuf(msg))

	return sliceops.SwapBuf(mac.Sum(nil)), nil
}

// e is the security function e [Vol 3, Part H, 2.2.1].
func e(key, plain []byte) ([]byte, error) {
	c, err := aes.NewCipher(sliceops.SwapBuf(key))
	if err != nil {
		return nil, err
	}

	out := make([]byte, 16)
	c.Encrypt(out, sliceops.SwapBuf(plain))
	return sliceops.SwapBuf(out), nil
}

// c1 is the legacy confirm value generation function [Vol 3, Part H, 2.2.3].
// preq and pres are the 7 octet pairing request and response commands as
// sent over the air; ia and ra are the initiator and responder addresses.
func c1(k, r, preq, pres []byte, iat, rat byte, ia, ra []byte) ([]byte, error) {
	switch {
	case len(k) != 16 || len(r) != 16:
		return nil, fmt.Errorf("c1: key/random length error")
	case len(preq) != 7 || len(pres) != 7:
		return nil, fmt.Errorf("c1: pairing command length error")
	case len(ia) != 6 || len(ra) != 6:
		return nil, fmt.Errorf("c1: address length error")
	}

	// p1 = pres || preq || rat' || iat'
	p1 := sliceops.Concat([]byte{iat, rat}, preq, pres)
	// p2 = padding || ia || ra
	p2 := sliceops.Concat(ra, ia, []byte{0, 0, 0, 0})

	t, err := e(k, sliceops.Xor(r, p1))
	if err != nil {
		return nil, err
	}
	return e(k, sliceops.Xor(t, p2))
}

// s1 is the legacy key generation function [Vol 3, Part H, 2.2.4].
func s1(k, r1, r2 []byte) ([]byte, error) {
	if len(k) != 16 || len(r1) != 16 || len(r2) != 16 {
		return nil, fmt.Errorf("s1: length error")
	}

	// r' = r1' || r2', the least significant 64 bits of each
	r := sliceops.Concat(r2[:8], r1[:8])
	return e(k, r)
}

// f4 is the LE Secure Connections confirm value generation function.
func f4(u, v, x []byte, z uint8) ([]byte, error) {
	if len(u) != 32 || len(v) != 32 || len(x) != 16 {
		return nil, fmt.Errorf("f4: length error")
	}

	m := sliceops.Concat([]byte{z}, v, u)
	return aesCMAC(x, m)
}

// f5 is the LE Secure Connections key generation function. It returns the
// MacKey and the LTK.
func f5(w, n1, n2, a1, a2 []byte) ([]byte, []byte, error) {
	switch {
	case len(w) != 32:
		return nil, nil, fmt.Errorf("f5: length error w")
	case len(n1) != 16:
		return nil, nil, fmt.Errorf("f5: length error n1")
	case len(n2) != 16:
		return nil, nil, fmt.Errorf("f5: length error n2")
	case len(a1) != 7:
		return nil, nil, fmt.Errorf("f5: length error a1")
	case len(a2) != 7:
		return nil, nil, fmt.Errorf("f5: length error a2")
	}

	btle := []byte{0x65, 0x6c, 0x74, 0x62}
	salt := []byte{0xbe, 0x83, 0x60, 0x5a, 0xdb, 0x0b, 0x37, 0x60,
		0x38, 0xa5, 0xf5, 0xaa, 0x91, 0x83, 0x88, 0x6c}
	length := []byte{0x00, 0x01}

	t, err := aesCMAC(salt, w)
	if err != nil {
		return nil, nil, err
	}

	m := sliceops.Concat(length, a2, a1, n2, n1, btle, []byte{0x00})
	macKey, err := aesCMAC(t, m)
	if err != nil {
		return nil, nil, err
	}

	// counter = 1 for the LTK
	m[52] = 0x01
	ltk, err := aesCMAC(t, m)
	if err != nil {
		return nil, nil, err
	}

	return macKey, ltk, nil
}

// f6 is the LE Secure Connections check value generation function.
func f6(w, n1, n2, r, ioCap, a1, a2 []byte) ([]byte, error) {
	if len(w) != 16 || len(n1) != 16 || len(n2) != 16 || len(r) != 16 || len(ioCap) != 3 || len(a1) != 7 || len(a2) != 7 {
		return nil, fmt.Errorf("f6: length error")
	}

	// f6(W, N1, N2, R, IOcap, A1, A2) = AES-CMAC W (N1 || N2 || R || IOcap || A1 || A2)
	m := sliceops.Concat(a2, a1, ioCap, r, n2, n1)
	return aesCMAC(w, m)
}
