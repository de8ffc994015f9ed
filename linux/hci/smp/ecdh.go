package smp

import (
	"crypto"
	"crypto/elliptic"
	"io"

	"github.com/rigado/blecentral/sliceops"
	"github.com/wsddn/go-ecdh"
)

// keys is a P-256 key pair for LE Secure Connections.
type keys struct {
	public  crypto.PublicKey
	private crypto.PrivateKey
}

func generateKeys(rand io.Reader) (*keys, error) {
	var err error
	kp := keys{}
	e := ecdh.NewEllipticECDH(elliptic.P256())

	kp.private, kp.public, err = e.GenerateKey(rand)
	if err != nil {
		return nil, err
	}

	return &kp, nil
}

// unmarshalPublicKey decodes the 64 octet X || Y of a pairing public key
// command, each coordinate least significant octet first.
func unmarshalPublicKey(b []byte) (crypto.PublicKey, bool) {
	if len(b) != 64 {
		return nil, false
	}
	e := ecdh.NewEllipticECDH(elliptic.P256())
	xs := sliceops.SwapBuf(b[:32])
	ys := sliceops.SwapBuf(b[32:])

	// uncompressed point header
	r := append([]byte{0x04}, xs...)
	r = append(r, ys...)

	return e.Unmarshal(r)
}

func marshalPublicKeyXY(k crypto.PublicKey) []byte {
	e := ecdh.NewEllipticECDH(elliptic.P256())

	ba := e.Marshal(k)
	ba = ba[1:] // header
	x := sliceops.SwapBuf(ba[:32])
	y := sliceops.SwapBuf(ba[32:])

	return append(x, y...)
}

func marshalPublicKeyX(k crypto.PublicKey) []byte {
	return marshalPublicKeyXY(k)[:32]
}

// generateSecret computes the 32 octet DHKey in wire order.
func generateSecret(prv crypto.PrivateKey, pub crypto.PublicKey) ([]byte, error) {
	e := ecdh.NewEllipticECDH(elliptic.P256())
	b, err := e.GenerateSharedSecret(prv, pub)
	if err != nil {
		return nil, err
	}

	// the shared x coordinate drops leading zero octets
	if len(b) < 32 {
		b = append(make([]byte, 32-len(b)), b...)
	}
	return sliceops.SwapBuf(b), nil
}
