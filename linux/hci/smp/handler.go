package smp

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
)

type smpDispatcher struct {
	desc    string
	handler func(s *Session, p []byte) error
}

var dispatcher = map[byte]smpDispatcher{
	pairingResponse:         {"pairing response", onPairingResponse},
	pairingConfirm:          {"pairing confirm", onPairingConfirm},
	pairingRandom:           {"pairing random", onPairingRandom},
	pairingFailed:           {"pairing failed", onPairingFailed},
	encryptionInformation:   {"encryption info", onEncryptionInformation},
	masterIdentification:    {"master id", onMasterIdentification},
	identityInformation:     {"id info", onIgnored},
	identityAddrInformation: {"id addr info", onIgnored},
	signingInformation:      {"signing info", onIgnored},
	securityRequest:         {"security req", onSecurityRequest},
	pairingPublicKey:        {"pairing pub key", onPairingPublicKey},
	pairingDHKeyCheck:       {"pairing dhkey check", onDHKeyCheck},
	pairingKeypress:         {"pairing keypress", onIgnored},
}

func expect(s *Session, want State) error {
	if s.state != want {
		return errors.Wrapf(FailUnspecified, "unexpected in state %v", s.state)
	}
	return nil
}

func onPairingResponse(s *Session, in []byte) error {
	if err := expect(s, PairingRequested); err != nil {
		return err
	}
	if len(in) != 6 {
		return errors.Wrapf(FailInvalidParameters, "length %d", len(in))
	}

	s.pres = append([]byte{pairingResponse}, in...)
	authReq := in[2]
	s.legacy = !(s.secure && authReq&authReqSC != 0)
	s.log.Debugf("pairing response % X, legacy %v", s.pres, s.legacy)

	if s.legacy {
		return sendLegacyConfirm(s)
	}
	return sendPublicKey(s)
}

// sendLegacyConfirm sends Mconfirm = c1(TK, Mrand, ...) with TK zero.
func sendLegacyConfirm(s *Session) error {
	r, err := s.random()
	if err != nil {
		return err
	}
	s.localRandom = r

	conf, err := c1(make([]byte, 16), r, s.preq, s.pres, s.iat, s.rat, s.ia, s.ra)
	if err != nil {
		return err
	}
	return s.send(append([]byte{pairingConfirm}, conf...)...)
}

func sendPublicKey(s *Session) error {
	k, err := generateKeys(s.rand)
	if err != nil {
		return errors.Wrap(err, "can't generate keys")
	}
	s.sc = &scContext{keys: k}
	return s.send(append([]byte{pairingPublicKey}, marshalPublicKeyXY(k.public)...)...)
}

func onPairingPublicKey(s *Session, in []byte) error {
	if err := expect(s, PairingRequested); err != nil {
		return err
	}
	if s.legacy || s.sc == nil {
		return errors.Wrap(FailUnspecified, "public key in legacy pairing")
	}
	if len(in) != 64 {
		return errors.Wrapf(FailInvalidParameters, "length %d", len(in))
	}

	// CVE-2020-26558: a reflected public key is rejected
	if bytes.Equal(marshalPublicKeyXY(s.sc.keys.public), in) {
		return errors.Wrap(FailInvalidParameters, "remote public key matches local public key")
	}

	pub, ok := unmarshalPublicKey(in)
	if !ok {
		return errors.Wrap(FailInvalidParameters, "invalid public key")
	}

	dhKey, err := generateSecret(s.sc.keys.private, pub)
	if err != nil {
		return errors.Wrap(FailDHKeyCheck, err.Error())
	}

	s.sc.remotePubKey = append([]byte{}, in...)
	s.sc.dhKey = dhKey
	s.state = PublicKeyExchanged
	return nil
}

// onPairingConfirm stores the peer confirm and answers with the local
// random.
func onPairingConfirm(s *Session, in []byte) error {
	want := PairingRequested
	if !s.legacy {
		want = PublicKeyExchanged
	}
	if err := expect(s, want); err != nil {
		return err
	}
	if len(in) != 16 {
		return errors.Wrapf(FailInvalidParameters, "length %d", len(in))
	}

	s.remoteConfirm = append([]byte{}, in...)
	if s.localRandom == nil {
		r, err := s.random()
		if err != nil {
			return err
		}
		s.localRandom = r
	}

	s.state = ConfirmExchanged
	return s.send(append([]byte{pairingRandom}, s.localRandom...)...)
}

func onPairingRandom(s *Session, in []byte) error {
	if err := expect(s, ConfirmExchanged); err != nil {
		return err
	}
	if len(in) != 16 {
		return errors.Wrapf(FailInvalidParameters, "length %d", len(in))
	}
	s.remoteRandom = append([]byte{}, in...)
	s.state = RandomExchanged

	if s.legacy {
		return onLegacyRandom(s)
	}
	return onSecureRandom(s)
}

func onLegacyRandom(s *Session) error {
	k := make([]byte, 16)
	conf, err := c1(k, s.remoteRandom, s.preq, s.pres, s.iat, s.rat, s.ia, s.ra)
	if err != nil {
		return err
	}
	if !bytes.Equal(conf, s.remoteConfirm) {
		return errors.Wrapf(FailConfirmValue, "expected % X, got % X", conf, s.remoteConfirm)
	}

	// STK = s1(TK, Srand, Mrand)
	stk, err := s1(k, s.remoteRandom, s.localRandom)
	if err != nil {
		return err
	}

	s.state = KeyDerived
	s.listener.OnStk(stk)
	return nil
}

// onSecureRandom checks Cb = f4(PKbx, PKax, Nb, 0), derives the MacKey
// and LTK and sends Ea.
func onSecureRandom(s *Session) error {
	sc := s.sc
	pkax := marshalPublicKeyX(sc.keys.public)
	pkbx := sc.remotePubKey[:32]

	cb, err := f4(pkbx, pkax, s.remoteRandom, 0)
	if err != nil {
		return err
	}
	if !bytes.Equal(cb, s.remoteConfirm) {
		return errors.Wrapf(FailConfirmValue, "expected % X, got % X", cb, s.remoteConfirm)
	}

	// MacKey || LTK = f5(DHKey, Na, Nb, A, B)
	a, b := s.initiator(), s.responder()
	sc.macKey, sc.ltk, err = f5(sc.dhKey, s.localRandom, s.remoteRandom, a, b)
	if err != nil {
		return err
	}

	// Ea = f6(MacKey, Na, Nb, rb, IOcapA, A, B), rb zero for Just Works
	ea, err := f6(sc.macKey, s.localRandom, s.remoteRandom, make([]byte, 16), ioCap(s.preq), a, b)
	if err != nil {
		return err
	}
	return s.send(append([]byte{pairingDHKeyCheck}, ea...)...)
}

func onDHKeyCheck(s *Session, in []byte) error {
	if err := expect(s, RandomExchanged); err != nil {
		return err
	}
	if s.legacy || s.sc == nil || s.sc.macKey == nil {
		return errors.Wrap(FailUnspecified, "dhkey check without secure connections")
	}
	if len(in) != 16 {
		return errors.Wrapf(FailInvalidParameters, "length %d", len(in))
	}

	// Eb = f6(MacKey, Nb, Na, ra, IOcapB, B, A)
	eb, err := f6(s.sc.macKey, s.remoteRandom, s.localRandom, make([]byte, 16), ioCap(s.pres), s.responder(), s.initiator())
	if err != nil {
		return err
	}
	if !bytes.Equal(eb, in) {
		return errors.Wrap(FailDHKeyCheck, "dhkey check mismatch")
	}

	s.state = KeyDerived
	s.listener.OnLtk(append([]byte{}, s.sc.ltk...), false)
	return nil
}

func onPairingFailed(s *Session, in []byte) error {
	reason := "unknown"
	if len(in) > 0 {
		reason = Failure(in[0]).Error()
	}
	return errors.Errorf("remote: %s", reason)
}

func onSecurityRequest(s *Session, in []byte) error {
	if len(in) < 1 {
		return errors.Wrapf(FailInvalidParameters, "length %d", len(in))
	}
	if s.state != Idle {
		s.log.Debugf("security request ignored in state %v", s.state)
		return nil
	}
	return s.SendPairingRequest()
}

func onEncryptionInformation(s *Session, in []byte) error {
	if len(in) != 16 {
		return errors.Wrapf(FailInvalidParameters, "length %d", len(in))
	}
	s.listener.OnLtk(append([]byte{}, in...), true)
	return nil
}

func onMasterIdentification(s *Session, in []byte) error {
	if len(in) != 10 {
		return errors.Wrapf(FailInvalidParameters, "length %d", len(in))
	}
	ediv := binary.LittleEndian.Uint16(in[:2])
	rand := binary.LittleEndian.Uint64(in[2:])
	s.listener.OnMasterIdent(ediv, rand)
	return nil
}

func onIgnored(s *Session, in []byte) error {
	return nil
}
