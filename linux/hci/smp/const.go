package smp

// CID is the fixed L2CAP channel of the security manager.
const CID = 0x0006

// SMP command codes [Vol 3, Part H, 3.3]
const (
	pairingRequest          = 0x01 // Pairing Request LE-U, ACL-U
	pairingResponse         = 0x02 // Pairing Response LE-U, ACL-U
	pairingConfirm          = 0x03 // Pairing Confirm LE-U
	pairingRandom           = 0x04 // Pairing Random LE-U
	pairingFailed           = 0x05 // Pairing Failed LE-U, ACL-U
	encryptionInformation   = 0x06 // Encryption Information LE-U
	masterIdentification    = 0x07 // Master Identification LE-U
	identityInformation     = 0x08 // Identity Information LE-U, ACL-U
	identityAddrInformation = 0x09 // Identity Address Information LE-U, ACL-U
	signingInformation      = 0x0A // Signing Information LE-U, ACL-U
	securityRequest         = 0x0B // Security Request LE-U
	pairingPublicKey        = 0x0C // Pairing Public Key LE-U
	pairingDHKeyCheck       = 0x0D // Pairing DHKey Check LE-U
	pairingKeypress         = 0x0E // Pairing Keypress Notification LE-U
)

// Pairing request parameters: no input no output, no OOB, bonding, 16 byte
// keys, the responder distributes its LTK.
const (
	ioCapNoInputNoOutput = 0x03
	oobNotPresent        = 0x00
	maxKeySize           = 16
	initKeyDist          = 0x00
	respKeyDist          = 0x01

	authReqBond = byte(0x01)
	authReqSC   = byte(0x08)
)

// Failure is a pairing failed reason [Vol 3, Part H, 3.5.5].
type Failure byte

const (
	FailPasskeyEntry        Failure = 0x01
	FailOOBNotAvailable     Failure = 0x02
	FailAuthRequirements    Failure = 0x03
	FailConfirmValue        Failure = 0x04
	FailPairingNotSupported Failure = 0x05
	FailEncryptionKeySize   Failure = 0x06
	FailCommandNotSupported Failure = 0x07
	FailUnspecified         Failure = 0x08
	FailRepeatedAttempts    Failure = 0x09
	FailInvalidParameters   Failure = 0x0A
	FailDHKeyCheck          Failure = 0x0B
)

// Core spec v5.2, Vol 3, Part H, 3.5.5, Table 3.7
var failureReasons = []string{
	"reserved",
	"passkey entry failed",
	"oob not available",
	"authentication requirements",
	"confirm value failed",
	"pairing not supported",
	"encryption key size",
	"command not supported",
	"unspecified reason",
	"repeated attempts",
	"invalid parameters",
	"dhkey check failed",
	"numeric comparison failed",
	"BR/EDR pairing in progress",
	"cross-transport key derivation/generation not allowed",
}

func (f Failure) Error() string {
	if int(f) < len(failureReasons) {
		return failureReasons[f]
	}
	return "unknown reason"
}
