// Package att is the client side of the Attribute Protocol, reduced to what
// a central needs before GATT: MTU exchange and handle value
// notifications and indications.
package att

import (
	"fmt"

	"github.com/pkg/errors"
)

// CID is the LE attribute protocol channel [Vol 3, Part A, 2.1].
const CID = 0x0004

// DefaultMTU defines the default MTU of ATT protocol including 3 bytes of ATT header.
const DefaultMTU = 23

// MaxMTU is maximum of ATT_MTU, which is 512 bytes of value length, plus 3 bytes of ATT header.
const MaxMTU = 512 + 3

// LocalMTU is the receive MTU offered on connect.
const LocalMTU = 256

// Attribute opcodes [Vol 3, Part F, 3.4.8]
const (
	ErrorResponseCode           = 0x01
	ExchangeMTURequestCode      = 0x02
	ExchangeMTUResponseCode     = 0x03
	HandleValueNotificationCode = 0x1B
	HandleValueIndicationCode   = 0x1D
	HandleValueConfirmationCode = 0x1E

	// set on commands, which are never answered
	commandFlag = 0x40
)

var (
	// ErrInvalidArgument means one or more of the arguments are invalid.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidResponse means one or more of the response fields are invalid.
	ErrInvalidResponse = errors.New("invalid response")
)

// Error is the error code of Attribute Protocol [Vol 3, Part F, 3.4.1.1].
type Error byte

const (
	ErrInvalidHandle     Error = 0x01
	ErrReadNotPerm       Error = 0x02
	ErrWriteNotPerm      Error = 0x03
	ErrInvalidPDU        Error = 0x04
	ErrAuthentication    Error = 0x05
	ErrReqNotSupp        Error = 0x06
	ErrInvalidOffset     Error = 0x07
	ErrAuthorization     Error = 0x08
	ErrPrepQueueFull     Error = 0x09
	ErrAttrNotFound      Error = 0x0a
	ErrAttrNotLong       Error = 0x0b
	ErrInsuffEncrKeySize Error = 0x0c
	ErrInvalAttrValueLen Error = 0x0d
	ErrUnlikely          Error = 0x0e
	ErrInsuffEnc         Error = 0x0f
	ErrUnsuppGrpType     Error = 0x10
	ErrInsuffResources   Error = 0x11
)

var errName = map[Error]string{
	ErrInvalidHandle:     "invalid handle",
	ErrReadNotPerm:       "read not permitted",
	ErrWriteNotPerm:      "write not permitted",
	ErrInvalidPDU:        "invalid PDU",
	ErrAuthentication:    "insufficient authentication",
	ErrReqNotSupp:        "request not supported",
	ErrInvalidOffset:     "invalid offset",
	ErrAuthorization:     "insufficient authorization",
	ErrPrepQueueFull:     "prepare queue full",
	ErrAttrNotFound:      "attribute not found",
	ErrAttrNotLong:       "attribute not long",
	ErrInsuffEncrKeySize: "insufficient encryption key size",
	ErrInvalAttrValueLen: "invalid attribute value length",
	ErrUnlikely:          "unlikely error",
	ErrInsuffEnc:         "insufficient encryption",
	ErrUnsuppGrpType:     "unsupported group type",
	ErrInsuffResources:   "insufficient resources",
}

func (e Error) Error() string {
	if n, ok := errName[e]; ok {
		return n
	}
	switch i := int(e); {
	case i >= 0x80 && i <= 0x9F:
		return fmt.Sprintf("application error code (0x%02X)", i)
	case i >= 0xE0:
		return "profile or service error"
	}
	return fmt.Sprintf("reserved error code (0x%02X)", int(e))
}
