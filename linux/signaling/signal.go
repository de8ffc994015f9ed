package signaling

import (
	"bytes"
	"encoding/binary"
)

// CID is the LE signaling channel [Vol 3, Part A, 2.1].
const CID = 0x0005

// SignalCommandReject is the code of Command Reject signaling packet.
const SignalCommandReject = 0x01

// Command reject reasons [Vol 3, Part A, 4.1]
const (
	RejectNotUnderstood  = 0x0000
	RejectMTUExceeded    = 0x0001
	RejectInvalidCIDInRq = 0x0002
)

// CommandReject implements Command Reject (0x01) [Vol 3, Part A, 4.1].
// Optional reason data is not carried.
type CommandReject struct {
	Reason uint16
}

// Code returns the event code of the command.
func (s CommandReject) Code() int { return 0x01 }

// Marshal serializes the command parameters into binary form.
func (s *CommandReject) Marshal() []byte {
	buf := bytes.NewBuffer(make([]byte, 0))
	binary.Write(buf, binary.LittleEndian, s)
	return buf.Bytes()
}

// Unmarshal de-serializes the binary data and stores the result in the receiver.
func (s *CommandReject) Unmarshal(b []byte) error {
	return binary.Read(bytes.NewBuffer(b), binary.LittleEndian, s)
}

// SignalConnectionParameterUpdateRequest is the code of Connection Parameter Update Request signaling packet.
const SignalConnectionParameterUpdateRequest = 0x12

// ConnectionParameterUpdateRequest implements Connection Parameter Update Request (0x12) [Vol 3, Part A, 4.20].
type ConnectionParameterUpdateRequest struct {
	IntervalMin       uint16
	IntervalMax       uint16
	SlaveLatency      uint16
	TimeoutMultiplier uint16
}

// Code returns the event code of the command.
func (s ConnectionParameterUpdateRequest) Code() int { return 0x12 }

// Marshal serializes the command parameters into binary form.
func (s *ConnectionParameterUpdateRequest) Marshal() []byte {
	buf := bytes.NewBuffer(make([]byte, 0))
	binary.Write(buf, binary.LittleEndian, s)
	return buf.Bytes()
}

// Unmarshal de-serializes the binary data and stores the result in the receiver.
func (s *ConnectionParameterUpdateRequest) Unmarshal(b []byte) error {
	return binary.Read(bytes.NewBuffer(b), binary.LittleEndian, s)
}

// SignalConnectionParameterUpdateResponse is the code of Connection Parameter Update Response signaling packet.
const SignalConnectionParameterUpdateResponse = 0x13

// Connection parameter update results
const (
	ParametersAccepted = 0x0000
	ParametersRejected = 0x0001
)

// ConnectionParameterUpdateResponse implements Connection Parameter Update Response (0x13) [Vol 3, Part A, 4.21].
type ConnectionParameterUpdateResponse struct {
	Result uint16
}

// Code returns the event code of the command.
func (s ConnectionParameterUpdateResponse) Code() int { return 0x13 }

// Marshal serializes the command parameters into binary form.
func (s *ConnectionParameterUpdateResponse) Marshal() []byte {
	buf := bytes.NewBuffer(make([]byte, 0))
	binary.Write(buf, binary.LittleEndian, s)
	return buf.Bytes()
}

// Unmarshal de-serializes the binary data and stores the result in the receiver.
func (s *ConnectionParameterUpdateResponse) Unmarshal(b []byte) error {
	return binary.Read(bytes.NewBuffer(b), binary.LittleEndian, s)
}

// signal is a command with a code and a wire form.
type signal interface {
	Code() int
	Marshal() []byte
}

// marshal frames s as a signaling packet: Code, Identifier, Length, Data.
func marshal(s signal, id uint8) []byte {
	data := s.Marshal()
	b := make([]byte, 4, 4+len(data))
	b[0] = uint8(s.Code())
	b[1] = id
	binary.LittleEndian.PutUint16(b[2:], uint16(len(data)))
	return append(b, data...)
}
