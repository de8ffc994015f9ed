// +build !linux

package socket

import (
	"io"

	"github.com/pkg/errors"
)

// Socket is unavailable outside linux.
type Socket struct {
	io.ReadWriteCloser
}

// Open is a dummy function for non-Linux platform.
func Open(id int, tryUser bool) (*Socket, error) {
	return nil, errors.New("hci socket only available on linux")
}

// IsDevUp always fails outside linux.
func (s *Socket) IsDevUp() (bool, error) {
	return false, errors.New("hci socket only available on linux")
}
