package ble

import "github.com/pkg/errors"

var (
	// ErrInvalidAddress is returned for malformed MAC strings or identifiers.
	ErrInvalidAddress = errors.New("invalid address")

	// ErrConnectPending is returned when a connect waiter already exists for a peripheral.
	ErrConnectPending = errors.New("connect already pending")

	// ErrUnknownPeripheral is returned for identifiers with no known connection.
	ErrUnknownPeripheral = errors.New("unknown peripheral")

	// ErrNotConnected is returned for operations that need an established link.
	ErrNotConnected = errors.New("not connected")

	// ErrClosed is returned once the stack has been shut down.
	ErrClosed = errors.New("closed")

	// ErrConnectCancelled fails a connect that was cancelled before completion.
	ErrConnectCancelled = errors.New("connect cancelled")
)
