package hci

import "time"

// HCI Packet types
const (
	PktTypeCommand uint8 = 0x01
	PktTypeACLData uint8 = 0x02
	PktTypeSCOData uint8 = 0x03
	PktTypeEvent   uint8 = 0x04
	PktTypeVendor  uint8 = 0xFF
)

// Packet boundary flags of HCI ACL Data Packet [Vol 2, Part E, 5.4.2].
const (
	PbfHostToControllerStart = 0x00 // Start of a non-automatically-flushable from host to controller.
	PbfContinuing            = 0x01 // Continuing fragment.
	pbfControllerToHostStart = 0x02 // Start of a non-automatically-flushable from controller to host.
)

const (
	RoleMaster = 0x00
	RoleSlave  = 0x01
)

// Event masks enabled during bring-up.
const (
	eventMask = 0x3dbff807fffbffff
	// conn complete, adv report, conn update complete, read remote features,
	// LTK request, enhanced conn complete, extended adv report
	leEventMask = 0x1F | 1<<9 | 1<<12
)

const (
	// lmp version of Core 4.0, the first with LE
	minLMPVersion = 6

	leFeatureExtendedAdvertising = 1 << 12

	maxCmdCredits = 16

	defaultPollInterval = time.Second
	readBufferSize      = 4096
)

// defaults used before the controller reports its buffers
const (
	defaultACLMtu     = 27
	defaultACLBuffers = 1
)
