package hci

import (
	ble "github.com/rigado/blecentral"
	"github.com/rigado/blecentral/linux/hci/evt"
)

// ConnComplete is the decoded LE (enhanced) connection complete event.
type ConnComplete struct {
	Status      uint8
	Handle      uint16
	Role        uint8
	AddressType ble.AddrType
	Address     string
	Interval    uint16
	Latency     uint16
	Timeout     uint16
}

// Handler receives everything the controller reports. Calls are made from
// the socket reader (or the device poller) and never while the HCI lock is
// held, so a Handler may call back into the HCI.
type Handler interface {
	OnStateChange(s ble.State)
	OnAddressChange(addr string, typ ble.AddrType)

	OnScanEnableSet(status uint8, enable, filterDuplicates bool)
	OnScanEnableSetCmd(enable, filterDuplicates bool)
	OnAdvertisingReport(r evt.AdvReport)

	OnLeConnComplete(c ConnComplete)
	OnLeConnUpdateComplete(status uint8, handle, interval, latency, timeout uint16)
	OnDisconnComplete(handle uint16, reason uint8)
	OnEncryptChange(handle uint16, encrypted bool)
	OnAclDataPkt(handle, cid uint16, data []byte)
	OnRssiRead(handle uint16, rssi int8)
	OnLeLtkNegReply(handle uint16)
}
