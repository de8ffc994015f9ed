package linux

import (
	"time"

	ble "github.com/rigado/blecentral"
	"github.com/rigado/blecentral/linux/acl"
	"github.com/rigado/blecentral/linux/att"
	"github.com/rigado/blecentral/linux/signaling"
)

// peripheral is one connection and its sessions. Its listener methods run
// with the bindings' lock held.
type peripheral struct {
	b      *Bindings
	id     string
	handle uint16

	stream *acl.Stream
	att    *att.Session
	sig    *signaling.Session
}

func (p *peripheral) OnEnd() {
	p.b.log.Debugf("%s: handle 0x%04x closed", p.id, p.handle)
}

func (p *peripheral) OnEncryptChange(encrypted bool) {
	p.b.emit(ble.EncryptChangeEvent{ID: p.id, Encrypted: encrypted})
}

func (p *peripheral) OnEncryptFail(err error) {
	p.b.emit(ble.EncryptFailEvent{ID: p.id, Err: err})
}

func (p *peripheral) OnLtk(ltk []byte) {
	p.b.emit(ble.LTKEvent{ID: p.id, LTK: ltk})
}

func (p *peripheral) OnMasterIdent(ediv uint16, rand uint64) {
	p.b.emit(ble.MasterIdentEvent{ID: p.id, EDiv: ediv, Rand: rand})
}

func (p *peripheral) OnMTU(mtu int) {
	p.b.emit(ble.MTUEvent{ID: p.id, MTU: mtu})
}

func (p *peripheral) OnNotify(handle uint16, data []byte, indication bool) {
	p.b.emit(ble.NotifyEvent{ID: p.id, Handle: handle, Data: data, Indication: indication})
}

// OnConnParamUpdateRequest applies the parameters the peripheral asked for.
func (p *peripheral) OnConnParamUpdateRequest(min, max time.Duration, latency uint16, timeout time.Duration) {
	b, h := p.b, p.handle
	b.send("connection update", func() error { return b.hci.ConnUpdateLe(h, min, max, latency, timeout) })
	b.emit(ble.ConnParamsUpdateEvent{
		ID:                 p.id,
		MinInterval:        min,
		MaxInterval:        max,
		Latency:            latency,
		SupervisionTimeout: timeout,
	})
}

var (
	_ acl.Listener       = (*peripheral)(nil)
	_ att.Listener       = (*peripheral)(nil)
	_ signaling.Listener = (*peripheral)(nil)
)
