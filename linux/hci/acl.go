package hci

import (
	"encoding/binary"
	"fmt"
)

// aclFragment is one serialized HCI ACL packet waiting for a controller buffer.
type aclFragment struct {
	handle uint16
	b      []byte
}

// handleBuffer accumulates an L2CAP PDU split over several ACL packets.
type handleBuffer struct {
	length int
	cid    uint16
	data   []byte
}

// WriteAclDataPkt frames data as an L2CAP PDU on cid, fragments it to the
// controller ACL MTU and queues the fragments. Fragments are released only
// while the controller has free buffers.
func (h *HCI) WriteAclDataPkt(handle, cid uint16, data []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.aclPending[handle]; !ok {
		return ErrUnknownHandle
	}

	pdu := make([]byte, 4+len(data))
	binary.LittleEndian.PutUint16(pdu[0:], uint16(len(data)))
	binary.LittleEndian.PutUint16(pdu[2:], cid)
	copy(pdu[4:], data)

	flag := uint16(PbfHostToControllerStart)
	for len(pdu) > 0 {
		n := len(pdu)
		if n > h.aclMtu {
			n = h.aclMtu
		}

		b := make([]byte, 5+n)
		b[0] = PktTypeACLData
		binary.LittleEndian.PutUint16(b[1:], handle|flag<<12)
		binary.LittleEndian.PutUint16(b[3:], uint16(n))
		copy(b[5:], pdu[:n])

		h.aclQueue = append(h.aclQueue, aclFragment{handle: handle, b: b})
		pdu = pdu[n:]
		flag = PbfContinuing
	}

	h.flushAcl()
	return nil
}

func (h *HCI) aclInProgress() int {
	total := 0
	for _, p := range h.aclPending {
		total += p
	}
	return total
}

// flushAcl writes queued fragments in order while the controller buffer
// pool has room.
func (h *HCI) flushAcl() {
	inProgress := h.aclInProgress()
	for len(h.aclQueue) > 0 && inProgress < h.aclMaxInProgress {
		f := h.aclQueue[0]
		h.aclQueue = h.aclQueue[1:]

		if _, ok := h.aclPending[f.handle]; !ok {
			continue
		}
		h.write(f.b)
		h.aclPending[f.handle]++
		inProgress++
	}
}

// cleanupHandle forgets everything held for handle.
func (h *HCI) cleanupHandle(handle uint16) {
	delete(h.aclPending, handle)
	delete(h.aclBuffers, handle)

	q := h.aclQueue[:0]
	for _, f := range h.aclQueue {
		if f.handle != handle {
			q = append(q, f)
		}
	}
	for i := len(q); i < len(h.aclQueue); i++ {
		h.aclQueue[i] = aclFragment{}
	}
	h.aclQueue = q
}

func (h *HCI) handleACL(b []byte) error {
	if len(b) < 4 {
		return fmt.Errorf("short acl packet: % X", b)
	}

	word := binary.LittleEndian.Uint16(b)
	flags := word >> 12
	handle := word & 0x0fff
	dlen := int(binary.LittleEndian.Uint16(b[2:]))
	data := b[4:]
	if dlen != len(data) {
		return fmt.Errorf("acl 0x%04x: length %d, have %d", handle, dlen, len(data))
	}

	switch flags {
	case pbfControllerToHostStart, PbfHostToControllerStart:
		if len(data) < 4 {
			return fmt.Errorf("acl 0x%04x: short l2cap header % X", handle, data)
		}
		length := int(binary.LittleEndian.Uint16(data))
		cid := binary.LittleEndian.Uint16(data[2:])
		pdu := data[4:]

		if _, ok := h.aclBuffers[handle]; ok {
			h.log.Debugf("acl 0x%04x: start fragment drops incomplete pdu", handle)
			delete(h.aclBuffers, handle)
		}

		switch {
		case len(pdu) == length:
			h.emitAcl(handle, cid, pdu)
		case len(pdu) > length:
			return fmt.Errorf("acl 0x%04x: pdu overrun %d > %d", handle, len(pdu), length)
		default:
			buf := &handleBuffer{length: length, cid: cid, data: make([]byte, 0, length)}
			buf.data = append(buf.data, pdu...)
			h.aclBuffers[handle] = buf
		}

	case PbfContinuing:
		buf, ok := h.aclBuffers[handle]
		if !ok {
			return fmt.Errorf("acl 0x%04x: continuation without start", handle)
		}
		buf.data = append(buf.data, data...)

		switch {
		case len(buf.data) == buf.length:
			delete(h.aclBuffers, handle)
			h.emitAcl(handle, buf.cid, buf.data)
		case len(buf.data) > buf.length:
			delete(h.aclBuffers, handle)
			return fmt.Errorf("acl 0x%04x: pdu overrun %d > %d", handle, len(buf.data), buf.length)
		}

	default:
		return fmt.Errorf("acl 0x%04x: unsupported boundary flag %d", handle, flags)
	}
	return nil
}

func (h *HCI) emitAcl(handle, cid uint16, pdu []byte) {
	p := make([]byte, len(pdu))
	copy(p, pdu)
	h.call(func() { h.handler.OnAclDataPkt(handle, cid, p) })
}
