package dsu

import (
	"encoding/binary"
	"fmt"
	"time"
)

// registrationFlag bits for DSUC_PadDataReq, per the reference DSU spec
// (spec.md §9 resolves the source's ambiguity in favor of these being
// three independent dimensions rather than "always do all three").
const (
	regFlagPerPad uint8 = 1 << 0
	regFlagPerMAC uint8 = 1 << 1
)

// Dispatcher classifies validated inbound datagrams and produces the
// outbound datagrams they warrant. It never touches the network directly;
// Server owns the socket and calls Dispatcher to turn bytes into bytes.
type Dispatcher struct {
	serverID uint32
	registry *Registry
	slots    *SlotTable
}

// NewDispatcher builds a Dispatcher over an existing registry and slot
// table, stamping serverID into every outbound header.
func NewDispatcher(serverID uint32, registry *Registry, slots *SlotTable) *Dispatcher {
	return &Dispatcher{serverID: serverID, registry: registry, slots: slots}
}

// outboundPacket pairs a rendered datagram with the endpoint it must be
// sent to.
type outboundPacket struct {
	to   Endpoint
	data []byte
}

// HandleDatagram validates and dispatches one inbound datagram from ep,
// returning zero or more outbound packets to send. A malformed datagram
// yields (nil, err) and must never produce a reply (spec.md §4.1, §7).
func (d *Dispatcher) HandleDatagram(buf []byte, ep Endpoint, now time.Time) ([]outboundPacket, error) {
	_, msgType, body, err := decodeHeader(buf)
	if err != nil {
		return nil, err
	}

	switch msgType {
	case MsgTypeVersionReq:
		return []outboundPacket{{to: ep, data: buildVersionResponse(outVersion, d.serverID)}}, nil

	case MsgTypeListPorts:
		return d.handleListPorts(body, ep)

	case MsgTypePadDataReq:
		return nil, d.handlePadDataReq(body, ep, now)

	default:
		return nil, badPacket("unknown message type 0x%08x", msgType)
	}
}

func (d *Dispatcher) handleListPorts(body []byte, ep Endpoint) ([]outboundPacket, error) {
	if len(body) < 4 {
		return nil, badPacket("short LIST_PORTS body")
	}
	n := int32(binary.LittleEndian.Uint32(body[0:4]))
	if n < 0 || n > NumSlots {
		return nil, badPacket("numOfPadRequests out of range: %d", n)
	}
	if len(body) < 4+int(n) {
		return nil, badPacket("short LIST_PORTS body for %d requested indices", n)
	}

	var out []outboundPacket
	for i := 0; i < int(n); i++ {
		idx := body[4+i]
		if idx > NumSlots-1 {
			return nil, badPacket("pad index out of range: %d", idx)
		}
		meta := d.slots.MetaAt(int(idx))
		if meta == nil {
			continue
		}
		out = append(out, outboundPacket{to: ep, data: buildPortInfoResponse(outVersion, d.serverID, *meta)})
	}
	return out, nil
}

func (d *Dispatcher) handlePadDataReq(body []byte, ep Endpoint, now time.Time) error {
	if len(body) < 8 {
		return badPacket("short PAD_DATA body")
	}
	flags := body[0]
	padID := body[1]
	mac := MACFromBytes(body[2:8])

	if flags == 0 {
		d.registry.RegisterAllPads(ep, now)
		return nil
	}
	// Per spec.md §9, the two bits are independent dimensions, not mutually
	// exclusive modes: a request may renew both a pad-id and a MAC
	// subscription at once.
	if flags&regFlagPerPad != 0 {
		d.registry.RegisterByPadID(ep, padID, now)
	}
	if flags&regFlagPerMAC != 0 {
		d.registry.RegisterByMAC(ep, mac, now)
	}
	return nil
}

// FanoutReport renders one DSUS_PadDataRsp per interested client for a
// report freshly emitted by the controller in the given slot.
func (d *Dispatcher) FanoutReport(padID uint8, r NormalizedReport, now time.Time) ([]outboundPacket, error) {
	meta := d.slots.MetaAt(int(padID))
	if meta == nil {
		return nil, fmt.Errorf("dsu: report for unoccupied or metaless slot %d", padID)
	}
	clients := d.registry.ClientsFor(*meta, now)
	if len(clients) == 0 {
		return nil, nil
	}

	packet := buildPadDataResponse(outVersion, d.serverID, *meta, r)
	out := make([]outboundPacket, len(clients))
	for i, ep := range clients {
		// Every client gets an identical copy; slicing the same backing
		// array is safe because nothing here mutates it after this point.
		out[i] = outboundPacket{to: ep, data: packet}
	}
	return out, nil
}
