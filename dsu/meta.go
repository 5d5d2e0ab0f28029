package dsu

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// MAC is a 48-bit hardware address, kept as 6 raw bytes internally: both
// the wire format and the client registry's per-MAC keys use the bytes.
// ParseMAC / MAC.String convert to/from the canonical "aa:bb:cc:dd:ee:ff"
// string for human-facing output such as the control API.
type MAC [6]byte

// ParseMAC parses a colon-separated lowercase or uppercase hex MAC string.
func ParseMAC(s string) (MAC, error) {
	var m MAC
	parts := strings.Split(s, ":")
	if len(parts) != 6 {
		return m, fmt.Errorf("dsu: invalid mac address %q", s)
	}
	for i, p := range parts {
		b, err := hex.DecodeString(p)
		if err != nil || len(b) != 1 {
			return m, fmt.Errorf("dsu: invalid mac address %q", s)
		}
		m[i] = b[0]
	}
	return m, nil
}

// MACFromBytes copies a 6-byte slice into a MAC, zero-padding if short.
func MACFromBytes(b []byte) MAC {
	var m MAC
	copy(m[:], b)
	return m
}

func (m MAC) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", m[0], m[1], m[2], m[3], m[4], m[5])
}

func (m MAC) IsZero() bool {
	return m == MAC{}
}

// Meta is the identifying/static portion of a controller's state, attached
// to every outgoing report and every LIST_PORTS reply.
type Meta struct {
	PadID          uint8
	State          PadState
	Model          PadModel
	ConnectionType ConnectionType
	MACAddress     MAC
	BatteryStatus  uint8
	IsActive       bool
}
