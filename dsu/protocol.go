// Package dsu implements the Cemuhook DSU (DualShock UDP) server: wire
// codec, client subscription bookkeeping, controller slot table, report
// serialization, and request dispatch.
package dsu

import "time"

// Wire magic values for the 16-byte DSU header.
const (
	magicServer = "DSUS" // server -> client
	magicClient = "DSUC" // client -> server
)

// Message type codes, exactly as the reference DSU protocol expects them
// on the wire (little-endian u32).
const (
	MsgTypeVersionReq uint32 = 0x100000
	MsgTypeVersionRsp uint32 = 0x100000
	MsgTypeListPorts  uint32 = 0x100001
	MsgTypePortInfo   uint32 = 0x100001
	MsgTypePadDataReq uint32 = 0x100002
	MsgTypePadDataRsp uint32 = 0x100002
)

const (
	// MaxProtocolVer is the highest protocol version this server understands.
	// Inbound packets declaring a higher version are rejected.
	MaxProtocolVer uint16 = 1001

	// outVersion is the version stamped on every outbound header, the
	// VERSION response's included; that response also carries
	// MaxProtocolVer in its body.
	outVersion uint16 = 1001

	// ClientTimeoutLimit is how long a client subscription is honored after
	// its most recent request, along any of the three dimensions.
	ClientTimeoutLimit = 5 * time.Second

	// NumSlots is the number of controller slots the server tracks.
	NumSlots = 4

	// headerSize is the length of the standard DSU frame prefix.
	headerSize = 16
)

// PadState describes the connection lifecycle state of a pad slot.
type PadState uint8

const (
	PadDisconnected PadState = 0
	PadReserved     PadState = 1
	PadConnected    PadState = 2
)

// PadModel describes how "DualShock-shaped" a pad's report model is.
type PadModel uint8

const (
	ModelNone    PadModel = 0
	ModelPartial PadModel = 1
	ModelFull    PadModel = 2
)

// ConnectionType describes the physical transport a pad is attached over.
type ConnectionType uint8

const (
	ConnNone      ConnectionType = 0
	ConnUSB       ConnectionType = 1
	ConnBluetooth ConnectionType = 2
)
