package dsu

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
)

// header is the parsed form of the 16-byte DSU frame prefix.
type header struct {
	version uint16
	length  uint16
	crc     uint32
	id      uint32
}

// errBadPacket wraps every codec-level rejection reason so callers can log
// or count them without inspecting a magic string.
type errBadPacket struct {
	reason string
}

func (e *errBadPacket) Error() string { return "dsu: malformed packet: " + e.reason }

func badPacket(format string, args ...any) error {
	return &errBadPacket{reason: fmt.Sprintf(format, args...)}
}

// decodeHeader validates magic, version, declared length, and CRC32 of an
// inbound datagram and returns the parsed header plus the message-type
// field and body slice that follow it.
//
// Per spec.md §4.1, CRC32 is computed over the entire buffer with bytes
// 8..11 zeroed; the receiver must zero those bytes locally before
// recomputing rather than mutate the caller's buffer in place.
func decodeHeader(buf []byte) (header, uint32, []byte, error) {
	var h header
	if len(buf) < headerSize+4 {
		return h, 0, nil, badPacket("short buffer (%d bytes)", len(buf))
	}
	if string(buf[0:4]) != magicClient {
		return h, 0, nil, badPacket("bad magic %q", buf[0:4])
	}

	h.version = binary.LittleEndian.Uint16(buf[4:6])
	if h.version > MaxProtocolVer {
		return h, 0, nil, badPacket("unsupported version %d", h.version)
	}

	declared := int16(binary.LittleEndian.Uint16(buf[6:8]))
	if declared < 4 {
		return h, 0, nil, badPacket("declared length %d too short for a message type", declared)
	}
	h.length = uint16(declared)
	if len(buf) != headerSize+int(h.length) {
		return h, 0, nil, badPacket("declared length %d does not match buffer size %d", h.length, len(buf)-headerSize)
	}

	h.crc = binary.LittleEndian.Uint32(buf[8:12])
	h.id = binary.LittleEndian.Uint32(buf[12:16])

	check := make([]byte, len(buf))
	copy(check, buf)
	check[8], check[9], check[10], check[11] = 0, 0, 0, 0
	if got := crc32.ChecksumIEEE(check); got != h.crc {
		return h, 0, nil, badPacket("crc mismatch (want %08x, got %08x)", h.crc, got)
	}

	msgType := binary.LittleEndian.Uint32(buf[16:20])
	return h, msgType, buf[20 : headerSize+int(h.length)], nil
}

// encodeFrame builds a complete outbound datagram: 16-byte header, 4-byte
// message type, then body. The CRC32 field is computed last, over the
// whole buffer with bytes 8..11 zeroed, and written little-endian.
func encodeFrame(version uint16, serverID uint32, msgType uint32, body []byte) []byte {
	total := headerSize + 4 + len(body)
	out := make([]byte, total)

	copy(out[0:4], magicServer)
	binary.LittleEndian.PutUint16(out[4:6], version)
	binary.LittleEndian.PutUint16(out[6:8], uint16(total-headerSize))
	// out[8:12] CRC written below, once the rest of the frame is final.
	binary.LittleEndian.PutUint32(out[12:16], serverID)
	binary.LittleEndian.PutUint32(out[16:20], msgType)
	copy(out[20:], body)

	crc := crc32.ChecksumIEEE(out)
	binary.LittleEndian.PutUint32(out[8:12], crc)
	return out
}
