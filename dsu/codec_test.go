package dsu

import (
	"encoding/binary"
	"hash/crc32"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildClientFrame(t *testing.T, version uint16, msgType uint32, body []byte) []byte {
	t.Helper()
	total := headerSize + 4 + len(body)
	buf := make([]byte, total)
	copy(buf[0:4], magicClient)
	binary.LittleEndian.PutUint16(buf[4:6], version)
	binary.LittleEndian.PutUint16(buf[6:8], uint16(total-headerSize))
	binary.LittleEndian.PutUint32(buf[12:16], 0x12345678)
	binary.LittleEndian.PutUint32(buf[16:20], msgType)
	copy(buf[20:], body)

	buf[8], buf[9], buf[10], buf[11] = 0, 0, 0, 0
	crc := crc32.ChecksumIEEE(buf)
	binary.LittleEndian.PutUint32(buf[8:12], crc)
	return buf
}

func TestDecodeHeader_ValidFrame(t *testing.T) {
	frame := buildClientFrame(t, MaxProtocolVer, MsgTypeVersionReq, nil)
	h, msgType, body, err := decodeHeader(frame)
	require.NoError(t, err)
	assert.Equal(t, MaxProtocolVer, h.version)
	assert.Equal(t, MsgTypeVersionReq, msgType)
	assert.Empty(t, body)
}

func TestDecodeHeader_BadMagic(t *testing.T) {
	frame := buildClientFrame(t, MaxProtocolVer, MsgTypeVersionReq, nil)
	frame[0] = 'X'
	_, _, _, err := decodeHeader(frame)
	assert.Error(t, err)
}

func TestDecodeHeader_ShortBuffer(t *testing.T) {
	_, _, _, err := decodeHeader(make([]byte, 4))
	assert.Error(t, err)
}

func TestDecodeHeader_VersionTooHigh(t *testing.T) {
	frame := buildClientFrame(t, MaxProtocolVer+1, MsgTypeVersionReq, nil)
	_, _, _, err := decodeHeader(frame)
	assert.Error(t, err)
}

func TestDecodeHeader_NegativeLength(t *testing.T) {
	frame := buildClientFrame(t, MaxProtocolVer, MsgTypeVersionReq, nil)
	binary.LittleEndian.PutUint16(frame[6:8], 0xFFFF) // -1 as int16
	// Recompute CRC so this failure is isolated to the length check.
	frame[8], frame[9], frame[10], frame[11] = 0, 0, 0, 0
	crc := crc32.ChecksumIEEE(frame)
	binary.LittleEndian.PutUint32(frame[8:12], crc)

	_, _, _, err := decodeHeader(frame)
	assert.Error(t, err)
}

func TestDecodeHeader_CRCTamper(t *testing.T) {
	frame := buildClientFrame(t, MaxProtocolVer, MsgTypeVersionReq, []byte{0x01, 0x02})
	// Flip a bit outside the CRC field itself.
	frame[len(frame)-1] ^= 0x01
	_, _, _, err := decodeHeader(frame)
	assert.Error(t, err)
}

func TestEncodeFrame_CRCInvariant(t *testing.T) {
	frame := encodeFrame(outVersion, 0xAABBCCDD, MsgTypePadDataRsp, make([]byte, 80))

	crcField := binary.LittleEndian.Uint32(frame[8:12])
	check := make([]byte, len(frame))
	copy(check, frame)
	check[8], check[9], check[10], check[11] = 0, 0, 0, 0
	assert.Equal(t, crc32.ChecksumIEEE(check), crcField)
}

func TestEncodeFrame_LengthField(t *testing.T) {
	frame := encodeFrame(outVersion, 1, MsgTypePadDataRsp, make([]byte, 80))
	declared := binary.LittleEndian.Uint16(frame[6:8])
	assert.EqualValues(t, len(frame)-headerSize, declared)
}
