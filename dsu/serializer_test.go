package dsu

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPadDataResponse_TotalLength(t *testing.T) {
	frame := buildPadDataResponse(outVersion, 1, Meta{}, NormalizedReport{})
	assert.Len(t, frame, PadDataDatagramSize)
	assert.Equal(t, 100, len(frame))
}

func TestBuildPadDataResponse_FieldOffsets(t *testing.T) {
	meta := Meta{
		PadID:          2,
		State:          PadConnected,
		Model:          ModelFull,
		ConnectionType: ConnBluetooth,
		MACAddress:     MAC{0x01, 0x02, 0x03, 0x04, 0x05, 0x06},
		BatteryStatus:  0xEF,
		IsActive:       true,
	}
	report := NormalizedReport{
		PacketCounter: 0xDEADBEEF,
		Button: Buttons{
			Cross: true, R2: true,
			DPadUp: true, Share: true,
			PS: true, Touch: true,
		},
		Position: Position{Left: Stick{X: 10, Y: 20}, Right: Stick{X: 30, Y: 40}},
		Trigger:  Trigger{L2: 0x80, R2: 0x40},
		TrackPad: TrackPad{
			First:  Touch{IsActive: true, ID: 5, X: 100, Y: 200},
			Second: Touch{IsActive: false, ID: 0, X: 0, Y: 0},
		},
		MotionTimestampUS: 0x0102030405060708,
		Accelerometer:     Vec3{X: 1.5, Y: -2.5, Z: 3.5},
		Gyro:              Vec3{X: -1, Y: 0, Z: 1},
	}

	frame := buildPadDataResponse(outVersion, 0xCAFEBABE, meta, report)
	require.Len(t, frame, 100)

	assert.Equal(t, MsgTypePadDataRsp, binary.LittleEndian.Uint32(frame[16:20]))

	assert.Equal(t, meta.PadID, frame[20])
	assert.Equal(t, uint8(PadConnected), frame[21])
	assert.Equal(t, uint8(ModelFull), frame[22])
	assert.Equal(t, uint8(ConnBluetooth), frame[23])
	assert.Equal(t, meta.MACAddress[:], frame[24:30])
	assert.Equal(t, uint8(0xEF), frame[30])
	assert.Equal(t, uint8(1), frame[31])

	assert.EqualValues(t, 0xDEADBEEF, binary.LittleEndian.Uint32(frame[32:36]))

	// DPad/misc byte: DPadUp (bit4) | Share (bit0).
	assert.Equal(t, uint8(1<<4|1<<0), frame[36])
	// Face/shoulder byte: Cross (bit6) | R2 (bit1).
	assert.Equal(t, uint8(1<<6|1<<1), frame[37])
	assert.Equal(t, uint8(1), frame[38]) // PS
	assert.Equal(t, uint8(1), frame[39]) // Touch button

	assert.Equal(t, uint8(10), frame[40])
	assert.Equal(t, uint8(20), frame[41])
	assert.Equal(t, uint8(30), frame[42])
	assert.Equal(t, uint8(40), frame[43])

	assert.Equal(t, uint8(0xFF), frame[47]) // analog D-pad up
	assert.Equal(t, uint8(0x00), frame[48]) // analog square (not pressed)
	assert.Equal(t, uint8(0xFF), frame[49]) // analog cross

	assert.Equal(t, report.Trigger.R2, frame[54])
	assert.Equal(t, report.Trigger.L2, frame[55])

	assert.Equal(t, uint8(1), frame[56])
	assert.Equal(t, uint8(5), frame[57])
	assert.EqualValues(t, 100, binary.LittleEndian.Uint16(frame[58:60]))
	assert.EqualValues(t, 200, binary.LittleEndian.Uint16(frame[60:62]))

	assert.Equal(t, uint8(0), frame[62])

	assert.EqualValues(t, 0x0102030405060708, binary.LittleEndian.Uint64(frame[68:76]))

	assert.Equal(t, float32(1.5), math.Float32frombits(binary.LittleEndian.Uint32(frame[76:80])))
	assert.Equal(t, float32(-2.5), math.Float32frombits(binary.LittleEndian.Uint32(frame[80:84])))
	assert.Equal(t, float32(3.5), math.Float32frombits(binary.LittleEndian.Uint32(frame[84:88])))
	assert.Equal(t, float32(-1), math.Float32frombits(binary.LittleEndian.Uint32(frame[88:92])))
	assert.Equal(t, float32(1), math.Float32frombits(binary.LittleEndian.Uint32(frame[96:100])))
}

func TestBuildPortInfoResponse_Length(t *testing.T) {
	frame := buildPortInfoResponse(outVersion, 1, Meta{PadID: 3, MACAddress: MAC{1, 2, 3, 4, 5, 6}})
	assert.Len(t, frame, headerSize+4+12)
	assert.Equal(t, MsgTypePortInfo, binary.LittleEndian.Uint32(frame[16:20]))
	assert.Equal(t, uint8(3), frame[20])
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6}, frame[24:30])
}

func TestBuildVersionResponse(t *testing.T) {
	frame := buildVersionResponse(outVersion, 42)
	assert.Len(t, frame, headerSize+4+4)
	assert.Equal(t, MsgTypeVersionRsp, binary.LittleEndian.Uint32(frame[16:20]))
	assert.EqualValues(t, MaxProtocolVer, binary.LittleEndian.Uint32(frame[20:24]))
}
