package dsu

import (
	"encoding/binary"
	"math"
)

// PadDataBodySize is the DSUS_PadDataRsp body length (total datagram minus
// the 16-byte header): 4-byte message type + 80 bytes of pad data.
const PadDataBodySize = 84

// PadDataDatagramSize is the total length of a DSUS_PadDataRsp datagram.
const PadDataDatagramSize = headerSize + PadDataBodySize

// buildPadDataResponse renders meta+report into the exact 100-byte
// DSUS_PadDataRsp datagram described in spec.md §4.4. Offsets below are
// body-relative (body[0] == datagram offset 16, the start of the message
// type field).
func buildPadDataResponse(version uint16, serverID uint32, meta Meta, r NormalizedReport) []byte {
	body := make([]byte, PadDataBodySize)

	body[4] = meta.PadID
	body[5] = uint8(meta.State)
	body[6] = uint8(meta.Model)
	body[7] = uint8(meta.ConnectionType)
	copy(body[8:14], meta.MACAddress[:])
	body[14] = meta.BatteryStatus
	body[15] = boolByte(meta.IsActive)

	binary.LittleEndian.PutUint32(body[16:20], r.PacketCounter)

	var a uint8
	if r.Button.DPadLeft {
		a |= 1 << 7
	}
	if r.Button.DPadDown {
		a |= 1 << 6
	}
	if r.Button.DPadRight {
		a |= 1 << 5
	}
	if r.Button.DPadUp {
		a |= 1 << 4
	}
	if r.Button.Options {
		a |= 1 << 3
	}
	if r.Button.R3 {
		a |= 1 << 2
	}
	if r.Button.L3 {
		a |= 1 << 1
	}
	if r.Button.Share {
		a |= 1 << 0
	}
	body[20] = a

	var b uint8
	if r.Button.Square {
		b |= 1 << 7
	}
	if r.Button.Cross {
		b |= 1 << 6
	}
	if r.Button.Circle {
		b |= 1 << 5
	}
	if r.Button.Triangle {
		b |= 1 << 4
	}
	if r.Button.R1 {
		b |= 1 << 3
	}
	if r.Button.L1 {
		b |= 1 << 2
	}
	if r.Button.R2 {
		b |= 1 << 1
	}
	if r.Button.L2 {
		b |= 1 << 0
	}
	body[21] = b

	body[22] = boolByte(r.Button.PS)
	body[23] = boolByte(r.Button.Touch)

	body[24] = r.Position.Left.X
	body[25] = r.Position.Left.Y
	body[26] = r.Position.Right.X
	body[27] = r.Position.Right.Y

	body[28] = analogByte(r.Button.DPadLeft)
	body[29] = analogByte(r.Button.DPadDown)
	body[30] = analogByte(r.Button.DPadRight)
	body[31] = analogByte(r.Button.DPadUp)

	body[32] = analogByte(r.Button.Square)
	body[33] = analogByte(r.Button.Cross)
	body[34] = analogByte(r.Button.Circle)
	body[35] = analogByte(r.Button.Triangle)

	body[36] = analogByte(r.Button.R1)
	body[37] = analogByte(r.Button.L1)

	body[38] = r.Trigger.R2
	body[39] = r.Trigger.L2

	body[40] = boolByte(r.TrackPad.First.IsActive)
	body[41] = r.TrackPad.First.ID
	binary.LittleEndian.PutUint16(body[42:44], r.TrackPad.First.X)
	binary.LittleEndian.PutUint16(body[44:46], r.TrackPad.First.Y)

	body[46] = boolByte(r.TrackPad.Second.IsActive)
	body[47] = r.TrackPad.Second.ID
	binary.LittleEndian.PutUint16(body[48:50], r.TrackPad.Second.X)
	binary.LittleEndian.PutUint16(body[50:52], r.TrackPad.Second.Y)

	binary.LittleEndian.PutUint64(body[52:60], r.MotionTimestampUS)

	binary.LittleEndian.PutUint32(body[60:64], math.Float32bits(r.Accelerometer.X))
	binary.LittleEndian.PutUint32(body[64:68], math.Float32bits(r.Accelerometer.Y))
	binary.LittleEndian.PutUint32(body[68:72], math.Float32bits(r.Accelerometer.Z))

	binary.LittleEndian.PutUint32(body[72:76], math.Float32bits(r.Gyro.X))
	binary.LittleEndian.PutUint32(body[76:80], math.Float32bits(r.Gyro.Y))
	binary.LittleEndian.PutUint32(body[80:84], math.Float32bits(r.Gyro.Z))

	return encodeFrame(version, serverID, MsgTypePadDataRsp, body[4:])
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

func analogByte(pressed bool) uint8 {
	if pressed {
		return 0xFF
	}
	return 0x00
}

// buildPortInfoResponse renders a 16-byte-body DSUS_PortInfo reply for one
// requested pad slot.
func buildPortInfoResponse(version uint16, serverID uint32, meta Meta) []byte {
	body := make([]byte, 12)
	body[0] = meta.PadID
	body[1] = uint8(meta.State)
	body[2] = uint8(meta.Model)
	body[3] = uint8(meta.ConnectionType)
	copy(body[4:10], meta.MACAddress[:])
	body[10] = meta.BatteryStatus
	// body[11] trailing zero byte (is-pad-active in some clients; unused here).
	return encodeFrame(version, serverID, MsgTypePortInfo, body)
}

// buildVersionResponse renders the 8-byte-body DSUS_VersionRsp reply.
func buildVersionResponse(version uint16, serverID uint32) []byte {
	body := make([]byte, 4)
	binary.LittleEndian.PutUint32(body[0:4], uint32(MaxProtocolVer))
	return encodeFrame(version, serverID, MsgTypeVersionRsp, body)
}
