// Package hidraw implements a dsu.Controller backed by a Valve Steam
// Controller/Steam Deck HID gamepad, read directly off a Linux hidraw
// device node and normalized into the DualShock-shaped report model the
// dsu package fans out to subscribers.
package hidraw

import (
	"encoding/binary"
	"fmt"

	"github.com/nyxbridge/steamdsu/dsu"
)

// Wire layout of a Steam Controller/Deck interrupt-IN report, grounded on
// SDL's SDL_hidapi_steamdeck.c framing: a 4-byte report header, a 4-byte
// little-endian packet counter, then a fixed-size decoded state payload.
const (
	headerSize      = 4
	packetNumOffset = headerSize
	payloadOffset   = 8
	payloadSize     = 52

	// MinReportSize is the minimum byte count DecodeReport accepts.
	MinReportSize = payloadOffset + payloadSize
)

// Button bitmasks for the Steam Controller/Deck input state, values taken
// from SDL's SDL_hidapi_steamdeck.c button table.
const (
	buttonR2 uint64 = 0x00000001
	buttonL2 uint64 = 0x00000002
	buttonRB uint64 = 0x00000004
	buttonLB uint64 = 0x00000008

	buttonY uint64 = 0x00000010
	buttonB uint64 = 0x00000020
	buttonX uint64 = 0x00000040
	buttonA uint64 = 0x00000080

	buttonDPadUp    uint64 = 0x00000100
	buttonDPadRight uint64 = 0x00000200
	buttonDPadLeft  uint64 = 0x00000400
	buttonDPadDown  uint64 = 0x00000800

	buttonView  uint64 = 0x00001000
	buttonSteam uint64 = 0x00002000
	buttonMenu  uint64 = 0x00004000

	buttonLeftPadClick  uint64 = 0x00020000
	buttonRightPadClick uint64 = 0x00040000

	buttonL3 uint64 = 0x00400000
	buttonR3 uint64 = 0x04000000
)

// Analog scale factors for the Steam Controller/Deck's onboard IMU: 2048
// LSB/g for the accelerometer and 16 LSB/(deg/s) for the gyroscope, values
// shared by the hidapi Steam Controller and Steam Deck drivers.
const (
	accelLSBPerG        = 2048.0
	gyroLSBPerDegPerSec = 16.0
	stdGravity          = 9.80665 // m/s^2 per g, for accelerometer output in m/s^2
)

// DecodeReport parses one raw Steam Controller/Deck interrupt-IN report
// into a dsu.NormalizedReport. It does not populate MotionTimestampUS;
// the caller stamps that from its own clock, since the device report
// itself carries no wall-clock reference.
func DecodeReport(raw []byte) (dsu.NormalizedReport, error) {
	if len(raw) < MinReportSize {
		return dsu.NormalizedReport{}, fmt.Errorf("hidraw: short report: got %d bytes, want at least %d", len(raw), MinReportSize)
	}

	packetNum := binary.LittleEndian.Uint32(raw[packetNumOffset:payloadOffset])
	payload := raw[payloadOffset : payloadOffset+payloadSize]

	buttons := binary.LittleEndian.Uint64(payload[0:8])
	o := 8
	getI16 := func() int16 {
		v := int16(binary.LittleEndian.Uint16(payload[o : o+2]))
		o += 2
		return v
	}
	getU16 := func() uint16 {
		v := binary.LittleEndian.Uint16(payload[o : o+2])
		o += 2
		return v
	}

	leftPadX, leftPadY := getI16(), getI16()
	rightPadX, rightPadY := getI16(), getI16()
	accelX, accelY, accelZ := getI16(), getI16(), getI16()
	gyroX, gyroY, gyroZ := getI16(), getI16(), getI16()
	// Gyro orientation quaternion (w,x,y,z): the DSU report model has no
	// slot for it, only raw angular velocity.
	o += 8
	triggerL, triggerR := getU16(), getU16()
	leftStickX, leftStickY := getI16(), getI16()
	rightStickX, rightStickY := getI16(), getI16()
	padPressureLeft, padPressureRight := getU16(), getU16()

	report := dsu.NormalizedReport{
		PacketCounter: packetNum,
		Button:        decodeButtons(buttons),
		Position: dsu.Position{
			Left:  stickFromAxes(leftStickX, leftStickY),
			Right: stickFromAxes(rightStickX, rightStickY),
		},
		Trigger: dsu.Trigger{
			L2: uint8(triggerL >> 8),
			R2: uint8(triggerR >> 8),
		},
		TrackPad: dsu.TrackPad{
			First:  touchFromPad(0, leftPadX, leftPadY, padPressureLeft),
			Second: touchFromPad(1, rightPadX, rightPadY, padPressureRight),
		},
		Accelerometer: dsu.Vec3{
			X: float32(accelX) / accelLSBPerG * stdGravity,
			Y: float32(accelY) / accelLSBPerG * stdGravity,
			Z: float32(accelZ) / accelLSBPerG * stdGravity,
		},
		Gyro: dsu.Vec3{
			X: float32(gyroX) / gyroLSBPerDegPerSec,
			Y: float32(gyroY) / gyroLSBPerDegPerSec,
			Z: float32(gyroZ) / gyroLSBPerDegPerSec,
		},
	}
	return report, nil
}

// decodeButtons maps the Steam Controller/Deck's 64-bit button mask onto
// the DualShock-shaped Buttons the DSU protocol expects. The extra rear
// paddles (L4/R4/L5/R5) and the quick-access button have no DualShock
// equivalent and are dropped.
func decodeButtons(mask uint64) dsu.Buttons {
	has := func(bit uint64) bool { return mask&bit != 0 }
	return dsu.Buttons{
		Cross:    has(buttonA),
		Circle:   has(buttonB),
		Square:   has(buttonX),
		Triangle: has(buttonY),

		L1: has(buttonLB),
		R1: has(buttonRB),
		L2: has(buttonL2),
		R2: has(buttonR2),

		L3: has(buttonL3),
		R3: has(buttonR3),

		Options: has(buttonMenu),
		Share:   has(buttonView),

		PS:    has(buttonSteam),
		Touch: has(buttonLeftPadClick) || has(buttonRightPadClick),

		DPadUp:    has(buttonDPadUp),
		DPadDown:  has(buttonDPadDown),
		DPadLeft:  has(buttonDPadLeft),
		DPadRight: has(buttonDPadRight),
	}
}

// stickFromAxes rescales a pair of signed 16-bit stick axes to the DSU
// protocol's [0,255] unsigned range, with 128 as center.
func stickFromAxes(x, y int16) dsu.Stick {
	return dsu.Stick{
		X: uint8((int32(x)+32768)>>8) & 0xFF,
		Y: uint8((int32(-y)+32768)>>8) & 0xFF,
	}
}

// touchFromPad converts one trackpad's raw signed coordinate pair into a
// DSU touch slot. Pressure above touchPressureThreshold marks the contact
// active; DSU trackpad coordinates are unsigned, so negative pad axes are
// shifted into the [0,65535] range the wire format uses.
const touchPressureThreshold = 0

func touchFromPad(id uint8, x, y int16, pressure uint16) dsu.Touch {
	return dsu.Touch{
		IsActive: pressure > touchPressureThreshold,
		ID:       id,
		X:        uint16(int32(x) + 32768),
		Y:        uint16(int32(y) + 32768),
	}
}
