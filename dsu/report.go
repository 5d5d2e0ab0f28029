package dsu

// Buttons holds the named-button and D-pad state of a single report.
type Buttons struct {
	Cross, Circle, Square, Triangle bool
	L1, R1, L2, R2                  bool
	L3, R3                          bool
	Options, Share                  bool
	PS, Touch                       bool

	DPadUp, DPadDown, DPadLeft, DPadRight bool
}

// Stick is a single analog stick position, each axis in [0,255].
type Stick struct {
	X, Y uint8
}

// Position holds both analog sticks of a report.
type Position struct {
	Left, Right Stick
}

// Trigger holds both analog trigger positions of a report.
type Trigger struct {
	L2, R2 uint8
}

// Touch is a single trackpad contact point.
type Touch struct {
	IsActive bool
	ID       uint8
	X, Y     uint16
}

// TrackPad holds both trackpad contact slots of a report.
type TrackPad struct {
	First, Second Touch
}

// Vec3 is a 3-axis IEEE-754 float32 sample (accelerometer or gyroscope).
type Vec3 struct {
	X, Y, Z float32
}

// NormalizedReport is the common "DualShock-shaped" report model that HID
// producers (§6 external collaborators) emit and that the slot table fans
// out to interested clients.
type NormalizedReport struct {
	PacketCounter uint32

	Button  Buttons
	Position Position
	Trigger  Trigger
	TrackPad TrackPad

	// MotionTimestampUS is a 64-bit monotonically increasing microsecond
	// counter, stored as low/high 32-bit halves on the wire.
	MotionTimestampUS uint64

	Accelerometer Vec3
	Gyro          Vec3
}
