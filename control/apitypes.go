package control

import "fmt"

// Error is an RFC 7807 (problem+json)-flavored error response returned by
// the control API on any handler failure.
type Error struct {
	Status int    `json:"status"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

func (e Error) Error() string {
	if e.Status == 0 && e.Title == "" {
		return "unknown error"
	}
	return fmt.Sprintf("%d %s: %s", e.Status, e.Title, e.Detail)
}

func errBadRequest(detail string) Error   { return Error{Status: 400, Title: "Bad Request", Detail: detail} }
func errNotFound(detail string) Error     { return Error{Status: 404, Title: "Not Found", Detail: detail} }
func errUnauthorized(detail string) Error { return Error{Status: 401, Title: "Unauthorized", Detail: detail} }
func errInternal(detail string) Error     { return Error{Status: 500, Title: "Internal Server Error", Detail: detail} }

func wrapError(err error) Error {
	if err == nil {
		return Error{}
	}
	if ae, ok := err.(Error); ok {
		return ae
	}
	return errInternal(err.Error())
}

// SlotInfo describes one controller slot for the slots.list response.
type SlotInfo struct {
	Index          int    `json:"index"`
	Occupied       bool   `json:"occupied"`
	PadID          uint8  `json:"padId"`
	MACAddress     string `json:"macAddress,omitempty"`
	ConnectionType string `json:"connectionType,omitempty"`

	// LastReportAgeMs is how long ago the slot's controller last produced
	// a report, in milliseconds, or 0 if it never has.
	LastReportAgeMs int64 `json:"lastReportAgeMs,omitempty"`

	// Report is the slot's most recently produced input report snapshot,
	// or nil if the slot is empty or its controller hasn't reported yet.
	Report *SlotReport `json:"report,omitempty"`
}

// SlotReport is a compact view of a controller's most recent input report,
// for a status view that wants current stick/button state without
// subscribing to the DSU report stream itself.
type SlotReport struct {
	PacketCounter uint32   `json:"packetCounter"`
	Buttons       []string `json:"buttons,omitempty"`
	LeftStick     [2]uint8 `json:"leftStick"`
	RightStick    [2]uint8 `json:"rightStick"`
}

// SlotsListResponse is the payload for slots.list.
type SlotsListResponse struct {
	Slots       []SlotInfo `json:"slots"`
	ClientCount int        `json:"clientCount"`
}

// PingResponse is the payload for ping.
type PingResponse struct {
	Server      string `json:"server"`
	ClientCount int    `json:"clientCount"`
}

// AttachSyntheticResponse is the payload for slots.attachSynthetic.
type AttachSyntheticResponse struct {
	Index int `json:"index"`
}
