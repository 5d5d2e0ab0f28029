package hidraw

// USB identifiers for Valve's Steam Controller and Steam Deck (Jupiter),
// grounded on the vendor/product IDs SDL's hidapi backends match against.
const (
	ValveVendorID       uint16 = 0x28de
	SteamDeckProductID  uint16 = 0x1205
	SteamControllerPID  uint16 = 0x1102
	SteamControllerPID2 uint16 = 0x1142 // wireless dongle variant
)
