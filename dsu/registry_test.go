package dsu

import (
	"net"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ep(port uint16) Endpoint {
	return Endpoint{Addr: netip.MustParseAddr("192.168.1.50"), Port: port}
}

func TestRegistry_AllPadsSubscriptionCoversAnyMeta(t *testing.T) {
	r := NewRegistry(5 * time.Second)
	now := time.Now()
	r.RegisterAllPads(ep(1), now)

	clients := r.ClientsFor(Meta{PadID: 3, MACAddress: MAC{9, 9, 9, 9, 9, 9}}, now)
	assert.Equal(t, []Endpoint{ep(1)}, clients)
}

func TestRegistry_PerPadSubscriptionOnlyMatchesThatPad(t *testing.T) {
	r := NewRegistry(5 * time.Second)
	now := time.Now()
	r.RegisterByPadID(ep(1), 2, now)

	assert.Equal(t, []Endpoint{ep(1)}, r.ClientsFor(Meta{PadID: 2}, now))
	assert.Empty(t, r.ClientsFor(Meta{PadID: 3}, now))
}

func TestRegistry_PerMACSubscriptionOnlyMatchesThatMAC(t *testing.T) {
	r := NewRegistry(5 * time.Second)
	now := time.Now()
	mac := MAC{1, 2, 3, 4, 5, 6}
	r.RegisterByMAC(ep(1), mac, now)

	assert.Equal(t, []Endpoint{ep(1)}, r.ClientsFor(Meta{PadID: 0, MACAddress: mac}, now))
	assert.Empty(t, r.ClientsFor(Meta{PadID: 0, MACAddress: MAC{9}}, now))
}

func TestRegistry_BothDimensionsIndependentlyRenewable(t *testing.T) {
	r := NewRegistry(5 * time.Second)
	now := time.Now()
	mac := MAC{1, 2, 3, 4, 5, 6}
	r.RegisterByPadID(ep(1), 0, now)
	r.RegisterByMAC(ep(1), mac, now)

	assert.Equal(t, []Endpoint{ep(1)}, r.ClientsFor(Meta{PadID: 0, MACAddress: mac}, now))
	// Advance past timeout for the pad-id dimension only.
	later := now.Add(6 * time.Second)
	r.RegisterByMAC(ep(1), mac, later)
	assert.Equal(t, []Endpoint{ep(1)}, r.ClientsFor(Meta{PadID: 0, MACAddress: mac}, later))
}

func TestRegistry_EvictsFullyStaleClient(t *testing.T) {
	r := NewRegistry(5 * time.Second)
	now := time.Now()
	r.RegisterAllPads(ep(1), now)
	assert.Equal(t, 1, r.Len())

	later := now.Add(6 * time.Second)
	clients := r.ClientsFor(Meta{}, later)
	assert.Empty(t, clients)
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_ClearRemovesEverything(t *testing.T) {
	r := NewRegistry(5 * time.Second)
	now := time.Now()
	r.RegisterAllPads(ep(1), now)
	r.RegisterAllPads(ep(2), now)
	r.Clear()
	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.ClientsFor(Meta{}, now))
}

func TestRegistry_EndpointIdentityIsByValueNotByPointer(t *testing.T) {
	r := NewRegistry(5 * time.Second)
	now := time.Now()

	a1 := &net.UDPAddr{IP: net.ParseIP("10.0.0.5"), Port: 9000}
	a2 := &net.UDPAddr{IP: net.ParseIP("10.0.0.5"), Port: 9000}
	require.NotSame(t, a1, a2)

	r.RegisterAllPads(endpointOf(a1), now)
	r.RegisterAllPads(endpointOf(a2), now)

	assert.Equal(t, 1, r.Len(), "two distinct *net.UDPAddr values with the same IP:port must collapse to one subscription")
}
