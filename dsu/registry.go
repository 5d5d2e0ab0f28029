package dsu

import (
	"net/netip"
	"sync"
	"time"
)

// Endpoint is a (IP address, UDP port) pair used as the client registry's
// map key. Two endpoints compare equal iff both fields match exactly, by
// value — never by the identity of the *net.UDPAddr that produced them.
// See spec.md §9 "Client endpoint identity".
type Endpoint struct {
	Addr netip.Addr
	Port uint16
}

// subscription is a per-endpoint record of the three registration
// dimensions a client can renew independently.
type subscription struct {
	timeAllPads time.Time
	timePerPad  [NumSlots]time.Time
	timePerMac  map[MAC]time.Time
}

func (s *subscription) stale(now time.Time, limit time.Duration) bool {
	if now.Sub(s.timeAllPads) < limit {
		return false
	}
	for _, t := range s.timePerPad {
		if now.Sub(t) < limit {
			return false
		}
	}
	for _, t := range s.timePerMac {
		if now.Sub(t) < limit {
			return false
		}
	}
	return true
}

// Registry tracks subscribed clients and evicts them once every
// registration dimension has gone stale. Per spec.md §5, the UDP read
// loop, each attached controller's report-pump goroutine, and the control
// API's per-connection goroutines all reach into the same Registry
// concurrently, so every method locks mu around the shared clients map.
type Registry struct {
	mu      sync.Mutex
	timeout time.Duration
	clients map[Endpoint]*subscription
}

// NewRegistry creates a Registry that evicts subscriptions unrenewed for
// longer than timeout.
func NewRegistry(timeout time.Duration) *Registry {
	return &Registry{
		timeout: timeout,
		clients: make(map[Endpoint]*subscription),
	}
}

func (r *Registry) entry(ep Endpoint) *subscription {
	s, ok := r.clients[ep]
	if !ok {
		s = &subscription{timePerMac: make(map[MAC]time.Time)}
		r.clients[ep] = s
	}
	return s
}

// RegisterAllPads renews ep's "subscribe to all pads" timestamp.
func (r *Registry) RegisterAllPads(ep Endpoint, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entry(ep).timeAllPads = now
}

// RegisterByPadID renews ep's per-slot timestamp for padID. No-op if
// padID is out of range.
func (r *Registry) RegisterByPadID(ep Endpoint, padID uint8, now time.Time) {
	if padID >= NumSlots {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entry(ep).timePerPad[padID] = now
}

// RegisterByMAC renews ep's per-MAC timestamp for mac.
func (r *Registry) RegisterByMAC(ep Endpoint, mac MAC, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entry(ep).timePerMac[mac] = now
}

// ClientsFor returns every endpoint currently interested in reports from
// the pad described by meta, evicting any endpoint found fully stale
// along the way. See spec.md §4.2 for the interest and eviction rules.
func (r *Registry) ClientsFor(meta Meta, now time.Time) []Endpoint {
	r.mu.Lock()
	defer r.mu.Unlock()

	var interested []Endpoint
	for ep, sub := range r.clients {
		if sub.stale(now, r.timeout) {
			delete(r.clients, ep)
			continue
		}

		switch {
		case now.Sub(sub.timeAllPads) < r.timeout:
			interested = append(interested, ep)
		case meta.PadID < NumSlots && now.Sub(sub.timePerPad[meta.PadID]) < r.timeout:
			interested = append(interested, ep)
		default:
			if t, ok := sub.timePerMac[meta.MACAddress]; ok && now.Sub(t) < r.timeout {
				interested = append(interested, ep)
			}
		}
	}
	return interested
}

// Clear removes every tracked subscription.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients = make(map[Endpoint]*subscription)
}

// Len reports the number of tracked (not necessarily still-live)
// subscriptions; primarily useful for tests and status reporting.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}
