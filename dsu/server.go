package dsu

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"sync"
	"time"
)

// RawLogger optionally records every inbound/outbound datagram, e.g. for
// wire-format debugging. See internal/log.RawLogger for the concrete
// implementation used by cmd/steamdsud.
type RawLogger interface {
	Log(in bool, data []byte)
}

type noopRawLogger struct{}

func (noopRawLogger) Log(bool, []byte) {}

// Server owns the UDP socket, the client registry, and the controller
// slot table, and wires controller report streams into the dispatcher's
// fan-out. See spec.md §4.6 and §5.
type Server struct {
	logger    *slog.Logger
	rawLogger RawLogger

	serverID uint32
	registry *Registry
	slots    *SlotTable
	dispatch *Dispatcher

	mu   sync.Mutex
	conn *net.UDPConn

	lastReportMu sync.Mutex
	lastReport   [NumSlots]time.Time

	errCh chan error
}

// Option configures a Server at construction time.
type Option func(*Server)

// WithLogger attaches a structured logger. The zero value uses slog's
// default logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithRawLogger attaches a raw packet hex-dump logger.
func WithRawLogger(rl RawLogger) Option {
	return func(s *Server) { s.rawLogger = rl }
}

// WithClientTimeout overrides ClientTimeoutLimit.
func WithClientTimeout(d time.Duration) Option {
	return func(s *Server) { s.registry = NewRegistry(d) }
}

// New constructs a Server with a fresh, process-lifetime-random server ID
// generated once via crypto/rand. Per SPEC_FULL.md, this ID is stable
// across Start/Stop cycles: subscribed clients survive a bind bounce
// without needing to resend a PAD_DATA request.
func New(opts ...Option) *Server {
	s := &Server{
		logger:    slog.Default(),
		rawLogger: noopRawLogger{},
		serverID:  randomServerID(),
		registry:  NewRegistry(ClientTimeoutLimit),
		slots:     NewSlotTable(),
		errCh:     make(chan error, 32),
	}
	for _, o := range opts {
		o(s)
	}
	s.dispatch = NewDispatcher(s.serverID, s.registry, s.slots)
	return s
}

func randomServerID() uint32 {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand failing is effectively unrecoverable, but the server
		// ID has no security role here; fall back rather than panic.
		return 0xC0FFEE
	}
	return binary.LittleEndian.Uint32(b[:])
}

// Errors returns the stream of non-fatal server errors described in
// spec.md §6/§7: transport errors, malformed datagrams, and forwarded
// controller errors.
func (s *Server) Errors() <-chan error {
	return s.errCh
}

func (s *Server) emitErr(err error) {
	select {
	case s.errCh <- err:
	default:
		s.logger.Warn("dsu: error channel full, dropping error", "error", err)
	}
}

// Start binds a UDP/IPv4 socket at address:port and begins serving. If a
// socket from a previous Start is still open, it is stopped first.
func (s *Server) Start(address string, port uint16) error {
	s.mu.Lock()
	if s.conn != nil {
		s.mu.Unlock()
		if err := s.Stop(); err != nil {
			return err
		}
		s.mu.Lock()
	}

	udpAddr, err := net.ResolveUDPAddr("udp4", fmt.Sprintf("%s:%d", address, port))
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("dsu: resolve bind address: %w", err)
	}
	conn, err := net.ListenUDP("udp4", udpAddr)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("dsu: bind: %w", err)
	}
	s.conn = conn
	s.mu.Unlock()

	s.logger.Info("dsu server listening", "addr", conn.LocalAddr())
	go s.readLoop(conn)
	return nil
}

// Stop unbinds the socket and clears handlers. Idempotent.
func (s *Server) Stop() error {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close()
}

// Addr returns the bound local address, or nil if the server is not
// currently listening.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	return s.conn.LocalAddr()
}

func (s *Server) readLoop(conn *net.UDPConn) {
	buf := make([]byte, 2048)
	for {
		n, from, err := conn.ReadFromUDP(buf)
		if err != nil {
			s.mu.Lock()
			stopped := s.conn != conn
			s.mu.Unlock()
			if stopped {
				return
			}
			s.emitErr(fmt.Errorf("dsu: read: %w", err))
			continue
		}

		data := append([]byte(nil), buf[:n]...)
		s.rawLogger.Log(true, data)
		s.handleDatagram(conn, data, from)
	}
}

func (s *Server) handleDatagram(conn *net.UDPConn, data []byte, from *net.UDPAddr) {
	ep := endpointOf(from)
	packets, err := s.dispatch.HandleDatagram(data, ep, time.Now())
	if err != nil {
		s.logger.Debug("dsu: dropping malformed datagram", "from", from, "error", err)
		s.emitErr(err)
		return
	}
	for _, p := range packets {
		s.send(conn, p)
	}
}

func (s *Server) send(conn *net.UDPConn, p outboundPacket) {
	addr := &net.UDPAddr{IP: p.to.Addr.AsSlice(), Port: int(p.to.Port)}
	s.rawLogger.Log(false, p.data)
	n, err := conn.WriteToUDP(p.data, addr)
	if err != nil {
		s.emitErr(fmt.Errorf("dsu: send to %s: %w", addr, err))
		return
	}
	if n != len(p.data) {
		s.emitErr(fmt.Errorf("dsu: short send to %s: wrote %d of %d bytes", addr, n, len(p.data)))
	}
}

// handleReport is invoked by the slot table for every report a controller
// emits; it fans the report out to every interested client.
func (s *Server) handleReport(padID uint8, r NormalizedReport) {
	if int(padID) < NumSlots {
		s.lastReportMu.Lock()
		s.lastReport[padID] = time.Now()
		s.lastReportMu.Unlock()
	}

	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return
	}
	packets, err := s.dispatch.FanoutReport(padID, r, time.Now())
	if err != nil {
		s.emitErr(err)
		return
	}
	for _, p := range packets {
		s.send(conn, p)
	}
}

// AddController installs c into the lowest empty slot. It reports whether
// a slot was available.
func (s *Server) AddController(c Controller) (assigned bool, index int) {
	idx, err := s.slots.AddController(c, s.handleReport, s.emitErr)
	if err != nil {
		return false, -1
	}
	return true, idx
}

// RemoveController releases the controller in slot i, or every slot if i
// is nil.
func (s *Server) RemoveController(i *int) error {
	if i == nil {
		s.slots.Clear()
		return nil
	}
	return s.slots.RemoveController(*i)
}

// ClearClients flushes the subscription table.
func (s *Server) ClearClients() {
	s.registry.Clear()
}

// SlotOccupancy reports how many of the four slots currently hold a
// controller.
func (s *Server) SlotOccupancy() int {
	return s.slots.Occupied()
}

// ClientCount reports how many subscriptions are currently tracked
// (including ones that would be evicted on the next ClientsFor sweep).
func (s *Server) ClientCount() int {
	return s.registry.Len()
}

// SlotSnapshot is a point-in-time view of one controller slot, for
// introspection by the control API and the interactive status view.
type SlotSnapshot struct {
	Index    int
	Occupied bool
	Meta     *Meta

	// LastReportAge is how long ago handleReport last fired for this slot,
	// or zero if the slot has never produced a report.
	LastReportAge time.Duration

	// Report is the slot's controller's most recently produced report, or
	// nil if the slot is empty or its controller hasn't reported yet.
	Report *NormalizedReport
}

// Slots returns a snapshot of every slot in index order.
func (s *Server) Slots() []SlotSnapshot {
	now := time.Now()
	out := make([]SlotSnapshot, NumSlots)
	for i := range out {
		meta := s.slots.MetaAt(i)
		report := s.slots.ReportAt(i)

		var age time.Duration
		s.lastReportMu.Lock()
		last := s.lastReport[i]
		s.lastReportMu.Unlock()
		if !last.IsZero() {
			age = now.Sub(last)
		}

		out[i] = SlotSnapshot{Index: i, Occupied: s.slots.Get(i) != nil, Meta: meta, LastReportAge: age, Report: report}
	}
	return out
}

func endpointOf(a *net.UDPAddr) Endpoint {
	addr, _ := netip.AddrFromSlice(a.IP)
	return Endpoint{Addr: addr.Unmap(), Port: uint16(a.Port)}
}
