// Package control implements steamdsud's local management API: a small
// authenticated TCP protocol for listing occupied controller slots,
// detaching one, and health-checking the daemon, mirroring the ambient
// USB-IP server's line-oriented command API but scoped to DSU concerns.
package control

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/nyxbridge/steamdsu/dsu"
)

// ServerConfig configures the control API listener.
type ServerConfig struct {
	Addr    string        `help:"Control API listen address" default:"127.0.0.1:3243" env:"STEAMDSU_CONTROL_ADDR"`
	Key     string        `help:"Control API pre-shared key (auto-generated and persisted if unset)" env:"STEAMDSU_CONTROL_KEY"`
	Timeout time.Duration `help:"Connection idle timeout" default:"30s" env:"STEAMDSU_CONTROL_TIMEOUT"`
}

// Server is the control API's TCP listener.
type Server struct {
	dsuSrv *dsu.Server
	addr   string
	key    []byte
	config ServerConfig
	logger *slog.Logger

	ln     net.Listener
	router *Router
}

// New builds a control Server bound to dsuSrv. cfg.Key is stretched via
// DeriveKey once at construction.
func New(dsuSrv *dsu.Server, cfg ServerConfig, logger *slog.Logger) (*Server, error) {
	key, err := DeriveKey(cfg.Key)
	if err != nil {
		return nil, err
	}
	s := &Server{
		dsuSrv: dsuSrv,
		addr:   cfg.Addr,
		key:    key,
		config: cfg,
		logger: logger,
		router: NewRouter(),
	}
	s.router.Register("ping", s.handlePing)
	s.router.Register("slots.list", s.handleSlotsList)
	s.router.Register("slots.remove", s.handleSlotsRemove)
	s.router.Register("slots.attachsynthetic", s.handleSlotsAttachSynthetic)
	return s, nil
}

// Start listens on the configured address and begins serving connections.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.logger.Info("control api listening", "addr", s.addr)
	go s.serve()
	return nil
}

// Addr returns the listener's bound address, or nil if Start has not
// been called yet.
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Close stops accepting new connections.
func (s *Server) Close() {
	if s.ln != nil {
		_ = s.ln.Close()
	}
}

func (s *Server) serve() {
	for {
		c, err := s.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				s.logger.Info("control api stopped")
				return
			}
			s.logger.Warn("control api accept error", "error", err)
			return
		}
		go s.handleConn(c)
	}
}

func (s *Server) handleConn(raw net.Conn) {
	defer raw.Close()
	_ = raw.SetDeadline(time.Now().Add(s.config.Timeout))

	logger := s.logger.With("remote", raw.RemoteAddr().String())

	br := bufio.NewReader(raw)
	clientNonce, serverNonce, err := handleAuthHandshake(br, raw, s.key, false)
	if err != nil {
		logger.Warn("control api handshake failed", "error", err)
		return
	}

	// handleAuthHandshake already consumed the handshake bytes from br, so
	// the AEAD-wrapped conn keeps reading through br rather than raw
	// directly, to not lose any bytes br had buffered ahead.
	sessionKey := DeriveSessionKey(s.key, serverNonce, clientNonce)
	conn, err := wrapConn(&bufReaderConn{Conn: raw, r: br}, sessionKey, false)
	if err != nil {
		logger.Error("control api session setup failed", "error", err)
		return
	}

	s.serveCommands(conn, logger)
}

func (s *Server) serveCommands(conn net.Conn, logger *slog.Logger) {
	r := bufio.NewReader(conn)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			if err != io.EOF {
				logger.Debug("control api read error", "error", err)
			}
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		name, payload, _ := strings.Cut(line, " ")
		handler := s.router.Match(strings.ToLower(name))
		if handler == nil {
			s.writeError(conn, errNotFound(fmt.Sprintf("unknown command: %s", name)))
			continue
		}

		req := &Request{Payload: payload}
		res := &Response{}
		if err := handler(req, res, logger); err != nil {
			s.writeError(conn, err)
			continue
		}
		s.writeOK(conn, res.JSON)
	}
}

func (s *Server) writeError(w io.Writer, err error) {
	body, _ := json.Marshal(wrapError(err))
	fmt.Fprintf(w, "%s\n", body)
}

func (s *Server) writeOK(w io.Writer, body string) {
	if body == "" {
		fmt.Fprintln(w)
		return
	}
	fmt.Fprintf(w, "%s\n", body)
}

func (s *Server) handlePing(_ *Request, res *Response, _ *slog.Logger) error {
	body, err := json.Marshal(PingResponse{Server: "steamdsud", ClientCount: s.dsuSrv.ClientCount()})
	if err != nil {
		return err
	}
	res.JSON = string(body)
	return nil
}

func (s *Server) handleSlotsList(_ *Request, res *Response, _ *slog.Logger) error {
	snapshots := s.dsuSrv.Slots()
	out := make([]SlotInfo, len(snapshots))
	for i, snap := range snapshots {
		info := SlotInfo{Index: snap.Index, Occupied: snap.Occupied, LastReportAgeMs: snap.LastReportAge.Milliseconds()}
		if snap.Meta != nil {
			info.PadID = snap.Meta.PadID
			info.MACAddress = snap.Meta.MACAddress.String()
			info.ConnectionType = connectionTypeName(snap.Meta.ConnectionType)
		}
		if snap.Report != nil {
			info.Report = &SlotReport{
				PacketCounter: snap.Report.PacketCounter,
				Buttons:       pressedButtonNames(snap.Report.Button),
				LeftStick:     [2]uint8{snap.Report.Position.Left.X, snap.Report.Position.Left.Y},
				RightStick:    [2]uint8{snap.Report.Position.Right.X, snap.Report.Position.Right.Y},
			}
		}
		out[i] = info
	}
	body, err := json.Marshal(SlotsListResponse{Slots: out, ClientCount: s.dsuSrv.ClientCount()})
	if err != nil {
		return err
	}
	res.JSON = string(body)
	return nil
}

func (s *Server) handleSlotsRemove(req *Request, res *Response, _ *slog.Logger) error {
	idx, err := strconv.Atoi(strings.TrimSpace(req.Payload))
	if err != nil || idx < 0 || idx >= dsu.NumSlots {
		return errBadRequest(fmt.Sprintf("invalid slot index: %q", req.Payload))
	}
	if err := s.dsuSrv.RemoveController(&idx); err != nil {
		return errInternal(err.Error())
	}
	res.JSON = ""
	return nil
}

// handleSlotsAttachSynthetic occupies the lowest free slot with a
// hardware-less dsu.SyntheticController, for test harnesses that need to
// exercise the DSU fan-out path without a real Steam Controller/Deck.
func (s *Server) handleSlotsAttachSynthetic(_ *Request, res *Response, _ *slog.Logger) error {
	ctrl := dsu.NewSyntheticController()
	assigned, idx := s.dsuSrv.AddController(ctrl)
	if !assigned {
		ctrl.Close()
		return errInternal("no free controller slot")
	}
	body, err := json.Marshal(AttachSyntheticResponse{Index: idx})
	if err != nil {
		return err
	}
	res.JSON = string(body)
	return nil
}

// pressedButtonNames lists only the buttons currently held, so an idle
// report renders as an empty (omitted) list instead of sixteen false flags.
func pressedButtonNames(b dsu.Buttons) []string {
	var names []string
	add := func(pressed bool, name string) {
		if pressed {
			names = append(names, name)
		}
	}
	add(b.Cross, "cross")
	add(b.Circle, "circle")
	add(b.Square, "square")
	add(b.Triangle, "triangle")
	add(b.L1, "l1")
	add(b.R1, "r1")
	add(b.L2, "l2")
	add(b.R2, "r2")
	add(b.L3, "l3")
	add(b.R3, "r3")
	add(b.Options, "options")
	add(b.Share, "share")
	add(b.PS, "ps")
	add(b.Touch, "touch")
	add(b.DPadUp, "dpad_up")
	add(b.DPadDown, "dpad_down")
	add(b.DPadLeft, "dpad_left")
	add(b.DPadRight, "dpad_right")
	return names
}

func connectionTypeName(c dsu.ConnectionType) string {
	switch c {
	case dsu.ConnUSB:
		return "usb"
	case dsu.ConnBluetooth:
		return "bluetooth"
	default:
		return "none"
	}
}

// bufReaderConn adapts a net.Conn plus an already-populated *bufio.Reader
// (which may hold bytes read past the handshake) so nothing sent by the
// client before the AEAD takes over is lost.
type bufReaderConn struct {
	net.Conn
	r *bufio.Reader
}

func (b *bufReaderConn) Read(p []byte) (int, error) { return b.r.Read(p) }
