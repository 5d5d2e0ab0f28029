package control

import (
	"bufio"
	"encoding/json"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/nyxbridge/steamdsu/dsu"
	"github.com/stretchr/testify/require"
)

func dialAndAuthenticate(t *testing.T, addr string, key string) net.Conn {
	t.Helper()
	conn, err := Dial(addr, key)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestControlServer_PingRoundTrip(t *testing.T) {
	dsuSrv := dsu.New()
	srv, err := New(dsuSrv, ServerConfig{Addr: "127.0.0.1:0", Key: "test-key", Timeout: 5 * time.Second}, slog.Default())
	require.NoError(t, err)
	require.NoError(t, srv.Start())
	t.Cleanup(srv.Close)

	conn := dialAndAuthenticate(t, srv.ln.Addr().String(), "test-key")

	_, err = conn.Write([]byte("ping\n"))
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	line, err := bufio.NewReader(conn).ReadString('\n')
	require.NoError(t, err)

	var resp PingResponse
	require.NoError(t, json.Unmarshal([]byte(line), &resp))
	require.Equal(t, "steamdsud", resp.Server)
}

func TestControlServer_WrongKeyRejected(t *testing.T) {
	dsuSrv := dsu.New()
	srv, err := New(dsuSrv, ServerConfig{Addr: "127.0.0.1:0", Key: "right-key", Timeout: 5 * time.Second}, slog.Default())
	require.NoError(t, err)
	require.NoError(t, srv.Start())
	t.Cleanup(srv.Close)

	raw, err := net.Dial("tcp", srv.ln.Addr().String())
	require.NoError(t, err)
	defer raw.Close()

	derivedKey, err := DeriveKey("wrong-key")
	require.NoError(t, err)
	br := bufio.NewReader(raw)
	_, _, err = handleAuthHandshake(br, raw, derivedKey, true)
	require.Error(t, err)
}

func TestControlServer_SlotsList(t *testing.T) {
	dsuSrv := dsu.New()
	srv, err := New(dsuSrv, ServerConfig{Addr: "127.0.0.1:0", Key: "test-key", Timeout: 5 * time.Second}, slog.Default())
	require.NoError(t, err)
	require.NoError(t, srv.Start())
	t.Cleanup(srv.Close)

	conn := dialAndAuthenticate(t, srv.ln.Addr().String(), "test-key")
	_, err = conn.Write([]byte("slots.list\n"))
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	line, err := bufio.NewReader(conn).ReadString('\n')
	require.NoError(t, err)

	var resp SlotsListResponse
	require.NoError(t, json.Unmarshal([]byte(line), &resp))
	require.Len(t, resp.Slots, dsu.NumSlots)
	for _, slot := range resp.Slots {
		require.False(t, slot.Occupied)
	}
}
