package dsu

import (
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startTestServer(t *testing.T) (*Server, *net.UDPConn) {
	t.Helper()
	s := New()
	require.NoError(t, s.Start("127.0.0.1", 0))
	t.Cleanup(func() { _ = s.Stop() })

	clientConn, err := net.DialUDP("udp4", nil, s.Addr().(*net.UDPAddr))
	require.NoError(t, err)
	t.Cleanup(func() { _ = clientConn.Close() })
	return s, clientConn
}

func recvFrame(t *testing.T, conn *net.UDPConn) []byte {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 2048)
	n, err := conn.Read(buf)
	require.NoError(t, err)
	return buf[:n]
}

func TestServer_VersionHandshake(t *testing.T) {
	_, conn := startTestServer(t)

	_, err := conn.Write(buildClientFrame(t, MaxProtocolVer, MsgTypeVersionReq, nil))
	require.NoError(t, err)

	resp := recvFrame(t, conn)
	require.Len(t, resp, 24)
	assert.Equal(t, MsgTypeVersionRsp, binary.LittleEndian.Uint32(resp[16:20]))
}

func TestServer_ListPorts_EmptySlots(t *testing.T) {
	_, conn := startTestServer(t)

	body := make([]byte, 8)
	binary.LittleEndian.PutUint32(body[0:4], 4)
	body[4], body[5], body[6], body[7] = 0, 1, 2, 3
	frame := buildClientFrame(t, MaxProtocolVer, MsgTypeListPorts, body)

	_, err := conn.Write(frame)
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(300*time.Millisecond)))
	buf := make([]byte, 64)
	_, err = conn.Read(buf)
	assert.Error(t, err, "no PORT_INFO replies expected when every slot is empty")
}

func TestServer_PadDataSubscriptionAndFanout(t *testing.T) {
	s, conn := startTestServer(t)

	body := make([]byte, 8)
	frame := buildClientFrame(t, MaxProtocolVer, MsgTypePadDataReq, body)
	_, err := conn.Write(frame)
	require.NoError(t, err)
	// The registration is processed on the server's read loop; wait for it
	// so the report below is not fanned out before the client is known.
	require.Eventually(t, func() bool { return s.ClientCount() == 1 }, 2*time.Second, time.Millisecond)

	c := newFakeController(0)
	ok, idx := s.AddController(c)
	require.True(t, ok)
	require.Equal(t, 0, idx)

	c.reports <- NormalizedReport{PacketCounter: 7}

	resp := recvFrame(t, conn)
	require.Len(t, resp, 100)
	assert.Equal(t, MsgTypePadDataRsp, binary.LittleEndian.Uint32(resp[16:20]))
	assert.EqualValues(t, 7, binary.LittleEndian.Uint32(resp[32:36]))
}

func TestServer_TamperedCRCIsSilentlyDropped(t *testing.T) {
	_, conn := startTestServer(t)

	frame := buildClientFrame(t, MaxProtocolVer, MsgTypeVersionReq, nil)
	frame[len(frame)-1] ^= 0xFF

	_, err := conn.Write(frame)
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(300*time.Millisecond)))
	buf := make([]byte, 64)
	_, err = conn.Read(buf)
	assert.Error(t, err, "a datagram with a bad CRC must never produce a reply")
}

func TestServer_RemoveController_SlotZero(t *testing.T) {
	s := New()
	c := newFakeController(0)
	ok, idx := s.AddController(c)
	require.True(t, ok)
	require.Equal(t, 0, idx)

	err := s.RemoveController(&idx)
	assert.NoError(t, err)
	assert.Equal(t, 0, s.SlotOccupancy())
}
