package control

import (
	"bytes"
	"crypto/cipher"
	"encoding/binary"
	"io"
	"net"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"
)

const maxFrameSize = 1 << 20 // 1 MiB; control payloads are small JSON documents.

// secureConn wraps a net.Conn with a per-session ChaCha20-Poly1305 AEAD.
// Each direction gets its own key, derived from the shared session key by
// deriveDirectionalKey, so a client-to-server frame and a server-to-client
// frame never share a (key, nonce) pair even when their counters collide.
// Frames are length-prefixed sealed packets.
type secureConn struct {
	net.Conn
	sendAEAD cipher.AEAD
	recvAEAD cipher.AEAD
	sendCtr  uint64
	recvBuf  bytes.Buffer
	mu       sync.Mutex
}

const (
	directionClientToServer = "steamdsud-control-c2s-v1"
	directionServerToClient = "steamdsud-control-s2c-v1"
)

// wrapConn establishes the AEAD over conn using sessionKey, derived earlier
// via DeriveSessionKey. isClient selects which directional key this end
// sends with and which it receives with.
func wrapConn(conn net.Conn, sessionKey []byte, isClient bool) (net.Conn, error) {
	c2s, err := chacha20poly1305.New(deriveDirectionalKey(sessionKey, directionClientToServer))
	if err != nil {
		return nil, err
	}
	s2c, err := chacha20poly1305.New(deriveDirectionalKey(sessionKey, directionServerToClient))
	if err != nil {
		return nil, err
	}
	if isClient {
		return &secureConn{Conn: conn, sendAEAD: c2s, recvAEAD: s2c}, nil
	}
	return &secureConn{Conn: conn, sendAEAD: s2c, recvAEAD: c2s}, nil
}

func (s *secureConn) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	nonce := make([]byte, chacha20poly1305.NonceSize)
	binary.BigEndian.PutUint64(nonce[4:], s.sendCtr)
	s.sendCtr++

	ct := s.sendAEAD.Seal(nil, nonce, p, nil)
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(nonce)+len(ct)))

	if _, err := s.Conn.Write(hdr[:]); err != nil {
		return 0, err
	}
	if _, err := s.Conn.Write(nonce); err != nil {
		return 0, err
	}
	if _, err := s.Conn.Write(ct); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (s *secureConn) Read(p []byte) (int, error) {
	if s.recvBuf.Len() == 0 {
		var hdr [4]byte
		if _, err := io.ReadFull(s.Conn, hdr[:]); err != nil {
			return 0, err
		}
		length := binary.BigEndian.Uint32(hdr[:])
		if length > maxFrameSize {
			return 0, io.ErrUnexpectedEOF
		}

		pkt := make([]byte, length)
		if _, err := io.ReadFull(s.Conn, pkt); err != nil {
			return 0, err
		}

		nonce, ct := pkt[:chacha20poly1305.NonceSize], pkt[chacha20poly1305.NonceSize:]
		pt, err := s.recvAEAD.Open(nil, nonce, ct, nil)
		if err != nil {
			return 0, err
		}
		s.recvBuf.Write(pt)
	}
	return s.recvBuf.Read(p)
}
