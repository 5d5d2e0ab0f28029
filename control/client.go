package control

import (
	"bufio"
	"net"
	"time"
)

// Dial connects to a control API listener at addr, performs the
// authenticated handshake with key, and returns an AEAD-wrapped
// connection ready for newline-delimited command/response traffic.
func Dial(addr, key string) (net.Conn, error) {
	raw, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		return nil, err
	}

	derivedKey, err := DeriveKey(key)
	if err != nil {
		_ = raw.Close()
		return nil, err
	}

	br := bufio.NewReader(raw)
	clientNonce, serverNonce, err := handleAuthHandshake(br, raw, derivedKey, true)
	if err != nil {
		_ = raw.Close()
		return nil, err
	}

	sessionKey := DeriveSessionKey(derivedKey, serverNonce, clientNonce)
	conn, err := wrapConn(&bufReaderConn{Conn: raw, r: br}, sessionKey, true)
	if err != nil {
		_ = raw.Close()
		return nil, err
	}
	return conn, nil
}
