package control

import (
	"crypto/hmac"
	"crypto/pbkdf2"
	"crypto/rand"
	"crypto/sha256"
	"errors"
)

const (
	autoGenKeyLength = 16
	base62Chars      = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	pbkdf2Iterations = 100000
	pbkdf2Salt       = "steamdsud-control-key-v1"
)

// GenerateKey creates a random 16-character base62 control API key.
func GenerateKey() (string, error) {
	randomBytes := make([]byte, autoGenKeyLength)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", err
	}
	key := make([]byte, autoGenKeyLength)
	for i, b := range randomBytes {
		key[i] = base62Chars[int(b)%62]
	}
	return string(key), nil
}

// DeriveKey stretches the control API key to 32 bytes via PBKDF2-SHA256.
func DeriveKey(key string) ([]byte, error) {
	if key == "" {
		return nil, errors.New("control: key cannot be empty")
	}
	return pbkdf2.Key(sha256.New, key, []byte(pbkdf2Salt), pbkdf2Iterations, 32)
}

// DeriveSessionKey mixes the stretched key with both handshake nonces into a
// fresh per-connection AEAD key.
func DeriveSessionKey(key, serverNonce, clientNonce []byte) []byte {
	h := sha256.New()
	h.Write(key)
	h.Write(serverNonce)
	h.Write(clientNonce)
	h.Write([]byte("steamdsud-control-session-v1"))
	return h.Sum(nil)
}

// deriveDirectionalKey splits a session key into two independent AEAD keys,
// one per direction, so a client-to-server frame and a server-to-client
// frame never reuse a nonce under the same key even at the same counter
// value.
func deriveDirectionalKey(sessionKey []byte, label string) []byte {
	mac := hmac.New(sha256.New, sessionKey)
	_, _ = mac.Write([]byte(label))
	return mac.Sum(nil)
}
