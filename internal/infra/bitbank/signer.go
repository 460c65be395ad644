// Package bitbank implements the exchange connectivity layer: the
// authenticated REST client, the socket.io market-data stream, and the
// public candlestick endpoint.
package bitbank

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"sync"
)

// Signer produces the ACCESS-* authentication headers for private REST
// calls. The signature is a hex HMAC-SHA256 over the nonce followed by
// the request path (GET, query string included) or the raw body (POST).
type Signer struct {
	key    string
	secret []byte

	mu        sync.Mutex
	lastNonce int64
}

func NewSigner(key, secret string) *Signer {
	return &Signer{key: key, secret: []byte(secret)}
}

// Sign returns the hex signature for the given nonce and message.
func (s *Signer) Sign(nonce, message string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(nonce + message))
	return hex.EncodeToString(mac.Sum(nil))
}

// Nonce returns a strictly increasing millisecond nonce. The exchange
// rejects any nonce at or below the last accepted one, so concurrent
// callers must never observe the same value.
func (s *Signer) Nonce(nowMillis int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if nowMillis <= s.lastNonce {
		nowMillis = s.lastNonce + 1
	}
	s.lastNonce = nowMillis
	return strconv.FormatInt(nowMillis, 10)
}

// Authorize stamps the auth headers onto req. message is the signed
// payload: path with query for GET, body for POST.
func (s *Signer) Authorize(req *http.Request, nonce, message string) {
	req.Header.Set("ACCESS-KEY", s.key)
	req.Header.Set("ACCESS-NONCE", nonce)
	req.Header.Set("ACCESS-SIGNATURE", s.Sign(nonce, message))
}

// Wipe zeroes the secret material. The signer is unusable afterwards.
func (s *Signer) Wipe() {
	for i := range s.secret {
		s.secret[i] = 0
	}
}
