package bitbank

import (
	"net/http/httptest"
	"testing"
)

func TestSigner_Sign(t *testing.T) {
	// RFC 2202 style vector: HMAC-SHA256("key", "The quick brown fox
	// jumps over the lazy dog").
	s := NewSigner("id", "key")
	got := s.Sign("", "The quick brown fox jumps over the lazy dog")
	want := "f7bc83f430538424b13298e6aa6fb143ef4d59a14946175997479dbc2d1a3cd8"
	if got != want {
		t.Errorf("Sign() = %s, want %s", got, want)
	}
}

func TestSigner_SignConcatenatesNonce(t *testing.T) {
	s := NewSigner("id", "key")
	joined := s.Sign("", "1700000000000/v1/user/assets")
	split := s.Sign("1700000000000", "/v1/user/assets")
	if joined != split {
		t.Error("nonce must be prepended to the signed message")
	}
}

func TestSigner_NonceStrictlyIncreases(t *testing.T) {
	s := NewSigner("id", "key")

	a := s.Nonce(1000)
	b := s.Nonce(1000) // same wall time must still advance
	c := s.Nonce(999)  // clock going backwards must still advance

	if a != "1000" || b != "1001" || c != "1002" {
		t.Errorf("nonces = %s, %s, %s; want 1000, 1001, 1002", a, b, c)
	}
}

func TestSigner_Authorize(t *testing.T) {
	s := NewSigner("my-key", "my-secret")
	req := httptest.NewRequest("GET", "https://api.bitbank.cc/v1/user/assets", nil)

	s.Authorize(req, "42", "/v1/user/assets")

	if got := req.Header.Get("ACCESS-KEY"); got != "my-key" {
		t.Errorf("ACCESS-KEY = %s", got)
	}
	if got := req.Header.Get("ACCESS-NONCE"); got != "42" {
		t.Errorf("ACCESS-NONCE = %s", got)
	}
	if got := req.Header.Get("ACCESS-SIGNATURE"); got != s.Sign("42", "/v1/user/assets") {
		t.Errorf("ACCESS-SIGNATURE = %s", got)
	}
}

func TestSigner_Wipe(t *testing.T) {
	s := NewSigner("id", "key")
	before := s.Sign("", "msg")
	s.Wipe()
	if s.Sign("", "msg") == before {
		t.Error("Wipe must invalidate the secret")
	}
}
