package internal

import (
	"net/http/httptest"
	"testing"
)

func TestNewResetTokenShape(t *testing.T) {
	a, err := NewResetToken()
	if err != nil {
		t.Fatalf("NewResetToken: %v", err)
	}
	b, err := NewResetToken()
	if err != nil {
		t.Fatalf("NewResetToken: %v", err)
	}
	if a == b {
		t.Fatal("expected distinct tokens")
	}
	if err := ValidResetToken(a); err != nil {
		t.Fatalf("ValidResetToken(%q): %v", a, err)
	}
}

func FuzzValidResetToken(f *testing.F) {
	f.Add("")
	f.Add("abc")
	f.Add("!!!not-base64!!!")
	if tok, err := NewResetToken(); err == nil {
		f.Add(tok)
	}

	f.Fuzz(func(t *testing.T, token string) {
		_ = ValidResetToken(token)
	})
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.0.0.7:5555"
	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")

	if got := ClientIP(r, false); got != "10.0.0.7" {
		t.Fatalf("untrusted proxy: got %q", got)
	}
	if got := ClientIP(r, true); got != "203.0.113.9" {
		t.Fatalf("trusted proxy: got %q", got)
	}
}
