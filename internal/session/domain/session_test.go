package domain

import (
	"testing"
	"time"
)

func TestKey(t *testing.T) {
	s := &Session{UserID: "u1", DeviceID: "dev-1"}
	if got := s.Key("auth"); got != "auth:u1:dev-1" {
		t.Errorf("Key = %q, want auth:u1:dev-1", got)
	}
	if got := IndexKey("auth", "u1"); got != "auth:idx:u1" {
		t.Errorf("IndexKey = %q, want auth:idx:u1", got)
	}
}

func TestTTLAndExpired(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := &Session{SessionExpiresAt: now.Add(time.Hour)}
	if s.TTL(now) != time.Hour {
		t.Errorf("TTL = %v, want 1h", s.TTL(now))
	}
	if s.Expired(now) {
		t.Error("session should not be expired before SessionExpiresAt")
	}
	if !s.Expired(now.Add(time.Hour)) {
		t.Error("session should be expired at SessionExpiresAt")
	}
}

func TestValidateKeyParts(t *testing.T) {
	tests := []struct {
		user, device string
		ok           bool
	}{
		{"u1", "dev-1", true},
		{"", "dev-1", false},
		{"u1", "", false},
		{"u1", "a:b", false},
		{"u:1", "dev", false},
	}
	for _, tt := range tests {
		err := ValidateKeyParts(tt.user, tt.device)
		if (err == nil) != tt.ok {
			t.Errorf("ValidateKeyParts(%q, %q) = %v, want ok=%v", tt.user, tt.device, err, tt.ok)
		}
	}
}
