package verification

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Sender delivers a verification code to an email address.
type Sender interface {
	Send(ctx context.Context, email, code string, expiresAt time.Time) error
}

// LogSender records that a code was issued without delivering it. The code itself is not logged.
type LogSender struct {
	Logger zerolog.Logger
}

func (s LogSender) Send(ctx context.Context, email, code string, expiresAt time.Time) error {
	s.Logger.Info().Str("email", email).Time("expires_at", expiresAt).Msg("verification code issued")
	return nil
}

// DevStore holds plain codes by email so dev tooling can read them back. Never enabled in production.
type DevStore struct {
	mu   sync.Mutex
	m    map[string]devEntry
	nowF func() time.Time
}

type devEntry struct {
	code      string
	expiresAt time.Time
}

// NewDevStore returns an empty DevStore.
func NewDevStore() *DevStore {
	return &DevStore{m: make(map[string]devEntry), nowF: time.Now}
}

// Send implements Sender by keeping the code.
func (d *DevStore) Send(ctx context.Context, email, code string, expiresAt time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.m[email] = devEntry{code: code, expiresAt: expiresAt}
	return nil
}

// Code returns the last code sent to email if it has not expired.
func (d *DevStore) Code(email string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.m[email]
	if !ok {
		return "", false
	}
	if !e.expiresAt.After(d.nowF()) {
		delete(d.m, email)
		return "", false
	}
	return e.code, true
}

// MultiSender sends through every sender in order and stops at the first error.
type MultiSender []Sender

func (m MultiSender) Send(ctx context.Context, email, code string, expiresAt time.Time) error {
	for _, s := range m {
		if err := s.Send(ctx, email, code, expiresAt); err != nil {
			return err
		}
	}
	return nil
}
