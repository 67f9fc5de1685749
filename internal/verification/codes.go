package verification

import (
	"context"
	"fmt"
	"time"

	"food-delivery-platform/auth/internal/platform/autherr"
)

// DefaultMaxAttempts is the number of wrong codes tolerated before a challenge is discarded.
const DefaultMaxAttempts = 5

// Codes issues and confirms verification challenges.
type Codes struct {
	store       Store
	sender      Sender
	ttl         time.Duration
	maxAttempts int
	nowF        func() time.Time
}

// NewCodes returns Codes with the given TTL and DefaultMaxAttempts.
func NewCodes(store Store, sender Sender, ttl time.Duration) *Codes {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Codes{store: store, sender: sender, ttl: ttl, maxAttempts: DefaultMaxAttempts, nowF: time.Now}
}

// Issue creates a fresh challenge for email, replacing any pending one, and sends the code.
func (c *Codes) Issue(ctx context.Context, email string) error {
	code, err := GenerateOTP()
	if err != nil {
		return fmt.Errorf("verification: generate code: %w", err)
	}
	expiresAt := c.nowF().UTC().Add(c.ttl)
	if err := c.store.Put(ctx, &Challenge{Email: email, CodeHash: HashOTP(code), ExpiresAt: expiresAt}); err != nil {
		return err
	}
	return c.sender.Send(ctx, email, code, expiresAt)
}

// Confirm checks code against the pending challenge for email. A match consumes the
// challenge. A mismatch counts an attempt; the challenge is dropped after the limit.
// Failures are autherr.Unauthorized so callers cannot tell a wrong code from a missing one.
func (c *Codes) Confirm(ctx context.Context, email, code string) error {
	const op = "otp.confirm"
	ch, err := c.store.Get(ctx, email)
	if autherr.KindOf(err) == autherr.NotFound {
		return autherr.New(autherr.Unauthorized, op)
	}
	if err != nil {
		return err
	}
	if ch.Attempts >= c.maxAttempts {
		_ = c.store.Delete(ctx, email)
		return autherr.New(autherr.Unauthorized, op)
	}
	if !OTPEqual(code, ch.CodeHash) {
		n, err := c.store.IncrementAttempts(ctx, email)
		if err == nil && n >= c.maxAttempts {
			_ = c.store.Delete(ctx, email)
		}
		return autherr.New(autherr.Unauthorized, op)
	}
	return c.store.Delete(ctx, email)
}
