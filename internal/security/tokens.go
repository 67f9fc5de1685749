package security

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"food-delivery-platform/auth/internal/platform/autherr"
)

// Token uses carried in the token_use claim so an access token cannot be replayed as a
// refresh token even if both families were configured with the same secret.
const (
	UseAccess  = "access"
	UseRefresh = "refresh"
)

var (
	// ErrMissingSecret is returned by NewTokenCodec when no signing secret is configured.
	ErrMissingSecret = errors.New("security: signing secret is required")
	// ErrInvalidTTL is returned when a non-positive TTL is used to mint a token.
	ErrInvalidTTL = errors.New("security: ttl must be positive")
)

// Payload is the identity carried by an access or refresh token.
type Payload struct {
	SubjectID string
	Role      string
	DeviceID  string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type tokenClaims struct {
	jwt.RegisteredClaims
	Role     string `json:"role"`
	DeviceID string `json:"device_id"`
	Use      string `json:"token_use"`
}

// CodecConfig configures a TokenCodec. PreviousSecrets are accepted for verification only,
// which lets operators rotate Secret without invalidating tokens already in flight.
type CodecConfig struct {
	Use             string
	Secret          []byte
	PreviousSecrets [][]byte
	Issuer          string
	Audience        string
	TTL             time.Duration
}

// TokenCodec mints and verifies HS256 JWTs for one token family (access or refresh).
// Verification is a pure function of the token, the configured secrets, and the clock.
type TokenCodec struct {
	use      string
	secret   []byte
	keys     [][]byte
	issuer   string
	audience string
	ttl      time.Duration
	nowF     func() time.Time
}

// NewTokenCodec returns a TokenCodec for cfg. Returns ErrMissingSecret when cfg.Secret is empty.
func NewTokenCodec(cfg CodecConfig) (*TokenCodec, error) {
	if len(cfg.Secret) == 0 {
		return nil, ErrMissingSecret
	}
	if cfg.TTL <= 0 {
		return nil, ErrInvalidTTL
	}
	keys := make([][]byte, 0, 1+len(cfg.PreviousSecrets))
	keys = append(keys, cfg.Secret)
	for _, k := range cfg.PreviousSecrets {
		if len(k) > 0 {
			keys = append(keys, k)
		}
	}
	return &TokenCodec{
		use:      cfg.Use,
		secret:   cfg.Secret,
		keys:     keys,
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		ttl:      cfg.TTL,
		nowF:     time.Now,
	}, nil
}

// TTL returns the default lifetime of tokens minted by this codec.
func (c *TokenCodec) TTL() time.Duration { return c.ttl }

// Now returns the codec's current time.
func (c *TokenCodec) Now() time.Time { return c.nowF() }

// SetClock replaces the codec's time source. Intended for tests.
func (c *TokenCodec) SetClock(now func() time.Time) { c.nowF = now }

// Mint signs p with a lifetime of ttl and returns the compact token together with the
// payload as issued (TokenID, IssuedAt, ExpiresAt filled in).
func (c *TokenCodec) Mint(p Payload, ttl time.Duration) (string, Payload, error) {
	return c.MintAt(p, ttl, c.nowF())
}

// MintAt is like Mint but uses now as the issue time.
func (c *TokenCodec) MintAt(p Payload, ttl time.Duration, now time.Time) (string, Payload, error) {
	if ttl <= 0 {
		return "", Payload{}, ErrInvalidTTL
	}
	jti, err := generateJTI()
	if err != nil {
		return "", Payload{}, err
	}
	issued := now.UTC().Truncate(time.Second)
	p.TokenID = jti
	p.IssuedAt = issued
	p.ExpiresAt = issued.Add(ttl)
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   p.SubjectID,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(p.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(p.ExpiresAt),
		},
		Role:     p.Role,
		DeviceID: p.DeviceID,
		Use:      c.use,
	}
	if c.audience != "" {
		claims.Audience = jwt.ClaimStrings{c.audience}
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", Payload{}, fmt.Errorf("security: sign token: %w", err)
	}
	return token, p, nil
}

// Verify checks the token against the codec's secrets at the current time.
func (c *TokenCodec) Verify(token string) (*Payload, error) {
	return c.VerifyAt(token, c.nowF())
}

// VerifyAt checks signature, issuer, audience, token use, and expiry at now. Failures are
// *autherr.Error with kind Malformed, BadSignature, or Expired.
func (c *TokenCodec) VerifyAt(token string, now time.Time) (*Payload, error) {
	const op = "token.verify"
	if token == "" {
		return nil, autherr.New(autherr.Malformed, op)
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
	}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}
	if c.audience != "" {
		opts = append(opts, jwt.WithAudience(c.audience))
	}

	var lastErr error
	for _, key := range c.keys {
		claims := &tokenClaims{}
		parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
			return key, nil
		}, opts...)
		if err == nil && parsed.Valid {
			if claims.Use != c.use {
				return nil, autherr.New(autherr.BadSignature, op)
			}
			if claims.Subject == "" {
				return nil, autherr.New(autherr.Malformed, op)
			}
			return claimsToPayload(claims), nil
		}
		lastErr = err
		// Only a signature failure is worth retrying against an older secret.
		if !errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			break
		}
	}
	return nil, classify(op, lastErr)
}

func classify(op string, err error) error {
	switch {
	case err == nil:
		return autherr.New(autherr.Malformed, op)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenInvalidIssuer),
		errors.Is(err, jwt.ErrTokenInvalidAudience):
		return autherr.Wrap(autherr.BadSignature, op, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return autherr.Wrap(autherr.Expired, op, err)
	default:
		return autherr.Wrap(autherr.Malformed, op, err)
	}
}

func claimsToPayload(c *tokenClaims) *Payload {
	p := &Payload{
		SubjectID: c.Subject,
		Role:      c.Role,
		DeviceID:  c.DeviceID,
		TokenID:   c.ID,
	}
	if c.IssuedAt != nil {
		p.IssuedAt = c.IssuedAt.Time.UTC()
	}
	if c.ExpiresAt != nil {
		p.ExpiresAt = c.ExpiresAt.Time.UTC()
	}
	return p
}

// TokenPair bundles the access and refresh codecs. They must be built with distinct secrets
// so that leaking one family's secret does not compromise the other.
type TokenPair struct {
	Access  *TokenCodec
	Refresh *TokenCodec
}

// PairConfig configures NewTokenPair.
type PairConfig struct {
	AccessSecret           []byte
	RefreshSecret          []byte
	PreviousAccessSecrets  [][]byte
	PreviousRefreshSecrets [][]byte
	Issuer                 string
	Audience               string
	AccessTTL              time.Duration
	RefreshTTL             time.Duration
}

// ErrSharedSecret is returned when the access and refresh secrets are identical.
var ErrSharedSecret = errors.New("security: access and refresh secrets must differ")

// NewTokenPair builds both codecs from cfg.
func NewTokenPair(cfg PairConfig) (*TokenPair, error) {
	if len(cfg.AccessSecret) > 0 && string(cfg.AccessSecret) == string(cfg.RefreshSecret) {
		return nil, ErrSharedSecret
	}
	access, err := NewTokenCodec(CodecConfig{
		Use:             UseAccess,
		Secret:          cfg.AccessSecret,
		PreviousSecrets: cfg.PreviousAccessSecrets,
		Issuer:          cfg.Issuer,
		Audience:        cfg.Audience,
		TTL:             cfg.AccessTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("access codec: %w", err)
	}
	refresh, err := NewTokenCodec(CodecConfig{
		Use:             UseRefresh,
		Secret:          cfg.RefreshSecret,
		PreviousSecrets: cfg.PreviousRefreshSecrets,
		Issuer:          cfg.Issuer,
		Audience:        cfg.Audience,
		TTL:             cfg.RefreshTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("refresh codec: %w", err)
	}
	return &TokenPair{Access: access, Refresh: refresh}, nil
}

// SetClock sets the time source on both codecs. Intended for tests.
func (p *TokenPair) SetClock(now func() time.Time) {
	p.Access.SetClock(now)
	p.Refresh.SetClock(now)
}

func generateJTI() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
