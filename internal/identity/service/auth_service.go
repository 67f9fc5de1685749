package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"food-delivery-platform/auth/internal/identity/domain"
	"food-delivery-platform/auth/internal/identity/repository"
	"food-delivery-platform/auth/internal/platform/autherr"
	"food-delivery-platform/auth/internal/security"
	sessiondomain "food-delivery-platform/auth/internal/session/domain"
	sessionrepo "food-delivery-platform/auth/internal/session/repository"
	"food-delivery-platform/auth/internal/telemetry"
	telemetrydomain "food-delivery-platform/auth/internal/telemetry/domain"
	"food-delivery-platform/auth/internal/verification"
)

// MinPasswordLength is the shortest password SignUp and ChangePassword accept.
const MinPasswordLength = 8

// Tokens is the outcome of Login, GenerateToken, and Refresh.
type Tokens struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
	UserID           string
	Role             string
	DeviceID         string
}

// Options toggles the optional checks of the service.
type Options struct {
	// RotateRefresh issues a new refresh token on every refresh.
	RotateRefresh bool
	// RequireVerified rejects logins of identities that have not confirmed their email.
	RequireVerified bool
	// ValidateAccountStatus makes Validate re-read the identity and reject inactive ones.
	ValidateAccountStatus bool
	// ValidateSession makes Validate reject access tokens whose device session is gone.
	ValidateSession bool
	// SignUpRoles are the roles a caller may pick at sign-up. Empty means user and delivery-partner.
	SignUpRoles []domain.Role
}

// AuthService owns sign-up, login, refresh, validate, and logout. It orchestrates the
// credential store, the token codecs, and the session store.
type AuthService struct {
	identities repository.Repository
	sessions   sessionrepo.Store
	tokens     *security.TokenPair
	hasher     *security.Hasher
	codes      *verification.Codes
	events     telemetry.EventEmitter
	logger     zerolog.Logger
	opts       Options
}

// NewAuthService returns an AuthService. codes may be nil, which disables email verification;
// events may be nil.
func NewAuthService(
	identities repository.Repository,
	sessions sessionrepo.Store,
	tokens *security.TokenPair,
	hasher *security.Hasher,
	codes *verification.Codes,
	events telemetry.EventEmitter,
	logger zerolog.Logger,
	opts Options,
) *AuthService {
	if events == nil {
		events = telemetry.Nop{}
	}
	if len(opts.SignUpRoles) == 0 {
		opts.SignUpRoles = []domain.Role{domain.RoleUser, domain.RoleDeliveryPartner}
	}
	return &AuthService{
		identities: identities,
		sessions:   sessions,
		tokens:     tokens,
		hasher:     hasher,
		codes:      codes,
		events:     events,
		logger:     logger,
		opts:       opts,
	}
}

// Tokens returns the codecs the service mints with, for colocated guards.
func (s *AuthService) Tokens() *security.TokenPair { return s.tokens }

func (s *AuthService) now() time.Time { return s.tokens.Access.Now().UTC() }

// SignUp creates an active, unverified identity. Returns the identity without its password hash.
func (s *AuthService) SignUp(ctx context.Context, email, password, role string) (*domain.Identity, error) {
	const op = "auth.sign_up"
	email = domain.NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return nil, autherr.Wrap(autherr.Invalid, op, err)
	}
	if err := validatePassword(password); err != nil {
		return nil, autherr.Wrap(autherr.Invalid, op, err)
	}
	r, err := domain.ParseRole(role)
	if err != nil {
		return nil, autherr.Wrap(autherr.Invalid, op, err)
	}
	if !s.signUpAllowed(r) {
		return nil, autherr.New(autherr.Forbidden, op)
	}
	existing, err := s.identities.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, autherr.New(autherr.Conflict, op)
	}
	hashed, err := s.hasher.Hash(ctx, []byte(password))
	if err != nil {
		return nil, err
	}
	now := s.now()
	ident := &domain.Identity{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hashed,
		Role:         r,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	// A concurrent sign-up can still win the race; the store's unique index reports Conflict.
	if err := s.identities.Create(ctx, ident); err != nil {
		return nil, err
	}
	s.emit(ctx, telemetrydomain.EventSignUp, nil, ident.ID, "")
	return ident.Public(), nil
}

func (s *AuthService) signUpAllowed(r domain.Role) bool {
	for _, allowed := range s.opts.SignUpRoles {
		if r == allowed {
			return true
		}
	}
	return false
}

// Login verifies email and password and opens a session for deviceID, replacing any
// previous session on that device. An unknown email is Unauthorized like a wrong password;
// the NotFound cause stays in the chain for telemetry.
func (s *AuthService) Login(ctx context.Context, email, password, deviceID, clientIP string) (*Tokens, error) {
	const op = "auth.login"
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, autherr.Wrap(autherr.Invalid, op, errors.New("email and password are required"))
	}
	if !sessiondomain.ValidID(deviceID) {
		return nil, autherr.Wrap(autherr.Invalid, op, errors.New("device_id is required and must not contain ':'"))
	}
	ident, err := s.identities.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if ident == nil {
		missing := autherr.New(autherr.NotFound, op)
		s.emit(ctx, telemetrydomain.EventLoginFailure, missing, "", deviceID)
		if err := s.hasher.CompareMissing(ctx, []byte(password)); !errors.Is(err, security.ErrPasswordMismatch) {
			return nil, err
		}
		return nil, autherr.Wrap(autherr.Unauthorized, op, missing)
	}
	if err := s.hasher.Compare(ctx, ident.PasswordHash, []byte(password)); err != nil {
		if !errors.Is(err, security.ErrPasswordMismatch) {
			return nil, err
		}
		err := autherr.Wrap(autherr.Unauthorized, op, err)
		s.emit(ctx, telemetrydomain.EventLoginFailure, err, ident.ID, deviceID)
		return nil, err
	}
	if !ident.IsActive {
		err := autherr.Wrap(autherr.Unauthorized, op, errors.New("account is deactivated"))
		s.emit(ctx, telemetrydomain.EventLoginFailure, err, ident.ID, deviceID)
		return nil, err
	}
	if s.opts.RequireVerified && !ident.IsVerified {
		err := autherr.Wrap(autherr.Unauthorized, op, errors.New("account not verified"))
		s.emit(ctx, telemetrydomain.EventLoginFailure, err, ident.ID, deviceID)
		return nil, err
	}
	out, err := s.openSession(ctx, ident.ID, string(ident.Role), deviceID, clientIP, time.Time{})
	if err != nil {
		return nil, err
	}
	s.emit(ctx, telemetrydomain.EventLoginSuccess, nil, ident.ID, deviceID)
	return out, nil
}

// GenerateToken mints tokens and opens a session for a principal another service already
// authenticated, identified by userID or, when userID is empty, by email. The stored role is
// authoritative; a different role in the request is Forbidden. Callers must be authorized
// by the transport.
func (s *AuthService) GenerateToken(ctx context.Context, userID, email, role, deviceID string) (*Tokens, error) {
	const op = "auth.generate_token"
	if !sessiondomain.ValidID(deviceID) || (userID == "" && email == "") {
		return nil, autherr.Wrap(autherr.Invalid, op, errors.New("user_id or email and device_id are required"))
	}
	var ident *domain.Identity
	var err error
	if userID != "" {
		ident, err = s.identities.GetByID(ctx, userID)
	} else {
		ident, err = s.identities.GetByEmail(ctx, domain.NormalizeEmail(email))
	}
	if err != nil {
		return nil, err
	}
	if ident == nil {
		return nil, autherr.Wrap(autherr.Unauthorized, op, autherr.New(autherr.NotFound, op))
	}
	if !ident.IsActive {
		return nil, autherr.Wrap(autherr.Unauthorized, op, errors.New("account is deactivated"))
	}
	if role != "" {
		r, err := domain.ParseRole(role)
		if err != nil {
			return nil, autherr.Wrap(autherr.Invalid, op, err)
		}
		if r != ident.Role {
			return nil, autherr.New(autherr.Forbidden, op)
		}
	}
	out, err := s.openSession(ctx, ident.ID, string(ident.Role), deviceID, "", time.Time{})
	if err != nil {
		return nil, err
	}
	s.emit(ctx, telemetrydomain.EventLoginSuccess, nil, ident.ID, deviceID)
	return out, nil
}

// openSession mints a token pair and writes the session for (userID, deviceID).
// createdAt is kept across rotations; zero means a new session.
func (s *AuthService) openSession(ctx context.Context, userID, role, deviceID, clientIP string, createdAt time.Time) (*Tokens, error) {
	claims := security.Payload{SubjectID: userID, Role: role, DeviceID: deviceID}
	access, accessPayload, err := s.tokens.Access.Mint(claims, s.tokens.Access.TTL())
	if err != nil {
		return nil, err
	}
	refresh, refreshPayload, err := s.tokens.Refresh.Mint(claims, s.tokens.Refresh.TTL())
	if err != nil {
		return nil, err
	}
	now := s.now()
	if createdAt.IsZero() {
		createdAt = now
	}
	sess := &sessiondomain.Session{
		UserID:                  userID,
		DeviceID:                deviceID,
		Role:                    role,
		RefreshTokenID:          refreshPayload.TokenID,
		RefreshTokenFingerprint: sessiondomain.Fingerprint(refresh),
		RefreshTokenExpiresAt:   refreshPayload.ExpiresAt,
		SessionExpiresAt:        refreshPayload.ExpiresAt,
		IPAddress:               clientIP,
		CreatedAt:               createdAt,
		RefreshedAt:             now,
	}
	if err := s.sessions.Put(ctx, sess); err != nil {
		return nil, err
	}
	return &Tokens{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessPayload.ExpiresAt,
		RefreshExpiresAt: refreshPayload.ExpiresAt,
		UserID:           userID,
		Role:             role,
		DeviceID:         deviceID,
	}, nil
}

// Validate verifies accessToken and returns its payload. With ValidateAccountStatus or
// ValidateSession it also consults the credential or session store.
func (s *AuthService) Validate(ctx context.Context, accessToken string) (*security.Payload, error) {
	const op = "auth.validate"
	p, err := s.tokens.Access.Verify(accessToken)
	if err != nil {
		s.emit(ctx, telemetrydomain.EventValidateFailure, err, "", "")
		return nil, err
	}
	if s.opts.ValidateAccountStatus {
		ident, err := s.identities.GetByID(ctx, p.SubjectID)
		if err != nil {
			return nil, autherr.Wrap(autherr.Unavailable, op, err)
		}
		if ident == nil || !ident.IsActive || (s.opts.RequireVerified && !ident.IsVerified) {
			err := autherr.Wrap(autherr.Unauthenticated, op, errors.New("account is not active"))
			s.emit(ctx, telemetrydomain.EventValidateFailure, err, p.SubjectID, p.DeviceID)
			return nil, err
		}
	}
	if s.opts.ValidateSession {
		if _, err := s.sessions.Get(ctx, p.SubjectID, p.DeviceID); err != nil {
			if autherr.KindOf(err) != autherr.NotFound {
				return nil, err
			}
			err := autherr.Wrap(autherr.Unauthenticated, op, errors.New("session revoked"))
			s.emit(ctx, telemetrydomain.EventValidateFailure, err, p.SubjectID, p.DeviceID)
			return nil, err
		}
	}
	return p, nil
}

// Refresh exchanges a refresh token for a new access token. The token must belong to
// deviceID and match the fingerprint stored for that device. A mismatch means a rotated-out
// token was replayed: the session is revoked and SessionMismatch returned. The identity is
// re-read so a session that outlived a deactivation cannot be refreshed.
func (s *AuthService) Refresh(ctx context.Context, refreshToken, deviceID string) (*Tokens, error) {
	const op = "auth.refresh"
	p, err := s.tokens.Refresh.Verify(refreshToken)
	if err != nil {
		s.emit(ctx, telemetrydomain.EventValidateFailure, err, "", deviceID)
		return nil, err
	}
	if p.DeviceID != deviceID {
		err := autherr.Wrap(autherr.SessionMismatch, op, errors.New("device mismatch"))
		s.emit(ctx, telemetrydomain.EventValidateFailure, err, p.SubjectID, deviceID)
		return nil, err
	}
	sess, err := s.sessions.Get(ctx, p.SubjectID, p.DeviceID)
	if err != nil {
		if autherr.KindOf(err) != autherr.NotFound {
			return nil, err
		}
		err := autherr.Wrap(autherr.Unauthenticated, op, errors.New("no session"))
		s.emit(ctx, telemetrydomain.EventValidateFailure, err, p.SubjectID, p.DeviceID)
		return nil, err
	}
	if !sess.MatchesRefresh(refreshToken) {
		if rerr := s.sessions.Revoke(ctx, p.SubjectID, p.DeviceID); rerr != nil {
			s.logger.Error().Err(rerr).Str("user_id", p.SubjectID).Str("device_id", p.DeviceID).
				Msg("revoke after refresh reuse failed")
		}
		err := autherr.New(autherr.SessionMismatch, op)
		s.emit(ctx, telemetrydomain.EventRefreshReuse, err, p.SubjectID, p.DeviceID)
		return nil, err
	}
	ident, err := s.identities.GetByID(ctx, sess.UserID)
	if err != nil {
		return nil, autherr.Wrap(autherr.Unavailable, op, err)
	}
	if ident == nil || !ident.IsActive {
		if rerr := s.sessions.Revoke(ctx, sess.UserID, sess.DeviceID); rerr != nil {
			s.logger.Error().Err(rerr).Str("user_id", sess.UserID).Str("device_id", sess.DeviceID).
				Msg("revoke session of inactive account failed")
		}
		err := autherr.Wrap(autherr.Unauthenticated, op, errors.New("account is not active"))
		s.emit(ctx, telemetrydomain.EventValidateFailure, err, sess.UserID, sess.DeviceID)
		return nil, err
	}

	var out *Tokens
	if s.opts.RotateRefresh {
		out, err = s.openSession(ctx, sess.UserID, sess.Role, sess.DeviceID, sess.IPAddress, sess.CreatedAt)
		if err != nil {
			return nil, err
		}
	} else {
		access, ap, err := s.tokens.Access.Mint(security.Payload{SubjectID: sess.UserID, Role: sess.Role, DeviceID: sess.DeviceID}, s.tokens.Access.TTL())
		if err != nil {
			return nil, err
		}
		out = &Tokens{
			AccessToken:      access,
			RefreshToken:     refreshToken,
			AccessExpiresAt:  ap.ExpiresAt,
			RefreshExpiresAt: sess.RefreshTokenExpiresAt,
			UserID:           sess.UserID,
			Role:             sess.Role,
			DeviceID:         sess.DeviceID,
		}
	}
	s.emit(ctx, telemetrydomain.EventRefreshSuccess, nil, sess.UserID, sess.DeviceID)
	return out, nil
}

// Logout revokes the session of one device. Revoking an absent session succeeds.
func (s *AuthService) Logout(ctx context.Context, userID, deviceID string) error {
	const op = "auth.logout"
	if err := sessiondomain.ValidateKeyParts(userID, deviceID); err != nil {
		return autherr.Wrap(autherr.Invalid, op, err)
	}
	if err := s.sessions.Revoke(ctx, userID, deviceID); err != nil {
		return err
	}
	s.emit(ctx, telemetrydomain.EventLogout, nil, userID, deviceID)
	return nil
}

// LogoutAll revokes every session of userID and returns how many were removed.
func (s *AuthService) LogoutAll(ctx context.Context, userID string) (int, error) {
	const op = "auth.logout_all"
	if !sessiondomain.ValidID(userID) {
		return 0, autherr.Wrap(autherr.Invalid, op, sessiondomain.ErrInvalidKeyPart)
	}
	n, err := s.sessions.RevokeAll(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.emit(ctx, telemetrydomain.EventLogoutAll, nil, userID, "")
	return n, nil
}

// Sessions lists the live device sessions of userID.
func (s *AuthService) Sessions(ctx context.Context, userID string) ([]*sessiondomain.Session, error) {
	return s.sessions.ListDevices(ctx, userID)
}

// Identity returns the identity without its password hash, or NotFound.
func (s *AuthService) Identity(ctx context.Context, userID string) (*domain.Identity, error) {
	ident, err := s.identities.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if ident == nil {
		return nil, autherr.New(autherr.NotFound, "auth.identity")
	}
	return ident.Public(), nil
}

// ChangePassword replaces the password after checking the old one and signs out every device.
func (s *AuthService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	const op = "auth.change_password"
	ident, err := s.identities.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if ident == nil {
		return autherr.New(autherr.NotFound, op)
	}
	if err := s.hasher.Compare(ctx, ident.PasswordHash, []byte(oldPassword)); err != nil {
		if !errors.Is(err, security.ErrPasswordMismatch) {
			return err
		}
		return autherr.Wrap(autherr.Unauthorized, op, err)
	}
	if err := validatePassword(newPassword); err != nil {
		return autherr.Wrap(autherr.Invalid, op, err)
	}
	hashed, err := s.hasher.Hash(ctx, []byte(newPassword))
	if err != nil {
		return err
	}
	if err := s.identities.UpdatePasswordHash(ctx, userID, hashed); err != nil {
		return err
	}
	if _, err := s.sessions.RevokeAll(ctx, userID); err != nil {
		return err
	}
	s.emit(ctx, telemetrydomain.EventPasswordChanged, nil, userID, "")
	return nil
}

// Deactivate soft-deletes the identity and revokes all of its sessions.
func (s *AuthService) Deactivate(ctx context.Context, userID string) error {
	if err := s.identities.SetActive(ctx, userID, false); err != nil {
		return err
	}
	if _, err := s.sessions.RevokeAll(ctx, userID); err != nil {
		return err
	}
	s.emit(ctx, telemetrydomain.EventDeactivated, nil, userID, "")
	return nil
}

// RequestVerification sends a one-time code to email. Unknown or already verified emails
// succeed silently so the call cannot be used to discover which accounts exist.
func (s *AuthService) RequestVerification(ctx context.Context, email string) error {
	const op = "auth.request_verification"
	if s.codes == nil {
		return autherr.Wrap(autherr.Invalid, op, errors.New("email verification is disabled"))
	}
	email = domain.NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return autherr.Wrap(autherr.Invalid, op, err)
	}
	ident, err := s.identities.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if ident == nil || ident.IsVerified {
		return nil
	}
	return s.codes.Issue(ctx, email)
}

// ConfirmVerification checks code and marks the identity verified.
func (s *AuthService) ConfirmVerification(ctx context.Context, email, code string) error {
	const op = "auth.confirm_verification"
	if s.codes == nil {
		return autherr.Wrap(autherr.Invalid, op, errors.New("email verification is disabled"))
	}
	email = domain.NormalizeEmail(email)
	ident, err := s.identities.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if ident == nil {
		return autherr.New(autherr.Unauthorized, op)
	}
	if err := s.codes.Confirm(ctx, email, code); err != nil {
		return err
	}
	if err := s.identities.SetVerified(ctx, ident.ID, true); err != nil {
		return err
	}
	s.emit(ctx, telemetrydomain.EventVerified, nil, ident.ID, "")
	return nil
}

func (s *AuthService) emit(ctx context.Context, typ telemetrydomain.EventType, cause error, userID, deviceID string) {
	ev := &telemetrydomain.Event{
		Type:      typ,
		UserID:    userID,
		DeviceID:  deviceID,
		Source:    "auth",
		CreatedAt: s.now(),
	}
	if cause != nil {
		ev.Kind = autherr.KindOf(cause).String()
	}
	if err := s.events.Emit(ctx, ev); err != nil {
		s.logger.Debug().Err(err).Str("event_type", string(typ)).Msg("emit security event")
	}
}

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

func validateEmail(email string) error {
	if email == "" {
		return errors.New("email is required")
	}
	if !emailPattern.MatchString(email) {
		return errors.New("invalid email format")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return errors.New("password must be at least 8 characters")
	}
	var hasUpper, hasLower, hasNumber, hasSymbol bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasNumber = true
		case strings.ContainsRune(" \t\n", r):
		default:
			hasSymbol = true
		}
	}
	if !hasUpper {
		return errors.New("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return errors.New("password must contain at least one lowercase letter")
	}
	if !hasNumber {
		return errors.New("password must contain at least one number")
	}
	if !hasSymbol {
		return errors.New("password must contain at least one symbol")
	}
	return nil
}
