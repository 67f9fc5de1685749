package bootstrap

import (
	"context"
	"fmt"

	"food-delivery-platform/auth/internal/config"
	"food-delivery-platform/auth/internal/platform/rbac"
	"food-delivery-platform/auth/internal/security"
)

// TokenPair builds the access and refresh codecs from cfg.
func TokenPair(cfg *config.Config) (*security.TokenPair, error) {
	pair, err := security.NewTokenPair(security.PairConfig{
		AccessSecret:           []byte(cfg.JWTAccessSecret),
		RefreshSecret:          []byte(cfg.JWTRefreshSecret),
		PreviousAccessSecrets:  cfg.PreviousAccessSecrets(),
		PreviousRefreshSecrets: cfg.PreviousRefreshSecrets(),
		Issuer:                 cfg.JWTIssuer,
		Audience:               cfg.JWTAudience,
		AccessTTL:              cfg.AccessTTL(),
		RefreshTTL:             cfg.RefreshTTL(),
	})
	if err != nil {
		return nil, fmt.Errorf("tokens: %w", err)
	}
	return pair, nil
}

// AccessCodec builds only the access codec, for guards that verify tokens locally and
// must not hold the refresh secret.
func AccessCodec(cfg *config.Config) (*security.TokenCodec, error) {
	codec, err := security.NewTokenCodec(security.CodecConfig{
		Use:             security.UseAccess,
		Secret:          []byte(cfg.JWTAccessSecret),
		PreviousSecrets: cfg.PreviousAccessSecrets(),
		Issuer:          cfg.JWTIssuer,
		Audience:        cfg.JWTAudience,
		TTL:             cfg.AccessTTL(),
	})
	if err != nil {
		return nil, fmt.Errorf("access codec: %w", err)
	}
	return codec, nil
}

// Authorizer builds the role and ownership engine selected by AUTHZ_ENGINE.
func Authorizer(ctx context.Context, cfg *config.Config) (rbac.Authorizer, error) {
	return rbac.New(ctx, cfg.AuthzEngine, "", true)
}
