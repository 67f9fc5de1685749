// whoami is a downstream service guarded by the auth authority. VERIFIER_MODE=local checks
// tokens with the shared access secret; remote asks the auth service over gRPC.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	authv1 "food-delivery-platform/auth/api/auth/v1"
	"food-delivery-platform/auth/internal/bootstrap"
	"food-delivery-platform/auth/internal/config"
	"food-delivery-platform/auth/internal/guard"
	"food-delivery-platform/auth/internal/logger"
	"food-delivery-platform/auth/internal/telemetry"
)

func main() {
	cfg, err := config.LoadFor(config.Guard)
	log := logger.New("info", "json")
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	log = logger.Component(logger.New(cfg.LogLevel, cfg.LogFormat), "whoami")

	verifier, closeVerifier, err := buildVerifier(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("verifier")
	}
	defer closeVerifier()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	authz, err := bootstrap.Authorizer(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("authorizer")
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           newRouter(verifier, authz, telemetry.LogEmitter{Logger: log}, log),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Str("verifier", cfg.VerifierMode).Msg("whoami listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("serve")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("shutdown")
	}
	log.Info().Msg("whoami stopped")
}

func buildVerifier(cfg *config.Config) (guard.Verifier, func(), error) {
	if cfg.VerifierMode == config.VerifierRemote {
		conn, err := guard.Dial(cfg.AuthGRPCTarget)
		if err != nil {
			return nil, nil, err
		}
		v := guard.NewRemoteVerifier(authv1.NewAuthServiceClient(conn), cfg.VerifyTimeoutDuration())
		return v, func() { _ = conn.Close() }, nil
	}
	codec, err := bootstrap.AccessCodec(cfg)
	if err != nil {
		return nil, nil, err
	}
	return guard.NewLocalVerifier(codec, nil), func() {}, nil
}
