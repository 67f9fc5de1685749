// server runs the auth authority: the gRPC AuthService and SessionService, grpc health,
// and the JSON gateway.
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc/health"

	"food-delivery-platform/auth/internal/bootstrap"
	"food-delivery-platform/auth/internal/config"
	"food-delivery-platform/auth/internal/guard"
	healthhandler "food-delivery-platform/auth/internal/health/handler"
	identityservice "food-delivery-platform/auth/internal/identity/service"
	"food-delivery-platform/auth/internal/logger"
	"food-delivery-platform/auth/internal/security"
	"food-delivery-platform/auth/internal/server"
	"food-delivery-platform/auth/internal/telemetry"
	otelsetup "food-delivery-platform/auth/internal/telemetry/otel"
	"food-delivery-platform/auth/internal/telemetry/producer"
	"food-delivery-platform/auth/internal/verification"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("info", "json")
		bootLog.Fatal().Err(err).Msg("config")
	}
	log := logger.Component(logger.New(cfg.LogLevel, cfg.LogFormat), cfg.ServiceName)
	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := otelsetup.NewProviders(ctx, otelsetup.Options{
		Endpoint:    cfg.OTLPEndpoint,
		ServiceName: cfg.ServiceName,
		Environment: cfg.Env,
		Insecure:    cfg.OTLPInsecure,
	})
	if err != nil {
		return err
	}
	providers.SetGlobal()

	events, closeEvents, err := buildEmitter(cfg, providers, log)
	if err != nil {
		return err
	}

	stores, err := bootstrap.OpenStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer stores.Close()

	tokens, err := bootstrap.TokenPair(cfg)
	if err != nil {
		return err
	}
	authz, err := bootstrap.Authorizer(ctx, cfg)
	if err != nil {
		return err
	}

	var senders verification.MultiSender
	senders = append(senders, verification.LogSender{Logger: logger.Component(log, "verification")})
	var devCodes *verification.DevStore
	if cfg.OTPReturnToClient {
		devCodes = verification.NewDevStore()
		senders = append(senders, devCodes)
		log.Warn().Msg("verification codes are returned to clients; development only")
	}
	codes := verification.NewCodes(stores.Challenges, senders, cfg.OTPLifetime())

	svc := identityservice.NewAuthService(
		stores.Identities,
		stores.Sessions,
		tokens,
		security.NewHasherWithWorkers(cfg.BcryptCost, cfg.HashWorkers),
		codes,
		events,
		logger.Component(log, "auth"),
		identityservice.Options{
			RotateRefresh:         cfg.RotateRefreshTokens,
			RequireVerified:       cfg.RequireVerified,
			ValidateAccountStatus: cfg.ValidateAccountStatus,
			ValidateSession:       cfg.ValidateSession,
		},
	)

	hs := health.NewServer()
	checker := healthhandler.NewChecker(hs, server.ServiceNames, logger.Component(log, "health"),
		healthhandler.Check{Name: "credential_store", Pinger: stores.Identities},
		healthhandler.Check{Name: "session_store", Pinger: stores.Sessions},
	)

	deps := server.Deps{
		Auth:     svc,
		Sessions: stores.Sessions,
		// Guards share the service's account and session checks.
		Verifier: guard.NewServiceVerifier(svc),
		Authz:    authz,
		DevCodes: devCodes,
		Health:   hs,
		Events:   events,
		Logger:   logger.Component(log, "grpc"),
	}
	grpcServer := server.NewGRPCServer(deps)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return err
	}

	var httpServer *http.Server
	if cfg.HTTPAddr != "" {
		httpDeps := deps
		httpDeps.Logger = logger.Component(log, "http")
		httpServer = &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           server.NewHTTPRouter(httpDeps, checker),
			ReadHeaderTimeout: 5 * time.Second,
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		checker.Run(gctx, healthhandler.DefaultInterval)
		return nil
	})
	g.Go(func() error {
		log.Info().Str("addr", cfg.GRPCAddr).Msg("gRPC server listening")
		return grpcServer.Serve(lis)
	})
	if httpServer != nil {
		g.Go(func() error {
			log.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP gateway listening")
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		checker.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if httpServer != nil {
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				log.Warn().Err(err).Msg("http shutdown")
			}
		}
		grpcServer.GracefulStop()
		closeEvents(shutdownCtx)
		if err := providers.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
		return nil
	})

	err = g.Wait()
	log.Info().Msg("server stopped")
	return err
}

// buildEmitter fans security events out to logs, OTel metrics and logs, the reuse alarm,
// and Kafka when brokers are configured. Delivery is asynchronous.
func buildEmitter(cfg *config.Config, providers *otelsetup.Providers, log zerolog.Logger) (telemetry.EventEmitter, func(context.Context), error) {
	eventsLog := logger.Component(log, "telemetry")
	metrics, err := otelsetup.NewMetrics(providers.MeterProvider)
	if err != nil {
		return nil, nil, err
	}
	sinks := telemetry.MultiEmitter{
		telemetry.LogEmitter{Logger: eventsLog},
		metrics,
		otelsetup.NewEventEmitter(providers.LoggerProvider),
		telemetry.NewReuseAlarm(cfg.ReuseAlertThreshold, eventsLog),
	}
	kafka := producer.FromBrokers(cfg.TelemetryKafkaBrokersList(), cfg.TelemetryKafkaTopic)
	if kafka != nil {
		sinks = append(sinks, kafka)
		eventsLog.Info().Strs("brokers", cfg.TelemetryKafkaBrokersList()).Str("topic", cfg.TelemetryKafkaTopic).Msg("publishing security events to kafka")
	}
	async := telemetry.NewAsync(sinks, eventsLog)
	closeFn := func(ctx context.Context) {
		drainCtx, cancel := context.WithTimeout(ctx, telemetry.ShutdownDrainDuration)
		defer cancel()
		if err := async.Drain(drainCtx); err != nil {
			eventsLog.Warn().Err(err).Msg("telemetry drain")
		}
		if kafka != nil {
			if err := kafka.Close(); err != nil {
				eventsLog.Warn().Err(err).Msg("kafka close")
			}
		}
	}
	return async, closeFn, nil
}
