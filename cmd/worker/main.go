// Worker consumes security events from Kafka, pushes them to Loki, and raises the
// refresh-reuse alarm. Set KAFKA_BROKERS, TELEMETRY_KAFKA_TOPIC, KAFKA_GROUP_ID, and LOKI_URL.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"food-delivery-platform/auth/internal/config"
	"food-delivery-platform/auth/internal/logger"
	"food-delivery-platform/auth/internal/telemetry"
	"food-delivery-platform/auth/internal/telemetry/consumer"
	"food-delivery-platform/auth/internal/telemetry/loki"
)

func main() {
	// The worker never verifies tokens.
	if os.Getenv("APP_ENV") == "" {
		_ = os.Setenv("APP_ENV", "test")
	}
	cfg, err := config.LoadFor(config.Tooling)
	log := logger.New("info", "json")
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	log = logger.Component(logger.New(cfg.LogLevel, cfg.LogFormat), "worker")

	brokers := cfg.TelemetryKafkaBrokersList()
	if len(brokers) == 0 {
		log.Fatal().Msg("KAFKA_BROKERS is required")
	}
	if cfg.LokiURL == "" {
		log.Fatal().Msg("LOKI_URL is required")
	}

	reader := consumer.NewKafkaReader(brokers, cfg.TelemetryKafkaTopic, cfg.KafkaGroupID)
	defer reader.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := consumer.New(reader, loki.NewClient(cfg.LokiURL), telemetry.NewReuseAlarm(cfg.ReuseAlertThreshold, log), log)
	log.Info().
		Str("topic", cfg.TelemetryKafkaTopic).
		Str("group", cfg.KafkaGroupID).
		Str("loki", cfg.LokiURL).
		Msg("consuming security events")
	if err := c.Run(ctx); err != nil {
		log.Error().Err(err).Msg("worker stopped")
		return
	}
	log.Info().Msg("worker stopped")
}
