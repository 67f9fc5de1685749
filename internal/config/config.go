// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store backends.
const (
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
	StoreRedis    = "redis"
	StoreMemory   = "memory"
)

// Verifier modes.
const (
	VerifierLocal  = "local"
	VerifierRemote = "remote"
)

// Component is the kind of binary loading the config. It decides which signing secrets
// Validate requires.
type Component int

const (
	// Authority mints tokens and needs both signing secrets.
	Authority Component = iota
	// Guard only verifies access tokens: the access secret in local mode, none in remote mode.
	Guard
	// Tooling (migrate, seed, worker) neither mints nor verifies tokens.
	Tooling
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// GRPCAddr is the address the gRPC server listens on (e.g. :8080).
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// HTTPAddr is the address of the JSON gateway; empty disables it.
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// Env is the application environment ("development", "production", "test").
	Env string `mapstructure:"APP_ENV"`
	// ServiceName is reported to OTel and used as the log component.
	ServiceName string `mapstructure:"SERVICE_NAME"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	// LogFormat is "json" or "console".
	LogFormat string `mapstructure:"LOG_FORMAT"`

	// JWTAccessSecret signs access tokens. Required outside APP_ENV=test by the authority
	// and by guards in local mode.
	JWTAccessSecret string `mapstructure:"JWT_ACCESS_SECRET"`
	// JWTRefreshSecret signs refresh tokens; must differ from JWTAccessSecret. Only the
	// authority holds it.
	JWTRefreshSecret string `mapstructure:"JWT_REFRESH_SECRET"`
	// JWTPreviousAccessSecrets is a comma-separated list accepted for verification only.
	JWTPreviousAccessSecrets  string `mapstructure:"JWT_PREVIOUS_ACCESS_SECRETS"`
	JWTPreviousRefreshSecrets string `mapstructure:"JWT_PREVIOUS_REFRESH_SECRETS"`
	// JWTIssuer is the iss claim (e.g. "food-auth").
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the aud claim (e.g. "food-api").
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	// JWTAccessTTL is the access token lifetime (e.g. "15m").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`
	// JWTRefreshTTL is the refresh token lifetime and the session TTL (e.g. "168h").
	JWTRefreshTTL string `mapstructure:"JWT_REFRESH_TTL"`
	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// HashWorkers bounds concurrent bcrypt operations; 0 means GOMAXPROCS.
	HashWorkers int `mapstructure:"HASH_WORKERS"`

	// CredentialStore is postgres, mongo or memory.
	CredentialStore string `mapstructure:"CREDENTIAL_STORE"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL   string `mapstructure:"DATABASE_URL"`
	MongoURI      string `mapstructure:"MONGO_URI"`
	MongoDatabase string `mapstructure:"MONGO_DATABASE"`

	// SessionStore is redis or memory.
	SessionStore string `mapstructure:"SESSION_STORE"`
	// RedisURL takes precedence over RedisAddr/RedisPassword/RedisDB when set.
	RedisURL      string `mapstructure:"REDIS_URL"`
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`
	// SessionPrefix is the leading segment of session keys ("{prefix}:{userId}:{deviceId}").
	SessionPrefix string `mapstructure:"SESSION_PREFIX"`

	// RotateRefreshTokens issues a new refresh token on every refresh. Default true.
	RotateRefreshTokens bool `mapstructure:"ROTATE_REFRESH_TOKENS"`
	// RequireVerified rejects login for identities that have not confirmed their email.
	RequireVerified bool `mapstructure:"REQUIRE_VERIFIED"`
	// ValidateAccountStatus re-reads the identity on validate and rejects inactive accounts.
	ValidateAccountStatus bool `mapstructure:"VALIDATE_ACCOUNT_STATUS"`
	// ValidateSession rejects access tokens whose device session has been revoked.
	ValidateSession bool `mapstructure:"VALIDATE_SESSION"`

	// OTPTTL is the verification code lifetime (e.g. "10m").
	OTPTTL string `mapstructure:"OTP_TTL"`
	// OTPReturnToClient keeps plain codes in a dev store readable by tooling. Must not be true in production.
	OTPReturnToClient bool `mapstructure:"OTP_RETURN_TO_CLIENT"`

	// VerifierMode selects how guards verify tokens: local or remote.
	VerifierMode string `mapstructure:"VERIFIER_MODE"`
	// AuthGRPCTarget is the auth service address used by the remote verifier.
	AuthGRPCTarget string `mapstructure:"AUTH_GRPC_TARGET"`
	// VerifyTimeout bounds each remote ValidateToken call (e.g. "2s").
	VerifyTimeout string `mapstructure:"VERIFY_TIMEOUT"`
	// AuthzEngine is "static" or "opa".
	AuthzEngine string `mapstructure:"AUTHZ_ENGINE"`

	// Telemetry (optional). When Kafka brokers are set, security events are published to Kafka.
	// TelemetryKafkaBrokers is a comma-separated list of Kafka broker addresses (e.g. "localhost:9092").
	TelemetryKafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// TelemetryKafkaTopic is the Kafka topic for security events.
	TelemetryKafkaTopic string `mapstructure:"TELEMETRY_KAFKA_TOPIC"`
	// KafkaGroupID is the consumer group ID for the telemetry worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
	// Worker-only: Loki URL for the telemetry worker to push logs (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`
	// OTLPEndpoint enables OTel export when set (e.g. localhost:4317).
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPInsecure bool   `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	// ReuseAlertThreshold is the number of refresh_reuse events per minute that raises an alarm in the worker.
	ReuseAlertThreshold int `mapstructure:"REUSE_ALERT_THRESHOLD"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
// It validates for the Authority; downstream services and tools use LoadFor.
func Load() (*Config, error) {
	return LoadFor(Authority)
}

// LoadFor is Load validated for comp.
func LoadFor(comp Component) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.ValidateFor(comp); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("GRPC_ADDR", ":8080")
	v.SetDefault("HTTP_ADDR", ":8081")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("SERVICE_NAME", "food-auth")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("JWT_ACCESS_SECRET", "")
	v.SetDefault("JWT_REFRESH_SECRET", "")
	v.SetDefault("JWT_PREVIOUS_ACCESS_SECRETS", "")
	v.SetDefault("JWT_PREVIOUS_REFRESH_SECRETS", "")
	v.SetDefault("JWT_ISSUER", "food-auth")
	v.SetDefault("JWT_AUDIENCE", "food-api")
	v.SetDefault("JWT_ACCESS_TTL", "15m")
	v.SetDefault("JWT_REFRESH_TTL", "168h") // 7d
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("HASH_WORKERS", 0)

	v.SetDefault("CREDENTIAL_STORE", StoreMemory)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("MONGO_URI", "")
	v.SetDefault("MONGO_DATABASE", "food_auth")
	v.SetDefault("SESSION_STORE", StoreMemory)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("SESSION_PREFIX", "auth")

	v.SetDefault("ROTATE_REFRESH_TOKENS", true)
	v.SetDefault("REQUIRE_VERIFIED", false)
	v.SetDefault("VALIDATE_ACCOUNT_STATUS", false)
	v.SetDefault("VALIDATE_SESSION", false)
	v.SetDefault("OTP_TTL", "10m")
	v.SetDefault("OTP_RETURN_TO_CLIENT", false)

	v.SetDefault("VERIFIER_MODE", VerifierLocal)
	v.SetDefault("AUTH_GRPC_TARGET", "localhost:8080")
	v.SetDefault("VERIFY_TIMEOUT", "2s")
	v.SetDefault("AUTHZ_ENGINE", "static")

	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("TELEMETRY_KAFKA_TOPIC", "auth-security-events")
	v.SetDefault("KAFKA_GROUP_ID", "auth-telemetry-worker")
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", true)
	v.SetDefault("REUSE_ALERT_THRESHOLD", 20)
}

// Validate checks cross-field constraints for the Authority. Load calls it; tests may call it
// on hand-built configs.
func (c *Config) Validate() error {
	return c.ValidateFor(Authority)
}

// ValidateFor checks cross-field constraints, requiring only the secrets comp uses.
func (c *Config) ValidateFor(comp Component) error {
	if c.GRPCAddr == "" {
		return errors.New("config: GRPC_ADDR must be set")
	}
	if c.OTPReturnToClient && c.Env == "production" {
		return errors.New("config: OTP_RETURN_TO_CLIENT must not be true when APP_ENV=production")
	}
	if err := c.validateSecrets(comp); err != nil {
		return err
	}

	if c.BcryptCost == 0 {
		c.BcryptCost = 12
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	switch c.CredentialStore {
	case StorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("config: DATABASE_URL must be set when CREDENTIAL_STORE=postgres")
		}
	case StoreMongo:
		if c.MongoURI == "" {
			return errors.New("config: MONGO_URI must be set when CREDENTIAL_STORE=mongo")
		}
	case StoreMemory:
	default:
		return errors.New("config: CREDENTIAL_STORE must be postgres, mongo or memory")
	}
	switch c.SessionStore {
	case StoreRedis, StoreMemory:
	default:
		return errors.New("config: SESSION_STORE must be redis or memory")
	}
	switch c.VerifierMode {
	case VerifierLocal, VerifierRemote:
	default:
		return errors.New("config: VERIFIER_MODE must be local or remote")
	}
	switch c.AuthzEngine {
	case "static", "opa":
	default:
		return errors.New("config: AUTHZ_ENGINE must be static or opa")
	}
	return nil
}

func (c *Config) validateSecrets(comp Component) error {
	if c.JWTAccessSecret != "" && c.JWTAccessSecret == c.JWTRefreshSecret {
		return errors.New("config: JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ")
	}
	switch comp {
	case Authority:
		if c.Env != "test" && (c.JWTAccessSecret == "" || c.JWTRefreshSecret == "") {
			return errors.New("config: JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must be set")
		}
	case Guard:
		if c.VerifierMode == VerifierRemote && c.AuthGRPCTarget == "" {
			return errors.New("config: AUTH_GRPC_TARGET must be set when VERIFIER_MODE=remote")
		}
		if c.VerifierMode == VerifierLocal && c.Env != "test" && c.JWTAccessSecret == "" {
			return errors.New("config: JWT_ACCESS_SECRET must be set when VERIFIER_MODE=local")
		}
	}
	return nil
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 15m if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	return parseDuration(c.JWTAccessTTL, 15*time.Minute)
}

// RefreshTTL parses JWTRefreshTTL as a time.Duration. Returns 168h if unset or invalid.
func (c *Config) RefreshTTL() time.Duration {
	return parseDuration(c.JWTRefreshTTL, 168*time.Hour)
}

// OTPLifetime parses OTPTTL. Returns 10m if unset or invalid.
func (c *Config) OTPLifetime() time.Duration {
	return parseDuration(c.OTPTTL, 10*time.Minute)
}

// VerifyTimeoutDuration parses VerifyTimeout. Returns 2s if unset or invalid.
func (c *Config) VerifyTimeoutDuration() time.Duration {
	return parseDuration(c.VerifyTimeout, 2*time.Second)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// PreviousAccessSecrets returns the rotation window for access tokens.
func (c *Config) PreviousAccessSecrets() [][]byte {
	return secretList(c.JWTPreviousAccessSecrets)
}

// PreviousRefreshSecrets returns the rotation window for refresh tokens.
func (c *Config) PreviousRefreshSecrets() [][]byte {
	return secretList(c.JWTPreviousRefreshSecrets)
}

func secretList(s string) [][]byte {
	var out [][]byte
	for _, p := range splitList(s) {
		out = append(out, []byte(p))
	}
	return out
}

// TelemetryKafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if telemetry is enabled (non-empty list) and to create the producer.
func (c *Config) TelemetryKafkaBrokersList() []string {
	if c == nil {
		return nil
	}
	return splitList(c.TelemetryKafkaBrokers)
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
