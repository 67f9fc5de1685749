package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"food-delivery-platform/auth/internal/platform/response"
)

const (
	// DefaultInterval is how often Run re-checks dependencies.
	DefaultInterval = 10 * time.Second
	pingTimeout     = 2 * time.Second
)

// Pinger reports whether a dependency is reachable (credential store, session store).
type Pinger interface {
	Ping(ctx context.Context) error
}

// Check is one named dependency.
type Check struct {
	Name   string
	Pinger Pinger
}

// Checker pings dependencies and publishes the result to the gRPC health server: every
// registered service is SERVING only while all checks pass.
type Checker struct {
	health   *health.Server
	services []string
	checks   []Check
	logger   zerolog.Logger

	mu   sync.Mutex
	last map[string]string
	ok   bool
}

// NewChecker returns a Checker for hs. services are the gRPC service names to flip in
// addition to the overall "" service.
func NewChecker(hs *health.Server, services []string, logger zerolog.Logger, checks ...Check) *Checker {
	return &Checker{
		health:   hs,
		services: append([]string{""}, services...),
		checks:   checks,
		logger:   logger,
		last:     make(map[string]string),
	}
}

// CheckOnce pings every dependency, updates the health server, and reports whether all passed.
func (c *Checker) CheckOnce(ctx context.Context) bool {
	results := make(map[string]string, len(c.checks))
	ok := true
	for _, chk := range c.checks {
		if chk.Pinger == nil {
			continue
		}
		pctx, cancel := context.WithTimeout(ctx, pingTimeout)
		err := chk.Pinger.Ping(pctx)
		cancel()
		if err != nil {
			ok = false
			results[chk.Name] = "unavailable"
			c.logger.Warn().Err(err).Str("check", chk.Name).Msg("health check failed")
			continue
		}
		results[chk.Name] = "ok"
	}

	st := healthpb.HealthCheckResponse_SERVING
	if !ok {
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}
	if c.health != nil {
		for _, svc := range c.services {
			c.health.SetServingStatus(svc, st)
		}
	}

	c.mu.Lock()
	c.last, c.ok = results, ok
	c.mu.Unlock()
	return ok
}

// Run calls CheckOnce immediately and then every interval until ctx is done.
func (c *Checker) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	c.CheckOnce(ctx)
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			c.CheckOnce(ctx)
		}
	}
}

// Shutdown marks every service NOT_SERVING so load balancers drain the instance.
func (c *Checker) Shutdown() {
	if c.health != nil {
		c.health.Shutdown()
	}
}

// Healthz is the GET /healthz handler. It checks live and answers 200 or 503.
func (c *Checker) Healthz(ctx *gin.Context) {
	ok := c.CheckOnce(ctx.Request.Context())
	c.mu.Lock()
	checks := make(map[string]string, len(c.last))
	for k, v := range c.last {
		checks[k] = v
	}
	c.mu.Unlock()
	if !ok {
		ctx.JSON(http.StatusServiceUnavailable, response.Envelope{Success: false, Message: "Service unavailable", Data: gin.H{"checks": checks}})
		return
	}
	response.OK(ctx, "ok", gin.H{"checks": checks})
}
