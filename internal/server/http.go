package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	healthhandler "food-delivery-platform/auth/internal/health/handler"
	identityhandler "food-delivery-platform/auth/internal/identity/handler"
)

// NewHTTPRouter returns the JSON gateway: the auth routes plus GET /healthz when checker is set.
func NewHTTPRouter(deps Deps, checker *healthhandler.Checker) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(deps.Logger))
	if checker != nil {
		r.GET("/healthz", checker.Healthz)
	}
	if deps.Auth != nil {
		identityhandler.NewHTTPHandler(deps.Auth, deps.Verifier, deps.authz(), deps.DevCodes, deps.events(), deps.Logger).Register(r)
	}
	return r
}

func requestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if c.FullPath() == "/healthz" {
			return
		}
		status := c.Writer.Status()
		ev := logger.Info()
		switch {
		case status >= 500:
			ev = logger.Error()
		case status >= 400:
			ev = logger.Warn()
		}
		ev.Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("http request")
	}
}
