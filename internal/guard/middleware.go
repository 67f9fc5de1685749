package guard

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"food-delivery-platform/auth/internal/platform/autherr"
	"food-delivery-platform/auth/internal/platform/response"
	"food-delivery-platform/auth/internal/telemetry"
	telemetrydomain "food-delivery-platform/auth/internal/telemetry/domain"
)

const ginIdentityKey = "guard.identity"

// RequireAuth returns gin middleware that verifies the bearer token and attaches the
// Identity to the request context. Rejections answer 401 with a generic message; the
// fine-grained kind goes only to the log and the event stream. events may be nil.
func RequireAuth(v Verifier, logger zerolog.Logger, events telemetry.EventEmitter) gin.HandlerFunc {
	if events == nil {
		events = telemetry.Nop{}
	}
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		token, err := ExtractBearer(c.GetHeader("Authorization"))
		var id Identity
		if err == nil {
			id, err = v.Verify(ctx, token)
		}
		if err != nil {
			kind := autherr.KindOf(err)
			logger.Warn().
				Str("kind", kind.String()).
				Str("method", c.Request.Method).
				Str("path", c.FullPath()).
				Msg("guard rejected request")
			_ = events.Emit(ctx, &telemetrydomain.Event{
				Type:      telemetrydomain.EventGuardReject,
				Kind:      kind.String(),
				Method:    c.Request.Method + " " + c.FullPath(),
				ClientIP:  c.ClientIP(),
				Source:    "http_guard",
				CreatedAt: time.Now().UTC(),
			})
			response.Abort(c, autherr.New(autherr.Unauthenticated, "guard"))
			return
		}
		c.Set(ginIdentityKey, id)
		c.Request = c.Request.WithContext(WithIdentity(ctx, id))
		c.Next()
	}
}

// Current returns the identity RequireAuth attached to c.
func Current(c *gin.Context) (Identity, bool) {
	if v, ok := c.Get(ginIdentityKey); ok {
		if id, ok := v.(Identity); ok {
			return id, true
		}
	}
	return FromContext(c.Request.Context())
}
