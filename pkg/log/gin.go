package log

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const headerRequestID = "X-Request-ID"

// GinMiddleware attaches a request-scoped logger to every request and logs
// its completion. Paths listed in skip are served but not logged.
//
// The completion level follows the response: 5xx logs at error, 4xx at warn
// and everything else at info. Upgraded WebSocket connections report their
// whole connection lifetime as latency.
func GinMiddleware(logger zerolog.Logger, skip ...string) gin.HandlerFunc {
	skipped := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		skipped[p] = struct{}{}
	}

	return func(c *gin.Context) {
		start := time.Now()

		reqID := c.GetHeader(headerRequestID)
		if reqID == "" {
			reqID = uuid.New().String()
		}

		child := logger.With().
			Str(FieldRequestID, reqID).
			Str(FieldMethod, c.Request.Method).
			Str(FieldPath, c.Request.URL.Path).
			Str(FieldClientIP, c.ClientIP()).
			Logger()

		c.Header(headerRequestID, reqID)
		c.Request = c.Request.WithContext(WithLogger(c.Request.Context(), child))

		c.Next()

		if _, ok := skipped[c.FullPath()]; ok {
			return
		}

		status := c.Writer.Status()
		var evt *zerolog.Event
		switch {
		case status >= http.StatusInternalServerError:
			evt = child.Error()
		case status >= http.StatusBadRequest:
			evt = child.Warn()
		default:
			evt = child.Info()
		}
		evt = evt.Int(FieldStatus, status).
			Float64(FieldLatency, float64(time.Since(start).Milliseconds()))

		// Set by the auth middleware.
		if userID := c.GetString(FieldUserID); userID != "" {
			evt = evt.Str(FieldUserID, userID)
		}
		if name := c.GetString(FieldDisplayName); name != "" {
			evt = evt.Str(FieldDisplayName, name)
		}
		if len(c.Errors) > 0 {
			evt = evt.Str("errors", c.Errors.String())
		}

		evt.Msg("request completed")
	}
}
