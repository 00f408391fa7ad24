package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// AttrStatusText holds the error class of a failed response on its span.
const AttrStatusText = "http.status_text"

// TracingConfig configures Tracing.
type TracingConfig struct {
	ServiceName string
	Enabled     bool
}

// Tracing wraps otelgin; spans are named after the matched route pattern.
func Tracing(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}
	return otelgin.Middleware(cfg.ServiceName)
}

// SpanAttributes copies the request id and the authenticated username onto
// the active span, then marks the span failed on error responses. Register
// it after Tracing; groups behind JWTAuth get the username.
func SpanAttributes() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			if id := GetRequestID(c); id != "" {
				span.SetAttributes(attribute.String("request_id", id))
			}
		}

		c.Next()

		if !span.IsRecording() {
			return
		}
		if username := GetJWTUsername(c); username != "" {
			span.SetAttributes(attribute.String("enduser.id", username))
		}
		markSpanStatus(span, c.Writer.Status())
	}
}

// markSpanStatus flags error responses. otelgin sets its own status on 5xx
// after this handler returns, so the description is also kept as an attribute.
func markSpanStatus(span trace.Span, status int) {
	if status < http.StatusBadRequest {
		return
	}
	desc := statusDescription(status)
	span.SetAttributes(
		attribute.Int("http.status_code", status),
		attribute.String(AttrStatusText, desc),
	)
	span.SetStatus(codes.Error, desc)
}

func statusDescription(status int) string {
	switch {
	case status >= http.StatusInternalServerError:
		return "Internal Server Error"
	case status == http.StatusUnauthorized:
		return "Unauthorized"
	case status == http.StatusForbidden:
		return "Forbidden"
	case status == http.StatusNotFound:
		return "Not Found"
	case status == http.StatusTooManyRequests:
		return "Too Many Requests"
	default:
		return "Client Error"
	}
}
