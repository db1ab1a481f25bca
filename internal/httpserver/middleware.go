package httpserver

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"marketplace-orders/internal/domain"
)

const (
	headerRequestID = "X-Request-ID"
	headerActorRole = "X-Actor-Role"
	headerActorID   = "X-Actor-ID"
	ginRequestIDKey = "request_id"
)

type ctxKey string

const actorCtxKey ctxKey = "actor"

// actor is the caller identity taken from request headers. It is used for
// route gating and for the role passed to the order state machine.
type actor struct {
	Role domain.Role
	ID   string
}

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(headerRequestID))
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ginRequestIDKey, id)
		c.Header(headerRequestID, id)
		c.Next()
	}
}

func accessLogMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", c.GetString(ginRequestIDKey)),
		}
		if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
			fields = append(fields, zap.String("trace_id", sc.TraceID().String()))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			logger.Error("request", fields...)
		default:
			logger.Info("request", fields...)
		}
	}
}

// tracingMiddleware continues an incoming trace and opens a server span.
func tracingMiddleware(tracer trace.Tracer) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := otel.GetTextMapPropagator().Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		ctx, span := tracer.Start(ctx, c.Request.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", c.Request.Method),
				attribute.String("http.route", route),
			),
		)
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.response.status_code", status))
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}

// actorMiddleware reads the actor headers. Requests without a recognized
// role continue anonymously; requireRoles decides what they may reach.
func actorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := domain.ParseRole(c.GetHeader(headerActorRole))
		if ok {
			a := actor{Role: role, ID: strings.TrimSpace(c.GetHeader(headerActorID))}
			ctx := context.WithValue(c.Request.Context(), actorCtxKey, a)
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	}
}

func actorFrom(ctx context.Context) (actor, bool) {
	a, ok := ctx.Value(actorCtxKey).(actor)
	return a, ok
}

// requireRoles rejects callers whose role is not listed.
func requireRoles(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		a, ok := actorFrom(c.Request.Context())
		if !ok {
			abortWithError(c, http.StatusUnauthorized, "unauthorized", "missing or unknown "+headerActorRole+" header")
			return
		}
		for _, r := range roles {
			if a.Role == r {
				c.Next()
				return
			}
		}
		abortWithError(c, http.StatusForbidden, "forbidden", "role "+string(a.Role)+" may not access this route")
	}
}

// requireActorID is used on routes scoped to the caller.
func requireActorID() gin.HandlerFunc {
	return func(c *gin.Context) {
		a, _ := actorFrom(c.Request.Context())
		if a.ID == "" {
			abortWithError(c, http.StatusUnauthorized, "unauthorized", "missing "+headerActorID+" header")
			return
		}
		c.Next()
	}
}
