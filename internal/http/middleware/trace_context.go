package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

const (
	headerTraceID   = "X-Trace-Id"
	headerRequestID = "X-Request-Id"
)

type traceKey struct{}

type TraceData struct {
	TraceID   string
	RequestID string
}

// TraceFrom returns the ids stamped by AttachTraceContext, or nil.
func TraceFrom(ctx context.Context) *TraceData {
	td, _ := ctx.Value(traceKey{}).(*TraceData)
	return td
}

// AttachTraceContext stamps request and trace ids on the context and the
// response. The otel span id wins over a caller-supplied trace header.
func AttachTraceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		td := &TraceData{RequestID: strings.TrimSpace(c.GetHeader(headerRequestID))}
		if td.RequestID == "" {
			td.RequestID = uuid.New().String()
		}
		if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
			td.TraceID = sc.TraceID().String()
		} else if td.TraceID = strings.TrimSpace(c.GetHeader(headerTraceID)); td.TraceID == "" {
			td.TraceID = uuid.New().String()
		}
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), traceKey{}, td))
		c.Writer.Header().Set(headerTraceID, td.TraceID)
		c.Writer.Header().Set(headerRequestID, td.RequestID)
		c.Next()
	}
}
