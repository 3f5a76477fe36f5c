// Package observability provides OpenTelemetry tracing for agent readers.
// Spans go to the globally registered tracer provider; without one they are
// no-ops.
package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/ajitpratap0/nebula-agent"

// Span wraps a trace span and batches its attributes until End.
type Span struct {
	span       trace.Span
	startTime  time.Time
	attributes []attribute.KeyValue
}

// SetAttribute adds an attribute to the span
func (s *Span) SetAttribute(key string, value interface{}) {
	var attr attribute.KeyValue

	switch v := value.(type) {
	case string:
		attr = attribute.String(key, v)
	case int:
		attr = attribute.Int(key, v)
	case int64:
		attr = attribute.Int64(key, v)
	case bool:
		attr = attribute.Bool(key, v)
	default:
		attr = attribute.String(key, fmt.Sprintf("%v", v))
	}

	s.attributes = append(s.attributes, attr)
}

// End records err, if any, and ends the span.
func (s *Span) End(err error) {
	if err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	} else {
		s.span.SetStatus(codes.Ok, "")
	}
	s.attributes = append(s.attributes, attribute.Int64("duration_ms", time.Since(s.startTime).Milliseconds()))
	s.span.SetAttributes(s.attributes...)
	s.span.End()
}

// ConnectorTracer starts spans for one connector
type ConnectorTracer struct {
	connectorName string
	tracer        trace.Tracer
}

// NewConnectorTracer creates a tracer for the named connector.
func NewConnectorTracer(connectorName string) *ConnectorTracer {
	return &ConnectorTracer{
		connectorName: connectorName,
		tracer:        otel.Tracer(instrumentationName),
	}
}

// StartSpan starts a span named <connector>.<operation>.
func (ct *ConnectorTracer) StartSpan(ctx context.Context, operation string) (context.Context, *Span) {
	ctx, span := ct.tracer.Start(ctx, ct.connectorName+"."+operation)
	s := &Span{span: span, startTime: time.Now()}
	s.SetAttribute("connector.name", ct.connectorName)
	s.SetAttribute("connector.operation", operation)
	return ctx, s
}
