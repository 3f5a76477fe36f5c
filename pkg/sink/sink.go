// Package sink delivers reader messages downstream. Every delivered message
// is reported to the metrics sink as a send-success audit event.
package sink

import (
	"bufio"
	"context"
	"io"
	"sync"
	"time"

	"github.com/ajitpratap0/nebula-agent/pkg/connector/core"
	"github.com/ajitpratap0/nebula-agent/pkg/metrics"
	"github.com/ajitpratap0/nebula-agent/pkg/nebulaerrors"
)

// MessageSink accepts messages produced by a reader.
type MessageSink interface {
	Send(ctx context.Context, msg *core.Message) error
	Close() error
}

var nowFunc = time.Now

// auditSent records a delivered message.
func auditSent(m metrics.Sink, msg *core.Message) {
	m.AddAudit(metrics.AuditEvent{
		ID:       metrics.AuditSendSuccess,
		GroupID:  msg.Header[core.HeaderGroupID],
		StreamID: msg.Header[core.HeaderStreamID],
		Time:     nowFunc(),
	})
}

// WriterSink writes each message body as one line.
type WriterSink struct {
	mu      sync.Mutex
	w       *bufio.Writer
	metrics metrics.Sink
}

// NewWriterSink creates a sink writing to w. A nil metrics sink discards
// audit events.
func NewWriterSink(w io.Writer, m metrics.Sink) *WriterSink {
	if m == nil {
		m = metrics.NopSink{}
	}
	return &WriterSink{w: bufio.NewWriter(w), metrics: m}
}

// Send writes the message body followed by a newline.
func (s *WriterSink) Send(_ context.Context, msg *core.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.w.Write(msg.Body); err != nil {
		return nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeSink, "failed to write message")
	}
	if err := s.w.WriteByte('\n'); err != nil {
		return nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeSink, "failed to write message")
	}
	auditSent(s.metrics, msg)
	return nil
}

// Close flushes buffered output. The underlying writer is not closed.
func (s *WriterSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.w.Flush(); err != nil {
		return nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeSink, "failed to flush output")
	}
	return nil
}
