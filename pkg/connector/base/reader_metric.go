package base

import (
	"time"

	"github.com/ajitpratap0/nebula-agent/pkg/metrics"
)

// ReaderMetric reports per-record outcomes of one reader to a metrics sink.
type ReaderMetric struct {
	sink   metrics.Sink
	labels metrics.Labels
	now    func() time.Time
}

// NewReaderMetric creates a reporter for the plugin tag, group and stream.
// A nil sink discards reports.
func NewReaderMetric(sink metrics.Sink, plugin, groupID, streamID string) *ReaderMetric {
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &ReaderMetric{
		sink: sink,
		labels: metrics.Labels{
			Plugin:   plugin,
			GroupID:  groupID,
			StreamID: streamID,
		},
		now: time.Now,
	}
}

// ReportSuccess records the read-success audit event and success count, and
// returns the event time.
func (m *ReaderMetric) ReportSuccess() time.Time {
	at := m.now()
	m.sink.AddAudit(metrics.AuditEvent{
		ID:       metrics.AuditReadSuccess,
		GroupID:  m.labels.GroupID,
		StreamID: m.labels.StreamID,
		Time:     at,
	})
	m.sink.IncReadSuccess(m.labels)
	return at
}

// ReportFailure records one failed read.
func (m *ReaderMetric) ReportFailure() {
	m.sink.IncReadFailure(m.labels)
}

// Labels returns the labels reports are tagged with.
func (m *ReaderMetric) Labels() metrics.Labels {
	return m.labels
}
