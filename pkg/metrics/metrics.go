// Package metrics provides the counters-and-events sink agent readers report
// to. Readers receive a Sink explicitly; nothing is global.
//
// # Overview
//
// A reader reports, per record:
//   - success: one audit event (AuditReadSuccess) and one success count
//   - failure: one failure count
//
// PrometheusSink exports these as Prometheus metrics and is safe for
// concurrent use by many readers. NopSink discards everything.
//
// # Basic Usage
//
//	sink := metrics.NewPrometheusSink(prometheus.DefaultRegisterer)
//	labels := metrics.Labels{Plugin: "AgentSQLServerMetric", GroupID: "g", StreamID: "s"}
//	sink.AddAudit(metrics.AuditEvent{ID: metrics.AuditReadSuccess, GroupID: "g", StreamID: "s", Time: time.Now()})
//	sink.IncReadSuccess(labels)
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// AuditID identifies the kind of an audit event.
type AuditID int

const (
	// AuditReadSuccess is reported once per record read from a source.
	AuditReadSuccess AuditID = 3
	// AuditSendSuccess is reported once per message delivered downstream.
	AuditSendSuccess AuditID = 4
)

// String returns the decimal form used as a metric label.
func (id AuditID) String() string {
	return strconv.Itoa(int(id))
}

// AuditEvent is a single audited occurrence tagged with the group and stream
// it belongs to.
type AuditEvent struct {
	ID       AuditID
	GroupID  string
	StreamID string
	Time     time.Time
}

// Labels identify the plugin instance a count belongs to.
type Labels struct {
	Plugin   string
	GroupID  string
	StreamID string
}

func (l Labels) values() []string {
	return []string{l.Plugin, l.GroupID, l.StreamID}
}

// Sink receives audit events and per-record counts. Implementations must be
// safe for concurrent use.
type Sink interface {
	AddAudit(event AuditEvent)
	IncReadSuccess(labels Labels)
	IncReadFailure(labels Labels)
}

// PrometheusSink implements Sink with Prometheus collectors.
type PrometheusSink struct {
	readSuccess    *prometheus.CounterVec // Records read
	readFailure    *prometheus.CounterVec // Failed reads
	auditEvents    *prometheus.CounterVec // Audit events by id
	auditTimestamp *prometheus.GaugeVec   // Time of the latest audit event
}

// NewPrometheusSink creates a sink and registers its collectors with reg.
// A nil reg leaves the collectors unregistered.
func NewPrometheusSink(reg prometheus.Registerer) *PrometheusSink {
	s := &PrometheusSink{
		readSuccess: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nebula_agent_plugin_read_total",
				Help: "Total number of records read by source plugins",
			},
			[]string{"plugin", "group", "stream"},
		),
		readFailure: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nebula_agent_plugin_read_fail_total",
				Help: "Total number of failed record reads by source plugins",
			},
			[]string{"plugin", "group", "stream"},
		),
		auditEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nebula_agent_audit_events_total",
				Help: "Total number of audit events",
			},
			[]string{"audit_id", "group", "stream"},
		),
		auditTimestamp: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "nebula_agent_audit_last_event_timestamp_seconds",
				Help: "Unix time of the latest audit event",
			},
			[]string{"audit_id", "group", "stream"},
		),
	}

	if reg != nil {
		reg.MustRegister(s.readSuccess, s.readFailure, s.auditEvents, s.auditTimestamp)
	}
	return s
}

// AddAudit records an audit event.
func (s *PrometheusSink) AddAudit(event AuditEvent) {
	lv := []string{event.ID.String(), event.GroupID, event.StreamID}
	s.auditEvents.WithLabelValues(lv...).Inc()
	s.auditTimestamp.WithLabelValues(lv...).Set(float64(event.Time.UnixMilli()) / 1e3)
}

// IncReadSuccess counts one successfully read record.
func (s *PrometheusSink) IncReadSuccess(labels Labels) {
	s.readSuccess.WithLabelValues(labels.values()...).Inc()
}

// IncReadFailure counts one failed read.
func (s *PrometheusSink) IncReadFailure(labels Labels) {
	s.readFailure.WithLabelValues(labels.values()...).Inc()
}

// ReadSuccessCounter returns the success counter for labels.
func (s *PrometheusSink) ReadSuccessCounter(labels Labels) prometheus.Counter {
	return s.readSuccess.WithLabelValues(labels.values()...)
}

// ReadFailureCounter returns the failure counter for labels.
func (s *PrometheusSink) ReadFailureCounter(labels Labels) prometheus.Counter {
	return s.readFailure.WithLabelValues(labels.values()...)
}

// AuditCounter returns the audit event counter for an id, group and stream.
func (s *PrometheusSink) AuditCounter(id AuditID, groupID, streamID string) prometheus.Counter {
	return s.auditEvents.WithLabelValues(id.String(), groupID, streamID)
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) AddAudit(AuditEvent)   {}
func (NopSink) IncReadSuccess(Labels) {}
func (NopSink) IncReadFailure(Labels) {}
