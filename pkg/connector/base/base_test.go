package base

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ajitpratap0/nebula-agent/pkg/metrics"
	"github.com/ajitpratap0/nebula-agent/pkg/nebulaerrors"
)

func TestCloseAll_OrderAndFailureIsolation(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	var order []string

	errs := CloseAll(zap.New(core),
		Resource{Name: "cursor", Close: func() error { order = append(order, "cursor"); return errors.New("boom") }},
		Resource{Name: "skipped"},
		Resource{Name: "statement", Close: func() error { order = append(order, "statement"); panic("bad driver") }},
		Resource{Name: "connection", Close: func() error { order = append(order, "connection"); return nil }},
	)

	assert.Equal(t, []string{"cursor", "statement", "connection"}, order)
	require.Len(t, errs, 2)
	for _, err := range errs {
		assert.True(t, nebulaerrors.IsType(err, nebulaerrors.ErrorTypeResourceClose))
		assert.False(t, nebulaerrors.IsFatal(err))
	}
	assert.Equal(t, 2, logs.FilterMessage("failed to close resource").Len())
}

func TestCloseAll_Empty(t *testing.T) {
	assert.Empty(t, CloseAll(zap.NewNop()))
}

func TestReaderMetric_Reports(t *testing.T) {
	sink := metrics.NewPrometheusSink(nil)
	m := NewReaderMetric(sink, "AgentSQLServerMetric", "g", "s")
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	m.now = func() time.Time { return fixed }

	assert.Equal(t, fixed, m.ReportSuccess())
	m.ReportFailure()

	assert.Equal(t, 1.0, testutil.ToFloat64(sink.ReadSuccessCounter(m.Labels())))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.ReadFailureCounter(m.Labels())))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.AuditCounter(metrics.AuditReadSuccess, "g", "s")))
}

func TestReaderMetric_NilSink(t *testing.T) {
	m := NewReaderMetric(nil, "p", "g", "s")
	assert.NotPanics(t, func() {
		m.ReportSuccess()
		m.ReportFailure()
	})
}
