package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusSink_Counts(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink := NewPrometheusSink(reg)
	labels := Labels{Plugin: "AgentSQLServerMetric", GroupID: "g1", StreamID: "s1"}

	sink.IncReadSuccess(labels)
	sink.IncReadSuccess(labels)
	sink.IncReadFailure(labels)
	sink.AddAudit(AuditEvent{ID: AuditReadSuccess, GroupID: "g1", StreamID: "s1", Time: time.Unix(1700000000, 0)})

	assert.Equal(t, 2.0, testutil.ToFloat64(sink.ReadSuccessCounter(labels)))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.ReadFailureCounter(labels)))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.AuditCounter(AuditReadSuccess, "g1", "s1")))
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(sink.auditTimestamp.WithLabelValues("3", "g1", "s1")))

	n, err := testutil.GatherAndCount(reg, "nebula_agent_plugin_read_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPrometheusSink_ConcurrentReaders(t *testing.T) {
	sink := NewPrometheusSink(nil)
	labels := Labels{Plugin: "p", GroupID: "g", StreamID: "s"}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				sink.IncReadSuccess(labels)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 800.0, testutil.ToFloat64(sink.ReadSuccessCounter(labels)))
}

func TestAuditID_String(t *testing.T) {
	assert.Equal(t, "3", AuditReadSuccess.String())
}
