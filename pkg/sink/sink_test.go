package sink

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/nebula-agent/pkg/compression"
	"github.com/ajitpratap0/nebula-agent/pkg/connector/core"
	"github.com/ajitpratap0/nebula-agent/pkg/metrics"
	"github.com/ajitpratap0/nebula-agent/pkg/nebulaerrors"
)

var sentAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testMessage(body string) *core.Message {
	return core.NewMessage([]byte(body), "g1", "s1", sentAt)
}

func TestWriterSink_WritesLines(t *testing.T) {
	var buf bytes.Buffer
	m := metrics.NewPrometheusSink(nil)
	s := NewWriterSink(&buf, m)

	require.NoError(t, s.Send(context.Background(), testMessage("1\x01a")))
	require.NoError(t, s.Send(context.Background(), testMessage("2\x01b")))
	require.NoError(t, s.Close())

	assert.Equal(t, "1\x01a\n2\x01b\n", buf.String())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.AuditCounter(metrics.AuditSendSuccess, "g1", "s1")))
}

func TestKafkaSink_Publishes(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(pm *sarama.ProducerMessage) error {
		if pm.Topic != "agent-records" {
			return errors.New("unexpected topic " + pm.Topic)
		}
		body, err := pm.Value.Encode()
		if err != nil {
			return err
		}
		if string(body) != "1\x01ab" {
			return errors.New("unexpected body")
		}
		if len(pm.Headers) != 3 {
			return errors.New("expected message headers")
		}
		return nil
	})

	m := metrics.NewPrometheusSink(nil)
	s := NewKafkaSinkWithProducer(producer, "agent-records", m)
	require.NoError(t, s.Send(context.Background(), testMessage("1\x01ab")))
	require.NoError(t, s.Close())

	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuditCounter(metrics.AuditSendSuccess, "g1", "s1")))
}

func TestKafkaSink_SendFailure(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(sarama.ErrNotLeaderForPartition)

	m := metrics.NewPrometheusSink(nil)
	s := NewKafkaSinkWithProducer(producer, "agent-records", m)
	err := s.Send(context.Background(), testMessage("x"))
	require.Error(t, err)
	assert.True(t, nebulaerrors.IsType(err, nebulaerrors.ErrorTypeSink))
	assert.ErrorIs(t, err, sarama.ErrNotLeaderForPartition)
	require.NoError(t, s.Close())

	assert.Equal(t, 0.0, testutil.ToFloat64(m.AuditCounter(metrics.AuditSendSuccess, "g1", "s1")))
}

func TestNewKafkaSink_RequiresBrokersAndTopic(t *testing.T) {
	_, err := NewKafkaSink(KafkaConfig{Topic: "t"}, nil)
	assert.True(t, nebulaerrors.IsType(err, nebulaerrors.ErrorTypeConfig))

	_, err = NewKafkaSink(KafkaConfig{Brokers: []string{"localhost:9092"}}, nil)
	assert.True(t, nebulaerrors.IsType(err, nebulaerrors.ErrorTypeConfig))
}

func TestBuildSaramaConfig(t *testing.T) {
	cfg := BuildSaramaConfig(KafkaConfig{
		RequiredAcks:  "1",
		Compression:   "lz4",
		SASLMechanism: "SCRAM-SHA-512",
		SASLUsername:  "agent",
	})
	assert.Equal(t, sarama.WaitForLocal, cfg.Producer.RequiredAcks)
	assert.Equal(t, sarama.CompressionLZ4, cfg.Producer.Compression)
	assert.True(t, cfg.Producer.Return.Successes)
	assert.True(t, cfg.Net.SASL.Enable)
	assert.Equal(t, sarama.SASLMechanism(sarama.SASLTypeSCRAMSHA512), cfg.Net.SASL.Mechanism)

	defaults := BuildSaramaConfig(KafkaConfig{})
	assert.Equal(t, sarama.WaitForAll, defaults.Producer.RequiredAcks)
	assert.Equal(t, sarama.CompressionNone, defaults.Producer.Compression)
	assert.False(t, defaults.Net.TLS.Enable)
}

func TestFileSink_Compressed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records"+compression.Zstd.Extension())
	s, err := NewFileSink(path, compression.Zstd, nil)
	require.NoError(t, err)

	require.NoError(t, s.Send(context.Background(), testMessage("1\x01a")))
	require.NoError(t, s.Send(context.Background(), testMessage("2\x01b")))
	require.NoError(t, s.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	r, err := compression.NewReader(f, compression.Zstd)
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "1\x01a\n2\x01b\n", string(got))
}
