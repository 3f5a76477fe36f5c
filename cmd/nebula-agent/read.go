package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-agent/pkg/compression"
	"github.com/ajitpratap0/nebula-agent/pkg/config"
	"github.com/ajitpratap0/nebula-agent/pkg/connector/core"
	"github.com/ajitpratap0/nebula-agent/pkg/connector/registry"
	"github.com/ajitpratap0/nebula-agent/pkg/logger"
	"github.com/ajitpratap0/nebula-agent/pkg/metrics"
	"github.com/ajitpratap0/nebula-agent/pkg/nebulaerrors"
	"github.com/ajitpratap0/nebula-agent/pkg/sink"
)

// queryKey holds the query text in a job profile.
const queryKey = "job.sql.command"

// Kafka sink profile keys. Broker and topic flags take precedence.
const (
	keyKafkaBrokers       = "sink.kafka.brokers"
	keyKafkaTopic         = "sink.kafka.topic"
	keyKafkaClientID      = "sink.kafka.clientId"
	keyKafkaRequiredAcks  = "sink.kafka.requiredAcks"
	keyKafkaRetries       = "sink.kafka.retries"
	keyKafkaCompression   = "sink.kafka.compression"
	keyKafkaTLSEnable     = "sink.kafka.tls.enable"
	keyKafkaTLSSkipVerify = "sink.kafka.tls.skipVerify"
	keyKafkaSASLMechanism = "sink.kafka.sasl.mechanism"
	keyKafkaSASLUsername  = "sink.kafka.sasl.username"
	keyKafkaSASLPassword  = "sink.kafka.sasl.password"
)

type readOptions struct {
	jobFile      string
	reader       string
	query        string
	kafkaBrokers []string
	topic        string
	output       string
	compression  string
	metricsAddr  string
}

// runSummary is printed when a read job ends.
type runSummary struct {
	Reader    string    `json:"reader"`
	Source    string    `json:"source"`
	Records   int64     `json:"records"`
	Failed    bool      `json:"failed"`
	Error     string    `json:"error,omitempty"`
	StartedAt time.Time `json:"started_at"`
	Duration  string    `json:"duration"`
	RSSBytes  uint64    `json:"rss_bytes,omitempty"`
}

// executeRead wires the reader, metrics and message sink for one job and
// runs it.
func executeRead(ctx context.Context, opts *readOptions, out io.Writer) (*runSummary, error) {
	profile, err := config.LoadJobProfile(opts.jobFile)
	if err != nil {
		return nil, err
	}

	query := opts.query
	if query == "" {
		if query, err = profile.Require(queryKey); err != nil {
			return nil, err
		}
	}

	reg := prometheus.NewRegistry()
	metricsSink := metrics.NewPrometheusSink(reg)
	if opts.metricsAddr != "" {
		srv := serveMetrics(opts.metricsAddr, reg)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	kafkaCfg, err := kafkaConfig(profile, opts)
	if err != nil {
		return nil, err
	}

	var msgSink sink.MessageSink
	switch {
	case len(kafkaCfg.Brokers) > 0:
		if msgSink, err = sink.NewKafkaSink(kafkaCfg, metricsSink); err != nil {
			return nil, err
		}
	case opts.output != "":
		algorithm, perr := compression.ParseAlgorithm(opts.compression)
		if perr != nil {
			return nil, perr
		}
		if msgSink, err = sink.NewFileSink(opts.output, algorithm, metricsSink); err != nil {
			return nil, err
		}
	default:
		msgSink = sink.NewWriterSink(out, metricsSink)
	}

	reader, err := registry.CreateReader(opts.reader, query, registry.Dependencies{Metrics: metricsSink})
	if err != nil {
		_ = msgSink.Close()
		return nil, err
	}

	summary, err := runRead(ctx, opts.reader, reader, profile, msgSink)
	if cerr := msgSink.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return summary, err
}

// kafkaConfig builds the producer settings from the sink.kafka.* profile
// keys and the command line. No brokers means Kafka is not used.
func kafkaConfig(profile *config.JobProfile, opts *readOptions) (sink.KafkaConfig, error) {
	cfg := sink.KafkaConfig{
		Brokers:       opts.kafkaBrokers,
		Topic:         opts.topic,
		ClientID:      profile.Get(keyKafkaClientID, "nebula-agent"),
		RequiredAcks:  profile.Get(keyKafkaRequiredAcks, "all"),
		Compression:   profile.Get(keyKafkaCompression, "none"),
		SASLMechanism: profile.Get(keyKafkaSASLMechanism, ""),
		SASLUsername:  profile.Get(keyKafkaSASLUsername, ""),
		SASLPassword:  profile.Get(keyKafkaSASLPassword, ""),
	}
	if len(cfg.Brokers) == 0 {
		for _, b := range strings.Split(profile.Get(keyKafkaBrokers, ""), ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.Brokers = append(cfg.Brokers, b)
			}
		}
	}
	if cfg.Topic == "" {
		cfg.Topic = profile.Get(keyKafkaTopic, "")
	}

	var err error
	if cfg.Retries, err = profile.GetInt(keyKafkaRetries, 0); err != nil {
		return cfg, err
	}
	if cfg.EnableTLS, err = profile.GetBool(keyKafkaTLSEnable, false); err != nil {
		return cfg, err
	}
	if cfg.TLSSkipVerify, err = profile.GetBool(keyKafkaTLSSkipVerify, false); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// runRead opens the reader and forwards messages to the sink until the
// reader is finished, a step fails or ctx is cancelled. The reader is always
// destroyed.
func runRead(ctx context.Context, name string, reader core.Reader, profile *config.JobProfile, out sink.MessageSink) (*runSummary, error) {
	log := logger.WithContext(ctx).With(zap.String("component", "nebula-agent"), zap.String("reader", name))
	summary := &runSummary{
		Reader:    name,
		Source:    reader.ReadSource(),
		StartedAt: time.Now().UTC(),
	}

	err := pump(ctx, reader, profile, out, &summary.Records)
	reader.Destroy()

	summary.Duration = time.Since(summary.StartedAt).String()
	summary.RSSBytes = residentMemory()
	if err != nil {
		summary.Failed = true
		summary.Error = err.Error()
		log.Error("read job failed", zap.Int64("records", summary.Records), zap.Error(err))
		return summary, err
	}

	log.Info("read job completed",
		zap.Int64("records", summary.Records),
		zap.String("duration", summary.Duration))
	return summary, nil
}

func pump(ctx context.Context, reader core.Reader, profile *config.JobProfile, out sink.MessageSink, records *int64) error {
	if err := reader.Open(ctx, profile); err != nil {
		return err
	}

	for !reader.IsFinished() {
		if err := ctx.Err(); err != nil {
			return nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeInternal, "read job cancelled")
		}

		msg, err := reader.Read()
		if err != nil {
			return err
		}
		if msg == nil {
			continue
		}
		if err := out.Send(ctx, msg); err != nil {
			return err
		}
		*records++
	}
	return nil
}

// serveMetrics exposes reg on addr/metrics in the background.
func serveMetrics(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Get().Warn("metrics server stopped", zap.String("addr", addr), zap.Error(err))
		}
	}()
	return srv
}

// residentMemory returns the resident set size of this process, or 0 when it
// cannot be read.
func residentMemory() uint64 {
	proc, err := process.NewProcess(int32(os.Getpid())) //nolint:gosec // pids fit in int32
	if err != nil {
		return 0
	}
	info, err := proc.MemoryInfo()
	if err != nil {
		return 0
	}
	return info.RSS
}
