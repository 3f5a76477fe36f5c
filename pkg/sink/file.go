package sink

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/ajitpratap0/nebula-agent/pkg/compression"
	"github.com/ajitpratap0/nebula-agent/pkg/connector/core"
	"github.com/ajitpratap0/nebula-agent/pkg/metrics"
	"github.com/ajitpratap0/nebula-agent/pkg/nebulaerrors"
)

// FileSink writes one message body per line to a file, optionally
// compressed.
type FileSink struct {
	lines      *WriterSink
	compressor io.WriteCloser
	file       *os.File
}

// NewFileSink creates or truncates path.
func NewFileSink(path string, algorithm compression.Algorithm, m metrics.Sink) (*FileSink, error) {
	f, err := os.Create(path) //nolint:gosec // G304: path comes from the operator
	if err != nil {
		return nil, nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeSink, "failed to create output file").
			WithDetail("path", path)
	}

	cw, err := compression.NewWriter(f, algorithm, compression.Default)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	return &FileSink{
		lines:      NewWriterSink(cw, m),
		compressor: cw,
		file:       f,
	}, nil
}

// Send writes the message body followed by a newline.
func (s *FileSink) Send(ctx context.Context, msg *core.Message) error {
	return s.lines.Send(ctx, msg)
}

// Close flushes buffered lines and the compressed stream, then closes the
// file.
func (s *FileSink) Close() error {
	err := errors.Join(s.lines.Close(), s.compressor.Close(), s.file.Close())
	if err != nil {
		return nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeSink, "failed to close output file")
	}
	return nil
}
