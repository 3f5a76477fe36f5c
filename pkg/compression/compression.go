// Package compression provides streaming compression for record output.
//
// Supported algorithms:
//   - Snappy/S2: Best for speed, moderate compression
//   - LZ4: Extremely fast, decent compression
//   - Zstd: Best compression ratio, good speed
//   - Gzip: Wide compatibility, good compression
//
// # Usage
//
//	w, err := compression.NewWriter(file, compression.Zstd, compression.Default)
//	if err != nil {
//	    return err
//	}
//	defer w.Close() // flushes the final frame; does not close file
package compression

import (
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/ajitpratap0/nebula-agent/pkg/nebulaerrors"
)

// Algorithm represents a compression algorithm.
type Algorithm string

const (
	// None represents no compression
	None Algorithm = "none"
	// Gzip represents gzip compression
	Gzip Algorithm = "gzip"
	// Snappy represents snappy framed compression
	Snappy Algorithm = "snappy"
	// LZ4 represents lz4 frame compression
	LZ4 Algorithm = "lz4"
	// Zstd represents zstandard compression
	Zstd Algorithm = "zstd"
	// S2 represents s2 compression (Snappy compatible)
	S2 Algorithm = "s2"
)

// Level represents compression level, controlling the trade-off between
// compression speed and compression ratio.
type Level int

const (
	// Fastest prioritizes speed over compression ratio.
	Fastest Level = 1
	// Default balances speed and compression.
	Default Level = 5
	// Better improves compression at cost of speed.
	Better Level = 7
	// Best maximizes compression ratio.
	Best Level = 9
)

// ParseAlgorithm parses an algorithm name. The empty string is None.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch a := Algorithm(strings.ToLower(name)); a {
	case "":
		return None, nil
	case None, Gzip, Snappy, LZ4, Zstd, S2:
		return a, nil
	default:
		return "", nebulaerrors.New(nebulaerrors.ErrorTypeConfig, "unsupported compression algorithm: "+name)
	}
}

// Extension returns the conventional file extension, including the dot.
func (a Algorithm) Extension() string {
	switch a {
	case Gzip:
		return ".gz"
	case Snappy:
		return ".sz"
	case LZ4:
		return ".lz4"
	case Zstd:
		return ".zst"
	case S2:
		return ".s2"
	default:
		return ""
	}
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// NewWriter wraps w so that bytes written are compressed with algorithm.
// Closing the returned writer flushes the stream but leaves w open.
func NewWriter(w io.Writer, algorithm Algorithm, level Level) (io.WriteCloser, error) {
	switch algorithm {
	case None, "":
		return nopWriteCloser{w}, nil
	case Gzip:
		gw, err := gzip.NewWriterLevel(w, mapGzipLevel(level))
		if err != nil {
			return nil, nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeConfig, "failed to create gzip writer")
		}
		return gw, nil
	case Snappy:
		return snappy.NewBufferedWriter(w), nil
	case S2:
		return s2.NewWriter(w), nil
	case LZ4:
		lw := lz4.NewWriter(w)
		if err := lw.Apply(lz4.CompressionLevelOption(mapLZ4Level(level))); err != nil {
			return nil, nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeConfig, "failed to configure lz4 writer")
		}
		return lw, nil
	case Zstd:
		zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(mapZstdLevel(level)))
		if err != nil {
			return nil, nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeConfig, "failed to create zstd writer")
		}
		return zw, nil
	default:
		return nil, nebulaerrors.New(nebulaerrors.ErrorTypeConfig, "unsupported compression algorithm: "+string(algorithm))
	}
}

// NewReader returns a reader decompressing r.
func NewReader(r io.Reader, algorithm Algorithm) (io.ReadCloser, error) {
	switch algorithm {
	case None, "":
		return io.NopCloser(r), nil
	case Gzip:
		gr, err := gzip.NewReader(r)
		if err != nil {
			return nil, nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeValidation, "invalid gzip stream")
		}
		return gr, nil
	case Snappy:
		return io.NopCloser(snappy.NewReader(r)), nil
	case S2:
		return io.NopCloser(s2.NewReader(r)), nil
	case LZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	case Zstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeValidation, "invalid zstd stream")
		}
		return zr.IOReadCloser(), nil
	default:
		return nil, nebulaerrors.New(nebulaerrors.ErrorTypeConfig, "unsupported compression algorithm: "+string(algorithm))
	}
}

func mapGzipLevel(level Level) int {
	switch level {
	case Fastest:
		return gzip.BestSpeed
	case Best:
		return gzip.BestCompression
	default:
		return gzip.DefaultCompression
	}
}

func mapLZ4Level(level Level) lz4.CompressionLevel {
	switch level {
	case Fastest:
		return lz4.Fast
	case Best:
		return lz4.Level9
	default:
		return lz4.Level5
	}
}

func mapZstdLevel(level Level) zstd.EncoderLevel {
	switch level {
	case Fastest:
		return zstd.SpeedFastest
	case Better:
		return zstd.SpeedBetterCompression
	case Best:
		return zstd.SpeedBestCompression
	default:
		return zstd.SpeedDefault
	}
}
