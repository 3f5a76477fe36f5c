package sqlserver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStripNewlines(t *testing.T) {
	assert.Equal(t, "ab", stripNewlines("a\r\nb"))
	assert.Equal(t, "abc", stripNewlines("\na\rb\n\nc\r"))
	assert.Equal(t, "tab\tkept", stripNewlines("tab\tkept"))
	assert.Equal(t, "", stripNewlines("\r\n"))
}

func TestEncodeBinary(t *testing.T) {
	assert.Equal(t, "3q2+7w==", encodeBinary([]byte{0xDE, 0xAD, 0xBE, 0xEF}))
	assert.Equal(t, "", encodeBinary(nil))
	assert.Equal(t, "", encodeBinary([]byte{}))

	// Long values are not wrapped.
	long := make([]byte, 300)
	assert.NotContains(t, encodeBinary(long), "\n")
}

func TestFormatGUID(t *testing.T) {
	wire := []byte{0x67, 0x45, 0x23, 0x01, 0xAB, 0x89, 0xEF, 0xCD, 0x01, 0x23, 0x45, 0x67, 0x89, 0xAB, 0xCD, 0xEF}
	assert.Equal(t, "01234567-89AB-CDEF-0123-456789ABCDEF", formatGUID(wire))

	// Text GUIDs from other drivers pass through.
	assert.Equal(t, "0b7f2c4e-1d2a-4f0e-9c1b-7a6d5e4f3a2b", formatGUID([]byte("0b7f2c4e-1d2a-4f0e-9c1b-7a6d5e4f3a2b")))
	assert.Equal(t, "", formatGUID(nil))
}

func TestFormatTemporal(t *testing.T) {
	ts := time.Date(2024, 12, 31, 23, 59, 58, 100_000_000, time.FixedZone("", 2*3600))
	whole := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name string
		t    time.Time
		code TypeCode
		want string
	}{
		{"date", ts, TypeDate, "2024-12-31"},
		{"time", ts, TypeTime, "23:59:58.1"},
		{"time whole second", whole, TypeTime, "03:04:05"},
		{"timestamp", ts, TypeTimestamp, "2024-12-31 23:59:58.1"},
		{"timestamp whole second", whole, TypeTimestamp, "2024-01-02 03:04:05.0"},
		{"timestamp nanos", time.Date(2024, 1, 2, 3, 4, 5, 1234567, time.UTC), TypeTimestamp, "2024-01-02 03:04:05.001234567"},
		{"offset", ts, TypeTimestampTZ, "2024-12-31 23:59:58.1 +02:00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatTemporal(tt.t, tt.code))
		})
	}
}
