package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestInit_InvalidLevel(t *testing.T) {
	err := Init(Config{Level: "loud"})
	assert.Error(t, err)
}

func TestForReaderAndContextFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	Set(zap.New(core))
	t.Cleanup(func() { Set(nil) })

	ForReader(nil, "sqlserver", "g1", "s1").Info("opened")

	ctx := context.WithValue(context.Background(), JobIDKey, "job-7")
	WithContext(ctx).Info("running")

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)

	fields := entries[0].ContextMap()
	assert.Equal(t, "sqlserver", fields["connector"])
	assert.Equal(t, "g1", fields["group_id"])
	assert.Equal(t, "s1", fields["stream_id"])
	assert.Equal(t, "job-7", entries[1].ContextMap()["job_id"])
}

func TestGet_DefaultsWhenUnset(t *testing.T) {
	Set(nil)
	assert.NotNil(t, Get())
	Set(nil)
}
