package registry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/nebula-agent/pkg/config"
	"github.com/ajitpratap0/nebula-agent/pkg/connector/core"
	"github.com/ajitpratap0/nebula-agent/pkg/nebulaerrors"
)

type stubReader struct{ source string }

func (s *stubReader) Open(context.Context, *config.JobProfile) error { return nil }
func (s *stubReader) Read() (*core.Message, error)                   { return nil, nil }
func (s *stubReader) IsFinished() bool                               { return true }
func (s *stubReader) ReadSource() string                             { return s.source }
func (s *stubReader) Snapshot() string                               { return "" }
func (s *stubReader) SetReadTimeout(time.Duration)                   {}
func (s *stubReader) SetWaitMillisecond(int64)                       {}
func (s *stubReader) FinishRead()                                    {}
func (s *stubReader) IsSourceExist() bool                            { return true }
func (s *stubReader) Destroy()                                       {}

func TestRegistry_RegisterAndCreate(t *testing.T) {
	r := NewRegistry()
	factory := func(source string, _ Dependencies) core.Reader { return &stubReader{source: source} }

	require.NoError(t, r.RegisterReader("stub", factory))
	assert.True(t, r.HasReader("stub"))
	assert.Equal(t, []string{"stub"}, r.ListReaders())

	reader, err := r.CreateReader("stub", "SELECT 1", Dependencies{})
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", reader.ReadSource())

	err = r.RegisterReader("stub", factory)
	assert.True(t, nebulaerrors.IsType(err, nebulaerrors.ErrorTypeConfig))
}

func TestRegistry_CreateUnknown(t *testing.T) {
	_, err := NewRegistry().CreateReader("missing", "", Dependencies{})
	assert.True(t, nebulaerrors.IsType(err, nebulaerrors.ErrorTypeConfig))
}
