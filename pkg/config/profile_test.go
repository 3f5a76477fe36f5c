package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/nebula-agent/pkg/nebulaerrors"
)

const jobYAML = `
job:
  sqlserverJob:
    hostname: db.internal
    port: 1433
    dbname: sales
    user: reader
    password: ${TEST_PROFILE_PASSWORD}
    batchSize: 500
  sql:
    separator: "|"
`

func TestLoadJobProfile_YAMLWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_PROFILE_PASSWORD", "s3cret")

	path := filepath.Join(t.TempDir(), "job.yaml")
	require.NoError(t, os.WriteFile(path, []byte(jobYAML), 0o600))

	p, err := LoadJobProfile(path)
	require.NoError(t, err)

	assert.Equal(t, "db.internal", p.Get("job.sqlserverJob.hostname", ""))
	assert.Equal(t, "s3cret", p.Get("job.sqlserverJob.password", ""))
	assert.Equal(t, "|", p.Get("job.sql.separator", "\x01"))

	port, err := p.GetInt("job.sqlserverJob.port", 0)
	require.NoError(t, err)
	assert.Equal(t, 1433, port)

	batch, err := p.GetInt("job.sqlserverJob.batchSize", 1000)
	require.NoError(t, err)
	assert.Equal(t, 500, batch)
}

func TestLoadJobProfile_UnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.ini")
	require.NoError(t, os.WriteFile(path, []byte("a=b"), 0o600))

	_, err := LoadJobProfile(path)
	assert.True(t, nebulaerrors.IsType(err, nebulaerrors.ErrorTypeConfig))
}

func TestLoadJobProfile_MissingFile(t *testing.T) {
	_, err := LoadJobProfile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.True(t, nebulaerrors.IsType(err, nebulaerrors.ErrorTypeConfig))
}

func TestJobProfile_Defaults(t *testing.T) {
	p := NewJobProfile()

	assert.Equal(t, "\x01", p.Get("job.sql.separator", "\x01"))

	n, err := p.GetInt("job.sqlserverJob.batchSize", 1000)
	require.NoError(t, err)
	assert.Equal(t, 1000, n)

	d, err := p.GetDuration("job.database.failover.delay", time.Second)
	require.NoError(t, err)
	assert.Equal(t, time.Second, d)
}

func TestJobProfile_GetIntInvalid(t *testing.T) {
	p := NewJobProfileFromMap(map[string]interface{}{"job.sqlserverJob.port": "not-a-port"})

	_, err := p.GetInt("job.sqlserverJob.port", 0)
	assert.True(t, nebulaerrors.IsType(err, nebulaerrors.ErrorTypeConfig))
}

func TestJobProfile_GetDuration(t *testing.T) {
	p := NewJobProfileFromMap(map[string]interface{}{
		"a": "250",
		"b": "2s",
		"c": "soon",
	})

	d, err := p.GetDuration("a", 0)
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, d)

	d, err = p.GetDuration("b", 0)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, d)

	_, err = p.GetDuration("c", 0)
	assert.Error(t, err)
}

func TestJobProfile_GetBool(t *testing.T) {
	p := NewJobProfileFromMap(map[string]interface{}{
		"sink.kafka.tls.enable":     "true",
		"sink.kafka.tls.skipVerify": "maybe",
	})

	b, err := p.GetBool("sink.kafka.tls.enable", false)
	require.NoError(t, err)
	assert.True(t, b)

	b, err = p.GetBool("sink.kafka.sasl.enable", true)
	require.NoError(t, err)
	assert.True(t, b)

	_, err = p.GetBool("sink.kafka.tls.skipVerify", false)
	assert.True(t, nebulaerrors.IsType(err, nebulaerrors.ErrorTypeConfig))
}

func TestJobProfile_Require(t *testing.T) {
	p := NewJobProfileFromMap(map[string]interface{}{"job.sqlserverJob.hostname": "h"})

	v, err := p.Require("job.sqlserverJob.hostname")
	require.NoError(t, err)
	assert.Equal(t, "h", v)

	_, err = p.Require("job.sqlserverJob.dbname")
	assert.True(t, nebulaerrors.IsType(err, nebulaerrors.ErrorTypeConfig))
}

func TestJobProfile_EnvOverride(t *testing.T) {
	t.Setenv("NEBULA_AGENT_JOB_SQLSERVERJOB_USER", "from-env")

	p := NewJobProfile()
	assert.True(t, p.Has("job.sqlserverJob.user"))
	assert.Equal(t, "from-env", p.Get("job.sqlserverJob.user", ""))
}

func TestJobProfile_DumpMasksSecrets(t *testing.T) {
	p := NewJobProfileFromMap(map[string]interface{}{
		"job.sqlserverJob.user":     "reader",
		"job.sqlserverJob.password": "s3cret",
	})

	var buf bytes.Buffer
	require.NoError(t, p.Dump(&buf, "password"))

	out := buf.String()
	assert.Contains(t, out, "reader")
	assert.NotContains(t, out, "s3cret")
	assert.Contains(t, out, "******")
}
