package testutil

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/ajitpratap0/nebula-agent/pkg/clients"
	"github.com/ajitpratap0/nebula-agent/pkg/config"
)

// Environment variables locating a live database for integration tests.
const (
	EnvHost     = "NEBULA_AGENT_IT_HOST"
	EnvPort     = "NEBULA_AGENT_IT_PORT"
	EnvDatabase = "NEBULA_AGENT_IT_DATABASE"
	EnvUser     = "NEBULA_AGENT_IT_USER"
	EnvPassword = "NEBULA_AGENT_IT_PASSWORD"
	EnvType     = "NEBULA_AGENT_IT_TYPE" // sqlserver, postgresql or mysql
)

// DatabaseEnv is a live database described by the environment.
type DatabaseEnv struct {
	Type     string
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// LookupDatabaseEnv reads the database from the environment. ok is false
// when no host is configured.
func LookupDatabaseEnv() (env DatabaseEnv, ok bool) {
	env.Host = os.Getenv(EnvHost)
	if env.Host == "" {
		return env, false
	}
	env.Type = os.Getenv(EnvType)
	if env.Type == "" {
		env.Type = "sqlserver"
	}
	env.Port, _ = strconv.Atoi(os.Getenv(EnvPort))
	env.Database = os.Getenv(EnvDatabase)
	env.User = os.Getenv(EnvUser)
	env.Password = os.Getenv(EnvPassword)
	return env, true
}

// IntegrationTestSuite provides base functionality for integration tests
// against a live database.
type IntegrationTestSuite struct {
	suite.Suite
	ctx       context.Context
	cancel    context.CancelFunc
	db        DatabaseEnv
	startTime time.Time
}

// SetupSuite skips the suite unless a database is configured.
func (s *IntegrationTestSuite) SetupSuite() {
	IntegrationTest(s.T())

	db, ok := LookupDatabaseEnv()
	if !ok {
		s.T().Skipf("%s not set", EnvHost)
	}
	s.db = db
	s.ctx, s.cancel = context.WithTimeout(context.Background(), 5*time.Minute)
	s.startTime = time.Now()
	s.T().Logf("Integration test suite started against %s %s:%d", db.Type, db.Host, db.Port)
}

// TearDownSuite runs after all tests in the suite
func (s *IntegrationTestSuite) TearDownSuite() {
	if s.cancel != nil {
		s.cancel()
	}
	s.T().Logf("Integration test suite completed in %v", time.Since(s.startTime))
}

// Context returns the test context
func (s *IntegrationTestSuite) Context() context.Context {
	return s.ctx
}

// Database returns the configured database
func (s *IntegrationTestSuite) Database() DatabaseEnv {
	return s.db
}

// JobProfile returns a profile pointing at the configured database under the
// given key prefix (for example "job.sqlserverJob").
func (s *IntegrationTestSuite) JobProfile(prefix string, extra map[string]interface{}) *config.JobProfile {
	settings := map[string]interface{}{
		prefix + ".hostname":       s.db.Host,
		prefix + ".port":           s.db.Port,
		prefix + ".dbname":         s.db.Database,
		prefix + ".user":           s.db.User,
		prefix + ".password":       s.db.Password,
		"job.database.type":        s.db.Type,
		"job.database.driverClass": clients.DefaultDriver(s.db.Type),
	}
	for k, v := range extra {
		settings[k] = v
	}
	p := config.NewJobProfileFromMap(settings)
	require.NotNil(s.T(), p)
	return p
}

// IntegrationTest marks a test as an integration test
func IntegrationTest(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
}
