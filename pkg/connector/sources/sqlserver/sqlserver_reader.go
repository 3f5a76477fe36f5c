// Package sqlserver implements the agent reader that streams the result of a
// SQL query as delimited records. Despite the name it reads any database the
// connection provider can reach (SQL Server, PostgreSQL, MySQL); SQL Server
// is the default.
package sqlserver

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-agent/pkg/clients"
	"github.com/ajitpratap0/nebula-agent/pkg/config"
	"github.com/ajitpratap0/nebula-agent/pkg/connector/base"
	"github.com/ajitpratap0/nebula-agent/pkg/connector/core"
	"github.com/ajitpratap0/nebula-agent/pkg/logger"
	"github.com/ajitpratap0/nebula-agent/pkg/metrics"
	"github.com/ajitpratap0/nebula-agent/pkg/nebulaerrors"
	"github.com/ajitpratap0/nebula-agent/pkg/observability"
)

// PluginTag labels the metrics this reader reports.
const PluginTag = "AgentSQLServerMetric"

// Profile keys read by Open.
const (
	KeyUser             = "job.sqlserverJob.user"
	KeyPassword         = "job.sqlserverJob.password"
	KeyHostname         = "job.sqlserverJob.hostname"
	KeyPort             = "job.sqlserverJob.port"
	KeyDBName           = "job.sqlserverJob.dbname"
	KeyBatchSize        = "job.sqlserverJob.batchSize"
	KeyDriverClass      = "job.database.driverClass"
	KeyDatabaseType     = "job.database.type"
	KeySeparator        = "job.sql.separator"
	KeyCommand          = "job.sql.command"
	KeyGroupID          = "proxy.groupId"
	KeyStreamID         = "proxy.streamId"
	KeyFailoverAttempts = "job.database.failover.attempts"
	KeyFailoverDelay    = "job.database.failover.delay"
)

// Defaults for optional profile keys.
const (
	DefaultBatchSize        = 1000
	DefaultSeparator        = "\x01"
	DefaultDatabaseType     = clients.DatabaseTypeSQLServer
	DefaultGroupID          = "default_group"
	DefaultStreamID         = "default_stream"
	DefaultFailoverAttempts = 3
	DefaultFailoverDelay    = time.Second
)

type readerState int

const (
	stateUninitialized readerState = iota
	stateOpen
	stateExhausted
	stateFailed
	stateDestroyed
)

func (s readerState) String() string {
	switch s {
	case stateUninitialized:
		return "uninitialized"
	case stateOpen:
		return "open"
	case stateExhausted:
		return "exhausted"
	case stateFailed:
		return "failed"
	case stateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// settings are the values Open resolves from the job profile.
type settings struct {
	user             string
	password         string
	hostname         string
	port             int
	dbname           string
	batchSize        int
	driverClass      string
	databaseType     string
	separator        string
	groupID          string
	streamID         string
	failoverAttempts int
	failoverDelay    time.Duration
}

// SQLServerReader reads the rows of one query as messages.
//
// It is single-consumer: Open, Read and Destroy must not be called
// concurrently.
type SQLServerReader struct {
	sql string

	provider   clients.ConnectionProvider
	sink       metrics.Sink
	baseLogger *zap.Logger
	logger     *zap.Logger
	tracer     *observability.ConnectorTracer

	conn    clients.Connection
	stmt    *sql.Stmt
	rows    *sql.Rows
	columns []ColumnMeta

	state     readerState
	separator string
	batchSize int
	metric    *base.ReaderMetric
}

// Option configures a SQLServerReader.
type Option func(*SQLServerReader)

// WithConnectionProvider sets the provider connections are acquired from.
// Without one, Open builds a FailoverProvider from the profile.
func WithConnectionProvider(p clients.ConnectionProvider) Option {
	return func(r *SQLServerReader) { r.provider = p }
}

// WithMetricsSink sets where read outcomes are reported.
func WithMetricsSink(s metrics.Sink) Option {
	return func(r *SQLServerReader) { r.sink = s }
}

// WithLogger sets the base logger. Without one the global logger is used.
func WithLogger(l *zap.Logger) Option {
	return func(r *SQLServerReader) { r.baseLogger = l }
}

// NewSQLServerReader creates a reader for query. The query text is executed
// as given.
func NewSQLServerReader(query string, opts ...Option) *SQLServerReader {
	r := &SQLServerReader{
		sql:       query,
		separator: DefaultSeparator,
		batchSize: DefaultBatchSize,
		tracer:    observability.NewConnectorTracer("sqlserver"),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.sink == nil {
		r.sink = metrics.NopSink{}
	}
	r.logger = logger.ForReader(r.baseLogger, "sqlserver", DefaultGroupID, DefaultStreamID)
	return r
}

// resolveSettings reads the profile. Required coordinates missing or
// malformed numbers are configuration errors.
func resolveSettings(profile *config.JobProfile) (*settings, error) {
	if profile == nil {
		return nil, nebulaerrors.New(nebulaerrors.ErrorTypeConfig, "job profile is required")
	}

	s := &settings{
		user:         profile.Get(KeyUser, ""),
		password:     profile.Get(KeyPassword, ""),
		databaseType: profile.Get(KeyDatabaseType, DefaultDatabaseType),
		separator:    profile.Get(KeySeparator, DefaultSeparator),
		groupID:      profile.Get(KeyGroupID, DefaultGroupID),
		streamID:     profile.Get(KeyStreamID, DefaultStreamID),
	}
	// The driver defaults to the one registered for the database type.
	s.driverClass = profile.Get(KeyDriverClass, clients.DefaultDriver(s.databaseType))

	var err error
	if s.hostname, err = profile.Require(KeyHostname); err != nil {
		return nil, err
	}
	if s.dbname, err = profile.Require(KeyDBName); err != nil {
		return nil, err
	}
	if _, err = profile.Require(KeyPort); err != nil {
		return nil, err
	}
	if s.port, err = profile.GetInt(KeyPort, 0); err != nil {
		return nil, err
	}
	if s.batchSize, err = profile.GetInt(KeyBatchSize, DefaultBatchSize); err != nil {
		return nil, err
	}
	if s.failoverAttempts, err = profile.GetInt(KeyFailoverAttempts, DefaultFailoverAttempts); err != nil {
		return nil, err
	}
	if s.failoverDelay, err = profile.GetDuration(KeyFailoverDelay, DefaultFailoverDelay); err != nil {
		return nil, err
	}
	return s, nil
}

// Open connects, prepares and executes the query and introspects the result
// columns. On failure every acquired resource is released before the error is
// returned. Opening a reader that was already used releases its previous
// resources first.
func (r *SQLServerReader) Open(ctx context.Context, profile *config.JobProfile) (err error) {
	if r.state != stateUninitialized {
		r.Destroy()
	}

	ctx, span := r.tracer.StartSpan(ctx, "open")
	defer func() { span.End(err) }()

	defer func() {
		if err != nil {
			r.logger.Error("failed to open reader", zap.String("sql", r.sql), zap.Error(err))
			r.Destroy()
		}
	}()

	s, err := resolveSettings(profile)
	if err != nil {
		return err
	}
	r.separator = s.separator
	r.batchSize = s.batchSize
	r.metric = base.NewReaderMetric(r.sink, PluginTag, s.groupID, s.streamID)
	r.logger = logger.ForReader(r.baseLogger, "sqlserver", s.groupID, s.streamID)

	span.SetAttribute("db.type", s.databaseType)
	span.SetAttribute("batch_size", s.batchSize)

	provider := r.provider
	if provider == nil {
		provider = clients.NewFailoverProvider(s.failoverAttempts, s.failoverDelay)
	}

	url := clients.BuildConnectionURL(s.databaseType, s.hostname, s.port, s.dbname)
	r.conn, err = provider.Connect(ctx, clients.ConnectionRequest{
		Driver:   s.driverClass,
		URL:      url,
		User:     s.user,
		Password: s.password,
	})
	if err != nil {
		return nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeConnection, "failed to acquire connection")
	}

	r.stmt, err = r.conn.PrepareContext(ctx, r.sql)
	if err != nil {
		return nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeConnection, "failed to prepare query")
	}

	// database/sql has no fetch size; drivers stream rows on their own.
	r.logger.Debug("executing query", zap.Int("batch_size", r.batchSize))

	// The cursor must outlive this call.
	r.rows, err = r.stmt.QueryContext(context.WithoutCancel(ctx))
	if err != nil {
		return nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeConnection, "failed to execute query")
	}

	r.columns, err = introspect(r.rows)
	if err != nil {
		return err
	}

	r.state = stateOpen
	r.logger.Info("reader opened",
		zap.Int("columns", len(r.columns)),
		zap.Int("batch_size", r.batchSize))
	return nil
}

// Read returns the next row as a message. It returns (nil, nil) once the
// result is exhausted and whenever the reader is not open. A failure marks
// the reader failed; later reads return (nil, nil).
func (r *SQLServerReader) Read() (*core.Message, error) {
	if r.state != stateOpen {
		return nil, nil
	}

	msg, err := r.readRow()
	if err != nil {
		r.metric.ReportFailure()
		r.state = stateFailed
		r.logger.Error("error while reading data", zap.Error(err))
		return nil, err
	}
	return msg, nil
}

func (r *SQLServerReader) readRow() (*core.Message, error) {
	if !r.rows.Next() {
		if err := r.rows.Err(); err != nil {
			return nil, nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeRowRead, "failed to advance cursor")
		}
		r.state = stateExhausted
		r.logger.Debug("result exhausted")
		return nil, nil
	}

	fields, err := encodeRow(r.rows, r.columns)
	if err != nil {
		return nil, err
	}

	at := r.metric.ReportSuccess()
	labels := r.metric.Labels()
	body := []byte(strings.Join(fields, r.separator))
	return core.NewMessage(body, labels.GroupID, labels.StreamID, at), nil
}

// Columns returns the result columns seen at open, or nil before.
func (r *SQLServerReader) Columns() []ColumnMeta {
	return r.columns
}

// IsFinished reports whether no more messages will be produced: the result
// is exhausted, the reader is destroyed, or a read failed.
func (r *SQLServerReader) IsFinished() bool {
	switch r.state {
	case stateExhausted, stateDestroyed, stateFailed:
		return true
	default:
		return false
	}
}

// ReadSource returns the query text.
func (r *SQLServerReader) ReadSource() string {
	return r.sql
}

// Snapshot always returns the empty string; reads cannot be resumed.
func (r *SQLServerReader) Snapshot() string {
	return ""
}

// SetReadTimeout is accepted and ignored.
func (r *SQLServerReader) SetReadTimeout(time.Duration) {}

// SetWaitMillisecond is accepted and ignored.
func (r *SQLServerReader) SetWaitMillisecond(int64) {}

// FinishRead releases all resources.
func (r *SQLServerReader) FinishRead() {
	r.Destroy()
}

// IsSourceExist always reports true.
func (r *SQLServerReader) IsSourceExist() bool {
	return true
}

// Destroy closes the cursor, the statement and the connection, in that
// order. Close failures are logged and do not stop the remaining closes. It
// is safe to call in any state and more than once.
func (r *SQLServerReader) Destroy() {
	var rows, stmt, conn func() error
	if r.rows != nil {
		rows = r.rows.Close
	}
	if r.stmt != nil {
		stmt = r.stmt.Close
	}
	if r.conn != nil {
		conn = r.conn.Close
	}

	base.CloseAll(r.logger,
		base.Resource{Name: "cursor", Close: rows},
		base.Resource{Name: "statement", Close: stmt},
		base.Resource{Name: "connection", Close: conn},
	)

	r.rows, r.stmt, r.conn = nil, nil, nil
	if r.state != stateDestroyed {
		r.logger.Debug("reader destroyed", zap.Stringer("previous_state", r.state))
	}
	r.state = stateDestroyed
}

var _ core.Reader = (*SQLServerReader)(nil)
