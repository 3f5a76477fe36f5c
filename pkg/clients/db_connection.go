// Package clients provides the database connection provider agent readers use:
// connection-URL handling, per-driver DSN translation and failover retry.
package clients

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-agent/pkg/logger"
	"github.com/ajitpratap0/nebula-agent/pkg/nebulaerrors"

	// Drivers reachable through ConnectionRequest.Driver
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/microsoft/go-mssqldb"
)

// URLProtocol is the scheme prefix of connection URLs.
const URLProtocol = "jdbc"

// Database type tokens understood by DSN translation.
const (
	DatabaseTypeSQLServer  = "sqlserver"
	DatabaseTypePostgreSQL = "postgresql"
	DatabaseTypeMySQL      = "mysql"
)

// DefaultDriver returns the database/sql driver name registered for a
// database type. Unknown types map to themselves.
func DefaultDriver(databaseType string) string {
	switch strings.ToLower(databaseType) {
	case DatabaseTypeSQLServer:
		return "sqlserver"
	case DatabaseTypePostgreSQL, "postgres":
		return "pgx"
	case DatabaseTypeMySQL:
		return "mysql"
	default:
		return databaseType
	}
}

// Connection is a live database connection a reader prepares its query on.
type Connection interface {
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
	Close() error
}

// ConnectionRequest describes the connection a reader needs.
type ConnectionRequest struct {
	Driver   string // database/sql driver name
	URL      string // see BuildConnectionURL
	User     string
	Password string
}

// ConnectionProvider hands out live connections.
type ConnectionProvider interface {
	Connect(ctx context.Context, req ConnectionRequest) (Connection, error)
}

// ConnectionURL is a parsed connection URL.
type ConnectionURL struct {
	DatabaseType string
	Host         string
	Port         int
	Database     string
	Properties   map[string]string // extra ;key=value; pairs
}

// BuildConnectionURL formats
// jdbc:<databaseType>://<host>:<port>;databaseName=<dbname>;
func BuildConnectionURL(databaseType, host string, port int, dbname string) string {
	return fmt.Sprintf("%s:%s://%s:%d;databaseName=%s;", URLProtocol, databaseType, host, port, dbname)
}

// ParseConnectionURL parses a URL produced by BuildConnectionURL, possibly
// carrying extra ;key=value; properties.
func ParseConnectionURL(raw string) (*ConnectionURL, error) {
	invalid := func(reason string) error {
		return nebulaerrors.New(nebulaerrors.ErrorTypeConfig, "invalid connection url: "+reason).
			WithDetail("url", raw)
	}

	rest, ok := strings.CutPrefix(raw, URLProtocol+":")
	if !ok {
		return nil, invalid("missing " + URLProtocol + " prefix")
	}
	dbType, rest, ok := strings.Cut(rest, "://")
	if !ok || dbType == "" {
		return nil, invalid("missing database type")
	}

	parts := strings.Split(rest, ";")
	host, portStr, err := net.SplitHostPort(parts[0])
	if err != nil {
		return nil, invalid(err.Error())
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return nil, invalid("bad port " + portStr)
	}

	u := &ConnectionURL{
		DatabaseType: strings.ToLower(dbType),
		Host:         host,
		Port:         port,
		Properties:   make(map[string]string),
	}
	for _, kv := range parts[1:] {
		if kv == "" {
			continue
		}
		k, v, _ := strings.Cut(kv, "=")
		if strings.EqualFold(k, "databaseName") {
			u.Database = v
			continue
		}
		u.Properties[k] = v
	}
	return u, nil
}

// DSN translates the URL into the data source name of the driver for its
// database type.
func (u *ConnectionURL) DSN(user, password string) (string, error) {
	hostPort := net.JoinHostPort(u.Host, strconv.Itoa(u.Port))

	switch u.DatabaseType {
	case DatabaseTypeSQLServer:
		query := url.Values{}
		if u.Database != "" {
			query.Set("database", u.Database)
		}
		for k, v := range u.Properties {
			query.Set(k, v)
		}
		dsn := url.URL{
			Scheme:   "sqlserver",
			User:     url.UserPassword(user, password),
			Host:     hostPort,
			RawQuery: query.Encode(),
		}
		return dsn.String(), nil

	case DatabaseTypePostgreSQL, "postgres":
		query := url.Values{}
		for k, v := range u.Properties {
			query.Set(k, v)
		}
		dsn := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(user, password),
			Host:     hostPort,
			Path:     "/" + u.Database,
			RawQuery: query.Encode(),
		}
		return dsn.String(), nil

	case DatabaseTypeMySQL:
		cfg := mysql.NewConfig()
		cfg.User = user
		cfg.Passwd = password
		cfg.Net = "tcp"
		cfg.Addr = hostPort
		cfg.DBName = u.Database
		if len(u.Properties) > 0 {
			cfg.Params = make(map[string]string, len(u.Properties))
			for k, v := range u.Properties {
				cfg.Params[k] = v
			}
		}
		return cfg.FormatDSN(), nil

	default:
		return "", nebulaerrors.New(nebulaerrors.ErrorTypeConfig, "unsupported database type").
			WithDetail("database_type", u.DatabaseType)
	}
}

// Redacted returns the URL's properties as sorted key=value pairs, for logs.
func (u *ConnectionURL) Redacted() string {
	keys := make([]string, 0, len(u.Properties))
	for k := range u.Properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(BuildConnectionURL(u.DatabaseType, u.Host, u.Port, u.Database))
	for _, k := range keys {
		b.WriteString(k + "=" + u.Properties[k] + ";")
	}
	return b.String()
}

// Opener opens one connection to dsn through the named driver.
type Opener func(ctx context.Context, driverName, dsn string) (Connection, error)

// FailoverProvider connects with a retry policy. Configuration errors are not
// retried.
type FailoverProvider struct {
	policy *RetryPolicy
	open   Opener
	logger *zap.Logger
}

// NewFailoverProvider creates a provider that makes up to attempts connection
// attempts with exponential backoff starting at delay.
func NewFailoverProvider(attempts int, delay time.Duration) *FailoverProvider {
	return &FailoverProvider{
		policy: NewRetryPolicy(attempts, delay),
		open:   OpenSQL,
		logger: logger.Get().With(zap.String("component", "connection_provider")),
	}
}

// WithOpener replaces how connections are opened.
func (p *FailoverProvider) WithOpener(open Opener) *FailoverProvider {
	p.open = open
	return p
}

// Connect parses the request URL, translates it for the driver and opens a
// connection, retrying failed attempts according to the policy.
func (p *FailoverProvider) Connect(ctx context.Context, req ConnectionRequest) (Connection, error) {
	u, err := ParseConnectionURL(req.URL)
	if err != nil {
		return nil, err
	}
	dsn, err := u.DSN(req.User, req.Password)
	if err != nil {
		return nil, err
	}

	var conn Connection
	err = p.policy.ExecuteWithCondition(ctx,
		func() error {
			c, openErr := p.open(ctx, req.Driver, dsn)
			if openErr != nil {
				return openErr
			}
			conn = c
			return nil
		},
		nebulaerrors.IsRetryable,
		func(attempt int, delay time.Duration, err error) {
			p.logger.Warn("connection attempt failed, retrying",
				zap.String("url", u.Redacted()),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(err))
		},
	)
	if err != nil {
		return nil, nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeConnection, "failed to connect").
			WithDetail("url", u.Redacted()).
			WithDetail("driver", req.Driver)
	}

	p.logger.Info("connected", zap.String("url", u.Redacted()), zap.String("driver", req.Driver))
	return conn, nil
}

// sqlConnection pins one connection of a dedicated pool.
type sqlConnection struct {
	db   *sql.DB
	conn *sql.Conn
}

// OpenSQL opens a single pinned database/sql connection and pings it.
func OpenSQL(ctx context.Context, driverName, dsn string) (Connection, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeConfig, "failed to open driver").
			WithDetail("driver", driverName)
	}
	db.SetMaxOpenConns(1)

	conn, err := db.Conn(ctx)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		_ = db.Close()
		return nil, err
	}
	return &sqlConnection{db: db, conn: conn}, nil
}

func (c *sqlConnection) PrepareContext(ctx context.Context, query string) (*sql.Stmt, error) {
	return c.conn.PrepareContext(ctx, query)
}

// Close releases the pinned connection, then its pool.
func (c *sqlConnection) Close() error {
	return errors.Join(c.conn.Close(), c.db.Close())
}
