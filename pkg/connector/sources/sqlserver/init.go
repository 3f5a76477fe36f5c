package sqlserver

import (
	"github.com/ajitpratap0/nebula-agent/pkg/connector/core"
	"github.com/ajitpratap0/nebula-agent/pkg/connector/registry"
)

func init() {
	// Register the SQL query reader
	_ = registry.RegisterReader("sqlserver", newFromRegistry)
}

func newFromRegistry(query string, deps registry.Dependencies) core.Reader {
	opts := []Option{WithMetricsSink(deps.Metrics)}
	if deps.Provider != nil {
		opts = append(opts, WithConnectionProvider(deps.Provider))
	}
	if deps.Logger != nil {
		opts = append(opts, WithLogger(deps.Logger))
	}
	return NewSQLServerReader(query, opts...)
}
