// Package nebula is the Nebula ingestion agent: readers that turn source
// data into delimited records for the downstream pipeline.
//
// # Architecture
//
// The agent is organized around a small reader capability:
//
//   - pkg/connector/core: the Reader interface and Message type.
//   - pkg/connector/sources/sqlserver: runs a SQL query and emits one record
//     per row. Binary columns are base64 encoded; CR and LF are removed from
//     text. Fields are joined by a configurable separator (default \x01).
//   - pkg/clients: connection URLs, per-driver DSN translation (SQL Server,
//     PostgreSQL, MySQL) and failover retry.
//   - pkg/config: the job profile readers resolve their settings from.
//   - pkg/metrics: read counters and audit events on Prometheus.
//   - pkg/sink: stdout, compressed file and Kafka delivery for the CLI.
//
// # Quick Start
//
//	# job.yaml
//	job:
//	  sqlserverJob:
//	    hostname: db.internal
//	    port: 1433
//	    dbname: sales
//	    user: agent
//	    password: ${DB_PASSWORD}
//	  sql:
//	    command: SELECT id, name, payload FROM orders
//	proxy:
//	  groupId: sales
//	  streamId: orders
//
//	nebula-agent read --job job.yaml --metrics-addr :9090
//
// # Error Handling
//
// Errors are *nebulaerrors.Error values carrying a type (config, connection,
// schema, row_read, resource_close). Open and Read failures are fatal to a
// reader; resource close failures during teardown are logged only.
package nebula
