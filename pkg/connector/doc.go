// Package connector groups the agent reader framework.
//
// # Architecture Overview
//
//   - core: the Reader interface every source variant implements and the
//     Message a reader hands downstream.
//
//   - base: helpers readers compose: ordered, fail-safe resource teardown
//     (CloseAll) and per-record metrics reporting (ReaderMetric).
//
//   - registry: named reader factories. Readers self-register in init.
//
//   - sources: reader implementations. sources/sqlserver streams the rows of
//     a SQL query as delimited records.
//
// # Reader Lifecycle
//
// A reader is driven by a single consumer:
//
//	reader, err := registry.CreateReader("sqlserver", query, registry.Dependencies{Metrics: sink})
//	if err != nil {
//		return err
//	}
//	defer reader.Destroy()
//
//	if err := reader.Open(ctx, profile); err != nil {
//		return err
//	}
//	for !reader.IsFinished() {
//		msg, err := reader.Read()
//		if err != nil {
//			return err
//		}
//		if msg != nil {
//			forward(msg)
//		}
//	}
//
// Read returns (nil, nil) when there is nothing to deliver. Open failures and
// read failures are fatal to the reader; Destroy is always safe.
package connector
