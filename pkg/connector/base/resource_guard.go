// Package base provides the helpers agent readers share by composition:
// ordered, fail-safe resource teardown and per-record metrics reporting.
//
// # Usage
//
//	type MyReader struct {
//	    metric *base.ReaderMetric
//	    // reader-specific fields
//	}
//
//	func (r *MyReader) Destroy() {
//	    base.CloseAll(r.logger,
//	        base.Resource{Name: "cursor", Close: r.closeRows},
//	        base.Resource{Name: "statement", Close: r.closeStmt},
//	        base.Resource{Name: "connection", Close: r.closeConn},
//	    )
//	}
package base

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-agent/pkg/nebulaerrors"
)

// Resource is a named resource to release. A nil Close is skipped.
type Resource struct {
	Name  string
	Close func() error
}

// CloseAll closes resources in the order given. A failure or panic while
// closing one resource is logged and does not stop the remaining closes.
// The collected close errors are returned for inspection; callers treat them
// as non-fatal.
func CloseAll(logger *zap.Logger, resources ...Resource) []error {
	var errs []error
	for _, res := range resources {
		if res.Close == nil {
			continue
		}
		if err := closeOne(res); err != nil {
			logger.Warn("failed to close resource",
				zap.String("resource", res.Name),
				zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errs
}

func closeOne(res Resource) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = nebulaerrors.New(nebulaerrors.ErrorTypeResourceClose, fmt.Sprintf("panic closing %s: %v", res.Name, r))
		}
	}()

	if cerr := res.Close(); cerr != nil {
		return nebulaerrors.Wrap(cerr, nebulaerrors.ErrorTypeResourceClose, "failed to close "+res.Name)
	}
	return nil
}
