// Package testutil provides testing utilities for agent readers
package testutil

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/ajitpratap0/nebula-agent/pkg/clients"
)

// TestLogger creates a test logger that writes to the test output.
func TestLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t)
}

// MockConnection returns a sqlmock-backed connection. Queries are matched
// verbatim.
func MockConnection(t *testing.T) (clients.Connection, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	return db, mock
}

// StubProvider hands out queued connections in order and records every
// request. With Err set, Connect fails.
type StubProvider struct {
	mu       sync.Mutex
	Conns    []clients.Connection
	Err      error
	Requests []clients.ConnectionRequest
}

// NewStubProvider creates a provider serving conns.
func NewStubProvider(conns ...clients.Connection) *StubProvider {
	return &StubProvider{Conns: conns}
}

// Connect implements clients.ConnectionProvider.
func (p *StubProvider) Connect(_ context.Context, req clients.ConnectionRequest) (clients.Connection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Requests = append(p.Requests, req)
	if p.Err != nil {
		return nil, p.Err
	}
	if len(p.Conns) == 0 {
		return nil, errors.New("no connection queued")
	}
	conn := p.Conns[0]
	p.Conns = p.Conns[1:]
	return conn, nil
}
