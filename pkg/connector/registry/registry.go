package registry

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-agent/pkg/clients"
	"github.com/ajitpratap0/nebula-agent/pkg/connector/core"
	"github.com/ajitpratap0/nebula-agent/pkg/logger"
	"github.com/ajitpratap0/nebula-agent/pkg/metrics"
	"github.com/ajitpratap0/nebula-agent/pkg/nebulaerrors"
)

// Dependencies are the external collaborators handed to a new reader.
// Nil fields select the reader's defaults.
type Dependencies struct {
	Provider clients.ConnectionProvider
	Metrics  metrics.Sink
	Logger   *zap.Logger
}

// ReaderFactory creates a reader for the given read source (for SQL readers,
// the query text).
type ReaderFactory func(source string, deps Dependencies) core.Reader

// Registry manages reader registration and instantiation
type Registry struct {
	readers map[string]ReaderFactory
	mu      sync.RWMutex
	logger  *zap.Logger
}

// Global registry instance
var globalRegistry = NewRegistry()

// NewRegistry creates a new reader registry
func NewRegistry() *Registry {
	return &Registry{
		readers: make(map[string]ReaderFactory),
		logger:  logger.Get().With(zap.String("component", "reader_registry")),
	}
}

// RegisterReader registers a reader factory under name
func (r *Registry) RegisterReader(name string, factory ReaderFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.readers[name]; exists {
		return nebulaerrors.New(nebulaerrors.ErrorTypeConfig, fmt.Sprintf("reader %s already registered", name))
	}

	r.readers[name] = factory
	r.logger.Debug("reader registered", zap.String("name", name))
	return nil
}

// CreateReader creates a reader instance
func (r *Registry) CreateReader(name, source string, deps Dependencies) (core.Reader, error) {
	r.mu.RLock()
	factory, exists := r.readers[name]
	r.mu.RUnlock()

	if !exists {
		return nil, nebulaerrors.New(nebulaerrors.ErrorTypeConfig, fmt.Sprintf("reader %s not found", name))
	}

	return factory(source, deps), nil
}

// ListReaders returns the registered reader names, sorted
func (r *Registry) ListReaders() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.readers))
	for name := range r.readers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasReader checks if a reader is registered
func (r *Registry) HasReader(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.readers[name]
	return exists
}

// RegisterReader registers a reader in the global registry
func RegisterReader(name string, factory ReaderFactory) error {
	return globalRegistry.RegisterReader(name, factory)
}

// CreateReader creates a reader from the global registry
func CreateReader(name, source string, deps Dependencies) (core.Reader, error) {
	return globalRegistry.CreateReader(name, source, deps)
}

// ListReaders returns registered readers from the global registry
func ListReaders() []string {
	return globalRegistry.ListReaders()
}

// HasReader checks if a reader is registered in the global registry
func HasReader(name string) bool {
	return globalRegistry.HasReader(name)
}
