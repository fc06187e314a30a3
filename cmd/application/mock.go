package application

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/agentstation/factsync"
	"github.com/agentstation/factsync/pkg/kb"
	"github.com/agentstation/factsync/pkg/release"
	"github.com/agentstation/factsync/pkg/sync"
)

// Mock provides a mock implementation of Application for testing.
// Each method can be customized by setting the corresponding function field.
// If a function field is nil, the method returns a default/zero value.
//
//	mock := &application.Mock{
//	    ClientFunc: func(context.Context) (kb.Client, error) {
//	        return memory.New(), nil
//	    },
//	}
//	cmd := nuclides.NewExtractCommand(mock)
type Mock struct {
	ClientFunc          func(ctx context.Context) (kb.Client, error)
	PipelineOptionsFunc func() ([]factsync.Option, error)
	SyncOptionsFunc     func() ([]sync.Option, error)
	ReleaseFunc         func() (*release.Descriptor, error)
	DataDirFunc         func() string
	LoggerFunc          func() *zerolog.Logger
	OutputFormatFunc    func() string
	VersionFunc         func() string
}

// Client returns a client using the mock function or nil.
func (m *Mock) Client(ctx context.Context) (kb.Client, error) {
	if m.ClientFunc != nil {
		return m.ClientFunc(ctx)
	}
	return nil, nil
}

// PipelineOptions returns options using the mock function or none.
func (m *Mock) PipelineOptions() ([]factsync.Option, error) {
	if m.PipelineOptionsFunc != nil {
		return m.PipelineOptionsFunc()
	}
	return nil, nil
}

// SyncOptions returns options using the mock function or none.
func (m *Mock) SyncOptions() ([]sync.Option, error) {
	if m.SyncOptionsFunc != nil {
		return m.SyncOptionsFunc()
	}
	return nil, nil
}

// Release returns the descriptor using the mock function or nil.
func (m *Mock) Release() (*release.Descriptor, error) {
	if m.ReleaseFunc != nil {
		return m.ReleaseFunc()
	}
	return nil, nil
}

// DataDir returns the directory using the mock function or ".".
func (m *Mock) DataDir() string {
	if m.DataDirFunc != nil {
		return m.DataDirFunc()
	}
	return "."
}

// Logger returns a logger using the mock function or a no-op logger.
func (m *Mock) Logger() *zerolog.Logger {
	if m.LoggerFunc != nil {
		return m.LoggerFunc()
	}
	logger := zerolog.Nop()
	return &logger
}

// OutputFormat returns output format using the mock function or "table".
func (m *Mock) OutputFormat() string {
	if m.OutputFormatFunc != nil {
		return m.OutputFormatFunc()
	}
	return "table"
}

// Version returns version using the mock function or "dev".
func (m *Mock) Version() string {
	if m.VersionFunc != nil {
		return m.VersionFunc()
	}
	return "dev"
}

// Commit returns "unknown".
func (m *Mock) Commit() string { return "unknown" }

// Date returns "unknown".
func (m *Mock) Date() string { return "unknown" }

// BuiltBy returns "test".
func (m *Mock) BuiltBy() string { return "test" }

// Ensure Mock implements Application at compile time.
var _ Application = (*Mock)(nil)
