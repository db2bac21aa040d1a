package llm

import (
	"context"
)

// MockProviderClient is a configurable mock for testing run execution and
// version tracking. Set the function fields to control behavior in tests.
type MockProviderClient struct {
	// CompleteFunc is called when Complete is invoked.
	// If nil, returns an empty response and nil error.
	CompleteFunc func(ctx context.Context, req *Request) (*Response, error)

	// ProbeVersionFunc is called when ProbeVersion is invoked.
	// If nil, returns "mock-version" and nil error.
	ProbeVersionFunc func(ctx context.Context, modelID string) (string, error)

	// ProviderTag is returned by Provider. Defaults to "mock".
	ProviderTag string

	// Call tracking for verification
	CompleteCalls     int
	ProbeVersionCalls int
}

// NewMockProviderClient creates a new mock with sensible defaults.
func NewMockProviderClient() *MockProviderClient {
	return &MockProviderClient{ProviderTag: "mock"}
}

// Complete implements ProviderClient.
func (m *MockProviderClient) Complete(ctx context.Context, req *Request) (*Response, error) {
	m.CompleteCalls++
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, req)
	}
	return &Response{}, nil
}

// ProbeVersion implements ProviderClient.
func (m *MockProviderClient) ProbeVersion(ctx context.Context, modelID string) (string, error) {
	m.ProbeVersionCalls++
	if m.ProbeVersionFunc != nil {
		return m.ProbeVersionFunc(ctx, modelID)
	}
	return "mock-version", nil
}

// Provider implements ProviderClient.
func (m *MockProviderClient) Provider() string {
	if m.ProviderTag == "" {
		return "mock"
	}
	return m.ProviderTag
}

var _ ProviderClient = (*MockProviderClient)(nil)

// MockFactory returns a fixed client (or error) for every provider tag.
type MockFactory struct {
	Client ProviderClient
	Err    error
}

// ForProvider implements Factory.
func (f *MockFactory) ForProvider(tag string) (ProviderClient, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Client, nil
}

var _ Factory = (*MockFactory)(nil)
